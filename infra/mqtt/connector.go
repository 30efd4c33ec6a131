// Package mqtt feeds the decision pipeline with incident reports received
// over MQTT and publishes the recommended scheme back to the bus. It is a
// thin transport adapter: the decision core never depends on it.
package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/ebrunet/dispatchcore/core/logger"
	"github.com/ebrunet/dispatchcore/core/model"
	infralogger "github.com/ebrunet/dispatchcore/infra/logger"
)

// Config defines the connection parameters for the Paho MQTT connector.
type Config struct {
	Enabled     bool   `json:"enabled"`
	Broker      string `json:"broker"`
	ClientID    string `json:"client_id"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	ReportTopic string `json:"report_topic"`
	SchemeTopic string `json:"scheme_topic"`
	QoS         byte   `json:"qos"`
}

// SetDefaults applies the standard topics.
func (c *Config) SetDefaults() {
	if c.ReportTopic == "" {
		c.ReportTopic = "dispatch/incident/report"
	}
	if c.SchemeTopic == "" {
		c.SchemeTopic = "dispatch/scheme/recommended"
	}
	if c.ClientID == "" {
		c.ClientID = "dispatchcore-" + uuid.NewString()[:8]
	}
}

// IncidentReport is the wire format of one upstream situational report.
type IncidentReport struct {
	Context   model.IncidentContext `json:"context"`
	Scenes    []model.Scene         `json:"scenes,omitempty"`
	Resources []model.Resource      `json:"resources"`
}

// Connector subscribes to incident reports and publishes decision outputs.
type Connector struct {
	cli paho.Client
	cfg Config
	log logger.Logger
}

// newPahoClient can be overridden in tests.
var newPahoClient = func(opts *paho.ClientOptions) paho.Client {
	return paho.NewClient(opts)
}

// NewConnector connects to the broker. The handler is invoked for every
// decodable incident report; decoding failures are logged and dropped.
func NewConnector(cfg Config, handler func(IncidentReport)) (*Connector, error) {
	cfg.SetDefaults()
	log := infralogger.New("mqtt-connector")

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second)
	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected, subscribing to %s", cfg.ReportTopic)
		token := c.Subscribe(cfg.ReportTopic, cfg.QoS, func(_ paho.Client, msg paho.Message) {
			var report IncidentReport
			if err := json.Unmarshal(msg.Payload(), &report); err != nil {
				log.Errorf("drop undecodable incident report: %v", err)
				return
			}
			handler(report)
		})
		if token.Wait() && token.Error() != nil {
			log.Errorf("subscribe error: %v", token.Error())
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}

	cli := newPahoClient(opts)
	if token := cli.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	return &Connector{cli: cli, cfg: cfg, log: log}, nil
}

// PublishScheme publishes the recommended scheme for a completed run.
func (c *Connector) PublishScheme(result *model.RunResult) error {
	if len(result.Schemes) == 0 {
		return nil
	}
	payload, err := json.Marshal(struct {
		CorrelationID string             `json:"correlationId"`
		Scheme        model.SchemeOutput `json:"scheme"`
		Errors        []string           `json:"errors,omitempty"`
	}{result.CorrelationID, result.Schemes[0], result.Errors})
	if err != nil {
		return err
	}
	token := c.cli.Publish(c.cfg.SchemeTopic, c.cfg.QoS, false, payload)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("publish scheme: %w", token.Error())
	}
	return nil
}

// Close disconnects from the broker.
func (c *Connector) Close() {
	c.cli.Disconnect(250)
}
