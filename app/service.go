// Package app wires the decision pipeline to its configuration, connectors
// and observability sinks.
package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ebrunet/dispatchcore/config"
	"github.com/ebrunet/dispatchcore/core/breaker"
	"github.com/ebrunet/dispatchcore/core/logger"
	"github.com/ebrunet/dispatchcore/core/pipeline"
	"github.com/ebrunet/dispatchcore/core/rules"
	infralogger "github.com/ebrunet/dispatchcore/infra/logger"
	"github.com/ebrunet/dispatchcore/infra/metrics"
	"github.com/ebrunet/dispatchcore/infra/mqtt"
	"github.com/ebrunet/dispatchcore/internal/eventbus"
)

// Service orchestrates the pipeline and its connectors.
type Service struct {
	Pipeline  *pipeline.Pipeline
	Loader    *rules.Loader
	connector *mqtt.Connector
	bus       *eventbus.Bus
	log       logger.Logger
	cfg       *config.Config
}

// New builds a Service from the configuration. Rule sources are loaded
// eagerly so malformed rules fail here, before any run.
func New(cfg *config.Config) (*Service, error) {
	infralogger.SetLevel(cfg.Logging.Level)
	log := infralogger.New("service")

	loader := rules.NewLoader(infralogger.New("rule-loader"))
	triggers, hard, err := loader.Load(cfg.Rules.Path, true)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	if cfg.Rules.HardRulesPath != "" {
		_, extra, err := loader.Load(cfg.Rules.HardRulesPath, true)
		if err != nil {
			return nil, fmt.Errorf("load hard rules: %w", err)
		}
		hard = append(hard, extra...)
	}
	engine := rules.NewEngine(triggers, hard, infralogger.New("rule-engine"))

	sink, err := metrics.NewSink(cfg.Metrics)
	if err != nil {
		return nil, err
	}
	registry := breaker.NewRegistry(cfg.Pipeline.Breaker, prometheus.DefaultRegisterer)
	bus := eventbus.New()

	svc := &Service{
		Pipeline: pipeline.New(engine, registry, nil, nil, nil, sink, bus, log, cfg.Pipeline),
		Loader:   loader,
		bus:      bus,
		log:      log,
		cfg:      cfg,
	}

	if cfg.MQTT.Enabled {
		connector, err := mqtt.NewConnector(cfg.MQTT, svc.handleReport)
		if err != nil {
			return nil, fmt.Errorf("mqtt connector: %w", err)
		}
		svc.connector = connector
	}
	return svc, nil
}

// handleReport runs the pipeline for one incident report and publishes the
// recommended scheme.
func (s *Service) handleReport(report mqtt.IncidentReport) {
	result, err := s.Pipeline.Run(context.Background(), &report.Context, report.Scenes, report.Resources)
	if err != nil {
		s.log.Errorf("decision run failed: %v", err)
		return
	}
	if s.connector != nil {
		if err := s.connector.PublishScheme(result); err != nil {
			s.log.Errorf("publish scheme: %v", err)
		}
	}
}

// Run blocks until the context is cancelled, serving metrics if enabled.
func (s *Service) Run(ctx context.Context) error {
	if s.cfg.Metrics.PrometheusEnabled {
		go func() {
			if err := metrics.StartServer(s.cfg.Metrics.PrometheusPort); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	<-ctx.Done()
	return nil
}

// Close releases connectors and the event bus.
func (s *Service) Close() error {
	if s.connector != nil {
		s.connector.Close()
	}
	s.bus.Close()
	return nil
}
