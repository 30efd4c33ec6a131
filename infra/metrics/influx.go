package metrics

import (
	"context"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/ebrunet/dispatchcore/core/logger"
	coremetrics "github.com/ebrunet/dispatchcore/core/metrics"
	infralogger "github.com/ebrunet/dispatchcore/infra/logger"
)

// InfluxSink writes decision run events to an InfluxDB v2 instance.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a sink for the given InfluxDB endpoint.
func NewInfluxSink(cfg coremetrics.Config) *InfluxSink {
	base := strings.TrimSuffix(cfg.InfluxURL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.InfluxToken,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.InfluxOrg, cfg.InfluxBucket),
		log:      infralogger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a
// NopSink when the health check fails, so a broken metrics backend never
// blocks decision runs.
func NewInfluxSinkWithFallback(cfg coremetrics.Config) coremetrics.DecisionSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordRun implements coremetrics.DecisionSink using line protocol points.
func (s *InfluxSink) RecordRun(ev coremetrics.RunEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	point := influxdb2.NewPoint("decision_run",
		map[string]string{
			"disaster_type": ev.DisasterType,
			"degraded":      boolTag(ev.Degraded),
		},
		map[string]any{
			"correlation_id": ev.CorrelationID,
			"matched_rules":  ev.MatchedRules,
			"requirements":   ev.Requirements,
			"feasible_plans": ev.FeasiblePlans,
			"rejected_plans": ev.RejectedPlans,
			"errors":         ev.Errors,
			"duration_ms":    ev.Duration.Milliseconds(),
		},
		ev.Time,
	)
	return s.writeAPI.WritePoint(ctx, point)
}

// Close releases the underlying client.
func (s *InfluxSink) Close() {
	s.client.Close()
}

func boolTag(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
