// Package metrics defines the observability contract of the decision core.
// Sinks record pipeline outcomes; they never influence them.
package metrics

import "time"

// RunEvent summarizes one completed pipeline run.
type RunEvent struct {
	CorrelationID string
	DisasterType  string
	MatchedRules  int
	Requirements  int
	FeasiblePlans int
	RejectedPlans int
	Degraded      bool
	Errors        int
	Duration      time.Duration
	Time          time.Time
}

// StageEvent records one pipeline stage execution.
type StageEvent struct {
	CorrelationID string
	Stage         string
	Duration      time.Duration
	Degraded      bool
	Time          time.Time
}

// DecisionSink records pipeline run summaries.
type DecisionSink interface {
	RecordRun(ev RunEvent) error
}

// StageRecorder records per-stage events. Sinks implement it on top of
// DecisionSink when they can use the finer granularity.
type StageRecorder interface {
	RecordStage(ev StageEvent) error
}

// NopSink discards every event.
type NopSink struct{}

func (NopSink) RecordRun(RunEvent) error { return nil }

// Config selects and parameterizes the metrics sinks.
type Config struct {
	PrometheusEnabled bool   `json:"prometheus_enabled"`
	PrometheusPort    string `json:"prometheus_port"`
	InfluxEnabled     bool   `json:"influx_enabled"`
	InfluxURL         string `json:"influx_url"`
	InfluxToken       string `json:"influx_token"`
	InfluxOrg         string `json:"influx_org"`
	InfluxBucket      string `json:"influx_bucket"`
}
