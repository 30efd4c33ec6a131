package metrics

import (
	"fmt"

	coremetrics "github.com/ebrunet/dispatchcore/core/metrics"
)

// NewSink builds the configured sink set: prometheus, influx, both behind a
// MultiSink, or a NopSink when nothing is enabled.
func NewSink(cfg coremetrics.Config) (coremetrics.DecisionSink, error) {
	var sinks []coremetrics.DecisionSink
	if cfg.PrometheusEnabled {
		sink, err := NewPromSink(cfg)
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.InfluxEnabled {
		sinks = append(sinks, NewInfluxSinkWithFallback(cfg))
	}
	switch len(sinks) {
	case 0:
		return coremetrics.NopSink{}, nil
	case 1:
		return sinks[0], nil
	default:
		return NewMultiSink(sinks...), nil
	}
}
