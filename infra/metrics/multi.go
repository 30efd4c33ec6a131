package metrics

import coremetrics "github.com/ebrunet/dispatchcore/core/metrics"

// MultiSink fans decision events out to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.DecisionSink
}

// NewMultiSink creates a MultiSink over the provided sinks.
func NewMultiSink(sinks ...coremetrics.DecisionSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordRun forwards the event to all sinks, returning the first error.
func (m *MultiSink) RecordRun(ev coremetrics.RunEvent) error {
	var first error
	for _, s := range m.Sinks {
		if err := s.RecordRun(ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// RecordStage forwards stage events to sinks that record them.
func (m *MultiSink) RecordStage(ev coremetrics.StageEvent) error {
	var first error
	for _, s := range m.Sinks {
		if rec, ok := s.(coremetrics.StageRecorder); ok {
			if err := rec.RecordStage(ev); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}
