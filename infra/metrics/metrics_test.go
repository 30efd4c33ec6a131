package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/ebrunet/dispatchcore/core/metrics"
)

type stubSink struct {
	runs   int
	stages int
	err    error
}

func (s *stubSink) RecordRun(coremetrics.RunEvent) error { s.runs++; return s.err }

type stubStageSink struct {
	stubSink
}

func (s *stubStageSink) RecordStage(coremetrics.StageEvent) error { s.stages++; return s.err }

func TestMultiSink_FanOut(t *testing.T) {
	a := &stubSink{}
	b := &stubStageSink{}
	m := NewMultiSink(a, b)

	require.NoError(t, m.RecordRun(coremetrics.RunEvent{}))
	assert.Equal(t, 1, a.runs)
	assert.Equal(t, 1, b.runs)

	// Only stage-aware sinks receive stage events.
	require.NoError(t, m.RecordStage(coremetrics.StageEvent{}))
	assert.Equal(t, 0, a.stages)
	assert.Equal(t, 1, b.stages)
}

func TestMultiSink_FirstErrorWins(t *testing.T) {
	errA := errors.New("a failed")
	errB := errors.New("b failed")
	m := NewMultiSink(&stubSink{err: errA}, &stubSink{err: errB})
	assert.ErrorIs(t, m.RecordRun(coremetrics.RunEvent{}), errA)
}

func TestMultiSink_KeepsForwardingAfterError(t *testing.T) {
	failing := &stubSink{err: errors.New("down")}
	healthy := &stubSink{}
	m := NewMultiSink(failing, healthy)

	require.Error(t, m.RecordRun(coremetrics.RunEvent{}))
	assert.Equal(t, 1, healthy.runs)
}

func TestNewSink_NothingEnabled(t *testing.T) {
	sink, err := NewSink(coremetrics.Config{})
	require.NoError(t, err)
	assert.IsType(t, coremetrics.NopSink{}, sink)
}

func TestNewSink_PrometheusOnly(t *testing.T) {
	sink, err := NewSink(coremetrics.Config{PrometheusEnabled: true})
	require.NoError(t, err)
	assert.IsType(t, &PromSink{}, sink)
}

func TestPromSink_RecordsWithoutError(t *testing.T) {
	sink, err := NewPromSinkWithRegistry(coremetrics.Config{PrometheusEnabled: true}, prometheus.NewRegistry())
	require.NoError(t, err)
	assert.NoError(t, sink.RecordRun(coremetrics.RunEvent{
		DisasterType:  "earthquake",
		FeasiblePlans: 2,
	}))
	assert.NoError(t, sink.RecordStage(coremetrics.StageEvent{Stage: "rule_evaluation"}))
}
