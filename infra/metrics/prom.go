package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	coremetrics "github.com/ebrunet/dispatchcore/core/metrics"
)

// PromSink records decision pipeline events in Prometheus metrics.
type PromSink struct {
	runs      *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	feasible  prometheus.Histogram
	stageTime *prometheus.HistogramVec
}

// NewPromSink registers decision metrics on the default Prometheus
// registerer. The metrics server is started separately with StartServer.
func NewPromSink(cfg coremetrics.Config) (*PromSink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(cfg coremetrics.Config, reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "decision_runs_total",
		Help: "Total number of decision pipeline runs",
	}, []string{"disaster_type", "degraded"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "decision_run_duration_seconds",
		Help:    "End-to-end duration of decision pipeline runs",
		Buckets: prometheus.DefBuckets,
	}, []string{"disaster_type"})
	feasible := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "decision_feasible_plans",
		Help:    "Feasible plan count per run",
		Buckets: []float64{0, 1, 2, 3, 5, 8},
	})
	stageTime := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "decision_stage_duration_seconds",
		Help:    "Duration of individual pipeline stages",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage", "degraded"})

	for _, c := range []prometheus.Collector{runs, duration, feasible, stageTime} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return nil, err
			}
		}
	}
	return &PromSink{runs: runs, duration: duration, feasible: feasible, stageTime: stageTime}, nil
}

// RecordRun implements coremetrics.DecisionSink.
func (s *PromSink) RecordRun(ev coremetrics.RunEvent) error {
	s.runs.WithLabelValues(ev.DisasterType, strconv.FormatBool(ev.Degraded)).Inc()
	s.duration.WithLabelValues(ev.DisasterType).Observe(ev.Duration.Seconds())
	s.feasible.Observe(float64(ev.FeasiblePlans))
	return nil
}

// RecordStage implements coremetrics.StageRecorder.
func (s *PromSink) RecordStage(ev coremetrics.StageEvent) error {
	s.stageTime.WithLabelValues(ev.Stage, strconv.FormatBool(ev.Degraded)).Observe(ev.Duration.Seconds())
	return nil
}

// StartServer serves the /metrics endpoint on the given port. It blocks
// until the server stops.
func StartServer(port string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv.ListenAndServe()
}
