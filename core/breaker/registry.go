package breaker

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds process-wide breakers keyed by dependency name. It is the
// only mutable state shared between concurrent pipeline runs; tests inject a
// fresh registry to isolate breaker state.
type Registry struct {
	mu       sync.Mutex
	breakers map[string]*Breaker
	cfg      Config
	gauge    *prometheus.GaugeVec
}

// NewRegistry creates a registry whose breakers use cfg. Metrics are
// registered on reg; a nil registerer skips metric registration.
func NewRegistry(cfg Config, reg prometheus.Registerer) *Registry {
	cfg.SetDefaults()
	r := &Registry{breakers: make(map[string]*Breaker), cfg: cfg}
	if reg != nil {
		gauge := prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "decision_breaker_state",
			Help: "Circuit breaker state per dependency (0 closed, 1 open, 2 half-open)",
		}, []string{"dependency"})
		if err := reg.Register(gauge); err != nil {
			if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
				gauge = are.ExistingCollector.(*prometheus.GaugeVec)
			} else {
				gauge = nil
			}
		}
		r.gauge = gauge
	}
	return r
}

// Get returns the breaker for the dependency, creating it on first use.
func (r *Registry) Get(name string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.breakers[name]
	if !ok {
		b = New(name, r.cfg)
		r.breakers[name] = b
	}
	return b
}

// States returns a snapshot of every known breaker state, refreshing the
// prometheus gauge as a side effect.
func (r *Registry) States() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]string, len(r.breakers))
	for name, b := range r.breakers {
		st := b.State()
		out[name] = st.String()
		if r.gauge != nil {
			r.gauge.WithLabelValues(name).Set(float64(st))
		}
	}
	return out
}
