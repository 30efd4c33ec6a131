package breaker

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_GetIsStable(t *testing.T) {
	r := NewRegistry(Config{}, nil)
	a := r.Get("scorer")
	b := r.Get("scorer")
	assert.Same(t, a, b)
	assert.NotSame(t, a, r.Get("optimizer"))
}

func TestRegistry_StatesSnapshot(t *testing.T) {
	r := NewRegistry(Config{FailureThreshold: 1}, prometheus.NewRegistry())
	r.Get("scorer")
	opt := r.Get("optimizer")
	require.Error(t, opt.Execute(context.Background(), failing))

	states := r.States()
	assert.Equal(t, map[string]string{
		"scorer":    "closed",
		"optimizer": "open",
	}, states)
}
