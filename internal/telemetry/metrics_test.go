package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_PrivateRegistry(t *testing.T) {
	// Two instances must never collide on registration.
	a := New()
	b := New()
	require.NotSame(t, a.Registry, b.Registry)

	a.SymbolsScored.Add(3)
	a.StageTransits.WithLabelValues("embryonic", "growth").Inc()
	a.TierDistribution.WithLabelValues("actionable").Inc()

	assert.Equal(t, 3.0, testutil.ToFloat64(a.SymbolsScored))
	assert.Equal(t, 1.0, testutil.ToFloat64(a.StageTransits.WithLabelValues("embryonic", "growth")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.SymbolsScored))

	families, err := a.Registry.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "ambush_symbols_scored_total")
	assert.Contains(t, names, "ambush_cycle_duration_seconds")
}
