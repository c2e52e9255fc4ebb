package weights

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/E4Saber/stock-analyzer-sub000/internal/regime"
	"github.com/E4Saber/stock-analyzer-sub000/internal/scorer"
)

func evenWeights() map[string]float64 {
	return map[string]float64{
		"fund_flow":      0.25,
		"chip_structure": 0.20,
		"technical":      0.15,
		"main_force":     0.20,
		"market_env":     0.10,
		"risk":           0.10,
	}
}

func TestResolver_FallbackChain(t *testing.T) {
	cfg := &Config{
		Default: evenWeights(),
		Profiles: []ProfileSpec{
			{Regime: "bull", Category: "small", Industry: "semis", Weights: evenWeights()},
			{Regime: "bull", Category: "small", Industry: Wildcard, Weights: evenWeights()},
			{Regime: "bull", Category: Wildcard, Industry: Wildcard, Weights: evenWeights()},
		},
	}
	r, err := NewResolver(cfg)
	require.NoError(t, err)
	require.Equal(t, 3, r.Size())

	exact := r.Resolve(regime.Label{Regime: regime.Bull, Category: regime.SmallCap, Industry: "semis"})
	assert.Equal(t, "bull|small|semis", exact.Key.String())

	// Unknown industry falls back to the industry wildcard.
	noIndustry := r.Resolve(regime.Label{Regime: regime.Bull, Category: regime.SmallCap, Industry: "banking"})
	assert.Equal(t, "bull|small|*", noIndustry.Key.String())

	// Unknown category falls back to the regime-wide profile.
	noCategory := r.Resolve(regime.Label{Regime: regime.Bull, Category: regime.LargeCap, Industry: "banking"})
	assert.Equal(t, "bull|*|*", noCategory.Key.String())

	// No profile for the regime at all: global default.
	global := r.Resolve(regime.Label{Regime: regime.Bear, Category: regime.MidCap, Industry: "banking"})
	assert.Equal(t, r.Default(), global)
	assert.Equal(t, "*|*|*", global.Key.String())
}

func TestResolver_RejectsBadSum(t *testing.T) {
	w := evenWeights()
	w["risk"] = 0.25
	_, err := NewResolver(&Config{Default: w})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sum")

	// Profile sums are checked too, not only the default.
	_, err = NewResolver(&Config{
		Default: evenWeights(),
		Profiles: []ProfileSpec{
			{Regime: "bull", Category: Wildcard, Industry: Wildcard, Weights: w},
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bull|*|*")
}

func TestResolver_RejectsMissingDimension(t *testing.T) {
	w := evenWeights()
	delete(w, "risk")
	w["fund_flow"] = 0.35
	_, err := NewResolver(&Config{Default: w})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimensions")
}

func TestResolver_RejectsUnknownTags(t *testing.T) {
	w := evenWeights()
	delete(w, "risk")
	w["sentiment"] = 0.10
	_, err := NewResolver(&Config{Default: w})
	assert.Error(t, err)

	_, err = NewResolver(&Config{
		Default: evenWeights(),
		Profiles: []ProfileSpec{
			{Regime: "sideways", Category: Wildcard, Industry: Wildcard, Weights: evenWeights()},
		},
	})
	assert.Error(t, err)

	_, err = NewResolver(&Config{
		Default: evenWeights(),
		Profiles: []ProfileSpec{
			{Regime: "bull", Category: "micro", Industry: Wildcard, Weights: evenWeights()},
		},
	})
	assert.Error(t, err)
}

func TestResolver_RejectsDuplicateProfiles(t *testing.T) {
	_, err := NewResolver(&Config{
		Default: evenWeights(),
		Profiles: []ProfileSpec{
			{Regime: "bull", Category: Wildcard, Industry: Wildcard, Weights: evenWeights()},
			{Regime: "bull", Category: Wildcard, Industry: Wildcard, Weights: evenWeights()},
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestResolver_DefaultConfigLoads(t *testing.T) {
	r, err := NewResolver(nil)
	require.NoError(t, err)
	assert.Equal(t, 4, r.Size())

	p := r.Resolve(regime.Label{Regime: regime.Oscillating, Category: regime.SmallCap, Industry: "semis"})
	assert.Equal(t, "oscillating|small|*", p.Key.String())
	assert.InDelta(t, 0.30, p.Weights[scorer.MainForce], 1e-9)

	var sum float64
	for _, w := range p.Weights {
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}
