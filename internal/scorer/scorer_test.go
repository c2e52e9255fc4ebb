package scorer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/E4Saber/stock-analyzer-sub000/internal/indicator"
)

var scoreDate = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

func fullFundFlowVector() indicator.Vector {
	return indicator.NewVector("600000.SH", scoreDate, map[string]float64{
		"net_inflow_ratio":      0.40,
		"inflow_day_ratio":      0.80,
		"large_order_net_ratio": 0.30,
		"inflow_acceleration":   0.10,
	})
}

func TestScorer_ValueAlwaysBounded(t *testing.T) {
	sc, err := New(FundFlow, defaultFundFlowTable(), 0.3, 50)
	require.NoError(t, err)

	vectors := []map[string]float64{
		{"net_inflow_ratio": 99, "inflow_day_ratio": 99, "large_order_net_ratio": 99, "inflow_acceleration": 99},
		{"net_inflow_ratio": -99, "inflow_day_ratio": -99, "large_order_net_ratio": -99, "inflow_acceleration": -99},
		{"net_inflow_ratio": 0},
		{},
	}
	for _, values := range vectors {
		got := sc.Score(indicator.NewVector("600000.SH", scoreDate, values))
		assert.GreaterOrEqual(t, got.Value, 0.0)
		assert.LessOrEqual(t, got.Value, 100.0)
	}
}

func TestScorer_MissingIndicatorRenormalizes(t *testing.T) {
	sc, err := New(FundFlow, defaultFundFlowTable(), 0.3, 50)
	require.NoError(t, err)

	full := sc.Score(fullFundFlowVector())
	assert.InDelta(t, 1.0, full.Coverage, 1e-9)
	assert.False(t, full.Capped)
	assert.Len(t, full.Contributions, 4)

	partial := fullFundFlowVector()
	delete(partial.Values, "inflow_acceleration")
	got := sc.Score(partial)

	// Remaining weights 0.30+0.25+0.25 = 0.80: renormalized over present mass.
	assert.InDelta(t, 0.80, got.Coverage, 1e-9)
	assert.Len(t, got.Contributions, 3)

	var weighted float64
	for _, c := range got.Contributions {
		weighted += c.Weight * c.Normalized
	}
	assert.InDelta(t, weighted/0.80, got.Value, 1e-9)
}

func TestScorer_LowCoverageCapsScore(t *testing.T) {
	sc, err := New(FundFlow, defaultFundFlowTable(), 0.3, 50)
	require.NoError(t, err)

	// Only inflow_acceleration (weight 0.20) present, and at a strongly
	// positive value that would normalize well above 50 on its own.
	v := indicator.NewVector("600000.SH", scoreDate, map[string]float64{
		"inflow_acceleration": 0.9,
	})
	got := sc.Score(v)
	assert.InDelta(t, 0.20, got.Coverage, 1e-9)
	assert.True(t, got.Capped)
	assert.Equal(t, 50.0, got.Value)

	// A sparse but weak reading is left alone; the cap is a ceiling, not a floor.
	weak := sc.Score(indicator.NewVector("600000.SH", scoreDate, map[string]float64{
		"inflow_acceleration": -0.9,
	}))
	assert.False(t, weak.Capped)
	assert.Less(t, weak.Value, 50.0)
}

func TestScorer_EmptyVectorYieldsZeroCoverage(t *testing.T) {
	sc, err := New(FundFlow, defaultFundFlowTable(), 0.3, 50)
	require.NoError(t, err)

	got := sc.Score(indicator.NewVector("600000.SH", scoreDate, nil))
	assert.Zero(t, got.Coverage)
	assert.Zero(t, got.Value)
	assert.False(t, got.Capped)
	assert.Empty(t, got.Contributions)
}

func TestScorer_DeterministicAcrossCalls(t *testing.T) {
	sc, err := New(FundFlow, defaultFundFlowTable(), 0.3, 50)
	require.NoError(t, err)

	first := sc.Score(fullFundFlowVector())
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, sc.Score(fullFundFlowVector()))
	}
}

func TestNormRule_Linear(t *testing.T) {
	rule := NormRule{Kind: NormLinear, Min: -1, Max: 1}
	assert.InDelta(t, 50.0, rule.Apply(0), 1e-9)
	assert.InDelta(t, 100.0, rule.Apply(1), 1e-9)
	assert.InDelta(t, 0.0, rule.Apply(-1), 1e-9)
	// Out-of-range raw values clip instead of extrapolating.
	assert.InDelta(t, 100.0, rule.Apply(5), 1e-9)
	assert.InDelta(t, 0.0, rule.Apply(-5), 1e-9)
}

func TestNormRule_Kink(t *testing.T) {
	rule := NormRule{Kind: NormKink, Min: 0, Max: 1, Threshold: 0.75, AtKink: 40}

	assert.InDelta(t, 40.0, rule.Apply(0.75), 1e-9)
	assert.InDelta(t, 20.0, rule.Apply(0.375), 1e-9)
	assert.InDelta(t, 70.0, rule.Apply(0.875), 1e-9)
	assert.InDelta(t, 100.0, rule.Apply(1.0), 1e-9)

	// Continuity at the kink: the two segments meet.
	below := rule.Apply(0.75 - 1e-9)
	above := rule.Apply(0.75 + 1e-9)
	assert.InDelta(t, below, above, 1e-5)
}

func TestNormRule_Invert(t *testing.T) {
	rule := NormRule{Kind: NormLinear, Min: 0, Max: 1, Invert: true}
	assert.InDelta(t, 100.0, rule.Apply(0), 1e-9)
	assert.InDelta(t, 0.0, rule.Apply(1), 1e-9)
	assert.InDelta(t, 0.0, rule.Apply(3), 1e-9)
}

func TestConfig_DefaultValidates(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	bank, err := NewBank(cfg)
	require.NoError(t, err)
	scores := bank.ScoreAll(fullFundFlowVector())
	require.Len(t, scores, NumDimensions)
	for i, d := range AllDimensions {
		assert.Equal(t, d, scores[i].Dimension)
		assert.Equal(t, d.String(), scores[i].Tag)
	}
}

func TestConfig_RejectsBadWeightSum(t *testing.T) {
	cfg := DefaultConfig()
	table := cfg.Dimensions[FundFlow.String()]
	table[0].Weight = 0.50
	cfg.Dimensions[FundFlow.String()] = table

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "micro-weights sum")
}

func TestConfig_RejectsDuplicateSubIndicator(t *testing.T) {
	subs := []SubIndicator{
		{Name: "a", Weight: 0.5, Norm: NormRule{Kind: NormLinear, Min: 0, Max: 1}},
		{Name: "a", Weight: 0.5, Norm: NormRule{Kind: NormLinear, Min: 0, Max: 1}},
	}
	_, err := New(FundFlow, subs, 0.3, 50)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestConfig_RejectsBadKink(t *testing.T) {
	subs := []SubIndicator{
		{Name: "a", Weight: 1.0, Norm: NormRule{Kind: NormKink, Min: 0, Max: 1, Threshold: 1.5, AtKink: 40}},
	}
	_, err := New(FundFlow, subs, 0.3, 50)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kink threshold")
}

func TestParseDimension(t *testing.T) {
	for _, d := range AllDimensions {
		got, err := ParseDimension(d.String())
		require.NoError(t, err)
		assert.Equal(t, d, got)
	}
	_, err := ParseDimension("sentiment")
	assert.Error(t, err)
}
