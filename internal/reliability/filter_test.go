package reliability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/E4Saber/stock-analyzer-sub000/internal/composite"
	"github.com/E4Saber/stock-analyzer-sub000/internal/indicator"
	"github.com/E4Saber/stock-analyzer-sub000/internal/scorer"
)

var filterDate = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

func signalWith(score float64, values [scorer.NumDimensions]float64) composite.Signal {
	var scores [scorer.NumDimensions]scorer.DimensionScore
	for i, d := range scorer.AllDimensions {
		scores[i] = scorer.DimensionScore{
			Dimension: d,
			Tag:       d.String(),
			Symbol:    "600000.SH",
			Date:      filterDate,
			Value:     values[i],
		}
	}
	tier := composite.DefaultThresholds().TierFor(score)
	return composite.Signal{
		Symbol:  "600000.SH",
		Date:    filterDate,
		Score:   score,
		Tier:    tier,
		TierTag: tier.String(),
		Scores:  scores,
	}
}

func historyOfInflows(inflows ...float64) indicator.History {
	h := make(indicator.History, 0, len(inflows))
	for i, v := range inflows {
		h = append(h, indicator.NewVector("600000.SH", filterDate.AddDate(0, 0, i-len(inflows)), map[string]float64{
			"net_inflow_ratio": v,
		}))
	}
	return h
}

func newFilter(t *testing.T) *Filter {
	t.Helper()
	f, err := NewFilter(nil, composite.DefaultThresholds())
	require.NoError(t, err)
	return f
}

func TestFilter_CleanSignalPasses(t *testing.T) {
	f := newFilter(t)

	// Tightly clustered dimension scores and a steady inflow history.
	sig := signalWith(84.67, [scorer.NumDimensions]float64{85, 78, 88, 92, 75, 90})
	verdict := f.Check(sig, historyOfInflows(0.10, 0.12, 0.15, 0.11))

	assert.True(t, verdict.Passes)
	assert.Empty(t, verdict.Flags)
	assert.Equal(t, sig.Score, verdict.DiscountedScore)
	assert.Equal(t, composite.TierActionable, verdict.FinalTier)
	assert.Equal(t, "actionable", verdict.FinalTierTag)
}

func TestFilter_FastInFastOutDemotesOneTier(t *testing.T) {
	f := newFilter(t)

	// Strong inflow followed by outflow inside the window.
	sig := signalWith(84.67, [scorer.NumDimensions]float64{85, 78, 88, 92, 75, 90})
	verdict := f.Check(sig, historyOfInflows(0.10, 0.25, -0.08, -0.02))

	require.Equal(t, []Flag{FlagFastInFastOut}, verdict.Flags)
	assert.InDelta(t, 84.67*0.60, verdict.DiscountedScore, 1e-9)
	assert.False(t, verdict.Passes)
	// Demoted exactly one tier, never dropped outright.
	assert.Equal(t, composite.TierWatch, verdict.FinalTier)
	assert.Equal(t, "actionable", verdict.OriginalTierTag)
}

func TestFilter_FastInFastOutNeedsReversalAfterStrength(t *testing.T) {
	f := newFilter(t)
	sig := signalWith(80, [scorer.NumDimensions]float64{80, 80, 80, 80, 80, 80})

	// Strong inflow with no subsequent outflow: no flag.
	verdict := f.Check(sig, historyOfInflows(0.25, 0.18, 0.12))
	assert.Empty(t, verdict.Flags)

	// Outflow before the strong reading does not count.
	verdict = f.Check(sig, historyOfInflows(-0.10, 0.05, 0.25))
	assert.Empty(t, verdict.Flags)

	// Reversal outside the trailing window is forgiven.
	verdict = f.Check(sig, historyOfInflows(0.30, -0.10, 0.05, 0.08, 0.10, 0.12))
	assert.Empty(t, verdict.Flags)
}

func TestFilter_DivergenceGrowsWithDispersion(t *testing.T) {
	f := newFilter(t)

	// Four strong and two collapsed dimensions: stddev/mean ~0.60.
	sig := signalWith(66.67, [scorer.NumDimensions]float64{95, 95, 95, 10, 10, 95})
	verdict := f.Check(sig, historyOfInflows(0.05, 0.05))

	require.Equal(t, []Flag{FlagDivergence}, verdict.Flags)
	assert.Less(t, verdict.DiscountedScore, sig.Score)
	assert.Greater(t, verdict.DiscountedScore, sig.Score*0.70)
	assert.True(t, verdict.Passes)
	assert.Equal(t, composite.TierWatch, verdict.FinalTier)
}

func TestFilter_DivergenceFloorBoundsDiscount(t *testing.T) {
	f := newFilter(t)

	sig := signalWith(50, [scorer.NumDimensions]float64{100, 100, 100, 0, 0, 0})
	verdict := f.Check(sig, historyOfInflows(0.05, 0.05))

	require.Equal(t, []Flag{FlagDivergence}, verdict.Flags)
	assert.InDelta(t, 50*0.70, verdict.DiscountedScore, 1e-9)
	assert.False(t, verdict.Passes)
	assert.Equal(t, composite.TierReject, verdict.FinalTier)
}

func TestFilter_WashPattern(t *testing.T) {
	f := newFilter(t)
	sig := signalWith(80, [scorer.NumDimensions]float64{80, 80, 80, 80, 80, 80})

	wash := indicator.History{indicator.NewVector("600000.SH", filterDate, map[string]float64{
		"large_order_gross_ratio": 0.60,
		"large_order_net_ratio":   0.05,
	})}
	verdict := f.Check(sig, wash)
	require.Equal(t, []Flag{FlagWashPattern}, verdict.Flags)
	assert.InDelta(t, 80*0.70, verdict.DiscountedScore, 1e-9)

	// Directional large-order flow is legitimate accumulation.
	directional := indicator.History{indicator.NewVector("600000.SH", filterDate, map[string]float64{
		"large_order_gross_ratio": 0.60,
		"large_order_net_ratio":   0.40,
	})}
	assert.Empty(t, f.Check(sig, directional).Flags)

	// Light gross volume never triggers, whatever the ratio.
	light := indicator.History{indicator.NewVector("600000.SH", filterDate, map[string]float64{
		"large_order_gross_ratio": 0.10,
		"large_order_net_ratio":   0.00,
	})}
	assert.Empty(t, f.Check(sig, light).Flags)
}

func TestFilter_DiscountsCompoundMultiplicatively(t *testing.T) {
	f := newFilter(t)

	sig := signalWith(92, [scorer.NumDimensions]float64{92, 92, 92, 92, 92, 92})
	history := indicator.History{
		indicator.NewVector("600000.SH", filterDate.AddDate(0, 0, -1), map[string]float64{
			"net_inflow_ratio": 0.30,
		}),
		indicator.NewVector("600000.SH", filterDate, map[string]float64{
			"net_inflow_ratio":        -0.05,
			"large_order_gross_ratio": 0.70,
			"large_order_net_ratio":   0.02,
		}),
	}

	verdict := f.Check(sig, history)
	require.ElementsMatch(t, []Flag{FlagFastInFastOut, FlagWashPattern}, verdict.Flags)
	assert.InDelta(t, 92*0.60*0.70, verdict.DiscountedScore, 1e-9)
	assert.False(t, verdict.Passes)
	assert.Equal(t, composite.TierActionable, verdict.FinalTier)
}

func TestFilter_EmptyHistoryIsNeutral(t *testing.T) {
	f := newFilter(t)
	sig := signalWith(80, [scorer.NumDimensions]float64{80, 80, 80, 80, 80, 80})
	verdict := f.Check(sig, nil)
	assert.True(t, verdict.Passes)
	assert.Empty(t, verdict.Flags)
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	bad := DefaultConfig()
	bad.FastInFastOutDiscount = 1.5
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.FastInFastOutWindow = 0
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.WashNetGrossMax = 1.2
	assert.Error(t, bad.Validate())
}
