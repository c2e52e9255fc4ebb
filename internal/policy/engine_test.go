package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/E4Saber/stock-analyzer-sub000/internal/composite"
	"github.com/E4Saber/stock-analyzer-sub000/internal/indicator"
	"github.com/E4Saber/stock-analyzer-sub000/internal/lifecycle"
	"github.com/E4Saber/stock-analyzer-sub000/internal/reliability"
)

var planDate = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

func newEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(nil)
	require.NoError(t, err)
	return e
}

func verdictFor(tier composite.Tier, passes bool) reliability.Verdict {
	return reliability.Verdict{
		Symbol:       "600000.SH",
		Date:         planDate,
		FinalTier:    tier,
		FinalTierTag: tier.String(),
		Passes:       passes,
	}
}

func stateIn(stage lifecycle.Stage) *lifecycle.State {
	return &lifecycle.State{ID: "600000.SH", Stage: stage, StageTag: stage.String()}
}

func TestEngine_RejectTierNotApplicable(t *testing.T) {
	e := newEngine(t)
	_, err := e.Plan(verdictFor(composite.TierReject, false), stateIn(lifecycle.Growth), Institutional)
	assert.ErrorIs(t, err, ErrNotApplicable)
}

func TestEngine_DeclineStageNeverBuilds(t *testing.T) {
	e := newEngine(t)

	// Even a high-confidence verdict cannot build into a declining campaign.
	plan, err := e.Plan(verdictFor(composite.TierHighConfidence, true), stateIn(lifecycle.Decline), Institutional)
	require.NoError(t, err)

	assert.False(t, plan.BuildAllowed)
	assert.Zero(t, plan.Entry.InitialFraction)
	assert.Zero(t, plan.Entry.IncrementFraction)
	assert.Zero(t, plan.Entry.MaxFraction)
	assert.Contains(t, plan.RationaleTags, "decline_stage_no_build")
	// The exit side of the policy survives: stops and ladders still apply.
	assert.Greater(t, plan.Entry.StopLossPct, 0.0)
	assert.NotEmpty(t, plan.Entry.TakeProfit)
}

func TestEngine_HotMoneyGetsTighterRisk(t *testing.T) {
	e := newEngine(t)

	inst, err := e.Plan(verdictFor(composite.TierActionable, true), stateIn(lifecycle.Growth), Institutional)
	require.NoError(t, err)
	hot, err := e.Plan(verdictFor(composite.TierActionable, true), stateIn(lifecycle.Growth), HotMoney)
	require.NoError(t, err)

	assert.Less(t, hot.Entry.StopLossPct, inst.Entry.StopLossPct)
	assert.Less(t, hot.Entry.MaxFraction, inst.Entry.MaxFraction)
	assert.Less(t, hot.Entry.TakeProfit[0].TriggerPct, inst.Entry.TakeProfit[0].TriggerPct)
}

func TestEngine_WildcardRowCoversWatchTier(t *testing.T) {
	e := newEngine(t)

	for _, mf := range []MainForceType{Institutional, HotMoney, Industrial} {
		plan, err := e.Plan(verdictFor(composite.TierWatch, true), stateIn(lifecycle.Embryonic), mf)
		require.NoError(t, err)
		assert.True(t, plan.BuildAllowed)
		assert.Equal(t, 0.02, plan.Entry.InitialFraction)
		assert.Equal(t, "watch", plan.Tier)
		assert.Equal(t, mf.String(), plan.MainForce)
	}
}

func TestEngine_SpecificRowBeatsWildcard(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Table["actionable|maturity|institutional"] = Entry{
		InitialFraction: 0.01, IncrementFraction: 0.01, MaxFraction: 0.03,
		StopLossPct: 3, TakeProfit: []TakeProfitRung{{TriggerPct: 5, ExitFraction: 1.0}},
	}
	e, err := NewEngine(cfg)
	require.NoError(t, err)

	plan, err := e.Plan(verdictFor(composite.TierActionable, true), stateIn(lifecycle.Maturity), Institutional)
	require.NoError(t, err)
	assert.Equal(t, 0.01, plan.Entry.InitialFraction)

	// The wildcard row still serves every other stage.
	plan, err = e.Plan(verdictFor(composite.TierActionable, true), stateIn(lifecycle.Growth), Institutional)
	require.NoError(t, err)
	assert.Equal(t, 0.05, plan.Entry.InitialFraction)
}

func TestEngine_DemotedVerdictTagged(t *testing.T) {
	e := newEngine(t)
	plan, err := e.Plan(verdictFor(composite.TierWatch, false), stateIn(lifecycle.Growth), Institutional)
	require.NoError(t, err)
	assert.Contains(t, plan.RationaleTags, "demoted_by_reliability_filter")
	assert.True(t, plan.BuildAllowed)
}

func TestEngine_NilStateDefaultsEmbryonic(t *testing.T) {
	e := newEngine(t)
	plan, err := e.Plan(verdictFor(composite.TierActionable, true), nil, Institutional)
	require.NoError(t, err)
	assert.Equal(t, "embryonic", plan.Stage)
}

func TestConfig_ValidateRejectsGaps(t *testing.T) {
	cfg := DefaultConfig()
	delete(cfg.Table, "actionable|*|hot_money")
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hot_money")
}

func TestConfig_ValidateRejectsBadEntries(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Table["watch|*|*"] = Entry{InitialFraction: 0.10, MaxFraction: 0.05, StopLossPct: 5}
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	entry := cfg.Table["watch|*|*"]
	entry.StopLossPct = 0
	cfg.Table["watch|*|*"] = entry
	assert.Error(t, cfg.Validate())
}

func TestInferMainForce(t *testing.T) {
	e := newEngine(t)

	churny := indicator.History{
		indicator.NewVector("600000.SH", planDate.AddDate(0, 0, -1), map[string]float64{"turnover_cadence": 0.18}),
		indicator.NewVector("600000.SH", planDate, map[string]float64{"turnover_cadence": 0.22}),
	}
	assert.Equal(t, HotMoney, e.InferMainForce(churny))

	patient := indicator.History{
		indicator.NewVector("600000.SH", planDate, map[string]float64{
			"turnover_cadence":  0.02,
			"accumulation_days": 150,
		}),
	}
	assert.Equal(t, Industrial, e.InferMainForce(patient))

	plain := indicator.History{
		indicator.NewVector("600000.SH", planDate, map[string]float64{
			"turnover_cadence":  0.08,
			"accumulation_days": 30,
		}),
	}
	assert.Equal(t, Institutional, e.InferMainForce(plain))

	assert.Equal(t, Institutional, e.InferMainForce(nil))
}

func TestParseMainForceType(t *testing.T) {
	for _, m := range []MainForceType{Institutional, HotMoney, Industrial} {
		got, err := ParseMainForceType(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	_, err := ParseMainForceType("retail")
	assert.Error(t, err)
}
