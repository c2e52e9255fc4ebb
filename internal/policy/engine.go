package policy

import (
	"errors"
	"fmt"

	"github.com/E4Saber/stock-analyzer-sub000/internal/composite"
	"github.com/E4Saber/stock-analyzer-sub000/internal/lifecycle"
	"github.com/E4Saber/stock-analyzer-sub000/internal/reliability"
)

// ErrNotApplicable is returned when a plan is requested for a reject-tier
// verdict. Callers are expected to filter rejects upstream; this is the
// explicit signal when they do not, never a silent zero plan.
var ErrNotApplicable = errors.New("position plan not applicable to reject tier")

// MainForceType categorizes the dominant capital behind an accumulation.
type MainForceType int

const (
	Institutional MainForceType = iota
	HotMoney
	Industrial
)

func (m MainForceType) String() string {
	switch m {
	case Institutional:
		return "institutional"
	case HotMoney:
		return "hot_money"
	case Industrial:
		return "industrial"
	default:
		return "unknown"
	}
}

// ParseMainForceType converts a main-force tag back to its enum value.
func ParseMainForceType(tag string) (MainForceType, error) {
	switch tag {
	case "institutional":
		return Institutional, nil
	case "hot_money":
		return HotMoney, nil
	case "industrial":
		return Industrial, nil
	}
	return 0, fmt.Errorf("unknown main-force type %q", tag)
}

// TakeProfitRung is one step of the take-profit ladder: exit ExitFraction
// of the position once gain reaches TriggerPct.
type TakeProfitRung struct {
	TriggerPct   float64 `json:"trigger_pct" yaml:"trigger_pct"`
	ExitFraction float64 `json:"exit_fraction" yaml:"exit_fraction"`
}

// Entry is one row of the position/stop policy table.
type Entry struct {
	// InitialFraction is the position opened when the signal first fires.
	InitialFraction float64 `json:"initial_fraction" yaml:"initial_fraction"`
	// IncrementFraction is added per confirming cycle up to MaxFraction.
	IncrementFraction float64 `json:"increment_fraction" yaml:"increment_fraction"`
	MaxFraction       float64 `json:"max_fraction" yaml:"max_fraction"`
	// StopLossPct is the dynamic stop band below cost, in percent.
	StopLossPct float64          `json:"stop_loss_pct" yaml:"stop_loss_pct"`
	TakeProfit  []TakeProfitRung `json:"take_profit" yaml:"take_profit"`
}

// Plan is the recomputed-per-cycle output record. A new plan supersedes the
// previous one; plans are never mutated in place.
type Plan struct {
	Symbol        string        `json:"symbol"`
	Tier          string        `json:"tier"`
	Stage         string        `json:"stage"`
	MainForce     string        `json:"main_force"`
	Entry         Entry         `json:"entry"`
	ForceType     MainForceType `json:"-"`
	BuildAllowed  bool          `json:"build_allowed"`
	RationaleTags []string      `json:"rationale,omitempty"`
}

// Config is the (tier × stage × main-force) policy table plus the
// main-force inference thresholds. All of it is data.
type Config struct {
	// Table maps "tier|stage|main_force" to a policy entry. The wildcard
	// "*" is permitted in the stage and main_force slots.
	Table map[string]Entry `yaml:"table"`

	// Main-force inference thresholds.
	HotMoneyMinCadence     float64 `yaml:"hot_money_min_cadence"`
	IndustrialMinBuildDays int     `yaml:"industrial_min_build_days"`
}

// DefaultConfig returns the shipped policy table. Hot-money campaigns get
// tighter stops than institutional ones; Decline-stage rows never build.
func DefaultConfig() *Config {
	ladder := []TakeProfitRung{
		{TriggerPct: 15, ExitFraction: 0.30},
		{TriggerPct: 30, ExitFraction: 0.30},
		{TriggerPct: 50, ExitFraction: 0.40},
	}
	tightLadder := []TakeProfitRung{
		{TriggerPct: 8, ExitFraction: 0.50},
		{TriggerPct: 15, ExitFraction: 0.50},
	}
	return &Config{
		HotMoneyMinCadence:     0.15,
		IndustrialMinBuildDays: 120,
		Table: map[string]Entry{
			"watch|*|*": {
				InitialFraction: 0.02, IncrementFraction: 0.01, MaxFraction: 0.05,
				StopLossPct: 5, TakeProfit: tightLadder,
			},
			"actionable|*|institutional": {
				InitialFraction: 0.05, IncrementFraction: 0.03, MaxFraction: 0.15,
				StopLossPct: 8, TakeProfit: ladder,
			},
			"actionable|*|hot_money": {
				InitialFraction: 0.03, IncrementFraction: 0.02, MaxFraction: 0.08,
				StopLossPct: 4, TakeProfit: tightLadder,
			},
			"actionable|*|industrial": {
				InitialFraction: 0.05, IncrementFraction: 0.03, MaxFraction: 0.20,
				StopLossPct: 10, TakeProfit: ladder,
			},
			"high_confidence|*|institutional": {
				InitialFraction: 0.08, IncrementFraction: 0.04, MaxFraction: 0.25,
				StopLossPct: 10, TakeProfit: ladder,
			},
			"high_confidence|*|hot_money": {
				InitialFraction: 0.05, IncrementFraction: 0.02, MaxFraction: 0.10,
				StopLossPct: 5, TakeProfit: tightLadder,
			},
			"high_confidence|*|industrial": {
				InitialFraction: 0.08, IncrementFraction: 0.05, MaxFraction: 0.30,
				StopLossPct: 12, TakeProfit: ladder,
			},
		},
	}
}

// Validate rejects malformed policy configuration at load time.
func (c *Config) Validate() error {
	if len(c.Table) == 0 {
		return errors.New("policy table is empty")
	}
	for key, entry := range c.Table {
		if entry.InitialFraction < 0 || entry.MaxFraction > 1 {
			return fmt.Errorf("policy %q: fractions must lie inside [0, 1]", key)
		}
		if entry.InitialFraction > entry.MaxFraction {
			return fmt.Errorf("policy %q: initial fraction %.3f exceeds max %.3f", key, entry.InitialFraction, entry.MaxFraction)
		}
		if entry.StopLossPct <= 0 {
			return fmt.Errorf("policy %q: stop_loss_pct %.2f must be positive", key, entry.StopLossPct)
		}
	}
	// Every non-reject tier must resolve for every stage and force type.
	for _, tier := range []composite.Tier{composite.TierWatch, composite.TierActionable, composite.TierHighConfidence} {
		for stage := lifecycle.Embryonic; stage <= lifecycle.Decline; stage++ {
			for _, mf := range []MainForceType{Institutional, HotMoney, Industrial} {
				if _, ok := c.lookup(tier, stage, mf); !ok {
					return fmt.Errorf("policy table has no entry for (%s, %s, %s)", tier, stage, mf)
				}
			}
		}
	}
	return nil
}

func (c *Config) lookup(tier composite.Tier, stage lifecycle.Stage, mf MainForceType) (Entry, bool) {
	keys := []string{
		tier.String() + "|" + stage.String() + "|" + mf.String(),
		tier.String() + "|" + stage.String() + "|*",
		tier.String() + "|*|" + mf.String(),
		tier.String() + "|*|*",
	}
	for _, key := range keys {
		if entry, ok := c.Table[key]; ok {
			return entry, true
		}
	}
	return Entry{}, false
}

// Engine maps (tier, stage, main-force type) to a position plan. It is
// pure and stateless: every cycle recomputes plans from scratch.
type Engine struct {
	config *Config
}

// NewEngine builds the policy engine; nil config selects defaults.
func NewEngine(config *Config) (*Engine, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("policy config: %w", err)
	}
	return &Engine{config: config}, nil
}

// Plan derives the position plan for a filtered signal. Reject-tier inputs
// return ErrNotApplicable. Decline-stage signals never receive a build
// recommendation regardless of score: fractions are zeroed and the plan is
// marked accordingly.
func (e *Engine) Plan(verdict reliability.Verdict, state *lifecycle.State, force MainForceType) (Plan, error) {
	if verdict.FinalTier == composite.TierReject {
		return Plan{}, ErrNotApplicable
	}
	stage := lifecycle.Embryonic
	if state != nil {
		stage = state.Stage
	}

	entry, ok := e.config.lookup(verdict.FinalTier, stage, force)
	if !ok {
		// Validate guarantees resolution; reaching here means the table
		// was mutated after load.
		return Plan{}, fmt.Errorf("no policy entry for (%s, %s, %s)", verdict.FinalTier, stage, force)
	}

	plan := Plan{
		Symbol:       verdict.Symbol,
		Tier:         verdict.FinalTier.String(),
		Stage:        stage.String(),
		MainForce:    force.String(),
		ForceType:    force,
		Entry:        entry,
		BuildAllowed: true,
	}
	if stage == lifecycle.Decline {
		plan.Entry.InitialFraction = 0
		plan.Entry.IncrementFraction = 0
		plan.Entry.MaxFraction = 0
		plan.BuildAllowed = false
		plan.RationaleTags = append(plan.RationaleTags, "decline_stage_no_build")
	}
	if !verdict.Passes {
		plan.RationaleTags = append(plan.RationaleTags, "demoted_by_reliability_filter")
	}
	return plan, nil
}
