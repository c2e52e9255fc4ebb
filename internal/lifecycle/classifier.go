package lifecycle

import (
	"fmt"
	"time"
)

// Features are the trailing-window aggregates driving stage rules. For a
// theme they are computed across member signals; for a single accumulation
// campaign across that symbol's own score history.
type Features struct {
	// MeanComposite is the mean composite score over the rule window.
	MeanComposite float64 `json:"mean_composite"`
	// RisingCycles counts consecutive cycles of rising composite scores.
	RisingCycles int `json:"rising_cycles"`
	// Breadth is the co-moving member count (1 for a single campaign).
	Breadth int `json:"breadth"`
	// BreadthChange is the member-count delta vs the prior cycle.
	BreadthChange int `json:"breadth_change"`
	// NetFlowScore is the mean fund-flow dimension score, a proxy for
	// capital inflow vs outflow dominance.
	NetFlowScore float64 `json:"net_flow_score"`
	// Observed is false when no feature signal exists this cycle; the
	// classifier then never emits a transition.
	Observed bool `json:"observed"`
}

// Config holds the stage-rule thresholds, the vote blend, and the
// remaining-duration analogs. Tunable without redeploy.
type Config struct {
	// Growth entry: sustained high composites with expanding breadth.
	GrowthMinComposite    float64 `yaml:"growth_min_composite"`
	GrowthMinRisingCycles int     `yaml:"growth_min_rising_cycles"`

	// Maturity entry: scores still elevated but no longer advancing.
	MaturityMinComposite float64 `yaml:"maturity_min_composite"`

	// Decline entry: outflow dominance with contracting breadth.
	DeclineMaxNetFlow float64 `yaml:"decline_max_net_flow"`

	// RuleWeight blends the live rule vote against the empirical prior;
	// the prior receives 1 - RuleWeight.
	RuleWeight float64 `yaml:"rule_weight"`

	// HistoryLimit bounds the audit trail kept on each state.
	HistoryLimit int `yaml:"history_limit"`

	Matrix TransitionMatrix `yaml:"transition_matrix"`

	// Durations holds remaining-duration analogs per stage, in cycles.
	Durations map[string]Duration `yaml:"durations"`
}

// Duration is the historical remaining-duration distribution for a stage.
type Duration struct {
	MeanCycles float64 `yaml:"mean_cycles"`
	VarCycles  float64 `yaml:"var_cycles"`
}

// DefaultConfig returns the shipped lifecycle calibration.
func DefaultConfig() *Config {
	return &Config{
		GrowthMinComposite:    70,
		GrowthMinRisingCycles: 3,
		MaturityMinComposite:  65,
		DeclineMaxNetFlow:     40,
		RuleWeight:            0.6,
		HistoryLimit:          32,
		Matrix:                DefaultTransitionMatrix(),
		Durations: map[string]Duration{
			Embryonic.String(): {MeanCycles: 12, VarCycles: 36},
			Growth.String():    {MeanCycles: 8, VarCycles: 16},
			Maturity.String():  {MeanCycles: 5, VarCycles: 9},
			Decline.String():   {MeanCycles: 10, VarCycles: 25},
		},
	}
}

// Validate rejects malformed lifecycle configuration at load time.
func (c *Config) Validate() error {
	if c.RuleWeight <= 0 || c.RuleWeight >= 1 {
		return fmt.Errorf("rule_weight %.4f must lie inside (0, 1)", c.RuleWeight)
	}
	if c.GrowthMinRisingCycles < 1 {
		return fmt.Errorf("growth_min_rising_cycles %d must be at least 1", c.GrowthMinRisingCycles)
	}
	if c.HistoryLimit < 1 {
		return fmt.Errorf("history_limit %d must be at least 1", c.HistoryLimit)
	}
	if err := c.Matrix.Validate(); err != nil {
		return err
	}
	for _, stage := range []Stage{Embryonic, Growth, Maturity, Decline} {
		if _, ok := c.Durations[stage.String()]; !ok {
			return fmt.Errorf("missing duration analog for stage %s", stage)
		}
	}
	return nil
}

// Transition is one append-only audit entry on a lifecycle state.
type Transition struct {
	Date    time.Time `json:"date"`
	From    Stage     `json:"-"`
	FromTag string    `json:"from"`
	To      Stage     `json:"-"`
	ToTag   string    `json:"to"`
	Clamped bool      `json:"clamped,omitempty"`
}

// State tracks one theme's (or one campaign's) stage. Only the classifier
// mutates it; the transition history is append-only. A theme entering a new
// campaign after Decline gets a fresh State, never a reset of this one.
type State struct {
	ID            string       `json:"id"`
	Stage         Stage        `json:"-"`
	StageTag      string       `json:"stage"`
	EnteredAt     time.Time    `json:"entered_at"`
	RemainingMean float64      `json:"remaining_mean_cycles"`
	RemainingVar  float64      `json:"remaining_var_cycles"`
	ClampWarning  bool         `json:"clamp_warning,omitempty"`
	Transitions   []Transition `json:"transitions"`
}

// Snapshot returns an independent copy of the state. Published records must
// not alias the live state: the classifier keeps mutating it on the next
// cycle while readers may still be encoding the snapshot.
func (s *State) Snapshot() *State {
	if s == nil {
		return nil
	}
	copied := *s
	copied.Transitions = append([]Transition(nil), s.Transitions...)
	return &copied
}

// Classifier advances lifecycle states one cycle at a time, blending the
// live feature rule with the empirical transition prior. Ties keep the
// current stage: premature stage flips are the failure mode this guards
// against.
type Classifier struct {
	config *Config
}

// NewClassifier builds a classifier; nil config selects defaults.
func NewClassifier(config *Config) (*Classifier, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("lifecycle config: %w", err)
	}
	return &Classifier{config: config}, nil
}

// NewState opens a fresh lifecycle state in Embryonic on first observation.
func (c *Classifier) NewState(id string, firstSeen time.Time) *State {
	d := c.config.Durations[Embryonic.String()]
	return &State{
		ID:            id,
		Stage:         Embryonic,
		StageTag:      Embryonic.String(),
		EnteredAt:     firstSeen,
		RemainingMean: d.MeanCycles,
		RemainingVar:  d.VarCycles,
	}
}

// ruleVote proposes a stage from the feature thresholds alone. No feature
// signal means no proposal.
func (c *Classifier) ruleVote(current Stage, f Features) (Stage, bool) {
	if !f.Observed {
		return current, false
	}
	cfg := c.config
	switch {
	case f.NetFlowScore < cfg.DeclineMaxNetFlow && f.BreadthChange < 0:
		return Decline, true
	case f.MeanComposite >= cfg.GrowthMinComposite &&
		f.RisingCycles >= cfg.GrowthMinRisingCycles &&
		f.BreadthChange > 0:
		return Growth, true
	case f.MeanComposite >= cfg.MaturityMinComposite &&
		f.RisingCycles == 0 && f.BreadthChange <= 0:
		return Maturity, true
	default:
		return current, false
	}
}

// Advance runs one classification cycle against the state. The rule vote
// and the empirical prior are combined as a soft vote; a transition only
// happens when a different stage strictly outscores staying put, and a
// proposed jump is clamped to one adjacent step with a warning.
func (c *Classifier) Advance(state *State, date time.Time, f Features) {
	proposed, hasSignal := c.ruleVote(state.Stage, f)
	if !hasSignal {
		// No feature signal, no transition.
		return
	}

	current := state.Stage
	stayScore := c.config.RuleWeight*boolScore(proposed == current) +
		(1-c.config.RuleWeight)*c.config.Matrix.Prior(current, current)
	moveScore := c.config.RuleWeight*boolScore(proposed != current) +
		(1-c.config.RuleWeight)*c.config.Matrix.Prior(current, proposed)

	if proposed == current || moveScore <= stayScore {
		return
	}

	next, clamped := adjacentStep(current, proposed)
	if next == current {
		return
	}

	state.Transitions = append(state.Transitions, Transition{
		Date:    date,
		From:    current,
		FromTag: current.String(),
		To:      next,
		ToTag:   next.String(),
		Clamped: clamped,
	})
	if len(state.Transitions) > c.config.HistoryLimit {
		state.Transitions = state.Transitions[len(state.Transitions)-c.config.HistoryLimit:]
	}

	state.Stage = next
	state.StageTag = next.String()
	state.EnteredAt = date
	if clamped {
		state.ClampWarning = true
	}
	d := c.config.Durations[next.String()]
	state.RemainingMean = d.MeanCycles
	state.RemainingVar = d.VarCycles
}

func boolScore(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
