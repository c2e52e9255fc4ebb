package regime

import (
	"fmt"
	"time"
)

// MarketRegime is the broad-market classification driving weight selection.
type MarketRegime int

const (
	Bull MarketRegime = iota
	Bear
	Oscillating
)

func (r MarketRegime) String() string {
	switch r {
	case Bull:
		return "bull"
	case Bear:
		return "bear"
	case Oscillating:
		return "oscillating"
	default:
		return "unknown"
	}
}

// ParseMarketRegime converts a regime tag back to its enum value.
func ParseMarketRegime(tag string) (MarketRegime, error) {
	switch tag {
	case "bull":
		return Bull, nil
	case "bear":
		return Bear, nil
	case "oscillating":
		return Oscillating, nil
	}
	return 0, fmt.Errorf("unknown market regime %q", tag)
}

// Category buckets a symbol by float market cap.
type Category int

const (
	SmallCap Category = iota
	MidCap
	LargeCap
)

func (c Category) String() string {
	switch c {
	case SmallCap:
		return "small"
	case MidCap:
		return "mid"
	case LargeCap:
		return "large"
	default:
		return "unknown"
	}
}

// ParseCategory converts a category tag back to its enum value.
func ParseCategory(tag string) (Category, error) {
	switch tag {
	case "small":
		return SmallCap, nil
	case "mid":
		return MidCap, nil
	case "large":
		return LargeCap, nil
	}
	return 0, fmt.Errorf("unknown stock category %q", tag)
}

// Horizon is the holding-horizon intent a profile is tuned for.
type Horizon int

const (
	ShortHorizon Horizon = iota
	MediumHorizon
	LongHorizon
)

func (h Horizon) String() string {
	switch h {
	case ShortHorizon:
		return "short"
	case MediumHorizon:
		return "medium"
	case LongHorizon:
		return "long"
	default:
		return "unknown"
	}
}

// Label is the per-cycle regime output, shared read-only across every
// symbol scored that cycle.
type Label struct {
	Date     time.Time    `json:"date"`
	Regime   MarketRegime `json:"regime"`
	Category Category     `json:"category"`
	Industry string       `json:"industry"`
	Horizon  Horizon      `json:"horizon"`
}

// MarketSnapshot carries the market-wide aggregates the classifier rules
// evaluate. It is materialized upstream before a cycle starts.
type MarketSnapshot struct {
	Date time.Time `json:"date"`
	// BreadthAdvanceRatio is the advancing fraction of all symbols, 0-1.
	BreadthAdvanceRatio float64 `json:"breadth_advance_ratio"`
	// IndexMomentum20d is the index return over the trailing 20 sessions.
	IndexMomentum20d float64 `json:"index_momentum_20d"`
	// RealizedVol20d is annualized index volatility over 20 sessions.
	RealizedVol20d float64 `json:"realized_vol_20d"`
}

// SymbolMeta is the static metadata used for category and industry lookup.
type SymbolMeta struct {
	Symbol        string  `json:"symbol"`
	FloatCapCNY   float64 `json:"float_cap_cny"`
	Industry      string  `json:"industry"`
	ListedDays    int     `json:"listed_days"`
	TurnoverCad5d float64 `json:"turnover_cadence_5d"`
}

// Config holds the rule thresholds for regime determination. All values are
// externally tunable; the defaults mirror the shipped engine.yaml.
type Config struct {
	// BullBreadthMin and BullMomentumMin must both hold for a bull vote.
	BullBreadthMin  float64 `yaml:"bull_breadth_min"`
	BullMomentumMin float64 `yaml:"bull_momentum_min"`
	// BearBreadthMax and BearMomentumMax must both hold for a bear vote.
	BearBreadthMax  float64 `yaml:"bear_breadth_max"`
	BearMomentumMax float64 `yaml:"bear_momentum_max"`
	// PersistCycles is the hysteresis: a standing regime must be
	// contradicted for this many consecutive cycles before flipping.
	PersistCycles int `yaml:"persist_cycles"`
	// Category float-cap boundaries, in CNY.
	SmallCapMaxCNY float64 `yaml:"small_cap_max_cny"`
	MidCapMaxCNY   float64 `yaml:"mid_cap_max_cny"`
	// Horizon turnover-cadence boundaries.
	ShortHorizonMinCadence float64 `yaml:"short_horizon_min_cadence"`
	LongHorizonMaxCadence  float64 `yaml:"long_horizon_max_cadence"`
}

// DefaultConfig returns the built-in regime thresholds.
func DefaultConfig() *Config {
	return &Config{
		BullBreadthMin:         0.60,
		BullMomentumMin:        0.02,
		BearBreadthMax:         0.40,
		BearMomentumMax:        -0.02,
		PersistCycles:          2,
		SmallCapMaxCNY:         5e9,
		MidCapMaxCNY:           3e10,
		ShortHorizonMinCadence: 0.15,
		LongHorizonMaxCadence:  0.03,
	}
}

// Validate rejects inconsistent threshold configuration at load time.
func (c *Config) Validate() error {
	if c.BearBreadthMax >= c.BullBreadthMin {
		return fmt.Errorf("bear_breadth_max %.2f must be below bull_breadth_min %.2f", c.BearBreadthMax, c.BullBreadthMin)
	}
	if c.BearMomentumMax >= c.BullMomentumMin {
		return fmt.Errorf("bear_momentum_max %.4f must be below bull_momentum_min %.4f", c.BearMomentumMax, c.BullMomentumMin)
	}
	if c.PersistCycles < 1 {
		return fmt.Errorf("persist_cycles %d must be at least 1", c.PersistCycles)
	}
	if c.SmallCapMaxCNY <= 0 || c.MidCapMaxCNY <= c.SmallCapMaxCNY {
		return fmt.Errorf("category boundaries must satisfy 0 < small (%.0f) < mid (%.0f)", c.SmallCapMaxCNY, c.MidCapMaxCNY)
	}
	return nil
}

// Classifier labels the market regime once per cycle. The rule evaluation
// itself is pure; the struct only carries the hysteresis memory needed to
// avoid regime thrashing.
type Classifier struct {
	config *Config

	current         MarketRegime
	initialized     bool
	contradictWith  MarketRegime
	contradictCount int
}

// NewClassifier builds a classifier; nil config selects defaults.
func NewClassifier(config *Config) (*Classifier, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("regime config: %w", err)
	}
	return &Classifier{config: config}, nil
}

// ruleRegime evaluates the raw thresholds with no hysteresis applied.
func (c *Classifier) ruleRegime(snap MarketSnapshot) MarketRegime {
	cfg := c.config
	switch {
	case snap.BreadthAdvanceRatio >= cfg.BullBreadthMin && snap.IndexMomentum20d >= cfg.BullMomentumMin:
		return Bull
	case snap.BreadthAdvanceRatio <= cfg.BearBreadthMax && snap.IndexMomentum20d <= cfg.BearMomentumMax:
		return Bear
	default:
		return Oscillating
	}
}

// Classify determines the market regime for a cycle. A standing regime only
// flips after being contradicted by the rule for PersistCycles consecutive
// cycles.
func (c *Classifier) Classify(snap MarketSnapshot) MarketRegime {
	ruled := c.ruleRegime(snap)

	if !c.initialized {
		c.current = ruled
		c.initialized = true
		c.contradictCount = 0
		return c.current
	}

	if ruled == c.current {
		c.contradictCount = 0
		return c.current
	}

	if c.contradictCount > 0 && ruled == c.contradictWith {
		c.contradictCount++
	} else {
		c.contradictWith = ruled
		c.contradictCount = 1
	}

	if c.contradictCount >= c.config.PersistCycles {
		c.current = ruled
		c.contradictCount = 0
	}
	return c.current
}

// Current returns the standing regime without advancing the hysteresis.
func (c *Classifier) Current() MarketRegime {
	if !c.initialized {
		return Oscillating
	}
	return c.current
}

// Categorize buckets a symbol by float market cap.
func (c *Classifier) Categorize(meta SymbolMeta) Category {
	switch {
	case meta.FloatCapCNY <= c.config.SmallCapMaxCNY:
		return SmallCap
	case meta.FloatCapCNY <= c.config.MidCapMaxCNY:
		return MidCap
	default:
		return LargeCap
	}
}

// HorizonFor infers the holding-horizon intent from turnover cadence.
func (c *Classifier) HorizonFor(meta SymbolMeta) Horizon {
	switch {
	case meta.TurnoverCad5d >= c.config.ShortHorizonMinCadence:
		return ShortHorizon
	case meta.TurnoverCad5d <= c.config.LongHorizonMaxCadence:
		return LongHorizon
	default:
		return MediumHorizon
	}
}

// Label assembles the full per-symbol regime label for a cycle, combining
// the cycle-wide market regime with the symbol's static metadata.
func (c *Classifier) Label(snap MarketSnapshot, meta SymbolMeta) Label {
	return Label{
		Date:     snap.Date,
		Regime:   c.Classify(snap),
		Category: c.Categorize(meta),
		Industry: meta.Industry,
		Horizon:  c.HorizonFor(meta),
	}
}

// LabelWith assembles a label from an already-classified market regime;
// the pipeline uses this so the hysteresis advances exactly once per cycle.
func (c *Classifier) LabelWith(market MarketRegime, date time.Time, meta SymbolMeta) Label {
	return Label{
		Date:     date,
		Regime:   market,
		Category: c.Categorize(meta),
		Industry: meta.Industry,
		Horizon:  c.HorizonFor(meta),
	}
}
