package scorer

import (
	"fmt"
	"math"
)

// weightSumTolerance bounds floating error when validating micro-weight
// tables; tables further from 1.0 than this are configuration errors.
const weightSumTolerance = 1e-6

// NormKind selects the normalization rule shape for a sub-indicator.
type NormKind string

const (
	// NormLinear maps [Min, Max] linearly onto [0, 100].
	NormLinear NormKind = "linear"
	// NormKink maps [Min, Threshold] onto [0, AtKink] and
	// [Threshold, Max] onto [AtKink, 100], a two-segment ramp.
	NormKink NormKind = "kink"
)

// NormRule documents how a raw sub-indicator value becomes a 0-100 score.
// Invert flips the result so that "lower raw is better" indicators score
// high when low.
type NormRule struct {
	Kind      NormKind `yaml:"kind" json:"kind"`
	Min       float64  `yaml:"min" json:"min"`
	Max       float64  `yaml:"max" json:"max"`
	Threshold float64  `yaml:"threshold,omitempty" json:"threshold,omitempty"`
	AtKink    float64  `yaml:"at_kink,omitempty" json:"at_kink,omitempty"`
	Invert    bool     `yaml:"invert,omitempty" json:"invert,omitempty"`
}

// Apply normalizes a raw value to [0,100] under the rule, clipping outside
// the documented range.
func (r NormRule) Apply(raw float64) float64 {
	var score float64
	switch r.Kind {
	case NormKink:
		if raw <= r.Threshold {
			score = scaleLinear(raw, r.Min, r.Threshold, 0, r.AtKink)
		} else {
			score = scaleLinear(raw, r.Threshold, r.Max, r.AtKink, 100)
		}
	default:
		score = scaleLinear(raw, r.Min, r.Max, 0, 100)
	}
	score = clamp(score, 0, 100)
	if r.Invert {
		score = 100 - score
	}
	return score
}

func (r NormRule) validate() error {
	if r.Min >= r.Max {
		return fmt.Errorf("min %.4f must be below max %.4f", r.Min, r.Max)
	}
	if r.Kind == NormKink {
		if r.Threshold <= r.Min || r.Threshold >= r.Max {
			return fmt.Errorf("kink threshold %.4f must lie inside (%.4f, %.4f)", r.Threshold, r.Min, r.Max)
		}
		if r.AtKink <= 0 || r.AtKink >= 100 {
			return fmt.Errorf("kink score %.2f must lie inside (0, 100)", r.AtKink)
		}
	}
	return nil
}

// SubIndicator binds one catalogued indicator to a dimension with its
// micro-weight and normalization rule.
type SubIndicator struct {
	Name   string   `yaml:"name" json:"name"`
	Unit   string   `yaml:"unit" json:"unit"`
	Weight float64  `yaml:"weight" json:"weight"`
	Norm   NormRule `yaml:"norm" json:"norm"`
}

// Config holds the full scorer configuration: the degraded-coverage policy
// plus one sub-indicator table per dimension. All thresholds live here as
// data so they can be tuned without a redeploy.
type Config struct {
	// MinCoverage is the present-weight-mass floor below which a scorer
	// cannot assert confidence and caps its own output.
	MinCoverage float64 `yaml:"min_coverage"`
	// DegradedCap is the output ceiling applied under MinCoverage.
	DegradedCap float64 `yaml:"degraded_cap"`
	// Dimensions maps dimension tag to its sub-indicator table.
	Dimensions map[string][]SubIndicator `yaml:"dimensions"`
}

// DefaultConfig returns the built-in scorer tables. Production deployments
// load these from config/engine.yaml instead.
func DefaultConfig() *Config {
	return &Config{
		MinCoverage: 0.3,
		DegradedCap: 50.0,
		Dimensions: map[string][]SubIndicator{
			FundFlow.String():      defaultFundFlowTable(),
			ChipStructure.String(): defaultChipStructureTable(),
			Technical.String():     defaultTechnicalTable(),
			MainForce.String():     defaultMainForceTable(),
			MarketEnv.String():     defaultMarketEnvTable(),
			RiskAssess.String():    defaultRiskTable(),
		},
	}
}

// Validate rejects malformed scorer configuration before any cycle runs.
func (c *Config) Validate() error {
	if c.MinCoverage <= 0 || c.MinCoverage >= 1 {
		return fmt.Errorf("min_coverage %.4f must lie inside (0, 1)", c.MinCoverage)
	}
	if c.DegradedCap <= 0 || c.DegradedCap > 100 {
		return fmt.Errorf("degraded_cap %.2f must lie inside (0, 100]", c.DegradedCap)
	}
	for _, dim := range AllDimensions {
		subs, ok := c.Dimensions[dim.String()]
		if !ok || len(subs) == 0 {
			return fmt.Errorf("dimension %s has no sub-indicator table", dim)
		}
		if err := validateSubTable(dim, subs); err != nil {
			return err
		}
	}
	return nil
}

func validateSubTable(dim Dimension, subs []SubIndicator) error {
	if len(subs) == 0 {
		return fmt.Errorf("dimension %s: empty sub-indicator table", dim)
	}
	seen := make(map[string]bool, len(subs))
	var sum float64
	for _, sub := range subs {
		if sub.Name == "" {
			return fmt.Errorf("dimension %s: sub-indicator with empty name", dim)
		}
		if seen[sub.Name] {
			return fmt.Errorf("dimension %s: duplicate sub-indicator %q", dim, sub.Name)
		}
		seen[sub.Name] = true
		if sub.Weight <= 0 {
			return fmt.Errorf("dimension %s: sub-indicator %q weight %.4f must be positive", dim, sub.Name, sub.Weight)
		}
		if err := sub.Norm.validate(); err != nil {
			return fmt.Errorf("dimension %s: sub-indicator %q: %w", dim, sub.Name, err)
		}
		sum += sub.Weight
	}
	if math.Abs(sum-1.0) > weightSumTolerance {
		return fmt.Errorf("dimension %s: micro-weights sum to %.8f, expected 1.0", dim, sum)
	}
	return nil
}

func scaleLinear(x, inLo, inHi, outLo, outHi float64) float64 {
	if inHi == inLo {
		return outLo
	}
	return outLo + (x-inLo)/(inHi-inLo)*(outHi-outLo)
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
