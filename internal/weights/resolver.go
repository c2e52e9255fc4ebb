package weights

import (
	"fmt"
	"math"

	"github.com/E4Saber/stock-analyzer-sub000/internal/regime"
	"github.com/E4Saber/stock-analyzer-sub000/internal/scorer"
)

// sumTolerance is the permitted floating error on a profile's weight sum.
const sumTolerance = 1e-6

// Wildcard matches any category or industry in a profile key.
const Wildcard = "*"

// Profile is one cross-dimension weight vector. Weights always sum to 1;
// a profile violating that is rejected at load, never silently fixed.
type Profile struct {
	Key         Key                          `json:"key"`
	Description string                       `json:"description,omitempty"`
	Weights     map[scorer.Dimension]float64 `json:"-"`
	ByTag       map[string]float64           `json:"weights"`
}

// Key addresses a profile by regime, stock category, and industry.
// Category and Industry may be the wildcard.
type Key struct {
	Regime   string `json:"regime" yaml:"regime"`
	Category string `json:"category" yaml:"category"`
	Industry string `json:"industry" yaml:"industry"`
}

func (k Key) String() string {
	return k.Regime + "|" + k.Category + "|" + k.Industry
}

// ProfileSpec is the external (yaml) form of a profile.
type ProfileSpec struct {
	Regime      string             `yaml:"regime"`
	Category    string             `yaml:"category"`
	Industry    string             `yaml:"industry"`
	Description string             `yaml:"description,omitempty"`
	Weights     map[string]float64 `yaml:"weights"`
}

// Config carries all weight profiles plus the mandatory global default.
type Config struct {
	Default  map[string]float64 `yaml:"default"`
	Profiles []ProfileSpec      `yaml:"profiles"`
}

// DefaultConfig returns the built-in profile tables: a balanced global
// default plus regime- and category-specific tilts.
func DefaultConfig() *Config {
	return &Config{
		Default: map[string]float64{
			"fund_flow":      0.25,
			"chip_structure": 0.20,
			"technical":      0.15,
			"main_force":     0.20,
			"market_env":     0.10,
			"risk":           0.10,
		},
		Profiles: []ProfileSpec{
			{
				Regime: "bull", Category: Wildcard, Industry: Wildcard,
				Description: "bull market: momentum and flow dominate",
				Weights: map[string]float64{
					"fund_flow":      0.30,
					"chip_structure": 0.15,
					"technical":      0.20,
					"main_force":     0.20,
					"market_env":     0.05,
					"risk":           0.10,
				},
			},
			{
				Regime: "bear", Category: Wildcard, Industry: Wildcard,
				Description: "bear market: survivability first",
				Weights: map[string]float64{
					"fund_flow":      0.15,
					"chip_structure": 0.20,
					"technical":      0.10,
					"main_force":     0.15,
					"market_env":     0.15,
					"risk":           0.25,
				},
			},
			{
				Regime: "oscillating", Category: Wildcard, Industry: Wildcard,
				Description: "range-bound: chip structure and patience",
				Weights: map[string]float64{
					"fund_flow":      0.20,
					"chip_structure": 0.25,
					"technical":      0.15,
					"main_force":     0.20,
					"market_env":     0.10,
					"risk":           0.10,
				},
			},
			{
				Regime: "oscillating", Category: "small", Industry: Wildcard,
				Description: "small caps in chop: main-force fingerprints matter most",
				Weights: map[string]float64{
					"fund_flow":      0.20,
					"chip_structure": 0.20,
					"technical":      0.10,
					"main_force":     0.30,
					"market_env":     0.05,
					"risk":           0.15,
				},
			},
		},
	}
}

// Resolver performs the keyed profile lookup with its fallback chain:
// exact (regime, category, industry), then industry dropped, then category
// dropped, then the global default.
type Resolver struct {
	profiles map[string]*Profile
	fallback *Profile
}

// NewResolver validates and indexes every profile. Any profile whose
// weights do not sum to 1.0 within tolerance is a fatal configuration
// error: silent renormalization would mask real data errors.
func NewResolver(cfg *Config) (*Resolver, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	fallback, err := buildProfile(Key{Regime: Wildcard, Category: Wildcard, Industry: Wildcard}, "global default", cfg.Default)
	if err != nil {
		return nil, fmt.Errorf("default weight profile: %w", err)
	}

	r := &Resolver{
		profiles: make(map[string]*Profile, len(cfg.Profiles)),
		fallback: fallback,
	}
	for _, spec := range cfg.Profiles {
		key := Key{Regime: spec.Regime, Category: spec.Category, Industry: spec.Industry}
		if _, err := regime.ParseMarketRegime(spec.Regime); err != nil {
			return nil, fmt.Errorf("weight profile %s: %w", key, err)
		}
		if spec.Category != Wildcard {
			if _, err := regime.ParseCategory(spec.Category); err != nil {
				return nil, fmt.Errorf("weight profile %s: %w", key, err)
			}
		}
		profile, err := buildProfile(key, spec.Description, spec.Weights)
		if err != nil {
			return nil, fmt.Errorf("weight profile %s: %w", key, err)
		}
		if _, dup := r.profiles[key.String()]; dup {
			return nil, fmt.Errorf("duplicate weight profile %s", key)
		}
		r.profiles[key.String()] = profile
	}
	return r, nil
}

func buildProfile(key Key, description string, byTag map[string]float64) (*Profile, error) {
	if len(byTag) == 0 {
		return nil, fmt.Errorf("no weights")
	}
	weights := make(map[scorer.Dimension]float64, scorer.NumDimensions)
	var sum float64
	for tag, w := range byTag {
		dim, err := scorer.ParseDimension(tag)
		if err != nil {
			return nil, err
		}
		if w < 0 || w > 1 {
			return nil, fmt.Errorf("dimension %s weight %.6f outside [0, 1]", tag, w)
		}
		weights[dim] = w
		sum += w
	}
	if len(weights) != scorer.NumDimensions {
		return nil, fmt.Errorf("profile covers %d of %d dimensions", len(weights), scorer.NumDimensions)
	}
	if math.Abs(sum-1.0) > sumTolerance {
		return nil, fmt.Errorf("weights sum to %.8f, expected 1.0 within %g", sum, sumTolerance)
	}

	tags := make(map[string]float64, len(byTag))
	for tag, w := range byTag {
		tags[tag] = w
	}
	return &Profile{Key: key, Description: description, Weights: weights, ByTag: tags}, nil
}

// Resolve returns the most specific profile for a regime label.
func (r *Resolver) Resolve(label regime.Label) *Profile {
	candidates := []Key{
		{Regime: label.Regime.String(), Category: label.Category.String(), Industry: label.Industry},
		{Regime: label.Regime.String(), Category: label.Category.String(), Industry: Wildcard},
		{Regime: label.Regime.String(), Category: Wildcard, Industry: Wildcard},
	}
	for _, key := range candidates {
		if p, ok := r.profiles[key.String()]; ok {
			return p
		}
	}
	return r.fallback
}

// Default returns the global fallback profile.
func (r *Resolver) Default() *Profile {
	return r.fallback
}

// Size returns the number of specific (non-default) profiles loaded.
func (r *Resolver) Size() int {
	return len(r.profiles)
}
