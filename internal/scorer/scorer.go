package scorer

import (
	"fmt"
	"time"

	"github.com/E4Saber/stock-analyzer-sub000/internal/indicator"
)

// Dimension identifies one of the six scoring families the engine fuses.
type Dimension int

const (
	FundFlow Dimension = iota
	ChipStructure
	Technical
	MainForce
	MarketEnv
	RiskAssess
)

// NumDimensions is the number of scoring families; every composite signal
// carries exactly this many dimension scores.
const NumDimensions = 6

// AllDimensions lists the dimensions in their canonical aggregation order.
var AllDimensions = [NumDimensions]Dimension{
	FundFlow, ChipStructure, Technical, MainForce, MarketEnv, RiskAssess,
}

func (d Dimension) String() string {
	switch d {
	case FundFlow:
		return "fund_flow"
	case ChipStructure:
		return "chip_structure"
	case Technical:
		return "technical"
	case MainForce:
		return "main_force"
	case MarketEnv:
		return "market_env"
	case RiskAssess:
		return "risk"
	default:
		return "unknown"
	}
}

// ParseDimension converts a dimension tag back to its enum value.
func ParseDimension(tag string) (Dimension, error) {
	for _, d := range AllDimensions {
		if d.String() == tag {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown dimension tag %q", tag)
}

// Contribution records one sub-indicator's part in a dimension score, kept
// for the downstream audit trail.
type Contribution struct {
	Name       string  `json:"name"`
	Raw        float64 `json:"raw"`
	Normalized float64 `json:"normalized"` // 0-100 after the normalization rule
	Weight     float64 `json:"weight"`     // micro-weight before renormalization
}

// DimensionScore is the immutable output of one dimension scorer for one
// symbol on one date. Value is always within [0,100]. Coverage is the
// fraction of expected micro-weight mass that was present in the input;
// sparse inputs cap the value rather than erroring.
type DimensionScore struct {
	Dimension     Dimension      `json:"-"`
	Tag           string         `json:"dimension"`
	Symbol        string         `json:"symbol"`
	Date          time.Time      `json:"date"`
	Value         float64        `json:"value"`
	Coverage      float64        `json:"coverage"`
	Capped        bool           `json:"capped"`
	Contributions []Contribution `json:"contributions"`
}

// Scorer reduces a raw indicator vector to a bounded score for a single
// dimension. It never fails on missing data: absent sub-indicators are
// excluded and the remaining micro-weights renormalized.
type Scorer struct {
	dim         Dimension
	subs        []SubIndicator
	minCoverage float64
	degradedCap float64
}

// New builds a scorer for one dimension from its configured sub-indicator
// table. The table's micro-weights must sum to 1.
func New(dim Dimension, subs []SubIndicator, minCoverage, degradedCap float64) (*Scorer, error) {
	if err := validateSubTable(dim, subs); err != nil {
		return nil, err
	}
	return &Scorer{
		dim:         dim,
		subs:        subs,
		minCoverage: minCoverage,
		degradedCap: degradedCap,
	}, nil
}

// Score computes the dimension score for one vector. Sub-indicators are
// evaluated in table order so identical inputs always produce identical
// output.
func (s *Scorer) Score(v indicator.Vector) DimensionScore {
	score := DimensionScore{
		Dimension:     s.dim,
		Tag:           s.dim.String(),
		Symbol:        v.Symbol,
		Date:          v.Date,
		Contributions: make([]Contribution, 0, len(s.subs)),
	}

	var weighted, presentMass float64
	for _, sub := range s.subs {
		raw, ok := v.Get(sub.Name)
		if !ok {
			continue
		}
		normalized := sub.Norm.Apply(raw)
		weighted += sub.Weight * normalized
		presentMass += sub.Weight
		score.Contributions = append(score.Contributions, Contribution{
			Name:       sub.Name,
			Raw:        raw,
			Normalized: normalized,
			Weight:     sub.Weight,
		})
	}

	score.Coverage = presentMass
	if presentMass > 0 {
		// Renormalize over the present micro-weight mass.
		score.Value = weighted / presentMass
	}

	if score.Coverage < s.minCoverage && score.Value > s.degradedCap {
		score.Value = s.degradedCap
		score.Capped = true
	}
	return score
}

// Dimension returns the scorer's dimension.
func (s *Scorer) Dimension() Dimension {
	return s.dim
}

// Bank holds one scorer per dimension and evaluates them together.
type Bank struct {
	scorers [NumDimensions]*Scorer
}

// NewBank constructs the full six-scorer bank from configuration.
func NewBank(cfg *Config) (*Bank, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("scorer config: %w", err)
	}

	b := &Bank{}
	for i, dim := range AllDimensions {
		subs := cfg.Dimensions[dim.String()]
		sc, err := New(dim, subs, cfg.MinCoverage, cfg.DegradedCap)
		if err != nil {
			return nil, err
		}
		b.scorers[i] = sc
	}
	return b, nil
}

// ScoreAll evaluates every dimension against the vector in canonical order.
// A dimension with no present sub-indicators yields a zero-value score with
// coverage 0, never an absent record.
func (b *Bank) ScoreAll(v indicator.Vector) [NumDimensions]DimensionScore {
	var out [NumDimensions]DimensionScore
	for i, sc := range b.scorers {
		out[i] = sc.Score(v)
	}
	return out
}
