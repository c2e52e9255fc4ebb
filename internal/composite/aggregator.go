package composite

import (
	"fmt"
	"time"

	"github.com/E4Saber/stock-analyzer-sub000/internal/scorer"
	"github.com/E4Saber/stock-analyzer-sub000/internal/weights"
)

// Tier buckets a composite score into its action class.
type Tier int

const (
	TierReject Tier = iota
	TierWatch
	TierActionable
	TierHighConfidence
)

func (t Tier) String() string {
	switch t {
	case TierReject:
		return "reject"
	case TierWatch:
		return "watch"
	case TierActionable:
		return "actionable"
	case TierHighConfidence:
		return "high_confidence"
	default:
		return "unknown"
	}
}

// Demote returns the tier one step below, saturating at reject.
func (t Tier) Demote() Tier {
	if t <= TierReject {
		return TierReject
	}
	return t - 1
}

// Thresholds are the closed lower bounds of each tier above reject. A score
// of exactly Actionable lands in the actionable tier.
type Thresholds struct {
	Watch          float64 `yaml:"watch"`
	Actionable     float64 `yaml:"actionable"`
	HighConfidence float64 `yaml:"high_confidence"`
}

// DefaultThresholds mirrors the "75 points to advance" rule.
func DefaultThresholds() Thresholds {
	return Thresholds{Watch: 50, Actionable: 75, HighConfidence: 90}
}

// Validate rejects non-ascending tier boundaries.
func (t Thresholds) Validate() error {
	if !(0 < t.Watch && t.Watch < t.Actionable && t.Actionable < t.HighConfidence && t.HighConfidence <= 100) {
		return fmt.Errorf("tier thresholds must ascend within (0, 100]: watch=%.2f actionable=%.2f high_confidence=%.2f",
			t.Watch, t.Actionable, t.HighConfidence)
	}
	return nil
}

// TierFor classifies a score; boundaries are closed on the lower tier side,
// so exactly 75.0 is actionable while 74.999 is watch.
func (t Thresholds) TierFor(score float64) Tier {
	switch {
	case score >= t.HighConfidence:
		return TierHighConfidence
	case score >= t.Actionable:
		return TierActionable
	case score >= t.Watch:
		return TierWatch
	default:
		return TierReject
	}
}

// LowerBound returns the tier's closed lower bound.
func (t Thresholds) LowerBound(tier Tier) float64 {
	switch tier {
	case TierHighConfidence:
		return t.HighConfidence
	case TierActionable:
		return t.Actionable
	case TierWatch:
		return t.Watch
	default:
		return 0
	}
}

// Signal is the fused per-symbol, per-date output of the aggregator.
// It is read-only downstream; the reliability filter produces its own
// verdict record rather than mutating the signal.
type Signal struct {
	Symbol  string                                     `json:"symbol"`
	Date    time.Time                                  `json:"date"`
	Score   float64                                    `json:"score"`
	Tier    Tier                                       `json:"-"`
	TierTag string                                     `json:"tier"`
	Profile *weights.Profile                           `json:"profile"`
	Scores  [scorer.NumDimensions]scorer.DimensionScore `json:"dimension_scores"`
}

// Aggregator folds the six dimension scores into one composite score.
type Aggregator struct {
	thresholds Thresholds
}

// NewAggregator builds an aggregator; zero thresholds select the defaults.
func NewAggregator(thresholds Thresholds) (*Aggregator, error) {
	if thresholds == (Thresholds{}) {
		thresholds = DefaultThresholds()
	}
	if err := thresholds.Validate(); err != nil {
		return nil, fmt.Errorf("tier thresholds: %w", err)
	}
	return &Aggregator{thresholds: thresholds}, nil
}

// Thresholds exposes the configured tier boundaries.
func (a *Aggregator) Thresholds() Thresholds {
	return a.thresholds
}

// Aggregate computes score = Σ weight_d × value_d over the six dimension
// scores. Degraded-coverage caps are already baked into each score, so a
// sparse dimension simply contributes its capped value. Identical inputs
// always produce the identical signal.
func (a *Aggregator) Aggregate(dimScores [scorer.NumDimensions]scorer.DimensionScore, profile *weights.Profile) (Signal, error) {
	if profile == nil {
		return Signal{}, fmt.Errorf("aggregate: nil weight profile")
	}

	var total float64
	for i, dim := range scorer.AllDimensions {
		if dimScores[i].Dimension != dim {
			return Signal{}, fmt.Errorf("aggregate: dimension score %d is %s, expected %s",
				i, dimScores[i].Dimension, dim)
		}
		total += profile.Weights[dim] * dimScores[i].Value
	}

	tier := a.thresholds.TierFor(total)
	return Signal{
		Symbol:  dimScores[0].Symbol,
		Date:    dimScores[0].Date,
		Score:   total,
		Tier:    tier,
		TierTag: tier.String(),
		Profile: profile,
		Scores:  dimScores,
	}, nil
}
