package reliability

import (
	"fmt"
	"math"
	"time"

	"github.com/E4Saber/stock-analyzer-sub000/internal/composite"
	"github.com/E4Saber/stock-analyzer-sub000/internal/indicator"
	"github.com/E4Saber/stock-analyzer-sub000/internal/scorer"
)

// Flag identifies an anomaly pattern detected against a composite signal.
type Flag string

const (
	// FlagFastInFastOut marks accumulation that reversed sign shortly
	// after a strong inflow reading: churn, not an ambush.
	FlagFastInFastOut Flag = "fast_in_fast_out"
	// FlagDivergence marks internal disagreement across the six
	// dimension scores.
	FlagDivergence Flag = "divergence_inconsistency"
	// FlagWashPattern marks heavy large-order activity with anomalously
	// small net direction, a self-trading proxy.
	FlagWashPattern Flag = "wash_trade_pattern"
)

// Config holds anomaly thresholds and discount factors. These are
// calibration targets to be fitted from labeled history, never literals in
// the detector code.
type Config struct {
	// FastInFastOutWindow is the trailing session count inspected for a
	// sign reversal after a strong inflow.
	FastInFastOutWindow int `yaml:"fast_in_fast_out_window"`
	// StrongInflowMin is the net_inflow_ratio level that counts as a
	// strong inflow signal.
	StrongInflowMin float64 `yaml:"strong_inflow_min"`
	// FastInFastOutDiscount multiplies the score when the flag fires.
	FastInFastOutDiscount float64 `yaml:"fast_in_fast_out_discount"`

	// DivergenceStdRatio is the max tolerated stddev/mean across the
	// six dimension scores before the signal counts as inconsistent.
	DivergenceStdRatio float64 `yaml:"divergence_std_ratio"`
	// DivergenceScale converts excess dispersion into extra discount.
	DivergenceScale float64 `yaml:"divergence_scale"`
	// DivergenceFloor bounds the divergence discount from below.
	DivergenceFloor float64 `yaml:"divergence_floor"`

	// WashNetGrossMax flags large-order flow whose |net|/gross falls
	// below this ratio while gross stays above WashMinGrossRatio.
	WashNetGrossMax   float64 `yaml:"wash_net_gross_max"`
	WashMinGrossRatio float64 `yaml:"wash_min_gross_ratio"`
	// WashDiscount multiplies the score when the wash flag fires.
	WashDiscount float64 `yaml:"wash_discount"`
}

// DefaultConfig returns the shipped anomaly calibration.
func DefaultConfig() *Config {
	return &Config{
		FastInFastOutWindow:   3,
		StrongInflowMin:       0.20,
		FastInFastOutDiscount: 0.60,
		DivergenceStdRatio:    0.25,
		DivergenceScale:       0.50,
		DivergenceFloor:       0.70,
		WashNetGrossMax:       0.15,
		WashMinGrossRatio:     0.50,
		WashDiscount:          0.70,
	}
}

// Validate rejects non-sensical anomaly configuration at load time.
func (c *Config) Validate() error {
	if c.FastInFastOutWindow < 1 {
		return fmt.Errorf("fast_in_fast_out_window %d must be at least 1", c.FastInFastOutWindow)
	}
	for name, factor := range map[string]float64{
		"fast_in_fast_out_discount": c.FastInFastOutDiscount,
		"divergence_floor":          c.DivergenceFloor,
		"wash_discount":             c.WashDiscount,
	} {
		if factor <= 0 || factor > 1 {
			return fmt.Errorf("%s %.4f must lie inside (0, 1]", name, factor)
		}
	}
	if c.DivergenceStdRatio <= 0 {
		return fmt.Errorf("divergence_std_ratio %.4f must be positive", c.DivergenceStdRatio)
	}
	if c.WashNetGrossMax <= 0 || c.WashNetGrossMax >= 1 {
		return fmt.Errorf("wash_net_gross_max %.4f must lie inside (0, 1)", c.WashNetGrossMax)
	}
	return nil
}

// Verdict is the filter's audit record for one composite signal: what was
// flagged, the compounded discount, and the resulting tier. A failing
// signal is demoted one tier, never dropped.
type Verdict struct {
	Symbol          string         `json:"symbol"`
	Date            time.Time      `json:"date"`
	OriginalScore   float64        `json:"original_score"`
	OriginalTier    composite.Tier `json:"-"`
	OriginalTierTag string         `json:"original_tier"`
	DiscountedScore float64        `json:"discounted_score"`
	Passes          bool           `json:"passes"`
	FinalTier       composite.Tier `json:"-"`
	FinalTierTag    string         `json:"final_tier"`
	Flags           []Flag         `json:"flags,omitempty"`
}

// Filter runs the independent anomaly detectors against a signal and its
// trailing indicator history.
type Filter struct {
	config     *Config
	thresholds composite.Thresholds
}

// NewFilter builds the reliability filter; nil config selects defaults.
func NewFilter(config *Config, thresholds composite.Thresholds) (*Filter, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("reliability config: %w", err)
	}
	if err := thresholds.Validate(); err != nil {
		return nil, fmt.Errorf("reliability thresholds: %w", err)
	}
	return &Filter{config: config, thresholds: thresholds}, nil
}

// Check evaluates every detector, compounds the triggered discounts
// multiplicatively, and decides whether the signal keeps its tier. Passing
// requires the discounted score to still meet the original tier's closed
// lower bound; otherwise the signal is demoted exactly one tier.
func (f *Filter) Check(sig composite.Signal, history indicator.History) Verdict {
	verdict := Verdict{
		Symbol:          sig.Symbol,
		Date:            sig.Date,
		OriginalScore:   sig.Score,
		OriginalTier:    sig.Tier,
		OriginalTierTag: sig.Tier.String(),
	}

	discount := 1.0
	if f.fastInFastOut(history) {
		verdict.Flags = append(verdict.Flags, FlagFastInFastOut)
		discount *= f.config.FastInFastOutDiscount
	}
	if factor, flagged := f.divergence(sig.Scores); flagged {
		verdict.Flags = append(verdict.Flags, FlagDivergence)
		discount *= factor
	}
	if f.washPattern(history) {
		verdict.Flags = append(verdict.Flags, FlagWashPattern)
		discount *= f.config.WashDiscount
	}

	verdict.DiscountedScore = sig.Score * discount
	verdict.Passes = verdict.DiscountedScore >= f.thresholds.LowerBound(sig.Tier)
	if verdict.Passes {
		verdict.FinalTier = sig.Tier
	} else {
		verdict.FinalTier = sig.Tier.Demote()
	}
	verdict.FinalTierTag = verdict.FinalTier.String()
	return verdict
}

// fastInFastOut reports a net-inflow sign reversal inside the trailing
// window after a strong inflow reading.
func (f *Filter) fastInFastOut(history indicator.History) bool {
	series := history.Series("net_inflow_ratio")
	if len(series) < 2 {
		return false
	}
	window := f.config.FastInFastOutWindow
	if len(series) > window+1 {
		series = series[len(series)-(window+1):]
	}
	strongAt := -1
	for i, v := range series {
		if v >= f.config.StrongInflowMin {
			strongAt = i
		}
	}
	if strongAt < 0 {
		return false
	}
	for _, v := range series[strongAt+1:] {
		if v < 0 {
			return true
		}
	}
	return false
}

// divergence measures cross-dimension dispersion. When stddev/mean exceeds
// the configured ratio, the discount grows proportionally to the excess,
// bounded below by the floor.
func (f *Filter) divergence(scores [scorer.NumDimensions]scorer.DimensionScore) (float64, bool) {
	var sum float64
	for _, s := range scores {
		sum += s.Value
	}
	mean := sum / float64(len(scores))
	if mean <= 0 {
		return 1.0, false
	}

	var variance float64
	for _, s := range scores {
		d := s.Value - mean
		variance += d * d
	}
	variance /= float64(len(scores))
	ratio := math.Sqrt(variance) / mean
	if ratio <= f.config.DivergenceStdRatio {
		return 1.0, false
	}

	excess := ratio - f.config.DivergenceStdRatio
	factor := 1.0 - excess*f.config.DivergenceScale
	if factor < f.config.DivergenceFloor {
		factor = f.config.DivergenceFloor
	}
	return factor, true
}

// washPattern flags heavy large-order activity whose net direction is
// anomalously small relative to its gross volume on the latest session.
func (f *Filter) washPattern(history indicator.History) bool {
	latest, ok := history.Latest()
	if !ok {
		return false
	}
	gross, ok := latest.Get("large_order_gross_ratio")
	if !ok || gross < f.config.WashMinGrossRatio {
		return false
	}
	net, ok := latest.Get("large_order_net_ratio")
	if !ok {
		return false
	}
	if gross == 0 {
		return false
	}
	return math.Abs(net)/gross < f.config.WashNetGrossMax
}
