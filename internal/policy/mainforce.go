package policy

import (
	"github.com/E4Saber/stock-analyzer-sub000/internal/indicator"
)

// InferMainForce guesses the dominant capital category from a symbol's
// trailing behavior: hot money churns fast, industrial capital builds over
// months, everything else defaults to institutional.
func (e *Engine) InferMainForce(history indicator.History) MainForceType {
	cadence := meanSeries(history.Series("turnover_cadence"))
	if cadence >= e.config.HotMoneyMinCadence {
		return HotMoney
	}
	if latest, ok := history.Latest(); ok {
		if days, present := latest.Get("accumulation_days"); present &&
			int(days) >= e.config.IndustrialMinBuildDays {
			return Industrial
		}
	}
	return Institutional
}

func meanSeries(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	var sum float64
	for _, v := range series {
		sum += v
	}
	return sum / float64(len(series))
}
