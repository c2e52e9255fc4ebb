package lifecycle

import (
	"github.com/E4Saber/stock-analyzer-sub000/internal/composite"
	"github.com/E4Saber/stock-analyzer-sub000/internal/scorer"
)

// Theme is a cluster of symbols co-moving around a shared narrative,
// tracked as one unit for lifecycle classification.
type Theme struct {
	ID      string   `json:"id" yaml:"id"`
	Name    string   `json:"name" yaml:"name"`
	Members []string `json:"members" yaml:"members"`
}

// ThemeTracker derives lifecycle features for a theme from its members'
// per-cycle composite signals. It keeps only the small trailing aggregates
// the stage rules need.
type ThemeTracker struct {
	theme Theme

	meanHistory  []float64
	lastBreadth  int
	haveBreadth  bool
	risingCycles int
}

// NewThemeTracker starts tracking a theme.
func NewThemeTracker(theme Theme) *ThemeTracker {
	return &ThemeTracker{theme: theme}
}

// Theme returns the tracked theme definition.
func (t *ThemeTracker) Theme() Theme {
	return t.theme
}

// Observe folds one cycle's member signals into lifecycle features.
// Breadth counts members at watch tier or better; net flow is the mean
// fund-flow dimension score across members. A cycle with no member signals
// yields Observed=false, which downstream treats as no-signal.
func (t *ThemeTracker) Observe(signals []composite.Signal) Features {
	if len(signals) == 0 {
		return Features{Observed: false}
	}

	var sumComposite, sumNetFlow float64
	breadth := 0
	for _, sig := range signals {
		sumComposite += sig.Score
		for _, ds := range sig.Scores {
			if ds.Dimension == scorer.FundFlow {
				sumNetFlow += ds.Value
			}
		}
		if sig.Tier >= composite.TierWatch {
			breadth++
		}
	}
	mean := sumComposite / float64(len(signals))

	if n := len(t.meanHistory); n > 0 && mean > t.meanHistory[n-1] {
		t.risingCycles++
	} else {
		t.risingCycles = 0
	}
	t.meanHistory = append(t.meanHistory, mean)
	if len(t.meanHistory) > 64 {
		t.meanHistory = t.meanHistory[1:]
	}

	breadthChange := 0
	if t.haveBreadth {
		breadthChange = breadth - t.lastBreadth
	}
	t.lastBreadth = breadth
	t.haveBreadth = true

	return Features{
		MeanComposite: mean,
		RisingCycles:  t.risingCycles,
		Breadth:       breadth,
		BreadthChange: breadthChange,
		NetFlowScore:  sumNetFlow / float64(len(signals)),
		Observed:      true,
	}
}
