package lifecycle

import (
	"fmt"
	"math"
)

// rowSumTolerance bounds floating error when validating matrix rows.
const rowSumTolerance = 1e-6

// TransitionMatrix is the empirical stage-transition prior, estimated from
// historical labeled analogs. Row i holds P(next stage | current stage i).
// It is configuration data, not code; a malformed matrix is fatal at load.
type TransitionMatrix [NumStages][NumStages]float64

// DefaultTransitionMatrix returns the shipped prior: strong self-persistence
// with forward drift, matching the observed stickiness of theme stages.
func DefaultTransitionMatrix() TransitionMatrix {
	return TransitionMatrix{
		// embryonic: mostly stays, sometimes catches on
		{0.70, 0.25, 0.03, 0.02},
		// growth: sticky, tops out more often than it re-seeds
		{0.05, 0.65, 0.25, 0.05},
		// maturity: the only way forward is down
		{0.02, 0.08, 0.60, 0.30},
		// decline: terminal for the campaign
		{0.05, 0.02, 0.03, 0.90},
	}
}

// Validate rejects a matrix that is not row-stochastic.
func (m TransitionMatrix) Validate() error {
	for i := 0; i < NumStages; i++ {
		var sum float64
		for j := 0; j < NumStages; j++ {
			if m[i][j] < 0 {
				return fmt.Errorf("transition matrix row %s: negative entry %.6f", Stage(i), m[i][j])
			}
			sum += m[i][j]
		}
		if math.Abs(sum-1.0) > rowSumTolerance {
			return fmt.Errorf("transition matrix row %s sums to %.8f, expected 1.0", Stage(i), sum)
		}
	}
	return nil
}

// Prior returns P(to | from).
func (m TransitionMatrix) Prior(from, to Stage) float64 {
	return m[from][to]
}
