package lifecycle

import "fmt"

// Stage is a theme or campaign's position in its speculative life cycle.
type Stage int

const (
	Embryonic Stage = iota
	Growth
	Maturity
	Decline
)

// NumStages is the size of the stage state space.
const NumStages = 4

func (s Stage) String() string {
	switch s {
	case Embryonic:
		return "embryonic"
	case Growth:
		return "growth"
	case Maturity:
		return "maturity"
	case Decline:
		return "decline"
	default:
		return "unknown"
	}
}

// ParseStage converts a stage tag back to its enum value.
func ParseStage(tag string) (Stage, error) {
	switch tag {
	case "embryonic":
		return Embryonic, nil
	case "growth":
		return Growth, nil
	case "maturity":
		return Maturity, nil
	case "decline":
		return Decline, nil
	}
	return 0, fmt.Errorf("unknown lifecycle stage %q", tag)
}

// adjacentStep clamps a proposed move to at most one stage per cycle,
// reporting whether clamping occurred.
func adjacentStep(current, proposed Stage) (Stage, bool) {
	delta := int(proposed) - int(current)
	switch {
	case delta > 1:
		return current + 1, true
	case delta < -1:
		return current - 1, true
	default:
		return proposed, false
	}
}
