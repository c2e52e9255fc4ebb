package indicator

import (
	"time"
)

// Vector holds one symbol's raw indicator values for a single as-of date.
// Missing indicators are absent keys, never sentinel zeros. A Vector is
// immutable once built; scorers only read from it.
type Vector struct {
	Symbol string             `json:"symbol"`
	Date   time.Time          `json:"date"`
	Values map[string]float64 `json:"values"`
}

// NewVector builds an immutable indicator vector, copying the value map so
// callers cannot mutate it after ingestion.
func NewVector(symbol string, date time.Time, values map[string]float64) Vector {
	copied := make(map[string]float64, len(values))
	for name, v := range values {
		copied[name] = v
	}
	return Vector{Symbol: symbol, Date: date, Values: copied}
}

// Get returns the named indicator value and whether it is present.
func (v Vector) Get(name string) (float64, bool) {
	val, ok := v.Values[name]
	return val, ok
}

// History is a symbol's trailing indicator vectors ordered oldest to newest.
type History []Vector

// Last returns up to the n most recent vectors, newest last.
func (h History) Last(n int) History {
	if n >= len(h) {
		return h
	}
	return h[len(h)-n:]
}

// Series extracts the named indicator across the history, oldest first.
// Sessions where the indicator is absent are skipped.
func (h History) Series(name string) []float64 {
	series := make([]float64, 0, len(h))
	for _, v := range h {
		if val, ok := v.Get(name); ok {
			series = append(series, val)
		}
	}
	return series
}

// Latest returns the most recent vector and false if the history is empty.
func (h History) Latest() (Vector, bool) {
	if len(h) == 0 {
		return Vector{}, false
	}
	return h[len(h)-1], true
}
