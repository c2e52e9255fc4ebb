package indicator

import (
	"fmt"
	"sort"
)

// CatalogEntry documents one sub-indicator: its unit, valid range, and the
// dimension that consumes it.
type CatalogEntry struct {
	Name      string  `json:"name" yaml:"name"`
	Dimension string  `json:"dimension" yaml:"dimension"`
	Unit      string  `json:"unit" yaml:"unit"`
	Min       float64 `json:"min" yaml:"min"`
	Max       float64 `json:"max" yaml:"max"`
}

// Catalog is the authoritative list of every sub-indicator the engine's
// dimension scorers expect. Upstream collaborators publish vectors against
// this contract.
type Catalog struct {
	entries map[string]CatalogEntry
}

// NewCatalog builds a catalog from entries, rejecting duplicate names.
func NewCatalog(entries []CatalogEntry) (*Catalog, error) {
	c := &Catalog{entries: make(map[string]CatalogEntry, len(entries))}
	for _, e := range entries {
		if _, dup := c.entries[e.Name]; dup {
			return nil, fmt.Errorf("duplicate catalog entry %q", e.Name)
		}
		if e.Min >= e.Max {
			return nil, fmt.Errorf("catalog entry %q: min %.4f must be below max %.4f", e.Name, e.Min, e.Max)
		}
		c.entries[e.Name] = e
	}
	return c, nil
}

// Lookup returns the catalog entry for an indicator name.
func (c *Catalog) Lookup(name string) (CatalogEntry, bool) {
	e, ok := c.entries[name]
	return e, ok
}

// Size returns the number of catalogued indicators.
func (c *Catalog) Size() int {
	return len(c.entries)
}

// RangeWarning reports a vector value outside its catalogued valid range.
// Warnings feed the audit trail; they never fail a scoring cycle.
type RangeWarning struct {
	Indicator string  `json:"indicator"`
	Value     float64 `json:"value"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
}

func (w RangeWarning) String() string {
	return fmt.Sprintf("%s=%.4f outside [%.4f, %.4f]", w.Indicator, w.Value, w.Min, w.Max)
}

// Validate checks every value in the vector against the catalog. Unknown
// indicators are ignored: upstream may publish more than the engine consumes.
// Warnings come back sorted by indicator name so identical vectors always
// produce identical audit records.
func (c *Catalog) Validate(v Vector) []RangeWarning {
	var warnings []RangeWarning
	for name, val := range v.Values {
		entry, ok := c.entries[name]
		if !ok {
			continue
		}
		if val < entry.Min || val > entry.Max {
			warnings = append(warnings, RangeWarning{
				Indicator: name,
				Value:     val,
				Min:       entry.Min,
				Max:       entry.Max,
			})
		}
	}
	sort.Slice(warnings, func(i, j int) bool { return warnings[i].Indicator < warnings[j].Indicator })
	return warnings
}
