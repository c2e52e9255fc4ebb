package scorer

import (
	"github.com/E4Saber/stock-analyzer-sub000/internal/indicator"
)

// BuildCatalog derives the indicator catalog from a scorer configuration:
// every sub-indicator a dimension expects, with its unit and the valid raw
// range implied by its normalization rule.
func BuildCatalog(cfg *Config) (*indicator.Catalog, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	var entries []indicator.CatalogEntry
	for _, dim := range AllDimensions {
		for _, sub := range cfg.Dimensions[dim.String()] {
			entries = append(entries, indicator.CatalogEntry{
				Name:      sub.Name,
				Dimension: dim.String(),
				Unit:      sub.Unit,
				Min:       sub.Norm.Min,
				Max:       sub.Norm.Max,
			})
		}
	}
	return indicator.NewCatalog(entries)
}
