package scorer

// Market-environment dimension: does the broader tape support an ambush
// resolving upward?

func defaultMarketEnvTable() []SubIndicator {
	return []SubIndicator{
		{
			// Composite index trend score supplied upstream, already 0-100.
			Name:   "index_trend_score",
			Unit:   "score",
			Weight: 0.30,
			Norm:   NormRule{Kind: NormLinear, Min: 0, Max: 100},
		},
		{
			// Advancing fraction of the whole market.
			Name:   "breadth_advance_ratio",
			Unit:   "ratio",
			Weight: 0.25,
			Norm:   NormRule{Kind: NormLinear, Min: 0.0, Max: 1.0},
		},
		{
			// Symbol's sector strength relative to the index.
			Name:   "sector_relative_strength",
			Unit:   "ratio",
			Weight: 0.25,
			Norm:   NormRule{Kind: NormLinear, Min: -1.0, Max: 1.0},
		},
		{
			// Northbound (cross-border) net flow as a fraction of quota.
			Name:   "northbound_inflow_ratio",
			Unit:   "ratio",
			Weight: 0.20,
			Norm:   NormRule{Kind: NormLinear, Min: -1.0, Max: 1.0},
		},
	}
}
