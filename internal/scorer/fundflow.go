package scorer

// Fund-flow dimension: is main capital persistently buying?

func defaultFundFlowTable() []SubIndicator {
	return []SubIndicator{
		{
			// Net main-capital inflow as a fraction of turnover.
			Name:   "net_inflow_ratio",
			Unit:   "ratio",
			Weight: 0.30,
			Norm:   NormRule{Kind: NormLinear, Min: -1.0, Max: 1.0},
		},
		{
			// Fraction of sessions in the lookback with net inflow.
			// Persistence past 0.75 is the strong-accumulation zone.
			Name:   "inflow_day_ratio",
			Unit:   "ratio",
			Weight: 0.25,
			Norm:   NormRule{Kind: NormKink, Min: 0.0, Max: 1.0, Threshold: 0.75, AtKink: 40},
		},
		{
			// Net large-order flow relative to gross large-order volume.
			Name:   "large_order_net_ratio",
			Unit:   "ratio",
			Weight: 0.25,
			Norm:   NormRule{Kind: NormLinear, Min: -1.0, Max: 1.0},
		},
		{
			// Second difference of cumulative net inflow, normalized.
			Name:   "inflow_acceleration",
			Unit:   "ratio",
			Weight: 0.20,
			Norm:   NormRule{Kind: NormLinear, Min: -1.0, Max: 1.0},
		},
	}
}
