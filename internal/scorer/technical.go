package scorer

// Technical dimension: quiet base-building patterns that precede markup.

func defaultTechnicalTable() []SubIndicator {
	return []SubIndicator{
		{
			// Fraction of the lookback spent inside a tight platform.
			Name:   "platform_day_ratio",
			Unit:   "ratio",
			Weight: 0.25,
			Norm:   NormRule{Kind: NormKink, Min: 0.0, Max: 1.0, Threshold: 0.6, AtKink: 50},
		},
		{
			// Realized-volatility contraction vs the prior window.
			Name:   "volatility_contraction",
			Unit:   "ratio",
			Weight: 0.25,
			Norm:   NormRule{Kind: NormLinear, Min: 0.0, Max: 1.0},
		},
		{
			// Moving-average convergence: 1 when short/mid/long MAs braid.
			Name:   "ma_alignment",
			Unit:   "ratio",
			Weight: 0.20,
			Norm:   NormRule{Kind: NormLinear, Min: 0.0, Max: 1.0},
		},
		{
			// Volume shrinkage during consolidation vs the run-up mean.
			Name:   "volume_shrink_ratio",
			Unit:   "ratio",
			Weight: 0.15,
			Norm:   NormRule{Kind: NormLinear, Min: 0.0, Max: 1.0},
		},
		{
			// Successful tests of the platform floor without breakdown.
			Name:   "support_test_count",
			Unit:   "count",
			Weight: 0.15,
			Norm:   NormRule{Kind: NormLinear, Min: 0, Max: 8},
		},
	}
}
