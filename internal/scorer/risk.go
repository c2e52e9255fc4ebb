package scorer

// Risk-assessment dimension: a high score means a clean balance sheet and
// low structural selling pressure, not a high-risk one.

func defaultRiskTable() []SubIndicator {
	return []SubIndicator{
		{
			// Valuation percentile within the symbol's own 5y history.
			Name:   "valuation_percentile",
			Unit:   "ratio",
			Weight: 0.25,
			Norm:   NormRule{Kind: NormLinear, Min: 0.0, Max: 1.0, Invert: true},
		},
		{
			// Controlling-shareholder pledge ratio.
			Name:   "pledge_ratio",
			Unit:   "ratio",
			Weight: 0.25,
			Norm:   NormRule{Kind: NormLinear, Min: 0.0, Max: 0.8, Invert: true},
		},
		{
			// Goodwill as a fraction of net assets.
			Name:   "goodwill_ratio",
			Unit:   "ratio",
			Weight: 0.20,
			Norm:   NormRule{Kind: NormLinear, Min: 0.0, Max: 0.6, Invert: true},
		},
		{
			// Lockup shares unlocking within 90 days, fraction of float.
			Name:   "unlock_pressure_90d",
			Unit:   "ratio",
			Weight: 0.15,
			Norm:   NormRule{Kind: NormLinear, Min: 0.0, Max: 0.5, Invert: true},
		},
		{
			// Regulatory attention flag strength (inquiries, sanctions).
			Name:   "regulatory_flag",
			Unit:   "ratio",
			Weight: 0.15,
			Norm:   NormRule{Kind: NormLinear, Min: 0.0, Max: 1.0, Invert: true},
		},
	}
}
