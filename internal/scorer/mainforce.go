package scorer

// Main-force behavior dimension: order-level fingerprints of a dominant
// accumulator working a position without moving price.

func defaultMainForceTable() []SubIndicator {
	return []SubIndicator{
		{
			// Skew of executed order sizes toward large prints.
			Name:   "order_size_skew",
			Unit:   "ratio",
			Weight: 0.30,
			Norm:   NormRule{Kind: NormLinear, Min: 0.0, Max: 1.0},
		},
		{
			// Absorption of intraday pullbacks: dip volume bought vs sold.
			Name:   "pullback_absorption",
			Unit:   "ratio",
			Weight: 0.30,
			Norm:   NormRule{Kind: NormLinear, Min: 0.0, Max: 1.0},
		},
		{
			// Net bias of closing-auction participation.
			Name:   "closing_auction_bias",
			Unit:   "ratio",
			Weight: 0.20,
			Norm:   NormRule{Kind: NormLinear, Min: -1.0, Max: 1.0},
		},
		{
			// Average execution premium over session VWAP; a patient
			// accumulator pays at or below VWAP.
			Name:   "vwap_premium",
			Unit:   "ratio",
			Weight: 0.20,
			Norm:   NormRule{Kind: NormLinear, Min: -0.05, Max: 0.05, Invert: true},
		},
	}
}
