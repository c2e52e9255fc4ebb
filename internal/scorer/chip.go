package scorer

// Chip-structure dimension: is ownership concentrating into fewer,
// larger hands at a tightening cost basis?

func defaultChipStructureTable() []SubIndicator {
	return []SubIndicator{
		{
			// Quarter-over-quarter holder count change. Shrinking holder
			// counts indicate concentration, so the scale is inverted.
			Name:   "holder_count_change",
			Unit:   "ratio",
			Weight: 0.30,
			Norm:   NormRule{Kind: NormLinear, Min: -0.5, Max: 0.5, Invert: true},
		},
		{
			// Change in average position size per holder.
			Name:   "avg_holding_change",
			Unit:   "ratio",
			Weight: 0.20,
			Norm:   NormRule{Kind: NormLinear, Min: -0.5, Max: 0.5},
		},
		{
			// Top-10 shareholder concentration of float.
			Name:   "top10_concentration",
			Unit:   "ratio",
			Weight: 0.25,
			Norm:   NormRule{Kind: NormLinear, Min: 0.0, Max: 0.8},
		},
		{
			// Width of the cost-distribution band around its peak; a
			// narrow band means chips have changed hands near one price.
			Name:   "cost_band_width",
			Unit:   "ratio",
			Weight: 0.25,
			Norm:   NormRule{Kind: NormLinear, Min: 0.0, Max: 0.6, Invert: true},
		},
	}
}
