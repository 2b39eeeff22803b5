package scoring

// Compose combines the available signals into one weighted total. Weights of
// unavailable signals are redistributed proportionally across the remaining
// ones, so a pair missing an optional signal (no photo, no coordinates) is
// not penalized for the absence itself. All-null breakdowns score 0 and are
// never surfaced as candidates.
func Compose(b Breakdown, p Params) float64 {
	var sum, weightSum float64

	add := func(value *float64, weight float64) {
		if value == nil || weight <= 0 {
			return
		}
		sum += clamp01(*value) * weight
		weightSum += weight
	}

	add(b.Geo, p.GeoWeight)
	add(b.Temporal, p.TemporalWeight)
	add(b.Text, p.TextWeight)
	add(b.Visual, p.VisualWeight)

	if weightSum == 0 {
		return 0
	}
	return clamp01(sum / weightSum)
}
