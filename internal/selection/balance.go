package selection

// targetShares normalizes category weights into shares summing to one.
func targetShares(weights map[string]float64) map[string]float64 {
	total := 0.0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total == 0 {
		return nil
	}
	shares := make(map[string]float64, len(weights))
	for cat, w := range weights {
		if w > 0 {
			shares[cat] = w / total
		}
	}
	return shares
}

// categoryDeficit is the target share minus the share already asked.
// Positive values mean the category is under-represented.
func categoryDeficit(category string, shares map[string]float64, asked map[string]int, totalAsked int) float64 {
	if shares == nil {
		return 0
	}
	actual := 0.0
	if totalAsked > 0 {
		actual = float64(asked[category]) / float64(totalAsked)
	}
	return shares[category] - actual
}

// variance returns the population variance of values.
func variance(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	sum := 0.0
	for _, v := range values {
		sum += (v - mean) * (v - mean)
	}
	return sum / float64(len(values))
}
