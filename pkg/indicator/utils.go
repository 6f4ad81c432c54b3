package indicator

// mean returns the arithmetic mean of values; callers guarantee len(values) > 0
func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
