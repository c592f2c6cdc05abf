package aggregate

// ResourceUsage returns the supply used and supply capacity series of a
// timeline, with X in minutes.
func ResourceUsage(tl *Timeline) (used, capacity Series) {
	if tl == nil {
		return Series{}, Series{}
	}
	return samplesToSeries(tl.SupplyUsed), samplesToSeries(tl.SupplyMade)
}

// MovingAverage smooths a series with a trailing window of the given number of
// samples. The first window-1 points average over the samples available so far.
func MovingAverage(s Series, window int) Series {
	out := make(Series, len(s))
	if window <= 1 {
		copy(out, s)
		return out
	}

	sum := 0.0
	for i, p := range s {
		sum += p.Y
		if i >= window {
			sum -= s[i-window].Y
		}
		n := i + 1
		if n > window {
			n = window
		}
		out[i] = Point{X: p.X, Y: sum / float64(n)}
	}
	return out
}
