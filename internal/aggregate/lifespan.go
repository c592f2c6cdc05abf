package aggregate

import (
	"math"
)

// AverageLifespan computes the mean lifespan of units born in each interval of
// the given width (seconds). Buckets cover [0, maxDeath] rounded up to a full
// interval and are keyed by start/width. A unit's lifespan is clipped at the
// end of its birth bucket; units whose clipped lifespan is not positive are
// ignored. Empty buckets are 0.
func AverageLifespan(births, deaths map[int64]float64, width int) Buckets {
	out := make(Buckets)
	if width <= 0 {
		return out
	}

	limit := int(math.Floor(maxValue(deaths))) + width

	type acc struct {
		total float64
		count int
	}
	sums := make(map[int]*acc)

	for id, born := range births {
		if born < 0 {
			continue
		}
		key := int(math.Floor(born / float64(width)))
		end := float64((key + 1) * width)
		lifespan := math.Min(deathOrInf(deaths, id), end) - born
		if lifespan <= 0 {
			continue
		}
		a, ok := sums[key]
		if !ok {
			a = &acc{}
			sums[key] = a
		}
		a.total += lifespan
		a.count++
	}

	for start := 0; start < limit; start += width {
		key := start / width
		a, ok := sums[key]
		if !ok || a.count == 0 {
			out[key] = 0
			continue
		}
		out[key] = a.total / float64(a.count)
	}

	return out
}
