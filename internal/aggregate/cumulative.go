package aggregate

import (
	"math"
	"sort"
)

// CumulativeTotal returns the running number of units born, one bucket per
// step seconds from 0 through the bucket holding the last birth. Bucket k
// counts births before (k+1)*step, so the final bucket holds the total.
func CumulativeTotal(births map[int64]float64, step int) Buckets {
	out := make(Buckets)
	if step <= 0 || len(births) == 0 {
		return out
	}

	times := make([]float64, 0, len(births))
	for _, t := range births {
		times = append(times, t)
	}
	sort.Float64s(times)

	last := int(math.Floor(times[len(times)-1] / float64(step)))
	idx := 0
	for k := 0; k <= last; k++ {
		end := float64((k + 1) * step)
		for idx < len(times) && times[idx] < end {
			idx++
		}
		out[k] = float64(idx)
	}
	return out
}
