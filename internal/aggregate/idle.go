package aggregate

import (
	"math"
)

// IdlePerSecond counts, for every whole second t in [startSec, min(endSec, maxDeath)],
// the units with birth+threshold <= t <= death. Units still alive count through
// the end of the range.
func IdlePerSecond(births, deaths map[int64]float64, startSec, endSec int, threshold float64) Buckets {
	out := make(Buckets)

	lo := startSec
	hi := endSec
	if last := int(math.Floor(maxValue(deaths))); last < hi {
		hi = last
	}
	if hi < lo {
		return out
	}

	// diff[i] holds the change in idle count at second lo+i.
	diff := make([]int, hi-lo+2)
	for id, born := range births {
		on := int(math.Ceil(born + threshold))
		off := hi
		if d := deathOrInf(deaths, id); !math.IsInf(d, 1) {
			off = int(math.Floor(d))
		}
		if on < lo {
			on = lo
		}
		if off > hi {
			off = hi
		}
		if on > off {
			continue
		}
		diff[on-lo]++
		diff[off-lo+1]--
	}

	count := 0
	for t := lo; t <= hi; t++ {
		count += diff[t-lo]
		out[t] = float64(count)
	}
	return out
}

// IdlePerMinute sums the per-second idle counts of each minute and divides by
// 60, giving the average idle count per second within that minute. A partial
// trailing minute is still divided by 60.
func IdlePerMinute(births, deaths map[int64]float64, startSec, endSec int, threshold float64) Buckets {
	perSecond := IdlePerSecond(births, deaths, startSec, endSec, threshold)
	out := make(Buckets)
	for t, n := range perSecond {
		out[t/60] += n
	}
	for minute := range out {
		out[minute] /= 60
	}
	return out
}

// IdleByPhase evaluates idle counts independently for each phase, keyed by phase name.
func IdleByPhase(births, deaths map[int64]float64, phases []Phase, res Resolution) map[string]Buckets {
	out := make(map[string]Buckets, len(phases))
	for _, p := range phases {
		start, end := p.StartMinute*60, p.EndMinute*60
		switch res {
		case PerMinute:
			out[p.Name] = IdlePerMinute(births, deaths, start, end, p.IdleThreshold)
		default:
			out[p.Name] = IdlePerSecond(births, deaths, start, end, p.IdleThreshold)
		}
	}
	return out
}
