package aggregate

import (
	"math"
	"sort"

	"larvaworker/internal/replay"
)

// Defaults for larva analysis.
const (
	DefaultUnitType        = "Larva"
	DefaultFaction         = "Zerg"
	DefaultLifespanWidth   = 15 // seconds
	DefaultSmoothingWindow = 30 // samples
	DefaultCumulativeStep  = 1  // seconds
)

// Timeline holds the normalized lifecycle data for one player of one recording.
// Births and Deaths map unit id to seconds. A unit absent from Deaths is alive
// at the end of the recording.
type Timeline struct {
	Recording  *replay.Recording
	Player     replay.Player
	Births     map[int64]float64
	Deaths     map[int64]float64
	SupplyUsed map[float64]float64
	SupplyMade map[float64]float64
	Duration   float64 // seconds
}

// Phase is a named segment of the match with its own idle threshold.
type Phase struct {
	Name          string
	StartMinute   int
	EndMinute     int
	IdleThreshold float64 // seconds
}

var (
	EarlyGame = Phase{Name: "Early Game", StartMinute: 0, EndMinute: 7, IdleThreshold: 5}
	LateGame  = Phase{Name: "Late Game", StartMinute: 7, EndMinute: 15, IdleThreshold: 15}
)

// DefaultPhases returns the standard early/late game phase split.
func DefaultPhases() []Phase {
	return []Phase{EarlyGame, LateGame}
}

// Resolution selects how idle counts are reported.
type Resolution int

const (
	PerSecond Resolution = iota
	PerMinute
)

// Buckets maps a bucket key to its value.
type Buckets map[int]float64

// Keys returns the bucket keys in ascending order.
func (b Buckets) Keys() []int {
	keys := make([]int, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// DropLast returns a copy without the highest key. Used to hide the final,
// usually incomplete, bucket.
func (b Buckets) DropLast() Buckets {
	out := make(Buckets, len(b))
	keys := b.Keys()
	for i, k := range keys {
		if i == len(keys)-1 {
			break
		}
		out[k] = b[k]
	}
	return out
}

// Series converts buckets into an ordered series, scaling each key by xPerKey.
func (b Buckets) Series(xPerKey float64) Series {
	keys := b.Keys()
	s := make(Series, 0, len(keys))
	for _, k := range keys {
		s = append(s, Point{X: float64(k) * xPerKey, Y: b[k]})
	}
	return s
}

// Point is one x/y sample of a series.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Series is an ordered list of points, ascending by X.
type Series []Point

// TrimX returns the points with X <= max.
func (s Series) TrimX(max float64) Series {
	out := make(Series, 0, len(s))
	for _, p := range s {
		if p.X > max {
			break
		}
		out = append(out, p)
	}
	return out
}

// MaxY returns the largest Y value, 0 for an empty series.
func (s Series) MaxY() float64 {
	m := 0.0
	for _, p := range s {
		m = math.Max(m, p.Y)
	}
	return m
}

// samplesToSeries orders time->value samples into a series with X in minutes.
func samplesToSeries(samples map[float64]float64) Series {
	times := make([]float64, 0, len(samples))
	for t := range samples {
		times = append(times, t)
	}
	sort.Float64s(times)
	s := make(Series, 0, len(times))
	for _, t := range times {
		s = append(s, Point{X: t / 60, Y: samples[t]})
	}
	return s
}

// maxValue returns the largest value of a time mapping, 0 when empty.
func maxValue(m map[int64]float64) float64 {
	max := 0.0
	for _, v := range m {
		if v > max {
			max = v
		}
	}
	return max
}

// deathOrInf returns the end-of-life time of a unit, +Inf while alive.
func deathOrInf(deaths map[int64]float64, id int64) float64 {
	if d, ok := deaths[id]; ok {
		return d
	}
	return math.Inf(1)
}
