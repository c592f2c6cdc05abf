package aggregate

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"larvaworker/internal/replay"
)

// Chart identifiers.
const (
	ChartLifespan        = "lifespan"
	ChartIdleEarly       = "idle_early"
	ChartSupplyPrimary   = "supply_primary"
	ChartSupplyBenchmark = "supply_benchmark"
	ChartCumulative      = "cumulative"
)

// Options tunes the comparison. Zero values fall back to the defaults.
type Options struct {
	UnitType        string
	LifespanWidth   int // seconds
	SmoothingWindow int // samples
	CumulativeStep  int // seconds
	IdlePhase       Phase
}

func (o Options) withDefaults() Options {
	if o.UnitType == "" {
		o.UnitType = DefaultUnitType
	}
	if o.LifespanWidth <= 0 {
		o.LifespanWidth = DefaultLifespanWidth
	}
	if o.SmoothingWindow <= 0 {
		o.SmoothingWindow = DefaultSmoothingWindow
	}
	if o.CumulativeStep <= 0 {
		o.CumulativeStep = DefaultCumulativeStep
	}
	if o.IdlePhase.Name == "" {
		o.IdlePhase = EarlyGame
	}
	return o
}

// ComparisonRequest names the recordings and players to compare. Benchmark may
// be nil, in which case the primary recording is analyzed on both sides.
type ComparisonRequest struct {
	Primary         *replay.Recording
	Benchmark       *replay.Recording
	PrimaryPlayer   PlayerSelector
	BenchmarkPlayer PlayerSelector
	Options         Options
}

// NamedSeries is one labeled line of a chart.
type NamedSeries struct {
	Name   string `json:"name"`
	Points Series `json:"points"`
}

// ChartHints carries optional axis hints for the renderer.
type ChartHints struct {
	SmoothingWindow int     `json:"smoothing_window,omitempty"`
	XMax            float64 `json:"x_max,omitempty"`
	YMax            float64 `json:"y_max,omitempty"`
}

// Chart is a titled set of series ready for rendering.
type Chart struct {
	ID     string        `json:"id"`
	Title  string        `json:"title"`
	XLabel string        `json:"x_label"`
	YLabel string        `json:"y_label"`
	Series []NamedSeries `json:"series"`
	Hints  ChartHints    `json:"hints"`
}

// Comparison is the assembled output of one analysis.
type Comparison struct {
	PrimaryName   string  `json:"primary_name"`
	BenchmarkName string  `json:"benchmark_name"`
	SameSide      bool    `json:"same_side"`
	XMax          float64 `json:"x_max"` // minutes
	Charts        []Chart `json:"charts"`
}

// Chart returns the chart with the given id.
func (c *Comparison) Chart(id string) (Chart, bool) {
	for _, ch := range c.Charts {
		if ch.ID == id {
			return ch, true
		}
	}
	return Chart{}, false
}

// side is one normalized half of a comparison.
type side struct {
	name     string
	timeline *Timeline
}

// BuildComparison normalizes both sides of the request and assembles the
// lifespan, idle, supply and cumulative charts. Paired series are trimmed to
// the duration of the shorter recording.
func BuildComparison(req ComparisonRequest) (*Comparison, error) {
	if req.Primary == nil {
		return nil, ErrNilRecording
	}
	opts := req.Options.withDefaults()

	benchRec := req.Benchmark
	benchSel := req.BenchmarkPlayer
	if benchRec == nil {
		benchRec = req.Primary
		if !benchSel.IsSet() {
			benchSel = req.PrimaryPlayer
		}
	}

	primaryTL, err := Normalize(req.Primary, req.PrimaryPlayer, opts.UnitType)
	if err != nil {
		return nil, fmt.Errorf("primary %s: %w", req.Primary.Label(), err)
	}
	benchTL, err := Normalize(benchRec, benchSel, opts.UnitType)
	if err != nil {
		return nil, fmt.Errorf("benchmark %s: %w", benchRec.Label(), err)
	}

	sameRec := sameRecording(req.Primary, benchRec)
	primary := side{name: primaryTL.Player.Name, timeline: primaryTL}
	bench := side{name: benchTL.Player.Name, timeline: benchTL}
	if primary.name == bench.name && !sameRec {
		primary.name = fmt.Sprintf("%s (%s)", primary.name, req.Primary.Label())
		bench.name = fmt.Sprintf("%s (%s)", bench.name, benchRec.Label())
	}

	xMax := math.Min(primaryTL.Duration, benchTL.Duration) / 60
	cmp := &Comparison{
		PrimaryName:   primary.name,
		BenchmarkName: bench.name,
		SameSide:      sameRec && primaryTL.Player.ID == benchTL.Player.ID,
		XMax:          xMax,
	}

	cmp.Charts = append(cmp.Charts,
		lifespanChart(primary, bench, opts, xMax, cmp.SameSide),
		idleChart(primary, bench, opts, xMax, cmp.SameSide),
		supplyChart(ChartSupplyPrimary, primary),
	)
	if !cmp.SameSide {
		cmp.Charts = append(cmp.Charts, supplyChart(ChartSupplyBenchmark, bench))
	}
	cmp.Charts = append(cmp.Charts, cumulativeChart(primary, bench, opts, xMax, cmp.SameSide))

	return cmp, nil
}

func lifespanChart(primary, bench side, opts Options, xMax float64, single bool) Chart {
	width := opts.LifespanWidth
	build := func(s side) Series {
		b := AverageLifespan(s.timeline.Births, s.timeline.Deaths, width).DropLast()
		return b.Series(float64(width) / 60).TrimX(xMax)
	}
	return Chart{
		ID:     ChartLifespan,
		Title:  "Average Larva Lifespan Comparison",
		XLabel: "Time (minutes)",
		YLabel: "Average Lifespan (seconds)",
		Series: pair(primary, bench, build, single),
		Hints:  ChartHints{XMax: xMax, YMax: float64(width)},
	}
}

func idleChart(primary, bench side, opts Options, xMax float64, single bool) Chart {
	phase := opts.IdlePhase
	build := func(s side) Series {
		b := IdlePerSecond(s.timeline.Births, s.timeline.Deaths, phase.StartMinute*60, phase.EndMinute*60, phase.IdleThreshold)
		return MovingAverage(b.Series(1.0/60), opts.SmoothingWindow).TrimX(xMax)
	}
	return Chart{
		ID:     ChartIdleEarly,
		Title:  fmt.Sprintf("Average Idle Larva During %s: >%g Second Idle Time", phase.Name, phase.IdleThreshold),
		XLabel: "Time (minutes)",
		YLabel: "Average Idle Larva Count",
		Series: pair(primary, bench, build, single),
		Hints: ChartHints{
			SmoothingWindow: opts.SmoothingWindow,
			XMax:            math.Min(xMax, float64(phase.EndMinute)),
		},
	}
}

func supplyChart(id string, s side) Chart {
	used, capacity := ResourceUsage(s.timeline)
	return Chart{
		ID:     id,
		Title:  fmt.Sprintf("Supply Used vs Supply Capacity: %s", s.name),
		XLabel: "Time (minutes)",
		YLabel: "Supply",
		Series: []NamedSeries{
			{Name: "Supply Used", Points: used},
			{Name: "Supply Capacity", Points: capacity},
		},
		Hints: ChartHints{XMax: s.timeline.Duration / 60},
	}
}

func cumulativeChart(primary, bench side, opts Options, xMax float64, single bool) Chart {
	step := opts.CumulativeStep
	build := func(s side) Series {
		return CumulativeTotal(s.timeline.Births, step).Series(float64(step) / 60).TrimX(xMax)
	}
	return Chart{
		ID:     ChartCumulative,
		Title:  "Total Larva Spawned",
		XLabel: "Time (minutes)",
		YLabel: "Larva Count",
		Series: pair(primary, bench, build, single),
		Hints:  ChartHints{XMax: xMax},
	}
}

// pair builds the primary and benchmark series. When both sides are the same
// player of the same recording only one series is emitted.
func pair(primary, bench side, build func(side) Series, single bool) []NamedSeries {
	out := []NamedSeries{{Name: primary.name, Points: build(primary)}}
	if !single {
		out = append(out, NamedSeries{Name: bench.name, Points: build(bench)})
	}
	return out
}

func sameRecording(a, b *replay.Recording) bool {
	if a == b {
		return true
	}
	return a.ID != uuid.Nil && a.ID == b.ID
}
