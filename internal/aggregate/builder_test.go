package aggregate

import (
	"errors"
	"math"
	"testing"

	"larvaworker/internal/replay"
)

func TestBuildComparisonTrimsToShorterRecording(t *testing.T) {
	short := newRecording("short.SC2Replay", 60, zergA)
	larvaCycle(short, zergA.ID, 5, 3, 60)
	long := newRecording("long.SC2Replay", 120, zergB)
	larvaCycle(long, zergB.ID, 5, 3, 120)

	cmp, err := BuildComparison(ComparisonRequest{Primary: short, Benchmark: long})
	if err != nil {
		t.Fatalf("BuildComparison: %v", err)
	}

	if math.Abs(cmp.XMax-1) > 1e-6 {
		t.Fatalf("XMax = %v, want 1 minute", cmp.XMax)
	}
	if cmp.SameSide {
		t.Errorf("different recordings must not be the same side")
	}

	for _, id := range []string{ChartLifespan, ChartIdleEarly, ChartCumulative} {
		ch, ok := cmp.Chart(id)
		if !ok {
			t.Fatalf("missing chart %s", id)
		}
		if len(ch.Series) != 2 {
			t.Fatalf("%s: %d series, want 2", id, len(ch.Series))
		}
		for _, s := range ch.Series {
			if len(s.Points) == 0 {
				t.Errorf("%s/%s: empty series", id, s.Name)
			}
			for _, p := range s.Points {
				if p.X > cmp.XMax+1e-9 {
					t.Errorf("%s/%s: point at %v beyond %v", id, s.Name, p.X, cmp.XMax)
				}
			}
		}
	}

	if _, ok := cmp.Chart(ChartSupplyPrimary); !ok {
		t.Errorf("missing primary supply chart")
	}
	if _, ok := cmp.Chart(ChartSupplyBenchmark); !ok {
		t.Errorf("missing benchmark supply chart")
	}
}

func TestBuildComparisonLifespanDropsLastBucket(t *testing.T) {
	rec := newRecording("solo.SC2Replay", 60, zergA)
	larvaCycle(rec, zergA.ID, 5, 3, 60)

	cmp, err := BuildComparison(ComparisonRequest{Primary: rec})
	if err != nil {
		t.Fatalf("BuildComparison: %v", err)
	}

	ch, _ := cmp.Chart(ChartLifespan)
	points := ch.Series[0].Points
	// Last morph at ~58s gives 15s buckets 0..4; the trailing one is hidden.
	if len(points) != 4 {
		t.Fatalf("got %d lifespan points, want 4: %v", len(points), points)
	}
	for _, p := range points {
		if math.Abs(p.Y-3) > 0.1 {
			t.Errorf("lifespan at %v = %v, want ~3s", p.X, p.Y)
		}
	}
	if points[1].X != 0.25 {
		t.Errorf("15s buckets must be 0.25 minutes apart, got %v", points[1].X)
	}
}

func TestBuildComparisonSingleRecording(t *testing.T) {
	rec := newRecording("solo.SC2Replay", 90, terran, zergA)
	larvaCycle(rec, zergA.ID, 4, 11, 90)

	cmp, err := BuildComparison(ComparisonRequest{Primary: rec})
	if err != nil {
		t.Fatalf("BuildComparison: %v", err)
	}

	if !cmp.SameSide {
		t.Errorf("single recording without selectors must compare a player with itself")
	}
	if len(cmp.Charts) != 4 {
		t.Errorf("got %d charts, want 4", len(cmp.Charts))
	}
	if _, ok := cmp.Chart(ChartSupplyBenchmark); ok {
		t.Errorf("benchmark supply chart must be omitted for the same side")
	}
	idle, _ := cmp.Chart(ChartIdleEarly)
	if len(idle.Series) != 1 {
		t.Errorf("idle chart has %d series, want 1", len(idle.Series))
	}
	if idle.Hints.SmoothingWindow != DefaultSmoothingWindow {
		t.Errorf("smoothing hint = %d", idle.Hints.SmoothingWindow)
	}
	if idle.Series[0].Points.MaxY() == 0 {
		t.Errorf("larva living 11s must show idle time above the 5s threshold")
	}
}

func TestBuildComparisonSingleRecordingCopiesSelector(t *testing.T) {
	rec := newRecording("zvz.SC2Replay", 60, zergB, zergA)

	cmp, err := BuildComparison(ComparisonRequest{Primary: rec, PrimaryPlayer: PlayerSelector{Index: 2}})
	if err != nil {
		t.Fatalf("BuildComparison: %v", err)
	}
	if cmp.PrimaryName != zergA.Name || cmp.BenchmarkName != zergA.Name || !cmp.SameSide {
		t.Errorf("got %q vs %q (same=%v), want %q on both sides", cmp.PrimaryName, cmp.BenchmarkName, cmp.SameSide, zergA.Name)
	}
}

func TestBuildComparisonOneSelectorTwoRecordings(t *testing.T) {
	a := newRecording("a.SC2Replay", 60, zergB, zergA)
	b := newRecording("b.SC2Replay", 60, zergB, zergA)

	cmp, err := BuildComparison(ComparisonRequest{Primary: a, Benchmark: b, PrimaryPlayer: PlayerSelector{Index: 2}})
	if err != nil {
		t.Fatalf("BuildComparison: %v", err)
	}
	if cmp.PrimaryName != zergA.Name {
		t.Errorf("primary = %q, want %q", cmp.PrimaryName, zergA.Name)
	}
	if cmp.BenchmarkName != zergB.Name {
		t.Errorf("benchmark = %q, want inferred %q", cmp.BenchmarkName, zergB.Name)
	}
}

func TestBuildComparisonDisambiguatesNames(t *testing.T) {
	a := newRecording("a.SC2Replay", 60, zergA)
	b := newRecording("b.SC2Replay", 60, zergA)

	cmp, err := BuildComparison(ComparisonRequest{Primary: a, Benchmark: b})
	if err != nil {
		t.Fatalf("BuildComparison: %v", err)
	}
	if cmp.PrimaryName != "Kerrigan (a.SC2Replay)" || cmp.BenchmarkName != "Kerrigan (b.SC2Replay)" {
		t.Errorf("got %q / %q", cmp.PrimaryName, cmp.BenchmarkName)
	}
	ch, _ := cmp.Chart(ChartCumulative)
	if ch.Series[0].Name == ch.Series[1].Name {
		t.Errorf("series names must differ")
	}
}

func TestBuildComparisonFailures(t *testing.T) {
	zerg := newRecording("zerg.SC2Replay", 60, zergA)
	tvt := newRecording("tvt.SC2Replay", 60, terran)

	if _, err := BuildComparison(ComparisonRequest{}); !errors.Is(err, ErrNilRecording) {
		t.Errorf("missing recording err = %v", err)
	}
	if _, err := BuildComparison(ComparisonRequest{Primary: zerg, Benchmark: tvt}); !errors.Is(err, replay.ErrNoMatchingPlayer) {
		t.Errorf("benchmark without zerg err = %v", err)
	}
	if _, err := BuildComparison(ComparisonRequest{Primary: zerg, PrimaryPlayer: PlayerSelector{Index: 5}}); !errors.Is(err, replay.ErrPlayerOutOfRange) {
		t.Errorf("out of range err = %v", err)
	}
}
