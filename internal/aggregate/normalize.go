package aggregate

import (
	"errors"
	"fmt"

	"larvaworker/internal/replay"
)

// ErrNilRecording is returned when a normalization is requested without a recording.
var ErrNilRecording = errors.New("recording is nil")

// PlayerSelector picks the player to analyze. Index > 0 selects a 1-based
// roster position; Index == 0 infers the first player of Faction.
type PlayerSelector struct {
	Index   int
	Faction string
}

// IsSet reports whether an explicit roster position was requested.
func (s PlayerSelector) IsSet() bool {
	return s.Index > 0
}

// Resolve returns the selected player of the recording.
func (s PlayerSelector) Resolve(rec *replay.Recording) (replay.Player, error) {
	if s.IsSet() {
		return rec.PlayerAt(s.Index)
	}
	faction := s.Faction
	if faction == "" {
		faction = DefaultFaction
	}
	return rec.FirstOfFaction(faction)
}

// Normalize reduces a recording's event stream to the lifecycle of one unit
// type owned by the selected player, plus that player's supply samples.
//
// Duplicate birth events for the same unit overwrite the earlier birth time.
// The first type change or death of a born unit is its end of life; later
// events for the same unit are ignored.
func Normalize(rec *replay.Recording, sel PlayerSelector, unitType string) (*Timeline, error) {
	if rec == nil {
		return nil, ErrNilRecording
	}
	if unitType == "" {
		unitType = DefaultUnitType
	}

	player, err := sel.Resolve(rec)
	if err != nil {
		return nil, fmt.Errorf("resolve player: %w", err)
	}

	tl := &Timeline{
		Recording:  rec,
		Player:     player,
		Births:     make(map[int64]float64),
		Deaths:     make(map[int64]float64),
		SupplyUsed: make(map[float64]float64),
		SupplyMade: make(map[float64]float64),
		Duration:   rec.Duration(),
	}

	for _, e := range rec.Events {
		switch e.Kind {
		case replay.EventUnitBorn:
			if e.UnitType == unitType && e.ControlPlayerID == player.ID {
				tl.Births[e.UnitID] = e.Seconds()
			}

		case replay.EventUnitTypeChange:
			if e.UnitType == unitType {
				continue
			}
			tl.markEnd(e)

		case replay.EventUnitDied:
			tl.markEnd(e)

		case replay.EventPlayerStats:
			if e.PlayerID != player.ID {
				continue
			}
			t := e.Seconds()
			tl.SupplyUsed[t] = e.FoodUsed
			tl.SupplyMade[t] = e.FoodMade
		}
	}

	return tl, nil
}

// markEnd records the end of life of a tracked unit unless one is already set.
func (tl *Timeline) markEnd(e replay.Event) {
	if _, born := tl.Births[e.UnitID]; !born {
		return
	}
	if _, ended := tl.Deaths[e.UnitID]; ended {
		return
	}
	tl.Deaths[e.UnitID] = e.Seconds()
}
