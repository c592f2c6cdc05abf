package aggregate

import (
	"math"

	"github.com/google/uuid"

	"larvaworker/internal/replay"
)

func frames(sec float64) int64 {
	return int64(math.Round(sec * replay.FramesPerSecond))
}

func newRecording(name string, durationSec float64, players ...replay.Player) *replay.Recording {
	return &replay.Recording{
		ID:             uuid.New(),
		Name:           name,
		DurationFrames: frames(durationSec),
		Players:        players,
	}
}

func born(sec float64, unitID int64, unitType string, controller int) replay.Event {
	return replay.Event{Frame: frames(sec), Kind: replay.EventUnitBorn, UnitID: unitID, UnitType: unitType, ControlPlayerID: controller}
}

func morph(sec float64, unitID int64, newType string) replay.Event {
	return replay.Event{Frame: frames(sec), Kind: replay.EventUnitTypeChange, UnitID: unitID, UnitType: newType}
}

func died(sec float64, unitID int64) replay.Event {
	return replay.Event{Frame: frames(sec), Kind: replay.EventUnitDied, UnitID: unitID}
}

func stats(sec float64, player int, used, made float64) replay.Event {
	return replay.Event{Frame: frames(sec), Kind: replay.EventPlayerStats, PlayerID: player, FoodUsed: used, FoodMade: made}
}

// larvaCycle appends a larva for the controller every `every` seconds until
// `until`, each morphing into a drone `life` seconds later, plus a supply
// sample every 10 seconds. Events stay in chronological order.
func larvaCycle(rec *replay.Recording, controller int, every, life, until float64) {
	var events []replay.Event
	base := int64(controller * 100000)
	for t := 0.0; t < until; t += 1 {
		if math.Mod(t, 10) == 0 {
			events = append(events, stats(t, controller, 12+t/10, 14+t/10))
		}
		if math.Mod(t, every) == 0 {
			events = append(events, born(t, base+int64(t/every), DefaultUnitType, controller))
		}
		if t >= life && math.Mod(t-life, every) == 0 {
			events = append(events, morph(t, base+int64((t-life)/every), "Egg"))
		}
	}
	rec.Events = append(rec.Events, events...)
}

var (
	terran = replay.Player{ID: 1, Index: 1, Name: "Raynor", Faction: "Terran"}
	zergA  = replay.Player{ID: 2, Index: 2, Name: "Kerrigan", Faction: "Zerg"}
	zergB  = replay.Player{ID: 1, Index: 1, Name: "Abathur", Faction: "Zerg"}
)
