package replay

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// FramesPerSecond converts game loop frames to real-time seconds on "faster" game speed.
const FramesPerSecond = 22.4

// EventKind identifies the tracker event types the worker consumes.
type EventKind string

const (
	EventUnitBorn       EventKind = "unit_born"
	EventUnitTypeChange EventKind = "unit_type_change"
	EventUnitDied       EventKind = "unit_died"
	EventPlayerStats    EventKind = "player_stats"
)

// Valid reports whether the kind is one of the known tracker event kinds.
func (k EventKind) Valid() bool {
	switch k {
	case EventUnitBorn, EventUnitTypeChange, EventUnitDied, EventPlayerStats:
		return true
	}
	return false
}

var (
	ErrPlayerOutOfRange = errors.New("player index out of range")
	ErrNoMatchingPlayer = errors.New("no player matches faction")
	ErrMalformed        = errors.New("malformed recording")
)

// Event is a single decoded tracker event.
type Event struct {
	Frame           int64
	Kind            EventKind
	UnitID          int64
	UnitType        string // new type for unit_type_change
	ControlPlayerID int    // controlling player for unit events
	PlayerID        int    // owning player for player_stats
	FoodUsed        float64
	FoodMade        float64
}

// Seconds returns the event time in real-time seconds.
func (e Event) Seconds() float64 {
	return FrameToSeconds(e.Frame)
}

// Player is one roster entry of a recording.
type Player struct {
	ID      int    // in-game player id, matched against event controller ids
	Index   int    // 1-based roster position
	Name    string
	Faction string
}

// Recording is a fully decoded replay: roster plus chronologically ordered events.
type Recording struct {
	ID             uuid.UUID
	Name           string
	DurationFrames int64
	Players        []Player
	Events         []Event
}

// FrameToSeconds converts a frame count to seconds.
func FrameToSeconds(frame int64) float64 {
	return float64(frame) / FramesPerSecond
}

// Duration returns the recording length in seconds. When the decoder did not
// report a length, the last event frame is used.
func (r *Recording) Duration() float64 {
	if r.DurationFrames > 0 {
		return FrameToSeconds(r.DurationFrames)
	}
	if len(r.Events) == 0 {
		return 0
	}
	return r.Events[len(r.Events)-1].Seconds()
}

// Label returns a human readable recording identifier.
func (r *Recording) Label() string {
	if r.Name != "" {
		return r.Name
	}
	return r.ID.String()
}

// Validate checks the decoder's guarantees: a non-empty roster, known event
// kinds and non-decreasing frames. The stream is never reordered here.
func (r *Recording) Validate() error {
	if len(r.Players) == 0 {
		return fmt.Errorf("%w: empty roster", ErrMalformed)
	}
	var last int64
	for i, e := range r.Events {
		if !e.Kind.Valid() {
			return fmt.Errorf("%w: event %d has unknown kind %q", ErrMalformed, i, e.Kind)
		}
		if e.Frame < last {
			return fmt.Errorf("%w: event %d at frame %d precedes frame %d", ErrMalformed, i, e.Frame, last)
		}
		last = e.Frame
	}
	return nil
}

// PlayerAt returns the player at a 1-based roster position.
func (r *Recording) PlayerAt(index int) (Player, error) {
	if index < 1 || index > len(r.Players) {
		return Player{}, fmt.Errorf("%w: %d of %d", ErrPlayerOutOfRange, index, len(r.Players))
	}
	return r.Players[index-1], nil
}

// FirstOfFaction returns the first player in roster order playing the faction.
func (r *Recording) FirstOfFaction(faction string) (Player, error) {
	for _, p := range r.Players {
		if p.Faction == faction {
			return p, nil
		}
	}
	return Player{}, fmt.Errorf("%w: %q", ErrNoMatchingPlayer, faction)
}

// IsMirror reports whether this is a two player match where both play the faction.
// The front-end prompts for an explicit player selection in that case.
func (r *Recording) IsMirror(faction string) bool {
	if len(r.Players) != 2 {
		return false
	}
	for _, p := range r.Players {
		if p.Faction != faction {
			return false
		}
	}
	return true
}
