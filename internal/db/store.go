package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"larvaworker/internal/config"
	"larvaworker/internal/replay"
)

// ErrReplayNotFound is returned when a replay id has no row in the replays table.
var ErrReplayNotFound = errors.New("replay not found")

// RecordingSource loads decoded replays.
type RecordingSource interface {
	GetRecording(ctx context.Context, replayID uuid.UUID) (*replay.Recording, error)
	Close() error
}

// NewSource opens the recording store selected by the configured driver.
func NewSource(ctx context.Context, cfg *config.Config) (RecordingSource, error) {
	switch strings.ToLower(cfg.StoreDriver) {
	case "", "postgres", "postgresql":
		pool, err := NewPool(ctx, cfg.DBURL)
		if err != nil {
			return nil, fmt.Errorf("postgres pool: %w", err)
		}
		return NewCanonicalReader(pool), nil
	case "sqlite":
		return NewSQLiteReader(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}

// rowScanner is satisfied by both pgx.Rows and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlayer(row rowScanner) (replay.Player, error) {
	var p replay.Player
	err := row.Scan(&p.Index, &p.ID, &p.Name, &p.Faction)
	return p, err
}

func scanEvent(row rowScanner) (replay.Event, error) {
	var (
		e    replay.Event
		kind string
	)
	err := row.Scan(&e.Frame, &kind, &e.UnitID, &e.UnitType,
		&e.ControlPlayerID, &e.PlayerID, &e.FoodUsed, &e.FoodMade)
	e.Kind = replay.EventKind(kind)
	return e, err
}
