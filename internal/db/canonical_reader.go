package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"larvaworker/internal/replay"
)

// CanonicalReader provides read-only access to the decoded replay tables in Postgres.
type CanonicalReader struct {
	pool *pgxpool.Pool
}

// NewCanonicalReader creates a new canonical data reader.
func NewCanonicalReader(pool *pgxpool.Pool) *CanonicalReader {
	return &CanonicalReader{pool: pool}
}

// GetRecording retrieves the roster and ordered event stream of a replay.
func (r *CanonicalReader) GetRecording(ctx context.Context, replayID uuid.UUID) (*replay.Recording, error) {
	rec := &replay.Recording{ID: replayID}

	err := r.pool.QueryRow(ctx, `
		SELECT name, duration_frames
		FROM replays
		WHERE id = $1
	`, replayID).Scan(&rec.Name, &rec.DurationFrames)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrReplayNotFound, replayID)
		}
		return nil, fmt.Errorf("get replay info: %w", err)
	}

	players, err := r.getPlayers(ctx, replayID)
	if err != nil {
		return nil, fmt.Errorf("get players: %w", err)
	}
	rec.Players = players

	events, err := r.getEvents(ctx, replayID)
	if err != nil {
		return nil, fmt.Errorf("get events: %w", err)
	}
	rec.Events = events

	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return rec, nil
}

// getPlayers retrieves the roster in player index order.
func (r *CanonicalReader) getPlayers(ctx context.Context, replayID uuid.UUID) ([]replay.Player, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT player_index, player_id, name, faction
		FROM replay_players
		WHERE replay_id = $1
		ORDER BY player_index
	`, replayID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var players []replay.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

// getEvents retrieves tracker events in stream order.
func (r *CanonicalReader) getEvents(ctx context.Context, replayID uuid.UUID) ([]replay.Event, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT frame, kind, COALESCE(unit_id, 0), COALESCE(unit_type, ''),
		       COALESCE(control_player_id, 0), COALESCE(player_id, 0),
		       COALESCE(food_used, 0), COALESCE(food_made, 0)
		FROM replay_events
		WHERE replay_id = $1
		ORDER BY frame, seq
	`, replayID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []replay.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Close releases the connection pool.
func (r *CanonicalReader) Close() error {
	r.pool.Close()
	return nil
}
