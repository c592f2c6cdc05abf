package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"larvaworker/internal/replay"
)

// SQLiteReader reads decoded replays from a local SQLite file, for running the
// worker next to a decoder without a Postgres instance.
type SQLiteReader struct {
	db *sql.DB
}

// NewSQLiteReader opens the SQLite database at dsn.
func NewSQLiteReader(dsn string) (*SQLiteReader, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = "file:replays.db?_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	return &SQLiteReader{db: db}, nil
}

// Init creates the replay tables if they do not exist.
func (r *SQLiteReader) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS replays (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			duration_frames INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS replay_players (
			replay_id TEXT NOT NULL,
			player_index INTEGER NOT NULL,
			player_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			faction TEXT NOT NULL,
			PRIMARY KEY (replay_id, player_index)
		)`,
		`CREATE TABLE IF NOT EXISTS replay_events (
			replay_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			frame INTEGER NOT NULL,
			kind TEXT NOT NULL,
			unit_id INTEGER,
			unit_type TEXT,
			control_player_id INTEGER,
			player_id INTEGER,
			food_used REAL,
			food_made REAL,
			PRIMARY KEY (replay_id, seq)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_replay_events_frame ON replay_events(replay_id, frame, seq)`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// GetRecording retrieves the roster and ordered event stream of a replay.
func (r *SQLiteReader) GetRecording(ctx context.Context, replayID uuid.UUID) (*replay.Recording, error) {
	rec := &replay.Recording{ID: replayID}

	err := r.db.QueryRowContext(ctx,
		`SELECT name, duration_frames FROM replays WHERE id = ?`, replayID.String(),
	).Scan(&rec.Name, &rec.DurationFrames)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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

func (r *SQLiteReader) getPlayers(ctx context.Context, replayID uuid.UUID) ([]replay.Player, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT player_index, player_id, name, faction
		FROM replay_players
		WHERE replay_id = ?
		ORDER BY player_index`, replayID.String())
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

func (r *SQLiteReader) getEvents(ctx context.Context, replayID uuid.UUID) ([]replay.Event, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT frame, kind, COALESCE(unit_id, 0), COALESCE(unit_type, ''),
		       COALESCE(control_player_id, 0), COALESCE(player_id, 0),
		       COALESCE(food_used, 0.0), COALESCE(food_made, 0.0)
		FROM replay_events
		WHERE replay_id = ?
		ORDER BY frame, seq`, replayID.String())
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

// Close closes the database handle.
func (r *SQLiteReader) Close() error {
	return r.db.Close()
}
