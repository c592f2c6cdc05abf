package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"larvaworker/internal/aggregate"
	"larvaworker/internal/db"
	"larvaworker/internal/logging"
	"larvaworker/internal/queue"
	"larvaworker/internal/replay"
)

// Request kinds.
const (
	KindAnalyze = "analyze"
	KindCompare = "compare"
	KindRoster  = "roster"
)

// Response statuses and error codes.
const (
	StatusOK    = "ok"
	StatusError = "error"

	CodeInvalidRequest   = "invalid_request"
	CodeReplayNotFound   = "replay_not_found"
	CodeMalformedReplay  = "malformed_replay"
	CodeNoMatchingPlayer = "no_matching_player"
	CodePlayerOutOfRange = "player_out_of_range"
	CodeAnalysisFailed   = "analysis_failed"
)

// JobPayload represents the incoming job from the Redis queue. Players holds
// one optional 1-based roster index per replay; 0 lets the worker infer the
// zerg player.
type JobPayload struct {
	RequestID string   `json:"request_id"`
	Kind      string   `json:"kind"`
	ReplayIDs []string `json:"replay_ids"`
	Players   []int    `json:"players,omitempty"`
	ReplyTo   string   `json:"reply_to,omitempty"`
}

// Response is published to the reply list of a request.
type Response struct {
	RequestID  string                `json:"request_id"`
	Kind       string                `json:"kind"`
	Status     string                `json:"status"`
	ErrorCode  string                `json:"error_code,omitempty"`
	Error      string                `json:"error,omitempty"`
	Comparison *aggregate.Comparison `json:"comparison,omitempty"`
	Roster     []RosterEntry         `json:"roster,omitempty"`
}

// RosterEntry lists the players of one replay for front-end player selection.
type RosterEntry struct {
	ReplayID string       `json:"replay_id"`
	Name     string       `json:"name"`
	Mirror   bool         `json:"mirror"`
	Players  []PlayerInfo `json:"players"`
}

// PlayerInfo is one selectable player.
type PlayerInfo struct {
	Index   int    `json:"index"`
	Name    string `json:"name"`
	Faction string `json:"faction"`
}

// RecordingLoader loads decoded replays.
type RecordingLoader interface {
	GetRecording(ctx context.Context, replayID uuid.UUID) (*replay.Recording, error)
}

// Replier publishes responses.
type Replier interface {
	Reply(ctx context.Context, key string, payload []byte, ttl time.Duration) error
}

// AnalysisProcessor handles larva analysis jobs.
type AnalysisProcessor struct {
	ctx         context.Context
	loader      RecordingLoader
	replier     Replier
	replyPrefix string
	replyTTL    time.Duration
}

// NewAnalysisProcessor creates a new analysis processor.
func NewAnalysisProcessor(ctx context.Context, loader RecordingLoader, replier Replier, replyPrefix string, replyTTL time.Duration) *AnalysisProcessor {
	return &AnalysisProcessor{
		ctx:         ctx,
		loader:      loader,
		replier:     replier,
		replyPrefix: replyPrefix,
		replyTTL:    replyTTL,
	}
}

// requestError is a failure reported to the requester instead of being retried.
type requestError struct {
	code string
	err  error
}

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

func rejectf(code, format string, args ...any) error {
	return &requestError{code: code, err: fmt.Errorf(format, args...)}
}

// Handle processes a single analysis job from the queue. Errors the requester
// caused are answered with an error response; infrastructure errors are
// returned so the queue retries the job.
func (p *AnalysisProcessor) Handle(payload []byte) error {
	startTime := time.Now()

	// Parse job payload
	var job JobPayload
	if err := json.Unmarshal(payload, &job); err != nil {
		return queue.Permanent(fmt.Errorf("unmarshal job payload: %w", err))
	}
	if _, err := uuid.Parse(job.RequestID); err != nil {
		return queue.Permanent(fmt.Errorf("parse request_id: %w", err))
	}

	logger := logging.With("request_id", job.RequestID)
	logger.Infof("processing %s job for %d replay(s)", job.Kind, len(job.ReplayIDs))

	resp, err := p.process(job)
	if err != nil {
		var reqErr *requestError
		if !errors.As(err, &reqErr) {
			return fmt.Errorf("process %s job %s: %w", job.Kind, job.RequestID, err)
		}
		logger.Warnf("rejecting %s job: %s: %v", job.Kind, reqErr.code, reqErr.err)
		resp = &Response{
			RequestID: job.RequestID,
			Kind:      job.Kind,
			Status:    StatusError,
			ErrorCode: reqErr.code,
			Error:     reqErr.err.Error(),
		}
	}

	if err := p.reply(job, resp); err != nil {
		return err
	}

	logger.Infof("%s job completed with status %s in %v", job.Kind, resp.Status, time.Since(startTime))
	return nil
}

func (p *AnalysisProcessor) process(job JobPayload) (*Response, error) {
	ids, err := validate(job)
	if err != nil {
		return nil, err
	}

	recs, err := p.load(ids)
	if err != nil {
		return nil, err
	}

	resp := &Response{RequestID: job.RequestID, Kind: job.Kind, Status: StatusOK}

	if job.Kind == KindRoster {
		for _, rec := range recs {
			resp.Roster = append(resp.Roster, rosterEntry(rec))
		}
		return resp, nil
	}

	req := aggregate.ComparisonRequest{Primary: recs[0]}
	if len(recs) > 1 {
		req.Benchmark = recs[1]
	}
	if len(job.Players) > 0 {
		req.PrimaryPlayer = aggregate.PlayerSelector{Index: job.Players[0]}
	}
	if len(job.Players) > 1 {
		req.BenchmarkPlayer = aggregate.PlayerSelector{Index: job.Players[1]}
	}

	cmp, err := aggregate.BuildComparison(req)
	if err != nil {
		switch {
		case errors.Is(err, replay.ErrNoMatchingPlayer):
			return nil, &requestError{code: CodeNoMatchingPlayer, err: err}
		case errors.Is(err, replay.ErrPlayerOutOfRange):
			return nil, &requestError{code: CodePlayerOutOfRange, err: err}
		default:
			return nil, &requestError{code: CodeAnalysisFailed, err: err}
		}
	}
	resp.Comparison = cmp
	return resp, nil
}

// validate checks the request shape and parses the replay ids.
func validate(job JobPayload) ([]uuid.UUID, error) {
	switch job.Kind {
	case KindAnalyze:
		if len(job.ReplayIDs) != 1 {
			return nil, rejectf(CodeInvalidRequest, "analyze takes exactly one replay, got %d", len(job.ReplayIDs))
		}
	case KindCompare:
		if len(job.ReplayIDs) != 2 {
			return nil, rejectf(CodeInvalidRequest, "compare takes exactly two replays, got %d", len(job.ReplayIDs))
		}
	case KindRoster:
		if len(job.ReplayIDs) < 1 || len(job.ReplayIDs) > 2 {
			return nil, rejectf(CodeInvalidRequest, "roster takes one or two replays, got %d", len(job.ReplayIDs))
		}
	default:
		return nil, rejectf(CodeInvalidRequest, "unknown job kind %q", job.Kind)
	}

	if len(job.Players) > len(job.ReplayIDs) {
		return nil, rejectf(CodeInvalidRequest, "%d player selections for %d replays", len(job.Players), len(job.ReplayIDs))
	}
	for _, idx := range job.Players {
		if idx < 0 {
			return nil, rejectf(CodePlayerOutOfRange, "player index %d is negative", idx)
		}
	}

	ids := make([]uuid.UUID, 0, len(job.ReplayIDs))
	for _, raw := range job.ReplayIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, rejectf(CodeInvalidRequest, "parse replay id %q: %v", raw, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// load fetches all replays of a request concurrently.
func (p *AnalysisProcessor) load(ids []uuid.UUID) ([]*replay.Recording, error) {
	recs := make([]*replay.Recording, len(ids))
	g, ctx := errgroup.WithContext(p.ctx)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			rec, err := p.loader.GetRecording(ctx, id)
			if err != nil {
				return err
			}
			recs[i] = rec
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		switch {
		case errors.Is(err, db.ErrReplayNotFound):
			return nil, &requestError{code: CodeReplayNotFound, err: err}
		case errors.Is(err, replay.ErrMalformed):
			return nil, &requestError{code: CodeMalformedReplay, err: err}
		default:
			return nil, fmt.Errorf("load replays: %w", err)
		}
	}
	return recs, nil
}

func (p *AnalysisProcessor) reply(job JobPayload, resp *Response) error {
	body, err := json.Marshal(resp)
	if err != nil {
		return queue.Permanent(fmt.Errorf("marshal response: %w", err))
	}
	key := job.ReplyTo
	if key == "" {
		key = p.replyPrefix + job.RequestID
	}
	if err := p.replier.Reply(p.ctx, key, body, p.replyTTL); err != nil {
		return fmt.Errorf("reply: %w", err)
	}
	return nil
}

func rosterEntry(rec *replay.Recording) RosterEntry {
	entry := RosterEntry{
		ReplayID: rec.ID.String(),
		Name:     rec.Label(),
		Mirror:   rec.IsMirror(aggregate.DefaultFaction),
	}
	for _, pl := range rec.Players {
		entry.Players = append(entry.Players, PlayerInfo{Index: pl.Index, Name: pl.Name, Faction: pl.Faction})
	}
	return entry
}
