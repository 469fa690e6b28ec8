// Package practice hosts one live assessment session per participant and
// fans its changes out to Redis, Postgres and WebSocket clients.
package practice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gokatarajesh/spanish-quiz/internal/db/repository"
	"github.com/gokatarajesh/spanish-quiz/internal/questionbank"
	"github.com/gokatarajesh/spanish-quiz/internal/quiz"
	"github.com/gokatarajesh/spanish-quiz/internal/quiz/export"
)

var (
	// ErrNoSession is returned when the participant has no live or stored session.
	ErrNoSession = errors.New("no practice session")
	// ErrBankUnavailable wraps question bank failures other than an invalid bank.
	ErrBankUnavailable = errors.New("question bank unavailable")
	// ErrResultsUnavailable is returned when no result store is configured.
	ErrResultsUnavailable = errors.New("result history unavailable")
)

// EventCreated marks the snapshot saved when a session is built, before any transition.
const EventCreated quiz.Event = "created"

// CreateRequest selects the bank and toggles for a new session.
type CreateRequest struct {
	Topic            string          `json:"topic"`
	Difficulty       quiz.Difficulty `json:"difficulty"`
	Count            int             `json:"count"`
	Seed             string          `json:"seed,omitempty"`
	TimeLimitSeconds int             `json:"time_limit_seconds,omitempty"`
	AllowSkip        *bool           `json:"allow_skip,omitempty"`
	ShowHints        *bool           `json:"show_hints,omitempty"`
}

func (r CreateRequest) bankRequest() questionbank.Request {
	return questionbank.Request{
		Topic:            r.Topic,
		Difficulty:       r.Difficulty,
		Count:            r.Count,
		Seed:             r.Seed,
		TimeLimitSeconds: r.TimeLimitSeconds,
	}.Normalize()
}

func (r CreateRequest) config(defaults quiz.Config) quiz.Config {
	cfg := defaults
	if r.AllowSkip != nil {
		cfg.AllowSkip = *r.AllowSkip
	}
	if r.ShowHints != nil {
		cfg.ShowHints = *r.ShowHints
	}
	return cfg
}

// Snapshot is the persisted form of a participant's session.
type Snapshot struct {
	ParticipantID uuid.UUID            `json:"participant_id"`
	Request       questionbank.Request `json:"request"`
	Config        quiz.Config          `json:"config"`
	Event         quiz.Event           `json:"event"`
	Session       quiz.Session         `json:"session"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// Envelope carries one controller change, or a discard, to the Sink.
// Instance identifies the participant's controller; a higher instance
// supersedes every change of a lower one.
type Envelope struct {
	ParticipantID uuid.UUID
	Instance      uint64
	Request       questionbank.Request
	Config        quiz.Config
	Change        quiz.Change
	Discarded     bool
}

// Download is an encoded session export.
type Download struct {
	SessionID string
	Format    export.Format
	Body      []byte
}

// Filename is the attachment name offered to clients.
func (d Download) Filename() string {
	return fmt.Sprintf("session-%s.%s", d.SessionID, d.Format)
}

// Update is the pub/sub payload for a session change.
type Update struct {
	ParticipantID uuid.UUID  `json:"participant_id"`
	Seq           uint64     `json:"seq"`
	Event         quiz.Event `json:"event"`
	Session       View       `json:"session"`
}

// BankSource supplies validated question banks.
type BankSource interface {
	FetchBank(ctx context.Context, req questionbank.Request) (questionbank.Bank, error)
}

// SnapshotStore keeps the latest snapshot per participant. Load returns ErrNoSession when missing.
type SnapshotStore interface {
	Save(ctx context.Context, snap Snapshot) error
	Load(ctx context.Context, participantID uuid.UUID) (Snapshot, error)
	Delete(ctx context.Context, participantID uuid.UUID) error
}

// Publisher distributes session updates to connected clients.
type Publisher interface {
	Publish(ctx context.Context, u Update) error
}

// ResultStore persists completed sessions.
type ResultStore interface {
	Save(ctx context.Context, res repository.SessionResult) (repository.SessionResult, error)
	ListByParticipant(ctx context.Context, participantID uuid.UUID, limit int, withAnswers bool) ([]repository.SessionResult, error)
}

// Prefetcher warms the bank cache for a request.
type Prefetcher interface {
	Enqueue(req questionbank.Request) bool
}

// ChangeSink receives every change produced by a live session.
type ChangeSink interface {
	Submit(env Envelope) bool
}
