package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/gokatarajesh/spanish-quiz/internal/db"
)

type resultStore interface {
	SaveSessionResult(ctx context.Context, result db.InsertSessionResultParams, answers []db.InsertSessionAnswerParams) (pgtype.Timestamptz, error)
	ListSessionResultsByParticipant(ctx context.Context, arg db.ListSessionResultsParams) ([]db.SessionResult, error)
	ListSessionAnswers(ctx context.Context, resultID pgtype.UUID) ([]db.SessionAnswer, error)
}

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// SessionResult is a stored outcome of a completed session.
type SessionResult struct {
	ID               uuid.UUID       `json:"id"`
	SessionID        string          `json:"session_id"`
	ParticipantID    uuid.UUID       `json:"participant_id"`
	Topic            string          `json:"topic"`
	Difficulty       string          `json:"difficulty"`
	TotalQuestions   int             `json:"total_questions"`
	Correct          int             `json:"correct"`
	Incorrect        int             `json:"incorrect"`
	Skipped          int             `json:"skipped"`
	TimedOut         int             `json:"timed_out"`
	HintsUsed        int             `json:"hints_used"`
	Accuracy         float64         `json:"accuracy"`
	Points           int             `json:"points"`
	MaxStreak        int             `json:"max_streak"`
	TotalTimeMs      int64           `json:"total_time_ms"`
	ActiveDurationMs int64           `json:"active_duration_ms"`
	StartedAt        time.Time       `json:"started_at"`
	CompletedAt      time.Time       `json:"completed_at"`
	CreatedAt        time.Time       `json:"created_at"`
	Answers          []SessionAnswer `json:"answers,omitempty"`
}

// SessionAnswer is one stored question row of a result.
type SessionAnswer struct {
	Position      int    `json:"position"`
	QuestionID    string `json:"question_id"`
	Prompt        string `json:"prompt"`
	Choice        string `json:"choice"`
	SelectedIndex *int   `json:"selected_index"`
	IsCorrect     bool   `json:"is_correct"`
	Skipped       bool   `json:"skipped"`
	TimedOut      bool   `json:"timed_out"`
	HintUsed      bool   `json:"hint_used"`
	TimeTakenMs   int64  `json:"time_taken_ms"`
	Points        int    `json:"points"`
}

// ResultRepository stores completed session results.
type ResultRepository struct {
	store resultStore
}

// NewResultRepository wraps the result queries.
func NewResultRepository(store resultStore) *ResultRepository {
	return &ResultRepository{store: store}
}

// Save persists a result with its answer rows. A zero ID is replaced with a new UUID.
func (r *ResultRepository) Save(ctx context.Context, res SessionResult) (SessionResult, error) {
	if res.ID == uuid.Nil {
		res.ID = uuid.New()
	}
	params := db.InsertSessionResultParams{
		ResultID:       pgUUID(res.ID),
		SessionID:      res.SessionID,
		ParticipantID:  pgUUID(res.ParticipantID),
		Topic:          res.Topic,
		Difficulty:     res.Difficulty,
		TotalQuestions: int32(res.TotalQuestions),
		Correct:        int32(res.Correct),
		Incorrect:      int32(res.Incorrect),
		Skipped:        int32(res.Skipped),
		TimedOut:       int32(res.TimedOut),
		HintsUsed:      int32(res.HintsUsed),
		Accuracy:       res.Accuracy,
		Points:         int32(res.Points),
		MaxStreak:      int32(res.MaxStreak),
		TotalTimeMs:    res.TotalTimeMs,
		ActiveMs:       res.ActiveDurationMs,
		StartedAt:      pgtype.Timestamptz{Time: res.StartedAt, Valid: !res.StartedAt.IsZero()},
		CompletedAt:    pgtype.Timestamptz{Time: res.CompletedAt, Valid: !res.CompletedAt.IsZero()},
	}

	answers := make([]db.InsertSessionAnswerParams, len(res.Answers))
	for i, a := range res.Answers {
		answers[i] = db.InsertSessionAnswerParams{
			ResultID:    params.ResultID,
			Position:    int32(a.Position),
			QuestionID:  a.QuestionID,
			Prompt:      a.Prompt,
			Choice:      a.Choice,
			IsCorrect:   a.IsCorrect,
			Skipped:     a.Skipped,
			TimedOut:    a.TimedOut,
			HintUsed:    a.HintUsed,
			TimeTakenMs: a.TimeTakenMs,
			Points:      int32(a.Points),
		}
		if a.SelectedIndex != nil {
			answers[i].SelectedIndex = pgtype.Int4{Int32: int32(*a.SelectedIndex), Valid: true}
		}
	}

	createdAt, err := r.store.SaveSessionResult(ctx, params, answers)
	if err != nil {
		return SessionResult{}, fmt.Errorf("save session result %s: %w", res.SessionID, err)
	}
	res.CreatedAt = createdAt.Time
	return res, nil
}

// ListByParticipant returns the most recent results first. Answers are loaded
// only when withAnswers is set.
func (r *ResultRepository) ListByParticipant(ctx context.Context, participantID uuid.UUID, limit int, withAnswers bool) ([]SessionResult, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	rows, err := r.store.ListSessionResultsByParticipant(ctx, db.ListSessionResultsParams{
		ParticipantID: pgUUID(participantID),
		Limit:         int32(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}

	out := make([]SessionResult, 0, len(rows))
	for _, row := range rows {
		res := resultFromRow(row)
		if withAnswers {
			answerRows, err := r.store.ListSessionAnswers(ctx, row.ResultID)
			if err != nil {
				return nil, fmt.Errorf("list answers for %s: %w", res.ID, err)
			}
			res.Answers = make([]SessionAnswer, len(answerRows))
			for i, a := range answerRows {
				res.Answers[i] = answerFromRow(a)
			}
		}
		out = append(out, res)
	}
	return out, nil
}

func resultFromRow(row db.SessionResult) SessionResult {
	return SessionResult{
		ID:               uuid.UUID(row.ResultID.Bytes),
		SessionID:        row.SessionID,
		ParticipantID:    uuid.UUID(row.ParticipantID.Bytes),
		Topic:            row.Topic,
		Difficulty:       row.Difficulty,
		TotalQuestions:   int(row.TotalQuestions),
		Correct:          int(row.Correct),
		Incorrect:        int(row.Incorrect),
		Skipped:          int(row.Skipped),
		TimedOut:         int(row.TimedOut),
		HintsUsed:        int(row.HintsUsed),
		Accuracy:         row.Accuracy,
		Points:           int(row.Points),
		MaxStreak:        int(row.MaxStreak),
		TotalTimeMs:      row.TotalTimeMs,
		ActiveDurationMs: row.ActiveMs,
		StartedAt:        row.StartedAt.Time,
		CompletedAt:      row.CompletedAt.Time,
		CreatedAt:        row.CreatedAt.Time,
	}
}

func answerFromRow(a db.SessionAnswer) SessionAnswer {
	out := SessionAnswer{
		Position:    int(a.Position),
		QuestionID:  a.QuestionID,
		Prompt:      a.Prompt,
		Choice:      a.Choice,
		IsCorrect:   a.IsCorrect,
		Skipped:     a.Skipped,
		TimedOut:    a.TimedOut,
		HintUsed:    a.HintUsed,
		TimeTakenMs: a.TimeTakenMs,
		Points:      int(a.Points),
	}
	if a.SelectedIndex.Valid {
		idx := int(a.SelectedIndex.Int32)
		out.SelectedIndex = &idx
	}
	return out
}

func pgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: id != uuid.Nil}
}
