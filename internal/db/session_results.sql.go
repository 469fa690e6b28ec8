package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const insertSessionResult = `
INSERT INTO session_results (
    result_id, session_id, participant_id, topic, difficulty, total_questions,
    correct, incorrect, skipped, timed_out, hints_used, accuracy, points, max_streak,
    total_time_ms, active_ms, started_at, completed_at
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18
)
RETURNING created_at
`

type InsertSessionResultParams struct {
	ResultID       pgtype.UUID
	SessionID      string
	ParticipantID  pgtype.UUID
	Topic          string
	Difficulty     string
	TotalQuestions int32
	Correct        int32
	Incorrect      int32
	Skipped        int32
	TimedOut       int32
	HintsUsed      int32
	Accuracy       float64
	Points         int32
	MaxStreak      int32
	TotalTimeMs    int64
	ActiveMs       int64
	StartedAt      pgtype.Timestamptz
	CompletedAt    pgtype.Timestamptz
}

func (q *Queries) InsertSessionResult(ctx context.Context, arg InsertSessionResultParams) (pgtype.Timestamptz, error) {
	var createdAt pgtype.Timestamptz
	err := q.db.QueryRow(ctx, insertSessionResult,
		arg.ResultID, arg.SessionID, arg.ParticipantID, arg.Topic, arg.Difficulty, arg.TotalQuestions,
		arg.Correct, arg.Incorrect, arg.Skipped, arg.TimedOut, arg.HintsUsed, arg.Accuracy, arg.Points, arg.MaxStreak,
		arg.TotalTimeMs, arg.ActiveMs, arg.StartedAt, arg.CompletedAt,
	).Scan(&createdAt)
	return createdAt, err
}

const insertSessionAnswer = `
INSERT INTO session_answers (
    result_id, position, question_id, prompt, choice, selected_index,
    is_correct, skipped, timed_out, hint_used, time_taken_ms, points
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
`

type InsertSessionAnswerParams = SessionAnswer

func (q *Queries) InsertSessionAnswer(ctx context.Context, arg InsertSessionAnswerParams) error {
	_, err := q.db.Exec(ctx, insertSessionAnswer,
		arg.ResultID, arg.Position, arg.QuestionID, arg.Prompt, arg.Choice, arg.SelectedIndex,
		arg.IsCorrect, arg.Skipped, arg.TimedOut, arg.HintUsed, arg.TimeTakenMs, arg.Points,
	)
	return err
}

// SaveSessionResult writes the result row and all answer rows in one transaction.
func (q *Queries) SaveSessionResult(ctx context.Context, result InsertSessionResultParams, answers []InsertSessionAnswerParams) (pgtype.Timestamptz, error) {
	var createdAt pgtype.Timestamptz
	err := q.InTx(ctx, func(tx *Queries) error {
		var err error
		createdAt, err = tx.InsertSessionResult(ctx, result)
		if err != nil {
			return fmt.Errorf("insert session result: %w", err)
		}
		for _, a := range answers {
			a.ResultID = result.ResultID
			if err := tx.InsertSessionAnswer(ctx, a); err != nil {
				return fmt.Errorf("insert answer %d: %w", a.Position, err)
			}
		}
		return nil
	})
	return createdAt, err
}

const listSessionResultsByParticipant = `
SELECT result_id, session_id, participant_id, topic, difficulty, total_questions,
       correct, incorrect, skipped, timed_out, hints_used, accuracy, points, max_streak,
       total_time_ms, active_ms, started_at, completed_at, created_at
FROM session_results
WHERE participant_id = $1
ORDER BY completed_at DESC
LIMIT $2
`

type ListSessionResultsParams struct {
	ParticipantID pgtype.UUID
	Limit         int32
}

func (q *Queries) ListSessionResultsByParticipant(ctx context.Context, arg ListSessionResultsParams) ([]SessionResult, error) {
	rows, err := q.db.Query(ctx, listSessionResultsByParticipant, arg.ParticipantID, arg.Limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (SessionResult, error) {
		var r SessionResult
		err := row.Scan(
			&r.ResultID, &r.SessionID, &r.ParticipantID, &r.Topic, &r.Difficulty, &r.TotalQuestions,
			&r.Correct, &r.Incorrect, &r.Skipped, &r.TimedOut, &r.HintsUsed, &r.Accuracy, &r.Points, &r.MaxStreak,
			&r.TotalTimeMs, &r.ActiveMs, &r.StartedAt, &r.CompletedAt, &r.CreatedAt,
		)
		return r, err
	})
}

const listSessionAnswers = `
SELECT result_id, position, question_id, prompt, choice, selected_index,
       is_correct, skipped, timed_out, hint_used, time_taken_ms, points
FROM session_answers
WHERE result_id = $1
ORDER BY position
`

func (q *Queries) ListSessionAnswers(ctx context.Context, resultID pgtype.UUID) ([]SessionAnswer, error) {
	rows, err := q.db.Query(ctx, listSessionAnswers, resultID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (SessionAnswer, error) {
		var a SessionAnswer
		err := row.Scan(
			&a.ResultID, &a.Position, &a.QuestionID, &a.Prompt, &a.Choice, &a.SelectedIndex,
			&a.IsCorrect, &a.Skipped, &a.TimedOut, &a.HintUsed, &a.TimeTakenMs, &a.Points,
		)
		return a, err
	})
}
