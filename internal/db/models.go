package db

import "github.com/jackc/pgx/v5/pgtype"

type SessionResult struct {
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
	CreatedAt      pgtype.Timestamptz
}

type SessionAnswer struct {
	ResultID      pgtype.UUID
	Position      int32
	QuestionID    string
	Prompt        string
	Choice        string
	SelectedIndex pgtype.Int4
	IsCorrect     bool
	Skipped       bool
	TimedOut      bool
	HintUsed      bool
	TimeTakenMs   int64
	Points        int32
}
