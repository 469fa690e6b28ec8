// Package export flattens a completed session into rows for download or storage.
package export

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gokatarajesh/spanish-quiz/internal/quiz"
	"github.com/gokatarajesh/spanish-quiz/internal/quiz/scoring"
)

// Row kinds.
const (
	KindQuestion = "question"
	KindSummary  = "summary"
)

// Choice labels for answers without a selected option.
const (
	ChoiceSkipped  = "skipped"
	ChoiceTimedOut = "timed out"
)

// Record is one flat export row. Question rows describe one answer; the single
// trailing summary row carries the session totals.
type Record struct {
	Kind          string  `json:"kind"`
	SessionID     string  `json:"session_id"`
	Position      int     `json:"position,omitempty"`
	QuestionID    string  `json:"question_id,omitempty"`
	Prompt        string  `json:"prompt,omitempty"`
	Choice        string  `json:"choice,omitempty"`
	CorrectAnswer string  `json:"correct_answer,omitempty"`
	IsCorrect     bool    `json:"is_correct"`
	TimeTakenMs   int64   `json:"time_taken_ms"`
	HintUsed      bool    `json:"hint_used"`
	Points        int     `json:"points"`
	Accuracy      float64 `json:"accuracy,omitempty"`
	MaxStreak     int     `json:"max_streak,omitempty"`
}

// MarshalJSON always writes accuracy and max_streak on the summary row, even
// when zero. Question rows leave them out.
func (r Record) MarshalJSON() ([]byte, error) {
	type row Record
	if r.Kind != KindSummary {
		return json.Marshal(row(r))
	}
	return json.Marshal(struct {
		row
		Accuracy  float64 `json:"accuracy"`
		MaxStreak int     `json:"max_streak"`
	}{row(r), r.Accuracy, r.MaxStreak})
}

// Format selects an output encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts a format name case-insensitively.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case FormatCSV, FormatJSON, FormatXLSX:
		return f, nil
	}
	return "", fmt.Errorf("unsupported export format %q", name)
}

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
}

// ContentType returns the MIME type served for f.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/json"
	}
}

// Exporter builds records with a points engine.
type Exporter struct {
	engine *scoring.Engine
}

// New returns an exporter. A nil engine uses scoring.DefaultConfig.
func New(engine *scoring.Engine) *Exporter {
	if engine == nil {
		engine = scoring.NewEngine(scoring.DefaultConfig())
	}
	return &Exporter{engine: engine}
}

// Records exports s with default scoring.
func Records(s quiz.Session) ([]Record, error) {
	return New(nil).Records(s)
}

// Records returns one row per question followed by the summary row.
// Fails with quiz.ErrSessionNotComplete unless s is completed.
func (e *Exporter) Records(s quiz.Session) ([]Record, error) {
	if !s.IsComplete() {
		return nil, fmt.Errorf("%w: session %s is %s", quiz.ErrSessionNotComplete, s.ID, s.State)
	}

	sum := e.engine.Summarize(s)
	records := make([]Record, 0, len(s.Answers)+1)
	for i, a := range s.Answers {
		q := s.Questions[i]
		records = append(records, Record{
			Kind:          KindQuestion,
			SessionID:     s.ID,
			Position:      i + 1,
			QuestionID:    q.ID,
			Prompt:        q.Prompt,
			Choice:        choiceLabel(q, a),
			CorrectAnswer: q.Options[q.CorrectIndex],
			IsCorrect:     a.IsCorrect,
			TimeTakenMs:   a.TimeTaken.Milliseconds(),
			HintUsed:      a.HintUsed,
			Points:        sum.PointsByQuestion[i],
		})
	}

	records = append(records, Record{
		Kind:        KindSummary,
		SessionID:   s.ID,
		TimeTakenMs: sum.TotalTimeMs,
		HintUsed:    sum.HintsUsed > 0,
		Points:      sum.Points,
		Accuracy:    sum.Accuracy,
		MaxStreak:   sum.MaxStreak,
	})
	return records, nil
}

func choiceLabel(q quiz.Question, a quiz.AnswerRecord) string {
	switch {
	case a.SelectedIndex != nil && *a.SelectedIndex >= 0 && *a.SelectedIndex < len(q.Options):
		return q.Options[*a.SelectedIndex]
	case a.TimedOut:
		return ChoiceTimedOut
	default:
		return ChoiceSkipped
	}
}
