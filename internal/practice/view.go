package practice

import (
	"github.com/gokatarajesh/spanish-quiz/internal/quiz"
	"github.com/gokatarajesh/spanish-quiz/internal/quiz/scoring"
)

// View is the client-facing projection of a session. Correct answers are only
// included for questions that already have an answer record.
type View struct {
	SessionID      string           `json:"session_id"`
	State          quiz.State       `json:"state"`
	CurrentIndex   int              `json:"current_index"`
	TotalQuestions int              `json:"total_questions"`
	Streak         int              `json:"streak"`
	MaxStreak      int              `json:"max_streak"`
	RemainingMs    int64            `json:"remaining_ms"`
	AllowSkip      bool             `json:"allow_skip"`
	ShowHints      bool             `json:"show_hints"`
	Question       *QuestionView    `json:"current_question,omitempty"`
	Answers        []AnswerView     `json:"answers"`
	Summary        *scoring.Summary `json:"summary,omitempty"`
}

type QuestionView struct {
	Position         int             `json:"position"`
	ID               string          `json:"id"`
	Prompt           string          `json:"prompt"`
	Options          []string        `json:"options"`
	Difficulty       quiz.Difficulty `json:"difficulty"`
	TimeLimitSeconds int             `json:"time_limit_seconds"`
	ImageURL         string          `json:"image_url,omitempty"`
	HasHint          bool            `json:"has_hint"`
}

type AnswerView struct {
	QuestionID    string `json:"question_id"`
	SelectedIndex *int   `json:"selected_index"`
	CorrectIndex  int    `json:"correct_index"`
	IsCorrect     bool   `json:"is_correct"`
	Skipped       bool   `json:"skipped"`
	TimedOut      bool   `json:"timed_out"`
	HintUsed      bool   `json:"hint_used"`
	TimeTakenMs   int64  `json:"time_taken_ms"`
	Explanation   string `json:"explanation,omitempty"`
}

// NewView projects s. The summary is attached once the session is complete.
func NewView(s quiz.Session, cfg quiz.Config, engine *scoring.Engine) View {
	v := View{
		SessionID:      s.ID,
		State:          s.State,
		CurrentIndex:   s.CurrentIndex,
		TotalQuestions: s.TotalQuestions(),
		Streak:         s.Streak,
		MaxStreak:      s.MaxStreak,
		RemainingMs:    s.Remaining.Milliseconds(),
		AllowSkip:      cfg.AllowSkip,
		ShowHints:      cfg.ShowHints,
		Answers:        make([]AnswerView, 0, len(s.Answers)),
	}

	if (s.State == quiz.StateActive || s.State == quiz.StatePaused) && s.CurrentIndex < len(s.Questions) {
		q := s.Questions[s.CurrentIndex]
		v.Question = &QuestionView{
			Position:         s.CurrentIndex + 1,
			ID:               q.ID,
			Prompt:           q.Prompt,
			Options:          append([]string(nil), q.Options...),
			Difficulty:       q.Difficulty,
			TimeLimitSeconds: q.TimeLimitSeconds,
			ImageURL:         q.ImageURL,
			HasHint:          cfg.ShowHints && q.Hint != "",
		}
	}

	for i, a := range s.Answers {
		av := AnswerView{
			QuestionID:    a.QuestionID,
			SelectedIndex: a.SelectedIndex,
			IsCorrect:     a.IsCorrect,
			Skipped:       a.Skipped,
			TimedOut:      a.TimedOut,
			HintUsed:      a.HintUsed,
			TimeTakenMs:   a.TimeTaken.Milliseconds(),
		}
		if i < len(s.Questions) {
			av.CorrectIndex = s.Questions[i].CorrectIndex
			av.Explanation = s.Questions[i].Explanation
		}
		v.Answers = append(v.Answers, av)
	}

	if s.IsComplete() {
		if engine == nil {
			engine = scoring.NewEngine(scoring.DefaultConfig())
		}
		sum := engine.Summarize(s)
		v.Summary = &sum
	}
	return v
}
