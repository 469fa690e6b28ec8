package quiz

import (
	"encoding/json"
	"time"
)

// Difficulty levels produced by the question generator.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// Valid reports whether d is a known difficulty.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return true
	}
	return false
}

// Question is one multiple-choice item of a bank. Immutable once handed to a Controller.
type Question struct {
	ID               string     `json:"id"`
	Prompt           string     `json:"prompt"`
	Options          []string   `json:"options"`
	CorrectIndex     int        `json:"correct_index"`
	Explanation      string     `json:"explanation"`
	Difficulty       Difficulty `json:"difficulty"`
	TimeLimitSeconds int        `json:"time_limit_seconds"`
	Hint             string     `json:"hint,omitempty"`
	ImageURL         string     `json:"image_url,omitempty"`
}

// TimeLimit returns the countdown budget for the question.
func (q Question) TimeLimit() time.Duration {
	return time.Duration(q.TimeLimitSeconds) * time.Second
}

func (q Question) clone() Question {
	c := q
	c.Options = append([]string(nil), q.Options...)
	return c
}

// AnswerRecord is the outcome of one question. Created once, never mutated.
type AnswerRecord struct {
	QuestionID    string        `json:"question_id"`
	SelectedIndex *int          `json:"selected_index"`
	IsCorrect     bool          `json:"is_correct"`
	TimeTaken     time.Duration `json:"-"`
	Skipped       bool          `json:"skipped"`
	HintUsed      bool          `json:"hint_used"`
	TimedOut      bool          `json:"timed_out"`
}

// Answered reports whether the participant made a choice or chose to skip.
func (a AnswerRecord) Answered() bool {
	return a.SelectedIndex != nil || a.Skipped
}

type answerRecordJSON struct {
	QuestionID    string `json:"question_id"`
	SelectedIndex *int   `json:"selected_index"`
	IsCorrect     bool   `json:"is_correct"`
	TimeTakenMs   int64  `json:"time_taken_ms"`
	Skipped       bool   `json:"skipped"`
	HintUsed      bool   `json:"hint_used"`
	TimedOut      bool   `json:"timed_out"`
}

func (a AnswerRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(answerRecordJSON{
		QuestionID:    a.QuestionID,
		SelectedIndex: a.SelectedIndex,
		IsCorrect:     a.IsCorrect,
		TimeTakenMs:   a.TimeTaken.Milliseconds(),
		Skipped:       a.Skipped,
		HintUsed:      a.HintUsed,
		TimedOut:      a.TimedOut,
	})
}

func (a *AnswerRecord) UnmarshalJSON(data []byte) error {
	var raw answerRecordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*a = AnswerRecord{
		QuestionID:    raw.QuestionID,
		SelectedIndex: raw.SelectedIndex,
		IsCorrect:     raw.IsCorrect,
		TimeTaken:     time.Duration(raw.TimeTakenMs) * time.Millisecond,
		Skipped:       raw.Skipped,
		HintUsed:      raw.HintUsed,
		TimedOut:      raw.TimedOut,
	}
	return nil
}

func (a AnswerRecord) clone() AnswerRecord {
	c := a
	if a.SelectedIndex != nil {
		idx := *a.SelectedIndex
		c.SelectedIndex = &idx
	}
	return c
}

// State is the lifecycle phase of a Session.
type State string

const (
	StateSetup     State = "setup"
	StateActive    State = "active"
	StatePaused    State = "paused"
	StateCompleted State = "completed"
)

// Config toggles optional controller behavior.
type Config struct {
	AllowSkip bool `json:"allow_skip"`
	ShowHints bool `json:"show_hints"`
}

// Session is one run of a fixed question sequence. The Controller owns the live
// value; everything outside it only ever sees copies returned by Snapshot.
type Session struct {
	ID                string
	Questions         []Question
	CurrentIndex      int
	Answers           []AnswerRecord
	State             State
	Streak            int
	MaxStreak         int
	StartedAt         time.Time
	CompletedAt       time.Time
	PausedAccumulated time.Duration
	// Remaining is the countdown left on the current question when the copy was taken.
	Remaining time.Duration
}

// TotalQuestions returns the size of the question sequence.
func (s Session) TotalQuestions() int {
	return len(s.Questions)
}

// IsComplete reports whether every question has an answer record.
func (s Session) IsComplete() bool {
	return s.State == StateCompleted
}

// ActiveDuration is the wall time between start and completion minus time spent paused.
// Zero until the session completes.
func (s Session) ActiveDuration() time.Duration {
	if s.StartedAt.IsZero() || s.CompletedAt.IsZero() {
		return 0
	}
	d := s.CompletedAt.Sub(s.StartedAt) - s.PausedAccumulated
	if d < 0 {
		return 0
	}
	return d
}

// Clone returns a deep copy.
func (s Session) Clone() Session {
	c := s
	c.Questions = make([]Question, len(s.Questions))
	for i, q := range s.Questions {
		c.Questions[i] = q.clone()
	}
	c.Answers = make([]AnswerRecord, len(s.Answers))
	for i, a := range s.Answers {
		c.Answers[i] = a.clone()
	}
	return c
}

type sessionJSON struct {
	ID                  string         `json:"id"`
	Questions           []Question     `json:"questions"`
	CurrentIndex        int            `json:"current_index"`
	TotalQuestions      int            `json:"total_questions"`
	Answers             []AnswerRecord `json:"answers"`
	State               State          `json:"state"`
	Streak              int            `json:"streak"`
	MaxStreak           int            `json:"max_streak"`
	StartedAt           *time.Time     `json:"started_at,omitempty"`
	CompletedAt         *time.Time     `json:"completed_at,omitempty"`
	PausedAccumulatedMs int64          `json:"paused_accumulated_ms"`
	RemainingMs         int64          `json:"remaining_ms"`
}

func (s Session) MarshalJSON() ([]byte, error) {
	out := sessionJSON{
		ID:                  s.ID,
		Questions:           s.Questions,
		CurrentIndex:        s.CurrentIndex,
		TotalQuestions:      len(s.Questions),
		Answers:             s.Answers,
		State:               s.State,
		Streak:              s.Streak,
		MaxStreak:           s.MaxStreak,
		PausedAccumulatedMs: s.PausedAccumulated.Milliseconds(),
		RemainingMs:         s.Remaining.Milliseconds(),
	}
	if out.Answers == nil {
		out.Answers = []AnswerRecord{}
	}
	if !s.StartedAt.IsZero() {
		t := s.StartedAt
		out.StartedAt = &t
	}
	if !s.CompletedAt.IsZero() {
		t := s.CompletedAt
		out.CompletedAt = &t
	}
	return json.Marshal(out)
}

func (s *Session) UnmarshalJSON(data []byte) error {
	var raw sessionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = Session{
		ID:                raw.ID,
		Questions:         raw.Questions,
		CurrentIndex:      raw.CurrentIndex,
		Answers:           raw.Answers,
		State:             raw.State,
		Streak:            raw.Streak,
		MaxStreak:         raw.MaxStreak,
		PausedAccumulated: time.Duration(raw.PausedAccumulatedMs) * time.Millisecond,
		Remaining:         time.Duration(raw.RemainingMs) * time.Millisecond,
	}
	if raw.StartedAt != nil {
		s.StartedAt = *raw.StartedAt
	}
	if raw.CompletedAt != nil {
		s.CompletedAt = *raw.CompletedAt
	}
	return nil
}

// Event names the transition that produced a Change.
type Event string

const (
	EventStarted      Event = "started"
	EventAnswered     Event = "answered"
	EventSkipped      Event = "skipped"
	EventTimedOut     Event = "timed_out"
	EventPaused       Event = "paused"
	EventResumed      Event = "resumed"
	EventHintRevealed Event = "hint_revealed"
	EventReset        Event = "reset"
)

// Change is delivered to OnStateChange listeners after every transition.
// Session is a private copy the listener may keep.
type Change struct {
	// Seq increases by one with every change of a controller, across resets.
	Seq     uint64  `json:"seq"`
	Event   Event   `json:"event"`
	Session Session `json:"session"`
}

// Completed reports whether this transition recorded the last answer.
func (c Change) Completed() bool {
	if c.Session.State != StateCompleted {
		return false
	}
	switch c.Event {
	case EventAnswered, EventSkipped, EventTimedOut:
		return true
	}
	return false
}
