package scoring

import (
	"time"

	"github.com/gokatarajesh/spanish-quiz/internal/quiz"
)

// Config holds the points constants.
type Config struct {
	BaseScore          int     // default: 100
	MaxTimeBonus       int     // default: 50
	StreakBonusPercent float64 // default: 0.05 per consecutive correct answer
	MaxStreakBonus     float64 // default: 0.50
	HintPenaltyPercent float64 // default: 0.25 of base when a hint was revealed
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		BaseScore:          100,
		MaxTimeBonus:       50,
		StreakBonusPercent: 0.05,
		MaxStreakBonus:     0.50,
		HintPenaltyPercent: 0.25,
	}
}

// Engine turns answers into points.
type Engine struct {
	config Config
}

// NewEngine creates a points engine with the provided config.
func NewEngine(config Config) *Engine {
	return &Engine{config: config}
}

// CalculatePoints computes points for a single answer.
// Formula: base + time_bonus + streak_bonus - hint_penalty, never negative.
//   - time_bonus decays linearly from MaxTimeBonus at reveal to 0 at timeout
//   - streak_bonus is a capped percentage of base; streak includes this answer
//   - hint_penalty is a percentage of base
func (e *Engine) CalculatePoints(correct bool, remaining, limit time.Duration, streak int, hintUsed bool) int {
	if !correct {
		return 0
	}

	points := e.config.BaseScore

	if limit > 0 {
		ratio := float64(remaining) / float64(limit)
		if ratio > 1 {
			ratio = 1
		}
		if ratio < 0 {
			ratio = 0
		}
		points += int(float64(e.config.MaxTimeBonus) * ratio)
	}

	if streak > 0 {
		points += int(float64(e.config.BaseScore) * e.streakMultiplier(streak))
	}

	if hintUsed {
		points -= int(float64(e.config.BaseScore) * e.config.HintPenaltyPercent)
	}

	if points < 0 {
		return 0
	}
	return points
}

func (e *Engine) streakMultiplier(streak int) float64 {
	m := float64(streak) * e.config.StreakBonusPercent
	if m > e.config.MaxStreakBonus {
		m = e.config.MaxStreakBonus
	}
	return m
}

// Summary is the aggregate outcome of a session.
type Summary struct {
	SessionID        string  `json:"session_id"`
	TotalQuestions   int     `json:"total_questions"`
	Answered         int     `json:"answered"`
	Correct          int     `json:"correct"`
	Incorrect        int     `json:"incorrect"`
	Skipped          int     `json:"skipped"`
	TimedOut         int     `json:"timed_out"`
	HintsUsed        int     `json:"hints_used"`
	Accuracy         float64 `json:"accuracy"`
	AverageTimeMs    int64   `json:"average_time_ms"`
	MedianTimeMs     int64   `json:"median_time_ms"`
	TotalTimeMs      int64   `json:"total_time_ms"`
	ActiveDurationMs int64   `json:"active_duration_ms"`
	MaxStreak        int     `json:"max_streak"`
	Points           int     `json:"points"`
	// PointsByQuestion is parallel to the session's answers.
	PointsByQuestion []int `json:"points_by_question"`
}

// Summarize aggregates every recorded answer of s. It works on sessions in any
// state; callers that need a final result check s.IsComplete first.
func (e *Engine) Summarize(s quiz.Session) Summary {
	sum := Summary{
		SessionID:        s.ID,
		TotalQuestions:   s.TotalQuestions(),
		Accuracy:         Accuracy(s),
		AverageTimeMs:    AverageTime(s).Milliseconds(),
		MedianTimeMs:     MedianTime(s).Milliseconds(),
		TotalTimeMs:      TotalTime(s).Milliseconds(),
		ActiveDurationMs: s.ActiveDuration().Milliseconds(),
		MaxStreak:        s.MaxStreak,
		PointsByQuestion: make([]int, len(s.Answers)),
	}

	streak := 0
	for i, a := range s.Answers {
		switch {
		case a.TimedOut:
			sum.TimedOut++
		case a.Skipped:
			sum.Skipped++
		case a.IsCorrect:
			sum.Correct++
		default:
			sum.Incorrect++
		}
		if a.Answered() {
			sum.Answered++
		}
		if a.HintUsed {
			sum.HintsUsed++
		}

		if a.IsCorrect {
			streak++
		} else {
			streak = 0
		}

		var limit time.Duration
		if i < len(s.Questions) {
			limit = s.Questions[i].TimeLimit()
		}
		pts := e.CalculatePoints(a.IsCorrect, limit-a.TimeTaken, limit, streak, a.HintUsed)
		sum.PointsByQuestion[i] = pts
		sum.Points += pts
	}
	return sum
}
