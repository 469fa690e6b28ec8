package questionbank

import (
	"context"
	"strings"

	"github.com/gokatarajesh/spanish-quiz/internal/quiz"
)

// Default per-question countdowns when a request leaves the time limit open.
const (
	BeginnerTimeLimitSeconds     = 45
	IntermediateTimeLimitSeconds = 30
	AdvancedTimeLimitSeconds     = 20
)

const (
	defaultCount = 10
	maxCount     = 50
)

// DefaultTimeLimit returns the countdown budget for a difficulty.
func DefaultTimeLimit(d quiz.Difficulty) int {
	switch d {
	case quiz.DifficultyAdvanced:
		return AdvancedTimeLimitSeconds
	case quiz.DifficultyIntermediate:
		return IntermediateTimeLimitSeconds
	default:
		return BeginnerTimeLimitSeconds
	}
}

// Request describes the bank a practice session needs.
type Request struct {
	Topic            string          `json:"topic"`
	Difficulty       quiz.Difficulty `json:"difficulty"`
	Count            int             `json:"count"`
	Seed             string          `json:"seed,omitempty"`
	TimeLimitSeconds int             `json:"time_limit_seconds,omitempty"`
}

// Normalize fills defaults so that equivalent requests share a cache key.
func (r Request) Normalize() Request {
	r.Topic = strings.ToLower(strings.TrimSpace(r.Topic))
	if r.Topic == "" {
		r.Topic = "general"
	}
	if !r.Difficulty.Valid() {
		r.Difficulty = quiz.DifficultyBeginner
	}
	if r.Count <= 0 {
		r.Count = defaultCount
	}
	if r.Count > maxCount {
		r.Count = maxCount
	}
	if r.TimeLimitSeconds <= 0 {
		r.TimeLimitSeconds = DefaultTimeLimit(r.Difficulty)
	}
	return r
}

// Bank is a validated question sequence plus the request that produced it.
type Bank struct {
	Request   Request         `json:"request"`
	Questions []quiz.Question `json:"questions"`
	ExpiresAt int64           `json:"expires_at"`
}

// BankCache stores generated banks (implemented by the Redis-backed Cache).
type BankCache interface {
	Get(ctx context.Context, req Request) (*Bank, error)
	Set(ctx context.Context, req Request, bank Bank) error
}

// Generator produces questions from the AI description service.
type Generator interface {
	GenerateBank(ctx context.Context, req Request) ([]quiz.Question, error)
	EnqueueBank(ctx context.Context, req Request) error
}
