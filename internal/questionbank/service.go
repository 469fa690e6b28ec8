package questionbank

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/spanish-quiz/internal/quiz"
)

// ErrGeneratorUnavailable is returned when no generator is configured and the cache misses.
var ErrGeneratorUnavailable = errors.New("question generator unavailable")

// Service resolves banks from the cache, falling back to the AI generator.
type Service struct {
	cache     BankCache
	generator Generator
	logger    zerolog.Logger
	expiresIn time.Duration
	now       func() time.Time
}

type ServiceOptions struct {
	Logger zerolog.Logger
	// ExpiresIn stamps Bank.ExpiresAt; defaults to the cache TTL default.
	ExpiresIn time.Duration
}

func NewService(cache BankCache, generator Generator, opts ServiceOptions) *Service {
	expires := opts.ExpiresIn
	if expires <= 0 {
		expires = defaultCacheTTL
	}
	return &Service{
		cache:     cache,
		generator: generator,
		logger:    opts.Logger.With().Str("component", "questionbank").Logger(),
		expiresIn: expires,
		now:       time.Now,
	}
}

// FetchBank returns a validated bank for req. Banks that fail validation are
// never cached and surface as quiz.ErrInvalidQuestionBank.
func (s *Service) FetchBank(ctx context.Context, req Request) (Bank, error) {
	req = req.Normalize()

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, req)
		if err != nil {
			s.logger.Warn().Err(err).Str("topic", req.Topic).Msg("bank cache read failed")
		}
		if cached != nil && quiz.ValidateBank(cached.Questions) == nil {
			return *cached, nil
		}
	}

	if s.generator == nil {
		return Bank{}, ErrGeneratorUnavailable
	}

	questions, err := s.generator.GenerateBank(ctx, req)
	if err != nil {
		return Bank{}, fmt.Errorf("generate bank: %w", err)
	}
	if len(questions) > req.Count {
		questions = questions[:req.Count]
	}
	if err := quiz.ValidateBank(questions); err != nil {
		return Bank{}, err
	}

	bank := Bank{
		Request:   req,
		Questions: questions,
		ExpiresAt: s.now().Add(s.expiresIn).Unix(),
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, req, bank); err != nil {
			s.logger.Warn().Err(err).Str("topic", req.Topic).Msg("bank cache write failed")
		}
	}
	return bank, nil
}

// Enqueue asks the generator to prepare a bank ahead of time.
func (s *Service) Enqueue(ctx context.Context, req Request) error {
	if s.generator == nil {
		return ErrGeneratorUnavailable
	}
	return s.generator.EnqueueBank(ctx, req.Normalize())
}
