package practice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/spanish-quiz/internal/clock"
	"github.com/gokatarajesh/spanish-quiz/internal/db/repository"
	"github.com/gokatarajesh/spanish-quiz/internal/metrics"
	"github.com/gokatarajesh/spanish-quiz/internal/questionbank"
	"github.com/gokatarajesh/spanish-quiz/internal/quiz"
	"github.com/gokatarajesh/spanish-quiz/internal/quiz/export"
	"github.com/gokatarajesh/spanish-quiz/internal/quiz/scoring"
)

// Service owns the live controllers, one per participant.
type Service struct {
	banks     BankSource
	sink      ChangeSink
	snapshots SnapshotStore
	results   ResultStore
	engine    *scoring.Engine
	exporter  *export.Exporter
	defaults  quiz.Config
	newClock  func() clock.Clock
	metrics   *metrics.Session
	logger    zerolog.Logger

	mu        sync.Mutex
	sessions  map[uuid.UUID]*live
	instances atomic.Uint64
}

type live struct {
	// instance orders controllers of the same participant; Change.Seq orders
	// changes within one controller.
	instance    uint64
	ctrl        *quiz.Controller
	req         questionbank.Request
	cfg         quiz.Config
	unsubscribe func()
	retired     atomic.Bool
}

// ServiceOptions configures the practice service.
type ServiceOptions struct {
	Snapshots SnapshotStore
	Results   ResultStore
	Engine    *scoring.Engine
	Defaults  quiz.Config
	// Clock builds the countdown for each new session. Defaults to clock.NewReal.
	Clock   func() clock.Clock
	Metrics *metrics.Session
	Logger  zerolog.Logger
}

// NewService creates a practice service.
func NewService(banks BankSource, sink ChangeSink, opts ServiceOptions) *Service {
	engine := opts.Engine
	if engine == nil {
		engine = scoring.NewEngine(scoring.DefaultConfig())
	}
	newClock := opts.Clock
	if newClock == nil {
		newClock = func() clock.Clock { return clock.NewReal() }
	}
	return &Service{
		banks:     banks,
		sink:      sink,
		snapshots: opts.Snapshots,
		results:   opts.Results,
		engine:    engine,
		exporter:  export.New(engine),
		defaults:  opts.Defaults,
		newClock:  newClock,
		metrics:   opts.Metrics,
		logger:    opts.Logger.With().Str("component", "practice_service").Logger(),
		sessions:  make(map[uuid.UUID]*live),
	}
}

// Create fetches a bank and builds a new session in setup. Any previous
// session of the participant is reset and dropped.
func (s *Service) Create(ctx context.Context, participantID uuid.UUID, req CreateRequest) (View, error) {
	bankReq := req.bankRequest()
	cfg := req.config(s.defaults)

	bank, err := s.banks.FetchBank(ctx, bankReq)
	if err != nil {
		if quiz.IsInvalidQuestionBank(err) || errors.Is(err, questionbank.ErrGeneratorUnavailable) {
			return View{}, err
		}
		return View{}, fmt.Errorf("%w: %w", ErrBankUnavailable, err)
	}

	logger := s.logger.With().Str("participant_id", participantID.String()).Logger()
	ctrl, err := quiz.NewController(bank.Questions, cfg,
		quiz.WithClock(s.newClock()),
		quiz.WithLogger(logger),
	)
	if err != nil {
		return View{}, err
	}

	l := &live{instance: s.instances.Add(1), ctrl: ctrl, req: bankReq, cfg: cfg}
	l.unsubscribe = ctrl.OnStateChange(func(c quiz.Change) {
		if l.retired.Load() {
			return
		}
		s.submit(Envelope{ParticipantID: participantID, Instance: l.instance, Request: bankReq, Config: cfg, Change: c})
	})

	s.mu.Lock()
	old := s.sessions[participantID]
	s.sessions[participantID] = l
	active := len(s.sessions)
	s.mu.Unlock()

	if old != nil {
		retire(old)
	}
	s.metrics.SetActive(active)

	created := ctrl.Latest()
	created.Event = EventCreated
	snap := created.Session
	s.submit(Envelope{
		ParticipantID: participantID,
		Instance:      l.instance,
		Request:       bankReq,
		Config:        cfg,
		Change:        created,
	})

	logger.Info().
		Str("session_id", snap.ID).
		Str("topic", bankReq.Topic).
		Str("difficulty", string(bankReq.Difficulty)).
		Int("questions", snap.TotalQuestions()).
		Msg("practice session created")

	return NewView(snap, cfg, s.engine), nil
}

// Start begins the participant's session.
func (s *Service) Start(participantID uuid.UUID) (View, error) {
	return s.act(participantID, (*quiz.Controller).Start)
}

// Submit answers the current question with the option at index.
func (s *Service) Submit(participantID uuid.UUID, index int) (View, error) {
	return s.act(participantID, func(c *quiz.Controller) error { return c.SubmitAnswer(index) })
}

// Skip records the current question as skipped.
func (s *Service) Skip(participantID uuid.UUID) (View, error) {
	return s.act(participantID, (*quiz.Controller).Skip)
}

// Pause freezes the countdown.
func (s *Service) Pause(participantID uuid.UUID) (View, error) {
	return s.act(participantID, (*quiz.Controller).Pause)
}

// Resume continues a paused session.
func (s *Service) Resume(participantID uuid.UUID) (View, error) {
	return s.act(participantID, (*quiz.Controller).Resume)
}

// Reset returns the session to setup with a new ID and the same bank.
func (s *Service) Reset(participantID uuid.UUID) (View, error) {
	return s.act(participantID, (*quiz.Controller).Reset)
}

// Hint reveals the current question's hint.
func (s *Service) Hint(participantID uuid.UUID) (string, View, error) {
	var hint string
	v, err := s.act(participantID, func(c *quiz.Controller) error {
		var err error
		hint, err = c.RevealHint()
		return err
	})
	return hint, v, err
}

// Snapshot returns the live session, or the last stored snapshot when the
// participant has no session in memory.
func (s *Service) Snapshot(ctx context.Context, participantID uuid.UUID) (View, error) {
	if l, ok := s.get(participantID); ok {
		return NewView(l.ctrl.Snapshot(), l.cfg, s.engine), nil
	}
	snap, err := s.loadSnapshot(ctx, participantID)
	if err != nil {
		return View{}, err
	}
	return NewView(snap.Session, snap.Config, s.engine), nil
}

// Export encodes the participant's completed session. The state check and the
// encoding use the same snapshot, so a concurrent Reset cannot empty the body.
func (s *Service) Export(ctx context.Context, participantID uuid.UUID, format export.Format) (Download, error) {
	var session quiz.Session
	if l, ok := s.get(participantID); ok {
		session = l.ctrl.Snapshot()
	} else {
		snap, err := s.loadSnapshot(ctx, participantID)
		if err != nil {
			return Download{}, err
		}
		session = snap.Session
	}

	var buf bytes.Buffer
	if err := s.exporter.Write(&buf, format, session); err != nil {
		return Download{}, err
	}
	return Download{SessionID: session.ID, Format: format, Body: buf.Bytes()}, nil
}

// Discard drops the participant's session and its stored snapshot.
func (s *Service) Discard(participantID uuid.UUID) error {
	s.mu.Lock()
	l, ok := s.sessions[participantID]
	delete(s.sessions, participantID)
	active := len(s.sessions)
	s.mu.Unlock()

	if !ok {
		return ErrNoSession
	}
	retire(l)
	s.metrics.SetActive(active)
	s.submit(Envelope{ParticipantID: participantID, Instance: l.instance, Request: l.req, Config: l.cfg, Discarded: true})
	s.logger.Info().Str("participant_id", participantID.String()).Msg("practice session discarded")
	return nil
}

// ListResults returns the participant's stored results, newest first.
func (s *Service) ListResults(ctx context.Context, participantID uuid.UUID, limit int, withAnswers bool) ([]repository.SessionResult, error) {
	if s.results == nil {
		return nil, ErrResultsUnavailable
	}
	return s.results.ListByParticipant(ctx, participantID, limit, withAnswers)
}

// Active returns the number of sessions held in memory.
func (s *Service) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Close resets every live session so no countdown fires after shutdown.
func (s *Service) Close() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[uuid.UUID]*live)
	s.mu.Unlock()

	for _, l := range sessions {
		retire(l)
	}
	s.metrics.SetActive(0)
}

func (s *Service) act(participantID uuid.UUID, fn func(*quiz.Controller) error) (View, error) {
	l, ok := s.get(participantID)
	if !ok {
		return View{}, ErrNoSession
	}
	if err := fn(l.ctrl); err != nil {
		return View{}, err
	}
	return NewView(l.ctrl.Snapshot(), l.cfg, s.engine), nil
}

func (s *Service) get(participantID uuid.UUID) (*live, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.sessions[participantID]
	return l, ok
}

func (s *Service) loadSnapshot(ctx context.Context, participantID uuid.UUID) (Snapshot, error) {
	if s.snapshots == nil {
		return Snapshot{}, ErrNoSession
	}
	snap, err := s.snapshots.Load(ctx, participantID)
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			return Snapshot{}, err
		}
		return Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	return snap, nil
}

func (s *Service) submit(env Envelope) {
	if s.sink == nil {
		return
	}
	if !s.sink.Submit(env) {
		s.logger.Warn().
			Str("participant_id", env.ParticipantID.String()).
			Str("event", string(env.Change.Event)).
			Msg("change sink full, dropping change")
	}
}

// retire stops a session's listener and countdown.
func retire(l *live) {
	l.retired.Store(true)
	l.unsubscribe()
	_ = l.ctrl.Reset()
}
