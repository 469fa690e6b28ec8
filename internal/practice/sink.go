package practice

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/spanish-quiz/internal/db/repository"
	"github.com/gokatarajesh/spanish-quiz/internal/metrics"
	"github.com/gokatarajesh/spanish-quiz/internal/quiz"
	"github.com/gokatarajesh/spanish-quiz/internal/quiz/export"
	"github.com/gokatarajesh/spanish-quiz/internal/quiz/scoring"
)

const (
	defaultSinkBuffer  = 1024
	defaultSinkTimeout = 5 * time.Second
)

// Sink applies session changes on a single goroutine: snapshot, publish,
// metrics, and on completion the stored result and a bank prefetch. Changes
// older than the last stored one still count toward metrics and results but
// never overwrite the snapshot.
type Sink struct {
	queue     chan Envelope
	snapshots SnapshotStore
	publisher Publisher
	results   ResultStore
	prefetch  Prefetcher
	engine    *scoring.Engine
	exporter  *export.Exporter
	metrics   *metrics.Session
	timeout   time.Duration
	now       func() time.Time
	logger    zerolog.Logger

	// applied is the newest position stored per participant. Only Run's
	// goroutine touches it.
	applied map[uuid.UUID]position
}

// position orders envelopes of one participant: by controller instance,
// then by change sequence.
type position struct {
	instance uint64
	seq      uint64
}

func (p position) before(q position) bool {
	return p.instance < q.instance || (p.instance == q.instance && p.seq < q.seq)
}

// SinkOptions wires the sink's collaborators. Every field is optional.
type SinkOptions struct {
	Buffer    int
	Snapshots SnapshotStore
	Publisher Publisher
	Results   ResultStore
	Prefetch  Prefetcher
	Engine    *scoring.Engine
	Metrics   *metrics.Session
	Timeout   time.Duration
	Logger    zerolog.Logger
}

// NewSink creates a sink. Call Run to start processing.
func NewSink(opts SinkOptions) *Sink {
	if opts.Buffer <= 0 {
		opts.Buffer = defaultSinkBuffer
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultSinkTimeout
	}
	if opts.Engine == nil {
		opts.Engine = scoring.NewEngine(scoring.DefaultConfig())
	}
	return &Sink{
		queue:     make(chan Envelope, opts.Buffer),
		snapshots: opts.Snapshots,
		publisher: opts.Publisher,
		results:   opts.Results,
		prefetch:  opts.Prefetch,
		engine:    opts.Engine,
		exporter:  export.New(opts.Engine),
		metrics:   opts.Metrics,
		timeout:   opts.Timeout,
		now:       time.Now,
		logger:    opts.Logger.With().Str("component", "practice_sink").Logger(),
		applied:   make(map[uuid.UUID]position),
	}
}

// Submit queues env without blocking. Returns false when the buffer is full.
func (s *Sink) Submit(env Envelope) bool {
	select {
	case s.queue <- env:
		return true
	default:
		return false
	}
}

// Run processes envelopes until ctx is cancelled, then drains what is already queued.
func (s *Sink) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			s.drain(context.WithoutCancel(ctx))
			return ctx.Err()
		case env := <-s.queue:
			s.handle(ctx, env)
		}
	}
}

func (s *Sink) drain(ctx context.Context) {
	for {
		select {
		case env := <-s.queue:
			s.handle(ctx, env)
		default:
			return
		}
	}
}

func (s *Sink) handle(parent context.Context, env Envelope) {
	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	logger := s.logger.With().Str("participant_id", env.ParticipantID.String()).Logger()

	if env.Discarded {
		// A discard outranks every change of its instance.
		if !s.advance(env.ParticipantID, position{instance: env.Instance, seq: math.MaxUint64}) {
			return
		}
		if s.snapshots != nil {
			if err := s.snapshots.Delete(ctx, env.ParticipantID); err != nil {
				logger.Warn().Err(err).Msg("delete snapshot failed")
			}
		}
		return
	}

	change := env.Change
	if s.advance(env.ParticipantID, position{instance: env.Instance, seq: change.Seq}) {
		s.store(ctx, env, logger)
	} else {
		logger.Debug().
			Uint64("seq", change.Seq).
			Str("event", string(change.Event)).
			Msg("stale change, snapshot kept")
	}

	s.record(change)

	if change.Completed() {
		s.complete(ctx, env, logger)
	}
}

// advance moves the participant's position to pos unless a newer one was
// already applied.
func (s *Sink) advance(participantID uuid.UUID, pos position) bool {
	if last, ok := s.applied[participantID]; ok && pos.before(last) {
		return false
	}
	s.applied[participantID] = pos
	return true
}

// store saves and publishes the snapshot carried by env.
func (s *Sink) store(ctx context.Context, env Envelope, logger zerolog.Logger) {
	change := env.Change
	if s.snapshots != nil {
		snap := Snapshot{
			ParticipantID: env.ParticipantID,
			Request:       env.Request,
			Config:        env.Config,
			Event:         change.Event,
			Session:       change.Session,
			UpdatedAt:     s.now().UTC(),
		}
		if err := s.snapshots.Save(ctx, snap); err != nil {
			logger.Warn().Err(err).Str("event", string(change.Event)).Msg("save snapshot failed")
		}
	}

	if s.publisher != nil {
		u := Update{
			ParticipantID: env.ParticipantID,
			Seq:           change.Seq,
			Event:         change.Event,
			Session:       NewView(change.Session, env.Config, s.engine),
		}
		if err := s.publisher.Publish(ctx, u); err != nil {
			logger.Warn().Err(err).Str("event", string(change.Event)).Msg("publish update failed")
		}
	}
}

func (s *Sink) record(change quiz.Change) {
	switch change.Event {
	case quiz.EventStarted:
		s.metrics.SessionStarted()
	case quiz.EventAnswered, quiz.EventSkipped, quiz.EventTimedOut:
		answers := change.Session.Answers
		if len(answers) > 0 {
			s.metrics.AnswerRecorded(outcome(answers[len(answers)-1]))
		}
	}
}

func (s *Sink) complete(ctx context.Context, env Envelope, logger zerolog.Logger) {
	session := env.Change.Session
	sum := s.engine.Summarize(session)
	s.metrics.SessionCompleted(sum.Accuracy)

	logger.Info().
		Str("session_id", session.ID).
		Float64("accuracy", sum.Accuracy).
		Int("points", sum.Points).
		Int("max_streak", sum.MaxStreak).
		Msg("practice session completed")

	if s.results != nil {
		res, err := s.result(env, sum)
		if err != nil {
			logger.Warn().Err(err).Str("session_id", session.ID).Msg("build result failed")
		} else if _, err := s.results.Save(ctx, res); err != nil {
			logger.Warn().Err(err).Str("session_id", session.ID).Msg("save result failed")
		}
	}

	if s.prefetch != nil && !s.prefetch.Enqueue(env.Request) {
		logger.Debug().Str("topic", env.Request.Topic).Msg("prefetch queue full")
	}
}

func (s *Sink) result(env Envelope, sum scoring.Summary) (repository.SessionResult, error) {
	session := env.Change.Session
	records, err := s.exporter.Records(session)
	if err != nil {
		return repository.SessionResult{}, err
	}

	res := repository.SessionResult{
		SessionID:        session.ID,
		ParticipantID:    env.ParticipantID,
		Topic:            env.Request.Topic,
		Difficulty:       string(env.Request.Difficulty),
		TotalQuestions:   sum.TotalQuestions,
		Correct:          sum.Correct,
		Incorrect:        sum.Incorrect,
		Skipped:          sum.Skipped,
		TimedOut:         sum.TimedOut,
		HintsUsed:        sum.HintsUsed,
		Accuracy:         sum.Accuracy,
		Points:           sum.Points,
		MaxStreak:        sum.MaxStreak,
		TotalTimeMs:      sum.TotalTimeMs,
		ActiveDurationMs: sum.ActiveDurationMs,
		StartedAt:        session.StartedAt,
		CompletedAt:      session.CompletedAt,
		Answers:          make([]repository.SessionAnswer, 0, len(session.Answers)),
	}
	for _, rec := range records {
		if rec.Kind != export.KindQuestion {
			continue
		}
		a := session.Answers[rec.Position-1]
		res.Answers = append(res.Answers, repository.SessionAnswer{
			Position:      rec.Position,
			QuestionID:    rec.QuestionID,
			Prompt:        rec.Prompt,
			Choice:        rec.Choice,
			SelectedIndex: a.SelectedIndex,
			IsCorrect:     a.IsCorrect,
			Skipped:       a.Skipped,
			TimedOut:      a.TimedOut,
			HintUsed:      a.HintUsed,
			TimeTakenMs:   a.TimeTaken.Milliseconds(),
			Points:        rec.Points,
		})
	}
	return res, nil
}

func outcome(a quiz.AnswerRecord) string {
	switch {
	case a.TimedOut:
		return metrics.OutcomeTimedOut
	case a.Skipped:
		return metrics.OutcomeSkipped
	case a.IsCorrect:
		return metrics.OutcomeCorrect
	default:
		return metrics.OutcomeIncorrect
	}
}
