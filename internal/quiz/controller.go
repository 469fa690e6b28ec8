package quiz

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/spanish-quiz/internal/clock"
)

// Controller drives one Session through setup, active, paused and completed.
// All methods are synchronous and safe for concurrent use; the only
// asynchronous input is the clock's timeout callback.
type Controller struct {
	mu     sync.Mutex
	bank   []Question
	cfg    Config
	clock  clock.Clock
	logger zerolog.Logger
	newID  func() string

	session *Session
	// gen identifies the live countdown. Any arm or cancel bumps it, so a
	// timeout carrying an older generation lost the race and is dropped.
	gen       uint64
	remaining time.Duration
	pausedAt  time.Time
	hintUsed  bool
	// seq numbers published changes; it survives Reset.
	seq uint64

	lmu       sync.RWMutex
	listeners []listener
	nextID    int
}

type listener struct {
	id int
	fn func(Change)
}

// Option customizes a Controller.
type Option func(*Controller)

// WithClock injects the countdown used for per-question limits.
func WithClock(c clock.Clock) Option {
	return func(ctrl *Controller) {
		if c != nil {
			ctrl.clock = c
		}
	}
}

// WithLogger sets the transition logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(ctrl *Controller) {
		ctrl.logger = logger.With().Str("component", "quiz_controller").Logger()
	}
}

// WithIDGenerator overrides how session IDs are minted.
func WithIDGenerator(fn func() string) Option {
	return func(ctrl *Controller) {
		if fn != nil {
			ctrl.newID = fn
		}
	}
}

// NewController validates the bank and returns a controller holding a Session in setup.
func NewController(bank []Question, cfg Config, opts ...Option) (*Controller, error) {
	if err := ValidateBank(bank); err != nil {
		return nil, err
	}

	owned := make([]Question, len(bank))
	for i, q := range bank {
		owned[i] = q.clone()
	}

	c := &Controller{
		bank:   owned,
		cfg:    cfg,
		clock:  clock.NewReal(),
		logger: zerolog.Nop(),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.session = c.freshSession()
	return c, nil
}

func (c *Controller) freshSession() *Session {
	return &Session{
		ID:        c.newID(),
		Questions: c.bank,
		Answers:   make([]AnswerRecord, 0, len(c.bank)),
		State:     StateSetup,
	}
}

// Config returns the controller's configuration.
func (c *Controller) Config() Config {
	return c.cfg
}

// Start reveals the first question and arms its countdown.
func (c *Controller) Start() error {
	return c.transition(func() (Event, error) {
		s := c.session
		if s.State != StateSetup {
			return "", invalidTransition("start", s.State)
		}
		s.State = StateActive
		s.StartedAt = c.clock.Now()
		c.armLocked(s.Questions[0].TimeLimit())
		return EventStarted, nil
	})
}

// SubmitAnswer records the option at index for the current question.
func (c *Controller) SubmitAnswer(index int) error {
	return c.transition(func() (Event, error) {
		s := c.session
		if s.State != StateActive {
			return "", invalidTransition("submit", s.State)
		}
		q := s.Questions[s.CurrentIndex]
		if index < 0 || index >= len(q.Options) {
			return "", fmt.Errorf("%w: index %d outside 0..%d", ErrInvalidAnswer, index, len(q.Options)-1)
		}

		remaining := c.cancelLocked()
		selected := index
		c.recordLocked(AnswerRecord{
			QuestionID:    q.ID,
			SelectedIndex: &selected,
			IsCorrect:     index == q.CorrectIndex,
			TimeTaken:     elapsed(q.TimeLimit(), remaining),
			HintUsed:      c.hintUsed,
		})
		return EventAnswered, nil
	})
}

// Skip abandons the current question. Requires Config.AllowSkip.
func (c *Controller) Skip() error {
	return c.transition(func() (Event, error) {
		s := c.session
		if s.State != StateActive {
			return "", invalidTransition("skip", s.State)
		}
		if !c.cfg.AllowSkip {
			return "", fmt.Errorf("%w: skipping is disabled", ErrInvalidTransition)
		}

		q := s.Questions[s.CurrentIndex]
		remaining := c.cancelLocked()
		c.recordLocked(AnswerRecord{
			QuestionID: q.ID,
			TimeTaken:  elapsed(q.TimeLimit(), remaining),
			Skipped:    true,
			HintUsed:   c.hintUsed,
		})
		return EventSkipped, nil
	})
}

// Pause stops the countdown and keeps the time that was left.
func (c *Controller) Pause() error {
	return c.transition(func() (Event, error) {
		s := c.session
		if s.State != StateActive {
			return "", invalidTransition("pause", s.State)
		}
		c.remaining = c.cancelLocked()
		c.pausedAt = c.clock.Now()
		s.State = StatePaused
		return EventPaused, nil
	})
}

// Resume re-arms the countdown with exactly the time captured by Pause.
func (c *Controller) Resume() error {
	return c.transition(func() (Event, error) {
		s := c.session
		if s.State != StatePaused {
			return "", invalidTransition("resume", s.State)
		}
		if paused := c.clock.Now().Sub(c.pausedAt); paused > 0 {
			s.PausedAccumulated += paused
		}
		s.State = StateActive
		c.armLocked(c.remaining)
		c.remaining = 0
		c.pausedAt = time.Time{}
		return EventResumed, nil
	})
}

// RevealHint marks the in-progress answer as hinted and returns the hint text.
// Timing and state are untouched. Requires Config.ShowHints.
func (c *Controller) RevealHint() (string, error) {
	var hint string
	err := c.transition(func() (Event, error) {
		s := c.session
		if s.State != StateActive {
			return "", invalidTransition("hint", s.State)
		}
		if !c.cfg.ShowHints {
			return "", fmt.Errorf("%w: hints are disabled", ErrInvalidTransition)
		}
		c.hintUsed = true
		hint = s.Questions[s.CurrentIndex].Hint
		return EventHintRevealed, nil
	})
	return hint, err
}

// Reset cancels any countdown and replaces the session with a fresh one in setup.
func (c *Controller) Reset() error {
	return c.transition(func() (Event, error) {
		c.cancelLocked()
		c.session = c.freshSession()
		c.remaining = 0
		c.pausedAt = time.Time{}
		c.hintUsed = false
		return EventReset, nil
	})
}

// CurrentQuestion returns the question on screen. ok is false in setup and completed.
func (c *Controller) CurrentQuestion() (Question, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.session
	if s.State != StateActive && s.State != StatePaused {
		return Question{}, false
	}
	return s.Questions[s.CurrentIndex].clone(), true
}

// Snapshot returns a deep copy of the session for rendering or persistence.
func (c *Controller) Snapshot() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Latest returns the session together with the Seq of the last published change.
func (c *Controller) Latest() Change {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Change{Seq: c.seq, Session: c.snapshotLocked()}
}

// IsComplete reports whether the session reached completed.
func (c *Controller) IsComplete() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.State == StateCompleted
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.State
}

// OnStateChange registers fn to run after every transition and returns a
// function that removes it. Listeners run on the goroutine that caused the
// transition, after the controller lock is released, so changes raised on
// different goroutines may arrive out of order. Change.Seq restores the order.
func (c *Controller) OnStateChange(fn func(Change)) (unsubscribe func()) {
	c.lmu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners = append(c.listeners, listener{id: id, fn: fn})
	c.lmu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.lmu.Lock()
			defer c.lmu.Unlock()
			for i, l := range c.listeners {
				if l.id == id {
					c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// transition runs fn under the lock. On success the resulting snapshot is
// published; on failure nothing was mutated and nothing is published.
func (c *Controller) transition(fn func() (Event, error)) error {
	c.mu.Lock()
	event, err := fn()
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.seq++
	seq := c.seq
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.logger.Debug().
		Uint64("seq", seq).
		Str("session_id", snap.ID).
		Str("event", string(event)).
		Str("state", string(snap.State)).
		Int("index", snap.CurrentIndex).
		Msg("session transition")

	c.emit(Change{Seq: seq, Event: event, Session: snap})
	return nil
}

func (c *Controller) emit(change Change) {
	c.lmu.RLock()
	ls := make([]listener, len(c.listeners))
	copy(ls, c.listeners)
	c.lmu.RUnlock()

	changes := make([]Change, len(ls))
	for i := range ls {
		changes[i] = change
		if i > 0 {
			changes[i].Session = change.Session.Clone()
		}
	}
	for i, l := range ls {
		l.fn(changes[i])
	}
}

func (c *Controller) armLocked(d time.Duration) {
	c.gen++
	gen := c.gen
	c.clock.Arm(d, func() { c.expire(gen) })
}

func (c *Controller) cancelLocked() time.Duration {
	c.gen++
	return c.clock.Cancel()
}

// expire is the countdown callback for generation gen.
func (c *Controller) expire(gen uint64) {
	err := c.transition(func() (Event, error) {
		s := c.session
		if gen != c.gen || s.State != StateActive {
			return "", invalidTransition("timeout", s.State)
		}
		c.gen++
		q := s.Questions[s.CurrentIndex]
		c.recordLocked(AnswerRecord{
			QuestionID: q.ID,
			TimeTaken:  q.TimeLimit(),
			TimedOut:   true,
			HintUsed:   c.hintUsed,
		})
		return EventTimedOut, nil
	})
	if err != nil {
		c.logger.Debug().Err(err).Uint64("generation", gen).Msg("stale timeout dropped")
	}
}

// recordLocked appends the answer for the current question, updates the
// streak and either completes the session or arms the next countdown.
func (c *Controller) recordLocked(rec AnswerRecord) {
	s := c.session
	s.Answers = append(s.Answers, rec)
	if rec.IsCorrect {
		s.Streak++
	} else {
		s.Streak = 0
	}
	if s.Streak > s.MaxStreak {
		s.MaxStreak = s.Streak
	}
	s.CurrentIndex++
	c.hintUsed = false

	if s.CurrentIndex == len(s.Questions) {
		s.State = StateCompleted
		s.CompletedAt = c.clock.Now()
		return
	}
	c.armLocked(s.Questions[s.CurrentIndex].TimeLimit())
}

func (c *Controller) snapshotLocked() Session {
	snap := c.session.Clone()
	switch snap.State {
	case StateActive:
		snap.Remaining = c.clock.Remaining()
	case StatePaused:
		snap.Remaining = c.remaining
	}
	return snap
}

// elapsed converts the time left on a countdown into time spent, bounded by limit.
func elapsed(limit, remaining time.Duration) time.Duration {
	taken := limit - remaining
	if taken < 0 {
		return 0
	}
	if taken > limit {
		return limit
	}
	return taken
}
