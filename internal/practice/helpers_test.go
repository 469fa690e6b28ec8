package practice

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/spanish-quiz/internal/clock"
	"github.com/gokatarajesh/spanish-quiz/internal/db/repository"
	"github.com/gokatarajesh/spanish-quiz/internal/questionbank"
	"github.com/gokatarajesh/spanish-quiz/internal/quiz"
)

var epoch = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func sampleBank(n int) []quiz.Question {
	qs := make([]quiz.Question, n)
	for i := range qs {
		qs[i] = quiz.Question{
			ID:               fmt.Sprintf("q%d", i+1),
			Prompt:           fmt.Sprintf("¿Cuál es la palabra %d?", i+1),
			Options:          []string{"uno", "dos", "tres"},
			CorrectIndex:     i % 3,
			Explanation:      "Vocabulario básico.",
			Difficulty:       quiz.DifficultyBeginner,
			TimeLimitSeconds: 30,
			Hint:             fmt.Sprintf("pista %d", i+1),
		}
	}
	return qs
}

type stubBanks struct {
	mu        sync.Mutex
	questions []quiz.Question
	err       error
	requests  []questionbank.Request
}

func (b *stubBanks) FetchBank(_ context.Context, req questionbank.Request) (questionbank.Bank, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = append(b.requests, req)
	if b.err != nil {
		return questionbank.Bank{}, b.err
	}
	return questionbank.Bank{Request: req, Questions: b.questions}, nil
}

type recordingSink struct {
	mu        sync.Mutex
	envelopes []Envelope
	full      bool
}

func (s *recordingSink) Submit(env Envelope) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.full {
		return false
	}
	s.envelopes = append(s.envelopes, env)
	return true
}

func (s *recordingSink) events() []quiz.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]quiz.Event, 0, len(s.envelopes))
	for _, env := range s.envelopes {
		if env.Discarded {
			out = append(out, "discarded")
			continue
		}
		out = append(out, env.Change.Event)
	}
	return out
}

func (s *recordingSink) last() Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.envelopes[len(s.envelopes)-1]
}

type fakeClocks struct {
	mu    sync.Mutex
	fakes []*clock.Fake
}

func (c *fakeClocks) next() clock.Clock {
	c.mu.Lock()
	defer c.mu.Unlock()
	f := clock.NewFake(epoch)
	c.fakes = append(c.fakes, f)
	return f
}

func (c *fakeClocks) at(i int) *clock.Fake {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fakes[i]
}

func (c *fakeClocks) latest() *clock.Fake {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fakes[len(c.fakes)-1]
}

type memorySnapshots struct {
	mu    sync.Mutex
	items map[uuid.UUID]Snapshot
	err   error
}

func newMemorySnapshots() *memorySnapshots {
	return &memorySnapshots{items: make(map[uuid.UUID]Snapshot)}
}

func (m *memorySnapshots) Save(_ context.Context, snap Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.items[snap.ParticipantID] = snap
	return nil
}

func (m *memorySnapshots) Load(_ context.Context, id uuid.UUID) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.items[id]
	if !ok {
		return Snapshot{}, ErrNoSession
	}
	return snap, nil
}

func (m *memorySnapshots) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	return nil
}

type memoryPublisher struct {
	mu      sync.Mutex
	updates []Update
}

func (p *memoryPublisher) Publish(_ context.Context, u Update) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates = append(p.updates, u)
	return nil
}

type memoryResults struct {
	mu    sync.Mutex
	saved []repository.SessionResult
}

func (r *memoryResults) Save(_ context.Context, res repository.SessionResult) (repository.SessionResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if res.ID == uuid.Nil {
		res.ID = uuid.New()
	}
	r.saved = append(r.saved, res)
	return res, nil
}

func (r *memoryResults) ListByParticipant(_ context.Context, participantID uuid.UUID, limit int, withAnswers bool) ([]repository.SessionResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []repository.SessionResult
	for i := len(r.saved) - 1; i >= 0; i-- {
		res := r.saved[i]
		if res.ParticipantID != participantID {
			continue
		}
		if !withAnswers {
			res.Answers = nil
		}
		out = append(out, res)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

type recordingPrefetch struct {
	mu       sync.Mutex
	requests []questionbank.Request
}

func (p *recordingPrefetch) Enqueue(req questionbank.Request) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	return true
}

type testService struct {
	*Service
	banks  *stubBanks
	sink   *recordingSink
	clocks *fakeClocks
}

func newTestService(t *testing.T, opts ServiceOptions) *testService {
	t.Helper()
	banks := &stubBanks{questions: sampleBank(3)}
	sink := &recordingSink{}
	clocks := &fakeClocks{}
	opts.Clock = clocks.next
	opts.Logger = zerolog.Nop()
	if opts.Defaults == (quiz.Config{}) {
		opts.Defaults = quiz.Config{AllowSkip: true, ShowHints: true}
	}
	svc := NewService(banks, sink, opts)
	t.Cleanup(svc.Close)
	return &testService{Service: svc, banks: banks, sink: sink, clocks: clocks}
}
