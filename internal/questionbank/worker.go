package questionbank

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// PrefetchWorker warms the bank cache so the next session for a topic starts
// without waiting on the generator.
type PrefetchWorker struct {
	service   *Service
	queue     chan Request
	logger    zerolog.Logger
	timeout   time.Duration
	shutdownC chan struct{}
	stopOnce  sync.Once
}

func NewPrefetchWorker(service *Service, queueSize int, logger zerolog.Logger, timeout time.Duration) *PrefetchWorker {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	if queueSize <= 0 {
		queueSize = 16
	}
	return &PrefetchWorker{
		service:   service,
		queue:     make(chan Request, queueSize),
		logger:    logger.With().Str("component", "bank_prefetch").Logger(),
		timeout:   timeout,
		shutdownC: make(chan struct{}),
	}
}

// Enqueue schedules req without blocking. Returns false when the queue is full.
func (w *PrefetchWorker) Enqueue(req Request) bool {
	select {
	case w.queue <- req:
		return true
	default:
		w.logger.Debug().Str("topic", req.Topic).Msg("prefetch queue full")
		return false
	}
}

// Run processes requests until ctx is done or Stop is called.
func (w *PrefetchWorker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("bank prefetch stopping")
			return
		case <-w.shutdownC:
			w.logger.Info().Msg("bank prefetch stopping")
			return
		case req := <-w.queue:
			w.handle(ctx, req)
		}
	}
}

func (w *PrefetchWorker) handle(parent context.Context, req Request) {
	ctx, cancel := context.WithTimeout(parent, w.timeout)
	defer cancel()

	if _, err := w.service.FetchBank(ctx, req); err != nil {
		w.logger.Warn().Err(err).Str("topic", req.Topic).Msg("prefetch failed")
		// let the generator prepare the bank asynchronously instead
		if enqueueErr := w.service.Enqueue(ctx, req); enqueueErr != nil {
			w.logger.Error().Err(enqueueErr).Msg("generator enqueue failed")
		}
	}
}

func (w *PrefetchWorker) Stop() {
	w.stopOnce.Do(func() { close(w.shutdownC) })
}
