package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/spanish-quiz/internal/auth"
	"github.com/gokatarajesh/spanish-quiz/internal/auth/jwt"
	"github.com/gokatarajesh/spanish-quiz/internal/config"
	"github.com/gokatarajesh/spanish-quiz/internal/db"
	"github.com/gokatarajesh/spanish-quiz/internal/db/repository"
	"github.com/gokatarajesh/spanish-quiz/internal/logging"
	"github.com/gokatarajesh/spanish-quiz/internal/metrics"
	"github.com/gokatarajesh/spanish-quiz/internal/practice"
	"github.com/gokatarajesh/spanish-quiz/internal/questionbank"
	"github.com/gokatarajesh/spanish-quiz/internal/questionbank/ai"
	"github.com/gokatarajesh/spanish-quiz/internal/quiz"
	"github.com/gokatarajesh/spanish-quiz/internal/quiz/scoring"
	"github.com/gokatarajesh/spanish-quiz/internal/server"
	ws "github.com/gokatarajesh/spanish-quiz/pkg/http/ws"
)

// Application aggregates shared infrastructure (DB, cache, HTTP server) and
// the background workers that serve practice sessions.
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	pool  *pgxpool.Pool
	redis *redis.Client
	http  *http.Server

	practice    *practice.Service
	sink        *practice.Sink
	broadcaster *practice.Broadcaster
	prefetch    *questionbank.PrefetchWorker

	bgCancels []context.CancelFunc
	bgWG      sync.WaitGroup
}

// New bootstraps the logger, Postgres, Redis, services and HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env, cfg.LogLevel)
	logger.Info().Msg("starting application bootstrap")

	pool, err := pgxpool.New(ctx, cfg.Postgres.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	resultRepo := repository.NewResultRepository(db.New(pool))

	authSvc := auth.NewService(auth.ServiceOptions{
		TokenConfig: jwt.TokenConfig{
			AccessSecret:  []byte(cfg.Security.JWTSecret),
			RefreshSecret: []byte(cfg.Security.JWTSecret + "_refresh"),
			AccessTTL:     cfg.Security.AccessTTL,
			RefreshTTL:    cfg.Security.RefreshTTL,
			Issuer:        cfg.Name,
		},
		Store: auth.NewRedisParticipantStore(redisClient),
	}, logger)

	generator, err := newGenerator(cfg, logger)
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, err
	}
	bankSvc := questionbank.NewService(
		questionbank.NewCache(redisClient, cfg.Quiz.BankCacheTTL),
		generator,
		questionbank.ServiceOptions{Logger: logger, ExpiresIn: cfg.Quiz.BankCacheTTL},
	)
	prefetch := questionbank.NewPrefetchWorker(bankSvc, cfg.Quiz.PrefetchQueue, logger, cfg.Quiz.BankFetchTimeout)

	engine := scoring.NewEngine(scoring.Config{
		BaseScore:          cfg.Scoring.BaseScore,
		MaxTimeBonus:       cfg.Scoring.MaxTimeBonus,
		StreakBonusPercent: cfg.Scoring.StreakBonusPercent,
		MaxStreakBonus:     cfg.Scoring.MaxStreakBonus,
		HintPenaltyPercent: cfg.Scoring.HintPenaltyPercent,
	})
	sessionMetrics := metrics.NewSession(prometheus.DefaultRegisterer)
	snapshots := practice.NewRedisSnapshotStore(redisClient, cfg.Quiz.SnapshotTTL)
	wsHub := ws.NewHub(logger)

	// Redis pub/sub fans updates out across instances; without a channel the
	// sink writes to this instance's hub directly.
	var (
		publisher   practice.Publisher = practice.NewHubPublisher(wsHub)
		broadcaster *practice.Broadcaster
	)
	if cfg.Quiz.PubSubChannel != "" {
		publisher = practice.NewRedisPublisher(redisClient, cfg.Quiz.PubSubChannel)
		broadcaster = practice.NewBroadcaster(redisClient, wsHub, cfg.Quiz.PubSubChannel, logger)
	}

	sink := practice.NewSink(practice.SinkOptions{
		Buffer:    cfg.Quiz.SinkBuffer,
		Snapshots: snapshots,
		Publisher: publisher,
		Results:   resultRepo,
		Prefetch:  prefetch,
		Engine:    engine,
		Metrics:   sessionMetrics,
		Logger:    logger,
	})

	practiceSvc := practice.NewService(bankSvc, sink, practice.ServiceOptions{
		Snapshots: snapshots,
		Results:   resultRepo,
		Engine:    engine,
		Defaults:  quiz.Config{AllowSkip: cfg.Quiz.AllowSkip, ShowHints: cfg.Quiz.ShowHints},
		Metrics:   sessionMetrics,
		Logger:    logger,
	})

	server.ConfigureOrigins(cfg.CORS.AllowedOrigins)
	apiServer := server.NewHTTPServer(cfg, logger, server.Options{
		Middleware: auth.AuthMiddleware(authSvc, logger),
		Pingers: map[string]server.Pinger{
			"postgres": pool.Ping,
			"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		},
		Routes: []server.Registrar{
			auth.NewHTTPHandlers(authSvc, logger),
			practice.NewHTTPHandlers(practiceSvc, logger),
			practice.NewWSHandler(practiceSvc, wsHub, authSvc, logger),
		},
	})

	return &Application{
		cfg:         cfg,
		logger:      logger,
		pool:        pool,
		redis:       redisClient,
		http:        apiServer,
		practice:    practiceSvc,
		sink:        sink,
		broadcaster: broadcaster,
		prefetch:    prefetch,
		bgCancels:   make([]context.CancelFunc, 0, 3),
	}, nil
}

// newGenerator picks the AI service when configured, else a bank file.
// Returns a nil generator when neither is set; FetchBank then serves cache hits only.
func newGenerator(cfg *config.App, logger zerolog.Logger) (questionbank.Generator, error) {
	if cfg.AI.GeneratorURL != "" {
		return ai.NewGenerator(ai.Config{
			GeneratorURL: cfg.AI.GeneratorURL,
			GeneratorKey: cfg.AI.GeneratorKey,
			Timeout:      cfg.AI.HTTPTimeout,
		}, logger), nil
	}
	if cfg.Quiz.BankFile != "" {
		questions, err := questionbank.LoadFile(cfg.Quiz.BankFile)
		if err != nil {
			return nil, fmt.Errorf("load question bank: %w", err)
		}
		logger.Info().Str("path", cfg.Quiz.BankFile).Int("questions", len(questions)).Msg("serving static question bank")
		return questionbank.NewStaticGenerator(questions), nil
	}
	logger.Warn().Msg("no question generator configured (set AI_GENERATOR_URL or QUIZ_BANK_FILE)")
	return nil, nil
}

// Run starts the HTTP server and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	a.startBackgroundWorkers(ctx)

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		runErr = fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	a.practice.Close()
	a.prefetch.Stop()
	for _, cancel := range a.bgCancels {
		cancel()
	}
	a.bgWG.Wait()

	a.pool.Close()
	if err := a.redis.Close(); err != nil {
		a.logger.Error().Err(err).Msg("redis shutdown error")
	}

	a.logger.Info().Msg("shutdown complete")
	return runErr
}

func (a *Application) startBackgroundWorkers(ctx context.Context) {
	a.goBackground(ctx, "practice sink", a.sink.Run)
	if a.broadcaster != nil {
		a.goBackground(ctx, "session broadcaster", a.broadcaster.Run)
	}
	a.goBackground(ctx, "bank prefetch", func(ctx context.Context) error {
		a.prefetch.Run(ctx)
		return nil
	})
}

func (a *Application) goBackground(ctx context.Context, name string, run func(context.Context) error) {
	bgCtx, cancel := context.WithCancel(ctx)
	a.bgCancels = append(a.bgCancels, cancel)
	a.bgWG.Add(1)
	go func() {
		defer a.bgWG.Done()
		if err := run(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Warn().Err(err).Str("worker", name).Msg("background worker stopped")
		}
	}()
}
