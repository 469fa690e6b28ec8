package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// App holds core runtime configuration shared across services.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"spanish-quiz"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`
	LogLevel                string        `env:"LOG_LEVEL" envDefault:"info"`

	Postgres Postgres
	Redis    Redis
	Security Security
	Quiz     Quiz
	AI       AI
	Scoring  Scoring
	CORS     CORS
}

// Postgres captures connection info for the SQL database.
type Postgres struct {
	Host     string `env:"PG_HOST,notEmpty"`
	Port     int    `env:"PG_PORT" envDefault:"5432"`
	User     string `env:"PG_USER,notEmpty"`
	Password string `env:"PG_PASSWORD,notEmpty"`
	Database string `env:"PG_DATABASE,notEmpty"`
	SSLMode  string `env:"PG_SSL_MODE" envDefault:"disable"`
	MaxConns int    `env:"PG_MAX_CONNS" envDefault:"10"`
}

// DSN returns a keyword/value connection string accepted by pgx.
func (p Postgres) DSN() string {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode)
	if p.MaxConns > 0 {
		dsn += fmt.Sprintf(" pool_max_conns=%d", p.MaxConns)
	}
	return dsn
}

// Redis holds cache + pub/sub configuration.
type Redis struct {
	Addr     string `env:"REDIS_ADDR,notEmpty"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"20"`
}

// Security stores secrets for signing tokens.
type Security struct {
	JWTSecret  string        `env:"JWT_SECRET,notEmpty"`
	AccessTTL  time.Duration `env:"JWT_ACCESS_TTL" envDefault:"1h"`
	RefreshTTL time.Duration `env:"JWT_REFRESH_TTL" envDefault:"168h"`
}

// Quiz groups session defaults and background plumbing.
type Quiz struct {
	AllowSkip        bool          `env:"QUIZ_ALLOW_SKIP" envDefault:"true"`
	ShowHints        bool          `env:"QUIZ_SHOW_HINTS" envDefault:"true"`
	SnapshotTTL      time.Duration `env:"QUIZ_SNAPSHOT_TTL" envDefault:"2h"`
	BankCacheTTL     time.Duration `env:"QUIZ_BANK_CACHE_TTL" envDefault:"10m"`
	BankFetchTimeout time.Duration `env:"QUIZ_BANK_FETCH_TIMEOUT" envDefault:"8s"`
	PrefetchQueue    int           `env:"QUIZ_PREFETCH_QUEUE" envDefault:"64"`
	SinkBuffer       int           `env:"QUIZ_SINK_BUFFER" envDefault:"1024"`
	PubSubChannel    string        `env:"QUIZ_PUBSUB_CHANNEL" envDefault:"quiz:sessions"`
	BankFile         string        `env:"QUIZ_BANK_FILE" envDefault:""`
}

// AI configures the AI question generator service.
type AI struct {
	GeneratorURL string        `env:"AI_GENERATOR_URL" envDefault:""`
	GeneratorKey string        `env:"AI_GENERATOR_API_KEY" envDefault:""`
	HTTPTimeout  time.Duration `env:"AI_HTTP_TIMEOUT" envDefault:"6s"`
}

// Scoring holds the points constants.
type Scoring struct {
	BaseScore          int     `env:"SCORING_BASE" envDefault:"100"`
	MaxTimeBonus       int     `env:"SCORING_MAX_TIME_BONUS" envDefault:"50"`
	StreakBonusPercent float64 `env:"SCORING_STREAK_PERCENT" envDefault:"0.05"`
	MaxStreakBonus     float64 `env:"SCORING_MAX_STREAK_BONUS" envDefault:"0.5"`
	HintPenaltyPercent float64 `env:"SCORING_HINT_PENALTY" envDefault:"0.25"`
}

// CORS holds Cross-Origin Resource Sharing configuration.
type CORS struct {
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://127.0.0.1:3000"`
	AllowedMethods   []string `env:"CORS_ALLOWED_METHODS" envSeparator:"," envDefault:"GET,POST,DELETE,OPTIONS"`
	AllowedHeaders   []string `env:"CORS_ALLOWED_HEADERS" envSeparator:"," envDefault:"Content-Type,Authorization"`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS" envDefault:"true"`
	MaxAge           int      `env:"CORS_MAX_AGE" envDefault:"3600"`
}

// Load parses environment variables into App config.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.ParseWithOptions(cfg, env.Options{RequiredIfNoDef: true}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
