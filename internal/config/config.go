package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// App holds core runtime configuration shared across services.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"review-arcade"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`

	Postgres Postgres
	Redis    Redis
	Identity Identity
	Session  Session
	Question Question
}

// Postgres captures connection info for the results and question bank store.
type Postgres struct {
	Host     string `env:"PG_HOST,notEmpty"`
	Port     int    `env:"PG_PORT" envDefault:"5432"`
	User     string `env:"PG_USER,notEmpty"`
	Password string `env:"PG_PASSWORD,notEmpty"`
	Database string `env:"PG_DATABASE,notEmpty"`
	SSLMode  string `env:"PG_SSL_MODE" envDefault:"disable"`
}

// DSN renders the keyword/value connection string shared by the API pool and
// the migrator.
func (p Postgres) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode)
}

// Redis holds cache configuration for question banks and recency indexes.
type Redis struct {
	Addr     string `env:"REDIS_ADDR,notEmpty"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"20"`
}

// Identity configures verification of teacher bearer tokens.
type Identity struct {
	JWTSecret string `env:"IDENTITY_JWT_SECRET,notEmpty"`
	Issuer    string `env:"IDENTITY_ISSUER" envDefault:"review-arcade-idp"`
}

// Session groups live-session runtime tunables.
type Session struct {
	MaxSessions       int           `env:"MAX_SESSIONS" envDefault:"500"`
	ReapGrace         time.Duration `env:"REAP_GRACE_SECONDS" envDefault:"60s"`
	HeartbeatInterval time.Duration `env:"HEARTBEAT_INTERVAL_SECONDS" envDefault:"20s"`
	HeartbeatTimeout  time.Duration `env:"HEARTBEAT_TIMEOUT_SECONDS" envDefault:"45s"`
	AnswerTimeout     time.Duration `env:"ANSWER_TIMEOUT_SECONDS" envDefault:"120s"`
	InitTimeout       time.Duration `env:"INIT_TIMEOUT_SECONDS" envDefault:"5s"`
}

// Question groups question source defaults.
type Question struct {
	DefaultMinOperand int           `env:"MATH_DEFAULT_MIN_OPERAND" envDefault:"1"`
	DefaultMaxOperand int           `env:"MATH_DEFAULT_MAX_OPERAND" envDefault:"12"`
	BankCacheTTL      time.Duration `env:"BANK_CACHE_TTL" envDefault:"5m"`
}

// Load parses environment variables into App config.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.ParseWithOptions(cfg, env.Options{RequiredIfNoDef: true}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// LoadPostgres parses only the database settings. The migrator needs nothing
// else and must not fail on missing API-side variables.
func LoadPostgres(ctx context.Context) (*Postgres, error) {
	pg := &Postgres{}
	if err := env.ParseWithOptions(pg, env.Options{RequiredIfNoDef: true}); err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	return pg, nil
}
