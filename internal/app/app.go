package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/reviewarcade/platform/internal/auth"
	"github.com/reviewarcade/platform/internal/config"
	"github.com/reviewarcade/platform/internal/logging"
	"github.com/reviewarcade/platform/internal/question"
	"github.com/reviewarcade/platform/internal/results"
	"github.com/reviewarcade/platform/internal/server"
	"github.com/reviewarcade/platform/internal/session"
)

// Application aggregates shared infrastructure (DB, cache, registry, HTTP).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	pool     *pgxpool.Pool
	redis    *redis.Client
	registry *session.Registry
	http     *http.Server
}

// New bootstraps the logger, Postgres, Redis, the session registry, and the
// HTTP server from an already loaded config.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env)
	logger.Info().Msg("starting application bootstrap")

	pool, err := pgxpool.New(ctx, cfg.Postgres.DSN()+" pool_max_conns=10")
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	verifier := auth.NewVerifier(auth.VerifierConfig{
		Secret: []byte(cfg.Identity.JWTSecret),
		Issuer: cfg.Identity.Issuer,
	})

	bankRepo := question.NewBankRepository(pool)
	bankCache := question.NewCache(redisClient, cfg.Question.BankCacheTTL)
	bankLoader := question.NewLoader(bankRepo, bankCache, logger)

	recentIndex := results.NewRecentIndex(redisClient)
	resultsRepo := results.NewRepository(pool, recentIndex, logger)

	registry := session.NewRegistry(cfg.Session.MaxSessions, bankLoader, resultsRepo, session.Options{
		AnswerTimeout: cfg.Session.AnswerTimeout,
		ReapGrace:     cfg.Session.ReapGrace,
	}, logger)

	sessionHTTP := session.NewHTTPHandlers(registry, resultsRepo, logger)
	sessionWS := session.NewWSHandler(registry, verifier, session.WSOptions{
		InitTimeout:  cfg.Session.InitTimeout,
		PingInterval: cfg.Session.HeartbeatInterval,
		PongTimeout:  cfg.Session.HeartbeatTimeout,
	}, logger)

	apiServer := server.NewHTTPServer(cfg, logger, pool, redisClient, verifier, sessionHTTP, sessionWS)

	return &Application{
		cfg:      cfg,
		logger:   logger,
		pool:     pool,
		redis:    redisClient,
		registry: registry,
		http:     apiServer,
	}, nil
}

// Run starts the HTTP server and blocks until a termination signal.
func (a *Application) Run(ctx context.Context) error {
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	g, gctx := errgroup.WithContext(sigCtx)

	g.Go(func() error {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info().Msg("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
		defer cancel()
		if err := a.http.Shutdown(shutdownCtx); err != nil {
			a.logger.Error().Err(err).Msg("http shutdown error")
		}

		a.registry.CloseAll()
		a.pool.Close()
		if err := a.redis.Close(); err != nil {
			a.logger.Error().Err(err).Msg("redis shutdown error")
		}
		return nil
	})

	err := g.Wait()
	a.logger.Info().Msg("shutdown complete")
	return err
}
