package main

import (
	"context"
	"flag"
	"os"

	"github.com/joho/godotenv"

	"github.com/reviewarcade/platform/internal/app"
	"github.com/reviewarcade/platform/internal/config"
	"github.com/reviewarcade/platform/internal/logging"
)

func main() {
	envFile := flag.String("env-file", "configs/.env", "dotenv file loaded outside production")
	flag.Parse()

	// Pre-config logger for bootstrap failures; replaced once config resolves.
	logger := logging.New("review-arcade", os.Getenv("APP_ENV"))

	if os.Getenv("APP_ENV") != "production" {
		if err := godotenv.Load(*envFile); err != nil {
			logger.Debug().Err(err).Str("path", *envFile).Msg("no dotenv file loaded")
		}
	}

	ctx := context.Background()
	cfg, err := config.Load(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	logger = logging.New(cfg.Name, cfg.Env)

	instance, err := app.New(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build app")
	}

	logger.Info().
		Str("addr", cfg.HTTPAddr).
		Int("max_sessions", cfg.Session.MaxSessions).
		Dur("answer_timeout", cfg.Session.AnswerTimeout).
		Msg("review arcade session server starting")

	if err := instance.Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("runtime error")
	}
}
