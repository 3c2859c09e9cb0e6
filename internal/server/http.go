package server

import (
	"context"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/reviewarcade/platform/internal/auth"
	"github.com/reviewarcade/platform/internal/config"
	"github.com/reviewarcade/platform/internal/logging"
	"github.com/reviewarcade/platform/internal/session"
)

// NewHTTPServer wires the REST surface, the WebSocket upgrade route, and the
// operational endpoints (health, metrics).
func NewHTTPServer(cfg *config.App, logger zerolog.Logger, pool *pgxpool.Pool, rdb *redis.Client, verifier *auth.Verifier, sessionHTTP *session.HTTPHandlers, sessionWS *session.WSHandler) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.IntoContext(r.Context(), logger)
		if err := pingDependencies(ctx, pool, rdb); err != nil {
			logger.Error().Err(err).Msg("dependency ping failed")
			http.Error(w, "upstream error", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /api/reviewarcade/sessions", sessionHTTP.CreateSession)
	mux.HandleFunc("GET /api/reviewarcade/sessions", sessionHTTP.ListSessions)
	mux.HandleFunc("GET /api/reviewarcade/sessions/{code}", sessionHTTP.PreviewSession)
	mux.HandleFunc("POST /api/reviewarcade/sessions/{code}/join", sessionHTTP.Join)
	mux.HandleFunc("POST /api/reviewarcade/sessions/{code}/join-teacher", sessionHTTP.JoinTeacher)
	mux.HandleFunc("GET /api/reviewarcade/sessions/{id}/results", sessionHTTP.Results)

	mux.HandleFunc("GET /ws/reviewarcade/{code}", sessionWS.Handle)

	handler := auth.Middleware(verifier, logger)(mux)

	return &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: handler,
	}
}

func pingDependencies(ctx context.Context, pool *pgxpool.Pool, rdb *redis.Client) error {
	if err := pool.Ping(ctx); err != nil {
		return err
	}
	return rdb.Ping(ctx).Err()
}
