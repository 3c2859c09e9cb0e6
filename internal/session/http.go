package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/reviewarcade/platform/internal/auth"
	"github.com/reviewarcade/platform/internal/question"
	"github.com/reviewarcade/platform/internal/results"
	httperrors "github.com/reviewarcade/platform/pkg/http/errors"
)

// ResultsStore is the persistence surface the REST layer needs; invoked only
// at session boundaries and for historical reads.
type ResultsStore interface {
	CreateSession(ctx context.Context, rec results.SessionRecord) error
	ListByTeacher(ctx context.Context, teacherID uuid.UUID, limit int) ([]results.SessionRecord, error)
	GetByCode(ctx context.Context, code string) (*results.SessionRecord, error)
	GetResults(ctx context.Context, sessionID uuid.UUID) (*results.SessionResults, error)
}

// HTTPHandlers provides the /api/reviewarcade REST endpoints.
type HTTPHandlers struct {
	registry *Registry
	store    ResultsStore
	logger   zerolog.Logger
}

// NewHTTPHandlers creates REST handlers over the registry and results store.
func NewHTTPHandlers(registry *Registry, store ResultsStore, logger zerolog.Logger) *HTTPHandlers {
	return &HTTPHandlers{
		registry: registry,
		store:    store,
		logger:   logger.With().Str("component", "session_http").Logger(),
	}
}

// CreateSessionRequest is the POST /sessions payload.
type CreateSessionRequest struct {
	GameType         string               `json:"game_type"`
	TeacherMode      string               `json:"teacher_mode"`
	TimeLimitMinutes int                  `json:"time_limit_minutes"`
	MaxPlayers       int                  `json:"max_players"`
	QuestionSource   string               `json:"question_source"`
	QuestionConfig   *question.MathConfig `json:"question_config,omitempty"`
	QuestionBankIDs  []uuid.UUID          `json:"question_bank_ids,omitempty"`
}

// SessionResponse is returned on session creation.
type SessionResponse struct {
	ID          uuid.UUID `json:"id"`
	Code        string    `json:"code"`
	Status      string    `json:"status"`
	GameType    string    `json:"game_type"`
	TeacherMode string    `json:"teacher_mode"`
	Config      Config    `json:"config"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateSession handles POST /api/reviewarcade/sessions.
func (h *HTTPHandlers) CreateSession(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthRequired, "teacher authentication required")
		return
	}

	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeBadMessage, "invalid JSON payload")
		return
	}

	if !GameTypes[req.GameType] {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeBadMessage, "unknown game_type")
		return
	}
	if req.TeacherMode != TeacherModeMonitor && req.TeacherMode != TeacherModePlay {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeBadMessage, "teacher_mode must be monitor or play")
		return
	}

	cfg := Config{
		TimeLimitSeconds: req.TimeLimitMinutes * 60,
		MaxPlayers:       req.MaxPlayers,
		QuestionSource:   req.QuestionSource,
		MathConfig:       req.QuestionConfig,
		BankIDs:          req.QuestionBankIDs,
	}
	if err := cfg.Validate(); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeBadMessage, err.Error())
		return
	}

	actor, err := h.registry.Create(r.Context(), CreateParams{
		TeacherID:   claims.TeacherID,
		TeacherName: claims.DisplayName,
		TeacherMode: req.TeacherMode,
		GameType:    req.GameType,
		Config:      cfg,
	})
	if err != nil {
		if errors.Is(err, ErrCapacity) {
			httperrors.RespondError(w, http.StatusServiceUnavailable, httperrors.ErrCodeInternal, "session capacity reached")
			return
		}
		h.logger.Error().Err(err).Msg("session creation failed")
		httperrors.RespondBadRequest(w, httperrors.ErrCodeBadMessage, err.Error())
		return
	}

	now := time.Now()
	rec := results.SessionRecord{
		ID:               actor.ID(),
		Code:             actor.Code(),
		TeacherID:        claims.TeacherID,
		GameType:         req.GameType,
		TeacherMode:      req.TeacherMode,
		Status:           StatusLobby,
		TimeLimitSeconds: cfg.TimeLimitSeconds,
		MaxPlayers:       cfg.MaxPlayers,
		QuestionSource:   cfg.QuestionSource,
		CreatedAt:        now,
	}
	if h.store != nil {
		if err := h.store.CreateSession(r.Context(), rec); err != nil {
			h.logger.Warn().Err(err).Str("code", actor.Code()).Msg("failed to persist session record")
		}
	}

	h.respondJSON(w, http.StatusCreated, SessionResponse{
		ID:          actor.ID(),
		Code:        actor.Code(),
		Status:      StatusLobby,
		GameType:    req.GameType,
		TeacherMode: req.TeacherMode,
		Config:      cfg,
		CreatedAt:   now,
	})
}

// ListSessions handles GET /api/reviewarcade/sessions?limit=N.
func (h *HTTPHandlers) ListSessions(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthRequired, "teacher authentication required")
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			httperrors.RespondBadRequest(w, httperrors.ErrCodeBadMessage, "limit must be a positive integer")
			return
		}
		if n > 100 {
			n = 100
		}
		limit = n
	}

	recs, err := h.store.ListByTeacher(r.Context(), claims.TeacherID, limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("list sessions failed")
		httperrors.RespondInternalError(w, "failed to list sessions")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{"sessions": recs})
}

// PreviewSession handles GET /api/reviewarcade/sessions/{code}.
func (h *HTTPHandlers) PreviewSession(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(r.PathValue("code"))
	actor, ok := h.registry.Lookup(code)
	if ok {
		if preview, alive := actor.Preview(); alive {
			if preview.Status == StatusEnded {
				httperrors.RespondGone(w, httperrors.ErrCodeGone, "session has ended")
				return
			}
			h.respondJSON(w, http.StatusOK, preview)
			return
		}
	}
	h.respondMissing(w, r, code)
}

// JoinRequest is the public join payload.
type JoinRequest struct {
	Name string `json:"name"`
}

// Join handles POST /api/reviewarcade/sessions/{code}/join.
func (h *HTTPHandlers) Join(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(r.PathValue("code"))
	actor, ok := h.registry.Lookup(code)
	if !ok {
		h.respondMissing(w, r, code)
		return
	}

	var req JoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeBadMessage, "invalid JSON payload")
		return
	}

	player, err := actor.Join(req.Name)
	if err != nil {
		h.respondJoinError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, player)
}

// JoinTeacher handles POST /api/reviewarcade/sessions/{code}/join-teacher.
func (h *HTTPHandlers) JoinTeacher(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthRequired, "teacher authentication required")
		return
	}

	code := strings.ToUpper(r.PathValue("code"))
	actor, ok := h.registry.Lookup(code)
	if !ok {
		h.respondMissing(w, r, code)
		return
	}
	if actor.TeacherID() != claims.TeacherID {
		httperrors.RespondForbidden(w, httperrors.ErrCodeForbidden, "not the session owner")
		return
	}

	name := claims.DisplayName
	if _, err := NormalizeDisplayName(name); err != nil {
		name = "Teacher"
	}
	player, err := actor.JoinTeacher(claims.TeacherID, name)
	if err != nil {
		h.respondJoinError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, player)
}

// Results handles GET /api/reviewarcade/sessions/{id}/results.
func (h *HTTPHandlers) Results(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthRequired, "teacher authentication required")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeBadMessage, "invalid session id")
		return
	}

	res, err := h.store.GetResults(r.Context(), id)
	if err != nil {
		if errors.Is(err, results.ErrNotFound) {
			httperrors.RespondNotFound(w, httperrors.ErrCodeNotFound, "session not found")
			return
		}
		h.logger.Error().Err(err).Str("session_id", id.String()).Msg("load results failed")
		httperrors.RespondInternalError(w, "failed to load results")
		return
	}
	if res.Session.TeacherID != claims.TeacherID {
		httperrors.RespondForbidden(w, httperrors.ErrCodeForbidden, "not the session owner")
		return
	}
	h.respondJSON(w, http.StatusOK, res)
}

// respondMissing distinguishes ended sessions (410) from unknown codes (404)
// using the persisted record.
func (h *HTTPHandlers) respondMissing(w http.ResponseWriter, r *http.Request, code string) {
	if h.store != nil {
		if rec, err := h.store.GetByCode(r.Context(), code); err == nil && rec.Status == StatusEnded {
			httperrors.RespondGone(w, httperrors.ErrCodeGone, "session has ended")
			return
		}
	}
	httperrors.RespondNotFound(w, httperrors.ErrCodeNotFound, "session not found")
}

func (h *HTTPHandlers) respondJoinError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrFull):
		httperrors.RespondConflict(w, httperrors.ErrCodeFull, "full")
	case errors.Is(err, ErrNotAccepting):
		httperrors.RespondConflict(w, httperrors.ErrCodeNotAccepting, "not accepting")
	case errors.Is(err, ErrSessionEnded):
		httperrors.RespondGone(w, httperrors.ErrCodeGone, "session has ended")
	case errors.Is(err, ErrBadName):
		httperrors.RespondBadRequest(w, httperrors.ErrCodeBadName, "display name must be 2-50 characters")
	default:
		h.logger.Error().Err(err).Msg("join failed")
		httperrors.RespondInternalError(w, "join failed")
	}
}

func (h *HTTPHandlers) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
