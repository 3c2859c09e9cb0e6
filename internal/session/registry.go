package session

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/reviewarcade/platform/internal/metrics"
	"github.com/reviewarcade/platform/internal/question"
	"github.com/reviewarcade/platform/internal/session/scoring"
)

// codeAlphabet drops the lookalikes I, O, 0, and 1 for legibility.
const (
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength   = 6
)

// CreateParams describes a new session request.
type CreateParams struct {
	TeacherID   uuid.UUID
	TeacherName string
	TeacherMode string
	GameType    string
	Config      Config
}

// Registry is the process-wide map from session code to actor. Only the
// registry mutates its map; actors own everything behind their inbox.
type Registry struct {
	mu     sync.RWMutex
	byCode map[string]*Actor
	rng    *rand.Rand

	maxSessions int
	bankLoader  *question.Loader
	recorder    Recorder
	engine      *scoring.Engine
	opts        Options
	logger      zerolog.Logger
}

// NewRegistry constructs the registry. bankLoader and recorder may be nil in
// tests.
func NewRegistry(maxSessions int, bankLoader *question.Loader, recorder Recorder, opts Options, logger zerolog.Logger) *Registry {
	if maxSessions <= 0 {
		maxSessions = 500
	}
	return &Registry{
		byCode:      make(map[string]*Actor),
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		maxSessions: maxSessions,
		bankLoader:  bankLoader,
		recorder:    recorder,
		engine:      scoring.NewEngine(scoring.DefaultConfig()),
		opts:        opts,
		logger:      logger.With().Str("component", "registry").Logger(),
	}
}

// Create generates a unique code, builds the question source, and spawns the
// session actor.
func (r *Registry) Create(ctx context.Context, params CreateParams) (*Actor, error) {
	if err := params.Config.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	if len(r.byCode) >= r.maxSessions {
		r.mu.Unlock()
		return nil, ErrCapacity
	}
	seed := r.rng.Int63()
	code := r.generateCodeLocked()
	// Reserve the code before the (possibly slow) bank load.
	r.byCode[code] = nil
	r.mu.Unlock()

	source, err := r.buildSource(ctx, params.Config, seed)
	if err != nil {
		r.mu.Lock()
		delete(r.byCode, code)
		r.mu.Unlock()
		return nil, err
	}

	meta := Meta{
		ID:          uuid.New(),
		Code:        code,
		TeacherID:   params.TeacherID,
		TeacherName: params.TeacherName,
		TeacherMode: params.TeacherMode,
		GameType:    params.GameType,
	}
	actor := NewActor(meta, params.Config, source, r.engine, r.recorder, r.Remove, r.logger, r.opts)

	r.mu.Lock()
	r.byCode[code] = actor
	r.mu.Unlock()

	go actor.Run()
	metrics.ActiveSessions.Inc()
	r.logger.Info().Str("code", code).Str("game_type", params.GameType).Msg("session created")
	return actor, nil
}

func (r *Registry) buildSource(ctx context.Context, cfg Config, seed int64) (question.Source, error) {
	switch cfg.QuestionSource {
	case question.SourceMath:
		return question.NewMathGenerator(*cfg.MathConfig, seed)
	case question.SourceBank:
		if r.bankLoader == nil {
			return nil, fmt.Errorf("bank source not configured")
		}
		questions, err := r.bankLoader.Load(ctx, cfg.BankIDs)
		if err != nil {
			return nil, err
		}
		return question.NewBankSampler(questions, seed)
	}
	return nil, fmt.Errorf("unknown question source %q", cfg.QuestionSource)
}

func (r *Registry) generateCodeLocked() string {
	buf := make([]byte, codeLength)
	for {
		for i := range buf {
			buf[i] = codeAlphabet[r.rng.Intn(len(codeAlphabet))]
		}
		code := string(buf)
		if _, exists := r.byCode[code]; !exists {
			return code
		}
	}
}

// Lookup returns the live actor for a code.
func (r *Registry) Lookup(code string) (*Actor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	actor, ok := r.byCode[code]
	return actor, ok && actor != nil
}

// Remove reaps a session: it leaves the map and its actor shuts down, closing
// every attached connection.
func (r *Registry) Remove(code string) {
	r.mu.Lock()
	actor, ok := r.byCode[code]
	if ok {
		delete(r.byCode, code)
	}
	r.mu.Unlock()

	if ok && actor != nil {
		actor.Stop()
		metrics.ActiveSessions.Dec()
		r.logger.Info().Str("code", code).Msg("session reaped")
	}
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byCode)
}

// CloseAll stops every actor; used on shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	actors := make([]*Actor, 0, len(r.byCode))
	for code, actor := range r.byCode {
		if actor != nil {
			actors = append(actors, actor)
		}
		delete(r.byCode, code)
	}
	r.mu.Unlock()

	for _, actor := range actors {
		actor.Stop()
		metrics.ActiveSessions.Dec()
	}
}
