package question

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type bankLister interface {
	ListByBankIDs(ctx context.Context, bankIDs []uuid.UUID) ([]Question, error)
}

// Loader resolves question banks through the cache first, then Postgres.
// Cache failures degrade to a database read.
type Loader struct {
	repo   bankLister
	cache  *Cache
	logger zerolog.Logger
}

// NewLoader constructs a bank loader. The cache may be nil.
func NewLoader(repo bankLister, cache *Cache, logger zerolog.Logger) *Loader {
	return &Loader{
		repo:   repo,
		cache:  cache,
		logger: logger.With().Str("component", "bank_loader").Logger(),
	}
}

// Load returns all questions for a set of banks.
func (l *Loader) Load(ctx context.Context, bankIDs []uuid.UUID) ([]Question, error) {
	if l.cache != nil {
		if cached, err := l.cache.Get(ctx, bankIDs); err == nil && cached != nil {
			return cached, nil
		} else if err != nil {
			l.logger.Warn().Err(err).Msg("bank cache read failed")
		}
	}

	questions, err := l.repo.ListByBankIDs(ctx, bankIDs)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, ErrEmptyBank
	}

	if l.cache != nil {
		if err := l.cache.Set(ctx, bankIDs, questions); err != nil {
			l.logger.Warn().Err(err).Msg("bank cache write failed")
		}
	}
	return questions, nil
}
