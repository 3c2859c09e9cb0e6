package question

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestCacheRoundTrip(t *testing.T) {
	cache := NewCache(testRedis(t), time.Minute)
	ctx := context.Background()
	bankIDs := []uuid.UUID{uuid.New(), uuid.New()}

	got, err := cache.Get(ctx, bankIDs)
	require.NoError(t, err)
	assert.Nil(t, got, "miss before set")

	questions := bankOf(4)
	require.NoError(t, cache.Set(ctx, bankIDs, questions))

	got, err = cache.Get(ctx, bankIDs)
	require.NoError(t, err)
	assert.Equal(t, questions, got)
}

func TestCacheKeyIgnoresBankOrder(t *testing.T) {
	cache := NewCache(testRedis(t), time.Minute)
	ctx := context.Background()

	a, b := uuid.New(), uuid.New()
	require.NoError(t, cache.Set(ctx, []uuid.UUID{a, b}, bankOf(2)))

	got, err := cache.Get(ctx, []uuid.UUID{b, a})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestLoaderFallsBackToRepository(t *testing.T) {
	calls := 0
	repo := &stubBankLister{
		list: func(ctx context.Context, ids []uuid.UUID) ([]Question, error) {
			calls++
			return bankOf(3), nil
		},
	}
	cache := NewCache(testRedis(t), time.Minute)
	loader := NewLoader(repo, cache, testLogger())

	ctx := context.Background()
	bankIDs := []uuid.UUID{uuid.New()}

	qs, err := loader.Load(ctx, bankIDs)
	require.NoError(t, err)
	assert.Len(t, qs, 3)
	assert.Equal(t, 1, calls)

	// Second load is served from the cache.
	_, err = loader.Load(ctx, bankIDs)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestLoaderRejectsEmptyBank(t *testing.T) {
	repo := &stubBankLister{
		list: func(ctx context.Context, ids []uuid.UUID) ([]Question, error) {
			return nil, nil
		},
	}
	loader := NewLoader(repo, nil, testLogger())

	_, err := loader.Load(context.Background(), []uuid.UUID{uuid.New()})
	assert.ErrorIs(t, err, ErrEmptyBank)
}

type stubBankLister struct {
	list func(ctx context.Context, ids []uuid.UUID) ([]Question, error)
}

func (s *stubBankLister) ListByBankIDs(ctx context.Context, ids []uuid.UUID) ([]Question, error) {
	return s.list(ctx, ids)
}
