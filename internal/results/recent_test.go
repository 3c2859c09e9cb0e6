package results

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recentFixture(t *testing.T) *RecentIndex {
	t.Helper()
	mr := miniredis.RunT(t)
	return NewRecentIndex(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
}

func TestRecentIndexOrdersNewestFirst(t *testing.T) {
	idx := recentFixture(t)
	ctx := context.Background()
	teacherID := uuid.New()

	base := time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC)
	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		id := uuid.New()
		ids = append(ids, id)
		require.NoError(t, idx.Add(ctx, teacherID, id, base.Add(time.Duration(i)*time.Minute)))
	}

	latest, err := idx.Latest(ctx, teacherID, 2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, ids[2], latest[0])
	assert.Equal(t, ids[1], latest[1])
}

func TestRecentIndexIsPerTeacher(t *testing.T) {
	idx := recentFixture(t)
	ctx := context.Background()

	t1, t2 := uuid.New(), uuid.New()
	require.NoError(t, idx.Add(ctx, t1, uuid.New(), time.Now()))

	latest, err := idx.Latest(ctx, t2, 10)
	require.NoError(t, err)
	assert.Empty(t, latest)
}

func TestRecentIndexTrims(t *testing.T) {
	idx := recentFixture(t)
	ctx := context.Background()
	teacherID := uuid.New()

	base := time.Now()
	for i := 0; i < recentIndexMax+20; i++ {
		require.NoError(t, idx.Add(ctx, teacherID, uuid.New(), base.Add(time.Duration(i)*time.Second)))
	}

	latest, err := idx.Latest(ctx, teacherID, recentIndexMax+20)
	require.NoError(t, err)
	assert.Len(t, latest, recentIndexMax)
}
