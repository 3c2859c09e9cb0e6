package results

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const recentIndexMax = 100

// RecentIndex keeps a per-teacher recency-ordered session id list in a Redis
// sorted set, so the session list endpoint avoids a table scan on the hot path.
type RecentIndex struct {
	client *redis.Client
}

// NewRecentIndex creates the index over a Redis client.
func NewRecentIndex(client *redis.Client) *RecentIndex {
	return &RecentIndex{client: client}
}

func (i *RecentIndex) key(teacherID uuid.UUID) string {
	return fmt.Sprintf("sessions:recent:%s", teacherID)
}

// Add records a session, trimming the set to the newest entries.
func (i *RecentIndex) Add(ctx context.Context, teacherID, sessionID uuid.UUID, createdAt time.Time) error {
	key := i.key(teacherID)
	pipe := i.client.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(createdAt.UnixNano()), Member: sessionID.String()})
	pipe.ZRemRangeByRank(ctx, key, 0, int64(-recentIndexMax-1))
	_, err := pipe.Exec(ctx)
	return err
}

// Latest returns up to limit session ids, newest first.
func (i *RecentIndex) Latest(ctx context.Context, teacherID uuid.UUID, limit int) ([]uuid.UUID, error) {
	members, err := i.client.ZRevRange(ctx, i.key(teacherID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		id, err := uuid.Parse(m)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
