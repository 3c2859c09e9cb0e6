package question

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultCacheTTL = 5 * time.Minute

// Cache provides Redis-backed bank caching so repeated sessions over the same
// banks skip the database.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache creates a bank cache with the given TTL.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) key(bankIDs []uuid.UUID) string {
	ids := make([]string, len(bankIDs))
	for i, id := range bankIDs {
		ids[i] = id.String()
	}
	sort.Strings(ids)
	return "bank:" + strings.Join(ids, ",")
}

// Get returns the cached question list for a bank set, or nil on miss.
func (c *Cache) Get(ctx context.Context, bankIDs []uuid.UUID) ([]Question, error) {
	data, err := c.client.Get(ctx, c.key(bankIDs)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var questions []Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

// Set stores the question list for a bank set.
func (c *Cache) Set(ctx context.Context, bankIDs []uuid.UUID, questions []Question) error {
	data, err := json.Marshal(questions)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(bankIDs), data, c.ttl).Err()
}
