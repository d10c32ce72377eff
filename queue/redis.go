package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ErrQueueUnavailable indicates the queue backend is unreachable.
var ErrQueueUnavailable = errors.New("offline queue backend unavailable")

// Redis is a Store backed by a Redis list, for deployments where parked
// operations must survive process restarts.
type Redis struct {
	redis redis.UniversalClient
	key   string
}

// NewRedis creates a Redis-backed store under the given list key.
func NewRedis(client redis.UniversalClient, key string) *Redis {
	if key == "" {
		key = "authgate:offline"
	}
	return &Redis{redis: client, key: key}
}

// Enqueue implements [Store].
func (r *Redis) Enqueue(ctx context.Context, item Item) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encode offline item: %w", err)
	}
	if err := r.redis.RPush(ctx, r.key, data).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}
	return nil
}

// Drain implements [Store]. The list is read then deleted; a concurrent
// enqueue between the two steps is carried over to the next drain by
// trimming only what was read.
func (r *Redis) Drain(ctx context.Context) ([]Item, error) {
	raw, err := r.redis.LRange(ctx, r.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	if err := r.redis.LTrim(ctx, r.key, int64(len(raw)), -1).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}

	items := make([]Item, 0, len(raw))
	for _, entry := range raw {
		var item Item
		if err := json.Unmarshal([]byte(entry), &item); err != nil {
			// Skip corrupt entries rather than wedging the drain.
			continue
		}
		items = append(items, item)
	}
	return items, nil
}
