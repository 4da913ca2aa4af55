package staging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go-retail-catalog/internal/importer"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "import:batch:"

// Redis stores batches as JSON values whose key TTL matches the batch
// expiry, so several API instances can share one staging area.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Get(ctx context.Context, id string) (*importer.Batch, error) {
	data, err := r.client.Get(ctx, redisKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get batch %s: %w", id, err)
	}
	var b importer.Batch
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("decode batch %s: %w", id, err)
	}
	return &b, nil
}

func (r *Redis) Put(ctx context.Context, batch *importer.Batch) error {
	ttl := time.Until(batch.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("batch %s is already expired", batch.ID)
	}
	data, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("encode batch %s: %w", batch.ID, err)
	}
	return r.client.Set(ctx, redisKeyPrefix+batch.ID, data, ttl).Err()
}

func (r *Redis) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, redisKeyPrefix+id).Err()
}

// SweepExpired is a no-op: Redis evicts keys when their TTL runs out.
func (r *Redis) SweepExpired(context.Context, time.Time) ([]string, error) {
	return nil, nil
}
