package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DedupRepository tracks already-processed payment event IDs in Redis so
// replayed webhook deliveries are acknowledged without re-applying their
// installments.
type DedupRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewDedupRepository constructs a dedup repository.
func NewDedupRepository(client *redis.Client, logger *zap.Logger) *DedupRepository {
	return &DedupRepository{client: client, logger: logger}
}

// MarkProcessed atomically records an event id. It returns true when the id
// was new and false when a previous delivery already claimed it. A nil client
// degrades to always-new so payments keep flowing without Redis.
func (r *DedupRepository) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	if r.client == nil {
		return true, nil
	}

	key := "payments:event:" + eventID
	first, err := r.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx %s: %w", key, err)
	}
	if !first {
		r.logger.Info("duplicate payment event ignored", zap.String("event_id", eventID))
	}
	return first, nil
}

// Release removes a claim so a failed application can be retried on the next
// delivery.
func (r *DedupRepository) Release(ctx context.Context, eventID string) error {
	if r.client == nil {
		return nil
	}
	if err := r.client.Del(ctx, "payments:event:"+eventID).Err(); err != nil {
		return fmt.Errorf("redis del payment event %s: %w", eventID, err)
	}
	return nil
}
