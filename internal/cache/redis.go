package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rknair/portfolio-analytics/internal/config"
)

const (
	enrichmentLockKey = "enrichment:lock"
	lastEnrichedKey   = "enrichment:last_completed"
)

// Redis coordinates enrichment passes across processes. The split adjustment
// engine mutates shared trade records, so concurrent passes risk
// double-application races; a redis lock serializes them.
type Redis struct {
	client *redis.Client
}

// New connects to redis and verifies the connection
func New(ctx context.Context, cfg *config.Config) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return &Redis{client: client}, nil
}

// Close closes the redis connection
func (r *Redis) Close() error {
	return r.client.Close()
}

// AcquireEnrichmentLock takes the process-wide enrichment lock. Returns false
// when another pass is already running.
func (r *Redis) AcquireEnrichmentLock(ctx context.Context, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, enrichmentLockKey, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire enrichment lock: %w", err)
	}
	return ok, nil
}

// ReleaseEnrichmentLock releases the enrichment lock
func (r *Redis) ReleaseEnrichmentLock(ctx context.Context) error {
	if err := r.client.Del(ctx, enrichmentLockKey).Err(); err != nil {
		return fmt.Errorf("failed to release enrichment lock: %w", err)
	}
	return nil
}

// SetLastEnriched records the completion time of the latest enrichment pass
func (r *Redis) SetLastEnriched(ctx context.Context, at time.Time) error {
	if err := r.client.Set(ctx, lastEnrichedKey, at.UTC().Format(time.RFC3339), 0).Err(); err != nil {
		return fmt.Errorf("failed to record enrichment time: %w", err)
	}
	return nil
}

// LastEnriched returns the completion time of the latest enrichment pass, or
// the zero time when no pass has completed yet
func (r *Redis) LastEnriched(ctx context.Context) (time.Time, error) {
	val, err := r.client.Get(ctx, lastEnrichedKey).Result()
	if err == redis.Nil {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read enrichment time: %w", err)
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse enrichment time: %w", err)
	}
	return t, nil
}
