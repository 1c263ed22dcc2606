package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nao1215/wsspider/internal/model"
)

// Redis key layout. Visited hrefs live in a sorted set scored by their
// first-visit time so that ZADD NX keeps the earliest visit.
const (
	redisKeyPrefix   = "wsspider:"
	redisVisitedKey  = redisKeyPrefix + "visited"
	redisJobQueueKey = redisKeyPrefix + "jobs"
	redisPrefsKey    = redisKeyPrefix + "prefs"
)

// RedisStore is the Redis implementation of Store. Several spiders
// pointed at the same server share one visited set.
type RedisStore struct {
	client *redis.Client
}

var _ Store = (*RedisStore)(nil)

// OpenRedis connects to addr and verifies the connection with PING.
func OpenRedis(ctx context.Context, addr string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return NewRedisStore(client), nil
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Close closes the client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

// LoadVisited implements Store.
func (r *RedisStore) LoadVisited(ctx context.Context) (map[string]int64, error) {
	zs, err := r.client.ZRangeWithScores(ctx, redisVisitedKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load visited: %w", err)
	}
	visited := make(map[string]int64, len(zs))
	for _, z := range zs {
		href, ok := z.Member.(string)
		if !ok {
			continue
		}
		visited[href] = int64(z.Score)
	}
	return visited, nil
}

// MarkVisited implements Store.
func (r *RedisStore) MarkVisited(ctx context.Context, href string, at time.Time) error {
	if href == "" {
		return ErrEmptyHref
	}
	err := r.client.ZAddNX(ctx, redisVisitedKey, redis.Z{
		Score:  float64(at.UnixMilli()),
		Member: href,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to mark visited: %w", err)
	}
	return nil
}

// ClearVisited implements Store.
func (r *RedisStore) ClearVisited(ctx context.Context) error {
	if err := r.client.Del(ctx, redisVisitedKey).Err(); err != nil {
		return fmt.Errorf("failed to clear visited: %w", err)
	}
	return nil
}

// CountVisited implements Store.
func (r *RedisStore) CountVisited(ctx context.Context) (int, error) {
	n, err := r.client.ZCard(ctx, redisVisitedKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count visited: %w", err)
	}
	return int(n), nil
}

// RecentVisits implements Store.
func (r *RedisStore) RecentVisits(ctx context.Context, limit int) ([]model.Visit, error) {
	if limit <= 0 {
		return nil, nil
	}
	zs, err := r.client.ZRevRangeWithScores(ctx, redisVisitedKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to query recent visits: %w", err)
	}
	visits := make([]model.Visit, 0, len(zs))
	for _, z := range zs {
		href, ok := z.Member.(string)
		if !ok {
			continue
		}
		visits = append(visits, model.Visit{Href: href, FirstVisit: time.UnixMilli(int64(z.Score))})
	}
	return visits, nil
}

// LoadJobs implements Store.
func (r *RedisStore) LoadJobs(ctx context.Context) ([]string, error) {
	jobs, err := r.client.LRange(ctx, redisJobQueueKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load jobs: %w", err)
	}
	return jobs, nil
}

// SaveJobs implements Store. The list is replaced inside MULTI/EXEC.
func (r *RedisStore) SaveJobs(ctx context.Context, jobs []string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, redisJobQueueKey)
		if len(jobs) > 0 {
			values := make([]any, len(jobs))
			for i, j := range jobs {
				values[i] = j
			}
			pipe.RPush(ctx, redisJobQueueKey, values...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save jobs: %w", err)
	}
	return nil
}

// LoadPreference implements Store.
func (r *RedisStore) LoadPreference(ctx context.Context, key string) (bool, error) {
	v, err := r.client.HGet(ctx, redisPrefsKey, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load preference %s: %w", key, err)
	}
	return v == "1", nil
}

// SavePreference implements Store.
func (r *RedisStore) SavePreference(ctx context.Context, key string, value bool) error {
	v := "0"
	if value {
		v = "1"
	}
	if err := r.client.HSet(ctx, redisPrefsKey, key, v).Err(); err != nil {
		return fmt.Errorf("failed to save preference %s: %w", key, err)
	}
	return nil
}
