package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"fairdraw/internal/randomness"
	"fairdraw/pkg/platform/sentinel"
)

const keyPrefix = "fairdraw:randomness:"

// Redis stores snapshots with a TTL so abandoned runs expire on their own.
type Redis struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedis(client redis.Cmdable, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (s *Redis) Save(ctx context.Context, runID string, res *randomness.Result) error {
	b, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal randomness snapshot: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+runID, b, s.ttl).Err(); err != nil {
		return fmt.Errorf("save randomness snapshot: %w", err)
	}
	return nil
}

func (s *Redis) Load(ctx context.Context, runID string) (*randomness.Result, error) {
	b, err := s.client.Get(ctx, keyPrefix+runID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load randomness snapshot: %w", err)
	}
	var res randomness.Result
	if err := json.Unmarshal(b, &res); err != nil {
		return nil, fmt.Errorf("unmarshal randomness snapshot: %w", err)
	}
	return &res, nil
}

func (s *Redis) Delete(ctx context.Context, runID string) error {
	if err := s.client.Del(ctx, keyPrefix+runID).Err(); err != nil {
		return fmt.Errorf("delete randomness snapshot: %w", err)
	}
	return nil
}
