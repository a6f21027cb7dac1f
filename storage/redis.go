package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"reviewagent"
)

// RedisReviewStore caches reviews in Redis with a TTL. A zero TTL keeps keys forever.
type RedisReviewStore struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedisReviewStore(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisReviewStore {
	return &RedisReviewStore{redis: client, prefix: prefix, ttl: ttl}
}

func (s *RedisReviewStore) Save(ctx context.Context, key string, review reviewagent.Review) error {
	b, err := json.Marshal(review)
	if err != nil {
		return fmt.Errorf("failed to encode review: %w", err)
	}
	if err := s.redis.Set(ctx, s.prefix+key, b, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store review in redis: %w", err)
	}
	return nil
}

func (s *RedisReviewStore) Get(ctx context.Context, key string) (reviewagent.Review, error) {
	b, err := s.redis.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return reviewagent.Review{}, ErrNotFound
	}
	if err != nil {
		return reviewagent.Review{}, fmt.Errorf("failed to read review from redis: %w", err)
	}
	return decodeReview(b)
}
