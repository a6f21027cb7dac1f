package storage

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"reviewagent"
)

// OpenReviewStore selects a review store by cfg.Kind ("file", "s3", "redis" or "memory"). The
// returned close function releases any connection the store holds. s3Client is only used by the
// s3 kind.
func OpenReviewStore(ctx context.Context, cfg reviewagent.StoreConfig, dir string, s3Client S3API) (ReviewStore, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Kind {
	case "", "file":
		return NewFileReviewStore(dir), noop, nil
	case "memory":
		return NewMemoryReviewStore(), noop, nil
	case "s3":
		if cfg.S3Bucket == "" || s3Client == nil {
			return nil, noop, fmt.Errorf("s3 review store requires ARTIFACTS_S3_BUCKET and an S3 client")
		}
		return NewS3ReviewStore(s3Client, cfg.S3Bucket, cfg.ReviewsS3Prefix), noop, nil
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, noop, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		return NewRedisReviewStore(client, cfg.RedisKeyPrefix, cfg.RedisTTL), client.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown review store %q", cfg.Kind)
	}
}
