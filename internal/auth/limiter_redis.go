package auth

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	failKeyPrefix = "login:fail:"
	lockKeyPrefix = "login:lock:"
)

// RedisLimiter は試行回数を Redis に保存する Limiter です。複数インスタンスで状態を共有できます。
type RedisLimiter struct {
	rdb *redis.Client
}

// NewRedisLimiter は RedisLimiter を作成します。
func NewRedisLimiter(rdb *redis.Client) *RedisLimiter {
	return &RedisLimiter{rdb: rdb}
}

// NewRedisLimiterFromURL は接続URLから Redis クライアントを作成し、疎通確認を行います。
func NewRedisLimiterFromURL(ctx context.Context, rawURL string) (*RedisLimiter, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}
	return NewRedisLimiter(rdb), nil
}

// Check implements Limiter.
func (l *RedisLimiter) Check(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := l.rdb.PTTL(ctx, lockKeyPrefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, err
	}
	// キーが存在しない場合は負の値が返る
	if ttl <= 0 {
		return 0, nil
	}
	return ttl, nil
}

// RecordFailure implements Limiter.
func (l *RedisLimiter) RecordFailure(ctx context.Context, key string) (int, error) {
	failKey := failKeyPrefix + key

	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, failKey)
	pipe.ExpireNX(ctx, failKey, loginWindow)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}

	count := int(incr.Val())
	if count >= maxLoginAttempts {
		pipe := l.rdb.TxPipeline()
		pipe.Set(ctx, lockKeyPrefix+key, "1", lockDuration)
		pipe.Del(ctx, failKey)
		if _, err := pipe.Exec(ctx); err != nil {
			return 0, err
		}
		return 0, nil
	}
	return maxLoginAttempts - count, nil
}

// Reset implements Limiter.
func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	return l.rdb.Del(ctx, failKeyPrefix+key, lockKeyPrefix+key).Err()
}

// Close は Redis クライアントを閉じます。
func (l *RedisLimiter) Close() error {
	return l.rdb.Close()
}
