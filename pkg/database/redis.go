package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/zakimal/zero-chain-ui/pkg/logger"
)

// RedisOptions Redis 是可选依赖，连不上时调用方会退回内存实现，所以 ping 必须有上限
type RedisOptions struct {
	Addr     string // "localhost:6379"
	Password string
	DB       int

	PingTimeout  time.Duration // 单次 ping，默认 2s
	PingAttempts int           // 默认 3 次，间隔翻倍
}

// ConnectRedis 连接并确认 Redis 可用
func ConnectRedis(ctx context.Context, opts RedisOptions) (*redis.Client, error) {
	if opts.PingTimeout <= 0 {
		opts.PingTimeout = 2 * time.Second
	}
	if opts.PingAttempts <= 0 {
		opts.PingAttempts = 3
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: opts.PingTimeout,
	})

	backoff := 100 * time.Millisecond
	for attempt := 1; ; attempt++ {
		err := ping(ctx, rdb, opts.PingTimeout)
		if err == nil {
			logger.Info("Redis 连接成功", zap.String("addr", opts.Addr), zap.Int("db", opts.DB))
			return rdb, nil
		}
		if attempt >= opts.PingAttempts {
			_ = rdb.Close()
			return nil, fmt.Errorf("无法连接到 Redis %s: %w", opts.Addr, err)
		}
		logger.Debug("Redis ping 失败，重试", zap.Int("attempt", attempt), zap.Error(err))

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			_ = rdb.Close()
			return nil, fmt.Errorf("无法连接到 Redis %s: %w", opts.Addr, ctx.Err())
		case <-timer.C:
		}
		backoff *= 2
	}
}

func ping(ctx context.Context, rdb *redis.Client, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return rdb.Ping(ctx).Err()
}
