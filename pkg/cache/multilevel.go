package cache

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/zakimal/zero-chain-ui/pkg/logger"
)

// MultiLevelCache L1 进程内 + L2 Redis。
// L1 只保留 L2 TTL 的一部分，其他实例完成转账后的失效最多延迟这么久。
type MultiLevelCache struct {
	l1 Cache
	l2 Cache

	// L1Fraction L1 TTL 占 L2 TTL 的比例，默认 1/2
	L1Fraction float64
	// BackfillTTL L2 命中后回写 L1 的 TTL
	BackfillTTL time.Duration
}

func NewMultiLevelCache(l1, l2 Cache) *MultiLevelCache {
	return &MultiLevelCache{l1: l1, l2: l2, L1Fraction: 0.5, BackfillTTL: 2 * time.Second}
}

func (m *MultiLevelCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if err := m.l1.Set(ctx, key, value, time.Duration(float64(ttl)*m.L1Fraction)); err != nil {
		logger.Warn("l1 cache set failed", zap.String("key", key), zap.Error(err))
	}
	return m.l2.Set(ctx, key, value, ttl)
}

func (m *MultiLevelCache) Get(ctx context.Context, key string, target any) error {
	if m.l1.Get(ctx, key, target) == nil {
		return nil
	}
	if err := m.l2.Get(ctx, key, target); err != nil {
		return err
	}
	_ = m.l1.Set(ctx, key, target, m.BackfillTTL)
	return nil
}

func (m *MultiLevelCache) Delete(ctx context.Context, key string) error {
	_ = m.l1.Delete(ctx, key)
	return m.l2.Delete(ctx, key)
}
