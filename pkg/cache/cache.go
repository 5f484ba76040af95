// Package cache 账户查询用的缓存层：进程内 go-cache 与 Redis，可组合成两级。
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss 缓存未命中
var ErrMiss = errors.New("cache: miss")

// Cache 值以 JSON 存放，Get 得到的总是副本
type Cache interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string, target any) error
	Delete(ctx context.Context, key string) error
}

// Fetch 读穿：命中直接返回，未命中时调用 load 并回写。
// 回写失败不影响结果，由 onSetErr 处理 (可为 nil)。
func Fetch[T any](ctx context.Context, c Cache, key string, ttl time.Duration, load func(context.Context) (T, error), onSetErr func(error)) (T, error) {
	var v T
	if c == nil {
		return load(ctx)
	}
	if err := c.Get(ctx, key, &v); err == nil {
		return v, nil
	}
	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	if err := c.Set(ctx, key, v, ttl); err != nil && onSetErr != nil {
		onSetErr(err)
	}
	return v, nil
}
