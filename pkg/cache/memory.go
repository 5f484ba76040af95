package cache

import (
	"context"
	"encoding/json"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache 单实例 L1
type MemoryCache struct {
	items *gocache.Cache
}

func NewMemoryCache(defaultTTL, cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{items: gocache.New(defaultTTL, cleanupInterval)}
}

// Set 存 JSON 而不是对象本身，调用方改动返回值不会污染缓存
func (m *MemoryCache) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.items.Set(key, raw, ttl)
	return nil
}

func (m *MemoryCache) Get(_ context.Context, key string, target any) error {
	raw, ok := m.items.Get(key)
	if !ok {
		return ErrMiss
	}
	return json.Unmarshal(raw.([]byte), target)
}

func (m *MemoryCache) Delete(_ context.Context, key string) error {
	m.items.Delete(key)
	return nil
}

// Len 当前条目数 (含尚未清理的过期条目)
func (m *MemoryCache) Len() int {
	return m.items.ItemCount()
}
