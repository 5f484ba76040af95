package addressbook

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/zakimal/zero-chain-ui/internal/chain"
)

const DefaultRedisKey = "zerochain:addressbook"

// RedisBook 用一个 hash 保存: field 为名字，value 为地址文本
type RedisBook struct {
	client *redis.Client
	key    string
}

var _ Book = (*RedisBook)(nil)

func NewRedisBook(client *redis.Client, key string) *RedisBook {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisBook{client: client, key: key}
}

func (b *RedisBook) Add(ctx context.Context, name string, address chain.AccountID) (*Entry, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}
	ok, err := b.client.HSetNX(ctx, b.key, name, address.String()).Result()
	if err != nil {
		return nil, fmt.Errorf("addressbook: redis: %w", err)
	}
	if !ok {
		return nil, ErrNameTaken
	}
	return &Entry{Name: name, Address: address}, nil
}

func (b *RedisBook) ByName(ctx context.Context, name string) (*Entry, error) {
	text, err := b.client.HGet(ctx, b.key, name).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("addressbook: redis: %w", err)
	}
	addr, err := chain.ParseAccountID(text)
	if err != nil {
		return nil, err
	}
	return &Entry{Name: name, Address: addr}, nil
}

func (b *RedisBook) List(ctx context.Context) ([]Entry, error) {
	all, err := b.client.HGetAll(ctx, b.key).Result()
	if err != nil {
		return nil, fmt.Errorf("addressbook: redis: %w", err)
	}
	out := make([]Entry, 0, len(all))
	for name, text := range all {
		addr, err := chain.ParseAccountID(text)
		if err != nil {
			// 跳过被外部写坏的条目
			continue
		}
		out = append(out, Entry{Name: name, Address: addr})
	}
	sortEntries(out)
	return out, nil
}

func (b *RedisBook) Remove(ctx context.Context, name string) error {
	n, err := b.client.HDel(ctx, b.key, name).Result()
	if err != nil {
		return fmt.Errorf("addressbook: redis: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
