package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/zakimal/zero-chain-ui/internal/model"
)

type MemoryTransferRepository struct {
	mu        sync.RWMutex
	transfers map[string]model.Transfer
	now       func() time.Time
}

func NewMemoryTransferRepository() *MemoryTransferRepository {
	return &MemoryTransferRepository{
		transfers: make(map[string]model.Transfer),
		now:       time.Now,
	}
}

func (r *MemoryTransferRepository) Create(ctx context.Context, t *model.Transfer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.transfers[t.ID]; ok {
		return fmt.Errorf("repository: duplicate transfer id %s", t.ID)
	}
	now := r.now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	r.transfers[t.ID] = *t
	return nil
}

func (r *MemoryTransferRepository) Update(ctx context.Context, t *model.Transfer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.transfers[t.ID]; !ok {
		return ErrTransferNotFound
	}
	t.UpdatedAt = r.now()
	r.transfers[t.ID] = *t
	return nil
}

func (r *MemoryTransferRepository) Get(ctx context.Context, id string) (*model.Transfer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.transfers[id]
	if !ok {
		return nil, ErrTransferNotFound
	}
	return &t, nil
}

func (r *MemoryTransferRepository) List(ctx context.Context, filter ListFilter) ([]model.Transfer, error) {
	r.mu.RLock()
	out := make([]model.Transfer, 0, len(r.transfers))
	for _, t := range r.transfers {
		if filter.Sender != "" && t.Sender != filter.Sender {
			continue
		}
		out = append(out, t)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit := filter.limit(); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryTransferRepository) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, t := range r.transfers {
		if t.Terminal && t.UpdatedAt.Before(cutoff) {
			delete(r.transfers, id)
			n++
		}
	}
	return n, nil
}
