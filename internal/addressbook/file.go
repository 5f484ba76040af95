package addressbook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/zakimal/zero-chain-ui/internal/chain"
)

// FileBook 保存在本地 JSON 文件中
type FileBook struct {
	path string

	mu      sync.RWMutex
	entries map[string]chain.AccountID
}

var _ Book = (*FileBook)(nil)

// OpenFile 文件不存在时从空地址簿开始
func OpenFile(path string) (*FileBook, error) {
	b := &FileBook{path: path, entries: make(map[string]chain.AccountID)}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return b, nil
	}
	if err != nil {
		return nil, fmt.Errorf("addressbook: %w", err)
	}
	var list []Entry
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("addressbook: parse %s: %w", path, err)
	}
	for _, e := range list {
		b.entries[e.Name] = e.Address
	}
	return b, nil
}

func (b *FileBook) Add(ctx context.Context, name string, address chain.AccountID) (*Entry, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.entries[name]; ok {
		return nil, ErrNameTaken
	}
	b.entries[name] = address
	if err := b.saveLocked(); err != nil {
		delete(b.entries, name)
		return nil, err
	}
	return &Entry{Name: name, Address: address}, nil
}

func (b *FileBook) ByName(ctx context.Context, name string) (*Entry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	addr, ok := b.entries[name]
	if !ok {
		return nil, ErrNotFound
	}
	return &Entry{Name: name, Address: addr}, nil
}

func (b *FileBook) List(ctx context.Context) ([]Entry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.listLocked(), nil
}

func (b *FileBook) listLocked() []Entry {
	out := make([]Entry, 0, len(b.entries))
	for name, addr := range b.entries {
		out = append(out, Entry{Name: name, Address: addr})
	}
	sortEntries(out)
	return out
}

func (b *FileBook) Remove(ctx context.Context, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	addr, ok := b.entries[name]
	if !ok {
		return ErrNotFound
	}
	delete(b.entries, name)
	if err := b.saveLocked(); err != nil {
		b.entries[name] = addr
		return err
	}
	return nil
}

func (b *FileBook) saveLocked() error {
	data, err := json.MarshalIndent(b.listLocked(), "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(b.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("addressbook: %w", err)
		}
	}
	if err := os.WriteFile(b.path, data, 0644); err != nil {
		return fmt.Errorf("addressbook: write: %w", err)
	}
	return nil
}
