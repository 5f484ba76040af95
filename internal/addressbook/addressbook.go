// Package addressbook 按名字保存常用的收款地址。
package addressbook

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/zakimal/zero-chain-ui/internal/chain"
)

var (
	ErrEmptyName = errors.New("addressbook: name is empty")
	ErrNameTaken = errors.New("addressbook: name already in use")
	ErrNotFound  = errors.New("addressbook: entry not found")
)

type Entry struct {
	Name    string          `json:"name"`
	Address chain.AccountID `json:"address"`
}

// Book 地址簿存储
type Book interface {
	Add(ctx context.Context, name string, address chain.AccountID) (*Entry, error)
	ByName(ctx context.Context, name string) (*Entry, error)
	List(ctx context.Context) ([]Entry, error)
	Remove(ctx context.Context, name string) error
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyName
	}
	return name, nil
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
}
