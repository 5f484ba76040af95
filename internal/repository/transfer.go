// Package repository 保存转账记录。默认内存实现；开启数据库时使用 gorm。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/zakimal/zero-chain-ui/internal/model"
)

var ErrTransferNotFound = errors.New("repository: transfer not found")

// DefaultListLimit List 未指定 Limit 时最多返回的条数
const DefaultListLimit = 100

// ListFilter Sender 为空表示不过滤
type ListFilter struct {
	Sender string
	Limit  int
}

func (f ListFilter) limit() int {
	if f.Limit <= 0 || f.Limit > DefaultListLimit {
		return DefaultListLimit
	}
	return f.Limit
}

type TransferRepository interface {
	Create(ctx context.Context, t *model.Transfer) error
	Update(ctx context.Context, t *model.Transfer) error
	Get(ctx context.Context, id string) (*model.Transfer, error)
	// List 按创建时间倒序
	List(ctx context.Context, filter ListFilter) ([]model.Transfer, error)
	// DeleteTerminalBefore 删除 cutoff 之前更新、已进入终态的记录
	DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
