package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/zakimal/zero-chain-ui/internal/model"
)

type GormTransferRepository struct {
	db *gorm.DB
}

func NewGormTransferRepository(db *gorm.DB) *GormTransferRepository {
	return &GormTransferRepository{db: db}
}

func (r *GormTransferRepository) Create(ctx context.Context, t *model.Transfer) error {
	return r.db.WithContext(ctx).Create(t).Error
}

// Update 整行保存。记录不存在时返回 ErrTransferNotFound，不做 upsert。
func (r *GormTransferRepository) Update(ctx context.Context, t *model.Transfer) error {
	res := r.db.WithContext(ctx).Model(&model.Transfer{}).Where("id = ?", t.ID).Updates(map[string]interface{}{
		"tx_hash":       t.TxHash,
		"nonce":         t.Nonce,
		"status":        t.Status,
		"status_text":   t.StatusText,
		"confirmations": t.Confirmations,
		"block_hash":    t.BlockHash,
		"terminal":      t.Terminal,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrTransferNotFound
	}
	return nil
}

func (r *GormTransferRepository) Get(ctx context.Context, id string) (*model.Transfer, error) {
	var t model.Transfer
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTransferNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *GormTransferRepository) List(ctx context.Context, filter ListFilter) ([]model.Transfer, error) {
	q := r.db.WithContext(ctx).Order("created_at DESC").Limit(filter.limit())
	if filter.Sender != "" {
		q = q.Where("sender = ?", filter.Sender)
	}
	var out []model.Transfer
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *GormTransferRepository) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("terminal = ? AND updated_at < ?", true, cutoff).
		Delete(&model.Transfer{})
	return res.RowsAffected, res.Error
}
