package model

import (
	"time"

	"gorm.io/gorm"
)

// 转账状态 (与 status.Kind 的文字一致)
const (
	TransferStatusPending   = "pending" // 已创建，等待构造
	TransferStatusSigning   = "signing"
	TransferStatusSending   = "sending"
	TransferStatusBroadcast = "broadcast"
	TransferStatusFinalised = "finalised"
	TransferStatusFailed    = "failed"
	TransferStatusUnknown   = "unknown"
)

// Transfer 一笔机密转账的记录。金额只保存在发起方本地，链上只有密文。
type Transfer struct {
	ID            string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Sender        string         `gorm:"type:varchar(64);not null;index" json:"sender"`
	Recipient     string         `gorm:"type:varchar(64);not null" json:"recipient"`
	Amount        uint64         `gorm:"not null;default:0" json:"amount"`
	Nonce         uint64         `gorm:"not null;default:0" json:"nonce"`
	TxHash        string         `gorm:"type:varchar(66);index" json:"tx_hash,omitempty"`
	Status        string         `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	StatusText    string         `gorm:"type:varchar(255)" json:"status_text"`
	Confirmations int            `gorm:"not null;default:0" json:"confirmations"`
	Expected      int            `gorm:"not null;default:0" json:"expected_confirmations"`
	BlockHash     string         `gorm:"type:varchar(66)" json:"block_hash,omitempty"`
	Terminal      bool           `gorm:"not null;default:false" json:"terminal"`
	Manual        bool           `gorm:"not null;default:false" json:"manual"` // 证明由外部生成 (SubmitRaw)
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Transfer) TableName() string {
	return "transfers"
}
