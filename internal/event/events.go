package event

import "time"

// TransferStatusEvent 转账状态变化事件，每次状态迁移发布一条
// Topic: zerochain_transfer_status
type TransferStatusEvent struct {
	TransferID    string    `json:"transfer_id"`
	Sender        string    `json:"sender"`
	Recipient     string    `json:"recipient"`
	Amount        uint64    `json:"amount"`
	Status        string    `json:"status"` // signing, sending, broadcast, finalised, failed, unknown
	Text          string    `json:"text"`
	Confirmations int       `json:"confirmations"`
	Expected      int       `json:"expected"`
	TxHash        string    `json:"tx_hash,omitempty"`
	Terminal      bool      `json:"terminal"`
	Timestamp     time.Time `json:"timestamp"`
}
