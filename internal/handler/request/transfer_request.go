package request

import "github.com/ethereum/go-ethereum/common/hexutil"

// CreateTransferRequest from 为本地账户名或地址，to 为地址或地址簿名字
type CreateTransferRequest struct {
	From   string `json:"from" binding:"required"`
	To     string `json:"to" binding:"required"`
	Amount string `json:"amount" binding:"required,zcamount"`
}

// RawTransferRequest 手工填写的 confTransfer.confidential_transfer 参数，全部为 0x 开头的十六进制
type RawTransferRequest struct {
	Proof            hexutil.Bytes `json:"zkproof" binding:"required"`
	AddressSender    hexutil.Bytes `json:"address_sender" binding:"required"`
	AddressRecipient hexutil.Bytes `json:"address_recipient" binding:"required"`
	ValueSender      hexutil.Bytes `json:"value_sender" binding:"required"`
	ValueRecipient   hexutil.Bytes `json:"value_recipient" binding:"required"`
	BalanceSender    hexutil.Bytes `json:"balance_sender" binding:"required"`
	Rk               hexutil.Bytes `json:"rk" binding:"required"`
	Rsk              hexutil.Bytes `json:"rsk" binding:"required"`
}

// ListTransfersRequest GET /transfers 的查询参数
type ListTransfersRequest struct {
	Sender string `form:"sender"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=100"`
}
