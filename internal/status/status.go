// Package status 定义交易状态的标签变体以及它在界面上的呈现方式。
package status

import (
	"fmt"
)

// Kind 交易状态的变体标签
type Kind int

const (
	Unknown Kind = iota
	Signing
	Sending
	Broadcast // 包含节点返回的 "ready" 以及 inBlock
	Finalised
	Failed
)

func (k Kind) String() string {
	switch k {
	case Signing:
		return "signing"
	case Sending:
		return "sending"
	case Broadcast:
		return "broadcast"
	case Finalised:
		return "finalised"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// TransactionStatus 交易在生命周期中的一个状态。
// Finalised 与 Failed 是终态。
type TransactionStatus struct {
	Kind Kind `json:"kind"`
	// Raw 节点原始返回的文本形式，Unknown 时用于展示
	Raw string `json:"raw,omitempty"`

	Peers         []string `json:"peers,omitempty"`
	Block         string   `json:"block,omitempty"`
	Confirmations int      `json:"confirmations,omitempty"`
	Reason        string   `json:"reason,omitempty"`
}

func NewSigning() TransactionStatus { return TransactionStatus{Kind: Signing} }

func NewSending() TransactionStatus { return TransactionStatus{Kind: Sending} }

// NewReady 节点已接收交易并放入交易池，等价于 broadcast
func NewReady() TransactionStatus { return TransactionStatus{Kind: Broadcast, Raw: "ready"} }

func NewBroadcast(peers ...string) TransactionStatus {
	return TransactionStatus{Kind: Broadcast, Peers: peers}
}

// NewInBlock 交易已打包但尚未最终确认
func NewInBlock(block string, confirmations int) TransactionStatus {
	return TransactionStatus{Kind: Broadcast, Block: block, Confirmations: confirmations}
}

func NewFinalised(block string) TransactionStatus {
	return TransactionStatus{Kind: Finalised, Block: block}
}

func NewFailed(reason string) TransactionStatus {
	return TransactionStatus{Kind: Failed, Reason: reason}
}

func NewUnknown(raw string) TransactionStatus {
	return TransactionStatus{Kind: Unknown, Raw: raw}
}

// IsTerminal 是否是终态
func (s TransactionStatus) IsTerminal() bool {
	return s.Kind == Finalised || s.Kind == Failed
}

func (s TransactionStatus) String() string {
	switch s.Kind {
	case Unknown:
		return s.Raw
	case Broadcast:
		if s.Block != "" {
			return fmt.Sprintf("inBlock(%s)", s.Block)
		}
		if s.Raw != "" {
			return s.Raw
		}
	case Finalised:
		if s.Block != "" {
			return fmt.Sprintf("finalised(%s)", s.Block)
		}
	case Failed:
		if s.Reason != "" {
			return "failed: " + s.Reason
		}
	}
	return s.Kind.String()
}
