// Package chain 定义与 zerochain 节点交互所需的类型: 账户、call、签名交易以及客户端接口。
package chain

import (
	"context"
	"errors"
)

var ErrClosed = errors.New("chain: client closed")

// Client 节点客户端。wsrpc.Client 走 websocket JSON-RPC，simnet.Node 在进程内实现同一接口。
type Client interface {
	// Submit 提交交易并订阅其状态
	Submit(ctx context.Context, xt *Extrinsic) (Subscription, error)
	Balance(ctx context.Context, id AccountID) (uint64, error)
	AccountNonce(ctx context.Context, id AccountID) (uint64, error)
	EncryptedBalance(ctx context.Context, id AccountID) ([]byte, error)
	SystemInfo(ctx context.Context) (*SystemInfo, error)
	Close() error
}

type RuntimeVersion struct {
	SpecName    string `json:"specName"`
	SpecVersion uint32 `json:"specVersion"`
	ImplName    string `json:"implName"`
	ImplVersion uint32 `json:"implVersion"`
}

// SystemInfo 节点和链的基本信息
type SystemInfo struct {
	Name        string         `json:"name"`
	Version     string         `json:"version"`
	Chain       string         `json:"chain"`
	Runtime     RuntimeVersion `json:"runtime"`
	Height      uint64         `json:"height"`
	Authorities []string       `json:"authorities"`
}
