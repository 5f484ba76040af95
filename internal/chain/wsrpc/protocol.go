// Package wsrpc 基于 websocket 的 JSON-RPC 2.0 节点接口，客户端和服务端共用同一组方法名。
package wsrpc

import (
	"encoding/json"
	"fmt"
)

const (
	MethodName             = "system_name"
	MethodVersion          = "system_version"
	MethodChain            = "system_chain"
	MethodAccountNonce     = "system_accountNonce"
	MethodRuntimeVersion   = "state_getRuntimeVersion"
	MethodHeight           = "chain_getHeight"
	MethodAuthorities      = "consensus_authorities"
	MethodBalance          = "balances_balance"
	MethodEncryptedBalance = "confTransfer_encryptedBalance"
	MethodSubmitAndWatch   = "author_submitAndWatchExtrinsic"
	MethodUnwatch          = "author_unwatchExtrinsic"
	// NotifyExtrinsicUpdate 服务端推送的交易状态
	NotifyExtrinsicUpdate = "author_extrinsicUpdate"
)

const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
)

// message 请求、响应与通知共用的信封
type message struct {
	Version string          `json:"jsonrpc"`
	ID      *uint64         `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

type notification struct {
	Subscription string          `json:"subscription"`
	Result       json.RawMessage `json:"result"`
}

// Error JSON-RPC 错误对象
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

func newError(code int, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// parseParams 按位置解析 params 数组
func parseParams(raw json.RawMessage, out ...interface{}) error {
	var items []json.RawMessage
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &items); err != nil {
			return newError(codeInvalidParams, "params must be an array")
		}
	}
	if len(items) != len(out) {
		return newError(codeInvalidParams, "expected %d params, got %d", len(out), len(items))
	}
	for i, item := range items {
		if err := json.Unmarshal(item, out[i]); err != nil {
			return newError(codeInvalidParams, "param %d: %v", i, err)
		}
	}
	return nil
}
