package callbuilder

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/zakimal/zero-chain-ui/internal/chain"
	"github.com/zakimal/zero-chain-ui/internal/confidential"
)

// ErrDescriptorSpent 同一个 CallDescriptor 只能提交一次
var ErrDescriptorSpent = errors.New("callbuilder: call descriptor already submitted")

// CallDescriptor 一次就绪快照构造出的、可以直接签名提交的 call。构造后不可变。
type CallDescriptor struct {
	SigningKey *confidential.SpendingKey
	Sender     chain.AccountID
	Call       chain.Call
	Randomness [8]uint32
	// Rk 花费验证密钥，也是交易的 signer
	Rk confidential.PublicKey

	rsk   *btcec.PrivateKey
	spent atomic.Bool
}

// Claim 取出花费授权密钥 rsk。只有第一次调用成功。
func (d *CallDescriptor) Claim() (*btcec.PrivateKey, error) {
	if !d.spent.CompareAndSwap(false, true) {
		return nil, ErrDescriptorSpent
	}
	return d.rsk, nil
}

func (d *CallDescriptor) Spent() bool {
	return d.spent.Load()
}

// Result 构造结果，Call 与 Err 恰好一个非空
type Result struct {
	Call *CallDescriptor
	Err  error
}

// BuildError 构造阶段的失败 (buildFailed)
type BuildError struct {
	Stage string
	Err   error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build failed at %s: %v", e.Stage, e.Err)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

// Reason 展示给用户的失败原因
func (e *BuildError) Reason() string {
	return e.Err.Error()
}

// NewManualDescriptor 证明和密文已经在别处生成，只需要用 rsk 签名提交
func NewManualDescriptor(sender chain.AccountID, call chain.Call, rk confidential.PublicKey, rsk *btcec.PrivateKey) *CallDescriptor {
	return &CallDescriptor{
		Sender: sender,
		Call:   call,
		Rk:     rk,
		rsk:    rsk,
	}
}
