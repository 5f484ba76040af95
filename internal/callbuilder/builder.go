// Package callbuilder 把六个异步就绪的输入合并为一个可签名提交的机密转账 call。
//
// 所有输入同时就绪的时刻 (level-triggered) 触发一次构造；默认只接受第一个就绪快照，
// 之后释放 join。构造在串行 worker 上运行，结果按快照顺序写入结果 Cell。
package callbuilder

import (
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/zakimal/zero-chain-ui/internal/chain"
	"github.com/zakimal/zero-chain-ui/internal/confidential"
	"github.com/zakimal/zero-chain-ui/pkg/logger"
	"github.com/zakimal/zero-chain-ui/pkg/monitor"
	"github.com/zakimal/zero-chain-ui/pkg/reactive"
	"github.com/zakimal/zero-chain-ui/pkg/safe_random"
)

// Mode join 的重复策略
type Mode int

const (
	// OncePerSubmit 只构造第一个就绪快照
	OncePerSubmit Mode = iota
	// EverySnapshot 每次输入变化且全部就绪时都重新构造
	EverySnapshot
)

func (m Mode) String() string {
	if m == EverySnapshot {
		return "every-snapshot"
	}
	return "once-per-submit"
}

var ErrKeyMismatch = errors.New("callbuilder: derived key does not match sender")

// KeyStore 按账户取回 seed
type KeyStore interface {
	SeedFromAccount(id chain.AccountID) ([]byte, error)
}

// Crypto 密钥派生与证明构造
type Crypto interface {
	DeriveSigningKey(seed []byte) (*confidential.SpendingKey, error)
	BuildTransfer(req confidential.TransferRequest) (*confidential.TransferProof, error)
}

type Builder struct {
	keys   KeyStore
	crypto Crypto
	mode   Mode
	exec   Executor
	random func() ([8]uint32, error)
	log    *zap.Logger
}

type Option func(*Builder)

func WithMode(m Mode) Option {
	return func(b *Builder) { b.mode = m }
}

func WithExecutor(e Executor) Option {
	return func(b *Builder) { b.exec = e }
}

// WithRandomSource 替换每次转账的随机种子来源，测试用
func WithRandomSource(fn func() ([8]uint32, error)) Option {
	return func(b *Builder) { b.random = fn }
}

func WithLogger(l *zap.Logger) Option {
	return func(b *Builder) { b.log = l }
}

func New(keys KeyStore, crypto Crypto, opts ...Option) *Builder {
	b := &Builder{
		keys:   keys,
		crypto: crypto,
		mode:   OncePerSubmit,
		random: safe_random.RandomSeed,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.exec == nil {
		b.exec = NewSerialExecutor()
	}
	if b.log == nil {
		b.log = logger.Named("callbuilder")
	}
	return b
}

func (b *Builder) Mode() Mode {
	return b.mode
}

// Build 监听 in，每个被接受的就绪快照产生一个 Result。关闭返回的 Cell 会释放 join。
func (b *Builder) Build(in *InputSet) *reactive.Cell[Result] {
	out := reactive.New[Result]()
	join := reactive.Derive(in.snapshot, in.deps()...)

	var fired atomic.Bool
	release := func() {
		join.Close()
	}
	stop := join.Subscribe(func(s Snapshot) {
		if b.mode == OncePerSubmit && !fired.CompareAndSwap(false, true) {
			return
		}
		b.exec.Go(func() {
			if b.mode == OncePerSubmit {
				release()
			}
			out.Set(b.build(s))
		})
	})
	out.OnClose(func() {
		stop()
		release()
	})
	return out
}

func (b *Builder) build(s Snapshot) Result {
	start := time.Now()
	d, err := b.buildDescriptor(s)
	if err != nil {
		monitor.Pipeline.BuildFailedTotal.Inc()
		b.log.Warn("call build failed", zap.Stringer("sender", s.Sender), zap.Error(err))
		return Result{Err: err}
	}
	monitor.Pipeline.ProofDuration.Observe(time.Since(start).Seconds())
	b.log.Debug("call built",
		zap.Stringer("sender", s.Sender),
		zap.Stringer("recipient", s.Recipient),
		zap.Duration("elapsed", time.Since(start)),
	)
	return Result{Call: d}
}

func (b *Builder) buildDescriptor(s Snapshot) (*CallDescriptor, error) {
	seed, err := b.keys.SeedFromAccount(s.Sender)
	if err != nil {
		return nil, &BuildError{Stage: "key", Err: err}
	}
	sk, err := b.crypto.DeriveSigningKey(seed)
	if err != nil {
		return nil, &BuildError{Stage: "key", Err: err}
	}
	if chain.AccountFromKey(sk.Address()) != s.Sender {
		return nil, &BuildError{Stage: "key", Err: ErrKeyMismatch}
	}
	randomness, err := b.random()
	if err != nil {
		return nil, &BuildError{Stage: "randomness", Err: err}
	}

	proof, err := b.crypto.BuildTransfer(confidential.TransferRequest{
		SpendingKey:  sk,
		Recipient:    s.Recipient.Key(),
		Amount:       s.Amount,
		Balance:      s.Balance,
		ProvingKey:   s.ProvingKey,
		VerifyingKey: s.VerifyingKey,
		Seed:         randomness,
	})
	if err != nil {
		return nil, &BuildError{Stage: "proof", Err: err}
	}

	return &CallDescriptor{
		SigningKey: sk,
		Sender:     s.Sender,
		Call:       chain.ConfidentialTransfer(proof),
		Randomness: randomness,
		Rk:         proof.Rk,
		rsk:        proof.Rsk,
	}, nil
}
