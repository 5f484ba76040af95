// Package txcontroller 驱动一笔交易从签名到终态的生命周期，并把状态暴露为只读的 Cell。
package txcontroller

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/zakimal/zero-chain-ui/internal/callbuilder"
	"github.com/zakimal/zero-chain-ui/internal/chain"
	"github.com/zakimal/zero-chain-ui/internal/codec"
	"github.com/zakimal/zero-chain-ui/internal/status"
	"github.com/zakimal/zero-chain-ui/pkg/logger"
	"github.com/zakimal/zero-chain-ui/pkg/monitor"
	"github.com/zakimal/zero-chain-ui/pkg/reactive"
)

// State 控制器自身的状态
type State int

const (
	Idle State = iota
	Submitted
	StatusReceived
	Terminal
)

func (s State) String() string {
	switch s {
	case Submitted:
		return "submitted"
	case StatusReceived:
		return "status_received"
	case Terminal:
		return "terminal"
	default:
		return "idle"
	}
}

const DefaultExpectedConfirmations = 3

var (
	ErrAlreadySubmitted = errors.New("txcontroller: already submitted")
	ErrClosed           = errors.New("txcontroller: closed")
	// ErrAborted 签名期间已经失败或被关闭，交易没有发往节点
	ErrAborted = errors.New("txcontroller: aborted before broadcast")
	// errStreamClosed 状态流在终态之前结束 (连接断开)
	errStreamClosed = errors.New("status stream closed before a terminal status")
)

type Controller struct {
	client   chain.Client
	reg      *codec.Registry
	expected int
	log      *zap.Logger

	// order 保证状态写入 Cell 的顺序与 apply 的调用顺序一致
	order sync.Mutex

	mu       sync.Mutex
	state    State
	closed   bool
	inFlight bool
	current  int
	hash     string
	sub      chain.Subscription
	cancel   context.CancelFunc

	// broadcasting 为 true 时节点可能已经收到交易，本地失败推迟到结果返回
	broadcasting bool
	deferred     *status.TransactionStatus

	status   *reactive.Cell[status.TransactionStatus]
	progress *reactive.Cell[status.Progress]
	done     chan struct{}
	doneOnce sync.Once
}

type Option func(*Controller)

func WithRegistry(reg *codec.Registry) Option {
	return func(c *Controller) { c.reg = reg }
}

// WithExpectedConfirmations 进度的分母
func WithExpectedConfirmations(n int) Option {
	return func(c *Controller) { c.expected = n }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) { c.log = l }
}

func New(client chain.Client, opts ...Option) *Controller {
	c := &Controller{
		client:   client,
		expected: DefaultExpectedConfirmations,
		status:   reactive.New[status.TransactionStatus](),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.reg == nil {
		c.reg = codec.Default()
	}
	if c.log == nil {
		c.log = logger.Named("txcontroller")
	}
	if c.expected < 0 {
		c.expected = 0
	}
	c.progress = reactive.Of(status.Progress{Current: 0, Total: c.expected})
	return c
}

func (c *Controller) Status() reactive.View[status.TransactionStatus] {
	return c.status
}

func (c *Controller) Progress() reactive.View[status.Progress] {
	return c.progress
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// TxHash 签名之后可用，之前为空
func (c *Controller) TxHash() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hash
}

// Done 进入终态或 Close 之后关闭
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Submit 签名并提交 d，然后在后台跟踪状态流。
// 返回的错误同时会以 Failed 状态体现。签名期间 Fail 或 Close 会中止提交。
func (c *Controller) Submit(ctx context.Context, d *callbuilder.CallDescriptor) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state != Idle {
		c.mu.Unlock()
		return ErrAlreadySubmitted
	}
	c.state = Submitted
	c.cancel = cancel
	c.mu.Unlock()

	rsk, err := d.Claim()
	if err != nil {
		c.Fail(err)
		return err
	}

	c.apply(status.NewSigning(), false)
	nonce, err := c.client.AccountNonce(ctx, d.Sender)
	if err != nil {
		c.Fail(err)
		return err
	}
	xt, err := chain.Sign(c.reg, d.Call, nonce, d.Rk, rsk)
	if err != nil {
		c.Fail(err)
		return err
	}
	hash, err := xt.Hash(c.reg)
	if err != nil {
		c.Fail(err)
		return err
	}

	// 发往节点之前最后一次检查，之后的本地失败不再能撤回交易
	c.mu.Lock()
	if c.state == Terminal || c.closed {
		c.mu.Unlock()
		c.log.Info("submit aborted before broadcast", zap.String("hash", hash))
		return ErrAborted
	}
	c.hash = hash
	c.broadcasting = true
	c.mu.Unlock()

	c.apply(status.NewSending(), false)
	sub, err := c.client.Submit(ctx, xt)

	c.mu.Lock()
	c.broadcasting = false
	deferred := c.deferred
	c.deferred = nil
	c.mu.Unlock()

	if err != nil {
		c.Fail(err)
		return err
	}
	monitor.Pipeline.TransferSubmittedTotal.Inc()
	if deferred != nil {
		c.log.Warn("extrinsic already accepted, local failure ignored",
			zap.String("hash", hash), zap.String("reason", deferred.Reason))
	}

	c.mu.Lock()
	if c.state == Terminal || c.closed {
		c.mu.Unlock()
		sub.Unsubscribe()
		return nil
	}
	c.sub = sub
	c.inFlight = true
	c.mu.Unlock()
	monitor.Pipeline.InFlightTransfers.Inc()

	c.log.Info("extrinsic submitted", zap.String("hash", hash), zap.Uint64("nonce", nonce))
	go c.observe(sub)
	return nil
}

func (c *Controller) observe(sub chain.Subscription) {
	for st := range sub.Updates() {
		if c.apply(st, true) {
			return
		}
	}
	c.mu.Lock()
	stopped := c.state == Terminal || c.closed
	c.mu.Unlock()
	if !stopped {
		c.Fail(errStreamClosed)
	}
}

// Fail 把错误转换为 Failed 状态。已经是终态时忽略。
// 交易正在发往节点时失败被推迟，节点接受之后以链上状态为准。
func (c *Controller) Fail(err error) {
	c.apply(failedStatus(err), false)
}

// FailIdle 只在尚未 Submit 时失败，返回是否生效。
// 与 Submit 的 Idle -> Submitted 互斥，用于构造超时这类不能打断已提交交易的场合。
func (c *Controller) FailIdle(err error) bool {
	_, applied := c.transition(failedStatus(err), false, func() bool { return c.state == Idle })
	return applied
}

func failedStatus(err error) status.TransactionStatus {
	reason := err.Error()
	var be *callbuilder.BuildError
	if errors.As(err, &be) {
		reason = be.Reason()
	}
	return status.NewFailed(reason)
}

// apply 写入一个状态，返回是否进入终态
func (c *Controller) apply(st status.TransactionStatus, fromChain bool) bool {
	terminal, _ := c.transition(st, fromChain, nil)
	return terminal
}

// transition guard 在 c.mu 下执行，返回 false 时不写入
func (c *Controller) transition(st status.TransactionStatus, fromChain bool, guard func() bool) (terminal, applied bool) {
	c.order.Lock()
	defer c.order.Unlock()

	c.mu.Lock()
	if c.state == Terminal || c.closed {
		c.mu.Unlock()
		return true, false
	}
	if guard != nil && !guard() {
		c.mu.Unlock()
		return false, false
	}
	if st.IsTerminal() && !fromChain && c.broadcasting {
		if c.deferred == nil {
			c.deferred = &st
		}
		c.mu.Unlock()
		return false, false
	}
	var sub chain.Subscription
	var cancel context.CancelFunc
	wasInFlight := false
	switch {
	case st.IsTerminal():
		c.state = Terminal
		sub, c.sub = c.sub, nil
		cancel, c.cancel = c.cancel, nil
		wasInFlight, c.inFlight = c.inFlight, false
	case fromChain:
		c.state = StatusReceived
	}
	switch st.Kind {
	case status.Broadcast:
		if st.Confirmations > c.current {
			c.current = st.Confirmations
		}
	case status.Finalised:
		c.current = c.expected
	}
	progress := status.Progress{Current: c.current, Total: c.expected}
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.status.Set(st)
	c.progress.Set(progress)

	if !st.IsTerminal() {
		return false, true
	}
	if sub != nil {
		sub.Unsubscribe()
	}
	if wasInFlight {
		monitor.Pipeline.InFlightTransfers.Dec()
	}
	monitor.Pipeline.TransferOutcomeTotal.WithLabelValues(st.Kind.String()).Inc()
	c.log.Info("transfer reached terminal status", zap.Stringer("status", st))
	c.finish()
	return true, true
}

// Close 停止本地观察并释放订阅。交易本身不会被撤回。
func (c *Controller) Close() {
	c.order.Lock()
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.order.Unlock()
		return
	}
	c.closed = true
	sub := c.sub
	c.sub = nil
	cancel := c.cancel
	c.cancel = nil
	wasInFlight := c.inFlight
	c.inFlight = false
	c.mu.Unlock()
	c.order.Unlock()

	if cancel != nil {
		cancel()
	}
	if sub != nil {
		sub.Unsubscribe()
	}
	if wasInFlight {
		monitor.Pipeline.InFlightTransfers.Dec()
	}
	c.status.Close()
	c.progress.Close()
	c.finish()
}

func (c *Controller) finish() {
	c.doneOnce.Do(func() { close(c.done) })
}
