package txcontroller

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zakimal/zero-chain-ui/internal/callbuilder"
	"github.com/zakimal/zero-chain-ui/internal/chain"
	"github.com/zakimal/zero-chain-ui/internal/chain/simnet"
	"github.com/zakimal/zero-chain-ui/internal/confidential"
	"github.com/zakimal/zero-chain-ui/internal/status"
	"github.com/zakimal/zero-chain-ui/pkg/bip39"
)

var vk = []byte("controller-vk")

type keys map[chain.AccountID][]byte

func (k keys) SeedFromAccount(id chain.AccountID) ([]byte, error) {
	if seed, ok := k[id]; ok {
		return seed, nil
	}
	return nil, errors.New("no such account")
}

type inline struct{}

func (inline) Go(fn func()) { fn() }

type accounts struct {
	keys  keys
	alice chain.AccountID
	bob   chain.AccountID
}

func newAccounts(t *testing.T) *accounts {
	t.Helper()
	m := bip39.NewMnemonicService()
	a := &accounts{keys: keys{}}
	for _, phrase := range []string{"//Alice", "//Bob"} {
		seed := m.MnemonicToSeed(phrase, "")
		sk, err := confidential.SpendingKeyFromSeed(seed)
		require.NoError(t, err)
		id := chain.AccountFromKey(sk.Address())
		a.keys[id] = seed
		if phrase == "//Alice" {
			a.alice = id
		} else {
			a.bob = id
		}
	}
	return a
}

func (a *accounts) build(t *testing.T, amount, balance uint64) callbuilder.Result {
	t.Helper()
	in := callbuilder.NewInputSet()
	in.Sender.Set(a.alice)
	in.Recipient.Set(a.bob)
	in.Amount.Set(amount)
	in.SenderDecryptedBalance.Set(balance)
	in.ProvingKey.Set(bytes.Repeat([]byte{5}, 48))
	in.PreparedVerifyingKey.Set(vk)

	b := callbuilder.New(a.keys, confidential.NewEngine(nil), callbuilder.WithExecutor(inline{}))
	cell := b.Build(in)
	defer cell.Close()
	r, ok := cell.Get()
	require.True(t, ok)
	return r
}

// recorder 记录状态文本序列，连续重复的只记一次
type recorder struct {
	mu    sync.Mutex
	texts []string
	all   []status.TransactionStatus
}

func record(c *Controller) *recorder {
	r := &recorder{}
	c.Status().Subscribe(func(st status.TransactionStatus) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.all = append(r.all, st)
		text := status.Present(st).Text
		if n := len(r.texts); n == 0 || r.texts[n-1] != text {
			r.texts = append(r.texts, text)
		}
	})
	return r
}

func (r *recorder) Texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.texts...)
}

func waitDone(t *testing.T, c *Controller) {
	t.Helper()
	select {
	case <-c.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("controller did not finish")
	}
}

func TestHappyPath(t *testing.T) {
	a := newAccounts(t)
	node := simnet.New(simnet.Config{VerifyingKey: vk})
	defer node.Close()
	require.NoError(t, node.Endow(a.alice, 0, 100))

	c := New(node, WithExpectedConfirmations(3))
	rec := record(c)
	var progress []status.Progress
	var pmu sync.Mutex
	c.Progress().Subscribe(func(p status.Progress) {
		pmu.Lock()
		progress = append(progress, p)
		pmu.Unlock()
	})

	r := a.build(t, 30, 100)
	require.NoError(t, r.Err)
	require.NoError(t, c.Submit(context.Background(), r.Call))
	assert.Regexp(t, `^0x[0-9a-f]{64}$`, c.TxHash())

	// 等待 ready 到达后再出块
	require.Eventually(t, func() bool { return c.State() == StatusReceived }, time.Second, 5*time.Millisecond)
	for i := 0; i < 3; i++ {
		node.ProduceBlock()
	}
	waitDone(t, c)

	assert.Equal(t, []string{"signing", "sending", "finalising", "finalised"}, rec.Texts())
	assert.Equal(t, Terminal, c.State())
	st, _ := c.Status().Get()
	assert.Equal(t, status.Finalised, st.Kind)

	p, _ := c.Progress().Get()
	assert.Equal(t, status.Progress{Current: 3, Total: 3}, p)
	pmu.Lock()
	seen := map[int]bool{}
	for _, p := range progress {
		seen[p.Current] = true
	}
	pmu.Unlock()
	assert.True(t, seen[1] && seen[2], "intermediate confirmations are reported")
}

func TestInsufficientBalanceFails(t *testing.T) {
	a := newAccounts(t)
	r := a.build(t, 101, 100)
	require.Error(t, r.Err)

	c := New(simnet.New(simnet.Config{}))
	rec := record(c)
	c.Fail(r.Err)

	assert.Equal(t, []string{"failed"}, rec.Texts())
	st, _ := c.Status().Get()
	assert.Contains(t, st.Reason, confidential.ErrInsufficientBalance.Error())
	assert.Contains(t, st.Reason, "amount 101, balance 100")
	waitDone(t, c)
}

// fakeClient 由测试控制状态流
type fakeClient struct {
	submitErr error
	updates   chan status.TransactionStatus

	mu           sync.Mutex
	unsubscribed int
}

type fakeSub struct{ c *fakeClient }

func (s fakeSub) Updates() <-chan status.TransactionStatus { return s.c.updates }
func (s fakeSub) Unsubscribe() {
	s.c.mu.Lock()
	s.c.unsubscribed++
	s.c.mu.Unlock()
}

func (f *fakeClient) Unsubscribed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unsubscribed
}

func (f *fakeClient) Submit(ctx context.Context, xt *chain.Extrinsic) (chain.Subscription, error) {
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return fakeSub{f}, nil
}
func (f *fakeClient) Balance(context.Context, chain.AccountID) (uint64, error) { return 0, nil }
func (f *fakeClient) AccountNonce(context.Context, chain.AccountID) (uint64, error) { return 0, nil }
func (f *fakeClient) EncryptedBalance(context.Context, chain.AccountID) ([]byte, error) {
	return nil, nil
}
func (f *fakeClient) SystemInfo(context.Context) (*chain.SystemInfo, error) { return &chain.SystemInfo{}, nil }
func (f *fakeClient) Close() error { return nil }

func TestTerminalIsSticky(t *testing.T) {
	a := newAccounts(t)
	client := &fakeClient{updates: make(chan status.TransactionStatus)}
	c := New(client)
	rec := record(c)

	require.NoError(t, c.Submit(context.Background(), a.build(t, 1, 1).Call))
	client.updates <- status.NewReady()
	client.updates <- status.NewFinalised("0x01")
	waitDone(t, c)

	// 终态之后的推送不再被消费，也不会改变状态
	select {
	case client.updates <- status.NewFailed("late"):
		t.Fatal("update consumed after terminal")
	case <-time.After(50 * time.Millisecond):
	}
	c.Fail(errors.New("late failure"))

	st, _ := c.Status().Get()
	assert.Equal(t, status.Finalised, st.Kind)
	assert.Equal(t, []string{"signing", "sending", "finalising", "finalised"}, rec.Texts())
	assert.Equal(t, 1, client.Unsubscribed())
}

func TestUnknownStatusIsShownRaw(t *testing.T) {
	a := newAccounts(t)
	client := &fakeClient{updates: make(chan status.TransactionStatus)}
	c := New(client)
	defer c.Close()
	rec := record(c)

	require.NoError(t, c.Submit(context.Background(), a.build(t, 1, 1).Call))
	client.updates <- status.NewUnknown("future")
	require.Eventually(t, func() bool { return len(rec.Texts()) == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "future", rec.Texts()[2])
	assert.Equal(t, StatusReceived, c.State())
}

func TestSubmitErrors(t *testing.T) {
	a := newAccounts(t)

	t.Run("submission error", func(t *testing.T) {
		c := New(&fakeClient{submitErr: errors.New("connection refused")})
		rec := record(c)
		err := c.Submit(context.Background(), a.build(t, 1, 1).Call)
		require.Error(t, err)
		assert.Equal(t, []string{"signing", "sending", "failed"}, rec.Texts())
		st, _ := c.Status().Get()
		assert.Equal(t, "connection refused", st.Reason)
	})

	t.Run("descriptor reused", func(t *testing.T) {
		d := a.build(t, 1, 1).Call
		client := &fakeClient{updates: make(chan status.TransactionStatus)}
		first := New(client)
		defer first.Close()
		require.NoError(t, first.Submit(context.Background(), d))

		second := New(client)
		err := second.Submit(context.Background(), d)
		assert.ErrorIs(t, err, callbuilder.ErrDescriptorSpent)
		st, _ := second.Status().Get()
		assert.Equal(t, status.Failed, st.Kind)
	})

	t.Run("submit twice", func(t *testing.T) {
		c := New(&fakeClient{updates: make(chan status.TransactionStatus)})
		defer c.Close()
		require.NoError(t, c.Submit(context.Background(), a.build(t, 1, 1).Call))
		assert.ErrorIs(t, c.Submit(context.Background(), a.build(t, 1, 1).Call), ErrAlreadySubmitted)
	})
}

func TestStreamClosedFails(t *testing.T) {
	a := newAccounts(t)
	client := &fakeClient{updates: make(chan status.TransactionStatus)}
	c := New(client)

	require.NoError(t, c.Submit(context.Background(), a.build(t, 1, 1).Call))
	close(client.updates)
	waitDone(t, c)
	st, _ := c.Status().Get()
	assert.Equal(t, status.Failed, st.Kind)
	assert.Equal(t, errStreamClosed.Error(), st.Reason)
}

func TestCloseReleasesSubscription(t *testing.T) {
	a := newAccounts(t)
	client := &fakeClient{updates: make(chan status.TransactionStatus, 1)}
	c := New(client)

	require.NoError(t, c.Submit(context.Background(), a.build(t, 1, 1).Call))
	c.Close()
	c.Close()
	waitDone(t, c)
	assert.Equal(t, 1, client.Unsubscribed())

	client.updates <- status.NewFinalised("0x1")
	time.Sleep(20 * time.Millisecond)
	st, _ := c.Status().Get()
	assert.Equal(t, status.Sending, st.Kind)
	assert.ErrorIs(t, c.Submit(context.Background(), a.build(t, 1, 1).Call), ErrClosed)
}

// gatedNode 让 AccountNonce / Submit 停在 gate 上，直到测试放行
type gatedNode struct {
	*simnet.Node
	nonceGate  chan struct{}
	submitGate chan struct{}
	entered    chan struct{}
	submits    atomic.Int32
}

func newGatedNode(t *testing.T, a *accounts) *gatedNode {
	t.Helper()
	node := simnet.New(simnet.Config{VerifyingKey: vk})
	t.Cleanup(func() { _ = node.Close() })
	require.NoError(t, node.Endow(a.alice, 0, 100))
	return &gatedNode{Node: node, entered: make(chan struct{}, 1)}
}

func (g *gatedNode) AccountNonce(ctx context.Context, id chain.AccountID) (uint64, error) {
	if g.nonceGate != nil {
		g.entered <- struct{}{}
		<-g.nonceGate
	}
	return g.Node.AccountNonce(ctx, id)
}

func (g *gatedNode) Submit(ctx context.Context, xt *chain.Extrinsic) (chain.Subscription, error) {
	g.submits.Add(1)
	if g.submitGate != nil {
		g.entered <- struct{}{}
		<-g.submitGate
	}
	return g.Node.Submit(ctx, xt)
}

func waitEntered(t *testing.T, g *gatedNode) {
	t.Helper()
	select {
	case <-g.entered:
	case <-time.After(3 * time.Second):
		t.Fatal("gate never reached")
	}
}

func TestStopDuringSigningDoesNotBroadcast(t *testing.T) {
	a := newAccounts(t)
	for _, tc := range []struct {
		name string
		stop func(c *Controller)
		kind status.Kind
	}{
		{"fail", func(c *Controller) { c.Fail(errors.New("build timeout")) }, status.Failed},
		{"close", func(c *Controller) { c.Close() }, status.Signing},
	} {
		t.Run(tc.name, func(t *testing.T) {
			node := newGatedNode(t, a)
			node.nonceGate = make(chan struct{})
			c := New(node)

			errc := make(chan error, 1)
			d := a.build(t, 10, 100).Call
			go func() { errc <- c.Submit(context.Background(), d) }()
			waitEntered(t, node)

			tc.stop(c)
			close(node.nonceGate)

			assert.ErrorIs(t, <-errc, ErrAborted)
			assert.Equal(t, int32(0), node.submits.Load())
			assert.Empty(t, c.TxHash())
			st, _ := c.Status().Get()
			assert.Equal(t, tc.kind, st.Kind)
			waitDone(t, c)
		})
	}
}

func TestFailWhileBroadcastingFollowsChain(t *testing.T) {
	a := newAccounts(t)
	node := newGatedNode(t, a)
	node.submitGate = make(chan struct{})
	c := New(node)
	rec := record(c)

	errc := make(chan error, 1)
	d := a.build(t, 10, 100).Call
	go func() { errc <- c.Submit(context.Background(), d) }()
	waitEntered(t, node)

	// 节点可能已经收到交易，本地失败不生效
	c.Fail(errors.New("late failure"))
	close(node.submitGate)
	require.NoError(t, <-errc)

	require.Eventually(t, func() bool { return c.State() == StatusReceived }, time.Second, 5*time.Millisecond)
	for i := 0; i < simnet.DefaultFinalityDepth; i++ {
		node.ProduceBlock()
	}
	waitDone(t, c)

	assert.Equal(t, []string{"signing", "sending", "finalising", "finalised"}, rec.Texts())
	assert.Equal(t, int32(1), node.submits.Load())
}

func TestFailIdle(t *testing.T) {
	a := newAccounts(t)

	t.Run("before submit", func(t *testing.T) {
		c := New(simnet.New(simnet.Config{}))
		assert.True(t, c.FailIdle(errors.New("build timeout")))
		assert.False(t, c.FailIdle(errors.New("again")))
		st, _ := c.Status().Get()
		assert.Equal(t, "build timeout", st.Reason)
		assert.ErrorIs(t, c.Submit(context.Background(), a.build(t, 1, 1).Call), ErrAlreadySubmitted)
		waitDone(t, c)
	})

	t.Run("after submit started", func(t *testing.T) {
		node := newGatedNode(t, a)
		node.nonceGate = make(chan struct{})
		c := New(node)
		defer c.Close()

		errc := make(chan error, 1)
		d := a.build(t, 10, 100).Call
		go func() { errc <- c.Submit(context.Background(), d) }()
		waitEntered(t, node)

		assert.False(t, c.FailIdle(errors.New("build timeout")))
		close(node.nonceGate)
		require.NoError(t, <-errc)
		assert.Equal(t, int32(1), node.submits.Load())
		st, _ := c.Status().Get()
		assert.NotEqual(t, status.Failed, st.Kind)
	})
}
