package callbuilder

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

	"github.com/zakimal/zero-chain-ui/internal/chain"
	"github.com/zakimal/zero-chain-ui/internal/confidential"
	"github.com/zakimal/zero-chain-ui/internal/units"
	"github.com/zakimal/zero-chain-ui/pkg/bip39"
	"github.com/zakimal/zero-chain-ui/pkg/reactive"
)

type memoryKeys map[chain.AccountID][]byte

func (m memoryKeys) SeedFromAccount(id chain.AccountID) ([]byte, error) {
	seed, ok := m[id]
	if !ok {
		return nil, errors.New("account not found")
	}
	return seed, nil
}

type countingCrypto struct {
	*confidential.Engine
	builds atomic.Int32
}

func (c *countingCrypto) BuildTransfer(req confidential.TransferRequest) (*confidential.TransferProof, error) {
	c.builds.Add(1)
	return c.Engine.BuildTransfer(req)
}

type inline struct{}

func (inline) Go(fn func()) { fn() }

type fixture struct {
	keys   memoryKeys
	crypto *countingCrypto
	alice  chain.AccountID
	bob    chain.AccountID

	aliceKey *confidential.SpendingKey
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	m := bip39.NewMnemonicService()
	f := &fixture{keys: memoryKeys{}, crypto: &countingCrypto{Engine: confidential.NewEngine(nil)}}
	for _, phrase := range []string{"//Alice", "//Bob"} {
		seed := m.MnemonicToSeed(phrase, "")
		sk, err := confidential.SpendingKeyFromSeed(seed)
		require.NoError(t, err)
		id := chain.AccountFromKey(sk.Address())
		if phrase == "//Alice" {
			f.alice = id
			f.aliceKey = sk
			f.keys[id] = seed
		} else {
			f.bob = id
		}
	}
	return f
}

func (f *fixture) builder(opts ...Option) *Builder {
	opts = append([]Option{
		WithExecutor(inline{}),
		WithRandomSource(func() ([8]uint32, error) { return [8]uint32{1, 2, 3, 4, 5, 6, 7, 8}, nil }),
	}, opts...)
	return New(f.keys, f.crypto, opts...)
}

func (f *fixture) fill(in *InputSet, amount, balance uint64) {
	in.Sender.Set(f.alice)
	in.Recipient.Set(f.bob)
	in.Amount.Set(amount)
	in.SenderDecryptedBalance.Set(balance)
	in.ProvingKey.Set(bytes.Repeat([]byte{0xaa}, 64))
	in.PreparedVerifyingKey.Set([]byte("vk"))
}

func TestBuildWaitsForAllInputs(t *testing.T) {
	f := newFixture(t)
	in := NewInputSet()
	result := f.builder().Build(in)
	defer result.Close()

	in.Sender.Set(f.alice)
	in.Recipient.Set(f.bob)
	in.Amount.Set(10)
	in.SenderDecryptedBalance.Set(100)
	in.ProvingKey.Set(bytes.Repeat([]byte{0xaa}, 64))
	assert.False(t, in.Ready())
	assert.False(t, result.Ready(), "five of six inputs must not build")
	assert.Equal(t, int32(0), f.crypto.builds.Load())

	in.PreparedVerifyingKey.Set([]byte("vk"))
	r, ok := result.Get()
	require.True(t, ok)
	require.NoError(t, r.Err)
	require.NotNil(t, r.Call)

	d := r.Call
	assert.Equal(t, "confTransfer.confidentialTransfer", d.Call.Method())
	assert.Equal(t, f.alice, d.Sender)
	assert.Equal(t, [8]uint32{1, 2, 3, 4, 5, 6, 7, 8}, d.Randomness)
	args, err := chain.ParseConfidentialTransfer(d.Call)
	require.NoError(t, err)
	assert.Equal(t, f.bob, args.Recipient)
	assert.Equal(t, d.Rk, args.Statement.Rk)
	require.NoError(t, confidential.VerifyTransfer(args.Proof, []byte("vk"), args.Statement))
}

func TestBuildWhenAlreadyReady(t *testing.T) {
	f := newFixture(t)
	in := NewInputSet()
	f.fill(in, 1, 2)

	result := f.builder().Build(in)
	defer result.Close()
	assert.True(t, result.Ready())
	assert.Equal(t, int32(1), f.crypto.builds.Load())
}

func TestOncePerSubmitReleasesJoin(t *testing.T) {
	f := newFixture(t)
	in := NewInputSet()
	result := f.builder().Build(in)
	defer result.Close()

	f.fill(in, 10, 100)
	first, _ := result.Get()

	in.Amount.Set(20)
	in.Amount.Reset()
	in.Amount.Set(30)
	assert.Equal(t, int32(1), f.crypto.builds.Load())
	again, _ := result.Get()
	assert.Same(t, first.Call, again.Call)
}

func TestEverySnapshotRebuilds(t *testing.T) {
	f := newFixture(t)
	in := NewInputSet()
	b := f.builder(WithMode(EverySnapshot))
	assert.Equal(t, EverySnapshot, b.Mode())
	result := b.Build(in)
	defer result.Close()

	var mu sync.Mutex
	var built []*CallDescriptor
	result.Subscribe(func(r Result) {
		mu.Lock()
		built = append(built, r.Call)
		mu.Unlock()
	})

	f.fill(in, 10, 100)
	in.Amount.Set(20)
	in.ProvingKey.Reset() // 失去就绪不会使已构造的结果失效
	in.ProvingKey.Set(bytes.Repeat([]byte{0xbb}, 64))

	assert.Equal(t, int32(3), f.crypto.builds.Load())
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, built, 3)
	assert.NotSame(t, built[0], built[1])
}

func TestBuildFailures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *fixture, in *InputSet)
		stage string
		want  error
	}{
		{
			name:  "insufficient balance",
			setup: func(f *fixture, in *InputSet) { f.fill(in, 101, 100) },
			stage: "proof",
			want:  confidential.ErrInsufficientBalance,
		},
		{
			name: "short proving key",
			setup: func(f *fixture, in *InputSet) {
				f.fill(in, 1, 100)
				in.ProvingKey.Set([]byte{1, 2, 3})
			},
			stage: "proof",
			want:  confidential.ErrProvingKeyTooShort,
		},
		{
			name: "unknown sender",
			setup: func(f *fixture, in *InputSet) {
				delete(f.keys, f.alice)
				f.fill(in, 1, 100)
			},
			stage: "key",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			in := NewInputSet()
			tt.setup(f, in)
			result := f.builder().Build(in)
			defer result.Close()

			r, ok := result.Get()
			require.True(t, ok)
			assert.Nil(t, r.Call)
			var be *BuildError
			require.ErrorAs(t, r.Err, &be)
			assert.Equal(t, tt.stage, be.Stage)
			if tt.want != nil {
				assert.ErrorIs(t, r.Err, tt.want)
				assert.Contains(t, be.Reason(), tt.want.Error())
			}
		})
	}
}

func TestDescriptorIsOneTime(t *testing.T) {
	f := newFixture(t)
	in := NewInputSet()
	f.fill(in, 1, 1)
	result := f.builder().Build(in)
	defer result.Close()
	r, _ := result.Get()

	rsk, err := r.Call.Claim()
	require.NoError(t, err)
	require.NotNil(t, rsk)
	assert.True(t, r.Call.Spent())
	_, err = r.Call.Claim()
	assert.ErrorIs(t, err, ErrDescriptorSpent)
}

func TestCloseBeforeReadyReleasesJoin(t *testing.T) {
	f := newFixture(t)
	in := NewInputSet()
	result := f.builder().Build(in)
	result.Close()

	f.fill(in, 1, 1)
	assert.Equal(t, int32(0), f.crypto.builds.Load())
	assert.False(t, result.Ready())
}

func TestSetAmountText(t *testing.T) {
	in := NewInputSet()
	require.NoError(t, in.SetAmountText("1.5", units.New(1)))
	v, ok := in.Amount.Get()
	require.True(t, ok)
	assert.Equal(t, uint64(15), v)

	assert.ErrorIs(t, in.SetAmountText("abc", units.Default), units.ErrSyntax)
	assert.False(t, in.Amount.Ready())

	assert.Error(t, in.SetRecipientText("nope"))
	assert.False(t, in.Recipient.Ready())
}

func TestSnapshotsBuildInOrder(t *testing.T) {
	f := newFixture(t)
	in := NewInputSet()
	result := New(f.keys, f.crypto, WithMode(EverySnapshot)).Build(in)
	defer result.Close()

	f.fill(in, 1, 100)
	for amount := uint64(2); amount <= 5; amount++ {
		in.Amount.Set(amount)
	}
	require.Eventually(t, func() bool { return f.crypto.builds.Load() == 5 }, 5*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	r, err := result.Await(ctx)
	require.NoError(t, err)
	require.NoError(t, r.Err)

	// 最后写入的结果对应最后一个快照
	d, err := confidential.NewDecryptor(64, 0)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		r, _ := result.Get()
		args, err := chain.ParseConfidentialTransfer(r.Call.Call)
		if err != nil {
			return false
		}
		amount, err := d.Decrypt(args.Statement.EncAmountSender, f.aliceKey.ViewingKey())
		return err == nil && amount == 5
	}, time.Second, 10*time.Millisecond)
}

func TestSerialExecutorKeepsOrder(t *testing.T) {
	var order []int
	var mu sync.Mutex
	exec := NewSerialExecutor()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		i := i
		wg.Add(1)
		exec.Go(func() {
			defer wg.Done()
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}
	wg.Wait()
	require.Len(t, order, 20)
	for i := range order {
		assert.Equal(t, i, order[i])
	}
}

var _ reactive.View[Result] = (*reactive.Cell[Result])(nil)
