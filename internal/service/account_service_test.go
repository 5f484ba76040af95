package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zakimal/zero-chain-ui/internal/secretstore"
	"github.com/zakimal/zero-chain-ui/pkg/reactive"
)

func TestLookupIsCachedUntilInvalidated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	info, err := f.accounts.Lookup(ctx, f.alice.String())
	require.NoError(t, err)
	assert.Equal(t, uint64(10), info.Balance)
	require.NotNil(t, info.DecryptedBalance)
	assert.Equal(t, uint64(100), *info.DecryptedBalance)
	assert.Len(t, info.EncryptedBalance, 66)

	require.NoError(t, f.node.Endow(f.alice, 20, 0))
	cached, err := f.accounts.Lookup(ctx, f.alice.String())
	require.NoError(t, err)
	assert.Equal(t, uint64(10), cached.Balance)

	f.accounts.Invalidate(ctx, f.alice)
	fresh, err := f.accounts.Lookup(ctx, f.alice.String())
	require.NoError(t, err)
	assert.Equal(t, uint64(30), fresh.Balance)
}

func TestLookupForeignAccount(t *testing.T) {
	f := newFixture(t)
	info, err := f.accounts.Lookup(context.Background(), f.bob.String())
	require.NoError(t, err)
	assert.Nil(t, info.DecryptedBalance, "bob's viewing key is not held locally")

	_, err = f.accounts.Lookup(context.Background(), "not-an-address")
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestDecryptedBalanceCell(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cell, errc := f.accounts.DecryptedBalance(ctx, f.alice)
	v, err := cell.Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), v)
	assert.NoError(t, <-errc)

	cell, errc = f.accounts.DecryptedBalance(ctx, f.bob)
	assert.ErrorIs(t, <-errc, ErrUnknownSender)
	_, err = cell.Await(ctx)
	assert.ErrorIs(t, err, reactive.ErrClosed)
}

func TestWalletResolve(t *testing.T) {
	f := newFixture(t)

	id, err := f.wallet.Resolve("alice")
	require.NoError(t, err)
	assert.Equal(t, f.alice, id)
	id, err = f.wallet.Resolve(f.alice.String())
	require.NoError(t, err)
	assert.Equal(t, f.alice, id)

	phrase, generated, err := f.wallet.Generate()
	require.NoError(t, err)
	derived, err := f.wallet.Derive(phrase)
	require.NoError(t, err)
	assert.Equal(t, generated, derived)

	_, err = f.wallet.Import(phrase, "alice")
	assert.ErrorIs(t, err, secretstore.ErrNameTaken)
	_, err = f.wallet.Import(phrase, "fresh")
	require.NoError(t, err)
	assert.Len(t, f.wallet.List(), 2)
	require.NoError(t, f.wallet.Forget("fresh"))
	_, err = f.wallet.Resolve("fresh")
	assert.ErrorIs(t, err, ErrUnknownSender)
}

func TestAddressBookResolve(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.book.Add(ctx, "bob", "garbage")
	assert.ErrorIs(t, err, ErrInvalidAddress)
	_, err = f.book.Add(ctx, "bob", f.bob.String())
	require.NoError(t, err)

	id, err := f.book.Resolve(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, f.bob, id)
	id, err = f.book.Resolve(ctx, f.alice.String())
	require.NoError(t, err)
	assert.Equal(t, f.alice, id)

	require.NoError(t, f.book.Remove(ctx, "bob"))
	_, err = f.book.Resolve(ctx, "bob")
	assert.ErrorIs(t, err, ErrInvalidAddress)
}
