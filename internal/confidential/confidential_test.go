package confidential

import (
	"bytes"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zakimal/zero-chain-ui/pkg/bip39"
)

func spendingKey(t *testing.T, phrase string) *SpendingKey {
	t.Helper()
	sk, err := SpendingKeyFromSeed(bip39.NewMnemonicService().MnemonicToSeed(phrase, ""))
	require.NoError(t, err)
	return sk
}

func scalar(v uint32) *secp256k1.ModNScalar {
	var s secp256k1.ModNScalar
	s.SetInt(v)
	return &s
}

func newDecryptor(t *testing.T) *Decryptor {
	t.Helper()
	d, err := NewDecryptor(1<<16, 16)
	require.NoError(t, err)
	return d
}

func TestAddressIsValidXOnlyKey(t *testing.T) {
	alice := spendingKey(t, "//Alice")

	addr := alice.Address()
	parsed, err := ParsePublicKey(addr[:])
	require.NoError(t, err)
	assert.Equal(t, addr, parsed)

	ivk := alice.ViewingKey().Bytes()
	again, err := ViewingKeyFromBytes(ivk[:])
	require.NoError(t, err)
	assert.Equal(t, addr, again.Address())

	assert.NotEqual(t, addr, spendingKey(t, "//Bob").Address())
}

func TestEncryptDecrypt(t *testing.T) {
	alice := spendingKey(t, "//Alice")
	d := newDecryptor(t)

	for _, amount := range []uint64{0, 1, 42, 256, 257, 65535, 1 << 16} {
		ct, err := Encrypt(amount, alice.Address(), scalar(12345))
		require.NoError(t, err)

		got, err := d.Decrypt(ct, alice.ViewingKey())
		require.NoError(t, err)
		assert.Equal(t, amount, got)
	}

	ct, err := Encrypt(1<<16+1, alice.Address(), scalar(7))
	require.NoError(t, err)
	_, err = d.Decrypt(ct, alice.ViewingKey())
	assert.ErrorIs(t, err, ErrAmountOutOfRange)
}

func TestCiphertextHomomorphism(t *testing.T) {
	alice := spendingKey(t, "//Alice")
	d := newDecryptor(t)

	a, err := Encrypt(500, alice.Address(), scalar(3))
	require.NoError(t, err)
	b, err := Encrypt(120, alice.Address(), scalar(9))
	require.NoError(t, err)

	sum, err := d.Decrypt(a.Add(b), alice.ViewingKey())
	require.NoError(t, err)
	assert.Equal(t, uint64(620), sum)

	diff, err := d.Decrypt(a.Sub(b), alice.ViewingKey())
	require.NoError(t, err)
	assert.Equal(t, uint64(380), diff)

	zero, err := d.Decrypt(ZeroCiphertext().Add(a).Sub(a), alice.ViewingKey())
	require.NoError(t, err)
	assert.Equal(t, uint64(0), zero)
}

func TestCiphertextBytes(t *testing.T) {
	alice := spendingKey(t, "//Alice")

	ct, err := Encrypt(77, alice.Address(), scalar(5))
	require.NoError(t, err)

	parsed, err := ParseCiphertext(ct.Bytes())
	require.NoError(t, err)
	assert.True(t, ct.Equal(parsed))

	assert.Equal(t, make([]byte, CiphertextLen), ZeroCiphertext().Bytes())

	_, err = ParseCiphertext(make([]byte, 10))
	assert.ErrorIs(t, err, ErrInvalidCiphertext)
	_, err = ParseCiphertext(bytes.Repeat([]byte{0x05}, CiphertextLen))
	assert.ErrorIs(t, err, ErrInvalidCiphertext)
}

func TestDecryptWithWrongKey(t *testing.T) {
	alice, bob := spendingKey(t, "//Alice"), spendingKey(t, "//Bob")
	d := newDecryptor(t)

	ct, err := Encrypt(10, alice.Address(), scalar(99))
	require.NoError(t, err)
	got, err := d.Decrypt(ct, bob.ViewingKey())
	if err == nil {
		assert.NotEqual(t, uint64(10), got)
	}
}

func transferRequest(t *testing.T) TransferRequest {
	return TransferRequest{
		SpendingKey:  spendingKey(t, "//Alice"),
		Recipient:    spendingKey(t, "//Bob").Address(),
		Amount:       30,
		Balance:      100,
		ProvingKey:   bytes.Repeat([]byte{0x11}, 64),
		VerifyingKey: []byte("prepared-vk"),
		Seed:         [8]uint32{1, 2, 3, 4, 5, 6, 7, 8},
	}
}

func TestBuildTransfer(t *testing.T) {
	req := transferRequest(t)
	d := newDecryptor(t)

	proof, err := BuildTransfer(req)
	require.NoError(t, err)
	assert.Len(t, proof.Proof, ProofLen)
	assert.Equal(t, req.SpendingKey.Address(), proof.SenderAddress)

	bob := spendingKey(t, "//Bob")
	amount, err := d.Decrypt(proof.EncAmountRecipient, bob.ViewingKey())
	require.NoError(t, err)
	assert.Equal(t, uint64(30), amount)

	amount, err = d.Decrypt(proof.EncAmountSender, req.SpendingKey.ViewingKey())
	require.NoError(t, err)
	assert.Equal(t, uint64(30), amount)

	balance, err := d.Decrypt(proof.EncBalanceSender, req.SpendingKey.ViewingKey())
	require.NoError(t, err)
	assert.Equal(t, uint64(100), balance)

	require.NoError(t, VerifyTransfer(proof.Proof, req.VerifyingKey, proof.Statement()))
	require.NoError(t, VerifyTransfer(proof.Proof, nil, proof.Statement()))

	var rk [32]byte
	copy(rk[:], proof.Rsk.PubKey().SerializeCompressed()[1:])
	assert.Equal(t, proof.Rk[:], rk[:])
}

func TestBuildTransferDeterministicPerSeed(t *testing.T) {
	req := transferRequest(t)

	a, err := BuildTransfer(req)
	require.NoError(t, err)
	b, err := BuildTransfer(req)
	require.NoError(t, err)
	assert.Equal(t, a.Rk, b.Rk)
	assert.True(t, a.EncAmountSender.Equal(b.EncAmountSender))

	req.Seed[0]++
	c, err := BuildTransfer(req)
	require.NoError(t, err)
	assert.NotEqual(t, a.Rk, c.Rk)
}

func TestVerifyTransferRejectsTampering(t *testing.T) {
	req := transferRequest(t)
	proof, err := BuildTransfer(req)
	require.NoError(t, err)

	st := proof.Statement()
	st.RecipientAddress = req.SpendingKey.Address()
	assert.ErrorIs(t, VerifyTransfer(proof.Proof, req.VerifyingKey, st), ErrInvalidProof)

	assert.ErrorIs(t, VerifyTransfer(proof.Proof, []byte("other-vk"), proof.Statement()), ErrInvalidProof)
	assert.ErrorIs(t, VerifyTransfer(proof.Proof[:10], nil, proof.Statement()), ErrInvalidProof)
}

func TestBuildTransferErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*TransferRequest)
		want   error
	}{
		{"short proving key", func(r *TransferRequest) { r.ProvingKey = []byte{1, 2, 3} }, ErrProvingKeyTooShort},
		{"missing verifying key", func(r *TransferRequest) { r.VerifyingKey = nil }, ErrVerifyingKeyMissing},
		{"insufficient balance", func(r *TransferRequest) { r.Amount = 101 }, ErrInsufficientBalance},
		{"invalid recipient", func(r *TransferRequest) { r.Recipient = PublicKey{} }, ErrInvalidRecipient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := transferRequest(t)
			tt.mutate(&req)
			_, err := BuildTransfer(req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestEngineDecryptBalance(t *testing.T) {
	alice := spendingKey(t, "//Alice")
	e := NewEngine(newDecryptor(t))

	ct, err := Encrypt(1000, alice.Address(), scalar(4))
	require.NoError(t, err)

	got, err := e.DecryptBalance(ct.Bytes(), alice.ViewingKey())
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), got)

	// 第二次命中缓存
	got, err = e.DecryptBalance(ct.Bytes(), alice.ViewingKey())
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), got)

	_, err = e.DecryptBalance([]byte{1}, alice.ViewingKey())
	assert.ErrorIs(t, err, ErrInvalidCiphertext)
}
