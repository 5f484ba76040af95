package confidential

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/zakimal/zero-chain-ui/pkg/hdkey"
)

// KeyLen x-only 公钥长度 (BIP-340)
const KeyLen = 32

var ErrInvalidKey = errors.New("confidential: invalid public key")

// PublicKey x-only 公钥，既用作收款地址 (ivk*G) 也用作花费验证密钥 rk
type PublicKey [KeyLen]byte

func (p PublicKey) String() string {
	return hex.EncodeToString(p[:])
}

// ParsePublicKey 校验字节确实是曲线上的点
func ParsePublicKey(b []byte) (PublicKey, error) {
	var out PublicKey
	if len(b) != KeyLen {
		return out, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidKey, KeyLen, len(b))
	}
	if _, err := schnorr.ParsePubKey(b); err != nil {
		return out, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	copy(out[:], b)
	return out, nil
}

// point 按偶数 y 坐标还原曲线点
func (p PublicKey) point() (point, error) {
	var out point
	pub, err := schnorr.ParsePubKey(p[:])
	if err != nil {
		return out, ErrInvalidKey
	}
	pub.AsJacobian(&out)
	return out, nil
}

// SchnorrKey 返回用于验签的公钥
func (p PublicKey) SchnorrKey() (*btcec.PublicKey, error) {
	pub, err := schnorr.ParsePubKey(p[:])
	if err != nil {
		return nil, ErrInvalidKey
	}
	return pub, nil
}

// SpendingKey 花费密钥，从账户 seed 按固定路径派生
type SpendingKey struct {
	priv *btcec.PrivateKey
}

// SpendingKeyFromSeed 从 BIP-39 seed 派生
func SpendingKeyFromSeed(seed []byte) (*SpendingKey, error) {
	priv, err := hdkey.SpendKey(seed)
	if err != nil {
		return nil, fmt.Errorf("derive spending key: %w", err)
	}
	return &SpendingKey{priv: priv}, nil
}

// ViewingKey 返回对应的 incoming viewing key
func (k *SpendingKey) ViewingKey() ViewingKey {
	skBytes := k.priv.Key.Bytes()
	return newViewingKey(hashToScalar("zerochain/ivk", skBytes[:]))
}

// Address 收款地址 ivk*G
func (k *SpendingKey) Address() PublicKey {
	return k.ViewingKey().Address()
}

func (k *SpendingKey) scalar() secp256k1.ModNScalar {
	return k.priv.Key
}

// ViewingKey 解密余额用的标量，保证 ivk*G 的 y 坐标为偶数
type ViewingKey struct {
	s secp256k1.ModNScalar
}

func newViewingKey(s secp256k1.ModNScalar) ViewingKey {
	p := baseMul(&s)
	p.ToAffine()
	if p.Y.IsOdd() {
		s.Negate()
	}
	return ViewingKey{s: s}
}

// ViewingKeyFromBytes 从 32 字节还原
func ViewingKeyFromBytes(b []byte) (ViewingKey, error) {
	if len(b) != 32 {
		return ViewingKey{}, fmt.Errorf("confidential: viewing key must be 32 bytes, got %d", len(b))
	}
	var s secp256k1.ModNScalar
	if overflow := s.SetByteSlice(b); overflow || s.IsZero() {
		return ViewingKey{}, errors.New("confidential: viewing key out of range")
	}
	return newViewingKey(s), nil
}

func (v ViewingKey) Bytes() [32]byte {
	return v.s.Bytes()
}

func (v ViewingKey) Address() PublicKey {
	p := baseMul(&v.s)
	p.ToAffine()
	var out PublicKey
	p.X.PutBytesUnchecked(out[:])
	return out
}
