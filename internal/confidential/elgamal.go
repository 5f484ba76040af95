package confidential

import (
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// CiphertextLen left || right，两个压缩点
const CiphertextLen = 2 * PointLen

var ErrInvalidCiphertext = errors.New("confidential: invalid ciphertext")

// Ciphertext 指数 ElGamal 密文。
// left = m*G + r*P, right = r*G，可以同态相加减。
type Ciphertext struct {
	left  point
	right point
}

// ZeroCiphertext 对 0 的平凡加密，新账户的初始余额
func ZeroCiphertext() Ciphertext {
	return Ciphertext{}
}

// Encrypt 用收款方地址加密金额
func Encrypt(amount uint64, to PublicKey, r *secp256k1.ModNScalar) (Ciphertext, error) {
	pk, err := to.point()
	if err != nil {
		return Ciphertext{}, err
	}
	m := amountScalar(amount)
	mG := baseMul(&m)
	rP := mul(r, &pk)
	return Ciphertext{
		left:  add(&mG, &rP),
		right: baseMul(r),
	}, nil
}

// ParseCiphertext 从 66 字节解析
func ParseCiphertext(b []byte) (Ciphertext, error) {
	if len(b) != CiphertextLen {
		return Ciphertext{}, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidCiphertext, CiphertextLen, len(b))
	}
	left, err := decodePoint(b[:PointLen])
	if err != nil {
		return Ciphertext{}, fmt.Errorf("%w: left", ErrInvalidCiphertext)
	}
	right, err := decodePoint(b[PointLen:])
	if err != nil {
		return Ciphertext{}, fmt.Errorf("%w: right", ErrInvalidCiphertext)
	}
	return Ciphertext{left: left, right: right}, nil
}

func (c Ciphertext) Bytes() []byte {
	out := make([]byte, 0, CiphertextLen)
	l := encodePoint(&c.left)
	r := encodePoint(&c.right)
	out = append(out, l[:]...)
	return append(out, r[:]...)
}

// Add 同态加
func (c Ciphertext) Add(o Ciphertext) Ciphertext {
	return Ciphertext{left: add(&c.left, &o.left), right: add(&c.right, &o.right)}
}

// Sub 同态减
func (c Ciphertext) Sub(o Ciphertext) Ciphertext {
	return Ciphertext{left: sub(&c.left, &o.left), right: sub(&c.right, &o.right)}
}

// Equal 按编码比较
func (c Ciphertext) Equal(o Ciphertext) bool {
	return encodePoint(&c.left) == encodePoint(&o.left) && encodePoint(&c.right) == encodePoint(&o.right)
}

// messagePoint 用 ivk 去掉随机项得到 m*G
func (c Ciphertext) messagePoint(ivk ViewingKey) point {
	shared := mul(&ivk.s, &c.right)
	return sub(&c.left, &shared)
}
