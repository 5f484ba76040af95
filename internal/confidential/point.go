package confidential

import (
	"encoding/binary"
	"errors"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"lukechampine.com/blake3"
)

// PointLen 压缩点长度，无穷远点编码为全零
const PointLen = 33

var errInvalidPoint = errors.New("confidential: invalid curve point")

type point = secp256k1.JacobianPoint

func isInfinity(p *point) bool {
	x, y, z := p.X, p.Y, p.Z
	x.Normalize()
	y.Normalize()
	z.Normalize()
	return z.IsZero() || (x.IsZero() && y.IsZero())
}

func baseMul(k *secp256k1.ModNScalar) point {
	var out point
	secp256k1.ScalarBaseMultNonConst(k, &out)
	return out
}

func mul(k *secp256k1.ModNScalar, p *point) point {
	var out point
	if isInfinity(p) || k.IsZero() {
		return out
	}
	secp256k1.ScalarMultNonConst(k, p, &out)
	return out
}

func add(a, b *point) point {
	var out point
	switch {
	case isInfinity(a):
		out.Set(b)
	case isInfinity(b):
		out.Set(a)
	default:
		secp256k1.AddNonConst(a, b, &out)
	}
	return out
}

func neg(p *point) point {
	var out point
	if isInfinity(p) {
		return out
	}
	out.Set(p)
	out.ToAffine()
	out.Y.Negate(1).Normalize()
	return out
}

func sub(a, b *point) point {
	nb := neg(b)
	return add(a, &nb)
}

func encodePoint(p *point) [PointLen]byte {
	var out [PointLen]byte
	if isInfinity(p) {
		return out
	}
	affine := *p
	affine.ToAffine()
	copy(out[:], secp256k1.NewPublicKey(&affine.X, &affine.Y).SerializeCompressed())
	return out
}

func decodePoint(b []byte) (point, error) {
	var out point
	if len(b) != PointLen {
		return out, errInvalidPoint
	}
	if isZeroBytes(b) {
		return out, nil
	}
	pub, err := secp256k1.ParsePubKey(b)
	if err != nil {
		return out, errInvalidPoint
	}
	pub.AsJacobian(&out)
	return out, nil
}

func isZeroBytes(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

// amountScalar 把 uint64 金额转为标量 (大端)
func amountScalar(amount uint64) secp256k1.ModNScalar {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], amount)
	var s secp256k1.ModNScalar
	s.SetByteSlice(buf[:])
	return s
}

// hashToScalar 用 blake3 对带域名的输入做哈希并约减到标量域，结果不为零
func hashToScalar(domain string, parts ...[]byte) secp256k1.ModNScalar {
	sum := transcriptHash(domain, parts...)
	var s secp256k1.ModNScalar
	s.SetByteSlice(sum[:])
	if s.IsZero() {
		s.SetInt(1)
	}
	return s
}

func transcriptHash(domain string, parts ...[]byte) [32]byte {
	h := blake3.New(32, nil)
	_, _ = h.Write([]byte(domain))
	for _, p := range parts {
		var n [8]byte
		binary.LittleEndian.PutUint64(n[:], uint64(len(p)))
		_, _ = h.Write(n[:])
		_, _ = h.Write(p)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
