package chain

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"lukechampine.com/blake3"

	"github.com/zakimal/zero-chain-ui/internal/codec"
	"github.com/zakimal/zero-chain-ui/internal/confidential"
)

var (
	ErrBadSignature    = errors.New("chain: bad extrinsic signature")
	ErrTrailingBytes   = errors.New("chain: trailing bytes after extrinsic")
	ErrInvalidSignerSk = errors.New("chain: signing key does not match signer")
)

// Extrinsic 已签名的交易: signer 是一次性的花费验证密钥 rk，
// signature 是 rsk 对 (call, nonce) 的 schnorr 签名
type Extrinsic struct {
	Signer    confidential.PublicKey
	Nonce     uint64
	Call      Call
	Signature []byte
}

func signingPayload(encodedCall []byte, nonce uint64) [32]byte {
	var n [8]byte
	binary.LittleEndian.PutUint64(n[:], nonce)
	h := blake3.New(32, nil)
	h.Write([]byte("zerochain/extrinsic"))
	h.Write(n[:])
	h.Write(encodedCall)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Sign 用 rsk 对 call 签名，rsk 的公钥必须与 signer 一致
func Sign(reg *codec.Registry, call Call, nonce uint64, signer confidential.PublicKey, rsk *btcec.PrivateKey) (*Extrinsic, error) {
	if rsk == nil {
		return nil, ErrInvalidSignerSk
	}
	var pub confidential.PublicKey
	copy(pub[:], schnorr.SerializePubKey(rsk.PubKey()))
	if pub != signer {
		return nil, ErrInvalidSignerSk
	}
	encoded, err := call.Encode(reg)
	if err != nil {
		return nil, err
	}
	payload := signingPayload(encoded, nonce)
	sig, err := schnorr.Sign(rsk, payload[:])
	if err != nil {
		return nil, fmt.Errorf("chain: sign extrinsic: %w", err)
	}
	return &Extrinsic{Signer: signer, Nonce: nonce, Call: call, Signature: sig.Serialize()}, nil
}

// Verify 校验签名
func (x *Extrinsic) Verify(reg *codec.Registry) error {
	encoded, err := x.Call.Encode(reg)
	if err != nil {
		return err
	}
	sig, err := schnorr.ParseSignature(x.Signature)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	pub, err := x.Signer.SchnorrKey()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	payload := signingPayload(encoded, x.Nonce)
	if !sig.Verify(payload[:], pub) {
		return ErrBadSignature
	}
	return nil
}

// Encode signer || nonce || call || signature
func (x *Extrinsic) Encode(reg *codec.Registry) ([]byte, error) {
	out, err := reg.Encode("SigVerificationKey", x.Signer[:])
	if err != nil {
		return nil, err
	}
	var n [8]byte
	binary.LittleEndian.PutUint64(n[:], x.Nonce)
	nonce, err := reg.Encode(codec.U64, n[:])
	if err != nil {
		return nil, err
	}
	out = append(out, nonce...)
	call, err := x.Call.Encode(reg)
	if err != nil {
		return nil, err
	}
	out = append(out, call...)
	sig, err := reg.Encode(codec.Bytes, x.Signature)
	if err != nil {
		return nil, err
	}
	return append(out, sig...), nil
}

// DecodeExtrinsic Encode 的逆操作，不做签名校验
func DecodeExtrinsic(reg *codec.Registry, data []byte) (*Extrinsic, error) {
	signer, used, err := reg.Decode("SigVerificationKey", data)
	if err != nil {
		return nil, err
	}
	nonce, n, err := reg.Decode(codec.U64, data[used:])
	if err != nil {
		return nil, err
	}
	used += n
	call, n, err := DecodeCall(reg, data[used:])
	if err != nil {
		return nil, err
	}
	used += n
	sig, n, err := reg.Decode(codec.Bytes, data[used:])
	if err != nil {
		return nil, err
	}
	used += n
	if used != len(data) {
		return nil, ErrTrailingBytes
	}
	x := &Extrinsic{Nonce: binary.LittleEndian.Uint64(nonce), Call: call, Signature: sig}
	copy(x.Signer[:], signer)
	return x, nil
}

// Hash 交易哈希，0x 前缀的十六进制
func (x *Extrinsic) Hash(reg *codec.Registry) (string, error) {
	encoded, err := x.Encode(reg)
	if err != nil {
		return "", err
	}
	sum := blake3.Sum256(encoded)
	return hexutil.Encode(sum[:]), nil
}
