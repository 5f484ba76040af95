package confidential

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"lukechampine.com/blake3"
)

const (
	// MinProvingKeyLen 小于这个长度的 proving key 一定是截断的文件
	MinProvingKeyLen = 32
	// ProofLen schnorr 签名 (64) || H(provingKey) (32) || H(verifyingKey) (32)
	ProofLen = schnorr.SignatureSize + 32 + 32
)

var (
	ErrProvingKeyTooShort  = errors.New("confidential: proving key too short")
	ErrVerifyingKeyMissing = errors.New("confidential: verifying key missing")
	ErrInsufficientBalance = errors.New("confidential: amount exceeds balance")
	ErrInvalidRecipient    = errors.New("confidential: invalid recipient address")
	ErrInvalidProof        = errors.New("confidential: invalid proof")
)

// TransferRequest 构造一笔机密转账需要的全部输入
type TransferRequest struct {
	SpendingKey  *SpendingKey
	Recipient    PublicKey
	Amount       uint64
	Balance      uint64 // 发送方解密后的余额
	ProvingKey   []byte
	VerifyingKey []byte
	Seed         [8]uint32 // 本次转账的随机种子
}

// TransferProof 证明以及 call 需要的全部字段
type TransferProof struct {
	Proof              []byte
	SenderAddress      PublicKey
	RecipientAddress   PublicKey
	EncAmountSender    Ciphertext
	EncAmountRecipient Ciphertext
	EncBalanceSender   Ciphertext
	Rk                 PublicKey
	Rsk                *btcec.PrivateKey
}

// Statement 证明覆盖的公开字段
type Statement struct {
	SenderAddress      PublicKey
	RecipientAddress   PublicKey
	EncAmountSender    Ciphertext
	EncAmountRecipient Ciphertext
	EncBalanceSender   Ciphertext
	Rk                 PublicKey
}

func (p *TransferProof) Statement() Statement {
	return Statement{
		SenderAddress:      p.SenderAddress,
		RecipientAddress:   p.RecipientAddress,
		EncAmountSender:    p.EncAmountSender,
		EncAmountRecipient: p.EncAmountRecipient,
		EncBalanceSender:   p.EncBalanceSender,
		Rk:                 p.Rk,
	}
}

func (s Statement) digest(pkHash, vkHash []byte) [32]byte {
	return transcriptHash("zerochain/transfer/v1",
		s.SenderAddress[:],
		s.RecipientAddress[:],
		s.EncAmountSender.Bytes(),
		s.EncAmountRecipient.Bytes(),
		s.EncBalanceSender.Bytes(),
		s.Rk[:],
		pkHash,
		vkHash,
	)
}

// BuildTransfer 生成证明与密文。
// 随机数 r 与重随机化因子 alpha 都由 Seed 派生，同样的输入得到同样的输出。
func BuildTransfer(req TransferRequest) (*TransferProof, error) {
	if req.SpendingKey == nil {
		return nil, errors.New("confidential: spending key missing")
	}
	if len(req.ProvingKey) < MinProvingKeyLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrProvingKeyTooShort, len(req.ProvingKey))
	}
	if len(req.VerifyingKey) == 0 {
		return nil, ErrVerifyingKeyMissing
	}
	if req.Amount > req.Balance {
		return nil, fmt.Errorf("%w: amount %d, balance %d", ErrInsufficientBalance, req.Amount, req.Balance)
	}
	if _, err := req.Recipient.point(); err != nil {
		return nil, ErrInvalidRecipient
	}

	seed := seedBytes(req.Seed)
	r := hashToScalar("zerochain/transfer/r", seed)
	alpha := hashToScalar("zerochain/transfer/alpha", seed)

	sender := req.SpendingKey.Address()
	encSender, err := Encrypt(req.Amount, sender, &r)
	if err != nil {
		return nil, err
	}
	encRecipient, err := Encrypt(req.Amount, req.Recipient, &r)
	if err != nil {
		return nil, ErrInvalidRecipient
	}
	encBalance, err := Encrypt(req.Balance, sender, &r)
	if err != nil {
		return nil, err
	}

	// rsk = sk + alpha, rk = rsk*G
	var rskScalar secp256k1.ModNScalar
	sk := req.SpendingKey.scalar()
	rskScalar.Add2(&sk, &alpha)
	if rskScalar.IsZero() {
		return nil, errors.New("confidential: degenerate randomness, retry with a new seed")
	}
	rskBytes := rskScalar.Bytes()
	rsk, _ := btcec.PrivKeyFromBytes(rskBytes[:])

	var rk PublicKey
	copy(rk[:], schnorr.SerializePubKey(rsk.PubKey()))

	out := &TransferProof{
		SenderAddress:      sender,
		RecipientAddress:   req.Recipient,
		EncAmountSender:    encSender,
		EncAmountRecipient: encRecipient,
		EncBalanceSender:   encBalance,
		Rk:                 rk,
		Rsk:                rsk,
	}

	pkHash := blake3.Sum256(req.ProvingKey)
	vkHash := blake3.Sum256(req.VerifyingKey)
	digest := out.Statement().digest(pkHash[:], vkHash[:])
	sig, err := schnorr.Sign(rsk, digest[:])
	if err != nil {
		return nil, fmt.Errorf("confidential: sign proof: %w", err)
	}

	proof := make([]byte, 0, ProofLen)
	proof = append(proof, sig.Serialize()...)
	proof = append(proof, pkHash[:]...)
	out.Proof = append(proof, vkHash[:]...)
	return out, nil
}

// VerifyTransfer 校验证明。verifyingKey 为空时只校验签名。
func VerifyTransfer(proof []byte, verifyingKey []byte, st Statement) error {
	if len(proof) != ProofLen {
		return fmt.Errorf("%w: length %d", ErrInvalidProof, len(proof))
	}
	sigBytes := proof[:schnorr.SignatureSize]
	pkHash := proof[schnorr.SignatureSize : schnorr.SignatureSize+32]
	vkHash := proof[schnorr.SignatureSize+32:]

	if len(verifyingKey) > 0 {
		expected := blake3.Sum256(verifyingKey)
		if string(expected[:]) != string(vkHash) {
			return fmt.Errorf("%w: verifying key mismatch", ErrInvalidProof)
		}
	}

	sig, err := schnorr.ParseSignature(sigBytes)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProof, err)
	}
	rk, err := st.Rk.SchnorrKey()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProof, err)
	}
	digest := st.digest(pkHash, vkHash)
	if !sig.Verify(digest[:], rk) {
		return fmt.Errorf("%w: signature mismatch", ErrInvalidProof)
	}
	return nil
}

func seedBytes(seed [8]uint32) []byte {
	out := make([]byte, 32)
	for i, w := range seed {
		binary.LittleEndian.PutUint32(out[i*4:], w)
	}
	return out
}
