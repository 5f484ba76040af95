package confidential

import "fmt"

// Engine 对外的加密例程: 派生签名密钥、构造转账证明、解密余额
type Engine struct {
	decryptor *Decryptor
}

func NewEngine(d *Decryptor) *Engine {
	return &Engine{decryptor: d}
}

func (e *Engine) DeriveSigningKey(seed []byte) (*SpendingKey, error) {
	return SpendingKeyFromSeed(seed)
}

func (e *Engine) BuildTransfer(req TransferRequest) (*TransferProof, error) {
	return BuildTransfer(req)
}

// DecryptBalance 解密链上查询到的加密余额
func (e *Engine) DecryptBalance(encrypted []byte, ivk ViewingKey) (uint64, error) {
	ct, err := ParseCiphertext(encrypted)
	if err != nil {
		return 0, err
	}
	amount, err := e.decryptor.Decrypt(ct, ivk)
	if err != nil {
		return 0, fmt.Errorf("decrypt balance: %w", err)
	}
	return amount, nil
}
