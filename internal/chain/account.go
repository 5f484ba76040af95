package chain

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/base58"

	"github.com/zakimal/zero-chain-ui/internal/confidential"
)

// addressVersion base58check 地址的版本字节
const addressVersion byte = 0x2a

var ErrInvalidAddress = errors.New("chain: invalid address")

// AccountID 账户标识，即 x-only 的收款公钥 (PkdAddress)
type AccountID [confidential.KeyLen]byte

// AccountFromKey 由收款公钥得到账户
func AccountFromKey(k confidential.PublicKey) AccountID {
	return AccountID(k)
}

func (a AccountID) Key() confidential.PublicKey {
	return confidential.PublicKey(a)
}

// String base58check 文本形式
func (a AccountID) String() string {
	return base58.CheckEncode(a[:], addressVersion)
}

// ParseAccountID 解析文本地址并校验公钥在曲线上
func ParseAccountID(s string) (AccountID, error) {
	var out AccountID
	payload, version, err := base58.CheckDecode(s)
	if err != nil {
		return out, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if version != addressVersion {
		return out, fmt.Errorf("%w: unexpected version %d", ErrInvalidAddress, version)
	}
	key, err := confidential.ParsePublicKey(payload)
	if err != nil {
		return out, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	return AccountID(key), nil
}

func (a AccountID) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *AccountID) UnmarshalText(text []byte) error {
	id, err := ParseAccountID(string(text))
	if err != nil {
		return err
	}
	*a = id
	return nil
}
