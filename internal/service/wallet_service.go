package service

import (
	"errors"
	"fmt"

	"github.com/zakimal/zero-chain-ui/internal/chain"
	"github.com/zakimal/zero-chain-ui/internal/secretstore"
)

// WalletService 本地保存的账户 (seed phrase)
type WalletService struct {
	store *secretstore.Store
}

func NewWalletService(store *secretstore.Store) *WalletService {
	return &WalletService{store: store}
}

// Store 底层存储，交给 CallBuilder 取 seed
func (s *WalletService) Store() *secretstore.Store {
	return s.store
}

// Generate 生成新的助记词以及它对应的地址，不保存
func (s *WalletService) Generate() (string, chain.AccountID, error) {
	phrase, err := s.store.GenerateMnemonic()
	if err != nil {
		return "", chain.AccountID{}, err
	}
	id, err := s.store.AccountFromPhrase(phrase)
	if err != nil {
		return "", chain.AccountID{}, err
	}
	return phrase, id, nil
}

// Derive 只计算 phrase 对应的地址
func (s *WalletService) Derive(phrase string) (chain.AccountID, error) {
	return s.store.AccountFromPhrase(phrase)
}

func (s *WalletService) Import(phrase, name string) (*secretstore.Account, error) {
	return s.store.Submit(phrase, name)
}

func (s *WalletService) List() []secretstore.Account {
	return s.store.Accounts()
}

func (s *WalletService) Forget(name string) error {
	return s.store.Forget(name)
}

// Resolve 接受账户名或地址，返回本地持有密钥的账户
func (s *WalletService) Resolve(nameOrAddress string) (chain.AccountID, error) {
	if acc, err := s.store.ByName(nameOrAddress); err == nil {
		return acc.Address, nil
	}
	id, err := chain.ParseAccountID(nameOrAddress)
	if err != nil {
		return chain.AccountID{}, fmt.Errorf("%w: %q", ErrUnknownSender, nameOrAddress)
	}
	if _, err := s.store.ByAddress(id); err != nil {
		if errors.Is(err, secretstore.ErrNotFound) {
			return chain.AccountID{}, fmt.Errorf("%w: %s", ErrUnknownSender, id)
		}
		return chain.AccountID{}, err
	}
	return id, nil
}
