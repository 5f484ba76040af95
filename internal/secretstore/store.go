// Package secretstore 保存用户的 seed phrase。
//
// 每个账户的 phrase 用 scrypt + AES-256-GCM 单独加密 (pkg/keystore)，
// 所有账户写在同一个 JSON 文件里。打开时用密码解密到内存，之后派生密钥不再需要密码。
package secretstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/zakimal/zero-chain-ui/internal/chain"
	"github.com/zakimal/zero-chain-ui/internal/confidential"
	"github.com/zakimal/zero-chain-ui/pkg/bip39"
	"github.com/zakimal/zero-chain-ui/pkg/keystore"
	"github.com/zakimal/zero-chain-ui/pkg/logger"
)

var (
	ErrEmptySeed      = errors.New("secretstore: seed phrase is empty")
	ErrEmptyName      = errors.New("secretstore: name is empty")
	ErrNameTaken      = errors.New("secretstore: name already in use")
	ErrAlreadyStored  = errors.New("secretstore: account already stored")
	ErrNotFound       = errors.New("secretstore: account not found")
	ErrWrongPassword  = errors.New("secretstore: wrong password")
	ErrPasswordNeeded = errors.New("secretstore: password required to persist keys")
)

const fileVersion = 1

// Account 对外可见的账户信息，不含任何密钥材料
type Account struct {
	Name      string          `json:"name"`
	Address   chain.AccountID `json:"address"`
	CreatedAt time.Time       `json:"created_at"`
}

type record struct {
	Account
	Keystore *keystore.EncryptedKeyJSON `json:"keystore"`
}

type fileFormat struct {
	Version  int      `json:"version"`
	Accounts []record `json:"accounts"`
}

type unlocked struct {
	record *record
	seed   []byte
}

// Store 账户仓库，并发安全
type Store struct {
	path     string
	password string
	params   keystore.Params
	mnemonic *bip39.MnemonicService
	log      *zap.Logger

	mu     sync.RWMutex
	byName map[string]*unlocked
	byAddr map[chain.AccountID]*unlocked
}

// Open 打开 (或新建) path 处的仓库。path 为空时只保存在内存里。
func Open(path, password string, params keystore.Params) (*Store, error) {
	s := &Store{
		path:     path,
		password: password,
		params:   params,
		mnemonic: bip39.NewMnemonicService(),
		log:      logger.Named("secretstore"),
		byName:   make(map[string]*unlocked),
		byAddr:   make(map[chain.AccountID]*unlocked),
	}
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("secretstore: read %s: %w", path, err)
	}
	var file fileFormat
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("secretstore: parse %s: %w", path, err)
	}
	for i := range file.Accounts {
		rec := file.Accounts[i]
		phrase, err := keystore.DecryptMnemonic(rec.Keystore, password)
		if err != nil {
			if errors.Is(err, keystore.ErrMACMismatch) {
				return nil, ErrWrongPassword
			}
			return nil, fmt.Errorf("secretstore: decrypt %q: %w", rec.Name, err)
		}
		u := &unlocked{record: &rec, seed: s.mnemonic.MnemonicToSeed(phrase, "")}
		s.byName[rec.Name] = u
		s.byAddr[rec.Address] = u
	}
	s.log.Info("keystore opened", zap.String("path", path), zap.Int("accounts", len(s.byName)))
	return s, nil
}

// GenerateMnemonic 生成一个新的 24 词助记词
func (s *Store) GenerateMnemonic() (string, error) {
	return s.mnemonic.GenerateMnemonic(bip39.DefaultBitSize)
}

// AccountFromPhrase 只做派生，不保存
func (s *Store) AccountFromPhrase(phrase string) (chain.AccountID, error) {
	sk, err := s.spendingKeyFromPhrase(phrase)
	if err != nil {
		return chain.AccountID{}, err
	}
	return chain.AccountFromKey(sk.Address()), nil
}

func (s *Store) spendingKeyFromPhrase(phrase string) (*confidential.SpendingKey, error) {
	phrase = bip39.Normalize(phrase)
	if phrase == "" {
		return nil, ErrEmptySeed
	}
	return confidential.SpendingKeyFromSeed(s.mnemonic.MnemonicToSeed(phrase, ""))
}

// Submit 保存 phrase，name 必须唯一
func (s *Store) Submit(phrase, name string) (*Account, error) {
	name = strings.TrimSpace(name)
	phrase = bip39.Normalize(phrase)
	if phrase == "" {
		return nil, ErrEmptySeed
	}
	if name == "" {
		return nil, ErrEmptyName
	}
	sk, err := s.spendingKeyFromPhrase(phrase)
	if err != nil {
		return nil, err
	}
	id := chain.AccountFromKey(sk.Address())

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byName[name]; ok {
		return nil, ErrNameTaken
	}
	if _, ok := s.byAddr[id]; ok {
		return nil, ErrAlreadyStored
	}

	rec := &record{Account: Account{Name: name, Address: id, CreatedAt: time.Now().UTC()}}
	if s.path != "" {
		if s.password == "" {
			return nil, ErrPasswordNeeded
		}
		enc, err := keystore.Encrypt([]byte(phrase), s.password, s.params)
		if err != nil {
			return nil, fmt.Errorf("secretstore: encrypt: %w", err)
		}
		rec.Keystore = enc
	}

	u := &unlocked{record: rec, seed: s.mnemonic.MnemonicToSeed(phrase, "")}
	s.byName[name] = u
	s.byAddr[id] = u
	if err := s.saveLocked(); err != nil {
		delete(s.byName, name)
		delete(s.byAddr, id)
		return nil, err
	}
	s.log.Info("account stored", zap.String("name", name), zap.Stringer("address", id))
	out := rec.Account
	return &out, nil
}

func (s *Store) ByName(name string) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byName[name]
	if !ok {
		return nil, ErrNotFound
	}
	out := u.record.Account
	return &out, nil
}

func (s *Store) ByAddress(id chain.AccountID) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byAddr[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := u.record.Account
	return &out, nil
}

// Accounts 按名字排序
func (s *Store) Accounts() []Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Account, 0, len(s.byName))
	for _, u := range s.byName {
		out = append(out, u.record.Account)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Store) Forget(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byName[name]
	if !ok {
		return ErrNotFound
	}
	delete(s.byName, name)
	delete(s.byAddr, u.record.Address)
	if err := s.saveLocked(); err != nil {
		s.byName[name] = u
		s.byAddr[u.record.Address] = u
		return err
	}
	s.log.Info("account forgotten", zap.String("name", name))
	return nil
}

// SeedFromAccount 返回账户的 BIP-39 seed
func (s *Store) SeedFromAccount(id chain.AccountID) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byAddr[id]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), u.seed...), nil
}

// IVK 返回账户的查看密钥，用于解密余额
func (s *Store) IVK(id chain.AccountID) (confidential.ViewingKey, error) {
	seed, err := s.SeedFromAccount(id)
	if err != nil {
		return confidential.ViewingKey{}, err
	}
	sk, err := confidential.SpendingKeyFromSeed(seed)
	if err != nil {
		return confidential.ViewingKey{}, err
	}
	return sk.ViewingKey(), nil
}

func (s *Store) saveLocked() error {
	if s.path == "" {
		return nil
	}
	file := fileFormat{Version: fileVersion, Accounts: make([]record, 0, len(s.byName))}
	for _, u := range s.byName {
		file.Accounts = append(file.Accounts, *u.record)
	}
	sort.Slice(file.Accounts, func(i, j int) bool { return file.Accounts[i].Name < file.Accounts[j].Name })

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("secretstore: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("secretstore: write: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("secretstore: write: %w", err)
	}
	return nil
}
