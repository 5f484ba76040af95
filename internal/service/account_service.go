package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"github.com/zakimal/zero-chain-ui/internal/chain"
	"github.com/zakimal/zero-chain-ui/internal/confidential"
	"github.com/zakimal/zero-chain-ui/internal/secretstore"
	"github.com/zakimal/zero-chain-ui/pkg/cache"
	"github.com/zakimal/zero-chain-ui/pkg/logger"
	"github.com/zakimal/zero-chain-ui/pkg/reactive"
)

// DefaultLookupTTL 账户查询结果的缓存时间，大约一个出块间隔
const DefaultLookupTTL = 5 * time.Second

// ViewingKeys 按账户取查看密钥
type ViewingKeys interface {
	IVK(id chain.AccountID) (confidential.ViewingKey, error)
}

type BalanceDecrypter interface {
	DecryptBalance(encrypted []byte, ivk confidential.ViewingKey) (uint64, error)
}

// AccountInfo 账户查询结果。DecryptedBalance 只在本地持有密钥时存在。
type AccountInfo struct {
	Address          chain.AccountID `json:"address"`
	Balance          uint64          `json:"balance"`
	Nonce            uint64          `json:"nonce"`
	EncryptedBalance hexutil.Bytes   `json:"encrypted_balance"`
	DecryptedBalance *uint64         `json:"decrypted_balance,omitempty"`
}

type AccountService struct {
	client  chain.Client
	keys    ViewingKeys
	decrypt BalanceDecrypter
	cache   cache.Cache
	ttl     time.Duration
	log     *zap.Logger
}

func NewAccountService(client chain.Client, keys ViewingKeys, decrypt BalanceDecrypter, c cache.Cache, ttl time.Duration) *AccountService {
	if ttl <= 0 {
		ttl = DefaultLookupTTL
	}
	return &AccountService{
		client:  client,
		keys:    keys,
		decrypt: decrypt,
		cache:   c,
		ttl:     ttl,
		log:     logger.Named("accounts"),
	}
}

func cacheKey(id chain.AccountID) string {
	return "account:" + id.String()
}

// Lookup 查询余额、nonce 与加密余额
func (s *AccountService) Lookup(ctx context.Context, address string) (*AccountInfo, error) {
	id, err := chain.ParseAccountID(address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}

	info, err := cache.Fetch(ctx, s.cache, cacheKey(id), s.ttl, func(ctx context.Context) (AccountInfo, error) {
		return s.load(ctx, id)
	}, func(err error) {
		s.log.Warn("cache account failed", zap.Stringer("address", id), zap.Error(err))
	})
	if err != nil {
		return nil, err
	}
	return &info, nil
}

func (s *AccountService) load(ctx context.Context, id chain.AccountID) (AccountInfo, error) {
	var err error
	info := AccountInfo{Address: id}
	if info.Balance, err = s.client.Balance(ctx, id); err != nil {
		return info, err
	}
	if info.Nonce, err = s.client.AccountNonce(ctx, id); err != nil {
		return info, err
	}
	if info.EncryptedBalance, err = s.client.EncryptedBalance(ctx, id); err != nil {
		return info, err
	}
	if ivk, err := s.keys.IVK(id); err == nil {
		v, err := s.decrypt.DecryptBalance(info.EncryptedBalance, ivk)
		if err != nil {
			s.log.Warn("decrypt balance failed", zap.Stringer("address", id), zap.Error(err))
		} else {
			info.DecryptedBalance = &v
		}
	}
	return info, nil
}

// Invalidate 转账结束后清掉双方的缓存
func (s *AccountService) Invalidate(ctx context.Context, ids ...chain.AccountID) {
	if s.cache == nil {
		return
	}
	for _, id := range ids {
		_ = s.cache.Delete(ctx, cacheKey(id))
	}
}

// DecryptedBalance 异步解密 id 的链上余额。
// 成功时 Cell 被 Set；失败时 Cell 被关闭，错误写入返回的 channel (成功写入 nil)。
func (s *AccountService) DecryptedBalance(ctx context.Context, id chain.AccountID) (*reactive.Cell[uint64], <-chan error) {
	cell := reactive.New[uint64]()
	errc := make(chan error, 1)
	go func() {
		v, err := s.decryptedBalance(ctx, id)
		if err != nil {
			cell.Close()
			errc <- err
			return
		}
		cell.Set(v)
		errc <- nil
	}()
	return cell, errc
}

func (s *AccountService) decryptedBalance(ctx context.Context, id chain.AccountID) (uint64, error) {
	ivk, err := s.keys.IVK(id)
	if errors.Is(err, secretstore.ErrNotFound) {
		return 0, fmt.Errorf("%w: %s", ErrUnknownSender, id)
	}
	if err != nil {
		return 0, err
	}
	enc, err := s.client.EncryptedBalance(ctx, id)
	if err != nil {
		return 0, err
	}
	return s.decrypt.DecryptBalance(enc, ivk)
}
