// Package simnet 进程内的 zerochain 模拟节点，开发和测试时代替真实节点。
//
// 节点维护加密余额账本，校验交易签名和转账证明，按 BlockTime 出块，
// 交易在获得 FinalityDepth 个确认后视为最终确认。
package simnet

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"
	"lukechampine.com/blake3"

	"github.com/zakimal/zero-chain-ui/internal/chain"
	"github.com/zakimal/zero-chain-ui/internal/codec"
	"github.com/zakimal/zero-chain-ui/internal/confidential"
	"github.com/zakimal/zero-chain-ui/internal/status"
	"github.com/zakimal/zero-chain-ui/pkg/logger"
	"github.com/zakimal/zero-chain-ui/pkg/safe_random"
)

const DefaultFinalityDepth = 3

type Config struct {
	Name    string
	Version string
	Chain   string
	Runtime chain.RuntimeVersion

	// BlockTime 为 0 时不自动出块，由调用方 ProduceBlock
	BlockTime     time.Duration
	FinalityDepth int
	// VerifyingKey 为空时只校验证明签名
	VerifyingKey []byte
	Authorities  []string
	Peers        []string

	Registry *codec.Registry
	Logger   *zap.Logger
}

func (c *Config) defaults() {
	if c.Name == "" {
		c.Name = "zerochain-simnet"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
	if c.Chain == "" {
		c.Chain = "Development"
	}
	if c.Runtime.SpecName == "" {
		c.Runtime = chain.RuntimeVersion{SpecName: "zero-chain", SpecVersion: 1, ImplName: "zero-chain-simnet", ImplVersion: 1}
	}
	if c.FinalityDepth <= 0 {
		c.FinalityDepth = DefaultFinalityDepth
	}
	if len(c.Authorities) == 0 {
		c.Authorities = []string{"simnet-authority"}
	}
	if c.Registry == nil {
		c.Registry = codec.Default()
	}
	if c.Logger == nil {
		c.Logger = logger.Named("simnet")
	}
}

type account struct {
	balance   uint64
	nonce     uint64
	encrypted confidential.Ciphertext
}

type pending struct {
	hash   string
	xt     *chain.Extrinsic
	args   *chain.TransferArgs
	stream *chain.Stream
}

type included struct {
	*pending
	block  string
	height uint64
}

// Node 模拟节点，实现 chain.Client
type Node struct {
	cfg Config
	log *zap.Logger

	mu       sync.Mutex
	height   uint64
	accounts map[chain.AccountID]*account
	pool     []*pending
	future   []*pending
	watching []*included
	known    map[string]bool
	closed   bool

	stop chan struct{}
	wg   sync.WaitGroup
}

var _ chain.Client = (*Node)(nil)

func New(cfg Config) *Node {
	cfg.defaults()
	return &Node{
		cfg:      cfg,
		log:      cfg.Logger,
		accounts: make(map[chain.AccountID]*account),
		known:    make(map[string]bool),
		stop:     make(chan struct{}),
	}
}

// Start 按 BlockTime 自动出块
func (n *Node) Start() {
	if n.cfg.BlockTime <= 0 {
		return
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ticker := time.NewTicker(n.cfg.BlockTime)
		defer ticker.Stop()
		for {
			select {
			case <-n.stop:
				return
			case <-ticker.C:
				n.ProduceBlock()
			}
		}
	}()
	n.log.Info("simnet block production started", zap.Duration("block_time", n.cfg.BlockTime))
}

func (n *Node) Registry() *codec.Registry {
	return n.cfg.Registry
}

func (n *Node) accountLocked(id chain.AccountID) *account {
	acc, ok := n.accounts[id]
	if !ok {
		acc = &account{encrypted: confidential.ZeroCiphertext()}
		n.accounts[id] = acc
	}
	return acc
}

// Endow 给账户发放明文余额和机密余额 (创世或水龙头)
func (n *Node) Endow(id chain.AccountID, balance, confidentialAmount uint64) error {
	b, err := safe_random.GenerateRandomBytes(32)
	if err != nil {
		return err
	}
	var r secp256k1.ModNScalar
	r.SetByteSlice(b)
	ct, err := confidential.Encrypt(confidentialAmount, id.Key(), &r)
	if err != nil {
		return err
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	acc := n.accountLocked(id)
	acc.balance += balance
	acc.encrypted = acc.encrypted.Add(ct)
	n.log.Info("account endowed", zap.Stringer("account", id), zap.Uint64("balance", balance), zap.Uint64("confidential", confidentialAmount))
	return nil
}

func (n *Node) Height() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.height
}

func (n *Node) Submit(ctx context.Context, xt *chain.Extrinsic) (chain.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hash, err := xt.Hash(n.cfg.Registry)
	if err != nil {
		return nil, err
	}
	stream := chain.NewStream(nil)
	p := &pending{hash: hash, xt: xt, stream: stream}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return nil, chain.ErrClosed
	}
	if reason := n.validateLocked(p); reason != "" {
		n.log.Warn("extrinsic rejected", zap.String("hash", hash), zap.String("reason", reason))
		stream.Push(status.NewFailed(reason))
		return stream, nil
	}
	n.known[hash] = true

	expected := n.poolNonceLocked(p.args.Sender)
	switch {
	case xt.Nonce < expected:
		stream.Push(status.NewFailed("invalid: stale nonce"))
	case xt.Nonce > expected:
		stream.Push(status.NewUnknown("future"))
		n.future = append(n.future, p)
	default:
		n.readyLocked(p)
	}
	n.log.Debug("extrinsic submitted", zap.String("hash", hash), zap.Uint64("nonce", xt.Nonce))
	return stream, nil
}

// validateLocked 返回拒绝原因，空串表示通过
func (n *Node) validateLocked(p *pending) string {
	if n.known[p.hash] {
		return "invalid: already imported"
	}
	if err := p.xt.Verify(n.cfg.Registry); err != nil {
		return "invalid: bad signature"
	}
	args, err := chain.ParseConfidentialTransfer(p.xt.Call)
	if err != nil {
		return "invalid: malformed call"
	}
	if args.Statement.Rk != p.xt.Signer {
		return "invalid: signer does not match rk"
	}
	if err := confidential.VerifyTransfer(args.Proof, n.cfg.VerifyingKey, args.Statement); err != nil {
		return "invalid: bad proof"
	}
	p.args = args
	return ""
}

func (n *Node) readyLocked(p *pending) {
	n.pool = append(n.pool, p)
	p.stream.Push(status.NewReady())
	if len(n.cfg.Peers) > 0 {
		p.stream.Push(status.NewBroadcast(n.cfg.Peers...))
	}
}

// poolNonceLocked 链上 nonce 加上交易池中同一发送方的交易数
func (n *Node) poolNonceLocked(id chain.AccountID) uint64 {
	nonce := n.accountLocked(id).nonce
	for _, p := range n.pool {
		if p.args.Sender == id {
			nonce++
		}
	}
	return nonce
}

// ProduceBlock 打包交易池中的全部交易并推进确认数，返回区块哈希
func (n *Node) ProduceBlock() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return ""
	}

	n.height++
	h := blake3.New(32, nil)
	var height [8]byte
	binary.LittleEndian.PutUint64(height[:], n.height)
	h.Write(height[:])
	for _, p := range n.pool {
		h.Write([]byte(p.hash))
	}
	block := hexutil.Encode(h.Sum(nil))

	// 之前打包的交易先增加确认数
	watching := n.watching[:0]
	for _, inc := range n.watching {
		confirmations := int(n.height-inc.height) + 1
		if confirmations >= n.cfg.FinalityDepth {
			inc.stream.Push(status.NewFinalised(inc.block))
			continue
		}
		inc.stream.Push(status.NewInBlock(inc.block, confirmations))
		watching = append(watching, inc)
	}
	n.watching = watching

	for _, p := range n.pool {
		n.applyLocked(p.args)
		inc := &included{pending: p, block: block, height: n.height}
		if n.cfg.FinalityDepth <= 1 {
			p.stream.Push(status.NewFinalised(block))
			continue
		}
		p.stream.Push(status.NewInBlock(block, 1))
		n.watching = append(n.watching, inc)
	}
	count := len(n.pool)
	n.pool = nil
	n.promoteLocked()

	n.log.Debug("block produced", zap.Uint64("height", n.height), zap.String("hash", block), zap.Int("extrinsics", count))
	return block
}

// applyLocked 同态地更新双方的加密余额
func (n *Node) applyLocked(args *chain.TransferArgs) {
	sender := n.accountLocked(args.Sender)
	sender.encrypted = sender.encrypted.Sub(args.Statement.EncAmountSender)
	sender.nonce++
	recipient := n.accountLocked(args.Recipient)
	recipient.encrypted = recipient.encrypted.Add(args.Statement.EncAmountRecipient)
}

// promoteLocked nonce 已经连续的 future 交易进入交易池
func (n *Node) promoteLocked() {
	for moved := true; moved; {
		moved = false
		rest := n.future[:0]
		for _, p := range n.future {
			if p.xt.Nonce == n.poolNonceLocked(p.args.Sender) {
				n.readyLocked(p)
				moved = true
				continue
			}
			rest = append(rest, p)
		}
		n.future = rest
	}
}

func (n *Node) Balance(ctx context.Context, id chain.AccountID) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.accountLocked(id).balance, nil
}

func (n *Node) AccountNonce(ctx context.Context, id chain.AccountID) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.poolNonceLocked(id), nil
}

func (n *Node) EncryptedBalance(ctx context.Context, id chain.AccountID) ([]byte, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.accountLocked(id).encrypted.Bytes(), nil
}

func (n *Node) SystemInfo(ctx context.Context) (*chain.SystemInfo, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return nil, chain.ErrClosed
	}
	return &chain.SystemInfo{
		Name:        n.cfg.Name,
		Version:     n.cfg.Version,
		Chain:       n.cfg.Chain,
		Runtime:     n.cfg.Runtime,
		Height:      n.height,
		Authorities: append([]string(nil), n.cfg.Authorities...),
	}, nil
}

// Close 停止出块。未打包的交易推送 dropped，等待确认的交易推送 finalityTimeout。
func (n *Node) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	for _, p := range append(n.pool, n.future...) {
		p.stream.Push(status.NewFailed("dropped"))
	}
	for _, inc := range n.watching {
		inc.stream.Push(status.NewFailed("finalityTimeout"))
	}
	n.pool, n.future, n.watching = nil, nil, nil
	n.mu.Unlock()

	close(n.stop)
	n.wg.Wait()
	n.log.Info("simnet stopped", zap.String("chain", fmt.Sprintf("%s/%s", n.cfg.Chain, n.cfg.Name)))
	return nil
}
