package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zakimal/zero-chain-ui/internal/callbuilder"
	"github.com/zakimal/zero-chain-ui/internal/chain"
	"github.com/zakimal/zero-chain-ui/internal/codec"
	"github.com/zakimal/zero-chain-ui/internal/confidential"
	"github.com/zakimal/zero-chain-ui/internal/event"
	"github.com/zakimal/zero-chain-ui/internal/model"
	"github.com/zakimal/zero-chain-ui/internal/repository"
	"github.com/zakimal/zero-chain-ui/internal/service/mq"
	"github.com/zakimal/zero-chain-ui/internal/status"
	"github.com/zakimal/zero-chain-ui/internal/txcontroller"
	"github.com/zakimal/zero-chain-ui/internal/units"
	"github.com/zakimal/zero-chain-ui/pkg/logger"
	"github.com/zakimal/zero-chain-ui/pkg/reactive"
)

const (
	DefaultBuildTimeout = 2 * time.Minute
	DefaultTopic        = "zerochain_transfer_status"
	eventQueueSize      = 256
)

// TransferOptions 来自 transfer.* 与 chain.* 配置。join 模式由 Builder 决定。
type TransferOptions struct {
	ExpectedConfirmations int
	Units                 units.Units
	Topic                 string
	BuildTimeout          time.Duration
	Retention             time.Duration
}

// TransferRequest From 为本地账户名或地址，To 为地址或地址簿名字，Amount 为文本金额
type TransferRequest struct {
	From   string
	To     string
	Amount string
}

// RawTransfer 手工填写的机密转账：证明与密文在别处生成，Rsk 为花费授权私钥
type RawTransfer struct {
	Proof            hexutil.Bytes `json:"zkproof"`
	AddressSender    hexutil.Bytes `json:"address_sender"`
	AddressRecipient hexutil.Bytes `json:"address_recipient"`
	ValueSender      hexutil.Bytes `json:"value_sender"`
	ValueRecipient   hexutil.Bytes `json:"value_recipient"`
	BalanceSender    hexutil.Bytes `json:"balance_sender"`
	Rk               hexutil.Bytes `json:"rk"`
	Rsk              hexutil.Bytes `json:"rsk"`
}

// descriptor 校验字段并组装可提交的 call
func (r RawTransfer) descriptor() (*callbuilder.CallDescriptor, error) {
	sender, err := confidential.ParsePublicKey(r.AddressSender)
	if err != nil {
		return nil, fmt.Errorf("%w: address_sender: %v", ErrInvalidAddress, err)
	}
	recipient, err := confidential.ParsePublicKey(r.AddressRecipient)
	if err != nil {
		return nil, fmt.Errorf("%w: address_recipient: %v", ErrInvalidAddress, err)
	}
	rk, err := confidential.ParsePublicKey(r.Rk)
	if err != nil {
		return nil, fmt.Errorf("rk: %w", err)
	}
	fields := []struct {
		name string
		raw  []byte
	}{
		{"value_sender", r.ValueSender},
		{"value_recipient", r.ValueRecipient},
		{"balance_sender", r.BalanceSender},
	}
	cts := make([]confidential.Ciphertext, len(fields))
	for i, f := range fields {
		if cts[i], err = confidential.ParseCiphertext(f.raw); err != nil {
			return nil, fmt.Errorf("%s: %w", f.name, err)
		}
	}
	if len(r.Proof) != confidential.ProofLen {
		return nil, fmt.Errorf("%w: length %d", confidential.ErrInvalidProof, len(r.Proof))
	}
	if len(r.Rsk) != btcec.PrivKeyBytesLen {
		return nil, fmt.Errorf("%w: rsk must be %d bytes", chain.ErrInvalidSignerSk, btcec.PrivKeyBytesLen)
	}
	rsk, _ := btcec.PrivKeyFromBytes(r.Rsk)
	if string(schnorr.SerializePubKey(rsk.PubKey())) != string(rk[:]) {
		return nil, chain.ErrInvalidSignerSk
	}

	call := chain.ConfidentialTransfer(&confidential.TransferProof{
		Proof:              r.Proof,
		SenderAddress:      sender,
		RecipientAddress:   recipient,
		EncAmountSender:    cts[0],
		EncAmountRecipient: cts[1],
		EncBalanceSender:   cts[2],
		Rk:                 rk,
	})
	return callbuilder.NewManualDescriptor(chain.AccountFromKey(sender), call, rk, rsk), nil
}

// ActiveTransfer 正在跟踪的转账，供调试接口使用
type ActiveTransfer struct {
	ID       string          `json:"id"`
	State    string          `json:"state"`
	Status   string          `json:"status"`
	Text     string          `json:"text"`
	Progress status.Progress `json:"progress"`
	TxHash   string          `json:"tx_hash,omitempty"`
	Age      string          `json:"age"`
}

type Diagnostics struct {
	Mode                  string           `json:"mode"`
	ExpectedConfirmations int              `json:"expected_confirmations"`
	BuildTimeout          string           `json:"build_timeout"`
	Active                []ActiveTransfer `json:"active"`
}

type tracked struct {
	id      string
	ctrl    *txcontroller.Controller
	out     *reactive.Cell[callbuilder.Result]
	rec     model.Transfer // 只在状态回调里修改
	started time.Time
}

type publishJob struct {
	key     string
	payload []byte
}

// TransferService 串起 CallBuilder 与 TransactionController，并记录每笔转账的状态
type TransferService struct {
	ctx    context.Context
	cancel context.CancelFunc

	client   chain.Client
	reg      *codec.Registry
	builder  *callbuilder.Builder
	wallet   *WalletService
	book     *AddressBookService
	accounts *AccountService
	params   *Params
	repo     repository.TransferRepository
	producer mq.Producer
	opts     TransferOptions
	log      *zap.Logger
	now      func() time.Time
	// buildTimer 构造超时的计时器，测试里替换
	buildTimer func(time.Duration) (<-chan time.Time, func() bool)

	mu     sync.Mutex
	closed bool
	active map[string]*tracked
	events chan publishJob
	wg     sync.WaitGroup
}

// TransferDeps TransferService 依赖的组件
type TransferDeps struct {
	Client   chain.Client
	Registry *codec.Registry
	Builder  *callbuilder.Builder
	Wallet   *WalletService
	Book     *AddressBookService
	Accounts *AccountService
	Params   *Params
	Repo     repository.TransferRepository
	Producer mq.Producer
}

func NewTransferService(deps TransferDeps, opts TransferOptions) *TransferService {
	if deps.Registry == nil {
		deps.Registry = codec.Default()
	}
	if deps.Repo == nil {
		deps.Repo = repository.NewMemoryTransferRepository()
	}
	if deps.Producer == nil {
		deps.Producer = mq.NopProducer{}
	}
	if opts.ExpectedConfirmations <= 0 {
		opts.ExpectedConfirmations = txcontroller.DefaultExpectedConfirmations
	}
	if opts.Topic == "" {
		opts.Topic = DefaultTopic
	}
	if opts.BuildTimeout <= 0 {
		opts.BuildTimeout = DefaultBuildTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &TransferService{
		ctx:      ctx,
		cancel:   cancel,
		client:   deps.Client,
		reg:      deps.Registry,
		builder:  deps.Builder,
		wallet:   deps.Wallet,
		book:     deps.Book,
		accounts: deps.Accounts,
		params:   deps.Params,
		repo:     deps.Repo,
		producer: deps.Producer,
		opts:     opts,
		log:      logger.Named("transfers"),
		now:      time.Now,
		active:   make(map[string]*tracked),
		events:   make(chan publishJob, eventQueueSize),
	}
	s.buildTimer = func(d time.Duration) (<-chan time.Time, func() bool) {
		timer := time.NewTimer(d)
		return timer.C, timer.Stop
	}
	s.wg.Add(1)
	go s.publishLoop()
	return s
}

// Submit 解析请求并启动一笔转账，立即返回 pending 状态的记录。
// 之后的状态通过 Get / Watch 获取。
func (s *TransferService) Submit(ctx context.Context, req TransferRequest) (*model.Transfer, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	sender, err := s.wallet.Resolve(req.From)
	if err != nil {
		return nil, err
	}
	recipient, err := s.book.Resolve(ctx, req.To)
	if err != nil {
		return nil, err
	}

	in := callbuilder.NewInputSet()
	if err := in.SetAmountText(req.Amount, s.opts.Units); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAmount, err)
	}
	amount, _ := in.Amount.Get()
	in.Sender.Set(sender)
	in.Recipient.Set(recipient)
	in.ProvingKey = s.params.ProvingKey
	in.PreparedVerifyingKey = s.params.VerifyingKey
	balance, balanceErr := s.accounts.DecryptedBalance(s.ctx, sender)
	in.SenderDecryptedBalance = balance

	out := s.builder.Build(in)
	t, err := s.newTracked(ctx, model.Transfer{
		Sender:    sender.String(),
		Recipient: recipient.String(),
		Amount:    amount,
	}, out)
	if err != nil {
		out.Close()
		balance.Close()
		return nil, err
	}

	out.Subscribe(func(r callbuilder.Result) {
		if r.Err != nil {
			// 已提交的交易不被后来的快照打断
			t.ctrl.FailIdle(r.Err)
			return
		}
		go s.submitDescriptor(t, r.Call)
	})
	go s.supervise(t, balanceErr, balance)

	s.log.Info("transfer created",
		zap.String("id", t.id),
		zap.Stringer("sender", sender),
		zap.Stringer("recipient", recipient),
		zap.Stringer("mode", s.builder.Mode()),
	)
	return s.copyOf(t), nil
}

// SubmitRaw 提交外部生成的证明，跳过 CallBuilder
func (s *TransferService) SubmitRaw(ctx context.Context, raw RawTransfer) (*model.Transfer, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	d, err := raw.descriptor()
	if err != nil {
		return nil, err
	}
	args, err := chain.ParseConfidentialTransfer(d.Call)
	if err != nil {
		return nil, err
	}
	t, err := s.newTracked(ctx, model.Transfer{
		Sender:    args.Sender.String(),
		Recipient: args.Recipient.String(),
		Manual:    true,
	}, nil)
	if err != nil {
		return nil, err
	}
	go s.submitDescriptor(t, d)

	s.log.Info("manual transfer created", zap.String("id", t.id), zap.Stringer("sender", args.Sender))
	return s.copyOf(t), nil
}

// newTracked 登记一笔转账。out 在 release 协程启动之前就位，终态时由它关闭。
func (s *TransferService) newTracked(ctx context.Context, rec model.Transfer, out *reactive.Cell[callbuilder.Result]) (*tracked, error) {
	rec.ID = uuid.NewString()
	rec.Status = model.TransferStatusPending
	rec.StatusText = model.TransferStatusPending
	rec.Expected = s.opts.ExpectedConfirmations
	if err := s.repo.Create(ctx, &rec); err != nil {
		return nil, fmt.Errorf("save transfer: %w", err)
	}

	ctrl := txcontroller.New(s.client,
		txcontroller.WithRegistry(s.reg),
		txcontroller.WithExpectedConfirmations(s.opts.ExpectedConfirmations),
		txcontroller.WithLogger(s.log.With(zap.String("transfer", rec.ID))),
	)
	t := &tracked{
		id:      rec.ID,
		ctrl:    ctrl,
		out:     out,
		rec:     rec,
		started: s.now(),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		t.ctrl.Close()
		return nil, ErrClosed
	}
	s.active[t.id] = t
	s.mu.Unlock()

	t.ctrl.Status().Subscribe(func(st status.TransactionStatus) {
		s.onStatus(t, st)
	})
	go s.release(t)
	return t, nil
}

func (s *TransferService) copyOf(t *tracked) *model.Transfer {
	rec, err := s.repo.Get(s.ctx, t.id)
	if err != nil {
		return &model.Transfer{ID: t.id, Status: model.TransferStatusPending}
	}
	return rec
}

func (s *TransferService) submitDescriptor(t *tracked, d *callbuilder.CallDescriptor) {
	err := t.ctrl.Submit(s.ctx, d)
	switch {
	case err == nil:
	case errors.Is(err, txcontroller.ErrAlreadySubmitted), errors.Is(err, txcontroller.ErrClosed),
		errors.Is(err, txcontroller.ErrAborted):
		s.log.Debug("descriptor ignored", zap.String("transfer", t.id), zap.Error(err))
	default:
		s.log.Warn("submit failed", zap.String("transfer", t.id), zap.Error(err))
	}
}

// supervise 余额解密失败或构造超时时让转账失败
func (s *TransferService) supervise(t *tracked, balanceErr <-chan error, balance *reactive.Cell[uint64]) {
	expired, stop := s.buildTimer(s.opts.BuildTimeout)
	defer stop()

	select {
	case err := <-balanceErr:
		if err != nil {
			t.ctrl.FailIdle(&callbuilder.BuildError{Stage: "balance", Err: err})
			return
		}
	case <-t.ctrl.Done():
		balance.Close()
		return
	case <-expired:
		t.ctrl.FailIdle(ErrBuildTimeout)
		return
	}

	select {
	case <-t.ctrl.Done():
	case <-expired:
		if !t.ctrl.FailIdle(ErrBuildTimeout) {
			s.log.Debug("build timeout after submit ignored", zap.String("transfer", t.id))
		}
	}
}

// onStatus 在 controller 的状态回调里执行，同一笔转账的回调串行
func (s *TransferService) onStatus(t *tracked, st status.TransactionStatus) {
	rec := &t.rec
	rec.Status = st.Kind.String()
	rec.StatusText = status.Present(st).Text
	rec.TxHash = t.ctrl.TxHash()
	switch st.Kind {
	case status.Broadcast:
		if st.Confirmations > rec.Confirmations {
			rec.Confirmations = st.Confirmations
		}
		if st.Block != "" {
			rec.BlockHash = st.Block
		}
	case status.Finalised:
		rec.Confirmations = rec.Expected
		if st.Block != "" {
			rec.BlockHash = st.Block
		}
	case status.Failed:
		rec.StatusText = "failed: " + st.Reason
	}
	rec.Terminal = st.IsTerminal()

	if err := s.repo.Update(s.ctx, rec); err != nil {
		s.log.Warn("update transfer failed", zap.String("transfer", t.id), zap.Error(err))
	}
	s.publish(event.TransferStatusEvent{
		TransferID:    rec.ID,
		Sender:        rec.Sender,
		Recipient:     rec.Recipient,
		Amount:        rec.Amount,
		Status:        rec.Status,
		Text:          rec.StatusText,
		Confirmations: rec.Confirmations,
		Expected:      rec.Expected,
		TxHash:        rec.TxHash,
		Terminal:      rec.Terminal,
		Timestamp:     s.now(),
	})
}

// release 转账结束后释放 join 与缓存
func (s *TransferService) release(t *tracked) {
	<-t.ctrl.Done()
	if t.out != nil {
		t.out.Close()
	}
	s.mu.Lock()
	delete(s.active, t.id)
	s.mu.Unlock()

	ids := make([]chain.AccountID, 0, 2)
	for _, text := range []string{t.rec.Sender, t.rec.Recipient} {
		if id, err := chain.ParseAccountID(text); err == nil {
			ids = append(ids, id)
		}
	}
	if s.accounts != nil {
		s.accounts.Invalidate(s.ctx, ids...)
	}
}

func (s *TransferService) publish(ev event.TransferStatusEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		s.log.Error("marshal event failed", zap.Error(err))
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.events <- publishJob{key: ev.TransferID, payload: payload}:
	default:
		s.log.Warn("event queue full, dropping event", zap.String("transfer", ev.TransferID), zap.String("status", ev.Status))
	}
}

func (s *TransferService) publishLoop() {
	defer s.wg.Done()
	for job := range s.events {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.producer.Publish(ctx, s.opts.Topic, job.key, job.payload); err != nil {
			s.log.Warn("publish event failed", zap.String("transfer", job.key), zap.Error(err))
		}
		cancel()
	}
}

func (s *TransferService) Get(ctx context.Context, id string) (*model.Transfer, error) {
	return s.repo.Get(ctx, id)
}

func (s *TransferService) List(ctx context.Context, filter repository.ListFilter) ([]model.Transfer, error) {
	return s.repo.List(ctx, filter)
}

// TransferWatch 正在跟踪的转账的状态与进度。Done 在终态或停止跟踪后关闭，此时两个视图都已是最终值。
type TransferWatch struct {
	Status   reactive.View[status.TransactionStatus]
	Progress reactive.View[status.Progress]
	Done     <-chan struct{}
}

func (s *TransferService) Watch(id string) (*TransferWatch, error) {
	s.mu.Lock()
	t, ok := s.active[id]
	s.mu.Unlock()
	if !ok {
		return nil, ErrNotActive
	}
	return &TransferWatch{
		Status:   t.ctrl.Status(),
		Progress: t.ctrl.Progress(),
		Done:     t.ctrl.Done(),
	}, nil
}

// Sweep 删除超过保留时间的终态记录
func (s *TransferService) Sweep(ctx context.Context) (int64, error) {
	if s.opts.Retention <= 0 {
		return 0, nil
	}
	return s.repo.DeleteTerminalBefore(ctx, s.now().Add(-s.opts.Retention))
}

func (s *TransferService) Diagnostics() Diagnostics {
	s.mu.Lock()
	active := make([]*tracked, 0, len(s.active))
	for _, t := range s.active {
		active = append(active, t)
	}
	s.mu.Unlock()
	sort.Slice(active, func(i, j int) bool { return active[i].started.Before(active[j].started) })

	d := Diagnostics{
		Mode:                  s.builder.Mode().String(),
		ExpectedConfirmations: s.opts.ExpectedConfirmations,
		BuildTimeout:          s.opts.BuildTimeout.String(),
		Active:                make([]ActiveTransfer, 0, len(active)),
	}
	for _, t := range active {
		at := ActiveTransfer{
			ID:     t.id,
			State:  t.ctrl.State().String(),
			TxHash: t.ctrl.TxHash(),
			Age:    s.now().Sub(t.started).Round(time.Millisecond).String(),
		}
		if st, ok := t.ctrl.Status().Get(); ok {
			at.Status = st.Kind.String()
			at.Text = status.Present(st).Text
		}
		at.Progress, _ = t.ctrl.Progress().Get()
		d.Active = append(d.Active, at)
	}
	return d
}

func (s *TransferService) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close 停止跟踪所有转账。已经提交的交易不会被撤回。
func (s *TransferService) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	active := make([]*tracked, 0, len(s.active))
	for _, t := range s.active {
		active = append(active, t)
	}
	close(s.events)
	s.mu.Unlock()

	for _, t := range active {
		t.ctrl.Close()
	}
	s.cancel()
	s.wg.Wait()
	s.log.Info("transfer service stopped", zap.Int("released", len(active)))
}
