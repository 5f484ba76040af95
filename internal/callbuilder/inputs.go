package callbuilder

import (
	"github.com/zakimal/zero-chain-ui/internal/chain"
	"github.com/zakimal/zero-chain-ui/internal/units"
	"github.com/zakimal/zero-chain-ui/pkg/reactive"
)

// InputSet 构造一笔转账需要的六个输入，各自独立地异步就绪
type InputSet struct {
	Sender                 *reactive.Cell[chain.AccountID]
	Recipient              *reactive.Cell[chain.AccountID]
	Amount                 *reactive.Cell[uint64]
	SenderDecryptedBalance *reactive.Cell[uint64]
	ProvingKey             *reactive.Cell[[]byte]
	PreparedVerifyingKey   *reactive.Cell[[]byte]
}

func NewInputSet() *InputSet {
	return &InputSet{
		Sender:                 reactive.New[chain.AccountID](),
		Recipient:              reactive.New[chain.AccountID](),
		Amount:                 reactive.New[uint64](),
		SenderDecryptedBalance: reactive.New[uint64](),
		ProvingKey:             reactive.New[[]byte](),
		PreparedVerifyingKey:   reactive.New[[]byte](),
	}
}

// SetAmountText 解析用户输入的金额，非法输入让 Amount 回到 unresolved
func (in *InputSet) SetAmountText(text string, u units.Units) error {
	amount, err := u.Parse(text)
	if err != nil {
		in.Amount.Reset()
		return err
	}
	in.Amount.Set(amount)
	return nil
}

// SetRecipientText 同上，针对收款地址
func (in *InputSet) SetRecipientText(text string) error {
	id, err := chain.ParseAccountID(text)
	if err != nil {
		in.Recipient.Reset()
		return err
	}
	in.Recipient.Set(id)
	return nil
}

// Ready 六个输入是否同时就绪
func (in *InputSet) Ready() bool {
	for _, d := range in.deps() {
		if !d.Ready() {
			return false
		}
	}
	return true
}

func (in *InputSet) deps() []reactive.Dependency {
	return []reactive.Dependency{
		in.Sender, in.Recipient, in.Amount, in.SenderDecryptedBalance, in.ProvingKey, in.PreparedVerifyingKey,
	}
}

// Snapshot 某一时刻六个输入的值
type Snapshot struct {
	Sender       chain.AccountID
	Recipient    chain.AccountID
	Amount       uint64
	Balance      uint64
	ProvingKey   []byte
	VerifyingKey []byte
}

func (in *InputSet) snapshot() (Snapshot, bool) {
	var s Snapshot
	var ok [6]bool
	s.Sender, ok[0] = in.Sender.Get()
	s.Recipient, ok[1] = in.Recipient.Get()
	s.Amount, ok[2] = in.Amount.Get()
	s.Balance, ok[3] = in.SenderDecryptedBalance.Get()
	s.ProvingKey, ok[4] = in.ProvingKey.Get()
	s.VerifyingKey, ok[5] = in.PreparedVerifyingKey.Get()
	for _, v := range ok {
		if !v {
			return Snapshot{}, false
		}
	}
	return s, true
}
