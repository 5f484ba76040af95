package chain

import (
	"errors"
	"fmt"

	"github.com/zakimal/zero-chain-ui/internal/codec"
	"github.com/zakimal/zero-chain-ui/internal/confidential"
)

// Arg call 的一个参数，Type 是 codec 注册表里的类型名
type Arg struct {
	Name  string
	Type  string
	Value []byte
}

// Call 模块方法调用
type Call struct {
	Module   string
	Function string
	Args     []Arg
}

func (c Call) Method() string {
	return c.Module + "." + c.Function
}

const (
	ModuleConfTransfer     = "confTransfer"
	FnConfidentialTransfer = "confidentialTransfer"
)

type argSpec struct {
	name string
	typ  string
}

// schemas 已知 call 的参数列表，解码时使用
var schemas = map[string][]argSpec{
	ModuleConfTransfer + "." + FnConfidentialTransfer: {
		{"zkproof", "Proof"},
		{"address_sender", "PkdAddress"},
		{"address_recipient", "PkdAddress"},
		{"value_sender", "Ciphertext"},
		{"value_recipient", "Ciphertext"},
		{"balance_sender", "Ciphertext"},
		{"rk", "SigVerificationKey"},
	},
}

var ErrUnknownCall = errors.New("chain: unknown call")

// Encode module || function || args，每项按注册表编码
func (c Call) Encode(reg *codec.Registry) ([]byte, error) {
	out, err := reg.Encode(codec.Bytes, []byte(c.Module))
	if err != nil {
		return nil, err
	}
	fn, err := reg.Encode(codec.Bytes, []byte(c.Function))
	if err != nil {
		return nil, err
	}
	out = append(out, fn...)
	for _, a := range c.Args {
		enc, err := reg.Encode(a.Type, a.Value)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", a.Name, err)
		}
		out = append(out, enc...)
	}
	return out, nil
}

// DecodeCall 解码已知 call，返回消耗的字节数
func DecodeCall(reg *codec.Registry, data []byte) (Call, int, error) {
	module, used, err := reg.Decode(codec.Bytes, data)
	if err != nil {
		return Call{}, 0, err
	}
	fn, n, err := reg.Decode(codec.Bytes, data[used:])
	if err != nil {
		return Call{}, 0, err
	}
	used += n

	c := Call{Module: string(module), Function: string(fn)}
	schema, ok := schemas[c.Method()]
	if !ok {
		return Call{}, 0, fmt.Errorf("%w: %s", ErrUnknownCall, c.Method())
	}
	for _, spec := range schema {
		v, n, err := reg.Decode(spec.typ, data[used:])
		if err != nil {
			return Call{}, 0, fmt.Errorf("decode %s: %w", spec.name, err)
		}
		used += n
		c.Args = append(c.Args, Arg{Name: spec.name, Type: spec.typ, Value: v})
	}
	return c, used, nil
}

// ConfidentialTransfer confTransfer.confidentialTransfer(zkproof, address_sender,
// address_recipient, value_sender, value_recipient, balance_sender, rk)
func ConfidentialTransfer(p *confidential.TransferProof) Call {
	values := [][]byte{
		p.Proof,
		p.SenderAddress[:],
		p.RecipientAddress[:],
		p.EncAmountSender.Bytes(),
		p.EncAmountRecipient.Bytes(),
		p.EncBalanceSender.Bytes(),
		p.Rk[:],
	}
	spec := schemas[ModuleConfTransfer+"."+FnConfidentialTransfer]
	args := make([]Arg, len(spec))
	for i, s := range spec {
		args[i] = Arg{Name: s.name, Type: s.typ, Value: values[i]}
	}
	return Call{Module: ModuleConfTransfer, Function: FnConfidentialTransfer, Args: args}
}

// TransferArgs 解析后的机密转账参数
type TransferArgs struct {
	Proof     []byte
	Sender    AccountID
	Recipient AccountID
	Statement confidential.Statement
}

// ParseConfidentialTransfer 把 call 参数还原为证明的公开字段
func ParseConfidentialTransfer(c Call) (*TransferArgs, error) {
	if c.Method() != ModuleConfTransfer+"."+FnConfidentialTransfer || len(c.Args) != 7 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCall, c.Method())
	}
	sender, err := confidential.ParsePublicKey(c.Args[1].Value)
	if err != nil {
		return nil, fmt.Errorf("address_sender: %w", err)
	}
	recipient, err := confidential.ParsePublicKey(c.Args[2].Value)
	if err != nil {
		return nil, fmt.Errorf("address_recipient: %w", err)
	}
	cts := make([]confidential.Ciphertext, 3)
	for i := range cts {
		ct, err := confidential.ParseCiphertext(c.Args[3+i].Value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c.Args[3+i].Name, err)
		}
		cts[i] = ct
	}
	rk, err := confidential.ParsePublicKey(c.Args[6].Value)
	if err != nil {
		return nil, fmt.Errorf("rk: %w", err)
	}
	return &TransferArgs{
		Proof:     c.Args[0].Value,
		Sender:    AccountID(sender),
		Recipient: AccountID(recipient),
		Statement: confidential.Statement{
			SenderAddress:      sender,
			RecipientAddress:   recipient,
			EncAmountSender:    cts[0],
			EncAmountRecipient: cts[1],
			EncBalanceSender:   cts[2],
			Rk:                 rk,
		},
	}, nil
}
