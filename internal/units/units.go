// Package units 在用户输入的十进制金额与链上最小单位之间转换。
package units

import (
	"errors"
	"math"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrEmpty     = errors.New("units: amount is empty")
	ErrSyntax    = errors.New("units: amount is not a number")
	ErrNegative  = errors.New("units: amount is negative")
	ErrPrecision = errors.New("units: too many decimal places")
	ErrOverflow  = errors.New("units: amount overflows u64")
)

// Units 小数位数为 Decimals 的金额单位
type Units struct {
	Decimals int32
}

// Default 链上金额是整数
var Default = Units{}

var maxU64 = decimal.NewFromBigInt(new(big.Int).SetUint64(math.MaxUint64), 0)

func New(decimals int32) Units {
	return Units{Decimals: decimals}
}

// Parse "1.5" -> 1500 (Decimals = 3)
func (u Units) Parse(text string) (uint64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, ErrEmpty
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return 0, ErrSyntax
	}
	if d.IsNegative() {
		return 0, ErrNegative
	}
	base := d.Shift(u.Decimals)
	if !base.Equal(base.Truncate(0)) {
		return 0, ErrPrecision
	}
	if base.GreaterThan(maxU64) {
		return 0, ErrOverflow
	}
	return base.BigInt().Uint64(), nil
}

func (u Units) Format(amount uint64) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -u.Decimals).String()
}

// Valid 供参数校验使用
func (u Units) Valid(text string) bool {
	_, err := u.Parse(text)
	return err == nil
}
