package confidential

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	lru "github.com/hashicorp/golang-lru"
)

// DefaultMaxAmount 默认可解密的最大金额
const DefaultMaxAmount = uint64(1) << 32

// ErrAmountOutOfRange 余额超出 Baby-Step Giant-Step 的搜索范围
var ErrAmountOutOfRange = errors.New("confidential: amount out of decryptable range")

// Decryptor 解密余额: 先去掉随机项得到 m*G，再用 BSGS 求离散对数。
// baby-step 表在第一次解密时构建，之后复用；结果按密文缓存。
type Decryptor struct {
	maxAmount uint64
	n         uint64

	once  sync.Once
	table map[[PointLen]byte]uint64
	giant point // -(n*G)

	cache *lru.Cache
}

// NewDecryptor maxAmount 为可解密的最大金额，cacheSize <= 0 时不缓存
func NewDecryptor(maxAmount uint64, cacheSize int) (*Decryptor, error) {
	if maxAmount == 0 {
		return nil, errors.New("confidential: maxAmount must be positive")
	}
	d := &Decryptor{
		maxAmount: maxAmount,
		n:         uint64(math.Ceil(math.Sqrt(float64(maxAmount) + 1))),
	}
	if cacheSize > 0 {
		c, err := lru.New(cacheSize)
		if err != nil {
			return nil, fmt.Errorf("confidential: decrypt cache: %w", err)
		}
		d.cache = c
	}
	return d, nil
}

func (d *Decryptor) MaxAmount() uint64 {
	return d.maxAmount
}

func (d *Decryptor) build() {
	// table[i*G] = i, i in [0, n]
	d.table = make(map[[PointLen]byte]uint64, d.n+1)
	var acc point
	g := baseMul(scalarOne())
	for i := uint64(0); i <= d.n; i++ {
		d.table[encodePoint(&acc)] = i
		acc = add(&acc, &g)
	}
	step := amountScalar(d.n)
	nG := baseMul(&step)
	d.giant = neg(&nG)
}

func scalarOne() *secp256k1.ModNScalar {
	var s secp256k1.ModNScalar
	s.SetInt(1)
	return &s
}

// Decrypt 用 ivk 解密余额
func (d *Decryptor) Decrypt(c Ciphertext, ivk ViewingKey) (uint64, error) {
	var key [32]byte
	if d.cache != nil {
		ivkBytes := ivk.Bytes()
		key = transcriptHash("zerochain/decrypt-cache", c.Bytes(), ivkBytes[:])
		if v, ok := d.cache.Get(key); ok {
			return v.(uint64), nil
		}
	}

	amount, err := d.solve(c.messagePoint(ivk))
	if err != nil {
		return 0, err
	}
	if d.cache != nil {
		d.cache.Add(key, amount)
	}
	return amount, nil
}

func (d *Decryptor) solve(m point) (uint64, error) {
	d.once.Do(d.build)

	maxJ := d.maxAmount/d.n + 1
	current := m
	for j := uint64(0); j <= maxJ; j++ {
		if i, ok := d.table[encodePoint(&current)]; ok {
			if result := j*d.n + i; result <= d.maxAmount {
				return result, nil
			}
		}
		current = add(&current, &d.giant)
	}
	return 0, ErrAmountOutOfRange
}
