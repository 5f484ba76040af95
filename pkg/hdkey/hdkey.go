// Package hdkey 用 BIP-32 从钱包 seed 派生 zerochain 花费密钥
package hdkey

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
)

var (
	ErrInvalidSeed = errors.New("hdkey: 无效的种子")
	ErrInvalidPath = errors.New("hdkey: 无效的派生路径")
)

// SpendKeyPath 花费密钥的派生路径
const SpendKeyPath = "m/44'/1337'/0'/0'/0'"

// Path 已解析的派生路径，hardened 索引已加上 HardenedKeyStart
type Path []uint32

// ParsePath 支持 m/44'/0'/0 与 m/44h/0h/0 两种写法
func ParsePath(text string) (Path, error) {
	text = strings.TrimSpace(text)
	if text == "" || text == "m" {
		return Path{}, nil
	}
	if !strings.HasPrefix(text, "m/") {
		return nil, fmt.Errorf("%w: %q 必须以 m/ 开头", ErrInvalidPath, text)
	}

	segments := strings.Split(strings.TrimPrefix(text, "m/"), "/")
	path := make(Path, 0, len(segments))
	for _, seg := range segments {
		hardened := strings.HasSuffix(seg, "'") || strings.HasSuffix(seg, "h")
		if hardened {
			seg = seg[:len(seg)-1]
		}
		v, err := strconv.ParseUint(seg, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: 路径段 %q", ErrInvalidPath, seg)
		}
		index := uint32(v)
		if hardened {
			if index >= hdkeychain.HardenedKeyStart {
				return nil, fmt.Errorf("%w: 路径段 %q 超出范围", ErrInvalidPath, seg)
			}
			index += hdkeychain.HardenedKeyStart
		}
		path = append(path, index)
	}
	return path, nil
}

func (p Path) String() string {
	var b strings.Builder
	b.WriteString("m")
	for _, index := range p {
		b.WriteByte('/')
		if index >= hdkeychain.HardenedKeyStart {
			b.WriteString(strconv.FormatUint(uint64(index-hdkeychain.HardenedKeyStart), 10))
			b.WriteByte('\'')
			continue
		}
		b.WriteString(strconv.FormatUint(uint64(index), 10))
	}
	return b.String()
}

// Master seed 对应的扩展主私钥。
// 序列化版本号沿用 MainNet，zerochain 地址本身不依赖它。
func Master(seed []byte) (*hdkeychain.ExtendedKey, error) {
	if len(seed) < hdkeychain.MinSeedBytes || len(seed) > hdkeychain.MaxSeedBytes {
		return nil, ErrInvalidSeed
	}
	master, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("生成主密钥失败: %w", err)
	}
	return master, nil
}

// Derive 沿 path 派生扩展密钥
func Derive(seed []byte, path Path) (*hdkeychain.ExtendedKey, error) {
	key, err := Master(seed)
	if err != nil {
		return nil, err
	}
	for _, index := range path {
		if key, err = key.Derive(index); err != nil {
			return nil, fmt.Errorf("派生子密钥失败: %w", err)
		}
	}
	return key, nil
}

var spendPath = mustParse(SpendKeyPath)

func mustParse(text string) Path {
	p, err := ParsePath(text)
	if err != nil {
		panic(err)
	}
	return p
}

// SpendKey 按 SpendKeyPath 派生花费私钥
func SpendKey(seed []byte) (*btcec.PrivateKey, error) {
	key, err := Derive(seed, spendPath)
	if err != nil {
		return nil, err
	}
	return key.ECPrivKey()
}
