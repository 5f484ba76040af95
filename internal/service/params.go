package service

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"lukechampine.com/blake3"

	"github.com/zakimal/zero-chain-ui/pkg/logger"
	"github.com/zakimal/zero-chain-ui/pkg/reactive"
)

// 开发环境的内置电路参数。模拟节点与本地钱包共用同一份。
var (
	devProvingKey   = blake3.Sum512([]byte("zerochain/dev/proving-key"))
	devVerifyingKey = blake3.Sum256([]byte("zerochain/dev/prepared-vk"))
)

func DevProvingKey() []byte { return append([]byte(nil), devProvingKey[:]...) }
func DevVerifyingKey() []byte { return append([]byte(nil), devVerifyingKey[:]...) }

// Params proving key 与 prepared verifying key。两个 Cell 被所有转账共享。
type Params struct {
	ProvingKey   *reactive.Cell[[]byte]
	VerifyingKey *reactive.Cell[[]byte]
}

// StaticParams 直接使用给定的参数
func StaticParams(pk, vk []byte) *Params {
	return &Params{
		ProvingKey:   reactive.Of(pk),
		VerifyingKey: reactive.Of(vk),
	}
}

// LoadParams 在后台读取参数文件，路径为空时使用内置参数。
// 读取失败的 Cell 会被关闭，依赖它的转账一直等到构造超时。
func LoadParams(pkPath, vkPath string) *Params {
	p := &Params{
		ProvingKey:   reactive.New[[]byte](),
		VerifyingKey: reactive.New[[]byte](),
	}
	go loadInto(p.ProvingKey, "proving key", pkPath, DevProvingKey)
	go loadInto(p.VerifyingKey, "prepared verifying key", vkPath, DevVerifyingKey)
	return p
}

func loadInto(cell *reactive.Cell[[]byte], what, path string, fallback func() []byte) {
	if path == "" {
		cell.Set(fallback())
		return
	}
	data, err := ReadParamFile(path)
	if err != nil {
		logger.Error("加载电路参数失败", zap.String("what", what), zap.String("path", path), zap.Error(err))
		cell.Close()
		return
	}
	logger.Info("电路参数已加载", zap.String("what", what), zap.Int("bytes", len(data)))
	cell.Set(data)
}

// ReadParamFile 读取参数文件，空文件视为错误
func ReadParamFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("param file %s is empty", path)
	}
	return data, nil
}

// VerifyingKeyFromFile 模拟节点使用，路径为空时返回内置参数
func VerifyingKeyFromFile(path string) ([]byte, error) {
	if path == "" {
		return DevVerifyingKey(), nil
	}
	return ReadParamFile(path)
}
