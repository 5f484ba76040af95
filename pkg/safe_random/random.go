package safe_random

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
)

// Reader 是一个全局共享的加密安全随机数生成器实例。
// 默认为 crypto/rand.Reader，测试中可以替换为确定性的 Reader。
var Reader io.Reader = rand.Reader

// GenerateRandomBytes 生成指定长度的安全随机字节切片。
// 如果系统的安全随机数生成器失败，将返回错误。
func GenerateRandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(Reader, b); err != nil {
		return nil, fmt.Errorf("生成随机字节失败: %w", err)
	}
	return b, nil
}

// RandomSeed 生成 8 个 32 位随机字，作为一次转账证明的随机种子
func RandomSeed() ([8]uint32, error) {
	var seed [8]uint32
	b, err := GenerateRandomBytes(len(seed) * 4)
	if err != nil {
		return seed, err
	}
	for i := range seed {
		seed[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return seed, nil
}
