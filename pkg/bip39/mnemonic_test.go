package bip39

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateMnemonic(t *testing.T) {
	service := NewMnemonicService()

	tests := []struct {
		bitSize int
		words   int
	}{
		{128, 12},
		{DefaultBitSize, 24},
	}
	for _, tt := range tests {
		mnemonic, err := service.GenerateMnemonic(tt.bitSize)
		require.NoError(t, err)
		assert.Len(t, strings.Fields(mnemonic), tt.words)
		assert.True(t, service.ValidateMnemonic(mnemonic), "生成的助记词无效: %s", mnemonic)
	}
}

func TestMnemonicToSeed(t *testing.T) {
	service := NewMnemonicService()

	// 已知的测试向量 (Test Vector)
	mnemonic := "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	expectedSeedHex := "5eb00bbddcf069084889a8ab9155568165f5c453ccb85e70811aaed6f6da5fc19a5ac40b389cd370d086206dec8aa6c43daea6690f20ad3d8d48b2d2ce9e38e4"

	require.True(t, service.ValidateMnemonic(mnemonic))
	assert.Equal(t, expectedSeedHex, hex.EncodeToString(service.MnemonicToSeed(mnemonic, "")))

	// 多余空白不影响结果
	padded := "  " + strings.ReplaceAll(mnemonic, " ", "   ") + "\n"
	assert.Equal(t, expectedSeedHex, hex.EncodeToString(service.MnemonicToSeed(padded, "")))
}

func TestValidateMnemonic_Invalid(t *testing.T) {
	service := NewMnemonicService()

	assert.False(t, service.ValidateMnemonic("hello world invalid mnemonic phrase designed to fail validation check"))
	// 非 BIP-39 短语仍然可以派生种子
	assert.Len(t, service.MnemonicToSeed("//Alice", ""), 64)
}
