package safe_random

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRandomBytes(t *testing.T) {
	b, err := GenerateRandomBytes(32)
	require.NoError(t, err)
	assert.Len(t, b, 32)
	assert.NotEqual(t, make([]byte, 32), b, "GenerateRandomBytes 返回了全零数据")
}

func TestRandomSeed(t *testing.T) {
	a, err := RandomSeed()
	require.NoError(t, err)
	b, err := RandomSeed()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestRandomSeedDeterministicReader(t *testing.T) {
	orig := Reader
	t.Cleanup(func() { Reader = orig })

	Reader = bytes.NewReader(bytes.Repeat([]byte{1, 0, 0, 0}, 8))
	seed, err := RandomSeed()
	require.NoError(t, err)
	assert.Equal(t, [8]uint32{1, 1, 1, 1, 1, 1, 1, 1}, seed)

	// Reader 耗尽时返回错误
	_, err = RandomSeed()
	assert.Error(t, err)
}
