package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	require.NoError(t, Load(viper.New()))

	assert.Equal(t, "development", Global.App.Env)
	assert.Equal(t, 3, Global.Chain.ExpectedConfirmations)
	assert.Equal(t, 2*time.Second, Global.Chain.BlockTime)
	assert.Equal(t, "@every 1m", Global.Transfer.SweepSpec)
	assert.False(t, Global.Transfer.RepeatOnChange)
	assert.Equal(t, 2*time.Minute, Global.Transfer.BuildTimeout)
	assert.Equal(t, uint64(1)<<32, Global.Crypto.MaxDecryptAmount)
	assert.Equal(t, []string{"localhost:9092"}, Global.Kafka.Brokers)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	yaml := []byte("chain:\n  rpc_url: ws://node:9944\n  expected_confirmations: 6\ntransfer:\n  repeat_on_change: true\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))
	t.Setenv("WALLET_PASSWORD", "from-env")

	require.NoError(t, Load(viper.New()))

	assert.Equal(t, "ws://node:9944", Global.Chain.RpcUrl)
	assert.Equal(t, 6, Global.Chain.ExpectedConfirmations)
	assert.True(t, Global.Transfer.RepeatOnChange)
	assert.Equal(t, "from-env", Global.Wallet.Password)
}
