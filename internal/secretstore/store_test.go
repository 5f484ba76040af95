package secretstore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zakimal/zero-chain-ui/pkg/keystore"
)

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "keys", "wallet.json")
	s, err := Open(path, "pw", keystore.LightParams)
	require.NoError(t, err)
	return s, path
}

func TestSubmitAndReopen(t *testing.T) {
	s, path := openTemp(t)

	acc, err := s.Submit("  //Alice ", "alice")
	require.NoError(t, err)
	expected, err := s.AccountFromPhrase("//Alice")
	require.NoError(t, err)
	assert.Equal(t, expected, acc.Address)

	_, err = s.Submit("//Bob", "bob")
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(data), "//Alice"), "phrase must not be stored in clear")

	again, err := Open(path, "pw", keystore.LightParams)
	require.NoError(t, err)
	names := []string{}
	for _, a := range again.Accounts() {
		names = append(names, a.Name)
	}
	assert.Equal(t, []string{"alice", "bob"}, names)

	seed1, err := s.SeedFromAccount(acc.Address)
	require.NoError(t, err)
	seed2, err := again.SeedFromAccount(acc.Address)
	require.NoError(t, err)
	assert.Equal(t, seed1, seed2)

	ivk, err := again.IVK(acc.Address)
	require.NoError(t, err)
	assert.Equal(t, [32]byte(acc.Address), [32]byte(ivk.Address()))

	_, err = Open(path, "wrong", keystore.LightParams)
	assert.ErrorIs(t, err, ErrWrongPassword)
}

func TestSubmitValidation(t *testing.T) {
	s, _ := openTemp(t)
	_, err := s.Submit("//Alice", "alice")
	require.NoError(t, err)

	tests := []struct {
		name   string
		phrase string
		label  string
		want   error
	}{
		{"empty phrase", "   ", "x", ErrEmptySeed},
		{"empty name", "//Carol", " ", ErrEmptyName},
		{"name taken", "//Carol", "alice", ErrNameTaken},
		{"same account", "//Alice", "again", ErrAlreadyStored},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Submit(tt.phrase, tt.label)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err = s.AccountFromPhrase("")
	assert.ErrorIs(t, err, ErrEmptySeed)
}

func TestForget(t *testing.T) {
	s, path := openTemp(t)
	acc, err := s.Submit("//Alice", "alice")
	require.NoError(t, err)

	require.NoError(t, s.Forget("alice"))
	assert.ErrorIs(t, s.Forget("alice"), ErrNotFound)
	_, err = s.ByName("alice")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.SeedFromAccount(acc.Address)
	assert.ErrorIs(t, err, ErrNotFound)

	again, err := Open(path, "pw", keystore.LightParams)
	require.NoError(t, err)
	assert.Empty(t, again.Accounts())
}

func TestMemoryStore(t *testing.T) {
	s, err := Open("", "", keystore.LightParams)
	require.NoError(t, err)
	acc, err := s.Submit("//Alice", "alice")
	require.NoError(t, err)

	got, err := s.ByAddress(acc.Address)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Name)

	phrase, err := s.GenerateMnemonic()
	require.NoError(t, err)
	assert.Len(t, strings.Fields(phrase), 24)
}

func TestPersistRequiresPassword(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "w.json"), "", keystore.LightParams)
	require.NoError(t, err)
	_, err = s.Submit("//Alice", "alice")
	assert.ErrorIs(t, err, ErrPasswordNeeded)
}
