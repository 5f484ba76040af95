package keystore

import (
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecrypt(t *testing.T) {
	phrase := "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	password := "secure-password"

	keyJSON, err := Encrypt([]byte(phrase), password, LightParams)
	require.NoError(t, err)
	assert.Equal(t, "aes-256-gcm", keyJSON.Crypto.Cipher)
	assert.Equal(t, LightParams.N, keyJSON.Crypto.KDFParams.N)
	assert.Equal(t, 3, keyJSON.Version)

	plaintext, err := DecryptMnemonic(keyJSON, password)
	require.NoError(t, err)
	assert.Equal(t, phrase, plaintext)

	_, err = Decrypt(keyJSON, "wrong-password")
	assert.ErrorIs(t, err, ErrMACMismatch)
}

func TestDecryptRejectsTamperedCiphertext(t *testing.T) {
	keyJSON, err := Encrypt([]byte("secret"), "pw", LightParams)
	require.NoError(t, err)

	raw, err := hex.DecodeString(keyJSON.Crypto.CipherText)
	require.NoError(t, err)
	raw[0] ^= 0xff
	keyJSON.Crypto.CipherText = hex.EncodeToString(raw)

	_, err = Decrypt(keyJSON, "pw")
	assert.ErrorIs(t, err, ErrMACMismatch)
}

func TestJSONRoundTrip(t *testing.T) {
	keyJSON, err := Encrypt([]byte("test mnemonic"), "123456", LightParams)
	require.NoError(t, err)

	raw, err := json.Marshal(keyJSON)
	require.NoError(t, err)
	var loaded EncryptedKeyJSON
	require.NoError(t, json.Unmarshal(raw, &loaded))
	assert.Equal(t, keyJSON.Id, loaded.Id)

	decrypted, err := Decrypt(&loaded, "123456")
	require.NoError(t, err)
	assert.Equal(t, "test mnemonic", string(decrypted))
}
