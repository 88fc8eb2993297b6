package cryptovault

import (
	"crypto/rand"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	vault, err := New(key)
	require.NoError(t, err)

	type payload struct {
		Name  string `json:"name"`
		Value int    `json:"value"`
	}

	ciphertext, err := vault.EncryptJSON(payload{Name: "sid", Value: 42})
	require.NoError(t, err)
	require.NotContains(t, ciphertext, "sid")

	var out payload
	require.NoError(t, vault.DecryptJSON(ciphertext, &out))
	require.Equal(t, "sid", out.Name)
	require.Equal(t, 42, out.Value)
}

func TestDecryptRejectsTampering(t *testing.T) {
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	vault, err := New(key)
	require.NoError(t, err)

	ciphertext, err := vault.EncryptJSON(map[string]string{"a": "b"})
	require.NoError(t, err)

	sealed, err := base64.StdEncoding.DecodeString(ciphertext)
	require.NoError(t, err)
	sealed[len(sealed)-1] ^= 0xff
	tampered := base64.StdEncoding.EncodeToString(sealed)

	var out map[string]string
	require.Error(t, vault.DecryptJSON(tampered, &out))
}

func TestWrongKeyFailsToDecrypt(t *testing.T) {
	keyA := make([]byte, 32)
	keyB := make([]byte, 32)
	_, err := rand.Read(keyA)
	require.NoError(t, err)
	_, err = rand.Read(keyB)
	require.NoError(t, err)

	vaultA, err := New(keyA)
	require.NoError(t, err)
	vaultB, err := New(keyB)
	require.NoError(t, err)

	ciphertext, err := vaultA.EncryptJSON("secret")
	require.NoError(t, err)

	var out string
	require.Error(t, vaultB.DecryptJSON(ciphertext, &out))
}

func TestNewRejectsBadKeySizes(t *testing.T) {
	_, err := New([]byte("short"))
	require.Error(t, err)

	_, err = NewFromBase64("!!! not base64 !!!")
	require.Error(t, err)
}
