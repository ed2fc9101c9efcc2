package kms

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"strings"
	"sync"
	"testing"

	"github.com/ruteri/cryptalias/cryptoutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimpleKMS_NewSimpleKMS(t *testing.T) {
	masterKey := make([]byte, 32)
	_, err := rand.Read(masterKey)
	require.NoError(t, err, "Failed to generate test master key")

	kms, err := NewSimpleKMS(masterKey)
	require.NoError(t, err)
	assert.NotNil(t, kms)

	_, err = NewSimpleKMS(make([]byte, 16))
	assert.ErrorIs(t, err, ErrMasterKeyTooShort, "Should fail with master key < 32 bytes")
}

func TestSimpleKMS_DeterministicKeys(t *testing.T) {
	masterKey := bytes.Repeat([]byte{0x42}, 32)

	kms1, err := NewSimpleKMS(masterKey)
	require.NoError(t, err)
	kms2, err := NewSimpleKMS(masterKey)
	require.NoError(t, err)

	key1, err := kms1.SigningKey("example.com")
	require.NoError(t, err)
	key2, err := kms2.SigningKey("EXAMPLE.com ")
	require.NoError(t, err)
	assert.Equal(t, key1, key2, "Same master key and domain should derive the same key")

	other, err := kms1.SigningKey("example.org")
	require.NoError(t, err)
	assert.NotEqual(t, key1, other, "Different domains should derive different keys")

	kms3, err := NewSimpleKMS(bytes.Repeat([]byte{0x43}, 32))
	require.NoError(t, err)
	key3, err := kms3.SigningKey("example.com")
	require.NoError(t, err)
	assert.NotEqual(t, key1, key3, "Different master keys should derive different keys")

	_, err = kms1.SigningKey("  ")
	assert.Error(t, err)
}

func TestSimpleKMS_MasterKeyIsCopied(t *testing.T) {
	masterKey := bytes.Repeat([]byte{0x42}, 32)
	kms, err := NewSimpleKMS(masterKey)
	require.NoError(t, err)

	masterKey[0] = 0

	got, err := kms.PublicKey("example.com")
	require.NoError(t, err)
	fresh, err := NewSimpleKMS(bytes.Repeat([]byte{0x42}, 32))
	require.NoError(t, err)
	want, err := fresh.PublicKey("example.com")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSimpleKMS_PublicKeyMaterialVerifiesTokens(t *testing.T) {
	kms, err := NewSimpleKMS(bytes.Repeat([]byte{0x01}, 32))
	require.NoError(t, err)

	priv, err := kms.SigningKey("example.com")
	require.NoError(t, err)
	jwk, err := kms.PublicKeyMaterial("Example.com")
	require.NoError(t, err)
	assert.Equal(t, "OKP", jwk.KeyType)
	assert.Equal(t, "Ed25519", jwk.Curve)
	assert.Equal(t, "example.com", jwk.KeyID)

	token, err := cryptoutils.SignToken(priv, jwk.KeyID, map[string]string{"address": "addr", "expires": "2030-01-01T00:00:00Z"})
	require.NoError(t, err)
	payload, err := cryptoutils.VerifyToken(token, jwk)
	require.NoError(t, err)
	assert.Equal(t, "addr", payload.Address)
}

func TestSimpleKMS_DNSTXTValue(t *testing.T) {
	kms, err := NewSimpleKMS(bytes.Repeat([]byte{0x01}, 32))
	require.NoError(t, err)

	value, err := kms.DNSTXTValue("example.com")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(value, "pubkey="))
}

func TestSimpleKMS_Concurrent(t *testing.T) {
	kms, err := NewSimpleKMS(bytes.Repeat([]byte{0x07}, 32))
	require.NoError(t, err)
	want, err := kms.PublicKey("example.com")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := kms.PublicKey("example.com")
			assert.NoError(t, err)
			assert.True(t, ed25519.PublicKey(want).Equal(got))
		}()
	}
	wg.Wait()
}
