package keymanager

import (
	"bytes"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsWrongKeySize(t *testing.T) {
	_, err := New(make([]byte, 16))
	assert.Error(t, err)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)
	km, err := New(key)
	require.NoError(t, err)

	plaintext := []byte("hello cluster")
	ciphertext, err := km.Encrypt(plaintext)
	require.NoError(t, err)
	assert.False(t, bytes.Equal(ciphertext, plaintext))

	out, err := km.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, out)
}

func TestRotateKeyStillDecryptsWithinWindow(t *testing.T) {
	now := time.Unix(0, 0)
	key, err := GenerateKey()
	require.NoError(t, err)
	km, err := newWithClock(key, func() time.Time { return now })
	require.NoError(t, err)

	plaintext := []byte("encrypted before rotation")
	ciphertext, err := km.Encrypt(plaintext)
	require.NoError(t, err)

	require.NoError(t, km.RotateKey(10*time.Second))

	out, err := km.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, out)

	newCiphertext, err := km.Encrypt([]byte("encrypted after rotation"))
	require.NoError(t, err)
	out2, err := km.Decrypt(newCiphertext)
	require.NoError(t, err)
	assert.Equal(t, "encrypted after rotation", string(out2))
}

func TestRotateKeyExpiresOldKeyAfterWindow(t *testing.T) {
	now := time.Unix(0, 0)
	key, err := GenerateKey()
	require.NoError(t, err)
	km, err := newWithClock(key, func() time.Time { return now })
	require.NoError(t, err)

	ciphertext, err := km.Encrypt([]byte("old data"))
	require.NoError(t, err)

	require.NoError(t, km.RotateKey(10*time.Second))
	now = now.Add(11 * time.Second)

	_, err = km.Decrypt(ciphertext)
	assert.Error(t, err)
}

func TestDeriveKeyIsDeterministic(t *testing.T) {
	k1 := DeriveKey("cluster-123")
	k2 := DeriveKey("cluster-123")
	assert.Equal(t, k1, k2)
	assert.Len(t, k1, KeySize)

	k3 := DeriveKey("cluster-456")
	assert.NotEqual(t, k1, k3)
}

func TestNewFromEnvMissingVar(t *testing.T) {
	t.Setenv(ClusterKeyEnvVar, "")
	_, err := NewFromEnv()
	assert.Error(t, err)
}

func TestCurrentVersionChangesOnRotation(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)
	km, err := New(key)
	require.NoError(t, err)

	v1 := km.CurrentVersion()
	assert.NotEmpty(t, v1)

	require.NoError(t, km.RotateKey(time.Second))
	v2 := km.CurrentVersion()
	assert.NotEmpty(t, v2)
	assert.NotEqual(t, v1, v2)
}

func TestNewFromEnvValidHex(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)
	t.Setenv(ClusterKeyEnvVar, hex.EncodeToString(key))

	km, err := NewFromEnv()
	require.NoError(t, err)
	require.NotNil(t, km)
}
