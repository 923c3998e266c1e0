package crypto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() []byte {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

func TestSealOpenRoundtrip(t *testing.T) {
	key := testKey()
	plaintext := []byte(`{"username":"admin","password":"hunter2"}`)
	aad := []byte("home")

	blob, err := Seal(key, plaintext, aad)
	require.NoError(t, err)
	assert.NotContains(t, string(blob), "hunter2", "ciphertext must not contain the plaintext")

	got, err := Open(key, blob, aad)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestSealProducesFreshNonce(t *testing.T) {
	key := testKey()
	a, err := Seal(key, []byte("secret"), nil)
	require.NoError(t, err)
	b, err := Seal(key, []byte("secret"), nil)
	require.NoError(t, err)
	assert.False(t, bytes.Equal(a, b), "two seals of the same plaintext must differ")
}

func TestOpenRejectsTamperedBlob(t *testing.T) {
	key := testKey()
	blob, err := Seal(key, []byte("secret"), nil)
	require.NoError(t, err)

	blob[len(blob)-1] ^= 0xff
	_, err = Open(key, blob, nil)
	assert.ErrorIs(t, err, ErrDecryption)
}

func TestOpenRejectsWrongAAD(t *testing.T) {
	key := testKey()
	blob, err := Seal(key, []byte("secret"), []byte("profile-a"))
	require.NoError(t, err)

	_, err = Open(key, blob, []byte("profile-b"))
	assert.ErrorIs(t, err, ErrDecryption)
}

func TestOpenRejectsShortBlob(t *testing.T) {
	_, err := Open(testKey(), []byte{1, 2, 3}, nil)
	assert.ErrorIs(t, err, ErrDecryption)
}

func TestInvalidKeySize(t *testing.T) {
	_, err := Seal([]byte("short"), []byte("x"), nil)
	assert.ErrorIs(t, err, ErrInvalidKeySize)
	_, err = Open([]byte("short"), []byte("x"), nil)
	assert.ErrorIs(t, err, ErrInvalidKeySize)
}

func TestDeriveKeyDeterministic(t *testing.T) {
	salt := []byte("0123456789abcdef")
	k1, err := DeriveKey([]byte("secret"), salt)
	require.NoError(t, err)
	k2, err := DeriveKey([]byte("secret"), salt)
	require.NoError(t, err)
	assert.Equal(t, k1, k2)
	assert.Len(t, k1, 32)

	k3, err := DeriveKey([]byte("secret"), []byte("fedcba9876543210"))
	require.NoError(t, err)
	assert.NotEqual(t, k1, k3, "different salts must derive different keys")
}
