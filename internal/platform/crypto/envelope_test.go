package crypto_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barazo-forum/barazo-api/internal/platform/crypto"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	plaintext := []byte("oauth-state-payload")

	sealed, err := crypto.Encrypt("correct-horse-battery-staple", plaintext)
	require.NoError(t, err)

	opened, err := crypto.Decrypt("correct-horse-battery-staple", sealed)
	require.NoError(t, err)
	assert.Equal(t, plaintext, opened)
}

func TestDecryptWrongKEK(t *testing.T) {
	sealed, err := crypto.Encrypt("kek-a", []byte("secret"))
	require.NoError(t, err)

	_, err = crypto.Decrypt("kek-b", sealed)
	assert.Error(t, err)
}

func TestDecryptTamperedCiphertext(t *testing.T) {
	sealed, err := crypto.Encrypt("kek", []byte("secret"))
	require.NoError(t, err)

	for _, idx := range []int{0, len(sealed) / 2, len(sealed) - 1} {
		tampered := append([]byte(nil), sealed...)
		tampered[idx] ^= 0xFF

		_, err := crypto.Decrypt("kek", tampered)
		assert.Errorf(t, err, "expected tamper at byte %d to be detected", idx)
	}
}

func TestDecryptTooShort(t *testing.T) {
	_, err := crypto.Decrypt("kek", []byte("short"))
	assert.Error(t, err)
}
