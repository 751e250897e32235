// Package crypto provides AES-256-GCM envelope encryption over in-memory
// byte buffers, adapted from other_examples' evalgo-org-eve/security
// (file-in/file-out) to a buffer-in/buffer-out shape. No other package in
// this module imports it.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
)

// deriveKey hashes an arbitrary-length passphrase down to a 32-byte
// AES-256 key, matching the teacher's sha256.Sum256(pass) derivation.
func deriveKey(kek string) [32]byte {
	return sha256.Sum256([]byte(kek))
}

// Encrypt seals plaintext under kek, returning nonce||ciphertext||tag.
func Encrypt(kek string, plaintext []byte) ([]byte, error) {
	key := deriveKey(kek)

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens a buffer produced by Encrypt. A wrong kek or any
// single-byte modification of nonce/ciphertext/tag returns an error.
func Decrypt(kek string, sealed []byte) ([]byte, error) {
	key := deriveKey(kek)

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(sealed) < nonceSize {
		return nil, errors.New("crypto: ciphertext too short")
	}

	nonce, ciphertext := sealed[:nonceSize], sealed[nonceSize:]

	return gcm.Open(nil, nonce, ciphertext, nil)
}
