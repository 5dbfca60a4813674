// Package crypto implements the cryptographic infrastructure: at-rest
// encryption of private keys, RSA keypair generation, the signing key
// lifecycle manager and password hashing.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"io"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/constants"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/errors"
)

// KeyCipher encrypts and decrypts private key material with AES-256-GCM
// under the service master secret. The sealed layout is the random 12-byte
// nonce followed by the ciphertext; the nonce is fresh per encryption.
type KeyCipher struct {
	aead cipher.AEAD
}

// NewKeyCipher creates a cipher from a 32-byte master secret.
//
// Parameters:
//   - masterSecret: exactly 32 bytes of key material
//
// Returns:
//   - *KeyCipher: ready cipher
//   - error: encryption_failed when the secret has the wrong length
func NewKeyCipher(masterSecret []byte) (*KeyCipher, error) {
	if len(masterSecret) != constants.MasterKeySize {
		return nil, errors.ErrEncryptionFailed("master secret must be exactly 32 bytes")
	}

	block, err := aes.NewCipher(masterSecret)
	if err != nil {
		return nil, errors.Wrap(err, constants.ErrCodeEncryptionFailed, "failed to initialize cipher")
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Wrap(err, constants.ErrCodeEncryptionFailed, "failed to initialize GCM")
	}

	return &KeyCipher{aead: aead}, nil
}

// Encrypt seals plaintext and returns nonce||ciphertext
func (c *KeyCipher) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, errors.Wrap(err, constants.ErrCodeEncryptionFailed, "failed to generate nonce")
	}

	sealed := c.aead.Seal(nil, nonce, plaintext, nil)
	out := make([]byte, 0, len(nonce)+len(sealed))
	out = append(out, nonce...)
	out = append(out, sealed...)
	return out, nil
}

// Decrypt opens a nonce||ciphertext blob. Tampered or truncated input
// fails authentication and returns an encryption_failed error.
func (c *KeyCipher) Decrypt(blob []byte) ([]byte, error) {
	nonceSize := c.aead.NonceSize()
	if len(blob) <= nonceSize {
		return nil, errors.ErrEncryptionFailed("encrypted blob is too short")
	}

	nonce, ciphertext := blob[:nonceSize], blob[nonceSize:]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, errors.Wrap(err, constants.ErrCodeEncryptionFailed, "decryption failed")
	}
	return plaintext, nil
}
