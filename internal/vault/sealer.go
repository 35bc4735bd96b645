package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"io"

	"golang.org/x/crypto/argon2"
)

const (
	saltLen      = 16
	keyLen       = 32 // AES-256
	argonTime    = 1
	argonMem     = 64 * 1024 // 64 MB
	argonThreads = 4
)

var errShortCiphertext = errors.New("ciphertext too short")

// sealer encrypts store payloads with an AES-256-GCM key derived from the
// master password with Argon2id.
type sealer struct {
	salt []byte
	aead cipher.AEAD
}

func newSealer(password, salt []byte) (*sealer, error) {
	block, err := aes.NewCipher(argon2.IDKey(password, salt, argonTime, argonMem, argonThreads, keyLen))
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &sealer{salt: salt, aead: aead}, nil
}

func newSalt() ([]byte, error) {
	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}
	return salt, nil
}

// seal returns nonce || ciphertext. The salt is bound as additional data so
// a store cannot be re-salted without detection.
func (s *sealer) seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return s.aead.Seal(nonce, nonce, plaintext, s.salt), nil
}

func (s *sealer) open(data []byte) ([]byte, error) {
	n := s.aead.NonceSize()
	if len(data) < n {
		return nil, errShortCiphertext
	}
	return s.aead.Open(nil, data[:n], data[n:], s.salt)
}
