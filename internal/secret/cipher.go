package secret

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"strings"

	"github.com/smallbiznis/bankpay/internal/config"
	"golang.org/x/crypto/hkdf"
)

const prefix = "enc:v1:"

var (
	ErrEncryptionKeyMissing = errors.New("encryption_key_missing")
	ErrMalformedCiphertext  = errors.New("malformed_ciphertext")
	ErrDecryptFailed        = errors.New("decrypt_failed")
)

// Cipher encrypts short string secrets with AES-256-GCM. Encrypted values are
// self-describing ("enc:v1:<nonce>.<ciphertext>") so callers can tell them
// apart from plaintext.
type Cipher struct {
	key        []byte
	passphrase string
}

func New(cfg config.Config) *Cipher {
	return NewWithKey(cfg.EncryptionKey)
}

func NewWithKey(passphrase string) *Cipher {
	passphrase = strings.TrimSpace(passphrase)
	c := &Cipher{passphrase: passphrase}
	if passphrase == "" {
		return c
	}
	key := make([]byte, 32)
	kdf := hkdf.New(sha256.New, []byte(passphrase), nil, []byte("bankpay settings secret v1"))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return c
	}
	c.key = key
	return c
}

// IsEncrypted reports whether value is already ciphertext, in the current
// format or the legacy OpenSSL-salted one.
func IsEncrypted(value string) bool {
	return strings.HasPrefix(value, prefix) || isLegacy(value)
}

// Encrypt is idempotent: empty strings and values that are already encrypted
// are returned unchanged.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" || IsEncrypted(plaintext) {
		return plaintext, nil
	}
	gcm, err := c.aead()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := gcm.Seal(nil, nonce, []byte(plaintext), nil)

	return prefix +
		base64.RawStdEncoding.EncodeToString(nonce) + "." +
		base64.RawStdEncoding.EncodeToString(sealed), nil
}

// Decrypt returns plaintext input unchanged.
func (c *Cipher) Decrypt(value string) (string, error) {
	switch {
	case value == "":
		return "", nil
	case isLegacy(value):
		if c.passphrase == "" {
			return "", ErrEncryptionKeyMissing
		}
		return decryptLegacy(c.passphrase, value)
	case !strings.HasPrefix(value, prefix):
		return value, nil
	}

	parts := strings.SplitN(strings.TrimPrefix(value, prefix), ".", 2)
	if len(parts) != 2 {
		return "", ErrMalformedCiphertext
	}
	nonce, err := base64.RawStdEncoding.DecodeString(parts[0])
	if err != nil {
		return "", ErrMalformedCiphertext
	}
	sealed, err := base64.RawStdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", ErrMalformedCiphertext
	}

	gcm, err := c.aead()
	if err != nil {
		return "", err
	}
	if len(nonce) != gcm.NonceSize() {
		return "", ErrMalformedCiphertext
	}
	plain, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrDecryptFailed
	}
	return string(plain), nil
}

func (c *Cipher) aead() (cipher.AEAD, error) {
	if len(c.key) == 0 {
		return nil, ErrEncryptionKeyMissing
	}
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
