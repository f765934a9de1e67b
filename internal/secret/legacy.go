package secret

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"encoding/base64"
	"strings"
)

// Secrets written by the previous storefront backend use the OpenSSL
// "Salted__" envelope: AES-256-CBC with an EVP_BytesToKey(MD5) derived key.
// They are only ever decrypted; Encrypt always emits the v1 format.
const legacyMagic = "U2FsdGVkX1"

func isLegacy(value string) bool {
	return strings.HasPrefix(value, legacyMagic)
}

func decryptLegacy(passphrase, value string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil || len(raw) < 16+aes.BlockSize || !bytes.HasPrefix(raw, []byte("Salted__")) {
		return "", ErrMalformedCiphertext
	}
	salt := raw[8:16]
	body := raw[16:]
	if len(body)%aes.BlockSize != 0 {
		return "", ErrMalformedCiphertext
	}

	key, iv := evpBytesToKey([]byte(passphrase), salt, 32, aes.BlockSize)
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	plain := make([]byte, len(body))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, body)

	pad := int(plain[len(plain)-1])
	if pad == 0 || pad > aes.BlockSize || pad > len(plain) {
		return "", ErrDecryptFailed
	}
	for _, b := range plain[len(plain)-pad:] {
		if int(b) != pad {
			return "", ErrDecryptFailed
		}
	}
	return string(plain[:len(plain)-pad]), nil
}

func evpBytesToKey(password, salt []byte, keyLen, ivLen int) ([]byte, []byte) {
	var (
		out  []byte
		prev []byte
	)
	for len(out) < keyLen+ivLen {
		h := md5.New()
		h.Write(prev)
		h.Write(password)
		h.Write(salt)
		prev = h.Sum(nil)
		out = append(out, prev...)
	}
	return out[:keyLen], out[keyLen : keyLen+ivLen]
}
