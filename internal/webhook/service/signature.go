package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/smallbiznis/bankpay/internal/webhook/domain"
)

// VerifyShopify checks the base64 HMAC-SHA256 Shopify computes over the raw
// body with the app secret.
func VerifyShopify(secret string, payload []byte, headers http.Header) error {
	if strings.TrimSpace(secret) == "" {
		return domain.ErrSecretNotConfigured
	}
	signature := strings.TrimSpace(headers.Get(domain.HeaderShopifyHmac))
	if signature == "" {
		return domain.ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(payload)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return domain.ErrInvalidSignature
	}
	return nil
}

// VerifyFingrid checks the hex HMAC-SHA256 signature header. A "sha256="
// prefix is accepted.
func VerifyFingrid(secret string, payload []byte, headers http.Header) error {
	if strings.TrimSpace(secret) == "" {
		return domain.ErrSecretNotConfigured
	}
	signature := strings.TrimSpace(headers.Get(domain.HeaderFingridSignature))
	signature = strings.ToLower(strings.TrimPrefix(signature, "sha256="))
	if signature == "" {
		return domain.ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return domain.ErrInvalidSignature
	}
	return nil
}
