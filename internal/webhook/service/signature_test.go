package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"testing"

	"github.com/smallbiznis/bankpay/internal/webhook/domain"
	"github.com/stretchr/testify/assert"
)

func TestVerifyShopify(t *testing.T) {
	payload := []byte(`{"id":1001}`)
	mac := hmac.New(sha256.New, []byte("shh"))
	mac.Write(payload)
	good := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	cases := []struct {
		name   string
		secret string
		header string
		want   error
	}{
		{name: "valid", secret: "shh", header: good, want: nil},
		{name: "wrong secret", secret: "other", header: good, want: domain.ErrInvalidSignature},
		{name: "missing header", secret: "shh", header: "", want: domain.ErrInvalidSignature},
		{name: "hex instead of base64", secret: "shh", header: hex.EncodeToString([]byte(good)), want: domain.ErrInvalidSignature},
		{name: "no secret", secret: "", header: good, want: domain.ErrSecretNotConfigured},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			headers := http.Header{}
			if tc.header != "" {
				headers.Set(domain.HeaderShopifyHmac, tc.header)
			}
			err := VerifyShopify(tc.secret, payload, headers)
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestVerifyFingridAcceptsPrefixedSignature(t *testing.T) {
	payload := []byte(`{"event_id":"evt_1"}`)
	mac := hmac.New(sha256.New, []byte("vendor-secret"))
	mac.Write(payload)
	sig := hex.EncodeToString(mac.Sum(nil))

	headers := http.Header{}
	headers.Set(domain.HeaderFingridSignature, sig)
	assert.NoError(t, VerifyFingrid("vendor-secret", payload, headers))

	headers.Set(domain.HeaderFingridSignature, "sha256="+sig)
	assert.NoError(t, VerifyFingrid("vendor-secret", payload, headers))

	assert.ErrorIs(t, VerifyFingrid("vendor-secret", []byte(`{"event_id":"evt_2"}`), headers), domain.ErrInvalidSignature)
}
