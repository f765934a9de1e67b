package tracing

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

type kindErr struct{}

func (kindErr) Error() string { return "bank token tok_123 rejected" }
func (kindErr) Kind() string  { return "vendor_error" }

func TestSafeAttributesAllowlist(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("http.route", "/api/fingrid/process-payment"),
		attribute.String("bank_token", "tok_123"),
	)
	assert.Equal(t, []attribute.KeyValue{attribute.String("http.route", "/api/fingrid/process-payment")}, attrs)
}

func TestSafeErrorDropsMessage(t *testing.T) {
	assert.Nil(t, SafeError(nil))
	assert.EqualError(t, SafeError(fmt.Errorf("wrap: %w", kindErr{})), "vendor_error")
	assert.EqualError(t, SafeError(errors.New("secret detail")), "internal_error")
}
