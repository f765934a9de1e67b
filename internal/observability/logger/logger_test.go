package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRedactMasksCredentials(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	log := zap.New(Redact(core))

	log.With(zap.String("client_secret", "cs_live_abc")).Info("charge",
		zap.String("bank_token", "btok_1234567890"),
		zap.String("public_token", "pub_1"),
		zap.String("order_id", "1001"),
	)

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "****7890", fields["bank_token"])
	assert.Equal(t, "[redacted]", fields["public_token"])
	assert.Equal(t, "[redacted]", fields["client_secret"])
	assert.Equal(t, "1001", fields["order_id"])
}

func TestRedactShortTokenFullyMasked(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	zap.New(Redact(core)).Info("x", zap.String("bank_token", "abc"))

	require.Len(t, logs.All(), 1)
	assert.Equal(t, "[redacted]", logs.All()[0].ContextMap()["bank_token"])
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(nil, Config{Level: "loud"})
	assert.Error(t, err)
}
