package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnsureCorrelationIDIsStable(t *testing.T) {
	ctx, first := EnsureCorrelationID(context.Background())
	assert.Len(t, first, 26)

	_, second := EnsureCorrelationID(ctx)
	assert.Equal(t, first, second)
}

func TestBlankValuesAreIgnored(t *testing.T) {
	ctx := WithShop(WithRequestID(context.Background(), "  "), "")

	assert.Empty(t, RequestIDFromContext(ctx))
	assert.Empty(t, ShopFromContext(ctx))
	assert.Empty(t, ShopFromContext(nil))
}
