package service_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bankpay/internal/clock"
	"github.com/smallbiznis/bankpay/internal/config"
	"github.com/smallbiznis/bankpay/internal/metafield/metafieldtest"
	"github.com/smallbiznis/bankpay/internal/webhookevent/domain"
	"github.com/smallbiznis/bankpay/internal/webhookevent/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const shop = "demo.myshopify.com"

func newService(t *testing.T, capacity int) (domain.Service, *clock.FakeClock) {
	t.Helper()
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	gw := config.DefaultGatewayConfig()
	gw.WebhookLogCapacity = capacity

	svc := service.New(service.Params{
		Log:     zap.NewNop(),
		Store:   metafieldtest.NewStore(t, clk),
		Clock:   clk,
		GenID:   node,
		Gateway: config.NewStaticGatewayConfigHolder(gw),
	})
	return svc, clk
}

func TestAppendStampsAndLists(t *testing.T) {
	svc, clk := newService(t, 1000)
	ctx := context.Background()

	stored, dup, err := svc.Append(ctx, shop, domain.Event{
		WebhookID:     "evt_1",
		TransactionID: "tx_1",
		EventType:     "transaction.completed",
		Payload:       json.RawMessage(`{"status":"completed"}`),
		Processed:     true,
	})
	require.NoError(t, err)
	assert.False(t, dup)
	assert.False(t, stored.Processed)
	assert.Equal(t, clk.Now(), stored.Timestamp)

	got, err := svc.List(ctx, shop)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "evt_1", got[0].WebhookID)
	assert.JSONEq(t, `{"status":"completed"}`, string(got[0].Payload))
}

func TestAppendGeneratesID(t *testing.T) {
	svc, _ := newService(t, 1000)

	stored, _, err := svc.Append(context.Background(), shop, domain.Event{EventType: "orders/paid"})
	require.NoError(t, err)
	assert.NotEmpty(t, stored.WebhookID)
}

func TestAppendIgnoresDuplicates(t *testing.T) {
	svc, _ := newService(t, 1000)
	ctx := context.Background()

	_, _, err := svc.Append(ctx, shop, domain.Event{WebhookID: "evt_1", EventType: "a"})
	require.NoError(t, err)
	stored, dup, err := svc.Append(ctx, shop, domain.Event{WebhookID: "evt_1", EventType: "b"})
	require.NoError(t, err)
	assert.True(t, dup)
	assert.Equal(t, "a", stored.EventType)

	got, err := svc.List(ctx, shop)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestLogIsCappedOldestFirst(t *testing.T) {
	svc, _ := newService(t, 3)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		_, _, err := svc.Append(ctx, shop, domain.Event{WebhookID: fmt.Sprintf("evt_%d", i)})
		require.NoError(t, err)
	}

	got, err := svc.List(ctx, shop)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "evt_3", got[0].WebhookID)
	assert.Equal(t, "evt_5", got[2].WebhookID)
}

func TestDefaultCapacityIsOneThousand(t *testing.T) {
	svc, _ := newService(t, config.DefaultGatewayConfig().WebhookLogCapacity)
	ctx := context.Background()

	for i := 0; i < 1001; i++ {
		_, _, err := svc.Append(ctx, shop, domain.Event{WebhookID: fmt.Sprintf("evt_%d", i)})
		require.NoError(t, err)
	}

	got, err := svc.List(ctx, shop)
	require.NoError(t, err)
	require.Len(t, got, 1000)
	assert.Equal(t, "evt_1", got[0].WebhookID)
	assert.Equal(t, "evt_1000", got[999].WebhookID)
}

func TestMarkProcessed(t *testing.T) {
	svc, clk := newService(t, 1000)
	ctx := context.Background()

	_, _, err := svc.Append(ctx, shop, domain.Event{WebhookID: "evt_1"})
	require.NoError(t, err)

	clk.Advance(time.Second)
	require.NoError(t, svc.MarkProcessed(ctx, shop, "evt_1"))
	assert.ErrorIs(t, svc.MarkProcessed(ctx, shop, "evt_missing"), domain.ErrNotFound)

	got, err := svc.List(ctx, shop)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Processed)
	require.NotNil(t, got[0].ProcessedAt)
	assert.True(t, clk.Now().Equal(*got[0].ProcessedAt))
}
