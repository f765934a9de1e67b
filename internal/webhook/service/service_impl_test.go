package service_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	bankaccountdomain "github.com/smallbiznis/bankpay/internal/bankaccount/domain"
	bankaccountservice "github.com/smallbiznis/bankpay/internal/bankaccount/service"
	"github.com/smallbiznis/bankpay/internal/clock"
	"github.com/smallbiznis/bankpay/internal/config"
	"github.com/smallbiznis/bankpay/internal/metafield/metafieldtest"
	transactiondomain "github.com/smallbiznis/bankpay/internal/transaction/domain"
	transactionservice "github.com/smallbiznis/bankpay/internal/transaction/service"
	"github.com/smallbiznis/bankpay/internal/webhook/domain"
	"github.com/smallbiznis/bankpay/internal/webhook/service"
	webhookeventdomain "github.com/smallbiznis/bankpay/internal/webhookevent/domain"
	webhookeventservice "github.com/smallbiznis/bankpay/internal/webhookevent/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const (
	shop          = "demo.myshopify.com"
	appSecret     = "shopify-secret"
	webhookSecret = "fingrid-secret"
)

type harness struct {
	svc          domain.Service
	events       webhookeventdomain.Service
	banks        bankaccountdomain.Service
	transactions transactiondomain.Service
}

func newHarness(t *testing.T) harness {
	t.Helper()
	return newHarnessWithLog(t, zap.NewNop())
}

func newHarnessWithLog(t *testing.T, log *zap.Logger) harness {
	t.Helper()
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	store := metafieldtest.NewStore(t, clk)
	node, err := snowflake.NewNode(3)
	require.NoError(t, err)

	var cfg config.Config
	cfg.Shopify.APISecret = appSecret
	cfg.Vendor.WebhookSecret = webhookSecret

	events := webhookeventservice.New(webhookeventservice.Params{
		Log:     zap.NewNop(),
		Store:   store,
		Clock:   clk,
		GenID:   node,
		Gateway: config.NewStaticGatewayConfigHolder(config.DefaultGatewayConfig()),
	})
	banks := bankaccountservice.New(bankaccountservice.Params{Log: zap.NewNop(), Store: store, Clock: clk})
	transactions := transactionservice.New(transactionservice.Params{Log: zap.NewNop(), Store: store, Clock: clk})

	svc := service.New(service.Params{
		Cfg:          cfg,
		Log:          log,
		Events:       events,
		Banks:        banks,
		Transactions: transactions,
	})
	return harness{svc: svc, events: events, banks: banks, transactions: transactions}
}

func shopifyHeaders(payload []byte, webhookID string) http.Header {
	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(payload)
	h := http.Header{}
	h.Set(domain.HeaderShopifyHmac, base64.StdEncoding.EncodeToString(mac.Sum(nil)))
	h.Set(domain.HeaderShopifyShop, shop)
	h.Set(domain.HeaderShopifyWebhookID, webhookID)
	return h
}

func fingridHeaders(payload []byte) http.Header {
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	mac.Write(payload)
	h := http.Header{}
	h.Set(domain.HeaderFingridSignature, hex.EncodeToString(mac.Sum(nil)))
	return h
}

func TestIngestShopifyOrderPaid(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	payload := []byte(`{"id":820982911946154508,"name":"#1001"}`)

	res, err := h.svc.IngestShopify(ctx, "orders/paid", payload, shopifyHeaders(payload, "wh_1"))
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
	assert.True(t, res.Event.Processed)

	logged, err := h.events.List(ctx, shop)
	require.NoError(t, err)
	require.Len(t, logged, 1)
	assert.Equal(t, "wh_1", logged[0].WebhookID)
	assert.Equal(t, "orders/paid", logged[0].EventType)
	assert.Equal(t, "820982911946154508", logged[0].TransactionID)
	assert.Equal(t, webhookeventdomain.SourceShopify, logged[0].Source)
	assert.True(t, logged[0].Processed)
}

func TestIngestShopifyTopicFromHeader(t *testing.T) {
	h := newHarness(t)
	payload := []byte(`{"id":5}`)
	headers := shopifyHeaders(payload, "wh_2")
	headers.Set(domain.HeaderShopifyTopic, "orders/paid")

	res, err := h.svc.IngestShopify(context.Background(), "", payload, headers)
	require.NoError(t, err)
	assert.Equal(t, "orders/paid", res.Event.EventType)
}

func TestIngestShopifyRejectsBadSignature(t *testing.T) {
	h := newHarness(t)
	payload := []byte(`{"id":5}`)
	headers := shopifyHeaders(payload, "wh_3")

	_, err := h.svc.IngestShopify(context.Background(), "orders/paid", []byte(`{"id":6}`), headers)
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)

	logged, err := h.events.List(context.Background(), shop)
	require.NoError(t, err)
	assert.Empty(t, logged)
}

func TestIngestShopifyIgnoresOtherTopics(t *testing.T) {
	h := newHarness(t)
	payload := []byte(`{"id":5}`)

	_, err := h.svc.IngestShopify(context.Background(), "products/update", payload, shopifyHeaders(payload, "wh_4"))
	assert.ErrorIs(t, err, domain.ErrEventIgnored)
}

func TestIngestShopifyRequiresShop(t *testing.T) {
	h := newHarness(t)
	payload := []byte(`{"id":5}`)
	headers := shopifyHeaders(payload, "wh_5")
	headers.Del(domain.HeaderShopifyShop)

	_, err := h.svc.IngestShopify(context.Background(), "orders/paid", payload, headers)
	assert.ErrorIs(t, err, domain.ErrMissingShop)
}

func TestIngestShopifyDataRequestExportsBanks(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.banks.Add(ctx, shop, "191167", bankaccountdomain.BankAccount{
		Token:    "btok_secret_9876",
		BankName: "First Bank",
		Last4:    "6789",
	})
	require.NoError(t, err)

	payload := []byte(`{"shop_domain":"demo.myshopify.com","customer":{"id":191167,"email":"a@b.co"},"data_request":{"id":9999}}`)
	res, err := h.svc.IngestShopify(ctx, "customers/data_request", payload, shopifyHeaders(payload, "wh_6"))
	require.NoError(t, err)
	require.Len(t, res.Export, 1)
	assert.Equal(t, "****9876", res.Export[0].TokenHint)
	assert.Equal(t, "First Bank", res.Export[0].BankName)
}

func TestIngestShopifyDuplicateSkipsReprocessing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	payload := []byte(`{"id":5}`)

	_, err := h.svc.IngestShopify(ctx, "orders/paid", payload, shopifyHeaders(payload, "wh_7"))
	require.NoError(t, err)
	res, err := h.svc.IngestShopify(ctx, "orders/paid", payload, shopifyHeaders(payload, "wh_7"))
	require.NoError(t, err)
	assert.True(t, res.Duplicate)

	logged, err := h.events.List(ctx, shop)
	require.NoError(t, err)
	assert.Len(t, logged, 1)
}

func seedRecord(t *testing.T, h harness, orderID string, status transactiondomain.Status) {
	t.Helper()
	_, err := h.transactions.LinkToOrder(context.Background(), shop, orderID, transactiondomain.Record{
		TransactionID:   "tx_" + orderID,
		BankToken:       "btok_1",
		Status:          status,
		Amount:          decimal.RequireFromString("25.00"),
		Currency:        "USD",
		TransactionType: transactiondomain.TypeCharge,
	})
	require.NoError(t, err)
}

func TestIngestFingridCompletesTransaction(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	seedRecord(t, h, "1001", transactiondomain.StatusPending)

	payload := []byte(`{"event_id":"evt_1","transaction_id":"tx_1001","order_id":"1001","shop":"demo.myshopify.com","status":"completed","event_type":"transaction.completed"}`)
	res, err := h.svc.IngestFingrid(ctx, payload, fingridHeaders(payload))
	require.NoError(t, err)
	assert.True(t, res.Event.Processed)

	record, err := h.transactions.Get(ctx, shop, "1001")
	require.NoError(t, err)
	assert.Equal(t, transactiondomain.StatusCompleted, record.Status)
	assert.NotNil(t, record.UpdatedAt)
}

func TestIngestFingridRejectedTransitionIsHandled(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	seedRecord(t, h, "1002", transactiondomain.StatusFailed)

	payload := []byte(`{"event_id":"evt_2","order_id":"1002","shop":"demo.myshopify.com","status":"completed"}`)
	res, err := h.svc.IngestFingrid(ctx, payload, fingridHeaders(payload))
	require.NoError(t, err)
	assert.True(t, res.Event.Processed)
	assert.Equal(t, "transaction.completed", res.Event.EventType)

	record, err := h.transactions.Get(ctx, shop, "1002")
	require.NoError(t, err)
	assert.Equal(t, transactiondomain.StatusFailed, record.Status)
}

func TestIngestFingridUnknownOrderIsLogged(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	payload := []byte(`{"event_id":"evt_3","order_id":"404","shop":"demo.myshopify.com","status":"failed"}`)
	_, err := h.svc.IngestFingrid(ctx, payload, fingridHeaders(payload))
	require.NoError(t, err)

	logged, err := h.events.List(ctx, shop)
	require.NoError(t, err)
	require.Len(t, logged, 1)
	assert.True(t, logged[0].Processed)
}

func TestIngestFingridValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	payload := []byte(`{"event_id":"evt_4","status":"completed"}`)
	_, err := h.svc.IngestFingrid(ctx, payload, fingridHeaders(payload))
	assert.ErrorIs(t, err, domain.ErrMissingShop)

	payload = []byte(`not json`)
	_, err = h.svc.IngestFingrid(ctx, payload, fingridHeaders(payload))
	assert.ErrorIs(t, err, domain.ErrInvalidPayload)

	payload = []byte(`{"event_id":"evt_5","shop":"demo.myshopify.com"}`)
	_, err = h.svc.IngestFingrid(ctx, payload, http.Header{})
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)
}

func TestIngestFingridDuplicateDoesNotReapply(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	seedRecord(t, h, "1003", transactiondomain.StatusPending)

	payload := []byte(`{"event_id":"evt_6","order_id":"1003","shop":"demo.myshopify.com","status":"completed"}`)
	_, err := h.svc.IngestFingrid(ctx, payload, fingridHeaders(payload))
	require.NoError(t, err)

	_, err = h.transactions.Transition(ctx, shop, "1003", transactiondomain.StatusRefunded)
	require.NoError(t, err)

	res, err := h.svc.IngestFingrid(ctx, payload, fingridHeaders(payload))
	require.NoError(t, err)
	assert.True(t, res.Duplicate)

	record, err := h.transactions.Get(ctx, shop, "1003")
	require.NoError(t, err)
	assert.Equal(t, transactiondomain.StatusRefunded, record.Status)
}

func TestIngestFingridSettledTransactionIsLeftAlone(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := newHarnessWithLog(t, zap.New(core))
	ctx := context.Background()
	seedRecord(t, h, "1004", transactiondomain.StatusCancelled)

	payload := []byte(`{"event_id":"evt_7","order_id":"1004","shop":"demo.myshopify.com","status":"completed"}`)
	res, err := h.svc.IngestFingrid(ctx, payload, fingridHeaders(payload))
	require.NoError(t, err)
	assert.True(t, res.Event.Processed)

	record, err := h.transactions.Get(ctx, shop, "1004")
	require.NoError(t, err)
	assert.Equal(t, transactiondomain.StatusCancelled, record.Status)
	assert.Nil(t, record.UpdatedAt)

	assert.Equal(t, 1, logs.FilterMessage("fingrid webhook for settled transaction ignored").Len())
	assert.Zero(t, logs.FilterMessage("fingrid webhook status transition rejected").Len())
}
