package domain

import (
	"context"
	"errors"
	"net/http"

	bankaccountdomain "github.com/smallbiznis/bankpay/internal/bankaccount/domain"
	webhookeventdomain "github.com/smallbiznis/bankpay/internal/webhookevent/domain"
)

const (
	TopicOrdersPaid          = "orders/paid"
	TopicCustomerDataRequest = "customers/data_request"
)

const (
	HeaderShopifyHmac      = "X-Shopify-Hmac-Sha256"
	HeaderShopifyShop      = "X-Shopify-Shop-Domain"
	HeaderShopifyTopic     = "X-Shopify-Topic"
	HeaderShopifyWebhookID = "X-Shopify-Webhook-Id"
	HeaderFingridSignature = "X-Fingrid-Signature"
)

type Service interface {
	// IngestShopify verifies and logs one Shopify delivery. topic may be
	// empty, in which case the X-Shopify-Topic header names it.
	IngestShopify(ctx context.Context, topic string, payload []byte, headers http.Header) (Result, error)
	// IngestFingrid verifies and logs one processor delivery and moves the
	// order's transaction to the reported status.
	IngestFingrid(ctx context.Context, payload []byte, headers http.Header) (Result, error)
}

type Result struct {
	Event     webhookeventdomain.Event
	Duplicate bool
	// Export is set for customer data requests.
	Export []bankaccountdomain.ExportedAccount
}

// FingridEvent is the processor's webhook body.
type FingridEvent struct {
	EventID       string `json:"event_id"`
	TransactionID string `json:"transaction_id"`
	OrderID       string `json:"order_id"`
	Shop          string `json:"shop"`
	Status        string `json:"status"`
	EventType     string `json:"event_type"`
}

var (
	ErrInvalidSignature    = errors.New("invalid_signature")
	ErrInvalidPayload      = errors.New("invalid_payload")
	ErrMissingShop         = errors.New("missing_shop")
	ErrSecretNotConfigured = errors.New("webhook_secret_not_configured")
	ErrEventIgnored        = errors.New("event_ignored")
)
