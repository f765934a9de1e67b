package domain

import (
	"encoding/json"
	"time"
)

const (
	SourceShopify = "shopify"
	SourceFingrid = "fingrid"
)

// Event is one received webhook as kept in the shop's event log.
type Event struct {
	WebhookID     string          `json:"webhookId"`
	Source        string          `json:"source,omitempty"`
	TransactionID string          `json:"transactionId"`
	EventType     string          `json:"eventType"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	Processed     bool            `json:"processed"`
	Timestamp     time.Time       `json:"timestamp"`
	ProcessedAt   *time.Time      `json:"processedAt,omitempty"`
}
