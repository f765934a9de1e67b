package domain

import (
	"context"
	"errors"
)

type Service interface {
	// Append records event as unprocessed. The log keeps only the newest
	// entries up to the configured capacity. An event whose WebhookID is
	// already logged is not appended again and duplicate is true.
	Append(ctx context.Context, shop string, event Event) (stored Event, duplicate bool, err error)
	MarkProcessed(ctx context.Context, shop, webhookID string) error
	// List returns the log oldest first.
	List(ctx context.Context, shop string) ([]Event, error)
}

var (
	ErrInvalidShop = errors.New("invalid_shop")
	ErrNotFound    = errors.New("webhook_event_not_found")
)
