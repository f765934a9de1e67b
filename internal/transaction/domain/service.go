package domain

import (
	"context"
	"errors"
)

type Service interface {
	// LinkToOrder stores record as the order's transaction, replacing any
	// previous one.
	LinkToOrder(ctx context.Context, shop, orderID string, record Record) (Record, error)
	// Get returns ErrNotFound when the order has no readable record.
	Get(ctx context.Context, shop, orderID string) (Record, error)
	Transition(ctx context.Context, shop, orderID string, next Status) (Record, error)
	// Update applies fn to the stored record and enforces the status rules
	// on whatever status fn sets.
	Update(ctx context.Context, shop, orderID string, fn func(*Record)) (Record, error)
}

var (
	ErrInvalidShop       = errors.New("invalid_shop")
	ErrInvalidOrder      = errors.New("invalid_order")
	ErrInvalidStatus     = errors.New("invalid_status")
	ErrInvalidTransition = errors.New("invalid_transition")
	ErrNotFound          = errors.New("transaction_not_found")
)
