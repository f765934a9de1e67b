package domain

import (
	"context"
	"errors"
)

type Service interface {
	// List returns the customer's saved banks. A missing or unreadable
	// document is an empty list.
	List(ctx context.Context, shop, customerID string) ([]BankAccount, error)
	// Add appends account unless its token is already saved. The stored
	// entry is always active and stamped with the current time.
	Add(ctx context.Context, shop, customerID string, account BankAccount) (BankAccount, error)
	Remove(ctx context.Context, shop, customerID, token string) error
	SetActive(ctx context.Context, shop, customerID, token string, active bool) error
	Export(ctx context.Context, shop, customerID string) ([]ExportedAccount, error)
}

var (
	ErrInvalidShop     = errors.New("invalid_shop")
	ErrInvalidCustomer = errors.New("invalid_customer")
	ErrInvalidToken    = errors.New("invalid_bank_token")
)
