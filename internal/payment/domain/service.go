package domain

import (
	"context"

	fingriddomain "github.com/smallbiznis/bankpay/internal/fingrid/domain"
	transactiondomain "github.com/smallbiznis/bankpay/internal/transaction/domain"
)

// Service drives the bank link and payment flow for a shop. Every operation
// loads the shop's settings and fails with a configuration error before
// contacting the processor when credentials are missing.
type Service interface {
	GenerateLinkToken(ctx context.Context, in LinkTokenInput) (fingriddomain.LinkToken, error)
	ExchangePublicToken(ctx context.Context, in ExchangeInput) (ExchangeResult, error)
	// ProcessPayment returns a result for every processor answer, including
	// declines. Errors are local validation, configuration or lock failures.
	ProcessPayment(ctx context.Context, in ChargeInput) (ChargeResult, error)
	RefundPayment(ctx context.Context, in RefundInput) (RefundResult, error)
	CheckBankHealth(ctx context.Context, in BankTokenInput) (HealthResult, error)
	GetBankBalance(ctx context.Context, in BankTokenInput) (fingriddomain.BalanceResult, error)
	Quote(ctx context.Context, in QuoteInput) (Quote, error)
	GetOrderTransaction(ctx context.Context, shop, orderID string) (transactiondomain.Record, error)
	CheckoutConfig(ctx context.Context, shop string) (CheckoutConfig, error)
}

// OrderLocker serializes payment attempts for one order.
type OrderLocker interface {
	TryLockOrder(ctx context.Context, shop, orderID string) (token string, ok bool, err error)
	ReleaseOrder(ctx context.Context, shop, orderID, token string) error
}
