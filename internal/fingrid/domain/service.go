package domain

import "context"

// Client talks to the bank-transfer processor on behalf of one shop.
//
// GenerateLinkToken and ExchangePublicToken return *VendorError or
// *NetworkError. The money-moving calls never return an error; every failure
// is folded into the result so callers always see the vendor code.
type Client interface {
	GenerateLinkToken(ctx context.Context, req LinkTokenRequest) (LinkToken, error)
	ExchangePublicToken(ctx context.Context, publicToken string) (BankLink, error)
	ProcessPayment(ctx context.Context, req ChargeRequest) TransferResult
	RefundPayment(ctx context.Context, req RefundRequest) TransferResult
	CheckBankTokenHealth(ctx context.Context, bankToken string) HealthResult
	GetBankTokenBalance(ctx context.Context, bankToken string) BalanceResult
}

type ClientFactory interface {
	NewClient(profile Profile) Client
}
