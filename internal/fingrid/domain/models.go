package domain

import (
	"github.com/shopspring/decimal"
)

type Operation string

const (
	OpLinkToken Operation = "link_token"
	OpExchange  Operation = "exchange"
	OpCharge    Operation = "charge"
	OpRefund    Operation = "refund"
	OpHealth    Operation = "health"
	OpBalance   Operation = "balance"
)

// Profile is everything a client needs to talk to the processor for one
// shop: the active credential bundle plus link-UI branding.
type Profile struct {
	TestMode         bool
	GatewayURL       string
	ClientID         string
	ClientSecret     string
	ConnectedAccount string
	RedirectURL      string
	ScriptURL        string

	ClientName string
	ThemeColor string
	ThemeLogo  string
}

type Customer struct {
	ID        string
	Email     string
	Phone     string
	FirstName string
	LastName  string
}

type LinkTokenRequest struct {
	Customer  Customer
	ReturnURL string
}

type LinkToken struct {
	LinkToken string `json:"linkToken"`
	Expiry    string `json:"expiry,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

type BankLink struct {
	BankToken string `json:"bankToken"`
	BankName  string `json:"bankName"`
	Last4     string `json:"last4"`
	RequestID string `json:"requestId,omitempty"`
}

type ChargeRequest struct {
	BankToken           string
	Amount              decimal.Decimal
	Currency            string
	CustomerID          string
	StatementDescriptor string
	Metadata            string
	IPAddress           string
}

type RefundRequest struct {
	OrderID               string
	OriginalTransactionID string
	BankToken             string
	Amount                decimal.Decimal
}

// FailureKind separates a processor that answered "no" from one that could
// not be reached. Both surface to callers as a non-success result.
type FailureKind string

const (
	FailureNone    FailureKind = ""
	FailureVendor  FailureKind = "vendor"
	FailureNetwork FailureKind = "network"
	FailureTimeout FailureKind = "timeout"
)

// TransferResult is the outcome of a charge or refund.
type TransferResult struct {
	Success       bool                `json:"success"`
	TransactionID string              `json:"transactionId,omitempty"`
	Status        string              `json:"status,omitempty"`
	Message       string              `json:"message"`
	VendorCode    string              `json:"vendorCode,omitempty"`
	ChargedAmount decimal.NullDecimal `json:"chargedAmount"`
	Failure       FailureKind         `json:"-"`
}

type HealthResult struct {
	IsHealthy  bool        `json:"isHealthy"`
	Message    string      `json:"message"`
	VendorCode string      `json:"vendorCode,omitempty"`
	Failure    FailureKind `json:"-"`
}

type BalanceResult struct {
	Success    bool                `json:"success"`
	Balance    decimal.NullDecimal `json:"balance"`
	Currency   string              `json:"currency,omitempty"`
	Message    string              `json:"message"`
	VendorCode string              `json:"vendorCode,omitempty"`
	Failure    FailureKind         `json:"-"`
}
