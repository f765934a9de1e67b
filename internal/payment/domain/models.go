package domain

import (
	"strings"

	"github.com/shopspring/decimal"
	fingriddomain "github.com/smallbiznis/bankpay/internal/fingrid/domain"
	transactiondomain "github.com/smallbiznis/bankpay/internal/transaction/domain"
)

// MinimumAmount is the smallest charge the processor accepts, in major
// currency units.
var MinimumAmount = decimal.RequireFromString("1.00")

const DefaultCurrency = "USD"

type LinkTokenInput struct {
	Shop      string
	Customer  fingriddomain.Customer
	ReturnURL string
}

type ExchangeInput struct {
	Shop        string
	PublicToken string
	// CustomerID, when set, saves the linked bank to the customer.
	CustomerID string
}

type ExchangeResult struct {
	fingriddomain.BankLink
	Saved bool `json:"saved"`
}

type ChargeInput struct {
	Shop                string
	OrderID             string
	BankToken           string
	Amount              decimal.Decimal
	Currency            string
	CustomerID          string
	StatementDescriptor string
	Metadata            string
	IPAddress           string
	// ApplyDiscount charges the amount after the shop's discount.
	ApplyDiscount bool
}

type ChargeResult struct {
	fingriddomain.TransferResult
	// Replayed is set when an earlier charge for the order was returned
	// instead of charging again.
	Replayed bool
	Amount   decimal.Decimal
	Currency string
	Record   *transactiondomain.Record
}

type RefundInput struct {
	Shop    string
	OrderID string
	// Amount defaults to the full charged amount.
	Amount decimal.NullDecimal
}

type RefundResult struct {
	fingriddomain.TransferResult
	Record *transactiondomain.Record
}

type BankTokenInput struct {
	Shop       string
	CustomerID string
	BankToken  string
}

type HealthResult struct {
	fingriddomain.HealthResult
	Deactivated bool
}

type QuoteInput struct {
	Shop        string
	TotalAmount decimal.Decimal
	Currency    string
}

// Quote is a discounted total. Amounts are rounded to the currency's minor
// unit; the discount itself is computed at full precision.
type Quote struct {
	Currency           string
	Places             int32
	TotalAmount        decimal.Decimal
	DiscountPercentage decimal.Decimal
	DiscountAmount     decimal.Decimal
	FinalAmount        decimal.Decimal
}

// CheckoutConfig is what the checkout UI needs to open the bank link flow.
type CheckoutConfig struct {
	TestMode           bool            `json:"testMode"`
	ScriptURL          string          `json:"scriptUrl"`
	ClientName         string          `json:"clientName"`
	ThemeColor         string          `json:"themeColor"`
	ThemeLogo          string          `json:"themeLogo,omitempty"`
	DiscountPercentage decimal.Decimal `json:"discountPercentage"`
	Configured         bool            `json:"configured"`
}

var zeroDecimalCurrencies = map[string]bool{
	"BIF": true, "CLP": true, "DJF": true, "GNF": true, "ISK": true, "JPY": true,
	"KMF": true, "KRW": true, "PYG": true, "RWF": true, "UGX": true, "VND": true,
	"VUV": true, "XAF": true, "XOF": true, "XPF": true,
}

var threeDecimalCurrencies = map[string]bool{
	"BHD": true, "IQD": true, "JOD": true, "KWD": true, "LYD": true, "OMR": true, "TND": true,
}

// MinorUnits is the number of decimal places used to display and charge
// amounts in currency.
func MinorUnits(currency string) int32 {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	switch {
	case zeroDecimalCurrencies[currency]:
		return 0
	case threeDecimalCurrencies[currency]:
		return 3
	default:
		return 2
	}
}

// NormalizeCurrency upper-cases currency and defaults it to USD.
func NormalizeCurrency(currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return DefaultCurrency
	}
	return currency
}

// ComputeQuote applies pct (0..100) to total.
func ComputeQuote(total decimal.Decimal, pct decimal.Decimal, currency string) Quote {
	currency = NormalizeCurrency(currency)
	places := MinorUnits(currency)
	discount := discountOf(total, pct)
	final := total.Sub(discount)
	return Quote{
		Currency:           currency,
		Places:             places,
		TotalAmount:        total.Round(places),
		DiscountPercentage: pct,
		DiscountAmount:     discount.Round(places),
		FinalAmount:        final.Round(places),
	}
}

// DiscountedTotal is total less pct percent, unrounded.
func DiscountedTotal(total, pct decimal.Decimal) decimal.Decimal {
	return total.Sub(discountOf(total, pct))
}

func discountOf(total, pct decimal.Decimal) decimal.Decimal {
	return total.Mul(pct).Div(decimal.NewFromInt(100))
}
