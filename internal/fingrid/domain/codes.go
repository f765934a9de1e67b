package domain

import (
	"strings"
	"unicode"
)

// CodeSuccess is the only return code that means the processor accepted a
// request.
const CodeSuccess = "pk1998"

type Outcome string

const (
	OutcomeSuccess        Outcome = "success"
	OutcomeDeclined       Outcome = "declined"
	OutcomeReconnectBank  Outcome = "reconnect_bank"
	OutcomeInvalidRequest Outcome = "invalid_request"
	OutcomeConfiguration  Outcome = "configuration"
	OutcomeServiceError   Outcome = "service_error"
	OutcomeUnknown        Outcome = "unknown"
)

type Translation struct {
	Outcome Outcome
	Message string
}

type codeEntry struct {
	outcome   Outcome
	message   string
	overrides map[Operation]string
}

var codeTable = map[string]codeEntry{
	"1769": {outcome: OutcomeDeclined, message: "Transaction failed. Please try again or use a different payment method."},
	"1504": {outcome: OutcomeDeclined, message: "Insufficient funds. Please check your account balance."},
	"4851": {outcome: OutcomeReconnectBank, message: "Bank connection expired. Please reconnect your bank account."},
	"5041": {outcome: OutcomeReconnectBank, message: "Bank token expired. Please reconnect your bank account."},
	"5748": {outcome: OutcomeReconnectBank, message: "Invalid public token. Please try connecting your bank account again."},
	"5044": {outcome: OutcomeInvalidRequest, message: "Amount must be at least $1.00"},
	"5463": {outcome: OutcomeInvalidRequest, message: "Customer email or phone number is required."},
	"1599": {outcome: OutcomeConfiguration, message: "Invalid transaction type. Please contact support."},
	"1598": {outcome: OutcomeConfiguration, message: "Invalid billing type. Please contact support."},
	"9450": {outcome: OutcomeConfiguration, message: "Invalid theme color configuration."},
	"3957": {outcome: OutcomeConfiguration, message: "Store name is required for payment initialization."},
	"9384": {
		outcome: OutcomeConfiguration,
		message: "Permission denied. Please check app configuration.",
		overrides: map[Operation]string{
			OpLinkToken: "Invalid credentials. Please check app configuration.",
		},
	},
	"0113": {outcome: OutcomeServiceError, message: "Payment service error. Please try again or contact support."},
	"0114": {outcome: OutcomeServiceError, message: "Bank connection service error. Please try again or contact support."},
	"0115": {outcome: OutcomeServiceError, message: "Payment service error. Please try again or contact support."},
}

var genericMessages = map[Operation]string{
	OpLinkToken: "Failed to initialize payment.",
	OpExchange:  "Failed to connect bank account.",
	OpCharge:    "Payment processing failed.",
	OpRefund:    "Refund processing failed.",
	OpHealth:    "Bank token is not healthy.",
	OpBalance:   "Failed to retrieve balance.",
}

var successMessages = map[Operation]string{
	OpLinkToken: "Link token created",
	OpExchange:  "Bank account connected",
	OpCharge:    "Payment processed successfully",
	OpRefund:    "Refund processed successfully",
	OpHealth:    "Bank token is healthy",
	OpBalance:   "Balance retrieved successfully",
}

var networkMessages = map[Operation]string{
	OpLinkToken: "Failed to initialize payment.",
	OpExchange:  "Failed to connect bank account.",
	OpCharge:    "Payment processing failed due to network error",
	OpRefund:    "Refund processing failed due to network error",
	OpHealth:    "Failed to check bank token health",
	OpBalance:   "Failed to retrieve balance due to network error",
}

const maxVendorMessageLen = 200

// Translate maps a processor return code to a user-facing message. Known
// codes always yield the table text regardless of what the processor said;
// unknown codes fall back to the operation's generic message followed by the
// processor's own text.
func Translate(op Operation, code, vendorMessage string) Translation {
	code = strings.TrimSpace(code)
	if code == CodeSuccess {
		return Translation{Outcome: OutcomeSuccess, Message: successMessages[op]}
	}
	if entry, ok := codeTable[code]; ok {
		msg := entry.message
		if override, ok := entry.overrides[op]; ok {
			msg = override
		}
		return Translation{Outcome: entry.outcome, Message: msg}
	}

	msg := GenericMessage(op)
	if raw := displayableVendorMessage(vendorMessage); raw != "" {
		msg += " " + raw
	}
	return Translation{Outcome: OutcomeUnknown, Message: msg}
}

// IsKnownCode reports whether code has a table entry.
func IsKnownCode(code string) bool {
	_, ok := codeTable[strings.TrimSpace(code)]
	return ok || code == CodeSuccess
}

func GenericMessage(op Operation) string {
	if msg, ok := genericMessages[op]; ok {
		return msg
	}
	return "Request failed."
}

func NetworkMessage(op Operation) string {
	if msg, ok := networkMessages[op]; ok {
		return msg
	}
	return "Payment service is unavailable."
}

func displayableVendorMessage(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "success") {
		return ""
	}
	raw = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, raw)
	if runes := []rune(raw); len(runes) > maxVendorMessageLen {
		raw = string(runes[:maxVendorMessageLen])
	}
	return raw
}
