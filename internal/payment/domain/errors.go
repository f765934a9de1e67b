package domain

// Kind groups orchestrator errors by how a caller should react.
type Kind string

const (
	KindConfiguration Kind = "configuration_error"
	KindValidation    Kind = "validation_error"
	KindConflict      Kind = "conflict"
	KindNotFound      Kind = "not_found"
	KindUnavailable   Kind = "unavailable"
)

// Error is a local failure raised before, or instead of, a processor call.
// Message is safe to show to merchants and customers.
type Error struct {
	kind    Kind
	code    string
	message string
}

func newError(kind Kind, code, message string) *Error {
	return &Error{kind: kind, code: code, message: message}
}

func (e *Error) Error() string { return e.code }
func (e *Error) Kind() string { return string(e.kind) }
func (e *Error) Class() Kind { return e.kind }
func (e *Error) Code() string { return e.code }
func (e *Error) UserMessage() string { return e.message }

var (
	ErrCredentialsNotConfigured      = newError(KindConfiguration, "credentials_not_configured", "FinGrid credentials not configured. Please configure the app settings.")
	ErrConnectedAccountNotConfigured = newError(KindConfiguration, "connected_account_not_configured", "Connected account not configured. Please configure the merchant account in app settings.")

	ErrInvalidShop         = newError(KindValidation, "invalid_shop", "Shop is required")
	ErrAmountRequired      = newError(KindValidation, "amount_required", "Bank token and amount are required")
	ErrInvalidAmount       = newError(KindValidation, "invalid_amount", "Amount must be a positive number")
	ErrAmountBelowMinimum  = newError(KindValidation, "amount_below_minimum", "Amount must be at least $1.00")
	ErrMissingBankToken    = newError(KindValidation, "bank_token_required", "Bank token is required")
	ErrMissingPublicToken  = newError(KindValidation, "public_token_required", "Public token is required")
	ErrMissingCustomerID   = newError(KindValidation, "customer_id_required", "Customer ID is required")
	ErrMissingOrderID      = newError(KindValidation, "order_id_required", "Order ID is required")
	ErrNotRefundable       = newError(KindValidation, "not_refundable", "Only completed payments can be refunded")
	ErrRefundExceedsCharge = newError(KindValidation, "refund_exceeds_charge", "Refund amount cannot exceed the charged amount")

	ErrPaymentInProgress   = newError(KindConflict, "payment_in_progress", "A payment for this order is already in progress")
	ErrTransactionNotFound = newError(KindNotFound, "transaction_not_found", "No transaction found for this order")
	ErrLockUnavailable     = newError(KindUnavailable, "payment_lock_unavailable", "Payments are temporarily unavailable. Please try again.")
)
