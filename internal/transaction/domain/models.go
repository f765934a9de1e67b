package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
	StatusRefunded   Status = "refunded"
)

type Type string

const (
	TypeCharge Type = "charge"
	TypeRefund Type = "refund"
)

// Record is the payment attached to one order.
type Record struct {
	TransactionID   string          `json:"transactionId"`
	BankToken       string          `json:"bankToken"`
	Status          Status          `json:"status"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	TransactionType Type            `json:"transactionType"`
	VendorStatus    string          `json:"vendorStatus,omitempty"`
	VendorCode      string          `json:"vendorCode,omitempty"`
	RefundID        string          `json:"refundId,omitempty"`
	ProcessedAt     time.Time       `json:"processedAt"`
	UpdatedAt       *time.Time      `json:"updatedAt,omitempty"`
}

var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusCompleted, StatusFailed, StatusCancelled},
	StatusProcessing: {StatusCompleted, StatusFailed, StatusCancelled},
	StatusCompleted:  {StatusRefunded},
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

// CanTransition reports whether a record may move from s to next.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal statuses accept no further transitions.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}
