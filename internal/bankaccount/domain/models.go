package domain

import "time"

// BankAccount is a customer's linked bank, addressed by the vendor bank token.
type BankAccount struct {
	Token         string    `json:"token"`
	BankName      string    `json:"bankName"`
	Last4         string    `json:"last4"`
	RoutingNumber string    `json:"routingNumber,omitempty"`
	AccountType   string    `json:"accountType,omitempty"`
	IsActive      bool      `json:"isActive"`
	DateAdded     time.Time `json:"dateAdded"`
}

// ExportedAccount is the data-request view of a saved bank. The token is
// reduced to its last characters.
type ExportedAccount struct {
	TokenHint   string    `json:"tokenHint"`
	BankName    string    `json:"bankName"`
	Last4       string    `json:"last4"`
	AccountType string    `json:"accountType,omitempty"`
	IsActive    bool      `json:"isActive"`
	DateAdded   time.Time `json:"dateAdded"`
}

func (a BankAccount) Export() ExportedAccount {
	hint := "****"
	if len(a.Token) > 4 {
		hint += a.Token[len(a.Token)-4:]
	}
	return ExportedAccount{
		TokenHint:   hint,
		BankName:    a.BankName,
		Last4:       a.Last4,
		AccountType: a.AccountType,
		IsActive:    a.IsActive,
		DateAdded:   a.DateAdded,
	}
}
