package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is a ledger entry owned by a single identity. Amount uses
// decimal so cents survive JSON round-trips untouched.
type Transaction struct {
	ID       string          `json:"id,omitempty"`
	Date     time.Time       `json:"date"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Channel  string          `json:"channel"`
	Motif    string          `json:"motif"`
	FileURL  string          `json:"file_url,omitempty"`
	OwnerID  string          `json:"user_id"`
	Owner    *OwnerDetails   `json:"owner,omitempty"`
}

// OwnerDetails is the joined display view of a transaction's owner,
// populated on administrative listings.
type OwnerDetails struct {
	Name    string `json:"name"`
	Surname string `json:"surname"`
	Email   string `json:"email"`
}

// TransactionUpdate carries the administratively editable fields.
type TransactionUpdate struct {
	Date     time.Time       `json:"date"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Channel  string          `json:"channel"`
	Motif    string          `json:"motif"`
}
