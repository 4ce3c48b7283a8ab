package dto

import (
	"github.com/shopspring/decimal"

	"github.com/finledger/backend/internal/models"
)

// CreateTransactionRequest deliberately has no owner field; the owner is
// always the authenticated caller.
type CreateTransactionRequest struct {
	Date     string          `json:"date"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Channel  string          `json:"channel"`
	Motif    string          `json:"motif,omitempty"`
}

type TransactionResponse struct {
	Transaction models.Transaction `json:"transaction"`
}

type TransactionListResponse struct {
	Transactions []models.Transaction `json:"transactions"`
}

type UserListResponse struct {
	Users []models.User `json:"users"`
}

type UserResponse struct {
	User models.User `json:"user"`
}
