package supastore

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finledger/backend/internal/apperr"
	"github.com/finledger/backend/internal/models"
	"github.com/finledger/backend/internal/storage"
)

var _ storage.TransactionStore = (*TransactionStore)(nil)

// ownerSelect joins the owning identity's display fields onto each row.
const ownerSelect = "*,owner:users(name,surname,email)"

// TransactionStore talks to the transactions table.
type TransactionStore struct {
	client *Client
}

// NewTransactionStore wraps the shared client.
func NewTransactionStore(client *Client) *TransactionStore {
	return &TransactionStore{client: client}
}

type transactionRow struct {
	ID       string          `json:"id,omitempty"`
	Date     time.Time       `json:"date"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Channel  string          `json:"channel"`
	Motif    string          `json:"motif"`
	FileURL  *string         `json:"file_url,omitempty"`
	UserID   string          `json:"user_id"`
	Owner    *ownerRow       `json:"owner,omitempty"`
}

type ownerRow struct {
	Name    string `json:"name"`
	Surname string `json:"surname"`
	Email   string `json:"email"`
}

func transactionToRow(txn models.Transaction) transactionRow {
	row := transactionRow{
		ID:       txn.ID,
		Date:     txn.Date,
		Amount:   txn.Amount,
		Currency: txn.Currency,
		Channel:  txn.Channel,
		Motif:    txn.Motif,
		UserID:   txn.OwnerID,
	}
	if txn.FileURL != "" {
		row.FileURL = &txn.FileURL
	}
	return row
}

func (r transactionRow) toTransaction() models.Transaction {
	txn := models.Transaction{
		ID:       r.ID,
		Date:     r.Date,
		Amount:   r.Amount,
		Currency: r.Currency,
		Channel:  r.Channel,
		Motif:    r.Motif,
		OwnerID:  r.UserID,
	}
	if r.FileURL != nil {
		txn.FileURL = *r.FileURL
	}
	if r.Owner != nil {
		txn.Owner = &models.OwnerDetails{
			Name:    r.Owner.Name,
			Surname: r.Owner.Surname,
			Email:   r.Owner.Email,
		}
	}
	return txn
}

func toTransactions(rows []transactionRow) []models.Transaction {
	txns := make([]models.Transaction, 0, len(rows))
	for _, row := range rows {
		txns = append(txns, row.toTransaction())
	}
	return txns
}

// Insert creates a transaction and returns the stored row.
func (s *TransactionStore) Insert(ctx context.Context, cred storage.Credential, txn models.Transaction) (models.Transaction, error) {
	data, err := s.client.do(ctx, cred, http.MethodPost, "transactions", nil, transactionToRow(txn), true)
	if err != nil {
		return models.Transaction{}, err
	}
	rows, err := decodeRows[transactionRow](data)
	if err != nil {
		return models.Transaction{}, err
	}
	if len(rows) == 0 {
		return models.Transaction{}, apperr.New(apperr.Upstream, "row store returned no created row")
	}
	return rows[0].toTransaction(), nil
}

// ListByOwner fetches the transactions owned by one identity.
func (s *TransactionStore) ListByOwner(ctx context.Context, cred storage.Credential, ownerID string) ([]models.Transaction, error) {
	query := url.Values{}
	query.Set("user_id", "eq."+ownerID)
	query.Set("select", ownerSelect)

	data, err := s.client.do(ctx, cred, http.MethodGet, "transactions", query, nil, false)
	if err != nil {
		return nil, err
	}
	rows, err := decodeRows[transactionRow](data)
	if err != nil {
		return nil, err
	}
	return toTransactions(rows), nil
}

// ListAll fetches every transaction with owner details.
func (s *TransactionStore) ListAll(ctx context.Context, cred storage.Credential) ([]models.Transaction, error) {
	query := url.Values{}
	query.Set("select", ownerSelect)

	data, err := s.client.do(ctx, cred, http.MethodGet, "transactions", query, nil, false)
	if err != nil {
		return nil, err
	}
	rows, err := decodeRows[transactionRow](data)
	if err != nil {
		return nil, err
	}
	return toTransactions(rows), nil
}

// GetByID fetches one transaction with owner details.
func (s *TransactionStore) GetByID(ctx context.Context, cred storage.Credential, id string) (models.Transaction, error) {
	query := url.Values{}
	query.Set("id", "eq."+id)
	query.Set("select", ownerSelect)

	data, err := s.client.do(ctx, cred, http.MethodGet, "transactions", query, nil, false)
	if err != nil {
		return models.Transaction{}, err
	}
	rows, err := decodeRows[transactionRow](data)
	if err != nil {
		return models.Transaction{}, err
	}
	if len(rows) == 0 {
		return models.Transaction{}, apperr.New(apperr.NotFound, "transaction not found")
	}
	return rows[0].toTransaction(), nil
}

// UpdateByID patches one transaction. The representation preference makes a
// no-match update observable as an empty result set.
func (s *TransactionStore) UpdateByID(ctx context.Context, cred storage.Credential, id string, upd models.TransactionUpdate) (models.Transaction, error) {
	query := url.Values{}
	query.Set("id", "eq."+id)

	data, err := s.client.do(ctx, cred, http.MethodPatch, "transactions", query, upd, true)
	if err != nil {
		return models.Transaction{}, err
	}
	rows, err := decodeRows[transactionRow](data)
	if err != nil {
		return models.Transaction{}, err
	}
	if len(rows) == 0 {
		return models.Transaction{}, apperr.New(apperr.NotFound, "transaction not found")
	}
	return rows[0].toTransaction(), nil
}

// DeleteByID removes one transaction, reporting NotFound when nothing matched.
func (s *TransactionStore) DeleteByID(ctx context.Context, cred storage.Credential, id string) error {
	query := url.Values{}
	query.Set("id", "eq."+id)

	data, err := s.client.do(ctx, cred, http.MethodDelete, "transactions", query, nil, true)
	if err != nil {
		return err
	}
	rows, err := decodeRows[transactionRow](data)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return apperr.New(apperr.NotFound, "transaction not found")
	}
	return nil
}
