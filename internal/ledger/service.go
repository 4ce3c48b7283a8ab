// Package ledger implements transaction operations with ownership checks
// and least-privilege credential selection per call.
package ledger

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finledger/backend/internal/apperr"
	"github.com/finledger/backend/internal/auth"
	"github.com/finledger/backend/internal/models"
	"github.com/finledger/backend/internal/storage"
)

// Service implements the ledger operations.
type Service struct {
	store storage.TransactionStore
	log   *slog.Logger
}

// NewService wires the transaction store.
func NewService(store storage.TransactionStore, log *slog.Logger) *Service {
	return &Service{store: store, log: log}
}

// CreateInput carries the caller-supplied transaction fields. There is no
// owner field: ownership always comes from the validated principal.
type CreateInput struct {
	Date     time.Time
	Amount   decimal.Decimal
	Currency string
	Channel  string
	Motif    string
	FileURL  string
}

// Create inserts a transaction owned by the caller, forwarding the caller's
// own token so the store's row-level security is the write boundary.
func (s *Service) Create(ctx context.Context, p *auth.Principal, in CreateInput) (models.Transaction, error) {
	if err := validateCreate(in); err != nil {
		return models.Transaction{}, err
	}

	created, err := s.store.Insert(ctx, storage.ForwardedUser(p.Token), models.Transaction{
		Date:     in.Date,
		Amount:   in.Amount,
		Currency: strings.ToUpper(strings.TrimSpace(in.Currency)),
		Channel:  strings.TrimSpace(in.Channel),
		Motif:    strings.TrimSpace(in.Motif),
		FileURL:  in.FileURL,
		OwnerID:  p.ID,
	})
	if err != nil {
		return models.Transaction{}, err
	}

	s.log.InfoContext(ctx, "transaction created", "transaction_id", created.ID, "owner_id", p.ID)
	return created, nil
}

// ListByOwner returns one identity's transactions. Owners forward their own
// token; admins reading another user's ledger use the privileged tier.
func (s *Service) ListByOwner(ctx context.Context, p *auth.Principal, ownerID string) ([]models.Transaction, error) {
	if !auth.OwnerOrAdmin(ownerID, p) {
		return nil, apperr.New(apperr.Forbidden, "access to other users' transactions is forbidden")
	}

	cred := storage.ForwardedUser(p.Token)
	if p.ID != ownerID {
		cred = storage.Service()
	}
	return s.store.ListByOwner(ctx, cred, ownerID)
}

// Get returns one transaction to its owner or an admin. The record is read
// with the privileged tier first because the owner must be known to tell
// forbidden apart from not-found.
func (s *Service) Get(ctx context.Context, p *auth.Principal, id string) (models.Transaction, error) {
	txn, err := s.store.GetByID(ctx, storage.Service(), id)
	if err != nil {
		return models.Transaction{}, err
	}
	if !auth.OwnerOrAdmin(txn.OwnerID, p) {
		return models.Transaction{}, apperr.New(apperr.Forbidden, "access to other users' transactions is forbidden")
	}
	return txn, nil
}

// ListAll returns every transaction with owner details. Role gating happens
// at the route; the cross-user read itself is privileged.
func (s *Service) ListAll(ctx context.Context) ([]models.Transaction, error) {
	return s.store.ListAll(ctx, storage.Service())
}

// Update edits a transaction administratively. Every field is replaced, so
// the whole set is validated just like a create.
func (s *Service) Update(ctx context.Context, id string, upd models.TransactionUpdate) (models.Transaction, error) {
	if err := validateFields(upd.Date, upd.Amount, upd.Currency, upd.Channel); err != nil {
		return models.Transaction{}, err
	}
	updated, err := s.store.UpdateByID(ctx, storage.Service(), id, upd)
	if err != nil {
		return models.Transaction{}, err
	}
	s.log.InfoContext(ctx, "transaction updated", "transaction_id", id)
	return updated, nil
}

// Delete removes a transaction administratively.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteByID(ctx, storage.Service(), id); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "transaction deleted", "transaction_id", id)
	return nil
}

func validateCreate(in CreateInput) error {
	return validateFields(in.Date, in.Amount, in.Currency, in.Channel)
}

func validateFields(date time.Time, amount decimal.Decimal, currency, channel string) error {
	if date.IsZero() {
		return apperr.New(apperr.InvalidInput, "date is required")
	}
	if !amount.IsPositive() {
		return apperr.New(apperr.InvalidInput, "amount must be positive")
	}
	if strings.TrimSpace(currency) == "" {
		return apperr.New(apperr.InvalidInput, "currency is required")
	}
	if strings.TrimSpace(channel) == "" {
		return apperr.New(apperr.InvalidInput, "channel is required")
	}
	return nil
}
