// Package storage defines the row-store contract. Every call takes an
// explicit Credential so the tier presented to the store is always a
// deliberate choice at the call site, never an implicit default.
package storage

import (
	"context"

	"github.com/finledger/backend/internal/models"
)

// IdentityStore captures identity persistence operations.
type IdentityStore interface {
	FindByEmail(ctx context.Context, cred Credential, email string) (models.User, error)
	GetByID(ctx context.Context, cred Credential, id string) (models.User, error)
	List(ctx context.Context, cred Credential) ([]models.User, error)
	Insert(ctx context.Context, cred Credential, user models.User) (models.User, error)
}

// TransactionStore captures ledger persistence operations. Listing calls
// join the owner's display fields.
type TransactionStore interface {
	Insert(ctx context.Context, cred Credential, txn models.Transaction) (models.Transaction, error)
	ListByOwner(ctx context.Context, cred Credential, ownerID string) ([]models.Transaction, error)
	ListAll(ctx context.Context, cred Credential) ([]models.Transaction, error)
	GetByID(ctx context.Context, cred Credential, id string) (models.Transaction, error)
	UpdateByID(ctx context.Context, cred Credential, id string, upd models.TransactionUpdate) (models.Transaction, error)
	DeleteByID(ctx context.Context, cred Credential, id string) error
}
