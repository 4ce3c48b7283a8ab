package supastore

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/finledger/backend/internal/apperr"
	"github.com/finledger/backend/internal/models"
	"github.com/finledger/backend/internal/storage"
)

var _ storage.IdentityStore = (*IdentityStore)(nil)

// IdentityStore talks to the users table.
type IdentityStore struct {
	client *Client
}

// NewIdentityStore wraps the shared client.
func NewIdentityStore(client *Client) *IdentityStore {
	return &IdentityStore{client: client}
}

// identityRow mirrors the users table. The dob column is a plain date, so
// it crosses the wire as "2006-01-02" rather than a full timestamp.
type identityRow struct {
	ID       string  `json:"id,omitempty"`
	Name     string  `json:"name"`
	Surname  string  `json:"surname"`
	Dob      *string `json:"dob,omitempty"`
	Email    string  `json:"email"`
	Address  *string `json:"address,omitempty"`
	Photo    *string `json:"photo,omitempty"`
	Password string  `json:"password"`
	Role     string  `json:"role"`
}

const dateLayout = "2006-01-02"

func identityToRow(user models.User) identityRow {
	row := identityRow{
		ID:       user.ID,
		Name:     user.Name,
		Surname:  user.Surname,
		Email:    user.Email,
		Password: user.PasswordHash,
		Role:     user.Role,
	}
	if user.Dob != nil {
		dob := user.Dob.Format(dateLayout)
		row.Dob = &dob
	}
	if user.Address != "" {
		row.Address = &user.Address
	}
	if user.PhotoURL != "" {
		row.Photo = &user.PhotoURL
	}
	return row
}

func (r identityRow) toUser() models.User {
	user := models.User{
		ID:           r.ID,
		Name:         r.Name,
		Surname:      r.Surname,
		Email:        r.Email,
		Role:         r.Role,
		PasswordHash: r.Password,
	}
	if r.Dob != nil {
		if dob, err := time.Parse(dateLayout, *r.Dob); err == nil {
			user.Dob = &dob
		}
	}
	if r.Address != nil {
		user.Address = *r.Address
	}
	if r.Photo != nil {
		user.PhotoURL = *r.Photo
	}
	return user
}

// FindByEmail fetches one identity by exact (already normalized) email.
func (s *IdentityStore) FindByEmail(ctx context.Context, cred storage.Credential, email string) (models.User, error) {
	query := url.Values{}
	query.Set("email", "eq."+email)
	query.Set("select", "*")

	data, err := s.client.do(ctx, cred, http.MethodGet, "users", query, nil, false)
	if err != nil {
		return models.User{}, err
	}
	rows, err := decodeRows[identityRow](data)
	if err != nil {
		return models.User{}, err
	}
	if len(rows) == 0 {
		return models.User{}, apperr.New(apperr.NotFound, "user not found")
	}
	return rows[0].toUser(), nil
}

// GetByID fetches one identity by id.
func (s *IdentityStore) GetByID(ctx context.Context, cred storage.Credential, id string) (models.User, error) {
	query := url.Values{}
	query.Set("id", "eq."+id)
	query.Set("select", "*")

	data, err := s.client.do(ctx, cred, http.MethodGet, "users", query, nil, false)
	if err != nil {
		return models.User{}, err
	}
	rows, err := decodeRows[identityRow](data)
	if err != nil {
		return models.User{}, err
	}
	if len(rows) == 0 {
		return models.User{}, apperr.New(apperr.NotFound, "user not found")
	}
	return rows[0].toUser(), nil
}

// List fetches every identity.
func (s *IdentityStore) List(ctx context.Context, cred storage.Credential) ([]models.User, error) {
	query := url.Values{}
	query.Set("select", "*")

	data, err := s.client.do(ctx, cred, http.MethodGet, "users", query, nil, false)
	if err != nil {
		return nil, err
	}
	rows, err := decodeRows[identityRow](data)
	if err != nil {
		return nil, err
	}
	users := make([]models.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.toUser())
	}
	return users, nil
}

// Insert creates an identity and returns the stored row.
func (s *IdentityStore) Insert(ctx context.Context, cred storage.Credential, user models.User) (models.User, error) {
	data, err := s.client.do(ctx, cred, http.MethodPost, "users", nil, identityToRow(user), true)
	if err != nil {
		return models.User{}, err
	}
	rows, err := decodeRows[identityRow](data)
	if err != nil {
		return models.User{}, err
	}
	if len(rows) == 0 {
		return models.User{}, apperr.New(apperr.Upstream, "row store returned no created row")
	}
	return rows[0].toUser(), nil
}
