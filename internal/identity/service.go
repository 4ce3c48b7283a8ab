// Package identity orchestrates login and registration: credential checks
// against the row store, token minting, and the privilege-escalation gate
// on self-registration.
package identity

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/finledger/backend/internal/apperr"
	"github.com/finledger/backend/internal/auth"
	"github.com/finledger/backend/internal/models"
	"github.com/finledger/backend/internal/storage"
)

// invalidCredentials is the single message for every login failure so
// callers cannot tell which factor was wrong.
const invalidCredentials = "invalid email or password"

// Service implements the identity and access operations.
type Service struct {
	store  storage.IdentityStore
	tokens *auth.TokenManager
	log    *slog.Logger
}

// NewService wires the identity store and token manager.
func NewService(store storage.IdentityStore, tokens *auth.TokenManager, log *slog.Logger) *Service {
	return &Service{store: store, tokens: tokens, log: log}
}

// RegisterInput carries the self-registration fields. Role is what the
// caller asked for, not what they necessarily get.
type RegisterInput struct {
	Name     string
	Surname  string
	Dob      *time.Time
	Email    string
	Address  string
	PhotoURL string
	Password string
	Role     string
}

// NormalizeEmail lowercases and trims an email; every write and lookup
// goes through this.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Login checks the password against the stored hash and mints a token. The
// credential lookup is the one read allowed on the privileged tier: the
// store knows nothing about passwords, so the backend must see the row
// before any user token exists.
func (s *Service) Login(ctx context.Context, email, password string) (string, models.User, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return "", models.User{}, apperr.New(apperr.InvalidInput, "email and password are required")
	}

	user, err := s.store.FindByEmail(ctx, storage.Service(), email)
	if err != nil {
		if apperr.IsKind(err, apperr.NotFound) {
			return "", models.User{}, apperr.New(apperr.Unauthenticated, invalidCredentials)
		}
		return "", models.User{}, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", models.User{}, apperr.New(apperr.Unauthenticated, invalidCredentials)
	}

	token, err := s.tokens.Mint(user)
	if err != nil {
		return "", models.User{}, apperr.Wrap(apperr.Internal, "failed to issue token", err)
	}

	user.PasswordHash = ""
	s.log.InfoContext(ctx, "login succeeded", "user_id", user.ID, "role", user.Role)
	return token, user, nil
}

// Register creates an identity through the anonymous tier. Requesting the
// admin role is only honored when the requestor already holds a valid admin
// token; otherwise the call fails before anything is written.
func (s *Service) Register(ctx context.Context, in RegisterInput, requestor *auth.Principal) (models.User, error) {
	in.Email = NormalizeEmail(in.Email)
	if err := validateRegistration(in); err != nil {
		return models.User{}, err
	}

	role := in.Role
	if role == "" {
		role = models.RoleUser
	}
	if role != models.RoleUser {
		if !models.KnownRole(role) {
			return models.User{}, apperr.Newf(apperr.InvalidInput, "unknown role %q", role)
		}
		if !requestor.IsAdmin() {
			return models.User{}, apperr.New(apperr.Forbidden, "granting elevated roles requires an administrator")
		}
	}

	// The anonymous tier is write-only, so uniqueness is checked with the
	// privileged key; the store's unique constraint still backs it up.
	_, err := s.store.FindByEmail(ctx, storage.Service(), in.Email)
	switch {
	case err == nil:
		return models.User{}, apperr.New(apperr.Conflict, "an account with this email already exists")
	case !apperr.IsKind(err, apperr.NotFound):
		return models.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, apperr.Wrap(apperr.Internal, "failed to hash password", err)
	}

	created, err := s.store.Insert(ctx, storage.Anonymous(), models.User{
		Name:         strings.TrimSpace(in.Name),
		Surname:      strings.TrimSpace(in.Surname),
		Dob:          in.Dob,
		Email:        in.Email,
		Address:      strings.TrimSpace(in.Address),
		PhotoURL:     in.PhotoURL,
		Role:         role,
		PasswordHash: string(hash),
	})
	if err != nil {
		if apperr.IsKind(err, apperr.Conflict) {
			return models.User{}, apperr.New(apperr.Conflict, "an account with this email already exists")
		}
		return models.User{}, err
	}

	created.PasswordHash = ""
	s.log.InfoContext(ctx, "identity registered", "user_id", created.ID, "role", created.Role)
	return created, nil
}

// ListUsers returns every identity; administrative, so privileged tier.
func (s *Service) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.store.List(ctx, storage.Service())
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i].PasswordHash = ""
	}
	return users, nil
}

// GetUser returns one identity by id; administrative, so privileged tier.
func (s *Service) GetUser(ctx context.Context, id string) (models.User, error) {
	user, err := s.store.GetByID(ctx, storage.Service(), id)
	if err != nil {
		return models.User{}, err
	}
	user.PasswordHash = ""
	return user, nil
}

func validateRegistration(in RegisterInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return apperr.New(apperr.InvalidInput, "name is required")
	}
	if in.Email == "" || !strings.Contains(in.Email, "@") {
		return apperr.New(apperr.InvalidInput, "a valid email is required")
	}
	if len(in.Password) < 8 || !utf8.ValidString(in.Password) {
		return apperr.New(apperr.InvalidInput, "password must be at least 8 characters")
	}
	return nil
}
