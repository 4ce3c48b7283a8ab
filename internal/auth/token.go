package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/finledger/backend/internal/apperr"
	"github.com/finledger/backend/internal/models"
)

// Claims is the claim set minted into every token. Role always travels
// under the "role" claim; mint and validate share this one definition so
// the claim name cannot drift between paths.
type Claims struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Principal is a validated caller: the claims plus the raw signed token,
// which the storage adapter forwards on user-tier row-store calls.
type Principal struct {
	ID    string
	Email string
	Name  string
	Role  string
	Token string
}

// IsAdmin reports whether the principal holds the admin role.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == models.RoleAdmin
}

// TokenManager mints and validates signed JWTs. The same secret and issuer
// back both operations.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewTokenManager creates a manager with the provided secret, issuer, and lifetime.
func NewTokenManager(secret, issuer string, ttl time.Duration) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
	}
}

// Mint issues a signed token for the given identity.
func (t *TokenManager) Mint(user models.User) (string, error) {
	now := time.Now()
	claims := Claims{
		ID:   user.ID,
		Name: user.Name,
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   user.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Validate checks signature, expiry, and issuer, and returns the embedded
// principal. Every failure is Unauthenticated; callers never learn which
// check rejected the token.
func (t *TokenManager) Validate(tokenString string) (*Principal, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, apperr.Wrap(apperr.Unauthenticated, "invalid or expired token", err)
	}
	if !parsed.Valid {
		return nil, apperr.New(apperr.Unauthenticated, "invalid or expired token")
	}
	return &Principal{
		ID:    claims.ID,
		Email: claims.Subject,
		Name:  claims.Name,
		Role:  claims.Role,
		Token: tokenString,
	}, nil
}
