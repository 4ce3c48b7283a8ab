package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finledger/backend/internal/apperr"
	"github.com/finledger/backend/internal/models"
)

func testUser() models.User {
	return models.User{
		ID:    uuid.NewString(),
		Name:  "Ada",
		Email: "ada@example.com",
		Role:  models.RoleUser,
	}
}

func TestMintValidateRoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret", "finledger-api", time.Hour)
	user := testUser()

	token, err := tm.Mint(user)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	p, err := tm.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, p.ID)
	assert.Equal(t, user.Email, p.Email)
	assert.Equal(t, user.Name, p.Name)
	assert.Equal(t, models.RoleUser, p.Role)
	assert.Equal(t, token, p.Token)
}

func TestValidateExpiredToken(t *testing.T) {
	tm := NewTokenManager("test-secret", "finledger-api", -time.Minute)

	token, err := tm.Mint(testUser())
	require.NoError(t, err)

	_, err = tm.Validate(token)
	require.Error(t, err)
	assert.Equal(t, apperr.Unauthenticated, apperr.KindOf(err))
}

func TestValidateWrongKey(t *testing.T) {
	minter := NewTokenManager("key-one", "finledger-api", time.Hour)
	verifier := NewTokenManager("key-two", "finledger-api", time.Hour)

	token, err := minter.Mint(testUser())
	require.NoError(t, err)

	_, err = verifier.Validate(token)
	require.Error(t, err)
	assert.Equal(t, apperr.Unauthenticated, apperr.KindOf(err))
}

func TestValidateIssuerMismatch(t *testing.T) {
	minter := NewTokenManager("test-secret", "someone-else", time.Hour)
	verifier := NewTokenManager("test-secret", "finledger-api", time.Hour)

	token, err := minter.Mint(testUser())
	require.NoError(t, err)

	_, err = verifier.Validate(token)
	require.Error(t, err)
	assert.Equal(t, apperr.Unauthenticated, apperr.KindOf(err))
}

func TestValidateGarbage(t *testing.T) {
	tm := NewTokenManager("test-secret", "finledger-api", time.Hour)
	_, err := tm.Validate("not.a.token")
	require.Error(t, err)
	assert.Equal(t, apperr.Unauthenticated, apperr.KindOf(err))
}

func TestOwnerOrAdmin(t *testing.T) {
	owner := uuid.NewString()
	other := uuid.NewString()

	tests := []struct {
		name string
		p    *Principal
		want bool
	}{
		{"owner themselves", &Principal{ID: owner, Role: models.RoleUser}, true},
		{"different user", &Principal{ID: other, Role: models.RoleUser}, false},
		{"different admin", &Principal{ID: other, Role: models.RoleAdmin}, true},
		{"different manager", &Principal{ID: other, Role: models.RoleManager}, false},
		{"no principal", nil, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, OwnerOrAdmin(owner, tc.p))
		})
	}
}
