package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/finledger/backend/internal/apperr"
	"github.com/finledger/backend/internal/auth"
	"github.com/finledger/backend/internal/files"
	"github.com/finledger/backend/internal/identity"
	"github.com/finledger/backend/internal/ledger"
	"github.com/finledger/backend/internal/models"
	"github.com/finledger/backend/internal/models/dto"
	"github.com/finledger/backend/internal/storage"
)

// memIdentityStore is an in-memory stand-in for the row store's users table.
type memIdentityStore struct {
	mu    sync.Mutex
	users map[string]models.User
}

func newMemIdentityStore() *memIdentityStore {
	return &memIdentityStore{users: map[string]models.User{}}
}

func (m *memIdentityStore) seed(user models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.Email] = user
}

func (m *memIdentityStore) FindByEmail(_ context.Context, _ storage.Credential, email string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user, ok := m.users[email]; ok {
		return user, nil
	}
	return models.User{}, apperr.New(apperr.NotFound, "user not found")
}

func (m *memIdentityStore) GetByID(_ context.Context, _ storage.Credential, id string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return models.User{}, apperr.New(apperr.NotFound, "user not found")
}

func (m *memIdentityStore) List(_ context.Context, _ storage.Credential) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.User
	for _, user := range m.users {
		out = append(out, user)
	}
	return out, nil
}

func (m *memIdentityStore) Insert(_ context.Context, _ storage.Credential, user models.User) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.Email]; ok {
		return models.User{}, apperr.New(apperr.Conflict, "record already exists")
	}
	user.ID = uuid.NewString()
	m.users[user.Email] = user
	return user, nil
}

// memTransactionStore is an in-memory stand-in for the transactions table.
type memTransactionStore struct {
	mu   sync.Mutex
	txns map[string]models.Transaction
}

func newMemTransactionStore() *memTransactionStore {
	return &memTransactionStore{txns: map[string]models.Transaction{}}
}

func (m *memTransactionStore) Insert(_ context.Context, _ storage.Credential, txn models.Transaction) (models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	txn.ID = uuid.NewString()
	m.txns[txn.ID] = txn
	return txn, nil
}

func (m *memTransactionStore) ListByOwner(_ context.Context, _ storage.Credential, ownerID string) ([]models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Transaction{}
	for _, txn := range m.txns {
		if txn.OwnerID == ownerID {
			out = append(out, txn)
		}
	}
	return out, nil
}

func (m *memTransactionStore) ListAll(_ context.Context, _ storage.Credential) ([]models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Transaction{}
	for _, txn := range m.txns {
		out = append(out, txn)
	}
	return out, nil
}

func (m *memTransactionStore) GetByID(_ context.Context, _ storage.Credential, id string) (models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if txn, ok := m.txns[id]; ok {
		return txn, nil
	}
	return models.Transaction{}, apperr.New(apperr.NotFound, "transaction not found")
}

func (m *memTransactionStore) UpdateByID(_ context.Context, _ storage.Credential, id string, upd models.TransactionUpdate) (models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	txn, ok := m.txns[id]
	if !ok {
		return models.Transaction{}, apperr.New(apperr.NotFound, "transaction not found")
	}
	txn.Date = upd.Date
	txn.Amount = upd.Amount
	txn.Currency = upd.Currency
	txn.Channel = upd.Channel
	txn.Motif = upd.Motif
	m.txns[id] = txn
	return txn, nil
}

func (m *memTransactionStore) DeleteByID(_ context.Context, _ storage.Credential, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.txns[id]; !ok {
		return apperr.New(apperr.NotFound, "transaction not found")
	}
	delete(m.txns, id)
	return nil
}

type testAPI struct {
	baseURL    string
	idStore    *memIdentityStore
	tokens     *auth.TokenManager
	adminToken string
	uploadsDir string
}

// newTestAPI wires the full handler surface against in-memory stores, with
// one seeded administrator.
func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	tokens := auth.NewTokenManager("test-secret", "finledger-api", time.Hour)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	idStore := newMemIdentityStore()
	txnStore := newMemTransactionStore()

	uploadsDir := t.TempDir()
	uploads, err := files.NewStore(uploadsDir)
	require.NoError(t, err)

	identitySvc := identity.NewService(idStore, tokens, log)
	ledgerSvc := ledger.NewService(txnStore, log)

	mux := http.NewServeMux()
	NewHealthHandler(time.Now()).Register(mux)
	NewAuthHandler(identitySvc, tokens, uploads).Register(mux)
	NewUsersHandler(identitySvc).Register(mux, tokens)
	NewTransactionsHandler(ledgerSvc, uploads).Register(mux, tokens)

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	hash, err := bcrypt.GenerateFromPassword([]byte("root-password"), bcrypt.DefaultCost)
	require.NoError(t, err)
	idStore.seed(models.User{
		ID:           uuid.NewString(),
		Name:         "Root",
		Email:        "root@example.com",
		Role:         models.RoleAdmin,
		PasswordHash: string(hash),
	})

	api := &testAPI{baseURL: ts.URL, idStore: idStore, tokens: tokens, uploadsDir: uploadsDir}
	api.adminToken = api.login(t, "root@example.com", "root-password").Token
	return api
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (a *testAPI) do(t *testing.T, method, path, token string, payload any) (int, envelope) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, a.baseURL+path, body)
	require.NoError(t, err)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func (a *testAPI) register(t *testing.T, email, password string) models.User {
	t.Helper()
	status, env := a.do(t, http.MethodPost, "/api/auth/register", "", dto.RegisterRequest{
		Name:     "Test",
		Surname:  "User",
		Email:    email,
		Password: password,
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	var out dto.RegisterResponse
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out.User
}

func (a *testAPI) login(t *testing.T, email, password string) dto.LoginResponse {
	t.Helper()
	status, env := a.do(t, http.MethodPost, "/api/auth/login", "", dto.LoginRequest{Email: email, Password: password})
	require.Equal(t, http.StatusOK, status, env.Message)
	var out dto.LoginResponse
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func TestEndToEndLedgerFlow(t *testing.T) {
	api := newTestAPI(t)

	created := api.register(t, "a@b.com", "password123")
	assert.Equal(t, models.RoleUser, created.Role)
	assert.Equal(t, "a@b.com", created.Email)

	// Login with differently cased email.
	session := api.login(t, "A@B.com", "password123")
	require.NotEmpty(t, session.Token)
	assert.Equal(t, created.ID, session.User.ID)
	assert.Equal(t, models.RoleUser, session.User.Role)

	// The client-supplied user_id must be ignored in favor of the token's.
	status, env := api.do(t, http.MethodPost, "/api/transactions", session.Token, map[string]any{
		"date":     "2026-08-01T00:00:00Z",
		"amount":   10.50,
		"currency": "USD",
		"channel":  "card",
		"motif":    "lunch",
		"user_id":  uuid.NewString(),
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	var txnResp dto.TransactionResponse
	require.NoError(t, json.Unmarshal(env.Data, &txnResp))
	assert.Equal(t, created.ID, txnResp.Transaction.OwnerID)
	assert.True(t, txnResp.Transaction.Amount.Equal(decimal.RequireFromString("10.50")))

	// Owner fetches their own ledger.
	status, env = api.do(t, http.MethodGet, "/api/transactions/user/"+created.ID, session.Token, nil)
	require.Equal(t, http.StatusOK, status)
	var listResp dto.TransactionListResponse
	require.NoError(t, json.Unmarshal(env.Data, &listResp))
	require.Len(t, listResp.Transactions, 1)
	assert.Equal(t, txnResp.Transaction.ID, listResp.Transactions[0].ID)

	// A different non-admin identity is forbidden, with and without ids.
	api.register(t, "b@b.com", "password123")
	other := api.login(t, "b@b.com", "password123")
	status, _ = api.do(t, http.MethodGet, "/api/transactions/user/"+created.ID, other.Token, nil)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = api.do(t, http.MethodGet, "/api/transactions/"+txnResp.Transaction.ID, other.Token, nil)
	assert.Equal(t, http.StatusForbidden, status)

	// No token at all is the distinct unauthenticated outcome.
	status, _ = api.do(t, http.MethodGet, "/api/transactions/user/"+created.ID, "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	// Admin may read any transaction and the full listing.
	status, _ = api.do(t, http.MethodGet, "/api/transactions/"+txnResp.Transaction.ID, api.adminToken, nil)
	assert.Equal(t, http.StatusOK, status)
	status, env = api.do(t, http.MethodGet, "/api/transactions/all", api.adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &listResp))
	assert.Len(t, listResp.Transactions, 1)

	// The full listing stays closed to plain users.
	status, _ = api.do(t, http.MethodGet, "/api/transactions/all", session.Token, nil)
	assert.Equal(t, http.StatusForbidden, status)

	// Administrative update and delete.
	status, _ = api.do(t, http.MethodPut, "/api/transactions/"+txnResp.Transaction.ID, session.Token, models.TransactionUpdate{})
	assert.Equal(t, http.StatusForbidden, status)

	status, env = api.do(t, http.MethodPut, "/api/transactions/"+txnResp.Transaction.ID, api.adminToken, models.TransactionUpdate{
		Date:     time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC),
		Amount:   decimal.RequireFromString("99.99"),
		Currency: "EUR",
		Channel:  "wire",
		Motif:    "corrected",
	})
	require.Equal(t, http.StatusOK, status, env.Message)
	require.NoError(t, json.Unmarshal(env.Data, &txnResp))
	assert.True(t, txnResp.Transaction.Amount.Equal(decimal.RequireFromString("99.99")))

	status, _ = api.do(t, http.MethodDelete, "/api/transactions/"+txnResp.Transaction.ID, api.adminToken, nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = api.do(t, http.MethodGet, "/api/transactions/"+txnResp.Transaction.ID, api.adminToken, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestRegisterConflictOnCaseInsensitiveEmail(t *testing.T) {
	api := newTestAPI(t)
	api.register(t, "X@y.com", "password123")

	status, _ := api.do(t, http.MethodPost, "/api/auth/register", "", dto.RegisterRequest{
		Name:     "Dup",
		Email:    "x@Y.com",
		Password: "password123",
	})
	assert.Equal(t, http.StatusConflict, status)
}

func TestRegisterAdminEscalation(t *testing.T) {
	api := newTestAPI(t)

	// Without an admin requestor the escalation is forbidden and nothing
	// is created.
	status, _ := api.do(t, http.MethodPost, "/api/auth/register", "", dto.RegisterRequest{
		Name:     "Mallory",
		Email:    "mallory@b.com",
		Password: "password123",
		Role:     models.RoleAdmin,
	})
	assert.Equal(t, http.StatusForbidden, status)
	_, err := api.idStore.FindByEmail(context.Background(), storage.Service(), "mallory@b.com")
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))

	// A plain user's token does not help.
	api.register(t, "plain@b.com", "password123")
	plain := api.login(t, "plain@b.com", "password123")
	status, _ = api.do(t, http.MethodPost, "/api/auth/register", plain.Token, dto.RegisterRequest{
		Name:     "Mallory",
		Email:    "mallory@b.com",
		Password: "password123",
		Role:     models.RoleAdmin,
	})
	assert.Equal(t, http.StatusForbidden, status)

	// An existing admin may grant the role.
	status, env := api.do(t, http.MethodPost, "/api/auth/register", api.adminToken, dto.RegisterRequest{
		Name:     "Deputy",
		Email:    "deputy@b.com",
		Password: "password123",
		Role:     models.RoleAdmin,
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	var out dto.RegisterResponse
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, models.RoleAdmin, out.User.Role)
}

func TestUsersEndpointsAreAdminOnly(t *testing.T) {
	api := newTestAPI(t)
	user := api.register(t, "c@b.com", "password123")
	session := api.login(t, "c@b.com", "password123")

	status, _ := api.do(t, http.MethodGet, "/api/users", session.Token, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, env := api.do(t, http.MethodGet, "/api/users", api.adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	var list dto.UserListResponse
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list.Users, 2)

	status, env = api.do(t, http.MethodGet, "/api/users/"+user.ID, api.adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	var got dto.UserResponse
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, "c@b.com", got.User.Email)
}

func TestCreateTransactionMultipartWithReceipt(t *testing.T) {
	api := newTestAPI(t)
	api.register(t, "m@b.com", "password123")
	session := api.login(t, "m@b.com", "password123")

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	require.NoError(t, form.WriteField("date", "2026-08-01"))
	require.NoError(t, form.WriteField("amount", "42.25"))
	require.NoError(t, form.WriteField("currency", "USD"))
	require.NoError(t, form.WriteField("channel", "cash"))
	require.NoError(t, form.WriteField("motif", "supplies"))
	part, err := form.CreateFormFile("file", "receipt.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4 receipt"))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req, err := http.NewRequest(http.MethodPost, api.baseURL+"/api/transactions", &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+session.Token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	var out dto.TransactionResponse
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.True(t, out.Transaction.Amount.Equal(decimal.RequireFromString("42.25")))
	assert.True(t, strings.HasPrefix(out.Transaction.FileURL, "/uploads/"))
}

func TestRegisterMultipartWithPhoto(t *testing.T) {
	api := newTestAPI(t)

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	require.NoError(t, form.WriteField("name", "Pat"))
	require.NoError(t, form.WriteField("surname", "Lee"))
	require.NoError(t, form.WriteField("email", "p@b.com"))
	require.NoError(t, form.WriteField("password", "password123"))
	require.NoError(t, form.WriteField("dob", "1990-04-12"))
	part, err := form.CreateFormFile("photo", "avatar.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG fake image bytes"))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req, err := http.NewRequest(http.MethodPost, api.baseURL+"/api/auth/register", &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	var out dto.RegisterResponse
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, "p@b.com", out.User.Email)
	require.True(t, strings.HasPrefix(out.User.PhotoURL, "/uploads/"))

	// The photo must actually be on disk under the uploads root.
	stored := filepath.Join(api.uploadsDir, strings.TrimPrefix(out.User.PhotoURL, "/uploads/"))
	info, err := os.Stat(stored)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestHealthIsPublic(t *testing.T) {
	api := newTestAPI(t)
	resp, err := http.Get(api.baseURL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
