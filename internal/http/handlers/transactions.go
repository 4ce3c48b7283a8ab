package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/finledger/backend/internal/apperr"
	"github.com/finledger/backend/internal/auth"
	"github.com/finledger/backend/internal/files"
	"github.com/finledger/backend/internal/http/respond"
	"github.com/finledger/backend/internal/ledger"
	"github.com/finledger/backend/internal/middleware"
	"github.com/finledger/backend/internal/models"
	"github.com/finledger/backend/internal/models/dto"
)

// TransactionsHandler owns the ledger endpoints.
type TransactionsHandler struct {
	ledger  *ledger.Service
	uploads *files.Store
}

// NewTransactionsHandler constructs the handler.
func NewTransactionsHandler(ledgerSvc *ledger.Service, uploads *files.Store) *TransactionsHandler {
	return &TransactionsHandler{ledger: ledgerSvc, uploads: uploads}
}

// Register attaches transaction routes to the mux. Every route requires a
// token; the administrative ones carry an explicit role allow-list on top.
func (h *TransactionsHandler) Register(mux *http.ServeMux, tokens *auth.TokenManager) {
	authed := func(handler http.HandlerFunc) http.Handler {
		return middleware.Authenticate(tokens, handler)
	}
	withRoles := func(handler http.HandlerFunc, roles ...string) http.Handler {
		return middleware.Authenticate(tokens, middleware.RequireRole(handler, roles...))
	}

	mux.Handle("POST /api/transactions", authed(h.handleCreate))
	mux.Handle("GET /api/transactions/user/{id}", authed(h.handleListByOwner))
	mux.Handle("GET /api/transactions/all", withRoles(h.handleListAll, models.RoleAdmin, models.RoleManager))
	mux.Handle("GET /api/transactions/{id}", authed(h.handleGet))
	mux.Handle("PUT /api/transactions/{id}", withRoles(h.handleUpdate, models.RoleAdmin))
	mux.Handle("DELETE /api/transactions/{id}", withRoles(h.handleDelete, models.RoleAdmin))
}

func (h *TransactionsHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFrom(r.Context())

	in, err := h.decodeCreate(r)
	if err != nil {
		respond.Failure(w, err)
		return
	}

	created, err := h.ledger.Create(r.Context(), p, in)
	if err != nil {
		respond.Failure(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, "transaction created", dto.TransactionResponse{Transaction: created})
}

func (h *TransactionsHandler) handleListByOwner(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFrom(r.Context())

	txns, err := h.ledger.ListByOwner(r.Context(), p, r.PathValue("id"))
	if err != nil {
		respond.Failure(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "transactions fetched", dto.TransactionListResponse{Transactions: txns})
}

func (h *TransactionsHandler) handleListAll(w http.ResponseWriter, r *http.Request) {
	txns, err := h.ledger.ListAll(r.Context())
	if err != nil {
		respond.Failure(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "transactions fetched", dto.TransactionListResponse{Transactions: txns})
}

func (h *TransactionsHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFrom(r.Context())

	txn, err := h.ledger.Get(r.Context(), p, r.PathValue("id"))
	if err != nil {
		respond.Failure(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "transaction fetched", dto.TransactionResponse{Transaction: txn})
}

func (h *TransactionsHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var upd models.TransactionUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	updated, err := h.ledger.Update(r.Context(), r.PathValue("id"), upd)
	if err != nil {
		respond.Failure(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "transaction updated", dto.TransactionResponse{Transaction: updated})
}

func (h *TransactionsHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.Delete(r.Context(), r.PathValue("id")); err != nil {
		respond.Failure(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "transaction deleted", nil)
}

// decodeCreate reads the create payload from either JSON or a multipart
// form with an optional receipt file. Any owner id in the payload is
// ignored; ownership comes from the token alone.
func (h *TransactionsHandler) decodeCreate(r *http.Request) (ledger.CreateInput, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return h.decodeCreateForm(r)
	}

	var req dto.CreateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return ledger.CreateInput{}, apperr.New(apperr.InvalidInput, "invalid JSON payload")
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return ledger.CreateInput{}, err
	}
	return ledger.CreateInput{
		Date:     date,
		Amount:   req.Amount,
		Currency: req.Currency,
		Channel:  req.Channel,
		Motif:    req.Motif,
	}, nil
}

func (h *TransactionsHandler) decodeCreateForm(r *http.Request) (ledger.CreateInput, error) {
	if err := r.ParseMultipartForm(files.MaxUploadBytes); err != nil {
		return ledger.CreateInput{}, apperr.New(apperr.InvalidInput, "invalid multipart payload")
	}
	date, err := parseDate(r.FormValue("date"))
	if err != nil {
		return ledger.CreateInput{}, err
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(r.FormValue("amount")))
	if err != nil {
		return ledger.CreateInput{}, apperr.New(apperr.InvalidInput, "invalid amount")
	}
	in := ledger.CreateInput{
		Date:     date,
		Amount:   amount,
		Currency: r.FormValue("currency"),
		Channel:  r.FormValue("channel"),
		Motif:    r.FormValue("motif"),
	}
	if file, header, err := r.FormFile("file"); err == nil {
		defer file.Close()
		url, err := h.uploads.Save(file, header.Filename)
		if err != nil {
			return ledger.CreateInput{}, apperr.Wrap(apperr.Internal, "failed to store attachment", err)
		}
		in.FileURL = url
	}
	return in, nil
}
