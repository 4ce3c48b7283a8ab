package handlers

import (
	"net/http"

	"github.com/finledger/backend/internal/auth"
	"github.com/finledger/backend/internal/http/respond"
	"github.com/finledger/backend/internal/identity"
	"github.com/finledger/backend/internal/middleware"
	"github.com/finledger/backend/internal/models"
	"github.com/finledger/backend/internal/models/dto"
)

// UsersHandler owns the administrative user endpoints.
type UsersHandler struct {
	identity *identity.Service
}

// NewUsersHandler constructs the handler.
func NewUsersHandler(identitySvc *identity.Service) *UsersHandler {
	return &UsersHandler{identity: identitySvc}
}

// Register attaches user routes to the mux; all of them are admin-only.
func (h *UsersHandler) Register(mux *http.ServeMux, tokens *auth.TokenManager) {
	admin := func(handler http.HandlerFunc) http.Handler {
		return middleware.Authenticate(tokens, middleware.RequireRole(handler, models.RoleAdmin))
	}
	mux.Handle("GET /api/users", admin(h.handleList))
	mux.Handle("GET /api/users/{id}", admin(h.handleGet))
}

func (h *UsersHandler) handleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.identity.ListUsers(r.Context())
	if err != nil {
		respond.Failure(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "users fetched", dto.UserListResponse{Users: users})
}

func (h *UsersHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, err := h.identity.GetUser(r.Context(), r.PathValue("id"))
	if err != nil {
		respond.Failure(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "user fetched", dto.UserResponse{User: user})
}
