package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/finledger/backend/internal/apperr"
	"github.com/finledger/backend/internal/auth"
	"github.com/finledger/backend/internal/files"
	"github.com/finledger/backend/internal/http/respond"
	"github.com/finledger/backend/internal/identity"
	"github.com/finledger/backend/internal/middleware"
	"github.com/finledger/backend/internal/models/dto"
)

// AuthHandler owns the login and registration endpoints.
type AuthHandler struct {
	identity *identity.Service
	tokens   *auth.TokenManager
	uploads  *files.Store
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(identitySvc *identity.Service, tokens *auth.TokenManager, uploads *files.Store) *AuthHandler {
	return &AuthHandler{identity: identitySvc, tokens: tokens, uploads: uploads}
}

// Register attaches auth routes to the mux. Both routes are public;
// registration additionally honors an optional bearer token so an existing
// administrator can grant elevated roles.
func (h *AuthHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/login", h.handleLogin)
	mux.HandleFunc("POST /api/auth/register", h.handleRegister)
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	token, user, err := h.identity.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respond.Failure(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "login successful", dto.LoginResponse{Token: token, User: user})
}

func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	in, err := h.decodeRegistration(r)
	if err != nil {
		respond.Failure(w, err)
		return
	}

	created, err := h.identity.Register(r.Context(), in, h.optionalPrincipal(r))
	if err != nil {
		respond.Failure(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, "registration successful", dto.RegisterResponse{User: created})
}

// optionalPrincipal validates a bearer token when one is present. A missing
// or invalid token just means there is no requestor; the escalation gate in
// the identity service decides what that implies.
func (h *AuthHandler) optionalPrincipal(r *http.Request) *auth.Principal {
	token, ok := middleware.BearerToken(r)
	if !ok {
		return nil
	}
	p, err := h.tokens.Validate(token)
	if err != nil {
		return nil
	}
	return p
}

func (h *AuthHandler) decodeRegistration(r *http.Request) (identity.RegisterInput, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return h.decodeRegistrationForm(r)
	}

	var req dto.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return identity.RegisterInput{}, apperr.New(apperr.InvalidInput, "invalid JSON payload")
	}
	in := identity.RegisterInput{
		Name:     req.Name,
		Surname:  req.Surname,
		Email:    req.Email,
		Address:  req.Address,
		Password: req.Password,
		Role:     req.Role,
	}
	if req.Dob != "" {
		dob, err := parseDate(req.Dob)
		if err != nil {
			return identity.RegisterInput{}, err
		}
		in.Dob = &dob
	}
	return in, nil
}

func (h *AuthHandler) decodeRegistrationForm(r *http.Request) (identity.RegisterInput, error) {
	if err := r.ParseMultipartForm(files.MaxUploadBytes); err != nil {
		return identity.RegisterInput{}, apperr.New(apperr.InvalidInput, "invalid multipart payload")
	}
	in := identity.RegisterInput{
		Name:     r.FormValue("name"),
		Surname:  r.FormValue("surname"),
		Email:    r.FormValue("email"),
		Address:  r.FormValue("address"),
		Password: r.FormValue("password"),
		Role:     r.FormValue("role"),
	}
	if raw := r.FormValue("dob"); raw != "" {
		dob, err := parseDate(raw)
		if err != nil {
			return identity.RegisterInput{}, err
		}
		in.Dob = &dob
	}
	if file, header, err := r.FormFile("photo"); err == nil {
		defer file.Close()
		url, err := h.uploads.Save(file, header.Filename)
		if err != nil {
			return identity.RegisterInput{}, apperr.Wrap(apperr.Internal, "failed to store photo", err)
		}
		in.PhotoURL = url
	}
	return in, nil
}

// parseDate accepts a plain date or a full timestamp.
func parseDate(raw string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, apperr.Newf(apperr.InvalidInput, "invalid date %q", raw)
}
