package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/finledger/backend/internal/auth"
	"github.com/finledger/backend/internal/config"
	"github.com/finledger/backend/internal/files"
	"github.com/finledger/backend/internal/http/handlers"
	"github.com/finledger/backend/internal/identity"
	"github.com/finledger/backend/internal/ledger"
	"github.com/finledger/backend/internal/middleware"
	"github.com/finledger/backend/internal/storage"
)

// Server wraps an http.Server with configured routes.
type Server struct {
	inner *http.Server
}

// New wires middleware, services, and routes, and returns a ready server.
// The token manager is built once here so mint and validate share one key,
// issuer, and lifetime.
func New(cfg config.Config, identityStore storage.IdentityStore, txnStore storage.TransactionStore, uploads *files.Store, log *slog.Logger) *Server {
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	identitySvc := identity.NewService(identityStore, tokens, log)
	ledgerSvc := ledger.NewService(txnStore, log)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(time.Now()).Register(mux)
	handlers.NewAuthHandler(identitySvc, tokens, uploads).Register(mux)
	handlers.NewUsersHandler(identitySvc).Register(mux, tokens)
	handlers.NewTransactionsHandler(ledgerSvc, uploads).Register(mux, tokens)
	mux.Handle("GET /uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(uploads.Dir()))))

	handler := middleware.CORS(cfg.CORSOrigins, middleware.Logging(log, mux))

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{inner: httpServer}
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
