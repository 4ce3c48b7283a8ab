package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/finledger/backend/internal/config"
	"github.com/finledger/backend/internal/files"
	"github.com/finledger/backend/internal/server"
	"github.com/finledger/backend/internal/storage/supastore"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	loadLocalEnv(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("load config", "err", err)
		os.Exit(1)
	}

	client := supastore.New(supastore.Config{
		BaseURL:    cfg.SupabaseURL,
		AnonKey:    cfg.SupabaseAnonKey,
		ServiceKey: cfg.SupabaseServiceKey,
		Timeout:    cfg.StoreTimeout,
		Logger:     log,
	})

	uploads, err := files.NewStore(cfg.UploadDir)
	if err != nil {
		log.Error("init upload store", "err", err)
		os.Exit(1)
	}

	srv := server.New(cfg, supastore.NewIdentityStore(client), supastore.NewTransactionStore(client), uploads, log)

	go func() {
		log.Info("finledger backend listening", "addr", cfg.HTTPAddress())
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "err", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Error("graceful shutdown error", "err", err)
	}
}

func loadLocalEnv(log *slog.Logger) {
	if err := godotenv.Load(); err != nil {
		log.Info("no .env file found; relying on existing environment")
	}
}
