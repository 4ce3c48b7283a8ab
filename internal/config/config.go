package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds runtime configuration sourced from env vars. It is loaded
// once at startup and injected everywhere; in particular the JWT secret,
// issuer, and TTL feed both the mint and validate paths from this single
// struct.
type Config struct {
	Port string

	SupabaseURL        string
	SupabaseAnonKey    string
	SupabaseServiceKey string
	StoreTimeout       time.Duration

	JWTSecret string
	JWTIssuer string
	JWTTTL    time.Duration

	UploadDir   string
	CORSOrigins []string
}

// Load reads configuration from the environment and performs minimal validation.
func Load() (Config, error) {
	cfg := Config{
		Port:               fallback(os.Getenv("PORT"), "8080"),
		SupabaseURL:        strings.TrimRight(strings.TrimSpace(os.Getenv("SUPABASE_URL")), "/"),
		SupabaseAnonKey:    strings.TrimSpace(os.Getenv("SUPABASE_ANON_KEY")),
		SupabaseServiceKey: strings.TrimSpace(os.Getenv("SUPABASE_SERVICE_KEY")),
		JWTSecret:          strings.TrimSpace(os.Getenv("JWT_SECRET")),
		JWTIssuer:          fallback(os.Getenv("JWT_ISSUER"), "finledger-api"),
		UploadDir:          fallback(os.Getenv("UPLOAD_DIR"), "uploads"),
		CORSOrigins:        parseCSV(fallback(os.Getenv("CORS_ALLOWED_ORIGINS"), "*")),
	}

	cfg.JWTTTL = durationFrom(os.Getenv("JWT_TTL_MINUTES"), 120, time.Minute)
	cfg.StoreTimeout = durationFrom(os.Getenv("STORE_TIMEOUT_SECONDS"), 10, time.Second)

	if cfg.SupabaseURL == "" {
		return Config{}, errors.New("SUPABASE_URL is required")
	}
	if cfg.SupabaseAnonKey == "" {
		return Config{}, errors.New("SUPABASE_ANON_KEY is required")
	}
	if cfg.SupabaseServiceKey == "" {
		return Config{}, errors.New("SUPABASE_SERVICE_KEY is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}

	return cfg, nil
}

// HTTPAddress returns the host:port pair for the HTTP server to bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

func durationFrom(value string, def int, unit time.Duration) time.Duration {
	if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && n > 0 {
		return time.Duration(n) * unit
	}
	return time.Duration(def) * unit
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}

func parseCSV(input string) []string {
	parts := strings.Split(input, ",")
	var out []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
