// Package supastore implements the storage interfaces against a Supabase
// PostgREST endpoint. Every request presents the credential chosen by the
// caller: the public key, the privileged service key, or the caller's own
// forwarded token, which the store's row-level security acts on.
package supastore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/finledger/backend/internal/apperr"
	"github.com/finledger/backend/internal/storage"
)

const maxResponseBytes = 1 << 20

// Config carries the connection settings for the row store.
type Config struct {
	// BaseURL is the PostgREST root, e.g. https://proj.supabase.co/rest/v1.
	BaseURL    string
	AnonKey    string
	ServiceKey string
	Timeout    time.Duration
	Logger     *slog.Logger
}

// Client is a thin HTTP client for the row store. It is safe for
// concurrent use; all state is read-only after construction.
type Client struct {
	baseURL    string
	anonKey    string
	serviceKey string
	http       *http.Client
	log        *slog.Logger
}

// New builds a client with a bounded per-call timeout.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		anonKey:    cfg.AnonKey,
		serviceKey: cfg.ServiceKey,
		http:       &http.Client{Timeout: timeout},
		log:        logger,
	}
}

// bearer resolves the Authorization value for a credential. The zero
// credential has no tier and is rejected before any request is built.
func (c *Client) bearer(cred storage.Credential) (string, error) {
	switch cred.Tier() {
	case storage.TierAnonymous:
		return c.anonKey, nil
	case storage.TierService:
		return c.serviceKey, nil
	case storage.TierUser:
		if cred.UserToken() == "" {
			return "", apperr.New(apperr.Internal, "user-tier store call without a token")
		}
		return cred.UserToken(), nil
	default:
		return "", apperr.New(apperr.Internal, "store call without a credential tier")
	}
}

// do issues one request and maps every failure mode to the shared taxonomy.
// Upstream diagnostic detail stays in server-side logs.
func (c *Client) do(ctx context.Context, cred storage.Credential, method, table string, query url.Values, body any, returning bool) ([]byte, error) {
	bearer, err := c.bearer(cred)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/%s", c.baseURL, table)
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, apperr.Wrap(apperr.Internal, "encode store payload", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "build store request", err)
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if returning {
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			c.log.Error("row store call timed out", "method", method, "table", table, "tier", cred.Tier().String())
			return nil, apperr.Wrap(apperr.UpstreamTimeout, "row store timed out", err)
		}
		c.log.Error("row store unreachable", "method", method, "table", table, "tier", cred.Tier().String(), "err", err)
		return nil, apperr.Wrap(apperr.Upstream, "row store unreachable", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, apperr.Wrap(apperr.Upstream, "read store response", err)
	}

	if resp.StatusCode >= http.StatusMultipleChoices {
		c.log.Error("row store rejected request",
			"method", method, "table", table, "tier", cred.Tier().String(),
			"status", resp.StatusCode, "body", string(data))
		switch resp.StatusCode {
		case http.StatusConflict:
			return nil, apperr.New(apperr.Conflict, "record already exists")
		case http.StatusNotFound:
			return nil, apperr.New(apperr.NotFound, "record not found")
		default:
			return nil, apperr.New(apperr.Upstream, "row store rejected the request")
		}
	}

	return data, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return os.IsTimeout(err)
}

// decodeRows parses a PostgREST result set, which is always a JSON array
// even for single-row filters.
func decodeRows[T any](data []byte) ([]T, error) {
	var rows []T
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, apperr.Wrap(apperr.Upstream, "unexpected store response shape", err)
	}
	return rows, nil
}
