package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pasarela/checkout/internal/config"
	"github.com/pasarela/checkout/internal/domain/cart"
	"github.com/pasarela/checkout/internal/domain/checkout"
	domainErrors "github.com/pasarela/checkout/internal/domain/errors"
	"github.com/pasarela/checkout/pkg/retry"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// Transaction is the backend's view of a gateway transaction.
type Transaction struct {
	ID            string `json:"id"`
	Reference     string `json:"reference"`
	Status        string `json:"status"`
	AmountInCents int64  `json:"amount_in_cents"`
	Currency      string `json:"currency"`
}

// IntegrityRequest asks the backend to sign the redirect parameters.
type IntegrityRequest struct {
	Reference     string `json:"reference"`
	AmountInCents int64  `json:"amount_in_cents"`
	Currency      string `json:"currency"`
}

// CreateTransactionRequest synthesizes a transaction from local session
// state. The backend dedupes by reference, so re-issuing it is safe.
type CreateTransactionRequest struct {
	Reference     string                `json:"reference"`
	AmountInCents int64                 `json:"amount_in_cents"`
	Currency      string                `json:"currency"`
	Customer      checkout.CustomerInfo `json:"customer"`
	Delivery      checkout.DeliveryInfo `json:"delivery"`
	CartItems     []cart.Item           `json:"cart_items"`
	PaymentMethod string                `json:"payment_method"`
}

// envelope is the backend's standard response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// httpError carries the status code of a non-2xx backend response.
type httpError struct {
	status int
}

func (e *httpError) Error() string {
	return fmt.Sprintf("backend returned status %d", e.status)
}

func (e *httpError) Unwrap() error { return domainErrors.ErrBackend }

func (e *httpError) retryable() bool {
	return e.status == http.StatusTooManyRequests || e.status >= 500
}

// Client talks to the collaborator backend: product catalog, integrity
// signing and transaction lookup/reconciliation. All requests go through a
// shared retry policy (backoff on 429/5xx and transport failures) and one
// circuit breaker.
type Client struct {
	baseURL  string
	httpc    *http.Client
	retryCfg retry.Config
	breaker  *gobreaker.CircuitBreaker[[]byte]
	logger   zerolog.Logger
}

// New creates a backend client from configuration.
func New(cfg config.BackendConfig, logger zerolog.Logger) *Client {
	maxAttempts := uint(cfg.MaxRetries)
	if maxAttempts == 0 {
		maxAttempts = 1
	}
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = time.Second
	}
	threshold := cfg.CircuitBreakerThreshold
	if threshold <= 0 {
		threshold = 10
	}
	breakerTimeout := cfg.CircuitBreakerTimeout
	if breakerTimeout <= 0 {
		breakerTimeout = 30 * time.Second
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpc:   &http.Client{Timeout: cfg.RequestTimeout},
		retryCfg: retry.Config{
			MaxAttempts:  maxAttempts,
			InitialDelay: retryDelay,
			MaxDelay:     30 * time.Second,
		},
		breaker: gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
			Name:    "checkout-backend",
			Timeout: breakerTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= uint32(threshold) && failureRatio >= 0.6
			},
		}),
		logger: logger,
	}
}

// Products fetches the product catalog.
func (c *Client) Products(ctx context.Context) ([]cart.Product, error) {
	var env envelope
	if err := c.do(ctx, http.MethodGet, "/api/products", nil, &env); err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, fmt.Errorf("%w: %s", domainErrors.ErrBackend, env.Message)
	}

	var products []cart.Product
	if err := json.Unmarshal(env.Data, &products); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	return products, nil
}

// Integrity requests the server-issued signature for the redirect
// parameters. A failure here aborts the submission.
func (c *Client) Integrity(ctx context.Context, req IntegrityRequest) (string, error) {
	var resp struct {
		Integrity string `json:"integrity"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/payments/integrity", req, &resp); err != nil {
		return "", fmt.Errorf("%w: %w", domainErrors.ErrIntegrityUnavailable, err)
	}
	if resp.Integrity == "" {
		return "", domainErrors.ErrIntegrityUnavailable
	}
	return resp.Integrity, nil
}

// Transaction looks up a transaction by reference. A 404 maps to
// ErrTransactionNotFound so callers can trigger reconciliation.
func (c *Client) Transaction(ctx context.Context, reference string) (*Transaction, error) {
	var env envelope
	err := c.do(ctx, http.MethodGet, "/api/payments/"+reference, nil, &env)
	if err != nil {
		var he *httpError
		if errors.As(err, &he) && he.status == http.StatusNotFound {
			return nil, domainErrors.ErrTransactionNotFound
		}
		return nil, err
	}
	if !env.Success {
		return nil, fmt.Errorf("%w: %s", domainErrors.ErrBackend, env.Message)
	}

	var txn Transaction
	if err := json.Unmarshal(env.Data, &txn); err != nil {
		return nil, fmt.Errorf("decode transaction: %w", err)
	}
	return &txn, nil
}

// CreateTransaction reconciles a transaction the backend has no record of,
// from locally held session state plus the gateway return parameters.
func (c *Client) CreateTransaction(ctx context.Context, req CreateTransactionRequest) (*Transaction, error) {
	var env envelope
	if err := c.do(ctx, http.MethodPost, "/api/payments/create-transaction", req, &env); err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, fmt.Errorf("%w: %s", domainErrors.ErrBackend, env.Message)
	}

	var txn Transaction
	if err := json.Unmarshal(env.Data, &txn); err != nil {
		return nil, fmt.Errorf("decode transaction: %w", err)
	}
	return &txn, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	data, err := retry.DoWithResult(ctx, c.retryCfg, isRetryable, func() ([]byte, error) {
		return c.breaker.Execute(func() ([]byte, error) {
			return c.send(ctx, method, path, payload)
		})
	})
	if err != nil {
		c.logger.Warn().Err(err).Str("method", method).Str("path", path).Msg("backend request failed")
		return err
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrNetwork, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &httpError{status: resp.StatusCode}
	}
	return data, nil
}

// isRetryable accepts transport failures and 429/5xx responses. A 404 or
// any other client error is definitive and returned as is; an open circuit
// breaker fails fast without burning attempts.
func isRetryable(err error) bool {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}
	if errors.Is(err, domainErrors.ErrNetwork) {
		return true
	}
	var he *httpError
	if errors.As(err, &he) {
		return he.retryable()
	}
	return false
}
