package backend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pasarela/checkout/internal/config"
	domainErrors "github.com/pasarela/checkout/internal/domain/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := New(config.BackendConfig{
		BaseURL:        srv.URL,
		RequestTimeout: 2 * time.Second,
		MaxRetries:     3,
		RetryDelay:     time.Millisecond,
	}, zerolog.Nop())
	return c, srv
}

func TestProducts_Success(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/products", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"data":[{"id":"p1","name":"Keyboard","price":40000,"stock":5}]}`))
	}))

	products, err := c.Products(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "p1", products[0].ID)
	assert.Equal(t, int64(40000), products[0].PriceCents)
}

func TestProducts_BackendReportsFailure(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"message":"catalog unavailable"}`))
	}))

	_, err := c.Products(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domainErrors.ErrBackend)
	assert.Contains(t, err.Error(), "catalog unavailable")
}

func TestIntegrity_Success(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/payments/integrity", r.URL.Path)
		w.Write([]byte(`{"integrity":"sig-123"}`))
	}))

	sig, err := c.Integrity(context.Background(), IntegrityRequest{
		Reference: "TX_1_abc", AmountInCents: 47500, Currency: "COP",
	})
	require.NoError(t, err)
	assert.Equal(t, "sig-123", sig)
}

func TestIntegrity_ServerError(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := c.Integrity(context.Background(), IntegrityRequest{Reference: "TX_1_abc"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domainErrors.ErrIntegrityUnavailable)
}

func TestTransaction_NotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := c.Transaction(context.Background(), "TX_1_abc")
	assert.ErrorIs(t, err, domainErrors.ErrTransactionNotFound)
	assert.Equal(t, int32(1), calls.Load(), "404 must not be retried")
}

func TestTransaction_RetriesOn5xxThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"success":true,"data":{"id":"gw-1","reference":"TX_1_abc","status":"APPROVED","amount_in_cents":47500}}`))
	}))

	txn, err := c.Transaction(context.Background(), "TX_1_abc")
	require.NoError(t, err)
	assert.Equal(t, "APPROVED", txn.Status)
	assert.Equal(t, int32(3), calls.Load())
}

func TestTransaction_PollIdempotence(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":{"id":"gw-1","reference":"TX_1_abc","status":"PENDING","amount_in_cents":47500}}`))
	}))

	first, err := c.Transaction(context.Background(), "TX_1_abc")
	require.NoError(t, err)
	second, err := c.Transaction(context.Background(), "TX_1_abc")
	require.NoError(t, err)
	assert.Equal(t, first.Status, second.Status)
}

func TestCreateTransaction_Success(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/payments/create-transaction", r.URL.Path)
		w.Write([]byte(`{"success":true,"data":{"id":"gw-9","reference":"TX_1_abc","status":"APPROVED","amount_in_cents":47500}}`))
	}))

	txn, err := c.CreateTransaction(context.Background(), CreateTransactionRequest{
		Reference: "TX_1_abc", AmountInCents: 47500, Currency: "COP", PaymentMethod: "CARD",
	})
	require.NoError(t, err)
	assert.Equal(t, "gw-9", txn.ID)
}

func TestNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := New(config.BackendConfig{
		BaseURL:        url,
		RequestTimeout: time.Second,
		MaxRetries:     2,
		RetryDelay:     time.Millisecond,
	}, zerolog.Nop())

	_, err := c.Transaction(context.Background(), "TX_1_abc")
	require.Error(t, err)
	assert.ErrorIs(t, err, domainErrors.ErrNetwork)
}
