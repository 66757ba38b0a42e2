package gateway

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pasarela/checkout/internal/backend"
	"github.com/pasarela/checkout/internal/config"
	"github.com/pasarela/checkout/internal/domain/transaction"
)

type stubSigner struct {
	signature string
	err       error
	lastReq   backend.IntegrityRequest
}

func (s *stubSigner) Integrity(_ context.Context, req backend.IntegrityRequest) (string, error) {
	s.lastReq = req
	return s.signature, s.err
}

func testAdapter(signer IntegritySigner) *Adapter {
	return NewAdapter(config.GatewayConfig{
		CheckoutURL: "https://checkout.example.com/p/",
		PublicKey:   "pub_test_abc123",
		RedirectURL: "https://shop.example.com/checkout/result",
	}, "COP", signer, zerolog.Nop())
}

func TestAdapter_Prepare(t *testing.T) {
	signer := &stubSigner{signature: "sig-xyz"}
	adapter := testAdapter(signer)

	sub, err := adapter.Prepare(context.Background(), SubmitRequest{
		AmountInCents: 47_500,
		CustomerEmail: "ana@example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, sub.Reference, signer.lastReq.Reference)
	assert.Equal(t, int64(47_500), signer.lastReq.AmountInCents)
	assert.Equal(t, "COP", signer.lastReq.Currency)

	parsed, err := url.Parse(sub.RedirectURL)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sub.RedirectURL, "https://checkout.example.com/p/?"))

	query := parsed.Query()
	assert.Equal(t, "pub_test_abc123", query.Get("public-key"))
	assert.Equal(t, "COP", query.Get("currency"))
	assert.Equal(t, "47500", query.Get("amount-in-cents"))
	assert.Equal(t, sub.Reference, query.Get("reference"))
	assert.Equal(t, "sig-xyz", query.Get("signature:integrity"))
	assert.Equal(t, "ana@example.com", query.Get("customer-email"))
	assert.Equal(t, "https://shop.example.com/checkout/result", query.Get("redirect-url"))

	require.NotNil(t, sub.Record)
	assert.Equal(t, sub.Reference, sub.Record.Reference)
	assert.Equal(t, transaction.StatusPending, sub.Record.Status)
	assert.Equal(t, int64(47_500), sub.Record.AmountCents)
}

func TestAdapter_PrepareAbortsWithoutSignature(t *testing.T) {
	signerErr := errors.New("integrity endpoint down")
	adapter := testAdapter(&stubSigner{err: signerErr})

	_, err := adapter.Prepare(context.Background(), SubmitRequest{AmountInCents: 1000, CustomerEmail: "a@b.co"})
	require.Error(t, err)
	assert.ErrorIs(t, err, signerErr)
}

func TestNewReference_Format(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ref := NewReference(now)

	pattern := regexp.MustCompile(`^TX_(\d+)_([0-9a-z]{6})$`)
	matches := pattern.FindStringSubmatch(ref)
	require.NotNil(t, matches, "reference %q does not match the expected shape", ref)
	assert.Equal(t, "1748779200000", matches[1])
}

func TestNewReference_Unique(t *testing.T) {
	now := time.Now()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		ref := NewReference(now)
		assert.False(t, seen[ref], "duplicate reference %q", ref)
		seen[ref] = true
	}
}
