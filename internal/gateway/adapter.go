package gateway

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pasarela/checkout/internal/backend"
	"github.com/pasarela/checkout/internal/config"
	"github.com/pasarela/checkout/internal/domain/transaction"
)

// IntegritySigner obtains the integrity signature the hosted checkout page
// requires in its redirect parameters. Signing needs the gateway secret, so
// it lives on the backend; the adapter only carries the result.
type IntegritySigner interface {
	Integrity(ctx context.Context, req backend.IntegrityRequest) (string, error)
}

// Submission is a prepared hand-off to the hosted payment page: the
// generated reference, the fully parameterized redirect URL and the pending
// record to persist before redirecting.
type Submission struct {
	Reference   string
	RedirectURL string
	Record      *transaction.Record
}

// SubmitRequest carries the session data the redirect parameters need.
type SubmitRequest struct {
	AmountInCents int64
	CustomerEmail string
}

// Adapter prepares submissions to the hosted payment gateway. It never
// talks to the gateway itself: the browser does, via the redirect URL.
type Adapter struct {
	checkoutURL string
	publicKey   string
	redirectURL string
	currency    string
	signer      IntegritySigner
	logger      zerolog.Logger
}

func NewAdapter(cfg config.GatewayConfig, currency string, signer IntegritySigner, logger zerolog.Logger) *Adapter {
	return &Adapter{
		checkoutURL: strings.TrimRight(cfg.CheckoutURL, "/"),
		publicKey:   cfg.PublicKey,
		redirectURL: cfg.RedirectURL,
		currency:    currency,
		signer:      signer,
		logger:      logger,
	}
}

// Prepare generates a fresh reference, obtains its integrity signature and
// builds the redirect URL. No signature means no submission: the gateway
// would reject the unsigned redirect anyway, so the attempt is aborted
// before the user ever leaves the summary.
func (a *Adapter) Prepare(ctx context.Context, req SubmitRequest) (*Submission, error) {
	reference := NewReference(time.Now())

	signature, err := a.signer.Integrity(ctx, backend.IntegrityRequest{
		Reference:     reference,
		AmountInCents: req.AmountInCents,
		Currency:      a.currency,
	})
	if err != nil {
		return nil, fmt.Errorf("sign reference %s: %w", reference, err)
	}

	record, err := transaction.NewRecord(reference, req.AmountInCents, a.currency)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("public-key", a.publicKey)
	params.Set("currency", a.currency)
	params.Set("amount-in-cents", strconv.FormatInt(req.AmountInCents, 10))
	params.Set("reference", reference)
	params.Set("signature:integrity", signature)
	params.Set("customer-email", req.CustomerEmail)
	params.Set("redirect-url", a.redirectURL)

	a.logger.Info().
		Str("reference", reference).
		Int64("amount_in_cents", req.AmountInCents).
		Msg("payment submission prepared")

	return &Submission{
		Reference:   reference,
		RedirectURL: a.checkoutURL + "/?" + params.Encode(),
		Record:      record,
	}, nil
}

const base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewReference builds a payment reference: a TX_ prefix, the submission
// time in unix milliseconds and a random 6-character base36 suffix. The
// timestamp orders references; the suffix makes same-millisecond
// submissions distinct.
func NewReference(now time.Time) string {
	suffix := make([]byte, 6)
	for i := range suffix {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(base36Alphabet))))
		if err != nil {
			// crypto/rand only fails when the platform entropy source is
			// broken; there is no useful fallback.
			panic(fmt.Sprintf("read random suffix: %v", err))
		}
		suffix[i] = base36Alphabet[n.Int64()]
	}
	return fmt.Sprintf("TX_%d_%s", now.UnixMilli(), suffix)
}
