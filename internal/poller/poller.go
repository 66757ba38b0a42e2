package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pasarela/checkout/internal/backend"
	domainErrors "github.com/pasarela/checkout/internal/domain/errors"
	"github.com/pasarela/checkout/internal/domain/transaction"
	"github.com/pasarela/checkout/internal/infrastructure/observability"
	"github.com/pasarela/checkout/internal/session"
)

// User-facing error codes surfaced on the session while or after polling.
// The names are wire constants shared with the frontend; do not rename.
const (
	ErrCodeNoReference = "ERROR_NO_REFERENCE"
	ErrCodeNetwork     = "ERROR_NETWORK"
	ErrCodeConsulta    = "ERROR_CONSULTA"
)

// Backend is the slice of the backend client the poller needs.
type Backend interface {
	Transaction(ctx context.Context, reference string) (*backend.Transaction, error)
	CreateTransaction(ctx context.Context, req backend.CreateTransactionRequest) (*backend.Transaction, error)
}

// RecordStore persists terminal outcomes durably.
type RecordStore interface {
	Upsert(ctx context.Context, rec *transaction.Record) error
}

// ReturnParams are the query parameters the gateway appends when it sends
// the browser back.
type ReturnParams struct {
	GatewayTransactionID string // "id"
	Reference            string // "reference"
	Status               string // "status"; advisory only, never trusted
}

// Poller resolves the outcome of a submitted payment. One polling loop per
// session: it waits an initial delay, then queries the backend for the
// transaction by reference, re-arming after a retry interval while the
// status is still pending. A new query is scheduled only after the previous
// one has fully resolved, so a session never has overlapping polls.
type Poller struct {
	backend       Backend
	sessions      *session.Manager
	records       RecordStore
	initialDelay  time.Duration
	retryInterval time.Duration
	metrics       *observability.Metrics
	logger        zerolog.Logger

	mu     sync.Mutex
	active map[string]*pollLoop
	wg     sync.WaitGroup
}

// pollLoop identifies one polling goroutine. The map entry is compared by
// pointer on cleanup, so a loop replaced mid-flight never tears down its
// successor's registration.
type pollLoop struct {
	cancel context.CancelFunc
}

func New(
	initialDelay, retryInterval time.Duration,
	backend Backend,
	sessions *session.Manager,
	records RecordStore,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Poller {
	return &Poller{
		backend:       backend,
		sessions:      sessions,
		records:       records,
		initialDelay:  initialDelay,
		retryInterval: retryInterval,
		metrics:       metrics,
		logger:        logger,
		active:        make(map[string]*pollLoop),
	}
}

// Start begins resolving the outcome for a session that returned from the
// gateway. With neither an id nor a reference in the return parameters the
// attempt is unresolvable: the session is marked ERROR_NO_REFERENCE and no
// polling is scheduled, unless the stored transaction is already settled,
// in which case the recorded outcome stands. Starting a session that is
// already being polled replaces the old loop.
func (p *Poller) Start(ctx context.Context, sessionID string, params ReturnParams) error {
	reference, err := p.resolveReference(ctx, sessionID, params)
	if err != nil {
		return err
	}
	if reference == "" {
		marked := false
		_, err := p.sessions.Update(ctx, sessionID, func(s *session.State) error {
			if s.Transaction != nil && s.Transaction.Status.IsTerminal() {
				// Result page revisited after settlement; the stored
				// outcome stands.
				return nil
			}
			marked = true
			s.LastError = ErrCodeNoReference
			if s.Transaction != nil {
				return s.Transaction.Resolve(params.GatewayTransactionID, transaction.StatusError)
			}
			return nil
		})
		if err == nil && marked {
			p.metrics.PollOutcomesTotal.WithLabelValues("no_reference").Inc()
		}
		return err
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	loop := &pollLoop{cancel: cancel}

	p.mu.Lock()
	if prev, ok := p.active[sessionID]; ok {
		prev.cancel()
	}
	p.active[sessionID] = loop
	p.mu.Unlock()

	p.wg.Add(1)
	go p.run(loopCtx, loop, sessionID, reference, params.GatewayTransactionID)
	return nil
}

// Stop cancels the polling loop for one session. The current query may
// still be in flight, but its result is discarded and nothing further is
// scheduled.
func (p *Poller) Stop(sessionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if loop, ok := p.active[sessionID]; ok {
		loop.cancel()
		delete(p.active, sessionID)
	}
}

// Shutdown cancels every loop and waits for them to exit.
func (p *Poller) Shutdown() {
	p.mu.Lock()
	for id, loop := range p.active {
		loop.cancel()
		delete(p.active, id)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

// release deregisters a finished loop, unless the session has already been
// handed to a replacement loop.
func (p *Poller) release(sessionID string, loop *pollLoop) {
	loop.cancel()
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active[sessionID] == loop {
		delete(p.active, sessionID)
	}
}

// resolveReference picks the reference to poll: the return URL's, falling
// back to the one recorded at submission when the gateway only sent an id.
func (p *Poller) resolveReference(ctx context.Context, sessionID string, params ReturnParams) (string, error) {
	if params.Reference != "" {
		return params.Reference, nil
	}
	if params.GatewayTransactionID == "" {
		return "", nil
	}
	state, err := p.sessions.Get(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if state.Transaction == nil {
		return "", nil
	}
	return state.Transaction.Reference, nil
}

func (p *Poller) run(ctx context.Context, loop *pollLoop, sessionID, reference, gatewayTxID string) {
	defer p.wg.Done()
	defer p.release(sessionID, loop)

	p.metrics.ActivePolls.Inc()
	defer p.metrics.ActivePolls.Dec()

	start := time.Now()
	createAttempted := false

	if !p.sleep(ctx, p.initialDelay) {
		return
	}

	for {
		done := p.pollOnce(ctx, sessionID, reference, gatewayTxID, &createAttempted)
		if done {
			p.metrics.PollDuration.Observe(time.Since(start).Seconds())
			return
		}
		if !p.sleep(ctx, p.retryInterval) {
			return
		}
	}
}

// pollOnce issues a single status query and applies its outcome to the
// session. It returns true when the polling session is over, either because
// a terminal status was observed or because the attempt is unresolvable.
func (p *Poller) pollOnce(ctx context.Context, sessionID, reference, gatewayTxID string, createAttempted *bool) bool {
	tx, err := p.backend.Transaction(ctx, reference)

	switch {
	case err == nil:
		// Fall through to status handling below.

	case errors.Is(err, domainErrors.ErrTransactionNotFound):
		// The gateway redirected back before the backend ever saw the
		// transaction. Synthesize it once from session state; the backend
		// dedupes by reference, so a raced second create is harmless.
		if *createAttempted {
			p.metrics.PollAttemptsTotal.WithLabelValues("not_found").Inc()
			return p.fail(ctx, sessionID, gatewayTxID, ErrCodeConsulta)
		}
		*createAttempted = true
		tx, err = p.createFromSession(ctx, sessionID, reference)
		if err != nil {
			p.logger.Error().Err(err).Str("reference", reference).Msg("reconciliation create failed")
			p.metrics.PollAttemptsTotal.WithLabelValues("create_failed").Inc()
			return p.fail(ctx, sessionID, gatewayTxID, ErrCodeConsulta)
		}

	case ctx.Err() != nil:
		return true

	default:
		// Transport-level failure: non-terminal, keep polling.
		p.logger.Warn().Err(err).Str("reference", reference).Msg("status query failed")
		p.metrics.PollAttemptsTotal.WithLabelValues("network_error").Inc()
		p.setLastError(ctx, sessionID, ErrCodeNetwork)
		return false
	}

	p.metrics.PollAttemptsTotal.WithLabelValues("ok").Inc()

	status := transaction.NormalizeGatewayStatus(tx.Status)
	if status == transaction.StatusPending {
		p.setLastError(ctx, sessionID, "")
		return false
	}

	return p.finalize(ctx, sessionID, tx.ID, status)
}

// finalize applies a terminal status: resolve the session's record, clear
// the cart when the payment was approved, and persist the outcome durably.
func (p *Poller) finalize(ctx context.Context, sessionID, gatewayTxID string, status transaction.Status) bool {
	state, err := p.sessions.Update(ctx, sessionID, func(s *session.State) error {
		s.LastError = ""
		if s.Transaction == nil {
			return domainErrors.ErrTransactionNotFound
		}
		if err := s.Transaction.Resolve(gatewayTxID, status); err != nil {
			return err
		}
		if status == transaction.StatusApproved {
			s.Cart.Clear()
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domainErrors.ErrCheckoutTerminal) {
			// A concurrent resolution already settled this attempt.
			return true
		}
		p.logger.Error().Err(err).Str("session_id", sessionID).Msg("applying terminal status failed")
		return true
	}

	if state.Transaction != nil {
		if err := p.records.Upsert(ctx, state.Transaction); err != nil {
			p.logger.Error().Err(err).Str("reference", state.Transaction.Reference).Msg("persisting terminal record failed")
		}
	}

	p.metrics.PollOutcomesTotal.WithLabelValues(string(status)).Inc()
	p.logger.Info().
		Str("session_id", sessionID).
		Str("status", string(status)).
		Msg("polling session resolved")
	return true
}

// fail terminally marks the session with a user-facing error code and
// resolves the record as errored.
func (p *Poller) fail(ctx context.Context, sessionID, gatewayTxID, code string) bool {
	_, err := p.sessions.Update(ctx, sessionID, func(s *session.State) error {
		s.LastError = code
		if s.Transaction != nil {
			return s.Transaction.Resolve(gatewayTxID, transaction.StatusError)
		}
		return nil
	})
	if err != nil {
		p.logger.Error().Err(err).Str("session_id", sessionID).Msg("recording poll failure failed")
	}
	p.metrics.PollOutcomesTotal.WithLabelValues("error").Inc()
	return true
}

func (p *Poller) setLastError(ctx context.Context, sessionID, code string) {
	_, err := p.sessions.Update(ctx, sessionID, func(s *session.State) error {
		s.LastError = code
		return nil
	})
	if err != nil {
		p.logger.Error().Err(err).Str("session_id", sessionID).Msg("updating session error state failed")
	}
}

func (p *Poller) createFromSession(ctx context.Context, sessionID, reference string) (*backend.Transaction, error) {
	state, err := p.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	req := backend.CreateTransactionRequest{
		Reference:     reference,
		Currency:      "COP",
		Customer:      state.Flow.Customer,
		Delivery:      state.Flow.Delivery,
		CartItems:     state.Cart.Items,
		PaymentMethod: "CARD",
	}
	if state.Transaction != nil {
		req.AmountInCents = state.Transaction.AmountCents
		req.Currency = state.Transaction.Currency
	} else {
		req.AmountInCents = state.Cart.Fees.TotalAmount
	}

	return p.backend.CreateTransaction(ctx, req)
}

func (p *Poller) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
