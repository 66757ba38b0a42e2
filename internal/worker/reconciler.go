package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/pasarela/checkout/internal/backend"
	"github.com/pasarela/checkout/internal/config"
	domainErrors "github.com/pasarela/checkout/internal/domain/errors"
	"github.com/pasarela/checkout/internal/domain/transaction"
	"github.com/pasarela/checkout/internal/infrastructure/observability"
)

// Records is the repository surface the reconciler sweeps.
type Records interface {
	ListPending(ctx context.Context, limit int, olderThan time.Duration) ([]*transaction.Record, error)
	Upsert(ctx context.Context, rec *transaction.Record) error
}

// Backend is the slice of the backend client the reconciler needs.
type Backend interface {
	Transaction(ctx context.Context, reference string) (*backend.Transaction, error)
}

// Tx runs a function inside a database transaction, so a swept batch and the
// status updates written for it commit together.
type Tx interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Locker serializes reconciliation per reference across worker instances.
// Lock returns the release function, or ErrLockAcquisitionFailed when the
// reference is already being worked elsewhere.
type Locker interface {
	Lock(ctx context.Context, reference string) (func(context.Context) error, error)
}

// Reconciler periodically sweeps transaction records that are still pending
// long after submission. These are attempts whose browser-side poller never
// resolved them: the user closed the tab, lost connectivity, or the session
// expired. The reconciler re-queries the backend and settles the record
// server-side.
type Reconciler struct {
	cfg     config.WorkerConfig
	tx      Tx
	records Records
	backend Backend
	locker  Locker
	metrics *observability.Metrics
	logger  zerolog.Logger
}

func NewReconciler(
	cfg config.WorkerConfig,
	tx Tx,
	records Records,
	backend Backend,
	locker Locker,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Reconciler {
	return &Reconciler{
		cfg:     cfg,
		tx:      tx,
		records: records,
		backend: backend,
		locker:  locker,
		metrics: metrics,
		logger:  logger,
	}
}

// Run sweeps on the configured interval until the context is cancelled.
func (r *Reconciler) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.Sweep(ctx); err != nil {
				r.logger.Error().Err(err).Msg("reconciliation sweep failed")
			}
		}
	}
}

// Sweep reconciles one batch of stale pending records. The batch is listed
// and settled inside a single transaction.
func (r *Reconciler) Sweep(ctx context.Context) error {
	err := r.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		records, err := r.records.ListPending(txCtx, r.cfg.BatchSize, r.cfg.PendingAge)
		if err != nil {
			return err
		}
		for _, rec := range records {
			if txCtx.Err() != nil {
				return txCtx.Err()
			}
			r.reconcile(txCtx, rec)
		}
		return nil
	})
	if err != nil {
		r.metrics.WorkerSweepsTotal.WithLabelValues("error").Inc()
		return err
	}
	r.metrics.WorkerSweepsTotal.WithLabelValues("ok").Inc()
	return nil
}

func (r *Reconciler) reconcile(ctx context.Context, rec *transaction.Record) {
	release, err := r.locker.Lock(ctx, rec.Reference)
	if err != nil {
		if errors.Is(err, domainErrors.ErrLockAcquisitionFailed) {
			r.logger.Debug().Str("reference", rec.Reference).Msg("reference locked elsewhere, skipping")
			return
		}
		r.logger.Error().Err(err).Str("reference", rec.Reference).Msg("lock acquisition failed")
		return
	}
	defer func() {
		if err := release(ctx); err != nil {
			r.logger.Warn().Err(err).Str("reference", rec.Reference).Msg("lock release failed")
		}
	}()

	start := time.Now()
	defer func() {
		r.metrics.WorkerProcessingDuration.Observe(time.Since(start).Seconds())
	}()

	tx, err := r.backend.Transaction(ctx, rec.Reference)
	if err != nil {
		if errors.Is(err, domainErrors.ErrTransactionNotFound) {
			// The backend never saw this submission. Unlike the in-session
			// poller there is no customer data left to synthesize a create
			// from, so the attempt is settled as errored.
			r.settle(ctx, rec, "", transaction.StatusError)
			return
		}
		r.logger.Warn().Err(err).Str("reference", rec.Reference).Msg("status query failed, will retry next sweep")
		return
	}

	status := transaction.NormalizeGatewayStatus(tx.Status)
	if status == transaction.StatusPending {
		// Still pending gateway-side. Touch updated_at so the record rotates
		// to the back of the sweep order instead of being retried first.
		rec.UpdatedAt = time.Now()
		if err := r.records.Upsert(ctx, rec); err != nil {
			r.logger.Error().Err(err).Str("reference", rec.Reference).Msg("touching pending record failed")
		}
		return
	}

	r.settle(ctx, rec, tx.ID, status)
}

func (r *Reconciler) settle(ctx context.Context, rec *transaction.Record, gatewayTxID string, status transaction.Status) {
	if err := rec.Resolve(gatewayTxID, status); err != nil {
		r.logger.Error().Err(err).Str("reference", rec.Reference).Msg("resolving record failed")
		return
	}
	if err := r.records.Upsert(ctx, rec); err != nil {
		r.logger.Error().Err(err).Str("reference", rec.Reference).Msg("persisting reconciled record failed")
		return
	}

	r.metrics.WorkerReconciledTotal.WithLabelValues(string(status)).Inc()
	r.logger.Info().
		Str("reference", rec.Reference).
		Str("status", string(status)).
		Msg("stale pending record reconciled")
}
