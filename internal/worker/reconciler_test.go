package worker

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pasarela/checkout/internal/backend"
	"github.com/pasarela/checkout/internal/config"
	domainErrors "github.com/pasarela/checkout/internal/domain/errors"
	"github.com/pasarela/checkout/internal/domain/transaction"
	"github.com/pasarela/checkout/internal/infrastructure/observability"
)

type stubRecords struct {
	pending []*transaction.Record
	upserts []*transaction.Record
	listErr error
}

func (s *stubRecords) ListPending(_ context.Context, limit int, _ time.Duration) ([]*transaction.Record, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	if len(s.pending) > limit {
		return s.pending[:limit], nil
	}
	return s.pending, nil
}

func (s *stubRecords) Upsert(_ context.Context, rec *transaction.Record) error {
	s.upserts = append(s.upserts, rec)
	return nil
}

type stubBackend struct {
	transactionFunc func(ctx context.Context, reference string) (*backend.Transaction, error)
}

func (s *stubBackend) Transaction(ctx context.Context, reference string) (*backend.Transaction, error) {
	return s.transactionFunc(ctx, reference)
}

type stubLocker struct {
	denied   map[string]bool
	released []string
}

func (s *stubLocker) Lock(_ context.Context, reference string) (func(context.Context) error, error) {
	if s.denied[reference] {
		return nil, domainErrors.ErrLockAcquisitionFailed
	}
	return func(context.Context) error {
		s.released = append(s.released, reference)
		return nil
	}, nil
}

type passthroughTx struct {
	calls int
}

func (p *passthroughTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	p.calls++
	return fn(ctx)
}

func pendingRecord(t *testing.T, reference string) *transaction.Record {
	t.Helper()
	rec, err := transaction.NewRecord(reference, 47_500, "COP")
	require.NoError(t, err)
	return rec
}

func newTestReconciler(records Records, b Backend, locker Locker) *Reconciler {
	cfg := config.WorkerConfig{
		SweepInterval: time.Minute,
		BatchSize:     20,
		PendingAge:    2 * time.Minute,
		LockTTL:       30 * time.Second,
	}
	metrics := observability.NewMetrics("checkout_test", prometheus.NewRegistry())
	return NewReconciler(cfg, &passthroughTx{}, records, b, locker, metrics, zerolog.Nop())
}

func TestReconciler_SettlesTerminalRecords(t *testing.T) {
	records := &stubRecords{pending: []*transaction.Record{
		pendingRecord(t, "TX_1_aaaaaa"),
		pendingRecord(t, "TX_2_bbbbbb"),
	}}
	statuses := map[string]string{"TX_1_aaaaaa": "APPROVED", "TX_2_bbbbbb": "DECLINED"}
	b := &stubBackend{transactionFunc: func(_ context.Context, reference string) (*backend.Transaction, error) {
		return &backend.Transaction{ID: "gw-" + reference, Reference: reference, Status: statuses[reference]}, nil
	}}
	locker := &stubLocker{}

	r := newTestReconciler(records, b, locker)
	require.NoError(t, r.Sweep(context.Background()))

	require.Len(t, records.upserts, 2)
	assert.Equal(t, transaction.StatusApproved, records.upserts[0].Status)
	assert.Equal(t, "gw-TX_1_aaaaaa", records.upserts[0].GatewayTransactionID)
	assert.Equal(t, transaction.StatusDeclined, records.upserts[1].Status)
	assert.Equal(t, []string{"TX_1_aaaaaa", "TX_2_bbbbbb"}, locker.released)
}

func TestReconciler_SkipsLockedReferences(t *testing.T) {
	records := &stubRecords{pending: []*transaction.Record{pendingRecord(t, "TX_3_cccccc")}}
	b := &stubBackend{transactionFunc: func(context.Context, string) (*backend.Transaction, error) {
		t.Error("locked reference must not be queried")
		return nil, nil
	}}
	locker := &stubLocker{denied: map[string]bool{"TX_3_cccccc": true}}

	r := newTestReconciler(records, b, locker)
	require.NoError(t, r.Sweep(context.Background()))
	assert.Empty(t, records.upserts)
}

func TestReconciler_StillPendingTouchesRecord(t *testing.T) {
	rec := pendingRecord(t, "TX_4_dddddd")
	before := rec.UpdatedAt
	records := &stubRecords{pending: []*transaction.Record{rec}}
	b := &stubBackend{transactionFunc: func(_ context.Context, reference string) (*backend.Transaction, error) {
		return &backend.Transaction{ID: "gw-4", Reference: reference, Status: "PENDING"}, nil
	}}

	r := newTestReconciler(records, b, &stubLocker{})
	require.NoError(t, r.Sweep(context.Background()))

	require.Len(t, records.upserts, 1)
	assert.Equal(t, transaction.StatusPending, records.upserts[0].Status)
	assert.True(t, records.upserts[0].UpdatedAt.After(before) || records.upserts[0].UpdatedAt.Equal(before))
}

func TestReconciler_UnknownReferenceSettlesAsError(t *testing.T) {
	records := &stubRecords{pending: []*transaction.Record{pendingRecord(t, "TX_5_eeeeee")}}
	b := &stubBackend{transactionFunc: func(context.Context, string) (*backend.Transaction, error) {
		return nil, domainErrors.ErrTransactionNotFound
	}}

	r := newTestReconciler(records, b, &stubLocker{})
	require.NoError(t, r.Sweep(context.Background()))

	require.Len(t, records.upserts, 1)
	assert.Equal(t, transaction.StatusError, records.upserts[0].Status)
}

func TestReconciler_TransientFailureLeavesRecordForNextSweep(t *testing.T) {
	records := &stubRecords{pending: []*transaction.Record{pendingRecord(t, "TX_6_ffffff")}}
	b := &stubBackend{transactionFunc: func(context.Context, string) (*backend.Transaction, error) {
		return nil, domainErrors.ErrNetwork
	}}
	locker := &stubLocker{}

	r := newTestReconciler(records, b, locker)
	require.NoError(t, r.Sweep(context.Background()))

	assert.Empty(t, records.upserts)
	assert.Equal(t, []string{"TX_6_ffffff"}, locker.released, "lock released even when the query fails")
}

func TestReconciler_SweepRunsInTransaction(t *testing.T) {
	tx := &passthroughTx{}
	cfg := config.WorkerConfig{SweepInterval: time.Minute, BatchSize: 20, PendingAge: 2 * time.Minute}
	metrics := observability.NewMetrics("checkout_test", prometheus.NewRegistry())
	r := NewReconciler(cfg, tx, &stubRecords{}, &stubBackend{}, &stubLocker{}, metrics, zerolog.Nop())

	require.NoError(t, r.Sweep(context.Background()))
	assert.Equal(t, 1, tx.calls)
}

func TestReconciler_ListFailure(t *testing.T) {
	records := &stubRecords{listErr: domainErrors.ErrBackend}
	r := newTestReconciler(records, &stubBackend{}, &stubLocker{})
	assert.Error(t, r.Sweep(context.Background()))
}
