package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/pasarela/checkout/internal/domain/errors"
	"github.com/pasarela/checkout/internal/domain/transaction"
)

// TransactionRepository persists transaction records keyed by payment
// reference. It is the durable side of the checkout: sessions live in Redis
// and expire, records of submitted payments do not.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

func (r *TransactionRepository) db(ctx context.Context) querier {
	return querierFrom(ctx, r.pool)
}

// Upsert inserts the record, or updates status and gateway id when the
// reference already exists. References are unique per submission, so a
// conflict always means a later observation of the same attempt.
func (r *TransactionRepository) Upsert(ctx context.Context, rec *transaction.Record) error {
	if rec.Reference == "" {
		return domainErrors.ErrNoReference
	}

	_, err := r.db(ctx).Exec(ctx,
		`INSERT INTO transaction_records
		 (reference, gateway_transaction_id, status, amount_cents, currency, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)
		 ON CONFLICT (reference) DO UPDATE SET
		   gateway_transaction_id = EXCLUDED.gateway_transaction_id,
		   status = EXCLUDED.status,
		   updated_at = EXCLUDED.updated_at`,
		rec.Reference, rec.GatewayTransactionID, string(rec.Status),
		rec.AmountCents, rec.Currency, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert transaction record %s: %w", rec.Reference, err)
	}
	return nil
}

// GetByReference retrieves a record by its payment reference.
func (r *TransactionRepository) GetByReference(ctx context.Context, reference string) (*transaction.Record, error) {
	return r.scanRecord(r.db(ctx).QueryRow(ctx,
		`SELECT reference, gateway_transaction_id, status, amount_cents, currency, created_at, updated_at
		 FROM transaction_records WHERE reference = $1`, reference))
}

// ListPending returns up to limit non-terminal records older than olderThan,
// oldest first. These are submissions whose outcome the poller never
// resolved, picked up by the reconciliation worker.
func (r *TransactionRepository) ListPending(ctx context.Context, limit int, olderThan time.Duration) ([]*transaction.Record, error) {
	cutoff := time.Now().Add(-olderThan)

	rows, err := r.db(ctx).Query(ctx,
		`SELECT reference, gateway_transaction_id, status, amount_cents, currency, created_at, updated_at
		 FROM transaction_records
		 WHERE status = $1 AND updated_at < $2
		 ORDER BY updated_at ASC
		 LIMIT $3`,
		string(transaction.StatusPending), cutoff, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending records: %w", err)
	}
	defer rows.Close()

	var records []*transaction.Record
	for rows.Next() {
		rec, err := r.scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending records: %w", err)
	}
	return records, nil
}

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func (r *TransactionRepository) scanRecord(row scanner) (*transaction.Record, error) {
	var (
		rec    transaction.Record
		status string
	)
	err := row.Scan(
		&rec.Reference, &rec.GatewayTransactionID, &status,
		&rec.AmountCents, &rec.Currency, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("scan transaction record: %w", err)
	}
	rec.Status = transaction.Status(status)
	return &rec, nil
}
