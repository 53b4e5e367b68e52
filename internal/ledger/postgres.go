package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/aorysoft/leadbot/pkg/logging"
)

// PgxPool is the subset of pgxpool.Pool the ledger uses; mocks implement it
// in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresLedger stores booking records in a relational table. The unique
// idempotency key makes duplicate appends a database-level no-op, so the
// dedupe survives restarts, unlike the CSV ledger.
type PostgresLedger struct {
	pool   PgxPool
	logger *logging.Logger
}

// NewPostgresLedger initializes a ledger backed by a pgx pool.
func NewPostgresLedger(pool PgxPool, logger *logging.Logger) *PostgresLedger {
	if pool == nil {
		panic("ledger: pgx pool required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &PostgresLedger{pool: pool, logger: logger}
}

// EnsureSchema creates the ledger table when absent.
func (l *PostgresLedger) EnsureSchema(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS booking_ledger (
			id UUID PRIMARY KEY,
			idempotency_key TEXT NOT NULL UNIQUE,
			booked_at TIMESTAMPTZ NOT NULL,
			name TEXT NOT NULL,
			email TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			company TEXT NOT NULL DEFAULT '',
			slot TEXT NOT NULL,
			note TEXT NOT NULL DEFAULT ''
		)
	`
	if _, err := l.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ledger: ensure schema: %w", err)
	}
	return nil
}

// Append inserts one record and reports whether a row was written; a
// duplicate idempotency key inserts nothing.
func (l *PostgresLedger) Append(ctx context.Context, record BookingRecord) (bool, error) {
	id := record.ID
	if id == "" {
		id = uuid.NewString()
	}
	bookedAt := record.BookedAt
	if bookedAt.IsZero() {
		bookedAt = time.Now().UTC()
	}

	const query = `
		INSERT INTO booking_ledger (id, idempotency_key, booked_at, name, email, phone, company, slot, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (idempotency_key) DO NOTHING
	`
	tag, err := l.pool.Exec(ctx, query,
		id,
		record.IdempotencyKey,
		bookedAt,
		record.Name,
		record.Email,
		record.Phone,
		record.Company,
		record.Slot,
		record.Note,
	)
	if err != nil {
		return false, fmt.Errorf("ledger: insert failed: %w: %w", ErrNotWritable, err)
	}
	if tag.RowsAffected() == 0 {
		l.logger.Debug("ledger: duplicate append suppressed", "key", record.IdempotencyKey)
		return false, nil
	}

	l.logger.Info("ledger: booking recorded", "slot", record.Slot, "name", record.Name)
	return true, nil
}

// Seen reports whether a key has been committed.
func (l *PostgresLedger) Seen(ctx context.Context, key string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM booking_ledger WHERE idempotency_key = $1)`
	var exists bool
	if err := l.pool.QueryRow(ctx, query, key).Scan(&exists); err != nil {
		return false, fmt.Errorf("ledger: idempotency lookup failed: %w", err)
	}
	return exists, nil
}
