// Package postgres persists equity snapshots and fills to PostgreSQL for
// deployments that outgrow the CSV files.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ctraderhq/ctrader/internal/backtest"
)

const defaultTimeout = 5 * time.Second

// Store writes cycle outputs to the snapshots and fills tables.
type Store struct {
	db      *sqlx.DB
	timeout time.Duration
}

func NewStore(db *sqlx.DB, timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Store{db: db, timeout: timeout}
}

// Open connects and pings within the timeout.
func Open(ctx context.Context, dsn string, timeout time.Duration) (*Store, error) {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewStore(db, timeout), nil
}

func (s *Store) Close() error { return s.db.Close() }

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	schema := `
	CREATE TABLE IF NOT EXISTS equity_snapshots (
		id         BIGSERIAL PRIMARY KEY,
		pool       TEXT        NOT NULL,
		ts         TIMESTAMPTZ NOT NULL,
		equity     DOUBLE PRECISION NOT NULL,
		cash       DOUBLE PRECISION NOT NULL,
		UNIQUE (pool, ts)
	);
	CREATE TABLE IF NOT EXISTS fills (
		id         UUID PRIMARY KEY,
		pool       TEXT        NOT NULL,
		ts         TIMESTAMPTZ NOT NULL,
		symbol     TEXT        NOT NULL,
		side       TEXT        NOT NULL,
		qty        DOUBLE PRECISION NOT NULL,
		price      DOUBLE PRECISION NOT NULL,
		fill_price DOUBLE PRECISION NOT NULL,
		value      DOUBLE PRECISION NOT NULL,
		fee        DOUBLE PRECISION NOT NULL,
		status     TEXT        NOT NULL,
		reason     TEXT        NOT NULL DEFAULT ''
	);`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// InsertSnapshot records one equity observation. Re-inserting the same
// (pool, ts) pair is reported as a duplicate.
func (s *Store) InsertSnapshot(ctx context.Context, pool string, at time.Time, equity, cash float64) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := `INSERT INTO equity_snapshots (pool, ts, equity, cash) VALUES ($1, $2, $3, $4)`
	if _, err := s.db.ExecContext(ctx, query, pool, at.UTC(), equity, cash); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return fmt.Errorf("duplicate snapshot for %s at %s: %w", pool, at, err)
		}
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// InsertFills writes the cycle's fills atomically.
func (s *Store) InsertFills(ctx context.Context, pool string, at time.Time, fills []backtest.Fill) error {
	if len(fills) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO fills (id, pool, ts, symbol, side, qty, price, fill_price, value, fee, status, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	ts := at.UTC()
	for _, f := range fills {
		if _, err := stmt.ExecContext(ctx, f.ID, pool, ts, f.Symbol, string(f.Side),
			f.Qty, f.Price, f.FillPrice, f.Value, f.Fee, string(f.Status), f.Reason); err != nil {
			return fmt.Errorf("insert fill %s: %w", f.Symbol, err)
		}
	}
	return tx.Commit()
}

// EquitySeries returns the equity values for a pool, oldest first.
func (s *Store) EquitySeries(ctx context.Context, pool string) ([]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var series []float64
	query := `SELECT equity FROM equity_snapshots WHERE pool = $1 ORDER BY ts ASC`
	if err := s.db.SelectContext(ctx, &series, query, pool); err != nil {
		return nil, fmt.Errorf("select equity series: %w", err)
	}
	return series, nil
}
