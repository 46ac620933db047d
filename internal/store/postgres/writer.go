// Package postgres writes message tables into a PostgreSQL database.
//
// The table is dropped, recreated and filled with COPY inside one
// transaction, so concurrent readers see either the previous table or the
// complete new one.
package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/msgload/internal/logging"
	"github.com/vvka-141/msgload/internal/retry"
	"github.com/vvka-141/msgload/pkg/msgload"
)

// Options tunes connection retries.
type Options struct {
	Logger            msgload.Logger
	RetryAttempts     int
	RetryInitialDelay time.Duration
	RetryMaxDelay     time.Duration
}

// Writer holds an open pool to the destination database.
type Writer struct {
	pool   *pgxpool.Pool
	logger msgload.Logger
}

// Open connects to the database at url, retrying transient failures.
func Open(ctx context.Context, url string, opts Options) (*Writer, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNullLogger()
	}

	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse connection URL: %w: %w", msgload.ErrInvalidConfig, err)
	}
	cfg.MaxConns = 2

	backoff := retry.NewExponentialBackoff(opts.RetryAttempts,
		retry.WithInitialDelay(opts.RetryInitialDelay),
		retry.WithMaxDelay(opts.RetryMaxDelay),
	)
	exec := retry.NewExecutor(retry.NewPostgresClassifier(), backoff).
		WithOnRetry(func(attempt int, err error, delay time.Duration) {
			logger.Verbose("Connection attempt %d failed (%v), retrying in %s", attempt+1, err, delay)
		})

	var pool *pgxpool.Pool
	err = exec.Execute(ctx, func(ctx context.Context) error {
		p, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return err
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return err
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", msgload.ErrConnectionFailed,
			describeConnectError(err, cfg.ConnConfig.Host, cfg.ConnConfig.Port, cfg.ConnConfig.Database))
	}

	logger.Verbose("Connected to PostgreSQL %s:%d/%s", cfg.ConnConfig.Host, cfg.ConnConfig.Port, cfg.ConnConfig.Database)
	return &Writer{pool: pool, logger: logger}, nil
}

// WriteTable replaces the named table with the contents of t.
func (w *Writer) WriteTable(ctx context.Context, name string, t *msgload.Table) error {
	if err := w.replace(ctx, name, t); err != nil {
		return fmt.Errorf("%w: table %s: %w", msgload.ErrWriteFailed, name, err)
	}
	w.logger.Verbose("Copied %d rows into %s", t.Len(), name)
	return nil
}

func (w *Writer) replace(ctx context.Context, name string, t *msgload.Table) error {
	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	table := pgx.Identifier{name}
	if _, err := tx.Exec(ctx, "DROP TABLE IF EXISTS "+table.Sanitize()); err != nil {
		return fmt.Errorf("drop table: %w", err)
	}
	if _, err := tx.Exec(ctx, createTableSQL(table, t)); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	n, err := tx.CopyFrom(ctx, table, t.Columns(), pgx.CopyFromSlice(t.Len(), func(i int) ([]any, error) {
		return t.Values(t.Records[i]), nil
	}))
	if err != nil {
		return fmt.Errorf("copy rows: %w", err)
	}
	if n != int64(t.Len()) {
		return fmt.Errorf("copied %d of %d rows", n, t.Len())
	}

	return tx.Commit(ctx)
}

// Close releases the pool.
func (w *Writer) Close() error {
	w.pool.Close()
	return nil
}

func createTableSQL(table pgx.Identifier, t *msgload.Table) string {
	defs := t.ColumnDefs()
	cols := make([]string, len(defs))
	for i, c := range defs {
		typ := "text"
		if c.Integer {
			typ = "integer"
		}
		cols[i] = pgx.Identifier{c.Name}.Sanitize() + " " + typ
	}
	return "CREATE TABLE " + table.Sanitize() + " (" + strings.Join(cols, ", ") + ")"
}
