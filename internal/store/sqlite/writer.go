// Package sqlite writes message tables into a SQLite database file.
//
// A write never modifies the destination in place. The current database is
// copied with VACUUM INTO to a temporary file next to it, the table is
// replaced inside one transaction on that copy, and the copy is then synced
// and renamed over the destination. Readers see either the old or the new
// file, never a half-written one.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/vvka-141/msgload/internal/logging"
	"github.com/vvka-141/msgload/pkg/msgload"
)

const driverName = "sqlite"

// Writer replaces tables in a single SQLite file.
type Writer struct {
	path   string
	logger msgload.Logger
}

// Open checks that path can hold a SQLite database. The parent directory
// must exist. An existing file must be a readable SQLite database.
func Open(ctx context.Context, path string, logger msgload.Logger) (*Writer, error) {
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	if path == "" {
		return nil, fmt.Errorf("empty database path: %w", msgload.ErrInvalidConfig)
	}

	dir := filepath.Dir(path)
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: database directory %s: %w", msgload.ErrConnectionFailed, dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", msgload.ErrConnectionFailed, dir)
	}

	existing, err := statDatabase(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", msgload.ErrConnectionFailed, err)
	}
	exists := existing != nil
	if exists {
		if err := checkDatabase(ctx, path); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", msgload.ErrConnectionFailed, path, err)
		}
	}

	logger.Verbose("SQLite destination %s (exists: %t)", path, exists)
	return &Writer{path: path, logger: logger}, nil
}

// WriteTable drops the named table if present and recreates it with the
// contents of t. Other tables in the file are preserved.
func (w *Writer) WriteTable(ctx context.Context, name string, t *msgload.Table) (err error) {
	tmp := filepath.Join(filepath.Dir(w.path), fmt.Sprintf(".%s.%s.tmp", filepath.Base(w.path), uuid.NewString()))
	defer func() {
		if err != nil {
			removeWithSidecars(tmp)
			err = fmt.Errorf("%w: table %s: %w", msgload.ErrWriteFailed, name, err)
		}
	}()

	existing, err := statDatabase(w.path)
	if err != nil {
		return err
	}
	if existing != nil {
		if err := snapshot(ctx, w.path, tmp); err != nil {
			return fmt.Errorf("snapshot database: %w", err)
		}
		w.logger.Verbose("Copied %s to %s", w.path, tmp)
	}

	if err := replaceTable(ctx, tmp, name, t); err != nil {
		return err
	}
	if err := syncFile(tmp); err != nil {
		return fmt.Errorf("sync temporary database: %w", err)
	}
	if existing != nil {
		// the replacement keeps the permissions of the file it replaces
		if err := os.Chmod(tmp, existing.Mode().Perm()); err != nil {
			return fmt.Errorf("copy file mode: %w", err)
		}
	}
	// a journal left next to the destination would be applied to the new file
	if err := removeSidecars(w.path); err != nil {
		return fmt.Errorf("remove stale journal: %w", err)
	}
	if err := os.Rename(tmp, w.path); err != nil {
		return fmt.Errorf("replace database file: %w", err)
	}

	w.logger.Verbose("Wrote %d rows to %s.%s", t.Len(), w.path, name)
	return nil
}

// Close releases nothing. Connections live only for the duration of a write.
func (w *Writer) Close() error {
	return nil
}

// dsn turns a file path into a SQLite URI, so that characters such as
// '?' and '#' stay part of the file name instead of starting parameters.
func dsn(path string) string {
	return "file:" + (&url.URL{Path: filepath.ToSlash(path)}).EscapedPath()
}

func checkDatabase(ctx context.Context, path string) error {
	db, err := sqlx.Open(driverName, dsn(path))
	if err != nil {
		return err
	}
	defer db.Close()

	var n int
	return db.GetContext(ctx, &n, "SELECT count(*) FROM sqlite_master")
}

func snapshot(ctx context.Context, src, dst string) error {
	db, err := sqlx.Open(driverName, dsn(src))
	if err != nil {
		return err
	}
	defer db.Close()

	_, err = db.ExecContext(ctx, "VACUUM INTO ?", dsn(dst))
	return err
}

func replaceTable(ctx context.Context, path, name string, t *msgload.Table) error {
	db, err := sqlx.Open(driverName, dsn(path))
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	table := quoteIdent(name)
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
		return fmt.Errorf("drop table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, createTableSQL(table, t)); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	stmt, err := tx.PreparexContext(ctx, insertSQL(table, t))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range t.Records {
		if _, err := stmt.ExecContext(ctx, t.Values(r)...); err != nil {
			return fmt.Errorf("insert row %d (id %s): %w", i+1, r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func createTableSQL(table string, t *msgload.Table) string {
	defs := t.ColumnDefs()
	cols := make([]string, len(defs))
	for i, c := range defs {
		typ := "TEXT"
		if c.Integer {
			typ = "INTEGER"
		}
		cols[i] = quoteIdent(c.Name) + " " + typ
	}
	return "CREATE TABLE " + table + " (" + strings.Join(cols, ", ") + ")"
}

func insertSQL(table string, t *msgload.Table) string {
	names := t.Columns()
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = quoteIdent(n)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", ")
	return "INSERT INTO " + table + " (" + strings.Join(quoted, ", ") + ") VALUES (" + placeholders + ")"
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// statDatabase returns nil info when no file exists at path.
func statDatabase(path string) (os.FileInfo, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	return info, nil
}

func syncFile(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

var sidecarSuffixes = []string{"-journal", "-wal", "-shm"}

func removeSidecars(path string) error {
	for _, s := range sidecarSuffixes {
		if err := os.Remove(path + s); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

func removeWithSidecars(path string) {
	_ = os.Remove(path)
	_ = removeSidecars(path)
}
