// Package store resolves a destination string to a storage backend and
// writes message tables into it.
package store

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/vvka-141/msgload/internal/logging"
	"github.com/vvka-141/msgload/internal/store/postgres"
	"github.com/vvka-141/msgload/internal/store/sqlite"
	"github.com/vvka-141/msgload/pkg/msgload"
)

// Writer replaces one table in a destination store with a new table.
// Implementations must leave the previous table intact if the write fails.
type Writer interface {
	WriteTable(ctx context.Context, name string, t *msgload.Table) error
	Close() error
}

// Backend identifies a storage engine.
type Backend string

const (
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
)

// Destination is a parsed destination string.
type Destination struct {
	Backend  Backend
	Location string // file path for SQLite, connection URL for PostgreSQL
}

// String returns the location with any password masked.
func (d Destination) String() string {
	if d.Backend != BackendPostgres {
		return d.Location
	}
	u, err := url.Parse(d.Location)
	if err != nil {
		return d.Location
	}
	return u.Redacted()
}

// ParseDestination accepts a plain file path, sqlite://path, file:path,
// postgres://... or postgresql://...
func ParseDestination(s string) (Destination, error) {
	if strings.TrimSpace(s) == "" {
		return Destination{}, fmt.Errorf("empty destination: %w", msgload.ErrInvalidConfig)
	}

	lower := strings.ToLower(s)
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return Destination{Backend: BackendPostgres, Location: s}, nil
	case strings.HasPrefix(lower, "sqlite://"):
		return sqliteDestination(s[len("sqlite://"):])
	case strings.HasPrefix(lower, "file:"):
		return sqliteDestination(strings.TrimPrefix(s[len("file:"):], "//"))
	case strings.Contains(s, "://"):
		scheme, _, _ := strings.Cut(s, "://")
		return Destination{}, fmt.Errorf("unsupported destination scheme %q: %w", scheme, msgload.ErrInvalidConfig)
	}
	return Destination{Backend: BackendSQLite, Location: s}, nil
}

func sqliteDestination(path string) (Destination, error) {
	if path == "" {
		return Destination{}, fmt.Errorf("destination has no file path: %w", msgload.ErrInvalidConfig)
	}
	return Destination{Backend: BackendSQLite, Location: path}, nil
}

// Options configures backends that support them.
type Options struct {
	Logger               msgload.Logger
	ConnectRetryAttempts int
	RetryInitialDelay    time.Duration
	RetryMaxDelay        time.Duration
}

// DefaultOptions returns the retry defaults with a silent logger.
func DefaultOptions() Options {
	return Options{
		Logger:               logging.NewNullLogger(),
		ConnectRetryAttempts: msgload.DefaultConnectRetryAttempts,
		RetryInitialDelay:    msgload.DefaultRetryInitialDelay,
		RetryMaxDelay:        msgload.DefaultRetryMaxDelay,
	}
}

// Open parses destination and connects to the selected backend.
func Open(ctx context.Context, destination string, opts Options) (Writer, error) {
	dest, err := ParseDestination(destination)
	if err != nil {
		return nil, err
	}
	return OpenDestination(ctx, dest, opts)
}

// OpenDestination connects to an already parsed destination.
func OpenDestination(ctx context.Context, dest Destination, opts Options) (Writer, error) {
	if opts.Logger == nil {
		opts.Logger = logging.NewNullLogger()
	}

	switch dest.Backend {
	case BackendSQLite:
		return sqlite.Open(ctx, dest.Location, opts.Logger)
	case BackendPostgres:
		return postgres.Open(ctx, dest.Location, postgres.Options{
			Logger:            opts.Logger,
			RetryAttempts:     opts.ConnectRetryAttempts,
			RetryInitialDelay: opts.RetryInitialDelay,
			RetryMaxDelay:     opts.RetryMaxDelay,
		})
	}
	return nil, fmt.Errorf("unknown backend %q: %w", dest.Backend, msgload.ErrInvalidConfig)
}
