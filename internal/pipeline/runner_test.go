package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/vvka-141/msgload/internal/files/filesystem"
	"github.com/vvka-141/msgload/internal/store"
	"github.com/vvka-141/msgload/pkg/msgload"
)

const (
	messagesCSV = `id,message,original,genre
2,Weather update - a cold front from Cuba,Un front froid,direct
7,Is the Hurricane over or is it not over,Cyclone nan fini osinon li pa fini,direct
8,Looking for someone but no name,Patnm pa konnen,direct
12,"says: west side of Haiti, rest of the country today and tonight",facade ouest d Haiti,direct
12,"says: west side of Haiti, rest of the country today and tonight",facade ouest d Haiti,direct
99,only in messages,,news
`
	categoriesCSV = `id,categories
2,related-1;request-0;offer-0;aid_related-0
7,related-1;request-0;offer-0;aid_related-1
8,related-2;request-0;offer-0;aid_related-0
12,related-1;request-1;offer-0;aid_related-1
100,related-0;request-0;offer-0;aid_related-0
`
)

type recordingLogger struct {
	mu      sync.Mutex
	info    []string
	verbose []string
	errors  []string
}

func (l *recordingLogger) Verbose(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.verbose = append(l.verbose, fmt.Sprintf(format, args...))
}

func (l *recordingLogger) Info(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.info = append(l.info, fmt.Sprintf(format, args...))
}

func (l *recordingLogger) Error(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, fmt.Sprintf(format, args...))
}

func newFS() *filesystem.MemoryFileSystem {
	fsys := filesystem.NewMemoryFileSystem()
	fsys.AddFile("messages.csv", messagesCSV)
	fsys.AddFile("categories.csv", categoriesCSV)
	return fsys
}

func runConfig(dest string) msgload.RunConfig {
	cfg := msgload.DefaultRunConfig()
	cfg.MessagesPath = "messages.csv"
	cfg.CategoriesPath = "categories.csv"
	cfg.Destination = dest
	return cfg
}

type outputRow struct {
	ID         string `db:"id"`
	Message    string `db:"message"`
	Genre      string `db:"genre"`
	Related    int    `db:"related"`
	Request    int    `db:"request"`
	AidRelated int    `db:"aid_related"`
}

func readOutput(t *testing.T, path string) []outputRow {
	t.Helper()
	db, err := sqlx.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var rows []outputRow
	require.NoError(t, db.Select(&rows,
		`SELECT id, message, genre, related, request, aid_related FROM "LabelledMessages" ORDER BY rowid`))
	return rows
}

func TestRun_EndToEndSQLite(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "DisasterResponse.db")
	logger := &recordingLogger{}

	res, err := NewRunner(newFS(), logger, store.OpenDestination).Run(context.Background(), runConfig(dest))
	require.NoError(t, err)

	rows := readOutput(t, dest)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"2", "7", "8", "12"}, []string{rows[0].ID, rows[1].ID, rows[2].ID, rows[3].ID})
	assert.Equal(t, 0, rows[2].Related, "related 2 is stored as 0")
	assert.Equal(t, outputRow{
		ID:         "12",
		Message:    "says: west side of Haiti, rest of the country today and tonight",
		Genre:      "direct",
		Related:    1,
		Request:    1,
		AidRelated: 1,
	}, rows[3])

	assert.Equal(t, 6, res.Load.MessageRows)
	assert.Equal(t, 5, res.Load.CategoryRows)
	assert.Equal(t, 5, res.Load.JoinedRows)
	assert.Equal(t, 1, res.Clean.DuplicatesRemoved)
	assert.Equal(t, 1, res.Clean.RelatedCorrected)
	assert.Equal(t, 4, res.RowsWritten)
	assert.Equal(t, store.BackendSQLite, res.Destination.Backend)
	assert.Len(t, res.Digest, 64)

	assert.Equal(t, []string{
		"Loading data...\n    MESSAGES: messages.csv\n    CATEGORIES: categories.csv",
		"Cleaning data...",
		"Saving data...\n    DATABASE: " + dest,
	}, logger.info)
}

func TestRun_IsIdempotent(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out.db")
	runner := NewRunner(newFS(), &recordingLogger{}, store.OpenDestination)

	first, err := runner.Run(context.Background(), runConfig(dest))
	require.NoError(t, err)
	rowsFirst := readOutput(t, dest)

	second, err := runner.Run(context.Background(), runConfig(dest))
	require.NoError(t, err)

	assert.Equal(t, first.Digest, second.Digest)
	assert.Equal(t, rowsFirst, readOutput(t, dest))
}

func TestRun_InputErrorWritesNothing(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out.db")
	fsys := newFS()
	fsys.AddFile("categories.csv", "id,categories\n2,related-1;offer-0\n7,related-1;request-0\n")
	var opened bool
	open := func(ctx context.Context, d store.Destination, o store.Options) (store.Writer, error) {
		opened = true
		return store.OpenDestination(ctx, d, o)
	}

	_, err := NewRunner(fsys, &recordingLogger{}, open).Run(context.Background(), runConfig(dest))

	require.ErrorIs(t, err, msgload.ErrSchemaMismatch)
	assert.False(t, opened)
	assert.NoFileExists(t, dest)
}

func TestRun_InvalidConfig(t *testing.T) {
	cfg := runConfig("")
	cfg.TableName = ""

	_, err := NewRunner(newFS(), &recordingLogger{}, store.OpenDestination).Run(context.Background(), cfg)

	assert.ErrorIs(t, err, msgload.ErrInvalidConfig)
}

func TestRun_UnsupportedDestination(t *testing.T) {
	_, err := NewRunner(newFS(), &recordingLogger{}, store.OpenDestination).
		Run(context.Background(), runConfig("mysql://db/app"))

	assert.ErrorIs(t, err, msgload.ErrInvalidConfig)
}

type fakeWriter struct {
	writeErr error
	closeErr error
	closed   bool
	table    string
	rows     int
}

func (w *fakeWriter) WriteTable(_ context.Context, name string, t *msgload.Table) error {
	w.table = name
	w.rows = t.Len()
	return w.writeErr
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return w.closeErr
}

func openFake(w *fakeWriter) OpenFunc {
	return func(context.Context, store.Destination, store.Options) (store.Writer, error) {
		return w, nil
	}
}

func TestRun_ClosesWriterOnEveryPath(t *testing.T) {
	tests := []struct {
		name    string
		writer  *fakeWriter
		wantErr error
	}{
		{"success", &fakeWriter{}, nil},
		{"write fails", &fakeWriter{writeErr: fmt.Errorf("%w: boom", msgload.ErrWriteFailed)}, msgload.ErrWriteFailed},
		{"close fails", &fakeWriter{closeErr: errors.New("disk gone")}, msgload.ErrWriteFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := runConfig("out.db")
			cfg.TableName = "Custom"

			_, err := NewRunner(newFS(), &recordingLogger{}, openFake(tt.writer)).Run(context.Background(), cfg)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "Custom", tt.writer.table)
				assert.Equal(t, 4, tt.writer.rows)
			}
			assert.True(t, tt.writer.closed)
		})
	}
}

func TestRun_OpenFailure(t *testing.T) {
	open := func(context.Context, store.Destination, store.Options) (store.Writer, error) {
		return nil, fmt.Errorf("%w: refused", msgload.ErrConnectionFailed)
	}

	_, err := NewRunner(newFS(), &recordingLogger{}, open).Run(context.Background(), runConfig("postgres://db/app"))

	assert.ErrorIs(t, err, msgload.ErrConnectionFailed)
}

func TestRun_WritesMetricsFile(t *testing.T) {
	dir := t.TempDir()
	cfg := runConfig(filepath.Join(dir, "out.db"))
	cfg.MetricsFile = filepath.Join(dir, "msgload.prom")

	_, err := NewRunner(newFS(), &recordingLogger{}, store.OpenDestination).Run(context.Background(), cfg)
	require.NoError(t, err)

	data, err := os.ReadFile(cfg.MetricsFile)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "msgload_rows_written 4\n")
	assert.Contains(t, text, "msgload_duplicates_removed 1\n")
	assert.Contains(t, text, "msgload_last_run_success 1\n")
}

func TestRun_WritesMetricsOnFailure(t *testing.T) {
	dir := t.TempDir()
	fsys := newFS()
	fsys.AddFile("categories.csv", "id,categories\n1,related-1\n")
	cfg := runConfig(filepath.Join(dir, "out.db"))
	cfg.MetricsFile = filepath.Join(dir, "msgload.prom")

	_, err := NewRunner(fsys, &recordingLogger{}, store.OpenDestination).Run(context.Background(), cfg)
	require.ErrorIs(t, err, msgload.ErrEmptyJoin)

	data, err := os.ReadFile(cfg.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "msgload_last_run_success 0\n")
}

func TestRun_MetricsFailureDoesNotFailRun(t *testing.T) {
	dir := t.TempDir()
	cfg := runConfig(filepath.Join(dir, "out.db"))
	cfg.MetricsFile = filepath.Join(dir, "missing", "msgload.prom")
	logger := &recordingLogger{}

	_, err := NewRunner(newFS(), logger, store.OpenDestination).Run(context.Background(), cfg)

	require.NoError(t, err)
	require.Len(t, logger.errors, 1)
	assert.True(t, strings.Contains(logger.errors[0], "msgload.prom"))
}

func TestRun_Timeout(t *testing.T) {
	cfg := runConfig(filepath.Join(t.TempDir(), "out.db"))
	cfg.Timeout = time.Nanosecond

	_, err := NewRunner(newFS(), &recordingLogger{}, store.OpenDestination).Run(context.Background(), cfg)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewRunner_PanicsOnNil(t *testing.T) {
	assert.Panics(t, func() { NewRunner(nil, &recordingLogger{}, store.OpenDestination) })
	assert.Panics(t, func() { NewRunner(newFS(), nil, store.OpenDestination) })
	assert.Panics(t, func() { NewRunner(newFS(), &recordingLogger{}, nil) })
}
