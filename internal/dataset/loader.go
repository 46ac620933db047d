package dataset

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/vvka-141/msgload/internal/files/filesystem"
	"github.com/vvka-141/msgload/internal/logging"
	"github.com/vvka-141/msgload/pkg/msgload"
)

// Options selects the input files and how to read them.
type Options struct {
	MessagesPath     string
	CategoriesPath   string
	IDColumn         string
	CategoriesColumn string
	Delimiter        rune
	SchemaPolicy     msgload.SchemaPolicy
}

// Stats describes what the loader saw.
type Stats struct {
	MessageRows    int
	CategoryRows   int
	SkippedRows    int // categories rows dropped under SchemaPolicySkip
	JoinedRows     int
	UnmatchedLeft  int // messages without a categories row
	UnmatchedRight int // categories rows without a message
}

// Loader reads and merges the two input files.
type Loader struct {
	fs     filesystem.FileSystemProvider
	logger msgload.Logger
}

// NewLoader creates a Loader reading through fsys.
// A nil logger discards diagnostics.
func NewLoader(fsys filesystem.FileSystemProvider, logger msgload.Logger) *Loader {
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	return &Loader{fs: fsys, logger: logger}
}

// Load reads both files, derives the category schema, expands every
// categories row and inner-joins the result on the identifier.
func (l *Loader) Load(ctx context.Context, opts Options) (*msgload.Table, Stats, error) {
	var stats Stats

	messages, err := l.read(ctx, opts.MessagesPath, opts, "")
	if err != nil {
		return nil, stats, err
	}
	stats.MessageRows = len(messages.rows)
	l.logger.Verbose("Read %d message rows with columns %v", len(messages.rows), messages.fieldNames)

	categories, err := l.read(ctx, opts.CategoriesPath, opts, opts.CategoriesColumn)
	if err != nil {
		return nil, stats, err
	}
	stats.CategoryRows = len(categories.rows)
	l.logger.Verbose("Read %d categories rows", len(categories.rows))

	if len(categories.rows) == 0 {
		return nil, stats, fmt.Errorf("%s has no data rows: %w", opts.CategoriesPath, msgload.ErrEmptyJoin)
	}

	first := categories.rows[0]
	schema, err := ParseSchema(first.packed)
	if err != nil {
		return nil, stats, toRowError(categories.path, first, err)
	}
	l.logger.Verbose("Category schema has %d categories: %s", schema.Len(), strings.Join(schema.Names, ", "))

	table := &msgload.Table{
		IDColumn:   opts.IDColumn,
		FieldNames: append(append([]string(nil), messages.fieldNames...), categories.fieldNames...),
		Schema:     schema,
	}
	if err := checkColumnNames(table); err != nil {
		return nil, stats, err
	}

	// expand every categories row up front so a bad row fails the run even
	// when it would not survive the join
	labelsByRow := make([][]int, len(categories.rows))
	byID := make(map[string][]int, len(categories.rows))
	for i, row := range categories.rows {
		labels, err := ExpandCategories(schema, row.packed)
		if err != nil {
			rowErr := toRowError(categories.path, row, err)
			if opts.SchemaPolicy == msgload.SchemaPolicySkip {
				stats.SkippedRows++
				l.logger.Verbose("Skipping %v", rowErr)
				continue
			}
			return nil, stats, rowErr
		}
		labelsByRow[i] = labels
		byID[row.id] = append(byID[row.id], i)
	}

	matchedRight := make(map[string]bool, len(byID))
	for _, msg := range messages.rows {
		matches := byID[msg.id]
		if len(matches) == 0 {
			stats.UnmatchedLeft++
			continue
		}
		matchedRight[msg.id] = true
		for _, ci := range matches {
			cat := categories.rows[ci]
			fields := make([]string, 0, len(table.FieldNames))
			fields = append(fields, msg.fields...)
			fields = append(fields, cat.fields...)
			table.Records = append(table.Records, msgload.Record{
				ID:     msg.id,
				Fields: fields,
				Labels: append([]int(nil), labelsByRow[ci]...),
			})
		}
	}
	for id, rows := range byID {
		if !matchedRight[id] {
			stats.UnmatchedRight += len(rows)
		}
	}
	stats.JoinedRows = len(table.Records)

	if stats.UnmatchedLeft > 0 || stats.UnmatchedRight > 0 {
		l.logger.Verbose("Join dropped %d message rows and %d categories rows without a partner",
			stats.UnmatchedLeft, stats.UnmatchedRight)
	}
	if len(table.Records) == 0 {
		return nil, stats, fmt.Errorf("no %q value appears in both %s and %s: %w",
			opts.IDColumn, opts.MessagesPath, opts.CategoriesPath, msgload.ErrEmptyJoin)
	}

	return table, stats, nil
}

func (l *Loader) read(ctx context.Context, path string, opts Options, packedColumn string) (*sourceTable, error) {
	info, err := l.fs.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open %s: %w", msgload.ErrInputUnreadable, path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory, expected a delimited text file", msgload.ErrInputUnreadable, path)
	}
	l.logger.Verbose("Reading %s (%s)", path, humanize.Bytes(uint64(info.Size())))

	rc, err := l.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open %s: %w", msgload.ErrInputUnreadable, path, err)
	}
	defer rc.Close()

	return readSource(ctx, rc, path, opts.Delimiter, opts.IDColumn, packedColumn)
}

// checkColumnNames rejects tables whose output columns would collide.
// Comparison is case-insensitive because SQLite column names are.
func checkColumnNames(t *msgload.Table) error {
	seen := make(map[string]bool)
	for _, col := range t.Columns() {
		key := strings.ToLower(col)
		if seen[key] {
			return fmt.Errorf("column %q would appear twice in the merged table: %w", col, msgload.ErrSchemaMismatch)
		}
		seen[key] = true
	}
	return nil
}

func toRowError(path string, row sourceRow, err error) error {
	var ee *expandError
	if errors.As(err, &ee) {
		return &msgload.RowError{Source: path, Line: row.line, ID: row.id, Reason: ee.reason, Err: ee.sentinel}
	}
	return &msgload.RowError{Source: path, Line: row.line, ID: row.id, Reason: err.Error(), Err: msgload.ErrMalformedRow}
}
