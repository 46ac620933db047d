package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jszwec/csvutil"

	"github.com/vvka-141/msgload/pkg/msgload"
)

// Canonical tag names the configured key columns are mapped onto, so the
// decoder structs can keep static csv tags whatever the input header says.
const (
	tagID         = "__msgload_id"
	tagCategories = "__msgload_categories"
)

// ctxCheckInterval is how many rows are decoded between context checks.
const ctxCheckInterval = 1024

type messageKey struct {
	ID string `csv:"__msgload_id"`
}

type categoryKey struct {
	ID         string `csv:"__msgload_id"`
	Categories string `csv:"__msgload_categories"`
}

// sourceRow is one decoded data row.
type sourceRow struct {
	line   int
	id     string
	packed string
	fields []string // non-key columns, in header order
}

// sourceTable is one decoded input file.
type sourceTable struct {
	path       string
	fieldNames []string
	rows       []sourceRow
}

// readSource decodes a delimited file. packedColumn is empty for the messages file.
func readSource(ctx context.Context, r io.Reader, path string, delimiter rune, idColumn, packedColumn string) (*sourceTable, error) {
	cr := csv.NewReader(r)
	cr.Comma = delimiter

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: file is empty, expected a header row: %w", path, msgload.ErrMissingColumn)
		}
		return nil, rowErrorFromCSV(path, err)
	}
	header = append([]string(nil), header...)
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	keyIdx, packedIdx := -1, -1
	mapped := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	var fieldNames []string
	var fieldIdx []int
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			// index columns written by pandas have a blank header
			name = "Unnamed: " + strconv.Itoa(i)
		}
		if seen[name] {
			return nil, &msgload.RowError{Source: path, Line: 1, Reason: fmt.Sprintf("column %q appears twice in header", name), Err: msgload.ErrSchemaMismatch}
		}
		seen[name] = true

		switch {
		case name == idColumn:
			keyIdx = i
			mapped[i] = tagID
		case packedColumn != "" && name == packedColumn:
			packedIdx = i
			mapped[i] = tagCategories
		default:
			mapped[i] = "col" + strconv.Itoa(i)
			fieldNames = append(fieldNames, name)
			fieldIdx = append(fieldIdx, i)
		}
	}

	var missing []string
	if keyIdx < 0 {
		missing = append(missing, idColumn)
	}
	if packedColumn != "" && packedIdx < 0 {
		missing = append(missing, packedColumn)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%s: header lacks column(s) %s: %w", path, strings.Join(missing, ", "), msgload.ErrMissingColumn)
	}

	dec, err := csvutil.NewDecoder(cr, mapped...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	dec.DisallowMissingColumns = true

	table := &sourceTable{path: path, fieldNames: fieldNames}
	for n := 0; ; n++ {
		if n%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		var row sourceRow
		if packedColumn == "" {
			var key messageKey
			err = dec.Decode(&key)
			row.id = key.ID
		} else {
			var key categoryKey
			err = dec.Decode(&key)
			row.id, row.packed = key.ID, key.Categories
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var missingErr *csvutil.MissingColumnsError
			if errors.As(err, &missingErr) {
				return nil, fmt.Errorf("%s: %v: %w", path, err, msgload.ErrMissingColumn)
			}
			return nil, rowErrorFromCSV(path, err)
		}

		row.line, _ = cr.FieldPos(0)
		row.id = strings.TrimSpace(row.id)
		if row.id == "" {
			return nil, &msgload.RowError{Source: path, Line: row.line, Reason: fmt.Sprintf("empty %q value", idColumn), Err: msgload.ErrMalformedRow}
		}

		record := dec.Record()
		row.fields = make([]string, len(fieldIdx))
		for j, idx := range fieldIdx {
			row.fields[j] = record[idx]
		}
		table.rows = append(table.rows, row)
	}

	return table, nil
}

// rowErrorFromCSV converts a csv parse failure into a RowError carrying the line.
func rowErrorFromCSV(path string, err error) error {
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		return &msgload.RowError{
			Source: path,
			Line:   parseErr.StartLine,
			Reason: parseErr.Err.Error(),
			Err:    msgload.ErrMalformedRow,
		}
	}
	return &msgload.RowError{Source: path, Reason: err.Error(), Err: msgload.ErrMalformedRow}
}
