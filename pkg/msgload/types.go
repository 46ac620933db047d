package msgload

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// SchemaPolicy decides what happens to a categories row whose tokens
// disagree with the category schema.
type SchemaPolicy string

const (
	// SchemaPolicyFail aborts the run on the first divergent row.
	SchemaPolicyFail SchemaPolicy = "fail"

	// SchemaPolicySkip drops divergent rows and reports them in verbose output.
	SchemaPolicySkip SchemaPolicy = "skip"
)

// ParseSchemaPolicy parses a policy name. An empty string yields SchemaPolicyFail.
func ParseSchemaPolicy(s string) (SchemaPolicy, error) {
	switch SchemaPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", SchemaPolicyFail:
		return SchemaPolicyFail, nil
	case SchemaPolicySkip:
		return SchemaPolicySkip, nil
	}
	return "", fmt.Errorf("unknown schema policy %q (want fail or skip): %w", s, ErrInvalidConfig)
}

// CategorySchema is the ordered list of category names parsed from the
// first categories row. Every record carries one label per name.
type CategorySchema struct {
	Names []string
}

// Len returns the number of categories.
func (s CategorySchema) Len() int { return len(s.Names) }

// Index returns the position of the named category, or -1.
func (s CategorySchema) Index(name string) int {
	for i, n := range s.Names {
		if n == name {
			return i
		}
	}
	return -1
}

// Record is one merged message row.
type Record struct {
	ID     string
	Fields []string // aligned with Table.FieldNames
	Labels []int    // aligned with Table.Schema.Names
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	return Record{
		ID:     r.ID,
		Fields: append([]string(nil), r.Fields...),
		Labels: append([]int(nil), r.Labels...),
	}
}

// Table is the in-memory merged dataset passed from loader to cleaner to writer.
type Table struct {
	IDColumn   string
	FieldNames []string
	Schema     CategorySchema
	Records    []Record
}

// Len returns the number of records.
func (t *Table) Len() int { return len(t.Records) }

// Columns returns all output column names in order: id, text fields, categories.
func (t *Table) Columns() []string {
	cols := make([]string, 0, 1+len(t.FieldNames)+t.Schema.Len())
	cols = append(cols, t.IDColumn)
	cols = append(cols, t.FieldNames...)
	cols = append(cols, t.Schema.Names...)
	return cols
}

// Column is one output column. Category columns hold integers, everything
// else is text.
type Column struct {
	Name    string
	Integer bool
}

// ColumnDefs returns the output columns in Columns order with their kinds.
func (t *Table) ColumnDefs() []Column {
	names := t.Columns()
	defs := make([]Column, len(names))
	firstLabel := len(names) - t.Schema.Len()
	for i, n := range names {
		defs[i] = Column{Name: n, Integer: i >= firstLabel}
	}
	return defs
}

// Values returns the record's values in Columns order.
func (t *Table) Values(r Record) []any {
	vals := make([]any, 0, 1+len(r.Fields)+len(r.Labels))
	vals = append(vals, r.ID)
	for _, f := range r.Fields {
		vals = append(vals, f)
	}
	for _, l := range r.Labels {
		vals = append(vals, l)
	}
	return vals
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	out := &Table{
		IDColumn:   t.IDColumn,
		FieldNames: append([]string(nil), t.FieldNames...),
		Schema:     CategorySchema{Names: append([]string(nil), t.Schema.Names...)},
		Records:    make([]Record, len(t.Records)),
	}
	for i, r := range t.Records {
		out.Records[i] = r.Clone()
	}
	return out
}

// RunConfig contains all parameters needed for one load run.
type RunConfig struct {
	// MessagesPath is the messages CSV file
	MessagesPath string

	// CategoriesPath is the categories CSV file
	CategoriesPath string

	// Destination is a SQLite file path or a PostgreSQL URL
	Destination string

	// TableName is the destination table, replaced on every run
	TableName string

	// IDColumn is the join key column present in both inputs
	IDColumn string

	// CategoriesColumn is the packed category field in the categories file
	CategoriesColumn string

	// Delimiter separates fields in both input files
	Delimiter rune

	// SchemaPolicy decides what happens to divergent categories rows
	SchemaPolicy SchemaPolicy

	// MetricsFile, when set, receives run metrics in Prometheus text format
	MetricsFile string

	// Timeout bounds the whole run
	Timeout time.Duration

	// Verbose enables detailed logging
	Verbose bool
}

// Validate checks if the RunConfig has all required fields and valid values.
// It returns a multi-error if multiple validation failures occur.
func (c *RunConfig) Validate() error {
	var errs []error

	if c.MessagesPath == "" {
		errs = append(errs, fmt.Errorf("MessagesPath is required: %w", ErrInvalidConfig))
	}
	if c.CategoriesPath == "" {
		errs = append(errs, fmt.Errorf("CategoriesPath is required: %w", ErrInvalidConfig))
	}
	if c.Destination == "" {
		errs = append(errs, fmt.Errorf("Destination is required: %w", ErrInvalidConfig))
	}
	if c.TableName == "" {
		errs = append(errs, fmt.Errorf("TableName is required: %w", ErrInvalidConfig))
	}
	if c.IDColumn == "" {
		errs = append(errs, fmt.Errorf("IDColumn is required: %w", ErrInvalidConfig))
	}
	if c.CategoriesColumn == "" {
		errs = append(errs, fmt.Errorf("CategoriesColumn is required: %w", ErrInvalidConfig))
	}
	if c.IDColumn != "" && c.IDColumn == c.CategoriesColumn {
		errs = append(errs, fmt.Errorf("IDColumn and CategoriesColumn must differ: %w", ErrInvalidConfig))
	}
	if c.Delimiter == 0 || c.Delimiter == '"' || c.Delimiter == '\r' || c.Delimiter == '\n' {
		errs = append(errs, fmt.Errorf("invalid delimiter %q: %w", c.Delimiter, ErrInvalidConfig))
	}
	if _, err := ParseSchemaPolicy(string(c.SchemaPolicy)); err != nil {
		errs = append(errs, err)
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout cannot be negative: %w", ErrInvalidConfig))
	}

	return errors.Join(errs...)
}

// DefaultRunConfig returns a RunConfig with every optional field set to its default.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		TableName:        DefaultTableName,
		IDColumn:         DefaultIDColumn,
		CategoriesColumn: DefaultCategoriesColumn,
		Delimiter:        DefaultDelimiter,
		SchemaPolicy:     SchemaPolicyFail,
		Timeout:          DefaultTimeout,
	}
}
