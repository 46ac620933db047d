package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/msgload/pkg/msgload"
)

func sampleTable() *msgload.Table {
	return &msgload.Table{
		IDColumn:   "id",
		FieldNames: []string{"message", "genre"},
		Schema:     msgload.CategorySchema{Names: []string{"related", "offer"}},
		Records: []msgload.Record{
			{ID: "1", Fields: []string{"need water", "direct"}, Labels: []int{1, 0}},
			{ID: "2", Fields: []string{"it's \"fine\"", "news"}, Labels: []int{0, 1}},
		},
	}
}

type row struct {
	ID      string `db:"id"`
	Message string `db:"message"`
	Genre   string `db:"genre"`
	Related int    `db:"related"`
	Offer   int    `db:"offer"`
}

func readRows(t *testing.T, path, table string) []row {
	t.Helper()
	db, err := sqlx.Open(driverName, dsn(path))
	require.NoError(t, err)
	defer db.Close()

	var rows []row
	require.NoError(t, db.Select(&rows, "SELECT * FROM "+quoteIdent(table)+" ORDER BY rowid"))
	return rows
}

func openWriter(t *testing.T, path string) *Writer {
	t.Helper()
	w, err := Open(context.Background(), path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })
	return w
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names
}

func TestWriteTable_CreatesDatabase(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.db")

	w := openWriter(t, path)
	require.NoError(t, w.WriteTable(context.Background(), "LabelledMessages", sampleTable()))

	assert.Equal(t, []row{
		{ID: "1", Message: "need water", Genre: "direct", Related: 1, Offer: 0},
		{ID: "2", Message: "it's \"fine\"", Genre: "news", Related: 0, Offer: 1},
	}, readRows(t, path, "LabelledMessages"))
	assert.Equal(t, []string{"out.db"}, dirEntries(t, dir), "no temporary files left behind")
}

func TestWriteTable_ColumnTypes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.db")
	require.NoError(t, openWriter(t, path).WriteTable(context.Background(), "T", sampleTable()))

	db, err := sqlx.Open(driverName, path)
	require.NoError(t, err)
	defer db.Close()

	var cols []struct {
		Name string `db:"name"`
		Type string `db:"type"`
	}
	require.NoError(t, db.Select(&cols, `SELECT name, type FROM pragma_table_info('T') ORDER BY cid`))
	require.Len(t, cols, 5)
	assert.Equal(t, "id", cols[0].Name)
	assert.Equal(t, "TEXT", cols[0].Type)
	assert.Equal(t, "message", cols[1].Name)
	assert.Equal(t, "TEXT", cols[2].Type)
	assert.Equal(t, "related", cols[3].Name)
	assert.Equal(t, "INTEGER", cols[3].Type)
	assert.Equal(t, "INTEGER", cols[4].Type)
}

func TestWriteTable_OverwritesAndIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.db")
	w := openWriter(t, path)
	ctx := context.Background()

	old := sampleTable()
	old.Records = append(old.Records, msgload.Record{ID: "3", Fields: []string{"x", "y"}, Labels: []int{1, 1}})
	require.NoError(t, w.WriteTable(ctx, "LabelledMessages", old))

	require.NoError(t, w.WriteTable(ctx, "LabelledMessages", sampleTable()))
	first := readRows(t, path, "LabelledMessages")
	require.NoError(t, w.WriteTable(ctx, "LabelledMessages", sampleTable()))
	second := readRows(t, path, "LabelledMessages")

	assert.Len(t, first, 2)
	assert.Equal(t, first, second)
}

func TestWriteTable_PreservesOtherTables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.db")
	db, err := sqlx.Open(driverName, path)
	require.NoError(t, err)
	db.MustExec(`CREATE TABLE notes (body TEXT)`)
	db.MustExec(`INSERT INTO notes VALUES ('keep me')`)
	require.NoError(t, db.Close())

	require.NoError(t, openWriter(t, path).WriteTable(context.Background(), "LabelledMessages", sampleTable()))

	db, err = sqlx.Open(driverName, path)
	require.NoError(t, err)
	defer db.Close()
	var body string
	require.NoError(t, db.Get(&body, `SELECT body FROM notes`))
	assert.Equal(t, "keep me", body)
}

func TestWriteTable_FailureLeavesDestinationUntouched(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.db")
	w := openWriter(t, path)
	ctx := context.Background()
	require.NoError(t, w.WriteTable(ctx, "LabelledMessages", sampleTable()))
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	// A field named like the id column makes CREATE TABLE fail.
	bad := sampleTable()
	bad.FieldNames = []string{"id", "genre"}
	err = w.WriteTable(ctx, "LabelledMessages", bad)

	require.ErrorIs(t, err, msgload.ErrWriteFailed)
	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, []string{"out.db"}, dirEntries(t, dir))
}

func TestWriteTable_KeepsFileMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.db")
	w := openWriter(t, path)
	ctx := context.Background()
	require.NoError(t, w.WriteTable(ctx, "LabelledMessages", sampleTable()))
	require.NoError(t, os.Chmod(path, 0o600))

	require.NoError(t, w.WriteTable(ctx, "LabelledMessages", sampleTable()))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestWriteTable_FileNameWithURICharacters(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out?x#1 %20.db")
	w := openWriter(t, path)
	ctx := context.Background()

	require.NoError(t, w.WriteTable(ctx, "LabelledMessages", sampleTable()))
	require.NoError(t, w.WriteTable(ctx, "LabelledMessages", sampleTable()))

	assert.Len(t, readRows(t, path, "LabelledMessages"), 2)
	assert.Equal(t, []string{"out?x#1 %20.db"}, dirEntries(t, dir))
}

func TestWriteTable_RemovesStaleJournals(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.db")
	w := openWriter(t, path)
	ctx := context.Background()
	require.NoError(t, w.WriteTable(ctx, "LabelledMessages", sampleTable()))
	require.NoError(t, os.WriteFile(path+"-journal", nil, 0o644))
	require.NoError(t, os.WriteFile(path+"-shm", nil, 0o644))

	require.NoError(t, w.WriteTable(ctx, "LabelledMessages", sampleTable()))

	assert.NoFileExists(t, path+"-journal")
	assert.NoFileExists(t, path+"-shm")
	assert.Len(t, readRows(t, path, "LabelledMessages"), 2)
	assert.Equal(t, []string{"out.db"}, dirEntries(t, dir))
}

func TestDSN(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/data/out.db", "file:/data/out.db"},
		{"out.db", "file:out.db"},
		{"/data/out?x.db", "file:/data/out%3Fx.db"},
		{"/data/a b#c%.db", "file:/data/a%20b%23c%25.db"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, dsn(tt.path))
		})
	}
}

func TestWriteTable_CanceledContext(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.db")
	w := openWriter(t, path)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := w.WriteTable(ctx, "LabelledMessages", sampleTable())

	require.ErrorIs(t, err, msgload.ErrWriteFailed)
	assert.NoFileExists(t, path)
	assert.Empty(t, dirEntries(t, dir))
}

func TestWriteTable_QuotesIdentifiers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.db")
	tbl := sampleTable()
	tbl.FieldNames = []string{"select", `we"ird`}

	require.NoError(t, openWriter(t, path).WriteTable(context.Background(), `my table`, tbl))

	db, err := sqlx.Open(driverName, path)
	require.NoError(t, err)
	defer db.Close()
	var n int
	require.NoError(t, db.Get(&n, `SELECT count(*) FROM "my table" WHERE "we""ird" = 'direct'`))
	assert.Equal(t, 1, n)
}

func TestOpen_Errors(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.db")
	require.NoError(t, os.WriteFile(garbage, []byte("this is not a database file at all, just text padding it out"), 0o644))

	tests := []struct {
		name string
		path string
		want error
	}{
		{"empty", "", msgload.ErrInvalidConfig},
		{"missing directory", filepath.Join(dir, "nope", "out.db"), msgload.ErrConnectionFailed},
		{"not a database", garbage, msgload.ErrConnectionFailed},
		{"directory", dir, msgload.ErrConnectionFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(context.Background(), tt.path, nil)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
