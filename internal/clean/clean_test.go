package clean

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/msgload/internal/checksum"
	"github.com/vvka-141/msgload/pkg/msgload"
)

func newTable(names []string, records ...msgload.Record) *msgload.Table {
	return &msgload.Table{
		IDColumn:   "id",
		FieldNames: []string{"message"},
		Schema:     msgload.CategorySchema{Names: names},
		Records:    records,
	}
}

func rec(id, msg string, labels ...int) msgload.Record {
	return msgload.Record{ID: id, Fields: []string{msg}, Labels: labels}
}

func TestClean_RelatedTwoBecomesZero(t *testing.T) {
	in := newTable([]string{"offer", "related"},
		rec("1", "a", 0, 2),
		rec("2", "b", 1, 1),
		rec("3", "c", 2, 0),
	)

	out, stats := New(checksum.New()).Clean(in)

	require.Len(t, out.Records, 3)
	assert.Equal(t, []int{0, 0}, out.Records[0].Labels)
	assert.Equal(t, []int{1, 1}, out.Records[1].Labels)
	assert.Equal(t, []int{2, 0}, out.Records[2].Labels, "only the related column is corrected")
	assert.Equal(t, 1, stats.RelatedCorrected)

	for _, r := range out.Records {
		v := r.Labels[out.Schema.Index("related")]
		assert.Contains(t, []int{0, 1}, v)
	}
}

func TestClean_RemovesExactDuplicates(t *testing.T) {
	in := newTable([]string{"related"},
		rec("1", "a", 1),
		rec("2", "b", 0),
		rec("1", "a", 1),
		rec("1", "a", 0),
		rec("2", "b", 0),
	)

	out, stats := New(checksum.New()).Clean(in)

	assert.Equal(t, []msgload.Record{
		rec("1", "a", 1),
		rec("2", "b", 0),
		rec("1", "a", 0),
	}, out.Records)
	assert.Equal(t, 2, stats.DuplicatesRemoved)
}

func TestClean_NoTwoRowsIdentical(t *testing.T) {
	in := newTable([]string{"related", "offer"},
		rec("7", "x", 2, 0),
		rec("7", "x", 0, 0),
		rec("8", "y", 1, 1),
		rec("8", "y", 1, 1),
	)

	out, stats := New(checksum.New()).Clean(in)

	calc := checksum.New()
	seen := map[checksum.Fingerprint]bool{}
	for _, r := range out.Records {
		fp := calc.RecordFingerprint(r)
		assert.False(t, seen[fp], "duplicate row %+v", r)
		seen[fp] = true
	}
	assert.Len(t, out.Records, 2)
	assert.Equal(t, 2, stats.DuplicatesRemoved)
	assert.Equal(t, 1, stats.RelatedCorrected)
}

func TestClean_WithoutRelatedColumn(t *testing.T) {
	in := newTable([]string{"offer"}, rec("1", "a", 2))

	out, stats := New(checksum.New()).Clean(in)

	assert.Equal(t, []int{2}, out.Records[0].Labels)
	assert.Zero(t, stats.RelatedCorrected)
}

func TestClean_DoesNotMutateInput(t *testing.T) {
	in := newTable([]string{"related"}, rec("1", "a", 2), rec("1", "a", 2))

	out, _ := New(checksum.New()).Clean(in)
	out.Records[0].Fields[0] = "changed"
	out.FieldNames[0] = "renamed"
	out.Schema.Names[0] = "renamed"

	assert.Len(t, in.Records, 2)
	assert.Equal(t, []int{2}, in.Records[0].Labels)
	assert.Equal(t, []int{2}, in.Records[1].Labels)
	assert.Equal(t, "a", in.Records[0].Fields[0])
	assert.Equal(t, []string{"message"}, in.FieldNames)
	assert.Equal(t, []string{"related"}, in.Schema.Names)
}

func TestClean_IsIdempotent(t *testing.T) {
	in := newTable([]string{"related"}, rec("1", "a", 2), rec("2", "b", 1), rec("2", "b", 1))
	cleaner := New(checksum.New())

	once, _ := cleaner.Clean(in)
	twice, stats := cleaner.Clean(once)

	assert.Equal(t, once, twice)
	assert.Equal(t, Stats{}, stats)
}
