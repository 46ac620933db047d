// Package clean normalizes a merged message table and removes duplicate rows.
package clean

import (
	"github.com/vvka-141/msgload/internal/checksum"
	"github.com/vvka-141/msgload/pkg/msgload"
)

// Stats describes what the cleaner changed.
type Stats struct {
	RelatedCorrected  int
	DuplicatesRemoved int
}

// Cleaner applies the fixed cleaning rules to a table.
type Cleaner struct {
	calc checksum.Calculator
}

// New creates a Cleaner that detects duplicates with calc.
func New(calc checksum.Calculator) *Cleaner {
	return &Cleaner{calc: calc}
}

// Clean returns a new table in which every related value of 2 reads 0 and
// exact duplicate rows are removed, keeping the first occurrence.
// The input table is left untouched.
//
// Normalization runs first, so rows that only differed by the miscoded
// value collapse into one.
func (c *Cleaner) Clean(in *msgload.Table) (*msgload.Table, Stats) {
	var stats Stats
	out := in.Clone()
	kept := out.Records[:0]

	related := out.Schema.Index(msgload.RelatedCategory)
	seen := make(map[checksum.Fingerprint]struct{}, len(out.Records))

	for _, rec := range out.Records {
		if related >= 0 && rec.Labels[related] == 2 {
			rec.Labels[related] = 0
			stats.RelatedCorrected++
		}

		fp := c.calc.RecordFingerprint(rec)
		if _, dup := seen[fp]; dup {
			stats.DuplicatesRemoved++
			continue
		}
		seen[fp] = struct{}{}
		kept = append(kept, rec)
	}
	out.Records = kept

	return out, stats
}
