package checksum

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"

	"github.com/vvka-141/msgload/pkg/msgload"
)

// Fingerprint is the SHA-256 of a single record's values.
type Fingerprint [sha256.Size]byte

// String returns the fingerprint as lowercase hex.
func (f Fingerprint) String() string {
	return hex.EncodeToString(f[:])
}

// Calculator computes record fingerprints and table digests.
type Calculator interface {
	// RecordFingerprint hashes every value of a record.
	RecordFingerprint(r msgload.Record) Fingerprint

	// TableDigest hashes the column layout and all records in order.
	TableDigest(t *msgload.Table) string
}

// SHA256 implements Calculator using SHA-256.
//
// SHA256 is a zero-size type and is safe for concurrent use by multiple goroutines.
type SHA256 struct{}

// New creates a new SHA-256 based calculator.
func New() SHA256 {
	return SHA256{}
}

// RecordFingerprint computes the SHA-256 of a record.
func (c SHA256) RecordFingerprint(r msgload.Record) Fingerprint {
	h := sha256.New()
	writeRecord(h, r)
	var fp Fingerprint
	h.Sum(fp[:0])
	return fp
}

// TableDigest computes the SHA-256 of a table as lowercase hex.
func (c SHA256) TableDigest(t *msgload.Table) string {
	h := sha256.New()
	columns := t.Columns()
	writeUint(h, uint64(len(columns)))
	for _, col := range columns {
		writeString(h, col)
	}
	writeUint(h, uint64(len(t.Records)))
	for _, r := range t.Records {
		writeRecord(h, r)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func writeRecord(h hash.Hash, r msgload.Record) {
	writeString(h, r.ID)
	writeUint(h, uint64(len(r.Fields)))
	for _, f := range r.Fields {
		writeString(h, f)
	}
	writeUint(h, uint64(len(r.Labels)))
	for _, l := range r.Labels {
		writeInt(h, int64(l))
	}
}

func writeString(h hash.Hash, s string) {
	writeUint(h, uint64(len(s)))
	h.Write([]byte(s))
}

func writeUint(h hash.Hash, v uint64) {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], v)
	h.Write(buf[:n])
}

func writeInt(h hash.Hash, v int64) {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutVarint(buf[:], v)
	h.Write(buf[:n])
}

var _ Calculator = SHA256{}
