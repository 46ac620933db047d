// Package checksum provides content hashing for merged message tables.
//
// Two digests are produced, both SHA-256:
//
//   - Record fingerprint: identifies a row by every value it holds (id, text
//     fields and category labels). Equal fingerprints mean exact duplicates;
//     the cleaner uses them to drop repeated rows.
//   - Table digest: covers the column layout and all records in order.
//     Two runs over the same inputs yield the same digest, which makes
//     overwrite idempotence observable from the console and in tests.
//
// Values are length-prefixed before hashing, so ("ab","c") and ("a","bc")
// never collide.
//
// # Example Usage
//
//	calculator := checksum.New()
//	seen := map[checksum.Fingerprint]bool{}
//	for _, r := range table.Records {
//	    fp := calculator.RecordFingerprint(r)
//	    if seen[fp] { continue }
//	    seen[fp] = true
//	}
//
// # Thread Safety
//
// SHA256 is safe for concurrent use by multiple goroutines.
package checksum
