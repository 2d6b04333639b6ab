package layout

import (
	"crypto/sha1"
	"encoding/hex"
)

// Fingerprint is the 160-bit content hash identifying a Layout's schema.
// The fingerprint IS the schema identity: two types with identical
// canonical schemas share a fingerprint.
//
// SHA-1 is computed with the standard library's crypto/sha1. No
// third-party hash implementation appears anywhere in the retrieved
// corpus — this is the one place the
// codec/layout stack intentionally stays on stdlib rather than reaching
// for a library that isn't grounded in any example.
type Fingerprint [20]byte

// String returns the lowercase hex encoding.
func (f Fingerprint) String() string { return hex.EncodeToString(f[:]) }

// IsZero reports whether f is the zero fingerprint (no schema computed).
func (f Fingerprint) IsZero() bool { return f == Fingerprint{} }

// computeFingerprint hashes the canonical serialization of a property list.
func computeFingerprint(props []Property) Fingerprint {
	h := sha1.New()
	h.Write(canonicalBytes(props))
	var fp Fingerprint
	copy(fp[:], h.Sum(nil))
	return fp
}
