package pebblejournal

import (
	"encoding/binary"

	"github.com/flowcore/flowcore/internal/clock"
	"github.com/flowcore/flowcore/internal/layout"
	"github.com/google/uuid"
)

// Key layout (byte-wise, lexicographically sortable so a range scan over
// the journal prefix visits records in strict HLC order regardless of
// type), grounded on eventlog's big-endian-sortable key scheme:
//
//	j/{wall_be8}{logical_be4}{kind}{fingerprint_20}{uuid_16}
//
// Stamping the HLC ahead of kind/fingerprint/uuid is what makes
// "journal order equals HLC order" a property of the key space itself,
// rather than something IterEvents has to re-sort for.
var journalPrefix = []byte("j/")

// introducedPrefix namespaces the durable record of which fingerprints
// have been introduced, so a restarted journal doesn't reject appends
// for types it already knows about.
var introducedPrefix = []byte("f/")

const (
	kindCommand byte = 'c'
	kindEvent   byte = 'e'
)

func recordKey(kind byte, fp layout.Fingerprint, stamp clock.HybridTimestamp, id uuid.UUID) []byte {
	k := make([]byte, 0, len(journalPrefix)+8+4+1+20+16)
	k = append(k, journalPrefix...)
	k = appendBE8(k, stamp.WallMS)
	k = appendBE4(k, stamp.Logical)
	k = append(k, kind)
	k = append(k, fp[:]...)
	k = append(k, id[:]...)
	return k
}

func stampLowerBound(stamp clock.HybridTimestamp) []byte {
	k := make([]byte, 0, len(journalPrefix)+8+4)
	k = append(k, journalPrefix...)
	k = appendBE8(k, stamp.WallMS)
	k = appendBE4(k, stamp.Logical)
	return k
}

func introducedKey(fp layout.Fingerprint) []byte {
	k := make([]byte, 0, len(introducedPrefix)+20)
	k = append(k, introducedPrefix...)
	k = append(k, fp[:]...)
	return k
}

func appendBE4(dst []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(dst, b[:]...)
}

func appendBE8(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

// nextPrefix returns the smallest key greater than every key with prefix
// p, for use as an exclusive Pebble iterator upper bound.
func nextPrefix(p []byte) []byte {
	out := append([]byte(nil), p...)
	for i := len(out) - 1; i >= 0; i-- {
		if out[i] != 0xFF {
			out[i]++
			return out[:i+1]
		}
	}
	return nil
}
