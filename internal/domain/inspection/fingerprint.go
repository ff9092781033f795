// Package inspection holds the domain model for inspecting uploaded documents
// for leaked credentials: fingerprints, extraction results, findings and the
// verdict that decides whether an upload may leave the browser.
package inspection

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// Fingerprint content-addresses an upload for cache lookups. It is never used
// to make a security decision.
type Fingerprint string

// String returns the hex encoded digest.
func (f Fingerprint) String() string { return string(f) }

// Short returns an abbreviated form suitable for log lines.
func (f Fingerprint) Short() string {
	if len(f) <= 12 {
		return string(f)
	}
	return string(f[:12])
}

// NewFingerprint derives a SHA-256 fingerprint over the declared filename, the
// declared size and the content. Filename and size are length-prefixed so no
// two distinct input triples share the same digest input.
func NewFingerprint(data []byte, filename string, size int64) Fingerprint {
	h := sha256.New()

	var frame [8]byte
	binary.BigEndian.PutUint64(frame[:], uint64(len(filename)))
	h.Write(frame[:])
	h.Write([]byte(filename))

	binary.BigEndian.PutUint64(frame[:], uint64(size))
	h.Write(frame[:])

	h.Write(data)

	return Fingerprint(hex.EncodeToString(h.Sum(nil)))
}
