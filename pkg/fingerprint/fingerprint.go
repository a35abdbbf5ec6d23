// Package fingerprint provides the single 64-bit non-cryptographic
// fingerprint function the rest of the core treats as an opaque collaborator:
// FarmHash Fingerprint64. Every deterministic hashing decision in the
// labeler — branch selection, virtual-person-id selection, shredding,
// multiplicity — bottoms out in a call to Fingerprint64.
package fingerprint

import (
	"strconv"

	farm "github.com/dgryski/go-farm"
)

// Fingerprint64 returns the FarmHash Fingerprint64 of data. It is a pure
// function: same bytes in, same uint64 out, on every host and process.
func Fingerprint64(data []byte) uint64 {
	return farm.Fingerprint64(data)
}

// FingerprintString is a convenience wrapper for the overwhelmingly common
// case of fingerprinting a string without an intermediate []byte copy at
// call sites that already build a string.
func FingerprintString(s string) uint64 {
	return farm.Fingerprint64([]byte(s))
}

// Decimal formats a uint64 using the canonical unsigned decimal formatter,
// matching the design note that fingerprint-derived seed strings must never
// be zero-padded.
func Decimal(v uint64) string {
	return strconv.FormatUint(v, 10)
}
