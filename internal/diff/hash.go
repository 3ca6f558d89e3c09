// Package diff implements content fingerprinting and snapshot change
// detection for crawled records.
package diff

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// ComputeHash returns the hex-encoded SHA-256 digest of the canonical
// serialization of the given attributes. json.Marshal emits map keys in
// sorted order at every nesting level, so the digest is independent of
// the order attributes were inserted in.
func ComputeHash(attributes map[string]any) string {
	canonical, err := json.Marshal(attributes)
	if err != nil {
		// Attribute maps hold only JSON-representable scalars and maps;
		// a marshal failure indicates a programming error upstream.
		canonical = []byte{}
	}

	h := sha256.Sum256(canonical)
	return hex.EncodeToString(h[:])
}

// canonicalValue returns the canonical JSON encoding of a single value.
// Used for value equality so that numerically equal values compare equal
// regardless of their Go type after a database round-trip.
func canonicalValue(value any) string {
	encoded, err := json.Marshal(value)
	if err != nil {
		return ""
	}
	return string(encoded)
}
