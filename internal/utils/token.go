package utils // package utils provides helpers for opaque token generation and hashing

import (
	"crypto/rand"   // secure random number generation
	"crypto/sha256" // SHA‑256 digests for stored token identifiers
	"encoding/hex"  // hex encoding of random bytes and digests
)

// refreshTokenBytes is the amount of random data behind a refresh token
// (96 hex characters once encoded).
const refreshTokenBytes = 48

// NewRefreshValue returns a fresh, cryptographically random refresh token
// value.  The raw value is handed to the client; only HashToken(raw) is
// persisted.
func NewRefreshValue() (string, error) {
	return randomHex(refreshTokenBytes)
}

// HashToken returns the SHA‑256 hash of a token as a hex string.  It is
// used both for refresh tokens at rest and for revocation ledger keys, so
// neither store ever holds a usable credential.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// randomHex returns a hex‑encoded string generated from n bytes of
// cryptographically secure random data.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
