package security

import "errors"

// Error taxonomy of the authentication core.  Each failure is reported as
// (or wraps) exactly one of these values; the HTTP layer maps them to
// status codes with errors.Is.
var (
	// ErrConfig is a fatal startup error: the signing secret is missing or
	// does not decode to enough key material.
	ErrConfig = errors.New("security: invalid configuration")
	// ErrIssuance rejects minting a token for a principal without a usable subject.
	ErrIssuance = errors.New("security: token issuance refused")

	ErrInvalidToken = errors.New("security: invalid token")
	ErrExpiredToken = errors.New("security: token expired")

	// Refresh redemption failures.  Clients only ever see "refresh rejected".
	ErrRefreshNotFound = errors.New("security: refresh token not found")
	ErrRefreshMismatch = errors.New("security: refresh token belongs to another principal")
	ErrRefreshExpired  = errors.New("security: refresh token expired")

	ErrInvalidCredentials = errors.New("security: invalid credentials")
	ErrAccountDisabled    = errors.New("security: account disabled")
	ErrAccountExists      = errors.New("security: account already exists")

	// ErrUnavailable wraps I/O failures of the identity, refresh or TTL stores.
	ErrUnavailable = errors.New("security: store unavailable")
)

// IsRefreshRejected reports whether err is one of the refresh redemption
// failures.
func IsRefreshRejected(err error) bool {
	return errors.Is(err, ErrRefreshNotFound) ||
		errors.Is(err, ErrRefreshMismatch) ||
		errors.Is(err, ErrRefreshExpired)
}

// IsUnauthenticated reports whether err is a verification failure.  The
// two kinds are never distinguished outside this package.
func IsUnauthenticated(err error) bool {
	return errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrExpiredToken)
}
