package session

import (
	"errors"

	"taskboard/cmd/security/token"
)

var (
	// ErrInvalidCredentials is returned by Login when the email is unknown or
	// the password does not match. The two cases are indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrTokenInvalid is the codec sentinel re-exported for callers of this
	// package: signature mismatch, malformed payload, wrong kind, or a
	// revoked/unknown refresh token (reuse included).
	ErrTokenInvalid = token.ErrTokenInvalid

	// ErrTokenExpired is the codec sentinel for expired tokens.
	ErrTokenExpired = token.ErrTokenExpired

	// ErrRecordNotFound is returned by the store when a refresh-token record
	// is absent.
	ErrRecordNotFound = errors.New("refresh token record not found")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid session config")
)
