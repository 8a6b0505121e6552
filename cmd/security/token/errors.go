package token

import "errors"

// Public, stable errors for callers.
var (
	// ErrTokenExpired is returned when a token's expiry window has passed.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid is returned for signature mismatch, malformed payload,
	// or a token of the wrong kind presented where the other was expected.
	ErrTokenInvalid = errors.New("token invalid")

	// ErrConfig is returned for invalid codec configuration.
	ErrConfig = errors.New("invalid token config")

	ErrHMACKeyMissing  = errors.New("token HMAC key missing")
	ErrHMACKeyTooShort = errors.New("token HMAC key too short")
)
