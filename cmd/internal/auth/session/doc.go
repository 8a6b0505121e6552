// Package session implements taskboard's session lifecycle.
//
// It provides login, refresh-token rotation with reuse detection, logout, and
// expired-record purging. Access and refresh tokens are HMAC-signed (see
// cmd/security/token); refresh tokens are additionally registered server-side,
// stored only as a hash.
//
// Rotation is single-use: exchanging a refresh token revokes it and issues a
// successor. A revoked token presented again is treated as theft, and all of
// the subject's sessions are revoked before the caller sees ErrTokenInvalid.
//
// Transport (HTTP) integration is intentionally out of scope here.
package session
