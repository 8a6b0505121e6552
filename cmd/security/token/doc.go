// Package token implements taskboard's signed-token codec and token hashing.
//
// The Codec issues and verifies compact HMAC-SHA256 signed tokens (JWT/HS256)
// carrying a subject identity and role claim. Access and refresh tokens are
// signed with distinct secrets and carry distinct expiry windows, so one kind
// can never be replayed as the other.
//
// The package is also the single source of truth for opaque-token hashing:
// refresh and invite tokens are persisted server-side only as a hash.
//
// Environment:
// - TASKBOARD_TOKEN_HMAC_KEY: when set, storage hashing uses HMAC-SHA256.
package token
