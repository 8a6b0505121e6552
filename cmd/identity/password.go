package identity

import (
	"taskboard/cmd/security/password"
)

// HashPassword returns a PHC-style Argon2id hash string, using
// security/password as the single source of truth for parameters and policy.
func HashPassword(plain string) (string, error) {
	cfg, err := password.FromEnv()
	if err != nil {
		// Invalid env is an operational error, not a weak fallback.
		return "", err
	}
	return cfg.Hash(plain)
}

// VerifyPassword checks a password against a PHC Argon2id hash.
// Returns (false, nil) on a clean mismatch; errors are reserved for malformed
// hashes and configuration failures.
func VerifyPassword(plain string, encodedPHC string) (bool, error) {
	cfg, err := password.FromEnv()
	if err != nil {
		return false, err
	}
	return cfg.Verify(encodedPHC, plain)
}
