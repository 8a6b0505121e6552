package app

import (
	"errors"

	"taskboard/cmd/security/token"
)

// ValidateSecurityConfig enforces the startup security policy.
//
// Fail-fast is intentional: the server must not come up with weaker
// refresh-token hashing than the operator asked for. Enforcement goes through
// the same module that performs the hashing (security/token).
func ValidateSecurityConfig(cfg Config) error {
	if !cfg.RequireTokenHMAC {
		return nil
	}

	// 32 bytes minimum for an HMAC-SHA256 secret, measured as raw bytes.
	if _, err := token.HMACKeyFromEnv(32); err != nil {
		switch {
		case errors.Is(err, token.ErrHMACKeyMissing):
			return errors.New("security policy: TASKBOARD_REQUIRE_TOKEN_HMAC=true but TASKBOARD_TOKEN_HMAC_KEY is missing")
		case errors.Is(err, token.ErrHMACKeyTooShort):
			return errors.New("security policy: TASKBOARD_REQUIRE_TOKEN_HMAC=true but TASKBOARD_TOKEN_HMAC_KEY is too short (min 32 bytes)")
		default:
			return err
		}
	}

	if !token.HMACEnabled() {
		return errors.New("security policy: TASKBOARD_REQUIRE_TOKEN_HMAC=true but refresh-token hashing is not in HMAC mode")
	}

	return nil
}
