package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"taskboard/cmd/identity"
	"taskboard/cmd/security/token"
)

// Service implements the high-level session operations for taskboard.
//
// It issues token pairs on login, validates access tokens, performs refresh
// rotation with reuse detection, and revokes sessions on logout.
type Service struct {
	cfg   Config
	codec *token.Codec
	users identity.Store
	store Store

	// dummyHash absorbs password verification time for unknown emails so a
	// login probe cannot distinguish "no such user" from "wrong password".
	dummyHash string
}

// Issued is the result of a login or rotation: a short-lived access token and
// a single-use refresh token.
type Issued struct {
	AccessToken  string
	AccessExp    time.Time
	RefreshToken string
	RefreshExp   time.Time
}

// NewService constructs a Service from configuration and its two stores.
func NewService(cfg Config, users identity.Store, store Store) (*Service, error) {
	if users == nil || store == nil {
		return nil, ErrConfig
	}
	codec, err := cfg.NewCodec()
	if err != nil {
		return nil, err
	}

	s := &Service{cfg: cfg, codec: codec, users: users, store: store}
	if hash, err := identity.HashPassword("dummy-password-for-timing-only"); err == nil {
		s.dummyHash = hash
	}
	return s, nil
}

// Login verifies credentials and, on success, issues a token pair and
// registers the refresh token. The returned User is the public profile; the
// password hash never leaves the store layer.
func (s *Service) Login(ctx context.Context, email, password string, now time.Time) (Issued, identity.User, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return Issued{}, identity.User{}, ErrInvalidCredentials
	}

	auth, err := s.users.GetUserAuthByEmail(ctx, email)
	if err != nil {
		if identity.IsNotFound(err) || identity.IsInvalidInput(err) {
			// Timing resistance: burn a verify even when the user is missing.
			if s.dummyHash != "" {
				_, _ = identity.VerifyPassword(password, s.dummyHash)
			}
			return Issued{}, identity.User{}, ErrInvalidCredentials
		}
		return Issued{}, identity.User{}, err
	}

	ok, err := identity.VerifyPassword(password, auth.PasswordHash)
	if err != nil || !ok {
		return Issued{}, identity.User{}, ErrInvalidCredentials
	}

	issued, err := s.issuePair(ctx, auth.User.ID, auth.User.Role, now)
	if err != nil {
		return Issued{}, identity.User{}, err
	}
	return issued, auth.User, nil
}

// ValidateAccess verifies an access token and returns the identity and role
// it carries. Pure codec check; access tokens are not tracked server-side.
func (s *Service) ValidateAccess(tokenStr string, now time.Time) (token.Claims, error) {
	return s.codec.Verify(tokenStr, token.KindAccess, now)
}

// Refresh rotates a refresh token: the presented token is revoked and a fresh
// pair is issued.
//
// Security model:
//   - Signature/expiry are checked first via the codec.
//   - The record must exist and win the revoke compare-and-swap. A token with
//     no record, or one that lost the swap, was already consumed or purged:
//     that is the reuse signal, so all of the subject's remaining sessions are
//     revoked before ErrTokenInvalid is returned. Two concurrent refresh calls
//     on one token therefore never both succeed.
func (s *Service) Refresh(ctx context.Context, refreshToken string, now time.Time) (Issued, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	refreshToken = strings.TrimSpace(refreshToken)
	// Sanity bounds to avoid hashing pathological inputs.
	if refreshToken == "" || len(refreshToken) > 4096 {
		return Issued{}, ErrTokenInvalid
	}

	claims, err := s.codec.Verify(refreshToken, token.KindRefresh, now)
	if err != nil {
		return Issued{}, err
	}

	tokenHash := token.HashOpaqueTokenHex(refreshToken)

	row, err := s.store.GetByTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			// A validly signed token with no record means the record was
			// purged or never ours to issue. The subject is known from the
			// verified claims, so contain as for reuse.
			if err := s.store.RevokeAllForUser(ctx, claims.UserID, now); err != nil {
				return Issued{}, err
			}
			return Issued{}, ErrTokenInvalid
		}
		return Issued{}, err
	}
	if row.UserID != claims.UserID {
		return Issued{}, ErrTokenInvalid
	}
	if !row.ExpiresAt.After(now) {
		return Issued{}, ErrTokenExpired
	}

	won, err := s.store.Revoke(ctx, tokenHash, now)
	if err != nil {
		return Issued{}, err
	}
	if !won {
		// Reuse detected: this token was already consumed or revoked. Contain
		// the breach by revoking every session the subject still holds.
		if err := s.store.RevokeAllForUser(ctx, row.UserID, now); err != nil {
			return Issued{}, err
		}
		return Issued{}, ErrTokenInvalid
	}

	role, ok := identity.ParseRole(claims.Role)
	if !ok {
		return Issued{}, ErrTokenInvalid
	}
	return s.issuePair(ctx, claims.UserID, role, now)
}

// Logout revokes the presented refresh token. Unknown or already-revoked
// tokens are a no-op; logout is idempotent.
func (s *Service) Logout(ctx context.Context, refreshToken string, now time.Time) error {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" || len(refreshToken) > 4096 {
		return nil
	}

	_, err := s.store.Revoke(ctx, token.HashOpaqueTokenHex(refreshToken), now)
	return err
}

// RevokeAll revokes every session for a user (e.g., after user deletion).
func (s *Service) RevokeAll(ctx context.Context, userID string, now time.Time) error {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	return s.store.RevokeAllForUser(ctx, userID, now)
}

// PurgeExpired removes expired refresh-token records. Storage reclamation
// only; expired tokens already fail verification.
func (s *Service) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	return s.store.PurgeExpired(ctx, now)
}

func (s *Service) issuePair(ctx context.Context, userID string, role identity.Role, now time.Time) (Issued, error) {
	accessToken, accessExp, err := s.codec.IssueAccess(userID, role.String(), now)
	if err != nil {
		return Issued{}, err
	}
	refreshToken, refreshExp, err := s.codec.IssueRefresh(userID, role.String(), now)
	if err != nil {
		return Issued{}, err
	}

	hash := token.HashOpaqueTokenHex(refreshToken)
	if err := s.store.Create(ctx, hash, userID, now, refreshExp); err != nil {
		return Issued{}, err
	}

	return Issued{
		AccessToken:  accessToken,
		AccessExp:    accessExp,
		RefreshToken: refreshToken,
		RefreshExp:   refreshExp,
	}, nil
}
