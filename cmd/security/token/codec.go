package token

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Kind discriminates access tokens from refresh tokens.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Claims is the verified identity envelope extracted from a token.
type Claims struct {
	UserID    string
	Role      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Codec signs and verifies access/refresh tokens. It is a pure function of
// token bytes, the signing secrets, and the supplied time; it holds no state
// and performs no I/O.
type Codec struct {
	issuer        string
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

const minSecretBytes = 32

// NewCodec constructs a Codec. Secrets must be distinct and at least 32 bytes;
// TTLs must be positive with the refresh window longer than the access window.
func NewCodec(issuer string, accessSecret, refreshSecret []byte, accessTTL, refreshTTL time.Duration) (*Codec, error) {
	if issuer == "" {
		return nil, ErrConfig
	}
	if len(accessSecret) < minSecretBytes || len(refreshSecret) < minSecretBytes {
		return nil, ErrConfig
	}
	if bytes.Equal(accessSecret, refreshSecret) {
		return nil, ErrConfig
	}
	if accessTTL <= 0 || refreshTTL <= 0 || refreshTTL < accessTTL {
		return nil, ErrConfig
	}

	return &Codec{
		issuer:        issuer,
		accessSecret:  accessSecret,
		refreshSecret: refreshSecret,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}, nil
}

type signedClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
	Kind string `json:"kind"`
}

// IssueAccess issues a short-lived access token for userID with the given role.
func (c *Codec) IssueAccess(userID, role string, now time.Time) (string, time.Time, error) {
	return c.issue(KindAccess, userID, role, now)
}

// IssueRefresh issues a long-lived refresh token for userID with the given role.
func (c *Codec) IssueRefresh(userID, role string, now time.Time) (string, time.Time, error) {
	return c.issue(KindRefresh, userID, role, now)
}

func (c *Codec) issue(kind Kind, userID, role string, now time.Time) (string, time.Time, error) {
	if userID == "" || role == "" {
		return "", time.Time{}, ErrConfig
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	// A random jti makes every issued token unique even within one clock
	// second; stored refresh-token hashes rely on this.
	jti, err := randomHex(16)
	if err != nil {
		return "", time.Time{}, err
	}

	exp := now.Add(c.ttl(kind))
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, signedClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   userID,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Role: role,
		Kind: string(kind),
	})

	signed, err := tok.SignedString(c.secret(kind))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify checks the token's signature and expiry against the expected kind and
// returns the embedded claims. Expiry is evaluated against the supplied time.
func (c *Codec) Verify(tokenStr string, kind Kind, now time.Time) (Claims, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}

	claims := &signedClaims{}
	parsed, err := jwt.ParseWithClaims(tokenStr, claims,
		func(*jwt.Token) (any, error) { return c.secret(kind), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrTokenInvalid
	}
	if !parsed.Valid {
		return Claims{}, ErrTokenInvalid
	}

	// The kind claim is double-checked even though a cross-kind token already
	// fails signature verification under the other secret.
	if claims.Kind != string(kind) || claims.Subject == "" || claims.Role == "" {
		return Claims{}, ErrTokenInvalid
	}

	out := Claims{
		UserID: claims.Subject,
		Role:   claims.Role,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

// TTL returns the configured expiry window for a token kind.
func (c *Codec) TTL(kind Kind) time.Duration { return c.ttl(kind) }

func (c *Codec) ttl(kind Kind) time.Duration {
	if kind == KindRefresh {
		return c.refreshTTL
	}
	return c.accessTTL
}

func (c *Codec) secret(kind Kind) []byte {
	if kind == KindRefresh {
		return c.refreshSecret
	}
	return c.accessSecret
}

func randomHex(nBytes int) (string, error) {
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
