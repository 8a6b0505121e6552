package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store over PostgreSQL (taskboard.refresh_tokens).
//
// The revoked flag is flipped with a conditional UPDATE, which gives Revoke
// its compare-and-swap contract without an explicit transaction: the storage
// engine serializes the two competing writes and only one reports a row.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// StoreOption configures PostgresStore.
type StoreOption func(*PostgresStore) error

// WithSchema sets the DB schema used by the store (default: "taskboard").
func WithSchema(schema string) StoreOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return ErrConfig
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore creates a Postgres-backed refresh-token store.
func NewPostgresStore(pool *pgxpool.Pool, opts ...StoreOption) (*PostgresStore, error) {
	st := &PostgresStore{pool: pool, schema: "taskboard"}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, fmt.Errorf("session: nil pool")
	}
	return st, nil
}

// Create inserts a new active refresh-token record. The unique index on
// token_hash rejects colliding token strings.
func (s *PostgresStore) Create(ctx context.Context, tokenHash, userID string, now, expiresAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(tokenHash) == "" || strings.TrimSpace(userID) == "" {
		return ErrConfig
	}

	tokens := s.table()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO `+tokens+` (token_hash, user_id, created_at, expires_at, revoked)
		VALUES ($1, $2, $3, $4, FALSE)
	`, tokenHash, userID, now, expiresAt)
	return err
}

// GetByTokenHash loads a refresh-token record by its storage hash.
func (s *PostgresStore) GetByTokenHash(ctx context.Context, tokenHash string) (Row, error) {
	if err := ctx.Err(); err != nil {
		return Row{}, err
	}

	tokens := s.table()
	var row Row
	err := s.pool.QueryRow(ctx, `
		SELECT token_hash, user_id, created_at, expires_at, revoked
		FROM `+tokens+`
		WHERE token_hash = $1
	`, tokenHash).Scan(
		&row.TokenHash,
		&row.UserID,
		&row.CreatedAt,
		&row.ExpiresAt,
		&row.Revoked,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Row{}, ErrRecordNotFound
	}
	if err != nil {
		return Row{}, err
	}
	return row, nil
}

// Revoke flips the revoked flag if it was clear and reports whether this call
// won the swap. Losing callers see won=false whether the record was consumed
// by a concurrent rotation or never existed.
func (s *PostgresStore) Revoke(ctx context.Context, tokenHash string, now time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	tokens := s.table()
	tag, err := s.pool.Exec(ctx, `
		UPDATE `+tokens+`
		SET revoked = TRUE, revoked_at = $2
		WHERE token_hash = $1 AND NOT revoked
	`, tokenHash, now)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// RevokeAllForUser revokes every record owned by userID (idempotent).
func (s *PostgresStore) RevokeAllForUser(ctx context.Context, userID string, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tokens := s.table()
	_, err := s.pool.Exec(ctx, `
		UPDATE `+tokens+`
		SET revoked = TRUE, revoked_at = COALESCE(revoked_at, $2)
		WHERE user_id = $1 AND NOT revoked
	`, userID, now)
	return err
}

// PurgeExpired deletes records whose expiry has passed, regardless of the
// revoked flag.
func (s *PostgresStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	tokens := s.table()
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM `+tokens+`
		WHERE expires_at < $1
	`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) table() string {
	return pgx.Identifier{s.schema, "refresh_tokens"}.Sanitize()
}
