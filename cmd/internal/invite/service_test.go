package invite

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu      sync.Mutex
	byHash  map[string]*Invite
	lastRec CreateRecord
}

func newMemStore() *memStore {
	return &memStore{byHash: map[string]*Invite{}}
}

func (m *memStore) Create(_ context.Context, in CreateRecord) (Invite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv := Invite{
		ID:        in.ID,
		CreatedBy: in.CreatedBy,
		CreatedAt: in.CreatedAt,
		ExpiresAt: in.ExpiresAt,
		MaxUses:   in.MaxUses,
		UsedCount: in.UsedCount,
		Note:      in.Note,
	}
	m.byHash[in.TokenHash] = &inv
	m.lastRec = in
	return inv, nil
}

func (m *memStore) GetByTokenHash(_ context.Context, tokenHash string) (Invite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.byHash[tokenHash]
	if !ok {
		return Invite{}, ErrNotFound
	}
	return *inv, nil
}

func (m *memStore) Consume(_ context.Context, in ConsumeRecord) (Invite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.byHash[in.TokenHash]
	if !ok {
		return Invite{}, ErrNotFound
	}
	if inv.RevokedAt != nil || !inv.ExpiresAt.After(in.Now) || inv.UsedCount >= inv.MaxUses {
		return Invite{}, ErrNotActive
	}
	inv.UsedCount++
	inv.ConsumedAt = &in.Now
	inv.ConsumedBy = in.ConsumedBy
	return *inv, nil
}

func TestCreateInviteStoresOnlyHash(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	svc, err := NewService(store)
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	creator := "01ADMIN"
	inv, plain, err := svc.CreateInvite(context.Background(), CreateInput{
		CreatedBy: &creator,
		TTL:       24 * time.Hour,
		MaxUses:   1,
		Now:       now,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, inv.ID)
	assert.NotEmpty(t, plain)
	assert.NotEqual(t, plain, store.lastRec.TokenHash)
	assert.Equal(t, now.Add(24*time.Hour), inv.ExpiresAt)
	assert.Equal(t, 1, inv.MaxUses)
}

func TestValidateInviteLifecycle(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	svc, err := NewService(store)
	require.NoError(t, err)

	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	creator := "01ADMIN"
	_, plain, err := svc.CreateInvite(ctx, CreateInput{CreatedBy: &creator, TTL: time.Hour, MaxUses: 1, Now: now})
	require.NoError(t, err)

	ok, _, err := svc.ValidateInvite(ctx, plain, now.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, ok)

	// Unknown token is not an error, just invalid.
	ok, _, err = svc.ValidateInvite(ctx, "nope", now)
	require.NoError(t, err)
	assert.False(t, ok)

	// Expired.
	ok, _, err = svc.ValidateInvite(ctx, plain, now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.False(t, ok)

	// Consumed to exhaustion.
	member := "01MEMBER"
	_, err = svc.ConsumeInvite(ctx, ConsumeInput{Token: plain, ConsumedBy: &member, Now: now.Add(time.Minute)})
	require.NoError(t, err)

	ok, _, err = svc.ValidateInvite(ctx, plain, now.Add(2*time.Minute))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConsumeInviteSingleUse(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	svc, err := NewService(store)
	require.NoError(t, err)

	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	creator := "01ADMIN"
	_, plain, err := svc.CreateInvite(ctx, CreateInput{CreatedBy: &creator, TTL: time.Hour, MaxUses: 1, Now: now})
	require.NoError(t, err)

	member := "01MEMBER"
	inv, err := svc.ConsumeInvite(ctx, ConsumeInput{Token: plain, ConsumedBy: &member, Now: now.Add(time.Minute)})
	require.NoError(t, err)
	assert.Equal(t, 1, inv.UsedCount)
	require.NotNil(t, inv.ConsumedBy)
	assert.Equal(t, member, *inv.ConsumedBy)

	_, err = svc.ConsumeInvite(ctx, ConsumeInput{Token: plain, ConsumedBy: &member, Now: now.Add(2*time.Minute)})
	require.ErrorIs(t, err, ErrNotActive)

	_, err = svc.ConsumeInvite(ctx, ConsumeInput{Token: "garbage", ConsumedBy: &member, Now: now})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestConsumeInviteRejectsBlankActor(t *testing.T) {
	t.Parallel()

	svc, err := NewService(newMemStore())
	require.NoError(t, err)

	blank := "   "
	_, err = svc.ConsumeInvite(context.Background(), ConsumeInput{Token: "tok", ConsumedBy: &blank})
	require.ErrorIs(t, err, ErrInvalidInput)
}
