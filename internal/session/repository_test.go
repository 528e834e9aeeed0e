package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	keystoremem "github.com/hyperbuds/hyperbuds-client/internal/keystore/memory"
	"github.com/hyperbuds/hyperbuds-client/internal/serviceerr"
	"github.com/hyperbuds/hyperbuds-client/internal/session"
)

func TestStoreRepository_StoreLoad(t *testing.T) {
	store := keystoremem.NewStore()
	r := session.NewRepository(store)

	issuedAt := time.Date(2026, 10, 17, 9, 30, 0, 123, time.UTC)
	want := session.Session{AccessToken: "A1", RefreshToken: "R1", IssuedAt: issuedAt}

	require.NoError(t, r.Store(t.Context(), want))

	got, err := r.Load(t.Context())
	require.NoError(t, err)
	assert.Equal(t, want.AccessToken, got.AccessToken)
	assert.Equal(t, want.RefreshToken, got.RefreshToken)
	assert.True(t, issuedAt.Equal(got.IssuedAt))

	// canonical schema
	v, err := store.Get(t.Context(), session.KeyAccessToken)
	require.NoError(t, err)
	assert.Equal(t, "A1", v)
	v, err = store.Get(t.Context(), session.KeyRefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "R1", v)
}

func TestStoreRepository_LoadEmpty(t *testing.T) {
	r := session.NewRepository(keystoremem.NewStore())

	got, err := r.Load(t.Context())
	require.NoError(t, err)
	assert.False(t, got.SignedIn())
}

func TestStoreRepository_MalformedIssuedAt(t *testing.T) {
	store := keystoremem.NewStore()
	require.NoError(t, store.Set(t.Context(), session.KeyAccessToken, "A1"))
	require.NoError(t, store.Set(t.Context(), session.KeyIssuedAt, "yesterday"))

	got, err := session.NewRepository(store).Load(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "A1", got.AccessToken)
	assert.True(t, got.IssuedAt.IsZero())
}

func TestStoreRepository_MigratesLegacyKeys(t *testing.T) {
	store := keystoremem.NewStore()
	require.NoError(t, store.Set(t.Context(), "accessToken", "legacy-access"))
	require.NoError(t, store.Set(t.Context(), "refreshToken", "legacy-refresh"))
	require.NoError(t, store.Set(t.Context(), "user", `{"id":"u1"}`))

	r := session.NewRepository(store)

	got, err := r.Load(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "legacy-access", got.AccessToken)
	assert.Equal(t, "legacy-refresh", got.RefreshToken)

	v, err := store.Get(t.Context(), session.KeyAccessToken)
	require.NoError(t, err)
	assert.Equal(t, "legacy-access", v)

	_, err = store.Get(t.Context(), "accessToken")
	assert.ErrorIs(t, err, serviceerr.ErrNotFound)
	_, err = store.Get(t.Context(), "refreshToken")
	assert.ErrorIs(t, err, serviceerr.ErrNotFound)
	_, err = store.Get(t.Context(), "user")
	assert.ErrorIs(t, err, serviceerr.ErrNotFound)
}

func TestStoreRepository_Delete(t *testing.T) {
	store := keystoremem.NewStore()
	r := session.NewRepository(store)
	require.NoError(t, r.Store(t.Context(), session.Session{AccessToken: "A1", RefreshToken: "R1"}))
	require.NoError(t, store.Set(t.Context(), "accessToken", "legacy"))

	require.NoError(t, r.Delete(t.Context()))

	got, err := r.Load(t.Context())
	require.NoError(t, err)
	assert.False(t, got.SignedIn())
}

type failingStore struct {
	*keystoremem.Store
	err error
}

func (s failingStore) Get(_ context.Context, _ string) (string, error) {
	return "", s.err
}

func TestStoreRepository_LoadError(t *testing.T) {
	boom := errors.New("disk on fire")
	r := session.NewRepository(failingStore{Store: keystoremem.NewStore(), err: boom})

	_, err := r.Load(t.Context())
	assert.ErrorIs(t, err, boom)
}
