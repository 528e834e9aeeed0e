// Package keystoretest holds behaviour tests shared by every keystore.Store implementation.
package keystoretest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperbuds/hyperbuds-client/internal/keystore"
	"github.com/hyperbuds/hyperbuds-client/internal/serviceerr"
)

// Run exercises the keystore.Store contract against stores created by newStore.
func Run(t *testing.T, newStore func(t *testing.T) keystore.Store) {
	t.Helper()

	t.Run("Set then Get returns the same value", func(t *testing.T) {
		s := newStore(t)

		require.NoError(t, s.Set(t.Context(), "auth.accessToken", "A1"))

		got, err := s.Get(t.Context(), "auth.accessToken")
		require.NoError(t, err)
		assert.Equal(t, "A1", got)
	})

	t.Run("Set overwrites", func(t *testing.T) {
		s := newStore(t)

		require.NoError(t, s.Set(t.Context(), "user.displayName", "Ada"))
		require.NoError(t, s.Set(t.Context(), "user.displayName", "Ada L."))

		got, err := s.Get(t.Context(), "user.displayName")
		require.NoError(t, err)
		assert.Equal(t, "Ada L.", got)
	})

	t.Run("Empty value is stored", func(t *testing.T) {
		s := newStore(t)

		require.NoError(t, s.Set(t.Context(), "prefs.theme", ""))

		got, err := s.Get(t.Context(), "prefs.theme")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("Get missing key returns ErrNotFound", func(t *testing.T) {
		s := newStore(t)

		_, err := s.Get(t.Context(), "does-not-exist")
		assert.ErrorIs(t, err, serviceerr.ErrNotFound)
	})

	t.Run("Delete removes keys and tolerates missing ones", func(t *testing.T) {
		s := newStore(t)

		require.NoError(t, s.Set(t.Context(), "auth.accessToken", "A1"))
		require.NoError(t, s.Set(t.Context(), "auth.refreshToken", "R1"))

		require.NoError(t, s.Delete(t.Context(), "auth.accessToken", "auth.refreshToken", "auth.issuedAt"))

		_, err := s.Get(t.Context(), "auth.accessToken")
		assert.ErrorIs(t, err, serviceerr.ErrNotFound)
		_, err = s.Get(t.Context(), "auth.refreshToken")
		assert.ErrorIs(t, err, serviceerr.ErrNotFound)
	})

	t.Run("Delete without keys is a no-op", func(t *testing.T) {
		s := newStore(t)

		assert.NoError(t, s.Delete(t.Context()))
	})
}
