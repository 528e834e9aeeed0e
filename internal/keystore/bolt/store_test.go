package keystorebolt_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperbuds/hyperbuds-client/internal/keystore"
	keystorebolt "github.com/hyperbuds/hyperbuds-client/internal/keystore/bolt"
	"github.com/hyperbuds/hyperbuds-client/internal/keystore/keystoretest"
)

func TestStore(t *testing.T) {
	keystoretest.Run(t, func(t *testing.T) keystore.Store {
		t.Helper()
		s, err := keystorebolt.NewTempStore()
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "keystore.db")

	s, err := keystorebolt.NewStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(t.Context(), "auth.refreshToken", "R1"))
	require.NoError(t, s.Close())

	reopened, err := keystorebolt.NewStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(t.Context(), "auth.refreshToken")
	require.NoError(t, err)
	assert.Equal(t, "R1", got)
}

func TestNewStore_ExpandsEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HYPERBUDS_TEST_DIR", dir)

	s, err := keystorebolt.NewStore("$HYPERBUDS_TEST_DIR/keystore.db")
	require.NoError(t, err)
	defer s.Close()

	assert.FileExists(t, filepath.Join(dir, "keystore.db"))
}
