package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/ccmanager/pkg/types"
)

func TestNewStoreAttach(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(zerolog.Nop())
	require.NoError(t, store.Attach(types.Config{Backend: types.BackendSQLite, DataDir: dir}))
	defer store.Detach()

	assert.FileExists(t, filepath.Join(dir, types.DatabaseFileName))
	urls, err := store.ListBaseURLs()
	require.NoError(t, err)
	assert.Len(t, urls, 1)
}
