package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/ccmanager/pkg/types"
)

func activeIDs(t *testing.T, b *Backend) (accounts, dirs []int64) {
	t.Helper()
	as, err := b.ListAccounts(types.AccountFilter{})
	require.NoError(t, err)
	for _, a := range as {
		if a.IsActive {
			accounts = append(accounts, a.ID)
		}
	}
	ds, err := b.ListDirectories()
	require.NoError(t, err)
	for _, d := range ds {
		if d.IsActive {
			dirs = append(dirs, d.ID)
		}
	}
	return accounts, dirs
}

func TestSwitchIsIdempotent(t *testing.T) {
	b := setupBackend(t)
	a := mustAccount(t, b, "work", "https://a")
	mustAccount(t, b, "home", "https://a")
	d := mustDirectory(t, b, "/tmp/proj")
	mustDirectory(t, b, "/tmp/other")

	for i := 0; i < 3; i++ {
		require.NoError(t, b.Switch(a.ID, d.ID))
	}

	assocs, err := b.ListAssociations()
	require.NoError(t, err)
	require.Len(t, assocs, 1)
	assert.Equal(t, "work", assocs[0].AccountName)
	assert.Equal(t, "/tmp/proj", assocs[0].DirectoryPath)

	accounts, dirs := activeIDs(t, b)
	assert.Equal(t, []int64{a.ID}, accounts)
	assert.Equal(t, []int64{d.ID}, dirs)
}

func TestSwitchMovesActivePair(t *testing.T) {
	b := setupBackend(t)
	a1 := mustAccount(t, b, "one", "https://a")
	a2 := mustAccount(t, b, "two", "https://a")
	d1 := mustDirectory(t, b, "/tmp/one")
	d2 := mustDirectory(t, b, "/tmp/two")

	require.NoError(t, b.Switch(a1.ID, d1.ID))
	require.NoError(t, b.Switch(a2.ID, d2.ID))

	accounts, dirs := activeIDs(t, b)
	assert.Equal(t, []int64{a2.ID}, accounts)
	assert.Equal(t, []int64{d2.ID}, dirs)

	assocs, err := b.ListAssociations()
	require.NoError(t, err)
	assert.Len(t, assocs, 2)
}

func TestSwitchNotFoundKeepsState(t *testing.T) {
	b := setupBackend(t)
	a := mustAccount(t, b, "work", "https://a")
	d := mustDirectory(t, b, "/tmp/proj")
	require.NoError(t, b.Switch(a.ID, d.ID))

	tests := []struct {
		name      string
		account   int64
		directory int64
	}{
		{"missing account", 999, d.ID},
		{"missing directory", a.ID, 999},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := b.Switch(tt.account, tt.directory)
			assert.ErrorIs(t, err, types.ErrNotFound)

			accounts, dirs := activeIDs(t, b)
			assert.Equal(t, []int64{a.ID}, accounts)
			assert.Equal(t, []int64{d.ID}, dirs)
		})
	}
}
