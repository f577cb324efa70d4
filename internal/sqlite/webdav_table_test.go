package sqlite

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/ccmanager/pkg/types"
)

func mustProfile(t *testing.T, b *Backend, name string) *types.WebDAVProfile {
	t.Helper()
	p, err := b.CreateWebDAVProfile(types.NewWebDAVProfile{Name: name, URL: "https://dav.example.com", Username: "u", Password: "p"})
	require.NoError(t, err)
	return p
}

func TestCreateWebDAVProfileDefaults(t *testing.T) {
	b := setupBackend(t)
	p := mustProfile(t, b, "nas")

	assert.Equal(t, types.DefaultRemotePath, p.RemotePath)
	assert.Equal(t, types.DefaultSyncInterval, p.SyncInterval)
	assert.False(t, p.AutoSync)
	assert.False(t, p.IsActive)
	assert.Nil(t, p.LastSyncAt)

	_, err := b.CreateWebDAVProfile(types.NewWebDAVProfile{Name: "nas", URL: "https://other"})
	assert.ErrorIs(t, err, types.ErrDuplicate)
}

func TestUpdateWebDAVProfileSingleActive(t *testing.T) {
	b := setupBackend(t)
	p1 := mustProfile(t, b, "one")
	p2 := mustProfile(t, b, "two")

	_, err := b.UpdateWebDAVProfile(p1.ID, types.WebDAVProfileUpdate{IsActive: ptr(true)})
	require.NoError(t, err)
	got, err := b.UpdateWebDAVProfile(p2.ID, types.WebDAVProfileUpdate{IsActive: ptr(true), RemotePath: ptr("/backups")})
	require.NoError(t, err)
	assert.Equal(t, "/backups", got.RemotePath)

	one, err := b.GetWebDAVProfile(p1.ID)
	require.NoError(t, err)
	assert.False(t, one.IsActive)
	assert.True(t, got.IsActive)

	got, err = b.UpdateWebDAVProfile(p2.ID, types.WebDAVProfileUpdate{SyncInterval: ptr(0), AutoSync: ptr(true)})
	require.NoError(t, err)
	assert.Equal(t, types.DefaultSyncInterval, got.SyncInterval, "non-positive interval is ignored")
	assert.True(t, got.AutoSync)
}

func TestTouchLastSync(t *testing.T) {
	fixed := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	b := NewBackend(WithClock(func() time.Time { return fixed }))
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}))
	t.Cleanup(func() { b.Detach() })

	p := mustProfile(t, b, "nas")
	require.NoError(t, b.TouchLastSync(p.ID))

	got, err := b.GetWebDAVProfile(p.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastSyncAt)
	assert.True(t, fixed.Equal(*got.LastSyncAt))

	assert.ErrorIs(t, b.TouchLastSync(999), types.ErrNotFound)
}

func TestSyncLogs(t *testing.T) {
	b := setupBackend(t)
	p1 := mustProfile(t, b, "one")
	p2 := mustProfile(t, b, "two")

	e, err := b.AppendSyncLog(types.SyncLogEntry{ProfileID: p1.ID, Direction: types.SyncUpload, Status: types.SyncSuccess, Message: "ok"})
	require.NoError(t, err)
	assert.NotEmpty(t, e.RunID)
	assert.Equal(t, "ok", e.Message)

	_, err = b.AppendSyncLog(types.SyncLogEntry{ProfileID: p1.ID, Direction: types.SyncDownload, Status: types.SyncFailed, RunID: "run-2"})
	require.NoError(t, err)
	_, err = b.AppendSyncLog(types.SyncLogEntry{ProfileID: p2.ID, Direction: types.SyncAuto, Status: types.SyncSuccess})
	require.NoError(t, err)

	all, err := b.ListSyncLogs(0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	mine, err := b.ListSyncLogs(p1.ID, 0)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "run-2", mine[0].RunID, "newest first")

	limited, err := b.ListSyncLogs(0, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	t.Run("rejects unknown direction", func(t *testing.T) {
		_, err := b.AppendSyncLog(types.SyncLogEntry{ProfileID: p1.ID, Direction: "sideways", Status: types.SyncSuccess})
		assert.True(t, types.IsKind(err, types.KindValidation))
	})

	t.Run("rejects unknown profile", func(t *testing.T) {
		_, err := b.AppendSyncLog(types.SyncLogEntry{ProfileID: 999, Direction: types.SyncUpload, Status: types.SyncSuccess})
		assert.ErrorIs(t, err, types.ErrNotFound)
	})

	t.Run("profile delete drops its log", func(t *testing.T) {
		require.NoError(t, b.DeleteWebDAVProfile(p1.ID))
		rest, err := b.ListSyncLogs(0, 0)
		require.NoError(t, err)
		assert.Len(t, rest, 1)
	})
}
