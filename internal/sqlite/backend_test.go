package sqlite

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/ccmanager/pkg/types"
)

// setupBackend attaches a Backend to a fresh temp directory and detaches it
// when the test ends.
func setupBackend(t *testing.T) *Backend {
	t.Helper()
	b := NewBackend()
	config := types.Config{
		Backend: types.BackendSQLite,
		DataDir: t.TempDir(),
	}
	require.NoError(t, b.Attach(config))
	t.Cleanup(func() { b.Detach() })
	return b
}

func TestBackend_Attach(t *testing.T) {
	tmpDir := t.TempDir()
	b := NewBackend()
	config := types.Config{Backend: types.BackendSQLite, DataDir: tmpDir}

	require.NoError(t, b.Attach(config))
	defer b.Detach()

	dbPath := filepath.Join(tmpDir, types.DatabaseFileName)
	_, err := os.Stat(dbPath)
	require.NoError(t, err, "claude_config.db should be created")
	assert.Equal(t, dbPath, b.Path())

	err = b.Attach(config)
	assert.ErrorIs(t, err, types.ErrAlreadyAttached)
}

func TestBackend_AttachInvalidConfig(t *testing.T) {
	b := NewBackend()
	err := b.Attach(types.Config{Backend: "postgres", DataDir: t.TempDir()})
	assert.ErrorIs(t, err, types.ErrBackendUnknown)
	assert.True(t, types.IsKind(err, types.KindConfiguration))
}

func TestBackend_Detach(t *testing.T) {
	b := NewBackend()
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}))

	require.NoError(t, b.Detach())
	require.NoError(t, b.Detach(), "Detach should be idempotent")

	_, err := b.ListAccounts(types.AccountFilter{})
	assert.ErrorIs(t, err, types.ErrStoreDetached)
	assert.Equal(t, "", b.Path())
}

func TestBackend_ReattachKeepsData(t *testing.T) {
	dir := t.TempDir()
	config := types.Config{Backend: types.BackendSQLite, DataDir: dir}

	b := NewBackend()
	require.NoError(t, b.Attach(config))
	_, err := b.CreateDirectory(types.NewDirectory{Path: "/tmp/keep", Name: "keep"})
	require.NoError(t, err)
	require.NoError(t, b.Detach())

	b2 := NewBackend()
	require.NoError(t, b2.Attach(config))
	defer b2.Detach()

	dirs, err := b2.ListDirectories()
	require.NoError(t, err)
	require.Len(t, dirs, 1)
	assert.Equal(t, "/tmp/keep", dirs[0].Path)

	urls, err := b2.ListBaseURLs()
	require.NoError(t, err)
	assert.Len(t, urls, 1, "seed should not run twice")
}

// legacySchema is a store written before model, custom_env_vars, api_key,
// default_env_vars, and run_id existed.
const legacySchema = `
CREATE TABLE accounts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE,
    token TEXT NOT NULL,
    base_url TEXT NOT NULL,
    is_active INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE base_urls (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE,
    url TEXT NOT NULL UNIQUE,
    description TEXT,
    is_default INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE sync_logs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    webdav_config_id INTEGER NOT NULL,
    sync_type TEXT NOT NULL,
    status TEXT NOT NULL,
    message TEXT,
    synced_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
INSERT INTO accounts (name, token, base_url) VALUES ('legacy', 'tok', 'https://old.example.com');
`

func TestBackend_MigratesLegacyStore(t *testing.T) {
	dir := t.TempDir()
	raw, err := sql.Open("sqlite", filepath.Join(dir, types.DatabaseFileName))
	require.NoError(t, err)
	_, err = raw.Exec(legacySchema)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	b := NewBackend()
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: dir}))
	defer b.Detach()

	for _, m := range columnMigrations {
		ok, err := tableHasColumn(b.db, m.table, m.column)
		require.NoError(t, err)
		assert.True(t, ok, "%s.%s should exist after migration", m.table, m.column)
	}

	accounts, err := b.ListAccounts(types.AccountFilter{})
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "legacy", accounts[0].Name)
	assert.Equal(t, "", accounts[0].Model)
	assert.Empty(t, accounts[0].CustomEnvVars)
	assert.False(t, accounts[0].CreatedAt.IsZero())

	urls, err := b.ListBaseURLs()
	require.NoError(t, err)
	require.Len(t, urls, 1)
	assert.Equal(t, types.DefaultAPIKeyName, urls[0].APIKey)
}

// nullableSchema mirrors stores whose optional text columns were declared
// without NOT NULL and hold NULLs.
const nullableSchema = `
CREATE TABLE accounts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE,
    token TEXT NOT NULL,
    base_url TEXT NOT NULL,
    model TEXT NOT NULL DEFAULT '',
    is_active BOOLEAN NOT NULL DEFAULT FALSE,
    custom_env_vars TEXT DEFAULT '{}',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE base_urls (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE,
    url TEXT NOT NULL UNIQUE,
    description TEXT,
    api_key TEXT NOT NULL DEFAULT 'ANTHROPIC_API_KEY',
    is_default BOOLEAN NOT NULL DEFAULT FALSE,
    default_env_vars TEXT DEFAULT '{}',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE webdav_configs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE,
    url TEXT NOT NULL,
    username TEXT NOT NULL,
    password TEXT NOT NULL,
    remote_path TEXT NOT NULL DEFAULT '/claude-config',
    auto_sync BOOLEAN NOT NULL DEFAULT FALSE,
    sync_interval INTEGER NOT NULL DEFAULT 3600,
    is_active BOOLEAN NOT NULL DEFAULT FALSE,
    last_sync_at DATETIME,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE sync_logs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    webdav_config_id INTEGER NOT NULL,
    sync_type TEXT NOT NULL,
    status TEXT NOT NULL,
    message TEXT,
    synced_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (webdav_config_id) REFERENCES webdav_configs (id) ON DELETE CASCADE
);
INSERT INTO base_urls (name, url, description, is_default, default_env_vars)
    VALUES ('Old', 'https://old.example.com', NULL, TRUE, NULL);
INSERT INTO accounts (name, token, base_url, custom_env_vars)
    VALUES ('old', 'tok', 'https://old.example.com', NULL);
INSERT INTO webdav_configs (name, url, username, password) VALUES ('nas', 'https://dav', 'u', 'p');
INSERT INTO sync_logs (webdav_config_id, sync_type, status, message) VALUES (1, 'upload', 'success', NULL);
`

func TestBackend_ReadsNullColumns(t *testing.T) {
	dir := t.TempDir()
	raw, err := sql.Open("sqlite", filepath.Join(dir, types.DatabaseFileName))
	require.NoError(t, err)
	_, err = raw.Exec(nullableSchema)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	b := NewBackend()
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: dir}))
	defer b.Detach()

	urls, err := b.ListBaseURLs()
	require.NoError(t, err)
	require.Len(t, urls, 1)
	assert.Equal(t, "", urls[0].Description)
	assert.Empty(t, urls[0].DefaultEnvVars)

	u, err := b.GetBaseURLByURL("https://old.example.com")
	require.NoError(t, err)
	assert.Equal(t, "Old", u.Name)

	accounts, err := b.ListAccounts(types.AccountFilter{})
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Empty(t, accounts[0].CustomEnvVars)

	logs, err := b.ListSyncLogs(0, 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "", logs[0].Message)
	assert.Equal(t, "", logs[0].RunID)

	d, err := b.CreateDirectory(types.NewDirectory{Path: "/tmp/old", Name: "old"})
	require.NoError(t, err)
	require.NoError(t, b.Switch(accounts[0].ID, d.ID))
}

func TestMigrateIsIdempotent(t *testing.T) {
	b := setupBackend(t)
	require.NoError(t, migrate(b.db, b.log))
	require.NoError(t, migrate(b.db, b.log))
}

func TestSeedDefaultBaseURL(t *testing.T) {
	b := setupBackend(t)

	urls, err := b.ListBaseURLs()
	require.NoError(t, err)
	require.Len(t, urls, 1)
	assert.Equal(t, seedBaseURLName, urls[0].Name)
	assert.Equal(t, seedBaseURLURL, urls[0].URL)
	assert.True(t, urls[0].IsDefault)

	require.NoError(t, seedDefaultBaseURL(b.db, b.timestamp()))
	urls, err = b.ListBaseURLs()
	require.NoError(t, err)
	assert.Len(t, urls, 1)
}

func TestEnvJSON(t *testing.T) {
	tests := []struct {
		name string
		text string
		want map[string]string
	}{
		{"empty text", "", map[string]string{}},
		{"json null", "null", map[string]string{}},
		{"empty object", "{}", map[string]string{}},
		{"values", `{"A":"1","B":"two"}`, map[string]string{"A": "1", "B": "two"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeEnv(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := decodeEnv("[1,2]")
	assert.Error(t, err)

	text, err := encodeEnv(nil)
	require.NoError(t, err)
	assert.Equal(t, "{}", text)
}

func TestParseTimestamp(t *testing.T) {
	got, err := parseTimestamp("2025-01-02T03:04:05Z")
	require.NoError(t, err)
	assert.Equal(t, 2025, got.Year())

	got, err = parseTimestamp("2025-01-02 03:04:05")
	require.NoError(t, err)
	assert.Equal(t, 3, got.Hour())

	got, err = parseTimestamp("")
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	_, err = parseTimestamp("yesterday")
	assert.Error(t, err)
}
