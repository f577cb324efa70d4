package sqlite

import (
	"database/sql"
	"fmt"
)

// Schema DDL. Every statement is idempotent so Attach can run it against an
// existing store.
const (
	createAccounts = `CREATE TABLE IF NOT EXISTS accounts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE,
    token TEXT NOT NULL,
    base_url TEXT NOT NULL,
    model TEXT NOT NULL DEFAULT '',
    is_active INTEGER NOT NULL DEFAULT 0,
    custom_env_vars TEXT NOT NULL DEFAULT '{}',
    created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

	createDirectories = `CREATE TABLE IF NOT EXISTS directories (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL,
    is_active INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

	createBaseURLs = `CREATE TABLE IF NOT EXISTS base_urls (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE,
    url TEXT NOT NULL UNIQUE,
    description TEXT NOT NULL DEFAULT '',
    api_key TEXT NOT NULL DEFAULT 'ANTHROPIC_API_KEY',
    is_default INTEGER NOT NULL DEFAULT 0,
    default_env_vars TEXT NOT NULL DEFAULT '{}',
    created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

	createAccountDirectories = `CREATE TABLE IF NOT EXISTS account_directories (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    account_id INTEGER NOT NULL,
    directory_id INTEGER NOT NULL,
    created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (account_id, directory_id),
    FOREIGN KEY (account_id) REFERENCES accounts(id) ON DELETE CASCADE,
    FOREIGN KEY (directory_id) REFERENCES directories(id) ON DELETE CASCADE
);`

	createClaudeSettings = `CREATE TABLE IF NOT EXISTS claude_settings (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    settings_json TEXT NOT NULL,
    created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

	createWebDAVConfigs = `CREATE TABLE IF NOT EXISTS webdav_configs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE,
    url TEXT NOT NULL,
    username TEXT NOT NULL DEFAULT '',
    password TEXT NOT NULL DEFAULT '',
    remote_path TEXT NOT NULL DEFAULT '/claude-config',
    auto_sync INTEGER NOT NULL DEFAULT 0,
    sync_interval INTEGER NOT NULL DEFAULT 3600,
    is_active INTEGER NOT NULL DEFAULT 0,
    last_sync_at TEXT,
    created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

	createSyncLogs = `CREATE TABLE IF NOT EXISTS sync_logs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    webdav_config_id INTEGER NOT NULL,
    sync_type TEXT NOT NULL CHECK (sync_type IN ('upload', 'download', 'auto')),
    status TEXT NOT NULL CHECK (status IN ('success', 'failed', 'pending')),
    message TEXT NOT NULL DEFAULT '',
    run_id TEXT NOT NULL DEFAULT '',
    synced_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (webdav_config_id) REFERENCES webdav_configs(id) ON DELETE CASCADE
);`
)

// Indexes for the lookups the integrity rules run on every cascade.
const (
	indexAccountsBaseURL     = "CREATE INDEX IF NOT EXISTS idx_accounts_base_url ON accounts(base_url)"
	indexAccountDirsAccount  = "CREATE INDEX IF NOT EXISTS idx_account_directories_account ON account_directories(account_id)"
	indexAccountDirsDir      = "CREATE INDEX IF NOT EXISTS idx_account_directories_directory ON account_directories(directory_id)"
	indexSyncLogsProfileTime = "CREATE INDEX IF NOT EXISTS idx_sync_logs_config ON sync_logs(webdav_config_id, synced_at)"
)

var schemaStatements = []string{
	createAccounts,
	createDirectories,
	createBaseURLs,
	createAccountDirectories,
	createClaudeSettings,
	createWebDAVConfigs,
	createSyncLogs,
	indexAccountsBaseURL,
	indexAccountDirsAccount,
	indexAccountDirsDir,
	indexSyncLogsProfileTime,
}

// createSchema runs every DDL statement in order.
func createSchema(db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	return nil
}
