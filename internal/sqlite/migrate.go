package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
)

// columnMigration adds a column that older stores were created without.
type columnMigration struct {
	table  string
	column string
	ddl    string
}

// columnMigrations run in order on every attach. Each is skipped when the
// column already exists, so the list only ever grows.
var columnMigrations = []columnMigration{
	{"accounts", "model", "ALTER TABLE accounts ADD COLUMN model TEXT NOT NULL DEFAULT ''"},
	{"accounts", "custom_env_vars", "ALTER TABLE accounts ADD COLUMN custom_env_vars TEXT NOT NULL DEFAULT '{}'"},
	{"base_urls", "api_key", "ALTER TABLE base_urls ADD COLUMN api_key TEXT NOT NULL DEFAULT 'ANTHROPIC_API_KEY'"},
	{"base_urls", "default_env_vars", "ALTER TABLE base_urls ADD COLUMN default_env_vars TEXT NOT NULL DEFAULT '{}'"},
	{"sync_logs", "run_id", "ALTER TABLE sync_logs ADD COLUMN run_id TEXT NOT NULL DEFAULT ''"},
}

// migrate applies columnMigrations.
func migrate(db *sql.DB, log zerolog.Logger) error {
	for _, m := range columnMigrations {
		ok, err := tableHasColumn(db, m.table, m.column)
		if err != nil {
			return fmt.Errorf("migrating %s.%s: %w", m.table, m.column, err)
		}
		if ok {
			continue
		}
		if _, err := db.Exec(m.ddl); err != nil {
			return fmt.Errorf("migrating %s.%s: %w", m.table, m.column, err)
		}
		log.Info().Str("table", m.table).Str("column", m.column).Msg("added column")
	}
	return nil
}

// tableHasColumn reports whether table has a column named column.
func tableHasColumn(db *sql.DB, table, column string) (bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid       int
			name      string
			ctype     string
			notnull   int
			dfltValue any
			pk        int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
