package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/mesh-intelligence/ccmanager/pkg/types"
)

// Default endpoint seeded into an empty base_urls table.
const (
	seedBaseURLName        = "Anthropic Official"
	seedBaseURLURL         = "https://api.anthropic.com"
	seedBaseURLDescription = "Anthropic official API endpoint"
)

// seedDefaultBaseURL inserts the official endpoint as the default when no
// base URL exists. It runs on every attach, so a store whose base URLs were
// all deleted is seeded again on the next attach.
func seedDefaultBaseURL(db *sql.DB, now string) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM base_urls").Scan(&count); err != nil {
		return fmt.Errorf("counting base urls: %w", err)
	}
	if count > 0 {
		return nil
	}

	_, err := db.Exec(
		`INSERT INTO base_urls (name, url, description, api_key, is_default, default_env_vars, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 1, '{}', ?, ?)`,
		seedBaseURLName, seedBaseURLURL, seedBaseURLDescription, types.DefaultAPIKeyName, now, now,
	)
	if err != nil {
		return fmt.Errorf("seeding default base url: %w", err)
	}
	return nil
}
