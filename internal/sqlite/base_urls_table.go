package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/ccmanager/pkg/types"
)

const baseURLColumns = "id, name, url, COALESCE(description, ''), COALESCE(api_key, '" + types.DefaultAPIKeyName + "'), " +
	"is_default, COALESCE(default_env_vars, '{}'), created_at, updated_at"

func scanBaseURL(row rowScanner) (*types.BaseURL, error) {
	var (
		u                types.BaseURL
		env              string
		created, updated string
	)
	if err := row.Scan(&u.ID, &u.Name, &u.URL, &u.Description, &u.APIKey, &u.IsDefault, &env, &created, &updated); err != nil {
		return nil, err
	}
	vars, err := decodeEnv(env)
	if err != nil {
		return nil, fmt.Errorf("base url %d: %w", u.ID, err)
	}
	u.DefaultEnvVars = vars
	if u.CreatedAt, err = parseTimestamp(created); err != nil {
		return nil, err
	}
	if u.UpdatedAt, err = parseTimestamp(updated); err != nil {
		return nil, err
	}
	return &u, nil
}

func getBaseURL(q querier, id int64) (*types.BaseURL, error) {
	u, err := scanBaseURL(q.QueryRow("SELECT "+baseURLColumns+" FROM base_urls WHERE id = ?", id))
	if err != nil {
		return nil, storeErr(fmt.Sprintf("get base url %d", id), err)
	}
	return u, nil
}

// CreateBaseURL inserts a base URL. A default base URL clears the flag on
// every other row in the same transaction.
func (b *Backend) CreateBaseURL(n types.NewBaseURL) (*types.BaseURL, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}
	op := "create base url " + n.Name

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkAttached(op); err != nil {
		return nil, err
	}

	env, err := encodeEnv(n.DefaultEnvVars)
	if err != nil {
		return nil, types.E(types.KindValidation, op, err)
	}
	apiKey := strings.TrimSpace(n.APIKey)
	if apiKey == "" {
		apiKey = types.DefaultAPIKeyName
	}

	var created *types.BaseURL
	err = b.withTx(op, func(tx *sql.Tx) error {
		if n.IsDefault {
			if _, err := tx.Exec("UPDATE base_urls SET is_default = 0"); err != nil {
				return storeErr(op, err)
			}
		}

		now := b.timestamp()
		res, err := tx.Exec(
			`INSERT INTO base_urls (name, url, description, api_key, is_default, default_env_vars, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			strings.TrimSpace(n.Name), strings.TrimSpace(n.URL), n.Description, apiKey, n.IsDefault, env, now, now,
		)
		if err != nil {
			return storeErr(op, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return storeErr(op, err)
		}
		created, err = getBaseURL(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GetBaseURL returns the base URL with the given id.
func (b *Backend) GetBaseURL(id int64) (*types.BaseURL, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.checkAttached("get base url"); err != nil {
		return nil, err
	}
	return getBaseURL(b.db, id)
}

// GetBaseURLByURL returns the base URL whose url equals url.
func (b *Backend) GetBaseURLByURL(url string) (*types.BaseURL, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.checkAttached("get base url"); err != nil {
		return nil, err
	}

	u, err := scanBaseURL(b.db.QueryRow("SELECT "+baseURLColumns+" FROM base_urls WHERE url = ?", url))
	if err != nil {
		return nil, storeErr("get base url "+url, err)
	}
	return u, nil
}

// ListBaseURLs returns every base URL, the default first.
func (b *Backend) ListBaseURLs() ([]types.BaseURL, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.checkAttached("list base urls"); err != nil {
		return nil, err
	}

	rows, err := b.db.Query("SELECT " + baseURLColumns + " FROM base_urls ORDER BY is_default DESC, created_at ASC, id ASC")
	if err != nil {
		return nil, storeErr("list base urls", err)
	}
	defer rows.Close()

	var out []types.BaseURL
	for rows.Next() {
		u, err := scanBaseURL(rows)
		if err != nil {
			return nil, storeErr("list base urls", err)
		}
		out = append(out, *u)
	}
	return out, storeErr("list base urls", rows.Err())
}

// UpdateBaseURL applies a partial update. When the url changes, every
// account holding the old url is rewritten to the new one before commit.
func (b *Backend) UpdateBaseURL(id int64, u types.BaseURLUpdate) (*types.BaseURL, error) {
	op := fmt.Sprintf("update base url %d", id)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkAttached(op); err != nil {
		return nil, err
	}

	var (
		updated   *types.BaseURL
		oldURL    string
		rewritten int64
	)
	err := b.withTx(op, func(tx *sql.Tx) error {
		cur, err := getBaseURL(tx, id)
		if err != nil {
			return err
		}
		oldURL = cur.URL

		if u.Name != nil {
			if strings.TrimSpace(*u.Name) == "" {
				return types.E(types.KindValidation, op, types.ErrInvalidName)
			}
			cur.Name = strings.TrimSpace(*u.Name)
		}
		if u.URL != nil {
			if strings.TrimSpace(*u.URL) == "" {
				return types.E(types.KindValidation, op, types.ErrInvalidURL)
			}
			cur.URL = strings.TrimSpace(*u.URL)
		}
		if u.Description != nil {
			cur.Description = *u.Description
		}
		if u.APIKey != nil {
			cur.APIKey = strings.TrimSpace(*u.APIKey)
			if cur.APIKey == "" {
				cur.APIKey = types.DefaultAPIKeyName
			}
		}
		if u.IsDefault != nil {
			cur.IsDefault = *u.IsDefault
		}
		env, err := encodeEnv(u.DefaultEnvVars.Apply(cur.DefaultEnvVars))
		if err != nil {
			return types.E(types.KindValidation, op, err)
		}

		if cur.IsDefault {
			if _, err := tx.Exec("UPDATE base_urls SET is_default = 0 WHERE id != ?", id); err != nil {
				return storeErr(op, err)
			}
		}

		now := b.timestamp()
		_, err = tx.Exec(
			`UPDATE base_urls SET name = ?, url = ?, description = ?, api_key = ?, is_default = ?, default_env_vars = ?, updated_at = ?
			 WHERE id = ?`,
			cur.Name, cur.URL, cur.Description, cur.APIKey, cur.IsDefault, env, now, id,
		)
		if err != nil {
			return storeErr(op, err)
		}

		if cur.URL != oldURL {
			res, err := tx.Exec(
				"UPDATE accounts SET base_url = ?, updated_at = ? WHERE base_url = ?",
				cur.URL, now, oldURL,
			)
			if err != nil {
				return storeErr(op, fmt.Errorf("rewriting accounts: %w", err))
			}
			if rewritten, err = res.RowsAffected(); err != nil {
				return storeErr(op, err)
			}
		}

		updated, err = getBaseURL(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	if updated.URL != oldURL {
		b.log.Info().
			Int64("base_url_id", id).
			Str("old_url", oldURL).
			Str("new_url", updated.URL).
			Int64("accounts", rewritten).
			Msg("rewrote account base urls")
	}
	return updated, nil
}

// DeleteBaseURL deletes the row, every account whose base_url equals its
// url, and their associations. Nothing is deleted unless all of it is.
func (b *Backend) DeleteBaseURL(id int64) (int, error) {
	op := fmt.Sprintf("delete base url %d", id)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkAttached(op); err != nil {
		return 0, err
	}

	var (
		url     string
		removed int
	)
	err := b.withTx(op, func(tx *sql.Tx) error {
		if err := tx.QueryRow("SELECT url FROM base_urls WHERE id = ?", id).Scan(&url); err != nil {
			return storeErr(op, err)
		}

		rows, err := tx.Query("SELECT id FROM accounts WHERE base_url = ?", url)
		if err != nil {
			return storeErr(op, err)
		}
		var ids []int64
		for rows.Next() {
			var accountID int64
			if err := rows.Scan(&accountID); err != nil {
				rows.Close()
				return storeErr(op, err)
			}
			ids = append(ids, accountID)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return storeErr(op, err)
		}

		for _, accountID := range ids {
			if err := deleteAccountTx(tx, op, accountID); err != nil {
				return err
			}
		}
		removed = len(ids)

		res, err := tx.Exec("DELETE FROM base_urls WHERE id = ?", id)
		if err != nil {
			return storeErr(op, err)
		}
		return expectOne(op, res)
	})
	if err != nil {
		return 0, err
	}

	b.log.Info().Int64("base_url_id", id).Str("url", url).Int("accounts", removed).Msg("deleted base url")
	return removed, nil
}
