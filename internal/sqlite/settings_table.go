package sqlite

import (
	"database/sql"
	"encoding/json"

	"github.com/mesh-intelligence/ccmanager/pkg/types"
)

func scanSettings(row rowScanner) (*types.SettingsBlob, error) {
	var (
		s                types.SettingsBlob
		created, updated string
		err              error
	)
	if err = row.Scan(&s.ID, &s.JSON, &created, &updated); err != nil {
		return nil, err
	}
	if s.CreatedAt, err = parseTimestamp(created); err != nil {
		return nil, err
	}
	if s.UpdatedAt, err = parseTimestamp(updated); err != nil {
		return nil, err
	}
	return &s, nil
}

func getSettings(q querier) (*types.SettingsBlob, error) {
	s, err := scanSettings(q.QueryRow(
		"SELECT id, settings_json, created_at, updated_at FROM claude_settings ORDER BY id LIMIT 1",
	))
	if err != nil {
		return nil, storeErr("get settings", err)
	}
	return s, nil
}

// GetSettings returns the stored policy document, or ErrNotFound.
func (b *Backend) GetSettings() (*types.SettingsBlob, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.checkAttached("get settings"); err != nil {
		return nil, err
	}
	return getSettings(b.db)
}

// SaveSettings stores doc as the policy document, replacing the existing
// one. doc must be a JSON object.
func (b *Backend) SaveSettings(doc string) (*types.SettingsBlob, error) {
	var probe map[string]any
	if err := json.Unmarshal([]byte(doc), &probe); err != nil || probe == nil {
		return nil, types.E(types.KindValidation, "save settings", types.ErrInvalidDocument)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkAttached("save settings"); err != nil {
		return nil, err
	}

	var saved *types.SettingsBlob
	err := b.withTx("save settings", func(tx *sql.Tx) error {
		var id sql.NullInt64
		if err := tx.QueryRow("SELECT MIN(id) FROM claude_settings").Scan(&id); err != nil {
			return storeErr("save settings", err)
		}

		now := b.timestamp()
		var err error
		if id.Valid {
			_, err = tx.Exec("UPDATE claude_settings SET settings_json = ?, updated_at = ? WHERE id = ?", doc, now, id.Int64)
		} else {
			_, err = tx.Exec("INSERT INTO claude_settings (settings_json, created_at, updated_at) VALUES (?, ?, ?)", doc, now, now)
		}
		if err != nil {
			return storeErr("save settings", err)
		}

		saved, err = getSettings(tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}
