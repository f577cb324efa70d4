package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/ccmanager/pkg/types"
)

const webdavColumns = "id, name, url, username, password, remote_path, auto_sync, sync_interval, is_active, last_sync_at, created_at, updated_at"

func scanWebDAVProfile(row rowScanner) (*types.WebDAVProfile, error) {
	var (
		p                types.WebDAVProfile
		lastSync         sql.NullString
		created, updated string
		err              error
	)
	if err = row.Scan(&p.ID, &p.Name, &p.URL, &p.Username, &p.Password, &p.RemotePath,
		&p.AutoSync, &p.SyncInterval, &p.IsActive, &lastSync, &created, &updated); err != nil {
		return nil, err
	}
	if lastSync.Valid && lastSync.String != "" {
		t, err := parseTimestamp(lastSync.String)
		if err != nil {
			return nil, err
		}
		p.LastSyncAt = &t
	}
	if p.CreatedAt, err = parseTimestamp(created); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTimestamp(updated); err != nil {
		return nil, err
	}
	return &p, nil
}

func getWebDAVProfile(q querier, id int64) (*types.WebDAVProfile, error) {
	p, err := scanWebDAVProfile(q.QueryRow("SELECT "+webdavColumns+" FROM webdav_configs WHERE id = ?", id))
	if err != nil {
		return nil, storeErr(fmt.Sprintf("get webdav profile %d", id), err)
	}
	return p, nil
}

// CreateWebDAVProfile inserts an inactive profile with defaults applied.
func (b *Backend) CreateWebDAVProfile(n types.NewWebDAVProfile) (*types.WebDAVProfile, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}
	op := "create webdav profile " + n.Name

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkAttached(op); err != nil {
		return nil, err
	}

	remotePath := n.RemotePath
	if strings.TrimSpace(remotePath) == "" {
		remotePath = types.DefaultRemotePath
	}
	interval := n.SyncInterval
	if interval <= 0 {
		interval = types.DefaultSyncInterval
	}

	now := b.timestamp()
	res, err := b.db.Exec(
		`INSERT INTO webdav_configs (name, url, username, password, remote_path, auto_sync, sync_interval, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		strings.TrimSpace(n.Name), strings.TrimSpace(n.URL), n.Username, n.Password, remotePath, n.AutoSync, interval, now, now,
	)
	if err != nil {
		return nil, storeErr(op, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, storeErr(op, err)
	}
	return getWebDAVProfile(b.db, id)
}

// GetWebDAVProfile returns the profile with the given id.
func (b *Backend) GetWebDAVProfile(id int64) (*types.WebDAVProfile, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.checkAttached("get webdav profile"); err != nil {
		return nil, err
	}
	return getWebDAVProfile(b.db, id)
}

// ListWebDAVProfiles returns every profile, newest first.
func (b *Backend) ListWebDAVProfiles() ([]types.WebDAVProfile, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.checkAttached("list webdav profiles"); err != nil {
		return nil, err
	}

	rows, err := b.db.Query("SELECT " + webdavColumns + " FROM webdav_configs ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, storeErr("list webdav profiles", err)
	}
	defer rows.Close()

	var out []types.WebDAVProfile
	for rows.Next() {
		p, err := scanWebDAVProfile(rows)
		if err != nil {
			return nil, storeErr("list webdav profiles", err)
		}
		out = append(out, *p)
	}
	return out, storeErr("list webdav profiles", rows.Err())
}

// UpdateWebDAVProfile applies a partial update. Activating a profile
// deactivates all others.
func (b *Backend) UpdateWebDAVProfile(id int64, u types.WebDAVProfileUpdate) (*types.WebDAVProfile, error) {
	op := fmt.Sprintf("update webdav profile %d", id)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkAttached(op); err != nil {
		return nil, err
	}

	var updated *types.WebDAVProfile
	err := b.withTx(op, func(tx *sql.Tx) error {
		p, err := getWebDAVProfile(tx, id)
		if err != nil {
			return err
		}

		if u.Name != nil {
			if strings.TrimSpace(*u.Name) == "" {
				return types.E(types.KindValidation, op, types.ErrInvalidName)
			}
			p.Name = strings.TrimSpace(*u.Name)
		}
		if u.URL != nil {
			if strings.TrimSpace(*u.URL) == "" {
				return types.E(types.KindValidation, op, types.ErrInvalidURL)
			}
			p.URL = strings.TrimSpace(*u.URL)
		}
		if u.Username != nil {
			p.Username = *u.Username
		}
		if u.Password != nil {
			p.Password = *u.Password
		}
		if u.RemotePath != nil {
			p.RemotePath = *u.RemotePath
			if strings.TrimSpace(p.RemotePath) == "" {
				p.RemotePath = types.DefaultRemotePath
			}
		}
		if u.AutoSync != nil {
			p.AutoSync = *u.AutoSync
		}
		if u.SyncInterval != nil && *u.SyncInterval > 0 {
			p.SyncInterval = *u.SyncInterval
		}
		if u.IsActive != nil {
			p.IsActive = *u.IsActive
		}

		if p.IsActive {
			if _, err := tx.Exec("UPDATE webdav_configs SET is_active = 0 WHERE id != ?", id); err != nil {
				return storeErr(op, err)
			}
		}

		_, err = tx.Exec(
			`UPDATE webdav_configs SET name = ?, url = ?, username = ?, password = ?, remote_path = ?,
			 auto_sync = ?, sync_interval = ?, is_active = ?, updated_at = ? WHERE id = ?`,
			p.Name, p.URL, p.Username, p.Password, p.RemotePath,
			p.AutoSync, p.SyncInterval, p.IsActive, b.timestamp(), id,
		)
		if err != nil {
			return storeErr(op, err)
		}
		updated, err = getWebDAVProfile(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteWebDAVProfile removes the profile and its sync log.
func (b *Backend) DeleteWebDAVProfile(id int64) error {
	op := fmt.Sprintf("delete webdav profile %d", id)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkAttached(op); err != nil {
		return err
	}

	return b.withTx(op, func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM sync_logs WHERE webdav_config_id = ?", id); err != nil {
			return storeErr(op, err)
		}
		res, err := tx.Exec("DELETE FROM webdav_configs WHERE id = ?", id)
		if err != nil {
			return storeErr(op, err)
		}
		return expectOne(op, res)
	})
}

// TouchLastSync sets last_sync_at to now.
func (b *Backend) TouchLastSync(id int64) error {
	op := fmt.Sprintf("touch webdav profile %d", id)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkAttached(op); err != nil {
		return err
	}

	now := b.timestamp()
	res, err := b.db.Exec("UPDATE webdav_configs SET last_sync_at = ?, updated_at = ? WHERE id = ?", now, now, id)
	if err != nil {
		return storeErr(op, err)
	}
	return expectOne(op, res)
}
