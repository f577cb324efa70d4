package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/ccmanager/pkg/types"
)

const directoryColumns = "id, path, name, is_active, created_at, updated_at"

func scanDirectory(row rowScanner) (*types.Directory, error) {
	var (
		d                types.Directory
		created, updated string
		err              error
	)
	if err = row.Scan(&d.ID, &d.Path, &d.Name, &d.IsActive, &created, &updated); err != nil {
		return nil, err
	}
	if d.CreatedAt, err = parseTimestamp(created); err != nil {
		return nil, err
	}
	if d.UpdatedAt, err = parseTimestamp(updated); err != nil {
		return nil, err
	}
	return &d, nil
}

func getDirectory(q querier, id int64) (*types.Directory, error) {
	d, err := scanDirectory(q.QueryRow("SELECT "+directoryColumns+" FROM directories WHERE id = ?", id))
	if err != nil {
		return nil, storeErr(fmt.Sprintf("get directory %d", id), err)
	}
	return d, nil
}

// CreateDirectory inserts a new inactive directory.
func (b *Backend) CreateDirectory(n types.NewDirectory) (*types.Directory, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkAttached("create directory"); err != nil {
		return nil, err
	}

	now := b.timestamp()
	res, err := b.db.Exec(
		"INSERT INTO directories (path, name, is_active, created_at, updated_at) VALUES (?, ?, 0, ?, ?)",
		strings.TrimSpace(n.Path), strings.TrimSpace(n.Name), now, now,
	)
	if err != nil {
		return nil, storeErr("create directory "+n.Path, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, storeErr("create directory "+n.Path, err)
	}
	return getDirectory(b.db, id)
}

// GetDirectory returns the directory with the given id.
func (b *Backend) GetDirectory(id int64) (*types.Directory, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.checkAttached("get directory"); err != nil {
		return nil, err
	}
	return getDirectory(b.db, id)
}

// ListDirectories returns every directory, newest first.
func (b *Backend) ListDirectories() ([]types.Directory, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.checkAttached("list directories"); err != nil {
		return nil, err
	}

	rows, err := b.db.Query("SELECT " + directoryColumns + " FROM directories ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, storeErr("list directories", err)
	}
	defer rows.Close()

	var out []types.Directory
	for rows.Next() {
		d, err := scanDirectory(rows)
		if err != nil {
			return nil, storeErr("list directories", err)
		}
		out = append(out, *d)
	}
	return out, storeErr("list directories", rows.Err())
}

// UpdateDirectory applies a partial update.
func (b *Backend) UpdateDirectory(id int64, u types.DirectoryUpdate) (*types.Directory, error) {
	op := fmt.Sprintf("update directory %d", id)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkAttached(op); err != nil {
		return nil, err
	}

	var updated *types.Directory
	err := b.withTx(op, func(tx *sql.Tx) error {
		d, err := getDirectory(tx, id)
		if err != nil {
			return err
		}
		if u.Path != nil {
			if strings.TrimSpace(*u.Path) == "" {
				return types.E(types.KindValidation, op, types.ErrInvalidPath)
			}
			d.Path = strings.TrimSpace(*u.Path)
		}
		if u.Name != nil {
			if strings.TrimSpace(*u.Name) == "" {
				return types.E(types.KindValidation, op, types.ErrInvalidName)
			}
			d.Name = strings.TrimSpace(*u.Name)
		}

		_, err = tx.Exec(
			"UPDATE directories SET path = ?, name = ?, updated_at = ? WHERE id = ?",
			d.Path, d.Name, b.timestamp(), id,
		)
		if err != nil {
			return storeErr(op, err)
		}
		updated, err = getDirectory(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteDirectory removes the directory and every association referencing it.
func (b *Backend) DeleteDirectory(id int64) error {
	op := fmt.Sprintf("delete directory %d", id)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkAttached(op); err != nil {
		return err
	}

	return b.withTx(op, func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM account_directories WHERE directory_id = ?", id); err != nil {
			return storeErr(op, err)
		}
		res, err := tx.Exec("DELETE FROM directories WHERE id = ?", id)
		if err != nil {
			return storeErr(op, err)
		}
		return expectOne(op, res)
	})
}
