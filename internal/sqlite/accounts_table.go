package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/ccmanager/pkg/types"
)

// Stores written by older versions may hold NULL in the later columns.
const accountColumns = "id, name, token, base_url, COALESCE(model, ''), is_active, " +
	"COALESCE(custom_env_vars, '{}'), created_at, updated_at"

// scanAccount hydrates one accounts row.
func scanAccount(row rowScanner) (*types.Account, error) {
	var (
		a                types.Account
		env              string
		created, updated string
	)
	if err := row.Scan(&a.ID, &a.Name, &a.Token, &a.BaseURL, &a.Model, &a.IsActive, &env, &created, &updated); err != nil {
		return nil, err
	}
	vars, err := decodeEnv(env)
	if err != nil {
		return nil, fmt.Errorf("account %d: %w", a.ID, err)
	}
	a.CustomEnvVars = vars
	if a.CreatedAt, err = parseTimestamp(created); err != nil {
		return nil, err
	}
	if a.UpdatedAt, err = parseTimestamp(updated); err != nil {
		return nil, err
	}
	return &a, nil
}

func getAccount(q querier, id int64) (*types.Account, error) {
	a, err := scanAccount(q.QueryRow("SELECT "+accountColumns+" FROM accounts WHERE id = ?", id))
	if err != nil {
		return nil, storeErr(fmt.Sprintf("get account %d", id), err)
	}
	return a, nil
}

// CreateAccount inserts a new inactive account. An empty model is stored as
// types.DefaultModel.
func (b *Backend) CreateAccount(n types.NewAccount) (*types.Account, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkAttached("create account"); err != nil {
		return nil, err
	}

	env, err := encodeEnv(n.CustomEnvVars)
	if err != nil {
		return nil, types.E(types.KindValidation, "create account", err)
	}

	model := strings.TrimSpace(n.Model)
	if model == "" {
		model = types.DefaultModel
	}

	now := b.timestamp()
	res, err := b.db.Exec(
		`INSERT INTO accounts (name, token, base_url, model, is_active, custom_env_vars, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 0, ?, ?, ?)`,
		strings.TrimSpace(n.Name), n.Token, strings.TrimSpace(n.BaseURL), model, env, now, now,
	)
	if err != nil {
		return nil, storeErr("create account "+n.Name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, storeErr("create account "+n.Name, err)
	}
	return getAccount(b.db, id)
}

// GetAccount returns the account with the given id.
func (b *Backend) GetAccount(id int64) (*types.Account, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.checkAttached("get account"); err != nil {
		return nil, err
	}
	return getAccount(b.db, id)
}

// ListAccounts returns accounts matching f, newest first.
func (b *Backend) ListAccounts(f types.AccountFilter) ([]types.Account, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.checkAttached("list accounts"); err != nil {
		return nil, err
	}

	var (
		where []string
		args  []any
	)
	if f.Search != "" {
		where = append(where, "(name LIKE ? OR token LIKE ?)")
		pattern := "%" + f.Search + "%"
		args = append(args, pattern, pattern)
	}
	if f.BaseURL != "" {
		where = append(where, "base_url = ?")
		args = append(args, f.BaseURL)
	}

	query := "SELECT " + accountColumns + " FROM accounts"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if f.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := b.db.Query(query, args...)
	if err != nil {
		return nil, storeErr("list accounts", err)
	}
	defer rows.Close()

	var out []types.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, storeErr("list accounts", err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list accounts", err)
	}
	return out, nil
}

// UpdateAccount applies a partial update. The custom env map changes only
// when u.CustomEnvVars asks for it.
func (b *Backend) UpdateAccount(id int64, u types.AccountUpdate) (*types.Account, error) {
	op := fmt.Sprintf("update account %d", id)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkAttached(op); err != nil {
		return nil, err
	}

	var updated *types.Account
	err := b.withTx(op, func(tx *sql.Tx) error {
		a, err := getAccount(tx, id)
		if err != nil {
			return err
		}

		if u.Name != nil {
			if strings.TrimSpace(*u.Name) == "" {
				return types.E(types.KindValidation, op, types.ErrInvalidName)
			}
			a.Name = strings.TrimSpace(*u.Name)
		}
		if u.Token != nil {
			if *u.Token == "" {
				return types.E(types.KindValidation, op, types.ErrInvalidToken)
			}
			a.Token = *u.Token
		}
		if u.BaseURL != nil {
			if strings.TrimSpace(*u.BaseURL) == "" {
				return types.E(types.KindValidation, op, types.ErrInvalidURL)
			}
			a.BaseURL = strings.TrimSpace(*u.BaseURL)
		}
		if u.Model != nil {
			a.Model = *u.Model
		}
		env, err := encodeEnv(u.CustomEnvVars.Apply(a.CustomEnvVars))
		if err != nil {
			return types.E(types.KindValidation, op, err)
		}

		_, err = tx.Exec(
			`UPDATE accounts SET name = ?, token = ?, base_url = ?, model = ?, custom_env_vars = ?, updated_at = ?
			 WHERE id = ?`,
			a.Name, a.Token, a.BaseURL, a.Model, env, b.timestamp(), id,
		)
		if err != nil {
			return storeErr(op, err)
		}

		updated, err = getAccount(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteAccount removes the account and every association referencing it.
func (b *Backend) DeleteAccount(id int64) error {
	op := fmt.Sprintf("delete account %d", id)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkAttached(op); err != nil {
		return err
	}

	return b.withTx(op, func(tx *sql.Tx) error {
		return deleteAccountTx(tx, op, id)
	})
}

// deleteAccountTx removes associations first so the cascade holds even on a
// connection opened without foreign key enforcement.
func deleteAccountTx(tx *sql.Tx, op string, id int64) error {
	if _, err := tx.Exec("DELETE FROM account_directories WHERE account_id = ?", id); err != nil {
		return storeErr(op, err)
	}
	res, err := tx.Exec("DELETE FROM accounts WHERE id = ?", id)
	if err != nil {
		return storeErr(op, err)
	}
	return expectOne(op, res)
}

// ListAccountBaseURLs returns the distinct base_url values used by accounts.
func (b *Backend) ListAccountBaseURLs() ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.checkAttached("list account base urls"); err != nil {
		return nil, err
	}

	rows, err := b.db.Query("SELECT DISTINCT base_url FROM accounts ORDER BY base_url")
	if err != nil {
		return nil, storeErr("list account base urls", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, storeErr("list account base urls", err)
		}
		out = append(out, u)
	}
	return out, storeErr("list account base urls", rows.Err())
}

// ClearAccountsAndBaseURLs deletes every account, their associations, and
// every base URL in one transaction. Directories are not touched.
func (b *Backend) ClearAccountsAndBaseURLs() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkAttached("clear accounts"); err != nil {
		return err
	}

	return b.withTx("clear accounts", func(tx *sql.Tx) error {
		for _, stmt := range []string{
			"DELETE FROM account_directories",
			"DELETE FROM accounts",
			"DELETE FROM base_urls",
		} {
			if _, err := tx.Exec(stmt); err != nil {
				return storeErr("clear accounts", err)
			}
		}
		return nil
	})
}
