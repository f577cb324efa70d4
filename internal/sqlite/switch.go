package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/mesh-intelligence/ccmanager/pkg/types"
)

// Switch marks accountID and directoryID as the only active rows and records
// the pair. All statements commit together; a missing row leaves the
// previous active pair in place.
func (b *Backend) Switch(accountID, directoryID int64) error {
	op := fmt.Sprintf("switch account %d directory %d", accountID, directoryID)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkAttached(op); err != nil {
		return err
	}

	err := b.withTx(op, func(tx *sql.Tx) error {
		var one int
		if err := tx.QueryRow("SELECT 1 FROM accounts WHERE id = ?", accountID).Scan(&one); err != nil {
			return storeErr(fmt.Sprintf("%s: account %d", op, accountID), err)
		}
		if err := tx.QueryRow("SELECT 1 FROM directories WHERE id = ?", directoryID).Scan(&one); err != nil {
			return storeErr(fmt.Sprintf("%s: directory %d", op, directoryID), err)
		}

		now := b.timestamp()
		stmts := []struct {
			query string
			args  []any
		}{
			{"UPDATE accounts SET is_active = 0 WHERE is_active != 0", nil},
			{"UPDATE directories SET is_active = 0 WHERE is_active != 0", nil},
			{"UPDATE accounts SET is_active = 1, updated_at = ? WHERE id = ?", []any{now, accountID}},
			{"UPDATE directories SET is_active = 1, updated_at = ? WHERE id = ?", []any{now, directoryID}},
			{"INSERT OR IGNORE INTO account_directories (account_id, directory_id, created_at) VALUES (?, ?, ?)", []any{accountID, directoryID, now}},
		}
		for _, s := range stmts {
			if _, err := tx.Exec(s.query, s.args...); err != nil {
				return storeErr(op, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	b.log.Debug().Int64("account_id", accountID).Int64("directory_id", directoryID).Msg("switched active pair")
	return nil
}

// ListAssociations returns every recorded pair with account name and
// directory path, newest first.
func (b *Backend) ListAssociations() ([]types.Association, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.checkAttached("list associations"); err != nil {
		return nil, err
	}

	rows, err := b.db.Query(
		`SELECT ad.account_id, ad.directory_id, a.name, d.path, ad.created_at
		 FROM account_directories ad
		 JOIN accounts a ON a.id = ad.account_id
		 JOIN directories d ON d.id = ad.directory_id
		 ORDER BY ad.created_at DESC, ad.id DESC`,
	)
	if err != nil {
		return nil, storeErr("list associations", err)
	}
	defer rows.Close()

	var out []types.Association
	for rows.Next() {
		var (
			as      types.Association
			created string
		)
		if err := rows.Scan(&as.AccountID, &as.DirectoryID, &as.AccountName, &as.DirectoryPath, &created); err != nil {
			return nil, storeErr("list associations", err)
		}
		if as.CreatedAt, err = parseTimestamp(created); err != nil {
			return nil, storeErr("list associations", err)
		}
		out = append(out, as)
	}
	return out, storeErr("list associations", rows.Err())
}
