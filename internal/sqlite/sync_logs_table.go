package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/mesh-intelligence/ccmanager/pkg/types"
)

const syncLogColumns = "id, webdav_config_id, sync_type, status, COALESCE(message, ''), COALESCE(run_id, ''), synced_at"

func scanSyncLog(row rowScanner) (*types.SyncLogEntry, error) {
	var (
		e      types.SyncLogEntry
		synced string
		err    error
	)
	if err = row.Scan(&e.ID, &e.ProfileID, &e.Direction, &e.Status, &e.Message, &e.RunID, &synced); err != nil {
		return nil, err
	}
	if e.SyncedAt, err = parseTimestamp(synced); err != nil {
		return nil, err
	}
	return &e, nil
}

// validSyncDirections and validSyncStatuses mirror the CHECK constraints on
// sync_logs so callers get a validation error instead of a constraint error.
var (
	validSyncDirections = map[string]bool{types.SyncUpload: true, types.SyncDownload: true, types.SyncAuto: true}
	validSyncStatuses   = map[string]bool{types.SyncSuccess: true, types.SyncFailed: true, types.SyncPending: true}
)

// AppendSyncLog records one sync run. A missing RunID is generated.
func (b *Backend) AppendSyncLog(e types.SyncLogEntry) (*types.SyncLogEntry, error) {
	op := fmt.Sprintf("append sync log for profile %d", e.ProfileID)
	if !validSyncDirections[e.Direction] {
		return nil, types.E(types.KindValidation, op, fmt.Errorf("unknown sync direction %q", e.Direction))
	}
	if !validSyncStatuses[e.Status] {
		return nil, types.E(types.KindValidation, op, fmt.Errorf("unknown sync status %q", e.Status))
	}
	if e.RunID == "" {
		e.RunID = newRunID()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkAttached(op); err != nil {
		return nil, err
	}

	var saved *types.SyncLogEntry
	err := b.withTx(op, func(tx *sql.Tx) error {
		var one int
		if err := tx.QueryRow("SELECT 1 FROM webdav_configs WHERE id = ?", e.ProfileID).Scan(&one); err != nil {
			return storeErr(op, err)
		}
		res, err := tx.Exec(
			"INSERT INTO sync_logs (webdav_config_id, sync_type, status, message, run_id, synced_at) VALUES (?, ?, ?, ?, ?, ?)",
			e.ProfileID, e.Direction, e.Status, e.Message, e.RunID, b.timestamp(),
		)
		if err != nil {
			return storeErr(op, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return storeErr(op, err)
		}
		saved, err = scanSyncLog(tx.QueryRow("SELECT "+syncLogColumns+" FROM sync_logs WHERE id = ?", id))
		return storeErr(op, err)
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// ListSyncLogs returns sync log entries, newest first.
func (b *Backend) ListSyncLogs(profileID int64, limit int) ([]types.SyncLogEntry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.checkAttached("list sync logs"); err != nil {
		return nil, err
	}

	query := "SELECT " + syncLogColumns + " FROM sync_logs"
	var args []any
	if profileID != 0 {
		query += " WHERE webdav_config_id = ?"
		args = append(args, profileID)
	}
	query += " ORDER BY synced_at DESC, id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := b.db.Query(query, args...)
	if err != nil {
		return nil, storeErr("list sync logs", err)
	}
	defer rows.Close()

	var out []types.SyncLogEntry
	for rows.Next() {
		e, err := scanSyncLog(rows)
		if err != nil {
			return nil, storeErr("list sync logs", err)
		}
		out = append(out, *e)
	}
	return out, storeErr("list sync logs", rows.Err())
}
