package types

import (
	"strings"
	"time"
)

// WebDAV profile defaults.
const (
	DefaultRemotePath   = "/claude-config"
	DefaultSyncInterval = 3600 // seconds
)

// WebDAVProfile holds the connection details for one remote backup target.
type WebDAVProfile struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	URL          string     `json:"url"`
	Username     string     `json:"username"`
	Password     string     `json:"password"`
	RemotePath   string     `json:"remote_path"`
	AutoSync     bool       `json:"auto_sync"`
	SyncInterval int        `json:"sync_interval"`
	IsActive     bool       `json:"is_active"`
	LastSyncAt   *time.Time `json:"last_sync_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// NewWebDAVProfile carries the fields for creating a WebDAVProfile. Zero
// RemotePath and SyncInterval take the package defaults.
type NewWebDAVProfile struct {
	Name         string
	URL          string
	Username     string
	Password     string
	RemotePath   string
	AutoSync     bool
	SyncInterval int
}

// Validate reports the first missing required field as a ValidationError.
func (n NewWebDAVProfile) Validate() error {
	switch {
	case strings.TrimSpace(n.Name) == "":
		return E(KindValidation, "validate webdav profile", ErrInvalidName)
	case strings.TrimSpace(n.URL) == "":
		return E(KindValidation, "validate webdav profile", ErrInvalidURL)
	}
	return nil
}

// WebDAVProfileUpdate is a partial update. Nil pointers leave fields
// unchanged. Setting IsActive to true deactivates every other profile.
type WebDAVProfileUpdate struct {
	Name         *string
	URL          *string
	Username     *string
	Password     *string
	RemotePath   *string
	AutoSync     *bool
	SyncInterval *int
	IsActive     *bool
}

// Sync directions.
const (
	SyncUpload   = "upload"
	SyncDownload = "download"
	SyncAuto     = "auto"
)

// Sync outcomes.
const (
	SyncSuccess = "success"
	SyncFailed  = "failed"
	SyncPending = "pending"
)

// SyncLogEntry is an append-only record of one sync run.
type SyncLogEntry struct {
	ID        int64     `json:"id"`
	ProfileID int64     `json:"webdav_config_id"`
	Direction string    `json:"sync_type"`
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	RunID     string    `json:"run_id"`
	SyncedAt  time.Time `json:"synced_at"`
}
