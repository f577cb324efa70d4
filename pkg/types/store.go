package types

// Store is the relational store and integrity manager. Implementations
// serialize all calls; callers attach once, use the store, and detach.
type Store interface {
	// Attach opens the store described by config, creating the schema and
	// running column migrations. Returns ErrAlreadyAttached when attached.
	Attach(config Config) error

	// Detach releases the store. Idempotent.
	Detach() error

	CreateAccount(n NewAccount) (*Account, error)
	GetAccount(id int64) (*Account, error)
	ListAccounts(f AccountFilter) ([]Account, error)
	UpdateAccount(id int64, u AccountUpdate) (*Account, error)
	// DeleteAccount removes the account and its associations.
	DeleteAccount(id int64) error
	// ListAccountBaseURLs returns the distinct base_url values in use.
	ListAccountBaseURLs() ([]string, error)

	CreateDirectory(n NewDirectory) (*Directory, error)
	GetDirectory(id int64) (*Directory, error)
	ListDirectories() ([]Directory, error)
	UpdateDirectory(id int64, u DirectoryUpdate) (*Directory, error)
	// DeleteDirectory removes the directory and its associations.
	DeleteDirectory(id int64) error

	// CreateBaseURL inserts a base URL. IsDefault clears the flag on others.
	CreateBaseURL(n NewBaseURL) (*BaseURL, error)
	GetBaseURL(id int64) (*BaseURL, error)
	// GetBaseURLByURL looks a base URL up by its url value.
	GetBaseURLByURL(url string) (*BaseURL, error)
	ListBaseURLs() ([]BaseURL, error)
	// UpdateBaseURL applies u and rewrites base_url on every account that
	// pointed at the old url. The rewrite and the update commit together.
	UpdateBaseURL(id int64, u BaseURLUpdate) (*BaseURL, error)
	// DeleteBaseURL deletes every account whose base_url equals the row's
	// url, their associations, and the row itself, in one transaction. It
	// returns the number of accounts removed.
	DeleteBaseURL(id int64) (int, error)

	// Switch marks exactly one account and one directory active and records
	// the pair as an association. Repeating a pair is idempotent.
	Switch(accountID, directoryID int64) error
	ListAssociations() ([]Association, error)

	// GetSettings returns ErrNotFound when no policy has been stored.
	GetSettings() (*SettingsBlob, error)
	SaveSettings(doc string) (*SettingsBlob, error)

	CreateWebDAVProfile(n NewWebDAVProfile) (*WebDAVProfile, error)
	GetWebDAVProfile(id int64) (*WebDAVProfile, error)
	ListWebDAVProfiles() ([]WebDAVProfile, error)
	UpdateWebDAVProfile(id int64, u WebDAVProfileUpdate) (*WebDAVProfile, error)
	DeleteWebDAVProfile(id int64) error
	TouchLastSync(id int64) error

	AppendSyncLog(e SyncLogEntry) (*SyncLogEntry, error)
	// ListSyncLogs returns the newest entries first. A zero profileID lists
	// every profile; a zero limit lists everything.
	ListSyncLogs(profileID int64, limit int) ([]SyncLogEntry, error)

	// ClearAccountsAndBaseURLs deletes every account and base URL. Used by
	// restore; directories are untouched.
	ClearAccountsAndBaseURLs() error
}
