package types

import "time"

// Association records that an account was switched in with a directory.
// Name and path are joined in on listing.
type Association struct {
	AccountID     int64     `json:"account_id"`
	DirectoryID   int64     `json:"directory_id"`
	AccountName   string    `json:"account_name"`
	DirectoryPath string    `json:"directory_path"`
	CreatedAt     time.Time `json:"created_at"`
}
