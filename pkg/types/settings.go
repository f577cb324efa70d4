package types

import "time"

// SettingsBlob is the stored permissions policy document. Only one exists.
type SettingsBlob struct {
	ID        int64     `json:"id"`
	JSON      string    `json:"settings_json"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
