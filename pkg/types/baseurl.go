package types

import (
	"strings"
	"time"
)

// DefaultAPIKeyName is the credential key used when a BaseURL names none.
const DefaultAPIKeyName = "ANTHROPIC_API_KEY"

// BaseURL is a named endpoint with its credential key name and default
// environment.
type BaseURL struct {
	ID             int64             `json:"id"`
	Name           string            `json:"name"`
	URL            string            `json:"url"`
	Description    string            `json:"description"`
	APIKey         string            `json:"api_key"`
	IsDefault      bool              `json:"is_default"`
	DefaultEnvVars map[string]string `json:"default_env_vars"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// KeyName returns the credential key name, falling back to
// DefaultAPIKeyName.
func (b *BaseURL) KeyName() string {
	if b == nil || strings.TrimSpace(b.APIKey) == "" {
		return DefaultAPIKeyName
	}
	return b.APIKey
}

// NewBaseURL carries the fields for creating a BaseURL. An empty APIKey
// stores DefaultAPIKeyName.
type NewBaseURL struct {
	Name           string
	URL            string
	Description    string
	APIKey         string
	IsDefault      bool
	DefaultEnvVars map[string]string
}

// Validate reports the first missing required field as a ValidationError.
func (n NewBaseURL) Validate() error {
	switch {
	case strings.TrimSpace(n.Name) == "":
		return E(KindValidation, "validate base url", ErrInvalidName)
	case strings.TrimSpace(n.URL) == "":
		return E(KindValidation, "validate base url", ErrInvalidURL)
	}
	return nil
}

// BaseURLUpdate is a partial update. Nil pointers leave fields unchanged.
type BaseURLUpdate struct {
	Name           *string
	URL            *string
	Description    *string
	APIKey         *string
	IsDefault      *bool
	DefaultEnvVars EnvUpdate
}
