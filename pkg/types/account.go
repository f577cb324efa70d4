package types

import (
	"strings"
	"time"
)

// DefaultModel is the model recorded for accounts created without one.
const DefaultModel = "claude-sonnet-4-20250514"

// Account is a named credential bound to an endpoint by URL string.
type Account struct {
	ID            int64             `json:"id"`
	Name          string            `json:"name"`
	Token         string            `json:"token"`
	BaseURL       string            `json:"base_url"`
	Model         string            `json:"model"`
	IsActive      bool              `json:"is_active"`
	CustomEnvVars map[string]string `json:"custom_env_vars"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// NewAccount carries the fields for creating an Account.
type NewAccount struct {
	Name          string
	Token         string
	BaseURL       string
	Model         string
	CustomEnvVars map[string]string
}

// Validate reports the first missing required field as a ValidationError.
func (n NewAccount) Validate() error {
	switch {
	case strings.TrimSpace(n.Name) == "":
		return E(KindValidation, "validate account", ErrInvalidName)
	case n.Token == "":
		return E(KindValidation, "validate account", ErrInvalidToken)
	case strings.TrimSpace(n.BaseURL) == "":
		return E(KindValidation, "validate account", ErrInvalidURL)
	}
	return nil
}

// AccountUpdate is a partial update. Nil pointers leave fields unchanged.
type AccountUpdate struct {
	Name          *string
	Token         *string
	BaseURL       *string
	Model         *string
	CustomEnvVars EnvUpdate
}

// AccountFilter narrows ListAccounts. Search matches name or token as a
// substring; BaseURL matches exactly. A zero Limit means no limit.
type AccountFilter struct {
	Search  string
	BaseURL string
	Limit   int
	Offset  int
}
