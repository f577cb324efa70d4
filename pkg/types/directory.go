package types

import (
	"strings"
	"time"
)

// Directory is a filesystem target that receives settings on switch.
type Directory struct {
	ID        int64     `json:"id"`
	Path      string    `json:"path"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewDirectory carries the fields for creating a Directory.
type NewDirectory struct {
	Path string
	Name string
}

// Validate reports the first missing required field as a ValidationError.
func (n NewDirectory) Validate() error {
	switch {
	case strings.TrimSpace(n.Path) == "":
		return E(KindValidation, "validate directory", ErrInvalidPath)
	case strings.TrimSpace(n.Name) == "":
		return E(KindValidation, "validate directory", ErrInvalidName)
	}
	return nil
}

// DirectoryUpdate is a partial update. Nil pointers leave fields unchanged.
type DirectoryUpdate struct {
	Path *string
	Name *string
}
