// Package sqlite exposes the SQLite store while keeping its implementation
// internal.
package sqlite

import (
	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/ccmanager/internal/sqlite"
	"github.com/mesh-intelligence/ccmanager/pkg/types"
)

// NewStore creates a SQLite store. The store is not attached; call Attach
// with a Config to open it.
//
// Example:
//
//	store := sqlite.NewStore(log)
//	err := store.Attach(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: dir,
//	})
//	defer store.Detach()
func NewStore(log zerolog.Logger) types.Store {
	return sqlite.NewBackend(sqlite.WithLogger(log))
}
