package types

import "errors"

// Config holds backend selection and parameters for Store.Attach.
type Config struct {
	Backend string `json:"backend" yaml:"backend"`
	DataDir string `json:"data_dir" yaml:"data_dir"`
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
)

// DatabaseFileName is the store file created inside DataDir.
const DatabaseFileName = "claude_config.db"

// Config validation errors.
var (
	ErrBackendEmpty   = errors.New("backend must not be empty")
	ErrBackendUnknown = errors.New("unknown backend")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite: true,
}

// Validate checks that the Config is well-formed. Failures are
// ConfigurationErrors wrapping a sentinel from this package.
func (c Config) Validate() error {
	if c.Backend == "" {
		return E(KindConfiguration, "validate config", ErrBackendEmpty)
	}
	if !knownBackends[c.Backend] {
		return E(KindConfiguration, "validate config", ErrBackendUnknown)
	}
	return nil
}
