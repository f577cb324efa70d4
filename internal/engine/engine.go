// Package engine is the core API behind every shell: it switches a profile
// into a directory and reads back what a directory currently holds.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/ccmanager/internal/compose"
	"github.com/mesh-intelligence/ccmanager/internal/settings"
	"github.com/mesh-intelligence/ccmanager/pkg/types"
)

// Store is the part of types.Store the engine reads and switches through.
type Store interface {
	Switch(accountID, directoryID int64) error
	GetAccount(id int64) (*types.Account, error)
	GetDirectory(id int64) (*types.Directory, error)
	GetBaseURLByURL(url string) (*types.BaseURL, error)
	GetSettings() (*types.SettingsBlob, error)
	ListAccounts(f types.AccountFilter) ([]types.Account, error)
	ListDirectories() ([]types.Directory, error)
}

// Engine serializes switches so two never interleave their store and file
// writes.
type Engine struct {
	mu    sync.Mutex
	store Store
	log   zerolog.Logger
	now   func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithClock overrides the time used for template backups.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New returns an Engine over store.
func New(store Store, opts ...Option) *Engine {
	e := &Engine{store: store, log: zerolog.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SwitchRequest selects the pair to activate and how to write it.
type SwitchRequest struct {
	AccountID            int64
	DirectoryID          int64
	Sandbox              bool
	Isolation            bool
	SkipPermissionChecks bool
	KeepLocalMD          bool
}

// SwitchResult describes a completed switch. Warnings lists the best-effort
// steps that failed after credentials were written.
type SwitchResult struct {
	Account       *types.Account
	Directory     *types.Directory
	BaseURL       *types.BaseURL
	Env           compose.Env
	SettingsPath  string
	LocalMDBackup string
	Warnings      []string
}

// Partial reports whether any best-effort step failed.
func (r *SwitchResult) Partial() bool {
	return len(r.Warnings) > 0
}

// Switch activates the pair in the store, then writes the target directory:
// the env-only settings file first, then the bundled templates, then the
// policy-merged settings file. A failed env-only write fails the switch;
// later failures become warnings because credentials are already in place.
func (e *Engine) Switch(ctx context.Context, req SwitchRequest) (*SwitchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	log := e.log.With().
		Str("component", "engine").
		Int64("account_id", req.AccountID).
		Int64("directory_id", req.DirectoryID).
		Logger()

	if err := e.store.Switch(req.AccountID, req.DirectoryID); err != nil {
		return nil, err
	}

	account, err := e.store.GetAccount(req.AccountID)
	if err != nil {
		return nil, err
	}
	dir, err := e.store.GetDirectory(req.DirectoryID)
	if err != nil {
		return nil, err
	}

	endpoint, err := e.store.GetBaseURLByURL(account.BaseURL)
	switch {
	case errors.Is(err, types.ErrNotFound):
		log.Warn().Str("base_url", account.BaseURL).Msg("no base url row matches account; using default key name")
		endpoint = nil
	case err != nil:
		return nil, err
	}

	env := compose.Build(account, endpoint, compose.Options{Sandbox: req.Sandbox, Isolation: req.Isolation})
	target := settings.NewTarget(dir.Path, settings.WithLogger(log), settings.WithClock(e.now))

	if err := target.WriteEnv(env); err != nil {
		return nil, err
	}

	res := &SwitchResult{
		Account:      account,
		Directory:    dir,
		BaseURL:      endpoint,
		Env:          env,
		SettingsPath: target.SettingsPath(),
	}
	warn := func(step string, err error) {
		log.Warn().Err(err).Str("step", step).Msg("switch step failed")
		res.Warnings = append(res.Warnings, fmt.Sprintf("%s: %v", step, err))
	}

	if res.LocalMDBackup, err = target.InstallLocalMD(req.KeepLocalMD); err != nil {
		warn("install CLAUDE.local.md", err)
	}
	if _, err := target.InstallCommands(); err != nil {
		warn("install commands", err)
	}

	policy, err := e.loadPolicy()
	if err != nil {
		warn("load stored policy", err)
		policy = settings.DefaultPolicy()
	}
	if err := target.WriteSettings(settings.Merge(policy, env, req.SkipPermissionChecks)); err != nil {
		warn("write merged settings", err)
	}

	log.Info().
		Str("account", account.Name).
		Str("directory", dir.Path).
		Bool("partial", res.Partial()).
		Msg("switched profile")
	return res, nil
}

// loadPolicy returns the stored policy or the default when none is stored.
func (e *Engine) loadPolicy() (settings.Policy, error) {
	blob, err := e.store.GetSettings()
	if errors.Is(err, types.ErrNotFound) {
		return settings.DefaultPolicy(), nil
	}
	if err != nil {
		return nil, err
	}
	return settings.ParsePolicy(blob.JSON)
}

// Current is what a directory holds right now.
type Current struct {
	Directory    *types.Directory
	SettingsPath string
	Env          map[string]string
}

// CurrentConfig reads the string-valued env entries written to a directory.
func (e *Engine) CurrentConfig(directoryID int64) (*Current, error) {
	dir, err := e.store.GetDirectory(directoryID)
	if err != nil {
		return nil, err
	}
	target := settings.NewTarget(dir.Path, settings.WithLogger(e.log))
	env, err := target.EnvConfig()
	if err != nil {
		return nil, err
	}
	return &Current{Directory: dir, SettingsPath: target.SettingsPath(), Env: env}, nil
}

// Active returns the active account and directory. Either may be nil.
func (e *Engine) Active() (*types.Account, *types.Directory, error) {
	accounts, err := e.store.ListAccounts(types.AccountFilter{})
	if err != nil {
		return nil, nil, err
	}
	dirs, err := e.store.ListDirectories()
	if err != nil {
		return nil, nil, err
	}

	var (
		account *types.Account
		dir     *types.Directory
	)
	for i := range accounts {
		if accounts[i].IsActive {
			account = &accounts[i]
			break
		}
	}
	for i := range dirs {
		if dirs[i].IsActive {
			dir = &dirs[i]
			break
		}
	}
	return account, dir, nil
}

// ClearCredentials removes credential and endpoint keys from a directory's
// settings file.
func (e *Engine) ClearCredentials(directoryID int64) error {
	dir, err := e.store.GetDirectory(directoryID)
	if err != nil {
		return err
	}
	return settings.NewTarget(dir.Path, settings.WithLogger(e.log)).ClearEnv()
}
