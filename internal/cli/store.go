package cli

import (
	"fmt"
	"path/filepath"

	"github.com/mesh-intelligence/ccmanager/internal/backup"
	"github.com/mesh-intelligence/ccmanager/internal/engine"
	"github.com/mesh-intelligence/ccmanager/internal/logging"
	"github.com/mesh-intelligence/ccmanager/internal/paths"
	"github.com/mesh-intelligence/ccmanager/pkg/sqlite"
	"github.com/mesh-intelligence/ccmanager/pkg/types"
)

// openLog builds the process logger from the log.* keys.
func (a *app) openLog() error {
	file := a.cfg.GetString(cfgKeyLogFile)
	if file == "" {
		file = paths.LogFile(a.dataDir)
	}
	l, err := logging.New(logging.Options{
		File:       file,
		Level:      a.cfg.GetString(cfgKeyLogLevel),
		MaxSizeMB:  a.cfg.GetInt(cfgKeyLogMaxSize),
		MaxBackups: a.cfg.GetInt(cfgKeyLogMaxBackups),
		MaxAgeDays: a.cfg.GetInt(cfgKeyLogMaxAge),
		Verbose:    a.verbose,
		Console:    a.stderr,
	})
	if err != nil {
		return types.E(types.KindConfiguration, "open log", err)
	}
	a.log = l
	return nil
}

// logPath returns the log file in use.
func (a *app) logPath() string {
	if file := a.cfg.GetString(cfgKeyLogFile); file != "" {
		return file
	}
	return paths.LogFile(a.dataDir)
}

// attachStore opens the store in the resolved data directory. When that
// fails it retries once in the fallback directory before giving up.
func (a *app) attachStore() error {
	log := a.logger()

	store, err := a.attachAt(a.dataDir)
	if err != nil {
		fallback, ferr := paths.FallbackDataDir()
		if ferr != nil || fallback == a.dataDir {
			return types.E(types.KindConfiguration, "open store", err)
		}
		log.Warn().Err(err).Str("data_dir", a.dataDir).Str("fallback", fallback).Msg("store unavailable; retrying in fallback directory")

		var retryErr error
		store, retryErr = a.attachAt(fallback)
		if retryErr != nil {
			return types.E(types.KindConfiguration, "open store",
				fmt.Errorf("%v; fallback %s: %w", err, fallback, retryErr))
		}
		a.dataDir = fallback
	}

	a.store = store
	a.dbPath = filepath.Join(a.dataDir, types.DatabaseFileName)
	a.engine = engine.New(store, engine.WithLogger(log))
	a.backups = backup.NewService(store,
		backup.WithLogger(log),
		backup.WithRequestTimeout(a.cfg.GetDuration(cfgKeyWebDAVTimeout)),
	)
	return nil
}

func (a *app) attachAt(dir string) (types.Store, error) {
	store := sqlite.NewStore(a.logger())
	if err := store.Attach(types.Config{Backend: types.BackendSQLite, DataDir: dir}); err != nil {
		return nil, err
	}
	return store, nil
}
