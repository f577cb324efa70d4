// Package paths resolves the configuration, data, and log locations.
package paths

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/mesh-intelligence/ccmanager/pkg/types"
)

// AppName names the platform config and data directories.
const AppName = "claude-config-manager"

// Directory names under the data dir and next to the executable.
const (
	ResourcesDirName = "resources"
	LogsDirName      = "logs"
	LogFileName      = "ccm.log"
	FallbackDirName  = ".claude-config-manager"
)

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "CCM_CONFIG_DIR"
	EnvDataDir   = "CCM_DATA_DIR"
)

// platformDir holds platform-detection functions that can be overridden in tests.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
	executable    func() (string, error)
	getwd         func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
	executable:    os.Executable,
	getwd:         os.Getwd,
}

// DefaultConfigDir returns the platform-specific default configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/claude-config-manager (fallback ~/.config/claude-config-manager)
// macOS:   ~/Library/Application Support/claude-config-manager
// Windows: %APPDATA%/claude-config-manager
func DefaultConfigDir() (string, error) {
	switch runtime.GOOS {
	case "linux":
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, AppName), nil
		}
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", AppName), nil
	default:
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, AppName), nil
	}
}

// DefaultDataDir returns the platform-specific default data directory.
//
// Linux:   $XDG_DATA_HOME/claude-config-manager (fallback ~/.local/share/claude-config-manager)
// macOS:   ~/Library/Application Support/claude-config-manager
// Windows: %APPDATA%/claude-config-manager
func DefaultDataDir() (string, error) {
	switch runtime.GOOS {
	case "linux":
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, AppName), nil
		}
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".local", "share", AppName), nil
	default:
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, AppName), nil
	}
}

// FallbackDataDir is where the store is opened when the resolved data
// directory cannot be used: %APPDATA%/claude-config-manager on Windows,
// ~/.claude-config-manager elsewhere.
func FallbackDataDir() (string, error) {
	if runtime.GOOS == "windows" {
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, AppName), nil
	}
	home, err := platformDir.homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, FallbackDirName), nil
}

// ResolveConfigDir returns the configuration directory following the precedence
// chain: flag > CCM_CONFIG_DIR env > DefaultConfigDir().
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir()
}

// ResolveDataDir returns the data directory following the precedence chain:
// flag > configYAMLValue > CCM_DATA_DIR env > an existing store found by
// SearchDataDirs > DefaultDataDir().
func ResolveDataDir(flag, configYAMLValue string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if configYAMLValue != "" {
		return filepath.Abs(configYAMLValue)
	}
	if env := os.Getenv(EnvDataDir); env != "" {
		return filepath.Abs(env)
	}
	for _, dir := range SearchDataDirs() {
		if fi, err := os.Stat(filepath.Join(dir, types.DatabaseFileName)); err == nil && !fi.IsDir() {
			return dir, nil
		}
	}
	return DefaultDataDir()
}

// SearchDataDirs lists the directories checked for an existing store, in
// order: resources next to the executable, resources under the working
// directory, then the working directory itself.
func SearchDataDirs() []string {
	var dirs []string
	if exe, err := platformDir.executable(); err == nil {
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		dirs = append(dirs, filepath.Join(filepath.Dir(exe), ResourcesDirName))
	}
	if cwd, err := platformDir.getwd(); err == nil {
		dirs = append(dirs, filepath.Join(cwd, ResourcesDirName), cwd)
	}
	return dirs
}

// LogFile returns <dataDir>/logs/ccm.log.
func LogFile(dataDir string) string {
	return filepath.Join(dataDir, LogsDirName, LogFileName)
}
