package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/ccmanager/internal/paths"
	"github.com/mesh-intelligence/ccmanager/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"
	envPrefix      = "CCM"
)

// Config keys.
const (
	cfgKeyDataDir        = "data_dir"
	cfgKeyLogLevel       = "log.level"
	cfgKeyLogFile        = "log.file"
	cfgKeyLogMaxSize     = "log.max_size_mb"
	cfgKeyLogMaxBackups  = "log.max_backups"
	cfgKeyLogMaxAge      = "log.max_age_days"
	cfgKeyWebDAVTimeout  = "webdav.timeout"
	cfgKeySwitchSandbox  = "switch.sandbox"
	cfgKeySwitchIsolate  = "switch.isolation"
	cfgKeySwitchKeepMD   = "switch.keep_local_md"
	defaultLogLevel      = "info"
	defaultLogMaxSize    = 10
	defaultLogMaxBackups = 3
	defaultLogMaxAge     = 30
)

// configFile is the structure init writes to config.yaml.
type configFile struct {
	DataDir string        `yaml:"data_dir,omitempty"`
	Log     logSection    `yaml:"log"`
	WebDAV  webdavSection `yaml:"webdav"`
	Switch  switchSection `yaml:"switch"`
}

type logSection struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type webdavSection struct {
	Timeout time.Duration `yaml:"timeout"`
}

type switchSection struct {
	Sandbox     bool `yaml:"sandbox"`
	Isolation   bool `yaml:"isolation"`
	KeepLocalMD bool `yaml:"keep_local_md"`
}

func defaultConfigFile(dataDir string) configFile {
	return configFile{
		DataDir: dataDir,
		Log: logSection{
			Level:      defaultLogLevel,
			MaxSizeMB:  defaultLogMaxSize,
			MaxBackups: defaultLogMaxBackups,
			MaxAgeDays: defaultLogMaxAge,
		},
		Switch: switchSection{Sandbox: true},
	}
}

// loadConfig reads config.yaml from the resolved config directory with
// CCM_ environment overrides. A missing config.yaml is not an error. It
// also resolves the data directory.
func (a *app) loadConfig() error {
	configDir, err := paths.ResolveConfigDir(a.configDir)
	if err != nil {
		return types.E(types.KindConfiguration, "resolve config dir", err)
	}
	a.configDir = configDir

	v := viper.New()
	v.SetDefault(cfgKeyLogLevel, defaultLogLevel)
	v.SetDefault(cfgKeyLogMaxSize, defaultLogMaxSize)
	v.SetDefault(cfgKeyLogMaxBackups, defaultLogMaxBackups)
	v.SetDefault(cfgKeyLogMaxAge, defaultLogMaxAge)
	v.SetDefault(cfgKeyWebDAVTimeout, time.Duration(0))
	v.SetDefault(cfgKeySwitchSandbox, true)
	v.SetDefault(cfgKeySwitchIsolate, false)
	v.SetDefault(cfgKeySwitchKeepMD, false)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return types.E(types.KindConfiguration, "read config", err)
		}
	}
	a.cfg = v

	dataDir, err := paths.ResolveDataDir(a.dataDir, v.GetString(cfgKeyDataDir))
	if err != nil {
		return types.E(types.KindConfiguration, "resolve data dir", err)
	}
	a.dataDir = dataDir
	return nil
}

func (a *app) configPath() string {
	return filepath.Join(a.configDir, configFileExt)
}

// writeConfigIfMissing creates config.yaml with default values if the file
// does not exist. It reports whether a file was written.
func writeConfigIfMissing(path, dataDir string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("stat config file: %w", err)
	}

	cfg := defaultConfigFile(dataDir)
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, fmt.Errorf("write config: %w", err)
	}
	return true, nil
}
