package settings

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/ccmanager/internal/compose"
	"github.com/mesh-intelligence/ccmanager/pkg/types"
)

// File and directory names inside a target directory.
const (
	ClaudeDirName    = ".claude"
	SettingsFileName = "settings.local.json"
	LocalMDFileName  = "CLAUDE.local.md"
	CommandsDirName  = "commands"
)

// credentialKeys are the keys ClearEnv removes.
var credentialKeys = []string{"ANTHROPIC_API_KEY", "ANTHROPIC_AUTH_TOKEN", compose.KeyBaseURL}

// claudeMDKeys are read from KEY=VALUE lines of a CLAUDE.md fallback.
var claudeMDKeys = []string{"ANTHROPIC_API_KEY", compose.KeyBaseURL, "CLAUDE_API_KEY"}

// Target is a directory that receives settings on switch.
type Target struct {
	Dir string
	log zerolog.Logger
	now func() time.Time
}

// TargetOption configures a Target.
type TargetOption func(*Target)

// WithLogger sets the target's logger.
func WithLogger(l zerolog.Logger) TargetOption {
	return func(t *Target) { t.log = l.With().Str("component", "settings").Logger() }
}

// WithClock overrides the time used for backup suffixes.
func WithClock(now func() time.Time) TargetOption {
	return func(t *Target) { t.now = now }
}

// NewTarget returns a Target for dir.
func NewTarget(dir string, opts ...TargetOption) *Target {
	t := &Target{Dir: dir, log: zerolog.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ClaudeDir returns <dir>/.claude.
func (t *Target) ClaudeDir() string {
	return filepath.Join(t.Dir, ClaudeDirName)
}

// SettingsPath returns <dir>/.claude/settings.local.json.
func (t *Target) SettingsPath() string {
	return filepath.Join(t.ClaudeDir(), SettingsFileName)
}

// alternatives are read, in order, when the settings file does not exist.
func (t *Target) alternatives() []string {
	return []string{
		filepath.Join(t.ClaudeDir(), "settings.json"),
		filepath.Join(t.ClaudeDir(), "claude_config.json"),
		filepath.Join(t.Dir, ".claude_config"),
		filepath.Join(t.Dir, "CLAUDE.md"),
	}
}

// Read returns the current settings document. It falls back to older
// configuration files when settings.local.json is absent, and to an empty
// document when none exists. Alternatives that fail to parse are skipped.
func (t *Target) Read() (Policy, error) {
	data, err := os.ReadFile(t.SettingsPath())
	switch {
	case err == nil:
		var doc Policy
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, types.E(types.KindFileIO, "read settings", fmt.Errorf("parsing %s: %w", t.SettingsPath(), err))
		}
		if doc == nil {
			doc = Policy{}
		}
		return doc, nil
	case !os.IsNotExist(err):
		return nil, types.E(types.KindFileIO, "read settings", err)
	}

	for _, alt := range t.alternatives() {
		data, err := os.ReadFile(alt)
		if err != nil {
			continue
		}
		if filepath.Base(alt) == "CLAUDE.md" {
			return parseClaudeMD(data), nil
		}
		var doc Policy
		if err := json.Unmarshal(data, &doc); err == nil && doc != nil {
			t.log.Debug().Str("path", alt).Msg("read settings from alternative file")
			return doc, nil
		}
	}
	return Policy{}, nil
}

// parseClaudeMD extracts known KEY=VALUE lines into an env section.
func parseClaudeMD(data []byte) Policy {
	env := map[string]any{}
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		for _, key := range claudeMDKeys {
			if value, ok := strings.CutPrefix(line, key+"="); ok {
				if i := strings.Index(value, "="); i >= 0 {
					value = value[:i]
				}
				env[key] = strings.TrimSpace(value)
			}
		}
	}
	if len(env) == 0 {
		return Policy{}
	}
	return Policy{"env": env}
}

// write pretty-prints doc to the settings file, creating .claude if needed.
// The file is rewritten in place.
func (t *Target) write(op string, doc Policy) error {
	if err := os.MkdirAll(t.ClaudeDir(), 0o755); err != nil {
		return types.E(types.KindFileIO, op, err)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return types.E(types.KindFileIO, op, err)
	}
	if err := os.WriteFile(t.SettingsPath(), data, 0o644); err != nil {
		return types.E(types.KindFileIO, op, err)
	}
	t.log.Debug().Str("path", t.SettingsPath()).Msg("wrote settings")
	return nil
}

// WriteEnv replaces the env section of the current document with env and
// leaves every other key as it was.
func (t *Target) WriteEnv(env compose.Env) error {
	doc, err := t.Read()
	if err != nil {
		t.log.Warn().Err(err).Str("path", t.SettingsPath()).Msg("replacing unreadable settings file")
		doc = Policy{}
	}
	out := make(map[string]any, len(env))
	for k, v := range env {
		out[k] = v
	}
	doc["env"] = out
	return t.write("write env", doc)
}

// WriteSettings replaces the settings file with doc.
func (t *Target) WriteSettings(doc Policy) error {
	return t.write("write settings", doc)
}

// EnvConfig returns the string-valued entries of the env section.
func (t *Target) EnvConfig() (map[string]string, error) {
	doc, err := t.Read()
	if err != nil {
		return nil, err
	}
	out := map[string]string{}
	env, _ := doc["env"].(map[string]any)
	for k, v := range env {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out, nil
}

// ClearEnv removes the credential and endpoint keys from the env section,
// dropping the section when nothing is left.
func (t *Target) ClearEnv() error {
	doc, err := t.Read()
	if err != nil {
		return err
	}
	if env, ok := doc["env"].(map[string]any); ok {
		for _, k := range credentialKeys {
			delete(env, k)
		}
		if len(env) == 0 {
			delete(doc, "env")
		}
	}
	return t.write("clear env", doc)
}
