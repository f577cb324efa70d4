package settings

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/ccmanager/internal/compose"
	"github.com/mesh-intelligence/ccmanager/pkg/types"
)

func readJSON(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	return doc
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestWriteEnvCreatesClaudeDir(t *testing.T) {
	dir := t.TempDir()
	target := NewTarget(dir)

	require.NoError(t, target.WriteEnv(compose.Env{"ANTHROPIC_API_KEY": "tok1", "N": int64(3)}))

	doc := readJSON(t, filepath.Join(dir, ".claude", "settings.local.json"))
	assert.Equal(t, map[string]any{"ANTHROPIC_API_KEY": "tok1", "N": 3.0}, doc["env"])

	data, err := os.ReadFile(target.SettingsPath())
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"env\"", "output is pretty-printed")
}

func TestWriteEnvReplacesOnlyEnv(t *testing.T) {
	dir := t.TempDir()
	target := NewTarget(dir)
	writeFile(t, target.SettingsPath(), `{"env":{"OLD":"x"},"permissions":{"defaultMode":"plan"}}`)

	require.NoError(t, target.WriteEnv(compose.Env{"NEW": "y"}))

	doc := readJSON(t, target.SettingsPath())
	assert.Equal(t, map[string]any{"NEW": "y"}, doc["env"])
	assert.Equal(t, map[string]any{"defaultMode": "plan"}, doc["permissions"])
}

func TestWriteEnvOverwritesCorruptFile(t *testing.T) {
	dir := t.TempDir()
	target := NewTarget(dir)
	writeFile(t, target.SettingsPath(), `{"env":`)

	require.NoError(t, target.WriteEnv(compose.Env{"A": "1"}))
	assert.Equal(t, map[string]any{"A": "1"}, readJSON(t, target.SettingsPath())["env"])
}

func TestWriteFailureIsFileIOError(t *testing.T) {
	notADir := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(notADir, []byte("x"), 0o644))

	err := NewTarget(notADir).WriteEnv(compose.Env{"A": "1"})
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.KindFileIO))

	err = NewTarget(notADir).WriteSettings(Policy{})
	assert.True(t, types.IsKind(err, types.KindFileIO))
}

func TestReadFallbacks(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		want  Policy
	}{
		{
			name: "nothing present",
			want: Policy{},
		},
		{
			name:  "settings.json",
			files: map[string]string{".claude/settings.json": `{"env":{"A":"1"}}`},
			want:  Policy{"env": map[string]any{"A": "1"}},
		},
		{
			name: "invalid alternative is skipped",
			files: map[string]string{
				".claude/settings.json":      `not json`,
				".claude/claude_config.json": `{"env":{"B":"2"}}`,
			},
			want: Policy{"env": map[string]any{"B": "2"}},
		},
		{
			name:  "dot claude_config",
			files: map[string]string{".claude_config": `{"model":"m"}`},
			want:  Policy{"model": "m"},
		},
		{
			name:  "CLAUDE.md key lines",
			files: map[string]string{"CLAUDE.md": "# notes\n  ANTHROPIC_API_KEY= sk-1 \nANTHROPIC_BASE_URL=https://x\nOTHER=1\n"},
			want:  Policy{"env": map[string]any{"ANTHROPIC_API_KEY": "sk-1", "ANTHROPIC_BASE_URL": "https://x"}},
		},
		{
			name:  "CLAUDE.md without keys",
			files: map[string]string{"CLAUDE.md": "# just docs\n"},
			want:  Policy{},
		},
		{
			name: "settings.local.json wins",
			files: map[string]string{
				".claude/settings.local.json": `{"env":{"LOCAL":"1"}}`,
				".claude/settings.json":       `{"env":{"A":"1"}}`,
			},
			want: Policy{"env": map[string]any{"LOCAL": "1"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for name, content := range tt.files {
				writeFile(t, filepath.Join(dir, filepath.FromSlash(name)), content)
			}
			got, err := NewTarget(dir).Read()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEnvConfigAndClear(t *testing.T) {
	dir := t.TempDir()
	target := NewTarget(dir)
	require.NoError(t, target.WriteEnv(compose.Env{
		"ANTHROPIC_API_KEY":  "tok",
		"ANTHROPIC_BASE_URL": "https://x",
		"DISABLE_TELEMETRY":  int64(1),
		"KEEP":               "v",
	}))

	env, err := target.EnvConfig()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"ANTHROPIC_API_KEY": "tok", "ANTHROPIC_BASE_URL": "https://x", "KEEP": "v"}, env)

	require.NoError(t, target.ClearEnv())
	env, err = target.EnvConfig()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"KEEP": "v"}, env)

	require.NoError(t, target.WriteEnv(compose.Env{"ANTHROPIC_API_KEY": "tok"}))
	require.NoError(t, target.ClearEnv())
	assert.NotContains(t, readJSON(t, target.SettingsPath()), "env")
}
