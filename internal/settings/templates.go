package settings

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/mesh-intelligence/ccmanager/pkg/types"
)

//go:embed templates
var templateFS embed.FS

// backupLayout is the timestamp suffix for replaced CLAUDE.local.md files.
const backupLayout = "20060102_150405"

// InstallLocalMD copies the bundled CLAUDE.local.md into the directory root.
// An existing file is first copied to CLAUDE.local.md.backup_<timestamp>
// unless keep is set, in which case the existing file is left untouched.
// It returns the backup path, or "" when no backup was made.
func (t *Target) InstallLocalMD(keep bool) (string, error) {
	dst := filepath.Join(t.Dir, LocalMDFileName)

	existing, err := os.ReadFile(dst)
	switch {
	case err == nil && keep:
		t.log.Debug().Str("path", dst).Msg("keeping existing CLAUDE.local.md")
		return "", nil
	case err != nil && !os.IsNotExist(err):
		return "", types.E(types.KindFileIO, "install CLAUDE.local.md", err)
	}

	content, err := templateFS.ReadFile(path.Join("templates", LocalMDFileName))
	if err != nil {
		return "", types.E(types.KindFileIO, "install CLAUDE.local.md", err)
	}

	var backup string
	if existing != nil {
		backup = fmt.Sprintf("%s.backup_%s", dst, t.now().Format(backupLayout))
		if err := os.WriteFile(backup, existing, 0o644); err != nil {
			return "", types.E(types.KindFileIO, "back up CLAUDE.local.md", err)
		}
		t.log.Info().Str("backup", backup).Msg("backed up CLAUDE.local.md")
	}

	if err := os.WriteFile(dst, content, 0o644); err != nil {
		return backup, types.E(types.KindFileIO, "install CLAUDE.local.md", err)
	}
	return backup, nil
}

// InstallCommands copies every bundled command template into
// <dir>/.claude/commands, overwriting files of the same name. It returns the
// written paths.
func (t *Target) InstallCommands() ([]string, error) {
	dstDir := filepath.Join(t.ClaudeDir(), CommandsDirName)
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return nil, types.E(types.KindFileIO, "install commands", err)
	}

	root := path.Join("templates", CommandsDirName)
	var written []string
	err := fs.WalkDir(templateFS, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel := p[len(root):]
		if rel == "" {
			return nil
		}
		dst := filepath.Join(dstDir, filepath.FromSlash(rel[1:]))
		if d.IsDir() {
			return os.MkdirAll(dst, 0o755)
		}
		data, err := templateFS.ReadFile(p)
		if err != nil {
			return err
		}
		if err := os.WriteFile(dst, data, 0o644); err != nil {
			return err
		}
		written = append(written, dst)
		return nil
	})
	if err != nil {
		return written, types.E(types.KindFileIO, "install commands", err)
	}
	return written, nil
}

// CommandTemplates lists the bundled command template names.
func CommandTemplates() ([]string, error) {
	entries, err := templateFS.ReadDir(path.Join("templates", CommandsDirName))
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
