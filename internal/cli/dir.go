package cli

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/ccmanager/pkg/types"
)

// dirView is a directory with its on-disk status.
type dirView struct {
	types.Directory
	Exists bool `json:"exists"`
}

func pathExists(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && fi.IsDir()
}

func newDirCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "dir",
		Aliases: []string{"dirs", "directory"},
		Short:   "Manage target directories",
	}
	cmd.AddCommand(
		newDirAddCmd(a),
		newDirListCmd(a),
		newDirUpdateCmd(a),
		newDirDeleteCmd(a),
	)
	return cmd
}

func newDirAddCmd(a *app) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "add <path>",
		Short: "Register a directory",
		Long: `Add registers a directory that can receive settings on switch. The path
is stored as an absolute path; --name defaults to its base name.

Example:
  ccm dir add ~/src/project
  ccm dir add . --name api`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			abs, err := filepath.Abs(args[0])
			if err != nil {
				return types.E(types.KindValidation, "add directory", err)
			}
			if name == "" {
				name = filepath.Base(abs)
			}
			dir, err := a.store.CreateDirectory(types.NewDirectory{Path: abs, Name: name})
			if err != nil {
				return err
			}
			if a.jsonMode {
				return printJSON(cmd.OutOrStdout(), dirView{*dir, pathExists(dir.Path)})
			}
			success(cmd.OutOrStdout(), "Added directory %d: %s", dir.ID, dir.Path)
			if !pathExists(dir.Path) {
				warn(cmd.OutOrStdout(), "Path does not exist yet; it is created on switch")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name (default: base name of the path)")
	return cmd
}

func newDirListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List directories and whether they exist on disk",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dirs, err := a.store.ListDirectories()
			if err != nil {
				return err
			}
			views := make([]dirView, len(dirs))
			for i, d := range dirs {
				views[i] = dirView{d, pathExists(d.Path)}
			}
			if a.jsonMode {
				return printJSON(cmd.OutOrStdout(), views)
			}
			rows := make([][]string, 0, len(views))
			for _, v := range views {
				exists := "yes"
				if !v.Exists {
					exists = "missing"
				}
				rows = append(rows, []string{strconv.FormatInt(v.ID, 10), mark(v.IsActive), v.Name, v.Path, exists})
			}
			renderTable(cmd.OutOrStdout(), []string{"ID", "Active", "Name", "Path", "On disk"}, rows)
			return nil
		},
	}
}

func newDirUpdateCmd(a *app) *cobra.Command {
	var name, path string
	cmd := &cobra.Command{
		Use:   "update <id|name|path>",
		Short: "Rename or move a directory entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := a.findDirectory(args[0])
			if err != nil {
				return err
			}
			var u types.DirectoryUpdate
			if cmd.Flags().Changed("name") {
				u.Name = &name
			}
			if cmd.Flags().Changed("path") {
				abs, err := filepath.Abs(path)
				if err != nil {
					return types.E(types.KindValidation, "update directory", err)
				}
				u.Path = &abs
			}
			updated, err := a.store.UpdateDirectory(dir.ID, u)
			if err != nil {
				return err
			}
			if a.jsonMode {
				return printJSON(cmd.OutOrStdout(), dirView{*updated, pathExists(updated.Path)})
			}
			success(cmd.OutOrStdout(), "Updated directory %d: %s", updated.ID, updated.Path)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new display name")
	cmd.Flags().StringVar(&path, "path", "", "new path")
	return cmd
}

func newDirDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id|name|path>",
		Short: "Forget a directory and its associations (files are left alone)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := a.findDirectory(args[0])
			if err != nil {
				return err
			}
			if err := a.store.DeleteDirectory(dir.ID); err != nil {
				return err
			}
			if a.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]any{"deleted": dir.ID, "status": "success"})
			}
			success(cmd.OutOrStdout(), "Deleted directory %d: %s", dir.ID, dir.Path)
			return nil
		},
	}
}
