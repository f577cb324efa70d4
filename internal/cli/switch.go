package cli

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/ccmanager/internal/engine"
	"github.com/mesh-intelligence/ccmanager/pkg/types"
)

func newSwitchCmd(a *app) *cobra.Command {
	var (
		sandbox, isolation, skipPerms, keepMD bool
	)
	cmd := &cobra.Command{
		Use:   "switch <account> <directory>",
		Short: "Activate an account in a directory",
		Long: `Switch marks the pair active, writes the composed environment to
<directory>/.claude/settings.local.json, installs CLAUDE.local.md and the
bundled commands, and merges the stored permissions policy into the file.

Sandbox, isolation, and local-md defaults come from the switch.* config keys.

Example:
  ccm switch work ~/src/project
  ccm switch 2 api --no-sandbox --skip-permissions`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			acc, err := a.findAccount(args[0])
			if err != nil {
				return err
			}
			dir, err := a.findDirectory(args[1])
			if err != nil {
				return err
			}

			req := engine.SwitchRequest{
				AccountID:            acc.ID,
				DirectoryID:          dir.ID,
				Sandbox:              a.cfg.GetBool(cfgKeySwitchSandbox),
				Isolation:            a.cfg.GetBool(cfgKeySwitchIsolate),
				SkipPermissionChecks: skipPerms,
				KeepLocalMD:          a.cfg.GetBool(cfgKeySwitchKeepMD),
			}
			flags := cmd.Flags()
			if flags.Changed("sandbox") {
				req.Sandbox = sandbox
			}
			if flags.Changed("no-sandbox") {
				req.Sandbox = false
			}
			if flags.Changed("isolation") {
				req.Isolation = isolation
			}
			if flags.Changed("keep-local-md") {
				req.KeepLocalMD = keepMD
			}

			res, err := a.engine.Switch(cmd.Context(), req)
			if err != nil {
				return err
			}
			if a.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"account":         res.Account.Name,
					"directory":       res.Directory.Path,
					"settings_path":   res.SettingsPath,
					"env":             res.Env,
					"local_md_backup": res.LocalMDBackup,
					"warnings":        res.Warnings,
					"partial":         res.Partial(),
				})
			}
			out := cmd.OutOrStdout()
			success(out, "Switched %s to account %s", res.Directory.Path, res.Account.Name)
			fmt.Fprintf(out, "Settings: %s\n", res.SettingsPath)
			if res.BaseURL == nil {
				warn(out, "No base url row matches %s; token written under the default key", res.Account.BaseURL)
			}
			if res.LocalMDBackup != "" {
				fmt.Fprintf(out, "Backed up CLAUDE.local.md to %s\n", res.LocalMDBackup)
			}
			for _, w := range res.Warnings {
				warn(out, "Warning: %s", w)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&sandbox, "sandbox", true, "set IS_SANDBOX")
	cmd.Flags().Bool("no-sandbox", false, "do not set IS_SANDBOX")
	cmd.Flags().BoolVar(&isolation, "isolation", false, "also set CLAUDE_CODE_BUBBLEWRAP (with sandbox)")
	cmd.Flags().BoolVar(&skipPerms, "skip-permissions", false, "force bypassPermissions with an allow-all rule")
	cmd.Flags().BoolVar(&keepMD, "keep-local-md", false, "leave an existing CLAUDE.local.md untouched")
	return cmd
}

func newCurrentCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "current [directory]",
		Short: "Show the active pair, or what a directory currently holds",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				acc, dir, err := a.engine.Active()
				if err != nil {
					return err
				}
				if a.jsonMode {
					return printJSON(cmd.OutOrStdout(), map[string]any{"account": acc, "directory": dir})
				}
				out := cmd.OutOrStdout()
				if acc == nil && dir == nil {
					fmt.Fprintln(out, mutedStyle.Render("Nothing switched yet"))
					return nil
				}
				if acc != nil {
					fmt.Fprintf(out, "Account:   %s (%s)\n", acc.Name, acc.BaseURL)
				}
				if dir != nil {
					fmt.Fprintf(out, "Directory: %s\n", dir.Path)
				}
				return nil
			}

			dir, err := a.findDirectory(args[0])
			if err != nil {
				return err
			}
			cur, err := a.engine.CurrentConfig(dir.ID)
			if err != nil {
				return err
			}
			if a.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"directory":     cur.Directory.Path,
					"settings_path": cur.SettingsPath,
					"env":           cur.Env,
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Settings: %s\n", cur.SettingsPath)
			keys := make([]string, 0, len(cur.Env))
			for k := range cur.Env {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			rows := make([][]string, 0, len(keys))
			for _, k := range keys {
				rows = append(rows, []string{k, cur.Env[k]})
			}
			renderTable(out, []string{"Key", "Value"}, rows)
			return nil
		},
	}
}

func newClearCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <directory>",
		Short: "Remove credential and endpoint keys from a directory's settings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := a.findDirectory(args[0])
			if err != nil {
				return err
			}
			if err := a.engine.ClearCredentials(dir.ID); err != nil {
				return err
			}
			if a.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]any{"cleared": dir.Path, "status": "success"})
			}
			success(cmd.OutOrStdout(), "Cleared credentials in %s", dir.Path)
			return nil
		},
	}
}

func newAssocCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "assoc",
		Aliases: []string{"associations"},
		Short:   "List account and directory pairs that have been switched",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			assocs, err := a.store.ListAssociations()
			if err != nil {
				return err
			}
			if a.jsonMode {
				if assocs == nil {
					assocs = []types.Association{}
				}
				return printJSON(cmd.OutOrStdout(), assocs)
			}
			rows := make([][]string, 0, len(assocs))
			for _, as := range assocs {
				rows = append(rows, []string{
					strconv.FormatInt(as.AccountID, 10), as.AccountName,
					strconv.FormatInt(as.DirectoryID, 10), as.DirectoryPath,
					as.CreatedAt.Local().Format("2006-01-02 15:04"),
				})
			}
			renderTable(cmd.OutOrStdout(), []string{"Account ID", "Account", "Dir ID", "Directory", "Since"}, rows)
			return nil
		},
	}
}
