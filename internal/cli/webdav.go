package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/ccmanager/internal/backup"
	"github.com/mesh-intelligence/ccmanager/pkg/types"
)

func newWebDAVCmd(a *app) *cobra.Command {
	var profileRef string
	cmd := &cobra.Command{
		Use:   "webdav",
		Short: "Back up and restore the profile set over WebDAV",
		Long: `Commands that talk to a server use --profile (id or name), or the active
profile when --profile is not given.`,
	}
	cmd.PersistentFlags().StringVarP(&profileRef, "profile", "p", "", "WebDAV profile id or name (default: the active profile)")
	profile := func() (*types.WebDAVProfile, error) { return a.findProfile(profileRef) }

	cmd.AddCommand(
		newWebDAVAddCmd(a),
		newWebDAVListCmd(a),
		newWebDAVUpdateCmd(a),
		newWebDAVActivateCmd(a),
		newWebDAVDeleteCmd(a),
		newWebDAVTestCmd(a, profile),
		newWebDAVUploadCmd(a, profile),
		newWebDAVDownloadCmd(a, profile),
		newWebDAVRestoreCmd(a, profile),
		newWebDAVLsCmd(a, profile),
		newWebDAVRmCmd(a, profile),
		newWebDAVLogsCmd(a),
		newWebDAVAutoCmd(a),
	)
	return cmd
}

func newWebDAVAddCmd(a *app) *cobra.Command {
	var n types.NewWebDAVProfile
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Store a WebDAV profile",
		Long: `Example:
  ccm webdav add --name nas --url https://dav.example/remote.php/dav/files/me --user me --password secret
  ccm webdav add --name box --url https://dav.box --remote-path /backups/claude --auto-sync --interval 1800`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.store.CreateWebDAVProfile(n)
			if err != nil {
				return err
			}
			if a.jsonMode {
				return printJSON(cmd.OutOrStdout(), p)
			}
			success(cmd.OutOrStdout(), "Added WebDAV profile %d: %s", p.ID, p.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&n.Name, "name", "", "unique profile name (required)")
	cmd.Flags().StringVar(&n.URL, "url", "", "server URL (required)")
	cmd.Flags().StringVar(&n.Username, "user", "", "user name")
	cmd.Flags().StringVar(&n.Password, "password", "", "password")
	cmd.Flags().StringVar(&n.RemotePath, "remote-path", "", "remote directory (default "+types.DefaultRemotePath+")")
	cmd.Flags().BoolVar(&n.AutoSync, "auto-sync", false, "upload on an interval while 'ccm webdav auto' runs")
	cmd.Flags().IntVar(&n.SyncInterval, "interval", 0, "auto sync interval in seconds (default "+strconv.Itoa(types.DefaultSyncInterval)+")")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}

func newWebDAVListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List WebDAV profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			profiles, err := a.store.ListWebDAVProfiles()
			if err != nil {
				return err
			}
			if a.jsonMode {
				if profiles == nil {
					profiles = []types.WebDAVProfile{}
				}
				return printJSON(cmd.OutOrStdout(), profiles)
			}
			rows := make([][]string, 0, len(profiles))
			for _, p := range profiles {
				last := "never"
				if p.LastSyncAt != nil {
					last = p.LastSyncAt.Local().Format("2006-01-02 15:04:05")
				}
				auto := ""
				if p.AutoSync {
					auto = strconv.Itoa(p.SyncInterval) + "s"
				}
				rows = append(rows, []string{
					strconv.FormatInt(p.ID, 10), mark(p.IsActive), p.Name, p.URL, p.Username, p.RemotePath, auto, last,
				})
			}
			renderTable(cmd.OutOrStdout(), []string{"ID", "Active", "Name", "URL", "User", "Remote path", "Auto", "Last sync"}, rows)
			return nil
		},
	}
}

func newWebDAVUpdateCmd(a *app) *cobra.Command {
	var (
		name, url, user, password, remotePath string
		autoSync                              bool
		interval                              int
	)
	cmd := &cobra.Command{
		Use:   "update <id|name>",
		Short: "Change fields of a WebDAV profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.findProfile(args[0])
			if err != nil {
				return err
			}
			var u types.WebDAVProfileUpdate
			flags := cmd.Flags()
			if flags.Changed("name") {
				u.Name = &name
			}
			if flags.Changed("url") {
				u.URL = &url
			}
			if flags.Changed("user") {
				u.Username = &user
			}
			if flags.Changed("password") {
				u.Password = &password
			}
			if flags.Changed("remote-path") {
				u.RemotePath = &remotePath
			}
			if flags.Changed("auto-sync") {
				u.AutoSync = &autoSync
			}
			if flags.Changed("interval") {
				u.SyncInterval = &interval
			}
			updated, err := a.store.UpdateWebDAVProfile(p.ID, u)
			if err != nil {
				return err
			}
			if a.jsonMode {
				return printJSON(cmd.OutOrStdout(), updated)
			}
			success(cmd.OutOrStdout(), "Updated WebDAV profile %d: %s", updated.ID, updated.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVar(&url, "url", "", "new server URL")
	cmd.Flags().StringVar(&user, "user", "", "new user name")
	cmd.Flags().StringVar(&password, "password", "", "new password")
	cmd.Flags().StringVar(&remotePath, "remote-path", "", "new remote directory")
	cmd.Flags().BoolVar(&autoSync, "auto-sync", false, "enable or disable auto sync")
	cmd.Flags().IntVar(&interval, "interval", 0, "new auto sync interval in seconds")
	return cmd
}

func newWebDAVActivateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "activate <id|name>",
		Short: "Make a profile the active one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.findProfile(args[0])
			if err != nil {
				return err
			}
			active := true
			updated, err := a.store.UpdateWebDAVProfile(p.ID, types.WebDAVProfileUpdate{IsActive: &active})
			if err != nil {
				return err
			}
			if a.jsonMode {
				return printJSON(cmd.OutOrStdout(), updated)
			}
			success(cmd.OutOrStdout(), "Active WebDAV profile: %s", updated.Name)
			return nil
		},
	}
}

func newWebDAVDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id|name>",
		Short: "Delete a WebDAV profile and its sync log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.findProfile(args[0])
			if err != nil {
				return err
			}
			if err := a.confirmAction(fmt.Sprintf("Delete WebDAV profile %q and its sync log?", p.Name)); err != nil {
				return err
			}
			if err := a.store.DeleteWebDAVProfile(p.ID); err != nil {
				return err
			}
			if a.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]any{"deleted": p.ID, "status": "success"})
			}
			success(cmd.OutOrStdout(), "Deleted WebDAV profile %d: %s", p.ID, p.Name)
			return nil
		},
	}
}

type profileFunc func() (*types.WebDAVProfile, error)

func newWebDAVTestCmd(a *app, profile profileFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Check that the server answers and accepts the credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := profile()
			if err != nil {
				return err
			}
			if err := a.backups.Test(p.ID); err != nil {
				return err
			}
			if a.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]any{"profile": p.Name, "status": "ok"})
			}
			success(cmd.OutOrStdout(), "Connected to %s", p.URL)
			return nil
		},
	}
}

func newWebDAVUploadCmd(a *app, profile profileFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "upload [name]",
		Short: "Upload a snapshot of every account, base URL, and the policy",
		Long: `Upload writes a snapshot to the profile's remote directory. The default
name is claude-config-YYYYMMDD-HHMMSS.json.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := profile()
			if err != nil {
				return err
			}
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			run, err := a.backups.Upload(cmd.Context(), p.ID, name)
			if err != nil {
				return err
			}
			if a.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]any{"object": run.Object, "run_id": run.ID, "status": "success"})
			}
			success(cmd.OutOrStdout(), "Uploaded %s to %s", run.Object, p.Name)
			return nil
		},
	}
}

func newWebDAVDownloadCmd(a *app, profile profileFunc) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "download <name>",
		Short: "Fetch a snapshot without restoring it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := profile()
			if err != nil {
				return err
			}
			run, err := a.backups.Fetch(cmd.Context(), p.ID, args[0])
			if err != nil {
				return err
			}
			snap := run.Snapshot
			if output == "" {
				return printJSON(cmd.OutOrStdout(), snap)
			}
			f, err := os.Create(output)
			if err != nil {
				return types.E(types.KindFileIO, "save snapshot", err)
			}
			defer f.Close()
			if err := printJSON(f, snap); err != nil {
				return types.E(types.KindFileIO, "save snapshot", err)
			}
			success(cmd.OutOrStdout(), "Saved %s (%d accounts, %d base urls) to %s", args[0], len(snap.Accounts), len(snap.BaseURLs), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the snapshot to a file instead of stdout")
	return cmd
}

func newWebDAVRestoreCmd(a *app, profile profileFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <name>",
		Short: "Replace every account and base URL with a remote snapshot",
		Long: `Restore downloads a snapshot, deletes every account and base URL, and
recreates them from the snapshot. Directories are kept; their associations
with deleted accounts are not. Invalid records are skipped and counted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := profile()
			if err != nil {
				return err
			}
			title := fmt.Sprintf("Replace all accounts and base urls with %s from %s?", args[0], p.Name)
			if err := a.confirmAction(title); err != nil {
				return err
			}
			run, err := a.backups.Restore(cmd.Context(), p.ID, args[0])
			if err != nil {
				return err
			}
			rep := run.Report
			if a.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"object":             run.Object,
					"run_id":             run.ID,
					"accounts_imported":  rep.AccountsImported,
					"accounts_skipped":   rep.AccountsSkipped,
					"base_urls_imported": rep.BaseURLsImported,
					"base_urls_skipped":  rep.BaseURLsSkipped,
					"settings_restored":  rep.SettingsRestored,
					"problems":           rep.Problems,
				})
			}
			out := cmd.OutOrStdout()
			success(out, "Restored %s: %s", run.Object, rep)
			for _, prob := range rep.Problems {
				warn(out, "Skipped %s", prob)
			}
			return nil
		},
	}
}

func newWebDAVLsCmd(a *app, profile profileFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List snapshots in the remote directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := profile()
			if err != nil {
				return err
			}
			names, err := a.backups.List(p.ID)
			if err != nil {
				return err
			}
			if a.jsonMode {
				if names == nil {
					names = []string{}
				}
				return printJSON(cmd.OutOrStdout(), names)
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}
}

func newWebDAVRmCmd(a *app, profile profileFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <name>",
		Short: "Delete a snapshot from the remote directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := profile()
			if err != nil {
				return err
			}
			if err := a.confirmAction(fmt.Sprintf("Delete %s from %s?", args[0], p.Name)); err != nil {
				return err
			}
			if err := a.backups.Remove(p.ID, args[0]); err != nil {
				return err
			}
			if a.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]any{"deleted": args[0], "status": "success"})
			}
			success(cmd.OutOrStdout(), "Deleted %s", args[0])
			return nil
		},
	}
}

func newWebDAVLogsCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "logs [profile]",
		Short: "Show recorded sync runs, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var profileID int64
			if len(args) == 1 {
				p, err := a.findProfile(args[0])
				if err != nil {
					return err
				}
				profileID = p.ID
			}
			entries, err := a.store.ListSyncLogs(profileID, limit)
			if err != nil {
				return err
			}
			if a.jsonMode {
				if entries == nil {
					entries = []types.SyncLogEntry{}
				}
				return printJSON(cmd.OutOrStdout(), entries)
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					e.SyncedAt.Local().Format("2006-01-02 15:04:05"),
					strconv.FormatInt(e.ProfileID, 10), e.Direction, e.Status, e.Message,
				})
			}
			renderTable(cmd.OutOrStdout(), []string{"When", "Profile", "Direction", "Status", "Message"}, rows)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum entries (0 for all)")
	return cmd
}

func newWebDAVAutoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "auto",
		Short: "Upload snapshots on each auto-sync profile's interval until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.runAutoSync(ctx, cmd)
		},
	}
}

func (a *app) runAutoSync(ctx context.Context, cmd *cobra.Command) error {
	auto := backup.NewAutoSync(a.backups)
	profiles, err := auto.Profiles()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(profiles) == 0 {
		warn(out, "No profile has auto sync enabled")
		return nil
	}
	for _, p := range profiles {
		fmt.Fprintf(out, "Auto sync %s every %ds\n", p.Name, p.SyncInterval)
	}
	var mu sync.Mutex
	auto.OnRun = func(profileID int64, run *backup.Run, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			warn(out, "profile %d: %v", profileID, err)
			return
		}
		success(out, "profile %d: uploaded %s", profileID, run.Object)
	}
	return auto.Run(ctx)
}
