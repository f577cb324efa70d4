package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/ccmanager/pkg/types"
)

func newBaseURLCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "baseurl",
		Aliases: []string{"baseurls", "endpoint"},
		Short:   "Manage API endpoints",
	}
	cmd.AddCommand(
		newBaseURLAddCmd(a),
		newBaseURLListCmd(a),
		newBaseURLUpdateCmd(a),
		newBaseURLDeleteCmd(a),
	)
	return cmd
}

func newBaseURLAddCmd(a *app) *cobra.Command {
	var (
		n   types.NewBaseURL
		env []string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register an endpoint",
		Long: `Add registers an endpoint. --api-key names the env key the account token
is written under (default ` + types.DefaultAPIKeyName + `). --default makes this the only
default endpoint.

Example:
  ccm baseurl add --name proxy --url https://proxy.example --api-key ANTHROPIC_AUTH_TOKEN
  ccm baseurl add --name official --url https://api.anthropic.com --default --env DISABLE_COST_WARNINGS=1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			vars, err := parseEnvPairs(env)
			if err != nil {
				return err
			}
			n.DefaultEnvVars = vars
			b, err := a.store.CreateBaseURL(n)
			if err != nil {
				return err
			}
			if a.jsonMode {
				return printJSON(cmd.OutOrStdout(), b)
			}
			success(cmd.OutOrStdout(), "Added base url %d: %s (%s)", b.ID, b.Name, b.URL)
			return nil
		},
	}
	cmd.Flags().StringVar(&n.Name, "name", "", "unique name (required)")
	cmd.Flags().StringVar(&n.URL, "url", "", "unique endpoint URL (required)")
	cmd.Flags().StringVar(&n.Description, "description", "", "free text")
	cmd.Flags().StringVar(&n.APIKey, "api-key", "", "env key name for the token")
	cmd.Flags().BoolVar(&n.IsDefault, "default", false, "make this the default endpoint")
	cmd.Flags().StringArrayVar(&env, "env", nil, "default env var KEY=VALUE (repeatable)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}

func newBaseURLListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List endpoints, default first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			urls, err := a.store.ListBaseURLs()
			if err != nil {
				return err
			}
			if a.jsonMode {
				if urls == nil {
					urls = []types.BaseURL{}
				}
				return printJSON(cmd.OutOrStdout(), urls)
			}
			rows := make([][]string, 0, len(urls))
			for _, b := range urls {
				rows = append(rows, []string{
					strconv.FormatInt(b.ID, 10), mark(b.IsDefault), b.Name, b.URL, b.KeyName(), formatEnv(b.DefaultEnvVars), b.Description,
				})
			}
			renderTable(cmd.OutOrStdout(), []string{"ID", "Default", "Name", "URL", "Key", "Env", "Description"}, rows)
			return nil
		},
	}
}

func newBaseURLUpdateCmd(a *app) *cobra.Command {
	var (
		name, url, description, apiKey string
		isDefault                      bool
		env                            []string
		clearEnv                       bool
	)
	cmd := &cobra.Command{
		Use:   "update <id|name|url>",
		Short: "Change fields of an endpoint",
		Long: `Update changes only the flags given. Changing --url also rewrites the
base URL of every account that used the old one.

Example:
  ccm baseurl update proxy --url https://proxy2.example
  ccm baseurl update proxy --default
  ccm baseurl update proxy --clear-env`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.findBaseURL(args[0])
			if err != nil {
				return err
			}
			var u types.BaseURLUpdate
			flags := cmd.Flags()
			if flags.Changed("name") {
				u.Name = &name
			}
			if flags.Changed("url") {
				u.URL = &url
			}
			if flags.Changed("description") {
				u.Description = &description
			}
			if flags.Changed("api-key") {
				u.APIKey = &apiKey
			}
			if flags.Changed("default") {
				u.IsDefault = &isDefault
			}
			if u.DefaultEnvVars, err = envUpdate(env, clearEnv); err != nil {
				return err
			}

			updated, err := a.store.UpdateBaseURL(b.ID, u)
			if err != nil {
				return err
			}
			if a.jsonMode {
				return printJSON(cmd.OutOrStdout(), updated)
			}
			success(cmd.OutOrStdout(), "Updated base url %d: %s (%s)", updated.ID, updated.Name, updated.URL)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVar(&url, "url", "", "new URL; accounts follow")
	cmd.Flags().StringVar(&description, "description", "", "new description")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "new env key name for the token")
	cmd.Flags().BoolVar(&isDefault, "default", false, "set or clear the default flag")
	cmd.Flags().StringArrayVar(&env, "env", nil, "default env var KEY=VALUE (repeatable); replaces the map")
	cmd.Flags().BoolVar(&clearEnv, "clear-env", false, "remove every default env var")
	return cmd
}

func newBaseURLDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id|name|url>",
		Short: "Delete an endpoint and every account that uses it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.findBaseURL(args[0])
			if err != nil {
				return err
			}
			dependents, err := a.store.ListAccounts(types.AccountFilter{BaseURL: b.URL})
			if err != nil {
				return err
			}
			title := fmt.Sprintf("Delete base url %q and its %d account(s)?", b.Name, len(dependents))
			if err := a.confirmAction(title); err != nil {
				return err
			}

			removed, err := a.store.DeleteBaseURL(b.ID)
			if err != nil {
				return err
			}
			if a.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]any{"deleted": b.ID, "accounts_deleted": removed, "status": "success"})
			}
			success(cmd.OutOrStdout(), "Deleted base url %d: %s (%d account(s) removed)", b.ID, b.Name, removed)
			return nil
		},
	}
}
