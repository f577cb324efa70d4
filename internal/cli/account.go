package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/ccmanager/pkg/types"
)

func newAccountCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "account",
		Aliases: []string{"accounts"},
		Short:   "Manage accounts (credential + endpoint)",
	}
	cmd.AddCommand(
		newAccountAddCmd(a),
		newAccountListCmd(a),
		newAccountShowCmd(a),
		newAccountUpdateCmd(a),
		newAccountDeleteCmd(a),
		newAccountURLsCmd(a),
	)
	return cmd
}

func newAccountAddCmd(a *app) *cobra.Command {
	var (
		n   types.NewAccount
		env []string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create an account",
		Long: `Add stores a named credential bound to an endpoint URL. The endpoint is
matched by URL when switching; it need not be registered as a base URL.

Example:
  ccm account add --name work --token sk-... --base-url https://api.anthropic.com
  ccm account add --name proxy --token abc --base-url https://proxy --env ANTHROPIC_MODEL=opus`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			vars, err := parseEnvPairs(env)
			if err != nil {
				return err
			}
			n.CustomEnvVars = vars
			account, err := a.store.CreateAccount(n)
			if err != nil {
				return err
			}
			if a.jsonMode {
				return printJSON(cmd.OutOrStdout(), account)
			}
			success(cmd.OutOrStdout(), "Created account %d: %s", account.ID, account.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&n.Name, "name", "", "unique account name (required)")
	cmd.Flags().StringVar(&n.Token, "token", "", "credential (required)")
	cmd.Flags().StringVar(&n.BaseURL, "base-url", "", "endpoint URL (required)")
	cmd.Flags().StringVar(&n.Model, "model", "", "model name (default "+types.DefaultModel+")")
	cmd.Flags().StringArrayVar(&env, "env", nil, "custom env var KEY=VALUE (repeatable)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("token")
	_ = cmd.MarkFlagRequired("base-url")
	return cmd
}

func newAccountListCmd(a *app) *cobra.Command {
	var (
		f         types.AccountFilter
		showToken bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Long: `List shows accounts, newest first. --search matches name or token.

Example:
  ccm account list
  ccm account list --search work --base-url https://api.anthropic.com --limit 10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			accounts, err := a.store.ListAccounts(f)
			if err != nil {
				return err
			}
			if a.jsonMode {
				if accounts == nil {
					accounts = []types.Account{}
				}
				return printJSON(cmd.OutOrStdout(), accounts)
			}
			rows := make([][]string, 0, len(accounts))
			for _, acc := range accounts {
				tok := maskToken(acc.Token)
				if showToken {
					tok = acc.Token
				}
				rows = append(rows, []string{
					strconv.FormatInt(acc.ID, 10), mark(acc.IsActive), acc.Name, tok, acc.BaseURL, acc.Model, formatEnv(acc.CustomEnvVars),
				})
			}
			renderTable(cmd.OutOrStdout(), []string{"ID", "Active", "Name", "Token", "Base URL", "Model", "Env"}, rows)
			return nil
		},
	}
	cmd.Flags().StringVar(&f.Search, "search", "", "substring of name or token")
	cmd.Flags().StringVar(&f.BaseURL, "base-url", "", "exact endpoint URL")
	cmd.Flags().IntVar(&f.Limit, "limit", 0, "maximum rows (0 for all)")
	cmd.Flags().IntVar(&f.Offset, "offset", 0, "rows to skip")
	cmd.Flags().BoolVar(&showToken, "show-token", false, "print tokens unmasked")
	return cmd
}

func newAccountShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id|name>",
		Short: "Show one account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			acc, err := a.findAccount(args[0])
			if err != nil {
				return err
			}
			if a.jsonMode {
				return printJSON(cmd.OutOrStdout(), acc)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:       %d\n", acc.ID)
			fmt.Fprintf(out, "Name:     %s\n", acc.Name)
			fmt.Fprintf(out, "Token:    %s\n", maskToken(acc.Token))
			fmt.Fprintf(out, "Base URL: %s\n", acc.BaseURL)
			fmt.Fprintf(out, "Model:    %s\n", acc.Model)
			fmt.Fprintf(out, "Active:   %t\n", acc.IsActive)
			fmt.Fprintf(out, "Env:      %s\n", formatEnv(acc.CustomEnvVars))
			return nil
		},
	}
}

func newAccountUpdateCmd(a *app) *cobra.Command {
	var (
		name, token, baseURL, model string
		env                         []string
		clearEnv                    bool
	)
	cmd := &cobra.Command{
		Use:   "update <id|name>",
		Short: "Change fields of an account",
		Long: `Update changes only the flags given. --env replaces the custom env map;
--clear-env empties it. Neither leaves it unchanged.

Example:
  ccm account update work --token sk-new
  ccm account update work --env ANTHROPIC_MODEL=opus --env DEBUG=1
  ccm account update work --clear-env`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			acc, err := a.findAccount(args[0])
			if err != nil {
				return err
			}
			var u types.AccountUpdate
			flags := cmd.Flags()
			if flags.Changed("name") {
				u.Name = &name
			}
			if flags.Changed("token") {
				u.Token = &token
			}
			if flags.Changed("base-url") {
				u.BaseURL = &baseURL
			}
			if flags.Changed("model") {
				u.Model = &model
			}
			if u.CustomEnvVars, err = envUpdate(env, clearEnv); err != nil {
				return err
			}

			updated, err := a.store.UpdateAccount(acc.ID, u)
			if err != nil {
				return err
			}
			if a.jsonMode {
				return printJSON(cmd.OutOrStdout(), updated)
			}
			success(cmd.OutOrStdout(), "Updated account %d: %s", updated.ID, updated.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVar(&token, "token", "", "new credential")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "new endpoint URL")
	cmd.Flags().StringVar(&model, "model", "", "new model")
	cmd.Flags().StringArrayVar(&env, "env", nil, "custom env var KEY=VALUE (repeatable); replaces the map")
	cmd.Flags().BoolVar(&clearEnv, "clear-env", false, "remove every custom env var")
	return cmd
}

func newAccountDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id|name>",
		Short: "Delete an account and its associations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			acc, err := a.findAccount(args[0])
			if err != nil {
				return err
			}
			if err := a.store.DeleteAccount(acc.ID); err != nil {
				return err
			}
			if a.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]any{"deleted": acc.ID, "status": "success"})
			}
			success(cmd.OutOrStdout(), "Deleted account %d: %s", acc.ID, acc.Name)
			return nil
		},
	}
}

func newAccountURLsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "urls",
		Short: "List the distinct endpoint URLs accounts use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			urls, err := a.store.ListAccountBaseURLs()
			if err != nil {
				return err
			}
			if a.jsonMode {
				if urls == nil {
					urls = []string{}
				}
				return printJSON(cmd.OutOrStdout(), urls)
			}
			for _, u := range urls {
				fmt.Fprintln(cmd.OutOrStdout(), u)
			}
			return nil
		},
	}
}
