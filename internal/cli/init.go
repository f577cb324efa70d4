package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/ccmanager/pkg/types"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config.yaml and create the store",
		Long: `Init writes config.yaml into the config directory when it is missing,
then opens the store, creating ` + types.DatabaseFileName + ` and seeding the
default endpoint.

Example:
  ccm init
  ccm init --config-dir ./conf --data-dir ./data`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Only an explicit --data-dir is pinned into the new config.
			pinned := ""
			if cmd.Flags().Changed("data-dir") {
				pinned = a.dataDir
			}
			written, err := writeConfigIfMissing(a.configPath(), pinned)
			if err != nil {
				return types.E(types.KindConfiguration, "init", err)
			}

			if a.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"config":         a.configPath(),
					"config_written": written,
					"store":          a.dbPath,
				})
			}
			out := cmd.OutOrStdout()
			if written {
				fmt.Fprintf(out, "Wrote %s\n", a.configPath())
			} else {
				fmt.Fprintf(out, "Config exists: %s\n", a.configPath())
			}
			fmt.Fprintf(out, "Store ready: %s\n", a.dbPath)
			return nil
		},
	}
}
