package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/ccmanager/internal/logging"
)

func newLogsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Locate or read the ccm log file",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:         "path",
			Short:       "Print the log file path",
			Args:        cobra.NoArgs,
			Annotations: map[string]string{skipStore: ""},
			RunE: func(cmd *cobra.Command, args []string) error {
				fmt.Fprintln(cmd.OutOrStdout(), a.logPath())
				return nil
			},
		},
		newLogsTailCmd(a),
	)
	return cmd
}

func newLogsTailCmd(a *app) *cobra.Command {
	var lines int
	cmd := &cobra.Command{
		Use:         "tail",
		Short:       "Print the last lines of the log file",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipStore: ""},
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := logging.Tail(a.logPath(), lines)
			if err != nil {
				return err
			}
			for _, l := range out {
				fmt.Fprintln(cmd.OutOrStdout(), l)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "number of lines (0 for all)")
	return cmd
}
