package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/ccmanager/internal/settings"
	"github.com/mesh-intelligence/ccmanager/pkg/types"
)

func newSettingsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or replace the stored permissions policy",
	}
	cmd.AddCommand(
		newSettingsShowCmd(a),
		newSettingsSetCmd(a),
		newSettingsResetCmd(a),
		newSettingsTemplatesCmd(a),
	)
	return cmd
}

func newSettingsShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the stored policy, or the built-in one when none is stored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc := settings.DefaultPolicyJSON()
			stored := false
			blob, err := a.store.GetSettings()
			switch {
			case err == nil:
				doc, stored = blob.JSON, true
			case !errors.Is(err, types.ErrNotFound):
				return err
			}

			var buf bytes.Buffer
			if err := json.Indent(&buf, []byte(doc), "", "  "); err != nil {
				return types.E(types.KindValidation, "show settings", err)
			}
			if !stored && !a.jsonMode {
				fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("# built-in default; nothing stored"))
			}
			fmt.Fprintln(cmd.OutOrStdout(), buf.String())
			return nil
		},
	}
}

func newSettingsSetCmd(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "set [json]",
		Short: "Store a new policy document",
		Long: `Set stores a JSON object as the permissions policy merged into every
switch. Pass the document inline, with --file, or on stdin with --file -.

Example:
  ccm settings set '{"permissions":{"defaultMode":"plan"}}'
  ccm settings set --file policy.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			switch {
			case len(args) == 1 && file != "":
				return types.E(types.KindValidation, "set settings", fmt.Errorf("pass the document inline or with --file, not both"))
			case len(args) == 1:
				data = []byte(args[0])
			case file == "-":
				data, err = io.ReadAll(cmd.InOrStdin())
			case file != "":
				data, err = os.ReadFile(file)
			default:
				return types.E(types.KindValidation, "set settings", fmt.Errorf("no document given"))
			}
			if err != nil {
				return types.E(types.KindFileIO, "set settings", err)
			}

			if _, err := settings.ParsePolicy(string(data)); err != nil {
				return err
			}
			var compact bytes.Buffer
			if err := json.Compact(&compact, data); err != nil {
				return types.E(types.KindValidation, "set settings", err)
			}
			blob, err := a.store.SaveSettings(compact.String())
			if err != nil {
				return err
			}
			if a.jsonMode {
				return printJSON(cmd.OutOrStdout(), blob)
			}
			success(cmd.OutOrStdout(), "Stored policy")
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read the document from a file (- for stdin)")
	return cmd
}

func newSettingsResetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Store the built-in policy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.confirmAction("Replace the stored policy with the built-in default?"); err != nil {
				return err
			}
			blob, err := a.store.SaveSettings(settings.DefaultPolicyJSON())
			if err != nil {
				return err
			}
			if a.jsonMode {
				return printJSON(cmd.OutOrStdout(), blob)
			}
			success(cmd.OutOrStdout(), "Policy reset to the built-in default")
			return nil
		},
	}
}

func newSettingsTemplatesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "templates",
		Short:       "List the command templates installed into .claude/commands on switch",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipStore: ""},
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := settings.CommandTemplates()
			if err != nil {
				return err
			}
			if a.jsonMode {
				return printJSON(cmd.OutOrStdout(), names)
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}
}
