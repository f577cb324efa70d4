// Package cli implements the ccm command-line interface. Commands parse
// flags, call the store, engine, and backup service, and render results.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/ccmanager/internal/backup"
	"github.com/mesh-intelligence/ccmanager/internal/engine"
	"github.com/mesh-intelligence/ccmanager/internal/logging"
	"github.com/mesh-intelligence/ccmanager/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// skipStore marks commands that run without an attached store.
const skipStore = "ccm.skip-store"

// errDeclined is returned when the user answers no to a confirmation.
var errDeclined = errors.New("operation cancelled")

// app carries global flag values and the services built for one command run.
type app struct {
	configDir string
	dataDir   string
	jsonMode  bool
	verbose   bool
	yes       bool

	cfg     *viper.Viper
	log     *logging.Logger
	store   types.Store
	dbPath  string
	engine  *engine.Engine
	backups *backup.Service

	// confirm asks a yes/no question. Tests replace it.
	confirm func(title string) (bool, error)
	stderr  io.Writer
}

// newRootCmd creates the top-level "ccm" command with global flags and all
// subcommands registered.
func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "ccm",
		Short: "Manage configuration profiles for the .claude directory",
		Long: "ccm keeps accounts, endpoints, and project directories in a local store,\n" +
			"switches a directory to a profile by writing .claude/settings.local.json,\n" +
			"and backs the profile set up to WebDAV.",
		// Do not print usage on errors returned by subcommands.
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	root.PersistentFlags().StringVar(&a.configDir, "config-dir", "", "configuration directory (env CCM_CONFIG_DIR)")
	root.PersistentFlags().StringVar(&a.dataDir, "data-dir", "", "data directory holding "+types.DatabaseFileName+" (env CCM_DATA_DIR)")
	root.PersistentFlags().BoolVar(&a.jsonMode, "json", false, "output in JSON format")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log to stderr as well as the log file")
	root.PersistentFlags().BoolVarP(&a.yes, "yes", "y", false, "skip confirmation prompts")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(a),
		newAccountCmd(a),
		newDirCmd(a),
		newBaseURLCmd(a),
		newSwitchCmd(a),
		newCurrentCmd(a),
		newClearCmd(a),
		newAssocCmd(a),
		newSettingsCmd(a),
		newWebDAVCmd(a),
		newLogsCmd(a),
	)
	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	a := &app{confirm: huhConfirm, stderr: os.Stderr}
	err := run(a, newRootCmd(a), os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: ")+err.Error())
	}
	os.Exit(exitCode(err))
}

// run executes root with args and always releases the store and log, even
// when the command fails.
func run(a *app, root *cobra.Command, args []string) error {
	root.SetArgs(args)
	err := root.Execute()
	if terr := a.teardown(); err == nil {
		err = terr
	}
	return err
}

// exitCode maps an error to 1 for problems the user can fix and 2 for
// everything else.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitSuccess
	case errors.Is(err, errDeclined),
		errors.Is(err, types.ErrNotFound),
		errors.Is(err, types.ErrDuplicate),
		types.IsKind(err, types.KindValidation):
		return exitUserError
	case types.KindOf(err) != "":
		return exitSysError
	default:
		// Flag and argument errors from cobra.
		return exitUserError
	}
}

// setup loads configuration, opens the log, and attaches the store unless
// the command is marked skipStore.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	if err := a.loadConfig(); err != nil {
		return err
	}
	if err := a.openLog(); err != nil {
		return err
	}
	if _, ok := cmd.Annotations[skipStore]; ok {
		return nil
	}
	return a.attachStore()
}

func (a *app) teardown() error {
	var err error
	if a.store != nil {
		err = a.store.Detach()
		a.store = nil
	}
	if a.log != nil {
		if cerr := a.log.Close(); err == nil {
			err = cerr
		}
		a.log = nil
	}
	return err
}

// logger returns the process logger, or a no-op logger before setup.
func (a *app) logger() zerolog.Logger {
	if a.log == nil {
		return zerolog.Nop()
	}
	return a.log.Logger
}
