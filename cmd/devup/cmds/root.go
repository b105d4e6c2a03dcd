package cmds

import (
	"fmt"
	"os"

	"github.com/datachat-labs/devup/pkg/registry"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// NewRootCmd builds the devup command tree. Unknown or missing subcommands
// print usage and surface as ErrUsage so main can exit 1 without launching
// anything.
func NewRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:     "devup",
		Short:   "devup starts the local dev environment services",
		Version: version,
		Long: `devup starts the services of the local dev environment: the Redis
cache/broker (via its compose definition in the redis/ subdirectory), the
background task worker, and the API server.

Run a single service in the foreground, or 'devup all' to start the whole
stack in dependency order, each service detached into its own process group
with logs under .devup/logs/.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initLogging(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "unrecognized command %q\n\n", args[0])
			}
			_ = cmd.Help()
			return ErrUsage
		},
	}

	addRootFlags(root)

	root.AddCommand(newServiceCmd(registry.CommandServer))
	root.AddCommand(newServiceCmd(registry.CommandWorker))
	root.AddCommand(newServiceCmd(registry.CommandRedis))
	root.AddCommand(newAllCmd())
	root.AddCommand(newStatusCmd())
	return root
}

func addRootFlags(root *cobra.Command) {
	root.PersistentFlags().String("repo-root", "", "Repository root (defaults to current directory)")
	root.PersistentFlags().String("config", "", "Path to config file (defaults to .devup.yaml under repo-root)")
	root.PersistentFlags().Bool("dry-run", false, "Print launch commands without spawning anything")
	root.PersistentFlags().String("log-level", "info", "Log level (trace|debug|info|warn|error)")
}

func initLogging(cmd *cobra.Command) error {
	levelStr, err := cmd.Root().PersistentFlags().GetString("log-level")
	if err != nil {
		return err
	}
	level, err := zerolog.ParseLevel(levelStr)
	if err != nil {
		return errors.Wrapf(err, "invalid log level %q", levelStr)
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	return nil
}
