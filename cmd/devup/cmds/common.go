package cmds

import (
	"os"
	"path/filepath"
	"time"

	"github.com/datachat-labs/devup/pkg/config"
	"github.com/datachat-labs/devup/pkg/launch"
	"github.com/datachat-labs/devup/pkg/registry"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	RepoRoot string
	Config   string
	DryRun   bool
}

func getRootOptions(cmd *cobra.Command) (rootOptions, error) {
	repoRoot, err := cmd.Root().PersistentFlags().GetString("repo-root")
	if err != nil {
		return rootOptions{}, err
	}
	if repoRoot == "" {
		repoRoot, err = os.Getwd()
		if err != nil {
			return rootOptions{}, err
		}
	}
	repoRoot, err = filepath.Abs(repoRoot)
	if err != nil {
		return rootOptions{}, err
	}

	cfgPath, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return rootOptions{}, err
	}
	if cfgPath == "" {
		cfgPath = config.DefaultPath(repoRoot)
	} else if !filepath.IsAbs(cfgPath) {
		cfgPath = filepath.Join(repoRoot, cfgPath)
	}

	dryRun, err := cmd.Root().PersistentFlags().GetBool("dry-run")
	if err != nil {
		return rootOptions{}, err
	}

	return rootOptions{
		RepoRoot: repoRoot,
		Config:   cfgPath,
		DryRun:   dryRun,
	}, nil
}

// loadPlan resolves the effective service table: the built-in registry table
// with the optional repo config applied on top.
func loadPlan(opts rootOptions) ([]registry.ServiceDefinition, config.Settings, error) {
	cfg, err := config.LoadOptional(opts.Config)
	if err != nil {
		return nil, config.Settings{}, err
	}
	return config.Apply(cfg, registry.Table())
}

func newLauncher(cmd *cobra.Command, opts rootOptions) *launch.Launcher {
	return launch.New(launch.Options{
		RepoRoot: opts.RepoRoot,
		DryRun:   opts.DryRun,
		Stdin:    cmd.InOrStdin(),
		Stdout:   cmd.OutOrStdout(),
		Stderr:   cmd.ErrOrStderr(),
	})
}

const defaultReadyTimeout = 30 * time.Second
