package cmds

import (
	"fmt"
	"time"

	"github.com/datachat-labs/devup/pkg/launch"
	"github.com/datachat-labs/devup/pkg/state"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newAllCmd() *cobra.Command {
	var noReady bool
	var startDelay time.Duration
	var readyTimeout time.Duration

	cmd := &cobra.Command{
		Use:   "all",
		Short: "Start redis, then the worker and the API server, detached",
		Long: `Start the whole dev environment in dependency order.

The cache/broker is launched first, detached. Dependents are held back until
it answers a Redis PING (or, with --no-ready, until a fixed delay elapses),
then the worker and the API server are launched detached. Each service runs
in its own process group with logs under .devup/logs/; devup itself returns
as soon as all launches are issued.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := getRootOptions(cmd)
			if err != nil {
				return err
			}
			defs, settings, err := loadPlan(opts)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("start-delay") {
				settings.StartDelay = startDelay
			}
			if noReady {
				settings.Ready = false
			}
			if opts.DryRun {
				// Nothing is spawned, so there is nothing to gate on.
				settings.Ready = false
				settings.StartDelay = 0
			}

			seq := launch.NewSequencer(newLauncher(cmd, opts), launch.SequencerOptions{
				StartDelay:   settings.StartDelay,
				ReadyTimeout: readyTimeout,
				UseReadiness: settings.Ready,
			})
			results, err := seq.Up(cmd.Context(), defs)
			if err != nil {
				return err
			}

			st := &state.State{RepoRoot: opts.RepoRoot, CreatedAt: time.Now()}
			failed := 0
			for _, res := range results {
				if res.Err != nil {
					failed++
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", res.Service, res.Err)
					continue
				}
				if res.PID > 0 {
					st.Services = append(st.Services, state.ServiceRecord{
						Name:      res.Service,
						PID:       res.PID,
						StdoutLog: res.StdoutLog,
						StderrLog: res.StderrLog,
						StartedAt: res.StartedAt,
					})
				}
			}

			if !opts.DryRun && len(st.Services) > 0 {
				if err := state.Save(opts.RepoRoot, st); err != nil {
					// Services are up; a broken status record is not a
					// launch failure.
					log.Warn().Err(err).Msg("could not save launch state")
				}
			}

			for _, rec := range st.Services {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s running (pid %d), logs: %s\n", rec.Name, rec.PID, rec.StderrLog)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Each service can also be run on its own: devup redis | devup worker | devup server")

			if failed > 0 {
				return LaunchFailed(errors.Errorf("%d of %d services failed to start", failed, len(results)))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&noReady, "no-ready", false, "Skip the broker readiness probe and use the fixed start delay")
	cmd.Flags().DurationVar(&startDelay, "start-delay", 0, "Fixed delay between the broker and its dependents (with --no-ready)")
	cmd.Flags().DurationVar(&readyTimeout, "ready-timeout", defaultReadyTimeout, "How long to wait for the broker to answer PING")
	return cmd
}
