package cmds

import (
	"encoding/json"
	"fmt"

	"github.com/datachat-labs/devup/pkg/state"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	var tailLines int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report the services started by the last 'devup all'",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := getRootOptions(cmd)
			if err != nil {
				return err
			}
			st, err := state.Load(opts.RepoRoot)
			if err != nil {
				return errors.Wrap(err, "no recorded launches (run 'devup all' first)")
			}

			type svc struct {
				Name       string   `json:"name"`
				PID        int      `json:"pid"`
				Alive      bool     `json:"alive"`
				StdoutLog  string   `json:"stdout_log"`
				StderrLog  string   `json:"stderr_log"`
				StderrTail []string `json:"stderr_tail,omitempty"`
			}
			services := make([]svc, 0, len(st.Services))
			for _, rec := range st.Services {
				s := svc{
					Name:      rec.Name,
					PID:       rec.PID,
					Alive:     state.ProcessAlive(rec.PID),
					StdoutLog: rec.StdoutLog,
					StderrLog: rec.StderrLog,
				}
				if !s.Alive && tailLines > 0 {
					if lines, err := state.TailLines(rec.StderrLog, tailLines, 2<<20); err == nil {
						s.StderrTail = lines
					}
				}
				services = append(services, s)
			}

			b, err := json.MarshalIndent(map[string]any{"services": services}, "", "  ")
			if err != nil {
				return errors.Wrap(err, "marshal status")
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return nil
		},
	}

	cmd.Flags().IntVar(&tailLines, "tail-lines", 25, "How many stderr lines to include for dead services")
	return cmd
}
