package cmds

import (
	"fmt"

	"github.com/datachat-labs/devup/pkg/launch"
	"github.com/datachat-labs/devup/pkg/registry"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// newServiceCmd builds the foreground launch command for one entry of the
// service table. The terminal belongs to the service until it exits.
func newServiceCmd(c registry.Command) *cobra.Command {
	name := c.ServiceName()

	def, ok := registry.Find(registry.Table(), name)
	if !ok {
		panic(fmt.Sprintf("no service definition for command %q", name))
	}

	cmd := &cobra.Command{
		Use:   name,
		Short: "Start the " + def.Short + " in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := getRootOptions(cmd)
			if err != nil {
				return err
			}
			defs, _, err := loadPlan(opts)
			if err != nil {
				return err
			}
			svc, ok := registry.Find(defs, name)
			if !ok {
				return errors.Errorf("service %q missing from plan", name)
			}

			res := newLauncher(cmd, opts).Launch(cmd.Context(), svc, launch.Foreground)
			if res.Err != nil {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", svc.Name, res.Err)
				return LaunchFailed(res.Err)
			}
			return nil
		},
	}
	if c == registry.CommandRedis {
		cmd.Aliases = []string{"cache"}
	}
	return cmd
}
