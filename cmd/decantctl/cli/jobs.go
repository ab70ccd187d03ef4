package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cologne-noir/decant/jobs"
)

func newJobsCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Manage background jobs",
	}
	cmd.AddCommand(&cobra.Command{
		Use:       "trigger <name>",
		Short:     "Enqueue a periodic job now: " + strings.Join(jobs.Periodic(), ", "),
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: jobs.Periodic(),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.services(cmd.Context())
			if err != nil {
				return err
			}
			info, err := rt.Jobs.Enqueue(cmd.Context(), args[0], jobs.TriggerCLI)
			if err != nil {
				return err
			}
			if opts.json {
				return writeJSON(cmd.OutOrStdout(), map[string]string{"id": info.ID, "type": info.Type, "queue": info.Queue})
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s as %s on %s\n", info.Type, info.ID, info.Queue)
			return err
		},
	})
	return cmd
}
