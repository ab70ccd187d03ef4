package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cologne-noir/decant/jobs"
)

func newStatsCommand(opts *options) *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print the admin dashboard figures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.services(cmd.Context())
			if err != nil {
				return err
			}
			compute := rt.Stats.Compute
			if refresh {
				compute = rt.Stats.Refresh
			}
			s, err := compute(cmd.Context())
			if err != nil {
				return err
			}
			if opts.json {
				return writeJSON(cmd.OutOrStdout(), s)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "Orders\t%d (%d pending, %d today)\n", s.TotalOrders, s.PendingOrders, s.OrdersToday)
			fmt.Fprintf(tw, "Revenue\t%s (today %s)\n", jobs.FormatTaka(s.TotalRevenue), jobs.FormatTaka(s.TodayRevenue))
			fmt.Fprintf(tw, "Products\t%d active, %d low (%d empty)\n", s.ActiveProducts, s.LowStockCount, s.OutOfStockCount)
			fmt.Fprintf(tw, "Customers\t%d\n", s.TotalCustomers)
			fmt.Fprintf(tw, "Computed\t%s\n", s.ComputedAt.Format("2006-01-02 15:04:05 MST"))
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the cache and recompute")
	return cmd
}
