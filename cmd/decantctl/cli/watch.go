package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cologne-noir/decant/internal/realtime"
)

// ChangesPort streams committed change events.
type ChangesPort interface {
	Watch(ctx context.Context) (<-chan realtime.Change, error)
}

// ChangesFunc adapts a subscribe function to ChangesPort.
type ChangesFunc func(ctx context.Context) (<-chan realtime.Change, error)

// Watch implements ChangesPort.
func (f ChangesFunc) Watch(ctx context.Context) (<-chan realtime.Change, error) { return f(ctx) }

var errNoChangeFeed = errors.New("watch needs NOTIFIER_DRIVER=redis")

func newWatchCommand(opts *options) *cobra.Command {
	var (
		table string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream product, order and supply changes as they commit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := opts.services(cmd.Context())
			if err != nil {
				return err
			}
			if rt.Changes == nil {
				return errNoChangeFeed
			}
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			changes, err := rt.Changes.Watch(ctx)
			if err != nil {
				return err
			}
			seen := 0
			for change := range changes {
				if table != "" && change.Table != table {
					continue
				}
				if opts.json {
					err = writeJSON(cmd.OutOrStdout(), change)
				} else {
					_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s  %-10s %-6s %s\n",
						change.At.Local().Format(time.TimeOnly), change.Table, change.Action, change.ID)
				}
				if err != nil {
					return err
				}
				seen++
				if limit > 0 && seen >= limit {
					return nil
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&table, "table", "", "only show changes to this table (products, orders, volume_adjustments, supplies)")
	cmd.Flags().IntVar(&limit, "limit", 0, "exit after this many changes")
	return cmd
}
