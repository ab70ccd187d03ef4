package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/cologne-noir/decant/internal/fulfillment"
	"github.com/cologne-noir/decant/internal/inventory"
	"github.com/cologne-noir/decant/internal/stats"
)

// InventoryPort is the ledger surface used by the CLI.
type InventoryPort interface {
	AdjustVolume(ctx context.Context, input inventory.AdjustVolumeInput) (inventory.AdjustVolumeResult, error)
	Reconcile(ctx context.Context, productID uuid.UUID) (inventory.ReconcileReport, error)
	ReconcileAll(ctx context.Context) ([]inventory.ReconcileReport, error)
}

// FulfillmentPort runs the fulfillment engine.
type FulfillmentPort interface {
	ProcessDecantOrder(ctx context.Context, orderID, actorID uuid.UUID) (fulfillment.Result, error)
}

// StatsPort reads the admin dashboard figures.
type StatsPort interface {
	Compute(ctx context.Context) (stats.AdminStats, error)
	Refresh(ctx context.Context) (stats.AdminStats, error)
}

// JobsPort enqueues background tasks by name.
type JobsPort interface {
	Enqueue(ctx context.Context, name, trigger string) (*asynq.TaskInfo, error)
}

// Runtime carries the services a command needs.
type Runtime struct {
	Inventory   InventoryPort
	Fulfillment FulfillmentPort
	Stats       StatsPort
	Jobs        JobsPort
	Changes     ChangesPort
}

// Loader connects to the backing stores on first use.
type Loader func(ctx context.Context) (*Runtime, error)

type options struct {
	load    Loader
	runtime *Runtime
	actor   string
	json    bool
}

// NewRootCommand builds decantctl. Connections are opened lazily so --help
// works without a database.
func NewRootCommand(load Loader) *cobra.Command {
	opts := &options{load: load}
	root := &cobra.Command{
		Use:           "decantctl",
		Short:         "Operator tooling for the Cologne Noir decant storefront",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.actor, "actor", "", "admin user id recorded on ledger entries")
	root.PersistentFlags().BoolVar(&opts.json, "json", false, "print machine readable JSON")

	root.AddCommand(
		newAdjustVolumeCommand(opts),
		newProcessOrderCommand(opts),
		newStatsCommand(opts),
		newReconcileCommand(opts),
		newJobsCommand(opts),
		newWatchCommand(opts),
	)
	return root
}

func (o *options) services(ctx context.Context) (*Runtime, error) {
	if o.runtime != nil {
		return o.runtime, nil
	}
	if o.load == nil {
		return nil, errors.New("decantctl: no runtime configured")
	}
	rt, err := o.load(ctx)
	if err != nil {
		return nil, err
	}
	o.runtime = rt
	return rt, nil
}

func (o *options) actorID() (uuid.UUID, error) {
	if o.actor == "" {
		return uuid.Nil, errors.New("--actor is required")
	}
	id, err := uuid.Parse(o.actor)
	if err != nil {
		return uuid.Nil, fmt.Errorf("--actor: %w", err)
	}
	return id, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
