package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/cologne-noir/decant/internal/inventory"
)

func newAdjustVolumeCommand(opts *options) *cobra.Command {
	var (
		volume string
		reason string
		notes  string
	)
	cmd := &cobra.Command{
		Use:   "adjust-volume <product-id>",
		Short: "Set a product's current volume and record the change in the ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			productID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("product id: %w", err)
			}
			newVolume, err := decimal.NewFromString(volume)
			if err != nil {
				return fmt.Errorf("--volume: %w", err)
			}
			actor, err := opts.actorID()
			if err != nil {
				return err
			}
			rt, err := opts.services(cmd.Context())
			if err != nil {
				return err
			}
			res, err := rt.Inventory.AdjustVolume(cmd.Context(), inventory.AdjustVolumeInput{
				ProductID: productID,
				ActorID:   actor,
				NewVolume: newVolume,
				Reason:    inventory.AdjustmentReason(reason),
				Notes:     notes,
			})
			if err != nil {
				return err
			}
			if opts.json {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s ml -> %s ml (%s)\n",
				productID, res.PreviousVolume, res.NewVolume, signed(res.Adjustment))
			return err
		},
	}
	cmd.Flags().StringVar(&volume, "volume", "", "new current volume in ml")
	cmd.Flags().StringVar(&reason, "reason", string(inventory.ReasonCorrection), "spillage|evaporation|quality_check|damaged|correction|other")
	cmd.Flags().StringVar(&notes, "notes", "", "free text recorded with the adjustment")
	_ = cmd.MarkFlagRequired("volume")
	return cmd
}

func newProcessOrderCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "process-order <order-id>",
		Short: "Decant an order: deduct volume for every line and mark it decanting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orderID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("order id: %w", err)
			}
			actor, err := opts.actorID()
			if err != nil {
				return err
			}
			rt, err := opts.services(cmd.Context())
			if err != nil {
				return err
			}
			res, err := rt.Fulfillment.ProcessDecantOrder(cmd.Context(), orderID, actor)
			if opts.json {
				if writeErr := writeJSON(cmd.OutOrStdout(), res); writeErr != nil {
					return writeErr
				}
				return err
			}
			if err != nil {
				return fmt.Errorf("%s: %s", res.Code, res.Error)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s (%d adjustments)\n", res.Message, res.Adjustments)
			return err
		},
	}
}

func newReconcileCommand(opts *options) *cobra.Command {
	var product string
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Rebuild volumes from the ledger and report drift",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.services(cmd.Context())
			if err != nil {
				return err
			}
			var reports []inventory.ReconcileReport
			if product != "" {
				id, err := uuid.Parse(product)
				if err != nil {
					return fmt.Errorf("--product: %w", err)
				}
				report, err := rt.Inventory.Reconcile(cmd.Context(), id)
				if err != nil {
					return err
				}
				reports = append(reports, report)
			} else {
				reports, err = rt.Inventory.ReconcileAll(cmd.Context())
				if err != nil {
					return err
				}
			}
			if opts.json {
				return writeJSON(cmd.OutOrStdout(), reports)
			}
			if len(reports) == 0 {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "all products balanced")
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PRODUCT\tEXPECTED\tACTUAL\tDRIFT\tENTRIES")
			for _, r := range reports {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", r.ProductID, r.Expected, r.Actual, signed(r.Drift), r.Entries)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			for _, r := range reports {
				if !r.Balanced {
					return errDrift
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&product, "product", "", "reconcile a single product")
	return cmd
}

var errDrift = errors.New("ledger drift detected")

func signed(d decimal.Decimal) string {
	if d.IsPositive() {
		return "+" + d.String()
	}
	return d.String()
}
