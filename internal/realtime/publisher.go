// Package realtime fans committed data changes out to subscribers outside the core.
package realtime

import (
	"context"
	"fmt"
	"time"
)

// Tables that emit change events.
const (
	TableProducts          = "products"
	TableOrders            = "orders"
	TableVolumeAdjustments = "volume_adjustments"
	TableSupplies          = "supplies"
)

// Actions describing a change.
const (
	ActionInsert = "insert"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Change describes one committed row mutation.
type Change struct {
	Table  string    `json:"table"`
	Action string    `json:"action"`
	ID     string    `json:"id"`
	At     time.Time `json:"at"`
}

// Key identifies the change for partitioning, e.g. orders-update-<id>.
func (c Change) Key() string {
	return fmt.Sprintf("%s-%s-%s", c.Table, c.Action, c.ID)
}

// Publisher delivers change events.
type Publisher interface {
	Publish(ctx context.Context, change Change) error
	Close() error
}

// Noop discards every change.
type Noop struct{}

// Publish implements Publisher.
func (Noop) Publish(context.Context, Change) error { return nil }

// Close implements Publisher.
func (Noop) Close() error { return nil }

func stamp(change Change) Change {
	if change.At.IsZero() {
		change.At = time.Now().UTC()
	}
	return change
}
