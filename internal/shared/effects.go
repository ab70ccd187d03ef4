package shared

import (
	"context"
	"log/slog"
	"time"

	"github.com/cologne-noir/decant/internal/realtime"
)

// CacheBumper invalidates derived read models.
type CacheBumper interface {
	Bump(ctx context.Context) error
}

// Effects runs the side effects that follow a committed mutation. Failures are
// logged and never propagate: the write has already happened.
type Effects struct {
	Publisher realtime.Publisher
	Cache     CacheBumper
	Audit     Auditor
	Logger    *slog.Logger
}

const effectsTimeout = 5 * time.Second

// AfterCommit bumps the stats cache, publishes changes and records the audit entry.
func (e *Effects) AfterCommit(ctx context.Context, audit *AuditLog, changes ...realtime.Change) {
	if e == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), effectsTimeout)
	defer cancel()

	if e.Cache != nil {
		if err := e.Cache.Bump(ctx); err != nil {
			e.logger().Warn("stats cache bump failed", slog.Any("error", err))
		}
	}
	if e.Publisher != nil {
		for _, change := range changes {
			if err := e.Publisher.Publish(ctx, change); err != nil {
				e.logger().Warn("change publish failed", slog.String("key", change.Key()), slog.Any("error", err))
			}
		}
	}
	if e.Audit != nil && audit != nil {
		if err := e.Audit.Record(ctx, *audit); err != nil {
			e.logger().Warn("audit record failed", slog.String("action", audit.Action), slog.Any("error", err))
		}
	}
}

func (e *Effects) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}
