package stats

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/cologne-noir/decant/internal/inventory"
)

// RepositoryPort abstracts the dashboard queries.
type RepositoryPort interface {
	OrderCounts(ctx context.Context, dayStart time.Time) (OrderCounts, error)
	Revenue(ctx context.Context, dayStart time.Time) (Revenue, error)
	ActiveVolumes(ctx context.Context) ([]decimal.Decimal, error)
	CustomerCount(ctx context.Context) (int, error)
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	Location          *time.Location
	LowStockThreshold decimal.Decimal
}

// Service computes the admin dashboard snapshot.
type Service struct {
	repo      RepositoryPort
	cache     *Cache
	group     singleflight.Group
	loc       *time.Location
	threshold decimal.Decimal
	logger    *slog.Logger
	now       func() time.Time
}

// NewService builds Service. cache may be nil.
func NewService(repo RepositoryPort, cache *Cache, logger *slog.Logger, cfg ServiceConfig) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	threshold := cfg.LowStockThreshold
	if !threshold.IsPositive() {
		threshold = inventory.LowStockThreshold
	}
	return &Service{repo: repo, cache: cache, loc: loc, threshold: threshold, logger: logger, now: time.Now}
}

// Compute returns the current stats, served from cache while no mutation has
// bumped the version. Concurrent misses share one computation.
func (s *Service) Compute(ctx context.Context) (AdminStats, error) {
	key, err := s.cache.BuildKey(ctx, "stats", "admin")
	if err != nil {
		s.logger.Warn("stats cache key", slog.Any("error", err))
		return s.Refresh(ctx)
	}
	var cached AdminStats
	if ok, err := s.cache.Load(ctx, key, &cached); err != nil {
		s.logger.Warn("stats cache load", slog.Any("error", err))
	} else if ok {
		return cached, nil
	}
	v, err, _ := s.group.Do(key, func() (any, error) {
		out, err := s.compute(ctx)
		if err != nil {
			return AdminStats{}, err
		}
		if err := s.cache.Store(ctx, key, out); err != nil {
			s.logger.Warn("stats cache store", slog.Any("error", err))
		}
		return out, nil
	})
	if err != nil {
		return AdminStats{}, err
	}
	return v.(AdminStats), nil
}

// Refresh recomputes the stats and stores them under the current version.
func (s *Service) Refresh(ctx context.Context) (AdminStats, error) {
	out, err := s.compute(ctx)
	if err != nil {
		return AdminStats{}, err
	}
	if key, err := s.cache.BuildKey(ctx, "stats", "admin"); err == nil {
		if err := s.cache.Store(ctx, key, out); err != nil {
			s.logger.Warn("stats cache store", slog.Any("error", err))
		}
	}
	return out, nil
}

// DayStart returns midnight of now in the store's time zone.
func (s *Service) DayStart(now time.Time) time.Time {
	local := now.In(s.loc)
	y, m, d := local.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.loc)
}

func (s *Service) compute(ctx context.Context) (AdminStats, error) {
	now := s.now()
	dayStart := s.DayStart(now)

	var (
		counts    OrderCounts
		revenue   Revenue
		volumes   []decimal.Decimal
		customers int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		counts, err = s.repo.OrderCounts(gctx, dayStart)
		return err
	})
	g.Go(func() (err error) {
		revenue, err = s.repo.Revenue(gctx, dayStart)
		return err
	})
	g.Go(func() (err error) {
		volumes, err = s.repo.ActiveVolumes(gctx)
		return err
	})
	g.Go(func() (err error) {
		customers, err = s.repo.CustomerCount(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return AdminStats{}, err
	}

	out := AdminStats{
		TotalOrders:    counts.Total,
		PendingOrders:  counts.Pending,
		TotalRevenue:   revenue.AllTime,
		TodayRevenue:   revenue.Today,
		OrdersToday:    counts.Today,
		ActiveProducts: len(volumes),
		TotalCustomers: customers,
		ComputedAt:     now.UTC(),
	}
	for _, v := range volumes {
		switch inventory.ClassifyWithThreshold(v, s.threshold) {
		case inventory.StockOut:
			out.OutOfStockCount++
			out.LowStockCount++
		case inventory.StockLow:
			out.LowStockCount++
		}
	}
	return out, nil
}
