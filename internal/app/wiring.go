package app

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/cologne-noir/decant/internal/catalog"
	"github.com/cologne-noir/decant/internal/customers"
	"github.com/cologne-noir/decant/internal/fulfillment"
	"github.com/cologne-noir/decant/internal/inventory"
	"github.com/cologne-noir/decant/internal/observability"
	"github.com/cologne-noir/decant/internal/orders"
	"github.com/cologne-noir/decant/internal/rbac"
	"github.com/cologne-noir/decant/internal/realtime"
	"github.com/cologne-noir/decant/internal/shared"
	"github.com/cologne-noir/decant/internal/stats"
	"github.com/cologne-noir/decant/internal/supplies"
	"github.com/cologne-noir/decant/jobs"
)

// Services holds every domain service wired against shared infrastructure.
type Services struct {
	Publisher   realtime.Publisher
	StatsCache  *stats.Cache
	Idempotency *shared.IdempotencyStore
	Jobs        *jobs.Client
	Inventory   *inventory.Service
	Fulfillment *fulfillment.Service
	Orders      *orders.Service
	Catalog     *catalog.Service
	Customers   *customers.Service
	Supplies    *supplies.Service
	Stats       *stats.Service
}

// Close releases the publisher and the job client.
func (s *Services) Close() error {
	var err error
	if s.Jobs != nil {
		err = s.Jobs.Close()
	}
	if s.Publisher != nil {
		if closeErr := s.Publisher.Close(); closeErr != nil {
			err = closeErr
		}
	}
	return err
}

// RedisClientOpt returns the asynq connection options for cfg.
func RedisClientOpt(cfg *Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
}

// NewPublisher selects the change notifier named by NOTIFIER_DRIVER.
func NewPublisher(cfg *Config, client *redis.Client) realtime.Publisher {
	switch cfg.NotifierDriver {
	case NotifierRedis:
		if client != nil {
			return realtime.NewRedisPublisher(client, cfg.NotifierChannel)
		}
	case NotifierKafka:
		return realtime.NewKafkaPublisher(realtime.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic))
	}
	return realtime.Noop{}
}

// NewRBAC builds the identity middleware from the configured headers.
func NewRBAC(cfg *Config, logger *slog.Logger) rbac.Middleware {
	return rbac.Middleware{Logger: logger, IDHeader: cfg.IdentityHeaderID, RoleHeader: cfg.IdentityHeaderRole}
}

// BuildServices wires repositories, side effects and services. metrics may be nil.
func BuildServices(cfg *Config, logger *slog.Logger, pool *pgxpool.Pool, client *redis.Client, metrics *observability.Metrics) (*Services, error) {
	publisher := NewPublisher(cfg, client)
	statsCache := stats.NewCache(client, cfg.StatsCacheTTL)
	effects := &shared.Effects{
		Publisher: publisher,
		Cache:     statsCache,
		Audit:     shared.NewAuditLogger(pool),
		Logger:    logger,
	}
	idem := shared.NewIdempotencyStore(pool)
	jobClient, err := jobs.NewClient(RedisClientOpt(cfg))
	if err != nil {
		_ = publisher.Close()
		return nil, err
	}

	inventoryService := inventory.NewService(inventory.NewRepository(pool), effects, metrics, logger, inventory.ServiceConfig{
		MaxAttempts:       cfg.FulfillmentMaxAttempts,
		LowStockThreshold: cfg.LowStockThresholdML,
	})
	fulfillmentService := fulfillment.NewService(fulfillment.NewRepository(pool), effects, metrics, logger, fulfillment.ServiceConfig{
		MaxAttempts: cfg.FulfillmentMaxAttempts,
	})
	fulfiller := func(ctx context.Context, orderID, actorID uuid.UUID) (string, error) {
		res, err := fulfillmentService.ProcessDecantOrder(ctx, orderID, actorID)
		return res.Code, err
	}
	ordersService := orders.NewService(orders.NewRepository(pool), idem, fulfiller, jobClient, effects, logger, orders.ServiceConfig{
		ShippingCost: cfg.ShippingCost,
	})
	statsService := stats.NewService(stats.NewRepository(pool), statsCache, logger, stats.ServiceConfig{
		Location:          cfg.Location(),
		LowStockThreshold: cfg.LowStockThresholdML,
	})

	return &Services{
		Publisher:   publisher,
		StatsCache:  statsCache,
		Idempotency: idem,
		Jobs:        jobClient,
		Inventory:   inventoryService,
		Fulfillment: fulfillmentService,
		Orders:      ordersService,
		Catalog:     catalog.NewService(catalog.NewRepository(pool), effects, logger),
		Customers:   customers.NewService(customers.NewRepository(pool), effects, logger),
		Supplies:    supplies.NewService(supplies.NewRepository(pool), effects, logger),
		Stats:       statsService,
	}, nil
}

// Handlers builds the HTTP handlers for services.
func (s *Services) Handlers(logger *slog.Logger, mw rbac.Middleware, inspector jobs.QueueInspector) RouterParams {
	return RouterParams{
		Logger:             logger,
		RBACMiddleware:     mw,
		CatalogHandler:     catalog.NewHandler(logger, s.Catalog, mw),
		OrdersHandler:      orders.NewHandler(logger, s.Orders, mw),
		FulfillmentHandler: fulfillment.NewHandler(logger, s.Fulfillment, mw),
		InventoryHandler:   inventory.NewHandler(logger, s.Inventory, mw),
		CustomersHandler:   customers.NewHandler(logger, s.Customers, mw),
		SuppliesHandler:    supplies.NewHandler(logger, s.Supplies, mw),
		StatsHandler:       stats.NewHandler(logger, s.Stats, mw),
		JobHandler:         jobs.NewHandler(inspector, logger, mw),
	}
}
