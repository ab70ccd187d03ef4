package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cologne-noir/decant/cmd/decantctl/cli"
	"github.com/cologne-noir/decant/internal/app"
	"github.com/cologne-noir/decant/internal/platform/cache"
	"github.com/cologne-noir/decant/internal/platform/db"
	"github.com/cologne-noir/decant/internal/realtime"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var closers []func()
	load := func(ctx context.Context) (*cli.Runtime, error) {
		cfg, err := app.LoadConfig()
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		logger := app.NewLogger(cfg).With(slog.String("component", "decantctl"))
		pool, err := db.New(ctx, cfg.PGDSN)
		if err != nil {
			return nil, err
		}
		closers = append(closers, pool.Close)
		redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err != nil {
			return nil, err
		}
		closers = append(closers, func() { _ = redisClient.Close() })
		services, err := app.BuildServices(cfg, logger, pool, redisClient, nil)
		if err != nil {
			return nil, err
		}
		closers = append(closers, func() { _ = services.Close() })
		rt := &cli.Runtime{
			Inventory:   services.Inventory,
			Fulfillment: services.Fulfillment,
			Stats:       services.Stats,
			Jobs:        services.Jobs,
		}
		if cfg.NotifierDriver == app.NotifierRedis {
			rt.Changes = cli.ChangesFunc(func(ctx context.Context) (<-chan realtime.Change, error) {
				return realtime.Subscribe(ctx, redisClient, cfg.NotifierChannel)
			})
		}
		return rt, nil
	}

	err := cli.NewRootCommand(load).ExecuteContext(ctx)
	for i := len(closers) - 1; i >= 0; i-- {
		closers[i]()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
