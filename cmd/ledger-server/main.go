package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"corebank/internal/config"
	"corebank/internal/handler"
	"corebank/internal/infrastructure/cache"
	"corebank/internal/infrastructure/database"
	"corebank/internal/infrastructure/lock"
	"corebank/internal/infrastructure/logger"
	"corebank/internal/infrastructure/metrics"
	"corebank/internal/infrastructure/mq"
	"corebank/internal/model"
	"corebank/internal/repository"
	"corebank/internal/server"
	"corebank/internal/service"
	"corebank/pkg/idgen"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	configPath := os.Getenv("COREBANK_CONFIG")
	if configPath == "" {
		configPath = "config/ledger.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zl, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()
	zl = zl.With(zap.String("service", cfg.Server.Name))

	if err := run(cfg, zl); err != nil {
		zl.Fatal("ledger server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, zl *zap.Logger) error {
	if err := idgen.Init(cfg.Server.WorkerID); err != nil {
		return fmt.Errorf("init id generator: %w", err)
	}

	db, err := database.Open(cfg.Database, zl,
		&model.Account{},
		&model.Movement{},
		&model.CustomerProjection{},
	)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close(db) }()

	var rdb *redis.Client
	if cfg.Lock.Driver == "redis" || cfg.Bus.Driver == "redis" {
		if rdb, err = cache.NewRedis(cfg.Redis); err != nil {
			return err
		}
		defer func() { _ = rdb.Close() }()
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(cfg.Server.Name)
	}

	locker, err := lock.New(cfg.Lock, rdb, zl)
	if err != nil {
		return err
	}

	var projectionCache *cache.ViewCache[model.CustomerProjection]
	if rdb != nil {
		projectionCache = cache.NewViewCache[model.CustomerProjection](rdb, "ledger:customer", cfg.Redis.CacheTTL, zl)
	}

	syncSvc := service.NewSyncService(repository.NewProjectionRepository(db, projectionCache), m, zl)
	ledger := service.NewLedgerService(db, syncSvc, locker, zl)
	movements := service.NewMovementService(db, ledger, m, zl)
	reports := service.NewReportService(db, ledger, syncSvc)

	subscriber, err := mq.NewSubscriber(cfg.Bus, cfg.Kafka, rdb, zl)
	if err != nil {
		return err
	}
	defer func() { _ = subscriber.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	subscriberDone := make(chan struct{})
	go func() {
		defer close(subscriberDone)
		if err := subscriber.Run(ctx, syncSvc.HandleMessage); err != nil && !errors.Is(err, context.Canceled) {
			zl.Error("customer subscriber stopped", zap.Error(err))
		}
	}()

	h := handler.NewLedgerHandler(ledger, movements, reports, zl)
	router := handler.SetupLedgerRouter(h, m, zl, handler.RouterOptions{
		Mode:        cfg.Server.Mode,
		MetricsPath: cfg.Metrics.Path,
	})

	return server.Serve(ctx, cancel, cfg.Server, router, zl, subscriberDone)
}
