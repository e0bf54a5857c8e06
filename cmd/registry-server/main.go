package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"corebank/internal/config"
	"corebank/internal/handler"
	"corebank/internal/infrastructure/cache"
	"corebank/internal/infrastructure/database"
	"corebank/internal/infrastructure/logger"
	"corebank/internal/infrastructure/metrics"
	"corebank/internal/infrastructure/mq"
	"corebank/internal/job"
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
		configPath = "config/registry.yaml"
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
		zl.Fatal("registry server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, zl *zap.Logger) error {
	if err := idgen.Init(cfg.Server.WorkerID); err != nil {
		return fmt.Errorf("init id generator: %w", err)
	}

	db, err := database.Open(cfg.Database, zl,
		&model.Customer{},
		&model.OutboxMessage{},
	)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close(db) }()

	var rdb *redis.Client
	if cfg.Bus.Driver == "redis" {
		if rdb, err = cache.NewRedis(cfg.Redis); err != nil {
			return err
		}
		defer func() { _ = rdb.Close() }()
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(cfg.Server.Name)
	}

	publisher, err := mq.NewPublisher(cfg.Bus, cfg.Kafka, rdb, zl)
	if err != nil {
		return err
	}
	defer func() { _ = publisher.Close() }()

	events := service.NewEventPublisher(publisher, repository.NewOutboxRepository(db), cfg.Bus.Topic, cfg.Bus.PublishTimeout, m, zl)
	customers := service.NewCustomerService(db, events, zl)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var background []<-chan struct{}
	if cfg.Outbox.Enabled {
		sender := job.NewOutboxSender(db, publisher, cfg.Outbox, cfg.Bus.PublishTimeout, m, zl)
		done := make(chan struct{})
		go func() {
			defer close(done)
			sender.Start(ctx)
		}()
		background = append(background, done)
	}

	h := handler.NewCustomerHandler(customers, zl)
	router := handler.SetupRegistryRouter(h, m, zl, handler.RouterOptions{
		Mode:        cfg.Server.Mode,
		MetricsPath: cfg.Metrics.Path,
	})

	return server.Serve(ctx, cancel, cfg.Server, router, zl, background...)
}
