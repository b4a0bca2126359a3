package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prodmon/factory-engine/internal/alerting"
	"github.com/prodmon/factory-engine/internal/config"
	"github.com/prodmon/factory-engine/internal/events"
	"github.com/prodmon/factory-engine/internal/handler"
	"github.com/prodmon/factory-engine/internal/infra/postgresql"
	"github.com/prodmon/factory-engine/internal/infra/postgresql/migrations"
	infraredis "github.com/prodmon/factory-engine/internal/infra/redis"
	"github.com/prodmon/factory-engine/internal/observability"
	"github.com/prodmon/factory-engine/internal/queue"
	"github.com/prodmon/factory-engine/internal/repository"
	"github.com/prodmon/factory-engine/internal/service"
	"github.com/prodmon/factory-engine/internal/transport"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer logger.Sync() //nolint:errcheck

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	rabbit, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
	if err != nil {
		logger.Fatal("rabbitmq initialization failed", zap.Error(err))
	}
	publisher := queue.NewRabbitMQPublisher(rabbit)
	defer publisher.Close()

	machineLock, err := infraredis.NewMachineLock(rdb)
	if err != nil {
		logger.Fatal("machine lock initialization failed", zap.Error(err))
	}

	store := repository.NewGormStore(db, time.Duration(cfg.LockTimeoutMS)*time.Millisecond)

	batchService, err := service.NewBatchService(store, machineLock, logger)
	if err != nil {
		logger.Fatal("batch service initialization failed", zap.Error(err))
	}
	machineService, err := service.NewMachineService(store, logger)
	if err != nil {
		logger.Fatal("machine service initialization failed", zap.Error(err))
	}
	materialService, err := service.NewMaterialService(store, logger)
	if err != nil {
		logger.Fatal("material service initialization failed", zap.Error(err))
	}
	alertService, err := service.NewAlertService(store, logger)
	if err != nil {
		logger.Fatal("alert service initialization failed", zap.Error(err))
	}
	productionLogService, err := service.NewProductionLogService(store)
	if err != nil {
		logger.Fatal("production log service initialization failed", zap.Error(err))
	}

	var alertSink alerting.Sink
	if cfg.AlertWebhookURL != "" {
		webhookSink, err := alerting.NewWebhookSink(cfg.AlertWebhookURL)
		if err != nil {
			logger.Fatal("alert webhook initialization failed", zap.Error(err))
		}
		alertSink = webhookSink
	}

	metrics := observability.NewMetrics()
	batchService.SetMetrics(metrics)

	dispatcher := events.NewDispatcher(publisher, alertSink, logger)
	dispatcher.SetMetrics(metrics)

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(fiberrecover.New())
	app.Use(requestid.New())
	app.Use(metrics.HTTPMiddleware())
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	if err := handler.RegisterBatchRoutes(app, batchService, dispatcher); err != nil {
		logger.Fatal("batch routes registration failed", zap.Error(err))
	}
	if err := handler.RegisterMachineRoutes(app, machineService, dispatcher); err != nil {
		logger.Fatal("machine routes registration failed", zap.Error(err))
	}
	if err := handler.RegisterMaterialRoutes(app, materialService); err != nil {
		logger.Fatal("material routes registration failed", zap.Error(err))
	}
	if err := handler.RegisterAlertRoutes(app, alertService); err != nil {
		logger.Fatal("alert routes registration failed", zap.Error(err))
	}
	if err := handler.RegisterProductionLogRoutes(app, productionLogService); err != nil {
		logger.Fatal("production log routes registration failed", zap.Error(err))
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-shutdown
		logger.Info("shutdown signal received")
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			logger.Error("server shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("factory-engine api started", zap.Int("port", cfg.APIPort))
	if err := app.Listen(fmt.Sprintf(":%d", cfg.APIPort)); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}

	logger.Info("factory-engine api stopped")
}
