package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/Filip-Szettel/MediaFlow-sub000/internal/api/handler"
	"github.com/Filip-Szettel/MediaFlow-sub000/internal/api/router"
	"github.com/Filip-Szettel/MediaFlow-sub000/internal/broadcast"
	"github.com/Filip-Szettel/MediaFlow-sub000/internal/config"
	"github.com/Filip-Szettel/MediaFlow-sub000/internal/executor"
	"github.com/Filip-Szettel/MediaFlow-sub000/internal/scheduler"
	"github.com/Filip-Szettel/MediaFlow-sub000/internal/store"
	"github.com/Filip-Szettel/MediaFlow-sub000/shared/logger"
	"github.com/Filip-Szettel/MediaFlow-sub000/shared/postgresql"
	"github.com/Filip-Szettel/MediaFlow-sub000/shared/rabbitmq"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	// Parse command-line flags
	defaultConfigPath := os.Getenv("TRANSCODE_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/transcode-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info("Starting transcode service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	// Initialize PostgreSQL client
	dbClient, err := initPostgreSQL(&cfg.Database, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	appLogger.Info("Database connection established")

	// Initialize the optional RabbitMQ event relay
	var rabbitClient *rabbitmq.Client
	var relay broadcast.Publisher
	if cfg.RabbitMQ.Enabled {
		rabbitClient, err = initRabbitMQ(&cfg.RabbitMQ, appLogger.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
		}
		relay = rabbitClient
		appLogger.Info("RabbitMQ relay established")
	}

	// Assemble the transcoding pipeline
	storage := store.NewStorage(dbClient, appLogger.Logger)
	broadcaster := broadcast.New(appLogger.Logger, cfg.Events.BufferSize, relay)
	runner := executor.New(appLogger.Logger, cfg.Executor.Binary)

	sched := scheduler.New(&scheduler.Config{
		Logger: appLogger.Logger,
		Store:  storage,
		Runner: runner,
		Sink:   broadcaster,
		Budget: cfg.Scheduler.Budget,
	})

	// Initialize router
	r := initRouter(cfg.App.Environment, appLogger.Logger, storage, sched, broadcaster)

	// Create HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed to start",
				slog.Any("error", err),
			)
			os.Exit(1)
		}
	}()

	appLogger.Info("Transcode service is running",
		slog.String("address", addr),
		slog.Int("budget", sched.Budget()),
	)

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down...")

	// Stop taking HTTP traffic first, then drain the scheduler so active
	// transcodes finish and persist their terminal states.
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown",
			slog.Any("error", err),
		)
	}

	drainCtx, drainCancel := context.WithTimeout(context.Background(), cfg.Scheduler.ShutdownTimeout)
	defer drainCancel()

	if err := sched.Stop(drainCtx); err != nil {
		appLogger.Error("Scheduler drain incomplete",
			slog.Any("error", err),
		)
	}

	broadcaster.Close()
	if rabbitClient != nil {
		rabbitClient.Close()
	}
	dbClient.Close()

	appLogger.Info("Shutdown complete")
	return nil
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	loggerCfg := &logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	}

	return logger.New(loggerCfg)
}

// initPostgreSQL initializes the PostgreSQL database client
func initPostgreSQL(cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, error) {
	dbConfig := &postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}

	return postgresql.NewClient(dbConfig, logger)
}

// initRabbitMQ initializes the RabbitMQ event relay client
func initRabbitMQ(cfg *config.RabbitMQConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	rabbitConfig := &rabbitmq.Config{
		Host:               cfg.Host,
		Port:               cfg.Port,
		User:               cfg.User,
		Password:           cfg.Password,
		VHost:              cfg.VHost,
		ExchangeName:       cfg.Exchange.Name,
		ExchangeType:       cfg.Exchange.Type,
		ExchangeDurable:    cfg.Exchange.Durable,
		ExchangeAutoDelete: cfg.Exchange.AutoDelete,
		RoutingKey:         cfg.RoutingKey,
		RetryAttempts:      cfg.Connection.RetryAttempts,
		RetryInterval:      cfg.Connection.RetryInterval,
		Heartbeat:          cfg.Connection.Heartbeat,
		PublishRetries:     cfg.Publish.RetryAttempts,
		PublishRetryDelay:  cfg.Publish.RetryInterval,
	}

	return rabbitmq.NewClient(rabbitConfig, logger)
}

// initRouter initializes the Gin router with all routes and middleware
func initRouter(environment string, logger *slog.Logger, storage *store.Storage, sched *scheduler.Scheduler, broadcaster *broadcast.Broadcaster) *gin.Engine {
	if environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	handlerDeps := &handler.Dependencies{
		Logger:      logger,
		Storage:     storage,
		Scheduler:   sched,
		Broadcaster: broadcaster,
	}

	return router.SetupRouter(handlerDeps)
}
