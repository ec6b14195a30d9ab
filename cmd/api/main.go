package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"skyfare/internal/api"
	"skyfare/internal/config"
	"skyfare/internal/database"
	"skyfare/internal/domain"
	"skyfare/internal/events"
	"skyfare/internal/kafka"
	"skyfare/internal/logging"
	"skyfare/internal/metrics"
	"skyfare/internal/pricing"
	"skyfare/internal/repository"
	"skyfare/internal/service"
	"skyfare/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	db, err := initDatabase(cfg, &logger)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient := initRedis(cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	seatHolds := initSeatHolds(redisClient, &logger)

	eventBus := events.NewEventBus()
	if cfg.Kafka.Enabled && len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.BookingTopic, &logger)
		defer producer.Close()
		kafka.Relay(eventBus, producer)
		logger.Info().Strs("brokers", cfg.Kafka.Brokers).Msg("kafka relay attached")
	}

	engine := pricing.NewEngine(db, &logger)

	ticketWorker := worker.NewTicketWorker(db, service.NewTicketingService(&logger), redisClient, worker.RetryPolicy{
		MaxRetries: cfg.Worker.MaxRetries,
	}, &logger)
	ticketWorker.SetPollInterval(time.Duration(cfg.Worker.PollIntervalSeconds) * time.Second)
	ticketWorker.SetBatchSize(cfg.Worker.BatchSize)

	bookingService := service.NewBookingService(db, engine, eventBus, ticketWorker,
		time.Duration(cfg.Booking.CancellationWindowHours)*time.Hour,
		cfg.Booking.MaxPassengers, &logger)
	seatService := service.NewSeatService(db, engine, seatHolds,
		time.Duration(cfg.Booking.SeatHoldTTLSeconds)*time.Second, eventBus, &logger)
	availabilityService := service.NewAvailabilityService(db, &logger)

	httpServer := api.NewHTTPServer(cfg.API, bookingService, seatService, availabilityService, engine, &logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go ticketWorker.Start(ctx)

	if cfg.Backup.Enabled {
		backup := database.NewBackupService(cfg.Database.Path, cfg.Backup, &logger)
		go backup.Start(ctx)
	}

	startMetrics(ctx, cfg, &logger)

	return serveHTTP(ctx, httpServer, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := logging.Component(baseLogger, "api-main")

	return cfg, logger, closer, nil
}

func loadCatalog(logger *zerolog.Logger) (*database.Catalog, error) {
	catalogPath := os.Getenv("CATALOG_PATH")
	if catalogPath == "" {
		catalogPath = "configs/catalog.yaml"
	}
	data, err := os.ReadFile(catalogPath)
	if err != nil {
		logger.Error().Err(err).Str("catalog_path", catalogPath).Msg("read catalog")
		return nil, err
	}

	var catalog database.Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		logger.Error().Err(err).Str("catalog_path", catalogPath).Msg("parse catalog")
		return nil, err
	}

	return &catalog, nil
}

func initDatabase(cfg *config.Config, logger *zerolog.Logger) (*database.DB, error) {
	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return nil, err
	}

	catalog, err := loadCatalog(logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := db.SeedCatalog(context.Background(), catalog); err != nil {
		logger.Error().Err(err).Msg("seed catalog")
		db.Close()
		return nil, err
	}

	return db, nil
}

func initRedis(cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if !cfg.Redis.Enabled || cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

func initSeatHolds(redisClient *redis.Client, logger *zerolog.Logger) domain.SeatHolder {
	memory := repository.NewMemorySeatHoldRepository()
	if redisClient == nil {
		return memory
	}
	primary := repository.NewRedisSeatHoldRepository(redisClient)
	return repository.NewFailoverSeatHoldRepository(primary, memory, logger)
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info().Int("port", port).Msg("metrics server listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server stopped")
	}
}

func serveHTTP(ctx context.Context, httpServer *api.HTTPServer, logger *zerolog.Logger) error {
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("API server stopped")
	return nil
}
