package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"alert-service/internal/alerts"
	"alert-service/internal/api"
	"alert-service/internal/cache"
	"alert-service/internal/config"
	"alert-service/internal/db"
	"alert-service/internal/kafka"
	"alert-service/internal/logging"
	"alert-service/internal/metrics"
	"alert-service/internal/providers"
	"alert-service/internal/tracing"
	"alert-service/pkg/email"
)

func main() {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(logging.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Dir:        cfg.Logging.Dir,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.NewProvider(ctx, tracing.Options{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.Tracing.ServiceName,
		Insecure:    cfg.Tracing.Insecure,
		SampleRatio: cfg.Tracing.SampleRatio,
	}, logger)
	if err != nil {
		logger.Fatalf("Failed to init tracing: %v", err)
	}

	var recorderMetrics metrics.Recorder = metrics.Nop{}
	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		prom, err := metrics.NewPrometheus()
		if err != nil {
			logger.Fatalf("Failed to init metrics: %v", err)
		}
		recorderMetrics = prom
		metricsHandler = prom.Handler()
	}

	// Connect to database
	dbConn, err := db.New(ctx, cfg.DB.DSN, cfg.DB.MaxOpenConns)
	if err != nil {
		logger.Fatalf("Database connection failed: %v", err)
	}
	defer dbConn.Close()

	if cfg.DB.AutoMigrate {
		if err := dbConn.Migrate(ctx); err != nil {
			logger.Fatalf("Database migration failed: %v", err)
		}
	}

	var metadata alerts.MetadataLookup = dbConn
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warnf("Redis unavailable at %s, metadata will not be cached: %v", cfg.Redis.Addr, err)
		} else {
			metadata = cache.NewMetadataCache(dbConn, cache.NewRedisKVStore(client), cfg.Redis.TTL, logger)
			logger.Infof("Metadata cache enabled on %s", cfg.Redis.Addr)
		}
	}

	var transport providers.Transport
	switch cfg.Email.Provider {
	case config.EmailProviderSendGrid:
		transport = providers.NewSendGridTransport(cfg.Email.SendGridAPIKey, cfg.Email.FromName, cfg.Sender())
	default:
		transport = providers.NewSMTPTransport(email.Server{
			Host:     cfg.Email.SMTPServer,
			Port:     cfg.Email.SMTPPort,
			Username: cfg.Email.Username,
			Password: cfg.Email.Password,
		}, cfg.Email.FromName, cfg.Sender())
	}

	notifier, err := providers.NewEmailNotifier(transport, providers.NotifierOptions{
		RatePerSecond: cfg.Email.RatePerSecond,
		Burst:         cfg.Email.Burst,
		MaxAttempts:   cfg.Email.MaxAttempts,
		RetryDelay:    cfg.Email.RetryDelay,
	}, logger)
	if err != nil {
		logger.Fatalf("Failed to init email notifier: %v", err)
	}

	recorder := alerts.NewRecorder(dbConn, metadata, notifier, logger,
		alerts.WithMetadataFallback(cfg.Alerts.MetadataFallback),
		alerts.WithMetrics(recorderMetrics),
	)
	scanner := alerts.NewScanner(dbConn, recorder, logger, recorderMetrics)
	hook := alerts.NewHook(scanner, dbConn, logger, recorderMetrics)
	completions := alerts.NewCompletions(dbConn, hook)

	var wg sync.WaitGroup
	var consumer *kafka.Consumer
	if cfg.Kafka.Broker != "" {
		consumer = kafka.NewConsumer(kafka.Config{
			Broker:  cfg.Kafka.Broker,
			Topic:   cfg.Kafka.Topic,
			GroupID: cfg.Kafka.GroupID,
		}, completions, logger)
		logger.Infof("Kafka consumer initialized with topic: %s", cfg.Kafka.Topic)
		consumer.Start(ctx, &wg)
	}

	// Start API server
	handler := api.NewHandler(dbConn, completions, logger)
	router := api.NewRouter(handler, logger, cfg.API.BasePath, metricsHandler)
	srv := &http.Server{Addr: cfg.API.Port, Handler: router}

	go func() {
		logger.Infof("Starting API server on %s", cfg.API.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("API server failed: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Infof("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("API server shutdown failed: %v", err)
	}
	wg.Wait()
	if consumer != nil {
		if err := consumer.Close(); err != nil {
			logger.Errorf("Kafka consumer close failed: %v", err)
		}
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Errorf("Tracing shutdown failed: %v", err)
	}
}
