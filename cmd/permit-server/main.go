// cmd/permit-server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"cites-permits/internal/appnumber"
	commonaws "cites-permits/internal/common/aws"
	"cites-permits/internal/common/config"
	"cites-permits/internal/common/database"
	"cites-permits/internal/common/logger"
	"cites-permits/internal/common/observability"
	"cites-permits/internal/documents"
	"cites-permits/internal/httpapi"
	"cites-permits/internal/notify"
	"cites-permits/internal/outbox"
	"cites-permits/internal/search"
	"cites-permits/internal/store"
	"cites-permits/internal/validation"
	"cites-permits/internal/workflow"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting permit server...",
		zap.String("app", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Redis with retry ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	// --- Elasticsearch (optional) ---
	var indexer workflow.Indexer
	if cfg.Database.Elasticsearch.Enabled {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping()
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		indexer = search.NewIndexer(esClient.Client, cfg.Database.Elasticsearch.Index, log)
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- AWS clients ---
	sesClient, err := commonaws.NewSESClient(ctx, cfg.Notifications.AWS.Region)
	if err != nil {
		zapLog.Fatal("ses client init failed", zap.Error(err))
	}
	snsClient, err := commonaws.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
	if err != nil {
		zapLog.Fatal("sns client init failed", zap.Error(err))
	}
	s3Client, err := commonaws.NewS3Client(ctx, cfg.Documents.Region)
	if err != nil {
		zapLog.Fatal("s3 client init failed", zap.Error(err))
	}

	// --- Wiring ---
	queue := outbox.NewPostgresQueue(pg.DB)
	pgStore := store.NewPostgresStore(pg.DB, queue, log)
	cacheTTL := time.Duration(cfg.Database.Redis.CacheTTL) * time.Second
	appStore := store.NewCachedStore(pgStore, rdb.Client, cacheTTL, log)

	gateway := notify.NewGateway(sesClient, cfg.Notifications.Email.FromEmail, log)
	var alerter outbox.Alerter
	if cfg.Notifications.Alerts.Enabled {
		alerter = notify.NewSNSAlerter(snsClient, cfg.Notifications.Alerts.TopicARN)
	}

	dispatcher := outbox.NewDispatcher(queue, gateway, alerter, outbox.DispatcherConfig{
		PollInterval: time.Duration(cfg.Outbox.PollInterval) * time.Millisecond,
		SendTimeout:  time.Duration(cfg.Outbox.SendTimeout) * time.Millisecond,
		MaxAttempts:  cfg.Outbox.MaxAttempts,
		InitialDelay: time.Duration(cfg.Outbox.InitialDelay) * time.Millisecond,
		BatchSize:    cfg.Outbox.BatchSize,
	}, log)
	go dispatcher.Run(ctx)

	validator, err := validation.NewValidator(cfg.Permits.EnabledTypes)
	if err != nil {
		zapLog.Fatal("validator init failed", zap.Error(err))
	}

	generator := appnumber.New()
	submission := workflow.NewSubmissionWorkflow(appStore, generator, indexer, cfg.Notifications.AdminEmail, log)
	lifecycle := workflow.NewLifecycleWorkflow(appStore, queue, indexer, log)

	docStorage := documents.NewS3Storage(s3Client, cfg.Documents.Bucket, cfg.Documents.Prefix, cfg.Documents.Region)
	docService := documents.NewService(docStorage, cfg.Documents.MaxSizeBytes, log)

	handler := httpapi.NewHandler(validator, submission, lifecycle, appStore, docService, log)
	router := httpapi.NewRouter(handler, log)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Millisecond,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Millisecond,
	}

	serverErr := make(chan error, 1)
	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", server.Addr))
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		zapLog.Fatal("http server failed", zap.Error(err))
	case <-ctx.Done():
	}

	zapLog.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Millisecond)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("http shutdown failed", zap.Error(err))
	}
	zapLog.Info("Shutdown complete")
}
