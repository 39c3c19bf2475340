package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appdocument "github.com/ledgerdocs/backend/internal/application/document"
	appmailbox "github.com/ledgerdocs/backend/internal/application/mailbox"
	apppartner "github.com/ledgerdocs/backend/internal/application/partner"
	"github.com/ledgerdocs/backend/internal/infrastructure/audit"
	"github.com/ledgerdocs/backend/internal/infrastructure/cache"
	"github.com/ledgerdocs/backend/internal/infrastructure/config"
	"github.com/ledgerdocs/backend/internal/infrastructure/extraction"
	"github.com/ledgerdocs/backend/internal/infrastructure/logger"
	inframailbox "github.com/ledgerdocs/backend/internal/infrastructure/mailbox"
	"github.com/ledgerdocs/backend/internal/infrastructure/persistence"
	"github.com/ledgerdocs/backend/internal/infrastructure/queue"
	"github.com/ledgerdocs/backend/internal/infrastructure/registry"
	"github.com/ledgerdocs/backend/internal/infrastructure/rules"
	"github.com/ledgerdocs/backend/internal/infrastructure/scheduler"
	"github.com/ledgerdocs/backend/internal/infrastructure/storage"
	"github.com/ledgerdocs/backend/internal/infrastructure/vault"
	"github.com/ledgerdocs/backend/internal/interfaces/http/handler"
	"github.com/ledgerdocs/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting LedgerDocs Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Database with a GORM logger backed by zap
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := persistence.AutoMigrate(db.DB); err != nil {
		log.Fatal("Failed to migrate schema", zap.Error(err))
	}
	log.Info("Database connected and migrated")

	// Repositories
	docRepo := persistence.NewGormDocumentRepository(db.DB)
	versionRepo := persistence.NewGormVersionRepository(db.DB)
	validationRepo := persistence.NewGormValidationRepository(db.DB)
	vendorRepo := persistence.NewGormVendorRepository(db.DB)
	customerRepo := persistence.NewGormCustomerRepository(db.DB)
	connectorRepo := persistence.NewGormConnectorRepository(db.DB)

	// Audit trail
	auditWriter := audit.NewWriter(db.DB, cfg.Audit.BufferSize, log)
	defer auditWriter.Close()

	// Object storage
	objectStorage, err := storage.NewS3ObjectStorage(&cfg.Storage)
	if err != nil {
		log.Fatal("Failed to initialize object storage", zap.Error(err))
	}
	if cfg.Storage.EnsureBucket {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := objectStorage.EnsureBucket(ctx); err != nil {
			cancel()
			log.Fatal("Failed to ensure storage bucket", zap.Error(err))
		}
		cancel()
	}

	// Job queue and sync locks. Redis coordinates across instances; a
	// single-instance deployment without Redis falls back to in-process
	// equivalents outside production.
	var (
		jobQueue   queue.Dequeuer
		syncLocker appmailbox.Locker
	)
	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	redisErr := redisClient.Ping(pingCtx).Err()
	pingCancel()
	if redisErr != nil {
		if cfg.App.Env == "production" {
			log.Fatal("Failed to connect to Redis", zap.Error(redisErr))
		}
		log.Warn("Redis unreachable, using in-process queue and locks", zap.Error(redisErr))
		jobQueue = queue.NewMemoryJobQueue(1024)
		syncLocker = cache.NewMemoryLocker()
	} else {
		jobQueue = queue.NewRedisJobQueue(redisClient, cfg.Queue.Key)
		syncLocker = cache.NewRedisLockerWithClient(redisClient, "lock:")
	}

	// Credential vault. Without an identity connector management is
	// unavailable; plaintext credentials are never stored.
	var credentialVault appmailbox.Vault
	if cfg.Vault.Identity != "" {
		v, err := vault.NewAgeVault(cfg.Vault.Identity)
		if err != nil {
			log.Fatal("Failed to initialize credential vault", zap.Error(err))
		}
		credentialVault = v
	} else {
		log.Warn("No vault identity configured, mailbox connectors are disabled")
	}

	// Extraction collaborator
	extractor, err := extraction.NewHTTPExtractor(cfg.Extraction.BaseURL, cfg.Extraction.APIKey, cfg.Extraction.Timeout, log)
	if err != nil {
		log.Fatal("Failed to initialize extractor", zap.Error(err))
	}

	// Rule evaluator: a configured catalogue service, or the built-in
	// baseline rules when none is set
	var evaluator appdocument.RuleEvaluator
	if cfg.Rules.BaseURL != "" {
		evaluator, err = rules.NewHTTPEvaluator(cfg.Rules.BaseURL, cfg.Rules.APIKey, cfg.Rules.Timeout, log)
		if err != nil {
			log.Fatal("Failed to initialize rule evaluator", zap.Error(err))
		}
	} else {
		evaluator = rules.NewBaselineEvaluator()
	}

	// Tax-id registry lookup
	var registryClient apppartner.RegistryClient
	if cfg.Registry.Enabled {
		registryClient = registry.NewViesClient(cfg.Registry.BaseURL, cfg.Registry.Timeout, log)
	}

	// Application services
	ingestionService := appdocument.NewIngestionService(docRepo, objectStorage, jobQueue, auditWriter, log)
	validationService := appdocument.NewValidationService(docRepo, versionRepo, validationRepo, evaluator, log)
	correctionService := appdocument.NewCorrectionService(docRepo, versionRepo, validationService, auditWriter, log)
	resolverService := apppartner.NewResolverService(vendorRepo, customerRepo, registryClient, log)

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	// Mailbox polling
	var syncService *appmailbox.SyncService
	mailboxScheduler := scheduler.NewMailboxScheduler(func(ctx context.Context, connectorID uuid.UUID) error {
		_, err := syncService.RunSync(ctx, connectorID)
		return err
	}, log)
	syncService = appmailbox.NewSyncService(
		connectorRepo, docRepo, ingestionService,
		inframailbox.NewIMAPDialer(log), credentialVault, syncLocker, mailboxScheduler,
		auditWriter, log,
	)
	connectorService := appmailbox.NewConnectorService(connectorRepo, credentialVault, mailboxScheduler, auditWriter, log)

	mailboxScheduler.Start(rootCtx)
	defer mailboxScheduler.Stop()
	if err := connectorService.ScheduleAllActive(rootCtx); err != nil {
		log.Error("Failed to restore connector schedules", zap.Error(err))
	}

	// Extraction worker pool
	extractionWorker := appdocument.NewExtractionWorker(
		docRepo, versionRepo, objectStorage, extractor, validationService, resolverService, auditWriter, log,
	)
	workerPool := queue.NewWorkerPool(jobQueue, extractionWorker, cfg.Queue.Workers, cfg.Queue.MaxAttempts, log)
	workerPool.Start(rootCtx)
	defer workerPool.Stop()

	// HTTP surface
	systemHandler := handler.NewSystemHandler(db)
	engine := router.NewEngine(router.EngineConfig{
		Environment: cfg.App.Env,
		MaxBodySize: cfg.HTTP.MaxBodySize,
	}, log, systemHandler)
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Invalid trusted proxy configuration", zap.Error(err))
		}
	}

	r := router.NewRouter(engine)
	r.Register(handler.NewDocumentHandler(ingestionService, correctionService, validationService, log))
	r.Register(handler.NewConnectorHandler(connectorService, syncService, log))
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	rootCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
