package main

import (
	"context"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/swasthwrap/healthvault/internal/api"
	"github.com/swasthwrap/healthvault/internal/audit"
	"github.com/swasthwrap/healthvault/internal/config"
	"github.com/swasthwrap/healthvault/internal/credential"
	"github.com/swasthwrap/healthvault/internal/db"
	"github.com/swasthwrap/healthvault/internal/ledger"
	"github.com/swasthwrap/healthvault/internal/records"
	"github.com/swasthwrap/healthvault/internal/scoring"
	"github.com/swasthwrap/healthvault/internal/services"
	"github.com/swasthwrap/healthvault/internal/storage"
	"github.com/swasthwrap/healthvault/pkg/logger"
	"github.com/swasthwrap/healthvault/pkg/metrics"
)

func main() {
	cfg, err := loadConfiguration()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger, err := logger.NewLogger(cfg.Server.Environment)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()
	zap.ReplaceGlobals(zapLogger)

	config.LogConfig(zapLogger)

	metricsCollector := metrics.NewMetricsCollector()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore, err := buildStore(cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to initialize record store", zap.Error(err))
	}

	if cfg.Demo.SeedOnBoot {
		if err := seedRecords(ctx, store, zapLogger); err != nil {
			zapLogger.Fatal("Failed to seed demo records", zap.Error(err))
		}
	}

	blobs := buildStorageChain(ctx, cfg, zapLogger)
	anchor, simulator := buildAnchors(ctx, cfg, zapLogger)
	publisher := buildPublisher(cfg, zapLogger)
	defer publisher.Close()

	builder := buildCredentialBuilder(cfg, zapLogger)
	scorer := scoring.NewScorer(rand.New(rand.NewSource(time.Now().UnixNano())))

	networkLabel := "Base Sepolia"
	if cfg.Ledger.Network == "base" {
		networkLabel = "Base Mainnet"
	}

	intakeService := services.NewIntakeService(
		store, blobs, anchor, simulator, builder, scorer, publisher,
		services.IntakeConfig{
			Network:         cfg.Ledger.Network,
			NetworkLabel:    networkLabel,
			GatewayURL:      cfg.Storage.GatewayURL,
			ExplorerURL:     cfg.Ledger.ExplorerURL,
			PublicURL:       cfg.Server.PublicURL,
			ContractAddress: cfg.Ledger.ContractAddress,
		},
		zapLogger, metricsCollector,
	)
	verifyService := services.NewVerifyService(
		store, rand.New(rand.NewSource(time.Now().UnixNano())),
		services.VerifyConfig{
			NetworkLabel:    networkLabel,
			ContractAddress: cfg.Ledger.ContractAddress,
			ExplorerURL:     cfg.Ledger.ExplorerURL,
			GatewayURL:      cfg.Storage.GatewayURL,
			PublicURL:       cfg.Server.PublicURL,
		},
		zapLogger, metricsCollector,
	)

	router := api.NewRouter(zapLogger, metricsCollector, cfg, store, intakeService, verifyService)
	router.SetupRoutes()

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Server.Port
	}
	go func() {
		if err := router.Run(":" + port); err != nil {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()
	zapLogger.Info("Server started", zap.String("port", port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("Shutting down server...")

	if closer, ok := anchor.(*ledger.RPCAnchor); ok && closer != nil {
		closer.Close()
	}
	if closeStore != nil {
		closeStore()
	}
	zapLogger.Info("Server gracefully stopped")
}

// loadConfiguration reads the JSON config file named by CONFIG_FILE, or
// falls back to defaults plus environment overrides.
func loadConfiguration() (*config.Configuration, error) {
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		return config.LoadConfig(path)
	}
	return config.InitializeDefaultConfig(), nil
}

// buildStore prefers Postgres when the database is configured; otherwise the
// index lives in memory for the lifetime of the process.
func buildStore(cfg *config.Configuration, zapLogger *zap.Logger) (records.Store, func(), error) {
	if !cfg.Database.Enabled {
		zapLogger.Info("Using in-memory record store")
		return records.NewMemoryStore(), nil, nil
	}

	database, err := db.Initialize(cfg)
	if err != nil {
		return nil, nil, err
	}
	store, err := records.NewGormStore(database)
	if err != nil {
		return nil, nil, err
	}
	zapLogger.Info("Using Postgres record store", zap.String("host", cfg.Database.Host))

	closer := func() {
		if sqlDB, err := database.DB(); err == nil {
			sqlDB.Close()
		}
	}
	return store, closer, nil
}

func seedRecords(ctx context.Context, store records.Store, zapLogger *zap.Logger) error {
	count, err := store.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		zapLogger.Info("Record store already populated, skipping seed", zap.Int("count", count))
		return nil
	}

	fixtures := records.DemoRecords()
	for _, record := range fixtures {
		if err := store.Put(ctx, record); err != nil {
			return err
		}
	}
	zapLogger.Info("Seeded demo records", zap.Int("count", len(fixtures)))
	return nil
}

// buildStorageChain assembles the backend fallback order: pinning service,
// then S3, then the deterministic CID generator that never fails.
func buildStorageChain(ctx context.Context, cfg *config.Configuration, zapLogger *zap.Logger) *storage.Chain {
	var backends []storage.Backend

	if cfg.Storage.PinningEndpoint != "" {
		backends = append(backends, storage.NewPinningClient(
			cfg.Storage.PinningEndpoint, cfg.Storage.PinningJWT, cfg.Storage.RequestTimeout))
		zapLogger.Info("Pinning backend configured", zap.String("endpoint", cfg.Storage.PinningEndpoint))
	}
	if cfg.Storage.S3Bucket != "" {
		objectStore, err := storage.NewObjectStore(ctx, cfg.Storage.S3Bucket, cfg.Storage.S3Region)
		if err != nil {
			zapLogger.Warn("S3 backend unavailable", zap.Error(err))
		} else {
			backends = append(backends, objectStore)
			zapLogger.Info("S3 backend configured", zap.String("bucket", cfg.Storage.S3Bucket))
		}
	}
	backends = append(backends, storage.NewDeterministicBackend())

	return storage.NewChain(zapLogger, backends...)
}

func buildAnchors(ctx context.Context, cfg *config.Configuration, zapLogger *zap.Logger) (ledger.Anchor, ledger.Anchor) {
	simulator := ledger.NewSimulator(rand.New(rand.NewSource(time.Now().UnixNano())))

	if cfg.Ledger.RPCEndpoint == "" {
		zapLogger.Info("No ledger RPC configured, anchoring is simulated")
		return nil, simulator
	}

	anchor, err := ledger.NewRPCAnchor(ctx, cfg.Ledger.RPCEndpoint, cfg.Ledger.PrivateKey, cfg.Ledger.RequestTimeout)
	if err != nil {
		zapLogger.Warn("Ledger RPC unreachable, anchoring is simulated", zap.Error(err))
		return nil, simulator
	}
	zapLogger.Info("Ledger RPC configured", zap.String("endpoint", cfg.Ledger.RPCEndpoint))
	return anchor, simulator
}

func buildPublisher(cfg *config.Configuration, zapLogger *zap.Logger) audit.Publisher {
	if len(cfg.Audit.Brokers) == 0 {
		zapLogger.Info("No Kafka brokers configured, audit events are dropped")
		return audit.NewNoopPublisher()
	}
	zapLogger.Info("Kafka audit publisher configured",
		zap.Strings("brokers", cfg.Audit.Brokers),
		zap.String("topic", cfg.Audit.Topic))
	return audit.NewKafkaPublisher(cfg.Audit.Brokers, cfg.Audit.Topic, zapLogger)
}

func buildCredentialBuilder(cfg *config.Configuration, zapLogger *zap.Logger) *credential.Builder {
	opts := []credential.Option{}
	if cfg.Issuer.SigningKey != "" {
		key, err := credential.ParseSigningKey(cfg.Issuer.SigningKey)
		if err != nil {
			zapLogger.Warn("Invalid issuer signing key, credentials will be unsigned", zap.Error(err))
		} else {
			opts = append(opts, credential.WithSigningKey(key))
			zapLogger.Info("Credential signing enabled")
		}
	}
	return credential.NewBuilder(cfg.Issuer.DID, cfg.Issuer.Name, opts...)
}
