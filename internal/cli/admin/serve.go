package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/lumenai/skillforge/internal/config"
	"github.com/lumenai/skillforge/internal/database"
	"github.com/lumenai/skillforge/internal/domain"
	"github.com/lumenai/skillforge/internal/jobs"
	"github.com/lumenai/skillforge/internal/openai"
	"github.com/lumenai/skillforge/internal/repository"
	"github.com/lumenai/skillforge/internal/service"
	"github.com/lumenai/skillforge/internal/storage"
	"github.com/lumenai/skillforge/internal/telemetry"
	"github.com/lumenai/skillforge/internal/vector"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the ingestion workers",
		Long:  "Run the knowledge processing and vector sync workers until interrupted",
		RunE:  runServe,
	}

	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	pool, err := database.NewPool(ctx, database.Config{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	gateway, err := buildStorageGateway(ctx, cfg)
	if err != nil {
		return err
	}
	log.Printf("storage provider ready: %s", gateway.Provider())

	sourceRepo := repository.NewKnowledgeSourceRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)
	configRepo := repository.NewRetrievalConfigRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	vectorClient := vector.NewPgVectorClient(pool)

	hierarchySvc := service.NewHierarchyService(sourceRepo, chunkRepo, configRepo, gateway, vectorClient, txRunner)
	ingestionSvc := service.NewIngestionService(sourceRepo, chunkRepo, gateway, vectorClient)

	processingWorker := jobs.NewWorker("processing",
		jobs.NewProcessingWorker(&sourceClaimerAdapter{svc: ingestionSvc, repo: sourceRepo}, hierarchySvc),
		cfg.ProcessPollInterval)
	go processingWorker.Start(ctx)

	var syncWorker *jobs.Worker
	if cfg.HasOpenAI() {
		embedder := openai.NewClient(cfg.OpenAIAPIKey)
		syncWorker = jobs.NewWorker("sync",
			jobs.NewSyncWorker(&chunkSyncAdapter{svc: hierarchySvc}, embedder, vectorClient),
			cfg.SyncPollInterval)
		go syncWorker.Start(ctx)
	} else {
		log.Println("sync worker disabled: OPENAI_API_KEY not configured")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	processingWorker.Stop()
	if syncWorker != nil {
		syncWorker.Stop()
	}

	log.Println("workers exited")
	return nil
}

// buildStorageGateway selects the object storage provider. S3 is preferred;
// when it is not configured or unreachable the local filesystem takes over,
// loudly, so a misconfigured deployment still ingests.
func buildStorageGateway(ctx context.Context, cfg *config.Config) (service.StorageGatewayInterface, error) {
	if cfg.StorageProvider == storage.ProviderS3 && cfg.HasS3() {
		s3Gateway, err := storage.NewS3Gateway(ctx, storage.S3GatewayConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err == nil {
			if err := s3Gateway.EnsureBucket(ctx); err == nil {
				log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
				return s3Gateway, nil
			}
			log.Printf("S3 bucket check failed, falling back to filesystem storage: %v", err)
		} else {
			log.Printf("S3 client init failed, falling back to filesystem storage: %v", err)
		}
	} else if cfg.StorageProvider == storage.ProviderS3 {
		log.Println("S3 credentials not configured, falling back to filesystem storage")
	}

	fsGateway, err := storage.NewFSGateway(cfg.StorageDir, cfg.StorageBaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to init filesystem storage: %w", err)
	}
	return fsGateway, nil
}

// sourceClaimerAdapter lets the processing worker claim through the
// repository but finish through the service, keeping the status CAS rules in
// one place.
type sourceClaimerAdapter struct {
	svc  *service.IngestionService
	repo *repository.KnowledgeSourceRepository
}

func (a *sourceClaimerAdapter) ClaimPending(ctx context.Context, limit int) ([]*domain.KnowledgeSource, error) {
	return a.repo.ClaimPending(ctx, limit)
}

func (a *sourceClaimerAdapter) MarkCompleted(ctx context.Context, id string, totalChunks, totalTokens int) error {
	return a.svc.MarkCompleted(ctx, id, totalChunks, totalTokens)
}

func (a *sourceClaimerAdapter) MarkFailed(ctx context.Context, id string, processingError string) error {
	return a.svc.MarkFailed(ctx, id, processingError)
}

// chunkSyncAdapter exposes the hierarchy service to the sync worker
type chunkSyncAdapter struct {
	svc *service.HierarchyService
}

func (a *chunkSyncAdapter) PendingSync(ctx context.Context, limit int) ([]*domain.Chunk, error) {
	return a.svc.PendingSync(ctx, limit)
}

func (a *chunkSyncAdapter) MarkSynced(ctx context.Context, chunkID string) error {
	return a.svc.MarkSynced(ctx, chunkID)
}

func runMigrations(databaseURL string) error {
	// golang-migrate drives a database/sql connection, not the pgx pool
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
