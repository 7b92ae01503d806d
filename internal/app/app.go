// Package app assembles the intake pipeline from configuration. The api,
// worker and lambda entry points share it.
package app

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/planease/engine/internal/api"
	"github.com/planease/engine/internal/api/handlers"
	"github.com/planease/engine/internal/api/validators"
	"github.com/planease/engine/internal/queue/tasks"
	"github.com/planease/engine/internal/repository"
	"github.com/planease/engine/internal/services"
	"github.com/planease/engine/internal/storage"
	"github.com/planease/engine/internal/store"
	"github.com/planease/engine/pkg/config"
	"github.com/planease/engine/pkg/database"
	"github.com/planease/engine/pkg/logger"
)

// App holds the wired services and the clients that need closing.
type App struct {
	Config *config.Config

	Items   store.ItemStore
	Objects storage.ObjectStore
	Repos   *repository.Repositories

	Intake   services.IntakeService
	Finalise services.FinaliseService
	Summary  services.SummaryService

	// Queue is nil when REDIS_ADDR is unset.
	Queue *tasks.Client

	dynamo  *store.Dynamo
	pg      *store.Postgres
	db      *gorm.DB
	asynq   *asynq.Client
	redis   *redis.Client
	closers []func() error
}

// Tables maps the configured table names.
func Tables(cfg *config.Config) repository.Tables {
	return repository.Tables{
		Sessions:   cfg.IntakeTable,
		Projects:   cfg.ProjectsTable,
		Members:    cfg.MembersTable,
		Conditions: cfg.ConditionsTable,
		Documents:  cfg.DocumentsTable,
		Summaries:  cfg.SummaryTable,
	}
}

// RetryPolicy maps the configured batch retry settings.
func RetryPolicy(cfg *config.Config) store.RetryPolicy {
	p := store.DefaultRetryPolicy()
	p.MaxRetries = cfg.BatchMaxRetries
	if cfg.BatchBaseDelay > 0 {
		p.BaseDelay = cfg.BatchBaseDelay
	}
	if cfg.BatchMaxDelay > 0 {
		p.MaxDelay = cfg.BatchMaxDelay
	}
	return p
}

// FinaliseConfig maps the configured finaliser settings.
func FinaliseConfig(cfg *config.Config) services.FinaliseConfig {
	return services.FinaliseConfig{
		Bucket:              cfg.FilesBucket,
		StagingPrefix:       cfg.StagingPrefix,
		PermanentPrefix:     cfg.PermanentPrefix,
		RelocateConcurrency: cfg.RelocateConcurrency,
		ClaimSessions:       cfg.ClaimSessions,
		ClaimTTL:            cfg.ClaimTTL,
	}
}

// New connects every configured backend and builds the services.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}
	tables := Tables(cfg)

	if err := a.openItems(ctx, tables); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.openObjects(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if cfg.RedisAddr != "" {
		opt := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		a.asynq = asynq.NewClient(opt)
		a.redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		a.closers = append(a.closers, a.asynq.Close, a.redis.Close)
		a.Queue = tasks.NewClient(a.asynq)
	}

	a.Repos = repository.New(a.Items, tables, RetryPolicy(cfg))
	a.Intake = services.NewIntakeService(a.Repos.Sessions)
	a.Finalise = services.NewFinaliseService(a.Repos, a.Objects, FinaliseConfig(cfg))
	a.Summary = services.NewSummaryService(a.Repos)

	logger.L().Info("app wired",
		zap.String("item_store", cfg.ItemStore),
		zap.String("object_store", cfg.ObjectStore),
		zap.Bool("queue", a.Queue != nil),
		zap.Bool("claim_sessions", cfg.ClaimSessions),
	)
	return a, nil
}

func (a *App) openItems(ctx context.Context, tables repository.Tables) error {
	cfg := a.Config
	switch cfg.ItemStore {
	case "dynamodb":
		awsCfg, err := a.awsConfig(ctx)
		if err != nil {
			return err
		}
		client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
			if cfg.DynamoDBEndpoint != "" {
				o.BaseEndpoint = aws.String(cfg.DynamoDBEndpoint)
			}
		})
		a.dynamo = store.NewDynamo(client, tables.Schemas()...)
		a.Items = a.dynamo
	case "postgres":
		db, err := database.OpenPostgres(ctx, cfg.DatabaseURL, database.Options{Verbose: cfg.AppEnv == "development"})
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		a.db = db
		a.closers = append(a.closers, func() error { return database.Close(db) })
		a.pg = store.NewPostgres(db, tables.Schemas()...)
		a.Items = a.pg
	case "memory":
		a.Items = store.NewMemory(tables.Schemas()...)
	default:
		return fmt.Errorf("unknown item store %q", cfg.ItemStore)
	}
	return nil
}

func (a *App) openObjects(ctx context.Context) error {
	cfg := a.Config
	switch cfg.ObjectStore {
	case "s3":
		awsCfg, err := a.awsConfig(ctx)
		if err != nil {
			return err
		}
		client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if cfg.S3Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.S3Endpoint)
				o.UsePathStyle = true
			}
		})
		a.Objects = storage.NewS3(client)
	case "gcs":
		g, err := storage.NewGCS(ctx, cfg.GCSEndpoint)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, g.Close)
		a.Objects = g
	case "memory":
		a.Objects = storage.NewMemory()
	default:
		return fmt.Errorf("unknown object store %q", cfg.ObjectStore)
	}
	return nil
}

func (a *App) awsConfig(ctx context.Context) (aws.Config, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(a.Config.AWSRegion))
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return awsCfg, nil
}

// Migrate creates the item-store tables. It is a no-op for the memory store.
func (a *App) Migrate(ctx context.Context) error {
	switch {
	case a.dynamo != nil:
		return a.dynamo.CreateTables(ctx)
	case a.pg != nil:
		return a.pg.Migrate(ctx)
	}
	return nil
}

// Readiness lists the probes behind /readyz.
func (a *App) Readiness() map[string]handlers.ReadinessCheck {
	checks := map[string]handlers.ReadinessCheck{}
	if a.db != nil {
		checks["postgres"] = func(ctx context.Context) error {
			sqlDB, err := a.db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
	}
	if a.redis != nil {
		checks["redis"] = func(ctx context.Context) error { return a.redis.Ping(ctx).Err() }
	}
	return checks
}

// Dependencies builds the HTTP handlers over the wired services.
func (a *App) Dependencies() api.Dependencies {
	var finEnq handlers.FinaliseEnqueuer
	var sumEnq handlers.SummaryEnqueuer
	if a.Queue != nil {
		finEnq, sumEnq = a.Queue, a.Queue
	}
	return api.Dependencies{
		HMACSecret:      []byte(a.Config.JWTSecret),
		FinaliseHandler: handlers.NewFinaliseHandler(a.Finalise, finEnq),
		IntakeHandler:   handlers.NewIntakeHandler(a.Intake, validators.New()),
		SummaryHandler:  handlers.NewSummaryHandler(a.Summary, sumEnq),
		HealthHandler:   handlers.NewHealthHandler(a.Readiness()),
	}
}

// Close releases clients in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.L().Warn("close failed", zap.Error(err))
		}
	}
	a.closers = nil
}
