package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/archivus/sitedocs/internal/app/config"
	"github.com/archivus/sitedocs/internal/app/middleware"
	"github.com/archivus/sitedocs/internal/domain/services"
	"github.com/archivus/sitedocs/internal/infrastructure/auth/jwtauth"
	supabaseauth "github.com/archivus/sitedocs/internal/infrastructure/auth/supabase"
	"github.com/archivus/sitedocs/internal/infrastructure/cache"
	"github.com/archivus/sitedocs/internal/infrastructure/database"
	"github.com/archivus/sitedocs/internal/infrastructure/events"
	"github.com/archivus/sitedocs/internal/infrastructure/repositories/postgresql"
	"github.com/archivus/sitedocs/internal/infrastructure/storage/httpfetch"
	"github.com/archivus/sitedocs/internal/infrastructure/storage/local"
	"github.com/archivus/sitedocs/internal/infrastructure/storage/s3"
	supabasestorage "github.com/archivus/sitedocs/internal/infrastructure/storage/supabase"
	"github.com/archivus/sitedocs/pkg/logger"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ServiceManager manages all application services
type ServiceManager struct {
	Config *config.Config
	Logger *logger.Logger

	// Infrastructure
	DB           *database.DB
	Repositories *postgresql.Repositories
	// CacheService is nil when Redis is disabled
	CacheService *cache.RedisCache
	Bus          services.ChangeBus
	Blobs        services.BlobStore
	// LocalFiles is set when blobs live on the local filesystem
	LocalFiles *local.StorageService
	Verifier   services.TokenVerifier

	pgPool *pgxpool.Pool

	// Domain services
	Access    *services.AccessService
	Activity  *services.ActivityService
	Projects  *services.ProjectService
	Documents *services.DocumentService
	Versions  *services.VersionService
	Locks     *services.LockService
	Approvals *services.ApprovalService
	Notifier  *services.ChangeNotifier
}

// NewServiceManager creates a new service manager
func NewServiceManager(ctx context.Context, cfg *config.Config, db *database.DB, log *logger.Logger) (*ServiceManager, error) {
	sm := &ServiceManager{
		Config:       cfg,
		Logger:       log,
		DB:           db,
		Repositories: postgresql.NewRepositories(db),
	}

	if cfg.Redis.Enabled {
		cacheService, err := cache.CreateCacheService(cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize cache service: %w", err)
		}
		sm.CacheService = cacheService
	}

	if err := sm.initBlobStore(ctx); err != nil {
		sm.Close()
		return nil, err
	}
	if err := sm.initBus(ctx); err != nil {
		sm.Close()
		return nil, err
	}
	if err := sm.initVerifier(); err != nil {
		sm.Close()
		return nil, err
	}

	sm.initDomainServices()
	return sm, nil
}

func (sm *ServiceManager) initBlobStore(ctx context.Context) error {
	cfg := sm.Config
	switch cfg.Storage.Type {
	case "supabase":
		store, err := supabasestorage.NewStorageService(supabasestorage.Config{
			URL:    cfg.Supabase.URL,
			APIKey: cfg.Supabase.ServiceKey,
			Bucket: cfg.Supabase.Bucket,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize supabase storage: %w", err)
		}
		sm.Blobs = store
	case "s3":
		store, err := s3.NewStorageService(ctx, s3.Config{
			Endpoint:  cfg.Storage.S3Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			Bucket:    cfg.Storage.S3Bucket,
			Region:    cfg.Storage.S3Region,
			UseSSL:    cfg.Storage.S3UseSSL,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize s3 storage: %w", err)
		}
		sm.Blobs = store
	default:
		store := local.NewStorageService(cfg.Storage.Path, cfg.Storage.PublicBaseURL, cfg.Storage.SigningSecret)
		sm.Blobs = store
		sm.LocalFiles = store
	}

	sm.Logger.Info("Blob storage initialized", "type", cfg.Storage.Type)
	return nil
}

func (sm *ServiceManager) initBus(ctx context.Context) error {
	switch sm.Config.Notifications.Backend {
	case "redis":
		if sm.CacheService == nil {
			return errors.New("redis notifications require redis")
		}
		sm.Bus = events.NewRedisBus(sm.CacheService.Client(), sm.Logger)
	case "postgres":
		pool, err := events.NewPostgresPool(ctx, sm.Config.GetDatabaseURL(), 10)
		if err != nil {
			return fmt.Errorf("failed to initialize notification pool: %w", err)
		}
		sm.pgPool = pool
		sm.Bus = events.NewPostgresBus(pool, sm.Logger)
	default:
		sm.Bus = events.NewMemoryBus()
	}

	sm.Logger.Info("Change bus initialized", "backend", sm.Config.Notifications.Backend)
	return nil
}

// initVerifier checks tokens locally when a JWT secret is configured and
// falls back to the Supabase auth API.
func (sm *ServiceManager) initVerifier() error {
	var chain middleware.ChainVerifier
	if sm.Config.JWT.Secret != "" {
		chain = append(chain, jwtauth.NewVerifier(sm.Config.JWT.Secret, sm.Config.JWT.Audience))
	}
	if sm.Config.Supabase.URL != "" && sm.Config.Supabase.APIKey != "" {
		authService, err := supabaseauth.NewAuthService(supabaseauth.Config{
			URL:    sm.Config.Supabase.URL,
			APIKey: sm.Config.Supabase.APIKey,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize supabase auth: %w", err)
		}
		chain = append(chain, authService)
	}
	if len(chain) == 0 {
		return errors.New("no token verifier configured")
	}
	sm.Verifier = chain
	return nil
}

func (sm *ServiceManager) initDomainServices() {
	repos := sm.Repositories

	var cacheService services.CacheService
	if sm.CacheService != nil {
		cacheService = sm.CacheService
	}

	sm.Access = services.NewAccessService(repos.ProjectRepo, repos.DocumentRepo, sm.Logger)
	sm.Activity = services.NewActivityService(repos.ActivityRepo, sm.Logger)

	deps := services.Dependencies{
		Projects:  repos.ProjectRepo,
		Documents: repos.DocumentRepo,
		Versions:  repos.VersionRepo,
		Shares:    repos.ShareRepo,
		Approvals: repos.ApprovalRepo,
		Events:    repos.EventRepo,
		Access:    sm.Access,
		Activity:  sm.Activity,
		Feed:      services.NewChangeFeed(sm.Bus, cacheService, sm.Logger),
		Blobs:     sm.Blobs,
		Fetcher:   httpfetch.New(sm.Config.Storage.FetchTimeout),
		Logger:    sm.Logger,
		Options: services.Options{
			MaxFileSize:  sm.Config.Documents.MaxFileSize,
			SignedURLTTL: sm.Config.Documents.SignedURLTTL,
			EnforceLocks: sm.Config.Documents.EnforceLocks,
		},
	}

	sm.Projects = services.NewProjectService(repos.ProjectRepo, sm.Access, sm.Activity, sm.Logger)
	sm.Versions = services.NewVersionService(deps)
	sm.Documents = services.NewDocumentService(deps, sm.Versions)
	sm.Locks = services.NewLockService(deps)
	sm.Approvals = services.NewApprovalService(deps)
	sm.Notifier = services.NewChangeNotifier(sm.Bus, sm.Documents, sm.Logger)
}

// HealthCheck reports the status of each backing service
func (sm *ServiceManager) HealthCheck(ctx context.Context) map[string]string {
	status := map[string]string{"database": "healthy"}

	if err := sm.Repositories.HealthCheck(ctx); err != nil {
		sm.Logger.Warn("Database health check failed", "error", err)
		status["database"] = "unhealthy"
	}

	status["redis"] = "not_configured"
	if sm.CacheService != nil {
		status["redis"] = "healthy"
		if err := sm.CacheService.Ping(ctx); err != nil {
			sm.Logger.Warn("Redis health check failed", "error", err)
			status["redis"] = "unhealthy"
		}
	}

	if sm.pgPool != nil {
		status["notifications"] = "healthy"
		if err := sm.pgPool.Ping(ctx); err != nil {
			sm.Logger.Warn("Notification pool health check failed", "error", err)
			status["notifications"] = "unhealthy"
		}
	}
	return status
}

// Close gracefully shuts down all services
func (sm *ServiceManager) Close() error {
	var errs []error

	if sm.Bus != nil {
		if err := sm.Bus.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close change bus: %w", err))
		}
	}
	if sm.pgPool != nil {
		sm.pgPool.Close()
	}
	if sm.CacheService != nil {
		if err := sm.CacheService.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close cache service: %w", err))
		}
	}
	if sm.DB != nil {
		if err := sm.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	return errors.Join(errs...)
}
