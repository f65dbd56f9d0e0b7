package container

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"cardistry-catalog/internal/config"
	infraCache "cardistry-catalog/internal/infrastructure/cache"
	"cardistry-catalog/internal/infrastructure/database"
	"cardistry-catalog/internal/infrastructure/storage"
	"cardistry-catalog/pkg/cache"
	"cardistry-catalog/pkg/jwt"

	"cardistry-catalog/internal/domains/move/feed"
	moveHandler "cardistry-catalog/internal/domains/move/handler"
	moveRepo "cardistry-catalog/internal/domains/move/repository"
	moveService "cardistry-catalog/internal/domains/move/service"

	sessionHandler "cardistry-catalog/internal/domains/session/handler"
	sessionRepo "cardistry-catalog/internal/domains/session/repository"
	sessionService "cardistry-catalog/internal/domains/session/service"
)

// ========================================
// CONTAINER STRUCT
// ========================================

// Container holds every long-lived dependency of the API process.
type Container struct {
	// ========================================
	// INFRASTRUCTURE LAYER
	// ========================================
	Config     *config.Config
	DB         *database.PostgresDB
	Cache      cache.Cache
	Redis      *infraCache.RedisCache // nil when Redis was unreachable at startup
	JWTManager *jwt.Manager
	Storage    *storage.MinIOStorage
	Images     *storage.ImageProcessor
	ChangeFeed feed.ChangeFeed

	// ========================================
	// REPOSITORY LAYER
	// ========================================
	MoveRepo    moveRepo.MoveRepository
	AccountRepo sessionRepo.AccountRepository

	// ========================================
	// SERVICE LAYER
	// ========================================
	Live           *feed.LiveCollection
	MoveService    moveService.Service
	UploadTracker  *moveService.UploadTracker
	SessionService sessionService.Service

	// ========================================
	// HANDLER LAYER
	// ========================================
	MoveHandler    *moveHandler.Handler
	SessionHandler *sessionHandler.Handler
}

// NewContainer loads configuration and connects every backend. PostgreSQL
// and MinIO are required; without Redis the process falls back to an
// in-memory cache and an in-process change feed.
func NewContainer(ctx context.Context) (*Container, error) {
	log.Info().Msg("🔧 Initializing DI container")

	c := &Container{}

	// ========================================
	// STEP 1: LOAD CONFIGURATION
	// ========================================
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	c.Config = cfg

	// ========================================
	// STEP 2: INITIALIZE DATABASE
	// ========================================
	dbConfig, err := config.LoadDatabaseConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load database config: %w", err)
	}

	db := database.NewPostgresDB(dbConfig)

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := db.Connect(connectCtx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	c.DB = db

	// ========================================
	// STEP 3: INITIALIZE CACHE + CHANGE FEED
	// ========================================
	redisCache := infraCache.NewRedisCache(cfg.Redis.Host, cfg.Redis.Password, cfg.Redis.DB)
	if err := redisCache.Connect(connectCtx); err != nil {
		log.Warn().Err(err).Msg("⚠️  Redis unavailable, using in-memory cache and in-process change feed")
		_ = redisCache.Close()
		c.Cache = cache.NewMemoryCache()
		c.ChangeFeed = feed.NewLocalChangeFeed()
	} else {
		c.Redis = redisCache
		c.Cache = redisCache
		c.ChangeFeed = feed.NewRedisChangeFeed(redisCache.Client, cfg.Feed.ChangeChannel)
	}

	c.JWTManager = jwt.NewManager(cfg.JWT.Secret, time.Duration(cfg.JWT.SessionExpiry)*time.Hour)

	// ========================================
	// STEP 4: INITIALIZE ASSET STORE
	// ========================================
	minioStorage, err := storage.NewMinIOStorage(connectCtx, cfg.MinIO)
	if err != nil {
		c.Cleanup()
		return nil, fmt.Errorf("failed to init asset store: %w", err)
	}
	c.Storage = minioStorage
	c.Images = storage.NewImageProcessor(cfg.Feed.MaxImageBytes, cfg.Feed.MaxImageEdge)

	// ========================================
	// STEP 5: REPOSITORIES, SERVICES, HANDLERS
	// ========================================
	c.initRepositories()
	c.initServices()
	c.initHandlers()

	log.Info().Msg("🎉 DI container initialized")
	return c, nil
}

func (c *Container) initRepositories() {
	c.MoveRepo = moveRepo.NewPostgresRepository(c.DB.Pool)
	c.AccountRepo = sessionRepo.NewPostgresAccountRepository(c.DB.Pool)
}

func (c *Container) initServices() {
	c.Live = feed.NewLiveCollection(c.MoveRepo, c.ChangeFeed)

	c.MoveService = moveService.NewSubmissionService(
		c.MoveRepo,
		c.Storage,
		c.Images,
		c.ChangeFeed,
		c.Config.Feed.ObjectPrefix,
	)
	c.UploadTracker = moveService.NewUploadTracker(c.Cache)

	c.SessionService = sessionService.NewSessionService(
		c.AccountRepo,
		sessionService.NewPasswordProvider(c.AccountRepo),
		c.JWTManager,
		c.Cache,
	)
}

func (c *Container) initHandlers() {
	c.MoveHandler = moveHandler.NewHandler(
		c.Live,
		c.MoveService,
		c.UploadTracker,
		c.SessionService,
		c.Config.Feed.MaxImageBytes,
	)
	c.SessionHandler = sessionHandler.NewHandler(c.SessionService, c.Config.App.Environment == "production")
}

// Start opens the live collection's standing subscription. It lives until
// ctx is cancelled.
func (c *Container) Start(ctx context.Context) error {
	if err := c.Live.Start(ctx); err != nil {
		return fmt.Errorf("failed to start live collection: %w", err)
	}
	stats := c.Live.Stats()
	log.Info().Int("records", stats.Size).Msg("✅ Live collection started")
	return nil
}

// Cleanup releases connections. Cancel the Start context first so the
// subscription loop exits before Redis closes.
func (c *Container) Cleanup() {
	log.Info().Msg("🧹 Cleaning up container resources")

	if c.Live != nil && c.Live.Stats().Running {
		select {
		case <-c.Live.Done():
		case <-time.After(5 * time.Second):
			log.Warn().Msg("⚠️  Live collection did not stop in time")
		}
	}

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			log.Warn().Err(err).Msg("⚠️  Failed to close Redis")
		}
	}

	if c.DB != nil {
		c.DB.Close()
	}

	log.Info().Msg("✅ Container cleanup completed")
}
