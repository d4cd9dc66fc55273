// Package container provides dependency injection using Uber FX
package container

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	allergenapp "github.com/platewise/v1/internal/application/allergen"
	menuapp "github.com/platewise/v1/internal/application/menu"
	uploadapp "github.com/platewise/v1/internal/application/upload"
	"github.com/platewise/v1/internal/domain/allergen"
	"github.com/platewise/v1/internal/infrastructure/ai/menuvision"
	"github.com/platewise/v1/internal/infrastructure/config"
	"github.com/platewise/v1/internal/infrastructure/http/apiserver"
	gormRepo "github.com/platewise/v1/internal/infrastructure/persistence/gorm"
	"github.com/platewise/v1/internal/infrastructure/persistence/memory"
	"github.com/platewise/v1/internal/infrastructure/persistence/migrations"
	redisRepo "github.com/platewise/v1/internal/infrastructure/persistence/redis"
	"github.com/platewise/v1/internal/ports/inbound"
	"github.com/platewise/v1/internal/ports/outbound"
	"github.com/platewise/v1/pkg/logger"
)

// Module provides all dependency injection modules
var Module = fx.Options(
	ConfigModule,
	LoggerModule,
	DatabaseModule,
	CacheModule,
	RepositoryModule,
	AllergenModule,
	ServiceModule,
	HTTPModule,
	LifecycleModule,
)

// ConfigModule provides configuration
var ConfigModule = fx.Provide(
	func() (*config.Config, error) {
		return config.Load("")
	},
)

// LoggerModule provides logging
var LoggerModule = fx.Provide(
	func(cfg *config.Config) (*zap.Logger, error) {
		return logger.New(logger.Config{
			Level:       cfg.App.LogLevel,
			Format:      cfg.App.LogFormat,
			Development: cfg.App.Debug,
			ServiceName: cfg.App.Name,
		})
	},
)

// DatabaseModule provides the Postgres connection and runs migrations
var DatabaseModule = fx.Provide(
	func(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
		logLevel := gormLogger.Silent
		if cfg.App.Debug {
			logLevel = gormLogger.Info
		}

		db, err := gorm.Open(postgres.Open(cfg.GetDSN()), &gorm.Config{
			Logger: gormLogger.Default.LogMode(logLevel),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
		sqlDB.SetConnMaxIdleTime(cfg.Database.ConnMaxIdleTime)

		if cfg.Database.AutoMigrate {
			migrator, err := migrations.New(sqlDB, log)
			if err != nil {
				return nil, fmt.Errorf("failed to create migrator: %w", err)
			}
			if err := migrator.Up(); err != nil {
				return nil, fmt.Errorf("failed to migrate database: %w", err)
			}
		}

		log.Info("Connected to database",
			zap.String("host", cfg.Database.Host),
			zap.String("database", cfg.Database.Database),
		)

		return db, nil
	},
)

// CacheModule provides caching. Redis is used when reachable; development
// setups without it fall back to the in-process cache.
var CacheModule = fx.Provide(
	func(cfg *config.Config, log *zap.Logger) outbound.CacheRepository {
		client, err := redisRepo.NewClient(cfg, log)
		if err != nil {
			if cfg.IsProduction() {
				log.Error("Redis unavailable", zap.Error(err))
			}
			log.Warn("Falling back to in-memory cache", zap.Error(err))
			return memory.NewCacheRepository()
		}
		return redisRepo.NewCacheRepository(client, log)
	},
)

// RepositoryModule provides repository implementations
var RepositoryModule = fx.Provide(
	gormRepo.NewTransactor,
	gormRepo.NewUploadRepository,
	gormRepo.NewRestaurantRepository,
	gormRepo.NewMenuRepository,
	gormRepo.NewRecipeRepository,
	gormRepo.NewIngredientRepository,
)

// AllergenModule provides the canonical marker registry and reconciler
var AllergenModule = fx.Provide(
	allergen.NewRegistry,
	allergenapp.NewReconciler,
)

// ServiceModule provides application services
var ServiceModule = fx.Provide(
	// Menu vision client
	func(cfg *config.Config, cache outbound.CacheRepository, log *zap.Logger) outbound.MenuExtractionService {
		clientCache := cache
		if !cfg.AI.EnableCache {
			clientCache = nil
		}
		return menuvision.NewClient(menuvision.Config{
			ExtractionURL: cfg.AI.ExtractionURL,
			DeductionURL:  cfg.AI.DeductionURL,
			APIKey:        cfg.AI.APIKey,
			Timeout:       cfg.AI.Timeout,
		}, clientCache, log)
	},

	fx.Annotate(
		menuapp.NewMenuService,
		fx.As(new(inbound.MenuService)),
	),
	fx.Annotate(
		uploadapp.NewUploadService,
		fx.As(new(inbound.UploadService)),
	),
)

// HTTPModule provides the HTTP server
var HTTPModule = fx.Provide(
	apiserver.NewAPIServer,
)

// LifecycleModule provides lifecycle hooks
var LifecycleModule = fx.Invoke(
	RegisterLifecycleHooks,
)

// RegisterLifecycleHooks registers application lifecycle hooks
func RegisterLifecycleHooks(
	lc fx.Lifecycle,
	cfg *config.Config,
	log *zap.Logger,
	db *gorm.DB,
	server *apiserver.APIServer,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting application",
				zap.String("name", cfg.App.Name),
				zap.String("version", cfg.App.Version),
				zap.String("environment", cfg.App.Environment),
			)

			go func() {
				if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("Failed to start HTTP server", zap.Error(err))
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down application")

			if err := server.Shutdown(ctx); err != nil {
				log.Error("Failed to shutdown HTTP server", zap.Error(err))
			}

			sqlDB, err := db.DB()
			if err == nil {
				if err := sqlDB.Close(); err != nil {
					log.Error("Failed to close database connection", zap.Error(err))
				}
			}

			_ = log.Sync()

			return nil
		},
	})
}
