package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/opencivic/civicflow/internal/config"
	"github.com/opencivic/civicflow/internal/gamification"
	"github.com/opencivic/civicflow/internal/identity"
	httpserver "github.com/opencivic/civicflow/internal/interfaces/http"
	"github.com/opencivic/civicflow/internal/media"
	"github.com/opencivic/civicflow/internal/realtime"
	"github.com/opencivic/civicflow/internal/repository"
	"github.com/opencivic/civicflow/internal/workflow"
	"github.com/opencivic/civicflow/pkg/database"
	"github.com/opencivic/civicflow/pkg/utils"
)

func main() {
	// Local overrides for CIVICFLOW_* variables; absent in production
	_ = gotenv.Load()

	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting CivicFlow",
		zap.Int("port", cfg.Server.Port))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.Run(ctx, cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	users := repository.NewUserRepository(db.DB, logger)
	issues := repository.NewIssueRepository(db.DB, logger)
	assignments := repository.NewAssignmentRepository(db.DB, logger)
	tenders := repository.NewTenderRepository(db.DB, logger)
	bids := repository.NewBidRepository(db.DB, logger)
	progress := repository.NewWorkProgressRepository(db.DB, logger)

	var publisher realtime.Publisher = realtime.NopPublisher{}
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis unavailable, change events disabled", zap.Error(err))
			redisClient.Close()
		} else {
			defer redisClient.Close()
			publisher = realtime.NewRedisPublisher(redisClient, cfg.Redis.PublishAfter, logger)
		}
	}

	mediaStore, err := media.NewLocalStore(cfg.Media.BaseDir, cfg.Media.URLPrefix, cfg.Media.MaxFileSize, logger)
	if err != nil {
		logger.Fatal("Failed to initialize media store", zap.Error(err))
	}

	tokens := identity.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	points := gamification.NewService(users, logger)

	engine := workflow.NewEngine(db, issues, assignments, tenders, bids, progress, users,
		points, publisher, logger)

	server := httpserver.NewServer(httpserver.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		CORSOrigins:  cfg.Server.CORSOrigins,
	}, engine, tokens, users, mediaStore, logger)

	if err := server.Start(ctx); err != nil {
		logger.Fatal("HTTP server failed", zap.Error(err))
	}

	logger.Info("Server exited")
}
