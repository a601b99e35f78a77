package main

import (
	"context"
	"log"

	"go.uber.org/zap"

	"github.com/aie-platform/innovation-backend/config"
	appscron "github.com/aie-platform/innovation-backend/internal/applications/cron"
	appsrepo "github.com/aie-platform/innovation-backend/internal/applications/repository"
	appsvc "github.com/aie-platform/innovation-backend/internal/applications/service"
	"github.com/aie-platform/innovation-backend/internal/auth"
	"github.com/aie-platform/innovation-backend/internal/bootstrap"
	"github.com/aie-platform/innovation-backend/internal/categories"
	"github.com/aie-platform/innovation-backend/internal/dashboard"
	"github.com/aie-platform/innovation-backend/internal/db"
	"github.com/aie-platform/innovation-backend/internal/logger"
	s3store "github.com/aie-platform/innovation-backend/internal/storage/s3"
	usersrepo "github.com/aie-platform/innovation-backend/internal/users/repository"
	usersvc "github.com/aie-platform/innovation-backend/internal/users/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zl := logger.New(cfg.App.LogLevel, cfg.App.LogFormat)
	defer zl.Sync()

	bootstrap.SetGinMode(cfg.App.Environment)

	ctx := context.Background()

	if err := bootstrap.RunMigrations(&cfg.Database); err != nil {
		zl.Fatal("migrations", zap.Error(err))
	}

	database, err := db.Open(ctx, cfg.Database)
	if err != nil {
		zl.Fatal("open database", zap.Error(err))
	}
	defer database.Close()

	rdb, err := bootstrap.OpenRedis(ctx, cfg.Redis)
	if err != nil {
		zl.Fatal("open redis", zap.Error(err))
	}
	defer rdb.Close()

	blobs, err := s3store.New(ctx, cfg.Storage)
	if err != nil {
		zl.Fatal("open blob store", zap.Error(err))
	}

	userRepo := usersrepo.New(database.Pool)
	appRepo := appsrepo.New(database.Pool)

	users := usersvc.New(userRepo, appRepo, zl)
	applications := appsvc.New(appRepo, userRepo, blobs, zl)

	if err := users.SeedDefaults(ctx); err != nil {
		zl.Fatal("seed accounts", zap.Error(err))
	}

	sweeper := appscron.NewSweeper(appRepo, blobs, zl)
	if err := sweeper.Start(); err != nil {
		zl.Fatal("start sweeper", zap.Error(err))
	}
	defer sweeper.Stop()

	r := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName:  "innovation-backend",
		Version:      cfg.App.Version,
		DB:           database.Pool,
		Redis:        rdb,
		Sessions:     auth.NewSessionStore(rdb),
		Applications: applications,
		Users:        users,
		Categories:   categories.NewRepo(database.Pool),
		Dashboard:    dashboard.NewRepo(database.Pool),
	})

	zl.Info("listening", zap.String("port", cfg.Server.Port))
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		zl.Fatal("server", zap.Error(err))
	}
}
