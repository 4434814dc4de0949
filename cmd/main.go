package main

import (
	"context"
	"database/sql"
	"duet/internal/app/registry"
	"duet/internal/app/server"
	"duet/internal/app/worker"
	"duet/internal/config"
	"duet/internal/core/services"
	"duet/internal/platform/logger"
	"duet/internal/platform/telemetry"
	"duet/internal/plugins/postgres"
	redisPlugin "duet/internal/plugins/redis"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
)

func main() {
	// Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Config
	cfg := config.Load()

	// Logger
	log := logger.NewLogger(*cfg)
	log.Info("starting application")

	otelShutdown, err := telemetry.InitTelemetry(ctx, *cfg)
	if err != nil {
		log.Error("failed to initialize telemetry", "err", err)
	}
	defer func() {
		log.Info("flushing telemetry...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			log.Error("telemetry shutdown failed", "err", err)
		}
	}()

	// Infra
	var pdb *sql.DB
	if pdb, err = postgres.New(ctx, *cfg.Postgres); err != nil {
		log.Error("postgres connection failed", "DSN", cfg.Postgres.DSN)
		return
	}
	log.Info("postgres connected")
	var rdb *redis.Client
	if rdb, err = redisPlugin.NewRedisClient(ctx, *cfg.Redis); err != nil {
		log.Error("redis connection failed", "url", cfg.Redis.URL)
		return
	}
	log.Info("redis connected")

	// Adapters
	userRepo := postgres.NewUserRepository(pdb)
	msgRepo := postgres.NewMessageRepo(pdb)
	presMirror := redisPlugin.NewRedisPresenceMirror(rdb)
	msgQueue := redisPlugin.NewRedisMessageQueue(rdb)

	// Core services
	hub := registry.NewHub(log)
	txManager := services.NewTxManager(pdb)
	tokenSvc := services.NewTokenService(cfg.SecretToken)
	userSvc := services.NewUserService(log, userRepo)
	presenceSvc := services.NewPresenceService(log, hub, presMirror, userRepo)
	msgSvc := services.NewMessageService(log, hub, msgQueue, msgRepo, txManager, cfg.Worker.IngestStream)

	// Ingest worker
	wrkr := worker.NewIngestWorker(log, msgQueue, msgSvc, cfg.Worker.IngestStream, cfg.Worker.ConsumerGroup)
	if err := wrkr.Run(ctx); err != nil {
		log.Error("ingest worker failed to start", "err", err)
		return
	}

	// Server
	srv := server.NewServer(log, cfg.Service.Name, cfg.Service.Addr, userSvc, tokenSvc, presenceSvc, msgSvc, hub)
	if err := srv.Start(); err != nil {
		log.Error("server stopped", "err", err)
	}
}
