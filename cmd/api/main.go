package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/deepfakex/server/internal/analysis"
	"github.com/deepfakex/server/internal/auth"
	"github.com/deepfakex/server/internal/config"
	"github.com/deepfakex/server/internal/inference"
	"github.com/deepfakex/server/internal/logger"
	"github.com/deepfakex/server/internal/metrics"
	"github.com/deepfakex/server/internal/server"
	"github.com/deepfakex/server/internal/stash"
	"github.com/deepfakex/server/internal/storage"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	logg, err := logger.Init()
	if err != nil {
		panic("init logger: " + err.Error())
	}
	defer logg.Sync()

	cfg, err := config.Load()
	if err != nil {
		logg.Fatal("load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := storage.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logg.Fatal("connect postgres", zap.Error(err))
	}
	defer dbPool.Close()

	if err := storage.EnsureSchema(ctx, dbPool); err != nil {
		logg.Fatal("ensure schema", zap.Error(err))
	}

	fileStash, err := buildStash(ctx, cfg)
	if err != nil {
		logg.Fatal("init stash", zap.Error(err))
	}

	metrics.InitMetrics()

	authRepo := auth.NewRepository(dbPool)
	authService := auth.NewService(authRepo, cfg.Auth)

	analysisRepo := analysis.NewRepository(dbPool)
	detector := inference.NewClient(cfg.Inference)
	analysisService := analysis.NewService(analysisRepo, fileStash, detector, logg)

	router := server.NewRouter(server.Dependencies{
		Config:          cfg,
		DB:              dbPool,
		Stash:           fileStash,
		AuthService:     authService,
		AnalysisService: analysisService,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logg.Info("DeepFakeX API listening",
			zap.String("address", cfg.Server.Address()),
			zap.String("inference_url", cfg.Inference.URL),
			zap.String("stash_backend", cfg.Stash.Backend))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logg.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logg.Info("shutting down gracefully")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logg.Error("shutdown error", zap.Error(err))
	}
}

func buildStash(ctx context.Context, cfg config.Config) (stash.Stash, error) {
	switch cfg.Stash.Backend {
	case "minio":
		client, err := storage.NewMinIOClient(cfg.MinIO)
		if err != nil {
			return nil, err
		}
		if err := storage.EnsureBucket(ctx, client, cfg.MinIO.Bucket, cfg.MinIO.Region); err != nil {
			return nil, err
		}
		return stash.NewMinIO(client, cfg.MinIO.Bucket), nil
	case "disk":
		return stash.NewDisk(cfg.Stash.Dir)
	default:
		return nil, fmt.Errorf("unknown stash backend %q", cfg.Stash.Backend)
	}
}
