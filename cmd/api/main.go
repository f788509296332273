package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"neuroscan/config"
	"neuroscan/internal/events"
	"neuroscan/internal/handler"
	"neuroscan/internal/repository/memory"
	"neuroscan/internal/server"
	"neuroscan/internal/services"
	"neuroscan/internal/storage"
	"neuroscan/pkg/logger"
)

func main() {
	cfg := config.LoadConfig()

	logMode := logger.DevelopmentMode
	if cfg.AppMode == server.ReleaseMode {
		logMode = logger.ProductionMode
	}
	l := logger.New(logMode)
	logger.SetGlobalLogger(l)

	uploadRepo := memory.NewUploadRepository()
	userRepo := memory.NewUserRepository()

	blobStore, err := newBlobStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize blob store: %v", err)
	}

	hub := server.NewHub(l)
	hub.Run()
	defer hub.Stop()

	sinks := events.Fanout{hub}
	if cfg.PublishEvents {
		redisPub := events.NewRedisPublisher(
			fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
			cfg.RedisPassword, cfg.RedisDB, cfg.EventsChannel)
		defer redisPub.Close()
		sinks = append(sinks, redisPub)
	}

	analysis := services.NewAnalysisService(uploadRepo, sinks, l, services.AnalysisConfig{
		Workers:           cfg.AnalysisWorkers,
		DispatchDelayMin:  time.Duration(cfg.DispatchDelayMin) * time.Millisecond,
		DispatchDelayMax:  time.Duration(cfg.DispatchDelayMax) * time.Millisecond,
		ProcessingTimeMin: time.Duration(cfg.ProcessingTimeMin) * time.Millisecond,
		ProcessingTimeMax: time.Duration(cfg.ProcessingTimeMax) * time.Millisecond,
	})
	analysis.Start()
	defer analysis.Stop()

	uploadService := services.NewUploadService(uploadRepo, blobStore, analysis, sinks, l)
	authService := services.NewAuthService(userRepo, cfg)

	srv := server.New(cfg, l)
	srv.SetupRoutes(&server.Handlers{
		Upload: handler.NewUploadHandler(uploadService),
		Auth:   handler.NewAuthHandler(authService),
	}, authService, hub)

	if err := srv.Start(); err != nil {
		l.Errorf("Server shutdown error: %s", err)
	}
}

func newBlobStore(cfg *config.Config) (storage.BlobStore, error) {
	if cfg.StorageBackend == "s3" {
		return storage.NewS3Store(context.Background(), storage.S3Config{
			Region:     cfg.S3Region,
			Bucket:     cfg.S3Bucket,
			AccessKey:  cfg.S3AccessKey,
			SecretKey:  cfg.S3SecretKey,
			Endpoint:   cfg.S3Endpoint,
			PublicBase: cfg.S3PublicBase,
		})
	}
	return storage.NewLocalStore(cfg.UploadDir)
}
