package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coursegen-worker/internal/api"
	"coursegen-worker/internal/catalog"
	"coursegen-worker/internal/config"
	"coursegen-worker/internal/database"
	"coursegen-worker/internal/executor"
	"coursegen-worker/internal/jobs"
	"coursegen-worker/internal/packs"
	"coursegen-worker/internal/provider"
	"coursegen-worker/internal/storage"
	"coursegen-worker/internal/worker"

	"github.com/lpernett/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg := config.Load()

	// Storage
	storageBackend, err := storage.NewStorage(cfg.Storage)
	if err != nil {
		log.Fatal("Failed to initialize storage:", err)
	}
	artifactService := storage.NewArtifactService(storageBackend)

	// Database
	db, err := database.Connect(cfg.DatabaseURL, cfg.LogLevel)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	// Services
	jobRepo := jobs.NewJobRepository(db.DB)
	quotaService := jobs.NewQuotaService(jobRepo, cfg.Quota)
	jobService := jobs.NewJobServiceImpl(jobRepo, quotaService)

	gateway, err := provider.New(cfg.Provider)
	if err != nil {
		log.Fatal("Failed to initialize provider gateway:", err)
	}

	processor := worker.NewProcessor(
		jobService,
		artifactService,
		gateway,
		executor.DefaultRegistry(),
		catalog.NewPublisher(db.DB),
		packs.NewGormSource(db.DB),
		cfg.Worker,
	)

	pool := worker.NewWorkerPool(jobService, processor, &worker.PoolConfig{
		WorkerCount:  cfg.Worker.WorkerCount,
		PollInterval: cfg.Worker.PollInterval,
		JobTimeout:   cfg.JobTimeout,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := pool.Start(ctx); err != nil {
		log.Fatal("Failed to start worker pool:", err)
	}

	cleanupService := jobs.NewCleanupService(jobService, cfg.CleanupInterval, cfg.JobRetention)
	go cleanupService.Start(ctx)

	router := api.SetupRouter(api.RouterDeps{
		JobService: jobService,
		Artifacts:  artifactService,
		Pool:       pool,
	})

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	log.Printf("Starting coursegen-worker on port %s", cfg.Port)
	log.Printf("Storage type: %s", cfg.Storage.Type)
	if cfg.Storage.Type == "filesystem" {
		log.Printf("Storage path: %s", cfg.Storage.BasePath)
	}
	log.Printf("Provider: %s (ceiling %d tokens)", cfg.Provider.Preferred, cfg.Provider.TokenCeiling)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Fatal("Server failed to start:", err)
	case sig := <-quit:
		log.Printf("Received signal %v, shutting down...", sig)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}

		cancel()
		if err := pool.Stop(); err != nil {
			log.Printf("Worker pool shutdown error: %v", err)
		}
		log.Println("Server shutdown complete")
	}
}
