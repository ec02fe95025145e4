package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"vidnarrate/config"
	"vidnarrate/handlers"
	"vidnarrate/queue"
	"vidnarrate/services"
	"vidnarrate/store"
	"vidnarrate/utils"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := utils.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()
	logger.Info("configuration loaded", zap.Stringer("config", cfg))

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, dir := range []string{cfg.TempDir, cfg.OutputDir, cfg.UploadDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	pipeline, tool, err := services.NewPipelineFromConfig(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if err := tool.CheckInstalled(ctx); err != nil {
		logger.Warn("ffmpeg/ffprobe not available, jobs will fail", zap.Error(err))
	}

	var jobs store.JobStore = store.NewMemoryJobStore()
	var settings store.SettingsSource = store.StaticSettings{}
	if cfg.DatabaseURL != "" {
		db, err := store.Open(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		jobs = store.NewGormJobStore(db)
		settings = store.NewGormSettings(db)
		logger.Info("using postgres job store")
	}

	runner := services.NewJobRunner(pipeline, jobs, settings, cfg.Settings(), cfg.MaxConcurrentJobs, cfg.JobTimeout, logger)
	defer runner.Shutdown()

	var dispatcher handlers.Dispatcher = runner
	if cfg.RedisURL != "" {
		rdb, err := queue.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()
		q := queue.NewRedisQueue(rdb, cfg.JobQueue, logger)
		dispatcher = q
		for i := 0; i < cfg.MaxConcurrentJobs; i++ {
			go q.Listen(ctx, runner.Process)
		}
		logger.Info("dispatching jobs through redis", zap.String("queue", cfg.JobQueue))
	}

	janitor, err := services.NewJanitor(cfg.CleanupSchedule, cfg.OutputRetention, logger,
		cfg.OutputDir, cfg.UploadDir, cfg.TempDir)
	if err != nil {
		return err
	}
	janitor.Protect(func(jobID string) bool {
		if runner.Running(jobID) {
			return true
		}
		lookupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		job, err := jobs.Get(lookupCtx, jobID)
		if errors.Is(err, store.ErrNotFound) {
			return false
		}
		return err != nil || !job.Terminal()
	})
	janitor.Start()
	defer janitor.Stop()

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	jobHandler := handlers.NewJobHandler(cfg, jobs, settings, dispatcher, runner, logger)
	router := handlers.NewRouter(cfg, jobHandler, logger)

	// Start server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
