package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mediaforge/renderd/internal/assets"
	"github.com/mediaforge/renderd/internal/config"
	"github.com/mediaforge/renderd/internal/jobs"
	"github.com/mediaforge/renderd/internal/logging"
	"github.com/mediaforge/renderd/internal/queue"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	if err := os.MkdirAll(cfg.Render.OutputDir, 0o755); err != nil {
		logger.Fatalf("Failed to create output dir: %v", err)
	}

	store, err := jobs.NewStore(cfg.Redis)
	if err != nil {
		logger.Fatalf("Failed to connect to job store: %v", err)
	}
	defer store.Close()

	q, err := queue.New(cfg.Queue)
	if err != nil {
		logger.Fatalf("Failed to connect to queue: %v", err)
	}
	defer q.Close()

	api := &API{
		cfg:      cfg,
		store:    store,
		queue:    q,
		resolver: assets.NewResolver(cfg.Render),
		log:      logger,
	}

	router := setupRouter(api)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Infof("Starting API server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server stopped")
}

func setupRouter(api *API) *gin.Engine {
	router := gin.Default()

	router.GET("/healthz", api.handleHealthz)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.POST("/render", api.handleRender)
	router.GET("/jobs/:id", api.handleJobStatus)
	router.Static("/outputs", api.cfg.Render.OutputDir)

	return router
}
