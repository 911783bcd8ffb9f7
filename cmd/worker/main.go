package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mediaforge/renderd/internal/assets"
	"github.com/mediaforge/renderd/internal/compiler"
	"github.com/mediaforge/renderd/internal/config"
	"github.com/mediaforge/renderd/internal/engine"
	"github.com/mediaforge/renderd/internal/jobs"
	"github.com/mediaforge/renderd/internal/logging"
	"github.com/mediaforge/renderd/internal/metrics"
	"github.com/mediaforge/renderd/internal/queue"
	"github.com/mediaforge/renderd/internal/storage"
	"github.com/mediaforge/renderd/internal/timeline"
	"github.com/mediaforge/renderd/pkg/models"
)

// worker bundles everything one render needs.
type worker struct {
	cfg     *config.Config
	eng     *engine.Engine
	comp    *compiler.Compiler
	store   *jobs.Store
	uploads *storage.Storage // nil when uploads are not configured
	log     *logging.Logger
}

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

	// A missing engine binary is fatal: nothing can render without it.
	eng, err := engine.New(cfg.Render.FFmpegPath)
	if err != nil {
		logger.Fatalf("Engine unavailable: %v", err)
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

	uploads, err := storage.New(cfg.Storage)
	if err != nil {
		logger.Fatalf("Failed to initialize storage: %v", err)
	}

	resolver := assets.NewResolver(cfg.Render)
	w := &worker{
		cfg:     cfg,
		eng:     eng,
		comp:    compiler.New(cfg.Render, eng.Path(), resolver, eng, eng, logger),
		store:   store,
		uploads: uploads,
		log:     logger,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metricsSrv := metrics.NewServer(cfg.Server.MetricsPort)
	go func() {
		logger.Infof("Starting metrics server on :%d", cfg.Server.MetricsPort)
		if err := metricsSrv.Start(); err != nil {
			logger.Errorf("Metrics server stopped: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutting down worker gracefully...")
		cancel()
	}()

	logger.Info("Worker started, waiting for render jobs...")
	if err := q.ConsumeJobs(ctx, func(job *models.RenderJob) error {
		return w.processJob(ctx, job)
	}); err != nil {
		logger.Fatalf("Failed to consume jobs: %v", err)
	}

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Metrics server shutdown: %v", err)
	}

	logger.Info("Worker stopped")
}

// processJob compiles and executes one render, recording every state
// transition in the job store. Compilation failures and non-zero engine
// exits mark the job failed; nothing is retried here.
func (w *worker) processJob(ctx context.Context, job *models.RenderJob) error {
	jlog := w.log.WithJobID(job.ID)
	jlog.Info("Processing render job")

	w.put(ctx, &models.JobStatus{ID: job.ID, Status: models.JobStatusRunning, Message: "Rendering"})

	workdir := filepath.Join(w.cfg.Render.WorkDir, job.ID)
	if err := os.MkdirAll(workdir, 0o755); err != nil {
		return w.fail(ctx, job.ID, fmt.Errorf("failed to create workdir: %w", err), "")
	}
	defer os.RemoveAll(workdir)

	outPath := filepath.Join(w.cfg.Render.OutputDir, job.OutputFilename)

	payload := timeline.Parse(job.Payload)
	plan, err := w.comp.Compile(ctx, payload, workdir, outPath)
	if err != nil {
		return w.fail(ctx, job.ID, fmt.Errorf("compilation failed: %w", err), "")
	}
	if plan.Fallback {
		metrics.FallbackRendersTotal.Inc()
	}

	started := time.Now()
	rc, logs, err := w.eng.Run(ctx, plan.Args)
	metrics.RenderDuration.WithLabelValues(metrics.EncoderLabel(plan.UseHardware)).
		Observe(time.Since(started).Seconds())

	if err != nil {
		return w.fail(ctx, job.ID, err, logs)
	}
	if rc != 0 {
		return w.fail(ctx, job.ID, fmt.Errorf("engine exited with %d", rc), logs)
	}

	outputURL, err := w.publish(ctx, outPath, job.OutputFilename)
	if err != nil {
		return w.fail(ctx, job.ID, err, logs)
	}

	w.put(ctx, &models.JobStatus{
		ID:        job.ID,
		Status:    models.JobStatusSuccess,
		OutputURL: outputURL,
		Logs:      logs,
	})
	metrics.RendersTotal.WithLabelValues(models.JobStatusSuccess).Inc()
	jlog.Info("Render job finished")
	return nil
}

// publish uploads the finished render when storage is configured and
// returns the URL clients should fetch.
func (w *worker) publish(ctx context.Context, outPath, filename string) (string, error) {
	if w.uploads != nil {
		url, err := w.uploads.UploadRender(ctx, outPath)
		if err != nil {
			return "", fmt.Errorf("upload failed: %w", err)
		}
		return url, nil
	}
	if base := w.cfg.Server.PublicBaseURL; base != "" {
		return fmt.Sprintf("%s/outputs/%s", base, filename), nil
	}
	abs, err := filepath.Abs(outPath)
	if err != nil {
		abs = outPath
	}
	return "file://" + abs, nil
}

func (w *worker) fail(ctx context.Context, jobID string, cause error, logs string) error {
	w.log.WithJobID(jobID).WithError(cause).Error("Render job failed")
	w.put(ctx, &models.JobStatus{
		ID:      jobID,
		Status:  models.JobStatusFailed,
		Message: cause.Error(),
		Logs:    logs,
	})
	metrics.RendersTotal.WithLabelValues(models.JobStatusFailed).Inc()
	return cause
}

func (w *worker) put(ctx context.Context, status *models.JobStatus) {
	if err := w.store.Put(ctx, status); err != nil {
		w.log.WithJobID(status.ID).WithError(err).Error("Failed to record job status")
	}
}
