package main

import (
	"errors"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mediaforge/renderd/internal/assets"
	"github.com/mediaforge/renderd/internal/config"
	"github.com/mediaforge/renderd/internal/jobs"
	"github.com/mediaforge/renderd/internal/logging"
	"github.com/mediaforge/renderd/internal/metrics"
	"github.com/mediaforge/renderd/internal/queue"
	"github.com/mediaforge/renderd/pkg/models"
)

// API holds the handler dependencies.
type API struct {
	cfg      *config.Config
	store    *jobs.Store
	queue    *queue.Queue
	resolver *assets.Resolver
	log      *logging.Logger
}

// handleRender accepts a render request, records the job as queued and
// publishes it for the worker. The payload may be inline or fetched from
// a URL; no shape validation happens here, unrecognized payloads compile
// to the fallback pipeline downstream.
func (a *API) handleRender(c *gin.Context) {
	var req models.RenderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if len(req.Payload) == 0 && req.PayloadURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "provide either 'payload' or 'payload_url'"})
		return
	}

	raw := req.Payload
	if req.PayloadURL != "" {
		fetched, err := a.resolver.FetchPayload(c.Request.Context(), req.PayloadURL)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to fetch payload_url: " + err.Error()})
			return
		}
		raw = fetched
	}

	jobID := uuid.New().String()
	filename := filepath.Base(req.OutputFilename)
	if filename == "." || filename == "/" || filename == "" {
		filename = jobID + ".mp4"
	}

	status := &models.JobStatus{
		ID:      jobID,
		Status:  models.JobStatusQueued,
		Message: "Queued",
	}
	if err := a.store.Put(c.Request.Context(), status); err != nil {
		a.log.WithError(err).Error("failed to record job status")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record job"})
		return
	}

	job := &models.RenderJob{
		ID:             jobID,
		Payload:        raw,
		OutputFilename: filename,
		EnqueuedAt:     time.Now().UTC(),
	}
	if err := a.queue.PublishJob(c.Request.Context(), job); err != nil {
		a.log.WithError(err).Error("failed to publish render job")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to queue job"})
		return
	}

	metrics.JobsQueued.Inc()
	a.log.LogJobEvent(jobID, "queued", models.JobStatusQueued)
	c.JSON(http.StatusOK, status)
}

// handleJobStatus returns the current status of a render job.
func (a *API) handleJobStatus(c *gin.Context) {
	status, err := a.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		a.log.WithError(err).Error("failed to load job status")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load job"})
		return
	}
	c.JSON(http.StatusOK, status)
}

func (a *API) handleHealthz(c *gin.Context) {
	resp := gin.H{"ok": true}
	if a.queue != nil {
		if depth, err := a.queue.GetQueueDepth(); err == nil {
			resp["queue_depth"] = depth
		}
	}
	c.JSON(http.StatusOK, resp)
}
