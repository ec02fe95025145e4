package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"vidnarrate/config"
	"vidnarrate/models"
	"vidnarrate/services"
	"vidnarrate/store"
	"vidnarrate/utils"
)

// Dispatcher hands a stored job to whatever will run it.
type Dispatcher interface {
	Enqueue(ctx context.Context, jobID string) error
}

// Canceller stops a job running in this process.
type Canceller interface {
	Cancel(jobID string) bool
}

// JobHandler serves the merge job API.
type JobHandler struct {
	cfg        *config.Config
	jobs       store.JobStore
	settings   store.SettingsSource
	dispatcher Dispatcher
	canceller  Canceller
	logger     *zap.Logger
}

// NewJobHandler creates a job handler. canceller may be nil when jobs only
// run in separate worker processes.
func NewJobHandler(cfg *config.Config, jobs store.JobStore, settings store.SettingsSource, dispatcher Dispatcher, canceller Canceller, logger *zap.Logger) *JobHandler {
	if settings == nil {
		settings = store.StaticSettings{}
	}
	return &JobHandler{
		cfg:        cfg,
		jobs:       jobs,
		settings:   settings,
		dispatcher: dispatcher,
		canceller:  canceller,
		logger:     logger.Named("jobs"),
	}
}

// Register mounts the job routes on rg.
func (h *JobHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/jobs", h.Create)
	rg.GET("/jobs", h.List)
	rg.GET("/jobs/:id", h.Get)
	rg.DELETE("/jobs/:id", h.Delete)
	rg.GET("/jobs/:id/download", h.Download)
	rg.GET("/languages", h.Languages)
}

// Create handles POST /api/jobs (multipart: video, description_text, target_language, voice)
func (h *JobHandler) Create(c *gin.Context) {
	description := c.PostForm("description_text")
	targetLanguage := strings.TrimSpace(c.DefaultPostForm("target_language", models.SourceLanguage))
	voice := strings.TrimSpace(c.PostForm("voice"))

	settings, err := h.settings.Snapshot(c.Request.Context(), h.cfg.Settings())
	if err != nil {
		h.logger.Warn("settings overrides unavailable", zap.Error(err))
		settings = h.cfg.Settings()
	}
	if err := services.ValidateDescription(description, settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if targetLanguage == "" {
		targetLanguage = models.SourceLanguage
	}

	file, err := c.FormFile("video")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Video file is required"})
		return
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(file.Filename), "."))
	if !lo.Contains(h.cfg.AllowedVideoFormats, ext) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid video file format"})
		return
	}
	maxBytes := int64(h.cfg.MaxVideoSizeMB) * 1024 * 1024
	if file.Size > maxBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("File size exceeds %dMB limit", h.cfg.MaxVideoSizeMB)})
		return
	}

	jobID := uuid.New().String()
	inputPath := filepath.Join(h.cfg.UploadDir, jobID+"."+ext)
	if err := os.MkdirAll(h.cfg.UploadDir, 0755); err != nil {
		h.logger.Error("failed to create upload dir", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save video file"})
		return
	}
	if err := c.SaveUploadedFile(file, inputPath); err != nil {
		h.logger.Error("failed to save upload", zap.String("job_id", jobID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save video file"})
		return
	}

	job := &models.MergeJob{
		ID:             jobID,
		Status:         models.JobPending,
		CurrentStep:    "queued",
		InputPath:      inputPath,
		Description:    description,
		TargetLanguage: targetLanguage,
		Voice:          voice,
	}
	if err := h.jobs.Create(c.Request.Context(), job); err != nil {
		os.Remove(inputPath)
		h.logger.Error("failed to create job", zap.String("job_id", jobID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create job"})
		return
	}

	if err := h.dispatcher.Enqueue(c.Request.Context(), jobID); err != nil {
		h.logger.Error("failed to dispatch job", zap.String("job_id", jobID), zap.Error(err))
		h.jobs.Update(c.Request.Context(), jobID, func(j *models.MergeJob) {
			j.Status = models.JobFailed
			j.ErrorMessage = "failed to queue job"
		})
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to queue job"})
		return
	}

	h.logger.Info("job created",
		zap.String("job_id", jobID),
		zap.String("language", targetLanguage),
		zap.Int64("size", file.Size))
	c.JSON(http.StatusOK, models.CreateJobResponse{
		JobID:  jobID,
		Status: models.JobPending,
	})
}

// Get handles GET /api/jobs/:id
func (h *JobHandler) Get(c *gin.Context) {
	job, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, toJobResponse(job))
}

// List handles GET /api/jobs
func (h *JobHandler) List(c *gin.Context) {
	jobs, err := h.jobs.List(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list jobs", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list jobs"})
		return
	}
	c.JSON(http.StatusOK, lo.Map(jobs, func(job models.MergeJob, _ int) models.JobResponse {
		return toJobResponse(&job)
	}))
}

// Delete handles DELETE /api/jobs/:id, cancelling the job if it is running here.
func (h *JobHandler) Delete(c *gin.Context) {
	job, ok := h.lookup(c)
	if !ok {
		return
	}

	if h.canceller != nil && h.canceller.Cancel(job.ID) {
		h.logger.Info("cancelled running job", zap.String("job_id", job.ID))
	}
	if err := h.jobs.Delete(c.Request.Context(), job.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		h.logger.Error("failed to delete job", zap.String("job_id", job.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete job"})
		return
	}
	for _, path := range []string{job.InputPath, job.OutputPath} {
		if path != "" {
			os.Remove(path)
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Job deleted successfully"})
}

// Download handles GET /api/jobs/:id/download
func (h *JobHandler) Download(c *gin.Context) {
	job, ok := h.lookup(c)
	if !ok {
		return
	}

	if job.Status != models.JobCompleted {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Job not completed yet"})
		return
	}
	if job.OutputPath == "" || !utils.FileExists(job.OutputPath) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Video file not found"})
		return
	}

	c.Header("Content-Type", "video/mp4")
	c.FileAttachment(job.OutputPath, fmt.Sprintf("narrated_%s.mp4", job.ID))
}

// Languages handles GET /api/languages
func (h *JobHandler) Languages(c *gin.Context) {
	c.JSON(http.StatusOK, services.SupportedLanguages())
}

func (h *JobHandler) lookup(c *gin.Context) (*models.MergeJob, bool) {
	job, err := h.jobs.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return nil, false
	}
	if err != nil {
		h.logger.Error("failed to load job", zap.String("job_id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load job"})
		return nil, false
	}
	return job, true
}

func toJobResponse(job *models.MergeJob) models.JobResponse {
	resp := models.JobResponse{
		ID:          job.ID,
		Status:      job.Status,
		Progress:    job.Progress,
		CurrentStep: job.CurrentStep,
		CreatedAt:   job.CreatedAt,
		UpdatedAt:   job.UpdatedAt,
	}
	if job.Status == models.JobCompleted && job.OutputPath != "" {
		url := fmt.Sprintf("/api/jobs/%s/download", job.ID)
		resp.DownloadURL = &url
	}
	if job.ErrorMessage != "" {
		msg := job.ErrorMessage
		resp.Error = &msg
	}
	return resp
}
