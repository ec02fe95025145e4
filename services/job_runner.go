package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"vidnarrate/config"
	"vidnarrate/models"
	"vidnarrate/store"
)

// JobRunner executes stored merge jobs through the pipeline with bounded
// concurrency, a per-job deadline and a cancel handle per running job.
type JobRunner struct {
	pipeline *Pipeline
	jobs     store.JobStore
	settings store.SettingsSource
	base     config.Settings
	timeout  time.Duration
	sem      chan struct{}
	logger   *zap.Logger

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
}

// NewJobRunner creates a runner allowing maxConcurrent pipelines at once.
func NewJobRunner(pipeline *Pipeline, jobs store.JobStore, settings store.SettingsSource, base config.Settings, maxConcurrent int, timeout time.Duration, logger *zap.Logger) *JobRunner {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	if settings == nil {
		settings = store.StaticSettings{}
	}
	return &JobRunner{
		pipeline: pipeline,
		jobs:     jobs,
		settings: settings,
		base:     base,
		timeout:  timeout,
		sem:      make(chan struct{}, maxConcurrent),
		logger:   logger.Named("runner"),
		cancels:  make(map[string]context.CancelFunc),
	}
}

// Submit processes jobID in the background.
func (r *JobRunner) Submit(jobID string) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.Process(context.Background(), jobID); err != nil {
			r.logger.Warn("job finished with error", zap.String("job_id", jobID), zap.Error(err))
		}
	}()
}

// Enqueue starts jobID in this process. It never blocks.
func (r *JobRunner) Enqueue(_ context.Context, jobID string) error {
	r.Submit(jobID)
	return nil
}

// Process runs jobID to completion and records the outcome in the store.
// It blocks while all concurrency slots are taken.
func (r *JobRunner) Process(ctx context.Context, jobID string) error {
	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if !r.register(jobID, cancel) {
		return fmt.Errorf("job %s is already running", jobID)
	}
	defer r.unregister(jobID)

	select {
	case r.sem <- struct{}{}:
		defer func() { <-r.sem }()
	case <-jobCtx.Done():
		r.finish(jobID, models.JobCancelled, "", "cancelled before start")
		return jobCtx.Err()
	}

	job, err := r.jobs.Get(jobCtx, jobID)
	if err != nil {
		return err
	}
	if job.Terminal() {
		return nil
	}

	settings, err := r.settings.Snapshot(jobCtx, r.base)
	if err != nil {
		r.logger.Warn("settings overrides unavailable, using configured defaults", zap.Error(err))
		settings = r.base
	}

	if r.timeout > 0 {
		var cancelTimeout context.CancelFunc
		jobCtx, cancelTimeout = context.WithTimeout(jobCtx, r.timeout)
		defer cancelTimeout()
	}

	r.update(jobID, func(j *models.MergeJob) {
		j.Status = models.JobProcessing
		j.CurrentStep = "starting"
		j.Progress = 0
	})

	output, err := r.pipeline.Run(jobCtx, PipelineInput{
		JobID:          job.ID,
		VideoPath:      job.InputPath,
		Description:    job.Description,
		TargetLanguage: job.TargetLanguage,
		Voice:          job.Voice,
	}, settings, func(stage string, percent int) {
		r.update(jobID, func(j *models.MergeJob) {
			j.CurrentStep = stage
			j.Progress = percent
		})
	})

	switch {
	case err == nil:
		r.finish(jobID, models.JobCompleted, output, "")
		return nil
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		r.finish(jobID, models.JobFailed, "", fmt.Sprintf("job timed out after %s", r.timeout))
	case errors.Is(err, context.Canceled):
		r.finish(jobID, models.JobCancelled, "", "cancelled")
	default:
		r.finish(jobID, models.JobFailed, "", err.Error())
	}
	return err
}

// Cancel stops a running job. It reports whether the job was running.
func (r *JobRunner) Cancel(jobID string) bool {
	r.mu.Lock()
	cancel, ok := r.cancels[jobID]
	r.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// Running reports whether jobID currently holds a cancel handle.
func (r *JobRunner) Running(jobID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.cancels[jobID]
	return ok
}

// Shutdown cancels every running job and waits for background work to drain.
func (r *JobRunner) Shutdown() {
	r.mu.Lock()
	for _, cancel := range r.cancels {
		cancel()
	}
	r.mu.Unlock()
	r.wg.Wait()
}

func (r *JobRunner) register(jobID string, cancel context.CancelFunc) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.cancels[jobID]; exists {
		return false
	}
	r.cancels[jobID] = cancel
	return true
}

func (r *JobRunner) unregister(jobID string) {
	r.mu.Lock()
	delete(r.cancels, jobID)
	r.mu.Unlock()
}

// update writes with a background context so progress and final states are
// recorded even after the job context ends.
func (r *JobRunner) update(jobID string, fn func(*models.MergeJob)) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := r.jobs.Update(ctx, jobID, fn); err != nil && !errors.Is(err, store.ErrNotFound) {
		r.logger.Error("failed to update job", zap.String("job_id", jobID), zap.Error(err))
	}
}

func (r *JobRunner) finish(jobID, status, output, message string) {
	r.update(jobID, func(j *models.MergeJob) {
		j.Status = status
		j.OutputPath = output
		j.ErrorMessage = message
		if status == models.JobCompleted {
			j.Progress = 100
			j.CurrentStep = StageCompleted
		}
	})

	log := r.logger.With(zap.String("job_id", jobID), zap.String("status", status))
	if status == models.JobFailed {
		log.Error("job failed", zap.String("error", message))
		return
	}
	log.Info("job finished")
}
