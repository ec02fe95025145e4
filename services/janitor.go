package services

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"vidnarrate/utils"
)

// Janitor periodically removes finished outputs, uploads and abandoned
// workspaces older than the retention window.
type Janitor struct {
	dirs      []string
	retention time.Duration
	cron      *cron.Cron
	now       func() time.Time
	active    func(jobID string) bool
	logger    *zap.Logger
}

// NewJanitor sweeps each of dirs on schedule (standard cron spec or "@every 1h").
func NewJanitor(schedule string, retention time.Duration, logger *zap.Logger, dirs ...string) (*Janitor, error) {
	j := &Janitor{
		dirs:      dirs,
		retention: retention,
		cron:      cron.New(),
		now:       time.Now,
		logger:    logger.Named("janitor"),
	}
	if _, err := j.cron.AddFunc(schedule, func() { j.Sweep() }); err != nil {
		return nil, fmt.Errorf("invalid cleanup schedule %q: %w", schedule, err)
	}
	return j, nil
}

// Protect makes sweeps skip entries named after a job that active reports as
// still pending or running. Uploads, outputs and workspaces are all named by job ID.
// Call before Start.
func (j *Janitor) Protect(active func(jobID string) bool) {
	j.active = active
}

func (j *Janitor) Start() {
	j.cron.Start()
}

// Stop halts the schedule and waits for a running sweep.
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}

// Sweep removes expired entries now and returns how many were deleted.
func (j *Janitor) Sweep() int {
	cutoff := j.now().Add(-j.retention)
	total := 0
	for _, dir := range j.dirs {
		n, err := utils.RemoveOlderThan(dir, cutoff, j.keep)
		total += n
		if err != nil {
			j.logger.Warn("cleanup failed", zap.String("dir", dir), zap.Error(err))
			continue
		}
		if n > 0 {
			j.logger.Info("removed expired files", zap.String("dir", dir), zap.Int("count", n))
		}
	}
	return total
}

func (j *Janitor) keep(name string) bool {
	if j.active == nil {
		return false
	}
	return j.active(strings.TrimSuffix(name, filepath.Ext(name)))
}
