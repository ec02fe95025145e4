// Package store persists merge job records and settings overrides.
package store

import (
	"context"
	"errors"

	"vidnarrate/config"
	"vidnarrate/models"
)

// ErrNotFound is returned when a job ID is unknown.
var ErrNotFound = errors.New("job not found")

// JobStore is implemented by GormJobStore and MemoryJobStore.
type JobStore interface {
	Create(ctx context.Context, job *models.MergeJob) error
	Get(ctx context.Context, id string) (*models.MergeJob, error)
	List(ctx context.Context) ([]models.MergeJob, error)
	// Update applies fn to the stored record and saves the result.
	Update(ctx context.Context, id string, fn func(job *models.MergeJob)) (*models.MergeJob, error)
	Delete(ctx context.Context, id string) error
}

// SettingsSource layers persisted overrides on top of a settings snapshot.
type SettingsSource interface {
	Snapshot(ctx context.Context, base config.Settings) (config.Settings, error)
}
