package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidnarrate/models"
)

func TestMemoryJobStoreCRUD(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryJobStore()

	job := &models.MergeJob{ID: "job-1", Status: models.JobPending, Description: "hello"}
	require.NoError(t, s.Create(ctx, job))
	assert.False(t, job.CreatedAt.IsZero())

	got, err := s.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Description)

	got.Description = "mutated"
	again, err := s.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, "hello", again.Description, "Get must return a copy")

	updated, err := s.Update(ctx, "job-1", func(j *models.MergeJob) {
		j.Status = models.JobProcessing
		j.Progress = 40
	})
	require.NoError(t, err)
	assert.Equal(t, models.JobProcessing, updated.Status)
	assert.Equal(t, 40, updated.Progress)

	require.NoError(t, s.Delete(ctx, "job-1"))
	_, err = s.Get(ctx, "job-1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "job-1"), ErrNotFound)
	_, err = s.Update(ctx, "job-1", func(*models.MergeJob) {})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryJobStoreListNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryJobStore()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Create(ctx, &models.MergeJob{ID: "old", CreatedAt: base}))
	require.NoError(t, s.Create(ctx, &models.MergeJob{ID: "new", CreatedAt: base.Add(time.Hour)}))

	jobs, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "new", jobs[0].ID)
	assert.Equal(t, "old", jobs[1].ID)
}
