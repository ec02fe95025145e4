package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"vidnarrate/config"
	"vidnarrate/models"
)

// MemoryJobStore keeps jobs in process memory. Records are lost on restart.
type MemoryJobStore struct {
	jobs map[string]*models.MergeJob
	mu   sync.RWMutex
}

func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{jobs: make(map[string]*models.MergeJob)}
}

func (s *MemoryJobStore) Create(_ context.Context, job *models.MergeJob) error {
	now := time.Now()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now

	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *job
	s.jobs[job.ID] = &stored
	return nil
}

func (s *MemoryJobStore) Get(_ context.Context, id string) (*models.MergeJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *job
	return &out, nil
}

// List returns jobs newest first.
func (s *MemoryJobStore) List(_ context.Context) ([]models.MergeJob, error) {
	s.mu.RLock()
	jobs := make([]models.MergeJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, *job)
	}
	s.mu.RUnlock()

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].CreatedAt.After(jobs[j].CreatedAt) })
	return jobs, nil
}

func (s *MemoryJobStore) Update(_ context.Context, id string, fn func(job *models.MergeJob)) (*models.MergeJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	fn(job)
	job.UpdatedAt = time.Now()
	out := *job
	return &out, nil
}

func (s *MemoryJobStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return ErrNotFound
	}
	delete(s.jobs, id)
	return nil
}

// StaticSettings returns the base snapshot unchanged.
type StaticSettings struct{}

func (StaticSettings) Snapshot(_ context.Context, base config.Settings) (config.Settings, error) {
	return base, nil
}
