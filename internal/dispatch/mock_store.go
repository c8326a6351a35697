package dispatch

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockJobStore implements the JobStore interface for testing
type MockJobStore struct {
	mutex          sync.RWMutex
	jobs           map[uuid.UUID]Job
	jobStatusTimes map[uuid.UUID]time.Time
	SaveFn         func(ctx context.Context, job Job) error
	UpdateStatusFn func(ctx context.Context, jobID uuid.UUID, status JobStatus, errorMsg string) error
}

// NewMockJobStore creates a new MockJobStore with default implementations
func NewMockJobStore() *MockJobStore {
	store := &MockJobStore{
		jobs:           make(map[uuid.UUID]Job),
		jobStatusTimes: make(map[uuid.UUID]time.Time),
	}

	// Default behavior for SaveJob
	store.SaveFn = func(ctx context.Context, job Job) error {
		store.mutex.Lock()
		defer store.mutex.Unlock()

		mockJob, ok := job.(*MockJob)
		if !ok {
			// If it's not a MockJob, create a new one with same properties
			mockJob = NewMockJob(job.ID(), job.Type(), job.Payload())
			mockJob.JobStatus = job.Status()
		}

		store.jobs[job.ID()] = mockJob
		store.jobStatusTimes[job.ID()] = time.Now()
		return nil
	}

	// Default behavior for UpdateJobStatus
	store.UpdateStatusFn = func(ctx context.Context, jobID uuid.UUID, status JobStatus, errorMsg string) error {
		store.mutex.Lock()
		defer store.mutex.Unlock()

		job, exists := store.jobs[jobID]
		if !exists {
			return nil // Simulate "not found" as a no-op for testing simplicity
		}

		mockJob := job.(*MockJob)
		mockJob.JobStatus = status
		store.jobs[jobID] = mockJob
		store.jobStatusTimes[jobID] = time.Now()
		return nil
	}

	return store
}

// SaveJob persists a job to the mock store
func (s *MockJobStore) SaveJob(ctx context.Context, job Job) error {
	return s.SaveFn(ctx, job)
}

// UpdateJobStatus updates the status of a job in the mock store
func (s *MockJobStore) UpdateJobStatus(
	ctx context.Context,
	jobID uuid.UUID,
	status JobStatus,
	errorMsg string,
) error {
	return s.UpdateStatusFn(ctx, jobID, status, errorMsg)
}

// GetPendingJobs retrieves all jobs with "pending" status
func (s *MockJobStore) GetPendingJobs(ctx context.Context) ([]Job, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var pendingJobs []Job
	for _, job := range s.jobs {
		if job.Status() == JobStatusPending {
			pendingJobs = append(pendingJobs, job)
		}
	}

	return pendingJobs, nil
}

// GetProcessingJobs retrieves jobs with "processing" status
func (s *MockJobStore) GetProcessingJobs(ctx context.Context, olderThan time.Duration) ([]Job, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var processingJobs []Job
	now := time.Now()

	for _, job := range s.jobs {
		if job.Status() == JobStatusProcessing {
			statusTime, exists := s.jobStatusTimes[job.ID()]
			// If olderThan is zero, include all processing jobs
			// Otherwise, only include jobs that have been in this state longer than olderThan
			if olderThan == 0 || (exists && now.Sub(statusTime) > olderThan) {
				processingJobs = append(processingJobs, job)
			}
		}
	}

	return processingJobs, nil
}

// WithTx implements JobStore.WithTx for the mock store
// In the mock implementation, we just return the same store instance
func (s *MockJobStore) WithTx(tx *sql.Tx) JobStore {
	return s
}
