package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// RunnerConfig holds configuration for the notification runner
type RunnerConfig struct {
	// WorkerCount determines how many concurrent workers process jobs
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory job queue
	QueueSize int

	// StuckJobAge defines how long a job can be in processing state
	// before it's considered stuck and reset
	StuckJobAge time.Duration

	// StuckJobCheckInterval defines how often to check for stuck jobs
	// If zero, defaults to 5 minutes
	StuckJobCheckInterval time.Duration
}

// DefaultRunnerConfig returns a RunnerConfig with reasonable defaults
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		WorkerCount:           2,
		QueueSize:             100,
		StuckJobAge:           30 * time.Minute,
		StuckJobCheckInterval: 5 * time.Minute,
	}
}

// Runner manages background notification processing. Jobs are persisted
// before they are queued, so a delivery accepted by Submit survives a crash
// and is retried on the next start.
type Runner struct {
	store      JobStore
	jobChan    chan Job
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	config     RunnerConfig
	logger     *slog.Logger
	errHandler func(job Job, err error)
}

// NewRunner creates a new Runner
func NewRunner(store JobStore, config RunnerConfig, logger *slog.Logger) *Runner {
	// Apply default check interval if not specified
	if config.StuckJobCheckInterval == 0 {
		config.StuckJobCheckInterval = 5 * time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Runner{
		store:      store,
		jobChan:    make(chan Job, config.QueueSize),
		ctx:        ctx,
		cancelFunc: cancel,
		wg:         sync.WaitGroup{},
		config:     config,
		logger:     logger,
		errHandler: func(job Job, err error) {
			// Default error handler just logs the error
			logger.Error("job execution failed",
				"job_id", job.ID(),
				"job_type", job.Type(),
				"error", err)
		},
	}
}

// SetErrorHandler allows setting a custom error handler function
func (r *Runner) SetErrorHandler(handler func(job Job, err error)) {
	r.errHandler = handler
}

// Submit adds a new job to the queue
func (r *Runner) Submit(ctx context.Context, job Job) error {
	// Save job to database first
	if err := r.store.SaveJob(ctx, job); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}

	// Then add to in-memory queue
	select {
	case r.jobChan <- job:
		return nil
	default:
		// Queue is full, return error
		return fmt.Errorf("notification queue is full, try again later")
	}
}

// Start initializes the worker pool and begins processing jobs
func (r *Runner) Start() error {
	// Recover unfinished jobs from previous runs
	if err := r.Recover(); err != nil {
		return fmt.Errorf("failed to recover jobs: %w", err)
	}

	// Start worker goroutines
	for i := 0; i < r.config.WorkerCount; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}

	// Start goroutine to check for stuck jobs periodically
	r.wg.Add(1)
	go r.stuckJobMonitor()

	return nil
}

// Stop gracefully shuts down the runner
func (r *Runner) Stop() {
	r.cancelFunc()
	r.wg.Wait()
	close(r.jobChan)
}

// Recover loads any unfinished jobs from the database
func (r *Runner) Recover() error {
	ctx := context.Background()

	// Get jobs that were in "pending" state
	pendingJobs, err := r.store.GetPendingJobs(ctx)
	if err != nil {
		return fmt.Errorf("failed to get pending jobs: %w", err)
	}

	// Get jobs that were in "processing" state (potentially interrupted by a crash)
	processingJobs, err := r.store.GetProcessingJobs(
		ctx,
		0,
	) // Get all processing jobs regardless of age
	if err != nil {
		return fmt.Errorf("failed to get processing jobs: %w", err)
	}

	// Log recovery statistics
	r.logger.Info("recovering unfinished notification jobs",
		"pending_count", len(pendingJobs),
		"processing_count", len(processingJobs))

	// Requeue pending jobs
	for _, job := range pendingJobs {
		select {
		case r.jobChan <- job:
			// Successfully requeued
		default:
			// Queue is full, log error
			r.logger.Error("failed to requeue pending job, queue is full",
				"job_id", job.ID(),
				"job_type", job.Type())
		}
	}

	// Reset processing jobs back to pending state and requeue them
	for _, job := range processingJobs {
		// Update status in database to pending
		if err := r.store.UpdateJobStatus(ctx, job.ID(), JobStatusPending, "Reset after recovery"); err != nil {
			r.logger.Error("failed to reset processing job status",
				"job_id", job.ID(),
				"job_type", job.Type(),
				"error", err)
			continue
		}

		// Requeue
		select {
		case r.jobChan <- job:
			// Successfully requeued
		default:
			// Queue is full, log error
			r.logger.Error("failed to requeue processing job, queue is full",
				"job_id", job.ID(),
				"job_type", job.Type())
		}
	}

	return nil
}

// worker processes jobs from the queue
func (r *Runner) worker(id int) {
	defer r.wg.Done()

	r.logger.Debug("starting worker", "worker_id", id)

	for {
		select {
		case <-r.ctx.Done():
			// Context cancelled, stop worker
			r.logger.Debug("stopping worker", "worker_id", id)
			return

		case job, ok := <-r.jobChan:
			if !ok {
				// Channel closed, stop worker
				r.logger.Debug("job channel closed, stopping worker", "worker_id", id)
				return
			}

			// Process the job
			r.processJob(job, id)
		}
	}
}

// processJob handles execution of a single job
func (r *Runner) processJob(job Job, workerID int) {
	ctx := context.Background()
	logger := r.logger.With(
		"job_id", job.ID(),
		"job_type", job.Type(),
		"worker_id", workerID,
	)

	// Update job status to processing
	if err := r.store.UpdateJobStatus(ctx, job.ID(), JobStatusProcessing, ""); err != nil {
		logger.Error("failed to update job status to processing", "error", err)
		return
	}

	logger.Info("processing job")

	// Execute job
	err := job.Execute(ctx)

	if err != nil {
		// Job failed
		logger.Error("job execution failed", "error", err)
		if updateErr := r.store.UpdateJobStatus(ctx, job.ID(), JobStatusFailed, err.Error()); updateErr != nil {
			logger.Error("failed to update job status to failed", "error", updateErr)
		}

		// Call error handler
		r.errHandler(job, err)
	} else {
		// Job completed successfully
		logger.Info("job completed successfully")
		if updateErr := r.store.UpdateJobStatus(ctx, job.ID(), JobStatusCompleted, ""); updateErr != nil {
			logger.Error("failed to update job status to completed", "error", updateErr)
		}
	}
}

// stuckJobMonitor periodically checks for jobs that have been in "processing"
// state for too long and resets them
func (r *Runner) stuckJobMonitor() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.StuckJobCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			// Context cancelled, stop monitor
			return

		case <-ticker.C:
			ctx := context.Background()

			// Find jobs that have been in "processing" state for too long
			stuckJobs, err := r.store.GetProcessingJobs(ctx, r.config.StuckJobAge)
			if err != nil {
				r.logger.Error("failed to check for stuck jobs", "error", err)
				continue
			}

			if len(stuckJobs) > 0 {
				r.logger.Info("found stuck jobs", "count", len(stuckJobs))

				// Reset each stuck job
				for _, job := range stuckJobs {
					if err := r.store.UpdateJobStatus(ctx, job.ID(), JobStatusPending,
						"Reset after being stuck in processing state"); err != nil {
						r.logger.Error("failed to reset stuck job status",
							"job_id", job.ID(),
							"job_type", job.Type(),
							"error", err)
						continue
					}

					// Requeue
					select {
					case r.jobChan <- job:
						// Successfully requeued
						r.logger.Info("requeued stuck job",
							"job_id", job.ID(),
							"job_type", job.Type())
					default:
						// Queue is full, log error
						r.logger.Error("failed to requeue stuck job, queue is full",
							"job_id", job.ID(),
							"job_type", job.Type())
					}
				}
			}
		}
	}
}
