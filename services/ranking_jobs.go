package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobKind identifies which ranking operation a queued job executes.
type JobKind string

const (
	JobKindTeamRecalc JobKind = "team_recalculation"
	JobKindDecay      JobKind = "inactivity_decay"
	JobKindOrgRecalc  JobKind = "organization_recalculation"
	JobKindFullCycle  JobKind = "full_cycle"
)

type JobState string

const (
	JobStateQueued    JobState = "queued"
	JobStateRunning   JobState = "running"
	JobStateCompleted JobState = "completed"
	JobStateFailed    JobState = "failed"
)

// JobHandle is the caller-visible record of an asynchronously submitted
// ranking job. Done is closed when the job finishes; Summary and Err are
// valid only after that. The worker mutates the handle while it runs, so
// any read that may overlap execution must go through mu; MarshalJSON does.
type JobHandle struct {
	ID          uuid.UUID
	Kind        JobKind
	State       JobState
	SubmittedAt time.Time
	StartedAt   *time.Time
	FinishedAt  *time.Time
	Summary     interface{}
	Error       string

	Done chan struct{}
	Err  error

	mu sync.RWMutex
}

// MarshalJSON snapshots the handle under its lock so handlers can serve a
// handle that is still being executed.
func (h *JobHandle) MarshalJSON() ([]byte, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return json.Marshal(struct {
		ID          uuid.UUID   `json:"id"`
		Kind        JobKind     `json:"kind"`
		State       JobState    `json:"state"`
		SubmittedAt time.Time   `json:"submitted_at"`
		StartedAt   *time.Time  `json:"started_at,omitempty"`
		FinishedAt  *time.Time  `json:"finished_at,omitempty"`
		Summary     interface{} `json:"summary,omitempty"`
		Error       string      `json:"error,omitempty"`
	}{
		ID:          h.ID,
		Kind:        h.Kind,
		State:       h.State,
		SubmittedAt: h.SubmittedAt,
		StartedAt:   h.StartedAt,
		FinishedAt:  h.FinishedAt,
		Summary:     h.Summary,
		Error:       h.Error,
	})
}

type queuedJob struct {
	handle *JobHandle
	run    func(ctx context.Context) (interface{}, error)
}

// JobRunner executes ranking jobs asynchronously on a single worker
// goroutine, so queued jobs never overlap with each other. Synchronous
// execution goes directly through RankingService; the two entry points are
// deliberately separate methods rather than a flag.
type JobRunner struct {
	ranking RankingService
	logger  *slog.Logger

	queue chan queuedJob

	mu   sync.RWMutex
	jobs map[uuid.UUID]*JobHandle
}

func NewJobRunner(ranking RankingService, queueSize int, logger *slog.Logger) *JobRunner {
	if queueSize <= 0 {
		queueSize = 16
	}
	return &JobRunner{
		ranking: ranking,
		logger:  logger,
		queue:   make(chan queuedJob, queueSize),
		jobs:    make(map[uuid.UUID]*JobHandle),
	}
}

// Start launches the worker loop. It returns when ctx is canceled; jobs
// still in the queue at that point are marked failed.
func (r *JobRunner) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				r.drainQueue(ctx.Err())
				return
			case job := <-r.queue:
				r.execute(ctx, job)
			}
		}
	}()
}

func (r *JobRunner) drainQueue(cause error) {
	for {
		select {
		case job := <-r.queue:
			r.finish(job.handle, nil, fmt.Errorf("job runner shutting down: %w", cause))
		default:
			return
		}
	}
}

func (r *JobRunner) execute(ctx context.Context, job queuedJob) {
	now := time.Now()
	job.handle.mu.Lock()
	job.handle.State = JobStateRunning
	job.handle.StartedAt = &now
	job.handle.mu.Unlock()

	r.logger.Info("ranking job started",
		slog.String("job_id", job.handle.ID.String()),
		slog.String("kind", string(job.handle.Kind)),
	)
	summary, err := job.run(ctx)
	r.finish(job.handle, summary, err)
}

func (r *JobRunner) finish(handle *JobHandle, summary interface{}, err error) {
	now := time.Now()
	handle.mu.Lock()
	handle.FinishedAt = &now
	handle.Summary = summary
	handle.Err = err
	if err != nil {
		handle.State = JobStateFailed
		handle.Error = err.Error()
	} else {
		handle.State = JobStateCompleted
	}
	handle.mu.Unlock()
	close(handle.Done)

	if err != nil {
		r.logger.Error("ranking job failed",
			slog.String("job_id", handle.ID.String()),
			slog.String("kind", string(handle.Kind)),
			slog.Any("error", err),
		)
		return
	}
	r.logger.Info("ranking job finished",
		slog.String("job_id", handle.ID.String()),
		slog.String("kind", string(handle.Kind)),
	)
}

func (r *JobRunner) submit(kind JobKind, run func(ctx context.Context) (interface{}, error)) (*JobHandle, error) {
	handle := &JobHandle{
		ID:          uuid.New(),
		Kind:        kind,
		State:       JobStateQueued,
		SubmittedAt: time.Now(),
		Done:        make(chan struct{}),
	}

	select {
	case r.queue <- queuedJob{handle: handle, run: run}:
	default:
		return nil, fmt.Errorf("%w: cannot accept %s", ErrJobQueueFull, kind)
	}

	r.mu.Lock()
	r.jobs[handle.ID] = handle
	r.mu.Unlock()
	return handle, nil
}

func (r *JobRunner) SubmitTeamRecalculation(filter RankingFilter) (*JobHandle, error) {
	return r.submit(JobKindTeamRecalc, func(ctx context.Context) (interface{}, error) {
		return r.ranking.RecalculateTeamRankings(ctx, filter)
	})
}

func (r *JobRunner) SubmitInactivityDecay(cutoffDays, limit int) (*JobHandle, error) {
	return r.submit(JobKindDecay, func(ctx context.Context) (interface{}, error) {
		return r.ranking.ApplyInactivityDecay(ctx, cutoffDays, limit)
	})
}

func (r *JobRunner) SubmitOrganizationRecalculation(limit int) (*JobHandle, error) {
	return r.submit(JobKindOrgRecalc, func(ctx context.Context) (interface{}, error) {
		return r.ranking.RecalculateOrganizationRankings(ctx, limit)
	})
}

func (r *JobRunner) SubmitFullCycle(filter RankingFilter) (*JobHandle, error) {
	return r.submit(JobKindFullCycle, func(ctx context.Context) (interface{}, error) {
		return r.ranking.RunCycle(ctx, filter)
	})
}

// Get returns the handle for a previously submitted job.
func (r *JobRunner) Get(id uuid.UUID) (*JobHandle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	handle, ok := r.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return handle, nil
}
