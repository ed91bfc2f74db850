package generation

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/videostack/storyboard-agent/internal/cloud"
	"github.com/videostack/storyboard-agent/internal/logging"
)

// maxConcurrentPolls caps status requests issued per tick.
const maxConcurrentPolls = 4

// Runner polls running generation jobs and applies finished ones.
type Runner struct {
	service      *Service
	repo         Repository
	remote       Remote
	logger       *slog.Logger
	pollInterval time.Duration
	running      atomic.Bool
	paused       atomic.Bool
}

func NewRunner(service *Service, pollInterval time.Duration, logger *slog.Logger) *Runner {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	return &Runner{
		service:      service,
		repo:         service.repo,
		remote:       service.remote,
		logger:       logging.WithComponent(logging.OrDiscard(logger), "generation-runner"),
		pollInterval: pollInterval,
	}
}

func (r *Runner) Start(ctx context.Context) {
	if r.running.Swap(true) {
		return
	}

	r.logger.Info("generation runner started", "interval", r.pollInterval)

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("generation runner stopping")
			r.running.Store(false)
			return
		case <-ticker.C:
			if !r.paused.Load() {
				r.Tick(ctx)
			}
		}
	}
}

func (r *Runner) Pause() {
	r.paused.Store(true)
	r.logger.Info("generation runner paused")
}

func (r *Runner) Resume() {
	r.paused.Store(false)
	r.logger.Info("generation runner resumed")
}

func (r *Runner) IsPaused() bool {
	return r.paused.Load()
}

func (r *Runner) IsRunning() bool {
	return r.running.Load()
}

// Tick checks every running job once.
func (r *Runner) Tick(ctx context.Context) {
	jobs, err := r.repo.ListJobsByStatus(ctx, JobStatusRunning)
	if err != nil {
		r.logger.Error("failed to list running jobs", "error", err)
		return
	}
	if len(jobs) == 0 {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentPolls)
	for _, job := range jobs {
		g.Go(func() error {
			r.check(gctx, job)
			return nil
		})
	}
	_ = g.Wait()
}

func (r *Runner) check(ctx context.Context, job *Job) {
	log := r.logger.With(logging.JobID(job.ID))
	if job.RemoteID == "" {
		r.service.fail(ctx, job, "job has no remote generation")
		return
	}

	gen, err := r.remote.GetGenerationStatus(ctx, job.RemoteID)
	if err != nil {
		var apiErr *cloud.APIError
		if errors.As(err, &apiErr) && apiErr.IsNotFound() {
			r.service.fail(ctx, job, "generation no longer exists")
			return
		}
		log.Warn("generation status check failed", "error", err)
		return
	}
	if !gen.Done() {
		log.Debug("generation still running", "status", gen.Status)
		return
	}
	r.service.Apply(ctx, job, gen)
}

// ActiveJobCount returns the number of jobs waiting on the remote.
func (r *Runner) ActiveJobCount(ctx context.Context) int {
	jobs, err := r.repo.ListJobsByStatus(ctx, JobStatusRunning)
	if err != nil {
		return 0
	}
	return len(jobs)
}
