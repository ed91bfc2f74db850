package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/videostack/storyboard-agent/internal/cloud"
	"github.com/videostack/storyboard-agent/internal/logging"
	"github.com/videostack/storyboard-agent/internal/storyboard"
)

// Remote is what generation needs from the Storyboard API.
type Remote interface {
	CreateGeneration(ctx context.Context, req cloud.GenerationRequest) (*cloud.Generation, error)
	GetGenerationStatus(ctx context.Context, id string) (*cloud.Generation, error)
	UpdateShot(ctx context.Context, storyboardID, sceneID, shotID string, req cloud.ShotUpdateRequest) error
}

// ShotStore is the storyboard store surface that receives generation results.
type ShotStore interface {
	Snapshot() storyboard.State
	UpdateShot(ctx context.Context, sceneID, shotID string, u storyboard.ShotUpdate) error
}

type Service struct {
	remote Remote
	repo   Repository
	store  ShotStore
	logger *slog.Logger
}

func NewService(remote Remote, repo Repository, store ShotStore, logger *slog.Logger) *Service {
	return &Service{
		remote: remote,
		repo:   repo,
		store:  store,
		logger: logging.WithComponent(logging.OrDiscard(logger), "generation"),
	}
}

// GenerateShot submits a generation for the shot's prompt and records a job.
// The shot is marked processing. A generation the remote finishes synchronously
// is applied before GenerateShot returns.
func (s *Service) GenerateShot(ctx context.Context, shotID string, params Params) (*Job, error) {
	if params == nil {
		return nil, fmt.Errorf("%w: missing parameters", ErrInvalidParams)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	st := s.store.Snapshot()
	if !st.Bound() {
		return nil, storyboard.ErrUnbound
	}
	sceneID, shot, ok := st.FindShot(shotID)
	if !ok {
		return nil, storyboard.ErrShotNotFound
	}
	if err := validatePrompt(shot.Prompt); err != nil {
		return nil, err
	}

	if v, ok := params.(VideoParams); ok && v.FirstFrame == "" && shot.ImageURL != "" {
		v.FirstFrame = shot.ImageURL
		params = v
	}

	created := time.Now().UTC()
	job := &Job{
		ID:           uuid.NewString(),
		Kind:         params.Kind(),
		Status:       JobStatusPending,
		StoryboardID: st.StoryboardID,
		SceneID:      sceneID,
		ShotID:       shotID,
		Prompt:       shot.Prompt,
		Params:       Wrap(params),
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	if err := s.repo.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to record generation job: %w", err)
	}
	log := s.logger.With(logging.JobID(job.ID), logging.ShotID(shotID), "kind", job.Kind)

	gen, err := s.remote.CreateGeneration(ctx, Request(shot.Prompt, params))
	if err != nil {
		log.Error("generation request rejected", "error", err)
		s.fail(ctx, job, err.Error())
		return job, fmt.Errorf("create generation: %w", err)
	}

	if err := s.repo.MarkSubmitted(ctx, job.ID, gen.ID); err != nil {
		log.Error("failed to mark job submitted", "error", err)
	}
	job.Status = JobStatusRunning
	job.RemoteID = gen.ID
	log.Info("generation submitted", "remote_id", gen.ID, "prompt", logging.Truncate(shot.Prompt, 80))

	status := storyboard.ShotStatusProcessing
	noError := ""
	if err := s.writeShot(ctx, job, storyboard.ShotUpdate{Status: &status, ErrorMessage: &noError}); err != nil {
		log.Warn("failed to mark shot processing", "error", err)
	}

	if gen.Done() {
		s.Apply(ctx, job, gen)
	}
	return job, nil
}

// Apply records a terminal generation on the job and mirrors it onto the shot.
// Non-terminal generations are ignored.
func (s *Service) Apply(ctx context.Context, job *Job, gen *cloud.Generation) {
	switch gen.Status {
	case cloud.GenerationCompleted:
		s.complete(ctx, job, gen.GeneratedContentURL)
	case cloud.GenerationFailed:
		msg := gen.ErrorMessage
		if msg == "" {
			msg = "generation failed"
		}
		s.fail(ctx, job, msg)
	}
}

func (s *Service) complete(ctx context.Context, job *Job, url string) {
	log := s.logger.With(logging.JobID(job.ID), logging.ShotID(job.ShotID))
	if url == "" {
		s.fail(ctx, job, "generation completed without content")
		return
	}

	status := storyboard.ShotStatusCompleted
	noError := ""
	u := storyboard.ShotUpdate{Status: &status, ErrorMessage: &noError}
	switch job.Kind {
	case KindImage:
		u.ImageURL = &url
	case KindVideo:
		u.VideoURL = &url
	}
	if err := s.writeShot(ctx, job, u); err != nil {
		log.Warn("failed to apply generation result to shot", "error", err)
	}

	if err := s.repo.CompleteJob(ctx, job.ID, url); err != nil {
		log.Error("failed to complete job", "error", err)
	}
	job.Status = JobStatusCompleted
	job.ResultURL = url
	log.Info("generation completed", "kind", job.Kind)
}

func (s *Service) fail(ctx context.Context, job *Job, msg string) {
	log := s.logger.With(logging.JobID(job.ID), logging.ShotID(job.ShotID))

	status := storyboard.ShotStatusFailed
	if err := s.writeShot(ctx, job, storyboard.ShotUpdate{Status: &status, ErrorMessage: &msg}); err != nil {
		log.Warn("failed to mark shot failed", "error", err)
	}

	if err := s.repo.FailJob(ctx, job.ID, msg); err != nil {
		log.Error("failed to fail job", "error", err)
	}
	job.Status = JobStatusFailed
	job.Error = msg
	log.Warn("generation failed", "error", msg)
}

// writeShot routes through the store while it holds the job's storyboard, and
// straight to the remote otherwise so results land after navigation.
func (s *Service) writeShot(ctx context.Context, job *Job, u storyboard.ShotUpdate) error {
	if s.store.Snapshot().StoryboardID == job.StoryboardID {
		err := s.store.UpdateShot(ctx, job.SceneID, job.ShotID, u)
		if !errors.Is(err, storyboard.ErrShotNotFound) && !errors.Is(err, storyboard.ErrSceneNotFound) {
			return err
		}
	}

	req := cloud.ShotUpdateRequest{
		StartImageURL: u.ImageURL,
		VideoURL:      u.VideoURL,
		Status:        u.Status,
	}
	return s.remote.UpdateShot(ctx, job.StoryboardID, job.SceneID, job.ShotID, req)
}

func (s *Service) GetJob(ctx context.Context, id string) (*Job, error) {
	return s.repo.GetJob(ctx, id)
}

func (s *Service) ListJobs(ctx context.Context, limit int) ([]*Job, error) {
	return s.repo.ListJobs(ctx, limit)
}

func (s *Service) LatestJobForShot(ctx context.Context, shotID string) (*Job, error) {
	return s.repo.LatestJobForShot(ctx, shotID)
}
