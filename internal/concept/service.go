package concept

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/videostack/storyboard-agent/internal/cloud"
	"github.com/videostack/storyboard-agent/internal/logging"
	"github.com/videostack/storyboard-agent/internal/storyboard"
)

var (
	ErrDraftNotFound = errors.New("concept: draft not found")
	ErrEmptyConcept  = errors.New("concept: concept must not be empty")
)

// Remote covers storyboard creation and the scene breakdown.
type Remote interface {
	CreateStoryboard(ctx context.Context, req cloud.CreateStoryboardRequest) (*cloud.Storyboard, error)
	GenerateScenes(ctx context.Context, storyline string) (*cloud.ScenePlan, error)
}

// Hydrator fills a freshly created storyboard from a plan.
type Hydrator interface {
	InitializeFromGeneratedPlan(ctx context.Context, storyboardID string, plan storyboard.Plan) error
}

type Service struct {
	remote Remote
	repo   Repository
	store  Hydrator
	logger *slog.Logger
}

func NewService(remote Remote, repo Repository, store Hydrator, logger *slog.Logger) *Service {
	return &Service{
		remote: remote,
		repo:   repo,
		store:  store,
		logger: logging.WithComponent(logging.OrDiscard(logger), "concept"),
	}
}

// DraftUpdate is a partial draft edit. Nil fields are left untouched.
type DraftUpdate struct {
	Concept   *string `json:"concept,omitempty"`
	Title     *string `json:"title,omitempty"`
	Storyline *string `json:"storyline,omitempty"`
}

func (s *Service) SaveConcept(ctx context.Context, concept string) (*Draft, error) {
	concept = strings.TrimSpace(concept)
	if concept == "" {
		return nil, ErrEmptyConcept
	}
	now := time.Now().UTC()
	d := &Draft{ID: uuid.NewString(), Concept: concept, CreatedAt: now, UpdatedAt: now}
	if err := s.repo.CreateDraft(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to save draft: %w", err)
	}
	s.logger.Info("concept saved", "draft_id", d.ID)
	return d, nil
}

func (s *Service) GetDraft(ctx context.Context, id string) (*Draft, error) {
	d, err := s.repo.GetDraft(ctx, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, ErrDraftNotFound
	}
	return d, nil
}

func (s *Service) ListDrafts(ctx context.Context, limit int) ([]*Draft, error) {
	return s.repo.ListDrafts(ctx, limit)
}

func (s *Service) UpdateDraft(ctx context.Context, id string, u DraftUpdate) (*Draft, error) {
	d, err := s.GetDraft(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Concept != nil {
		c := strings.TrimSpace(*u.Concept)
		if c == "" {
			return nil, ErrEmptyConcept
		}
		d.Concept = c
	}
	if u.Title != nil {
		d.Title = strings.TrimSpace(*u.Title)
	}
	if u.Storyline != nil {
		d.Storyline = strings.TrimSpace(*u.Storyline)
	}
	d.UpdatedAt = time.Now().UTC()
	if err := s.repo.UpdateDraft(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to update draft: %w", err)
	}
	return d, nil
}

func (s *Service) DeleteDraft(ctx context.Context, id string) error {
	if _, err := s.GetDraft(ctx, id); err != nil {
		return err
	}
	return s.repo.DeleteDraft(ctx, id)
}

// CreateStoryboard asks the remote to break the draft's storyline into scenes,
// creates the storyboard, and hydrates the store from the plan. Nothing is
// created remotely when the breakdown fails. A draft that already owns a
// storyboard is returned unchanged.
func (s *Service) CreateStoryboard(ctx context.Context, draftID string) (*Draft, error) {
	d, err := s.GetDraft(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if d.StoryboardID != "" {
		return d, nil
	}
	storyline := d.Storyline
	if storyline == "" {
		storyline = d.Concept
	}

	plan, err := s.remote.GenerateScenes(ctx, storyline)
	if err != nil {
		s.logger.Error("failed to generate scenes", "draft_id", d.ID, "error", err)
		return nil, fmt.Errorf("generate scenes: %w", err)
	}
	title := d.Title
	if title == "" {
		title = plan.Title
	}

	sb, err := s.remote.CreateStoryboard(ctx, cloud.CreateStoryboardRequest{
		InitialLine: d.Concept,
		Title:       title,
		Storyline:   storyline,
	})
	if err != nil {
		s.logger.Error("failed to create storyboard", "draft_id", d.ID, "error", err)
		return nil, fmt.Errorf("create storyboard: %w", err)
	}

	d.StoryboardID = sb.ID
	d.Title = title
	d.UpdatedAt = time.Now().UTC()
	if err := s.repo.UpdateDraft(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to link draft to storyboard: %w", err)
	}
	s.logger.Info("storyboard created", "draft_id", d.ID, logging.StoryboardID(sb.ID), "scenes", len(plan.Scenes))

	if err := s.store.InitializeFromGeneratedPlan(ctx, sb.ID, storyboard.PlanFromCloud(plan)); err != nil {
		return d, fmt.Errorf("initialize storyboard: %w", err)
	}
	return d, nil
}
