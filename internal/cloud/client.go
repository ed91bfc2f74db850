package cloud

import "context"

// Client is the remote Storyboard API surface the agent depends on.
type Client interface {
	StoryboardService
	GenerationService
}

// StoryboardService covers storyboard, scene and shot CRUD plus the bulk actions.
type StoryboardService interface {
	ListStoryboards(ctx context.Context) ([]StoryboardSummary, error)
	GetStoryboard(ctx context.Context, id string) (*Storyboard, error)
	CreateStoryboard(ctx context.Context, req CreateStoryboardRequest) (*Storyboard, error)

	AddScene(ctx context.Context, storyboardID string, req SceneAddRequest) (*Scene, error)
	UpdateScene(ctx context.Context, storyboardID, sceneID string, req SceneUpdateRequest) error
	DeleteScene(ctx context.Context, storyboardID, sceneID string) error

	AddShot(ctx context.Context, storyboardID, sceneID string, req ShotAddRequest) (*Shot, error)
	UpdateShot(ctx context.Context, storyboardID, sceneID, shotID string, req ShotUpdateRequest) error
	DeleteShot(ctx context.Context, storyboardID, sceneID, shotID string) error

	// GenerateStoryboardImages only enqueues work; it returns before any media exists.
	GenerateStoryboardImages(ctx context.Context, storyboardID string) error
	GenerateScenes(ctx context.Context, storyline string) (*ScenePlan, error)
	RequestExport(ctx context.Context, storyboardID string) error
}

// GenerationService submits and tracks single media generations.
type GenerationService interface {
	CreateGeneration(ctx context.Context, req GenerationRequest) (*Generation, error)
	GetGenerationStatus(ctx context.Context, id string) (*Generation, error)
}
