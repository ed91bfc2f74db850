package cloud

// Storyboard is the canonical server-side storyboard returned by GET /api/v2/storyboards/{id}.
// Matches the backend StoryboardResponse schema.
type Storyboard struct {
	ID          string  `json:"id"`
	InitialLine string  `json:"initial_line"`
	Title       string  `json:"title,omitempty"`
	Storyline   string  `json:"storyline,omitempty"`
	Status      string  `json:"status,omitempty"`
	Scenes      []Scene `json:"scenes"`
	CreatedAt   string  `json:"creation_date,omitempty"`
	UpdatedAt   string  `json:"updated_date,omitempty"`
}

// Scene matches StoryboardSceneResponse.
type Scene struct {
	ID           string  `json:"id"`
	StoryboardID string  `json:"storyboard_id,omitempty"`
	SceneNumber  int     `json:"scene_number"`
	Description  string  `json:"description,omitempty"`
	Duration     float64 `json:"duration,omitempty"`
	Shots        []Shot  `json:"shots"`
}

// Shot matches ShotResponse. DurationSeconds is optional: the backend may not store it.
type Shot struct {
	ID              string `json:"id"`
	SceneID         string `json:"scene_id,omitempty"`
	ShotNumber      int    `json:"shot_number"`
	UserPrompt      string `json:"user_prompt"`
	StartImageURL   string `json:"start_image_url,omitempty"`
	EndImageURL     string `json:"end_image_url,omitempty"`
	VideoURL        string `json:"video_url,omitempty"`
	Status          string `json:"status,omitempty"`
	ErrorMessage    string `json:"error_message,omitempty"`
	DurationSeconds int    `json:"duration_in_seconds,omitempty"`
}

// StoryboardSummary is one entry of GET /api/v2/storyboards.
type StoryboardSummary struct {
	ID          string `json:"id"`
	InitialLine string `json:"initial_line"`
	Title       string `json:"title,omitempty"`
	Status      string `json:"status"`
	SceneCount  int    `json:"scene_count"`
	UpdatedAt   string `json:"updated_date,omitempty"`
}

type CreateStoryboardRequest struct {
	InitialLine string `json:"initial_line"`
	Title       string `json:"title,omitempty"`
	Storyline   string `json:"storyline,omitempty"`
}

type SceneAddRequest struct {
	SceneNumber int     `json:"scene_number"`
	Description string  `json:"description,omitempty"`
	Duration    float64 `json:"duration,omitempty"`
}

// SceneUpdateRequest is a PATCH body; nil fields are left untouched server-side.
type SceneUpdateRequest struct {
	SceneNumber *int    `json:"scene_number,omitempty"`
	Description *string `json:"description,omitempty"`
}

type ShotAddRequest struct {
	ShotNumber    int    `json:"shot_number"`
	UserPrompt    string `json:"user_prompt"`
	StartImageURL string `json:"start_image_url,omitempty"`
	VideoURL      string `json:"video_url,omitempty"`
}

// ShotUpdateRequest is a PATCH body; nil fields are left untouched server-side.
type ShotUpdateRequest struct {
	ShotNumber    *int    `json:"shot_number,omitempty"`
	UserPrompt    *string `json:"user_prompt,omitempty"`
	StartImageURL *string `json:"start_image_url,omitempty"`
	VideoURL      *string `json:"video_url,omitempty"`
	Status        *string `json:"status,omitempty"`
}

// Empty reports whether the request would change nothing.
func (r ShotUpdateRequest) Empty() bool {
	return r.ShotNumber == nil && r.UserPrompt == nil && r.StartImageURL == nil &&
		r.VideoURL == nil && r.Status == nil
}

// ScenePlan is the LLM decomposition of a storyline returned by POST /api/storyboard/.
type ScenePlan struct {
	Title  string         `json:"title,omitempty"`
	Scenes []PlannedScene `json:"scenes"`
}

type PlannedScene struct {
	Name            string        `json:"name"`
	Description     string        `json:"description,omitempty"`
	DurationSeconds float64       `json:"duration,omitempty"`
	Shots           []PlannedShot `json:"shots"`
}

type PlannedShot struct {
	Prompt          string `json:"prompt"`
	DurationSeconds int    `json:"duration_in_seconds,omitempty"`
}

// Generation kinds accepted by POST /api/generations/.
const (
	GenerationTypeImage = "image"
	GenerationTypeVideo = "video"
	GenerationTypeAudio = "audio"
)

// Generation statuses reported by the generations endpoints.
const (
	GenerationPending    = "pending"
	GenerationProcessing = "processing"
	GenerationCompleted  = "completed"
	GenerationFailed     = "failed"
)

type GenerationRequest struct {
	Prompt          string `json:"prompt"`
	GenerationType  string `json:"generation_type"`
	FirstFrame      string `json:"first_frame,omitempty"`
	LastFrame       string `json:"last_frame,omitempty"`
	Model           string `json:"model,omitempty"`
	DurationSeconds int    `json:"duration,omitempty"`
	Resolution      string `json:"resolution,omitempty"`
	AspectRatio     string `json:"aspect_ratio,omitempty"`
}

// Generation matches GenerationStatusResponse.
type Generation struct {
	ID                  string `json:"id"`
	Status              string `json:"status"`
	GeneratedContentURL string `json:"generated_content_url,omitempty"`
	ErrorMessage        string `json:"error_message,omitempty"`
}

// Done reports whether the generation reached a terminal status.
func (g *Generation) Done() bool {
	return g.Status == GenerationCompleted || g.Status == GenerationFailed
}
