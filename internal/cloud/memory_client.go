package cloud

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// MemoryClient is an in-process Client used in offline mode and tests.
// It mirrors the backend's observable behavior closely enough that the store
// cannot tell it apart from HTTPClient: ids are assigned server-side, scenes and
// shots come back ordered by number, and deleting a scene drops its shots.
type MemoryClient struct {
	mu           sync.Mutex
	storyboards  map[string]*Storyboard
	generations  map[string]*Generation
	calls        map[string]int
	failures     map[string]error
	autoComplete bool
	logger       *slog.Logger
}

func NewMemoryClient(logger *slog.Logger) *MemoryClient {
	return &MemoryClient{
		storyboards:  make(map[string]*Storyboard),
		generations:  make(map[string]*Generation),
		calls:        make(map[string]int),
		failures:     make(map[string]error),
		autoComplete: true,
		logger:       logger,
	}
}

// SetAutoComplete controls whether generations finish on their own after two
// status checks. Tests turn it off and drive CompleteGeneration / FailGeneration.
func (c *MemoryClient) SetAutoComplete(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.autoComplete = on
}

// FailNext makes the next call of op return err. op is the method name, e.g. "DeleteScene".
func (c *MemoryClient) FailNext(op string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[op] = err
}

// Calls returns how many times op was invoked.
func (c *MemoryClient) Calls(op string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[op]
}

// TotalCalls returns the number of calls across all operations.
func (c *MemoryClient) TotalCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, n := range c.calls {
		total += n
	}
	return total
}

// Seed stores sb as-is, assigning ids where missing. It does not count as a call.
func (c *MemoryClient) Seed(sb Storyboard) *Storyboard {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sb.ID == "" {
		sb.ID = uuid.NewString()
	}
	if sb.Status == "" {
		sb.Status = "draft"
	}
	for i := range sb.Scenes {
		if sb.Scenes[i].ID == "" {
			sb.Scenes[i].ID = uuid.NewString()
		}
		sb.Scenes[i].StoryboardID = sb.ID
		for j := range sb.Scenes[i].Shots {
			if sb.Scenes[i].Shots[j].ID == "" {
				sb.Scenes[i].Shots[j].ID = uuid.NewString()
			}
			sb.Scenes[i].Shots[j].SceneID = sb.Scenes[i].ID
		}
	}
	stored := cloneStoryboard(&sb)
	c.storyboards[sb.ID] = stored
	return cloneStoryboard(stored)
}

func (c *MemoryClient) enter(op string) error {
	c.calls[op]++
	if err, ok := c.failures[op]; ok {
		delete(c.failures, op)
		return err
	}
	return nil
}

func (c *MemoryClient) ListStoryboards(ctx context.Context) ([]StoryboardSummary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("ListStoryboards"); err != nil {
		return nil, err
	}
	out := make([]StoryboardSummary, 0, len(c.storyboards))
	for _, sb := range c.storyboards {
		out = append(out, StoryboardSummary{
			ID:          sb.ID,
			InitialLine: sb.InitialLine,
			Title:       sb.Title,
			Status:      sb.Status,
			SceneCount:  len(sb.Scenes),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (c *MemoryClient) GetStoryboard(ctx context.Context, id string) (*Storyboard, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("GetStoryboard"); err != nil {
		return nil, err
	}
	sb, err := c.storyboard(id)
	if err != nil {
		return nil, err
	}
	out := cloneStoryboard(sb)
	sortStoryboard(out)
	return out, nil
}

func (c *MemoryClient) CreateStoryboard(ctx context.Context, req CreateStoryboardRequest) (*Storyboard, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("CreateStoryboard"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.InitialLine) == "" {
		return nil, &APIError{Method: http.MethodPost, Path: "/api/v2/storyboards/", StatusCode: http.StatusUnprocessableEntity, Body: "initial_line is required"}
	}
	sb := &Storyboard{
		ID:          uuid.NewString(),
		InitialLine: req.InitialLine,
		Title:       req.Title,
		Storyline:   req.Storyline,
		Status:      "draft",
		Scenes:      []Scene{},
	}
	c.storyboards[sb.ID] = sb
	c.logger.Debug("memory remote: storyboard created", "storyboard_id", sb.ID)
	return cloneStoryboard(sb), nil
}

func (c *MemoryClient) AddScene(ctx context.Context, storyboardID string, req SceneAddRequest) (*Scene, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("AddScene"); err != nil {
		return nil, err
	}
	sb, err := c.storyboard(storyboardID)
	if err != nil {
		return nil, err
	}
	if req.SceneNumber < 1 {
		return nil, unprocessable("scene_number must be >= 1")
	}
	scene := Scene{
		ID:           uuid.NewString(),
		StoryboardID: storyboardID,
		SceneNumber:  req.SceneNumber,
		Description:  req.Description,
		Duration:     req.Duration,
		Shots:        []Shot{},
	}
	sb.Scenes = append(sb.Scenes, scene)
	return cloneScene(&scene), nil
}

func (c *MemoryClient) UpdateScene(ctx context.Context, storyboardID, sceneID string, req SceneUpdateRequest) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("UpdateScene"); err != nil {
		return err
	}
	scene, err := c.scene(storyboardID, sceneID)
	if err != nil {
		return err
	}
	if req.SceneNumber != nil {
		if *req.SceneNumber < 1 {
			return unprocessable("scene_number must be >= 1")
		}
		scene.SceneNumber = *req.SceneNumber
	}
	if req.Description != nil {
		scene.Description = *req.Description
	}
	return nil
}

func (c *MemoryClient) DeleteScene(ctx context.Context, storyboardID, sceneID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("DeleteScene"); err != nil {
		return err
	}
	sb, err := c.storyboard(storyboardID)
	if err != nil {
		return err
	}
	for i := range sb.Scenes {
		if sb.Scenes[i].ID == sceneID {
			sb.Scenes = append(sb.Scenes[:i], sb.Scenes[i+1:]...)
			return nil
		}
	}
	return notFound("scene not found")
}

func (c *MemoryClient) AddShot(ctx context.Context, storyboardID, sceneID string, req ShotAddRequest) (*Shot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("AddShot"); err != nil {
		return nil, err
	}
	scene, err := c.scene(storyboardID, sceneID)
	if err != nil {
		return nil, err
	}
	if req.ShotNumber < 1 {
		return nil, unprocessable("shot_number must be >= 1")
	}
	if strings.TrimSpace(req.UserPrompt) == "" {
		return nil, unprocessable("user_prompt is required")
	}
	shot := Shot{
		ID:            uuid.NewString(),
		SceneID:       sceneID,
		ShotNumber:    req.ShotNumber,
		UserPrompt:    req.UserPrompt,
		StartImageURL: req.StartImageURL,
		VideoURL:      req.VideoURL,
		Status:        GenerationPending,
	}
	scene.Shots = append(scene.Shots, shot)
	out := shot
	return &out, nil
}

func (c *MemoryClient) UpdateShot(ctx context.Context, storyboardID, sceneID, shotID string, req ShotUpdateRequest) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("UpdateShot"); err != nil {
		return err
	}
	shot, err := c.shot(storyboardID, sceneID, shotID)
	if err != nil {
		return err
	}
	if req.UserPrompt != nil {
		if strings.TrimSpace(*req.UserPrompt) == "" {
			return unprocessable("user_prompt must not be empty")
		}
		shot.UserPrompt = *req.UserPrompt
	}
	if req.ShotNumber != nil {
		shot.ShotNumber = *req.ShotNumber
	}
	if req.StartImageURL != nil {
		shot.StartImageURL = *req.StartImageURL
	}
	if req.VideoURL != nil {
		shot.VideoURL = *req.VideoURL
	}
	if req.Status != nil {
		shot.Status = *req.Status
	}
	return nil
}

func (c *MemoryClient) DeleteShot(ctx context.Context, storyboardID, sceneID, shotID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("DeleteShot"); err != nil {
		return err
	}
	scene, err := c.scene(storyboardID, sceneID)
	if err != nil {
		return err
	}
	for i := range scene.Shots {
		if scene.Shots[i].ID == shotID {
			scene.Shots = append(scene.Shots[:i], scene.Shots[i+1:]...)
			return nil
		}
	}
	return notFound("shot not found")
}

func (c *MemoryClient) GenerateStoryboardImages(ctx context.Context, storyboardID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("GenerateStoryboardImages"); err != nil {
		return err
	}
	sb, err := c.storyboard(storyboardID)
	if err != nil {
		return err
	}
	for i := range sb.Scenes {
		for j := range sb.Scenes[i].Shots {
			shot := &sb.Scenes[i].Shots[j]
			if shot.StartImageURL == "" && shot.VideoURL == "" {
				shot.Status = GenerationProcessing
				if c.autoComplete {
					shot.StartImageURL = "memory://images/" + shot.ID + ".png"
					shot.Status = GenerationCompleted
				}
			}
		}
	}
	return nil
}

// GenerateScenes splits the storyline into paragraphs (scenes) and sentences (shots).
func (c *MemoryClient) GenerateScenes(ctx context.Context, storyline string) (*ScenePlan, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("GenerateScenes"); err != nil {
		return nil, err
	}
	plan := &ScenePlan{}
	for i, para := range strings.Split(storyline, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		scene := PlannedScene{Name: fmt.Sprintf("Scene %d", i+1), Description: para}
		for _, sentence := range strings.Split(para, ".") {
			sentence = strings.TrimSpace(sentence)
			if sentence == "" {
				continue
			}
			scene.Shots = append(scene.Shots, PlannedShot{Prompt: sentence, DurationSeconds: 5})
		}
		plan.Scenes = append(plan.Scenes, scene)
	}
	return plan, nil
}

func (c *MemoryClient) RequestExport(ctx context.Context, storyboardID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("RequestExport"); err != nil {
		return err
	}
	_, err := c.storyboard(storyboardID)
	return err
}

func (c *MemoryClient) CreateGeneration(ctx context.Context, req GenerationRequest) (*Generation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("CreateGeneration"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, unprocessable("prompt is required")
	}
	gen := &Generation{ID: uuid.NewString(), Status: GenerationPending}
	c.generations[gen.ID] = gen
	out := *gen
	return &out, nil
}

func (c *MemoryClient) GetGenerationStatus(ctx context.Context, id string) (*Generation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("GetGenerationStatus"); err != nil {
		return nil, err
	}
	gen, ok := c.generations[id]
	if !ok {
		return nil, notFound("generation not found")
	}
	if c.autoComplete {
		switch gen.Status {
		case GenerationPending:
			gen.Status = GenerationProcessing
		case GenerationProcessing:
			gen.Status = GenerationCompleted
			gen.GeneratedContentURL = "memory://generations/" + gen.ID
		}
	}
	out := *gen
	return &out, nil
}

// CompleteGeneration finishes a generation with the given content URL.
func (c *MemoryClient) CompleteGeneration(id, contentURL string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen, ok := c.generations[id]; ok {
		gen.Status = GenerationCompleted
		gen.GeneratedContentURL = contentURL
	}
}

// FailGeneration marks a generation failed with msg.
func (c *MemoryClient) FailGeneration(id, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen, ok := c.generations[id]; ok {
		gen.Status = GenerationFailed
		gen.ErrorMessage = msg
	}
}

func (c *MemoryClient) storyboard(id string) (*Storyboard, error) {
	sb, ok := c.storyboards[id]
	if !ok {
		return nil, notFound("storyboard not found")
	}
	return sb, nil
}

func (c *MemoryClient) scene(storyboardID, sceneID string) (*Scene, error) {
	sb, err := c.storyboard(storyboardID)
	if err != nil {
		return nil, err
	}
	for i := range sb.Scenes {
		if sb.Scenes[i].ID == sceneID {
			return &sb.Scenes[i], nil
		}
	}
	return nil, notFound("scene not found")
}

func (c *MemoryClient) shot(storyboardID, sceneID, shotID string) (*Shot, error) {
	scene, err := c.scene(storyboardID, sceneID)
	if err != nil {
		return nil, err
	}
	for i := range scene.Shots {
		if scene.Shots[i].ID == shotID {
			return &scene.Shots[i], nil
		}
	}
	return nil, notFound("shot not found")
}

func notFound(msg string) error {
	return &APIError{StatusCode: http.StatusNotFound, Body: fmt.Sprintf(`{"detail":%q}`, msg)}
}

func unprocessable(msg string) error {
	return &APIError{StatusCode: http.StatusUnprocessableEntity, Body: fmt.Sprintf(`{"detail":%q}`, msg)}
}

func sortStoryboard(sb *Storyboard) {
	sort.SliceStable(sb.Scenes, func(i, j int) bool {
		return sb.Scenes[i].SceneNumber < sb.Scenes[j].SceneNumber
	})
	for i := range sb.Scenes {
		shots := sb.Scenes[i].Shots
		sort.SliceStable(shots, func(a, b int) bool {
			return shots[a].ShotNumber < shots[b].ShotNumber
		})
	}
}

func cloneStoryboard(sb *Storyboard) *Storyboard {
	out := *sb
	out.Scenes = make([]Scene, len(sb.Scenes))
	for i := range sb.Scenes {
		out.Scenes[i] = *cloneScene(&sb.Scenes[i])
	}
	return &out
}

func cloneScene(s *Scene) *Scene {
	out := *s
	out.Shots = append([]Shot{}, s.Shots...)
	return &out
}
