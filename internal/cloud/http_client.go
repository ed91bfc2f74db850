package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
)

const (
	maxErrorBody    = 4096
	maxResponseBody = 8 << 20
)

// APIError represents a non-2xx response from the storyboard API.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("storyboard api %s %s failed: HTTP %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// IsRetryable returns true for server errors (5xx).
// Client errors (4xx) are considered permanent.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500
}

func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// HTTPClient talks to the Video Stack storyboard backend over HTTP.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewHTTPClient(baseURL, token string, timeout time.Duration, logger *slog.Logger) *HTTPClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPClient{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

func (c *HTTPClient) ListStoryboards(ctx context.Context) ([]StoryboardSummary, error) {
	var wrapper struct {
		Storyboards []StoryboardSummary `json:"storyboards"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v2/storyboards/", nil, &wrapper); err != nil {
		return nil, err
	}
	return wrapper.Storyboards, nil
}

func (c *HTTPClient) GetStoryboard(ctx context.Context, id string) (*Storyboard, error) {
	var sb Storyboard
	if err := c.do(ctx, http.MethodGet, storyboardPath(id), nil, &sb); err != nil {
		return nil, err
	}
	return &sb, nil
}

func (c *HTTPClient) CreateStoryboard(ctx context.Context, req CreateStoryboardRequest) (*Storyboard, error) {
	var sb Storyboard
	if err := c.do(ctx, http.MethodPost, "/api/v2/storyboards/", req, &sb); err != nil {
		return nil, err
	}
	return &sb, nil
}

func (c *HTTPClient) AddScene(ctx context.Context, storyboardID string, req SceneAddRequest) (*Scene, error) {
	var scene Scene
	if err := c.do(ctx, http.MethodPost, storyboardPath(storyboardID)+"/scenes", req, &scene); err != nil {
		return nil, err
	}
	return &scene, nil
}

func (c *HTTPClient) UpdateScene(ctx context.Context, storyboardID, sceneID string, req SceneUpdateRequest) error {
	return c.do(ctx, http.MethodPatch, scenePath(storyboardID, sceneID), req, nil)
}

func (c *HTTPClient) DeleteScene(ctx context.Context, storyboardID, sceneID string) error {
	return c.do(ctx, http.MethodDelete, scenePath(storyboardID, sceneID), nil, nil)
}

func (c *HTTPClient) AddShot(ctx context.Context, storyboardID, sceneID string, req ShotAddRequest) (*Shot, error) {
	var shot Shot
	if err := c.do(ctx, http.MethodPost, scenePath(storyboardID, sceneID)+"/shots", req, &shot); err != nil {
		return nil, err
	}
	return &shot, nil
}

func (c *HTTPClient) UpdateShot(ctx context.Context, storyboardID, sceneID, shotID string, req ShotUpdateRequest) error {
	return c.do(ctx, http.MethodPatch, shotPath(storyboardID, sceneID, shotID), req, nil)
}

func (c *HTTPClient) DeleteShot(ctx context.Context, storyboardID, sceneID, shotID string) error {
	return c.do(ctx, http.MethodDelete, shotPath(storyboardID, sceneID, shotID), nil, nil)
}

func (c *HTTPClient) GenerateStoryboardImages(ctx context.Context, storyboardID string) error {
	return c.do(ctx, http.MethodPost, storyboardPath(storyboardID)+"/generate-images", nil, nil)
}

func (c *HTTPClient) GenerateScenes(ctx context.Context, storyline string) (*ScenePlan, error) {
	var plan ScenePlan
	body := map[string]string{"prompt": storyline}
	if err := c.do(ctx, http.MethodPost, "/api/storyboard/", body, &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

func (c *HTTPClient) RequestExport(ctx context.Context, storyboardID string) error {
	return c.do(ctx, http.MethodPost, storyboardPath(storyboardID)+"/export", nil, nil)
}

func (c *HTTPClient) CreateGeneration(ctx context.Context, req GenerationRequest) (*Generation, error) {
	var gen Generation
	if err := c.do(ctx, http.MethodPost, "/api/generations/", req, &gen); err != nil {
		return nil, err
	}
	return &gen, nil
}

func (c *HTTPClient) GetGenerationStatus(ctx context.Context, id string) (*Generation, error) {
	var gen Generation
	if err := c.do(ctx, http.MethodGet, "/api/generations/"+url.PathEscape(id)+"/status", nil, &gen); err != nil {
		return nil, err
	}
	return &gen, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal %s %s body: %w", method, path, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	requestID := uuid.NewString()
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", requestID)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("storyboard api call",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
		"request_id", requestID,
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func storyboardPath(id string) string {
	return "/api/v2/storyboards/" + url.PathEscape(id)
}

func scenePath(storyboardID, sceneID string) string {
	return storyboardPath(storyboardID) + "/scenes/" + url.PathEscape(sceneID)
}

func shotPath(storyboardID, sceneID, shotID string) string {
	return scenePath(storyboardID, sceneID) + "/shots/" + url.PathEscape(shotID)
}
