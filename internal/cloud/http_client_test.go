package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestHTTPClient_GetStoryboard_Success(t *testing.T) {
	var receivedAuth string
	var receivedRequestID string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/storyboards/sb-1" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodGet {
			t.Errorf("unexpected method: %s", r.Method)
		}
		receivedAuth = r.Header.Get("Authorization")
		receivedRequestID = r.Header.Get("X-Request-Id")

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{
			"id": "sb-1",
			"initial_line": "a lighthouse keeper",
			"title": "Keeper",
			"scenes": [{
				"id": "sc-1", "scene_number": 1, "description": "Storm",
				"shots": [{"id": "sh-1", "shot_number": 1, "user_prompt": "waves", "start_image_url": "https://img/1.png"}]
			}]
		}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "test-token", time.Second, testLogger())

	sb, err := client.GetStoryboard(context.Background(), "sb-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if receivedAuth != "Bearer test-token" {
		t.Errorf("auth = %q, want %q", receivedAuth, "Bearer test-token")
	}
	if receivedRequestID == "" {
		t.Error("expected X-Request-Id header")
	}
	if sb.InitialLine != "a lighthouse keeper" || sb.Title != "Keeper" {
		t.Errorf("storyboard = %+v", sb)
	}
	if len(sb.Scenes) != 1 || len(sb.Scenes[0].Shots) != 1 {
		t.Fatalf("scenes = %+v", sb.Scenes)
	}
	if sb.Scenes[0].Shots[0].StartImageURL != "https://img/1.png" {
		t.Errorf("start_image_url = %q", sb.Scenes[0].Shots[0].StartImageURL)
	}
}

func TestHTTPClient_UpdateShot_SendsOnlySetFields(t *testing.T) {
	var body map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("unexpected method: %s", r.Method)
		}
		if r.URL.Path != "/api/v2/storyboards/sb-1/scenes/sc-1/shots/sh-1" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		raw, _ := io.ReadAll(r.Body)
		json.Unmarshal(raw, &body)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "", time.Second, testLogger())

	prompt := "a new prompt"
	err := client.UpdateShot(context.Background(), "sb-1", "sc-1", "sh-1", ShotUpdateRequest{UserPrompt: &prompt})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if body["user_prompt"] != prompt {
		t.Errorf("user_prompt = %v, want %q", body["user_prompt"], prompt)
	}
	if _, ok := body["video_url"]; ok {
		t.Error("video_url should be omitted when unset")
	}
	if _, ok := body["start_image_url"]; ok {
		t.Error("start_image_url should be omitted when unset")
	}
}

func TestHTTPClient_AddScene_ReturnsServerScene(t *testing.T) {
	var req SceneAddRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/storyboards/sb-1/scenes" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&req)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(Scene{ID: "sc-new", SceneNumber: req.SceneNumber, Description: req.Description, Shots: []Shot{}})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "t", time.Second, testLogger())

	scene, err := client.AddScene(context.Background(), "sb-1", SceneAddRequest{SceneNumber: 3, Description: "Scene 3"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scene.ID != "sc-new" || scene.SceneNumber != 3 {
		t.Errorf("scene = %+v", scene)
	}
}

func TestHTTPClient_DeleteScene_NoContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("unexpected method: %s", r.Method)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "t", time.Second, testLogger())
	if err := client.DeleteScene(context.Background(), "sb-1", "sc-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHTTPClient_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"detail":"internal server error"}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "t", time.Second, testLogger())

	_, err := client.GetStoryboard(context.Background(), "sb-1")
	if err == nil {
		t.Fatal("expected error for 500 response")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T", err)
	}
	if !apiErr.IsRetryable() {
		t.Error("expected 5xx to be retryable")
	}
}

func TestHTTPClient_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail":"Storyboard not found"}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "t", time.Second, testLogger())

	err := client.DeleteShot(context.Background(), "sb-1", "sc-1", "sh-1")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T", err)
	}
	if !apiErr.IsNotFound() {
		t.Errorf("status_code = %d, want 404", apiErr.StatusCode)
	}
	if apiErr.IsRetryable() {
		t.Error("expected 4xx to be permanent")
	}
	if !strings.Contains(apiErr.Body, "Storyboard not found") {
		t.Errorf("body = %q", apiErr.Body)
	}
}

func TestHTTPClient_GenerationStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generations/gen-1/status" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(Generation{ID: "gen-1", Status: GenerationCompleted, GeneratedContentURL: "https://cdn/x.mp4"})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "t", time.Second, testLogger())

	gen, err := client.GetGenerationStatus(context.Background(), "gen-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !gen.Done() || gen.GeneratedContentURL != "https://cdn/x.mp4" {
		t.Errorf("generation = %+v", gen)
	}
}

func TestHTTPClient_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "t", time.Second, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := client.RequestExport(ctx, "sb-1"); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestHTTPClient_ImplementsClientInterface(t *testing.T) {
	var _ Client = (*HTTPClient)(nil)
}

func TestMemoryClient_ImplementsClientInterface(t *testing.T) {
	var _ Client = (*MemoryClient)(nil)
}
