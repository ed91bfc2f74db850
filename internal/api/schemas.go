package api

import (
	"github.com/videostack/storyboard-agent/internal/cloud"
	"github.com/videostack/storyboard-agent/internal/concept"
	"github.com/videostack/storyboard-agent/internal/editor"
	"github.com/videostack/storyboard-agent/internal/generation"
	"github.com/videostack/storyboard-agent/internal/storyboard"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

type StatusResponse struct {
	StoryboardID string `json:"storyboard_id,omitempty"`
	IsLoading    bool   `json:"is_loading"`
	IsPolling    bool   `json:"is_polling"`
	ModalState   string `json:"modal_state"`
	RunnerPaused bool   `json:"runner_paused"`
	ActiveJobs   int    `json:"active_jobs"`
	LastJobError string `json:"last_job_error,omitempty"`
	StateVersion uint64 `json:"state_version"`
}

type StoryboardResponse struct {
	storyboard.State
	Totals storyboard.Totals `json:"totals"`
}

type StoryboardsResponse struct {
	Storyboards []cloud.StoryboardSummary `json:"storyboards"`
}

type MountRequest struct {
	StoryboardID string `json:"storyboard_id"`
}

type PollingRequest struct {
	Enabled bool `json:"enabled"`
}

// IndexRequest positions a new scene or shot. A missing index appends.
type IndexRequest struct {
	Index *int `json:"index,omitempty"`
}

type DragEndRequest struct {
	ActiveID string `json:"active_id"`
	OverID   string `json:"over_id"`
}

type PromptRequest struct {
	Prompt string `json:"prompt"`
}

type AcceptedResponse struct {
	Status string `json:"status"`
}

// NoopResponse answers a mutation that was ignored because nothing is mounted.
type NoopResponse struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

type ModalOpenRequest struct {
	ShotID string `json:"shot_id"`
}

// DraftRequest edits the open modal's draft. Nil fields are left untouched.
type DraftRequest struct {
	Prompt          *string                `json:"prompt,omitempty"`
	DurationSeconds *int                   `json:"duration_in_seconds,omitempty"`
	VideoModel      *generation.VideoModel `json:"video_model,omitempty"`
}

type RegenerateRequest struct {
	Kind generation.Kind `json:"kind"`
}

type ModalResponse = editor.ModalView

type ConceptRequest struct {
	Concept string `json:"concept"`
}

type DraftsResponse struct {
	Drafts []*concept.Draft `json:"drafts"`
}

type JobsResponse struct {
	Jobs []*generation.Job `json:"jobs"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
