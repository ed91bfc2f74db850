package storyboard

import (
	"fmt"

	"github.com/videostack/storyboard-agent/internal/cloud"
)

const (
	DefaultShotDurationSeconds = 5
	MinShotDurationSeconds     = 1
	MaxShotDurationSeconds     = 30

	// PlaceholderShotPrompt seeds shots created from the "add shot" control.
	PlaceholderShotPrompt = "A cinematic shot of a beautiful landscape with mountains and sunset"
)

// Shot statuses mirror the remote schema.
const (
	ShotStatusPending    = "pending"
	ShotStatusProcessing = "processing"
	ShotStatusCompleted  = "completed"
	ShotStatusFailed     = "failed"
)

type Shot struct {
	ID              string `json:"id"`
	Prompt          string `json:"prompt"`
	ImageURL        string `json:"image_url,omitempty"`
	VideoURL        string `json:"video_url,omitempty"`
	DurationSeconds int    `json:"duration_in_seconds"`
	Status          string `json:"status,omitempty"`
	ErrorMessage    string `json:"error_message,omitempty"`
}

// PreviewURL returns the media shown for the shot; video supersedes image.
func (s Shot) PreviewURL() string {
	if s.VideoURL != "" {
		return s.VideoURL
	}
	return s.ImageURL
}

func (s Shot) HasMedia() bool {
	return s.ImageURL != "" || s.VideoURL != ""
}

// Duration returns the shot duration, defaulting unset values.
func (s Shot) Duration() int {
	if s.DurationSeconds <= 0 {
		return DefaultShotDurationSeconds
	}
	return s.DurationSeconds
}

type Scene struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Shots []Shot `json:"shots"`
}

func (s Scene) clone() Scene {
	s.Shots = append([]Shot(nil), s.Shots...)
	if s.Shots == nil {
		s.Shots = []Shot{}
	}
	return s
}

// State is a snapshot of the store. Snapshots never alias the store's internal slices.
type State struct {
	StoryboardID   string  `json:"storyboard_id,omitempty"`
	OriginalPrompt string  `json:"original_prompt"`
	Storyline      string  `json:"storyline,omitempty"`
	Title          string  `json:"title,omitempty"`
	Scenes         []Scene `json:"scenes"`
	IsLoading      bool    `json:"is_loading"`
	IsPolling      bool    `json:"is_polling"`

	// Version increases on every change and orders snapshots seen by subscribers.
	Version uint64 `json:"version"`
}

func (s State) clone() State {
	scenes := make([]Scene, len(s.Scenes))
	for i := range s.Scenes {
		scenes[i] = s.Scenes[i].clone()
	}
	s.Scenes = scenes
	return s
}

// Bound reports whether the state is tied to a remote storyboard.
func (s State) Bound() bool {
	return s.StoryboardID != ""
}

// FindShot returns the owning scene id and the shot.
func (s State) FindShot(shotID string) (string, Shot, bool) {
	for _, scene := range s.Scenes {
		for _, shot := range scene.Shots {
			if shot.ID == shotID {
				return scene.ID, shot, true
			}
		}
	}
	return "", Shot{}, false
}

func (s State) FindScene(sceneID string) (Scene, bool) {
	if i := sceneIndex(s.Scenes, sceneID); i >= 0 {
		return s.Scenes[i].clone(), true
	}
	return Scene{}, false
}

// SceneUpdate is a partial scene edit. Nil fields are left untouched.
type SceneUpdate struct {
	Name *string `json:"name,omitempty"`
}

// ShotUpdate is a partial shot edit. Nil fields are left untouched.
// Prompt, ImageURL, VideoURL and Status are persisted remotely; the rest is local only.
type ShotUpdate struct {
	Prompt          *string `json:"prompt,omitempty"`
	ImageURL        *string `json:"image_url,omitempty"`
	VideoURL        *string `json:"video_url,omitempty"`
	Status          *string `json:"status,omitempty"`
	DurationSeconds *int    `json:"duration_in_seconds,omitempty"`
	ErrorMessage    *string `json:"error_message,omitempty"`
}

func (u ShotUpdate) validate() error {
	if u.Prompt != nil && *u.Prompt == "" {
		return ErrEmptyPrompt
	}
	if u.DurationSeconds != nil {
		d := *u.DurationSeconds
		if d < MinShotDurationSeconds || d > MaxShotDurationSeconds {
			return fmt.Errorf("%w: %d", ErrInvalidDuration, d)
		}
	}
	return nil
}

func (u ShotUpdate) remote() cloud.ShotUpdateRequest {
	return cloud.ShotUpdateRequest{
		UserPrompt:    u.Prompt,
		StartImageURL: u.ImageURL,
		VideoURL:      u.VideoURL,
		Status:        u.Status,
	}
}

func (u ShotUpdate) apply(shot Shot) Shot {
	if u.Prompt != nil {
		shot.Prompt = *u.Prompt
	}
	if u.ImageURL != nil {
		shot.ImageURL = *u.ImageURL
	}
	if u.VideoURL != nil {
		shot.VideoURL = *u.VideoURL
	}
	if u.Status != nil {
		shot.Status = *u.Status
	}
	if u.DurationSeconds != nil {
		shot.DurationSeconds = *u.DurationSeconds
	}
	if u.ErrorMessage != nil {
		shot.ErrorMessage = *u.ErrorMessage
	}
	return shot
}

// Plan is a generation-produced breakdown used to hydrate a fresh storyboard.
type Plan struct {
	Scenes []PlanScene `json:"scenes"`
}

type PlanScene struct {
	Name            string     `json:"name"`
	DurationSeconds float64    `json:"duration,omitempty"`
	Shots           []PlanShot `json:"shots"`
}

type PlanShot struct {
	Prompt   string `json:"prompt"`
	ImageURL string `json:"image_url,omitempty"`
	VideoURL string `json:"video_url,omitempty"`
}

// estimatedDuration is the declared duration, or the default per shot when unset.
func (p PlanScene) estimatedDuration() float64 {
	if p.DurationSeconds > 0 {
		return p.DurationSeconds
	}
	return float64(len(p.Shots) * DefaultShotDurationSeconds)
}

// PlanFromCloud converts the remote scene plan.
func PlanFromCloud(p *cloud.ScenePlan) Plan {
	var plan Plan
	if p == nil {
		return plan
	}
	for _, ps := range p.Scenes {
		scene := PlanScene{Name: ps.Name, DurationSeconds: ps.DurationSeconds}
		if scene.Name == "" {
			scene.Name = ps.Description
		}
		for _, shot := range ps.Shots {
			scene.Shots = append(scene.Shots, PlanShot{Prompt: shot.Prompt})
		}
		plan.Scenes = append(plan.Scenes, scene)
	}
	return plan
}

// sceneName is the positional default label.
func sceneName(position int) string {
	return fmt.Sprintf("Scene %d", position)
}

func sceneFromCloud(sc cloud.Scene, position int) Scene {
	name := sc.Description
	if name == "" {
		name = sceneName(position)
	}
	shots := make([]Shot, 0, len(sc.Shots))
	for _, sh := range sc.Shots {
		shots = append(shots, shotFromCloud(sh))
	}
	return Scene{ID: sc.ID, Name: name, Shots: shots}
}

func shotFromCloud(sh cloud.Shot) Shot {
	duration := sh.DurationSeconds
	if duration <= 0 {
		duration = DefaultShotDurationSeconds
	}
	return Shot{
		ID:              sh.ID,
		Prompt:          sh.UserPrompt,
		ImageURL:        sh.StartImageURL,
		VideoURL:        sh.VideoURL,
		DurationSeconds: duration,
		Status:          sh.Status,
		ErrorMessage:    sh.ErrorMessage,
	}
}

func sceneIndex(scenes []Scene, id string) int {
	for i := range scenes {
		if scenes[i].ID == id {
			return i
		}
	}
	return -1
}

func shotIndex(shots []Shot, id string) int {
	for i := range shots {
		if shots[i].ID == id {
			return i
		}
	}
	return -1
}
