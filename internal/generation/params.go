package generation

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/videostack/storyboard-agent/internal/cloud"
)

// Kind identifies a generation variant.
type Kind string

const (
	KindImage Kind = cloud.GenerationTypeImage
	KindVideo Kind = cloud.GenerationTypeVideo
	KindAudio Kind = cloud.GenerationTypeAudio
)

// MaxPromptLength is the longest prompt the generations endpoint accepts.
const MaxPromptLength = 1000

var (
	ErrInvalidParams = errors.New("generation: invalid parameters")
	ErrInvalidPrompt = errors.New("generation: invalid prompt")
)

// Params is one variant of generation settings. Each variant validates its own
// option set; callers never branch on model ids.
type Params interface {
	Kind() Kind
	Validate() error
	apply(req *cloud.GenerationRequest)
}

var aspectRatios = []string{"16:9", "4:3", "1:1", "3:4", "9:16", "21:9", "adaptive"}

func validAspectRatio(r string) bool {
	return r == "" || slices.Contains(aspectRatios, r)
}

// ImageModel names a text-to-image backend.
type ImageModel string

const (
	ImageModelSeedream   ImageModel = "seedream"
	ImageModelNanoBanana ImageModel = "nanobanana"
)

var seedreamResolutions = []string{
	"2048x2048", "2304x1728", "1728x2304", "2560x1440",
	"1440x2560", "2496x1664", "1664x2496", "3024x1296",
}

type ImageParams struct {
	Model       ImageModel `json:"model"`
	Resolution  string     `json:"resolution,omitempty"`
	AspectRatio string     `json:"aspect_ratio,omitempty"`
}

func DefaultImageParams() ImageParams {
	return ImageParams{Model: ImageModelSeedream, Resolution: "2048x2048"}
}

func (ImageParams) Kind() Kind { return KindImage }

func (p ImageParams) Validate() error {
	switch p.Model {
	case ImageModelSeedream:
		if p.Resolution != "" && !slices.Contains(seedreamResolutions, p.Resolution) {
			return fmt.Errorf("%w: seedream does not support resolution %q", ErrInvalidParams, p.Resolution)
		}
	case ImageModelNanoBanana:
		if p.Resolution != "" {
			return fmt.Errorf("%w: nanobanana has no resolution choice", ErrInvalidParams)
		}
	default:
		return fmt.Errorf("%w: unknown image model %q", ErrInvalidParams, p.Model)
	}
	if !validAspectRatio(p.AspectRatio) {
		return fmt.Errorf("%w: unknown aspect ratio %q", ErrInvalidParams, p.AspectRatio)
	}
	return nil
}

func (p ImageParams) apply(req *cloud.GenerationRequest) {
	req.Model = string(p.Model)
	req.Resolution = p.Resolution
	req.AspectRatio = p.AspectRatio
}

// VideoModel names a video backend selectable from the shot editor.
type VideoModel string

const (
	VideoModelVeo3     VideoModel = "google_veo_3"
	VideoModelSeedance VideoModel = "seedance"
)

type videoOptions struct {
	durations   []int
	resolutions []string
}

var videoModels = map[VideoModel]videoOptions{
	VideoModelVeo3:     {durations: []int{8}, resolutions: []string{"720p", "1080p"}},
	VideoModelSeedance: {durations: []int{5, 10}, resolutions: []string{"480p", "720p", "1080p"}},
}

type VideoParams struct {
	Model           VideoModel `json:"model"`
	DurationSeconds int        `json:"duration_in_seconds"`
	Resolution      string     `json:"resolution"`
	AspectRatio     string     `json:"aspect_ratio,omitempty"`

	// FirstFrame and LastFrame are optional image urls. When FirstFrame is
	// empty the shot's current image is used.
	FirstFrame string `json:"first_frame,omitempty"`
	LastFrame  string `json:"last_frame,omitempty"`
}

func DefaultVideoParams(model VideoModel) VideoParams {
	if model == VideoModelSeedance {
		return VideoParams{Model: VideoModelSeedance, DurationSeconds: 5, Resolution: "1080p", AspectRatio: "16:9"}
	}
	return VideoParams{Model: VideoModelVeo3, DurationSeconds: 8, Resolution: "1080p", AspectRatio: "16:9"}
}

func (VideoParams) Kind() Kind { return KindVideo }

func (p VideoParams) Validate() error {
	opts, ok := videoModels[p.Model]
	if !ok {
		return fmt.Errorf("%w: unknown video model %q", ErrInvalidParams, p.Model)
	}
	if !slices.Contains(opts.durations, p.DurationSeconds) {
		return fmt.Errorf("%w: %s supports durations %v, got %d", ErrInvalidParams, p.Model, opts.durations, p.DurationSeconds)
	}
	if !slices.Contains(opts.resolutions, p.Resolution) {
		return fmt.Errorf("%w: %s supports resolutions %v, got %q", ErrInvalidParams, p.Model, opts.resolutions, p.Resolution)
	}
	if !validAspectRatio(p.AspectRatio) {
		return fmt.Errorf("%w: unknown aspect ratio %q", ErrInvalidParams, p.AspectRatio)
	}
	if p.LastFrame != "" && p.FirstFrame == "" {
		return fmt.Errorf("%w: last_frame requires first_frame", ErrInvalidParams)
	}
	return nil
}

func (p VideoParams) apply(req *cloud.GenerationRequest) {
	req.Model = string(p.Model)
	req.DurationSeconds = p.DurationSeconds
	req.Resolution = p.Resolution
	req.AspectRatio = p.AspectRatio
	req.FirstFrame = p.FirstFrame
	req.LastFrame = p.LastFrame
}

const (
	MinAudioDurationSeconds = 10
	MaxAudioDurationSeconds = 300
)

type AudioParams struct {
	DurationSeconds int `json:"duration_in_seconds"`
}

func DefaultAudioParams() AudioParams {
	return AudioParams{DurationSeconds: MinAudioDurationSeconds}
}

func (AudioParams) Kind() Kind { return KindAudio }

func (p AudioParams) Validate() error {
	if p.DurationSeconds < MinAudioDurationSeconds || p.DurationSeconds > MaxAudioDurationSeconds {
		return fmt.Errorf("%w: audio duration must be %d-%ds, got %d",
			ErrInvalidParams, MinAudioDurationSeconds, MaxAudioDurationSeconds, p.DurationSeconds)
	}
	return nil
}

func (p AudioParams) apply(req *cloud.GenerationRequest) {
	req.DurationSeconds = p.DurationSeconds
}

// Envelope is the tagged wire and storage form of Params.
type Envelope struct {
	Kind  Kind         `json:"kind"`
	Image *ImageParams `json:"image,omitempty"`
	Video *VideoParams `json:"video,omitempty"`
	Audio *AudioParams `json:"audio,omitempty"`
}

func Wrap(p Params) Envelope {
	switch v := p.(type) {
	case ImageParams:
		return Envelope{Kind: KindImage, Image: &v}
	case VideoParams:
		return Envelope{Kind: KindVideo, Video: &v}
	case AudioParams:
		return Envelope{Kind: KindAudio, Audio: &v}
	}
	return Envelope{}
}

// Params unwraps the variant named by Kind. A missing body falls back to that
// variant's defaults.
func (e Envelope) Params() (Params, error) {
	switch e.Kind {
	case KindImage:
		if e.Image == nil {
			return DefaultImageParams(), nil
		}
		return *e.Image, nil
	case KindVideo:
		if e.Video == nil {
			return DefaultVideoParams(VideoModelVeo3), nil
		}
		return *e.Video, nil
	case KindAudio:
		if e.Audio == nil {
			return DefaultAudioParams(), nil
		}
		return *e.Audio, nil
	}
	return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidParams, e.Kind)
}

func (e Envelope) marshal() string {
	b, err := json.Marshal(e)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func unmarshalEnvelope(raw string) Envelope {
	var e Envelope
	_ = json.Unmarshal([]byte(raw), &e)
	return e
}

func validatePrompt(prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return fmt.Errorf("%w: prompt is empty", ErrInvalidPrompt)
	}
	if len(prompt) > MaxPromptLength {
		return fmt.Errorf("%w: prompt exceeds %d characters", ErrInvalidPrompt, MaxPromptLength)
	}
	return nil
}

// Request builds the remote generation request for prompt and p.
func Request(prompt string, p Params) cloud.GenerationRequest {
	req := cloud.GenerationRequest{Prompt: prompt, GenerationType: string(p.Kind())}
	p.apply(&req)
	return req
}
