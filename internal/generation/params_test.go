package generation

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestParams_Validate(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		wantErr bool
	}{
		{"veo default", DefaultVideoParams(VideoModelVeo3), false},
		{"seedance default", DefaultVideoParams(VideoModelSeedance), false},
		{"seedance 10s 480p", VideoParams{Model: VideoModelSeedance, DurationSeconds: 10, Resolution: "480p"}, false},
		{"veo rejects 5s", VideoParams{Model: VideoModelVeo3, DurationSeconds: 5, Resolution: "1080p"}, true},
		{"veo rejects 480p", VideoParams{Model: VideoModelVeo3, DurationSeconds: 8, Resolution: "480p"}, true},
		{"unknown video model", VideoParams{Model: "sora", DurationSeconds: 8, Resolution: "1080p"}, true},
		{"bad aspect ratio", VideoParams{Model: VideoModelVeo3, DurationSeconds: 8, Resolution: "720p", AspectRatio: "2:1"}, true},
		{"last frame alone", VideoParams{Model: VideoModelSeedance, DurationSeconds: 5, Resolution: "720p", LastFrame: "https://img/x.png"}, true},
		{"image default", DefaultImageParams(), false},
		{"seedream bad resolution", ImageParams{Model: ImageModelSeedream, Resolution: "640x480"}, true},
		{"nanobanana without resolution", ImageParams{Model: ImageModelNanoBanana}, false},
		{"nanobanana with resolution", ImageParams{Model: ImageModelNanoBanana, Resolution: "2048x2048"}, true},
		{"unknown image model", ImageParams{Model: "dalle"}, true},
		{"audio default", DefaultAudioParams(), false},
		{"audio too short", AudioParams{DurationSeconds: 5}, true},
		{"audio too long", AudioParams{DurationSeconds: 301}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidParams) {
				t.Errorf("error %v does not wrap ErrInvalidParams", err)
			}
		})
	}
}

func TestEnvelope_DecodesVariant(t *testing.T) {
	var env Envelope
	raw := `{"kind":"video","video":{"model":"seedance","duration_in_seconds":10,"resolution":"720p"}}`
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	p, err := env.Params()
	if err != nil {
		t.Fatalf("Params() error = %v", err)
	}
	v, ok := p.(VideoParams)
	if !ok {
		t.Fatalf("Params() = %T, want VideoParams", p)
	}
	if v.Model != VideoModelSeedance || v.DurationSeconds != 10 {
		t.Errorf("video params = %+v", v)
	}
}

func TestEnvelope_DefaultsMissingBody(t *testing.T) {
	p, err := Envelope{Kind: KindImage}.Params()
	if err != nil {
		t.Fatalf("Params() error = %v", err)
	}
	if p != Params(DefaultImageParams()) {
		t.Errorf("Params() = %+v, want defaults", p)
	}

	if _, err := (Envelope{Kind: "hologram"}).Params(); !errors.Is(err, ErrInvalidParams) {
		t.Errorf("unknown kind error = %v", err)
	}
}

func TestRequest_CarriesVariantFields(t *testing.T) {
	req := Request("a fox in snow", VideoParams{Model: VideoModelVeo3, DurationSeconds: 8, Resolution: "720p", FirstFrame: "https://img/f.png"})

	if req.GenerationType != "video" || req.Model != "google_veo_3" {
		t.Errorf("request = %+v", req)
	}
	if req.DurationSeconds != 8 || req.Resolution != "720p" || req.FirstFrame != "https://img/f.png" {
		t.Errorf("request = %+v", req)
	}

	audio := Request("rain", AudioParams{DurationSeconds: 30})
	if audio.GenerationType != "audio" || audio.Model != "" || audio.DurationSeconds != 30 {
		t.Errorf("audio request = %+v", audio)
	}
}

func TestValidatePrompt(t *testing.T) {
	if err := validatePrompt("  "); !errors.Is(err, ErrInvalidPrompt) {
		t.Errorf("blank prompt error = %v", err)
	}
	if err := validatePrompt(strings.Repeat("x", MaxPromptLength+1)); !errors.Is(err, ErrInvalidPrompt) {
		t.Errorf("long prompt error = %v", err)
	}
	if err := validatePrompt("a lighthouse"); err != nil {
		t.Errorf("valid prompt error = %v", err)
	}
}
