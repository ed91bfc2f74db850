package export

import (
	"time"

	"github.com/videostack/storyboard-agent/internal/storyboard"
)

const (
	FormatJSON = "json"
	FormatEDL  = "edl"
)

type Request struct {
	Format    string  `json:"format"`
	FrameRate float64 `json:"frame_rate,omitempty"`
	OutputDir string  `json:"output_dir,omitempty"`
}

type Response struct {
	Status       string   `json:"status"`
	Format       string   `json:"format"`
	OutputPath   string   `json:"output_path"`
	ShotCount    int      `json:"shot_count"`
	SkippedShots []string `json:"skipped_shots"`
}

// Document is the JSON export of a storyboard.
type Document struct {
	StoryboardID   string             `json:"storyboard_id"`
	Title          string             `json:"title,omitempty"`
	OriginalPrompt string             `json:"original_prompt"`
	Storyline      string             `json:"storyline,omitempty"`
	Scenes         []storyboard.Scene `json:"scenes"`
	Totals         storyboard.Totals  `json:"totals"`
	ExportedAt     time.Time          `json:"exported_at"`
}

func NewDocument(st storyboard.State, at time.Time) Document {
	scenes := st.Scenes
	if scenes == nil {
		scenes = []storyboard.Scene{}
	}
	return Document{
		StoryboardID:   st.StoryboardID,
		Title:          st.Title,
		OriginalPrompt: st.OriginalPrompt,
		Storyline:      st.Storyline,
		Scenes:         scenes,
		Totals:         storyboard.Aggregate(scenes),
		ExportedAt:     at.UTC(),
	}
}

// Clip is one shot laid on the EDL timeline.
type Clip struct {
	Name            string
	MediaURL        string
	DurationSeconds int
	SceneID         string
}

// ClipsFromState returns every shot with a rendered video in playback order,
// plus the ids of shots skipped for lack of one.
func ClipsFromState(st storyboard.State) ([]Clip, []string) {
	clips := make([]Clip, 0)
	skipped := make([]string, 0)
	for i, scene := range st.Scenes {
		for j, shot := range scene.Shots {
			if shot.VideoURL == "" {
				skipped = append(skipped, shot.ID)
				continue
			}
			name := SanitizeName(scene.Name, 80)
			if name == "" {
				name = "Scene"
			}
			clips = append(clips, Clip{
				Name:            clipName(name, i+1, j+1),
				MediaURL:        shot.VideoURL,
				DurationSeconds: shot.Duration(),
				SceneID:         scene.ID,
			})
		}
	}
	return clips, skipped
}
