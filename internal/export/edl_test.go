package export

import (
	"strings"
	"testing"

	"github.com/videostack/storyboard-agent/internal/storyboard"
)

func TestGenerateEDL_SingleClip(t *testing.T) {
	clips := []Clip{{
		Name:            "Storm - S01 Shot 01",
		MediaURL:        "https://cdn/storm.mp4",
		DurationSeconds: 2,
	}}

	edl := GenerateEDL(clips, "Keeper", 30.0)

	if !strings.Contains(edl, "TITLE: Keeper") {
		t.Fatalf("missing title in EDL: %q", edl)
	}
	if !strings.Contains(edl, "FCM: NON-DROP FRAME") {
		t.Fatalf("missing non-drop-frame FCM: %q", edl)
	}
	if !strings.Contains(edl, "001  AX       V     C        00:00:00:00 00:00:02:00 00:00:00:00 00:00:02:00") {
		t.Fatalf("missing event line: %q", edl)
	}
	if !strings.Contains(edl, "* FROM CLIP NAME:  Storm - S01 Shot 01") {
		t.Fatalf("missing clip name comment: %q", edl)
	}
	if !strings.Contains(edl, "* SOURCE URL:  https://cdn/storm.mp4") {
		t.Fatalf("missing source url comment: %q", edl)
	}
}

func TestGenerateEDL_ClipsLaidEndToEnd(t *testing.T) {
	clips := []Clip{
		{Name: "A", MediaURL: "https://cdn/a.mp4", DurationSeconds: 5},
		{Name: "B", MediaURL: "https://cdn/b.mp4", DurationSeconds: 8},
	}

	edl := GenerateEDL(clips, "Multi", 30.0)

	if !strings.Contains(edl, "001  AX       V     C        00:00:00:00 00:00:05:00 00:00:00:00 00:00:05:00") {
		t.Fatalf("first event line mismatch: %q", edl)
	}
	if !strings.Contains(edl, "002  AX       V     C        00:00:00:00 00:00:08:00 00:00:05:00 00:00:13:00") {
		t.Fatalf("second event line mismatch or bad record offset: %q", edl)
	}
}

func TestGenerateEDL_DropFrame(t *testing.T) {
	clips := []Clip{{Name: "Clip", MediaURL: "https://cdn/x.mp4", DurationSeconds: 1}}
	edl := GenerateEDL(clips, "Drop", 29.97)

	if !strings.Contains(edl, "FCM: DROP FRAME") {
		t.Fatalf("expected drop frame FCM, got: %q", edl)
	}
}

func TestClipsFromState_SkipsShotsWithoutVideo(t *testing.T) {
	st := storyboard.State{Scenes: []storyboard.Scene{
		{ID: "sc1", Name: "Storm", Shots: []storyboard.Shot{
			{ID: "a", VideoURL: "https://cdn/a.mp4", DurationSeconds: 8},
			{ID: "b", ImageURL: "https://img/b.png"},
		}},
		{ID: "sc2", Name: "Dawn<1>", Shots: []storyboard.Shot{
			{ID: "c", VideoURL: "https://cdn/c.mp4"},
		}},
	}}

	clips, skipped := ClipsFromState(st)

	if len(clips) != 2 {
		t.Fatalf("clips = %d, want 2", len(clips))
	}
	if clips[0].Name != "Storm - S01 Shot 01" || clips[0].DurationSeconds != 8 {
		t.Errorf("first clip = %+v", clips[0])
	}
	if clips[1].Name != "Dawn_1_ - S02 Shot 01" || clips[1].DurationSeconds != storyboard.DefaultShotDurationSeconds {
		t.Errorf("second clip = %+v", clips[1])
	}
	if len(skipped) != 1 || skipped[0] != "b" {
		t.Errorf("skipped = %v, want [b]", skipped)
	}
}

func TestMsToTimecode(t *testing.T) {
	tests := []struct {
		name string
		ms   int
		fps  int
		want string
	}{
		{name: "zero", ms: 0, fps: 30, want: "00:00:00:00"},
		{name: "one second", ms: 1000, fps: 30, want: "00:00:01:00"},
		{name: "fractional second", ms: 500, fps: 30, want: "00:00:00:15"},
		{name: "one minute", ms: 60000, fps: 30, want: "00:01:00:00"},
		{name: "one hour", ms: 3600000, fps: 30, want: "01:00:00:00"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := msToTimecode(tc.ms, tc.fps)
			if got != tc.want {
				t.Fatalf("msToTimecode(%d, %d) = %q, want %q", tc.ms, tc.fps, got, tc.want)
			}
		})
	}
}
