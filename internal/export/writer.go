package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/videostack/storyboard-agent/internal/storyboard"
)

var (
	ErrUnsupportedFormat = errors.New("export: format must be json or edl")
	ErrNothingToExport   = errors.New("export: no shot has a rendered video")
)

// Write renders st in the requested format into dir and returns where it went.
// dir falls back to defaultDir, which is created on demand.
func Write(st storyboard.State, req Request, defaultDir string, now time.Time) (*Response, error) {
	format := strings.ToLower(strings.TrimSpace(req.Format))
	if format == "" {
		format = FormatJSON
	}
	if format != FormatJSON && format != FormatEDL {
		return nil, ErrUnsupportedFormat
	}

	dir := req.OutputDir
	if dir == "" {
		dir = defaultDir
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create export directory: %w", err)
		}
	}
	if err := ValidateOutputDir(dir); err != nil {
		return nil, err
	}

	name := SanitizeName(st.Title, 120)
	if name == "" {
		name = "storyboard_" + SanitizeName(st.StoryboardID, 40)
	}
	base := fmt.Sprintf("%s_%s", name, now.UTC().Format("20060102-150405"))

	var (
		content []byte
		shots   int
		skipped = []string{}
	)
	switch format {
	case FormatJSON:
		doc := NewDocument(st, now)
		b, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode export: %w", err)
		}
		content = b
		shots = doc.Totals.ShotCount
	case FormatEDL:
		frameRate := req.FrameRate
		if frameRate <= 0 {
			frameRate = 30.0
		}
		clips, missing := ClipsFromState(st)
		if len(clips) == 0 {
			return nil, ErrNothingToExport
		}
		content = []byte(GenerateEDL(clips, name, frameRate))
		shots = len(clips)
		skipped = missing
	}

	outputPath := filepath.Join(dir, base+"."+format)
	if err := os.WriteFile(outputPath, content, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write export file: %w", err)
	}

	return &Response{
		Status:       "ok",
		Format:       format,
		OutputPath:   outputPath,
		ShotCount:    shots,
		SkippedShots: skipped,
	}, nil
}
