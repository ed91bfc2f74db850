package api

import (
	"net/http"
	"time"

	"github.com/videostack/storyboard-agent/internal/export"
	"github.com/videostack/storyboard-agent/internal/logging"
	"github.com/videostack/storyboard-agent/internal/storyboard"
)

func exportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req export.Request
		if !decodeBody(w, r, &req, true) {
			return
		}

		st := cfg.Store.Snapshot()
		if !st.Bound() {
			writeServiceError(w, storyboard.ErrUnbound)
			return
		}

		resp, err := export.Write(st, req, cfg.ExportDir, time.Now())
		if err != nil {
			writeServiceError(w, err)
			return
		}

		cfg.Logger.Info("storyboard exported",
			logging.StoryboardID(st.StoryboardID),
			"format", resp.Format,
			"path", resp.OutputPath,
			"shots", resp.ShotCount,
		)
		WriteJSON(w, http.StatusOK, resp)
	}
}
