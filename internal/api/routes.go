package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/videostack/storyboard-agent/internal/generation"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(LoopbackOnly(cfg.Logger))
	r.Use(CORSAllowlist())

	r.Get("/health", healthHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Settings, cfg.Logger))

		r.Get("/status", statusHandler(cfg))
		r.Get("/storyboards", listStoryboardsHandler(cfg))

		r.Route("/storyboard", func(r chi.Router) {
			r.Get("/", getStoryboardHandler(cfg))
			r.Get("/totals", totalsHandler(cfg))
			r.Post("/mount", mountHandler(cfg))
			r.Post("/unmount", unmountHandler(cfg))
			r.Post("/reload", reloadHandler(cfg))
			r.Post("/polling", pollingHandler(cfg))
			r.Post("/generate-media", generateAllMediaHandler(cfg))
			r.Post("/export-video", exportVideoHandler(cfg))
			r.Post("/export", exportHandler(cfg))

			r.Post("/scenes", addSceneHandler(cfg))
			r.Post("/scenes/reorder", reorderScenesHandler(cfg))
			r.Patch("/scenes/{sceneID}", updateSceneHandler(cfg))
			r.Delete("/scenes/{sceneID}", deleteSceneHandler(cfg))
			r.Post("/scenes/{sceneID}/shots", addShotHandler(cfg))
			r.Post("/scenes/{sceneID}/shots/reorder", reorderShotsHandler(cfg))
			r.Patch("/scenes/{sceneID}/shots/{shotID}", updateShotHandler(cfg))
			r.Delete("/scenes/{sceneID}/shots/{shotID}", deleteShotHandler(cfg))

			r.Post("/shots/{shotID}/prompt", shotPromptHandler(cfg))
			r.Post("/shots/{shotID}/generate", generateShotHandler(cfg))
			r.Get("/shots/{shotID}/job", latestShotJobHandler(cfg))
		})

		r.Route("/modal", func(r chi.Router) {
			r.Get("/", modalViewHandler(cfg))
			r.Post("/open", modalOpenHandler(cfg))
			r.Patch("/draft", modalDraftHandler(cfg))
			r.Post("/regenerate", modalRegenerateHandler(cfg))
			r.Post("/close", modalCloseHandler(cfg))
		})

		r.Route("/concepts", func(r chi.Router) {
			r.Get("/", listConceptsHandler(cfg))
			r.Post("/", saveConceptHandler(cfg))
			r.Get("/{id}", getConceptHandler(cfg))
			r.Patch("/{id}", updateConceptHandler(cfg))
			r.Delete("/{id}", deleteConceptHandler(cfg))
			r.Post("/{id}/storyboard", createStoryboardHandler(cfg))
		})

		r.Get("/jobs", listJobsHandler(cfg))
		r.Get("/jobs/{id}", getJobHandler(cfg))
		r.Post("/jobs/pause", pauseJobsHandler(cfg))
		r.Post("/jobs/resume", resumeJobsHandler(cfg))
	})

	return r
}

// decodeBody decodes the JSON request body into v. An empty body is accepted
// when optional is set.
func decodeBody(w http.ResponseWriter, r *http.Request, v any, optional bool) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || (optional && errors.Is(err, io.EOF)) {
		return true
	}
	WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
	return false
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: cfg.Version,
			UptimeS: uptime,
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		st := cfg.Store.Snapshot()

		resp := StatusResponse{
			StoryboardID: st.StoryboardID,
			IsLoading:    st.IsLoading,
			IsPolling:    st.IsPolling,
			ModalState:   cfg.Editor.Modal().State().String(),
			StateVersion: st.Version,
		}

		if cfg.Runner != nil {
			resp.RunnerPaused = cfg.Runner.IsPaused()
			resp.ActiveJobs = cfg.Runner.ActiveJobCount(ctx)
		}

		if cfg.Generation != nil {
			jobs, _ := cfg.Generation.ListJobs(ctx, 10)
			for _, j := range jobs {
				if j.Status == generation.JobStatusFailed {
					resp.LastJobError = j.Error
					break
				}
			}
		}

		WriteJSON(w, http.StatusOK, resp)
	}
}
