package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/videostack/storyboard-agent/internal/generation"
)

func modalViewHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, cfg.Editor.Modal().View())
	}
}

func modalOpenHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ModalOpenRequest
		if !decodeBody(w, r, &req, false) {
			return
		}
		if req.ShotID == "" {
			WriteError(w, http.StatusBadRequest, "shot_id is required", "BAD_REQUEST")
			return
		}

		view, err := cfg.Editor.Modal().Open(req.ShotID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, view)
	}
}

func modalDraftHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req DraftRequest
		if !decodeBody(w, r, &req, false) {
			return
		}

		m := cfg.Editor.Modal()
		if req.Prompt != nil {
			if err := m.SetPrompt(*req.Prompt); err != nil {
				writeServiceError(w, err)
				return
			}
		}
		if req.DurationSeconds != nil {
			if err := m.SetDuration(*req.DurationSeconds); err != nil {
				writeServiceError(w, err)
				return
			}
		}
		if req.VideoModel != nil {
			if err := m.SetVideoModel(*req.VideoModel); err != nil {
				writeServiceError(w, err)
				return
			}
		}
		WriteJSON(w, http.StatusOK, m.View())
	}
}

func modalRegenerateHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := RegenerateRequest{Kind: generation.KindImage}
		if !decodeBody(w, r, &req, true) {
			return
		}

		m := cfg.Editor.Modal()
		if err := m.Regenerate(r.Context(), req.Kind); err != nil {
			writeServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusAccepted, m.View())
	}
}

func modalCloseHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m := cfg.Editor.Modal()
		if err := m.Close(r.Context()); err != nil {
			writeServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, m.View())
	}
}

func generateShotHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		env := generation.Envelope{Kind: generation.KindImage}
		if !decodeBody(w, r, &env, true) {
			return
		}
		params, err := env.Params()
		if err != nil {
			writeServiceError(w, err)
			return
		}

		job, err := cfg.Generation.GenerateShot(r.Context(), chi.URLParam(r, "shotID"), params)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusAccepted, job)
	}
}

func latestShotJobHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := cfg.Generation.LatestJobForShot(r.Context(), chi.URLParam(r, "shotID"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if job == nil {
			WriteError(w, http.StatusNotFound, "no generation for shot", "NOT_FOUND")
			return
		}
		WriteJSON(w, http.StatusOK, job)
	}
}

func listJobsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobs, err := cfg.Generation.ListJobs(r.Context(), 50)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list jobs", "INTERNAL_ERROR")
			return
		}
		if jobs == nil {
			jobs = []*generation.Job{}
		}
		WriteJSON(w, http.StatusOK, JobsResponse{Jobs: jobs})
	}
}

func getJobHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := cfg.Generation.GetJob(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if job == nil {
			WriteError(w, http.StatusNotFound, "job not found", "NOT_FOUND")
			return
		}
		WriteJSON(w, http.StatusOK, job)
	}
}

func pauseJobsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg.Runner.Pause()
		w.WriteHeader(http.StatusNoContent)
	}
}

func resumeJobsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg.Runner.Resume()
		w.WriteHeader(http.StatusNoContent)
	}
}
