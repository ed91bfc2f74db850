package api

import (
	"context"
	"math"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/videostack/storyboard-agent/internal/storyboard"
)

func listStoryboardsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := cfg.Storyboards.ListStoryboards(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, StoryboardsResponse{Storyboards: list})
	}
}

func getStoryboardHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := cfg.Store.Snapshot()
		WriteJSON(w, http.StatusOK, StoryboardResponse{State: st, Totals: storyboard.Aggregate(st.Scenes)})
	}
}

func totalsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, cfg.Editor.Totals())
	}
}

func mountHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req MountRequest
		if !decodeBody(w, r, &req, false) {
			return
		}
		if req.StoryboardID == "" {
			WriteError(w, http.StatusBadRequest, "storyboard_id is required", "BAD_REQUEST")
			return
		}

		if err := cfg.Editor.Mount(r.Context(), req.StoryboardID); err != nil {
			writeServiceError(w, err)
			return
		}
		getStoryboardHandler(cfg)(w, r)
	}
}

func unmountHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Editor.Unmount(r.Context()); err != nil {
			cfg.Logger.Warn("unmount finished with unsaved draft", "error", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func reloadHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := cfg.Store.Snapshot()
		if err := cfg.Store.Load(r.Context(), st.StoryboardID); err != nil {
			writeServiceError(w, err)
			return
		}
		getStoryboardHandler(cfg)(w, r)
	}
}

func pollingHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PollingRequest
		if !decodeBody(w, r, &req, false) {
			return
		}

		if req.Enabled {
			ctx := cfg.Context
			if ctx == nil {
				ctx = context.Background()
			}
			cfg.Editor.StartPolling(ctx)
		} else {
			cfg.Editor.StopPolling()
		}
		WriteJSON(w, http.StatusOK, PollingRequest{Enabled: cfg.Editor.IsPolling()})
	}
}

func generateAllMediaHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Store.GenerateAllMedia(r.Context(), ""); err != nil {
			writeServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusAccepted, AcceptedResponse{Status: "queued"})
	}
}

func exportVideoHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !cfg.Store.TriggerVideoExport() {
			writeServiceError(w, storyboard.ErrUnbound)
			return
		}
		WriteJSON(w, http.StatusAccepted, AcceptedResponse{Status: "initiated"})
	}
}

func addSceneHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req IndexRequest
		if !decodeBody(w, r, &req, true) {
			return
		}

		scene, err := cfg.Store.AddScene(r.Context(), indexOrAppend(req.Index))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, scene)
	}
}

func updateSceneHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req storyboard.SceneUpdate
		if !decodeBody(w, r, &req, false) {
			return
		}

		sceneID := chi.URLParam(r, "sceneID")
		if err := cfg.Store.UpdateScene(r.Context(), sceneID, req); err != nil {
			writeServiceError(w, err)
			return
		}
		scene, _ := cfg.Store.Snapshot().FindScene(sceneID)
		WriteJSON(w, http.StatusOK, scene)
	}
}

func deleteSceneHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Store.DeleteScene(r.Context(), chi.URLParam(r, "sceneID")); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func reorderScenesHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req DragEndRequest
		if !decodeBody(w, r, &req, false) {
			return
		}

		if err := cfg.Editor.HandleSceneDragEnd(r.Context(), req.ActiveID, req.OverID); err != nil {
			writeServiceError(w, err)
			return
		}
		getStoryboardHandler(cfg)(w, r)
	}
}

func addShotHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req IndexRequest
		if !decodeBody(w, r, &req, true) {
			return
		}

		shot, err := cfg.Store.AddShotToScene(r.Context(), chi.URLParam(r, "sceneID"), indexOrAppend(req.Index))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, shot)
	}
}

func reorderShotsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req DragEndRequest
		if !decodeBody(w, r, &req, false) {
			return
		}

		sceneID := chi.URLParam(r, "sceneID")
		if err := cfg.Editor.HandleShotDragEnd(r.Context(), sceneID, req.ActiveID, req.OverID); err != nil {
			writeServiceError(w, err)
			return
		}
		getStoryboardHandler(cfg)(w, r)
	}
}

func updateShotHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req storyboard.ShotUpdate
		if !decodeBody(w, r, &req, false) {
			return
		}

		shotID := chi.URLParam(r, "shotID")
		if err := cfg.Store.UpdateShot(r.Context(), chi.URLParam(r, "sceneID"), shotID, req); err != nil {
			writeServiceError(w, err)
			return
		}
		_, shot, _ := cfg.Store.Snapshot().FindShot(shotID)
		WriteJSON(w, http.StatusOK, shot)
	}
}

func deleteShotHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := cfg.Store.DeleteShot(r.Context(), chi.URLParam(r, "sceneID"), chi.URLParam(r, "shotID"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func shotPromptHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PromptRequest
		if !decodeBody(w, r, &req, false) {
			return
		}

		shotID := chi.URLParam(r, "shotID")
		if err := cfg.Store.GenerateShot(r.Context(), req.Prompt, shotID); err != nil {
			writeServiceError(w, err)
			return
		}
		_, shot, _ := cfg.Store.Snapshot().FindShot(shotID)
		WriteJSON(w, http.StatusOK, shot)
	}
}

func indexOrAppend(index *int) int {
	if index == nil {
		return math.MaxInt
	}
	return *index
}
