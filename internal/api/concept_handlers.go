package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/videostack/storyboard-agent/internal/concept"
)

func listConceptsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		drafts, err := cfg.Concepts.ListDrafts(r.Context(), 50)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list concepts", "INTERNAL_ERROR")
			return
		}
		if drafts == nil {
			drafts = []*concept.Draft{}
		}
		WriteJSON(w, http.StatusOK, DraftsResponse{Drafts: drafts})
	}
}

func saveConceptHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ConceptRequest
		if !decodeBody(w, r, &req, false) {
			return
		}

		d, err := cfg.Concepts.SaveConcept(r.Context(), req.Concept)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, d)
	}
}

func getConceptHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := cfg.Concepts.GetDraft(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, d)
	}
}

func updateConceptHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req concept.DraftUpdate
		if !decodeBody(w, r, &req, false) {
			return
		}

		d, err := cfg.Concepts.UpdateDraft(r.Context(), chi.URLParam(r, "id"), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, d)
	}
}

func deleteConceptHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Concepts.DeleteDraft(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// createStoryboardHandler turns a draft into a hydrated storyboard. The store
// ends up bound to it; the editor mounts it on the next /storyboard/mount.
func createStoryboardHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := cfg.Concepts.CreateStoryboard(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, d)
	}
}
