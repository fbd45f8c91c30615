package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/AnshRaj112/calmsteps-backend/internal/models"
	"github.com/AnshRaj112/calmsteps-backend/internal/repository"
)

type patchGuideRequest struct {
	Sections map[string]json.RawMessage `json:"sections"`
	Version  *int64                     `json:"version"`
}

// GetGuide and PatchGuide return the handlers for one guide document, mounted at
// /api/<guide>/{userId}.
func (h *Handler) GetGuide(guide models.GuideType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := pathSelf(r)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		g, err := h.Guides.Get(r.Context(), userID, guide)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		ok(w, http.StatusOK, envelope{"guide": g})
	}
}

func (h *Handler) PatchGuide(guide models.GuideType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := pathSelf(r)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		var req patchGuideRequest
		if err := decodeJSON(w, r, &req); err != nil {
			h.writeError(w, r, err)
			return
		}
		g, err := h.Guides.Patch(r.Context(), userID, guide, req.Version, req.Sections)
		if err != nil {
			var conflict *repository.GuideConflictError
			if errors.As(err, &conflict) {
				writeJSON(w, http.StatusConflict, envelope{
					"success": false,
					"code":    "version_conflict",
					"message": "This guide was changed elsewhere. Reload to continue.",
					"guide":   conflict.Current,
				})
				return
			}
			h.writeError(w, r, err)
			return
		}
		ok(w, http.StatusOK, envelope{"guide": g})
	}
}
