package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AnshRaj112/calmsteps-backend/internal/curriculum"
	"github.com/AnshRaj112/calmsteps-backend/internal/models"
	"github.com/AnshRaj112/calmsteps-backend/internal/progress"
	"github.com/AnshRaj112/calmsteps-backend/internal/repository"
)

// patchModuleRequest is the PATCH /api/modules/{id} body. Version is
// optional; when sent it must match the stored row.
type patchModuleRequest struct {
	UserProgress models.ProgressPatch `json:"userProgress"`
	Version      *int64               `json:"version"`
}

func (h *Handler) ListModules(w http.ResponseWriter, r *http.Request) {
	userID, err := pathSelf(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	views, err := h.Modules.Modules(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, envelope{"modules": views})
}

func (h *Handler) PatchModule(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	moduleID, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req patchModuleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	view, err := h.Modules.Patch(r.Context(), userID, moduleID, req.Version, req.UserProgress)
	if err != nil {
		h.writeModuleError(w, r, err)
		return
	}
	ok(w, http.StatusOK, envelope{"module": view})
}

func (h *Handler) ToggleActivity(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	moduleID, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.Modules.Toggle(r.Context(), userID, moduleID, chi.URLParam(r, "activityId"))
	if err != nil {
		h.writeModuleError(w, r, err)
		return
	}
	ok(w, http.StatusOK, envelope{
		"module":                res.Module,
		"allActivitiesComplete": res.AllActivitiesComplete,
	})
}

func (h *Handler) FinishModule(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	moduleID, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	view, err := h.Modules.Finish(r.Context(), userID, moduleID)
	if err != nil {
		h.writeModuleError(w, r, err)
		return
	}
	ok(w, http.StatusOK, envelope{"module": view})
}

// writeModuleError answers a stale version with the stored module so the
// client can rebase its pending edits.
func (h *Handler) writeModuleError(w http.ResponseWriter, r *http.Request, err error) {
	var conflict *repository.VersionConflictError
	if errors.As(err, &conflict) {
		current := interface{}(conflict.Current)
		if content, found := curriculum.GetModuleContent(conflict.Current.WeekNumber); found {
			current = progress.MergeContent(content, conflict.Current)
		}
		writeJSON(w, http.StatusConflict, envelope{
			"success": false,
			"code":    "version_conflict",
			"message": "This module was changed elsewhere. Reload to continue.",
			"module":  current,
		})
		return
	}
	h.writeError(w, r, err)
}

func (h *Handler) ProgressSummary(w http.ResponseWriter, r *http.Request) {
	userID, err := pathSelf(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	summary, err := h.Dashboard.Summary(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, envelope{"progress": summary})
}
