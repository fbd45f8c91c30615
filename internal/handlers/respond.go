package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/AnshRaj112/calmsteps-backend/internal/apierr"
	"github.com/AnshRaj112/calmsteps-backend/internal/middleware"
)

const maxBodyBytes = 1 << 20

// envelope is the response shape used across the API:
// {"success": bool, "message": "...", "code": "...", ...payload}.
type envelope map[string]interface{}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func ok(w http.ResponseWriter, status int, body envelope) {
	if body == nil {
		body = envelope{}
	}
	body["success"] = true
	writeJSON(w, status, body)
}

func fail(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, envelope{"success": false, "code": code, "message": message})
}

// writeError maps service errors to statuses. Server-side failures are logged
// and never echoed to the client.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	ae := apierr.From(err)
	msg := ae.Error()
	switch {
	case ae.Status >= http.StatusInternalServerError:
		h.Log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		msg = "Something went wrong. Please try again."
	case ae.Status == http.StatusForbidden:
		msg = "You do not have access to this resource"
	}
	fail(w, ae.Status, ae.Code, msg)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apierr.New(http.StatusRequestEntityTooLarge, "payload_too_large", fmt.Errorf("%w: request body too large", apierr.ErrValidation))
		}
		if errors.Is(err, io.EOF) {
			return apierr.Validation("request body is required")
		}
		return apierr.Validation("invalid request body: %v", err)
	}
	return nil
}

// currentUser is set by middleware.RequireAuth on every protected route.
func currentUser(r *http.Request) (uuid.UUID, error) {
	id, ok := middleware.UserID(r.Context())
	if !ok {
		return uuid.Nil, apierr.ErrUnauthorized
	}
	return id, nil
}

// pathSelf returns the session user when it matches {userId} in the path.
func pathSelf(r *http.Request) (uuid.UUID, error) {
	me, err := currentUser(r)
	if err != nil {
		return uuid.Nil, err
	}
	want, err := uuid.Parse(chi.URLParam(r, "userId"))
	if err != nil || want != me {
		return uuid.Nil, apierr.ErrForbidden
	}
	return me, nil
}

// pathID parses a uuid route param. A malformed id is treated like a foreign
// one so ids cannot be probed.
func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, apierr.ErrForbidden
	}
	return id, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, apierr.ErrNotFound)
}
