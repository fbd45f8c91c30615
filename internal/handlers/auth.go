package handlers

import (
	"net/http"

	"github.com/AnshRaj112/calmsteps-backend/internal/middleware"
	"github.com/AnshRaj112/calmsteps-backend/internal/models"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// userJSON is the public account view. The password hash and Stripe ids
// never leave the server.
func userJSON(u models.User) map[string]interface{} {
	return map[string]interface{}{
		"id":        u.ID.String(),
		"username":  u.Username,
		"hasPaid":   u.HasPaid,
		"createdAt": u.CreatedAt,
	}
}

func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	u, token, err := h.Auth.SignUp(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ok(w, http.StatusCreated, envelope{
		"message": "Account created",
		"user":    userJSON(u),
		"token":   token,
	})
}

func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	u, token, err := h.Auth.SignIn(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, envelope{
		"message": "Signed in",
		"user":    userJSON(u),
		"token":   token,
	})
}

func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.Auth.SignOut(r.Context(), middleware.BearerToken(r)); err != nil {
		h.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, envelope{"message": "Signed out"})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	u, err := h.Auth.Me(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, envelope{
		"user": userJSON(u),
		"settings": map[string]interface{}{
			"autosaveDebounceMs": h.AutosaveDebounce.Milliseconds(),
		},
	})
}
