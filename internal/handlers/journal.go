package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/AnshRaj112/calmsteps-backend/internal/services"
)

// supportMessage is returned alongside any entry that looks like a crisis.
// The entry is still saved.
var supportMessage = map[string]interface{}{
	"message": "It sounds like things are really hard right now. You don't have to handle this alone.",
	"contacts": []map[string]string{
		{"name": "Samaritans", "phone": "116 123"},
		{"name": "NHS 111 (option 2 for mental health)", "phone": "111"},
		{"name": "Emergency services", "phone": "999"},
	},
}

func (h *Handler) journalEnabled(w http.ResponseWriter) bool {
	if h.Journal == nil {
		fail(w, http.StatusServiceUnavailable, "journal_unavailable", "Journaling is temporarily unavailable")
		return false
	}
	return true
}

func queryInt(r *http.Request, key string, def int64) int64 {
	v, err := strconv.ParseInt(r.URL.Query().Get(key), 10, 64)
	if err != nil {
		return def
	}
	return v
}

func (h *Handler) SaveMood(w http.ResponseWriter, r *http.Request) {
	if !h.journalEnabled(w) {
		return
	}
	userID, err := currentUser(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req services.MoodInput
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	entry, flagged, err := h.Journal.SaveMood(r.Context(), userID, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	body := envelope{"entry": entry, "flaggedForSupport": flagged}
	if flagged {
		body["support"] = supportMessage
	}
	ok(w, http.StatusOK, body)
}

func (h *Handler) ListMoods(w http.ResponseWriter, r *http.Request) {
	if !h.journalEnabled(w) {
		return
	}
	userID, err := currentUser(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	entries, err := h.Journal.Moods(r.Context(), userID, queryInt(r, "limit", 30))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, envelope{"entries": entries})
}

func (h *Handler) AddThought(w http.ResponseWriter, r *http.Request) {
	if !h.journalEnabled(w) {
		return
	}
	userID, err := currentUser(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req services.ThoughtInput
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	rec, err := h.Journal.AddThought(r.Context(), userID, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	body := envelope{"record": rec}
	if rec.FlaggedForSupport {
		body["support"] = supportMessage
	}
	ok(w, http.StatusCreated, body)
}

func (h *Handler) ListThoughts(w http.ResponseWriter, r *http.Request) {
	if !h.journalEnabled(w) {
		return
	}
	userID, err := currentUser(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	page, limit := queryInt(r, "page", 1), queryInt(r, "limit", 20)
	recs, total, err := h.Journal.Thoughts(r.Context(), userID, page, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, envelope{"records": recs, "total": total, "page": page})
}

func (h *Handler) DeleteThought(w http.ResponseWriter, r *http.Request) {
	if !h.journalEnabled(w) {
		return
	}
	userID, err := currentUser(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.Journal.DeleteThought(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, envelope{"message": "Thought record deleted"})
}
