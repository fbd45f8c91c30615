package handlers

import (
	"net/http"

	"github.com/AnshRaj112/calmsteps-backend/internal/models"
)

type assessmentRequest struct {
	WeekNumber int                    `json:"weekNumber"`
	Responses  map[string]interface{} `json:"responses"`
}

func assessmentJSON(a models.Assessment) envelope {
	return envelope{
		"assessment": a,
		"risk": map[string]interface{}{
			"score":            a.RiskScore,
			"level":            a.RiskLevel,
			"needsEscalation":  a.NeedsEscalation,
			"incompleteFields": a.IncompleteFields,
		},
	}
}

func (h *Handler) SubmitAssessment(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req assessmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	a, err := h.Assessments.SubmitWeekly(r.Context(), userID, req.WeekNumber, req.Responses)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ok(w, http.StatusCreated, assessmentJSON(a))
}

func (h *Handler) ListAssessments(w http.ResponseWriter, r *http.Request) {
	userID, err := pathSelf(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	list, err := h.Assessments.Weekly(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, envelope{"assessments": list})
}

func (h *Handler) SubmitOnboarding(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req assessmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	a, err := h.Assessments.SubmitOnboarding(r.Context(), userID, req.Responses)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ok(w, http.StatusCreated, assessmentJSON(a))
}

// GetOnboarding answers 404 when the user has not onboarded yet; the client
// uses that to route into the questionnaire.
func (h *Handler) GetOnboarding(w http.ResponseWriter, r *http.Request) {
	userID, err := pathSelf(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	a, err := h.Assessments.Onboarding(r.Context(), userID)
	if err != nil {
		if isNotFound(err) {
			fail(w, http.StatusNotFound, "not_found", "Onboarding not completed")
			return
		}
		h.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, assessmentJSON(a))
}
