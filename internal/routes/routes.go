package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AnshRaj112/calmsteps-backend/internal/handlers"
	"github.com/AnshRaj112/calmsteps-backend/internal/models"
)

// Options carries the per-route middleware built in main.
type Options struct {
	// Auth rejects unauthenticated requests and stores the user id.
	Auth func(http.Handler) http.Handler
	// WriteLimit throttles mutating requests per user. Optional.
	WriteLimit func(http.Handler) http.Handler
}

func SetupRoutes(r chi.Router, h *handlers.Handler, opts Options) {
	r.Get("/health", h.Health)

	// Public auth routes
	r.Post("/api/auth/signup", h.SignUp)
	r.Post("/api/auth/signin", h.SignIn)

	// Stripe authenticates with the signature header, not a session.
	r.Post("/api/webhooks/stripe", h.StripeWebhook)

	r.Group(func(r chi.Router) {
		r.Use(opts.Auth)
		if opts.WriteLimit != nil {
			r.Use(opts.WriteLimit)
		}

		r.Post("/api/auth/signout", h.SignOut)
		r.Get("/api/auth/me", h.Me)

		// Six-week programme
		r.Get("/api/modules/{userId}", h.ListModules)
		r.Patch("/api/modules/{id}", h.PatchModule)
		r.Post("/api/modules/{id}/activities/{activityId}/toggle", h.ToggleActivity)
		r.Post("/api/modules/{id}/finish", h.FinishModule)
		r.Get("/api/progress/{userId}", h.ProgressSummary)

		// Questionnaires
		r.Post("/api/assessments", h.SubmitAssessment)
		r.Get("/api/assessments/{userId}", h.ListAssessments)
		r.Post("/api/onboarding", h.SubmitOnboarding)
		r.Get("/api/onboarding/{userId}", h.GetOnboarding)

		// Guides share one document store keyed by guide type
		for _, g := range []models.GuideType{models.GuideAnxiety, models.GuideSleep, models.GuideLifestyle} {
			r.Get("/api/"+string(g)+"/{userId}", h.GetGuide(g))
			r.Patch("/api/"+string(g)+"/{userId}", h.PatchGuide(g))
		}

		// Journaling (MongoDB)
		r.Post("/api/mood-entries", h.SaveMood)
		r.Get("/api/mood-entries", h.ListMoods)
		r.Post("/api/thought-records", h.AddThought)
		r.Get("/api/thought-records", h.ListThoughts)
		r.Delete("/api/thought-records/{id}", h.DeleteThought)

		// Realtime progress reconciliation
		r.Get("/ws/progress", h.ProgressSocket)
	})
}
