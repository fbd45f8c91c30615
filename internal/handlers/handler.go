package handlers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/AnshRaj112/calmsteps-backend/internal/logger"
	"github.com/AnshRaj112/calmsteps-backend/internal/models"
	"github.com/AnshRaj112/calmsteps-backend/internal/progress"
	"github.com/AnshRaj112/calmsteps-backend/internal/services"
	"github.com/AnshRaj112/calmsteps-backend/pkg/autosave"
)

// The interfaces below are satisfied by the services package.

type AuthAPI interface {
	SignUp(ctx context.Context, username, password string) (models.User, string, error)
	SignIn(ctx context.Context, username, password string) (models.User, string, error)
	SignOut(ctx context.Context, token string) error
	Me(ctx context.Context, userID uuid.UUID) (models.User, error)
}

type ModuleAPI interface {
	Modules(ctx context.Context, userID uuid.UUID) ([]progress.ModuleView, error)
	Patch(ctx context.Context, userID, moduleID uuid.UUID, version *int64, patch models.ProgressPatch) (progress.ModuleView, error)
	Toggle(ctx context.Context, userID, moduleID uuid.UUID, activityID string) (services.ToggleResult, error)
	Finish(ctx context.Context, userID, moduleID uuid.UUID) (progress.ModuleView, error)
}

type DashboardAPI interface {
	Summary(ctx context.Context, userID uuid.UUID) (services.Summary, error)
}

type AssessmentAPI interface {
	SubmitWeekly(ctx context.Context, userID uuid.UUID, week int, responses map[string]interface{}) (models.Assessment, error)
	SubmitOnboarding(ctx context.Context, userID uuid.UUID, responses map[string]interface{}) (models.Assessment, error)
	Weekly(ctx context.Context, userID uuid.UUID) ([]models.Assessment, error)
	Onboarding(ctx context.Context, userID uuid.UUID) (models.Assessment, error)
}

type GuideAPI interface {
	Get(ctx context.Context, userID uuid.UUID, guide models.GuideType) (models.GuideProgress, error)
	Patch(ctx context.Context, userID uuid.UUID, guide models.GuideType, version *int64, sections map[string]json.RawMessage) (models.GuideProgress, error)
}

type JournalAPI interface {
	SaveMood(ctx context.Context, userID uuid.UUID, in services.MoodInput) (models.MoodEntry, bool, error)
	Moods(ctx context.Context, userID uuid.UUID, limit int64) ([]models.MoodEntry, error)
	AddThought(ctx context.Context, userID uuid.UUID, in services.ThoughtInput) (models.ThoughtRecord, error)
	Thoughts(ctx context.Context, userID uuid.UUID, page, limit int64) ([]models.ThoughtRecord, int64, error)
	DeleteThought(ctx context.Context, userID uuid.UUID, id string) error
}

type BillingAPI interface {
	HandleWebhook(ctx context.Context, payload []byte, signature string) (bool, error)
}

type Subscriber interface {
	Subscribe(userID uuid.UUID) (<-chan services.ProgressEvent, func())
}

// HealthCheck pings one dependency.
type HealthCheck func(ctx context.Context) error

// Deps lists everything the HTTP layer talks to. Journal may be nil when
// MongoDB is not configured; its routes then answer 503.
type Deps struct {
	Auth           AuthAPI
	Modules        ModuleAPI
	Dashboard      DashboardAPI
	Assessments    AssessmentAPI
	Guides         GuideAPI
	Journal        JournalAPI
	Billing        BillingAPI
	Hub            Subscriber
	AllowedOrigins []string
	HealthChecks   map[string]HealthCheck

	// AutosaveDebounce is advertised to clients so every tab uses the same
	// idle window.
	AutosaveDebounce time.Duration
	Log              *logger.Logger
}

type Handler struct {
	Deps
	upgrader wsUpgrader
}

func New(d Deps) *Handler {
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.AutosaveDebounce <= 0 {
		d.AutosaveDebounce = autosave.DefaultDebounce
	}
	return &Handler{Deps: d, upgrader: newUpgrader(d.AllowedOrigins)}
}
