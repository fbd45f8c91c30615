package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/AnshRaj112/calmsteps-backend/internal/apierr"
	"github.com/AnshRaj112/calmsteps-backend/internal/curriculum"
	"github.com/AnshRaj112/calmsteps-backend/internal/logger"
	"github.com/AnshRaj112/calmsteps-backend/internal/models"
	"github.com/AnshRaj112/calmsteps-backend/internal/scoring"
)

// OnboardingWeek is the week number under which onboarding answers are stored.
const OnboardingWeek = 0

// AssessmentStore is implemented by repository.AssessmentRepository.
type AssessmentStore interface {
	Insert(ctx context.Context, a models.Assessment) error
	ListByUser(ctx context.Context, userID uuid.UUID, withOnboarding bool) ([]models.Assessment, error)
	Onboarding(ctx context.Context, userID uuid.UUID) (models.Assessment, error)
}

type AssessmentService struct {
	store AssessmentStore
	log   *logger.Logger
	now   func() time.Time
}

func NewAssessmentService(store AssessmentStore, log *logger.Logger) *AssessmentService {
	return &AssessmentService{store: store, log: log, now: time.Now}
}

// SubmitWeekly scores and stores a weekly check-in. Each week accepts one
// submission; a second returns apierr.ErrConflict.
func (s *AssessmentService) SubmitWeekly(ctx context.Context, userID uuid.UUID, week int, responses map[string]interface{}) (models.Assessment, error) {
	if week < 1 || week > curriculum.TotalWeeks {
		return models.Assessment{}, apierr.Validation("weekNumber must be between 1 and %d", curriculum.TotalWeeks)
	}
	return s.submit(ctx, userID, week, responses)
}

// SubmitOnboarding stores the intake questionnaire, scored like a weekly one.
func (s *AssessmentService) SubmitOnboarding(ctx context.Context, userID uuid.UUID, responses map[string]interface{}) (models.Assessment, error) {
	return s.submit(ctx, userID, OnboardingWeek, responses)
}

func (s *AssessmentService) submit(ctx context.Context, userID uuid.UUID, week int, responses map[string]interface{}) (models.Assessment, error) {
	if responses == nil {
		responses = map[string]interface{}{}
	}
	res := scoring.Assess(responses)
	a := models.Assessment{
		ID:               uuid.New(),
		UserID:           userID,
		WeekNumber:       week,
		Responses:        responses,
		RiskScore:        res.Score,
		RiskLevel:        res.Level,
		NeedsEscalation:  res.NeedsEscalation,
		IncompleteFields: res.IncompleteFields,
		CreatedAt:        s.now().UTC(),
	}
	if err := s.store.Insert(ctx, a); err != nil {
		return models.Assessment{}, err
	}
	if a.NeedsEscalation {
		s.log.Warn("assessment needs escalation", "user_id", userID.String(), "week", week, "risk_level", string(a.RiskLevel))
	}
	return a, nil
}

// Weekly lists the user's weekly assessments in week order.
func (s *AssessmentService) Weekly(ctx context.Context, userID uuid.UUID) ([]models.Assessment, error) {
	return s.store.ListByUser(ctx, userID, false)
}

func (s *AssessmentService) Onboarding(ctx context.Context, userID uuid.UUID) (models.Assessment, error) {
	return s.store.Onboarding(ctx, userID)
}

// Latest returns the most recent assessment including onboarding, if any.
func (s *AssessmentService) Latest(ctx context.Context, userID uuid.UUID) (*models.Assessment, error) {
	all, err := s.store.ListByUser(ctx, userID, true)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	latest := all[0]
	for _, a := range all[1:] {
		if a.CreatedAt.After(latest.CreatedAt) {
			latest = a
		}
	}
	return &latest, nil
}
