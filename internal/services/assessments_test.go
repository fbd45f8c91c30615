package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/AnshRaj112/calmsteps-backend/internal/apierr"
	"github.com/AnshRaj112/calmsteps-backend/internal/logger"
	"github.com/AnshRaj112/calmsteps-backend/internal/models"
)

func TestSubmitWeekly_ScenarioB(t *testing.T) {
	svc := NewAssessmentService(&fakeAssessmentStore{}, logger.Nop())
	a, err := svc.SubmitWeekly(context.Background(), uuid.New(), 3, map[string]interface{}{
		"anxietyFrequency":    float64(3),
		"worryFrequency":      float64(3),
		"depressionFrequency": float64(2),
		"anhedoniaFrequency":  float64(1),
		"suicidalThoughts":    "yes",
	})
	if err != nil {
		t.Fatal(err)
	}
	if a.RiskScore != 14 || a.RiskLevel != models.RiskCrisis || !a.NeedsEscalation {
		t.Fatalf("got %+v", a)
	}
}

func TestSubmitWeekly_OnePerWeek(t *testing.T) {
	svc := NewAssessmentService(&fakeAssessmentStore{}, logger.Nop())
	userID := uuid.New()
	ctx := context.Background()

	if _, err := svc.SubmitWeekly(ctx, userID, 1, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SubmitWeekly(ctx, userID, 1, nil); !errors.Is(err, apierr.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if _, err := svc.SubmitWeekly(ctx, userID, 2, nil); err != nil {
		t.Fatalf("other week: %v", err)
	}
}

func TestSubmitWeekly_RejectsBadWeek(t *testing.T) {
	svc := NewAssessmentService(&fakeAssessmentStore{}, logger.Nop())
	for _, w := range []int{0, 7, -1} {
		if _, err := svc.SubmitWeekly(context.Background(), uuid.New(), w, nil); !errors.Is(err, apierr.ErrValidation) {
			t.Errorf("week %d: %v", w, err)
		}
	}
}

func TestSubmit_MissingResponsesFailOpen(t *testing.T) {
	svc := NewAssessmentService(&fakeAssessmentStore{}, logger.Nop())
	a, err := svc.SubmitOnboarding(context.Background(), uuid.New(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if a.RiskScore != 0 || a.RiskLevel != models.RiskLow || a.NeedsEscalation {
		t.Fatalf("got %+v", a)
	}
	if len(a.IncompleteFields) != 4 {
		t.Fatalf("incomplete = %v", a.IncompleteFields)
	}
}

func TestOnboardingSeparateFromWeekly(t *testing.T) {
	store := &fakeAssessmentStore{}
	svc := NewAssessmentService(store, logger.Nop())
	userID := uuid.New()
	ctx := context.Background()

	if _, err := svc.Onboarding(ctx, userID); !errors.Is(err, apierr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	svc.now = func() time.Time { return testNow }
	if _, err := svc.SubmitOnboarding(ctx, userID, map[string]interface{}{"sleepQuality": "poor"}); err != nil {
		t.Fatal(err)
	}
	svc.now = func() time.Time { return testNow.Add(24 * time.Hour) }
	if _, err := svc.SubmitWeekly(ctx, userID, 1, map[string]interface{}{"worryFrequency": float64(2)}); err != nil {
		t.Fatal(err)
	}

	weekly, err := svc.Weekly(ctx, userID)
	if err != nil || len(weekly) != 1 || weekly[0].WeekNumber != 1 {
		t.Fatalf("weekly = %+v, %v", weekly, err)
	}
	latest, err := svc.Latest(ctx, userID)
	if err != nil || latest == nil || latest.WeekNumber != 1 {
		t.Fatalf("latest = %+v, %v", latest, err)
	}
}
