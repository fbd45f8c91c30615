package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/AnshRaj112/calmsteps-backend/internal/apierr"
	"github.com/AnshRaj112/calmsteps-backend/internal/models"
)

type AssessmentRepository struct {
	db *sql.DB
}

func NewAssessmentRepository(db *sql.DB) *AssessmentRepository {
	return &AssessmentRepository{db: db}
}

// Insert stores an assessment. Assessments are append-only; a second one for
// the same (user, week) returns apierr.ErrConflict.
func (r *AssessmentRepository) Insert(ctx context.Context, a models.Assessment) error {
	responses, err := json.Marshal(a.Responses)
	if err != nil {
		return err
	}
	incomplete := a.IncompleteFields
	if incomplete == nil {
		incomplete = []string{}
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO assessments (id, user_id, week_number, responses, risk_score, risk_level,
			needs_escalation, incomplete_fields, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id, week_number) DO NOTHING
	`, a.ID, a.UserID, a.WeekNumber, string(responses), a.RiskScore, string(a.RiskLevel),
		a.NeedsEscalation, pq.Array(incomplete), a.CreatedAt)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("assessment for week %d already submitted: %w", a.WeekNumber, apierr.ErrConflict)
	}
	return nil
}

// ListByUser returns the user's assessments, oldest week first.
// Onboarding (week 0) is included only when withOnboarding is set.
func (r *AssessmentRepository) ListByUser(ctx context.Context, userID uuid.UUID, withOnboarding bool) ([]models.Assessment, error) {
	minWeek := 1
	if withOnboarding {
		minWeek = 0
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, week_number, responses, risk_score, risk_level, needs_escalation,
			incomplete_fields, created_at
		FROM assessments
		WHERE user_id = $1 AND week_number >= $2
		ORDER BY week_number
	`, userID, minWeek)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Assessment{}
	for rows.Next() {
		var a models.Assessment
		var responses []byte
		var level string
		var incomplete []string
		if err := rows.Scan(&a.ID, &a.UserID, &a.WeekNumber, &responses, &a.RiskScore, &level,
			&a.NeedsEscalation, pq.Array(&incomplete), &a.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(responses, &a.Responses); err != nil {
			return nil, err
		}
		a.RiskLevel = models.RiskLevel(level)
		a.IncompleteFields = incomplete
		out = append(out, a)
	}
	return out, rows.Err()
}

// Onboarding returns the onboarding response, or apierr.ErrNotFound.
func (r *AssessmentRepository) Onboarding(ctx context.Context, userID uuid.UUID) (models.Assessment, error) {
	all, err := r.ListByUser(ctx, userID, true)
	if err != nil {
		return models.Assessment{}, err
	}
	for _, a := range all {
		if a.WeekNumber == 0 {
			return a, nil
		}
	}
	return models.Assessment{}, fmt.Errorf("onboarding: %w", apierr.ErrNotFound)
}
