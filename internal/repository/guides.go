package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/AnshRaj112/calmsteps-backend/internal/apierr"
	"github.com/AnshRaj112/calmsteps-backend/internal/models"
)

type GuideRepository struct {
	db *sql.DB
}

func NewGuideRepository(db *sql.DB) *GuideRepository {
	return &GuideRepository{db: db}
}

// Get returns the stored guide, or an empty document at version 0 if the user
// has not started it.
func (r *GuideRepository) Get(ctx context.Context, userID uuid.UUID, guide models.GuideType) (models.GuideProgress, error) {
	g, err := scanGuide(r.db.QueryRowContext(ctx, `
		SELECT user_id, guide_type, data, version, updated_at
		FROM guide_progress WHERE user_id = $1 AND guide_type = $2
	`, userID, string(guide)))
	if errors.Is(err, sql.ErrNoRows) {
		return models.GuideProgress{UserID: userID, GuideType: guide, Sections: map[string]json.RawMessage{}}, nil
	}
	return g, err
}

// GuideConflictError carries the stored document when a write names a stale version.
type GuideConflictError struct {
	Current models.GuideProgress
}

func (e *GuideConflictError) Error() string {
	return fmt.Sprintf("guide %s is at version %d", e.Current.GuideType, e.Current.Version)
}

func (e *GuideConflictError) Is(target error) bool { return target == apierr.ErrConflict }

// Update locks (creating if needed) the user's guide row and applies mutate to
// its sections. Version semantics match ModuleRepository.Update; a guide that
// has never been written is at version 0.
func (r *GuideRepository) Update(ctx context.Context, userID uuid.UUID, guide models.GuideType, expectedVersion *int64, mutate func(map[string]json.RawMessage) error) (models.GuideProgress, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.GuideProgress{}, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO guide_progress (user_id, guide_type, data, version)
		VALUES ($1, $2, '{}'::jsonb, 0)
		ON CONFLICT (user_id, guide_type) DO NOTHING
	`, userID, string(guide))
	if err != nil {
		return models.GuideProgress{}, err
	}

	g, err := scanGuide(tx.QueryRowContext(ctx, `
		SELECT user_id, guide_type, data, version, updated_at
		FROM guide_progress WHERE user_id = $1 AND guide_type = $2 FOR UPDATE
	`, userID, string(guide)))
	if err != nil {
		return models.GuideProgress{}, err
	}
	if expectedVersion != nil && *expectedVersion != g.Version {
		return models.GuideProgress{}, &GuideConflictError{Current: g}
	}

	if err := mutate(g.Sections); err != nil {
		return models.GuideProgress{}, err
	}
	data, err := json.Marshal(g.Sections)
	if err != nil {
		return models.GuideProgress{}, err
	}

	err = tx.QueryRowContext(ctx, `
		UPDATE guide_progress SET data = $1, version = version + 1, updated_at = NOW()
		WHERE user_id = $2 AND guide_type = $3
		RETURNING version, updated_at
	`, string(data), userID, string(guide)).Scan(&g.Version, &g.UpdatedAt)
	if err != nil {
		return models.GuideProgress{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.GuideProgress{}, err
	}
	return g, nil
}

func scanGuide(row rowScanner) (models.GuideProgress, error) {
	var g models.GuideProgress
	var guide string
	var data []byte
	if err := row.Scan(&g.UserID, &guide, &data, &g.Version, &g.UpdatedAt); err != nil {
		return g, err
	}
	g.GuideType = models.GuideType(guide)
	g.Sections = map[string]json.RawMessage{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &g.Sections); err != nil {
			return g, err
		}
	}
	return g, nil
}
