package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/AnshRaj112/calmsteps-backend/internal/apierr"
	"github.com/AnshRaj112/calmsteps-backend/internal/models"
)

// VersionConflictError is returned when an update names a version that is no
// longer current. Current holds the row as stored so the caller can reconcile.
type VersionConflictError struct {
	Current models.AnxietyModule
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("module %s is at version %d", e.Current.ID, e.Current.Version)
}

func (e *VersionConflictError) Is(target error) bool { return target == apierr.ErrConflict }

type ModuleRepository struct {
	db *sql.DB
}

func NewModuleRepository(db *sql.DB) *ModuleRepository {
	return &ModuleRepository{db: db}
}

const moduleColumns = `id, user_id, week_number, activities_total, activities_completed,
	estimated_minutes, minutes_completed, is_locked, completed_at, last_accessed_at,
	user_progress, version, created_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanModule(row rowScanner) (models.AnxietyModule, error) {
	var m models.AnxietyModule
	var completedAt sql.NullTime
	err := row.Scan(&m.ID, &m.UserID, &m.WeekNumber, &m.ActivitiesTotal, &m.ActivitiesCompleted,
		&m.EstimatedMinutes, &m.MinutesCompleted, &m.IsLocked, &completedAt, &m.LastAccessedAt,
		&m.UserProgress, &m.Version, &m.CreatedAt)
	if err != nil {
		return m, err
	}
	if completedAt.Valid {
		t := completedAt.Time
		m.CompletedAt = &t
	}
	return m, nil
}

// ListByUser returns the user's modules ordered by week.
func (r *ModuleRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.AnxietyModule, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+moduleColumns+`
		FROM anxiety_modules WHERE user_id = $1 ORDER BY week_number`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.AnxietyModule
	for rows.Next() {
		m, err := scanModule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// InsertMissing inserts the given skeleton rows, skipping weeks the user already
// has. Safe to call concurrently for the same user.
func (r *ModuleRepository) InsertMissing(ctx context.Context, modules []models.AnxietyModule) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, m := range modules {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO anxiety_modules (id, user_id, week_number, activities_total, activities_completed,
				estimated_minutes, minutes_completed, is_locked, last_accessed_at, user_progress, version)
			VALUES ($1, $2, $3, $4, 0, $5, 0, $6, $7, $8, 1)
			ON CONFLICT (user_id, week_number) DO NOTHING
		`, m.ID, m.UserID, m.WeekNumber, m.ActivitiesTotal, m.EstimatedMinutes, m.IsLocked, m.LastAccessedAt, m.UserProgress)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Update runs a read-modify-write on one module inside a single transaction.
// The row is locked with SELECT ... FOR UPDATE, so concurrent updates of the
// same module serialize. A row that does not exist or belongs to someone else
// yields apierr.ErrNotFound. If expectedVersion is set and differs from the
// stored version, a *VersionConflictError is returned and nothing is written.
// mutate may change UserProgress, the counters, CompletedAt and LastAccessedAt.
func (r *ModuleRepository) Update(ctx context.Context, moduleID, userID uuid.UUID, expectedVersion *int64, mutate func(*models.AnxietyModule) error) (models.AnxietyModule, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.AnxietyModule{}, err
	}
	defer tx.Rollback()

	m, err := scanModule(tx.QueryRowContext(ctx, `SELECT `+moduleColumns+`
		FROM anxiety_modules WHERE id = $1 AND user_id = $2 FOR UPDATE`, moduleID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.AnxietyModule{}, fmt.Errorf("module %s: %w", moduleID, apierr.ErrNotFound)
	}
	if err != nil {
		return models.AnxietyModule{}, err
	}
	if expectedVersion != nil && *expectedVersion != m.Version {
		return models.AnxietyModule{}, &VersionConflictError{Current: m}
	}

	if err := mutate(&m); err != nil {
		return models.AnxietyModule{}, err
	}

	var completedAt interface{}
	if m.CompletedAt != nil {
		completedAt = *m.CompletedAt
	}
	if m.LastAccessedAt.IsZero() {
		m.LastAccessedAt = time.Now().UTC()
	}
	err = tx.QueryRowContext(ctx, `
		UPDATE anxiety_modules
		SET user_progress = $1,
			activities_total = $2,
			activities_completed = $3,
			estimated_minutes = $4,
			minutes_completed = $5,
			completed_at = $6,
			last_accessed_at = $7,
			version = version + 1
		WHERE id = $8
		RETURNING version
	`, m.UserProgress, m.ActivitiesTotal, m.ActivitiesCompleted, m.EstimatedMinutes, m.MinutesCompleted,
		completedAt, m.LastAccessedAt, m.ID).Scan(&m.Version)
	if err != nil {
		return models.AnxietyModule{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.AnxietyModule{}, err
	}
	return m, nil
}
