package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/AnshRaj112/calmsteps-backend/internal/apierr"
	"github.com/AnshRaj112/calmsteps-backend/internal/curriculum"
	"github.com/AnshRaj112/calmsteps-backend/internal/logger"
	"github.com/AnshRaj112/calmsteps-backend/internal/models"
	"github.com/AnshRaj112/calmsteps-backend/internal/progress"
)

// MaxModuleNotesLength bounds the free-text notes stored on a module.
const MaxModuleNotesLength = 10000

// ModuleStore is implemented by repository.ModuleRepository.
type ModuleStore interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.AnxietyModule, error)
	InsertMissing(ctx context.Context, modules []models.AnxietyModule) error
	Update(ctx context.Context, moduleID, userID uuid.UUID, expectedVersion *int64, mutate func(*models.AnxietyModule) error) (models.AnxietyModule, error)
}

type ModuleService struct {
	store ModuleStore
	pub   Publisher
	log   *logger.Logger
	now   func() time.Time
}

func NewModuleService(store ModuleStore, pub Publisher, log *logger.Logger) *ModuleService {
	return &ModuleService{store: store, pub: pub, log: log, now: time.Now}
}

// ToggleResult is returned by Toggle. AllActivitiesComplete is a signal for the
// client; it does not finish the module.
type ToggleResult struct {
	Module                progress.ModuleView `json:"module"`
	AllActivitiesComplete bool                `json:"allActivitiesComplete"`
}

// Modules returns the user's six weeks merged with curriculum content,
// creating any missing week rows first.
func (s *ModuleService) Modules(ctx context.Context, userID uuid.UUID) ([]progress.ModuleView, error) {
	mods, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(mods) < curriculum.TotalWeeks {
		if err := s.store.InsertMissing(ctx, s.skeleton(userID, mods)); err != nil {
			return nil, fmt.Errorf("initialise modules: %w", err)
		}
		if mods, err = s.store.ListByUser(ctx, userID); err != nil {
			return nil, err
		}
	}

	views := make([]progress.ModuleView, 0, len(mods))
	for _, m := range mods {
		content, ok := curriculum.GetModuleContent(m.WeekNumber)
		if !ok {
			continue
		}
		views = append(views, progress.MergeContent(content, m))
	}
	return views, nil
}

func (s *ModuleService) skeleton(userID uuid.UUID, existing []models.AnxietyModule) []models.AnxietyModule {
	have := make(map[int]bool, len(existing))
	for _, m := range existing {
		have[m.WeekNumber] = true
	}
	now := s.now().UTC()
	var out []models.AnxietyModule
	for _, content := range curriculum.Weeks() {
		if have[content.Week] {
			continue
		}
		out = append(out, models.AnxietyModule{
			ID:               uuid.New(),
			UserID:           userID,
			WeekNumber:       content.Week,
			ActivitiesTotal:  len(content.Activities),
			EstimatedMinutes: content.EstimatedMinutes,
			LastAccessedAt:   now,
			UserProgress:     models.UserProgress{Activities: map[string]models.ActivityProgress{}},
		})
	}
	return out
}

// Patch merges a partial progress document into the stored one. Counters are
// recomputed from the merged document. A non-nil version must match the stored
// version or a *repository.VersionConflictError is returned.
func (s *ModuleService) Patch(ctx context.Context, userID, moduleID uuid.UUID, version *int64, patch models.ProgressPatch) (progress.ModuleView, error) {
	if patch.IsEmpty() {
		return progress.ModuleView{}, apierr.Validation("userProgress must contain at least one change")
	}
	if patch.ModuleNotes != nil && len(*patch.ModuleNotes) > MaxModuleNotesLength {
		return progress.ModuleView{}, apierr.Validation("moduleNotes exceeds %d characters", MaxModuleNotesLength)
	}

	var content curriculum.ModuleContent
	m, err := s.store.Update(ctx, moduleID, userID, version, func(m *models.AnxietyModule) error {
		var err error
		if content, err = contentFor(m); err != nil {
			return err
		}
		now := s.now()
		m.UserProgress = progress.Merge(m.UserProgress, patch, now)
		progress.Apply(m, content)
		m.LastAccessedAt = now.UTC()
		return nil
	})
	if err != nil {
		return progress.ModuleView{}, err
	}

	s.publish(ctx, ModuleEvent(EventModuleUpdated, m))
	return progress.MergeContent(content, m), nil
}

// Toggle flips one activity's completion flag and persists the re-aggregated
// counters in the same write.
func (s *ModuleService) Toggle(ctx context.Context, userID, moduleID uuid.UUID, activityID string) (ToggleResult, error) {
	var content curriculum.ModuleContent
	m, err := s.store.Update(ctx, moduleID, userID, nil, func(m *models.AnxietyModule) error {
		var err error
		if content, err = contentFor(m); err != nil {
			return err
		}
		if _, ok := content.ActivityByID(activityID); !ok {
			return apierr.Validation("activity %q is not part of week %d", activityID, m.WeekNumber)
		}
		now := s.now()
		m.UserProgress = progress.Toggle(m.UserProgress, activityID, now)
		progress.Apply(m, content)
		m.LastAccessedAt = now.UTC()
		return nil
	})
	if err != nil {
		return ToggleResult{}, err
	}

	s.publish(ctx, ModuleEvent(EventModuleUpdated, m))
	return ToggleResult{
		Module:                progress.MergeContent(content, m),
		AllActivitiesComplete: progress.AllComplete(m),
	}, nil
}

// Finish sets the module's completedAt. Finishing an already finished module
// keeps the original timestamp.
func (s *ModuleService) Finish(ctx context.Context, userID, moduleID uuid.UUID) (progress.ModuleView, error) {
	var content curriculum.ModuleContent
	m, err := s.store.Update(ctx, moduleID, userID, nil, func(m *models.AnxietyModule) error {
		var err error
		if content, err = contentFor(m); err != nil {
			return err
		}
		now := s.now().UTC()
		if m.CompletedAt == nil {
			m.CompletedAt = &now
		}
		progress.Apply(m, content)
		m.LastAccessedAt = now
		return nil
	})
	if err != nil {
		return progress.ModuleView{}, err
	}

	s.publish(ctx, ModuleEvent(EventModuleFinished, m))
	return progress.MergeContent(content, m), nil
}

func (s *ModuleService) publish(ctx context.Context, evt ProgressEvent) {
	if s.pub == nil {
		return
	}
	if err := s.pub.Publish(ctx, evt); err != nil {
		s.log.Warn("publish progress event failed", "type", evt.Type, "user_id", evt.UserID.String(), "error", err)
	}
}

func contentFor(m *models.AnxietyModule) (curriculum.ModuleContent, error) {
	content, ok := curriculum.GetModuleContent(m.WeekNumber)
	if !ok {
		return content, fmt.Errorf("module %s has unknown week %d", m.ID, m.WeekNumber)
	}
	return content, nil
}
