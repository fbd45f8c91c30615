package services

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/AnshRaj112/calmsteps-backend/internal/apierr"
	"github.com/AnshRaj112/calmsteps-backend/internal/logger"
	"github.com/AnshRaj112/calmsteps-backend/internal/models"
)

const (
	maxGuideSections    = 64
	maxGuideSectionSize = 32 << 10
)

// GuideStore is implemented by repository.GuideRepository.
type GuideStore interface {
	Get(ctx context.Context, userID uuid.UUID, guide models.GuideType) (models.GuideProgress, error)
	Update(ctx context.Context, userID uuid.UUID, guide models.GuideType, expectedVersion *int64, mutate func(map[string]json.RawMessage) error) (models.GuideProgress, error)
}

// GuideService stores the standalone guides (anxiety guide, sleep and
// lifestyle assessments). Sections are merged key-wise like module progress.
type GuideService struct {
	store GuideStore
	pub   Publisher
	log   *logger.Logger
}

func NewGuideService(store GuideStore, pub Publisher, log *logger.Logger) *GuideService {
	return &GuideService{store: store, pub: pub, log: log}
}

func (s *GuideService) Get(ctx context.Context, userID uuid.UUID, guide models.GuideType) (models.GuideProgress, error) {
	if !guide.Valid() {
		return models.GuideProgress{}, apierr.Validation("unknown guide %q", guide)
	}
	return s.store.Get(ctx, userID, guide)
}

// Patch replaces the named sections and leaves the rest untouched. A section
// set to JSON null is removed.
func (s *GuideService) Patch(ctx context.Context, userID uuid.UUID, guide models.GuideType, version *int64, sections map[string]json.RawMessage) (models.GuideProgress, error) {
	if !guide.Valid() {
		return models.GuideProgress{}, apierr.Validation("unknown guide %q", guide)
	}
	if len(sections) == 0 {
		return models.GuideProgress{}, apierr.Validation("sections must contain at least one change")
	}
	for id, raw := range sections {
		if id == "" || len(raw) > maxGuideSectionSize {
			return models.GuideProgress{}, apierr.Validation("section %q is invalid or too large", id)
		}
	}

	g, err := s.store.Update(ctx, userID, guide, version, func(stored map[string]json.RawMessage) error {
		for id, raw := range sections {
			if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
				delete(stored, id)
				continue
			}
			stored[id] = raw
		}
		if len(stored) > maxGuideSections {
			return apierr.Validation("guide has more than %d sections", maxGuideSections)
		}
		return nil
	})
	if err != nil {
		return models.GuideProgress{}, err
	}

	if s.pub != nil {
		evt := ProgressEvent{Type: EventGuideUpdated, UserID: userID, GuideType: string(guide), Version: g.Version, Timestamp: time.Now().UTC()}
		if err := s.pub.Publish(ctx, evt); err != nil {
			s.log.Warn("publish guide event failed", "user_id", userID.String(), "error", err)
		}
	}
	return g, nil
}
