package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AnshRaj112/calmsteps-backend/internal/apierr"
	"github.com/AnshRaj112/calmsteps-backend/internal/logger"
	"github.com/AnshRaj112/calmsteps-backend/internal/models"
)

const (
	maxJournalText = 5000
	entryDateFmt   = "2006-01-02"
)

// JournalStore is implemented by repository.JournalRepository.
type JournalStore interface {
	SaveMood(ctx context.Context, e models.MoodEntry) (models.MoodEntry, error)
	ListMoods(ctx context.Context, userID string, limit int64) ([]models.MoodEntry, error)
	InsertThought(ctx context.Context, t models.ThoughtRecord) (models.ThoughtRecord, error)
	ListThoughts(ctx context.Context, userID string, page, limit int64) ([]models.ThoughtRecord, int64, error)
	DeleteThought(ctx context.Context, userID, id string) error
}

// TextCipher seals free text at rest; *utils.FieldCipher implements it.
type TextCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(value string) (string, error)
}

type JournalService struct {
	store  JournalStore
	cipher TextCipher
	log    *logger.Logger
	now    func() time.Time
}

func NewJournalService(store JournalStore, cipher TextCipher, log *logger.Logger) *JournalService {
	return &JournalService{store: store, cipher: cipher, log: log, now: time.Now}
}

type MoodInput struct {
	EntryDate string `json:"entryDate"`
	Mood      int    `json:"mood"`
	Anxiety   int    `json:"anxiety"`
	Sleep     int    `json:"sleep"`
	Notes     string `json:"notes"`
}

// SaveMood records today's (or EntryDate's) check-in. flagged reports crisis
// language in the notes so the client can show support options.
func (s *JournalService) SaveMood(ctx context.Context, userID uuid.UUID, in MoodInput) (entry models.MoodEntry, flagged bool, err error) {
	date := strings.TrimSpace(in.EntryDate)
	if date == "" {
		date = s.now().UTC().Format(entryDateFmt)
	}
	if _, err := time.Parse(entryDateFmt, date); err != nil {
		return entry, false, apierr.Validation("entryDate must be YYYY-MM-DD")
	}
	switch {
	case in.Mood < 1 || in.Mood > 10:
		return entry, false, apierr.Validation("mood must be between 1 and 10")
	case in.Anxiety < 0 || in.Anxiety > 10:
		return entry, false, apierr.Validation("anxiety must be between 0 and 10")
	case in.Sleep < 1 || in.Sleep > 10:
		return entry, false, apierr.Validation("sleep must be between 1 and 10")
	case len(in.Notes) > maxJournalText:
		return entry, false, apierr.Validation("notes exceed %d characters", maxJournalText)
	}

	flagged, _ = DetectCrisisLanguage(in.Notes)
	notes, err := s.cipher.Encrypt(in.Notes)
	if err != nil {
		return entry, false, err
	}
	stored, err := s.store.SaveMood(ctx, models.MoodEntry{
		UserIDString: userID.String(),
		EntryDate:    date,
		Mood:         in.Mood,
		Anxiety:      in.Anxiety,
		Sleep:        in.Sleep,
		Notes:        notes,
	})
	if err != nil {
		return entry, false, err
	}
	if flagged {
		s.log.Warn("crisis language in mood notes", "user_id", userID.String())
	}
	stored.Notes = in.Notes
	return stored, flagged, nil
}

// Moods returns up to limit recent entries with notes decrypted.
func (s *JournalService) Moods(ctx context.Context, userID uuid.UUID, limit int64) ([]models.MoodEntry, error) {
	entries, err := s.store.ListMoods(ctx, userID.String(), limit)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if entries[i].Notes, err = s.cipher.Decrypt(entries[i].Notes); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

type ThoughtInput struct {
	Situation        string         `json:"situation"`
	AutomaticThought string         `json:"automaticThought"`
	Emotions         map[string]int `json:"emotions"`
	EvidenceFor      string         `json:"evidenceFor"`
	EvidenceAgainst  string         `json:"evidenceAgainst"`
	BalancedThought  string         `json:"balancedThought"`
	OutcomeIntensity *int           `json:"outcomeIntensity"`
}

// AddThought validates, flags and stores a thought record.
func (s *JournalService) AddThought(ctx context.Context, userID uuid.UUID, in ThoughtInput) (models.ThoughtRecord, error) {
	in.Situation = strings.TrimSpace(in.Situation)
	in.AutomaticThought = strings.TrimSpace(in.AutomaticThought)
	if in.Situation == "" || in.AutomaticThought == "" {
		return models.ThoughtRecord{}, apierr.Validation("situation and automaticThought are required")
	}
	texts := []string{in.Situation, in.AutomaticThought, in.EvidenceFor, in.EvidenceAgainst, in.BalancedThought}
	for _, t := range texts {
		if len(t) > maxJournalText {
			return models.ThoughtRecord{}, apierr.Validation("fields are limited to %d characters", maxJournalText)
		}
	}
	for name, v := range in.Emotions {
		if v < 0 || v > 100 {
			return models.ThoughtRecord{}, apierr.Validation("emotion %q must be between 0 and 100", name)
		}
	}
	if in.OutcomeIntensity != nil && (*in.OutcomeIntensity < 0 || *in.OutcomeIntensity > 100) {
		return models.ThoughtRecord{}, apierr.Validation("outcomeIntensity must be between 0 and 100")
	}

	flagged, _ := DetectCrisisLanguage(texts...)
	rec := models.ThoughtRecord{
		UserIDString:      userID.String(),
		Emotions:          in.Emotions,
		OutcomeIntensity:  in.OutcomeIntensity,
		FlaggedForSupport: flagged,
	}
	sealed := []*string{&rec.Situation, &rec.AutomaticThought, &rec.EvidenceFor, &rec.EvidenceAgainst, &rec.BalancedThought}
	for i, dst := range sealed {
		v, err := s.cipher.Encrypt(texts[i])
		if err != nil {
			return models.ThoughtRecord{}, err
		}
		*dst = v
	}

	stored, err := s.store.InsertThought(ctx, rec)
	if err != nil {
		return models.ThoughtRecord{}, err
	}
	if flagged {
		s.log.Warn("thought record flagged for support", "user_id", userID.String())
	}
	stored.Situation, stored.AutomaticThought = in.Situation, in.AutomaticThought
	stored.EvidenceFor, stored.EvidenceAgainst, stored.BalancedThought = in.EvidenceFor, in.EvidenceAgainst, in.BalancedThought
	return stored, nil
}

// Thoughts returns a decrypted page of records and the total count.
func (s *JournalService) Thoughts(ctx context.Context, userID uuid.UUID, page, limit int64) ([]models.ThoughtRecord, int64, error) {
	recs, total, err := s.store.ListThoughts(ctx, userID.String(), page, limit)
	if err != nil {
		return nil, 0, err
	}
	for i := range recs {
		r := &recs[i]
		for _, f := range []*string{&r.Situation, &r.AutomaticThought, &r.EvidenceFor, &r.EvidenceAgainst, &r.BalancedThought} {
			if *f, err = s.cipher.Decrypt(*f); err != nil {
				return nil, 0, err
			}
		}
	}
	return recs, total, nil
}

func (s *JournalService) DeleteThought(ctx context.Context, userID uuid.UUID, id string) error {
	return s.store.DeleteThought(ctx, userID.String(), id)
}
