package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/AnshRaj112/calmsteps-backend/internal/apierr"
	"github.com/AnshRaj112/calmsteps-backend/internal/curriculum"
	"github.com/AnshRaj112/calmsteps-backend/internal/models"
	"github.com/AnshRaj112/calmsteps-backend/internal/progress"
	"github.com/AnshRaj112/calmsteps-backend/internal/repository"
	"github.com/AnshRaj112/calmsteps-backend/internal/services"
)

type fakeAuth struct {
	tokens map[string]uuid.UUID
	users  map[uuid.UUID]models.User
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{tokens: map[string]uuid.UUID{}, users: map[uuid.UUID]models.User{}}
}

func (f *fakeAuth) login(name string) (models.User, string) {
	u := models.User{ID: uuid.New(), Username: name, PasswordHash: "secret-hash", StripeCustomerID: "cus_123"}
	token := "tok-" + name
	f.users[u.ID] = u
	f.tokens[token] = u.ID
	return u, token
}

func (f *fakeAuth) SignUp(_ context.Context, username, password string) (models.User, string, error) {
	if len(password) < 8 {
		return models.User{}, "", apierr.Validation("password must be at least 8 characters")
	}
	for _, u := range f.users {
		if u.Username == username {
			return models.User{}, "", fmt.Errorf("username taken: %w", apierr.ErrConflict)
		}
	}
	u, token := f.login(username)
	return u, token, nil
}

func (f *fakeAuth) SignIn(_ context.Context, username, password string) (models.User, string, error) {
	for token, id := range f.tokens {
		if f.users[id].Username == username && password == "correct horse" {
			return f.users[id], token, nil
		}
	}
	return models.User{}, "", fmt.Errorf("invalid username or password: %w", apierr.ErrUnauthorized)
}

func (f *fakeAuth) SignOut(_ context.Context, token string) error {
	delete(f.tokens, token)
	return nil
}

func (f *fakeAuth) Me(_ context.Context, id uuid.UUID) (models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return models.User{}, apierr.ErrNotFound
	}
	return u, nil
}

func (f *fakeAuth) Authenticate(_ context.Context, token string) (uuid.UUID, error) {
	id, ok := f.tokens[token]
	if !ok {
		return uuid.Nil, apierr.ErrUnauthorized
	}
	return id, nil
}

// fakeModules keeps one stored module per id.
type fakeModules struct {
	mods map[uuid.UUID]models.AnxietyModule
}

func (f *fakeModules) add(userID uuid.UUID, week int) models.AnxietyModule {
	content, _ := curriculum.GetModuleContent(week)
	m := models.AnxietyModule{
		ID:              uuid.New(),
		UserID:          userID,
		WeekNumber:      week,
		ActivitiesTotal: len(content.Activities),
		Version:         3,
		UserProgress:    models.UserProgress{Activities: map[string]models.ActivityProgress{}},
	}
	if f.mods == nil {
		f.mods = map[uuid.UUID]models.AnxietyModule{}
	}
	f.mods[m.ID] = m
	return m
}

func (f *fakeModules) owned(userID, id uuid.UUID) (models.AnxietyModule, error) {
	m, ok := f.mods[id]
	if !ok || m.UserID != userID {
		return models.AnxietyModule{}, apierr.ErrNotFound
	}
	return m, nil
}

func view(m models.AnxietyModule) progress.ModuleView {
	content, _ := curriculum.GetModuleContent(m.WeekNumber)
	return progress.MergeContent(content, m)
}

func (f *fakeModules) Modules(_ context.Context, userID uuid.UUID) ([]progress.ModuleView, error) {
	var out []progress.ModuleView
	for _, m := range f.mods {
		if m.UserID == userID {
			out = append(out, view(m))
		}
	}
	return out, nil
}

func (f *fakeModules) Patch(_ context.Context, userID, id uuid.UUID, version *int64, patch models.ProgressPatch) (progress.ModuleView, error) {
	m, err := f.owned(userID, id)
	if err != nil {
		return progress.ModuleView{}, err
	}
	if patch.IsEmpty() {
		return progress.ModuleView{}, apierr.Validation("userProgress must contain at least one change")
	}
	if version != nil && *version != m.Version {
		return progress.ModuleView{}, &repository.VersionConflictError{Current: m}
	}
	m.UserProgress = progress.Merge(m.UserProgress, patch, time.Now())
	m.Version++
	f.mods[id] = m
	return view(m), nil
}

func (f *fakeModules) Toggle(_ context.Context, userID, id uuid.UUID, activityID string) (services.ToggleResult, error) {
	m, err := f.owned(userID, id)
	if err != nil {
		return services.ToggleResult{}, err
	}
	m.UserProgress = progress.Toggle(m.UserProgress, activityID, time.Now())
	m.Version++
	f.mods[id] = m
	return services.ToggleResult{Module: view(m)}, nil
}

func (f *fakeModules) Finish(_ context.Context, userID, id uuid.UUID) (progress.ModuleView, error) {
	m, err := f.owned(userID, id)
	if err != nil {
		return progress.ModuleView{}, err
	}
	now := time.Now().UTC()
	m.CompletedAt = &now
	f.mods[id] = m
	return view(m), nil
}

type fakeDashboard struct{}

func (fakeDashboard) Summary(context.Context, uuid.UUID) (services.Summary, error) {
	return services.Summary{ProgramProgress: 25, CurrentWeek: 2}, nil
}

type fakeAssessments struct {
	weeks map[int]bool
}

func (f *fakeAssessments) SubmitWeekly(_ context.Context, userID uuid.UUID, week int, responses map[string]interface{}) (models.Assessment, error) {
	if f.weeks[week] {
		return models.Assessment{}, fmt.Errorf("week %d already submitted: %w", week, apierr.ErrConflict)
	}
	f.weeks[week] = true
	return models.Assessment{ID: uuid.New(), UserID: userID, WeekNumber: week, Responses: responses, RiskScore: 3, RiskLevel: models.RiskLow}, nil
}

func (f *fakeAssessments) SubmitOnboarding(ctx context.Context, userID uuid.UUID, responses map[string]interface{}) (models.Assessment, error) {
	return f.SubmitWeekly(ctx, userID, 0, responses)
}

func (f *fakeAssessments) Weekly(context.Context, uuid.UUID) ([]models.Assessment, error) {
	return []models.Assessment{}, nil
}

func (f *fakeAssessments) Onboarding(context.Context, uuid.UUID) (models.Assessment, error) {
	if !f.weeks[0] {
		return models.Assessment{}, apierr.ErrNotFound
	}
	return models.Assessment{WeekNumber: 0}, nil
}

type fakeGuides struct {
	current models.GuideProgress
}

func (f *fakeGuides) Get(_ context.Context, userID uuid.UUID, g models.GuideType) (models.GuideProgress, error) {
	return models.GuideProgress{UserID: userID, GuideType: g, Sections: map[string]json.RawMessage{}}, nil
}

func (f *fakeGuides) Patch(_ context.Context, userID uuid.UUID, g models.GuideType, version *int64, sections map[string]json.RawMessage) (models.GuideProgress, error) {
	if version != nil && *version != f.current.Version {
		return models.GuideProgress{}, &repository.GuideConflictError{Current: f.current}
	}
	f.current = models.GuideProgress{UserID: userID, GuideType: g, Sections: sections, Version: f.current.Version + 1}
	return f.current, nil
}

type fakeJournal struct{}

func (fakeJournal) SaveMood(_ context.Context, userID uuid.UUID, in services.MoodInput) (models.MoodEntry, bool, error) {
	flagged, _ := services.DetectCrisisLanguage(in.Notes)
	return models.MoodEntry{UserIDString: userID.String(), Mood: in.Mood, Notes: in.Notes}, flagged, nil
}

func (fakeJournal) Moods(context.Context, uuid.UUID, int64) ([]models.MoodEntry, error) {
	return []models.MoodEntry{}, nil
}

func (fakeJournal) AddThought(_ context.Context, userID uuid.UUID, in services.ThoughtInput) (models.ThoughtRecord, error) {
	return models.ThoughtRecord{UserIDString: userID.String(), Situation: in.Situation}, nil
}

func (fakeJournal) Thoughts(_ context.Context, _ uuid.UUID, page, _ int64) ([]models.ThoughtRecord, int64, error) {
	return []models.ThoughtRecord{}, 0, nil
}

func (fakeJournal) DeleteThought(context.Context, uuid.UUID, string) error {
	return apierr.ErrNotFound
}

type fakeBilling struct {
	seen map[string]bool
}

func (f *fakeBilling) HandleWebhook(_ context.Context, payload []byte, signature string) (bool, error) {
	if signature != "valid" {
		return false, apierr.Validation("invalid signature")
	}
	key := string(payload)
	dup := f.seen[key]
	f.seen[key] = true
	return dup, nil
}

type fakeHub struct{}

func (fakeHub) Subscribe(uuid.UUID) (<-chan services.ProgressEvent, func()) {
	ch := make(chan services.ProgressEvent)
	return ch, func() { close(ch) }
}

type brokenDashboard struct{}

func (brokenDashboard) Summary(context.Context, uuid.UUID) (services.Summary, error) {
	return services.Summary{}, errors.New("pq: relation \"anxiety_modules\" does not exist")
}
