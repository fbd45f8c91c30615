package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/AnshRaj112/calmsteps-backend/internal/apierr"
	"github.com/AnshRaj112/calmsteps-backend/internal/models"
	"github.com/AnshRaj112/calmsteps-backend/internal/repository"
)

// fakeModuleStore mirrors the Postgres repository's semantics in memory.
type fakeModuleStore struct {
	mu      sync.Mutex
	rows    map[uuid.UUID]models.AnxietyModule
	inserts int
}

func newFakeModuleStore() *fakeModuleStore {
	return &fakeModuleStore{rows: map[uuid.UUID]models.AnxietyModule{}}
}

func (f *fakeModuleStore) ListByUser(_ context.Context, userID uuid.UUID) ([]models.AnxietyModule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.AnxietyModule
	for _, m := range f.rows {
		if m.UserID == userID {
			m.UserProgress = m.UserProgress.Clone()
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WeekNumber < out[j].WeekNumber })
	return out, nil
}

func (f *fakeModuleStore) InsertMissing(_ context.Context, modules []models.AnxietyModule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range modules {
		dup := false
		for _, existing := range f.rows {
			if existing.UserID == m.UserID && existing.WeekNumber == m.WeekNumber {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		m.Version = 1
		f.rows[m.ID] = m
		f.inserts++
	}
	return nil
}

func (f *fakeModuleStore) Update(_ context.Context, moduleID, userID uuid.UUID, expectedVersion *int64, mutate func(*models.AnxietyModule) error) (models.AnxietyModule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.rows[moduleID]
	if !ok || m.UserID != userID {
		return models.AnxietyModule{}, fmt.Errorf("module %s: %w", moduleID, apierr.ErrNotFound)
	}
	m.UserProgress = m.UserProgress.Clone()
	if expectedVersion != nil && *expectedVersion != m.Version {
		return models.AnxietyModule{}, &repository.VersionConflictError{Current: m}
	}
	if err := mutate(&m); err != nil {
		return models.AnxietyModule{}, err
	}
	m.Version++
	f.rows[moduleID] = m
	return m, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []ProgressEvent
}

func (p *fakePublisher) Publish(_ context.Context, evt ProgressEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *fakePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fakeAssessmentStore struct {
	mu   sync.Mutex
	rows []models.Assessment
}

func (f *fakeAssessmentStore) Insert(_ context.Context, a models.Assessment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.UserID == a.UserID && r.WeekNumber == a.WeekNumber {
			return fmt.Errorf("duplicate week: %w", apierr.ErrConflict)
		}
	}
	f.rows = append(f.rows, a)
	return nil
}

func (f *fakeAssessmentStore) ListByUser(_ context.Context, userID uuid.UUID, withOnboarding bool) ([]models.Assessment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Assessment{}
	for _, r := range f.rows {
		if r.UserID == userID && (withOnboarding || r.WeekNumber > 0) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WeekNumber < out[j].WeekNumber })
	return out, nil
}

func (f *fakeAssessmentStore) Onboarding(ctx context.Context, userID uuid.UUID) (models.Assessment, error) {
	all, _ := f.ListByUser(ctx, userID, true)
	for _, a := range all {
		if a.WeekNumber == 0 {
			return a, nil
		}
	}
	return models.Assessment{}, apierr.ErrNotFound
}

type fakeGuideStore struct {
	mu   sync.Mutex
	docs map[string]models.GuideProgress
}

func (f *fakeGuideStore) key(u uuid.UUID, g models.GuideType) string { return u.String() + "/" + string(g) }

func (f *fakeGuideStore) Get(_ context.Context, userID uuid.UUID, guide models.GuideType) (models.GuideProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if g, ok := f.docs[f.key(userID, guide)]; ok {
		return g, nil
	}
	return models.GuideProgress{UserID: userID, GuideType: guide, Sections: map[string]json.RawMessage{}}, nil
}

func (f *fakeGuideStore) Update(_ context.Context, userID uuid.UUID, guide models.GuideType, expectedVersion *int64, mutate func(map[string]json.RawMessage) error) (models.GuideProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.docs == nil {
		f.docs = map[string]models.GuideProgress{}
	}
	g, ok := f.docs[f.key(userID, guide)]
	if !ok {
		g = models.GuideProgress{UserID: userID, GuideType: guide}
	}
	sections := map[string]json.RawMessage{}
	for k, v := range g.Sections {
		sections[k] = v
	}
	if expectedVersion != nil && *expectedVersion != g.Version {
		return models.GuideProgress{}, &repository.GuideConflictError{Current: g}
	}
	if err := mutate(sections); err != nil {
		return models.GuideProgress{}, err
	}
	g.Sections = sections
	g.Version++
	f.docs[f.key(userID, guide)] = g
	return g, nil
}

type fakeJournalStore struct {
	mu       sync.Mutex
	moods    []models.MoodEntry
	thoughts []models.ThoughtRecord
}

func (f *fakeJournalStore) SaveMood(_ context.Context, e models.MoodEntry) (models.MoodEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, m := range f.moods {
		if m.UserIDString == e.UserIDString && m.EntryDate == e.EntryDate {
			e.ID = m.ID
			f.moods[i] = e
			return e, nil
		}
	}
	e.ID = primitive.NewObjectID()
	f.moods = append(f.moods, e)
	return e, nil
}

func (f *fakeJournalStore) ListMoods(_ context.Context, userID string, limit int64) ([]models.MoodEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.MoodEntry{}
	for _, m := range f.moods {
		if m.UserIDString == userID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntryDate > out[j].EntryDate })
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeJournalStore) InsertThought(_ context.Context, t models.ThoughtRecord) (models.ThoughtRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t.ID = primitive.NewObjectID()
	f.thoughts = append(f.thoughts, t)
	return t, nil
}

func (f *fakeJournalStore) ListThoughts(_ context.Context, userID string, _, _ int64) ([]models.ThoughtRecord, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.ThoughtRecord{}
	for _, t := range f.thoughts {
		if t.UserIDString == userID {
			out = append(out, t)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeJournalStore) DeleteThought(_ context.Context, userID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, t := range f.thoughts {
		if t.ID.Hex() == id && t.UserIDString == userID {
			f.thoughts = append(f.thoughts[:i], f.thoughts[i+1:]...)
			return nil
		}
	}
	return apierr.ErrNotFound
}

type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]models.User
}

func (f *fakeUserStore) Create(_ context.Context, username, hash string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.users == nil {
		f.users = map[string]models.User{}
	}
	if _, ok := f.users[username]; ok {
		return models.User{}, apierr.ErrConflict
	}
	u := models.User{ID: uuid.New(), Username: username, PasswordHash: hash}
	f.users[username] = u
	return u, nil
}

func (f *fakeUserStore) ByUsername(_ context.Context, username string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[username]; ok {
		return u, nil
	}
	return models.User{}, apierr.ErrNotFound
}

func (f *fakeUserStore) ByID(_ context.Context, id uuid.UUID) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return models.User{}, apierr.ErrNotFound
}

func (f *fakeUserStore) ByStripeCustomer(_ context.Context, customerID string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if customerID != "" && u.StripeCustomerID == customerID {
			return u, nil
		}
	}
	return models.User{}, apierr.ErrNotFound
}

type fakeSessions struct {
	mu     sync.Mutex
	tokens map[string]uuid.UUID
}

func (f *fakeSessions) Create(_ context.Context, userID uuid.UUID) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tokens == nil {
		f.tokens = map[string]uuid.UUID{}
	}
	for tok, id := range f.tokens {
		if id == userID {
			delete(f.tokens, tok)
		}
	}
	tok := uuid.NewString()
	f.tokens[tok] = userID
	return tok, nil
}

func (f *fakeSessions) Validate(_ context.Context, token string) (uuid.UUID, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.tokens[token]
	return id, ok, nil
}

func (f *fakeSessions) Invalidate(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tokens, token)
	return nil
}
