package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/AnshRaj112/calmsteps-backend/internal/apierr"
	"github.com/AnshRaj112/calmsteps-backend/internal/logger"
	"github.com/AnshRaj112/calmsteps-backend/internal/models"
	"github.com/AnshRaj112/calmsteps-backend/internal/repository"
)

var testNow = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

func newTestModuleService() (*ModuleService, *fakeModuleStore, *fakePublisher) {
	store := newFakeModuleStore()
	pub := &fakePublisher{}
	svc := NewModuleService(store, pub, logger.Nop())
	svc.now = func() time.Time { return testNow }
	return svc, store, pub
}

func weekOne(t *testing.T, svc *ModuleService, userID uuid.UUID) uuid.UUID {
	t.Helper()
	views, err := svc.Modules(context.Background(), userID)
	if err != nil {
		t.Fatalf("modules: %v", err)
	}
	if len(views) != 6 {
		t.Fatalf("expected 6 modules, got %d", len(views))
	}
	return views[0].ID
}

func TestModules_LazyInitIsIdempotent(t *testing.T) {
	svc, store, _ := newTestModuleService()
	userID := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Modules(context.Background(), userID); err != nil {
				t.Errorf("modules: %v", err)
			}
		}()
	}
	wg.Wait()

	views, err := svc.Modules(context.Background(), userID)
	if err != nil {
		t.Fatal(err)
	}
	if len(views) != 6 || store.inserts != 6 {
		t.Fatalf("got %d views, %d inserts", len(views), store.inserts)
	}
	for i, v := range views {
		if v.WeekNumber != i+1 || v.IsLocked || v.ActivitiesCompleted != 0 || v.Title == "" {
			t.Errorf("week %d: %+v", i+1, v.AnxietyModule)
		}
	}
	if views[0].EstimatedMinutes != 45 || views[0].ActivitiesTotal != 4 {
		t.Errorf("week 1 skeleton: %+v", views[0].AnxietyModule)
	}
}

func TestToggle_ScenarioA(t *testing.T) {
	svc, _, pub := newTestModuleService()
	userID := uuid.New()
	id := weekOne(t, svc, userID)
	ctx := context.Background()

	for _, a := range []string{"anxiety-education", "breathing-basics"} {
		if _, err := svc.Toggle(ctx, userID, id, a); err != nil {
			t.Fatalf("toggle %s: %v", a, err)
		}
	}
	res, err := svc.Toggle(ctx, userID, id, "thought-record")
	if err != nil {
		t.Fatal(err)
	}
	if res.AllActivitiesComplete {
		t.Fatalf("three of four should not signal completion")
	}
	res, err = svc.Toggle(ctx, userID, id, "week1-reflection")
	if err != nil {
		t.Fatal(err)
	}
	m := res.Module
	if m.ActivitiesCompleted != 4 || m.MinutesCompleted != 45 || !res.AllActivitiesComplete {
		t.Fatalf("all done: %+v", m.AnxietyModule)
	}
	if m.CompletedAt != nil {
		t.Fatalf("toggle must not finish the module")
	}
	if m.CompletionPercent != 100 {
		t.Errorf("percent = %d", m.CompletionPercent)
	}
	if len(pub.types()) != 4 {
		t.Errorf("events = %v", pub.types())
	}

	// Toggling back un-completes and clears the timestamp.
	res, err = svc.Toggle(ctx, userID, id, "breathing-basics")
	if err != nil {
		t.Fatal(err)
	}
	if res.Module.ActivitiesCompleted != 3 || res.Module.MinutesCompleted != 33 {
		t.Fatalf("after untoggle: %+v", res.Module.AnxietyModule)
	}
	if a := res.Module.UserProgress.Activities["breathing-basics"]; a.Completed || a.CompletedAt != nil {
		t.Fatalf("activity state: %+v", a)
	}
}

func TestToggle_UnknownActivity(t *testing.T) {
	svc, _, _ := newTestModuleService()
	userID := uuid.New()
	id := weekOne(t, svc, userID)

	_, err := svc.Toggle(context.Background(), userID, id, "pmr-intro")
	if !errors.Is(err, apierr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestToggle_ForeignModule(t *testing.T) {
	svc, _, _ := newTestModuleService()
	owner := uuid.New()
	id := weekOne(t, svc, owner)

	_, err := svc.Toggle(context.Background(), uuid.New(), id, "breathing-basics")
	if apierr.From(err).Status != 403 {
		t.Fatalf("foreign module should map to 403, got %v", err)
	}
}

func TestPatch_MergesAndRecomputes(t *testing.T) {
	svc, _, _ := newTestModuleService()
	userID := uuid.New()
	id := weekOne(t, svc, userID)
	ctx := context.Background()

	if _, err := svc.Toggle(ctx, userID, id, "anxiety-education"); err != nil {
		t.Fatal(err)
	}

	completed := true
	patch := models.ProgressPatch{Activities: map[string]models.ActivityPatch{
		"thought-record": {
			Completed:     &completed,
			WorksheetData: &models.WorksheetData{
				Kind:      models.KindWorksheet,
				Worksheet: &models.FormData{Fields: map[string]string{"situation": "team meeting"}},
			},
		},
	}}
	v, err := svc.Patch(ctx, userID, id, nil, patch)
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	if v.ActivitiesCompleted != 2 || v.MinutesCompleted != 23 {
		t.Fatalf("counters: %+v", v.AnxietyModule)
	}
	if !v.UserProgress.Activities["anxiety-education"].Completed {
		t.Fatalf("patch dropped an untouched activity")
	}
	if v.UserProgress.Activities["thought-record"].WorksheetData == nil {
		t.Fatalf("worksheet data not stored")
	}
}

func TestPatch_VersionConflict(t *testing.T) {
	svc, _, _ := newTestModuleService()
	userID := uuid.New()
	id := weekOne(t, svc, userID)
	ctx := context.Background()

	notes := "first"
	stale := int64(1)
	if _, err := svc.Patch(ctx, userID, id, &stale, models.ProgressPatch{ModuleNotes: &notes}); err != nil {
		t.Fatalf("first patch: %v", err)
	}
	notes = "second"
	_, err := svc.Patch(ctx, userID, id, &stale, models.ProgressPatch{ModuleNotes: &notes})
	var conflict *repository.VersionConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if conflict.Current.Version != 2 || *conflict.Current.UserProgress.ModuleNotes != "first" {
		t.Fatalf("conflict carries %+v", conflict.Current)
	}
}

func TestPatch_RejectsEmptyAndOversized(t *testing.T) {
	svc, _, _ := newTestModuleService()
	userID := uuid.New()
	id := weekOne(t, svc, userID)

	if _, err := svc.Patch(context.Background(), userID, id, nil, models.ProgressPatch{}); !errors.Is(err, apierr.ErrValidation) {
		t.Errorf("empty patch: %v", err)
	}
	big := string(make([]byte, MaxModuleNotesLength+1))
	if _, err := svc.Patch(context.Background(), userID, id, nil, models.ProgressPatch{ModuleNotes: &big}); !errors.Is(err, apierr.ErrValidation) {
		t.Errorf("oversized notes: %v", err)
	}
}

func TestFinish_SetsCompletedAtOnce(t *testing.T) {
	svc, _, pub := newTestModuleService()
	userID := uuid.New()
	id := weekOne(t, svc, userID)
	ctx := context.Background()

	v, err := svc.Finish(ctx, userID, id)
	if err != nil || v.CompletedAt == nil || !v.CompletedAt.Equal(testNow) {
		t.Fatalf("finish: %+v %v", v.CompletedAt, err)
	}
	svc.now = func() time.Time { return testNow.Add(time.Hour) }
	v, err = svc.Finish(ctx, userID, id)
	if err != nil || !v.CompletedAt.Equal(testNow) {
		t.Fatalf("second finish moved completedAt: %v %v", v.CompletedAt, err)
	}
	if got := pub.types(); got[len(got)-1] != EventModuleFinished {
		t.Errorf("events = %v", got)
	}
}
