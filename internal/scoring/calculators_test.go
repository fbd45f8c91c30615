package scoring

import (
	"testing"

	"github.com/AnshRaj112/calmsteps-backend/internal/models"
)

func TestCompletionPercent(t *testing.T) {
	cases := []struct{ done, total, want int }{
		{0, 0, 0},
		{3, 0, 0},
		{0, 4, 0},
		{1, 4, 25},
		{2, 3, 66},
		{4, 4, 100},
		{5, 4, 100},
	}
	for _, tc := range cases {
		if got := CompletionPercent(tc.done, tc.total); got != tc.want {
			t.Errorf("CompletionPercent(%d, %d) = %d, want %d", tc.done, tc.total, got, tc.want)
		}
	}
}

func TestProgramProgress_WeightsByActivities(t *testing.T) {
	modules := []models.AnxietyModule{
		{ActivitiesTotal: 4, ActivitiesCompleted: 4},
		{ActivitiesTotal: 5, ActivitiesCompleted: 1},
		{ActivitiesTotal: 1, ActivitiesCompleted: 0},
	}
	if got := ProgramProgress(modules); got != 50 {
		t.Fatalf("ProgramProgress = %d, want 50", got)
	}
	if got := ProgramProgress(nil); got != 0 {
		t.Fatalf("empty = %d", got)
	}
}

func TestWellnessScore(t *testing.T) {
	if _, ok := WellnessScore(nil); ok {
		t.Fatalf("expected no score for no entries")
	}
	got, ok := WellnessScore([]models.MoodEntry{
		{Mood: 10, Anxiety: 0, Sleep: 10},
		{Mood: 4, Anxiety: 7, Sleep: 5},
	})
	// (10+10+10)/3 = 10, (4+3+5)/3 = 4 -> mean 7 -> 70
	if !ok || got != 70 {
		t.Fatalf("WellnessScore = %d, %v", got, ok)
	}
	clamped, _ := WellnessScore([]models.MoodEntry{{Mood: 40, Anxiety: -3, Sleep: 0}})
	if clamped != 70 {
		t.Fatalf("clamped = %d, want 70", clamped)
	}
}

func TestNHSReadinessScore(t *testing.T) {
	if NHSReadinessScore(nil) != 0 {
		t.Fatalf("nil form should score 0")
	}
	form := &models.FormData{Checked: map[string]bool{
		"symptoms-summary": true,
		"impact-on-life":   true,
		"unrelated":        true,
		"what-ive-tried":   false,
	}}
	if got := NHSReadinessScore(form); got != 40 {
		t.Fatalf("NHSReadinessScore = %d, want 40", got)
	}
}
