// Package curriculum holds the fixed six-week programme definition.
package curriculum

import "github.com/AnshRaj112/calmsteps-backend/internal/models"

// TotalWeeks is the length of the programme.
const TotalWeeks = 6

type Activity struct {
	ID               string               `json:"id"`
	Title            string               `json:"title"`
	Kind             models.WorksheetKind `json:"kind"`
	EstimatedMinutes int                  `json:"estimatedMinutes"`
	Optional         bool                 `json:"optional,omitempty"`
}

// ModuleContent is the static part of a week. EstimatedMinutes is the nominal
// time for the required activities; optional activities can push the sum of
// completed minutes above it.
type ModuleContent struct {
	Week             int        `json:"weekNumber"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	EstimatedMinutes int        `json:"estimatedMinutes"`
	Activities       []Activity `json:"activities"`
}

func (c ModuleContent) ActivityByID(id string) (Activity, bool) {
	for _, a := range c.Activities {
		if a.ID == id {
			return a, true
		}
	}
	return Activity{}, false
}

var weeks = []ModuleContent{
	{
		Week:             1,
		Title:            "Understanding Anxiety",
		Description:      "What anxiety is, how it shows up in the body, and a first breathing skill.",
		EstimatedMinutes: 45,
		Activities: []Activity{
			{ID: "anxiety-education", Title: "How anxiety works", Kind: models.KindReading, EstimatedMinutes: 8},
			{ID: "breathing-basics", Title: "Breathing basics", Kind: models.KindBreathing, EstimatedMinutes: 12},
			{ID: "thought-record", Title: "Your first thought record", Kind: models.KindWorksheet, EstimatedMinutes: 15},
			{ID: "week1-reflection", Title: "Week 1 reflection", Kind: models.KindReflection, EstimatedMinutes: 10},
		},
	},
	{
		Week:             2,
		Title:            "Thoughts and Worry",
		Description:      "Spotting thinking traps and putting worry in its place.",
		EstimatedMinutes: 45,
		Activities: []Activity{
			{ID: "worry-cycle", Title: "The worry cycle", Kind: models.KindReading, EstimatedMinutes: 10},
			{ID: "cognitive-distortions", Title: "Thinking traps", Kind: models.KindWorksheet, EstimatedMinutes: 15},
			{ID: "worry-time", Title: "Scheduled worry time", Kind: models.KindExercise, EstimatedMinutes: 12},
			{ID: "week2-reflection", Title: "Week 2 reflection", Kind: models.KindReflection, EstimatedMinutes: 8},
			{ID: "thought-challenge-practice", Title: "Extra practice: challenging thoughts", Kind: models.KindWorksheet, EstimatedMinutes: 20, Optional: true},
		},
	},
	{
		Week:             3,
		Title:            "Body and Relaxation",
		Description:      "Calming the body with relaxation, grounding and better sleep.",
		EstimatedMinutes: 50,
		Activities: []Activity{
			{ID: "pmr-intro", Title: "Why relaxation helps", Kind: models.KindReading, EstimatedMinutes: 8},
			{ID: "progressive-muscle-relaxation", Title: "Progressive muscle relaxation", Kind: models.KindExercise, EstimatedMinutes: 20},
			{ID: "grounding-54321", Title: "5-4-3-2-1 grounding", Kind: models.KindExercise, EstimatedMinutes: 10},
			{ID: "sleep-hygiene", Title: "Sleep and anxiety", Kind: models.KindReading, EstimatedMinutes: 12},
		},
	},
	{
		Week:             4,
		Title:            "Facing Fears",
		Description:      "Understanding avoidance and building a fear ladder.",
		EstimatedMinutes: 55,
		Activities: []Activity{
			{ID: "avoidance", Title: "The avoidance trap", Kind: models.KindReading, EstimatedMinutes: 10},
			{ID: "fear-ladder", Title: "Build your fear ladder", Kind: models.KindWorksheet, EstimatedMinutes: 20},
			{ID: "exposure-practice", Title: "First exposure step", Kind: models.KindExercise, EstimatedMinutes: 15},
			{ID: "week4-reflection", Title: "Week 4 reflection", Kind: models.KindReflection, EstimatedMinutes: 10},
		},
	},
	{
		Week:             5,
		Title:            "Lifestyle and Self-Care",
		Description:      "Routines, values and activities that keep anxiety lower.",
		EstimatedMinutes: 50,
		Activities: []Activity{
			{ID: "lifestyle-audit", Title: "Lifestyle check-in", Kind: models.KindAssessment, EstimatedMinutes: 12},
			{ID: "values-clarification", Title: "What matters to you", Kind: models.KindWorksheet, EstimatedMinutes: 15},
			{ID: "activity-scheduling", Title: "Planning a balanced week", Kind: models.KindWorksheet, EstimatedMinutes: 15},
			{ID: "mindful-breathing", Title: "Mindful breathing", Kind: models.KindBreathing, EstimatedMinutes: 8},
			{ID: "gratitude-practice", Title: "Extra practice: gratitude", Kind: models.KindReflection, EstimatedMinutes: 10, Optional: true},
		},
	},
	{
		Week:             6,
		Title:            "Staying Well",
		Description:      "Reviewing progress, a relapse-prevention plan and next steps.",
		EstimatedMinutes: 65,
		Activities: []Activity{
			{ID: "progress-review", Title: "Looking back", Kind: models.KindAssessment, EstimatedMinutes: 10},
			{ID: "relapse-prevention-plan", Title: "Relapse prevention plan", Kind: models.KindWorksheet, EstimatedMinutes: 20},
			{ID: "wellness-toolkit", Title: "Your wellness toolkit", Kind: models.KindWorksheet, EstimatedMinutes: 15},
			{ID: "nhs-prep", Title: "Preparing to talk to your GP", Kind: models.KindWorksheet, EstimatedMinutes: 10},
			{ID: "final-reflection", Title: "Final reflection", Kind: models.KindReflection, EstimatedMinutes: 10},
		},
	},
}

// GetModuleContent returns the static content for a week (1..6).
func GetModuleContent(week int) (ModuleContent, bool) {
	if week < 1 || week > len(weeks) {
		return ModuleContent{}, false
	}
	c := weeks[week-1]
	c.Activities = append([]Activity(nil), c.Activities...)
	return c, true
}

// Weeks returns all six modules in order.
func Weeks() []ModuleContent {
	out := make([]ModuleContent, 0, len(weeks))
	for i := range weeks {
		c, _ := GetModuleContent(i + 1)
		out = append(out, c)
	}
	return out
}
