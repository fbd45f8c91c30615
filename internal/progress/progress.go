// Package progress derives module counters from the per-activity progress
// document and applies completion toggles and partial updates to it.
//
// Every function here is pure. Counters are always recomputed from the full
// document, never patched incrementally.
package progress

import (
	"time"

	"github.com/AnshRaj112/calmsteps-backend/internal/curriculum"
	"github.com/AnshRaj112/calmsteps-backend/internal/models"
)

// Counters are the denormalised totals stored next to the progress document.
type Counters struct {
	ActivitiesCompleted int `json:"activitiesCompleted"`
	MinutesCompleted    int `json:"minutesCompleted"`
}

// Aggregate counts the static activities marked completed in up. Progress keys
// that are not part of the static list are ignored. Minutes are capped at
// estimatedTotal.
func Aggregate(activities []curriculum.Activity, estimatedTotal int, up models.UserProgress) Counters {
	var c Counters
	for _, a := range activities {
		p, ok := up.Activities[a.ID]
		if !ok || !p.Completed {
			continue
		}
		c.ActivitiesCompleted++
		c.MinutesCompleted += a.EstimatedMinutes
	}
	if c.MinutesCompleted > estimatedTotal {
		c.MinutesCompleted = estimatedTotal
	}
	if c.MinutesCompleted < 0 {
		c.MinutesCompleted = 0
	}
	return c
}

// Apply writes freshly aggregated counters into m based on its current
// UserProgress and the curriculum content for its week.
func Apply(m *models.AnxietyModule, content curriculum.ModuleContent) {
	m.ActivitiesTotal = len(content.Activities)
	m.EstimatedMinutes = content.EstimatedMinutes
	c := Aggregate(content.Activities, content.EstimatedMinutes, m.UserProgress)
	m.ActivitiesCompleted = c.ActivitiesCompleted
	m.MinutesCompleted = c.MinutesCompleted
}

// Toggle flips the completion flag of one activity and returns the new document.
// Worksheet and reflection data stored under the activity are kept.
func Toggle(up models.UserProgress, activityID string, now time.Time) models.UserProgress {
	out := up.Clone()
	a := out.Activities[activityID]
	a.Completed = !a.Completed
	if a.Completed {
		t := now.UTC()
		a.CompletedAt = &t
	} else {
		a.CompletedAt = nil
	}
	out.Activities[activityID] = a
	return out
}

// Merge applies a partial update key-wise: activities not named in patch are left
// untouched, and inside a named activity only the fields present in the patch
// change. Setting completed follows the same completedAt rules as Toggle;
// re-sending the current value keeps the original timestamp.
func Merge(up models.UserProgress, patch models.ProgressPatch, now time.Time) models.UserProgress {
	out := up.Clone()
	for id, p := range patch.Activities {
		a := out.Activities[id]
		if p.Completed != nil && *p.Completed != a.Completed {
			a.Completed = *p.Completed
			if a.Completed {
				t := now.UTC()
				a.CompletedAt = &t
			} else {
				a.CompletedAt = nil
			}
		}
		if p.WorksheetData != nil {
			wd := *p.WorksheetData
			a.WorksheetData = &wd
		}
		if p.ReflectionData != nil {
			rd := *p.ReflectionData
			a.ReflectionData = &rd
		}
		out.Activities[id] = a
	}
	if patch.ModuleNotes != nil {
		n := *patch.ModuleNotes
		out.ModuleNotes = &n
	}
	return out
}

// AllComplete reports whether every static activity is completed.
func AllComplete(m models.AnxietyModule) bool {
	return m.ActivitiesTotal > 0 && m.ActivitiesCompleted >= m.ActivitiesTotal
}
