package scoring

import (
	"math"

	"github.com/AnshRaj112/calmsteps-backend/internal/models"
)

// CompletionPercent is completed/total as a whole percentage, 0 for an empty
// total and never above 100.
func CompletionPercent(completed, total int) int {
	if total <= 0 || completed <= 0 {
		return 0
	}
	if completed >= total {
		return 100
	}
	return completed * 100 / total
}

// ProgramProgress is the activity-weighted completion across all modules.
func ProgramProgress(modules []models.AnxietyModule) int {
	done, total := 0, 0
	for _, m := range modules {
		c := m.ActivitiesCompleted
		if c > m.ActivitiesTotal {
			c = m.ActivitiesTotal
		}
		done += c
		total += m.ActivitiesTotal
	}
	return CompletionPercent(done, total)
}

// WellnessScore averages mood, inverted anxiety and sleep over the given entries
// and scales the result to 0-100. It returns false when there are no entries.
func WellnessScore(entries []models.MoodEntry) (int, bool) {
	if len(entries) == 0 {
		return 0, false
	}
	sum := 0.0
	for _, e := range entries {
		mood := clampFloat(float64(e.Mood), 1, 10)
		calm := 10 - clampFloat(float64(e.Anxiety), 0, 10)
		sleep := clampFloat(float64(e.Sleep), 1, 10)
		sum += (mood + calm + sleep) / 3
	}
	mean := sum / float64(len(entries))
	return int(math.Round(mean * 10)), true
}

// NHSPrepSections are the checklist items of the "nhs-prep" worksheet.
var NHSPrepSections = []string{
	"symptoms-summary",
	"impact-on-life",
	"what-ive-tried",
	"questions-for-gp",
	"support-preferences",
}

// NHSReadinessScore is the share of NHS prep checklist items ticked, 0-100.
func NHSReadinessScore(form *models.FormData) int {
	if form == nil {
		return 0
	}
	done := 0
	for _, id := range NHSPrepSections {
		if form.Checked[id] {
			done++
		}
	}
	return CompletionPercent(done, len(NHSPrepSections))
}

func clampFloat(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
