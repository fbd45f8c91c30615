package progress

import (
	"time"

	"github.com/AnshRaj112/calmsteps-backend/internal/curriculum"
	"github.com/AnshRaj112/calmsteps-backend/internal/models"
	"github.com/AnshRaj112/calmsteps-backend/internal/scoring"
)

// ActivityView is a static activity merged with the user's stored state.
type ActivityView struct {
	curriculum.Activity
	Completed      bool                   `json:"completed"`
	CompletedAt    *time.Time             `json:"completedAt"`
	WorksheetData  *models.WorksheetData  `json:"worksheetData,omitempty"`
	ReflectionData *models.ReflectionData `json:"reflectionData,omitempty"`
}

// ModuleView is what the client renders for one week.
type ModuleView struct {
	models.AnxietyModule
	Title             string         `json:"title"`
	Description       string         `json:"description"`
	Activities        []ActivityView `json:"activities"`
	CompletionPercent int            `json:"completionPercent"`
	AllActivitiesDone bool           `json:"allActivitiesDone"`
}

// MergeContent joins the static week content with the stored module.
func MergeContent(content curriculum.ModuleContent, m models.AnxietyModule) ModuleView {
	v := ModuleView{
		AnxietyModule:     m,
		Title:             content.Title,
		Description:       content.Description,
		Activities:        make([]ActivityView, 0, len(content.Activities)),
		AllActivitiesDone: AllComplete(m),
	}
	for _, a := range content.Activities {
		av := ActivityView{Activity: a}
		if p, ok := m.UserProgress.Activities[a.ID]; ok {
			av.Completed = p.Completed
			av.CompletedAt = p.CompletedAt
			av.WorksheetData = p.WorksheetData
			av.ReflectionData = p.ReflectionData
		}
		v.Activities = append(v.Activities, av)
	}
	v.CompletionPercent = scoring.CompletionPercent(m.ActivitiesCompleted, m.ActivitiesTotal)
	return v
}
