package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/AnshRaj112/calmsteps-backend/internal/curriculum"
	"github.com/AnshRaj112/calmsteps-backend/internal/logger"
	"github.com/AnshRaj112/calmsteps-backend/internal/models"
	"github.com/AnshRaj112/calmsteps-backend/internal/scoring"
)

const (
	nhsPrepActivity    = "nhs-prep"
	wellnessWindowDays = 7
)

type ModuleSummary struct {
	WeekNumber        int        `json:"weekNumber"`
	Title             string     `json:"title"`
	CompletionPercent int        `json:"completionPercent"`
	CompletedAt       *time.Time `json:"completedAt"`
}

type RiskSummary struct {
	WeekNumber      int              `json:"weekNumber"`
	Score           int              `json:"score"`
	Level           models.RiskLevel `json:"level"`
	NeedsEscalation bool             `json:"needsEscalation"`
}

// Summary is the dashboard payload.
type Summary struct {
	ProgramProgress  int             `json:"programProgress"`
	CurrentWeek      int             `json:"currentWeek"`
	ModulesFinished  int             `json:"modulesFinished"`
	MinutesCompleted int             `json:"minutesCompleted"`
	WellnessScore    *int            `json:"wellnessScore"`
	NHSReadiness     int             `json:"nhsReadiness"`
	LatestRisk       *RiskSummary    `json:"latestRisk"`
	Modules          []ModuleSummary `json:"modules"`
}

type DashboardService struct {
	modules     *ModuleService
	assessments *AssessmentService
	journal     *JournalService
	log         *logger.Logger
}

// NewDashboardService wires the summary. journal may be nil when MongoDB is
// not configured; the wellness score is then omitted.
func NewDashboardService(modules *ModuleService, assessments *AssessmentService, journal *JournalService, log *logger.Logger) *DashboardService {
	return &DashboardService{modules: modules, assessments: assessments, journal: journal, log: log}
}

func (s *DashboardService) Summary(ctx context.Context, userID uuid.UUID) (Summary, error) {
	views, err := s.modules.Modules(ctx, userID)
	if err != nil {
		return Summary{}, err
	}

	out := Summary{CurrentWeek: curriculum.TotalWeeks, Modules: make([]ModuleSummary, 0, len(views))}
	mods := make([]models.AnxietyModule, 0, len(views))
	current := 0
	for _, v := range views {
		mods = append(mods, v.AnxietyModule)
		out.MinutesCompleted += v.MinutesCompleted
		if v.CompletedAt != nil {
			out.ModulesFinished++
		} else if current == 0 {
			current = v.WeekNumber
		}
		out.Modules = append(out.Modules, ModuleSummary{
			WeekNumber:        v.WeekNumber,
			Title:             v.Title,
			CompletionPercent: v.CompletionPercent,
			CompletedAt:       v.CompletedAt,
		})
		if a, ok := v.UserProgress.Activity(nhsPrepActivity); ok && a.WorksheetData != nil {
			out.NHSReadiness = scoring.NHSReadinessScore(a.WorksheetData.Worksheet)
		}
	}
	if current != 0 {
		out.CurrentWeek = current
	}
	out.ProgramProgress = scoring.ProgramProgress(mods)

	latest, err := s.assessments.Latest(ctx, userID)
	if err != nil {
		return Summary{}, err
	}
	if latest != nil {
		out.LatestRisk = &RiskSummary{
			WeekNumber:      latest.WeekNumber,
			Score:           latest.RiskScore,
			Level:           latest.RiskLevel,
			NeedsEscalation: latest.NeedsEscalation,
		}
	}

	if s.journal != nil {
		moods, err := s.journal.Moods(ctx, userID, wellnessWindowDays)
		if err != nil {
			// The dashboard still renders without the wellness card.
			s.log.Warn("wellness score unavailable", "user_id", userID.String(), "error", err)
		} else if score, ok := scoring.WellnessScore(moods); ok {
			out.WellnessScore = &score
		}
	}
	return out, nil
}
