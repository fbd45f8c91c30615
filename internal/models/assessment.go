package models

import (
	"time"

	"github.com/google/uuid"
)

// RiskLevel is the categorical bucket of a questionnaire risk score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
	RiskCrisis   RiskLevel = "crisis"
)

// Assessment is an immutable questionnaire submission. Onboarding responses
// have WeekNumber 0.
type Assessment struct {
	ID               uuid.UUID              `json:"id"`
	UserID           uuid.UUID              `json:"userId"`
	WeekNumber       int                    `json:"weekNumber"`
	Responses        map[string]interface{} `json:"responses"`
	RiskScore        int                    `json:"riskScore"`
	RiskLevel        RiskLevel              `json:"riskLevel"`
	NeedsEscalation  bool                   `json:"needsEscalation"`
	IncompleteFields []string               `json:"incompleteFields,omitempty"`
	CreatedAt        time.Time              `json:"createdAt"`
}
