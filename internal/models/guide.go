package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// GuideType names the standalone self-help guides.
type GuideType string

const (
	GuideAnxiety   GuideType = "anxiety-guide"
	GuideSleep     GuideType = "sleep-assessment"
	GuideLifestyle GuideType = "lifestyle-assessment"
)

func (g GuideType) Valid() bool {
	switch g {
	case GuideAnxiety, GuideSleep, GuideLifestyle:
		return true
	}
	return false
}

// GuideProgress is a per-user, per-guide document of section id -> section data.
// Sections are opaque to the server but merged key-wise like module progress.
type GuideProgress struct {
	UserID    uuid.UUID                  `json:"userId"`
	GuideType GuideType                  `json:"guideType"`
	Sections  map[string]json.RawMessage `json:"sections"`
	Version   int64                      `json:"version"`
	UpdatedAt time.Time                  `json:"updatedAt"`
}
