package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ModuleNotesKey is the reserved sibling key in the userProgress document.
const ModuleNotesKey = "moduleNotes"

// AnxietyModule is one week of the programme for one user.
// ActivitiesCompleted and MinutesCompleted are derived from UserProgress and
// are rewritten on every write.
type AnxietyModule struct {
	ID                  uuid.UUID    `json:"id"`
	UserID              uuid.UUID    `json:"userId"`
	WeekNumber          int          `json:"weekNumber"`
	ActivitiesTotal     int          `json:"activitiesTotal"`
	ActivitiesCompleted int          `json:"activitiesCompleted"`
	EstimatedMinutes    int          `json:"estimatedMinutes"`
	MinutesCompleted    int          `json:"minutesCompleted"`
	IsLocked            bool         `json:"isLocked"`
	CompletedAt         *time.Time   `json:"completedAt"`
	LastAccessedAt      time.Time    `json:"lastAccessedAt"`
	UserProgress        UserProgress `json:"userProgress"`
	Version             int64        `json:"version"`
	CreatedAt           time.Time    `json:"createdAt"`
}

// ActivityProgress is the stored state of a single activity.
type ActivityProgress struct {
	Completed      bool            `json:"completed"`
	CompletedAt    *time.Time      `json:"completedAt"`
	WorksheetData  *WorksheetData  `json:"worksheetData,omitempty"`
	ReflectionData *ReflectionData `json:"reflectionData,omitempty"`
}

// UserProgress is the per-module progress document: activity id -> progress,
// plus the optional module-level notes.
type UserProgress struct {
	Activities  map[string]ActivityProgress
	ModuleNotes *string
}

func (p UserProgress) Activity(id string) (ActivityProgress, bool) {
	a, ok := p.Activities[id]
	return a, ok
}

// Clone returns a copy whose activity map can be mutated independently.
func (p UserProgress) Clone() UserProgress {
	out := UserProgress{Activities: make(map[string]ActivityProgress, len(p.Activities))}
	for k, v := range p.Activities {
		out.Activities[k] = v
	}
	if p.ModuleNotes != nil {
		n := *p.ModuleNotes
		out.ModuleNotes = &n
	}
	return out
}

func (p UserProgress) MarshalJSON() ([]byte, error) {
	doc := make(map[string]interface{}, len(p.Activities)+1)
	for id, a := range p.Activities {
		doc[id] = a
	}
	if p.ModuleNotes != nil {
		doc[ModuleNotesKey] = *p.ModuleNotes
	}
	return json.Marshal(doc)
}

func (p *UserProgress) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.Activities = make(map[string]ActivityProgress, len(raw))
	p.ModuleNotes = nil
	for key, val := range raw {
		if key == ModuleNotesKey {
			var notes string
			if err := json.Unmarshal(val, &notes); err != nil {
				return fmt.Errorf("moduleNotes: %w", err)
			}
			p.ModuleNotes = &notes
			continue
		}
		var a ActivityProgress
		if err := json.Unmarshal(val, &a); err != nil {
			return fmt.Errorf("activity %q: %w", key, err)
		}
		p.Activities[key] = a
	}
	return nil
}

// Value stores the document in a JSONB column.
func (p UserProgress) Value() (driver.Value, error) {
	if p.Activities == nil {
		p.Activities = map[string]ActivityProgress{}
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (p *UserProgress) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*p = UserProgress{Activities: map[string]ActivityProgress{}}
		return nil
	case []byte:
		return p.UnmarshalJSON(v)
	case string:
		return p.UnmarshalJSON([]byte(v))
	default:
		return errors.New("user_progress: unsupported column type")
	}
}

// ActivityPatch is a partial update of one activity. Nil fields are left as stored.
type ActivityPatch struct {
	Completed      *bool           `json:"completed,omitempty"`
	WorksheetData  *WorksheetData  `json:"worksheetData,omitempty"`
	ReflectionData *ReflectionData `json:"reflectionData,omitempty"`
}

// ProgressPatch is the partial userProgress a client sends. Only the keys present
// are touched.
type ProgressPatch struct {
	Activities  map[string]ActivityPatch
	ModuleNotes *string
}

func (p ProgressPatch) IsEmpty() bool {
	return len(p.Activities) == 0 && p.ModuleNotes == nil
}

func (p ProgressPatch) MarshalJSON() ([]byte, error) {
	doc := make(map[string]interface{}, len(p.Activities)+1)
	for id, a := range p.Activities {
		doc[id] = a
	}
	if p.ModuleNotes != nil {
		doc[ModuleNotesKey] = *p.ModuleNotes
	}
	return json.Marshal(doc)
}

func (p *ProgressPatch) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.Activities = make(map[string]ActivityPatch, len(raw))
	p.ModuleNotes = nil
	for key, val := range raw {
		if key == ModuleNotesKey {
			var notes string
			if err := json.Unmarshal(val, &notes); err != nil {
				return fmt.Errorf("moduleNotes: %w", err)
			}
			p.ModuleNotes = &notes
			continue
		}
		var a ActivityPatch
		if err := json.Unmarshal(val, &a); err != nil {
			return fmt.Errorf("activity %q: %w", key, err)
		}
		p.Activities[key] = a
	}
	return nil
}
