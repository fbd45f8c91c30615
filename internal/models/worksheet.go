package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// WorksheetKind tags the shape of WorksheetData.
type WorksheetKind string

const (
	KindReading    WorksheetKind = "reading"
	KindBreathing  WorksheetKind = "breathing"
	KindWorksheet  WorksheetKind = "worksheet"
	KindReflection WorksheetKind = "reflection"
	KindExercise   WorksheetKind = "exercise"
	KindAssessment WorksheetKind = "assessment"
)

type ReadingData struct {
	SectionsRead []string `json:"sectionsRead,omitempty"`
	Bookmarked   bool     `json:"bookmarked,omitempty"`
}

type BreathingData struct {
	Technique       string `json:"technique,omitempty"`
	CyclesCompleted int    `json:"cyclesCompleted"`
	AnxietyBefore   *int   `json:"anxietyBefore,omitempty"`
	AnxietyAfter    *int   `json:"anxietyAfter,omitempty"`
}

// FormData holds the free-text fields, checkboxes and sliders of a worksheet.
type FormData struct {
	Fields  map[string]string `json:"fields,omitempty"`
	Checked map[string]bool   `json:"checked,omitempty"`
	Sliders map[string]int    `json:"sliders,omitempty"`
}

type ReflectionData struct {
	Text        string     `json:"text,omitempty"`
	Rating      *int       `json:"rating,omitempty"`
	Insights    []string   `json:"insights,omitempty"`
	ReflectedAt *time.Time `json:"reflectedAt,omitempty"`
}

type ExerciseData struct {
	Repetitions     int    `json:"repetitions"`
	DurationSeconds int    `json:"durationSeconds"`
	Notes           string `json:"notes,omitempty"`
}

type AssessmentData struct {
	Answers map[string]int `json:"answers,omitempty"`
	Score   *int           `json:"score,omitempty"`
}

// WorksheetData is a tagged union keyed by "kind". Exactly one variant pointer is
// set for known kinds; documents with an unknown kind are kept verbatim in raw so
// they survive a read-modify-write.
type WorksheetData struct {
	Kind       WorksheetKind
	Reading    *ReadingData
	Breathing  *BreathingData
	Worksheet  *FormData
	Reflection *ReflectionData
	Exercise   *ExerciseData
	Assessment *AssessmentData

	raw json.RawMessage
}

func (w WorksheetData) variant() interface{} {
	switch w.Kind {
	case KindReading:
		return w.Reading
	case KindBreathing:
		return w.Breathing
	case KindWorksheet:
		return w.Worksheet
	case KindReflection:
		return w.Reflection
	case KindExercise:
		return w.Exercise
	case KindAssessment:
		return w.Assessment
	}
	return nil
}

func (w WorksheetData) MarshalJSON() ([]byte, error) {
	v := w.variant()
	if v == nil {
		if len(w.raw) > 0 {
			return w.raw, nil
		}
		return json.Marshal(map[string]string{"kind": string(w.Kind)})
	}
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	fields := map[string]json.RawMessage{}
	if string(body) != "null" {
		if err := json.Unmarshal(body, &fields); err != nil {
			return nil, err
		}
	}
	kind, _ := json.Marshal(w.Kind)
	fields["kind"] = kind
	return json.Marshal(fields)
}

func (w *WorksheetData) UnmarshalJSON(data []byte) error {
	var head struct {
		Kind WorksheetKind `json:"kind"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	*w = WorksheetData{Kind: head.Kind}
	var target interface{}
	switch head.Kind {
	case KindReading:
		w.Reading = &ReadingData{}
		target = w.Reading
	case KindBreathing:
		w.Breathing = &BreathingData{}
		target = w.Breathing
	case KindWorksheet:
		w.Worksheet = &FormData{}
		target = w.Worksheet
	case KindReflection:
		w.Reflection = &ReflectionData{}
		target = w.Reflection
	case KindExercise:
		w.Exercise = &ExerciseData{}
		target = w.Exercise
	case KindAssessment:
		w.Assessment = &AssessmentData{}
		target = w.Assessment
	case "":
		return fmt.Errorf("worksheetData: missing kind")
	default:
		w.raw = append(json.RawMessage(nil), data...)
		return nil
	}
	return json.Unmarshal(data, target)
}
