package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MoodEntry is one check-in per user per calendar day.
type MoodEntry struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserIDString string             `bson:"user_id_string" json:"userId"`
	EntryDate    string             `bson:"entry_date" json:"entryDate"` // YYYY-MM-DD
	Mood         int                `bson:"mood" json:"mood"`            // 1-10
	Anxiety      int                `bson:"anxiety" json:"anxiety"`      // 0-10
	Sleep        int                `bson:"sleep" json:"sleep"`          // 1-10
	Notes        string             `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt    time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updatedAt"`
}

// ThoughtRecord is a CBT thought record.
type ThoughtRecord struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserIDString      string             `bson:"user_id_string" json:"userId"`
	Situation         string             `bson:"situation" json:"situation"`
	AutomaticThought  string             `bson:"automatic_thought" json:"automaticThought"`
	Emotions          map[string]int     `bson:"emotions,omitempty" json:"emotions,omitempty"`
	EvidenceFor       string             `bson:"evidence_for,omitempty" json:"evidenceFor,omitempty"`
	EvidenceAgainst   string             `bson:"evidence_against,omitempty" json:"evidenceAgainst,omitempty"`
	BalancedThought   string             `bson:"balanced_thought,omitempty" json:"balancedThought,omitempty"`
	OutcomeIntensity  *int               `bson:"outcome_intensity,omitempty" json:"outcomeIntensity,omitempty"`
	FlaggedForSupport bool               `bson:"flagged_for_support" json:"flaggedForSupport"`
	CreatedAt         time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt         time.Time          `bson:"updated_at" json:"updatedAt"`
}
