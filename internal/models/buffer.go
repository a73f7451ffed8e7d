package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TranscriptionBuffer holds the most recent utterances of a live interview. It is transient:
// documents expire through a TTL index and are never the source of truth.
type TranscriptionBuffer struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	SessionID string             `bson:"session_id" json:"session_id"`

	LastCandidateText   string `bson:"last_candidate_text,omitempty" json:"last_candidate_text,omitempty"`
	LastInterviewerText string `bson:"last_interviewer_text,omitempty" json:"last_interviewer_text,omitempty"`
	LastTurnID          string `bson:"last_turn_id,omitempty" json:"last_turn_id,omitempty"`

	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
	ExpiresAt time.Time `bson:"expires_at" json:"-"`
}
