package models

import (
	"time"

	"gorm.io/datatypes"
)

type SessionStatus string

const (
	SessionPending   SessionStatus = "pending"
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
)

type InterviewSession struct {
	ID               string `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID           string `gorm:"column:user_id;type:uuid;index" json:"user_id"`
	ResumeID         string `gorm:"column:resume_id;type:uuid" json:"resume_id"`
	JobDescriptionID string `gorm:"column:job_description_id;type:uuid" json:"job_description_id"`

	Difficulty    string                          `gorm:"column:difficulty;type:text" json:"difficulty"`       // easy|medium|hard
	InterviewType string                          `gorm:"column:interview_type;type:text" json:"interview_type"` // behavioral|technical|mixed
	VoiceConfig   datatypes.JSONType[VoiceConfig] `gorm:"column:voice_config;type:jsonb" json:"voice_config"`
	QuestionCount int                             `gorm:"column:question_count;type:integer" json:"question_count"`

	Status       SessionStatus `gorm:"column:status;type:text;index" json:"status"`
	OverallScore *int          `gorm:"column:overall_score;type:integer" json:"overall_score"`
	CompletedAt  *time.Time    `gorm:"column:completed_at;type:timestamptz" json:"completed_at"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz" json:"updated_at"`
}

func (InterviewSession) TableName() string { return "interview_sessions" }

// VoiceConfig is how the interviewer sounds and behaves.
type VoiceConfig struct {
	Voice   string `json:"voice,omitempty"`
	Persona string `json:"persona,omitempty"` // friendly|neutral|tough
	Style   string `json:"style,omitempty"`
}
