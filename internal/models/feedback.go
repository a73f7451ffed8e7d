package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// InterviewFeedback doubles as the analysis cache; one row per session.
type InterviewFeedback struct {
	ID        string `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	SessionID string `gorm:"column:session_id;type:uuid;uniqueIndex" json:"session_id"`

	CommunicationScore int  `gorm:"column:communication_score;type:integer" json:"communication_score"`
	ContentScore       int  `gorm:"column:content_score;type:integer" json:"content_score"`
	ConfidenceScore    int  `gorm:"column:confidence_score;type:integer" json:"confidence_score"`
	PreparationScore   *int `gorm:"column:preparation_score;type:integer" json:"preparation_score"`

	OverallFeedback string         `gorm:"column:overall_feedback;type:text" json:"overall_feedback"`
	Strengths       pq.StringArray `gorm:"column:strengths;type:text[]" json:"strengths"`
	Improvements    pq.StringArray `gorm:"column:improvements;type:text[]" json:"improvements"`
	NextSteps       pq.StringArray `gorm:"column:next_steps;type:text[]" json:"next_steps"`

	ResponseAnalyses    datatypes.JSON `gorm:"column:response_analyses;type:jsonb" json:"response_analyses"`
	ResumeAnalysis      datatypes.JSON `gorm:"column:resume_analysis;type:jsonb" json:"resume_analysis"`
	JobFitAnalysis      datatypes.JSON `gorm:"column:job_fit_analysis;type:jsonb" json:"job_fit_analysis"`
	PreparationAnalysis datatypes.JSON `gorm:"column:preparation_analysis;type:jsonb" json:"preparation_analysis"`

	Degraded        bool           `gorm:"column:degraded;type:boolean" json:"degraded"`
	DegradedReasons pq.StringArray `gorm:"column:degraded_reasons;type:text[]" json:"degraded_reasons"`

	AnalysisCompletedAt *time.Time `gorm:"column:analysis_completed_at;type:timestamptz" json:"analysis_completed_at"`
	CreatedAt           time.Time  `gorm:"column:created_at;type:timestamptz" json:"created_at"`
	UpdatedAt           time.Time  `gorm:"column:updated_at;type:timestamptz" json:"updated_at"`
}

func (InterviewFeedback) TableName() string { return "interview_feedback" }

// IsComplete reports whether every analysis part is present, i.e. the row can be served
// without calling the LLM again.
func (f *InterviewFeedback) IsComplete() bool {
	if f == nil || f.AnalysisCompletedAt == nil || f.PreparationScore == nil {
		return false
	}
	return !emptyJSON(f.ResponseAnalyses) &&
		!emptyJSON(f.ResumeAnalysis) &&
		!emptyJSON(f.JobFitAnalysis) &&
		!emptyJSON(f.PreparationAnalysis)
}

func emptyJSON(j datatypes.JSON) bool {
	switch string(j) {
	case "", "null", "{}", "[]":
		return true
	}
	return false
}
