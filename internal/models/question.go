package models

import (
	"time"

	"github.com/lib/pq"
)

type InterviewQuestion struct {
	ID             string         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	SessionID      string         `gorm:"column:session_id;type:uuid;uniqueIndex:uniq_session_order" json:"session_id"`
	QuestionText   string         `gorm:"column:question_text;type:text" json:"question_text"`
	QuestionOrder  int            `gorm:"column:question_order;type:integer;uniqueIndex:uniq_session_order" json:"question_order"`
	QuestionType   string         `gorm:"column:question_type;type:text" json:"question_type"`
	ExpectedPoints pq.StringArray `gorm:"column:expected_points;type:text[]" json:"expected_points"`
	FollowUp       *string        `gorm:"column:follow_up;type:text" json:"follow_up,omitempty"`
	CreatedAt      time.Time      `gorm:"column:created_at;type:timestamptz" json:"created_at"`
}

func (InterviewQuestion) TableName() string { return "interview_questions" }
