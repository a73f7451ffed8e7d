package models

import "time"

type JobDescription struct {
	ID               string    `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID           string    `gorm:"column:user_id;type:uuid;index" json:"user_id"`
	SourceURL        string    `gorm:"column:source_url;type:text" json:"source_url,omitempty"`
	ManualText       string    `gorm:"column:manual_text;type:text" json:"manual_text,omitempty"`
	ExtractedContent string    `gorm:"column:extracted_content;type:text" json:"extracted_content"`
	CompanyName      string    `gorm:"column:company_name;type:text" json:"company_name"`
	JobTitle         string    `gorm:"column:job_title;type:text" json:"job_title"`
	Summary          string    `gorm:"column:summary;type:text" json:"summary"`
	IsValid          bool      `gorm:"column:is_valid;type:boolean" json:"is_valid"`
	CreatedAt        time.Time `gorm:"column:created_at;type:timestamptz;index" json:"created_at"`
}

func (JobDescription) TableName() string { return "job_descriptions" }

// Content returns the best available job text.
func (j *JobDescription) Content() string {
	if j == nil {
		return ""
	}
	if j.ExtractedContent != "" {
		return j.ExtractedContent
	}
	return j.ManualText
}
