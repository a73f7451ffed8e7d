package models

import "time"

// Resume is immutable once created.
type Resume struct {
	ID            string    `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID        string    `gorm:"column:user_id;type:uuid;index" json:"user_id"`
	FileName      string    `gorm:"column:file_name;type:text" json:"file_name"`
	ParsedText    string    `gorm:"column:parsed_text;type:text" json:"parsed_text"`
	ParsedSummary string    `gorm:"column:parsed_summary;type:text" json:"parsed_summary"`
	FileSize      int       `gorm:"column:file_size;type:integer" json:"file_size"`
	CreatedAt     time.Time `gorm:"column:created_at;type:timestamptz;index" json:"created_at"`
}

func (Resume) TableName() string { return "resumes" }
