package models

import "time"

type Speaker string

const (
	SpeakerInterviewer Speaker = "interviewer"
	SpeakerCandidate   Speaker = "candidate"
)

type MessageType string

const (
	MessageMainQuestion MessageType = "main_question"
	MessageFollowUp     MessageType = "follow_up"
	MessageResponse     MessageType = "response"
	MessageTransition   MessageType = "transition"
	MessageClosing      MessageType = "closing"
)

// ConversationTurn is append-only; turn numbers increase monotonically per session.
type ConversationTurn struct {
	ID          string      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	SessionID   string      `gorm:"column:session_id;type:uuid;uniqueIndex:uniq_session_turn" json:"session_id"`
	TurnNumber  int         `gorm:"column:turn_number;type:integer;uniqueIndex:uniq_session_turn" json:"turn_number"`
	Speaker     Speaker     `gorm:"column:speaker;type:text" json:"speaker"`
	MessageType MessageType `gorm:"column:message_type;type:text" json:"message_type"`
	Content     string      `gorm:"column:content;type:text" json:"content"`
	CreatedAt   time.Time   `gorm:"column:created_at;type:timestamptz" json:"created_at"`
}

func (ConversationTurn) TableName() string { return "interview_conversation" }

// IsInterviewerQuestion reports whether the turn opens a question/answer pair.
func (t ConversationTurn) IsInterviewerQuestion() bool {
	return t.Speaker == SpeakerInterviewer &&
		(t.MessageType == MessageMainQuestion || t.MessageType == MessageFollowUp)
}
