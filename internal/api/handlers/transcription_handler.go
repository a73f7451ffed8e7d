package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yoockh/mockinterview/internal/models"
	"github.com/yoockh/mockinterview/internal/services"
	"github.com/yoockh/mockinterview/internal/utils"
)

const heartbeatInterval = 30 * time.Second

type TranscriptionHandler struct {
	interviews  services.InterviewService
	transcripts services.TranscriptionService
	heartbeat   time.Duration
}

func NewTranscriptionHandler(interviews services.InterviewService, transcripts services.TranscriptionService) *TranscriptionHandler {
	return &TranscriptionHandler{interviews: interviews, transcripts: transcripts, heartbeat: heartbeatInterval}
}

type snapshotEvent struct {
	Type                string    `json:"type"`
	SessionID           string    `json:"session_id"`
	LastCandidateText   string    `json:"last_candidate_text"`
	LastInterviewerText string    `json:"last_interviewer_text"`
	LastTurnID          string    `json:"last_turn_id,omitempty"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func snapshotOf(b *models.TranscriptionBuffer) snapshotEvent {
	return snapshotEvent{
		Type:                "snapshot",
		SessionID:           b.SessionID,
		LastCandidateText:   b.LastCandidateText,
		LastInterviewerText: b.LastInterviewerText,
		LastTurnID:          b.LastTurnID,
		UpdatedAt:           b.UpdatedAt,
	}
}

// Stream is a server-sent event feed of the live transcript of one interview.
func (h *TranscriptionHandler) Stream(c *gin.Context) {
	const op = "TranscriptionHandler.Stream"

	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	sessionID := c.Query("sessionId")
	if sessionID == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "sessionId is required", nil))
		return
	}
	if _, err := h.interviews.Get(c.Request.Context(), userID, sessionID); err != nil {
		writeError(c, err)
		return
	}

	ctx := c.Request.Context()
	snap, err := h.transcripts.Snapshot(ctx, sessionID)
	if err != nil {
		writeError(c, err)
		return
	}

	pubsub := h.transcripts.Subscribe(ctx, sessionID)
	defer func() { _ = pubsub.Close() }()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	if snap != nil {
		writeSSE(c.Writer, snapshotOf(snap))
	}
	c.Writer.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	msgs := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := c.Writer.WriteString(": heartbeat\n\n"); err != nil {
				return
			}
			c.Writer.Flush()
		case m, ok := <-msgs:
			if !ok {
				return
			}
			if _, err := c.Writer.WriteString("data: " + m.Payload + "\n\n"); err != nil {
				return
			}
			c.Writer.Flush()
		}
	}
}
