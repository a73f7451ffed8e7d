package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yoockh/mockinterview/internal/models"
	mongorepo "github.com/yoockh/mockinterview/internal/repositories/mongo"
	"github.com/yoockh/mockinterview/internal/utils"
)

// TranscriptionEvent is what live transcript subscribers receive.
type TranscriptionEvent struct {
	Type        string             `json:"type"` // transcript|status
	SessionID   string             `json:"session_id"`
	Speaker     models.Speaker     `json:"speaker,omitempty"`
	MessageType models.MessageType `json:"message_type,omitempty"`
	Text        string             `json:"text,omitempty"`
	Status      string             `json:"status,omitempty"`
	TurnID      string             `json:"turn_id,omitempty"`
	At          time.Time          `json:"at"`
}

func TranscriptionChannel(sessionID string) string {
	return "transcription:" + sessionID
}

// TranscriptionService keeps the most recent utterances of a live interview in the transient
// buffer and fans them out over Redis pub/sub.
type TranscriptionService interface {
	RecordCandidate(ctx context.Context, sessionID, text, turnID string) error
	RecordInterviewer(ctx context.Context, sessionID, text, turnID string, mt models.MessageType) error
	PublishStatus(ctx context.Context, sessionID, status string) error
	// Snapshot returns nil when nothing has been buffered yet.
	Snapshot(ctx context.Context, sessionID string) (*models.TranscriptionBuffer, error)
	Subscribe(ctx context.Context, sessionID string) *redis.PubSub
}

type transcriptionService struct {
	buffers mongorepo.BufferRepository
	redis   *redis.Client
}

func NewTranscriptionService(buffers mongorepo.BufferRepository, rdb *redis.Client) TranscriptionService {
	return &transcriptionService{buffers: buffers, redis: rdb}
}

func (s *transcriptionService) RecordCandidate(ctx context.Context, sessionID, text, turnID string) error {
	const op = "TranscriptionService.RecordCandidate"

	if sessionID == "" || text == "" {
		return utils.E(utils.CodeInvalidArgument, op, "session_id and text are required", nil)
	}
	if err := s.buffers.SetCandidateText(ctx, sessionID, text, turnID); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to update transcription buffer", err)
	}
	return s.publish(ctx, op, TranscriptionEvent{
		Type:        "transcript",
		SessionID:   sessionID,
		Speaker:     models.SpeakerCandidate,
		MessageType: models.MessageResponse,
		Text:        text,
		TurnID:      turnID,
	})
}

func (s *transcriptionService) RecordInterviewer(ctx context.Context, sessionID, text, turnID string, mt models.MessageType) error {
	const op = "TranscriptionService.RecordInterviewer"

	if sessionID == "" || text == "" {
		return utils.E(utils.CodeInvalidArgument, op, "session_id and text are required", nil)
	}
	if err := s.buffers.SetInterviewerText(ctx, sessionID, text, turnID); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to update transcription buffer", err)
	}
	return s.publish(ctx, op, TranscriptionEvent{
		Type:        "transcript",
		SessionID:   sessionID,
		Speaker:     models.SpeakerInterviewer,
		MessageType: mt,
		Text:        text,
		TurnID:      turnID,
	})
}

func (s *transcriptionService) PublishStatus(ctx context.Context, sessionID, status string) error {
	const op = "TranscriptionService.PublishStatus"
	return s.publish(ctx, op, TranscriptionEvent{Type: "status", SessionID: sessionID, Status: status})
}

func (s *transcriptionService) publish(ctx context.Context, op string, ev TranscriptionEvent) error {
	ev.At = time.Now().UTC()
	b, err := json.Marshal(ev)
	if err != nil {
		return utils.E(utils.CodeInternal, op, "failed to encode event", err)
	}
	if err := s.redis.Publish(ctx, TranscriptionChannel(ev.SessionID), b).Err(); err != nil {
		return utils.E(utils.CodeUnavailable, op, "failed to publish transcription", err)
	}
	return nil
}

func (s *transcriptionService) Snapshot(ctx context.Context, sessionID string) (*models.TranscriptionBuffer, error) {
	const op = "TranscriptionService.Snapshot"

	b, err := s.buffers.Get(ctx, sessionID)
	if errors.Is(err, utils.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to read transcription buffer", err)
	}
	return b, nil
}

func (s *transcriptionService) Subscribe(ctx context.Context, sessionID string) *redis.PubSub {
	return s.redis.Subscribe(ctx, TranscriptionChannel(sessionID))
}
