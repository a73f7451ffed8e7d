package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yoockh/mockinterview/internal/models"
	pgrepo "github.com/yoockh/mockinterview/internal/repositories/postgres"
	"github.com/yoockh/mockinterview/internal/utils"
)

// TurnInput is one utterance to append to an interview's conversation log.
type TurnInput struct {
	Speaker     models.Speaker
	MessageType models.MessageType
	Content     string
}

type ConversationService interface {
	// Append writes the turns in order with consecutive turn numbers.
	Append(ctx context.Context, sessionID string, in ...TurnInput) ([]models.ConversationTurn, error)
	ListBySession(ctx context.Context, sessionID string) ([]models.ConversationTurn, error)
}

type conversationService struct {
	convos pgrepo.ConversationRepo
}

func NewConversationService(convos pgrepo.ConversationRepo) ConversationService {
	return &conversationService{convos: convos}
}

func validTurn(in TurnInput) bool {
	switch in.Speaker {
	case models.SpeakerCandidate:
		return in.MessageType == models.MessageResponse
	case models.SpeakerInterviewer:
		switch in.MessageType {
		case models.MessageMainQuestion, models.MessageFollowUp, models.MessageTransition, models.MessageClosing:
			return true
		}
	}
	return false
}

func (s *conversationService) Append(ctx context.Context, sessionID string, in ...TurnInput) ([]models.ConversationTurn, error) {
	const op = "ConversationService.Append"

	if sessionID == "" || len(in) == 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id and at least one turn are required", nil)
	}

	now := time.Now().UTC()
	rows := make([]*models.ConversationTurn, 0, len(in))
	for _, t := range in {
		content := strings.TrimSpace(t.Content)
		if content == "" || !validTurn(t) {
			return nil, utils.E(utils.CodeInvalidArgument, op, "invalid conversation turn", nil)
		}
		rows = append(rows, &models.ConversationTurn{
			ID:          uuid.NewString(),
			Speaker:     t.Speaker,
			MessageType: t.MessageType,
			Content:     content,
			CreatedAt:   now,
		})
	}

	if err := s.convos.Append(ctx, sessionID, rows...); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "interview not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to append conversation turns", err)
	}

	out := make([]models.ConversationTurn, len(rows))
	for i, r := range rows {
		out[i] = *r
	}
	return out, nil
}

func (s *conversationService) ListBySession(ctx context.Context, sessionID string) ([]models.ConversationTurn, error) {
	const op = "ConversationService.ListBySession"

	if sessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id is required", nil)
	}

	rows, err := s.convos.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list conversation", err)
	}
	return rows, nil
}
