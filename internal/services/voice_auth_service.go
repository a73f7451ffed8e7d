package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/yoockh/mockinterview/internal/providers/voice"
	"github.com/yoockh/mockinterview/internal/utils"
)

type VoiceAuthService interface {
	// Authorize returns the client credentials for a browser voice session bound to one of
	// the caller's interviews.
	Authorize(ctx context.Context, userID, interviewSessionID string) (*voice.AuthorizeResponse, error)
}

type voiceAuthService struct {
	interviews InterviewService
	authorizer voice.Authorizer
	log        *logrus.Logger
}

func NewVoiceAuthService(interviews InterviewService, authorizer voice.Authorizer, log *logrus.Logger) VoiceAuthService {
	return &voiceAuthService{interviews: interviews, authorizer: authorizer, log: log}
}

func (s *voiceAuthService) Authorize(ctx context.Context, userID, interviewSessionID string) (*voice.AuthorizeResponse, error) {
	const op = "VoiceAuthService.Authorize"

	if interviewSessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "interviewSessionId is required", nil)
	}
	if _, err := s.interviews.Get(ctx, userID, interviewSessionID); err != nil {
		return nil, err
	}

	resp, err := s.authorizer.Authorize(ctx, voice.AuthorizeRequest{
		Metadata: map[string]string{"interview_session_id": interviewSessionID, "user_id": userID},
	})
	if err != nil {
		s.log.WithError(err).WithField("session_id", interviewSessionID).Error("voice session authorization failed")
		return nil, utils.E(utils.CodeInternal, op, "failed to authorize voice session", err)
	}
	return resp, nil
}
