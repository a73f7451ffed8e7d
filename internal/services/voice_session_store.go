package services

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yoockh/mockinterview/internal/cache"
	mongorepo "github.com/yoockh/mockinterview/internal/repositories/mongo"
	"github.com/yoockh/mockinterview/internal/utils"
)

const (
	voiceSessionKeyPrefix  = "voice:session:"
	voiceLastRegisteredKey = "voice:last_registered"
	fallbackActiveWindow   = 5 * time.Minute
)

// ResolveSource tells how a voice session was mapped to an interview.
type ResolveSource string

const (
	ResolvedExplicit       ResolveSource = "explicit"
	ResolvedLastRegistered ResolveSource = "last_registered"
	ResolvedRecentBuffer   ResolveSource = "recent_buffer"
)

// VoiceSessionStore maps voice-pipeline session ids to interview session ids.
type VoiceSessionStore interface {
	Register(ctx context.Context, voiceSessionID, interviewSessionID string) error
	// Resolve returns "" with a nil error when nothing matches.
	Resolve(ctx context.Context, voiceSessionID string) (interviewSessionID string, src ResolveSource, err error)
	Forget(ctx context.Context, voiceSessionID string) error
}

type voiceSessionStore struct {
	cache    cache.Cache
	buffers  mongorepo.BufferRepository
	ttl      time.Duration
	fallback bool
	log      *logrus.Logger
	now      func() time.Time
}

func NewVoiceSessionStore(c cache.Cache, buffers mongorepo.BufferRepository, ttl time.Duration, fallback bool, log *logrus.Logger) VoiceSessionStore {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &voiceSessionStore{
		cache:    c,
		buffers:  buffers,
		ttl:      ttl,
		fallback: fallback,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *voiceSessionStore) Register(ctx context.Context, voiceSessionID, interviewSessionID string) error {
	const op = "VoiceSessionStore.Register"

	if voiceSessionID == "" || interviewSessionID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "voice session id and interview session id are required", nil)
	}
	if err := s.cache.SetString(ctx, voiceSessionKeyPrefix+voiceSessionID, interviewSessionID, s.ttl); err != nil {
		return utils.E(utils.CodeUnavailable, op, "failed to store session mapping", err)
	}
	if err := s.cache.SetString(ctx, voiceLastRegisteredKey, interviewSessionID, s.ttl); err != nil {
		return utils.E(utils.CodeUnavailable, op, "failed to store session mapping", err)
	}
	return nil
}

func (s *voiceSessionStore) Resolve(ctx context.Context, voiceSessionID string) (string, ResolveSource, error) {
	const op = "VoiceSessionStore.Resolve"

	if voiceSessionID != "" {
		id, hit, err := s.cache.GetString(ctx, voiceSessionKeyPrefix+voiceSessionID)
		if err != nil {
			return "", "", utils.E(utils.CodeUnavailable, op, "failed to read session mapping", err)
		}
		if hit {
			return id, ResolvedExplicit, nil
		}
	}
	if !s.fallback {
		return "", "", nil
	}

	// Heuristic routing: wrong under concurrent interviews, kept for single-user deployments.
	entry := s.log.WithField("voice_session_id", voiceSessionID)

	id, hit, err := s.cache.GetString(ctx, voiceLastRegisteredKey)
	if err != nil {
		return "", "", utils.E(utils.CodeUnavailable, op, "failed to read session mapping", err)
	}
	if hit {
		entry.WithField("session_id", id).Warn("voice session resolved by last registered interview")
		return id, ResolvedLastRegistered, nil
	}

	if s.buffers == nil {
		return "", "", nil
	}
	id, err = s.buffers.MostRecentActive(ctx, s.now().Add(-fallbackActiveWindow))
	if errors.Is(err, utils.ErrNotFound) {
		return "", "", nil
	}
	if err != nil {
		return "", "", utils.E(utils.CodeInternal, op, "failed to read transcription buffers", err)
	}
	entry.WithField("session_id", id).Warn("voice session resolved by most recent transcription buffer")
	return id, ResolvedRecentBuffer, nil
}

func (s *voiceSessionStore) Forget(ctx context.Context, voiceSessionID string) error {
	if voiceSessionID == "" {
		return nil
	}
	return s.cache.Del(ctx, voiceSessionKeyPrefix+voiceSessionID)
}
