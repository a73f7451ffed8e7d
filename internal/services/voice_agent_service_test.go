package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoockh/mockinterview/internal/logger"
	"github.com/yoockh/mockinterview/internal/models"
)

func TestParseInterviewerReply(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		hasMain bool
		wantMT  models.MessageType
		want    string
	}{
		{"follow-up tag", "[FOLLOW_UP] Can you expand on that?", true, models.MessageFollowUp, "Can you expand on that?"},
		{"main question tag", "  [MAIN_QUESTION]  How do you handle conflict? ", true, models.MessageMainQuestion, "How do you handle conflict?"},
		{"closing tag", "[CLOSING] Thanks for your time today.", true, models.MessageClosing, "Thanks for your time today."},
		{"transition tag", "[TRANSITION] Great, thanks.", true, models.MessageTransition, "Great, thanks."},
		{"untagged statement", "That makes sense.", true, models.MessageTransition, "That makes sense."},
		{"untagged question before any main", "What drew you to this role?", false, models.MessageMainQuestion, "What drew you to this role?"},
		{"untagged question after a main", "Why did you pick Go?", true, models.MessageFollowUp, "Why did you pick Go?"},
		{"tag not leading is stripped only", "Sure. [MAIN_QUESTION] What next?", true, models.MessageFollowUp, "Sure. What next?"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mt, text := ParseInterviewerReply(tt.raw, tt.hasMain)
			assert.Equal(t, tt.wantMT, mt)
			assert.Equal(t, tt.want, text)
		})
	}
}

type agentFixture struct {
	db          *memDB
	llm         *fakeLLM
	transcripts *fakeTranscripts
	queue       *fakeQueue
	store       VoiceSessionStore
	svc         VoiceAgentService
	sess        *models.InterviewSession
}

func newAgentFixture(t *testing.T, provider *fakeLLM) *agentFixture {
	t.Helper()
	db := newMemDB()
	c, _ := newTestCache(t)
	log := logger.Discard()
	f := &agentFixture{
		db:          db,
		llm:         provider,
		transcripts: &fakeTranscripts{},
		queue:       &fakeQueue{},
		store:       NewVoiceSessionStore(c, nil, time.Hour, false, log),
		sess:        seedInterview(db, "Tell me about yourself.", "Describe a hard bug you fixed."),
	}
	progress := NewProgressService(memSessions{db}, memQuestions{db}, memConvos{db})
	interviews := NewInterviewService(memResumes{db}, memJobs{db}, memSessions{db}, progress, provider, f.queue, log)
	f.svc = NewVoiceAgentService(VoiceAgentDeps{
		Store:       f.store,
		Interviews:  interviews,
		Convos:      NewConversationService(memConvos{db}),
		Transcripts: f.transcripts,
		Sessions:    memSessions{db},
		Questions:   memQuestions{db},
		Resumes:     memResumes{db},
		Jobs:        memJobs{db},
		LLM:         provider,
		Logger:      log,
	})
	return f
}

func (f *agentFixture) turns() []models.ConversationTurn {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return append([]models.ConversationTurn(nil), f.db.turns[f.sess.ID]...)
}

func (f *agentFixture) start(t *testing.T) *AgentReply {
	t.Helper()
	reply, err := f.svc.Handle(context.Background(), WebhookEvent{
		Type: EventSessionStart, SessionID: "voice-1", TurnID: "t0", InterviewSessionID: f.sess.ID,
	})
	require.NoError(t, err)
	return reply
}

func TestVoiceAgent_SessionStartAsksFirstQuestion(t *testing.T) {
	f := newAgentFixture(t, failingLLM())
	ctx := context.Background()

	reply := f.start(t)
	assert.Contains(t, reply.Content, "Tell me about yourself.")
	assert.Contains(t, reply.Content, "Backend Engineer role at Acme")
	assert.True(t, reply.Persisted)
	assert.Equal(t, f.sess.ID, reply.InterviewSessionID)

	turns := f.turns()
	require.Len(t, turns, 1)
	assert.Equal(t, models.SpeakerInterviewer, turns[0].Speaker)
	assert.Equal(t, models.MessageMainQuestion, turns[0].MessageType)
	assert.Equal(t, 1, turns[0].TurnNumber)

	sess, err := memSessions{f.db}.GetByID(ctx, f.sess.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionActive, sess.Status)

	id, src, err := f.store.Resolve(ctx, "voice-1")
	require.NoError(t, err)
	assert.Equal(t, f.sess.ID, id)
	assert.Equal(t, ResolvedExplicit, src)
	assert.Zero(t, f.llm.calls.Load())
}

func TestVoiceAgent_ReconnectDoesNotRepeatPersistence(t *testing.T) {
	f := newAgentFixture(t, failingLLM())
	f.start(t)

	reply := f.start(t)
	assert.Contains(t, reply.Content, "Welcome back")
	assert.Contains(t, reply.Content, "Tell me about yourself.")
	assert.False(t, reply.Persisted)
	assert.Len(t, f.turns(), 1)
}

func TestVoiceAgent_MessagePersistsBothTurns(t *testing.T) {
	f := newAgentFixture(t, replyWith("[FOLLOW_UP] What was the hardest part?"))
	f.start(t)

	reply, err := f.svc.Handle(context.Background(), WebhookEvent{
		Type: EventMessage, SessionID: "voice-1", TurnID: "t1", Text: "  I build payment services in Go. ",
	})
	require.NoError(t, err)
	assert.Equal(t, "What was the hardest part?", reply.Content)
	assert.Equal(t, models.MessageFollowUp, reply.MessageType)
	assert.True(t, reply.Persisted)

	turns := f.turns()
	require.Len(t, turns, 3)
	assert.Equal(t, models.MessageResponse, turns[1].MessageType)
	assert.Equal(t, "I build payment services in Go.", turns[1].Content)
	assert.Equal(t, models.MessageFollowUp, turns[2].MessageType)
	assert.Equal(t, []int{1, 2, 3}, []int{turns[0].TurnNumber, turns[1].TurnNumber, turns[2].TurnNumber})

	assert.Contains(t, f.transcripts.recorded, "candidate: I build payment services in Go.")
	assert.Contains(t, f.transcripts.recorded, "interviewer: What was the hardest part?")
}

func TestVoiceAgent_ModelFailureApologizesWithoutPersisting(t *testing.T) {
	f := newAgentFixture(t, failingLLM())
	f.start(t)

	reply, err := f.svc.Handle(context.Background(), WebhookEvent{
		Type: EventMessage, SessionID: "voice-1", TurnID: "t1", Text: "My answer.",
	})
	require.NoError(t, err)
	assert.Equal(t, ApologyReply, reply.Content)
	assert.False(t, reply.Persisted)

	turns := f.turns()
	require.Len(t, turns, 2, "candidate response is kept, apology is not")
	assert.Equal(t, models.SpeakerCandidate, turns[1].Speaker)
}

func TestVoiceAgent_UnresolvedSessionRepliesWithoutContext(t *testing.T) {
	f := newAgentFixture(t, replyWith("[MAIN_QUESTION] What are you working on lately?"))

	reply, err := f.svc.Handle(context.Background(), WebhookEvent{
		Type: EventMessage, SessionID: "unknown-voice", TurnID: "t1", Text: "Hello there",
	})
	require.NoError(t, err)
	assert.Equal(t, "What are you working on lately?", reply.Content)
	assert.Empty(t, reply.InterviewSessionID)
	assert.Empty(t, f.turns())
	assert.Empty(t, f.transcripts.recorded)
}

func TestVoiceAgent_EmptyMessage(t *testing.T) {
	f := newAgentFixture(t, replyWith("unused"))

	reply, err := f.svc.Handle(context.Background(), WebhookEvent{Type: EventMessage, SessionID: "voice-1", TurnID: "t1"})
	require.NoError(t, err)
	assert.NotEmpty(t, reply.Content)
	assert.Zero(t, f.llm.calls.Load())
}

func TestVoiceAgent_SessionEndCompletesInterview(t *testing.T) {
	f := newAgentFixture(t, failingLLM())
	f.start(t)
	ctx := context.Background()

	reply, err := f.svc.Handle(ctx, WebhookEvent{Type: EventSessionEnd, SessionID: "voice-1", TurnID: "t9"})
	require.NoError(t, err)
	assert.Empty(t, reply.Content)
	assert.Equal(t, f.sess.ID, reply.InterviewSessionID)

	sess, err := memSessions{f.db}.GetByID(ctx, f.sess.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionCompleted, sess.Status)
	assert.NotNil(t, sess.CompletedAt)
	assert.Equal(t, []string{f.sess.ID}, f.queue.ids)
	assert.Equal(t, []string{"ended"}, f.transcripts.statuses)

	id, _, err := f.store.Resolve(ctx, "voice-1")
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestVoiceAgent_UnknownEvent(t *testing.T) {
	f := newAgentFixture(t, failingLLM())
	_, err := f.svc.Handle(context.Background(), WebhookEvent{Type: "ping"})
	assert.Error(t, err)
}
