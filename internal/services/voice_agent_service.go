package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/yoockh/mockinterview/internal/models"
	"github.com/yoockh/mockinterview/internal/providers/llm"
	"github.com/yoockh/mockinterview/internal/providers/stt"
	pgrepo "github.com/yoockh/mockinterview/internal/repositories/postgres"
	"github.com/yoockh/mockinterview/internal/utils"
)

const (
	EventSessionStart = "session.start"
	EventMessage      = "message"
	EventSessionEnd   = "session.end"

	ApologyReply     = "I'm sorry, I had trouble processing that. Could you please repeat your answer?"
	didNotCatchReply = "Sorry, I didn't catch that. Could you say it again?"
	genericGreeting  = "Hello! I'm your AI interviewer. To get started, tell me a little about yourself."
	maxHistoryTurns  = 30
)

// WebhookEvent is an inbound voice pipeline event.
type WebhookEvent struct {
	Type        string `json:"type"`
	Text        string `json:"text"`
	TurnID      string `json:"turn_id"`
	SessionID   string `json:"session_id"`
	AudioBase64 string `json:"audio_base64"`

	// InterviewSessionID comes from the webhook URL query, not the body.
	InterviewSessionID string `json:"-"`
}

// AgentReply is what the interviewer says back; empty Content means nothing to speak.
type AgentReply struct {
	TurnID             string
	Content            string
	MessageType        models.MessageType
	InterviewSessionID string
	Persisted          bool
}

type VoiceAgentService interface {
	Handle(ctx context.Context, ev WebhookEvent) (*AgentReply, error)
}

type voiceAgentService struct {
	store       VoiceSessionStore
	interviews  InterviewService
	convos      ConversationService
	transcripts TranscriptionService

	sessions  pgrepo.SessionRepository
	questions pgrepo.QuestionRepository
	resumes   pgrepo.ResumeRepository
	jobs      pgrepo.JobRepository

	llm llm.Provider
	stt stt.Provider // optional
	log *logrus.Logger
}

type VoiceAgentDeps struct {
	Store       VoiceSessionStore
	Interviews  InterviewService
	Convos      ConversationService
	Transcripts TranscriptionService
	Sessions    pgrepo.SessionRepository
	Questions   pgrepo.QuestionRepository
	Resumes     pgrepo.ResumeRepository
	Jobs        pgrepo.JobRepository
	LLM         llm.Provider
	STT         stt.Provider
	Logger      *logrus.Logger
}

func NewVoiceAgentService(d VoiceAgentDeps) VoiceAgentService {
	return &voiceAgentService{
		store:       d.Store,
		interviews:  d.Interviews,
		convos:      d.Convos,
		transcripts: d.Transcripts,
		sessions:    d.Sessions,
		questions:   d.Questions,
		resumes:     d.Resumes,
		jobs:        d.Jobs,
		llm:         d.LLM,
		stt:         d.STT,
		log:         d.Logger,
	}
}

func (s *voiceAgentService) Handle(ctx context.Context, ev WebhookEvent) (*AgentReply, error) {
	const op = "VoiceAgentService.Handle"

	switch ev.Type {
	case EventSessionStart:
		return s.start(ctx, ev)
	case EventMessage:
		return s.message(ctx, ev)
	case EventSessionEnd:
		return s.end(ctx, ev)
	default:
		return nil, utils.E(utils.CodeInvalidArgument, op, "unsupported event type", nil)
	}
}

func (s *voiceAgentService) resolve(ctx context.Context, ev WebhookEvent) string {
	if ev.InterviewSessionID != "" {
		return ev.InterviewSessionID
	}
	id, _, err := s.store.Resolve(ctx, ev.SessionID)
	if err != nil {
		s.log.WithError(err).WithField("voice_session_id", ev.SessionID).Warn("voice session lookup failed")
		return ""
	}
	return id
}

func (s *voiceAgentService) start(ctx context.Context, ev WebhookEvent) (*AgentReply, error) {
	log := s.log.WithFields(logrus.Fields{"voice_session_id": ev.SessionID, "session_id": ev.InterviewSessionID})

	if ev.SessionID != "" && ev.InterviewSessionID != "" {
		if err := s.store.Register(ctx, ev.SessionID, ev.InterviewSessionID); err != nil {
			log.WithError(err).Warn("failed to register voice session")
		}
	}

	interviewID := s.resolve(ctx, ev)
	reply := &AgentReply{TurnID: ev.TurnID, Content: genericGreeting, MessageType: models.MessageMainQuestion, InterviewSessionID: interviewID}
	if interviewID == "" {
		return reply, nil
	}

	ic, err := s.loadContext(ctx, interviewID)
	if err != nil {
		log.WithError(err).Warn("interview context unavailable, using generic greeting")
		reply.InterviewSessionID = ""
		return reply, nil
	}

	if err := s.interviews.MarkActive(ctx, interviewID); err != nil {
		log.WithError(err).Warn("failed to mark interview active")
	}

	if len(ic.turns) > 0 {
		// reconnect: repeat the open question without logging it again
		reply.Content = "Welcome back! Let's pick up where we left off."
		if q := lastInterviewerQuestion(ic.turns); q != "" {
			reply.Content += " " + q
		}
		return reply, nil
	}

	reply.Content = greeting(ic)
	if _, err := s.convos.Append(ctx, interviewID, TurnInput{Speaker: models.SpeakerInterviewer, MessageType: models.MessageMainQuestion, Content: reply.Content}); err != nil {
		log.WithError(err).Error("failed to persist opening question")
	} else {
		reply.Persisted = true
	}
	if err := s.transcripts.RecordInterviewer(ctx, interviewID, reply.Content, ev.TurnID, models.MessageMainQuestion); err != nil {
		log.WithError(err).Warn("failed to buffer interviewer text")
	}
	return reply, nil
}

func (s *voiceAgentService) message(ctx context.Context, ev WebhookEvent) (*AgentReply, error) {
	log := s.log.WithFields(logrus.Fields{"voice_session_id": ev.SessionID, "turn_id": ev.TurnID})

	text := strings.TrimSpace(ev.Text)
	if text == "" && ev.AudioBase64 != "" && s.stt != nil {
		text = s.transcribe(ctx, ev.AudioBase64, log)
	}
	if text == "" {
		return &AgentReply{TurnID: ev.TurnID, Content: didNotCatchReply, MessageType: models.MessageTransition}, nil
	}

	interviewID := s.resolve(ctx, ev)
	if interviewID == "" {
		return s.replyWithoutContext(ctx, ev, text, log), nil
	}
	log = log.WithField("session_id", interviewID)

	if _, err := s.convos.Append(ctx, interviewID, TurnInput{Speaker: models.SpeakerCandidate, MessageType: models.MessageResponse, Content: text}); err != nil {
		log.WithError(err).Error("failed to persist candidate response")
	}
	if err := s.transcripts.RecordCandidate(ctx, interviewID, text, ev.TurnID); err != nil {
		log.WithError(err).Warn("failed to buffer candidate text")
	}

	ic, err := s.loadContext(ctx, interviewID)
	if err != nil {
		log.WithError(err).Warn("interview context unavailable")
		return s.replyWithoutContext(ctx, ev, text, log), nil
	}

	raw, err := llm.Collect(ctx, s.llm, interviewerPrompt(ic))
	if err != nil {
		log.WithError(err).Error("interviewer reply failed")
		return &AgentReply{TurnID: ev.TurnID, Content: ApologyReply, MessageType: models.MessageTransition, InterviewSessionID: interviewID}, nil
	}

	progress := ComputeProgress(ic.turns, ic.totalQuestions())
	mt, content := ParseInterviewerReply(raw, progress.MainQuestionsAsked > 0)
	if content == "" {
		return &AgentReply{TurnID: ev.TurnID, Content: ApologyReply, MessageType: models.MessageTransition, InterviewSessionID: interviewID}, nil
	}

	reply := &AgentReply{TurnID: ev.TurnID, Content: content, MessageType: mt, InterviewSessionID: interviewID}
	if _, err := s.convos.Append(ctx, interviewID, TurnInput{Speaker: models.SpeakerInterviewer, MessageType: mt, Content: content}); err != nil {
		log.WithError(err).Error("failed to persist interviewer turn")
	} else {
		reply.Persisted = true
	}
	if err := s.transcripts.RecordInterviewer(ctx, interviewID, content, ev.TurnID, mt); err != nil {
		log.WithError(err).Warn("failed to buffer interviewer text")
	}
	return reply, nil
}

func (s *voiceAgentService) end(ctx context.Context, ev WebhookEvent) (*AgentReply, error) {
	interviewID := s.resolve(ctx, ev)
	log := s.log.WithFields(logrus.Fields{"voice_session_id": ev.SessionID, "session_id": interviewID})

	if interviewID != "" {
		if err := s.interviews.CompleteByID(ctx, interviewID); err != nil {
			log.WithError(err).Error("failed to complete interview")
		}
		if err := s.transcripts.PublishStatus(ctx, interviewID, "ended"); err != nil {
			log.WithError(err).Warn("failed to publish end status")
		}
	}
	if err := s.store.Forget(ctx, ev.SessionID); err != nil {
		log.WithError(err).Warn("failed to drop voice session mapping")
	}
	return &AgentReply{TurnID: ev.TurnID, InterviewSessionID: interviewID}, nil
}

func (s *voiceAgentService) transcribe(ctx context.Context, b64 string, log *logrus.Entry) string {
	audio, err := stt.DecodeAudio(b64)
	if err != nil {
		log.WithError(err).Warn("invalid audio payload")
		return ""
	}
	text, conf, err := s.stt.Transcribe(ctx, audio, "en-US")
	if err != nil {
		log.WithError(err).Warn("speech to text failed")
		return ""
	}
	log.WithField("confidence", conf).Debug("transcribed audio message")
	return strings.TrimSpace(text)
}

func (s *voiceAgentService) replyWithoutContext(ctx context.Context, ev WebhookEvent, text string, log *logrus.Entry) *AgentReply {
	reply := &AgentReply{TurnID: ev.TurnID, MessageType: models.MessageTransition}
	raw, err := llm.Collect(ctx, s.llm, genericInterviewerPrompt(text))
	if err != nil {
		log.WithError(err).Error("interviewer reply failed")
		reply.Content = ApologyReply
		return reply
	}
	reply.MessageType, reply.Content = ParseInterviewerReply(raw, true)
	if reply.Content == "" {
		reply.Content = ApologyReply
	}
	return reply
}

type interviewContext struct {
	session   *models.InterviewSession
	questions []models.InterviewQuestion
	resume    *models.Resume
	job       *models.JobDescription
	turns     []models.ConversationTurn
}

func (c *interviewContext) totalQuestions() int {
	if len(c.questions) > 0 {
		return len(c.questions)
	}
	return c.session.QuestionCount
}

func (s *voiceAgentService) loadContext(ctx context.Context, interviewID string) (*interviewContext, error) {
	sess, err := s.sessions.GetByID(ctx, interviewID)
	if err != nil {
		return nil, err
	}
	ic := &interviewContext{session: sess}

	if ic.questions, err = s.questions.ListBySession(ctx, interviewID); err != nil {
		return nil, err
	}
	if ic.turns, err = s.convos.ListBySession(ctx, interviewID); err != nil {
		return nil, err
	}
	if r, err := s.resumes.GetByID(ctx, sess.UserID, sess.ResumeID); err == nil {
		ic.resume = r
	} else if !errors.Is(err, utils.ErrNotFound) {
		return nil, err
	}
	if j, err := s.jobs.GetByID(ctx, sess.UserID, sess.JobDescriptionID); err == nil {
		ic.job = j
	} else if !errors.Is(err, utils.ErrNotFound) {
		return nil, err
	}
	return ic, nil
}

func lastInterviewerQuestion(turns []models.ConversationTurn) string {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].IsInterviewerQuestion() {
			return turns[i].Content
		}
	}
	return ""
}

func greeting(ic *interviewContext) string {
	role := "this role"
	if ic.job != nil && ic.job.JobTitle != "" {
		role = "the " + ic.job.JobTitle + " role"
		if ic.job.CompanyName != "" {
			role += " at " + ic.job.CompanyName
		}
	}
	first := "To get started, tell me a little about yourself."
	if len(ic.questions) > 0 {
		first = ic.questions[0].QuestionText
	}
	return fmt.Sprintf("Hi, thanks for joining! I'll be interviewing you today for %s. Let's begin. %s", role, first)
}

var replyTag = regexp.MustCompile(`\[(MAIN_QUESTION|FOLLOW_UP|TRANSITION|CLOSING)\]`)

// ParseInterviewerReply reads the leading type tag of a model reply and strips every tag.
// Untagged replies are classified by whether they ask something.
func ParseInterviewerReply(raw string, hasMainQuestion bool) (models.MessageType, string) {
	raw = strings.TrimSpace(raw)

	var mt models.MessageType
	if m := replyTag.FindStringSubmatchIndex(raw); m != nil && strings.TrimSpace(raw[:m[0]]) == "" {
		switch raw[m[2]:m[3]] {
		case "MAIN_QUESTION":
			mt = models.MessageMainQuestion
		case "FOLLOW_UP":
			mt = models.MessageFollowUp
		case "TRANSITION":
			mt = models.MessageTransition
		case "CLOSING":
			mt = models.MessageClosing
		}
	}

	text := strings.Join(strings.Fields(replyTag.ReplaceAllString(raw, " ")), " ")
	if mt == "" {
		switch {
		case !strings.Contains(text, "?"):
			mt = models.MessageTransition
		case hasMainQuestion:
			mt = models.MessageFollowUp
		default:
			mt = models.MessageMainQuestion
		}
	}
	return mt, text
}

func interviewerPrompt(ic *interviewContext) string {
	var b strings.Builder

	vc := ic.session.VoiceConfig.Data()
	persona := firstNonEmpty(vc.Persona, "friendly")
	fmt.Fprintf(&b, "You are a %s, professional interviewer running a %s %s mock interview by voice.\n",
		persona, ic.session.Difficulty, ic.session.InterviewType)
	if ic.job != nil {
		fmt.Fprintf(&b, "Role: %s at %s.\nJob summary: %s\n",
			firstNonEmpty(ic.job.JobTitle, "unspecified"), firstNonEmpty(ic.job.CompanyName, "unspecified"),
			clipText(firstNonEmpty(ic.job.Summary, ic.job.Content()), 1500))
	}
	if ic.resume != nil {
		fmt.Fprintf(&b, "Candidate background: %s\n", clipText(firstNonEmpty(ic.resume.ParsedSummary, ic.resume.ParsedText), 1500))
	}

	b.WriteString("\nPlanned main questions:\n")
	for _, q := range ic.questions {
		fmt.Fprintf(&b, "%d. %s\n", q.QuestionOrder, q.QuestionText)
	}

	p := ComputeProgress(ic.turns, ic.totalQuestions())
	fmt.Fprintf(&b, "\nProgress: main question %d of %d asked, %d follow-up(s) on it so far.\n",
		p.MainQuestionsAsked, p.TotalQuestions, p.CurrentFollowupCount)

	b.WriteString("\nConversation so far:\n")
	turns := ic.turns
	if len(turns) > maxHistoryTurns {
		turns = turns[len(turns)-maxHistoryTurns:]
	}
	for _, t := range turns {
		who := "Interviewer"
		if t.Speaker == models.SpeakerCandidate {
			who = "Candidate"
		}
		fmt.Fprintf(&b, "%s: %s\n", who, t.Content)
	}

	b.WriteString(`
Reply with what the interviewer says next, in at most 60 spoken words, no markdown.
Start the reply with exactly one tag:
[FOLLOW_UP] to probe the last answer (at most 2 follow-ups per main question),
[MAIN_QUESTION] to move on and ask the next planned main question,
[TRANSITION] for a brief acknowledgement without a question,
[CLOSING] to thank the candidate and end the interview once every planned question has been answered.`)
	return b.String()
}

func genericInterviewerPrompt(text string) string {
	return fmt.Sprintf(`You are a friendly professional interviewer in a voice mock interview. The candidate said:
%q
Respond in at most 50 spoken words and ask one relevant interview question. Start with [FOLLOW_UP] or [MAIN_QUESTION].`, clipText(text, 2000))
}
