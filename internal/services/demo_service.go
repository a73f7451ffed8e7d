package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"

	"github.com/yoockh/mockinterview/internal/models"
	pgrepo "github.com/yoockh/mockinterview/internal/repositories/postgres"
	"github.com/yoockh/mockinterview/internal/utils"
)

type demoQA struct {
	question       string
	answer         string
	followUp       string
	followUpAnswer string
}

var demoScript = []demoQA{
	{
		question:       "Tell me about yourself and what drew you to backend engineering.",
		answer:         "I've spent five years building APIs in Go and Python, most recently owning the payments service at a fintech startup. I like backend work because reliability problems are very concrete.",
		followUp:       "What was the hardest reliability problem you owned on the payments service?",
		followUpAnswer: "Duplicate charges during retries. I introduced idempotency keys and an outbox table, which brought duplicates to zero within a sprint.",
	},
	{
		question: "Describe a time you had to make a difficult prioritization decision.",
		answer:   "During a launch we had three critical bugs and time for two. I ranked them by customer impact and reversibility, shipped fixes for the two that blocked checkout, and put a feature flag around the third.",
	},
	{
		question:       "How would you design a rate limiter for a public API?",
		answer:         "I'd start with a token bucket per API key stored in Redis, using a Lua script so the check and decrement are atomic, and return 429 with a Retry-After header.",
		followUp:       "How would that behave if Redis became unavailable?",
		followUpAnswer: "I'd fail open with a conservative in-process limit so we degrade gracefully instead of rejecting every request, and alert on the fallback.",
	},
	{
		question: "What research did you do on our company before this interview?",
		answer:   "I read your engineering blog posts on the move to event sourcing and looked at the public API docs. The challenge of keeping projections consistent is something I've worked on before.",
	},
	{
		question: "Where do you see the biggest opportunity for improvement in your current team?",
		answer:   "Our on-call load. I've proposed tracking toil per alert and deleting alerts nobody acts on, which I think would cut pages by half.",
	},
}

const demoResumeText = "Backend Engineer with 5 years of experience in Go, Python, PostgreSQL and Redis. " +
	"Owned the payments service at a fintech startup: idempotent retries, outbox pattern, 99.95% availability. " +
	"Previously built internal tooling and CI pipelines. BSc Computer Science."

const demoJobText = "We are looking for a Senior Backend Engineer to join our platform team. " +
	"Responsibilities: design and operate high-throughput APIs, own services end to end, mentor engineers. " +
	"Requirements: 4+ years of experience with Go or Java, PostgreSQL, distributed systems. " +
	"We offer competitive salary, equity and health insurance."

type SeededDemo struct {
	Session   *models.InterviewSession   `json:"session"`
	Questions []models.InterviewQuestion `json:"questions"`
	Turns     int                        `json:"turns"`
}

type DemoService interface {
	Seed(ctx context.Context, userID string) (*SeededDemo, error)
	AppendConversation(ctx context.Context, userID, sessionID string) (int, error)
}

type demoService struct {
	resumes   pgrepo.ResumeRepository
	jobs      pgrepo.JobRepository
	sessions  pgrepo.SessionRepository
	questions pgrepo.QuestionRepository
	convos    ConversationService
}

func NewDemoService(resumes pgrepo.ResumeRepository, jobs pgrepo.JobRepository, sessions pgrepo.SessionRepository, questions pgrepo.QuestionRepository, convos ConversationService) DemoService {
	return &demoService{resumes: resumes, jobs: jobs, sessions: sessions, questions: questions, convos: convos}
}

func (s *demoService) Seed(ctx context.Context, userID string) (*SeededDemo, error) {
	const op = "DemoService.Seed"

	if userID == "" {
		return nil, utils.E(utils.CodeUnauthorized, op, "unauthorized", nil)
	}
	now := time.Now().UTC()

	resume := &models.Resume{
		ID:            uuid.NewString(),
		UserID:        userID,
		FileName:      "demo-resume.pdf",
		ParsedText:    demoResumeText,
		ParsedSummary: "Backend engineer with five years in Go and Python, strong on reliability and payments.",
		FileSize:      len(demoResumeText),
		CreatedAt:     now,
	}
	if err := s.resumes.Create(ctx, resume); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to seed resume", err)
	}

	job := &models.JobDescription{
		ID:               uuid.NewString(),
		UserID:           userID,
		ManualText:       demoJobText,
		ExtractedContent: demoJobText,
		CompanyName:      "Acme Cloud",
		JobTitle:         "Senior Backend Engineer",
		Summary:          "Senior backend role owning high-throughput Go services on the platform team.",
		IsValid:          true,
		CreatedAt:        now,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to seed job description", err)
	}

	sess := &models.InterviewSession{
		ID:               uuid.NewString(),
		UserID:           userID,
		ResumeID:         resume.ID,
		JobDescriptionID: job.ID,
		Difficulty:       "medium",
		InterviewType:    "mixed",
		VoiceConfig:      datatypes.NewJSONType(models.VoiceConfig{Persona: "friendly"}),
		QuestionCount:    len(demoScript),
		Status:           models.SessionActive,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	questions := make([]models.InterviewQuestion, len(demoScript))
	for i, qa := range demoScript {
		questions[i] = models.InterviewQuestion{
			ID:             uuid.NewString(),
			SessionID:      sess.ID,
			QuestionText:   qa.question,
			QuestionOrder:  i + 1,
			QuestionType:   "behavioral",
			ExpectedPoints: pq.StringArray{},
			CreatedAt:      now,
		}
		if qa.followUp != "" {
			fu := qa.followUp
			questions[i].FollowUp = &fu
		}
	}
	if err := s.sessions.CreateWithQuestions(ctx, sess, questions); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to seed interview", err)
	}

	turns, err := s.convos.Append(ctx, sess.ID, DemoConversation()...)
	if err != nil {
		return nil, err
	}
	return &SeededDemo{Session: sess, Questions: questions, Turns: len(turns)}, nil
}

func (s *demoService) AppendConversation(ctx context.Context, userID, sessionID string) (int, error) {
	const op = "DemoService.AppendConversation"

	if _, err := s.sessions.GetForUser(ctx, userID, sessionID); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return 0, utils.E(utils.CodeNotFound, op, "interview not found", err)
		}
		return 0, utils.E(utils.CodeInternal, op, "failed to load interview", err)
	}

	turns, err := s.convos.Append(ctx, sessionID, DemoConversation()...)
	if err != nil {
		return 0, err
	}
	return len(turns), nil
}

// DemoConversation is the scripted interview used for demos: every main question with its
// answer, the scripted follow-ups, and a closing line.
func DemoConversation() []TurnInput {
	var out []TurnInput
	iv := func(mt models.MessageType, text string) {
		out = append(out, TurnInput{Speaker: models.SpeakerInterviewer, MessageType: mt, Content: text})
	}
	cand := func(text string) {
		out = append(out, TurnInput{Speaker: models.SpeakerCandidate, MessageType: models.MessageResponse, Content: text})
	}

	for i, qa := range demoScript {
		if i > 0 {
			iv(models.MessageTransition, "Thanks, that's helpful.")
		}
		iv(models.MessageMainQuestion, qa.question)
		cand(qa.answer)
		if qa.followUp != "" {
			iv(models.MessageFollowUp, qa.followUp)
			cand(qa.followUpAnswer)
		}
	}
	iv(models.MessageClosing, "That's all my questions. Thank you for your time, your results will be ready shortly.")
	return out
}
