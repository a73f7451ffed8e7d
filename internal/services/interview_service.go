package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"github.com/yoockh/mockinterview/internal/models"
	"github.com/yoockh/mockinterview/internal/providers/llm"
	pgrepo "github.com/yoockh/mockinterview/internal/repositories/postgres"
	"github.com/yoockh/mockinterview/internal/utils"
)

const maxQuestionCount = 15

// AnalysisQueue schedules background results analysis for a finished interview.
type AnalysisQueue interface {
	Enqueue(ctx context.Context, sessionID string) error
}

type CreateInterviewInput struct {
	ResumeID         string `json:"resumeId" validate:"omitempty,uuid"`
	JobDescriptionID string `json:"jobDescriptionId" validate:"omitempty,uuid"`
	Difficulty       string `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	InterviewType    string `json:"interviewType" validate:"omitempty,oneof=behavioral technical mixed"`
	Voice            string `json:"voice"`
	Persona          string `json:"persona" validate:"omitempty,oneof=friendly neutral tough"`
	QuestionCount    int    `json:"questionCount" validate:"min=0,max=15"`
}

// InterviewOverview is a session as listed to its owner.
type InterviewOverview struct {
	ID            string               `json:"id"`
	Status        models.SessionStatus `json:"status"`
	Difficulty    string               `json:"difficulty"`
	InterviewType string               `json:"interviewType"`
	QuestionCount int                  `json:"questionCount"`
	OverallScore  *int                 `json:"overallScore"`
	JobTitle      string               `json:"jobTitle"`
	CompanyName   string               `json:"companyName"`
	CreatedAt     time.Time            `json:"createdAt"`
	CompletedAt   *time.Time           `json:"completedAt"`
	Progress      *Progress            `json:"progress,omitempty"`
}

type DashboardStats struct {
	TotalInterviews     int  `json:"totalInterviews"`
	CompletedInterviews int  `json:"completedInterviews"`
	AverageScore        *int `json:"averageScore"`
	BestScore           *int `json:"bestScore"`
	HasResume           bool `json:"hasResume"`
	HasJobDescription   bool `json:"hasJobDescription"`
}

type Dashboard struct {
	Interviews []InterviewOverview `json:"interviews"`
	Stats      DashboardStats      `json:"stats"`
}

type CreatedInterview struct {
	Session   *models.InterviewSession   `json:"session"`
	Questions []models.InterviewQuestion `json:"questions"`
}

type InterviewService interface {
	Create(ctx context.Context, userID string, in CreateInterviewInput) (*CreatedInterview, error)
	// Get returns the session when it belongs to userID.
	Get(ctx context.Context, userID, sessionID string) (*models.InterviewSession, error)
	Latest(ctx context.Context, userID string) (*InterviewOverview, error)
	Dashboard(ctx context.Context, userID string) (*Dashboard, error)
	Complete(ctx context.Context, userID, sessionID string) (*models.InterviewSession, error)
	// CompleteByID is used by the voice webhook, which carries no user identity.
	CompleteByID(ctx context.Context, sessionID string) error
	MarkActive(ctx context.Context, sessionID string) error
}

type interviewService struct {
	resumes  pgrepo.ResumeRepository
	jobs     pgrepo.JobRepository
	sessions pgrepo.SessionRepository
	progress ProgressService
	llm      llm.Provider
	queue    AnalysisQueue
	log      *logrus.Logger
	now      func() time.Time
}

func NewInterviewService(
	resumes pgrepo.ResumeRepository,
	jobs pgrepo.JobRepository,
	sessions pgrepo.SessionRepository,
	progress ProgressService,
	provider llm.Provider,
	queue AnalysisQueue,
	log *logrus.Logger,
) InterviewService {
	return &interviewService{
		resumes:  resumes,
		jobs:     jobs,
		sessions: sessions,
		progress: progress,
		llm:      provider,
		queue:    queue,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

const questionsSchema = `{
  "type": "array",
  "minItems": 1,
  "items": {
    "type": "object",
    "required": ["question"],
    "properties": {
      "question": {"type": "string", "minLength": 1},
      "type": {"type": "string"},
      "expected_points": {"type": "array", "items": {"type": "string"}},
      "follow_up": {"type": "string"}
    }
  }
}`

type generatedQuestion struct {
	Question       string   `json:"question"`
	Type           string   `json:"type"`
	ExpectedPoints []string `json:"expected_points"`
	FollowUp       string   `json:"follow_up"`
}

func (s *interviewService) Create(ctx context.Context, userID string, in CreateInterviewInput) (*CreatedInterview, error) {
	const op = "InterviewService.Create"

	if userID == "" {
		return nil, utils.E(utils.CodeUnauthorized, op, "unauthorized", nil)
	}
	if err := validateInput(op, in); err != nil {
		return nil, err
	}
	in.Difficulty = firstNonEmpty(in.Difficulty, "medium")
	in.InterviewType = firstNonEmpty(in.InterviewType, "mixed")
	in.Persona = firstNonEmpty(in.Persona, "friendly")
	if in.QuestionCount == 0 {
		in.QuestionCount = defaultQuestionCount
	}

	resume, err := s.resolveResume(ctx, userID, in.ResumeID)
	if err != nil {
		return nil, err
	}
	job, err := s.resolveJob(ctx, userID, in.JobDescriptionID)
	if err != nil {
		return nil, err
	}

	raw, err := s.llm.Generate(ctx, questionsPrompt(in, resume, job))
	if err != nil {
		s.log.WithError(err).WithField("user_id", userID).Error("question generation failed")
		return nil, utils.E(utils.CodeInternal, op, "failed to generate interview questions", err)
	}
	var generated []generatedQuestion
	if err := llm.DecodeValidated(raw, questionsSchema, &generated); err != nil {
		s.log.WithError(err).WithField("user_id", userID).Error("question generation output unusable")
		return nil, utils.E(utils.CodeInternal, op, "failed to generate interview questions", err)
	}
	if len(generated) > in.QuestionCount {
		generated = generated[:in.QuestionCount]
	}

	now := s.now()
	sess := &models.InterviewSession{
		ID:               uuid.NewString(),
		UserID:           userID,
		ResumeID:         resume.ID,
		JobDescriptionID: job.ID,
		Difficulty:       in.Difficulty,
		InterviewType:    in.InterviewType,
		VoiceConfig:      datatypes.NewJSONType(models.VoiceConfig{Voice: in.Voice, Persona: in.Persona}),
		QuestionCount:    len(generated),
		Status:           models.SessionPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	questions := make([]models.InterviewQuestion, 0, len(generated))
	for i, g := range generated {
		q := models.InterviewQuestion{
			ID:             uuid.NewString(),
			SessionID:      sess.ID,
			QuestionText:   strings.TrimSpace(g.Question),
			QuestionOrder:  i + 1,
			QuestionType:   firstNonEmpty(g.Type, questionTypeFor(in.InterviewType)),
			ExpectedPoints: pq.StringArray(g.ExpectedPoints),
			CreatedAt:      now,
		}
		if fu := strings.TrimSpace(g.FollowUp); fu != "" {
			q.FollowUp = &fu
		}
		questions = append(questions, q)
	}

	if err := s.sessions.CreateWithQuestions(ctx, sess, questions); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to save interview", err)
	}
	return &CreatedInterview{Session: sess, Questions: questions}, nil
}

func (s *interviewService) resolveResume(ctx context.Context, userID, id string) (*models.Resume, error) {
	const op = "InterviewService.Create"

	var (
		r   *models.Resume
		err error
	)
	if id != "" {
		r, err = s.resumes.GetByID(ctx, userID, id)
	} else {
		r, err = s.resumes.LatestByUser(ctx, userID)
	}
	if errors.Is(err, utils.ErrNotFound) {
		return nil, utils.E(utils.CodeFailedPrecondition, op, "No resume found. Upload your resume in setup before creating an interview.", err)
	}
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load resume", err)
	}
	return r, nil
}

func (s *interviewService) resolveJob(ctx context.Context, userID, id string) (*models.JobDescription, error) {
	const op = "InterviewService.Create"

	var (
		j   *models.JobDescription
		err error
	)
	if id != "" {
		j, err = s.jobs.GetByID(ctx, userID, id)
		if err == nil && !j.IsValid {
			err = utils.ErrNotFound
		}
	} else {
		j, err = s.jobs.LatestValidByUser(ctx, userID)
	}
	if errors.Is(err, utils.ErrNotFound) {
		return nil, utils.E(utils.CodeFailedPrecondition, op, "No job description found. Add a job posting in setup before creating an interview.", err)
	}
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load job description", err)
	}
	return j, nil
}

func questionTypeFor(interviewType string) string {
	if interviewType == "technical" {
		return "technical"
	}
	return "behavioral"
}

func questionsPrompt(in CreateInterviewInput, resume *models.Resume, job *models.JobDescription) string {
	return fmt.Sprintf(`You are preparing a %s %s mock interview for the role of %s at %s.
Write exactly %d interview questions tailored to the candidate and the role, ordered from warm-up to most demanding.

Candidate resume summary:
%s

Job description:
%s

Return ONLY a JSON array:
[{"question": "", "type": "behavioral|technical|situational", "expected_points": [""], "follow_up": ""}]`,
		in.Difficulty, in.InterviewType,
		firstNonEmpty(job.JobTitle, "the position"), firstNonEmpty(job.CompanyName, "the company"),
		in.QuestionCount,
		clipText(firstNonEmpty(resume.ParsedSummary, resume.ParsedText), 4000),
		clipText(firstNonEmpty(job.Summary, job.Content()), 4000))
}

func (s *interviewService) Get(ctx context.Context, userID, sessionID string) (*models.InterviewSession, error) {
	const op = "InterviewService.Get"

	if userID == "" || sessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session id is required", nil)
	}
	sess, err := s.sessions.GetForUser(ctx, userID, sessionID)
	if errors.Is(err, utils.ErrNotFound) {
		return nil, utils.E(utils.CodeNotFound, op, "interview not found", err)
	}
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load interview", err)
	}
	return sess, nil
}

func (s *interviewService) Latest(ctx context.Context, userID string) (*InterviewOverview, error) {
	const op = "InterviewService.Latest"

	if userID == "" {
		return nil, utils.E(utils.CodeUnauthorized, op, "unauthorized", nil)
	}

	sess, err := s.sessions.LatestByUser(ctx, userID)
	if errors.Is(err, utils.ErrNotFound) {
		return nil, utils.E(utils.CodeNotFound, op, "no interviews yet", err)
	}
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load latest interview", err)
	}

	jobs, err := s.jobs.GetMany(ctx, []string{sess.JobDescriptionID})
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load job description", err)
	}
	ov := overview(sess, jobs)

	p, err := s.progress.ForSession(ctx, sess)
	if err != nil {
		return nil, err
	}
	ov.Progress = p
	return &ov, nil
}

func (s *interviewService) Dashboard(ctx context.Context, userID string) (*Dashboard, error) {
	const op = "InterviewService.Dashboard"

	if userID == "" {
		return nil, utils.E(utils.CodeUnauthorized, op, "unauthorized", nil)
	}

	sessions, err := s.sessions.ListByUser(ctx, userID, 20)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list interviews", err)
	}

	ids := make([]string, 0, len(sessions))
	for _, ss := range sessions {
		ids = append(ids, ss.JobDescriptionID)
	}
	jobs, err := s.jobs.GetMany(ctx, ids)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load job descriptions", err)
	}

	resumeCount, err := s.resumes.CountByUser(ctx, userID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to count resumes", err)
	}
	jobCount, err := s.jobs.CountValidByUser(ctx, userID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to count job descriptions", err)
	}

	out := &Dashboard{
		Interviews: make([]InterviewOverview, 0, len(sessions)),
		Stats: DashboardStats{
			TotalInterviews:   len(sessions),
			HasResume:         resumeCount > 0,
			HasJobDescription: jobCount > 0,
		},
	}

	var scored, sum int
	for i := range sessions {
		ss := &sessions[i]
		out.Interviews = append(out.Interviews, overview(ss, jobs))
		if ss.Status == models.SessionCompleted {
			out.Stats.CompletedInterviews++
			if ss.OverallScore != nil {
				scored++
				sum += *ss.OverallScore
				if out.Stats.BestScore == nil || *ss.OverallScore > *out.Stats.BestScore {
					best := *ss.OverallScore
					out.Stats.BestScore = &best
				}
			}
		}
	}
	if scored > 0 {
		avg := (sum + scored/2) / scored
		out.Stats.AverageScore = &avg
	}
	return out, nil
}

func overview(s *models.InterviewSession, jobs map[string]models.JobDescription) InterviewOverview {
	ov := InterviewOverview{
		ID:            s.ID,
		Status:        s.Status,
		Difficulty:    s.Difficulty,
		InterviewType: s.InterviewType,
		QuestionCount: s.QuestionCount,
		OverallScore:  s.OverallScore,
		CreatedAt:     s.CreatedAt,
		CompletedAt:   s.CompletedAt,
	}
	if j, ok := jobs[s.JobDescriptionID]; ok {
		ov.JobTitle = j.JobTitle
		ov.CompanyName = j.CompanyName
	}
	return ov
}

func (s *interviewService) Complete(ctx context.Context, userID, sessionID string) (*models.InterviewSession, error) {
	const op = "InterviewService.Complete"

	if userID == "" || sessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session id is required", nil)
	}
	if _, err := s.sessions.GetForUser(ctx, userID, sessionID); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "interview not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load interview", err)
	}
	if err := s.CompleteByID(ctx, sessionID); err != nil {
		return nil, err
	}

	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load interview", err)
	}
	return sess, nil
}

func (s *interviewService) CompleteByID(ctx context.Context, sessionID string) error {
	const op = "InterviewService.CompleteByID"

	if err := s.sessions.MarkCompleted(ctx, sessionID, s.now()); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return utils.E(utils.CodeNotFound, op, "interview not found", err)
		}
		return utils.E(utils.CodeInternal, op, "failed to complete interview", err)
	}

	if s.queue != nil {
		if err := s.queue.Enqueue(ctx, sessionID); err != nil {
			// results are still generated on first request
			s.log.WithError(err).WithField("session_id", sessionID).Warn("failed to enqueue analysis")
		}
	}
	return nil
}

func (s *interviewService) MarkActive(ctx context.Context, sessionID string) error {
	const op = "InterviewService.MarkActive"

	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return utils.E(utils.CodeNotFound, op, "interview not found", err)
		}
		return utils.E(utils.CodeInternal, op, "failed to load interview", err)
	}
	if sess.Status != models.SessionPending {
		return nil
	}
	if err := s.sessions.SetStatus(ctx, sessionID, models.SessionActive); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to update interview status", err)
	}
	return nil
}
