package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"github.com/yoockh/mockinterview/internal/analysis"
	"github.com/yoockh/mockinterview/internal/cache"
	"github.com/yoockh/mockinterview/internal/models"
	pgrepo "github.com/yoockh/mockinterview/internal/repositories/postgres"
	"github.com/yoockh/mockinterview/internal/utils"
)

type AnalysisStatus string

const (
	AnalysisCompleted      AnalysisStatus = "completed"
	AnalysisGenerating     AnalysisStatus = "generating"
	AnalysisNoConversation AnalysisStatus = "no_conversation"
)

func analysisLockKey(sessionID string) string { return "analysis:lock:" + sessionID }

func resultsViewKey(sessionID string) string { return "results:view:" + sessionID }

type SessionMeta struct {
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
}

type CoachingFeedback struct {
	CommunicationScore int      `json:"communicationScore"`
	ContentScore       int      `json:"contentScore"`
	ConfidenceScore    int      `json:"confidenceScore"`
	PreparationScore   int      `json:"preparationScore"`
	OverallScore       int      `json:"overallScore"`
	OverallFeedback    string   `json:"overallFeedback"`
	Strengths          []string `json:"strengths"`
	Improvements       []string `json:"improvements"`
	NextSteps          []string `json:"nextSteps"`
}

type AIAnalysis struct {
	Resume      analysis.ResumeAnalysis      `json:"resumeAnalysis"`
	JobFit      analysis.JobFitAnalysis      `json:"jobFitAnalysis"`
	Preparation analysis.PreparationAnalysis `json:"preparationAnalysis"`
}

type Results struct {
	AnalysisStatus   AnalysisStatus              `json:"analysisStatus"`
	Session          SessionMeta                 `json:"session"`
	Feedback         *CoachingFeedback           `json:"feedback,omitempty"`
	QuestionAnalyses []analysis.ResponseAnalysis `json:"questionAnalyses,omitempty"`
	AIAnalysis       *AIAnalysis                 `json:"aiAnalysis,omitempty"`
	Degraded         bool                        `json:"degraded"`
	DegradedReasons  []string                    `json:"degradedReasons,omitempty"`
	Cached           bool                        `json:"cached"`
}

type ResultsService interface {
	// Get serves cached feedback or runs the analysis inline.
	Get(ctx context.Context, userID, sessionID string) (*Results, error)
	// Generate runs the analysis for a session unless feedback is already complete or
	// another run holds the lock. Used by the background worker.
	Generate(ctx context.Context, sessionID string) error
}

// Pipeline is the analysis run; *analysis.Analyzer satisfies it.
type Pipeline interface {
	Run(ctx context.Context, in analysis.Input) *analysis.Result
}

type ResultsDeps struct {
	Sessions        pgrepo.SessionRepository
	ServiceSessions pgrepo.SessionRepository  // elevated tier; writes overall_score
	Feedback        pgrepo.FeedbackRepository // elevated tier
	Convos          pgrepo.ConversationRepo
	Resumes         pgrepo.ResumeRepository
	Jobs            pgrepo.JobRepository
	Pipeline        Pipeline
	Cache           cache.Cache
	LockTTL         time.Duration
	ViewTTL         time.Duration // how long an assembled completed result is served from Redis
	Logger          *logrus.Logger
}

type resultsService struct {
	d ResultsDeps
}

func NewResultsService(d ResultsDeps) ResultsService {
	if d.LockTTL <= 0 {
		d.LockTTL = 5 * time.Minute
	}
	if d.ViewTTL <= 0 {
		d.ViewTTL = 10 * time.Minute
	}
	if d.ServiceSessions == nil {
		d.ServiceSessions = d.Sessions
	}
	return &resultsService{d: d}
}

func (s *resultsService) Get(ctx context.Context, userID, sessionID string) (*Results, error) {
	const op = "ResultsService.Get"

	if userID == "" || sessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session id is required", nil)
	}

	sess, err := s.d.Sessions.GetForUser(ctx, userID, sessionID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "interview not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load interview", err)
	}
	if res := s.cachedView(ctx, sessionID); res != nil {
		return res, nil
	}
	job := s.job(ctx, sess)

	fb, err := s.cachedFeedback(ctx, sessionID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load feedback", err)
	}
	if fb != nil {
		res, err := fromFeedback(sess, job, fb)
		if err != nil {
			return nil, err
		}
		s.storeView(ctx, res)
		return res, nil
	}

	turns, err := s.d.Convos.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load conversation", err)
	}
	if len(turns) == 0 {
		return &Results{AnalysisStatus: AnalysisNoConversation, Session: meta(sess, job)}, nil
	}

	acquired, err := s.d.Cache.SetNX(ctx, analysisLockKey(sessionID), "1", s.d.LockTTL)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "failed to acquire analysis lock", err)
	}
	if !acquired {
		return &Results{AnalysisStatus: AnalysisGenerating, Session: meta(sess, job)}, nil
	}

	// the run outlives an abandoned poll; the lock bounds it
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.d.LockTTL)
	defer cancel()
	defer s.unlock(runCtx, sessionID)

	fb, err = s.run(runCtx, sess, job, turns)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to save analysis", err)
	}

	score := analysis.OverallScore(fb.CommunicationScore, fb.ContentScore, fb.ConfidenceScore, deref(fb.PreparationScore))
	sess.OverallScore = &score
	res, err := fromFeedback(sess, job, fb)
	if err != nil {
		return nil, err
	}
	s.storeView(ctx, res)
	res.Cached = false
	return res, nil
}

func (s *resultsService) Generate(ctx context.Context, sessionID string) error {
	const op = "ResultsService.Generate"

	sess, err := s.d.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return utils.E(utils.CodeNotFound, op, "interview not found", err)
		}
		return utils.E(utils.CodeInternal, op, "failed to load interview", err)
	}

	fb, err := s.cachedFeedback(ctx, sessionID)
	if err != nil {
		return utils.E(utils.CodeInternal, op, "failed to load feedback", err)
	}
	if fb != nil {
		return nil
	}
	if running, err := s.d.Cache.Exists(ctx, analysisLockKey(sessionID)); err == nil && running {
		return nil
	}

	turns, err := s.d.Convos.ListBySession(ctx, sessionID)
	if err != nil {
		return utils.E(utils.CodeInternal, op, "failed to load conversation", err)
	}
	if len(turns) == 0 {
		return nil
	}

	acquired, err := s.d.Cache.SetNX(ctx, analysisLockKey(sessionID), "1", s.d.LockTTL)
	if err != nil {
		return utils.E(utils.CodeUnavailable, op, "failed to acquire analysis lock", err)
	}
	if !acquired {
		return nil
	}
	defer s.unlock(ctx, sessionID)

	if _, err := s.run(ctx, sess, s.job(ctx, sess), turns); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to save analysis", err)
	}
	return nil
}

func (s *resultsService) unlock(ctx context.Context, sessionID string) {
	if err := s.d.Cache.Del(ctx, analysisLockKey(sessionID)); err != nil {
		s.d.Logger.WithError(err).WithField("session_id", sessionID).Warn("failed to release analysis lock")
	}
}

// cachedView returns a previously assembled completed result. Cache failures fall through to
// Postgres.
func (s *resultsService) cachedView(ctx context.Context, sessionID string) *Results {
	var res Results
	hit, err := s.d.Cache.GetJSON(ctx, resultsViewKey(sessionID), &res)
	if err != nil {
		s.d.Logger.WithError(err).WithField("session_id", sessionID).Warn("results view cache read failed")
		return nil
	}
	if !hit || res.AnalysisStatus != AnalysisCompleted {
		return nil
	}
	res.Cached = true
	return &res
}

func (s *resultsService) storeView(ctx context.Context, res *Results) {
	if res.AnalysisStatus != AnalysisCompleted {
		return
	}
	view := *res
	view.Cached = true
	if err := s.d.Cache.SetJSON(ctx, resultsViewKey(res.Session.ID), view, s.d.ViewTTL); err != nil {
		s.d.Logger.WithError(err).WithField("session_id", res.Session.ID).Warn("results view cache write failed")
	}
}

func (s *resultsService) cachedFeedback(ctx context.Context, sessionID string) (*models.InterviewFeedback, error) {
	fb, err := s.d.Feedback.GetBySession(ctx, sessionID)
	if errors.Is(err, utils.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !fb.IsComplete() {
		return nil, nil
	}
	return fb, nil
}

func (s *resultsService) job(ctx context.Context, sess *models.InterviewSession) *models.JobDescription {
	j, err := s.d.Jobs.GetByID(ctx, sess.UserID, sess.JobDescriptionID)
	if err != nil {
		if !errors.Is(err, utils.ErrNotFound) {
			s.d.Logger.WithError(err).WithField("session_id", sess.ID).Warn("failed to load job description")
		}
		return nil
	}
	return j
}

func (s *resultsService) run(ctx context.Context, sess *models.InterviewSession, job *models.JobDescription, turns []models.ConversationTurn) (*models.InterviewFeedback, error) {
	log := s.d.Logger.WithField("session_id", sess.ID)

	in := analysis.Input{
		SessionID:     sess.ID,
		Turns:         turns,
		Difficulty:    sess.Difficulty,
		InterviewType: sess.InterviewType,
	}
	if job != nil {
		in.JobText, in.JobTitle, in.Company = job.Content(), job.JobTitle, job.CompanyName
	}
	if r, err := s.d.Resumes.GetByID(ctx, sess.UserID, sess.ResumeID); err == nil {
		in.ResumeText = r.ParsedText
	} else if !errors.Is(err, utils.ErrNotFound) {
		log.WithError(err).Warn("failed to load resume")
	}

	start := time.Now()
	res := s.d.Pipeline.Run(ctx, in)
	log.WithFields(logrus.Fields{
		"pairs":       len(res.Pairs),
		"degraded":    res.Degraded(),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("interview analysis finished")

	fb, err := toFeedback(sess.ID, res)
	if err != nil {
		return nil, err
	}
	if err := s.d.Feedback.Upsert(ctx, fb); err != nil {
		return nil, err
	}
	if err := s.d.ServiceSessions.SetOverallScore(ctx, sess.ID, res.OverallScore()); err != nil {
		return nil, err
	}
	return fb, nil
}

func toFeedback(sessionID string, r *analysis.Result) (*models.InterviewFeedback, error) {
	responses, err := json.Marshal(r.Responses)
	if err != nil {
		return nil, err
	}
	resume, err := json.Marshal(r.Resume.Data)
	if err != nil {
		return nil, err
	}
	jobFit, err := json.Marshal(r.JobFit.Data)
	if err != nil {
		return nil, err
	}
	prep, err := json.Marshal(r.Preparation.Data)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	prepScore := r.Preparation.Data.PreparationScore
	c := r.Coaching.Data
	return &models.InterviewFeedback{
		ID:                  uuid.NewString(),
		SessionID:           sessionID,
		CommunicationScore:  c.CommunicationScore,
		ContentScore:        c.ContentScore,
		ConfidenceScore:     c.ConfidenceScore,
		PreparationScore:    &prepScore,
		OverallFeedback:     c.OverallFeedback,
		Strengths:           pq.StringArray(c.Strengths),
		Improvements:        pq.StringArray(c.Improvements),
		NextSteps:           pq.StringArray(c.NextSteps),
		ResponseAnalyses:    datatypes.JSON(responses),
		ResumeAnalysis:      datatypes.JSON(resume),
		JobFitAnalysis:      datatypes.JSON(jobFit),
		PreparationAnalysis: datatypes.JSON(prep),
		Degraded:            r.Degraded(),
		DegradedReasons:     pq.StringArray(r.DegradedReasons),
		AnalysisCompletedAt: &now,
		CreatedAt:           now,
		UpdatedAt:           now,
	}, nil
}

func fromFeedback(sess *models.InterviewSession, job *models.JobDescription, fb *models.InterviewFeedback) (*Results, error) {
	const op = "ResultsService.fromFeedback"

	out := &Results{
		AnalysisStatus:  AnalysisCompleted,
		Session:         meta(sess, job),
		Degraded:        fb.Degraded,
		DegradedReasons: []string(fb.DegradedReasons),
		Cached:          true,
		AIAnalysis:      &AIAnalysis{},
	}
	if err := json.Unmarshal(fb.ResponseAnalyses, &out.QuestionAnalyses); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "stored response analyses are corrupt", err)
	}
	if err := json.Unmarshal(fb.ResumeAnalysis, &out.AIAnalysis.Resume); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "stored resume analysis is corrupt", err)
	}
	if err := json.Unmarshal(fb.JobFitAnalysis, &out.AIAnalysis.JobFit); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "stored job fit analysis is corrupt", err)
	}
	if err := json.Unmarshal(fb.PreparationAnalysis, &out.AIAnalysis.Preparation); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "stored preparation analysis is corrupt", err)
	}

	prep := deref(fb.PreparationScore)
	overall := analysis.OverallScore(fb.CommunicationScore, fb.ContentScore, fb.ConfidenceScore, prep)
	if sess.OverallScore != nil {
		overall = *sess.OverallScore
	}
	out.Feedback = &CoachingFeedback{
		CommunicationScore: fb.CommunicationScore,
		ContentScore:       fb.ContentScore,
		ConfidenceScore:    fb.ConfidenceScore,
		PreparationScore:   prep,
		OverallScore:       overall,
		OverallFeedback:    fb.OverallFeedback,
		Strengths:          []string(fb.Strengths),
		Improvements:       []string(fb.Improvements),
		NextSteps:          []string(fb.NextSteps),
	}
	out.Session.OverallScore = &overall
	return out, nil
}

func meta(sess *models.InterviewSession, job *models.JobDescription) SessionMeta {
	m := SessionMeta{
		ID:            sess.ID,
		Status:        sess.Status,
		Difficulty:    sess.Difficulty,
		InterviewType: sess.InterviewType,
		QuestionCount: sess.QuestionCount,
		OverallScore:  sess.OverallScore,
		CreatedAt:     sess.CreatedAt,
		CompletedAt:   sess.CompletedAt,
	}
	if job != nil {
		m.JobTitle, m.CompanyName = job.JobTitle, job.CompanyName
	}
	return m
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
