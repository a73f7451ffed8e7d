package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/mockinterview/internal/jobpost"
	"github.com/yoockh/mockinterview/internal/models"
	"github.com/yoockh/mockinterview/internal/providers/llm"
	pgrepo "github.com/yoockh/mockinterview/internal/repositories/postgres"
	"github.com/yoockh/mockinterview/internal/utils"
)

// JobFetcher retrieves posting text for a URL. It returns placeholder content with ok=false
// when the page cannot be read.
type JobFetcher interface {
	Fetch(ctx context.Context, url string) (content string, ok bool, err error)
}

type SetupInput struct {
	ResumeText     string `json:"resumeText" validate:"required"`
	ResumeFileName string `json:"resumeFileName"`
	ResumeFileSize int    `json:"resumeFileSize" validate:"min=0"`
	JobURL         string `json:"jobUrl" validate:"omitempty,http_url"`
	JobText        string `json:"jobText" validate:"required_without=JobURL"`
}

type SetupResult struct {
	Resume         *models.Resume         `json:"resume"`
	JobDescription *models.JobDescription `json:"jobDescription"`
}

type SetupService interface {
	Process(ctx context.Context, userID string, in SetupInput) (*SetupResult, error)
}

type setupService struct {
	resumes pgrepo.ResumeRepository
	jobs    pgrepo.JobRepository
	llm     llm.Provider
	fetcher JobFetcher
	log     *logrus.Logger
}

func NewSetupService(resumes pgrepo.ResumeRepository, jobs pgrepo.JobRepository, provider llm.Provider, fetcher JobFetcher, log *logrus.Logger) SetupService {
	return &setupService{resumes: resumes, jobs: jobs, llm: provider, fetcher: fetcher, log: log}
}

const jobDetailsSchema = `{
  "type": "object",
  "required": ["company_name", "job_title", "summary"],
  "properties": {
    "company_name": {"type": "string"},
    "job_title": {"type": "string"},
    "summary": {"type": "string"}
  }
}`

type jobDetails struct {
	CompanyName string `json:"company_name"`
	JobTitle    string `json:"job_title"`
	Summary     string `json:"summary"`
}

func (s *setupService) Process(ctx context.Context, userID string, in SetupInput) (*SetupResult, error) {
	const op = "SetupService.Process"

	if userID == "" {
		return nil, utils.E(utils.CodeUnauthorized, op, "unauthorized", nil)
	}
	in.ResumeText = strings.TrimSpace(in.ResumeText)
	in.JobText = strings.TrimSpace(in.JobText)
	in.JobURL = strings.TrimSpace(in.JobURL)
	if err := validateInput(op, in); err != nil {
		return nil, err
	}

	log := s.log.WithField("user_id", userID)

	summary, err := s.llm.Generate(ctx, resumeSummaryPrompt(in.ResumeText))
	if err != nil {
		log.WithError(err).Error("resume summary failed")
		return nil, utils.E(utils.CodeInternal, op, "failed to process resume", err)
	}

	resume := &models.Resume{
		ID:            uuid.NewString(),
		UserID:        userID,
		FileName:      firstNonEmpty(in.ResumeFileName, "resume.txt"),
		ParsedText:    in.ResumeText,
		ParsedSummary: strings.TrimSpace(summary),
		FileSize:      in.ResumeFileSize,
		CreatedAt:     time.Now().UTC(),
	}
	if resume.FileSize == 0 {
		resume.FileSize = len(in.ResumeText)
	}
	if err := s.resumes.Create(ctx, resume); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to save resume", err)
	}

	content := in.JobText
	if in.JobURL != "" && content == "" {
		var scraped bool
		content, scraped, err = s.fetcher.Fetch(ctx, in.JobURL)
		if !scraped {
			log.WithError(err).WithField("job_url", in.JobURL).Warn("job page scrape failed, using placeholder")
		}
	}

	job := &models.JobDescription{
		ID:               uuid.NewString(),
		UserID:           userID,
		SourceURL:        in.JobURL,
		ManualText:       in.JobText,
		ExtractedContent: content,
		CreatedAt:        time.Now().UTC(),
	}

	v := jobpost.Validate(content)
	if !v.Valid {
		job.IsValid = false
		if err := s.jobs.Create(ctx, job); err != nil {
			return nil, utils.E(utils.CodeInternal, op, "failed to save job description", err)
		}
		return nil, utils.E(utils.CodeInvalidArgument, op, v.Message, nil)
	}

	raw, err := s.llm.Generate(ctx, jobDetailsPrompt(content))
	if err != nil {
		log.WithError(err).Error("job details extraction failed")
		return nil, utils.E(utils.CodeInternal, op, "failed to process job description", err)
	}
	var details jobDetails
	if err := llm.DecodeValidated(raw, jobDetailsSchema, &details); err != nil {
		log.WithError(err).Error("job details output unusable")
		return nil, utils.E(utils.CodeInternal, op, "failed to process job description", err)
	}

	job.IsValid = true
	job.CompanyName = strings.TrimSpace(details.CompanyName)
	job.JobTitle = strings.TrimSpace(details.JobTitle)
	job.Summary = strings.TrimSpace(details.Summary)
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to save job description", err)
	}

	return &SetupResult{Resume: resume, JobDescription: job}, nil
}

func resumeSummaryPrompt(resume string) string {
	return fmt.Sprintf(`Summarize this resume in 3-4 sentences for an interviewer. Mention the candidate's seniority, core skills and most relevant experience. Reply with plain text only.

Resume:
%s`, clipText(resume, 8000))
}

func jobDetailsPrompt(content string) string {
	return fmt.Sprintf(`Extract details from this job posting. Return ONLY a JSON object:
{"company_name": "", "job_title": "", "summary": "2-3 sentence summary of the role and key requirements"}
Use an empty string when a value is not stated.

Job posting:
%s`, clipText(content, 8000))
}

func clipText(s string, n int) string {
	if r := []rune(s); len(r) > n {
		return string(r[:n])
	}
	return s
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
