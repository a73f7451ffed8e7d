package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/yoockh/mockinterview/internal/cache"
	"github.com/yoockh/mockinterview/internal/models"
	"github.com/yoockh/mockinterview/internal/utils"
)

// memDB backs every in-memory repository used by the service tests.
type memDB struct {
	mu        sync.Mutex
	resumes   map[string]models.Resume
	jobs      map[string]models.JobDescription
	sessions  map[string]models.InterviewSession
	questions map[string][]models.InterviewQuestion
	turns     map[string][]models.ConversationTurn
	feedback  map[string]models.InterviewFeedback
	upserts   int
}

func newMemDB() *memDB {
	return &memDB{
		resumes:   map[string]models.Resume{},
		jobs:      map[string]models.JobDescription{},
		sessions:  map[string]models.InterviewSession{},
		questions: map[string][]models.InterviewQuestion{},
		turns:     map[string][]models.ConversationTurn{},
		feedback:  map[string]models.InterviewFeedback{},
	}
}

type memResumes struct{ db *memDB }

func (r memResumes) Create(_ context.Context, res *models.Resume) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.resumes[res.ID] = *res
	return nil
}

func (r memResumes) GetByID(_ context.Context, userID, id string) (*models.Resume, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	res, ok := r.db.resumes[id]
	if !ok || res.UserID != userID {
		return nil, utils.ErrNotFound
	}
	return &res, nil
}

func (r memResumes) LatestByUser(_ context.Context, userID string) (*models.Resume, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var latest *models.Resume
	for _, res := range r.db.resumes {
		if res.UserID != userID {
			continue
		}
		if latest == nil || res.CreatedAt.After(latest.CreatedAt) {
			res := res
			latest = &res
		}
	}
	if latest == nil {
		return nil, utils.ErrNotFound
	}
	return latest, nil
}

func (r memResumes) CountByUser(_ context.Context, userID string) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for _, res := range r.db.resumes {
		if res.UserID == userID {
			n++
		}
	}
	return n, nil
}

type memJobs struct{ db *memDB }

func (r memJobs) Create(_ context.Context, j *models.JobDescription) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.jobs[j.ID] = *j
	return nil
}

func (r memJobs) GetByID(_ context.Context, userID, id string) (*models.JobDescription, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	j, ok := r.db.jobs[id]
	if !ok || j.UserID != userID {
		return nil, utils.ErrNotFound
	}
	return &j, nil
}

func (r memJobs) LatestValidByUser(_ context.Context, userID string) (*models.JobDescription, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var latest *models.JobDescription
	for _, j := range r.db.jobs {
		if j.UserID != userID || !j.IsValid {
			continue
		}
		if latest == nil || j.CreatedAt.After(latest.CreatedAt) {
			j := j
			latest = &j
		}
	}
	if latest == nil {
		return nil, utils.ErrNotFound
	}
	return latest, nil
}

func (r memJobs) GetMany(_ context.Context, ids []string) (map[string]models.JobDescription, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := map[string]models.JobDescription{}
	for _, id := range ids {
		if j, ok := r.db.jobs[id]; ok {
			out[id] = j
		}
	}
	return out, nil
}

func (r memJobs) CountValidByUser(_ context.Context, userID string) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for _, j := range r.db.jobs {
		if j.UserID == userID && j.IsValid {
			n++
		}
	}
	return n, nil
}

type memSessions struct{ db *memDB }

func (r memSessions) CreateWithQuestions(_ context.Context, s *models.InterviewSession, qs []models.InterviewQuestion) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.sessions[s.ID] = *s
	r.db.questions[s.ID] = append([]models.InterviewQuestion(nil), qs...)
	return nil
}

func (r memSessions) GetByID(_ context.Context, id string) (*models.InterviewSession, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s, ok := r.db.sessions[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	return &s, nil
}

func (r memSessions) GetForUser(ctx context.Context, userID, id string) (*models.InterviewSession, error) {
	s, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.UserID != userID {
		return nil, utils.ErrNotFound
	}
	return s, nil
}

func (r memSessions) LatestByUser(ctx context.Context, userID string) (*models.InterviewSession, error) {
	list, _ := r.ListByUser(ctx, userID, 1)
	if len(list) == 0 {
		return nil, utils.ErrNotFound
	}
	return &list[0], nil
}

func (r memSessions) ListByUser(_ context.Context, userID string, limit int) ([]models.InterviewSession, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []models.InterviewSession
	for _, s := range r.db.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r memSessions) update(id string, fn func(*models.InterviewSession)) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s, ok := r.db.sessions[id]
	if !ok {
		return utils.ErrNotFound
	}
	fn(&s)
	r.db.sessions[id] = s
	return nil
}

func (r memSessions) SetStatus(_ context.Context, id string, status models.SessionStatus) error {
	return r.update(id, func(s *models.InterviewSession) { s.Status = status })
}

func (r memSessions) MarkCompleted(_ context.Context, id string, at time.Time) error {
	return r.update(id, func(s *models.InterviewSession) {
		s.Status = models.SessionCompleted
		if s.CompletedAt == nil {
			s.CompletedAt = &at
		}
	})
}

func (r memSessions) SetOverallScore(_ context.Context, id string, score int) error {
	return r.update(id, func(s *models.InterviewSession) { s.OverallScore = &score })
}

type memQuestions struct{ db *memDB }

func (r memQuestions) ListBySession(_ context.Context, sessionID string) ([]models.InterviewQuestion, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return append([]models.InterviewQuestion(nil), r.db.questions[sessionID]...), nil
}

func (r memQuestions) CountBySession(_ context.Context, sessionID string) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return int64(len(r.db.questions[sessionID])), nil
}

type memConvos struct{ db *memDB }

func (r memConvos) Append(_ context.Context, sessionID string, turns ...*models.ConversationTurn) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.sessions[sessionID]; !ok {
		return utils.ErrNotFound
	}
	next := len(r.db.turns[sessionID]) + 1
	for _, t := range turns {
		t.SessionID = sessionID
		t.TurnNumber = next
		next++
		r.db.turns[sessionID] = append(r.db.turns[sessionID], *t)
	}
	return nil
}

func (r memConvos) ListBySession(_ context.Context, sessionID string) ([]models.ConversationTurn, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return append([]models.ConversationTurn(nil), r.db.turns[sessionID]...), nil
}

func (r memConvos) CountBySession(_ context.Context, sessionID string) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return int64(len(r.db.turns[sessionID])), nil
}

type memFeedback struct{ db *memDB }

func (r memFeedback) GetBySession(_ context.Context, sessionID string) (*models.InterviewFeedback, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	f, ok := r.db.feedback[sessionID]
	if !ok {
		return nil, utils.ErrNotFound
	}
	return &f, nil
}

func (r memFeedback) Upsert(_ context.Context, f *models.InterviewFeedback) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.upserts++
	r.db.feedback[f.SessionID] = *f
	return nil
}

type memBuffers struct {
	mu      sync.Mutex
	buffers map[string]models.TranscriptionBuffer
}

func newMemBuffers() *memBuffers {
	return &memBuffers{buffers: map[string]models.TranscriptionBuffer{}}
}

func (b *memBuffers) set(sessionID string, fn func(*models.TranscriptionBuffer)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	buf := b.buffers[sessionID]
	buf.SessionID = sessionID
	buf.UpdatedAt = time.Now().UTC()
	fn(&buf)
	b.buffers[sessionID] = buf
}

func (b *memBuffers) SetCandidateText(_ context.Context, sessionID, text, turnID string) error {
	b.set(sessionID, func(buf *models.TranscriptionBuffer) { buf.LastCandidateText, buf.LastTurnID = text, turnID })
	return nil
}

func (b *memBuffers) SetInterviewerText(_ context.Context, sessionID, text, turnID string) error {
	b.set(sessionID, func(buf *models.TranscriptionBuffer) { buf.LastInterviewerText, buf.LastTurnID = text, turnID })
	return nil
}

func (b *memBuffers) Get(_ context.Context, sessionID string) (*models.TranscriptionBuffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	buf, ok := b.buffers[sessionID]
	if !ok {
		return nil, utils.ErrNotFound
	}
	return &buf, nil
}

func (b *memBuffers) MostRecentActive(_ context.Context, since time.Time) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var (
		id     string
		latest time.Time
	)
	for sid, buf := range b.buffers {
		if buf.UpdatedAt.Before(since) || !buf.UpdatedAt.After(latest) {
			continue
		}
		id, latest = sid, buf.UpdatedAt
	}
	if id == "" {
		return "", utils.ErrNotFound
	}
	return id, nil
}

type fakeLLM struct {
	calls   atomic.Int32
	respond func(prompt string) (string, error)
}

func (f *fakeLLM) Generate(_ context.Context, prompt string) (string, error) {
	f.calls.Add(1)
	return f.respond(prompt)
}

func (f *fakeLLM) StreamAnswer(ctx context.Context, prompt string) (<-chan string, <-chan error) {
	out, errs := make(chan string, 1), make(chan error, 1)
	text, err := f.Generate(ctx, prompt)
	if err != nil {
		errs <- err
	} else {
		out <- text
	}
	close(out)
	close(errs)
	return out, errs
}

func (f *fakeLLM) Close() error { return nil }

func replyWith(text string) *fakeLLM {
	return &fakeLLM{respond: func(string) (string, error) { return text, nil }}
}

func failingLLM() *fakeLLM {
	return &fakeLLM{respond: func(string) (string, error) { return "", errors.New("model unavailable") }}
}

type fakeQueue struct {
	mu  sync.Mutex
	ids []string
}

func (q *fakeQueue) Enqueue(_ context.Context, sessionID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ids = append(q.ids, sessionID)
	return nil
}

type fakeTranscripts struct {
	mu       sync.Mutex
	recorded []string
	statuses []string
}

func (f *fakeTranscripts) RecordCandidate(_ context.Context, _, text, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recorded = append(f.recorded, "candidate: "+text)
	return nil
}

func (f *fakeTranscripts) RecordInterviewer(_ context.Context, _, text, _ string, _ models.MessageType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recorded = append(f.recorded, "interviewer: "+text)
	return nil
}

func (f *fakeTranscripts) PublishStatus(_ context.Context, _, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, status)
	return nil
}

func (f *fakeTranscripts) Snapshot(context.Context, string) (*models.TranscriptionBuffer, error) {
	return nil, nil
}

func (f *fakeTranscripts) Subscribe(context.Context, string) *redis.PubSub { return nil }

func newTestCache(t *testing.T) (cache.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return cache.NewRedisCache(rdb), mr
}

const testUser = "8a0a4a8e-3f5c-4d8f-9d4c-1d1f6f2f9b10"

// seedInterview stores a resume, a valid job and a pending session with the given questions.
func seedInterview(db *memDB, questions ...string) *models.InterviewSession {
	now := time.Now().UTC()
	resume := models.Resume{ID: "resume-1", UserID: testUser, ParsedText: demoResumeText, CreatedAt: now}
	job := models.JobDescription{
		ID: "job-1", UserID: testUser, ExtractedContent: demoJobText, JobTitle: "Backend Engineer",
		CompanyName: "Acme", IsValid: true, CreatedAt: now,
	}
	sess := models.InterviewSession{
		ID: "session-1", UserID: testUser, ResumeID: resume.ID, JobDescriptionID: job.ID,
		Difficulty: "medium", InterviewType: "mixed", QuestionCount: len(questions),
		Status: models.SessionPending, CreatedAt: now, UpdatedAt: now,
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	db.resumes[resume.ID] = resume
	db.jobs[job.ID] = job
	db.sessions[sess.ID] = sess
	for i, q := range questions {
		db.questions[sess.ID] = append(db.questions[sess.ID], models.InterviewQuestion{
			ID: "q-" + strings.Repeat("x", i+1), SessionID: sess.ID, QuestionText: q, QuestionOrder: i + 1,
		})
	}
	return &sess
}
