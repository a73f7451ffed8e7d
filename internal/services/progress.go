package services

import (
	"context"
	"errors"
	"math"

	"github.com/yoockh/mockinterview/internal/models"
	pgrepo "github.com/yoockh/mockinterview/internal/repositories/postgres"
	"github.com/yoockh/mockinterview/internal/utils"
)

const (
	defaultQuestionCount = 5
	// progress shown before the interviewer has spoken
	initialProgress = 20
)

type Progress struct {
	CurrentQuestion        int    `json:"currentQuestion"`
	TotalQuestions         int    `json:"totalQuestions"`
	Progress               int    `json:"progress"`
	MainQuestionsAsked     int    `json:"mainQuestionsAsked"`
	MainQuestionsCompleted int    `json:"mainQuestionsCompleted"`
	CurrentQuestionType    string `json:"currentQuestionType"`
	CurrentFollowupCount   int    `json:"currentFollowupCount"`
	FollowupLetter         string `json:"followupLetter"`
	TotalQuestionsAsked    int    `json:"totalQuestionsAsked"`
	IsClosing              bool   `json:"isClosing"`
}

// ComputeProgress derives interview progress from turns ordered by turn number.
func ComputeProgress(turns []models.ConversationTurn, total int) Progress {
	if total <= 0 {
		total = defaultQuestionCount
	}
	if len(turns) == 0 {
		return Progress{CurrentQuestion: 1, TotalQuestions: total, Progress: initialProgress}
	}

	var (
		mainAsked, followups, followupsSinceMain int
		lastInterviewer                          *models.ConversationTurn
	)
	for i := range turns {
		t := &turns[i]
		if t.Speaker != models.SpeakerInterviewer {
			continue
		}
		lastInterviewer = t
		switch t.MessageType {
		case models.MessageMainQuestion:
			mainAsked++
			followupsSinceMain = 0
		case models.MessageFollowUp:
			followups++
			followupsSinceMain++
		}
	}

	p := Progress{
		TotalQuestions:       total,
		MainQuestionsAsked:   mainAsked,
		CurrentFollowupCount: followupsSinceMain,
		FollowupLetter:       FollowupLetter(followupsSinceMain),
		TotalQuestionsAsked:  mainAsked + followups,
		CurrentQuestionType:  string(models.MessageMainQuestion),
	}
	if followupsSinceMain > 0 {
		p.CurrentQuestionType = string(models.MessageFollowUp)
	}

	p.CurrentQuestion = min(max(1, mainAsked), total)
	p.MainQuestionsCompleted = min(max(0, mainAsked-1), total)
	p.Progress = int(math.Round(float64(p.MainQuestionsCompleted) / float64(total) * 100))

	if lastInterviewer != nil && lastInterviewer.MessageType == models.MessageClosing {
		p.IsClosing = true
		p.CurrentQuestionType = string(models.MessageClosing)
		p.MainQuestionsCompleted = total
		p.CurrentQuestion = total
		p.Progress = 100
	}
	return p
}

// FollowupLetter renders 1 -> "a", 2 -> "b" and so on; 0 yields "".
func FollowupLetter(count int) string {
	if count <= 0 {
		return ""
	}
	if count > 26 {
		count = 26
	}
	return string(rune(97 + count - 1))
}

type ProgressService interface {
	Get(ctx context.Context, userID, sessionID string) (*Progress, error)
	// ForSession skips the ownership check; callers must have authorized the session.
	ForSession(ctx context.Context, sess *models.InterviewSession) (*Progress, error)
}

type progressService struct {
	sessions  pgrepo.SessionRepository
	questions pgrepo.QuestionRepository
	convos    pgrepo.ConversationRepo
}

func NewProgressService(sessions pgrepo.SessionRepository, questions pgrepo.QuestionRepository, convos pgrepo.ConversationRepo) ProgressService {
	return &progressService{sessions: sessions, questions: questions, convos: convos}
}

func (s *progressService) Get(ctx context.Context, userID, sessionID string) (*Progress, error) {
	const op = "ProgressService.Get"

	if userID == "" || sessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session id is required", nil)
	}

	sess, err := s.sessions.GetForUser(ctx, userID, sessionID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "interview not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load interview", err)
	}
	return s.ForSession(ctx, sess)
}

func (s *progressService) ForSession(ctx context.Context, sess *models.InterviewSession) (*Progress, error) {
	const op = "ProgressService.ForSession"

	n, err := s.questions.CountBySession(ctx, sess.ID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to count questions", err)
	}
	total := int(n)
	if total == 0 {
		total = sess.QuestionCount
	}

	turns, err := s.convos.ListBySession(ctx, sess.ID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load conversation", err)
	}

	p := ComputeProgress(turns, total)
	return &p, nil
}
