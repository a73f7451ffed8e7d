package analysis

import (
	"strings"

	"github.com/yoockh/mockinterview/internal/models"
)

// Pair is one interviewer question and the candidate's answer to it.
type Pair struct {
	Question     string             `json:"question"`
	QuestionType models.MessageType `json:"question_type"`
	Answer       string             `json:"answer"`
	TurnNumber   int                `json:"turn_number"`
}

// BuildPairs walks turns in order. Each main_question or follow_up opens a pair; candidate
// responses accumulate into the open pair; a pair is kept only if it received an answer.
func BuildPairs(turns []models.ConversationTurn) []Pair {
	var (
		out     []Pair
		cur     *Pair
		answers []string
	)
	flush := func() {
		if cur != nil && cur.Question != "" && len(answers) > 0 {
			cur.Answer = strings.Join(answers, " ")
			out = append(out, *cur)
		}
		cur, answers = nil, nil
	}

	for _, t := range turns {
		switch {
		case t.IsInterviewerQuestion():
			flush()
			cur = &Pair{Question: strings.TrimSpace(t.Content), QuestionType: t.MessageType, TurnNumber: t.TurnNumber}
		case t.Speaker == models.SpeakerCandidate && t.MessageType == models.MessageResponse:
			if cur != nil {
				if a := strings.TrimSpace(t.Content); a != "" {
					answers = append(answers, a)
				}
			}
		}
	}
	flush()
	return out
}

// CandidateTranscript joins every candidate response in order.
func CandidateTranscript(turns []models.ConversationTurn) string {
	var b strings.Builder
	for _, t := range turns {
		if t.Speaker != models.SpeakerCandidate {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(strings.TrimSpace(t.Content))
	}
	return b.String()
}

var preparationKeywords = []string{"research", "challenge", "improvement", "priority", "opportunity"}

// PreparationContext returns the interviewer turns, of any message type and answered or not,
// that mention one of the preparation keywords.
func PreparationContext(turns []models.ConversationTurn) []string {
	var out []string
	for _, t := range turns {
		if t.Speaker != models.SpeakerInterviewer {
			continue
		}
		content := strings.TrimSpace(t.Content)
		lower := strings.ToLower(content)
		for _, kw := range preparationKeywords {
			if strings.Contains(lower, kw) {
				out = append(out, content)
				break
			}
		}
	}
	return out
}
