package analysis

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoockh/mockinterview/internal/logger"
)

func sampleInput() Input {
	return Input{
		SessionID:     "s1",
		Turns:         sampleTurns(),
		ResumeText:    "Go engineer, 5 years.",
		JobText:       "Backend engineer role.",
		JobTitle:      "Backend Engineer",
		Company:       "Acme",
		Difficulty:    "medium",
		InterviewType: "mixed",
	}
}

func TestAnalyzer_AllStepsFailUseDefaults(t *testing.T) {
	fake := failingLLM()
	res := NewAnalyzer(fake, logger.Discard()).Run(context.Background(), sampleInput())

	require.Len(t, res.Responses, 3)
	for _, r := range res.Responses {
		assert.Equal(t, DefaultQualityScore, r.QualityScore)
		assert.True(t, r.Degraded)
		assert.NotEmpty(t, r.Question)
	}
	assert.Equal(t, DefaultUtilizationScore, res.Resume.Data.UtilizationScore)
	assert.Equal(t, DefaultFitScore, res.JobFit.Data.FitScore)
	assert.Equal(t, DefaultPreparationScore, res.Preparation.Data.PreparationScore)
	assert.Equal(t, DefaultCommunicationScore, res.Coaching.Data.CommunicationScore)
	assert.NotEmpty(t, res.Coaching.Data.OverallFeedback)
	assert.NotEmpty(t, res.Coaching.Data.NextSteps)

	assert.True(t, res.Degraded())
	assert.Len(t, res.DegradedReasons, 3+3+1)
	// (75+75+75+70)/4 = 73.75
	assert.Equal(t, 74, res.OverallScore())
	// 3 responses + resume + job fit + preparation + coaching
	assert.EqualValues(t, 7, fake.calls.Load())
}

func TestAnalyzer_ModelAnswers(t *testing.T) {
	res := NewAnalyzer(scriptedLLM(), logger.Discard()).Run(context.Background(), sampleInput())

	assert.False(t, res.Degraded(), "reasons: %v", res.DegradedReasons)
	require.Len(t, res.Responses, 3)
	assert.Equal(t, 88, res.Responses[0].QualityScore)
	assert.Equal(t, []string{"clear"}, res.Responses[0].Strengths)
	assert.Equal(t, "Tell me about yourself.", res.Responses[0].Question)
	assert.Equal(t, 60, res.Resume.Data.UtilizationScore)
	assert.Equal(t, 81, res.JobFit.Data.FitScore)
	assert.Equal(t, 64, res.Preparation.Data.PreparationScore)
	assert.Equal(t, "Solid.", res.Coaching.Data.OverallFeedback)
	// (80+90+70+64)/4 = 76
	assert.Equal(t, 76, res.OverallScore())
}

func TestAnalyzer_UnparseableOutputDegrades(t *testing.T) {
	fake := &fakeLLM{respond: func(string) (string, error) { return `{"fit_score": "high"}`, nil }}
	res := NewAnalyzer(fake, logger.Discard()).Run(context.Background(), sampleInput())

	assert.True(t, res.JobFit.Degraded)
	assert.Equal(t, "model output could not be parsed", res.JobFit.Reason)
	assert.Equal(t, DefaultFitScore, res.JobFit.Data.FitScore)
}

func TestOverallScore(t *testing.T) {
	assert.Equal(t, 80, OverallScore(80, 80, 80, 80))
	assert.Equal(t, 63, OverallScore(50, 60, 70, 70)) // 62.5 rounds half away from zero
	assert.Equal(t, 0, OverallScore(0, 0, 0, 0))
}

func TestAnalyzer_KeepsZeroProblemSolvingScore(t *testing.T) {
	fake := scriptedLLM()
	scripted := fake.respond
	fake.respond = func(p string) (string, error) {
		if strings.Contains(p, `"preparation_score"`) && !strings.Contains(p, `"communication_score"`) {
			return `{"preparation_score": 40, "problem_solving_score": 0}`, nil
		}
		return scripted(p)
	}
	res := NewAnalyzer(fake, logger.Discard()).Run(context.Background(), sampleInput())

	assert.False(t, res.Preparation.Degraded)
	assert.Equal(t, 40, res.Preparation.Data.PreparationScore)
	assert.Equal(t, 0, res.Preparation.Data.ProblemSolvingScore)
}

func TestAnalyzer_OmittedProblemSolvingKeepsDefault(t *testing.T) {
	fake := scriptedLLM()
	scripted := fake.respond
	fake.respond = func(p string) (string, error) {
		if strings.Contains(p, `"preparation_score"`) && !strings.Contains(p, `"communication_score"`) {
			return `{"preparation_score": 40}`, nil
		}
		return scripted(p)
	}
	res := NewAnalyzer(fake, logger.Discard()).Run(context.Background(), sampleInput())

	assert.False(t, res.Preparation.Degraded)
	assert.Equal(t, DefaultProblemSolving, res.Preparation.Data.ProblemSolvingScore)
}

func TestAnalyzer_PreparationPromptUsesKeywordTurns(t *testing.T) {
	var prompt string
	fake := scriptedLLM()
	scripted := fake.respond
	var mu sync.Mutex
	fake.respond = func(p string) (string, error) {
		if strings.Contains(p, `"preparation_score"`) && !strings.Contains(p, `"communication_score"`) {
			mu.Lock()
			prompt = p
			mu.Unlock()
		}
		return scripted(p)
	}
	NewAnalyzer(fake, logger.Discard()).Run(context.Background(), sampleInput())

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, prompt, "- What was your biggest challenge?")
	assert.NotContains(t, prompt, "Why this company?")
	assert.Contains(t, prompt, "Scaling a queue.")
}
