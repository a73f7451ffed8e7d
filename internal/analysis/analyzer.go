// Package analysis turns a finished interview conversation into scored coaching feedback.
package analysis

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/yoockh/mockinterview/internal/models"
	"github.com/yoockh/mockinterview/internal/providers/llm"
)

type Input struct {
	SessionID     string
	Turns         []models.ConversationTurn
	ResumeText    string
	JobText       string
	JobTitle      string
	Company       string
	Difficulty    string
	InterviewType string
}

type Result struct {
	Pairs       []Pair
	Responses   []ResponseAnalysis
	Resume      Outcome[ResumeAnalysis]
	JobFit      Outcome[JobFitAnalysis]
	Preparation Outcome[PreparationAnalysis]
	Coaching    Outcome[Coaching]

	// DegradedReasons names every step that fell back to defaults.
	DegradedReasons []string
}

func (r *Result) Degraded() bool { return len(r.DegradedReasons) > 0 }

// OverallScore is the unweighted mean of communication, content, confidence and preparation.
func (r *Result) OverallScore() int {
	return OverallScore(
		r.Coaching.Data.CommunicationScore,
		r.Coaching.Data.ContentScore,
		r.Coaching.Data.ConfidenceScore,
		r.Preparation.Data.PreparationScore,
	)
}

func OverallScore(communication, content, confidence, preparation int) int {
	return int(math.Round(float64(communication+content+confidence+preparation) / 4))
}

type Analyzer struct {
	llm         llm.Provider
	log         *logrus.Logger
	stepTimeout time.Duration
	parallelism int
}

func NewAnalyzer(provider llm.Provider, log *logrus.Logger) *Analyzer {
	return &Analyzer{llm: provider, log: log, stepTimeout: 90 * time.Second, parallelism: 4}
}

// Run never fails: every step that cannot reach the model or parse its answer contributes
// documented defaults and a reason instead.
func (a *Analyzer) Run(ctx context.Context, in Input) *Result {
	res := &Result{Pairs: BuildPairs(in.Turns)}
	transcript := CandidateTranscript(in.Turns)

	var (
		mu      sync.Mutex
		reasons []string
	)
	note := func(reason string) {
		mu.Lock()
		reasons = append(reasons, reason)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		res.Responses = a.analyzeResponses(gctx, in, res.Pairs, note)
		return nil
	})
	g.Go(func() error {
		res.Resume = step(gctx, a, in.SessionID, "resume", resumePrompt(in, transcript), resumeSchema, defaultResume())
		return nil
	})
	g.Go(func() error {
		res.JobFit = step(gctx, a, in.SessionID, "job_fit", jobFitPrompt(in, transcript), jobFitSchema, defaultJobFit())
		return nil
	})
	g.Go(func() error {
		res.Preparation = step(gctx, a, in.SessionID, "preparation", preparationPrompt(in, PreparationContext(in.Turns), transcript), preparationSchema, defaultPreparation())
		return nil
	})
	_ = g.Wait()

	for _, o := range []struct {
		name     string
		degraded bool
		reason   string
	}{
		{"resume", res.Resume.Degraded, res.Resume.Reason},
		{"job_fit", res.JobFit.Degraded, res.JobFit.Reason},
		{"preparation", res.Preparation.Degraded, res.Preparation.Reason},
	} {
		if o.degraded {
			note(o.name + ": " + o.reason)
		}
	}

	res.Coaching = step(ctx, a, in.SessionID, "coaching", coachingPrompt(in, res), coachingSchema, defaultCoaching())
	if res.Coaching.Degraded {
		note("coaching: " + res.Coaching.Reason)
	}

	res.DegradedReasons = reasons
	return res
}

func (a *Analyzer) analyzeResponses(ctx context.Context, in Input, pairs []Pair, note func(string)) []ResponseAnalysis {
	out := make([]ResponseAnalysis, len(pairs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.parallelism)

	for i, p := range pairs {
		g.Go(func() error {
			o := step(gctx, a, in.SessionID, fmt.Sprintf("response_%d", i+1), responsePrompt(in, p), responseSchema, defaultResponse(p))
			ra := o.Data
			ra.Question, ra.Answer, ra.QuestionType = p.Question, p.Answer, string(p.QuestionType)
			ra.Degraded = o.Degraded
			if o.Degraded {
				note(fmt.Sprintf("response %d: %s", i+1, o.Reason))
			}
			out[i] = ra
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// step runs one prompt and decodes the schema-checked answer over a copy of fallback, so
// fields the model omits keep their default values.
func step[T any](ctx context.Context, a *Analyzer, sessionID, name, prompt, schema string, fallback T) Outcome[T] {
	ctx, cancel := context.WithTimeout(ctx, a.stepTimeout)
	defer cancel()

	entry := a.log.WithFields(logrus.Fields{"session_id": sessionID, "step": name})

	text, err := a.llm.Generate(ctx, prompt)
	if err != nil {
		entry.WithError(err).Warn("analysis step failed, using defaults")
		return Degraded(fallback, "model call failed")
	}

	data := fallback
	if err := llm.DecodeValidated(text, schema, &data); err != nil {
		entry.WithError(err).Warn("analysis step returned unusable output, using defaults")
		return Degraded(fallback, "model output could not be parsed")
	}
	return Analyzed(data)
}
