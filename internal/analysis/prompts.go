package analysis

import (
	"encoding/json"
	"fmt"
	"strings"
)

const maxContextChars = 6000

const responseSchema = `{
  "type": "object",
  "required": ["quality_score"],
  "properties": {
    "quality_score": {"type": "integer", "minimum": 0, "maximum": 100},
    "strengths": {"type": "array", "items": {"type": "string"}},
    "weaknesses": {"type": "array", "items": {"type": "string"}},
    "suggestions": {"type": "array", "items": {"type": "string"}},
    "keyword_alignment": {"type": "array", "items": {"type": "string"}},
    "missed_opportunities": {"type": "array", "items": {"type": "string"}}
  }
}`

const resumeSchema = `{
  "type": "object",
  "required": ["utilization_score"],
  "properties": {
    "utilization_score": {"type": "integer", "minimum": 0, "maximum": 100},
    "skills_mentioned": {"type": "array", "items": {"type": "string"}},
    "skills_missed": {"type": "array", "items": {"type": "string"}},
    "experiences_mentioned": {"type": "array", "items": {"type": "string"}},
    "experiences_missed": {"type": "array", "items": {"type": "string"}},
    "summary": {"type": "string"}
  }
}`

const jobFitSchema = `{
  "type": "object",
  "required": ["fit_score"],
  "properties": {
    "fit_score": {"type": "integer", "minimum": 0, "maximum": 100},
    "requirements_covered": {"type": "array", "items": {"type": "string"}},
    "requirements_missed": {"type": "array", "items": {"type": "string"}},
    "keyword_matches": {"type": "array", "items": {"type": "string"}},
    "summary": {"type": "string"}
  }
}`

const preparationSchema = `{
  "type": "object",
  "required": ["preparation_score"],
  "properties": {
    "preparation_score": {"type": "integer", "minimum": 0, "maximum": 100},
    "problem_solving_score": {"type": "integer", "minimum": 0, "maximum": 100},
    "research_evidence": {"type": "array", "items": {"type": "string"}},
    "gaps": {"type": "array", "items": {"type": "string"}},
    "summary": {"type": "string"}
  }
}`

const coachingSchema = `{
  "type": "object",
  "required": ["communication_score", "content_score", "confidence_score", "overall_feedback"],
  "properties": {
    "communication_score": {"type": "integer", "minimum": 0, "maximum": 100},
    "content_score": {"type": "integer", "minimum": 0, "maximum": 100},
    "confidence_score": {"type": "integer", "minimum": 0, "maximum": 100},
    "overall_feedback": {"type": "string", "minLength": 1},
    "strengths": {"type": "array", "items": {"type": "string"}},
    "improvements": {"type": "array", "items": {"type": "string"}},
    "next_steps": {"type": "array", "items": {"type": "string"}}
  }
}`

func clip(s string, n int) string {
	s = strings.TrimSpace(s)
	if r := []rune(s); len(r) > n {
		return string(r[:n]) + "..."
	}
	return s
}

func roleLine(in Input) string {
	switch {
	case in.JobTitle != "" && in.Company != "":
		return fmt.Sprintf("%s at %s", in.JobTitle, in.Company)
	case in.JobTitle != "":
		return in.JobTitle
	default:
		return "the target role"
	}
}

func responsePrompt(in Input, p Pair) string {
	return fmt.Sprintf(`You are an expert interview coach evaluating one answer from a %s %s mock interview for %s.

Job description:
%s

Question (%s): %s
Candidate answer: %s

Score the answer from 0 to 100 and return ONLY a JSON object:
{"quality_score": 0, "strengths": [], "weaknesses": [], "suggestions": [], "keyword_alignment": [], "missed_opportunities": []}`,
		in.Difficulty, in.InterviewType, roleLine(in),
		clip(in.JobText, maxContextChars/2),
		p.QuestionType, p.Question, p.Answer)
}

func resumePrompt(in Input, transcript string) string {
	return fmt.Sprintf(`Compare what the candidate said in the interview with their resume. Identify which skills and experiences from the resume they used and which they failed to mention.

Resume:
%s

Candidate transcript:
%s

Return ONLY a JSON object:
{"utilization_score": 0, "skills_mentioned": [], "skills_missed": [], "experiences_mentioned": [], "experiences_missed": [], "summary": ""}`,
		clip(in.ResumeText, maxContextChars), clip(transcript, maxContextChars))
}

func jobFitPrompt(in Input, transcript string) string {
	return fmt.Sprintf(`Assess how well the candidate's interview answers demonstrate fit for %s.

Job description:
%s

Candidate transcript:
%s

Return ONLY a JSON object:
{"fit_score": 0, "requirements_covered": [], "requirements_missed": [], "keyword_matches": [], "summary": ""}`,
		roleLine(in), clip(in.JobText, maxContextChars), clip(transcript, maxContextChars))
}

func preparationPrompt(in Input, interviewerTurns []string, transcript string) string {
	asked := "(none)"
	if len(interviewerTurns) > 0 {
		asked = "- " + strings.Join(interviewerTurns, "\n- ")
	}
	return fmt.Sprintf(`Evaluate how well the candidate prepared for this interview for %s: evidence of company research, structured problem solving and prioritisation.

Interviewer prompts about preparation:
%s

Candidate transcript:
%s

Return ONLY a JSON object:
{"preparation_score": 0, "problem_solving_score": 0, "research_evidence": [], "gaps": [], "summary": ""}`,
		roleLine(in), clip(asked, maxContextChars), clip(transcript, maxContextChars))
}

func coachingPrompt(in Input, r *Result) string {
	digest := struct {
		Responses   []ResponseAnalysis  `json:"responses"`
		Resume      ResumeAnalysis      `json:"resume"`
		JobFit      JobFitAnalysis      `json:"job_fit"`
		Preparation PreparationAnalysis `json:"preparation"`
	}{r.Responses, r.Resume.Data, r.JobFit.Data, r.Preparation.Data}
	raw, _ := json.Marshal(digest)

	return fmt.Sprintf(`You are a supportive interview coach. Using the analysis below of a %s %s mock interview for %s, write overall coaching feedback.

Analysis:
%s

Return ONLY a JSON object:
{"communication_score": 0, "content_score": 0, "confidence_score": 0, "overall_feedback": "", "strengths": [], "improvements": [], "next_steps": []}`,
		in.Difficulty, in.InterviewType, roleLine(in), clip(string(raw), maxContextChars*2))
}
