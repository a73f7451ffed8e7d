package analysis

type ResponseAnalysis struct {
	Question            string   `json:"question"`
	Answer              string   `json:"answer"`
	QuestionType        string   `json:"question_type"`
	QualityScore        int      `json:"quality_score"`
	Strengths           []string `json:"strengths"`
	Weaknesses          []string `json:"weaknesses"`
	Suggestions         []string `json:"suggestions"`
	KeywordAlignment    []string `json:"keyword_alignment"`
	MissedOpportunities []string `json:"missed_opportunities"`
	Degraded            bool     `json:"degraded,omitempty"`
}

type ResumeAnalysis struct {
	UtilizationScore     int      `json:"utilization_score"`
	SkillsMentioned      []string `json:"skills_mentioned"`
	SkillsMissed         []string `json:"skills_missed"`
	ExperiencesMentioned []string `json:"experiences_mentioned"`
	ExperiencesMissed    []string `json:"experiences_missed"`
	Summary              string   `json:"summary"`
}

type JobFitAnalysis struct {
	FitScore            int      `json:"fit_score"`
	RequirementsCovered []string `json:"requirements_covered"`
	RequirementsMissed  []string `json:"requirements_missed"`
	KeywordMatches      []string `json:"keyword_matches"`
	Summary             string   `json:"summary"`
}

type PreparationAnalysis struct {
	PreparationScore    int      `json:"preparation_score"`
	ProblemSolvingScore int      `json:"problem_solving_score"`
	ResearchEvidence    []string `json:"research_evidence"`
	Gaps                []string `json:"gaps"`
	Summary             string   `json:"summary"`
}

type Coaching struct {
	CommunicationScore int      `json:"communication_score"`
	ContentScore       int      `json:"content_score"`
	ConfidenceScore    int      `json:"confidence_score"`
	OverallFeedback    string   `json:"overall_feedback"`
	Strengths          []string `json:"strengths"`
	Improvements       []string `json:"improvements"`
	NextSteps          []string `json:"next_steps"`
}
