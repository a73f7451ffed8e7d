package analysis

const (
	DefaultQualityScore       = 75
	DefaultUtilizationScore   = 70
	DefaultFitScore           = 75
	DefaultPreparationScore   = 70
	DefaultProblemSolving     = 70
	DefaultCommunicationScore = 75
	DefaultContentScore       = 75
	DefaultConfidenceScore    = 75
)

func defaultResponse(p Pair) ResponseAnalysis {
	return ResponseAnalysis{
		Question:            p.Question,
		Answer:              p.Answer,
		QuestionType:        string(p.QuestionType),
		QualityScore:        DefaultQualityScore,
		Strengths:           []string{"Answered the question directly"},
		Weaknesses:          []string{"Could include more specific examples"},
		Suggestions:         []string{"Use the STAR method to structure the answer"},
		KeywordAlignment:    []string{},
		MissedOpportunities: []string{},
		Degraded:            true,
	}
}

func defaultResume() ResumeAnalysis {
	return ResumeAnalysis{
		UtilizationScore:     DefaultUtilizationScore,
		SkillsMentioned:      []string{},
		SkillsMissed:         []string{},
		ExperiencesMentioned: []string{},
		ExperiencesMissed:    []string{},
		Summary:              "Resume utilization could not be analyzed in detail.",
	}
}

func defaultJobFit() JobFitAnalysis {
	return JobFitAnalysis{
		FitScore:            DefaultFitScore,
		RequirementsCovered: []string{},
		RequirementsMissed:  []string{},
		KeywordMatches:      []string{},
		Summary:             "Job fit could not be analyzed in detail.",
	}
}

func defaultPreparation() PreparationAnalysis {
	return PreparationAnalysis{
		PreparationScore:    DefaultPreparationScore,
		ProblemSolvingScore: DefaultProblemSolving,
		ResearchEvidence:    []string{},
		Gaps:                []string{},
		Summary:             "Preparation could not be analyzed in detail.",
	}
}

func defaultCoaching() Coaching {
	return Coaching{
		CommunicationScore: DefaultCommunicationScore,
		ContentScore:       DefaultContentScore,
		ConfidenceScore:    DefaultConfidenceScore,
		OverallFeedback:    "You completed the interview. Review each answer below and focus on adding concrete examples and measurable results.",
		Strengths:          []string{"Completed the full interview"},
		Improvements:       []string{"Add specific examples with measurable outcomes"},
		NextSteps:          []string{"Practice answering with the STAR method", "Research the company before your next interview"},
	}
}
