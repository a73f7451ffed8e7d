package jobpost

import (
	"strings"
	"unicode/utf8"
)

// MinContentChars is the shortest text that can pass validation.
const MinContentChars = 100

// MinCategories is how many keyword categories must match.
const MinCategories = 2

type Category string

const (
	CategoryRole             Category = "role"
	CategoryResponsibilities Category = "responsibilities"
	CategoryRequirements     Category = "requirements"
	CategoryTeam             Category = "team"
	CategoryCompensation     Category = "compensation"
)

var categoryKeywords = []struct {
	cat      Category
	keywords []string
}{
	{CategoryRole, []string{"position", "role", "job title", "we are looking for", "we're looking for", "hiring", "seeking"}},
	{CategoryResponsibilities, []string{"responsibilities", "responsible for", "you will", "you'll", "duties", "day-to-day", "what you'll do"}},
	{CategoryRequirements, []string{"requirements", "qualifications", "experience with", "years of experience", "skills", "must have", "degree in"}},
	{CategoryTeam, []string{"our team", "the team", "about us", "our company", "culture", "collaborate", "mission"}},
	{CategoryCompensation, []string{"salary", "compensation", "benefits", "equity", "bonus", "paid time off", "401k", "health insurance"}},
}

type Validation struct {
	Valid   bool       `json:"valid"`
	Matched []Category `json:"matched"`
	Message string     `json:"message,omitempty"`
	Length  int        `json:"length"`
}

// Validate decides whether content looks like a real job posting.
func Validate(content string) Validation {
	content = strings.TrimSpace(content)
	n := utf8.RuneCountInString(content)
	if n < MinContentChars {
		return Validation{
			Length:  n,
			Message: "The job description is too short. Paste the full posting text manually.",
		}
	}

	lower := strings.ToLower(content)
	var matched []Category
	for _, ck := range categoryKeywords {
		for _, kw := range ck.keywords {
			if strings.Contains(lower, kw) {
				matched = append(matched, ck.cat)
				break
			}
		}
	}

	v := Validation{Length: n, Matched: matched, Valid: len(matched) >= MinCategories}
	if !v.Valid {
		v.Message = "We couldn't read a job posting from that page. Paste the job description text manually."
	}
	return v
}
