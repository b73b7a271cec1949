package decompose

import (
	"regexp"
	"strings"
)

// ReviewDoc is a parsed review-tool checklist document
type ReviewDoc struct {
	Code       string // e.g. "APL 23-001"
	Title      string
	References string
	Criteria   []ReviewCriterion
}

// ReviewCriterion is one numbered checklist question
type ReviewCriterion struct {
	Label          string // checklist number, e.g. "1" or "2a"
	Question       string
	Reference      string // cited bulletin, e.g. "APL 23-001"
	Page           string
	ComplianceType string // must_state | must_do | must_have | must_ensure
}

var (
	reDocCode      = regexp.MustCompile(`(?i)APL\s*(\d{2}-\d{3})`)
	reDocTitle     = regexp.MustCompile(`(?i)SUBMISSION ITEM:\s*([^\n]+)`)
	reDocRefs      = regexp.MustCompile(`(?is)REFERENCES:\s*(.+?)(?:\n\n|$)`)
	// Anchored to line starts so page citations like "page 4)" don't split questions
	reQuestionNum  = regexp.MustCompile(`(?m)^\s*(\d+[a-z]?)\)`)
	reYesNo        = regexp.MustCompile(`(?i)(?:Yes|No)\s*(?:Citation:|$)`)
	reCitationLine = regexp.MustCompile(`(?i)Citation:[^\n]*(?:\n|$)`)
	reCriterionRef = regexp.MustCompile(`(?i)\(Reference:\s*APL\s*(\d+-\d+),\s*page\s*(\d+)\)`)

	questionForms = []*regexp.Regexp{
		regexp.MustCompile(`(?is)(Does\s+.+?\?)`),
		regexp.MustCompile(`(?is)(With regard to.+?Does.+?\?)`),
		regexp.MustCompile(`(?is)([A-Z].+?\?)`),
	}
)

// ParseReviewDoc extracts the document code, title and numbered checklist
// questions from a review-tool submission form. Absent fields stay empty;
// parsing never fails on malformed input
func (d *Decomposer) ParseReviewDoc(text string) ReviewDoc {
	rd := ReviewDoc{}

	if m := reDocCode.FindStringSubmatch(text); m != nil {
		rd.Code = "APL " + m[1]
	}
	if m := reDocTitle.FindStringSubmatch(text); m != nil {
		rd.Title = strings.TrimSpace(m[1])
	}
	if m := reDocRefs.FindStringSubmatch(text); m != nil {
		rd.References = strings.TrimSpace(m[1])
	}

	// Split on "N)" markers; each segment between markers is one question body
	marks := reQuestionNum.FindAllStringSubmatchIndex(text, -1)
	for k, m := range marks {
		label := text[m[2]:m[3]]
		end := len(text)
		if k+1 < len(marks) {
			end = marks[k+1][0]
		}
		body := cleanQuestionText(text[m[1]:end])
		if body == "" {
			continue
		}
		question := extractQuestion(body)
		if question == "" {
			continue
		}

		c := ReviewCriterion{
			Label:          label,
			Question:       question,
			ComplianceType: complianceType(question),
		}
		if rm := reCriterionRef.FindStringSubmatch(body); rm != nil {
			c.Reference = "APL " + rm[1]
			c.Page = rm[2]
		}
		rd.Criteria = append(rd.Criteria, c)
	}

	return rd
}

// AsCriteria converts parsed checklist questions into decomposition input
func (rd ReviewDoc) AsCriteria() []Criterion {
	out := make([]Criterion, 0, len(rd.Criteria))
	for _, c := range rd.Criteria {
		out = append(out, Criterion{Code: c.Label, Text: c.Question})
	}
	return out
}

func cleanQuestionText(s string) string {
	s = reYesNo.ReplaceAllString(s, "")
	s = reCitationLine.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), " ")
}

// extractQuestion pulls the interrogative out of a cleaned question body,
// falling back to the first sentence, then a bounded prefix
func extractQuestion(s string) string {
	for _, re := range questionForms {
		if m := re.FindStringSubmatch(s); m != nil {
			return strings.Join(strings.Fields(m[1]), " ")
		}
	}
	if i := strings.Index(s, "."); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return truncate(s, 500)
}

func complianceType(question string) string {
	q := strings.ToLower(question)
	switch {
	case strings.Contains(q, "indicate") || strings.Contains(q, "state"):
		return "must_state"
	case strings.Contains(q, "submit") || strings.Contains(q, "provide"):
		return "must_do"
	case strings.Contains(q, "maintain") || strings.Contains(q, "have"):
		return "must_have"
	case strings.Contains(q, "ensure"):
		return "must_ensure"
	}
	return "must_state"
}
