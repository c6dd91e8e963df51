package plan

import (
	"strings"
	"unicode/utf8"
)

// WrapWidth is the hard line length used when spreading long text over
// marker lines in a table cell.
const WrapWidth = 80

// Fallback texts used when a field is empty.
const (
	NotAvailable                = "N/A"
	ResponsibilitiesUnspecified = "Role responsibilities not specified"
)

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return NotAvailable
	}
	return s
}

// chosen reports whether a dropdown value carries a real selection.
func chosen(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && s != SelectSentinel
}

func joinSkills(skills []string, limit int) string {
	if limit > 0 && len(skills) > limit {
		skills = skills[:limit]
	}
	return strings.Join(skills, ", ")
}

// SourcingText renders the strategies, or N/A.
func (p IncumbentPlan) SourcingText() string {
	return orNA(p.SourcingStrategy.String())
}

// ScenarioText renders the scenario, or N/A.
func (p IncumbentPlan) ScenarioText() string {
	if !chosen(p.ScenarioPlan) {
		return NotAvailable
	}
	return p.ScenarioPlan
}

// ResponsibilitiesText returns the responsibilities or a fixed fallback.
func (p IncumbentPlan) ResponsibilitiesText() string {
	if strings.TrimSpace(p.Responsibilities) == "" {
		return ResponsibilitiesUnspecified
	}
	return p.Responsibilities
}

// DetailQueue is the ordered list of short lines stamped into the generic
// detail markers of the incumbent area: critical role, sourcing, scenario,
// then skills and PLE when present.
func (inc Incumbent) DetailQueue() []string {
	p := inc.Plan
	lines := []string{
		"Critical Role: " + yesNo(p.CriticalRole),
		"Sourcing Strategy: " + p.SourcingText(),
		"Scenario: " + p.ScenarioText(),
	}
	if len(p.TopSkills) > 0 {
		lines = append(lines, "Top Skills: "+joinSkills(p.TopSkills, 0))
	}
	if chosen(p.TopPLE) {
		lines = append(lines, "Top PLE: "+p.TopPLE)
	}
	return lines
}

// Summary is the multi-line role summary shown in the summary marker.
func (inc Incumbent) Summary() string {
	p := inc.Plan
	lines := []string{
		"INCUMBENT: " + inc.Person.FullName(),
		"Position: " + inc.Person.PositionTitle,
		"Critical Role: " + yesNo(p.CriticalRole),
		"Sourcing Strategy: " + p.SourcingText(),
		"Scenario: " + p.ScenarioText(),
	}
	if p.NewPositionTitle != "" {
		lines = append(lines, "New Position Title: "+p.NewPositionTitle)
	}
	if chosen(p.TopPLE) {
		lines = append(lines, "Top Demonstrated PLE: "+p.TopPLE)
	}
	if len(p.TopSkills) > 0 {
		lines = append(lines, "Top Skills: "+joinSkills(p.TopSkills, 0))
	}
	if chosen(p.RoleType) && p.RoleType != RoleTypeNotApplicable {
		lines = append(lines, "Role Type: "+p.RoleType)
	}
	if p.ContractEndDate != nil && !p.ContractEndDate.IsZero() {
		lines = append(lines, "Contract End Date: "+p.ContractEndDate.String())
	}
	if strings.TrimSpace(p.Responsibilities) != "" {
		lines = append(lines, "Responsibilities & Attributes: "+p.Responsibilities)
	}
	return strings.Join(lines, "\n")
}

// IdentityText is the header cell of a successor column.
func (s Successor) IdentityText() string {
	text := s.Person.FullName() + "\n" + s.Person.PositionTitle + "\nReadiness: " + s.Assessment.Readiness
	if s.Assessment.FutureReadinessTiming != "" {
		text += " (" + s.Assessment.FutureReadinessTiming + ")"
	}
	return text
}

// StrengthsText is the strengths body with a Skills line appended.
func (s Successor) StrengthsText() string {
	text := s.Assessment.Strengths
	if len(s.Assessment.TopSkills) > 0 {
		skills := "Skills: " + joinSkills(s.Assessment.TopSkills, MaxTopSkills)
		if text == "" {
			return skills
		}
		text += "\n" + skills
	}
	return text
}

// DevelopmentText is the development focus body.
func (s Successor) DevelopmentText() string {
	return s.Assessment.DevelopmentFocus
}

// ActionsText is the talent actions body.
func (s Successor) ActionsText() string {
	return s.Assessment.TalentActions
}

// WrapLines splits text on newlines and greedily word-wraps every line
// longer than width runes. A word longer than width stays whole on its own
// line. Empty text yields no lines.
func WrapLines(text string, width int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if utf8.RuneCountInString(line) <= width {
			out = append(out, line)
			continue
		}
		out = append(out, wrapLine(line, width)...)
	}
	return out
}

func wrapLine(line string, width int) []string {
	var (
		lines   []string
		current string
		curLen  int
	)
	for _, word := range strings.Fields(line) {
		wl := utf8.RuneCountInString(word)
		switch {
		case curLen == 0:
			current, curLen = word, wl
		case curLen+1+wl <= width:
			current += " " + word
			curLen += 1 + wl
		default:
			lines = append(lines, current)
			current, curLen = word, wl
		}
	}
	if curLen > 0 {
		lines = append(lines, current)
	}
	return lines
}
