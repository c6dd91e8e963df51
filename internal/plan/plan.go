// Package plan holds the succession plan data shapes handed to the deck
// builder: people, the incumbent's plan, successor assessments, and the
// validation that separates a buildable plan from a fatal input error.
package plan

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// SelectSentinel is the "nothing chosen" option of every dropdown in the
// entry form. It is never rendered into a deck.
const SelectSentinel = "-- Select an Option --"

// Scenario and readiness values that gate optional fields.
const (
	ScenarioSplitPosition = "Split Position/New Position"
	ReadinessFuture       = "Ready Future"
	RoleTypeNotApplicable = "Not Applicable"
)

// MaxTopSkills is the number of leadership skills a plan may name.
const MaxTopSkills = 3

// Person is an employee record as fetched from the people directory.
// Field names on the wire follow the directory's column names.
type Person struct {
	EmployeeID      string `json:"EMPLOYEE_ID" yaml:"EMPLOYEE_ID"`
	FirstName       string `json:"PREFERRED_NAME_FIRST_NAME" yaml:"PREFERRED_NAME_FIRST_NAME"`
	LastName        string `json:"PREFERRED_NAME_LAST_NAME" yaml:"PREFERRED_NAME_LAST_NAME"`
	Email           string `json:"EMAIL_PRIMARY_WORK,omitempty" yaml:"EMAIL_PRIMARY_WORK,omitempty"`
	PositionTitle   string `json:"POSITION_NBR_DESCRIPTION,omitempty" yaml:"POSITION_NBR_DESCRIPTION,omitempty"`
	ManagementLevel string `json:"MANAGEMENT_LEVEL,omitempty" yaml:"MANAGEMENT_LEVEL,omitempty"`
	JobLevel        string `json:"JOB_LEVEL,omitempty" yaml:"JOB_LEVEL,omitempty"`
	OrgSegment      string `json:"SEGMENT_HIER_LEVEL_2_NAME,omitempty" yaml:"SEGMENT_HIER_LEVEL_2_NAME,omitempty"`
}

// FullName returns "First Last".
func (p Person) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// IncumbentPlan is the plan entered for the role holder.
type IncumbentPlan struct {
	CriticalRole     bool             `json:"critical_role" yaml:"critical_role"`
	Responsibilities string           `json:"responsibilities" yaml:"responsibilities"`
	TopSkills        []string         `json:"top_skills" yaml:"top_skills"`
	TopPLE           string           `json:"top_ple" yaml:"top_ple"`
	ContractEndDate  *Date            `json:"contract_end_date,omitempty" yaml:"contract_end_date,omitempty"`
	SourcingStrategy SourcingStrategy `json:"sourcing_strategy" yaml:"sourcing_strategy"`
	RoleType         string           `json:"role_type,omitempty" yaml:"role_type,omitempty"`
	ScenarioPlan     string           `json:"scenario_plan" yaml:"scenario_plan"`
	NewPositionTitle string           `json:"new_position_title,omitempty" yaml:"new_position_title,omitempty"`
}

// SuccessorAssessment is the assessment entered for one successor.
type SuccessorAssessment struct {
	Readiness             string   `json:"readiness" yaml:"readiness"`
	FutureReadinessTiming string   `json:"future_readiness_timing,omitempty" yaml:"future_readiness_timing,omitempty"`
	ContractEndDate       *Date    `json:"contract_end_date,omitempty" yaml:"contract_end_date,omitempty"`
	Strengths             string   `json:"strengths" yaml:"strengths"`
	TopSkills             []string `json:"top_skills" yaml:"top_skills"`
	TopPLE                string   `json:"top_ple" yaml:"top_ple"`
	DevelopmentFocus      string   `json:"development_focus" yaml:"development_focus"`
	TalentActions         string   `json:"talent_actions" yaml:"talent_actions"`
}

// Incumbent pairs the role holder with their plan.
type Incumbent struct {
	Person Person        `json:"metadata" yaml:"metadata"`
	Plan   IncumbentPlan `json:"plan_details" yaml:"plan_details"`
}

// Successor pairs a candidate with their assessment.
type Successor struct {
	Person     Person              `json:"metadata" yaml:"metadata"`
	Assessment SuccessorAssessment `json:"assessment" yaml:"assessment"`
}

// Input is one succession plan: an incumbent and an ordered list of
// successors. Successor order is the column order in the deck.
type Input struct {
	Incumbent  Incumbent   `json:"incumbent" yaml:"incumbent"`
	Successors []Successor `json:"successors" yaml:"successors"`
}

// PersonIDs returns the incumbent id followed by every successor id, with
// duplicates removed and first-seen order kept.
func (in Input) PersonIDs() []string {
	seen := make(map[string]bool, len(in.Successors)+1)
	ids := make([]string, 0, len(in.Successors)+1)
	add := func(id string) {
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		ids = append(ids, id)
	}
	add(in.Incumbent.Person.EmployeeID)
	for _, s := range in.Successors {
		add(s.Person.EmployeeID)
	}
	return ids
}

// =============================================================================
// SOURCING STRATEGY
// =============================================================================

// SourcingStrategy is the list of talent sourcing strategies. Older
// submissions stored a single string, sometimes a JSON-encoded list, so
// both forms decode into the same value.
type SourcingStrategy []string

// String joins the strategies with ", ".
func (s SourcingStrategy) String() string {
	return strings.Join(s, ", ")
}

// ParseSourcingStrategy normalises the legacy single-string form.
func ParseSourcingStrategy(raw string) SourcingStrategy {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == SelectSentinel {
		return nil
	}
	if strings.HasPrefix(raw, "[") {
		var list []string
		if err := json.Unmarshal([]byte(raw), &list); err == nil {
			return cleanStrategies(list)
		}
	}
	return SourcingStrategy{raw}
}

func cleanStrategies(list []string) SourcingStrategy {
	var out SourcingStrategy
	for _, item := range list {
		item = strings.TrimSpace(item)
		if item == "" || item == SelectSentinel {
			continue
		}
		out = append(out, item)
	}
	return out
}

// UnmarshalJSON accepts a string, a list of strings, or null.
func (s *SourcingStrategy) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*s = nil
		return nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return fmt.Errorf("sourcing_strategy: %w", err)
		}
		*s = cleanStrategies(list)
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return fmt.Errorf("sourcing_strategy: expected string or list: %w", err)
	}
	*s = ParseSourcingStrategy(single)
	return nil
}

// UnmarshalYAML accepts a scalar or a sequence.
func (s *SourcingStrategy) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return fmt.Errorf("sourcing_strategy: %w", err)
		}
		*s = cleanStrategies(list)
		return nil
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			*s = nil
			return nil
		}
		*s = ParseSourcingStrategy(node.Value)
		return nil
	default:
		return fmt.Errorf("sourcing_strategy: expected string or list at line %d", node.Line)
	}
}

// =============================================================================
// DATE
// =============================================================================

// DateLayout is the wire form of a Date.
const DateLayout = "2006-01-02"

// Date is a calendar date without time of day.
type Date struct {
	time.Time
}

// ParseDate parses YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

// String renders YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date: %w", err)
	}
	if strings.TrimSpace(s) == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

func (d *Date) UnmarshalYAML(node *yaml.Node) error {
	if node.Tag == "!!null" || strings.TrimSpace(node.Value) == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(node.Value)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
