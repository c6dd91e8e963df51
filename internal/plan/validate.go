package plan

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidInput is matched by every ValidationError.
var ErrInvalidInput = errors.New("invalid succession plan input")

// FieldError is one problem with one field.
type FieldError struct {
	Field   string `json:"field"`
	Problem string `json:"problem"`
}

func (e FieldError) String() string {
	return e.Field + ": " + e.Problem
}

// ValidationError lists every problem found in an Input.
type ValidationError struct {
	Problems []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		parts[i] = p.String()
	}
	return fmt.Sprintf("%s: %s", ErrInvalidInput, strings.Join(parts, "; "))
}

// Is reports ErrInvalidInput so callers can use errors.Is.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

func (e *ValidationError) add(field, problem string) {
	e.Problems = append(e.Problems, FieldError{Field: field, Problem: problem})
}

// Validate checks the fields the deck builder cannot work without.
// Presentation-only fields (strengths, responsibilities, ...) may be empty.
func (in Input) Validate() error {
	verr := &ValidationError{}

	validatePerson(verr, "incumbent.metadata", in.Incumbent.Person)
	validateSkills(verr, "incumbent.plan_details.top_skills", in.Incumbent.Plan.TopSkills)
	if in.Incumbent.Plan.NewPositionTitle != "" && in.Incumbent.Plan.ScenarioPlan != ScenarioSplitPosition {
		verr.add("incumbent.plan_details.new_position_title",
			fmt.Sprintf("only allowed when scenario_plan is %q", ScenarioSplitPosition))
	}

	if len(in.Successors) == 0 {
		verr.add("successors", "at least one successor is required")
	}
	for i, s := range in.Successors {
		prefix := fmt.Sprintf("successors[%d]", i)
		validatePerson(verr, prefix+".metadata", s.Person)
		validateSkills(verr, prefix+".assessment.top_skills", s.Assessment.TopSkills)
		if s.Assessment.FutureReadinessTiming != "" && s.Assessment.Readiness != ReadinessFuture {
			verr.add(prefix+".assessment.future_readiness_timing",
				fmt.Sprintf("only allowed when readiness is %q", ReadinessFuture))
		}
	}

	if len(verr.Problems) > 0 {
		return verr
	}
	return nil
}

func validatePerson(verr *ValidationError, prefix string, p Person) {
	if strings.TrimSpace(p.EmployeeID) == "" {
		verr.add(prefix+".EMPLOYEE_ID", "required")
	}
	if strings.TrimSpace(p.FirstName) == "" {
		verr.add(prefix+".PREFERRED_NAME_FIRST_NAME", "required")
	}
	if strings.TrimSpace(p.LastName) == "" {
		verr.add(prefix+".PREFERRED_NAME_LAST_NAME", "required")
	}
}

func validateSkills(verr *ValidationError, field string, skills []string) {
	if len(skills) > MaxTopSkills {
		verr.add(field, fmt.Sprintf("at most %d skills, got %d", MaxTopSkills, len(skills)))
	}
}
