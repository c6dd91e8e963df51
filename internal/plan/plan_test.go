package plan

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePerson(id, first, last, title string) Person {
	return Person{EmployeeID: id, FirstName: first, LastName: last, PositionTitle: title}
}

func sampleInput() Input {
	return Input{
		Incumbent: Incumbent{
			Person: samplePerson("100", "Ada", "Lovelace", "VP Engineering"),
			Plan: IncumbentPlan{
				CriticalRole:     true,
				Responsibilities: "Owns the analytical engine roadmap",
				TopSkills:        []string{"Collaborates", "Courage", "Business Insight"},
				TopPLE:           "Demonstrate Care and Compassion",
				SourcingStrategy: SourcingStrategy{"Build (Internal hire)", "External"},
				ScenarioPlan:     "Direct Backfill",
			},
		},
		Successors: []Successor{{
			Person: samplePerson("200", "Grace", "Hopper", "Director"),
			Assessment: SuccessorAssessment{
				Readiness: "Ready Now",
				Strengths: "Compilers",
				TopSkills: []string{"Collaborates"},
			},
		}},
	}
}

func TestSourcingStrategy_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want SourcingStrategy
	}{
		{"list", `["Build (Internal hire)","External"]`, SourcingStrategy{"Build (Internal hire)", "External"}},
		{"single string", `"External"`, SourcingStrategy{"External"}},
		{"legacy json string", `"[\"External\"]"`, SourcingStrategy{"External"}},
		{"sentinel", `"-- Select an Option --"`, nil},
		{"null", `null`, nil},
		{"empty", `""`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got SourcingStrategy
			require.NoError(t, json.Unmarshal([]byte(tt.in), &got))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSourcingStrategy_RejectsObject(t *testing.T) {
	var got SourcingStrategy
	assert.Error(t, json.Unmarshal([]byte(`{"a":1}`), &got))
}

func TestDecode_YAMLAndJSONForms(t *testing.T) {
	yamlDoc := `
incumbent:
  metadata:
    EMPLOYEE_ID: "100"
    PREFERRED_NAME_FIRST_NAME: Ada
    PREFERRED_NAME_LAST_NAME: Lovelace
  plan_details:
    critical_role: true
    sourcing_strategy: External
    scenario_plan: Direct Backfill
    contract_end_date: "2027-03-31"
successors:
  - metadata:
      EMPLOYEE_ID: "200"
      PREFERRED_NAME_FIRST_NAME: Grace
      PREFERRED_NAME_LAST_NAME: Hopper
    assessment:
      readiness: Ready Future
      future_readiness_timing: "+1 to < 2 years"
`
	in, err := Decode([]byte(yamlDoc))
	require.NoError(t, err)
	assert.Equal(t, SourcingStrategy{"External"}, in.Incumbent.Plan.SourcingStrategy)
	require.NotNil(t, in.Incumbent.Plan.ContractEndDate)
	assert.Equal(t, "2027-03-31", in.Incumbent.Plan.ContractEndDate.String())
	require.Len(t, in.Successors, 1)
	assert.Equal(t, "+1 to < 2 years", in.Successors[0].Assessment.FutureReadinessTiming)

	jsonDoc, err := json.Marshal(sampleInput())
	require.NoError(t, err)
	fromJSON, err := Decode(jsonDoc)
	require.NoError(t, err)
	if diff := cmp.Diff(sampleInput(), *fromJSON); diff != "" {
		t.Errorf("json round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_UnknownField(t *testing.T) {
	_, err := Decode([]byte("incumbent:\n  bogus: 1\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	require.NoError(t, sampleInput().Validate())

	in := sampleInput()
	in.Successors = nil
	in.Incumbent.Person.LastName = ""
	in.Incumbent.Plan.TopSkills = []string{"a", "b", "c", "d"}
	in.Incumbent.Plan.NewPositionTitle = "Chief Engine Officer"

	err := in.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	fields := make([]string, 0, len(verr.Problems))
	for _, p := range verr.Problems {
		fields = append(fields, p.Field)
	}
	assert.ElementsMatch(t, []string{
		"incumbent.metadata.PREFERRED_NAME_LAST_NAME",
		"incumbent.plan_details.top_skills",
		"incumbent.plan_details.new_position_title",
		"successors",
	}, fields)
}

func TestValidate_FutureTimingRequiresReadyFuture(t *testing.T) {
	in := sampleInput()
	in.Successors[0].Assessment.FutureReadinessTiming = "+2 to < 3 years"
	err := in.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "successors[0].assessment.future_readiness_timing")

	in.Successors[0].Assessment.Readiness = ReadinessFuture
	assert.NoError(t, in.Validate())
}

func TestPersonIDs_Distinct(t *testing.T) {
	in := sampleInput()
	in.Successors = append(in.Successors, in.Successors[0], Successor{Person: samplePerson("300", "Alan", "Turing", "")})
	assert.Equal(t, []string{"100", "200", "300"}, in.PersonIDs())
}

func TestDetailQueue(t *testing.T) {
	in := sampleInput()
	want := []string{
		"Critical Role: Yes",
		"Sourcing Strategy: Build (Internal hire), External",
		"Scenario: Direct Backfill",
		"Top Skills: Collaborates, Courage, Business Insight",
		"Top PLE: Demonstrate Care and Compassion",
	}
	assert.Equal(t, want, in.Incumbent.DetailQueue())

	in.Incumbent.Plan = IncumbentPlan{TopPLE: SelectSentinel}
	assert.Equal(t, []string{
		"Critical Role: No",
		"Sourcing Strategy: N/A",
		"Scenario: N/A",
	}, in.Incumbent.DetailQueue())
}

func TestSummary(t *testing.T) {
	in := sampleInput()
	in.Incumbent.Plan.ScenarioPlan = ScenarioSplitPosition
	in.Incumbent.Plan.NewPositionTitle = "Head of Engines"
	in.Incumbent.Plan.RoleType = RoleTypeNotApplicable

	lines := strings.Split(in.Incumbent.Summary(), "\n")
	assert.Equal(t, "INCUMBENT: Ada Lovelace", lines[0])
	assert.Equal(t, "Position: VP Engineering", lines[1])
	assert.Contains(t, lines, "New Position Title: Head of Engines")
	assert.Contains(t, lines, "Responsibilities & Attributes: Owns the analytical engine roadmap")
	for _, l := range lines {
		assert.NotContains(t, l, "Role Type")
	}
}

func TestIdentityText(t *testing.T) {
	s := sampleInput().Successors[0]
	assert.Equal(t, "Grace Hopper\nDirector\nReadiness: Ready Now", s.IdentityText())

	s.Assessment.Readiness = ReadinessFuture
	s.Assessment.FutureReadinessTiming = "+1 to < 2 years"
	assert.Equal(t, "Grace Hopper\nDirector\nReadiness: Ready Future (+1 to < 2 years)", s.IdentityText())
}

func TestStrengthsText(t *testing.T) {
	s := sampleInput().Successors[0]
	assert.Equal(t, "Compilers\nSkills: Collaborates", s.StrengthsText())

	s.Assessment.Strengths = ""
	s.Assessment.TopSkills = []string{"a", "b", "c", "d"}
	assert.Equal(t, "Skills: a, b, c", s.StrengthsText())

	s.Assessment.TopSkills = nil
	assert.Equal(t, "", s.StrengthsText())
}

func TestWrapLines_LongSingleLine(t *testing.T) {
	words := make([]string, 0, 50)
	for len(strings.Join(words, " ")) < 250 {
		words = append(words, "strength")
	}
	text := strings.Join(words, " ")[:250]
	text = strings.TrimSpace(text)

	lines := WrapLines(text, WrapWidth)
	require.Greater(t, len(lines), 1)
	for _, l := range lines {
		assert.LessOrEqual(t, len(l), WrapWidth)
	}
	assert.Equal(t, text, strings.Join(lines, " "))
}

func TestWrapLines_Cases(t *testing.T) {
	long := strings.Repeat("x", 90)
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"blank", "   ", nil},
		{"short", "hello", []string{"hello"}},
		{"multi line kept", "a\nb", []string{"a", "b"}},
		{"overlong word kept whole", long, []string{long}},
		{"second line wrapped", "short\n" + strings.Repeat("word ", 20), []string{
			"short",
			strings.TrimSpace(strings.Repeat("word ", 16)),
			strings.TrimSpace(strings.Repeat("word ", 4)),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, WrapLines(tt.in, WrapWidth)); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
