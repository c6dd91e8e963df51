package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"succession/internal/logging"
	"succession/internal/plan"

	"github.com/google/uuid"
)

const insertPlanRow = `INSERT INTO succession_plans (
	RECORD_ID,
	INCUMBENT_EMPLOYEE_ID, INCUMBENT_FIRST_NAME, INCUMBENT_LAST_NAME, INCUMBENT_EMAIL,
	INCUMBENT_POSITION, INCUMBENT_MANAGEMENT_LEVEL, INCUMBENT_JOB_LEVEL, INCUMBENT_SEGMENT,
	CRITICAL_ROLE, RESPONSIBILITIES, INCUMBENT_TOP_SKILLS, INCUMBENT_TOP_PLE,
	INCUMBENT_CONTRACT_END_DATE, SOURCING_STRATEGY, ROLE_TYPE, SCENARIO_PLAN, NEW_POSITION_TITLE,
	SUCCESSOR_EMPLOYEE_ID, SUCCESSOR_FIRST_NAME, SUCCESSOR_LAST_NAME, SUCCESSOR_EMAIL,
	SUCCESSOR_POSITION, SUCCESSOR_MANAGEMENT_LEVEL, SUCCESSOR_JOB_LEVEL, SUCCESSOR_SEGMENT,
	READINESS, FUTURE_READINESS_TIMING, SUCCESSOR_CONTRACT_END_DATE, STRENGTHS,
	SUCCESSOR_TOP_SKILLS, SUCCESSOR_TOP_PLE, DEVELOPMENT_FOCUS, TALENT_ACTIONS,
	CREATED_AT
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func jsonList(list []string) (string, error) {
	if list == nil {
		list = []string{}
	}
	b, err := json.Marshal(list)
	return string(b), err
}

func nullDate(d *plan.Date) interface{} {
	if d == nil || d.IsZero() {
		return nil
	}
	return d.String()
}

func parseDate(ns sql.NullString) *plan.Date {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	d, err := plan.ParseDate(ns.String)
	if err != nil {
		logging.StoreDebug("ignoring stored date %q: %v", ns.String, err)
		return nil
	}
	return &d
}

func parseList(ns sql.NullString) []string {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	var list []string
	if err := json.Unmarshal([]byte(ns.String), &list); err != nil {
		logging.StoreDebug("ignoring stored list %q: %v", ns.String, err)
		return nil
	}
	return list
}

// SavePlan writes one row per successor in a single transaction and returns
// the generated record ids in successor order.
func (s *LocalStore) SavePlan(in plan.Input) ([]string, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	inc, ip := in.Incumbent.Person, in.Incumbent.Plan
	incSkills, err := jsonList(ip.TopSkills)
	if err != nil {
		return nil, err
	}
	sourcing, err := jsonList(ip.SourcingStrategy)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(insertPlanRow)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare plan insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	ids := make([]string, 0, len(in.Successors))
	for _, succ := range in.Successors {
		sp, a := succ.Person, succ.Assessment
		skills, err := jsonList(a.TopSkills)
		if err != nil {
			return nil, err
		}
		id := uuid.NewString()
		_, err = stmt.Exec(id,
			inc.EmployeeID, inc.FirstName, inc.LastName, inc.Email,
			inc.PositionTitle, inc.ManagementLevel, inc.JobLevel, inc.OrgSegment,
			ip.CriticalRole, ip.Responsibilities, incSkills, ip.TopPLE,
			nullDate(ip.ContractEndDate), sourcing, ip.RoleType, ip.ScenarioPlan, ip.NewPositionTitle,
			sp.EmployeeID, sp.FirstName, sp.LastName, sp.Email,
			sp.PositionTitle, sp.ManagementLevel, sp.JobLevel, sp.OrgSegment,
			a.Readiness, a.FutureReadinessTiming, nullDate(a.ContractEndDate), a.Strengths,
			skills, a.TopPLE, a.DevelopmentFocus, a.TalentActions,
			now)
		if err != nil {
			return nil, fmt.Errorf("failed to save plan row for successor %s: %w", sp.EmployeeID, err)
		}
		ids = append(ids, id)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit plan: %w", err)
	}
	logging.Store("saved plan for incumbent %s: %d rows", inc.EmployeeID, len(ids))
	logging.Audit().PlanSaved(inc.EmployeeID, ids)
	return ids, nil
}

// LatestIncumbentPlan returns the most recently saved plan for an incumbent,
// or ErrNotFound.
func (s *LocalStore) LatestIncumbentPlan(employeeID string) (*plan.IncumbentPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		p                                   plan.IncumbentPlan
		critical                            bool
		resp, ple, role, scenario, newTitle sql.NullString
		skills, contract, sourcing          sql.NullString
	)
	err := s.db.QueryRow(`SELECT CRITICAL_ROLE, RESPONSIBILITIES, INCUMBENT_TOP_SKILLS, INCUMBENT_TOP_PLE,
			INCUMBENT_CONTRACT_END_DATE, SOURCING_STRATEGY, ROLE_TYPE, SCENARIO_PLAN, NEW_POSITION_TITLE
		FROM succession_plans WHERE INCUMBENT_EMPLOYEE_ID = ?
		ORDER BY CREATED_AT DESC, rowid DESC LIMIT 1`, employeeID).
		Scan(&critical, &resp, &skills, &ple, &contract, &sourcing, &role, &scenario, &newTitle)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("incumbent plan for %s: %w", employeeID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load incumbent plan for %s: %w", employeeID, err)
	}

	p.CriticalRole = critical
	p.Responsibilities = resp.String
	p.TopSkills = parseList(skills)
	p.TopPLE = ple.String
	p.ContractEndDate = parseDate(contract)
	p.SourcingStrategy = plan.ParseSourcingStrategy(sourcing.String)
	p.RoleType = role.String
	p.ScenarioPlan = scenario.String
	p.NewPositionTitle = newTitle.String
	return &p, nil
}

// LatestSuccessorAssessment returns the most recent assessment of a person
// as a successor, or ErrNotFound.
func (s *LocalStore) LatestSuccessorAssessment(employeeID string) (*plan.SuccessorAssessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		a                                      plan.SuccessorAssessment
		readiness, timing, contract, strengths sql.NullString
		skills, ple, development, actions      sql.NullString
	)
	err := s.db.QueryRow(`SELECT READINESS, FUTURE_READINESS_TIMING, SUCCESSOR_CONTRACT_END_DATE, STRENGTHS,
			SUCCESSOR_TOP_SKILLS, SUCCESSOR_TOP_PLE, DEVELOPMENT_FOCUS, TALENT_ACTIONS
		FROM succession_plans WHERE SUCCESSOR_EMPLOYEE_ID = ?
		ORDER BY CREATED_AT DESC, rowid DESC LIMIT 1`, employeeID).
		Scan(&readiness, &timing, &contract, &strengths, &skills, &ple, &development, &actions)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("successor assessment for %s: %w", employeeID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load successor assessment for %s: %w", employeeID, err)
	}

	a.Readiness = readiness.String
	a.FutureReadinessTiming = timing.String
	a.ContractEndDate = parseDate(contract)
	a.Strengths = strengths.String
	a.TopSkills = parseList(skills)
	a.TopPLE = ple.String
	a.DevelopmentFocus = development.String
	a.TalentActions = actions.String
	return &a, nil
}

// Prefill returns the latest stored values for an incumbent and for each of
// the given successor ids. Missing history is not an error; those entries
// are simply absent.
func (s *LocalStore) Prefill(incumbentID string, successorIDs []string) (*plan.IncumbentPlan, map[string]*plan.SuccessorAssessment, error) {
	inc, err := s.LatestIncumbentPlan(incumbentID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, nil, err
	}
	assessments := make(map[string]*plan.SuccessorAssessment, len(successorIDs))
	for _, id := range successorIDs {
		a, err := s.LatestSuccessorAssessment(id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		assessments[id] = a
	}
	return inc, assessments, nil
}
