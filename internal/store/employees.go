package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"succession/internal/logging"
	"succession/internal/plan"
)

const employeeColumns = `EMPLOYEE_ID, PREFERRED_NAME_FIRST_NAME, PREFERRED_NAME_LAST_NAME,
	EMAIL_PRIMARY_WORK, POSITION_NBR_DESCRIPTION, MANAGEMENT_LEVEL, JOB_LEVEL,
	SEGMENT_HIER_LEVEL_2_NAME`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanPerson(row scanner) (plan.Person, error) {
	var (
		p                                  plan.Person
		email, title, mgmt, level, segment sql.NullString
	)
	err := row.Scan(&p.EmployeeID, &p.FirstName, &p.LastName, &email, &title, &mgmt, &level, &segment)
	p.Email = email.String
	p.PositionTitle = title.String
	p.ManagementLevel = mgmt.String
	p.JobLevel = level.String
	p.OrgSegment = segment.String
	return p, err
}

// SearchEmployees returns people whose last name contains lastName,
// case-insensitively, ordered by last then first name. limit <= 0 uses
// DefaultSearchLimit.
func (s *LocalStore) SearchEmployees(lastName string, limit int) ([]plan.Person, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	pattern := "%" + likeEscaper.Replace(strings.TrimSpace(lastName)) + "%"
	rows, err := s.db.Query(`SELECT `+employeeColumns+` FROM employees
		WHERE PREFERRED_NAME_LAST_NAME LIKE ? ESCAPE '\'
		ORDER BY PREFERRED_NAME_LAST_NAME COLLATE NOCASE, PREFERRED_NAME_FIRST_NAME COLLATE NOCASE
		LIMIT ?`, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search employees: %w", err)
	}
	defer rows.Close()

	var people []plan.Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		people = append(people, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	logging.StoreDebug("employee search %q: %d results", lastName, len(people))
	return people, nil
}

// GetEmployee returns one person by id, or ErrNotFound.
func (s *LocalStore) GetEmployee(id string) (*plan.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`SELECT `+employeeColumns+` FROM employees WHERE EMPLOYEE_ID = ?`, id)
	p, err := scanPerson(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("employee %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get employee %s: %w", id, err)
	}
	return &p, nil
}

// UpsertEmployee inserts or replaces a person.
func (s *LocalStore) UpsertEmployee(p plan.Person) error {
	_, err := s.ImportEmployees([]plan.Person{p})
	return err
}

// ImportEmployees upserts people in one transaction and returns how many
// were written. Rows without an employee id or name are rejected.
func (s *LocalStore) ImportEmployees(people []plan.Person) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO employees (` + employeeColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(EMPLOYEE_ID) DO UPDATE SET
			PREFERRED_NAME_FIRST_NAME = excluded.PREFERRED_NAME_FIRST_NAME,
			PREFERRED_NAME_LAST_NAME = excluded.PREFERRED_NAME_LAST_NAME,
			EMAIL_PRIMARY_WORK = excluded.EMAIL_PRIMARY_WORK,
			POSITION_NBR_DESCRIPTION = excluded.POSITION_NBR_DESCRIPTION,
			MANAGEMENT_LEVEL = excluded.MANAGEMENT_LEVEL,
			JOB_LEVEL = excluded.JOB_LEVEL,
			SEGMENT_HIER_LEVEL_2_NAME = excluded.SEGMENT_HIER_LEVEL_2_NAME`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for i, p := range people {
		if strings.TrimSpace(p.EmployeeID) == "" || strings.TrimSpace(p.FirstName) == "" || strings.TrimSpace(p.LastName) == "" {
			return 0, fmt.Errorf("employee %d: id, first and last name are required", i+1)
		}
		if _, err := stmt.Exec(p.EmployeeID, p.FirstName, p.LastName, p.Email, p.PositionTitle,
			p.ManagementLevel, p.JobLevel, p.OrgSegment); err != nil {
			return 0, fmt.Errorf("failed to upsert employee %s: %w", p.EmployeeID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit employees: %w", err)
	}
	logging.Store("imported %d employees", len(people))
	logging.Audit().EmployeesImported(len(people))
	return len(people), nil
}
