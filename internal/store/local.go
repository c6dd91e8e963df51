// Package store persists the people directory and submitted succession
// plans in SQLite. One row of succession_plans holds one incumbent ×
// successor pair, so a plan with three successors is three rows written in
// one transaction.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"succession/internal/logging"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// DefaultSearchLimit caps SearchEmployees when no limit is given.
const DefaultSearchLimit = 50

// LocalStore is the SQLite-backed people and plan store.
type LocalStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// NewLocalStore opens or creates the database at path. ":memory:" opens a
// private in-memory database.
func NewLocalStore(path string) (*LocalStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A second pooled connection to ":memory:" would see an empty database.
	db.SetMaxOpenConns(1)

	store := &LocalStore{db: db, dbPath: path}
	if err := store.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	logging.Store("opened store at %s", path)
	return store, nil
}

// initialize creates the required tables and brings older files up to date.
func (s *LocalStore) initialize() error {
	employeeTable := `
	CREATE TABLE IF NOT EXISTS employees (
		EMPLOYEE_ID TEXT PRIMARY KEY,
		PREFERRED_NAME_FIRST_NAME TEXT NOT NULL,
		PREFERRED_NAME_LAST_NAME TEXT NOT NULL,
		EMAIL_PRIMARY_WORK TEXT DEFAULT '',
		POSITION_NBR_DESCRIPTION TEXT DEFAULT '',
		MANAGEMENT_LEVEL TEXT DEFAULT '',
		JOB_LEVEL TEXT DEFAULT '',
		SEGMENT_HIER_LEVEL_2_NAME TEXT DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_employees_last_name ON employees(PREFERRED_NAME_LAST_NAME);
	`

	planTable := `
	CREATE TABLE IF NOT EXISTS succession_plans (
		RECORD_ID TEXT PRIMARY KEY,
		INCUMBENT_EMPLOYEE_ID TEXT NOT NULL,
		INCUMBENT_FIRST_NAME TEXT,
		INCUMBENT_LAST_NAME TEXT,
		INCUMBENT_EMAIL TEXT,
		INCUMBENT_POSITION TEXT,
		INCUMBENT_MANAGEMENT_LEVEL TEXT,
		INCUMBENT_JOB_LEVEL TEXT,
		INCUMBENT_SEGMENT TEXT,
		CRITICAL_ROLE INTEGER DEFAULT 0,
		RESPONSIBILITIES TEXT,
		INCUMBENT_TOP_SKILLS TEXT,
		INCUMBENT_TOP_PLE TEXT,
		INCUMBENT_CONTRACT_END_DATE TEXT,
		SOURCING_STRATEGY TEXT,
		ROLE_TYPE TEXT,
		SCENARIO_PLAN TEXT,
		NEW_POSITION_TITLE TEXT,
		SUCCESSOR_EMPLOYEE_ID TEXT NOT NULL,
		SUCCESSOR_FIRST_NAME TEXT,
		SUCCESSOR_LAST_NAME TEXT,
		SUCCESSOR_EMAIL TEXT,
		SUCCESSOR_POSITION TEXT,
		SUCCESSOR_MANAGEMENT_LEVEL TEXT,
		SUCCESSOR_JOB_LEVEL TEXT,
		SUCCESSOR_SEGMENT TEXT,
		READINESS TEXT,
		FUTURE_READINESS_TIMING TEXT,
		SUCCESSOR_CONTRACT_END_DATE TEXT,
		STRENGTHS TEXT,
		SUCCESSOR_TOP_SKILLS TEXT,
		SUCCESSOR_TOP_PLE TEXT,
		DEVELOPMENT_FOCUS TEXT,
		TALENT_ACTIONS TEXT,
		CREATED_AT TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_plans_incumbent ON succession_plans(INCUMBENT_EMPLOYEE_ID, CREATED_AT);
	CREATE INDEX IF NOT EXISTS idx_plans_successor ON succession_plans(SUCCESSOR_EMPLOYEE_ID, CREATED_AT);
	`

	for _, table := range []string{employeeTable, planTable} {
		if _, err := s.db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return RunMigrations(s.db)
}

// Path returns the database location.
func (s *LocalStore) Path() string {
	return s.dbPath
}

// Close closes the database connection.
func (s *LocalStore) Close() error {
	return s.db.Close()
}
