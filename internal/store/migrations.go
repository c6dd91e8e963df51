package store

import (
	"database/sql"
	"fmt"

	"succession/internal/logging"
)

// Migration adds one column to an existing table.
type Migration struct {
	Table  string
	Column string
	Def    string
}

// pendingMigrations lists columns added after the first schema. Databases
// created by older builds get them on open.
var pendingMigrations = []Migration{
	{"employees", "SEGMENT_HIER_LEVEL_2_NAME", "TEXT DEFAULT ''"},
	{"succession_plans", "ROLE_TYPE", "TEXT"},
	{"succession_plans", "NEW_POSITION_TITLE", "TEXT"},
	{"succession_plans", "FUTURE_READINESS_TIMING", "TEXT"},
	{"succession_plans", "SUCCESSOR_CONTRACT_END_DATE", "TEXT"},
}

// RunMigrations applies pending column migrations.
func RunMigrations(db *sql.DB) error {
	applied, skipped := 0, 0
	for _, m := range pendingMigrations {
		if !tableExists(db, m.Table) {
			logging.StoreDebug("table missing, skipping migration: %s.%s", m.Table, m.Column)
			skipped++
			continue
		}
		if columnExists(db, m.Table, m.Column) {
			skipped++
			continue
		}
		query := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", m.Table, m.Column, m.Def)
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("migration %s.%s: %w", m.Table, m.Column, err)
		}
		logging.Store("migration applied: added %s.%s", m.Table, m.Column)
		applied++
	}
	logging.StoreDebug("schema migrations complete: applied=%d, skipped=%d", applied, skipped)
	return nil
}

// columnExists checks a column with PRAGMA table_info.
func columnExists(db *sql.DB, table, column string) bool {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		logging.StoreDebug("PRAGMA table_info(%s) failed: %v", table, err)
		return false
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid, notnull, pk int
			name, ctype      string
			dflt             interface{}
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			continue
		}
		if name == column {
			return true
		}
	}
	return false
}

func tableExists(db *sql.DB, table string) bool {
	var count int
	query := "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?"
	if err := db.QueryRow(query, table).Scan(&count); err != nil {
		logging.StoreDebug("table existence check failed for %s: %v", table, err)
		return false
	}
	return count > 0
}
