package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// =============================================================================
// AUDIT EVENT TYPES
// =============================================================================

// AuditEventType names one kind of audit record.
type AuditEventType string

const (
	// Deck builds
	AuditBuildComplete AuditEventType = "build_complete"
	AuditBuildFailed   AuditEventType = "build_failed"

	// Store writes
	AuditPlanSaved         AuditEventType = "plan_saved"
	AuditEmployeesImported AuditEventType = "employees_imported"
)

// =============================================================================
// AUDIT EVENT STRUCTURE
// =============================================================================

// AuditEvent is one JSON line of the audit file.
type AuditEvent struct {
	Timestamp  int64                  `json:"ts"`               // Unix milliseconds
	EventType  AuditEventType         `json:"event"`            // What happened
	BuildID    string                 `json:"build,omitempty"`  // Build correlation
	Target     string                 `json:"target,omitempty"` // Incumbent employee id
	Success    bool                   `json:"success"`          // Operation succeeded
	DurationMs int64                  `json:"dur_ms,omitempty"` // Duration in milliseconds
	Error      string                 `json:"error,omitempty"`  // Error message if failed
	Message    string                 `json:"msg,omitempty"`    // Human-readable message
	Fields     map[string]interface{} `json:"fields,omitempty"` // Additional structured fields
}

// =============================================================================
// AUDIT LOGGER
// =============================================================================

var (
	auditFile *os.File
	auditMu   sync.Mutex
)

// AuditLogger writes audit events, optionally scoped to one build.
type AuditLogger struct {
	buildID string
}

// InitAudit opens (appending) the audit file. An empty path leaves auditing
// off; every AuditLogger method is then a no-op.
func InitAudit(path string) error {
	if path == "" {
		return nil
	}

	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile != nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create audit directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	auditFile = file
	return nil
}

// CloseAudit closes the audit file.
func CloseAudit() {
	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile != nil {
		auditFile.Close()
		auditFile = nil
	}
}

// Audit returns an unscoped audit logger.
func Audit() *AuditLogger {
	return &AuditLogger{}
}

// AuditWithBuild returns an audit logger scoped to a build.
func AuditWithBuild(buildID string) *AuditLogger {
	return &AuditLogger{buildID: buildID}
}

// =============================================================================
// AUDIT LOGGING METHODS
// =============================================================================

// Log writes an audit event.
func (a *AuditLogger) Log(event AuditEvent) {
	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile == nil {
		return
	}
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}
	if event.BuildID == "" {
		event.BuildID = a.buildID
	}

	data, err := json.Marshal(event)
	if err != nil {
		Get(CategoryBoot).Warnf("failed to encode audit event %s: %v", event.EventType, err)
		return
	}
	if _, err := auditFile.Write(append(data, '\n')); err != nil {
		Get(CategoryBoot).Warnf("failed to write audit event %s: %v", event.EventType, err)
	}
}

// BuildComplete records a finished deck.
func (a *AuditLogger) BuildComplete(incumbentID string, slides, successors, warnings int, duration time.Duration) {
	a.Log(AuditEvent{
		EventType:  AuditBuildComplete,
		Target:     incumbentID,
		Success:    true,
		DurationMs: duration.Milliseconds(),
		Message:    fmt.Sprintf("%d slides for %d successors", slides, successors),
		Fields: map[string]interface{}{
			"slides":     slides,
			"successors": successors,
			"warnings":   warnings,
		},
	})
}

// BuildFailed records a fatal build error.
func (a *AuditLogger) BuildFailed(incumbentID string, err error, duration time.Duration) {
	a.Log(AuditEvent{
		EventType:  AuditBuildFailed,
		Target:     incumbentID,
		Success:    false,
		DurationMs: duration.Milliseconds(),
		Error:      err.Error(),
	})
}

// PlanSaved records a plan written to the store.
func (a *AuditLogger) PlanSaved(incumbentID string, recordIDs []string) {
	a.Log(AuditEvent{
		EventType: AuditPlanSaved,
		Target:    incumbentID,
		Success:   true,
		Fields:    map[string]interface{}{"records": recordIDs},
	})
}

// EmployeesImported records a directory import.
func (a *AuditLogger) EmployeesImported(count int) {
	a.Log(AuditEvent{
		EventType: AuditEmployeesImported,
		Success:   true,
		Fields:    map[string]interface{}{"count": count},
	})
}
