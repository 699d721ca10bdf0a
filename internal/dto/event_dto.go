package dto

import "time"

// Audit event outcomes published on the live feed.
const (
	AuditOutcomeCompleted = "completed"
	AuditOutcomeFailed    = "failed"
)

// AuditEvent is broadcast whenever an audit run terminates.
type AuditEvent struct {
	ReportID         string    `json:"report_id"`
	MatchedProjectID string    `json:"matched_project_id,omitempty"`
	RiskLevel        string    `json:"risk_level,omitempty"`
	Outcome          string    `json:"outcome"`
	Reason           string    `json:"reason,omitempty"`
	OccurredAt       time.Time `json:"occurred_at"`
}
