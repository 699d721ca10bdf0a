package dto

// RecentAudit is one row in the dashboard's recent activity list.
type RecentAudit struct {
	ReportID         string  `json:"report_id"`
	MatchedProjectID string  `json:"matched_project_id"`
	RiskLevel        string  `json:"risk_level"`
	ConfidenceScore  float64 `json:"confidence_score"`
}

// DashboardResponse aggregates city-level audit activity.
type DashboardResponse struct {
	ReportsByStatus   map[string]int64 `json:"reports_by_status"`
	VerdictsByRisk    map[string]int64 `json:"verdicts_by_risk"`
	AverageConfidence float64          `json:"average_confidence"`
	ProjectsIndexed   int              `json:"projects_indexed"`
	RecentAudits      []RecentAudit    `json:"recent_audits"`
}
