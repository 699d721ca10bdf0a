package dto

import (
	"time"

	"github.com/civiclens/civiclens-api/internal/models"
)

// VerdictResponse is the public view of a stored audit verdict.
type VerdictResponse struct {
	ReportID         string    `json:"report_id"`
	MatchedProjectID string    `json:"matched_project_id"`
	RiskLevel        string    `json:"risk_level"`
	Discrepancies    []string  `json:"discrepancies"`
	Reasoning        string    `json:"reasoning"`
	ConfidenceScore  float64   `json:"confidence_score"`
	Degraded         bool      `json:"degraded"`
	AuditedAt        time.Time `json:"audited_at"`
}

// NewVerdictResponse maps a verdict model to its response shape.
func NewVerdictResponse(verdict models.AuditVerdict) VerdictResponse {
	return VerdictResponse{
		ReportID:         verdict.ReportID,
		MatchedProjectID: verdict.MatchedProjectID,
		RiskLevel:        verdict.RiskLevel,
		Discrepancies:    verdict.DiscrepancyList(),
		Reasoning:        verdict.Reasoning,
		ConfidenceScore:  verdict.ConfidenceScore,
		Degraded:         verdict.IsDegraded(),
		AuditedAt:        verdict.UpdatedAt,
	}
}
