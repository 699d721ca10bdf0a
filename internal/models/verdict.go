package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// RiskLevel tokens stored on an audit verdict. Unknown is reserved for runs
// that could not complete normally and always pairs with a zero confidence.
const (
	RiskLevelLow     = "Low"
	RiskLevelMedium  = "Medium"
	RiskLevelHigh    = "High"
	RiskLevelUnknown = "Unknown"
)

// AuditVerdict is the stored outcome of one audit run, keyed 1:1 by report.
type AuditVerdict struct {
	ReportID         string            `gorm:"primaryKey;size:36" json:"report_id"`
	MatchedProjectID string            `gorm:"size:36;not null;index" json:"matched_project_id"`
	RiskLevel        string            `gorm:"size:16;not null" json:"risk_level"`
	Discrepancies    datatypes.JSON    `gorm:"type:json" json:"discrepancies"`
	Reasoning        string            `gorm:"type:text" json:"reasoning"`
	ConfidenceScore  float64           `gorm:"not null" json:"confidence_score"`
	Provider         string            `gorm:"size:32" json:"provider"`
	Raw              datatypes.JSONMap `gorm:"type:json" json:"raw,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// IsDegraded reports whether the verdict is the Unknown fallback written after
// a failed run rather than a genuine model judgement.
func (v AuditVerdict) IsDegraded() bool {
	return v.RiskLevel == RiskLevelUnknown
}

// DiscrepancyList decodes the stored discrepancy array. An empty or malformed
// column decodes to an empty slice rather than an error.
func (v AuditVerdict) DiscrepancyList() []string {
	if len(v.Discrepancies) == 0 {
		return []string{}
	}
	var items []string
	if err := json.Unmarshal(v.Discrepancies, &items); err != nil {
		return []string{}
	}
	return items
}

// EncodeDiscrepancies marshals a discrepancy slice for storage. A nil slice is
// stored as an empty array so readers always see valid JSON.
func EncodeDiscrepancies(items []string) datatypes.JSON {
	if items == nil {
		items = []string{}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return datatypes.JSON([]byte("[]"))
	}
	return datatypes.JSON(payload)
}

// IsKnownRiskLevel reports whether the token is one of the four verdict enums.
func IsKnownRiskLevel(level string) bool {
	switch level {
	case RiskLevelLow, RiskLevelMedium, RiskLevelHigh, RiskLevelUnknown:
		return true
	}
	return false
}
