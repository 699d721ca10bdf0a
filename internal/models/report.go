package models

import "time"

// ReportStatus enumerates the lifecycle of a citizen report.
//
// The audit pipeline only ever performs the Pending -> Audited transition;
// Verified, Resolved and Rejected belong to human reviewers and must never be
// overwritten by automated runs.
const (
	ReportStatusPending  = "Pending"
	ReportStatusAudited  = "Audited"
	ReportStatusVerified = "Verified"
	ReportStatusResolved = "Resolved"
	ReportStatusRejected = "Rejected"
)

// CitizenReport is a single evidence submission from a citizen.
type CitizenReport struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	SubmittedAt    time.Time `gorm:"not null" json:"submitted_at"`
	Lat            float64   `gorm:"not null" json:"lat"`
	Lng            float64   `gorm:"not null" json:"lng"`
	EvidenceURL    string    `gorm:"size:1024;not null" json:"evidence_url"`
	EvidenceSHA256 string    `gorm:"size:64" json:"evidence_sha256"`
	EvidenceNotes  string    `gorm:"type:text" json:"evidence_notes"`
	UserRef        *string   `gorm:"size:64" json:"user_ref,omitempty"`
	Status         string    `gorm:"size:16;not null;index" json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// IsAnonymous reports whether the submission carries no user reference.
func (r CitizenReport) IsAnonymous() bool {
	return r.UserRef == nil || *r.UserRef == ""
}

// IsKnownReportStatus reports whether the status is one of the lifecycle enums.
func IsKnownReportStatus(status string) bool {
	switch status {
	case ReportStatusPending, ReportStatusAudited, ReportStatusVerified, ReportStatusResolved, ReportStatusRejected:
		return true
	}
	return false
}
