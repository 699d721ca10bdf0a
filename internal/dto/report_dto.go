package dto

import (
	"time"

	"github.com/civiclens/civiclens-api/internal/models"
)

// ReportSubmitRequest carries the multipart fields of a citizen submission.
// The image arrives as a separate multipart file part.
type ReportSubmitRequest struct {
	Lat     float64 `json:"lat" validate:"min=-90,max=90"`
	Lng     float64 `json:"lng" validate:"min=-180,max=180"`
	Notes   string  `json:"notes" validate:"max=2000"`
	UserRef string  `json:"user_ref" validate:"omitempty,max=64"`
}

// ReportResponse is the public view of a citizen report.
type ReportResponse struct {
	ID          string    `json:"id"`
	SubmittedAt time.Time `json:"submitted_at"`
	Lat         float64   `json:"lat"`
	Lng         float64   `json:"lng"`
	EvidenceURL string    `json:"evidence_url"`
	Notes       string    `json:"notes,omitempty"`
	UserRef     string    `json:"user_ref,omitempty"`
	Status      string    `json:"status"`
	Anonymous   bool      `json:"anonymous"`
}

// NewReportResponse maps a report model to its response shape.
func NewReportResponse(report models.CitizenReport) ReportResponse {
	userRef := ""
	if report.UserRef != nil {
		userRef = *report.UserRef
	}

	return ReportResponse{
		ID:          report.ID,
		SubmittedAt: report.SubmittedAt,
		Lat:         report.Lat,
		Lng:         report.Lng,
		EvidenceURL: report.EvidenceURL,
		Notes:       report.EvidenceNotes,
		UserRef:     userRef,
		Status:      report.Status,
		Anonymous:   report.IsAnonymous(),
	}
}

// NewReportResponseSlice maps a slice of report models.
func NewReportResponseSlice(reports []models.CitizenReport) []ReportResponse {
	responses := make([]ReportResponse, 0, len(reports))
	for _, report := range reports {
		responses = append(responses, NewReportResponse(report))
	}
	return responses
}
