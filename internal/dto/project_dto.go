package dto

import "github.com/civiclens/civiclens-api/internal/models"

// ProjectResponse is the public view of an official project record.
type ProjectResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	BudgetPaise int64   `json:"budget_paise"`
	Contractor  string  `json:"contractor"`
	Status      string  `json:"status"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	Description string  `json:"description"`
}

// NewProjectResponse maps a project record to its response shape.
func NewProjectResponse(record models.ProjectRecord) ProjectResponse {
	return ProjectResponse{
		ID:          record.ID,
		Name:        record.Name,
		Category:    record.Category,
		BudgetPaise: record.BudgetPaise,
		Contractor:  record.Contractor,
		Status:      record.Status,
		Lat:         record.Lat,
		Lng:         record.Lng,
		Description: record.Description,
	}
}

// NewProjectResponseSlice maps a slice of project records.
func NewProjectResponseSlice(records []models.ProjectRecord) []ProjectResponse {
	responses := make([]ProjectResponse, 0, len(records))
	for _, record := range records {
		responses = append(responses, NewProjectResponse(record))
	}
	return responses
}

// ProjectSeedItem is one record in a catalog seeding request.
type ProjectSeedItem struct {
	ID          string  `json:"id" validate:"required,max=36"`
	Name        string  `json:"name" validate:"required,max=255"`
	Category    string  `json:"category" validate:"required"`
	BudgetPaise int64   `json:"budget_paise" validate:"gt=0"`
	Contractor  string  `json:"contractor" validate:"max=255"`
	Status      string  `json:"status" validate:"required"`
	Lat         float64 `json:"lat" validate:"min=-90,max=90"`
	Lng         float64 `json:"lng" validate:"min=-180,max=180"`
	Description string  `json:"description" validate:"max=4000"`
}

// ProjectSeedRequest batch-loads official records into the catalog.
type ProjectSeedRequest struct {
	Token    string            `json:"token" validate:"required"`
	Projects []ProjectSeedItem `json:"projects" validate:"required,min=1,dive"`
}
