package models

import (
	"math"
	"time"
)

// ProjectCategory enumerates the kinds of infrastructure projects tracked by the city.
const (
	ProjectCategoryRoad       = "Road"
	ProjectCategorySanitation = "Sanitation"
	ProjectCategoryBuilding   = "Building"
	ProjectCategoryWater      = "Water"
	ProjectCategoryOther      = "Other"
)

// ProjectStatus enumerates the lifecycle of an official project record.
const (
	ProjectStatusPlanned    = "Planned"
	ProjectStatusInProgress = "InProgress"
	ProjectStatusCompleted  = "Completed"
)

// ProjectRecord is an official government infrastructure project that citizen
// evidence is audited against.
type ProjectRecord struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Category    string    `gorm:"size:32;not null" json:"category"`
	BudgetPaise int64     `gorm:"not null" json:"budget_paise"`
	Contractor  string    `gorm:"size:255" json:"contractor"`
	Status      string    `gorm:"size:32;not null" json:"status"`
	Lat         float64   `gorm:"not null" json:"lat"`
	Lng         float64   `gorm:"not null" json:"lng"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// HasValidLocation reports whether the record carries finite WGS84 coordinates.
func (p ProjectRecord) HasValidLocation() bool {
	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) || math.IsNaN(p.Lng) || math.IsInf(p.Lng, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// IsKnownProjectStatus reports whether the status is one of the lifecycle enums.
func IsKnownProjectStatus(status string) bool {
	switch status {
	case ProjectStatusPlanned, ProjectStatusInProgress, ProjectStatusCompleted:
		return true
	}
	return false
}

// IsKnownCategory reports whether the category is one of the tracked enums.
func IsKnownCategory(category string) bool {
	switch category {
	case ProjectCategoryRoad, ProjectCategorySanitation, ProjectCategoryBuilding, ProjectCategoryWater, ProjectCategoryOther:
		return true
	}
	return false
}
