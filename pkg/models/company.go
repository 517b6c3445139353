package models

import (
	"time"

	"github.com/google/uuid"
)

// Company is the read-only profile the core consumes for prompt context,
// benchmark lookup and guidance. Ownership lives with the surrounding
// platform; the engine never mutates it.
type Company struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Industry      string    `json:"industry"`
	EmployeeCount int       `json:"employee_count"`
	Region        string    `json:"region"` // ISO country code, e.g. "US"
	HasFacilities bool      `json:"has_facilities"`
	HasVehicles   bool      `json:"has_vehicles"`
	CreatedAt     time.Time `json:"created_at"`
}
