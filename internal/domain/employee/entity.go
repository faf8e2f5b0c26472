package employee

import "time"

// Employee is the slice of the HR employee record the reconciliation engine needs.
type Employee struct {
	ID               string
	EmployeeCode     string
	FullName         string
	NormalizedName   string
	SiteID           string
	EmploymentStatus EmploymentStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type EmploymentStatus string

const (
	EmploymentStatusActive   EmploymentStatus = "active"
	EmploymentStatusInactive EmploymentStatus = "inactive"
)
