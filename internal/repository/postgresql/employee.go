package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/employee"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type employeeRepositoryImpl struct {
	db *database.DB
}

func NewEmployeeRepository(db *database.DB) employee.Directory {
	return &employeeRepositoryImpl{db: db}
}

const employeeColumns = `id, employee_code, full_name, normalized_name, site_id, employment_status, created_at, updated_at`

func scanEmployee(row pgx.Row) (employee.Employee, error) {
	var e employee.Employee
	err := row.Scan(&e.ID, &e.EmployeeCode, &e.FullName, &e.NormalizedName, &e.SiteID, &e.EmploymentStatus, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

// FindByNormalizedName implements employee.Directory. Inactive employees never match.
func (r *employeeRepositoryImpl) FindByNormalizedName(ctx context.Context, normalizedName string) ([]employee.Employee, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + employeeColumns + `
		FROM employees
		WHERE normalized_name = $1 AND employment_status <> 'inactive'
		ORDER BY id
	`

	rows, err := q.Query(ctx, query, normalizedName)
	if err != nil {
		return nil, fmt.Errorf("failed to find employees by name: %w", err)
	}
	defer rows.Close()

	var employees []employee.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, e)
	}
	return employees, rows.Err()
}

// GetByID implements employee.Directory.
func (r *employeeRepositoryImpl) GetByID(ctx context.Context, id string) (employee.Employee, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + employeeColumns + ` FROM employees WHERE id = $1`

	e, err := scanEmployee(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return employee.Employee{}, employee.ErrEmployeeNotFound
		}
		return employee.Employee{}, fmt.Errorf("failed to get employee by ID: %w", err)
	}
	return e, nil
}
