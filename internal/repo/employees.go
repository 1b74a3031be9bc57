package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"shiftlog/internal/domain"
)

const employeeColumns = `id,username,full_name,COALESCE(department_id,''),position,role,telegram_id,is_active,created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row rowScanner) (domain.Employee, error) {
	var e domain.Employee
	var position, role string
	var active int
	err := row.Scan(&e.ID, &e.Username, &e.FullName, &e.DepartmentID, &position, &role, &e.TelegramID, &active, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return e, ErrNotFound
	}
	e.Position = domain.Position(position)
	e.Role = domain.Role(role)
	e.IsActive = active == 1
	return e, err
}

func (r Repo) InsertDepartment(ctx context.Context, d domain.Department) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO departments(id,name,created_at) VALUES (?,?,?)`, d.ID, d.Name, d.CreatedAt)
	return conflict(err)
}

func (r Repo) ListDepartments(ctx context.Context) ([]domain.Department, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name,created_at FROM departments ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Department
	for rows.Next() {
		var d domain.Department
		if err := rows.Scan(&d.ID, &d.Name, &d.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, d)
	}
	return res, rows.Err()
}

func (r Repo) GetDepartmentByName(ctx context.Context, name string) (domain.Department, error) {
	var d domain.Department
	err := r.DB.QueryRowContext(ctx, `SELECT id,name,created_at FROM departments WHERE name=?`, name).Scan(&d.ID, &d.Name, &d.CreatedAt)
	if err == sql.ErrNoRows {
		return d, ErrNotFound
	}
	return d, err
}

func (r Repo) InsertEmployee(ctx context.Context, e domain.Employee) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO employees(id,username,full_name,department_id,position,role,telegram_id,is_active,created_at) VALUES (?,?,?,?,?,?,?,?,?)`,
		e.ID, e.Username, e.FullName, nullable(e.DepartmentID), string(e.Position), string(e.Role), e.TelegramID, boolInt(e.IsActive), e.CreatedAt)
	return conflict(err)
}

func (r Repo) GetEmployee(ctx context.Context, id string) (domain.Employee, error) {
	return scanEmployee(r.DB.QueryRowContext(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id=?`, id))
}

func (r Repo) GetEmployeeByUsername(ctx context.Context, username string) (domain.Employee, error) {
	return scanEmployee(r.DB.QueryRowContext(ctx, `SELECT `+employeeColumns+` FROM employees WHERE username=?`, username))
}

// EmployeeFilter selects employees. Roles and Positions are OR-ed together:
// an employee matches when its role is in Roles or its position is in
// Positions. Both empty matches everyone.
type EmployeeFilter struct {
	ActiveOnly   bool
	Roles        []domain.Role
	Positions    []domain.Position
	DepartmentID string
}

func (r Repo) ListEmployees(ctx context.Context, f EmployeeFilter) ([]domain.Employee, error) {
	var (
		clauses []string
		args    []any
	)
	if f.ActiveOnly {
		clauses = append(clauses, "is_active=1")
	}
	if f.DepartmentID != "" {
		clauses = append(clauses, "department_id=?")
		args = append(args, f.DepartmentID)
	}
	var either []string
	if len(f.Roles) > 0 {
		either = append(either, fmt.Sprintf("role IN (%s)", placeholders(len(f.Roles))))
		for _, role := range f.Roles {
			args = append(args, string(role))
		}
	}
	if len(f.Positions) > 0 {
		either = append(either, fmt.Sprintf("position IN (%s)", placeholders(len(f.Positions))))
		for _, p := range f.Positions {
			args = append(args, string(p))
		}
	}
	if len(either) > 0 {
		clauses = append(clauses, "("+strings.Join(either, " OR ")+")")
	}
	query := `SELECT ` + employeeColumns + ` FROM employees`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY username"
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func (r Repo) SetTelegramID(ctx context.Context, id, telegramID string) error {
	return affectedOrNotFound(r.DB.ExecContext(ctx, `UPDATE employees SET telegram_id=? WHERE id=?`, telegramID, id))
}

func (r Repo) SetEmployeeActive(ctx context.Context, id string, active bool) error {
	return affectedOrNotFound(r.DB.ExecContext(ctx, `UPDATE employees SET is_active=? WHERE id=?`, boolInt(active), id))
}
