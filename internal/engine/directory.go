package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"shiftlog/internal/activity"
	"shiftlog/internal/domain"
	"shiftlog/internal/engine/policy"
	"shiftlog/internal/repo"
)

// EmployeeInput registers an employee in the directory.
type EmployeeInput struct {
	Username   string
	FullName   string
	Department string
	Position   domain.Position
	Role       domain.Role
	TelegramID string
}

func (e Engine) AddDepartment(ctx context.Context, name string) (domain.Department, error) {
	name, err := requireText("name", name)
	if err != nil {
		return domain.Department{}, err
	}
	d := domain.Department{ID: uuid.NewString(), Name: name, CreatedAt: e.timestamp()}
	if err := e.Repo.InsertDepartment(ctx, d); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return domain.Department{}, fmt.Errorf("department %q: %w", name, ErrConflict)
		}
		return domain.Department{}, err
	}
	return d, nil
}

// AddEmployee seeds the directory. It is an operator action and carries no
// actor.
func (e Engine) AddEmployee(ctx context.Context, in EmployeeInput) (domain.Employee, error) {
	username, err := requireText("username", in.Username)
	if err != nil {
		return domain.Employee{}, err
	}
	if in.Position == "" {
		in.Position = domain.PositionEmployee
	}
	if !in.Position.Valid() {
		return domain.Employee{}, ValidationError{Field: "position", Message: fmt.Sprintf("unknown position %q", in.Position)}
	}
	if !in.Role.Valid() {
		return domain.Employee{}, ValidationError{Field: "role", Message: fmt.Sprintf("unknown role %q", in.Role)}
	}
	emp := domain.Employee{
		ID:         uuid.NewString(),
		Username:   username,
		FullName:   strings.TrimSpace(in.FullName),
		Position:   in.Position,
		Role:       in.Role,
		TelegramID: strings.TrimSpace(in.TelegramID),
		IsActive:   true,
		CreatedAt:  e.timestamp(),
	}
	if in.Department != "" {
		d, err := e.Repo.GetDepartmentByName(ctx, in.Department)
		if errors.Is(err, repo.ErrNotFound) {
			return domain.Employee{}, notFound("department", in.Department)
		}
		if err != nil {
			return domain.Employee{}, err
		}
		emp.DepartmentID = d.ID
	}
	if err := e.Repo.InsertEmployee(ctx, emp); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return domain.Employee{}, fmt.Errorf("employee %q: %w", username, ErrConflict)
		}
		return domain.Employee{}, err
	}
	return emp, nil
}

func (e Engine) SetTelegramID(ctx context.Context, employeeID, telegramID string) error {
	err := e.Repo.SetTelegramID(ctx, employeeID, strings.TrimSpace(telegramID))
	if errors.Is(err, repo.ErrNotFound) {
		return notFound("employee", employeeID)
	}
	return err
}

// DeactivateEmployee removes an employee from review work and notification
// fan-out. Admin only.
func (e Engine) DeactivateEmployee(ctx context.Context, actor domain.Employee, employeeID string) error {
	if !policy.CanManageEmployees(actor) {
		return UnauthorizedError{Action: policy.ActionManageEmployees}
	}
	if err := e.Repo.SetEmployeeActive(ctx, employeeID, false); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return notFound("employee", employeeID)
		}
		return err
	}
	e.logActivity(ctx, activity.Entry{
		ActorID:    actor.ID,
		Action:     activity.ActionDeactivated,
		EntityType: "employee",
		EntityID:   employeeID,
	})
	return nil
}

func (e Engine) ListEmployees(ctx context.Context, activeOnly bool) ([]domain.Employee, error) {
	return e.Repo.ListEmployees(ctx, repo.EmployeeFilter{ActiveOnly: activeOnly})
}
