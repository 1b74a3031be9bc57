// Package actor resolves who is calling, once, at the transport boundary.
package actor

import (
	"context"
	"errors"
	"fmt"

	"shiftlog/internal/domain"
	"shiftlog/internal/engine"
	"shiftlog/internal/repo"
)

// Actor is either Anonymous or Identified. The zero value is Anonymous.
type Actor struct {
	employee *domain.Employee
}

// Anonymous is a caller without an employee profile.
func Anonymous() Actor {
	return Actor{}
}

// Identified wraps a resolved employee.
func Identified(e domain.Employee) Actor {
	return Actor{employee: &e}
}

func (a Actor) IsAnonymous() bool {
	return a.employee == nil
}

// Employee returns the employee and whether the actor is identified.
func (a Actor) Employee() (domain.Employee, bool) {
	if a.employee == nil {
		return domain.Employee{}, false
	}
	return *a.employee, true
}

// Require returns the active employee behind the actor or an
// UnauthorizedError.
func (a Actor) Require() (domain.Employee, error) {
	if a.employee == nil {
		return domain.Employee{}, engine.UnauthorizedError{Action: "act without an employee profile"}
	}
	if !a.employee.IsActive {
		return domain.Employee{}, engine.UnauthorizedError{Action: "act as an inactive employee"}
	}
	return *a.employee, nil
}

func (a Actor) String() string {
	if a.employee == nil {
		return "anonymous"
	}
	return a.employee.Username
}

// Directory looks employees up by id or username.
type Directory interface {
	GetEmployee(ctx context.Context, id string) (domain.Employee, error)
	GetEmployeeByUsername(ctx context.Context, username string) (domain.Employee, error)
}

// Resolve maps an id or username to an Actor. An empty ref is Anonymous;
// an unknown ref is an error.
func Resolve(ctx context.Context, dir Directory, ref string) (Actor, error) {
	if ref == "" {
		return Anonymous(), nil
	}
	e, err := dir.GetEmployee(ctx, ref)
	if errors.Is(err, repo.ErrNotFound) {
		e, err = dir.GetEmployeeByUsername(ctx, ref)
	}
	if errors.Is(err, repo.ErrNotFound) {
		return Anonymous(), fmt.Errorf("employee %q: %w", ref, engine.ErrNotFound)
	}
	if err != nil {
		return Anonymous(), err
	}
	return Identified(e), nil
}

type ctxKey struct{}

// WithActor stores a in ctx.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

// FromContext returns the actor stored in ctx, Anonymous when absent.
func FromContext(ctx context.Context) Actor {
	if a, ok := ctx.Value(ctxKey{}).(Actor); ok {
		return a
	}
	return Anonymous()
}
