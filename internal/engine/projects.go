package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"shiftlog/internal/activity"
	"shiftlog/internal/domain"
	"shiftlog/internal/engine/policy"
	"shiftlog/internal/repo"
)

// ProjectUpdate changes the non-nil fields.
type ProjectUpdate struct {
	Description *string
	IsActive    *bool
}

// CreateProject adds an active project. Names are unique per creator.
func (e Engine) CreateProject(ctx context.Context, actor domain.Employee, name, description string) (domain.TestProject, error) {
	if !policy.CanCreateProject(actor) {
		return domain.TestProject{}, UnauthorizedError{Action: policy.ActionCreateProject}
	}
	name, err := requireText("name", name)
	if err != nil {
		return domain.TestProject{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.TestProject{}, err
	}
	defer tx.Rollback()

	now := e.timestamp()
	p := domain.TestProject{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		CreatedBy:   actor.ID,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.Repo.InsertProjectTx(ctx, tx, p); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return domain.TestProject{}, fmt.Errorf("project %q: %w", name, ErrConflict)
		}
		return domain.TestProject{}, fmt.Errorf("insert project: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.TestProject{}, err
	}
	e.logActivity(ctx, activity.Entry{
		ActorID:     actor.ID,
		Action:      activity.ActionCreated,
		EntityType:  "test_project",
		EntityID:    p.ID,
		Description: fmt.Sprintf("Created test project %q", p.Name),
	})
	return p, nil
}

func (e Engine) UpdateProject(ctx context.Context, actor domain.Employee, projectID string, upd ProjectUpdate) (domain.TestProject, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.TestProject{}, err
	}
	defer tx.Rollback()

	p, err := e.Repo.GetProjectTx(ctx, tx, projectID)
	if errors.Is(err, repo.ErrNotFound) {
		return p, notFound("project", projectID)
	}
	if err != nil {
		return p, err
	}
	if !policy.CanEditProject(actor, p) {
		return domain.TestProject{}, UnauthorizedError{Action: policy.ActionEditProject}
	}
	changes := activity.Changes{}
	if upd.Description != nil && *upd.Description != p.Description {
		changes["description"] = "changed"
		p.Description = *upd.Description
	}
	if upd.IsActive != nil && *upd.IsActive != p.IsActive {
		changes["is_active"] = map[string]bool{"old": p.IsActive, "new": *upd.IsActive}
		p.IsActive = *upd.IsActive
	}
	if len(changes) == 0 {
		return p, nil
	}
	p.UpdatedAt = e.timestamp()
	if err := e.Repo.UpdateProjectTx(ctx, tx, p); err != nil {
		return domain.TestProject{}, fmt.Errorf("update project: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.TestProject{}, err
	}
	action := activity.ActionUpdated
	if upd.IsActive != nil && !*upd.IsActive {
		action = activity.ActionDeactivated
	}
	e.logActivity(ctx, activity.Entry{
		ActorID:     actor.ID,
		Action:      action,
		EntityType:  "test_project",
		EntityID:    p.ID,
		Description: fmt.Sprintf("Updated test project %q", p.Name),
		Changes:     changes,
	})
	return p, nil
}

// GetProject returns the project with its feature counters. Projects outside
// the actor's visibility are reported as not found.
func (e Engine) GetProject(ctx context.Context, actor domain.Employee, id string) (domain.ProjectSummary, error) {
	p, err := e.Repo.GetProject(ctx, id)
	if errors.Is(err, repo.ErrNotFound) || (err == nil && !policy.CanViewProject(actor, p)) {
		return domain.ProjectSummary{}, notFound("project", id)
	}
	if err != nil {
		return domain.ProjectSummary{}, err
	}
	total, active, unresolved, err := e.Repo.ProjectCounters(ctx, id)
	if err != nil {
		return domain.ProjectSummary{}, err
	}
	return domain.ProjectSummary{Project: p, FeaturesCount: total, ActiveFeatures: active, UnresolvedComments: unresolved}, nil
}

// ListProjects applies filter within the projects actor may see.
func (e Engine) ListProjects(ctx context.Context, actor domain.Employee, filter repo.ProjectFilter) ([]domain.TestProject, error) {
	scope := policy.VisibleProjects(actor)
	createdBy, ok := narrow(scope, filter.CreatedBy)
	if !ok {
		return nil, nil
	}
	filter.CreatedBy = createdBy
	filter.ActiveOnly = filter.ActiveOnly || scope.ActiveOnly
	return e.Repo.ListProjects(ctx, filter)
}

// narrow intersects a requested creator with the scope's. ok is false when
// the two cannot both hold.
func narrow(scope policy.Scope, createdBy string) (string, bool) {
	if scope.CreatedBy == "" {
		return createdBy, true
	}
	if createdBy != "" && createdBy != scope.CreatedBy {
		return "", false
	}
	return scope.CreatedBy, true
}
