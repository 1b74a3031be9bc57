package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"

	"shiftlog/internal/activity"
	"shiftlog/internal/domain"
	"shiftlog/internal/engine/policy"
	"shiftlog/internal/repo"
)

const (
	maxTitleLength       = 200
	defaultReworkComment = "Returned to rework by reviewer"
	reviewRequestComment = "All comments resolved. Please review again."
)

// FeatureInput are parameters for creating a feature.
type FeatureInput struct {
	ProjectID   string
	Title       string
	Description string
	// Priority 0 means medium.
	Priority domain.Priority
}

// FeatureUpdate changes the non-nil fields.
type FeatureUpdate struct {
	Title       *string
	Description *string
	Priority    *domain.Priority
}

func validateTitle(title string) (string, error) {
	t, err := requireText("title", title)
	if err != nil {
		return "", err
	}
	if utf8.RuneCountInString(t) > maxTitleLength {
		return "", ValidationError{Field: "title", Message: fmt.Sprintf("must be at most %d characters", maxTitleLength)}
	}
	return t, nil
}

func validatePriority(p domain.Priority) (domain.Priority, error) {
	if p == 0 {
		return domain.PriorityMedium, nil
	}
	if !p.Valid() {
		return 0, ValidationError{Field: "priority", Message: "must be between 1 and 4"}
	}
	return p, nil
}

func (e Engine) loadFeatureTx(ctx context.Context, tx *sql.Tx, id string) (domain.Feature, error) {
	f, err := e.Repo.GetFeatureTx(ctx, tx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return f, notFound("feature", id)
	}
	return f, err
}

// CreateFeature adds a feature in status new to an active project and
// notifies testers and admins.
func (e Engine) CreateFeature(ctx context.Context, actor domain.Employee, in FeatureInput) (domain.Feature, error) {
	if !policy.CanCreateFeature(actor) {
		return domain.Feature{}, UnauthorizedError{Action: policy.ActionCreateFeature}
	}
	title, err := validateTitle(in.Title)
	if err != nil {
		return domain.Feature{}, err
	}
	priority, err := validatePriority(in.Priority)
	if err != nil {
		return domain.Feature{}, err
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Feature{}, err
	}
	defer tx.Rollback()

	project, err := e.Repo.GetProjectTx(ctx, tx, in.ProjectID)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.Feature{}, notFound("project", in.ProjectID)
	}
	if err != nil {
		return domain.Feature{}, err
	}
	if !project.IsActive {
		return domain.Feature{}, ValidationError{Field: "test_project_id", Message: "project is not active"}
	}

	now := e.timestamp()
	f := domain.Feature{
		ID:          uuid.NewString(),
		ProjectID:   project.ID,
		Title:       title,
		Description: in.Description,
		CreatedBy:   actor.ID,
		Status:      domain.StatusNew,
		Priority:    priority,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.Repo.InsertFeatureTx(ctx, tx, f); err != nil {
		return domain.Feature{}, fmt.Errorf("insert feature: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Feature{}, err
	}

	e.Log.Info().Str("feature_id", f.ID).Str("actor", actor.Username).Msg("feature created")
	e.logActivity(ctx, activity.Entry{
		ActorID:     actor.ID,
		Action:      activity.ActionCreated,
		EntityType:  "feature",
		EntityID:    f.ID,
		Description: fmt.Sprintf("Created feature %q in project %q", f.Title, project.Name),
	})
	e.notify(ctx, e.featureCreatedNotices(ctx, f, project.Name))
	return f, nil
}

// UpdateFeature edits title, description and priority. It never changes the
// status and sends no notifications.
func (e Engine) UpdateFeature(ctx context.Context, actor domain.Employee, featureID string, upd FeatureUpdate) (domain.Feature, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Feature{}, err
	}
	defer tx.Rollback()

	f, err := e.loadFeatureTx(ctx, tx, featureID)
	if err != nil {
		return domain.Feature{}, err
	}
	if !policy.CanEditFeature(actor, f) {
		return domain.Feature{}, UnauthorizedError{Action: policy.ActionEditFeature}
	}

	changes := activity.Changes{}
	if upd.Title != nil {
		title, err := validateTitle(*upd.Title)
		if err != nil {
			return domain.Feature{}, err
		}
		if title != f.Title {
			changes["title"] = map[string]string{"old": f.Title, "new": title}
			f.Title = title
		}
	}
	if upd.Description != nil && *upd.Description != f.Description {
		changes["description"] = "changed"
		f.Description = *upd.Description
	}
	if upd.Priority != nil {
		p, err := validatePriority(*upd.Priority)
		if err != nil {
			return domain.Feature{}, err
		}
		if p != f.Priority {
			changes["priority"] = map[string]int{"old": int(f.Priority), "new": int(p)}
			f.Priority = p
		}
	}
	if len(changes) == 0 {
		return f, nil
	}
	f.UpdatedAt = e.timestamp()
	if err := e.Repo.UpdateFeatureTx(ctx, tx, f); err != nil {
		return domain.Feature{}, fmt.Errorf("update feature: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Feature{}, err
	}

	e.logActivity(ctx, activity.Entry{
		ActorID:     actor.ID,
		Action:      activity.ActionUpdated,
		EntityType:  "feature",
		EntityID:    f.ID,
		Description: fmt.Sprintf("Updated feature %q", f.Title),
		Changes:     changes,
	})
	return f, nil
}

// UpdateStatus moves a feature to status to. Moving to the current status is
// a no-op with no side effects.
func (e Engine) UpdateStatus(ctx context.Context, actor domain.Employee, featureID string, to domain.FeatureStatus, comment string) (domain.Feature, error) {
	if !to.Valid() {
		return domain.Feature{}, ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", to)}
	}
	return e.transition(ctx, actor, featureID, to, comment, nil)
}

// MarkAsCompleted moves a feature in rework to completed.
func (e Engine) MarkAsCompleted(ctx context.Context, actor domain.Employee, featureID string) (domain.Feature, error) {
	return e.transition(ctx, actor, featureID, domain.StatusCompleted, "", func(f domain.Feature) error {
		if f.Status != domain.StatusRework {
			return InvalidTransitionError{From: f.Status, To: domain.StatusCompleted, Reason: "only features in rework can be marked completed"}
		}
		if !policy.CanMarkCompleted(actor, f) {
			return UnauthorizedError{Action: policy.ActionMarkCompleted}
		}
		return nil
	})
}

// ReturnFeatureToRework sends a feature under review back to its creator.
func (e Engine) ReturnFeatureToRework(ctx context.Context, actor domain.Employee, featureID, comment string) (domain.Feature, error) {
	if !policy.CanReturnFeatureToRework(actor) {
		return domain.Feature{}, UnauthorizedError{Action: policy.ActionReturnFeatureToRework}
	}
	if comment == "" {
		comment = defaultReworkComment
	}
	return e.transition(ctx, actor, featureID, domain.StatusRework, comment, func(f domain.Feature) error {
		if f.Status != domain.StatusTesting && f.Status != domain.StatusCompleted {
			return InvalidTransitionError{From: f.Status, To: domain.StatusRework, Reason: "only features in testing or completed can be returned to rework"}
		}
		return nil
	})
}

// transition loads the feature, runs check, and applies the status change.
func (e Engine) transition(ctx context.Context, actor domain.Employee, featureID string, to domain.FeatureStatus, comment string, check func(domain.Feature) error) (domain.Feature, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Feature{}, err
	}
	defer tx.Rollback()

	f, err := e.loadFeatureTx(ctx, tx, featureID)
	if err != nil {
		return domain.Feature{}, err
	}
	if check != nil {
		if err := check(f); err != nil {
			return domain.Feature{}, err
		}
	}
	if f.Status == to {
		return f, nil
	}
	from := f.Status
	f, err = e.changeStatusTx(ctx, tx, actor, f, to, comment)
	if err != nil {
		return domain.Feature{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Feature{}, err
	}
	e.afterStatusChange(ctx, actor, f, from, comment)
	return f, nil
}

// changeStatusTx checks the permission policy and transition table, then
// writes the new status and its history row.
func (e Engine) changeStatusTx(ctx context.Context, tx *sql.Tx, actor domain.Employee, f domain.Feature, to domain.FeatureStatus, comment string) (domain.Feature, error) {
	from := f.Status
	if !policy.Allowed(actor, f, to) {
		return f, InvalidTransitionError{From: from, To: to}
	}
	f.Status = to
	f.UpdatedAt = e.timestamp()
	if to == domain.StatusDone {
		completed := f.UpdatedAt
		f.CompletedAt = &completed
	}
	if err := e.Repo.UpdateFeatureTx(ctx, tx, f); err != nil {
		return f, fmt.Errorf("update feature status: %w", err)
	}
	if _, err := e.recorder().RecordStatusChange(ctx, tx, f.ID, from, to, actor.ID, comment); err != nil {
		return f, err
	}
	return f, nil
}

func (e Engine) afterStatusChange(ctx context.Context, actor domain.Employee, f domain.Feature, from domain.FeatureStatus, comment string) {
	e.Log.Info().
		Str("feature_id", f.ID).
		Str("from", string(from)).
		Str("to", string(f.Status)).
		Str("actor", actor.Username).
		Msg("feature status changed")
	e.logActivity(ctx, activity.Entry{
		ActorID:     actor.ID,
		Action:      activity.ActionStatusChanged,
		EntityType:  "feature",
		EntityID:    f.ID,
		Description: fmt.Sprintf("Status changed from %s to %s", from, f.Status),
		Changes:     activity.Changes{"old_status": from, "new_status": f.Status, "comment": comment},
	})
	e.notify(ctx, e.statusChangedNotices(ctx, f, from, f.Status))
}

// GetFeature returns the feature when actor may see it, NotFound otherwise.
func (e Engine) GetFeature(ctx context.Context, actor domain.Employee, id string) (domain.Feature, error) {
	f, err := e.Repo.GetFeature(ctx, id)
	if errors.Is(err, repo.ErrNotFound) || (err == nil && !policy.CanViewFeature(actor, f)) {
		return domain.Feature{}, notFound("feature", id)
	}
	return f, err
}

// ListFeatures applies filter within the features actor may see.
func (e Engine) ListFeatures(ctx context.Context, actor domain.Employee, filter repo.FeatureFilter) ([]domain.Feature, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", filter.Status)}
	}
	if filter.Priority != 0 && !filter.Priority.Valid() {
		return nil, ValidationError{Field: "priority", Message: "must be between 1 and 4"}
	}
	createdBy, ok := narrow(policy.VisibleFeatures(actor), filter.CreatedBy)
	if !ok {
		return nil, nil
	}
	filter.CreatedBy = createdBy
	return e.Repo.ListFeatures(ctx, filter)
}

// AvailableTransitions lists the statuses actor may move the feature to.
func (e Engine) AvailableTransitions(ctx context.Context, actor domain.Employee, featureID string) ([]domain.FeatureStatus, error) {
	f, err := e.GetFeature(ctx, actor, featureID)
	if err != nil {
		return nil, err
	}
	return policy.AvailableTransitions(actor, f), nil
}

// StatusHistory returns the feature's status changes, newest first.
func (e Engine) StatusHistory(ctx context.Context, actor domain.Employee, featureID string) ([]domain.FeatureStatusHistory, error) {
	if _, err := e.GetFeature(ctx, actor, featureID); err != nil {
		return nil, err
	}
	return e.Repo.StatusHistory(ctx, featureID)
}
