package engine

import (
	"context"
	"fmt"

	"shiftlog/internal/domain"
	"shiftlog/internal/notify"
	"shiftlog/internal/repo"
)

var (
	testersAndAdmins = repo.EmployeeFilter{ActiveOnly: true, Roles: []domain.Role{domain.RoleTester}, Positions: []domain.Position{domain.PositionAdmin}}
	testersOnly      = repo.EmployeeFilter{ActiveOnly: true, Roles: []domain.Role{domain.RoleTester}}
	adminsOnly       = repo.EmployeeFilter{ActiveOnly: true, Positions: []domain.Position{domain.PositionAdmin}}
)

// recipients runs after commit; a lookup failure drops the notices instead
// of failing the operation.
func (e Engine) recipients(ctx context.Context, f repo.EmployeeFilter) []domain.Employee {
	list, err := e.Repo.ListEmployees(ctx, f)
	if err != nil {
		e.Log.Warn().Err(err).Msg("notification recipients lookup failed")
		return nil
	}
	return list
}

func (e Engine) creatorOf(ctx context.Context, f domain.Feature) (domain.Employee, bool) {
	emp, err := e.Repo.GetEmployee(ctx, f.CreatedBy)
	if err != nil {
		e.Log.Warn().Err(err).Str("feature_id", f.ID).Msg("feature creator lookup failed")
		return domain.Employee{}, false
	}
	return emp, true
}

func (e Engine) projectName(ctx context.Context, f domain.Feature) string {
	p, err := e.Repo.GetProject(ctx, f.ProjectID)
	if err != nil {
		return f.ProjectID
	}
	return p.Name
}

func excluding(list []domain.Employee, id string) []domain.Employee {
	out := make([]domain.Employee, 0, len(list))
	for _, emp := range list {
		if emp.ID != id {
			out = append(out, emp)
		}
	}
	return out
}

func notices(to []domain.Employee, typ domain.NotificationType, title, message string) []notify.Notice {
	out := make([]notify.Notice, 0, len(to))
	for _, emp := range to {
		out = append(out, notify.Notice{Recipient: emp, Type: typ, Title: title, Message: message})
	}
	return out
}

func (e Engine) featureCreatedNotices(ctx context.Context, f domain.Feature, projectName string) []notify.Notice {
	to := excluding(e.recipients(ctx, testersAndAdmins), f.CreatedBy)
	msg := fmt.Sprintf("New feature %q in project %q. Priority: %s.", f.Title, projectName, f.Priority.Label())
	if f.Description != "" {
		msg += " Description: " + truncate(f.Description, 200)
	}
	return notices(to, domain.NotifyFeatureCreated, "New feature: "+f.Title, msg)
}

func (e Engine) statusChangedNotices(ctx context.Context, f domain.Feature, from, to domain.FeatureStatus) []notify.Notice {
	typ, ok := domain.StatusNotification(to)
	if !ok {
		return nil
	}
	var list []domain.Employee
	switch to {
	case domain.StatusTesting, domain.StatusCompleted:
		list = e.recipients(ctx, testersAndAdmins)
	case domain.StatusRework:
		if creator, ok := e.creatorOf(ctx, f); ok {
			list = append(list, creator)
		}
		list = append(list, e.recipients(ctx, adminsOnly)...)
	case domain.StatusDone:
		if creator, ok := e.creatorOf(ctx, f); ok {
			list = append(list, creator)
		}
		list = append(list, e.recipients(ctx, testersAndAdmins)...)
	}
	msg := fmt.Sprintf("Feature %q moved from %s to %s. Project: %s", f.Title, from.Label(), to.Label(), e.projectName(ctx, f))
	return notices(list, typ, "Status changed: "+f.Title, msg)
}

func (e Engine) commentAddedNotices(ctx context.Context, f domain.Feature, c domain.FeatureComment, author domain.Employee) []notify.Notice {
	title := "New comment: " + f.Title
	base := fmt.Sprintf("%s commented on feature %q. Type: %s.", author.DisplayName(), f.Title, c.Type)
	var out []notify.Notice
	if f.CreatedBy != author.ID {
		if creator, ok := e.creatorOf(ctx, f); ok {
			out = append(out, notices([]domain.Employee{creator}, domain.NotifyCommentAdded, title, base+" Text: "+truncate(c.Text, 200))...)
		}
	}
	admins := excluding(e.recipients(ctx, adminsOnly), author.ID)
	return append(out, notices(admins, domain.NotifyCommentAdded, title, base)...)
}

func (e Engine) commentResolvedNotices(ctx context.Context, f domain.Feature, c domain.FeatureComment, resolver domain.Employee) []notify.Notice {
	title := "Comment resolved: " + f.Title
	msg := fmt.Sprintf("%s resolved a comment on feature %q. Comment: %s", resolver.DisplayName(), f.Title, truncate(c.Text, 200))
	var out []notify.Notice
	if f.CreatedBy != resolver.ID {
		if creator, ok := e.creatorOf(ctx, f); ok {
			out = append(out, notices([]domain.Employee{creator}, domain.NotifyCommentResolved, title, msg)...)
		}
	}
	testers := excluding(e.recipients(ctx, testersOnly), resolver.ID)
	out = append(out, notices(testers, domain.NotifyCommentResolved, title, msg+" Please re-check.")...)
	admins := excluding(e.recipients(ctx, adminsOnly), resolver.ID)
	return append(out, notices(admins, domain.NotifyCommentResolved, title, msg)...)
}

func (e Engine) commentReturnedNotices(ctx context.Context, f domain.Feature, returner domain.Employee, reason string) []notify.Notice {
	title := "Comment returned to rework: " + f.Title
	msg := fmt.Sprintf("%s returned a comment on feature %q to rework. Reason: %s", returner.DisplayName(), f.Title, truncate(reason, 200))
	var out []notify.Notice
	if f.CreatedBy != returner.ID {
		if creator, ok := e.creatorOf(ctx, f); ok {
			out = append(out, notices([]domain.Employee{creator}, domain.NotifyCommentReturned, title, msg)...)
		}
	}
	admins := excluding(e.recipients(ctx, adminsOnly), returner.ID)
	return append(out, notices(admins, domain.NotifyCommentReturned, title, msg)...)
}
