package engine

import (
	"context"
	"errors"

	"shiftlog/internal/domain"
	"shiftlog/internal/engine/policy"
	"shiftlog/internal/repo"
)

func (e Engine) ListNotifications(ctx context.Context, recipient domain.Employee, unreadOnly bool, limit int) ([]domain.Notification, error) {
	return e.Repo.ListNotifications(ctx, recipient.ID, unreadOnly, limit)
}

// MarkNotificationRead marks one of the recipient's notifications read.
func (e Engine) MarkNotificationRead(ctx context.Context, recipient domain.Employee, id string) error {
	err := e.Repo.MarkNotificationRead(ctx, id, recipient.ID, e.timestamp())
	if errors.Is(err, repo.ErrNotFound) {
		return notFound("notification", id)
	}
	return err
}

func (e Engine) MarkAllNotificationsRead(ctx context.Context, recipient domain.Employee) (int64, error) {
	return e.Repo.MarkAllNotificationsRead(ctx, recipient.ID, e.timestamp())
}

func (e Engine) UnreadCount(ctx context.Context, recipient domain.Employee) (int, error) {
	return e.Repo.UnreadCount(ctx, recipient.ID)
}

// ActivityTail lists audit entries for supervisors and admins.
func (e Engine) ActivityTail(ctx context.Context, actor domain.Employee, filter repo.ActivityFilter) ([]domain.ActivityEntry, error) {
	if !policy.CanViewActivity(actor) {
		return nil, UnauthorizedError{Action: policy.ActionViewActivity}
	}
	return e.Repo.ActivityTail(ctx, filter)
}
