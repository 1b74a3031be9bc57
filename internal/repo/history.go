package repo

import (
	"context"

	"shiftlog/internal/domain"
)

// StatusHistory returns the feature's status changes, newest first.
func (r Repo) StatusHistory(ctx context.Context, featureID string) ([]domain.FeatureStatusHistory, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,feature_id,old_status,new_status,actor_id,comment,changed_at
		FROM feature_status_history WHERE feature_id=? ORDER BY changed_at DESC, rowid DESC`, featureID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.FeatureStatusHistory
	for rows.Next() {
		var h domain.FeatureStatusHistory
		var oldStatus, newStatus string
		if err := rows.Scan(&h.ID, &h.FeatureID, &oldStatus, &newStatus, &h.ActorID, &h.Comment, &h.ChangedAt); err != nil {
			return nil, err
		}
		h.OldStatus = domain.FeatureStatus(oldStatus)
		h.NewStatus = domain.FeatureStatus(newStatus)
		res = append(res, h)
	}
	return res, rows.Err()
}

// CommentHistory returns the comment's actions, newest first.
func (r Repo) CommentHistory(ctx context.Context, commentID string) ([]domain.FeatureCommentHistory, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,comment_id,action,actor_id,reason,changed_at
		FROM feature_comment_history WHERE comment_id=? ORDER BY changed_at DESC, rowid DESC`, commentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.FeatureCommentHistory
	for rows.Next() {
		var h domain.FeatureCommentHistory
		var action string
		if err := rows.Scan(&h.ID, &h.CommentID, &action, &h.ActorID, &h.Reason, &h.ChangedAt); err != nil {
			return nil, err
		}
		h.Action = domain.CommentAction(action)
		res = append(res, h)
	}
	return res, rows.Err()
}
