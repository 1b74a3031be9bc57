// Package history appends status and comment history rows inside the
// caller's transaction.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"shiftlog/internal/domain"
)

type Recorder struct {
	Now func() time.Time
}

func (r Recorder) now() string {
	if r.Now == nil {
		return time.Now().UTC().Format(time.RFC3339)
	}
	return r.Now().UTC().Format(time.RFC3339)
}

// RecordStatusChange appends one status history row.
func (r Recorder) RecordStatusChange(ctx context.Context, tx *sql.Tx, featureID string, oldStatus, newStatus domain.FeatureStatus, actorID, comment string) (domain.FeatureStatusHistory, error) {
	h := domain.FeatureStatusHistory{
		ID:        uuid.NewString(),
		FeatureID: featureID,
		OldStatus: oldStatus,
		NewStatus: newStatus,
		ActorID:   actorID,
		Comment:   comment,
		ChangedAt: r.now(),
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO feature_status_history(id,feature_id,old_status,new_status,actor_id,comment,changed_at) VALUES (?,?,?,?,?,?,?)`,
		h.ID, h.FeatureID, string(h.OldStatus), string(h.NewStatus), h.ActorID, h.Comment, h.ChangedAt); err != nil {
		return domain.FeatureStatusHistory{}, fmt.Errorf("record status change: %w", err)
	}
	return h, nil
}

// RecordCommentAction appends one comment history row.
func (r Recorder) RecordCommentAction(ctx context.Context, tx *sql.Tx, commentID string, action domain.CommentAction, actorID, reason string) (domain.FeatureCommentHistory, error) {
	h := domain.FeatureCommentHistory{
		ID:        uuid.NewString(),
		CommentID: commentID,
		Action:    action,
		ActorID:   actorID,
		Reason:    reason,
		ChangedAt: r.now(),
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO feature_comment_history(id,comment_id,action,actor_id,reason,changed_at) VALUES (?,?,?,?,?,?)`,
		h.ID, h.CommentID, string(h.Action), h.ActorID, h.Reason, h.ChangedAt); err != nil {
		return domain.FeatureCommentHistory{}, fmt.Errorf("record comment action: %w", err)
	}
	return h, nil
}
