package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"shiftlog/internal/activity"
	"shiftlog/internal/domain"
	"shiftlog/internal/engine/policy"
	"shiftlog/internal/repo"
)

// ResolveResult reports the comment after resolution and whether the
// feature went back to testing as a consequence.
type ResolveResult struct {
	Feature           domain.Feature        `json:"feature"`
	Comment           domain.FeatureComment `json:"comment"`
	ReviewRequested   bool                  `json:"review_requested"`
	UnresolvedPending int                   `json:"unresolved_pending"`
}

// ReturnResult reports the comment sent back and whether the feature moved
// to rework with it.
type ReturnResult struct {
	Feature       domain.Feature        `json:"feature"`
	Comment       domain.FeatureComment `json:"comment"`
	StatusChanged bool                  `json:"status_changed"`
}

func (e Engine) loadCommentTx(ctx context.Context, tx *sql.Tx, featureID, commentID string) (domain.FeatureComment, error) {
	c, err := e.Repo.GetCommentTx(ctx, tx, commentID)
	if errors.Is(err, repo.ErrNotFound) || (err == nil && c.FeatureID != featureID) {
		return domain.FeatureComment{}, notFound("comment", commentID)
	}
	return c, err
}

// AddComment records a reviewer comment on a feature. New comments are
// unresolved.
func (e Engine) AddComment(ctx context.Context, actor domain.Employee, featureID, text string, typ domain.CommentType) (domain.FeatureComment, error) {
	if !policy.CanComment(actor) {
		return domain.FeatureComment{}, UnauthorizedError{Action: policy.ActionComment}
	}
	text, err := requireText("text", text)
	if err != nil {
		return domain.FeatureComment{}, err
	}
	if typ == "" {
		typ = domain.CommentRemark
	}
	if !typ.Valid() {
		return domain.FeatureComment{}, ValidationError{Field: "comment_type", Message: fmt.Sprintf("unknown comment type %q", typ)}
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.FeatureComment{}, err
	}
	defer tx.Rollback()

	f, err := e.loadFeatureTx(ctx, tx, featureID)
	if err != nil {
		return domain.FeatureComment{}, err
	}
	c := domain.FeatureComment{
		ID:        uuid.NewString(),
		FeatureID: f.ID,
		AuthorID:  actor.ID,
		Text:      text,
		Type:      typ,
		CreatedAt: e.timestamp(),
	}
	if err := e.Repo.InsertCommentTx(ctx, tx, c); err != nil {
		return domain.FeatureComment{}, fmt.Errorf("insert comment: %w", err)
	}
	if _, err := e.recorder().RecordCommentAction(ctx, tx, c.ID, domain.CommentCreated, actor.ID, fmt.Sprintf("Created %s comment", c.Type)); err != nil {
		return domain.FeatureComment{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.FeatureComment{}, err
	}

	e.logActivity(ctx, activity.Entry{
		ActorID:     actor.ID,
		Action:      activity.ActionCreated,
		EntityType:  "feature_comment",
		EntityID:    c.ID,
		Description: fmt.Sprintf("Comment added to feature %q", f.Title),
	})
	e.notify(ctx, e.commentAddedNotices(ctx, f, c, actor))
	return c, nil
}

// ResolveCommentAndRequestReview marks a comment resolved. When it was the
// last unresolved comment and the feature is not already in testing, the
// feature is moved to testing in the same transaction.
func (e Engine) ResolveCommentAndRequestReview(ctx context.Context, actor domain.Employee, featureID, commentID string) (ResolveResult, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return ResolveResult{}, err
	}
	defer tx.Rollback()

	f, err := e.loadFeatureTx(ctx, tx, featureID)
	if err != nil {
		return ResolveResult{}, err
	}
	if !policy.CanResolveComment(actor, f) {
		return ResolveResult{}, UnauthorizedError{Action: policy.ActionResolveComment}
	}
	c, err := e.loadCommentTx(ctx, tx, f.ID, commentID)
	if err != nil {
		return ResolveResult{}, err
	}
	if c.IsResolved {
		return ResolveResult{}, InvalidTransitionError{Reason: "comment is already resolved"}
	}

	c.IsResolved = true
	c.ReworkReason = nil
	if err := e.Repo.UpdateCommentStateTx(ctx, tx, c); err != nil {
		return ResolveResult{}, fmt.Errorf("resolve comment: %w", err)
	}
	if _, err := e.recorder().RecordCommentAction(ctx, tx, c.ID, domain.CommentResolved, actor.ID, "Marked resolved by the developer"); err != nil {
		return ResolveResult{}, err
	}
	pending, err := e.Repo.CountUnresolvedCommentsTx(ctx, tx, f.ID)
	if err != nil {
		return ResolveResult{}, err
	}

	from := f.Status
	res := ResolveResult{UnresolvedPending: pending}
	if pending == 0 && f.Status != domain.StatusTesting {
		if policy.Allowed(actor, f, domain.StatusTesting) {
			if f, err = e.changeStatusTx(ctx, tx, actor, f, domain.StatusTesting, reviewRequestComment); err != nil {
				return ResolveResult{}, err
			}
			res.ReviewRequested = true
		} else {
			e.Log.Debug().Str("feature_id", f.ID).Str("status", string(f.Status)).Msg("review request not allowed from current status")
		}
	}
	if err := tx.Commit(); err != nil {
		return ResolveResult{}, err
	}
	res.Feature = f
	res.Comment = c

	e.logActivity(ctx, activity.Entry{
		ActorID:     actor.ID,
		Action:      activity.ActionCommentResolved,
		EntityType:  "feature_comment",
		EntityID:    c.ID,
		Description: "Comment resolved: " + truncate(c.Text, 50),
	})
	e.notify(ctx, e.commentResolvedNotices(ctx, f, c, actor))
	if res.ReviewRequested {
		e.afterStatusChange(ctx, actor, f, from, reviewRequestComment)
	}
	return res, nil
}

// ReturnCommentToRework reopens a resolved comment with a reason. A feature
// in testing goes back to rework in the same transaction.
func (e Engine) ReturnCommentToRework(ctx context.Context, actor domain.Employee, featureID, commentID, reason string) (ReturnResult, error) {
	if !policy.CanReturnCommentToRework(actor) {
		return ReturnResult{}, UnauthorizedError{Action: policy.ActionReturnCommentToRework}
	}
	reason, err := requireText("reason", reason)
	if err != nil {
		return ReturnResult{}, err
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return ReturnResult{}, err
	}
	defer tx.Rollback()

	f, err := e.loadFeatureTx(ctx, tx, featureID)
	if err != nil {
		return ReturnResult{}, err
	}
	c, err := e.loadCommentTx(ctx, tx, f.ID, commentID)
	if err != nil {
		return ReturnResult{}, err
	}
	if !c.IsResolved {
		return ReturnResult{}, InvalidTransitionError{Reason: "only resolved comments can be returned to rework"}
	}

	c.IsResolved = false
	c.ReworkReason = &reason
	if err := e.Repo.UpdateCommentStateTx(ctx, tx, c); err != nil {
		return ReturnResult{}, fmt.Errorf("return comment: %w", err)
	}
	if _, err := e.recorder().RecordCommentAction(ctx, tx, c.ID, domain.CommentReturnedToRework, actor.ID, reason); err != nil {
		return ReturnResult{}, err
	}

	from := f.Status
	statusComment := "Comment returned to rework. Reason: " + reason
	res := ReturnResult{}
	if f.Status == domain.StatusTesting {
		if f, err = e.changeStatusTx(ctx, tx, actor, f, domain.StatusRework, statusComment); err != nil {
			return ReturnResult{}, err
		}
		res.StatusChanged = true
	}
	if err := tx.Commit(); err != nil {
		return ReturnResult{}, err
	}
	res.Feature = f
	res.Comment = c

	e.logActivity(ctx, activity.Entry{
		ActorID:     actor.ID,
		Action:      activity.ActionCommentReturnedToRework,
		EntityType:  "feature_comment",
		EntityID:    c.ID,
		Description: fmt.Sprintf("Comment returned to rework: %s Reason: %s", truncate(c.Text, 50), reason),
	})
	e.notify(ctx, e.commentReturnedNotices(ctx, f, actor, reason))
	if res.StatusChanged {
		e.afterStatusChange(ctx, actor, f, from, statusComment)
	}
	return res, nil
}

func (e Engine) ListComments(ctx context.Context, actor domain.Employee, featureID string, unresolvedOnly bool) ([]domain.FeatureComment, error) {
	if _, err := e.GetFeature(ctx, actor, featureID); err != nil {
		return nil, err
	}
	return e.Repo.ListComments(ctx, featureID, unresolvedOnly)
}

// CommentHistory returns the comment's actions, newest first.
func (e Engine) CommentHistory(ctx context.Context, actor domain.Employee, commentID string) ([]domain.FeatureCommentHistory, error) {
	c, err := e.Repo.GetComment(ctx, commentID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, notFound("comment", commentID)
	}
	if err != nil {
		return nil, err
	}
	if _, err := e.GetFeature(ctx, actor, c.FeatureID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, notFound("comment", commentID)
		}
		return nil, err
	}
	return e.Repo.CommentHistory(ctx, commentID)
}
