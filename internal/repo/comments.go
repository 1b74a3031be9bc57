package repo

import (
	"context"
	"database/sql"

	"shiftlog/internal/domain"
)

const commentColumns = `id,feature_id,author_id,text,comment_type,is_resolved,rework_reason,created_at`

func scanComment(row rowScanner) (domain.FeatureComment, error) {
	var c domain.FeatureComment
	var typ string
	var resolved int
	var reason sql.NullString
	err := row.Scan(&c.ID, &c.FeatureID, &c.AuthorID, &c.Text, &typ, &resolved, &reason, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	c.Type = domain.CommentType(typ)
	c.IsResolved = resolved == 1
	c.ReworkReason = stringPtr(reason)
	return c, err
}

func (r Repo) InsertCommentTx(ctx context.Context, tx *sql.Tx, c domain.FeatureComment) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO feature_comments(id,feature_id,author_id,text,comment_type,is_resolved,rework_reason,created_at) VALUES (?,?,?,?,?,?,?,?)`,
		c.ID, c.FeatureID, c.AuthorID, c.Text, string(c.Type), boolInt(c.IsResolved), nullableStringPtr(c.ReworkReason), c.CreatedAt)
	return err
}

// UpdateCommentStateTx writes the resolution flag and rework reason.
func (r Repo) UpdateCommentStateTx(ctx context.Context, tx *sql.Tx, c domain.FeatureComment) error {
	return affectedOrNotFound(tx.ExecContext(ctx, `UPDATE feature_comments SET is_resolved=?, rework_reason=? WHERE id=?`,
		boolInt(c.IsResolved), nullableStringPtr(c.ReworkReason), c.ID))
}

func (r Repo) GetComment(ctx context.Context, id string) (domain.FeatureComment, error) {
	return getComment(ctx, r.DB, id)
}

func (r Repo) GetCommentTx(ctx context.Context, tx *sql.Tx, id string) (domain.FeatureComment, error) {
	return getComment(ctx, tx, id)
}

func getComment(ctx context.Context, q querier, id string) (domain.FeatureComment, error) {
	return scanComment(q.QueryRowContext(ctx, `SELECT `+commentColumns+` FROM feature_comments WHERE id=?`, id))
}

// ListComments returns the feature's comments, oldest first.
func (r Repo) ListComments(ctx context.Context, featureID string, unresolvedOnly bool) ([]domain.FeatureComment, error) {
	query := `SELECT ` + commentColumns + ` FROM feature_comments WHERE feature_id=?`
	if unresolvedOnly {
		query += " AND is_resolved=0"
	}
	query += " ORDER BY created_at, rowid"
	rows, err := r.DB.QueryContext(ctx, query, featureID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.FeatureComment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r Repo) CountUnresolvedCommentsTx(ctx context.Context, tx *sql.Tx, featureID string) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM feature_comments WHERE feature_id=? AND is_resolved=0`, featureID).Scan(&n)
	return n, err
}
