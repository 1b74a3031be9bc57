package repo

import (
	"context"
	"database/sql"
	"strings"

	"shiftlog/internal/domain"
)

const featureColumns = `id,test_project_id,title,description,created_by,status,priority,created_at,updated_at,completed_at`

func scanFeature(row rowScanner) (domain.Feature, error) {
	var f domain.Feature
	var status string
	var priority int
	var completed sql.NullString
	err := row.Scan(&f.ID, &f.ProjectID, &f.Title, &f.Description, &f.CreatedBy, &status, &priority, &f.CreatedAt, &f.UpdatedAt, &completed)
	if err == sql.ErrNoRows {
		return f, ErrNotFound
	}
	f.Status = domain.FeatureStatus(status)
	f.Priority = domain.Priority(priority)
	f.CompletedAt = stringPtr(completed)
	return f, err
}

func (r Repo) InsertFeatureTx(ctx context.Context, tx *sql.Tx, f domain.Feature) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO features(id,test_project_id,title,description,created_by,status,priority,created_at,updated_at,completed_at) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		f.ID, f.ProjectID, f.Title, f.Description, f.CreatedBy, string(f.Status), int(f.Priority), f.CreatedAt, f.UpdatedAt, nullableStringPtr(f.CompletedAt))
	return err
}

// UpdateFeatureTx writes every mutable column of f.
func (r Repo) UpdateFeatureTx(ctx context.Context, tx *sql.Tx, f domain.Feature) error {
	return affectedOrNotFound(tx.ExecContext(ctx, `UPDATE features SET title=?, description=?, status=?, priority=?, updated_at=?, completed_at=? WHERE id=?`,
		f.Title, f.Description, string(f.Status), int(f.Priority), f.UpdatedAt, nullableStringPtr(f.CompletedAt), f.ID))
}

func (r Repo) GetFeature(ctx context.Context, id string) (domain.Feature, error) {
	return getFeature(ctx, r.DB, id)
}

func (r Repo) GetFeatureTx(ctx context.Context, tx *sql.Tx, id string) (domain.Feature, error) {
	return getFeature(ctx, tx, id)
}

func getFeature(ctx context.Context, q querier, id string) (domain.Feature, error) {
	return scanFeature(q.QueryRowContext(ctx, `SELECT `+featureColumns+` FROM features WHERE id=?`, id))
}

type FeatureFilter struct {
	ProjectID string
	Status    domain.FeatureStatus
	Priority  domain.Priority
	CreatedBy string
	// Search matches title or description, case-insensitively.
	Search string
	Limit  int
}

// ListFeatures returns features ordered by priority (highest first), then
// newest first.
func (r Repo) ListFeatures(ctx context.Context, f FeatureFilter) ([]domain.Feature, error) {
	var (
		clauses []string
		args    []any
	)
	if f.ProjectID != "" {
		clauses = append(clauses, "test_project_id=?")
		args = append(args, f.ProjectID)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, string(f.Status))
	}
	if f.Priority != 0 {
		clauses = append(clauses, "priority=?")
		args = append(args, int(f.Priority))
	}
	if f.CreatedBy != "" {
		clauses = append(clauses, "created_by=?")
		args = append(args, f.CreatedBy)
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		clauses = append(clauses, `(title LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\')`)
		args = append(args, likePattern(term), likePattern(term))
	}
	query := `SELECT ` + featureColumns + ` FROM features`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY priority DESC, created_at DESC, rowid DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Feature
	for rows.Next() {
		ft, err := scanFeature(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, ft)
	}
	return res, rows.Err()
}
