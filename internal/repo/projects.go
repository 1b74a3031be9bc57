package repo

import (
	"context"
	"database/sql"
	"strings"

	"shiftlog/internal/domain"
)

const projectColumns = `id,name,description,created_by,is_active,created_at,updated_at`

func scanProject(row rowScanner) (domain.TestProject, error) {
	var p domain.TestProject
	var active int
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.CreatedBy, &active, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	p.IsActive = active == 1
	return p, err
}

func (r Repo) InsertProjectTx(ctx context.Context, tx *sql.Tx, p domain.TestProject) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO test_projects(id,name,description,created_by,is_active,created_at,updated_at) VALUES (?,?,?,?,?,?,?)`,
		p.ID, p.Name, p.Description, p.CreatedBy, boolInt(p.IsActive), p.CreatedAt, p.UpdatedAt)
	return conflict(err)
}

func (r Repo) UpdateProjectTx(ctx context.Context, tx *sql.Tx, p domain.TestProject) error {
	return affectedOrNotFound(tx.ExecContext(ctx, `UPDATE test_projects SET description=?, is_active=?, updated_at=? WHERE id=?`,
		p.Description, boolInt(p.IsActive), p.UpdatedAt, p.ID))
}

func (r Repo) GetProject(ctx context.Context, id string) (domain.TestProject, error) {
	return getProject(ctx, r.DB, id)
}

func (r Repo) GetProjectTx(ctx context.Context, tx *sql.Tx, id string) (domain.TestProject, error) {
	return getProject(ctx, tx, id)
}

func getProject(ctx context.Context, q querier, id string) (domain.TestProject, error) {
	return scanProject(q.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM test_projects WHERE id=?`, id))
}

type ProjectFilter struct {
	ActiveOnly bool
	CreatedBy  string
	// Search matches name or description, case-insensitively.
	Search string
}

func (r Repo) ListProjects(ctx context.Context, f ProjectFilter) ([]domain.TestProject, error) {
	query := `SELECT ` + projectColumns + ` FROM test_projects WHERE 1=1`
	var args []any
	if f.ActiveOnly {
		query += " AND is_active=1"
	}
	if f.CreatedBy != "" {
		query += " AND created_by=?"
		args = append(args, f.CreatedBy)
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		query += ` AND (name LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\')`
		args = append(args, likePattern(term), likePattern(term))
	}
	query += " ORDER BY created_at DESC, rowid DESC"
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.TestProject
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

// ProjectCounters returns the total number of features, the features not yet
// done and the unresolved comments across the project's features.
func (r Repo) ProjectCounters(ctx context.Context, projectID string) (total, active, unresolved int, err error) {
	err = r.DB.QueryRowContext(ctx, `SELECT
		COUNT(*),
		COALESCE(SUM(CASE WHEN status <> 'done' THEN 1 ELSE 0 END), 0)
		FROM features WHERE test_project_id=?`, projectID).Scan(&total, &active)
	if err != nil {
		return 0, 0, 0, err
	}
	err = r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM feature_comments c
		JOIN features f ON f.id = c.feature_id
		WHERE f.test_project_id=? AND c.is_resolved=0`, projectID).Scan(&unresolved)
	if err != nil {
		return 0, 0, 0, err
	}
	return total, active, unresolved, nil
}
