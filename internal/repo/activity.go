package repo

import (
	"context"
	"database/sql"
	"strings"

	"shiftlog/internal/domain"
)

type ActivityFilter struct {
	ActorID    string
	Action     string
	EntityType string
	EntityID   string
	Limit      int
}

func scanActivity(rows *sql.Rows) (domain.ActivityEntry, error) {
	var a domain.ActivityEntry
	var changes sql.NullString
	err := rows.Scan(&a.ID, &a.TS, &a.ActorID, &a.Action, &a.EntityType, &a.EntityID, &a.Description, &changes)
	a.ChangesJSON = changes.String
	return a, err
}

// ActivityTail returns the newest matching entries, newest first.
func (r Repo) ActivityTail(ctx context.Context, f ActivityFilter) ([]domain.ActivityEntry, error) {
	var (
		clauses []string
		args    []any
	)
	if f.ActorID != "" {
		clauses = append(clauses, "actor_id=?")
		args = append(args, f.ActorID)
	}
	if f.Action != "" {
		clauses = append(clauses, "action=?")
		args = append(args, f.Action)
	}
	if f.EntityType != "" {
		clauses = append(clauses, "entity_type=?")
		args = append(args, f.EntityType)
	}
	if f.EntityID != "" {
		clauses = append(clauses, "entity_id=?")
		args = append(args, f.EntityID)
	}
	query := `SELECT id,ts,actor_id,action,entity_type,entity_id,description,changes_json FROM activity_log`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY id DESC"
	if f.Limit <= 0 {
		f.Limit = 50
	}
	query += " LIMIT ?"
	args = append(args, f.Limit)
	return r.queryActivity(ctx, query, args...)
}

// ActivityAfter returns entries with id > cursor in ascending order.
func (r Repo) ActivityAfter(ctx context.Context, cursor int64, limit int) ([]domain.ActivityEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	return r.queryActivity(ctx, `SELECT id,ts,actor_id,action,entity_type,entity_id,description,changes_json
		FROM activity_log WHERE id > ? ORDER BY id ASC LIMIT ?`, cursor, limit)
}

func (r Repo) LatestActivityID(ctx context.Context) (int64, error) {
	var id sql.NullInt64
	if err := r.DB.QueryRowContext(ctx, `SELECT MAX(id) FROM activity_log`).Scan(&id); err != nil {
		return 0, err
	}
	return id.Int64, nil
}

func (r Repo) queryActivity(ctx context.Context, query string, args ...any) ([]domain.ActivityEntry, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.ActivityEntry
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}
