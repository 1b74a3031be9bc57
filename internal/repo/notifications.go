package repo

import (
	"context"
	"database/sql"

	"shiftlog/internal/domain"
)

func (r Repo) InsertNotification(ctx context.Context, n domain.Notification) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO notifications(id,recipient_id,type,title,message,is_read,sent_at,read_at) VALUES (?,?,?,?,?,?,?,?)`,
		n.ID, n.RecipientID, string(n.Type), n.Title, n.Message, boolInt(n.IsRead), n.SentAt, nullableStringPtr(n.ReadAt))
	return err
}

// ListNotifications returns the recipient's notifications, newest first.
func (r Repo) ListNotifications(ctx context.Context, recipientID string, unreadOnly bool, limit int) ([]domain.Notification, error) {
	query := `SELECT id,recipient_id,type,title,message,is_read,sent_at,read_at FROM notifications WHERE recipient_id=?`
	args := []any{recipientID}
	if unreadOnly {
		query += " AND is_read=0"
	}
	query += " ORDER BY sent_at DESC, rowid DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Notification
	for rows.Next() {
		var n domain.Notification
		var typ string
		var read int
		var readAt sql.NullString
		if err := rows.Scan(&n.ID, &n.RecipientID, &typ, &n.Title, &n.Message, &read, &n.SentAt, &readAt); err != nil {
			return nil, err
		}
		n.Type = domain.NotificationType(typ)
		n.IsRead = read == 1
		n.ReadAt = stringPtr(readAt)
		res = append(res, n)
	}
	return res, rows.Err()
}

// MarkNotificationRead marks one notification read. Notifications of other
// recipients are reported as not found.
func (r Repo) MarkNotificationRead(ctx context.Context, id, recipientID, at string) error {
	return affectedOrNotFound(r.DB.ExecContext(ctx, `UPDATE notifications SET is_read=1, read_at=COALESCE(read_at, ?) WHERE id=? AND recipient_id=?`, at, id, recipientID))
}

func (r Repo) MarkAllNotificationsRead(ctx context.Context, recipientID, at string) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `UPDATE notifications SET is_read=1, read_at=? WHERE recipient_id=? AND is_read=0`, at, recipientID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r Repo) UnreadCount(ctx context.Context, recipientID string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications WHERE recipient_id=? AND is_read=0`, recipientID).Scan(&n)
	return n, err
}
