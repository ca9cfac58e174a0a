package notify

import (
	"context"
	"database/sql"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Create(ctx context.Context, n Notification) error {
	const query = `
INSERT INTO notifications (id, user_id, type, title, message, link, read, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	var link sql.NullString
	if n.Link != "" {
		link = sql.NullString{String: n.Link, Valid: true}
	}

	_, err := r.DB.ExecContext(ctx, query,
		n.ID, n.UserID, n.Type, n.Title, n.Message, link, n.Read, n.CreatedAt,
	)
	return err
}

func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit int) ([]Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	const query = `
SELECT id, user_id, type, title, message, link, read, created_at
FROM notifications
WHERE user_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2`

	rows, err := r.DB.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		var link sql.NullString
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &link, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.Link = link.String
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *PGRepo) MarkRead(ctx context.Context, userID, notificationID string) error {
	const query = `UPDATE notifications SET read = TRUE WHERE user_id = $1 AND id = $2`
	_, err := r.DB.ExecContext(ctx, query, userID, notificationID)
	return err
}

func (r *PGRepo) DeleteAllForUser(ctx context.Context, userID string) (int, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM notifications WHERE user_id = $1`, userID)
	if err != nil {
		return 0, err
	}
	deleted, _ := res.RowsAffected()
	return int(deleted), nil
}

var _ Repo = (*PGRepo)(nil)
