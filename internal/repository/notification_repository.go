package repository

import (
	"context"

	"tchatsouvenir/bookshop/internal/model"
)

type NotificationRepository struct {
	db *DB
}

func NewNotificationRepository(db *DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Insert(ctx context.Context, n *model.Notification) error {
	err := r.db.executor(ctx).QueryRow(ctx, `
		INSERT INTO notifications (id, user_id, order_id, type, title, message, channel, recipient, status, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at`,
		n.ID, n.UserID, n.OrderID, n.Type, n.Title, n.Message, n.Channel, n.Recipient, n.Status, jsonOrNil(n.Metadata),
	).Scan(&n.CreatedAt)
	return wrapErr(err, "insert notification")
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID string) ([]model.Notification, error) {
	rows, err := r.db.executor(ctx).Query(ctx, `
		SELECT id, user_id, order_id, type, title, message, channel, recipient, status, metadata, created_at
		FROM notifications WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, wrapErr(err, "list notifications")
	}
	defer rows.Close()

	list := []model.Notification{}
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.OrderID, &n.Type, &n.Title, &n.Message, &n.Channel,
			&n.Recipient, &n.Status, &n.Metadata, &n.CreatedAt); err != nil {
			return nil, wrapErr(err, "scan notification")
		}
		list = append(list, n)
	}
	return list, wrapErr(rows.Err(), "list notifications")
}
