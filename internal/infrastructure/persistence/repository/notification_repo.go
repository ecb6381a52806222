package repository

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mediaops/content-approval/internal/application/port"
	"github.com/mediaops/content-approval/internal/domain/entity"
	"github.com/mediaops/content-approval/pkg/database"
)

// Notification is one requested notification awaiting pickup by a
// delivery channel.
type Notification struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Urgent    bool      `json:"urgent"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// NotificationRepository implements port.Notifier by recording requested
// notifications. Delivery over concrete channels is owned by an external
// dispatcher that drains the table.
type NotificationRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewNotificationRepository creates a notification repository.
func NewNotificationRepository(db *database.DB, logger *zap.Logger) *NotificationRepository {
	return &NotificationRepository{db: db, logger: logger}
}

var _ port.Notifier = (*NotificationRepository)(nil)

// Send records a notification request.
func (r *NotificationRepository) Send(ctx context.Context, userID, kind, title, message string, urgent bool) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications (user_id, kind, title, message, urgent, status)
		VALUES (?, ?, ?, ?, ?, ?)`,
		userID, kind, title, message, urgent, entity.NotificationStatusPending)
	if err != nil {
		return fmt.Errorf("failed to record notification: %w", err)
	}

	r.logger.Debug("Notification requested",
		zap.String("user_id", userID),
		zap.String("kind", kind),
		zap.Bool("urgent", urgent))
	return nil
}

// GetPending returns undelivered notifications, oldest first.
func (r *NotificationRepository) GetPending(ctx context.Context, limit int) ([]*Notification, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, kind, title, message, urgent, status, created_at
		FROM notifications WHERE status = ? ORDER BY id LIMIT ?`,
		entity.NotificationStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var out []*Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Kind, &n.Title, &n.Message, &n.Urgent, &n.Status, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &n)
	}
	return out, rows.Err()
}

// MarkSent marks a notification as handed to its delivery channel.
func (r *NotificationRepository) MarkSent(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE notifications SET status = ? WHERE id = ?", entity.NotificationStatusSent, id)
	if err != nil {
		return fmt.Errorf("failed to mark notification sent: %w", err)
	}
	return nil
}
