package repository

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mediaops/content-approval/internal/application/port"
	"github.com/mediaops/content-approval/pkg/database"
)

// AuditEntry is one row of the audit trail.
type AuditEntry struct {
	ID        int64     `json:"id"`
	ContentID string    `json:"content_id"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"created_at"`
}

// AuditRepository implements port.AuditSink on sqlite.
type AuditRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewAuditRepository creates an audit repository.
func NewAuditRepository(db *database.DB, logger *zap.Logger) *AuditRepository {
	return &AuditRepository{db: db, logger: logger}
}

var _ port.AuditSink = (*AuditRepository)(nil)

// Record appends an audit entry.
func (r *AuditRepository) Record(ctx context.Context, contentID, actor, action, details string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_log (content_id, actor, action, details)
		VALUES (?, ?, ?, ?)`,
		contentID, actor, action, details)
	if err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}
	return nil
}

// GetByContentID returns the audit trail for a content item, oldest first.
func (r *AuditRepository) GetByContentID(ctx context.Context, contentID string) ([]*AuditEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, content_id, actor, action, details, created_at
		FROM audit_log WHERE content_id = ? ORDER BY id`, contentID)
	if err != nil {
		r.logger.Error("Failed to query audit log",
			zap.String("content_id", contentID), zap.Error(err))
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var entries []*AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.ContentID, &e.Actor, &e.Action, &e.Details, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
