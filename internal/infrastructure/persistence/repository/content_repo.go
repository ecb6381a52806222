package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mediaops/content-approval/internal/application/port"
	"github.com/mediaops/content-approval/internal/domain/entity"
	"github.com/mediaops/content-approval/pkg/database"
)

// ContentRepository implements port.ContentRepository on sqlite. The
// workflow execution snapshot is stored as a JSON column on the content
// row so one write makes the whole transition durable.
type ContentRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewContentRepository creates a content repository.
func NewContentRepository(db *database.DB, logger *zap.Logger) *ContentRepository {
	return &ContentRepository{db: db, logger: logger}
}

var _ port.ContentRepository = (*ContentRepository)(nil)

// Create inserts a new content item.
func (r *ContentRepository) Create(ctx context.Context, c *entity.Content) error {
	assignees, metadata, execution, err := marshalContentFields(c)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO contents (
			id, title, content_type, platform, team_id, author_id,
			status, priority, assignees, deadline, metadata, execution
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Title, c.ContentType, c.Platform, c.TeamID, c.AuthorID,
		c.Status, c.Priority, assignees, nullableTime(c.Deadline), metadata, execution,
	)
	if err != nil {
		r.logger.Error("Failed to create content", zap.String("content_id", c.ID), zap.Error(err))
		return fmt.Errorf("failed to create content: %w", err)
	}
	return nil
}

// FindByID retrieves a content item, or (nil, nil) when absent.
func (r *ContentRepository) FindByID(ctx context.Context, id string) (*entity.Content, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, title, content_type, platform, team_id, author_id,
			status, priority, assignees, deadline, metadata, execution,
			created_at, updated_at
		FROM contents WHERE id = ?`, id)

	c, err := scanContent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get content", zap.String("content_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get content: %w", err)
	}
	return c, nil
}

// Save persists the engine-mutable fields and the execution snapshot in
// one transaction.
func (r *ContentRepository) Save(ctx context.Context, c *entity.Content) error {
	assignees, metadata, execution, err := marshalContentFields(c)
	if err != nil {
		return err
	}

	return r.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE contents SET
				status = ?, priority = ?, assignees = ?, metadata = ?,
				execution = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ?`,
			c.Status, c.Priority, assignees, metadata, execution, c.ID)
		if err != nil {
			return fmt.Errorf("failed to save content: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("content %s does not exist", c.ID)
		}
		return nil
	})
}

// ListActiveExecutions returns content items whose embedded execution
// snapshot is active.
func (r *ContentRepository) ListActiveExecutions(ctx context.Context) ([]*entity.Content, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, content_type, platform, team_id, author_id,
			status, priority, assignees, deadline, metadata, execution,
			created_at, updated_at
		FROM contents
		WHERE json_extract(execution, '$.status') = ?
		ORDER BY id`, entity.ExecutionStatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to list active executions: %w", err)
	}
	defer rows.Close()

	var out []*entity.Content
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan content: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanContent(row rowScanner) (*entity.Content, error) {
	var c entity.Content
	var assignees, metadata []byte
	var execution sql.NullString
	var deadline sql.NullTime

	err := row.Scan(
		&c.ID, &c.Title, &c.ContentType, &c.Platform, &c.TeamID, &c.AuthorID,
		&c.Status, &c.Priority, &assignees, &deadline, &metadata, &execution,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if deadline.Valid {
		c.Deadline = &deadline.Time
	}
	if len(assignees) > 0 {
		if err := json.Unmarshal(assignees, &c.Assignees); err != nil {
			return nil, fmt.Errorf("corrupt assignees column: %w", err)
		}
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &c.Metadata); err != nil {
			return nil, fmt.Errorf("corrupt metadata column: %w", err)
		}
	}
	if execution.Valid && execution.String != "" {
		var exec entity.WorkflowExecution
		if err := json.Unmarshal([]byte(execution.String), &exec); err != nil {
			return nil, fmt.Errorf("corrupt execution snapshot: %w", err)
		}
		c.Execution = &exec
	}
	return &c, nil
}

func marshalContentFields(c *entity.Content) (assignees, metadata []byte, execution interface{}, err error) {
	if c.Assignees == nil {
		c.Assignees = []string{}
	}
	assignees, err = json.Marshal(c.Assignees)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal assignees: %w", err)
	}
	if c.Metadata == nil {
		c.Metadata = map[string]string{}
	}
	metadata, err = json.Marshal(c.Metadata)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if c.Execution != nil {
		data, merr := json.Marshal(c.Execution)
		if merr != nil {
			return nil, nil, nil, fmt.Errorf("failed to marshal execution snapshot: %w", merr)
		}
		execution = string(data)
	}
	return assignees, metadata, execution, nil
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}
