package entity

import "time"

// Content represents a content item moving through an approval workflow.
// The engine mutates Status, Priority, Assignees and Metadata; everything
// else belongs to the content-management API.
type Content struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	ContentType string            `json:"content_type"`
	Platform    string            `json:"platform"`
	TeamID      string            `json:"team_id"`
	AuthorID    string            `json:"author_id"`
	Status      string            `json:"status"`
	Priority    string            `json:"priority"`
	Assignees   []string          `json:"assignees"`
	Deadline    *time.Time        `json:"deadline,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`

	// Execution is the embedded workflow execution snapshot used for
	// restart recovery. Nil when no workflow has ever run for this item.
	Execution *WorkflowExecution `json:"workflow_execution,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MetadataValue returns a named metadata field, or "" if absent.
func (c *Content) MetadataValue(key string) string {
	if c.Metadata == nil {
		return ""
	}
	return c.Metadata[key]
}
