package port

import (
	"context"

	"github.com/mediaops/content-approval/internal/domain/entity"
)

// ContentRepository is the system of record for content items and their
// embedded workflow execution snapshots. Implementations return (nil, nil)
// when an item does not exist.
type ContentRepository interface {
	FindByID(ctx context.Context, id string) (*entity.Content, error)

	// Save persists all engine-mutable fields (status, priority,
	// assignees, metadata) together with the execution snapshot in a
	// single transaction.
	Save(ctx context.Context, content *entity.Content) error

	// ListActiveExecutions returns every content item whose persisted
	// execution snapshot has status "active". Used for restart recovery
	// and by the stalled-workflow monitor.
	ListActiveExecutions(ctx context.Context) ([]*entity.Content, error)
}

// TeamDirectory resolves team and role references to users.
type TeamDirectory interface {
	// GetTeam returns the team with members and availability, or
	// (nil, nil) when the team does not exist.
	GetTeam(ctx context.Context, teamID string) (*entity.Team, error)

	// FindUsersByRole returns the user ids holding the given role.
	FindUsersByRole(ctx context.Context, role string) ([]string, error)
}
