package resolver

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mediaops/content-approval/internal/application/port"
	"github.com/mediaops/content-approval/internal/domain/entity"
)

// Resolver turns assignee references (direct user, team, role) into a
// concrete set of user ids. It never caches: team membership and
// availability changes are reflected on the next stage start.
type Resolver struct {
	directory port.TeamDirectory
	logger    *zap.Logger
	now       func() time.Time
}

// New creates an assignee resolver backed by the team directory.
func New(directory port.TeamDirectory, logger *zap.Logger) *Resolver {
	return &Resolver{
		directory: directory,
		logger:    logger,
		now:       time.Now,
	}
}

// Resolve expands the references in order, deduplicating while preserving
// first-seen order. Team references expand to members flagged able to
// approve content and currently available.
func (r *Resolver) Resolve(ctx context.Context, refs []entity.AssigneeReference) ([]string, error) {
	var users []string
	seen := make(map[string]bool)

	add := func(userID string) {
		if userID == "" || seen[userID] {
			return
		}
		seen[userID] = true
		users = append(users, userID)
	}

	for _, ref := range refs {
		switch ref.Kind {
		case entity.AssigneeRefUser:
			add(ref.ID)

		case entity.AssigneeRefTeam:
			team, err := r.directory.GetTeam(ctx, ref.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve team %s: %w", ref.ID, err)
			}
			if team == nil {
				r.logger.Warn("Assignee reference points to unknown team",
					zap.String("team_id", ref.ID))
				continue
			}
			now := r.now()
			for _, member := range team.Members {
				if member.CanApproveContent && member.IsAvailable(now) {
					add(member.UserID)
				}
			}

		case entity.AssigneeRefRole:
			ids, err := r.directory.FindUsersByRole(ctx, ref.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve role %s: %w", ref.ID, err)
			}
			for _, id := range ids {
				add(id)
			}

		default:
			r.logger.Warn("Skipping assignee reference with unknown kind",
				zap.String("kind", ref.Kind),
				zap.String("id", ref.ID))
		}
	}

	return users, nil
}
