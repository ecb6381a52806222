package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/mediaops/content-approval/internal/application/port"
	"github.com/mediaops/content-approval/internal/domain/entity"
	"github.com/mediaops/content-approval/pkg/database"
)

// TeamRepository implements port.TeamDirectory on sqlite. Lookups are
// local-store reads so assignee resolution stays off the network.
type TeamRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewTeamRepository creates a team repository.
func NewTeamRepository(db *database.DB, logger *zap.Logger) *TeamRepository {
	return &TeamRepository{db: db, logger: logger}
}

var _ port.TeamDirectory = (*TeamRepository)(nil)

// GetTeam retrieves a team with its members, or (nil, nil) when absent.
func (r *TeamRepository) GetTeam(ctx context.Context, teamID string) (*entity.Team, error) {
	var team entity.Team
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name FROM teams WHERE id = ?", teamID).Scan(&team.ID, &team.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get team", zap.String("team_id", teamID), zap.Error(err))
		return nil, fmt.Errorf("failed to get team: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, role, can_approve_content, availability, unavailable_until
		FROM team_members WHERE team_id = ? ORDER BY user_id`, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to get team members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m entity.TeamMember
		var until sql.NullTime
		if err := rows.Scan(&m.UserID, &m.Role, &m.CanApproveContent, &m.Availability, &until); err != nil {
			return nil, fmt.Errorf("failed to scan team member: %w", err)
		}
		if until.Valid {
			m.UnavailableUntil = &until.Time
		}
		team.Members = append(team.Members, m)
	}
	return &team, rows.Err()
}

// FindUsersByRole returns the distinct user ids holding a role in any team.
func (r *TeamRepository) FindUsersByRole(ctx context.Context, role string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT DISTINCT user_id FROM team_members WHERE role = ? ORDER BY user_id", role)
	if err != nil {
		return nil, fmt.Errorf("failed to find users by role: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		users = append(users, id)
	}
	return users, rows.Err()
}
