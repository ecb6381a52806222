package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrentStageReturnsLastHistoryEntry(t *testing.T) {
	exec := &WorkflowExecution{Status: ExecutionStatusActive}
	assert.Nil(t, exec.CurrentStage())

	exec.StageHistory = append(exec.StageHistory, StageExecution{StageID: "review"})
	require.NotNil(t, exec.CurrentStage())
	assert.Equal(t, "review", exec.CurrentStage().StageID)

	// A revision restart appends a fresh entry for the same stage.
	exec.StageHistory = append(exec.StageHistory, StageExecution{StageID: "review"})
	assert.Len(t, exec.StageHistory, 2)
	assert.Same(t, &exec.StageHistory[1], exec.CurrentStage())
}

func TestLastActivity(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	completed := base.Add(2 * time.Hour)

	exec := &WorkflowExecution{
		StartedAt: base,
		StageHistory: []StageExecution{
			{
				StageID:     "review",
				StartedAt:   base.Add(time.Minute),
				CompletedAt: &completed,
				Approvals: []ApprovalRecord{
					{UserID: "alice", Action: ActionApproved, Timestamp: base.Add(time.Hour)},
				},
			},
			{
				StageID:   "approval",
				StartedAt: base.Add(2 * time.Hour),
			},
		},
	}

	assert.Equal(t, completed, exec.LastActivity())

	// A later approval on the live stage moves the watermark.
	exec.StageHistory[1].Approvals = append(exec.StageHistory[1].Approvals, ApprovalRecord{
		UserID: "bob", Action: ActionApproved, Timestamp: base.Add(3 * time.Hour),
	})
	assert.Equal(t, base.Add(3*time.Hour), exec.LastActivity())
}

func TestLastActivityWithoutStages(t *testing.T) {
	started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	exec := &WorkflowExecution{StartedAt: started}
	assert.Equal(t, started, exec.LastActivity())
}

func TestStageExecutionHasActed(t *testing.T) {
	se := &StageExecution{
		Approvals: []ApprovalRecord{
			{UserID: "alice", Action: ActionApproved},
			{UserID: "bob", Action: ActionRejected},
		},
	}
	assert.True(t, se.HasActed("alice"))
	assert.True(t, se.HasActed("bob"))
	assert.False(t, se.HasActed("carol"))
}

func TestStageExecutionCountAction(t *testing.T) {
	se := &StageExecution{
		Approvals: []ApprovalRecord{
			{UserID: "alice", Action: ActionApproved},
			{UserID: "bob", Action: ActionApproved},
			{UserID: "carol", Action: ActionRevisionRequested},
		},
	}
	assert.Equal(t, 2, se.CountAction(ActionApproved))
	assert.Equal(t, 1, se.CountAction(ActionRevisionRequested))
	assert.Equal(t, 0, se.CountAction(ActionRejected))
}

func TestTeamMemberIsAvailable(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name   string
		member TeamMember
		want   bool
	}{
		{
			name:   "available flag",
			member: TeamMember{Availability: AvailabilityAvailable},
			want:   true,
		},
		{
			name:   "empty availability defaults to available",
			member: TeamMember{},
			want:   true,
		},
		{
			name:   "unavailable with no end date",
			member: TeamMember{Availability: AvailabilityUnavailable},
			want:   false,
		},
		{
			name:   "on vacation until the future",
			member: TeamMember{Availability: AvailabilityVacation, UnavailableUntil: &future},
			want:   false,
		},
		{
			name:   "vacation already over",
			member: TeamMember{Availability: AvailabilityVacation, UnavailableUntil: &past},
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.member.IsAvailable(now))
		})
	}
}
