package registry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mediaops/content-approval/internal/domain/entity"
	"github.com/mediaops/content-approval/internal/domain/workflow"
)

const defaultDef = `
id: standard-review
name: Standard Review
is_default: true
stages:
  - id: review
    name: Review
    type: review
    assignee_references:
      - kind: team
        id: editorial
    requirements:
      min_approvals: 1
`

const videoDef = `
id: video-review
name: Video Review
criteria:
  content_types: [video]
stages:
  - id: producer-review
    name: Producer Review
    type: review
    assignee_references:
      - kind: role
        id: producer
    requirements:
      min_approvals: 2
`

func writeDefs(t *testing.T, defs map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range defs {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0644))
	}
	return dir
}

func TestNewLoadsDefinitions(t *testing.T) {
	dir := writeDefs(t, map[string]string{
		"a_standard.yaml": defaultDef,
		"b_video.yaml":    videoDef,
		"ignored.txt":     "not yaml",
	})

	r, err := New(dir, zap.NewNop())
	require.NoError(t, err)

	assert.Len(t, r.List(), 2)
	require.NotNil(t, r.Get("standard-review"))
	assert.Equal(t, "Standard Review", r.Get("standard-review").Name)
	assert.Nil(t, r.Get("missing"))
}

func TestSelectForContent(t *testing.T) {
	dir := writeDefs(t, map[string]string{
		"a_standard.yaml": defaultDef,
		"b_video.yaml":    videoDef,
	})
	r, err := New(dir, zap.NewNop())
	require.NoError(t, err)

	video := &entity.Content{ContentType: "video"}
	def, err := r.SelectForContent(video)
	require.NoError(t, err)
	assert.Equal(t, "video-review", def.ID)

	article := &entity.Content{ContentType: "article"}
	def, err = r.SelectForContent(article)
	require.NoError(t, err)
	assert.Equal(t, "standard-review", def.ID)
}

func TestSelectForContentDefaultWithCriteriaMatchesFirst(t *testing.T) {
	const urgentDefault = `
id: urgent-default
name: Urgent Default
is_default: true
criteria:
  priorities: [urgent]
stages:
  - id: review
    name: Review
    type: review
    assignee_references:
      - kind: team
        id: editorial
    requirements:
      min_approvals: 1
`
	dir := writeDefs(t, map[string]string{
		"a_urgent.yaml": urgentDefault,
		"b_video.yaml":  videoDef,
	})
	r, err := New(dir, zap.NewNop())
	require.NoError(t, err)

	// A default that declares criteria participates in the matching pass
	// like any other definition; load order breaks the tie.
	urgentVideo := &entity.Content{ContentType: "video", Priority: "urgent"}
	def, err := r.SelectForContent(urgentVideo)
	require.NoError(t, err)
	assert.Equal(t, "urgent-default", def.ID)

	// It still serves as the fallback when no criteria match.
	article := &entity.Content{ContentType: "article"}
	def, err = r.SelectForContent(article)
	require.NoError(t, err)
	assert.Equal(t, "urgent-default", def.ID)
}

func TestSelectForContentNoMatchNoDefault(t *testing.T) {
	dir := writeDefs(t, map[string]string{"b_video.yaml": videoDef})
	r, err := New(dir, zap.NewNop())
	require.NoError(t, err)

	_, err = r.SelectForContent(&entity.Content{ContentType: "article"})
	assert.True(t, errors.Is(err, workflow.ErrNoWorkflowFound))
}

func TestNewRejectsDuplicateIDs(t *testing.T) {
	dir := writeDefs(t, map[string]string{
		"a.yaml": defaultDef,
		"b.yaml": defaultDef,
	})
	_, err := New(dir, zap.NewNop())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestReloadKeepsOldSetOnFailure(t *testing.T) {
	dir := writeDefs(t, map[string]string{"a.yaml": defaultDef})
	r, err := New(dir, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("id: broken\nstages: []\n"), 0644))
	assert.Error(t, r.Reload())

	// The previously loaded set survives a failed reload.
	assert.NotNil(t, r.Get("standard-review"))
	assert.Len(t, r.List(), 1)
}

func TestValidate(t *testing.T) {
	valid := func() *entity.WorkflowDefinition {
		return &entity.WorkflowDefinition{
			ID: "wf",
			Stages: []entity.Stage{
				{
					ID:   "review",
					Type: entity.StageTypeReview,
					AssigneeReferences: []entity.AssigneeReference{
						{Kind: entity.AssigneeRefUser, ID: "alice"},
					},
				},
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*entity.WorkflowDefinition)
		wantErr string
	}{
		{
			name:   "valid definition",
			mutate: func(d *entity.WorkflowDefinition) {},
		},
		{
			name:    "missing id",
			mutate:  func(d *entity.WorkflowDefinition) { d.ID = "" },
			wantErr: "id is required",
		},
		{
			name:    "no stages",
			mutate:  func(d *entity.WorkflowDefinition) { d.Stages = nil },
			wantErr: "no stages",
		},
		{
			name: "duplicate stage ids",
			mutate: func(d *entity.WorkflowDefinition) {
				d.Stages = append(d.Stages, d.Stages[0])
			},
			wantErr: "duplicate stage id",
		},
		{
			name:    "unknown stage type",
			mutate:  func(d *entity.WorkflowDefinition) { d.Stages[0].Type = "weird" },
			wantErr: "unknown type",
		},
		{
			name:    "negative min approvals",
			mutate:  func(d *entity.WorkflowDefinition) { d.Stages[0].Requirements.MinApprovals = -1 },
			wantErr: "negative min_approvals",
		},
		{
			name: "escalation hours without target",
			mutate: func(d *entity.WorkflowDefinition) {
				d.Stages[0].Requirements.EscalationHours = 4
			},
			wantErr: "without a target",
		},
		{
			name: "unknown assignee kind",
			mutate: func(d *entity.WorkflowDefinition) {
				d.Stages[0].AssigneeReferences[0].Kind = "group"
			},
			wantErr: "unknown assignee kind",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := valid()
			tt.mutate(def)
			err := Validate(def)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
