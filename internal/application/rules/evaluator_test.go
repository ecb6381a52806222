package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mediaops/content-approval/internal/domain/entity"
)

func newContent() *entity.Content {
	deadline := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	return &entity.Content{
		ID:          "content-1",
		ContentType: "video",
		Priority:    entity.PriorityHigh,
		Assignees:   []string{"alice"},
		Deadline:    &deadline,
		Metadata:    map[string]string{"word_count": "1200", "region": "emea"},
	}
}

func rule(condType, field, operator, value, actionType, actionValue, target string) entity.Rule {
	return entity.Rule{
		Condition: entity.RuleCondition{Type: condType, Field: field, Operator: operator, Value: value},
		Action:    entity.RuleAction{Type: actionType, Value: actionValue, Target: target},
	}
}

func TestEvaluateConditions(t *testing.T) {
	e := NewEvaluator(zap.NewNop())

	tests := []struct {
		name      string
		rule      entity.Rule
		triggered bool
	}{
		{
			name:      "content_type equals",
			rule:      rule(entity.ConditionContentType, "", entity.OperatorEquals, "video", entity.RuleActionNotify, "", ""),
			triggered: true,
		},
		{
			name:      "content_type not_equals",
			rule:      rule(entity.ConditionContentType, "", entity.OperatorNotEquals, "article", entity.RuleActionNotify, "", ""),
			triggered: true,
		},
		{
			name:      "content_type in list",
			rule:      rule(entity.ConditionContentType, "", entity.OperatorIn, "article, video", entity.RuleActionNotify, "", ""),
			triggered: true,
		},
		{
			name:      "content_type not in list",
			rule:      rule(entity.ConditionContentType, "", entity.OperatorNotIn, "article, podcast", entity.RuleActionNotify, "", ""),
			triggered: true,
		},
		{
			name:      "priority greater_than",
			rule:      rule(entity.ConditionPriority, "", entity.OperatorGreaterThan, entity.PriorityMedium, entity.RuleActionNotify, "", ""),
			triggered: true,
		},
		{
			name:      "priority less_than fails",
			rule:      rule(entity.ConditionPriority, "", entity.OperatorLessThan, entity.PriorityMedium, entity.RuleActionNotify, "", ""),
			triggered: false,
		},
		{
			name:      "assignee contains",
			rule:      rule(entity.ConditionAssignee, "", entity.OperatorContains, "alice", entity.RuleActionNotify, "", ""),
			triggered: true,
		},
		{
			name:      "assignee not_in",
			rule:      rule(entity.ConditionAssignee, "", entity.OperatorNotIn, "bob", entity.RuleActionNotify, "", ""),
			triggered: true,
		},
		{
			name:      "deadline before date",
			rule:      rule(entity.ConditionDeadline, "", entity.OperatorLessThan, "2026-04-01", entity.RuleActionNotify, "", ""),
			triggered: true,
		},
		{
			name:      "deadline after RFC3339 instant",
			rule:      rule(entity.ConditionDeadline, "", entity.OperatorGreaterThan, "2026-03-01T00:00:00Z", entity.RuleActionNotify, "", ""),
			triggered: true,
		},
		{
			name:      "custom metadata numeric greater_than",
			rule:      rule(entity.ConditionCustom, "word_count", entity.OperatorGreaterThan, "1000", entity.RuleActionNotify, "", ""),
			triggered: true,
		},
		{
			name:      "custom metadata string equals",
			rule:      rule(entity.ConditionCustom, "region", entity.OperatorEquals, "emea", entity.RuleActionNotify, "", ""),
			triggered: true,
		},
		{
			name:      "custom metadata missing field",
			rule:      rule(entity.ConditionCustom, "missing", entity.OperatorEquals, "x", entity.RuleActionNotify, "", ""),
			triggered: false,
		},
		{
			name:      "unknown condition type never triggers",
			rule:      rule("weather", "", entity.OperatorEquals, "sunny", entity.RuleActionNotify, "", ""),
			triggered: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			triggered := e.Evaluate(newContent(), []entity.Rule{tt.rule})
			if tt.triggered {
				assert.Len(t, triggered, 1)
			} else {
				assert.Empty(t, triggered)
			}
		})
	}
}

func TestEvaluateDeadlineNowComparesAgainstEvaluationInstant(t *testing.T) {
	e := NewEvaluator(zap.NewNop())
	e.now = func() time.Time { return time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC) }

	// Deadline 2026-03-10 is in the past relative to the pinned clock.
	triggered := e.Evaluate(newContent(), []entity.Rule{
		rule(entity.ConditionDeadline, "", entity.OperatorLessThan, "now", entity.RuleActionEscalate, "", "editor-in-chief"),
	})
	assert.Len(t, triggered, 1)
}

func TestEvaluateDeadlineAbsentNeverTriggers(t *testing.T) {
	e := NewEvaluator(zap.NewNop())
	content := newContent()
	content.Deadline = nil

	triggered := e.Evaluate(content, []entity.Rule{
		rule(entity.ConditionDeadline, "", entity.OperatorLessThan, "now", entity.RuleActionNotify, "", ""),
	})
	assert.Empty(t, triggered)
}

func TestEvaluateSetPriorityMutatesContent(t *testing.T) {
	e := NewEvaluator(zap.NewNop())
	content := newContent()

	triggered := e.Evaluate(content, []entity.Rule{
		rule(entity.ConditionContentType, "", entity.OperatorEquals, "video",
			entity.RuleActionSetPriority, entity.PriorityUrgent, ""),
	})
	require.Len(t, triggered, 1)
	assert.Equal(t, entity.PriorityUrgent, content.Priority)
}

func TestEvaluateEscalateAddsWithoutRemoving(t *testing.T) {
	e := NewEvaluator(zap.NewNop())
	content := newContent()

	e.Evaluate(content, []entity.Rule{
		rule(entity.ConditionContentType, "", entity.OperatorEquals, "video",
			entity.RuleActionEscalate, "", "editor-in-chief"),
	})
	assert.Equal(t, []string{"alice", "editor-in-chief"}, content.Assignees)

	// Escalating to an existing assignee does not duplicate it.
	e.Evaluate(content, []entity.Rule{
		rule(entity.ConditionContentType, "", entity.OperatorEquals, "video",
			entity.RuleActionEscalate, "", "editor-in-chief"),
	})
	assert.Equal(t, []string{"alice", "editor-in-chief"}, content.Assignees)
}

func TestEvaluateReassignReplacesAssignees(t *testing.T) {
	e := NewEvaluator(zap.NewNop())
	content := newContent()
	content.Assignees = []string{"alice", "bob"}

	e.Evaluate(content, []entity.Rule{
		rule(entity.ConditionContentType, "", entity.OperatorEquals, "video",
			entity.RuleActionReassign, "", "carol"),
	})
	assert.Equal(t, []string{"carol"}, content.Assignees)
}

func TestEvaluateLaterRulesSeeEarlierEffects(t *testing.T) {
	e := NewEvaluator(zap.NewNop())
	content := newContent()

	triggered := e.Evaluate(content, []entity.Rule{
		rule(entity.ConditionContentType, "", entity.OperatorEquals, "video",
			entity.RuleActionSetPriority, entity.PriorityUrgent, ""),
		// Only holds after the first rule raised the priority.
		rule(entity.ConditionPriority, "", entity.OperatorEquals, entity.PriorityUrgent,
			entity.RuleActionEscalate, "", "editor-in-chief"),
	})
	assert.Len(t, triggered, 2)
	assert.Contains(t, content.Assignees, "editor-in-chief")
}

func TestEvaluateReturnsActionsInDefinitionOrder(t *testing.T) {
	e := NewEvaluator(zap.NewNop())

	triggered := e.Evaluate(newContent(), []entity.Rule{
		rule(entity.ConditionContentType, "", entity.OperatorEquals, "video",
			entity.RuleActionNotify, "", "first"),
		rule(entity.ConditionContentType, "", entity.OperatorEquals, "article",
			entity.RuleActionNotify, "", "never"),
		rule(entity.ConditionPriority, "", entity.OperatorEquals, entity.PriorityHigh,
			entity.RuleActionSkipStage, "", ""),
	})
	require.Len(t, triggered, 2)
	assert.Equal(t, "first", triggered[0].Action.Target)
	assert.Equal(t, entity.RuleActionSkipStage, triggered[1].Action.Type)
}
