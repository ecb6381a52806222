package rules

import (
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mediaops/content-approval/internal/domain/entity"
)

// TriggeredAction is a rule action whose condition held during an
// evaluation pass. Actions are returned in rule definition order; the
// engine applies the stage-level effects.
type TriggeredAction struct {
	Action entity.RuleAction
}

// priorityRank orders priorities for greater_than / less_than comparisons.
var priorityRank = map[string]int{
	entity.PriorityLow:    1,
	entity.PriorityMedium: 2,
	entity.PriorityHigh:   3,
	entity.PriorityUrgent: 4,
}

// Evaluator evaluates stage rules against a content item.
type Evaluator struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewEvaluator creates a rule evaluator.
func NewEvaluator(logger *zap.Logger) *Evaluator {
	return &Evaluator{logger: logger, now: time.Now}
}

// Evaluate runs the rules in definition order and returns the actions
// whose conditions held. Content-level effects (set_priority, and the
// assignee-list effects of escalate/reassign) are applied to the content
// item immediately, so later rules in the same pass observe them.
func (e *Evaluator) Evaluate(content *entity.Content, ruleList []entity.Rule) []TriggeredAction {
	var triggered []TriggeredAction

	for _, rule := range ruleList {
		if !e.conditionHolds(content, rule.Condition) {
			continue
		}

		switch rule.Action.Type {
		case entity.RuleActionSetPriority:
			content.Priority = rule.Action.Value
		case entity.RuleActionEscalate:
			if rule.Action.Target != "" && !containsString(content.Assignees, rule.Action.Target) {
				content.Assignees = append(content.Assignees, rule.Action.Target)
			}
		case entity.RuleActionReassign:
			if rule.Action.Target != "" {
				content.Assignees = []string{rule.Action.Target}
			}
		}

		triggered = append(triggered, TriggeredAction{Action: rule.Action})
	}

	return triggered
}

// conditionHolds resolves the condition's left-hand value from the content
// item and applies the operator.
func (e *Evaluator) conditionHolds(content *entity.Content, cond entity.RuleCondition) bool {
	switch cond.Type {
	case entity.ConditionContentType:
		return compareString(content.ContentType, cond.Operator, cond.Value)

	case entity.ConditionPriority:
		return comparePriority(content.Priority, cond.Operator, cond.Value)

	case entity.ConditionAssignee:
		return compareSet(content.Assignees, cond.Operator, cond.Value)

	case entity.ConditionDeadline:
		if content.Deadline == nil {
			return false
		}
		return e.compareDeadline(*content.Deadline, cond.Operator, cond.Value)

	case entity.ConditionCustom:
		return compareScalar(content.MetadataValue(cond.Field), cond.Operator, cond.Value)

	default:
		e.logger.Warn("Skipping rule with unknown condition type",
			zap.String("condition_type", cond.Type))
		return false
	}
}

func compareString(left, operator, right string) bool {
	switch operator {
	case entity.OperatorEquals:
		return left == right
	case entity.OperatorNotEquals:
		return left != right
	case entity.OperatorContains:
		return strings.Contains(left, right)
	case entity.OperatorIn:
		return containsString(splitList(right), left)
	case entity.OperatorNotIn:
		return !containsString(splitList(right), left)
	default:
		return false
	}
}

func comparePriority(left, operator, right string) bool {
	switch operator {
	case entity.OperatorGreaterThan:
		return priorityRank[left] > priorityRank[right]
	case entity.OperatorLessThan:
		lr, ok := priorityRank[left]
		rr, rok := priorityRank[right]
		return ok && rok && lr < rr
	default:
		return compareString(left, operator, right)
	}
}

// compareSet evaluates operators against the content's assignee list.
func compareSet(left []string, operator, right string) bool {
	switch operator {
	case entity.OperatorContains, entity.OperatorEquals, entity.OperatorIn:
		return containsString(left, right)
	case entity.OperatorNotEquals, entity.OperatorNotIn:
		return !containsString(left, right)
	default:
		return false
	}
}

func (e *Evaluator) compareDeadline(deadline time.Time, operator, right string) bool {
	target, err := parseTime(right)
	if err != nil {
		// "now" compares the deadline against the evaluation instant.
		if right == "now" {
			target = e.now()
		} else {
			return false
		}
	}

	switch operator {
	case entity.OperatorEquals:
		return deadline.Equal(target)
	case entity.OperatorNotEquals:
		return !deadline.Equal(target)
	case entity.OperatorGreaterThan:
		return deadline.After(target)
	case entity.OperatorLessThan:
		return deadline.Before(target)
	default:
		return false
	}
}

// compareScalar compares numerically when both sides parse as numbers,
// falling back to string comparison.
func compareScalar(left, operator, right string) bool {
	lf, lerr := strconv.ParseFloat(left, 64)
	rf, rerr := strconv.ParseFloat(right, 64)
	if lerr == nil && rerr == nil {
		switch operator {
		case entity.OperatorEquals:
			return lf == rf
		case entity.OperatorNotEquals:
			return lf != rf
		case entity.OperatorGreaterThan:
			return lf > rf
		case entity.OperatorLessThan:
			return lf < rf
		}
	}
	return compareString(left, operator, right)
}

func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
