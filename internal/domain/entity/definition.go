package entity

// WorkflowDefinition is an immutable-per-execution workflow template.
// Definitions are loaded into the registry at startup and selected for a
// content item either explicitly by ID or via Criteria matching.
type WorkflowDefinition struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Stages      []Stage  `json:"stages" yaml:"stages"`
	Criteria    Criteria `json:"criteria,omitempty" yaml:"criteria,omitempty"`
	IsDefault   bool     `json:"is_default,omitempty" yaml:"is_default,omitempty"`
}

// Criteria selects a definition for a content item when no explicit
// workflow ID is given. Empty fields match anything.
type Criteria struct {
	ContentTypes []string `json:"content_types,omitempty" yaml:"content_types,omitempty"`
	Priorities   []string `json:"priorities,omitempty" yaml:"priorities,omitempty"`
	Platforms    []string `json:"platforms,omitempty" yaml:"platforms,omitempty"`
	TeamIDs      []string `json:"team_ids,omitempty" yaml:"team_ids,omitempty"`
}

// IsZero reports whether no selection criteria are declared.
func (c Criteria) IsZero() bool {
	return len(c.ContentTypes) == 0 && len(c.Priorities) == 0 &&
		len(c.Platforms) == 0 && len(c.TeamIDs) == 0
}

// Matches reports whether the criteria select the given content item.
func (c Criteria) Matches(content *Content) bool {
	return matchesAny(c.ContentTypes, content.ContentType) &&
		matchesAny(c.Priorities, content.Priority) &&
		matchesAny(c.Platforms, content.Platform) &&
		matchesAny(c.TeamIDs, content.TeamID)
}

func matchesAny(allowed []string, value string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, v := range allowed {
		if v == value {
			return true
		}
	}
	return false
}

// Stage is one ordered step of a workflow definition.
type Stage struct {
	ID                 string              `json:"id" yaml:"id"`
	Name               string              `json:"name" yaml:"name"`
	Type               string              `json:"type" yaml:"type"`
	AssigneeReferences []AssigneeReference `json:"assignee_references" yaml:"assignee_references"`
	Requirements       StageRequirements   `json:"requirements" yaml:"requirements"`
	Rules              []Rule              `json:"rules,omitempty" yaml:"rules,omitempty"`

	// Parallel and Optional are recorded but not enforced beyond stage
	// entry ordering; only a rule-driven skip_stage skips a stage.
	Parallel bool `json:"parallel,omitempty" yaml:"parallel,omitempty"`
	Optional bool `json:"optional,omitempty" yaml:"optional,omitempty"`
}

// StageRequirements define the approval quorum and time-based policies
// for a stage.
type StageRequirements struct {
	MinApprovals         int     `json:"min_approvals" yaml:"min_approvals"`
	RequireAllApprovals  bool    `json:"require_all_approvals,omitempty" yaml:"require_all_approvals,omitempty"`
	AllowSelfApproval    bool    `json:"allow_self_approval,omitempty" yaml:"allow_self_approval,omitempty"`
	AutoApproveAfterHrs  float64 `json:"auto_approve_after_hours,omitempty" yaml:"auto_approve_after_hours,omitempty"`
	EscalationHours      float64 `json:"escalation_hours,omitempty" yaml:"escalation_hours,omitempty"`
	EscalationTarget     string  `json:"escalation_target,omitempty" yaml:"escalation_target,omitempty"`
}

// AssigneeReference is an indirection to concrete users, resolved at
// stage-start time.
type AssigneeReference struct {
	Kind string `json:"kind" yaml:"kind"` // user | team | role
	ID   string `json:"id" yaml:"id"`
}

// Rule pairs a condition evaluated against the content item with the
// action triggered when the condition holds.
type Rule struct {
	Condition RuleCondition `json:"condition" yaml:"condition"`
	Action    RuleAction    `json:"action" yaml:"action"`
}

// RuleCondition describes the left-hand value, operator and comparand.
type RuleCondition struct {
	Type     string `json:"type" yaml:"type"`
	Operator string `json:"operator" yaml:"operator"`
	Value    string `json:"value" yaml:"value"`
	// Field names the metadata key for custom conditions.
	Field string `json:"field,omitempty" yaml:"field,omitempty"`
}

// RuleAction describes what happens when the condition holds.
type RuleAction struct {
	Type   string `json:"type" yaml:"type"`
	Value  string `json:"value,omitempty" yaml:"value,omitempty"`
	Target string `json:"target,omitempty" yaml:"target,omitempty"`
}

// StageByID returns the stage with the given ID, or nil.
func (d *WorkflowDefinition) StageByID(id string) *Stage {
	for i := range d.Stages {
		if d.Stages[i].ID == id {
			return &d.Stages[i]
		}
	}
	return nil
}

// StageAt returns the stage at the given index, or nil when out of range.
func (d *WorkflowDefinition) StageAt(index int) *Stage {
	if index < 0 || index >= len(d.Stages) {
		return nil
	}
	return &d.Stages[index]
}
