package entity

// Content status constants
const (
	ContentStatusDraft             = "draft"
	ContentStatusInReview          = "in_review"
	ContentStatusApproved          = "approved"
	ContentStatusRejected          = "rejected"
	ContentStatusCancelled         = "cancelled"
	ContentStatusRevisionRequested = "revision_requested"
)

// Content priority constants
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Stage type constants
const (
	StageTypeReview   = "review"
	StageTypeApproval = "approval"
	StageTypeRevision = "revision"
	StageTypePublish  = "publish"
	StageTypeArchive  = "archive"
)

// Assignee reference kinds
const (
	AssigneeRefUser = "user"
	AssigneeRefTeam = "team"
	AssigneeRefRole = "role"
)

// Approval action constants
const (
	ActionApproved          = "approved"
	ActionRejected          = "rejected"
	ActionRevisionRequested = "revision_requested"
)

// Member availability constants
const (
	AvailabilityAvailable   = "available"
	AvailabilityUnavailable = "unavailable"
	AvailabilityVacation    = "vacation"
)

// SystemUserID is the synthetic user recorded for rule-triggered and
// timer-triggered approvals.
const SystemUserID = "system"

// Rule condition types
const (
	ConditionContentType = "content_type"
	ConditionPriority    = "priority"
	ConditionAssignee    = "assignee"
	ConditionDeadline    = "deadline"
	ConditionCustom      = "custom"
)

// Rule condition operators
const (
	OperatorEquals      = "equals"
	OperatorNotEquals   = "not_equals"
	OperatorContains    = "contains"
	OperatorGreaterThan = "greater_than"
	OperatorLessThan    = "less_than"
	OperatorIn          = "in"
	OperatorNotIn       = "not_in"
)

// Rule action types
const (
	RuleActionAutoApprove = "auto_approve"
	RuleActionAutoReject  = "auto_reject"
	RuleActionEscalate    = "escalate"
	RuleActionReassign    = "reassign"
	RuleActionSkipStage   = "skip_stage"
	RuleActionNotify      = "notify"
	RuleActionSetPriority = "set_priority"
)

// Notification status constants
const (
	NotificationStatusPending = "pending"
	NotificationStatusSent    = "sent"
	NotificationStatusFailed  = "failed"
)
