package domain

import "slices"

type Position string

const (
	PositionEmployee   Position = "employee"
	PositionSupervisor Position = "supervisor"
	PositionAdmin      Position = "admin"
)

var Positions = []Position{PositionEmployee, PositionSupervisor, PositionAdmin}

func (p Position) Valid() bool {
	return slices.Contains(Positions, p)
}

// Role is the testing-workflow role of an employee. The empty role means the
// employee takes no part in feature review.
type Role string

const (
	RoleNone       Role = ""
	RoleProgrammer Role = "programmer"
	RoleTester     Role = "tester"
)

func (r Role) Valid() bool {
	return r == RoleNone || r == RoleProgrammer || r == RoleTester
}

type FeatureStatus string

const (
	StatusNew       FeatureStatus = "new"
	StatusTesting   FeatureStatus = "testing"
	StatusRework    FeatureStatus = "rework"
	StatusCompleted FeatureStatus = "completed"
	StatusDone      FeatureStatus = "done"
)

// FeatureStatuses is the canonical display order.
var FeatureStatuses = []FeatureStatus{StatusNew, StatusTesting, StatusRework, StatusCompleted, StatusDone}

func (s FeatureStatus) Valid() bool {
	return slices.Contains(FeatureStatuses, s)
}

func (s FeatureStatus) Label() string {
	switch s {
	case StatusNew:
		return "New"
	case StatusTesting:
		return "Testing"
	case StatusRework:
		return "Rework"
	case StatusCompleted:
		return "Completed"
	case StatusDone:
		return "Done"
	default:
		return string(s)
	}
}

type Priority int

const (
	PriorityLow      Priority = 1
	PriorityMedium   Priority = 2
	PriorityHigh     Priority = 3
	PriorityCritical Priority = 4
)

func (p Priority) Valid() bool {
	return p >= PriorityLow && p <= PriorityCritical
}

func (p Priority) Label() string {
	switch p {
	case PriorityLow:
		return "Low"
	case PriorityMedium:
		return "Medium"
	case PriorityHigh:
		return "High"
	case PriorityCritical:
		return "Critical"
	default:
		return "Unknown"
	}
}

type CommentType string

const (
	CommentRemark        CommentType = "remark"
	CommentApproval      CommentType = "approval"
	CommentClarification CommentType = "clarification"
)

var CommentTypes = []CommentType{CommentRemark, CommentApproval, CommentClarification}

func (t CommentType) Valid() bool {
	return slices.Contains(CommentTypes, t)
}

type CommentAction string

const (
	CommentCreated          CommentAction = "created"
	CommentResolved         CommentAction = "resolved"
	CommentReturnedToRework CommentAction = "returned_to_rework"
	CommentUpdated          CommentAction = "updated"
)

type NotificationType string

const (
	NotifyFeatureCreated   NotificationType = "feature_created"
	NotifyFeatureTesting   NotificationType = "feature_testing"
	NotifyFeatureRework    NotificationType = "feature_rework"
	NotifyFeatureCompleted NotificationType = "feature_completed"
	NotifyFeatureDone      NotificationType = "feature_done"
	NotifyCommentAdded     NotificationType = "feature_comment_added"
	NotifyCommentResolved  NotificationType = "feature_comment_resolved"
	NotifyCommentReturned  NotificationType = "feature_comment_returned"
)

// StatusNotification maps a feature status to the notification sent when a
// feature enters it.
func StatusNotification(s FeatureStatus) (NotificationType, bool) {
	switch s {
	case StatusTesting:
		return NotifyFeatureTesting, true
	case StatusRework:
		return NotifyFeatureRework, true
	case StatusCompleted:
		return NotifyFeatureCompleted, true
	case StatusDone:
		return NotifyFeatureDone, true
	default:
		return "", false
	}
}
