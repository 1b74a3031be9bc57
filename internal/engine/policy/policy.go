// Package policy holds the permission predicates and the status transition
// table. Both are pure functions of an in-memory employee and feature.
package policy

import "shiftlog/internal/domain"

// Action names used in authorization failures.
const (
	ActionCreateFeature         = "create_feature"
	ActionEditFeature           = "edit_feature"
	ActionChangeStatus          = "change_status"
	ActionComment               = "comment"
	ActionResolveComment        = "resolve_comment"
	ActionReturnCommentToRework = "return_comment_to_rework"
	ActionReturnFeatureToRework = "return_feature_to_rework"
	ActionMarkCompleted         = "mark_completed"
	ActionCreateProject         = "create_project"
	ActionEditProject           = "edit_project"
	ActionViewActivity          = "view_activity"
	ActionManageEmployees       = "manage_employees"
)

// IsCreator reports a programmer who created f.
func IsCreator(e domain.Employee, f domain.Feature) bool {
	return e.IsProgrammer() && e.ID == f.CreatedBy
}

func CanCreateFeature(e domain.Employee) bool {
	return e.IsAdmin() || e.IsProgrammer()
}

func CanEditFeature(e domain.Employee, f domain.Feature) bool {
	if e.IsSupervisor() {
		return true
	}
	if IsCreator(e, f) {
		return f.Status == domain.StatusNew || f.Status == domain.StatusRework
	}
	return false
}

func CanChangeStatus(e domain.Employee, f domain.Feature, to domain.FeatureStatus) bool {
	if e.IsAdmin() || e.IsTester() {
		return true
	}
	if IsCreator(e, f) {
		if f.Status == domain.StatusRework && to == domain.StatusCompleted {
			return true
		}
		return to == domain.StatusTesting
	}
	return false
}

// CanResolveComment is checked against the feature the comment belongs to.
func CanResolveComment(e domain.Employee, f domain.Feature) bool {
	return e.IsAdmin() || IsCreator(e, f)
}

func CanReturnCommentToRework(e domain.Employee) bool {
	return e.IsAdmin() || e.IsTester()
}

func CanComment(e domain.Employee) bool {
	return e.IsAdmin() || e.IsTester()
}

func CanReturnFeatureToRework(e domain.Employee) bool {
	return e.IsAdmin() || e.IsTester()
}

func CanMarkCompleted(e domain.Employee, f domain.Feature) bool {
	return e.IsAdmin() || IsCreator(e, f)
}

func CanCreateProject(e domain.Employee) bool {
	return e.IsAdmin() || e.IsProgrammer()
}

func CanEditProject(e domain.Employee, p domain.TestProject) bool {
	return e.IsAdmin() || e.ID == p.CreatedBy
}

func CanViewActivity(e domain.Employee) bool {
	return e.IsSupervisor()
}

func CanManageEmployees(e domain.Employee) bool {
	return e.IsAdmin()
}
