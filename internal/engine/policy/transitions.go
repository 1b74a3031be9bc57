package policy

import (
	"slices"

	"shiftlog/internal/domain"
)

// Class is the part an employee plays for one feature. An employee can hold
// several classes at once, e.g. an admin who is also the creator.
type Class string

const (
	ClassAdmin   Class = "admin"
	ClassTester  Class = "tester"
	ClassCreator Class = "creator"
)

var transitions = map[Class]map[domain.FeatureStatus][]domain.FeatureStatus{
	ClassAdmin: {
		domain.StatusNew:       {domain.StatusTesting, domain.StatusRework, domain.StatusCompleted, domain.StatusDone},
		domain.StatusTesting:   {domain.StatusRework, domain.StatusCompleted, domain.StatusDone},
		domain.StatusRework:    {domain.StatusTesting, domain.StatusCompleted, domain.StatusDone},
		domain.StatusCompleted: {domain.StatusTesting, domain.StatusRework, domain.StatusDone},
		domain.StatusDone:      {domain.StatusTesting, domain.StatusRework, domain.StatusCompleted},
	},
	ClassTester: {
		domain.StatusNew:       {domain.StatusTesting},
		domain.StatusTesting:   {domain.StatusRework, domain.StatusCompleted},
		domain.StatusRework:    {domain.StatusCompleted},
		domain.StatusCompleted: {domain.StatusDone, domain.StatusRework},
	},
	ClassCreator: {
		domain.StatusNew:       {domain.StatusTesting},
		domain.StatusRework:    {domain.StatusCompleted, domain.StatusTesting},
		domain.StatusCompleted: {domain.StatusTesting},
	},
}

// Classes returns the classes e holds for f.
func Classes(e domain.Employee, f domain.Feature) []Class {
	var out []Class
	if e.IsAdmin() {
		out = append(out, ClassAdmin)
	}
	if e.IsTester() {
		out = append(out, ClassTester)
	}
	if IsCreator(e, f) {
		out = append(out, ClassCreator)
	}
	return out
}

// TableAllows reports whether any of e's classes may move f to the target
// status. Same-status moves are never in the table.
func TableAllows(e domain.Employee, f domain.Feature, to domain.FeatureStatus) bool {
	for _, c := range Classes(e, f) {
		if slices.Contains(transitions[c][f.Status], to) {
			return true
		}
	}
	return false
}

// Allowed combines the permission predicate with the table.
func Allowed(e domain.Employee, f domain.Feature, to domain.FeatureStatus) bool {
	return CanChangeStatus(e, f, to) && TableAllows(e, f, to)
}

// AvailableTransitions lists the statuses e may move f to, in display order.
func AvailableTransitions(e domain.Employee, f domain.Feature) []domain.FeatureStatus {
	out := []domain.FeatureStatus{}
	for _, s := range domain.FeatureStatuses {
		if s != f.Status && Allowed(e, f, s) {
			out = append(out, s)
		}
	}
	return out
}
