package policy

import "shiftlog/internal/domain"

// Scope narrows a listing. The zero Scope places no restriction.
type Scope struct {
	ActiveOnly bool
	CreatedBy  string
}

// VisibleProjects returns the projects e may read: admins see all,
// programmers and testers see active ones, anyone else only their own.
func VisibleProjects(e domain.Employee) Scope {
	switch {
	case e.IsAdmin():
		return Scope{}
	case e.IsProgrammer() || e.IsTester():
		return Scope{ActiveOnly: true}
	default:
		return Scope{CreatedBy: e.ID}
	}
}

func CanViewProject(e domain.Employee, p domain.TestProject) bool {
	s := VisibleProjects(e)
	if s.ActiveOnly && !p.IsActive {
		return false
	}
	return s.CreatedBy == "" || s.CreatedBy == p.CreatedBy
}

// VisibleFeatures returns the features e may read: admins and testers see
// all, anyone else only the features they created.
func VisibleFeatures(e domain.Employee) Scope {
	if e.IsAdmin() || e.IsTester() {
		return Scope{}
	}
	return Scope{CreatedBy: e.ID}
}

func CanViewFeature(e domain.Employee, f domain.Feature) bool {
	s := VisibleFeatures(e)
	return s.CreatedBy == "" || s.CreatedBy == f.CreatedBy
}
