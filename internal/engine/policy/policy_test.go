package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shiftlog/internal/domain"
)

var (
	admin      = domain.Employee{ID: "admin", Position: domain.PositionAdmin, IsActive: true}
	supervisor = domain.Employee{ID: "sup", Position: domain.PositionSupervisor, IsActive: true}
	tester     = domain.Employee{ID: "tester", Position: domain.PositionEmployee, Role: domain.RoleTester, IsActive: true}
	creator    = domain.Employee{ID: "dev", Position: domain.PositionEmployee, Role: domain.RoleProgrammer, IsActive: true}
	otherDev   = domain.Employee{ID: "dev2", Position: domain.PositionEmployee, Role: domain.RoleProgrammer, IsActive: true}
	nobody     = domain.Employee{ID: "plain", Position: domain.PositionEmployee, IsActive: true}
)

func featureIn(status domain.FeatureStatus) domain.Feature {
	return domain.Feature{ID: "f1", CreatedBy: creator.ID, Status: status, Priority: domain.PriorityMedium}
}

func TestCanCreateFeature(t *testing.T) {
	assert.True(t, CanCreateFeature(admin))
	assert.True(t, CanCreateFeature(creator))
	assert.False(t, CanCreateFeature(tester))
	assert.False(t, CanCreateFeature(supervisor))
	assert.False(t, CanCreateFeature(nobody))
}

func TestCanEditFeature(t *testing.T) {
	for _, s := range domain.FeatureStatuses {
		f := featureIn(s)
		assert.True(t, CanEditFeature(admin, f), s)
		assert.True(t, CanEditFeature(supervisor, f), s)
		assert.False(t, CanEditFeature(tester, f), s)
		assert.False(t, CanEditFeature(otherDev, f), s)
		wantCreator := s == domain.StatusNew || s == domain.StatusRework
		assert.Equal(t, wantCreator, CanEditFeature(creator, f), s)
	}
}

func TestCanChangeStatus(t *testing.T) {
	assert.True(t, CanChangeStatus(admin, featureIn(domain.StatusDone), domain.StatusNew))
	assert.True(t, CanChangeStatus(tester, featureIn(domain.StatusNew), domain.StatusDone))
	assert.True(t, CanChangeStatus(creator, featureIn(domain.StatusRework), domain.StatusCompleted))
	assert.False(t, CanChangeStatus(creator, featureIn(domain.StatusTesting), domain.StatusCompleted))
	assert.True(t, CanChangeStatus(creator, featureIn(domain.StatusDone), domain.StatusTesting))
	assert.False(t, CanChangeStatus(creator, featureIn(domain.StatusNew), domain.StatusDone))
	assert.False(t, CanChangeStatus(otherDev, featureIn(domain.StatusNew), domain.StatusTesting))
	assert.False(t, CanChangeStatus(supervisor, featureIn(domain.StatusNew), domain.StatusTesting))
}

func TestCommentPredicates(t *testing.T) {
	f := featureIn(domain.StatusRework)
	assert.True(t, CanResolveComment(admin, f))
	assert.True(t, CanResolveComment(creator, f))
	assert.False(t, CanResolveComment(otherDev, f))
	assert.False(t, CanResolveComment(tester, f))

	assert.True(t, CanReturnCommentToRework(admin))
	assert.True(t, CanReturnCommentToRework(tester))
	assert.False(t, CanReturnCommentToRework(creator))

	assert.True(t, CanComment(tester))
	assert.False(t, CanComment(creator))
	assert.False(t, CanComment(nobody))
}

func TestProjectPredicates(t *testing.T) {
	p := domain.TestProject{ID: "p1", CreatedBy: creator.ID}
	assert.True(t, CanCreateProject(creator))
	assert.False(t, CanCreateProject(tester))
	assert.True(t, CanEditProject(creator, p))
	assert.True(t, CanEditProject(admin, p))
	assert.False(t, CanEditProject(otherDev, p))
	assert.True(t, CanViewActivity(supervisor))
	assert.False(t, CanViewActivity(tester))
	assert.True(t, CanManageEmployees(admin))
	assert.False(t, CanManageEmployees(supervisor))
}

func TestTransitionTable(t *testing.T) {
	type row map[domain.FeatureStatus][]domain.FeatureStatus
	cases := []struct {
		name  string
		actor domain.Employee
		want  row
	}{
		{
			name:  "admin",
			actor: admin,
			want: row{
				domain.StatusNew:       {domain.StatusTesting, domain.StatusRework, domain.StatusCompleted, domain.StatusDone},
				domain.StatusTesting:   {domain.StatusRework, domain.StatusCompleted, domain.StatusDone},
				domain.StatusRework:    {domain.StatusTesting, domain.StatusCompleted, domain.StatusDone},
				domain.StatusCompleted: {domain.StatusTesting, domain.StatusRework, domain.StatusDone},
				domain.StatusDone:      {domain.StatusTesting, domain.StatusRework, domain.StatusCompleted},
			},
		},
		{
			name:  "tester",
			actor: tester,
			want: row{
				domain.StatusNew:       {domain.StatusTesting},
				domain.StatusTesting:   {domain.StatusRework, domain.StatusCompleted},
				domain.StatusRework:    {domain.StatusCompleted},
				domain.StatusCompleted: {domain.StatusRework, domain.StatusDone},
			},
		},
		{
			name:  "creator",
			actor: creator,
			want: row{
				domain.StatusNew:       {domain.StatusTesting},
				domain.StatusRework:    {domain.StatusTesting, domain.StatusCompleted},
				domain.StatusCompleted: {domain.StatusTesting},
			},
		},
		{name: "other programmer", actor: otherDev, want: row{}},
		{name: "supervisor", actor: supervisor, want: row{}},
		{name: "no role", actor: nobody, want: row{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for _, from := range domain.FeatureStatuses {
				got := AvailableTransitions(tc.actor, featureIn(from))
				want := tc.want[from]
				if want == nil {
					want = []domain.FeatureStatus{}
				}
				assert.ElementsMatch(t, want, got, "from %s", from)
				for _, to := range domain.FeatureStatuses {
					allowed := Allowed(tc.actor, featureIn(from), to)
					assert.Equal(t, contains(want, to), allowed, "%s -> %s", from, to)
				}
			}
		})
	}
}

func TestAvailableTransitionsDisplayOrder(t *testing.T) {
	got := AvailableTransitions(admin, featureIn(domain.StatusNew))
	require.Equal(t, []domain.FeatureStatus{domain.StatusTesting, domain.StatusRework, domain.StatusCompleted, domain.StatusDone}, got)
}

func TestClassesUnion(t *testing.T) {
	adminDev := domain.Employee{ID: creator.ID, Position: domain.PositionAdmin, Role: domain.RoleProgrammer}
	assert.Equal(t, []Class{ClassAdmin, ClassCreator}, Classes(adminDev, featureIn(domain.StatusNew)))
	assert.Empty(t, Classes(nobody, featureIn(domain.StatusNew)))
}

func contains(list []domain.FeatureStatus, s domain.FeatureStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func TestProjectVisibility(t *testing.T) {
	own := domain.TestProject{ID: "p1", CreatedBy: nobody.ID, IsActive: true}
	foreign := domain.TestProject{ID: "p2", CreatedBy: creator.ID, IsActive: true}
	closed := domain.TestProject{ID: "p3", CreatedBy: creator.ID, IsActive: false}

	for _, p := range []domain.TestProject{own, foreign, closed} {
		assert.True(t, CanViewProject(admin, p), p.ID)
	}
	for _, e := range []domain.Employee{creator, otherDev, tester} {
		assert.True(t, CanViewProject(e, foreign), e.ID)
		assert.False(t, CanViewProject(e, closed), e.ID)
	}
	assert.True(t, CanViewProject(nobody, own))
	assert.False(t, CanViewProject(nobody, foreign))
	assert.False(t, CanViewProject(supervisor, foreign))

	assert.Equal(t, Scope{}, VisibleProjects(admin))
	assert.Equal(t, Scope{ActiveOnly: true}, VisibleProjects(tester))
	assert.Equal(t, Scope{CreatedBy: supervisor.ID}, VisibleProjects(supervisor))
}

func TestFeatureVisibility(t *testing.T) {
	f := featureIn(domain.StatusTesting)
	assert.True(t, CanViewFeature(admin, f))
	assert.True(t, CanViewFeature(tester, f))
	assert.True(t, CanViewFeature(creator, f))
	assert.False(t, CanViewFeature(otherDev, f))
	assert.False(t, CanViewFeature(supervisor, f))
	assert.False(t, CanViewFeature(nobody, f))

	assert.Equal(t, Scope{}, VisibleFeatures(tester))
	assert.Equal(t, Scope{CreatedBy: otherDev.ID}, VisibleFeatures(otherDev))
}
