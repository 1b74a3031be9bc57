package engine_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shiftlog/internal/db"
	"shiftlog/internal/domain"
	"shiftlog/internal/engine"
	"shiftlog/internal/migrate"
	"shiftlog/internal/notify"
	"shiftlog/internal/repo"
)

type recordingNotifier struct {
	mu      sync.Mutex
	notices []notify.Notice
}

func (r *recordingNotifier) Notify(_ context.Context, notices ...notify.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, notices...)
}

func (r *recordingNotifier) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = nil
}

func (r *recordingNotifier) to(recipientID string) []notify.Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notify.Notice
	for _, n := range r.notices {
		if n.Recipient.ID == recipientID {
			out = append(out, n)
		}
	}
	return out
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.notices)
}

type testEnv struct {
	Engine   engine.Engine
	Ctx      context.Context
	Notifier *recordingNotifier

	Admin, Tester, Dev, OtherDev, Plain, Supervisor, Retired domain.Employee
	Project                                                  domain.TestProject
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	ctx := context.Background()
	require.NoError(t, migrate.Migrate(ctx, conn))

	rec := &recordingNotifier{}
	eng := engine.New(conn, rec, zerolog.Nop())
	eng.Now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }

	env := &testEnv{Engine: eng, Ctx: ctx, Notifier: rec}
	add := func(username string, pos domain.Position, role domain.Role) domain.Employee {
		emp, err := eng.AddEmployee(ctx, engine.EmployeeInput{Username: username, FullName: username, Position: pos, Role: role})
		require.NoError(t, err)
		return emp
	}
	env.Admin = add("admin", domain.PositionAdmin, domain.RoleNone)
	env.Tester = add("tess", domain.PositionEmployee, domain.RoleTester)
	env.Dev = add("dev", domain.PositionEmployee, domain.RoleProgrammer)
	env.OtherDev = add("dev2", domain.PositionEmployee, domain.RoleProgrammer)
	env.Plain = add("plain", domain.PositionEmployee, domain.RoleNone)
	env.Supervisor = add("sup", domain.PositionSupervisor, domain.RoleNone)
	env.Retired = add("retired", domain.PositionEmployee, domain.RoleTester)
	require.NoError(t, eng.DeactivateEmployee(ctx, env.Admin, env.Retired.ID))

	env.Project, err = eng.CreateProject(ctx, env.Dev, "Shift log", "review board")
	require.NoError(t, err)
	return env
}

func (env *testEnv) feature(t *testing.T) domain.Feature {
	t.Helper()
	f, err := env.Engine.CreateFeature(env.Ctx, env.Dev, engine.FeatureInput{ProjectID: env.Project.ID, Title: "Login form", Priority: domain.PriorityHigh})
	require.NoError(t, err)
	env.Notifier.reset()
	return f
}

// forceStatus bypasses the workflow to put a feature in a starting state.
func (env *testEnv) forceStatus(t *testing.T, f domain.Feature, s domain.FeatureStatus) domain.Feature {
	t.Helper()
	_, err := env.Engine.DB.ExecContext(env.Ctx, `UPDATE features SET status=? WHERE id=?`, string(s), f.ID)
	require.NoError(t, err)
	f, err = env.Engine.GetFeature(env.Ctx, env.Admin, f.ID)
	require.NoError(t, err)
	return f
}

func (env *testEnv) history(t *testing.T, featureID string) []domain.FeatureStatusHistory {
	t.Helper()
	h, err := env.Engine.StatusHistory(env.Ctx, env.Admin, featureID)
	require.NoError(t, err)
	return h
}

func (env *testEnv) comment(t *testing.T, f domain.Feature, text string) domain.FeatureComment {
	t.Helper()
	c, err := env.Engine.AddComment(env.Ctx, env.Tester, f.ID, text, domain.CommentRemark)
	require.NoError(t, err)
	env.Notifier.reset()
	return c
}

func ids(notices []notify.Notice) []string {
	out := make([]string, 0, len(notices))
	for _, n := range notices {
		out = append(out, n.Recipient.ID)
	}
	return out
}

func TestCreateFeatureNotifiesReviewers(t *testing.T) {
	env := newTestEnv(t)
	f, err := env.Engine.CreateFeature(env.Ctx, env.Dev, engine.FeatureInput{ProjectID: env.Project.ID, Title: "Shift export", Description: "CSV export", Priority: domain.PriorityHigh})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusNew, f.Status)
	assert.Equal(t, domain.PriorityHigh, f.Priority)
	assert.Equal(t, env.Dev.ID, f.CreatedBy)
	assert.Nil(t, f.CompletedAt)

	assert.ElementsMatch(t, []string{env.Admin.ID, env.Tester.ID}, ids(env.Notifier.notices))
	assert.Empty(t, env.Notifier.to(env.Dev.ID))
	assert.Empty(t, env.Notifier.to(env.Retired.ID))
	for _, n := range env.Notifier.notices {
		assert.Equal(t, domain.NotifyFeatureCreated, n.Type)
		assert.Contains(t, n.Title, "Shift export")
	}
}

func TestCreateFeatureWithoutRoleIsUnauthorized(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.CreateFeature(env.Ctx, env.Plain, engine.FeatureInput{ProjectID: env.Project.ID, Title: "Nope"})
	require.ErrorIs(t, err, engine.ErrUnauthorized)

	list, err := env.Engine.ListFeatures(env.Ctx, env.Admin, repo.FeatureFilter{ProjectID: env.Project.ID})
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Zero(t, env.Notifier.count())
}

func TestCreateFeatureValidation(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.CreateFeature(env.Ctx, env.Dev, engine.FeatureInput{ProjectID: env.Project.ID, Title: "   "})
	require.ErrorIs(t, err, engine.ErrValidation)

	_, err = env.Engine.CreateFeature(env.Ctx, env.Dev, engine.FeatureInput{ProjectID: env.Project.ID, Title: "x", Priority: 5})
	require.ErrorIs(t, err, engine.ErrValidation)

	_, err = env.Engine.CreateFeature(env.Ctx, env.Dev, engine.FeatureInput{ProjectID: "missing", Title: "x"})
	require.ErrorIs(t, err, engine.ErrNotFound)

	f, err := env.Engine.CreateFeature(env.Ctx, env.Admin, engine.FeatureInput{ProjectID: env.Project.ID, Title: "Default priority"})
	require.NoError(t, err)
	assert.Equal(t, domain.PriorityMedium, f.Priority)

	inactive := false
	_, err = env.Engine.UpdateProject(env.Ctx, env.Dev, env.Project.ID, engine.ProjectUpdate{IsActive: &inactive})
	require.NoError(t, err)
	_, err = env.Engine.CreateFeature(env.Ctx, env.Dev, engine.FeatureInput{ProjectID: env.Project.ID, Title: "Closed"})
	require.ErrorIs(t, err, engine.ErrValidation)
}

func TestUpdateStatusToSameStatusIsNoop(t *testing.T) {
	env := newTestEnv(t)
	actors := []domain.Employee{env.Admin, env.Tester, env.Dev, env.OtherDev, env.Plain}
	for _, s := range domain.FeatureStatuses {
		f := env.forceStatus(t, env.feature(t), s)
		for _, a := range actors {
			got, err := env.Engine.UpdateStatus(env.Ctx, a, f.ID, s, "again")
			require.NoError(t, err, "%s as %s", s, a.Username)
			assert.Equal(t, f, got)
			stored, err := env.Engine.GetFeature(env.Ctx, env.Admin, f.ID)
			require.NoError(t, err)
			assert.Equal(t, f, stored)
		}
		assert.Empty(t, env.history(t, f.ID))
		assert.Zero(t, env.Notifier.count())
	}
}

// allowed mirrors the review workflow's transition table per actor.
var allowed = map[string]map[domain.FeatureStatus][]domain.FeatureStatus{
	"admin": {
		domain.StatusNew:       {domain.StatusTesting, domain.StatusRework, domain.StatusCompleted, domain.StatusDone},
		domain.StatusTesting:   {domain.StatusRework, domain.StatusCompleted, domain.StatusDone},
		domain.StatusRework:    {domain.StatusTesting, domain.StatusCompleted, domain.StatusDone},
		domain.StatusCompleted: {domain.StatusTesting, domain.StatusRework, domain.StatusDone},
		domain.StatusDone:      {domain.StatusTesting, domain.StatusRework, domain.StatusCompleted},
	},
	"tess": {
		domain.StatusNew:       {domain.StatusTesting},
		domain.StatusTesting:   {domain.StatusRework, domain.StatusCompleted},
		domain.StatusRework:    {domain.StatusCompleted},
		domain.StatusCompleted: {domain.StatusDone, domain.StatusRework},
	},
	"dev": {
		domain.StatusNew:       {domain.StatusTesting},
		domain.StatusRework:    {domain.StatusCompleted, domain.StatusTesting},
		domain.StatusCompleted: {domain.StatusTesting},
	},
}

func isAllowed(username string, from, to domain.FeatureStatus) bool {
	for _, s := range allowed[username][from] {
		if s == to {
			return true
		}
	}
	return false
}

func TestUpdateStatusFollowsTransitionTable(t *testing.T) {
	env := newTestEnv(t)
	actors := []domain.Employee{env.Admin, env.Tester, env.Dev, env.OtherDev, env.Plain, env.Supervisor}
	for _, a := range actors {
		for _, from := range domain.FeatureStatuses {
			for _, to := range domain.FeatureStatuses {
				if from == to {
					continue
				}
				f := env.forceStatus(t, env.feature(t), from)
				got, err := env.Engine.UpdateStatus(env.Ctx, a, f.ID, to, "")
				if isAllowed(a.Username, from, to) {
					require.NoError(t, err, "%s: %s -> %s", a.Username, from, to)
					assert.Equal(t, to, got.Status)
					h := env.history(t, f.ID)
					require.Len(t, h, 1)
					assert.Equal(t, from, h[0].OldStatus)
					assert.Equal(t, to, h[0].NewStatus)
					assert.Equal(t, a.ID, h[0].ActorID)
					continue
				}
				require.ErrorIs(t, err, engine.ErrInvalidTransition, "%s: %s -> %s", a.Username, from, to)
				stored, err := env.Engine.GetFeature(env.Ctx, env.Admin, f.ID)
				require.NoError(t, err)
				assert.Equal(t, f, stored)
				assert.Empty(t, env.history(t, f.ID))
				assert.Zero(t, env.Notifier.count())
			}
		}
	}
}

func TestUpdateStatusUnknownStatus(t *testing.T) {
	env := newTestEnv(t)
	f := env.feature(t)
	_, err := env.Engine.UpdateStatus(env.Ctx, env.Admin, f.ID, "archived", "")
	require.ErrorIs(t, err, engine.ErrValidation)

	_, err = env.Engine.UpdateStatus(env.Ctx, env.Admin, "missing", domain.StatusTesting, "")
	require.ErrorIs(t, err, engine.ErrNotFound)
}

func TestCompletedAtOnlySetForDone(t *testing.T) {
	env := newTestEnv(t)
	f := env.feature(t)

	f, err := env.Engine.UpdateStatus(env.Ctx, env.Tester, f.ID, domain.StatusTesting, "")
	require.NoError(t, err)
	f, err = env.Engine.UpdateStatus(env.Ctx, env.Tester, f.ID, domain.StatusCompleted, "")
	require.NoError(t, err)
	assert.Nil(t, f.CompletedAt)

	f, err = env.Engine.UpdateStatus(env.Ctx, env.Tester, f.ID, domain.StatusDone, "ship it")
	require.NoError(t, err)
	require.NotNil(t, f.CompletedAt)
	assert.Equal(t, "2024-01-01T00:00:00Z", *f.CompletedAt)

	done := env.Notifier.to(env.Dev.ID)
	require.Len(t, done, 1)
	assert.Equal(t, domain.NotifyFeatureDone, done[0].Type)
}

func TestStatusNotificationRecipients(t *testing.T) {
	env := newTestEnv(t)
	f := env.feature(t)

	_, err := env.Engine.UpdateStatus(env.Ctx, env.Dev, f.ID, domain.StatusTesting, "please review")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{env.Admin.ID, env.Tester.ID}, ids(env.Notifier.notices))

	env.Notifier.reset()
	_, err = env.Engine.UpdateStatus(env.Ctx, env.Tester, f.ID, domain.StatusRework, "broken")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{env.Dev.ID, env.Admin.ID}, ids(env.Notifier.notices))
}

func TestReturnFeatureToReworkFromTesting(t *testing.T) {
	env := newTestEnv(t)
	f := env.forceStatus(t, env.feature(t), domain.StatusTesting)

	f, err := env.Engine.ReturnFeatureToRework(env.Ctx, env.Tester, f.ID, "needs fix")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRework, f.Status)

	h := env.history(t, f.ID)
	require.Len(t, h, 1)
	assert.Equal(t, domain.StatusTesting, h[0].OldStatus)
	assert.Equal(t, domain.StatusRework, h[0].NewStatus)
	assert.Equal(t, "needs fix", h[0].Comment)

	toCreator := env.Notifier.to(env.Dev.ID)
	require.Len(t, toCreator, 1)
	assert.Equal(t, domain.NotifyFeatureRework, toCreator[0].Type)
}

func TestReturnFeatureToReworkGuards(t *testing.T) {
	env := newTestEnv(t)
	f := env.forceStatus(t, env.feature(t), domain.StatusTesting)

	_, err := env.Engine.ReturnFeatureToRework(env.Ctx, env.Dev, f.ID, "")
	require.ErrorIs(t, err, engine.ErrUnauthorized)

	f = env.forceStatus(t, f, domain.StatusNew)
	_, err = env.Engine.ReturnFeatureToRework(env.Ctx, env.Tester, f.ID, "")
	require.ErrorIs(t, err, engine.ErrInvalidTransition)

	f = env.forceStatus(t, f, domain.StatusCompleted)
	f, err = env.Engine.ReturnFeatureToRework(env.Ctx, env.Admin, f.ID, "")
	require.NoError(t, err)
	h := env.history(t, f.ID)
	require.Len(t, h, 1)
	assert.Equal(t, "Returned to rework by reviewer", h[0].Comment)
}

func TestMarkAsCompleted(t *testing.T) {
	env := newTestEnv(t)
	f := env.feature(t)

	_, err := env.Engine.MarkAsCompleted(env.Ctx, env.Dev, f.ID)
	require.ErrorIs(t, err, engine.ErrInvalidTransition)

	f = env.forceStatus(t, f, domain.StatusRework)
	_, err = env.Engine.MarkAsCompleted(env.Ctx, env.OtherDev, f.ID)
	require.ErrorIs(t, err, engine.ErrUnauthorized)
	_, err = env.Engine.MarkAsCompleted(env.Ctx, env.Tester, f.ID)
	require.ErrorIs(t, err, engine.ErrUnauthorized)

	f, err = env.Engine.MarkAsCompleted(env.Ctx, env.Dev, f.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, f.Status)
	assert.Nil(t, f.CompletedAt)
	assert.ElementsMatch(t, []string{env.Admin.ID, env.Tester.ID}, ids(env.Notifier.notices))
}

func TestUpdateFeature(t *testing.T) {
	env := newTestEnv(t)
	f := env.feature(t)

	title := "Login form v2"
	prio := domain.PriorityCritical
	got, err := env.Engine.UpdateFeature(env.Ctx, env.Dev, f.ID, engine.FeatureUpdate{Title: &title, Priority: &prio})
	require.NoError(t, err)
	assert.Equal(t, title, got.Title)
	assert.Equal(t, prio, got.Priority)
	assert.Equal(t, domain.StatusNew, got.Status)
	assert.Zero(t, env.Notifier.count())

	entries, err := env.Engine.ActivityTail(env.Ctx, env.Admin, repo.ActivityFilter{EntityID: f.ID, Action: "updated"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].ChangesJSON, `"priority"`)

	_, err = env.Engine.UpdateFeature(env.Ctx, env.Tester, f.ID, engine.FeatureUpdate{Title: &title})
	require.ErrorIs(t, err, engine.ErrUnauthorized)

	env.forceStatus(t, f, domain.StatusTesting)
	_, err = env.Engine.UpdateFeature(env.Ctx, env.Dev, f.ID, engine.FeatureUpdate{Title: &title})
	require.ErrorIs(t, err, engine.ErrUnauthorized)

	_, err = env.Engine.UpdateFeature(env.Ctx, env.Supervisor, f.ID, engine.FeatureUpdate{Title: &title})
	require.NoError(t, err)

	empty := ""
	_, err = env.Engine.UpdateFeature(env.Ctx, env.Admin, f.ID, engine.FeatureUpdate{Title: &empty})
	require.ErrorIs(t, err, engine.ErrValidation)
}

func TestAddComment(t *testing.T) {
	env := newTestEnv(t)
	f := env.feature(t)

	_, err := env.Engine.AddComment(env.Ctx, env.Dev, f.ID, "self review", domain.CommentRemark)
	require.ErrorIs(t, err, engine.ErrUnauthorized)
	_, err = env.Engine.AddComment(env.Ctx, env.Tester, f.ID, "", domain.CommentRemark)
	require.ErrorIs(t, err, engine.ErrValidation)
	_, err = env.Engine.AddComment(env.Ctx, env.Tester, f.ID, "hm", "rant")
	require.ErrorIs(t, err, engine.ErrValidation)

	c, err := env.Engine.AddComment(env.Ctx, env.Tester, f.ID, "Button misaligned", "")
	require.NoError(t, err)
	assert.Equal(t, domain.CommentRemark, c.Type)
	assert.False(t, c.IsResolved)

	h, err := env.Engine.CommentHistory(env.Ctx, env.Admin, c.ID)
	require.NoError(t, err)
	require.Len(t, h, 1)
	assert.Equal(t, domain.CommentCreated, h[0].Action)

	assert.ElementsMatch(t, []string{env.Dev.ID, env.Admin.ID}, ids(env.Notifier.notices))
	for _, n := range env.Notifier.notices {
		assert.Equal(t, domain.NotifyCommentAdded, n.Type)
	}
}

func TestResolveLastCommentRequestsReview(t *testing.T) {
	env := newTestEnv(t)
	f := env.forceStatus(t, env.feature(t), domain.StatusRework)
	c := env.comment(t, f, "Fix validation")

	res, err := env.Engine.ResolveCommentAndRequestReview(env.Ctx, env.Dev, f.ID, c.ID)
	require.NoError(t, err)
	assert.True(t, res.ReviewRequested)
	assert.True(t, res.Comment.IsResolved)
	assert.Nil(t, res.Comment.ReworkReason)
	assert.Equal(t, domain.StatusTesting, res.Feature.Status)

	h := env.history(t, f.ID)
	require.Len(t, h, 1)
	assert.Equal(t, domain.StatusRework, h[0].OldStatus)
	assert.Equal(t, domain.StatusTesting, h[0].NewStatus)

	var resolved, testing int
	for _, n := range env.Notifier.notices {
		switch n.Type {
		case domain.NotifyCommentResolved:
			resolved++
		case domain.NotifyFeatureTesting:
			testing++
		}
	}
	assert.Equal(t, 2, resolved)
	assert.Equal(t, 2, testing)
}

func TestResolveWithOpenCommentsKeepsStatus(t *testing.T) {
	env := newTestEnv(t)
	f := env.forceStatus(t, env.feature(t), domain.StatusRework)
	c1 := env.comment(t, f, "first")
	c2 := env.comment(t, f, "second")

	res, err := env.Engine.ResolveCommentAndRequestReview(env.Ctx, env.Dev, f.ID, c1.ID)
	require.NoError(t, err)
	assert.False(t, res.ReviewRequested)
	assert.Equal(t, 1, res.UnresolvedPending)
	assert.Equal(t, domain.StatusRework, res.Feature.Status)
	assert.Empty(t, env.history(t, f.ID))
	assert.NotEmpty(t, env.Notifier.to(env.Tester.ID), "comment resolved is sent without a transition")

	res, err = env.Engine.ResolveCommentAndRequestReview(env.Ctx, env.Dev, f.ID, c2.ID)
	require.NoError(t, err)
	assert.True(t, res.ReviewRequested)
	assert.Equal(t, domain.StatusTesting, res.Feature.Status)
	assert.Len(t, env.history(t, f.ID), 1)
}

func TestResolveCommentGuards(t *testing.T) {
	env := newTestEnv(t)
	f := env.forceStatus(t, env.feature(t), domain.StatusRework)
	c := env.comment(t, f, "first")
	other := env.feature(t)

	_, err := env.Engine.ResolveCommentAndRequestReview(env.Ctx, env.OtherDev, f.ID, c.ID)
	require.ErrorIs(t, err, engine.ErrUnauthorized)
	_, err = env.Engine.ResolveCommentAndRequestReview(env.Ctx, env.Tester, f.ID, c.ID)
	require.ErrorIs(t, err, engine.ErrUnauthorized)
	_, err = env.Engine.ResolveCommentAndRequestReview(env.Ctx, env.Dev, other.ID, c.ID)
	require.ErrorIs(t, err, engine.ErrNotFound)

	_, err = env.Engine.ResolveCommentAndRequestReview(env.Ctx, env.Admin, f.ID, c.ID)
	require.NoError(t, err)
	_, err = env.Engine.ResolveCommentAndRequestReview(env.Ctx, env.Dev, f.ID, c.ID)
	require.ErrorIs(t, err, engine.ErrInvalidTransition)
}

func TestResolveInTestingDoesNotTransition(t *testing.T) {
	env := newTestEnv(t)
	f := env.forceStatus(t, env.feature(t), domain.StatusTesting)
	c := env.comment(t, f, "only one")

	res, err := env.Engine.ResolveCommentAndRequestReview(env.Ctx, env.Dev, f.ID, c.ID)
	require.NoError(t, err)
	assert.False(t, res.ReviewRequested)
	assert.Equal(t, domain.StatusTesting, res.Feature.Status)
	assert.Empty(t, env.history(t, f.ID))
}

func TestReturnUnresolvedCommentFails(t *testing.T) {
	env := newTestEnv(t)
	f := env.forceStatus(t, env.feature(t), domain.StatusTesting)
	c := env.comment(t, f, "still open")

	_, err := env.Engine.ReturnCommentToRework(env.Ctx, env.Tester, f.ID, c.ID, "not fixed")
	require.ErrorIs(t, err, engine.ErrInvalidTransition)

	stored, err := env.Engine.GetFeature(env.Ctx, env.Admin, f.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusTesting, stored.Status)
	assert.Zero(t, env.Notifier.count())
}

func TestReturnCommentToReworkCascades(t *testing.T) {
	env := newTestEnv(t)
	f := env.forceStatus(t, env.feature(t), domain.StatusRework)
	c := env.comment(t, f, "fix me")
	_, err := env.Engine.ResolveCommentAndRequestReview(env.Ctx, env.Dev, f.ID, c.ID)
	require.NoError(t, err)
	env.Notifier.reset()

	_, err = env.Engine.ReturnCommentToRework(env.Ctx, env.Dev, f.ID, c.ID, "nope")
	require.ErrorIs(t, err, engine.ErrUnauthorized)
	_, err = env.Engine.ReturnCommentToRework(env.Ctx, env.Tester, f.ID, c.ID, "  ")
	require.ErrorIs(t, err, engine.ErrValidation)

	res, err := env.Engine.ReturnCommentToRework(env.Ctx, env.Tester, f.ID, c.ID, "still broken")
	require.NoError(t, err)
	assert.True(t, res.StatusChanged)
	assert.False(t, res.Comment.IsResolved)
	require.NotNil(t, res.Comment.ReworkReason)
	assert.Equal(t, "still broken", *res.Comment.ReworkReason)
	assert.Equal(t, domain.StatusRework, res.Feature.Status)

	h := env.history(t, f.ID)
	require.Len(t, h, 2)
	assert.Equal(t, domain.StatusTesting, h[0].OldStatus)
	assert.Equal(t, domain.StatusRework, h[0].NewStatus)

	ch, err := env.Engine.CommentHistory(env.Ctx, env.Admin, c.ID)
	require.NoError(t, err)
	require.Len(t, ch, 3)
	actions := []domain.CommentAction{ch[0].Action, ch[1].Action, ch[2].Action}
	assert.ElementsMatch(t, []domain.CommentAction{domain.CommentCreated, domain.CommentResolved, domain.CommentReturnedToRework}, actions)

	types := map[domain.NotificationType]int{}
	for _, n := range env.Notifier.to(env.Dev.ID) {
		types[n.Type]++
	}
	assert.Equal(t, 1, types[domain.NotifyCommentReturned])
	assert.Equal(t, 1, types[domain.NotifyFeatureRework])
}

func TestProjects(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.CreateProject(env.Ctx, env.Dev, "Shift log", "")
	require.ErrorIs(t, err, engine.ErrConflict)
	_, err = env.Engine.CreateProject(env.Ctx, env.Tester, "Mine", "")
	require.ErrorIs(t, err, engine.ErrUnauthorized)
	_, err = env.Engine.CreateProject(env.Ctx, env.OtherDev, "Shift log", "")
	require.NoError(t, err)

	f := env.feature(t)
	env.comment(t, f, "one")
	done := env.forceStatus(t, env.feature(t), domain.StatusDone)
	require.Equal(t, domain.StatusDone, done.Status)

	summary, err := env.Engine.GetProject(env.Ctx, env.Admin, env.Project.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.FeaturesCount)
	assert.Equal(t, 1, summary.ActiveFeatures)
	assert.Equal(t, 1, summary.UnresolvedComments)

	desc := "updated"
	_, err = env.Engine.UpdateProject(env.Ctx, env.OtherDev, env.Project.ID, engine.ProjectUpdate{Description: &desc})
	require.ErrorIs(t, err, engine.ErrUnauthorized)

	active, err := env.Engine.ListProjects(env.Ctx, env.Admin, repo.ProjectFilter{ActiveOnly: true})
	require.NoError(t, err)
	assert.Len(t, active, 2)
}

func TestListFeaturesOrdering(t *testing.T) {
	env := newTestEnv(t)
	for _, p := range []domain.Priority{domain.PriorityLow, domain.PriorityCritical, domain.PriorityMedium} {
		_, err := env.Engine.CreateFeature(env.Ctx, env.Dev, engine.FeatureInput{ProjectID: env.Project.ID, Title: p.Label(), Priority: p})
		require.NoError(t, err)
	}
	list, err := env.Engine.ListFeatures(env.Ctx, env.Admin, repo.FeatureFilter{ProjectID: env.Project.ID})
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, domain.PriorityCritical, list[0].Priority)
	assert.Equal(t, domain.PriorityLow, list[2].Priority)

	_, err = env.Engine.ListFeatures(env.Ctx, env.Admin, repo.FeatureFilter{Status: "bogus"})
	require.ErrorIs(t, err, engine.ErrValidation)
}

func TestAvailableTransitions(t *testing.T) {
	env := newTestEnv(t)
	f := env.forceStatus(t, env.feature(t), domain.StatusRework)

	got, err := env.Engine.AvailableTransitions(env.Ctx, env.Dev, f.ID)
	require.NoError(t, err)
	assert.Equal(t, []domain.FeatureStatus{domain.StatusTesting, domain.StatusCompleted}, got)

	got, err = env.Engine.AvailableTransitions(env.Ctx, env.Supervisor, f.ID)
	require.ErrorIs(t, err, engine.ErrNotFound)
	assert.Empty(t, got)
}

func TestFeatureReadsFollowVisibility(t *testing.T) {
	env := newTestEnv(t)
	mine := env.feature(t)
	theirs, err := env.Engine.CreateFeature(env.Ctx, env.OtherDev, engine.FeatureInput{
		ProjectID: env.Project.ID, Title: "Shift report export", Description: "CSV dump of closed shifts",
	})
	require.NoError(t, err)
	c := env.comment(t, mine, "label overlaps")

	counts := map[string]int{"admin": 2, "tess": 2, "dev": 1, "dev2": 1, "sup": 0, "plain": 0}
	for _, e := range []domain.Employee{env.Admin, env.Tester, env.Dev, env.OtherDev, env.Supervisor, env.Plain} {
		list, err := env.Engine.ListFeatures(env.Ctx, e, repo.FeatureFilter{})
		require.NoError(t, err)
		assert.Len(t, list, counts[e.Username], e.Username)
	}

	list, err := env.Engine.ListFeatures(env.Ctx, env.Dev, repo.FeatureFilter{CreatedBy: env.OtherDev.ID})
	require.NoError(t, err)
	assert.Empty(t, list)
	list, err = env.Engine.ListFeatures(env.Ctx, env.Tester, repo.FeatureFilter{CreatedBy: env.OtherDev.ID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, theirs.ID, list[0].ID)

	_, err = env.Engine.GetFeature(env.Ctx, env.OtherDev, mine.ID)
	require.ErrorIs(t, err, engine.ErrNotFound)
	_, err = env.Engine.GetFeature(env.Ctx, env.Tester, mine.ID)
	require.NoError(t, err)
	_, err = env.Engine.StatusHistory(env.Ctx, env.OtherDev, mine.ID)
	require.ErrorIs(t, err, engine.ErrNotFound)
	_, err = env.Engine.ListComments(env.Ctx, env.OtherDev, mine.ID, false)
	require.ErrorIs(t, err, engine.ErrNotFound)
	_, err = env.Engine.CommentHistory(env.Ctx, env.OtherDev, c.ID)
	require.ErrorIs(t, err, engine.ErrNotFound)
	h, err := env.Engine.CommentHistory(env.Ctx, env.Dev, c.ID)
	require.NoError(t, err)
	assert.Len(t, h, 1)
}

func TestSearchFeatures(t *testing.T) {
	env := newTestEnv(t)
	login := env.feature(t)
	export, err := env.Engine.CreateFeature(env.Ctx, env.Dev, engine.FeatureInput{
		ProjectID: env.Project.ID, Title: "Shift report export", Description: "CSV dump, 100% of closed shifts",
	})
	require.NoError(t, err)

	cases := map[string][]string{
		"LOGIN": {login.ID},
		"csv":   {export.ID},
		"100%":  {export.ID},
		"%":     {export.ID},
		"_":     nil,
		"  ":    {login.ID, export.ID},
	}
	for term, want := range cases {
		list, err := env.Engine.ListFeatures(env.Ctx, env.Tester, repo.FeatureFilter{Search: term})
		require.NoError(t, err)
		got := make([]string, 0, len(list))
		for _, f := range list {
			got = append(got, f.ID)
		}
		assert.ElementsMatch(t, want, got, "search %q", term)
	}
}

func TestProjectReadsFollowVisibility(t *testing.T) {
	env := newTestEnv(t)
	archive, err := env.Engine.CreateProject(env.Ctx, env.Dev, "Archive", "old night shifts")
	require.NoError(t, err)
	inactive := false
	_, err = env.Engine.UpdateProject(env.Ctx, env.Dev, archive.ID, engine.ProjectUpdate{IsActive: &inactive})
	require.NoError(t, err)

	tx, err := env.Engine.DB.BeginTx(env.Ctx, nil)
	require.NoError(t, err)
	personal := domain.TestProject{ID: "personal", Name: "Notes", CreatedBy: env.Plain.ID, IsActive: true, CreatedAt: "2024-01-01T00:00:00Z", UpdatedAt: "2024-01-01T00:00:00Z"}
	require.NoError(t, env.Engine.Repo.InsertProjectTx(env.Ctx, tx, personal))
	require.NoError(t, tx.Commit())

	counts := map[string]int{"admin": 3, "tess": 2, "dev": 2, "plain": 1, "sup": 0}
	for _, e := range []domain.Employee{env.Admin, env.Tester, env.Dev, env.Plain, env.Supervisor} {
		list, err := env.Engine.ListProjects(env.Ctx, e, repo.ProjectFilter{})
		require.NoError(t, err)
		assert.Len(t, list, counts[e.Username], e.Username)
	}

	_, err = env.Engine.GetProject(env.Ctx, env.Dev, archive.ID)
	require.ErrorIs(t, err, engine.ErrNotFound)
	_, err = env.Engine.GetProject(env.Ctx, env.Plain, env.Project.ID)
	require.ErrorIs(t, err, engine.ErrNotFound)
	summary, err := env.Engine.GetProject(env.Ctx, env.Admin, archive.ID)
	require.NoError(t, err)
	assert.False(t, summary.Project.IsActive)

	list, err := env.Engine.ListProjects(env.Ctx, env.Plain, repo.ProjectFilter{CreatedBy: env.Dev.ID})
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = env.Engine.ListProjects(env.Ctx, env.Admin, repo.ProjectFilter{Search: "NIGHT"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, archive.ID, list[0].ID)
	list, err = env.Engine.ListProjects(env.Ctx, env.Tester, repo.ProjectFilter{Search: "NIGHT"})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestActivityRecordedAfterCommit(t *testing.T) {
	env := newTestEnv(t)
	f := env.feature(t)
	_, err := env.Engine.UpdateStatus(env.Ctx, env.Tester, f.ID, domain.StatusTesting, "go")
	require.NoError(t, err)

	entries, err := env.Engine.ActivityTail(env.Ctx, env.Supervisor, repo.ActivityFilter{EntityType: "feature", EntityID: f.ID})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "status_changed", entries[0].Action)
	assert.Equal(t, "created", entries[1].Action)

	_, err = env.Engine.ActivityTail(env.Ctx, env.Tester, repo.ActivityFilter{})
	require.ErrorIs(t, err, engine.ErrUnauthorized)
}

func TestDispatcherPersistsInbox(t *testing.T) {
	env := newTestEnv(t)
	d := notify.NewDispatcher(env.Engine.Repo, nil, zerolog.Nop(), notify.Options{})
	env.Engine.Notifier = d

	_, err := env.Engine.CreateFeature(env.Ctx, env.Dev, engine.FeatureInput{ProjectID: env.Project.ID, Title: "Inbox"})
	require.NoError(t, err)
	d.Wait()

	inbox, err := env.Engine.ListNotifications(env.Ctx, env.Tester, true, 10)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, domain.NotifyFeatureCreated, inbox[0].Type)

	require.NoError(t, env.Engine.MarkNotificationRead(env.Ctx, env.Tester, inbox[0].ID))
	require.ErrorIs(t, env.Engine.MarkNotificationRead(env.Ctx, env.Admin, inbox[0].ID), engine.ErrNotFound)
	count, err := env.Engine.UnreadCount(env.Ctx, env.Tester)
	require.NoError(t, err)
	assert.Zero(t, count)

	n, err := env.Engine.MarkAllNotificationsRead(env.Ctx, env.Admin)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
