package actor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shiftlog/internal/domain"
	"shiftlog/internal/engine"
	"shiftlog/internal/repo"
)

type mapDirectory map[string]domain.Employee

func (m mapDirectory) GetEmployee(_ context.Context, id string) (domain.Employee, error) {
	if e, ok := m[id]; ok {
		return e, nil
	}
	return domain.Employee{}, repo.ErrNotFound
}

func (m mapDirectory) GetEmployeeByUsername(_ context.Context, username string) (domain.Employee, error) {
	for _, e := range m {
		if e.Username == username {
			return e, nil
		}
	}
	return domain.Employee{}, repo.ErrNotFound
}

func TestAnonymousRequireFails(t *testing.T) {
	a := Anonymous()
	assert.True(t, a.IsAnonymous())
	_, err := a.Require()
	require.ErrorIs(t, err, engine.ErrUnauthorized)
	assert.Equal(t, "anonymous", a.String())
}

func TestInactiveEmployeeIsUnauthorized(t *testing.T) {
	a := Identified(domain.Employee{ID: "e1", Username: "old", IsActive: false})
	_, err := a.Require()
	require.ErrorIs(t, err, engine.ErrUnauthorized)
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	dir := mapDirectory{"e1": {ID: "e1", Username: "anna", IsActive: true}}

	a, err := Resolve(ctx, dir, "e1")
	require.NoError(t, err)
	e, err := a.Require()
	require.NoError(t, err)
	assert.Equal(t, "anna", e.Username)

	a, err = Resolve(ctx, dir, "anna")
	require.NoError(t, err)
	assert.False(t, a.IsAnonymous())

	a, err = Resolve(ctx, dir, "")
	require.NoError(t, err)
	assert.True(t, a.IsAnonymous())

	_, err = Resolve(ctx, dir, "ghost")
	require.ErrorIs(t, err, engine.ErrNotFound)
}

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	assert.True(t, FromContext(ctx).IsAnonymous())
	ctx = WithActor(ctx, Identified(domain.Employee{ID: "e1", Username: "anna", IsActive: true}))
	e, ok := FromContext(ctx).Employee()
	require.True(t, ok)
	assert.Equal(t, "e1", e.ID)
}
