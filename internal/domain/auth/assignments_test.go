package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credvault/internal/core/apperror"
	"credvault/internal/core/id"
	"credvault/internal/core/security"
)

func adminPrincipal() security.Principal {
	return security.Principal{UserID: id.New(), Role: security.RoleAdmin}
}

func TestAssignDivision(t *testing.T) {
	ctx := context.Background()
	repo := newFakeUserRepo()

	divID := id.New()
	ouID := id.New()
	divisions := &fakeDivisionDirectory{owners: map[id.ID]id.ID{divID: ouID}}
	svc := newTestService(repo, divisions, nil)

	user, _, err := svc.Register(ctx, RegisterRequest{Username: "alice", Password: "secret1"})
	require.NoError(t, err)

	admin := adminPrincipal()

	require.NoError(t, svc.AssignDivision(ctx, admin, user.ID, divID))

	got, err := repo.LoadDivisionIDs(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []id.ID{divID}, got)

	// second assign reports the conflict and leaves state unchanged
	err = svc.AssignDivision(ctx, admin, user.ID, divID)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeAlreadyAssigned))

	got, err = repo.LoadDivisionIDs(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []id.ID{divID}, got)
}

func TestAssignDivision_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := newFakeUserRepo()
	svc := newTestService(repo, nil, nil)

	user, _, err := svc.Register(ctx, RegisterRequest{Username: "alice", Password: "secret1"})
	require.NoError(t, err)

	admin := adminPrincipal()

	err = svc.AssignDivision(ctx, admin, id.New(), id.New())
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))

	// unknown division
	err = svc.AssignDivision(ctx, admin, user.ID, id.New())
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestAssignDivision_AdminOnly(t *testing.T) {
	ctx := context.Background()
	repo := newFakeUserRepo()

	divID := id.New()
	divisions := &fakeDivisionDirectory{owners: map[id.ID]id.ID{divID: id.New()}}
	svc := newTestService(repo, divisions, nil)

	user, _, err := svc.Register(ctx, RegisterRequest{Username: "alice", Password: "secret1"})
	require.NoError(t, err)

	for _, role := range []security.Role{security.RoleNormal, security.RoleManagement} {
		p := security.Principal{UserID: id.New(), Role: role, DivisionIDs: []id.ID{divID}}
		err := svc.AssignDivision(ctx, p, user.ID, divID)
		require.Error(t, err, "role %s", role)
		assert.True(t, apperror.IsForbidden(err))
	}
}

func TestUnassignDivision(t *testing.T) {
	ctx := context.Background()
	repo := newFakeUserRepo()

	divID := id.New()
	divisions := &fakeDivisionDirectory{owners: map[id.ID]id.ID{divID: id.New()}}
	svc := newTestService(repo, divisions, nil)

	user, _, err := svc.Register(ctx, RegisterRequest{Username: "alice", Password: "secret1"})
	require.NoError(t, err)

	admin := adminPrincipal()

	// not assigned yet
	err = svc.UnassignDivision(ctx, admin, user.ID, divID)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeNotAssigned))

	require.NoError(t, svc.AssignDivision(ctx, admin, user.ID, divID))
	require.NoError(t, svc.UnassignDivision(ctx, admin, user.ID, divID))

	got, err := repo.LoadDivisionIDs(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAssignOU(t *testing.T) {
	ctx := context.Background()
	repo := newFakeUserRepo()

	ouID := id.New()
	ous := &fakeOUDirectory{known: map[id.ID]struct{}{ouID: {}}}
	svc := newTestService(repo, nil, ous)

	user, _, err := svc.Register(ctx, RegisterRequest{Username: "alice", Password: "secret1"})
	require.NoError(t, err)

	admin := adminPrincipal()

	require.NoError(t, svc.AssignOU(ctx, admin, user.ID, ouID))

	err = svc.AssignOU(ctx, admin, user.ID, ouID)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeAlreadyAssigned))

	err = svc.AssignOU(ctx, admin, user.ID, id.New())
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))

	require.NoError(t, svc.UnassignOU(ctx, admin, user.ID, ouID))

	err = svc.UnassignOU(ctx, admin, user.ID, ouID)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeNotAssigned))
}

func TestChangeRole(t *testing.T) {
	ctx := context.Background()
	repo := newFakeUserRepo()
	svc := newTestService(repo, nil, nil)

	user, _, err := svc.Register(ctx, RegisterRequest{Username: "alice", Password: "secret1"})
	require.NoError(t, err)

	admin := adminPrincipal()

	require.NoError(t, svc.ChangeRole(ctx, admin, user.ID, security.RoleManagement))
	assert.Equal(t, security.RoleManagement, repo.users[user.ID].Role)

	// memberships untouched by role change
	divID := id.New()
	_, err = repo.AddDivision(ctx, user.ID, divID)
	require.NoError(t, err)
	require.NoError(t, svc.ChangeRole(ctx, admin, user.ID, security.RoleAdmin))
	got, err := repo.LoadDivisionIDs(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []id.ID{divID}, got)
}

func TestChangeRole_InvalidRole(t *testing.T) {
	ctx := context.Background()
	repo := newFakeUserRepo()
	svc := newTestService(repo, nil, nil)

	user, _, err := svc.Register(ctx, RegisterRequest{Username: "alice", Password: "secret1"})
	require.NoError(t, err)

	err = svc.ChangeRole(ctx, adminPrincipal(), user.ID, security.Role("superuser"))
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
	assert.Equal(t, security.RoleNormal, repo.users[user.ID].Role)
}

func TestChangeRole_AdminOnly(t *testing.T) {
	ctx := context.Background()
	repo := newFakeUserRepo()
	svc := newTestService(repo, nil, nil)

	user, _, err := svc.Register(ctx, RegisterRequest{Username: "alice", Password: "secret1"})
	require.NoError(t, err)

	p := security.Principal{UserID: id.New(), Role: security.RoleManagement}
	err = svc.ChangeRole(ctx, p, user.ID, security.RoleAdmin)
	require.Error(t, err)
	assert.True(t, apperror.IsForbidden(err))
}
