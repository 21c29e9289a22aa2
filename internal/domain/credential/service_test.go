package credential

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"credvault/internal/core/apperror"
	"credvault/internal/core/id"
	"credvault/internal/core/security"
)

// fakeRepo is an in-memory Repository for tests.
type fakeRepo struct {
	creds map[id.ID]*Credential
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{creds: make(map[id.ID]*Credential)}
}

func (f *fakeRepo) Create(_ context.Context, cred *Credential) error {
	cp := *cred
	f.creds[cred.ID] = &cp
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, credentialID id.ID) (*Credential, error) {
	c, ok := f.creds[credentialID]
	if !ok {
		return nil, apperror.NewNotFound("credential", credentialID.String())
	}
	cp := *c
	return &cp, nil
}

func (f *fakeRepo) ExistsInDivision(_ context.Context, divisionID id.ID, username string, excludeID id.ID) (bool, error) {
	for _, c := range f.creds {
		if c.DivisionID == divisionID && c.Username == username && c.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) List(_ context.Context) ([]Credential, error) {
	out := make([]Credential, 0, len(f.creds))
	for _, c := range f.creds {
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeRepo) ListByDivisions(_ context.Context, divisionIDs []id.ID) ([]Credential, error) {
	want := make(map[id.ID]struct{}, len(divisionIDs))
	for _, divID := range divisionIDs {
		want[divID] = struct{}{}
	}
	var out []Credential
	for _, c := range f.creds {
		if _, ok := want[c.DivisionID]; ok {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeRepo) Update(_ context.Context, cred *Credential) error {
	if _, ok := f.creds[cred.ID]; !ok {
		return apperror.NewNotFound("credential", cred.ID.String())
	}
	cp := *cred
	f.creds[cred.ID] = &cp
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, credentialID id.ID) error {
	if _, ok := f.creds[credentialID]; !ok {
		return apperror.NewNotFound("credential", credentialID.String())
	}
	delete(f.creds, credentialID)
	return nil
}

func (f *fakeRepo) PurgeByDivision(_ context.Context, divisionID id.ID) (int64, error) {
	var n int64
	for credID, c := range f.creds {
		if c.DivisionID == divisionID {
			delete(f.creds, credID)
			n++
		}
	}
	return n, nil
}

type fakeDivisions struct {
	known map[id.ID]struct{}
}

func (f *fakeDivisions) Exists(_ context.Context, divisionID id.ID) (bool, error) {
	_, ok := f.known[divisionID]
	return ok, nil
}

func newTestService(repo *fakeRepo, divisionIDs ...id.ID) *Service {
	known := make(map[id.ID]struct{}, len(divisionIDs))
	for _, divID := range divisionIDs {
		known[divID] = struct{}{}
	}
	cfg := DefaultServiceConfig()
	cfg.BcryptCost = 4 // keep tests fast
	return NewService(repo, &fakeDivisions{known: known}, nil, cfg)
}

func memberOf(role security.Role, divisionIDs ...id.ID) security.Principal {
	return security.Principal{UserID: id.New(), Role: role, DivisionIDs: divisionIDs}
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	divID := id.New()
	repo := newFakeRepo()
	svc := newTestService(repo, divID)

	p := memberOf(security.RoleNormal, divID)

	cred, err := svc.Create(ctx, p, CreateRequest{
		Username:    "svc-account",
		Password:    "hunter22",
		Description: "shared service login",
		DivisionID:  divID,
	})
	require.NoError(t, err)

	assert.Equal(t, "svc-account", cred.Username)
	assert.Equal(t, divID, cred.DivisionID)
	// stored as a hash, plaintext is verifiable against it
	assert.NotEqual(t, "hunter22", cred.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte("hunter22")))
}

func TestCreate_DuplicateInDivision(t *testing.T) {
	ctx := context.Background()
	divA := id.New()
	divB := id.New()
	repo := newFakeRepo()
	svc := newTestService(repo, divA, divB)

	admin := memberOf(security.RoleAdmin)

	_, err := svc.Create(ctx, admin, CreateRequest{Username: "svc-account", Password: "hunter22", DivisionID: divA})
	require.NoError(t, err)

	// same username in the same division is refused
	_, err = svc.Create(ctx, admin, CreateRequest{Username: "svc-account", Password: "hunter22", DivisionID: divA})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeDuplicate))

	// same username in another division is fine
	_, err = svc.Create(ctx, admin, CreateRequest{Username: "svc-account", Password: "hunter22", DivisionID: divB})
	require.NoError(t, err)
}

func TestCreate_Authorization(t *testing.T) {
	ctx := context.Background()
	divID := id.New()
	otherDiv := id.New()
	repo := newFakeRepo()
	svc := newTestService(repo, divID, otherDiv)

	// non-member cannot create in the division
	outsider := memberOf(security.RoleManagement, otherDiv)
	_, err := svc.Create(ctx, outsider, CreateRequest{Username: "x-account", Password: "hunter22", DivisionID: divID})
	require.Error(t, err)
	assert.True(t, apperror.IsForbidden(err))

	// unknown division reads as not found, before any authz decision
	admin := memberOf(security.RoleAdmin)
	_, err = svc.Create(ctx, admin, CreateRequest{Username: "x-account", Password: "hunter22", DivisionID: id.New()})
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestCreate_Validation(t *testing.T) {
	ctx := context.Background()
	divID := id.New()
	svc := newTestService(newFakeRepo(), divID)
	admin := memberOf(security.RoleAdmin)

	_, err := svc.Create(ctx, admin, CreateRequest{Username: "", Password: "hunter22", DivisionID: divID})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	_, err = svc.Create(ctx, admin, CreateRequest{Username: "svc-account", Password: "12345", DivisionID: divID})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestList_Scoping(t *testing.T) {
	ctx := context.Background()
	divA := id.New()
	divB := id.New()
	repo := newFakeRepo()
	svc := newTestService(repo, divA, divB)

	admin := memberOf(security.RoleAdmin)
	_, err := svc.Create(ctx, admin, CreateRequest{Username: "in-a", Password: "hunter22", DivisionID: divA})
	require.NoError(t, err)
	_, err = svc.Create(ctx, admin, CreateRequest{Username: "in-b", Password: "hunter22", DivisionID: divB})
	require.NoError(t, err)

	// admin sees everything
	all, err := svc.List(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	// member of divA sees only divA records
	scoped, err := svc.List(ctx, memberOf(security.RoleNormal, divA))
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, "in-a", scoped[0].Username)

	// no divisions, no records
	none, err := svc.List(ctx, memberOf(security.RoleNormal))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestListByDivision(t *testing.T) {
	ctx := context.Background()
	divA := id.New()
	divB := id.New()
	repo := newFakeRepo()
	svc := newTestService(repo, divA, divB)

	admin := memberOf(security.RoleAdmin)
	_, err := svc.Create(ctx, admin, CreateRequest{Username: "in-a", Password: "hunter22", DivisionID: divA})
	require.NoError(t, err)

	got, err := svc.ListByDivision(ctx, memberOf(security.RoleNormal, divA), divA)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = svc.ListByDivision(ctx, memberOf(security.RoleNormal, divB), divA)
	require.Error(t, err)
	assert.True(t, apperror.IsForbidden(err))

	_, err = svc.ListByDivision(ctx, admin, id.New())
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestGet_Authorization(t *testing.T) {
	ctx := context.Background()
	divID := id.New()
	repo := newFakeRepo()
	svc := newTestService(repo, divID)

	admin := memberOf(security.RoleAdmin)
	cred, err := svc.Create(ctx, admin, CreateRequest{Username: "svc-account", Password: "hunter22", DivisionID: divID})
	require.NoError(t, err)

	got, err := svc.Get(ctx, memberOf(security.RoleNormal, divID), cred.ID)
	require.NoError(t, err)
	assert.Equal(t, cred.ID, got.ID)

	_, err = svc.Get(ctx, memberOf(security.RoleNormal), cred.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsForbidden(err))

	_, err = svc.Get(ctx, admin, id.New())
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestUpdate_RoleRules(t *testing.T) {
	ctx := context.Background()
	divID := id.New()
	repo := newFakeRepo()
	svc := newTestService(repo, divID)

	admin := memberOf(security.RoleAdmin)
	cred, err := svc.Create(ctx, admin, CreateRequest{Username: "svc-account", Password: "hunter22", DivisionID: divID})
	require.NoError(t, err)

	newDesc := "rotated"

	// normal users never update, even in their own division
	_, err = svc.Update(ctx, memberOf(security.RoleNormal, divID), cred.ID, UpdateRequest{Description: &newDesc})
	require.Error(t, err)
	assert.True(t, apperror.IsForbidden(err))

	// management updates inside its own division
	updated, err := svc.Update(ctx, memberOf(security.RoleManagement, divID), cred.ID, UpdateRequest{Description: &newDesc})
	require.NoError(t, err)
	assert.Equal(t, "rotated", updated.Description)

	// management outside the division is refused
	_, err = svc.Update(ctx, memberOf(security.RoleManagement, id.New()), cred.ID, UpdateRequest{Description: &newDesc})
	require.Error(t, err)
	assert.True(t, apperror.IsForbidden(err))
}

func TestUpdate_PasswordRotation(t *testing.T) {
	ctx := context.Background()
	divID := id.New()
	repo := newFakeRepo()
	svc := newTestService(repo, divID)

	admin := memberOf(security.RoleAdmin)
	cred, err := svc.Create(ctx, admin, CreateRequest{Username: "svc-account", Password: "hunter22", DivisionID: divID})
	require.NoError(t, err)

	newPassword := "rotated-secret"
	updated, err := svc.Update(ctx, admin, cred.ID, UpdateRequest{Password: &newPassword})
	require.NoError(t, err)

	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(updated.PasswordHash), []byte(newPassword)))
	assert.Error(t, bcrypt.CompareHashAndPassword([]byte(updated.PasswordHash), []byte("hunter22")))

	short := "12345"
	_, err = svc.Update(ctx, admin, cred.ID, UpdateRequest{Password: &short})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestUpdate_MoveDivision(t *testing.T) {
	ctx := context.Background()
	divA := id.New()
	divB := id.New()
	repo := newFakeRepo()
	svc := newTestService(repo, divA, divB)

	admin := memberOf(security.RoleAdmin)
	cred, err := svc.Create(ctx, admin, CreateRequest{Username: "svc-account", Password: "hunter22", DivisionID: divA})
	require.NoError(t, err)
	_, err = svc.Create(ctx, admin, CreateRequest{Username: "taken", Password: "hunter22", DivisionID: divB})
	require.NoError(t, err)

	// management member of the source only cannot move the record out
	mgmt := memberOf(security.RoleManagement, divA)
	_, err = svc.Update(ctx, mgmt, cred.ID, UpdateRequest{DivisionID: &divB})
	require.Error(t, err)
	assert.True(t, apperror.IsForbidden(err))

	// moving onto a taken (username, division) pair is refused
	taken := "taken"
	_, err = svc.Update(ctx, admin, cred.ID, UpdateRequest{Username: &taken, DivisionID: &divB})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeDuplicate))

	moved, err := svc.Update(ctx, admin, cred.ID, UpdateRequest{DivisionID: &divB})
	require.NoError(t, err)
	assert.Equal(t, divB, moved.DivisionID)
}

func TestDelete_RoleRules(t *testing.T) {
	ctx := context.Background()
	divID := id.New()
	repo := newFakeRepo()
	svc := newTestService(repo, divID)

	admin := memberOf(security.RoleAdmin)
	cred, err := svc.Create(ctx, admin, CreateRequest{Username: "svc-account", Password: "hunter22", DivisionID: divID})
	require.NoError(t, err)

	err = svc.Delete(ctx, memberOf(security.RoleNormal, divID), cred.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsForbidden(err))

	require.NoError(t, svc.Delete(ctx, memberOf(security.RoleManagement, divID), cred.ID))

	err = svc.Delete(ctx, admin, cred.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}
