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

// fakeUserRepo is an in-memory UserRepository for tests.
type fakeUserRepo struct {
	users     map[id.ID]*User
	divisions map[id.ID][]id.ID
	ous       map[id.ID][]id.ID
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:     make(map[id.ID]*User),
		divisions: make(map[id.ID][]id.ID),
		ous:       make(map[id.ID][]id.ID),
	}
}

func (f *fakeUserRepo) Create(_ context.Context, user *User) error {
	cp := *user
	f.users[user.ID] = &cp
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, userID id.ID) (*User, error) {
	u, ok := f.users[userID]
	if !ok {
		return nil, apperror.NewNotFound("user", userID.String())
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (*User, error) {
	for _, u := range f.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("user", username)
}

func (f *fakeUserRepo) Exists(_ context.Context, username string) (bool, error) {
	for _, u := range f.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUserRepo) Update(_ context.Context, user *User) error {
	cp := *user
	f.users[user.ID] = &cp
	return nil
}

func (f *fakeUserRepo) List(_ context.Context, _ UserFilter) ([]User, int, error) {
	out := make([]User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out, len(out), nil
}

func (f *fakeUserRepo) SetRole(_ context.Context, userID id.ID, role security.Role) error {
	u, ok := f.users[userID]
	if !ok {
		return apperror.NewNotFound("user", userID.String())
	}
	u.Role = role
	return nil
}

func (f *fakeUserRepo) LoadDivisionIDs(_ context.Context, userID id.ID) ([]id.ID, error) {
	return f.divisions[userID], nil
}

func (f *fakeUserRepo) LoadOUIDs(_ context.Context, userID id.ID) ([]id.ID, error) {
	return f.ous[userID], nil
}

func (f *fakeUserRepo) AddDivision(_ context.Context, userID, divisionID id.ID) (bool, error) {
	for _, existing := range f.divisions[userID] {
		if existing == divisionID {
			return false, nil
		}
	}
	f.divisions[userID] = append(f.divisions[userID], divisionID)
	return true, nil
}

func (f *fakeUserRepo) RemoveDivision(_ context.Context, userID, divisionID id.ID) (bool, error) {
	links := f.divisions[userID]
	for i, existing := range links {
		if existing == divisionID {
			f.divisions[userID] = append(links[:i], links[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUserRepo) AddOU(_ context.Context, userID, ouID id.ID) (bool, error) {
	for _, existing := range f.ous[userID] {
		if existing == ouID {
			return false, nil
		}
	}
	f.ous[userID] = append(f.ous[userID], ouID)
	return true, nil
}

func (f *fakeUserRepo) RemoveOU(_ context.Context, userID, ouID id.ID) (bool, error) {
	links := f.ous[userID]
	for i, existing := range links {
		if existing == ouID {
			f.ous[userID] = append(links[:i], links[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// fakeDivisionDirectory maps division ids to owning OU ids.
type fakeDivisionDirectory struct {
	owners map[id.ID]id.ID
}

func (f *fakeDivisionDirectory) Exists(_ context.Context, divisionID id.ID) (bool, error) {
	_, ok := f.owners[divisionID]
	return ok, nil
}

func (f *fakeDivisionDirectory) OwningOUs(_ context.Context, divisionIDs []id.ID) ([]id.ID, error) {
	seen := make(map[id.ID]struct{})
	var out []id.ID
	for _, divID := range divisionIDs {
		ouID, ok := f.owners[divID]
		if !ok {
			continue
		}
		if _, dup := seen[ouID]; dup {
			continue
		}
		seen[ouID] = struct{}{}
		out = append(out, ouID)
	}
	return out, nil
}

type fakeOUDirectory struct {
	known map[id.ID]struct{}
}

func (f *fakeOUDirectory) Exists(_ context.Context, ouID id.ID) (bool, error) {
	_, ok := f.known[ouID]
	return ok, nil
}

func newTestService(repo *fakeUserRepo, divisions *fakeDivisionDirectory, ous *fakeOUDirectory) *Service {
	if divisions == nil {
		divisions = &fakeDivisionDirectory{owners: map[id.ID]id.ID{}}
	}
	if ous == nil {
		ous = &fakeOUDirectory{known: map[id.ID]struct{}{}}
	}
	cfg := DefaultServiceConfig()
	cfg.BcryptCost = 4 // keep tests fast
	return NewService(repo, divisions, ous, NewJWTService(DefaultJWTConfig("test-secret")), nil, cfg)
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	repo := newFakeUserRepo()
	svc := newTestService(repo, nil, nil)

	user, token, err := svc.Register(ctx, RegisterRequest{Username: "alice", Password: "secret1"})
	require.NoError(t, err)
	require.NotNil(t, user)
	require.NotNil(t, token)

	assert.Equal(t, security.RoleNormal, user.Role)
	assert.Equal(t, StatusActive, user.Status)
	assert.NotEqual(t, "secret1", user.PasswordHash)
	assert.NotEmpty(t, token.AccessToken)
	assert.Equal(t, "Bearer", token.TokenType)

	// same username again
	_, _, err = svc.Register(ctx, RegisterRequest{Username: "alice", Password: "secret1"})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeDuplicate))
}

func TestRegister_Validation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newFakeUserRepo(), nil, nil)

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"short username", "ab", "secret1"},
		{"short password", "alice", "12345"},
		{"blank username", "   ", "secret1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Register(ctx, RegisterRequest{Username: tt.username, Password: tt.password})
			require.Error(t, err)
			assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
		})
	}
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	repo := newFakeUserRepo()
	svc := newTestService(repo, nil, nil)

	_, _, err := svc.Register(ctx, RegisterRequest{Username: "alice", Password: "secret1"})
	require.NoError(t, err)

	user, token, err := svc.Login(ctx, Credentials{Username: "alice", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.NotEmpty(t, token.AccessToken)

	_, _, err = svc.Login(ctx, Credentials{Username: "alice", Password: "wrong"})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeUnauthorized))

	_, _, err = svc.Login(ctx, Credentials{Username: "nobody", Password: "secret1"})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeUnauthorized))
}

func TestLogin_InactiveAccount(t *testing.T) {
	ctx := context.Background()
	repo := newFakeUserRepo()
	svc := newTestService(repo, nil, nil)

	user, _, err := svc.Register(ctx, RegisterRequest{Username: "alice", Password: "secret1"})
	require.NoError(t, err)

	repo.users[user.ID].Status = StatusInactive

	_, _, err = svc.Login(ctx, Credentials{Username: "alice", Password: "secret1"})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeForbidden))
}

func TestResolvePrincipal(t *testing.T) {
	ctx := context.Background()
	repo := newFakeUserRepo()
	svc := newTestService(repo, nil, nil)

	user, _, err := svc.Register(ctx, RegisterRequest{Username: "alice", Password: "secret1"})
	require.NoError(t, err)

	divID := id.New()
	_, err = repo.AddDivision(ctx, user.ID, divID)
	require.NoError(t, err)

	resolved, err := svc.ResolvePrincipal(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []id.ID{divID}, resolved.DivisionIDs)

	// deleted accounts stop resolving even with a valid token subject
	repo.users[user.ID].Deleted = true
	_, err = svc.ResolvePrincipal(ctx, user.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeForbidden))

	_, err = svc.ResolvePrincipal(ctx, id.New())
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeUnauthorized))
}

func TestVisibleOUIDs_Union(t *testing.T) {
	ctx := context.Background()
	repo := newFakeUserRepo()

	ouA := id.New()
	ouB := id.New()
	divInA := id.New()

	divisions := &fakeDivisionDirectory{owners: map[id.ID]id.ID{divInA: ouA}}
	ous := &fakeOUDirectory{known: map[id.ID]struct{}{ouA: {}, ouB: {}}}
	svc := newTestService(repo, divisions, ous)

	user, _, err := svc.Register(ctx, RegisterRequest{Username: "alice", Password: "secret1"})
	require.NoError(t, err)

	// member of a division owned by ouA, directly assigned to ouB
	_, err = repo.AddDivision(ctx, user.ID, divInA)
	require.NoError(t, err)
	_, err = repo.AddOU(ctx, user.ID, ouB)
	require.NoError(t, err)

	visible, err := svc.VisibleOUIDs(ctx, user.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []id.ID{ouA, ouB}, visible)
}

func TestVisibleOUIDs_Dedup(t *testing.T) {
	ctx := context.Background()
	repo := newFakeUserRepo()

	ouA := id.New()
	divInA := id.New()

	divisions := &fakeDivisionDirectory{owners: map[id.ID]id.ID{divInA: ouA}}
	ous := &fakeOUDirectory{known: map[id.ID]struct{}{ouA: {}}}
	svc := newTestService(repo, divisions, ous)

	user, _, err := svc.Register(ctx, RegisterRequest{Username: "alice", Password: "secret1"})
	require.NoError(t, err)

	// both directly assigned to ouA and member of a division it owns
	_, err = repo.AddOU(ctx, user.ID, ouA)
	require.NoError(t, err)
	_, err = repo.AddDivision(ctx, user.ID, divInA)
	require.NoError(t, err)

	visible, err := svc.VisibleOUIDs(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []id.ID{ouA}, visible)
}

func TestJWTRoundTrip(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("test-secret"))

	userID := id.New()
	token, expiresAt, err := svc.GenerateAccessToken(userID.String(), "alice")
	require.NoError(t, err)
	assert.False(t, expiresAt.IsZero())

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, "alice", claims.Username)

	// tampered secret
	other := NewJWTService(DefaultJWTConfig("other-secret"))
	_, err = other.ValidateToken(token)
	require.Error(t, err)
}
