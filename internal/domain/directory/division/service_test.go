package division

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credvault/internal/core/apperror"
	"credvault/internal/core/id"
)

type fakeRepo struct {
	divisions map[id.ID]*Division
	members   map[id.ID]int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		divisions: make(map[id.ID]*Division),
		members:   make(map[id.ID]int64),
	}
}

func (f *fakeRepo) Create(_ context.Context, div *Division) error {
	cp := *div
	f.divisions[div.ID] = &cp
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, divisionID id.ID) (*Division, error) {
	d, ok := f.divisions[divisionID]
	if !ok {
		return nil, apperror.NewNotFound("division", divisionID.String())
	}
	cp := *d
	return &cp, nil
}

func (f *fakeRepo) GetByName(_ context.Context, ouID id.ID, name string) (*Division, error) {
	for _, d := range f.divisions {
		if d.OUID == ouID && d.Name == name {
			cp := *d
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("division", name)
}

func (f *fakeRepo) List(_ context.Context) ([]Division, error) {
	out := make([]Division, 0, len(f.divisions))
	for _, d := range f.divisions {
		out = append(out, *d)
	}
	return out, nil
}

func (f *fakeRepo) ListByIDs(_ context.Context, divisionIDs []id.ID) ([]Division, error) {
	var out []Division
	for _, divID := range divisionIDs {
		if d, ok := f.divisions[divID]; ok {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListByOU(_ context.Context, ouID id.ID) ([]Division, error) {
	var out []Division
	for _, d := range f.divisions {
		if d.OUID == ouID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (f *fakeRepo) CountByOU(_ context.Context, ouID id.ID) (int, error) {
	n := 0
	for _, d := range f.divisions {
		if d.OUID == ouID {
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) Exists(_ context.Context, divisionID id.ID) (bool, error) {
	_, ok := f.divisions[divisionID]
	return ok, nil
}

func (f *fakeRepo) OwningOUs(_ context.Context, divisionIDs []id.ID) ([]id.ID, error) {
	seen := make(map[id.ID]struct{})
	var out []id.ID
	for _, divID := range divisionIDs {
		d, ok := f.divisions[divID]
		if !ok {
			continue
		}
		if _, dup := seen[d.OUID]; dup {
			continue
		}
		seen[d.OUID] = struct{}{}
		out = append(out, d.OUID)
	}
	return out, nil
}

func (f *fakeRepo) Delete(_ context.Context, divisionID id.ID) error {
	delete(f.divisions, divisionID)
	return nil
}

func (f *fakeRepo) DetachUsers(_ context.Context, divisionID id.ID) (int64, error) {
	n := f.members[divisionID]
	f.members[divisionID] = 0
	return n, nil
}

type fakeOUs struct {
	known map[id.ID]struct{}
}

func (f *fakeOUs) Exists(_ context.Context, ouID id.ID) (bool, error) {
	_, ok := f.known[ouID]
	return ok, nil
}

type fakePurger struct {
	counts map[id.ID]int64
}

func (f *fakePurger) PurgeByDivision(_ context.Context, divisionID id.ID) (int64, error) {
	n := f.counts[divisionID]
	f.counts[divisionID] = 0
	return n, nil
}

// fakeTxManager runs the function directly, no transaction semantics.
type fakeTxManager struct{}

func (fakeTxManager) RunInTransaction(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

func newTestService(repo *fakeRepo, ouIDs ...id.ID) (*Service, *fakePurger) {
	known := make(map[id.ID]struct{}, len(ouIDs))
	for _, ouID := range ouIDs {
		known[ouID] = struct{}{}
	}
	purger := &fakePurger{counts: map[id.ID]int64{}}
	return NewService(repo, &fakeOUs{known: known}, purger, fakeTxManager{}), purger
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	ouID := id.New()
	repo := newFakeRepo()
	svc, _ := newTestService(repo, ouID)

	div, err := svc.Create(ctx, "Payments", ouID)
	require.NoError(t, err)
	assert.Equal(t, "Payments", div.Name)
	assert.Equal(t, ouID, div.OUID)

	// duplicate name under the same OU
	_, err = svc.Create(ctx, "Payments", ouID)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeDuplicate))

	// unknown OU
	_, err = svc.Create(ctx, "Billing", id.New())
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))

	// short name
	_, err = svc.Create(ctx, "ab", ouID)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestList(t *testing.T) {
	ctx := context.Background()
	ouA := id.New()
	ouB := id.New()
	repo := newFakeRepo()
	svc, _ := newTestService(repo, ouA, ouB)

	_, err := svc.Create(ctx, "Payments", ouA)
	require.NoError(t, err)
	_, err = svc.Create(ctx, "Billing", ouB)
	require.NoError(t, err)

	all, err := svc.List(ctx, id.Nil())
	require.NoError(t, err)
	assert.Len(t, all, 2)

	scoped, err := svc.List(ctx, ouA)
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, "Payments", scoped[0].Name)
}

func TestDelete_Cascade(t *testing.T) {
	ctx := context.Background()
	ouID := id.New()
	repo := newFakeRepo()
	svc, purger := newTestService(repo, ouID)

	div, err := svc.Create(ctx, "Payments", ouID)
	require.NoError(t, err)

	purger.counts[div.ID] = 3
	repo.members[div.ID] = 2

	require.NoError(t, svc.Delete(ctx, div.ID))

	// credentials purged, memberships detached, division gone
	assert.Zero(t, purger.counts[div.ID])
	assert.Zero(t, repo.members[div.ID])
	_, err = repo.GetByID(ctx, div.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))

	err = svc.Delete(ctx, div.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}
