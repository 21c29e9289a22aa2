package ou

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credvault/internal/core/apperror"
	"credvault/internal/core/id"
)

type fakeRepo struct {
	units map[id.ID]*OrganisationalUnit
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{units: make(map[id.ID]*OrganisationalUnit)}
}

func (f *fakeRepo) Create(_ context.Context, unit *OrganisationalUnit) error {
	cp := *unit
	f.units[unit.ID] = &cp
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, ouID id.ID) (*OrganisationalUnit, error) {
	u, ok := f.units[ouID]
	if !ok {
		return nil, apperror.NewNotFound("organisational unit", ouID.String())
	}
	cp := *u
	return &cp, nil
}

func (f *fakeRepo) GetByName(_ context.Context, name string) (*OrganisationalUnit, error) {
	for _, u := range f.units {
		if u.Name == name {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("organisational unit", name)
}

func (f *fakeRepo) List(_ context.Context) ([]OrganisationalUnit, error) {
	out := make([]OrganisationalUnit, 0, len(f.units))
	for _, u := range f.units {
		out = append(out, *u)
	}
	return out, nil
}

func (f *fakeRepo) ListByIDs(_ context.Context, ouIDs []id.ID) ([]OrganisationalUnit, error) {
	var out []OrganisationalUnit
	for _, ouID := range ouIDs {
		if u, ok := f.units[ouID]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (f *fakeRepo) Exists(_ context.Context, ouID id.ID) (bool, error) {
	_, ok := f.units[ouID]
	return ok, nil
}

func (f *fakeRepo) Delete(_ context.Context, ouID id.ID) error {
	delete(f.units, ouID)
	return nil
}

type fakeCounter struct {
	counts map[id.ID]int
}

func (f *fakeCounter) CountByOU(_ context.Context, ouID id.ID) (int, error) {
	return f.counts[ouID], nil
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	svc := NewService(repo, &fakeCounter{counts: map[id.ID]int{}})

	unit, err := svc.Create(ctx, "Engineering")
	require.NoError(t, err)
	assert.Equal(t, "Engineering", unit.Name)
	assert.False(t, id.IsNil(unit.ID))

	_, err = svc.Create(ctx, "Engineering")
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeDuplicate))

	_, err = svc.Create(ctx, "ab")
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	counter := &fakeCounter{counts: map[id.ID]int{}}
	svc := NewService(repo, counter)

	unit, err := svc.Create(ctx, "Engineering")
	require.NoError(t, err)

	// still owns divisions: refused
	counter.counts[unit.ID] = 2
	err = svc.Delete(ctx, unit.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeConflict))

	counter.counts[unit.ID] = 0
	require.NoError(t, svc.Delete(ctx, unit.ID))

	err = svc.Delete(ctx, unit.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}
