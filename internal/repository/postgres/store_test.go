package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/tabgo/internal/domain"
	"github.com/kirinyoku/tabgo/internal/postgres/pgtest"
	"github.com/kirinyoku/tabgo/internal/repository"
	postgresrepo "github.com/kirinyoku/tabgo/internal/repository/postgres"
)

func newStore(t *testing.T) *postgresrepo.Store {
	t.Helper()

	store := postgresrepo.NewStore(pgtest.Pool(t))
	require.NoError(t, store.Tables().Upsert(context.Background(), []domain.Table{
		{ID: "T1", Label: "Table 1", Zone: "patio", Seats: 4},
		{ID: "T2", Label: "Table 2", Zone: "patio", Seats: 2, Combinable: true},
		{ID: "T3", Label: "Table 3", Zone: "bar", Seats: 2, Combinable: true},
	}))

	return store
}

func TestCheckRepo_CreateIsUniquePerLiveTableSet(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	repo := store.Checks()

	c, created, err := repo.Create(ctx, []string{"T1"}, "apps", "ana@bistro.test")
	require.NoError(t, err)
	require.True(t, created)
	assert.Equal(t, int64(1), c.Revision)
	assert.Equal(t, domain.CheckOpen, c.Status)
	assert.Equal(t, []string{"T1"}, c.TableIDs)
	assert.Empty(t, c.GuestNames)

	_, created, err = repo.Create(ctx, []string{"T1"}, "apps", "bo@bistro.test")
	require.NoError(t, err)
	assert.False(t, created, "second live check for the same set must not be created")

	found, err := repo.FindLiveByTableKey(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, c.ID, found.ID)
}

func TestCheckRepo_LinkTablesRejectsOverlap(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	repo := store.Checks()

	a, _, err := repo.Create(ctx, []string{"T2"}, "apps", "ana@bistro.test")
	require.NoError(t, err)
	require.NoError(t, repo.LinkTables(ctx, a.ID, []string{"T2"}))

	b, _, err := repo.Create(ctx, []string{"T2", "T3"}, "apps", "ana@bistro.test")
	require.NoError(t, err)

	err = repo.LinkTables(ctx, b.ID, []string{"T2", "T3"})
	assert.ErrorIs(t, err, repository.ErrConflict)

	c, _, err := repo.Create(ctx, []string{"T9"}, "apps", "ana@bistro.test")
	require.NoError(t, err)

	err = repo.LinkTables(ctx, c.ID, []string{"T9"})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCheckRepo_UpdateFieldsIsConditional(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	repo := store.Checks()

	c, _, err := repo.Create(ctx, []string{"T1"}, "apps", "ana@bistro.test")
	require.NoError(t, err)

	names := []string{"Ana", "Bo"}
	note := "birthday"
	updated, err := repo.UpdateFields(ctx, c.ID, domain.CheckPatch{
		GuestNames:       &names,
		ReceiptNote:      &note,
		ExpectedRevision: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Revision)
	assert.Equal(t, names, updated.GuestNames)
	assert.Equal(t, "apps", updated.CurrentCourse)
	require.NotNil(t, updated.ReceiptNote)
	assert.Equal(t, "birthday", *updated.ReceiptNote)

	course := "mains"
	_, err = repo.UpdateFields(ctx, c.ID, domain.CheckPatch{CurrentCourse: &course, ExpectedRevision: 1})
	assert.ErrorIs(t, err, repository.ErrRevisionConflict)

	empty := ""
	cleared, err := repo.UpdateFields(ctx, c.ID, domain.CheckPatch{ReceiptNote: &empty, ExpectedRevision: 2})
	require.NoError(t, err)
	assert.Nil(t, cleared.ReceiptNote)
	assert.Equal(t, names, cleared.GuestNames, "unsupplied fields are kept")

	closed := domain.CheckClosed
	done, err := repo.UpdateFields(ctx, c.ID, domain.CheckPatch{Status: &closed, ExpectedRevision: 3})
	require.NoError(t, err)
	assert.Equal(t, domain.CheckClosed, done.Status)
	assert.NotNil(t, done.ClosedAt)

	_, err = repo.UpdateFields(ctx, c.ID, domain.CheckPatch{CurrentCourse: &course, ExpectedRevision: 4})
	assert.ErrorIs(t, err, repository.ErrCheckClosed)

	_, err = repo.BumpRevision(ctx, c.ID, nil)
	assert.ErrorIs(t, err, repository.ErrCheckClosed)
}

func TestLineRepo_AndTableSync(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	c, _, err := store.Checks().Create(ctx, []string{"T1"}, "apps", "ana@bistro.test")
	require.NoError(t, err)
	require.NoError(t, store.Checks().LinkTables(ctx, c.ID, []string{"T1"}))

	line, err := store.Lines().Insert(ctx, domain.CheckLine{
		CheckID: c.ID,
		TableID: "T1",
		Name:    "Oyster",
		Seat:    "T1-seat-1",
		Price:   450,
		Qty:     6,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.SplitNone, line.SplitMode)
	assert.False(t, line.Comp)
	assert.Empty(t, line.Modifiers)

	transitions, err := store.Tables().Sync(ctx, []string{"T1", "T2"})
	require.NoError(t, err)
	assert.Equal(t, []domain.TableTransition{{TableID: "T1", Status: domain.TableOrdering}}, transitions)

	_, err = store.Tables().SetStatus(ctx, "T1", domain.TableServed)
	require.NoError(t, err)

	transitions, err = store.Tables().Sync(ctx, []string{"T1"})
	require.NoError(t, err)
	assert.Empty(t, transitions, "served survives while lines remain")

	_, err = store.Lines().GetForUpdate(ctx, c.ID, c.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	n, err := store.Lines().DeleteByCheck(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	transitions, err = store.Tables().Sync(ctx, []string{"T1"})
	require.NoError(t, err)
	assert.Equal(t, []domain.TableTransition{{TableID: "T1", Status: domain.TableOpen}}, transitions)

	err = store.Lines().Delete(ctx, c.ID, line.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestMenuRepo(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	key := "burger"
	require.NoError(t, store.Menu().Upsert(ctx, []domain.MenuItem{
		{ID: "m-burger", Name: "Burger", Price: 1850, ModifierKey: &key, Modifiers: []string{"no onion"}, Available: true},
	}))

	m, err := store.Menu().Get(ctx, "m-burger")
	require.NoError(t, err)
	assert.Equal(t, domain.Cents(1850), m.Price)
	assert.Equal(t, []string{"no onion"}, m.Modifiers)

	_, err = store.Menu().Get(ctx, "nope")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
