package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivanoskov/ledger_bot/internal/model"
)

func newSQLite(t *testing.T) Repository {
	t.Helper()
	repo, err := NewSQLRepository(DialectSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newMemory(t *testing.T) Repository {
	return NewMemoryRepository()
}

func forEachRepository(t *testing.T, fn func(t *testing.T, repo Repository)) {
	repos := map[string]func(t *testing.T) Repository{
		"memory": newMemory,
		"sqlite": newSQLite,
	}
	for name, newRepo := range repos {
		t.Run(name, func(t *testing.T) {
			fn(t, newRepo(t))
		})
	}
}

func seed(t *testing.T, repo Repository, personID string, descriptions ...string) {
	t.Helper()
	ctx := context.Background()
	_, err := repo.GetOrCreateUser(ctx, personID)
	require.NoError(t, err)
	for i, d := range descriptions {
		require.NoError(t, repo.InsertRecord(ctx, &model.Record{
			PersonID:    personID,
			RecordID:    i + 1,
			Category:    "meal",
			Description: d,
			Amount:      int64(-(i + 1) * 10),
		}))
	}
}

func descriptions(records []model.Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Description)
	}
	return out
}

func ids(records []model.Record) []int {
	out := make([]int, 0, len(records))
	for _, r := range records {
		out = append(out, r.RecordID)
	}
	return out
}

func TestGetOrCreateUser(t *testing.T) {
	forEachRepository(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()

		user, err := repo.GetOrCreateUser(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "u1", user.ID)
		assert.Equal(t, model.StatusInit, user.Status)
		assert.Zero(t, user.NumOfRec)

		user.Status = model.StatusEdit
		user.NumOfRec = 4
		user.PendingTarget = 2
		require.NoError(t, repo.SaveUser(ctx, user))

		again, err := repo.GetOrCreateUser(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, model.StatusEdit, again.Status)
		assert.Equal(t, 4, again.NumOfRec)
		assert.Equal(t, 2, again.PendingTarget)
	})
}

func TestDeleteRecordRenumbers(t *testing.T) {
	forEachRepository(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		seed(t, repo, "u1", "a", "b", "c", "d")
		seed(t, repo, "u2", "x", "y", "z")

		require.NoError(t, repo.DeleteRecord(ctx, "u1", 2))

		records, err := repo.GetRecords(ctx, "u1", model.RecordFilter{})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "c", "d"}, descriptions(records))
		assert.Equal(t, []int{1, 2, 3}, ids(records))

		// соседний пользователь не затронут
		other, err := repo.GetRecords(ctx, "u2", model.RecordFilter{})
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2, 3}, ids(other))
		assert.Equal(t, []string{"x", "y", "z"}, descriptions(other))
	})
}

func TestDeleteRecordEdges(t *testing.T) {
	forEachRepository(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		seed(t, repo, "u1", "a", "b", "c")

		require.NoError(t, repo.DeleteRecord(ctx, "u1", 3))
		require.NoError(t, repo.DeleteRecord(ctx, "u1", 1))

		records, err := repo.GetRecords(ctx, "u1", model.RecordFilter{})
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, descriptions(records))
		assert.Equal(t, []int{1}, ids(records))

		err = repo.DeleteRecord(ctx, "u1", 5)
		assert.True(t, IsNotFound(err))
	})
}

func TestUpdateRecord(t *testing.T) {
	forEachRepository(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		seed(t, repo, "u1", "a", "b")

		require.NoError(t, repo.UpdateRecord(ctx, &model.Record{
			PersonID: "u1", RecordID: 2, Category: "bus", Description: "ticket", Amount: -30,
		}))

		records, err := repo.GetRecords(ctx, "u1", model.RecordFilter{})
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, model.Record{PersonID: "u1", RecordID: 2, Category: "bus", Description: "ticket", Amount: -30}, records[1])

		err = repo.UpdateRecord(ctx, &model.Record{PersonID: "u1", RecordID: 9, Description: "none"})
		assert.True(t, IsNotFound(err))
	})
}

func TestGetRecordsFilter(t *testing.T) {
	forEachRepository(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		_, err := repo.GetOrCreateUser(ctx, "u1")
		require.NoError(t, err)

		for i, c := range []string{"meal", "bus", "salary", "railway"} {
			require.NoError(t, repo.InsertRecord(ctx, &model.Record{
				PersonID: "u1", RecordID: i + 1, Category: c, Description: c, Amount: 1,
			}))
		}

		records, err := repo.GetRecords(ctx, "u1", model.RecordFilter{Categories: []string{"bus", "railway"}})
		require.NoError(t, err)
		assert.Equal(t, []int{2, 4}, ids(records))

		none, err := repo.GetRecords(ctx, "nobody", model.RecordFilter{})
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}

func TestRebind(t *testing.T) {
	pg := &SQLRepository{dialect: DialectPostgres}
	assert.Equal(t, "a = $1 AND b IN ($2, $3)", pg.rebind("a = ? AND b IN (?, ?)"))

	lite := &SQLRepository{dialect: DialectSQLite}
	assert.Equal(t, "a = ?", lite.rebind("a = ?"))
}
