package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fanrevenue/internal/bucket"
	"fanrevenue/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testBucket(creator string, year, month int, amounts ...int64) bucket.MonthlyBucket {
	s := bucket.NewStore(bucket.WithClock(func() time.Time {
		return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	}))
	records := make([]core.TransactionRecord, 0, len(amounts))
	for i, a := range amounts {
		records = append(records, core.TransactionRecord{
			Date:    core.NewDate(time.Date(year, time.Month(month), i+1, 10, 0, 0, 0, time.UTC)),
			Amount:  a,
			Kind:    core.KindPlanPurchase,
			Target:  "Gold",
			BuyerID: "buyer",
		})
	}
	b, err := s.Upsert(creator, "Display "+creator, year, month, records)
	if err != nil {
		panic(err)
	}
	return b
}

func TestSQLiteRepository_SaveLoad(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	require.NoError(t, repo.Save(ctx, testBucket("alice", 2024, 1, 100, 200)))
	require.NoError(t, repo.Save(ctx, testBucket("alice", 2024, 3, 300)))
	require.NoError(t, repo.Save(ctx, testBucket("alice", 2023, 12, 50)))
	require.NoError(t, repo.Save(ctx, testBucket("bob", 2024, 1, 999)))

	got, err := repo.Load(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "2024-03", got[0].Key().Period())
	assert.Equal(t, "2024-01", got[1].Key().Period())
	assert.Equal(t, "2023-12", got[2].Key().Period())
	assert.Len(t, got[1].Records, 2)
	assert.Equal(t, int64(300), got[1].Analysis.TotalRevenue)
	assert.Equal(t, "Display alice", got[1].DisplayName)

	none, err := repo.Load(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	creators, err := repo.Creators(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, creators)
}

func TestSQLiteRepository_SaveReplaces(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	require.NoError(t, repo.Save(ctx, testBucket("alice", 2024, 1, 100, 200)))
	require.NoError(t, repo.Save(ctx, testBucket("alice", 2024, 1, 700)))

	got, err := repo.Load(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Len(t, got[0].Records, 1)
	assert.Equal(t, int64(700), got[0].Records[0].Amount)
}

func TestSQLiteRepository_Delete(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	require.NoError(t, repo.Save(ctx, testBucket("alice", 2024, 1, 100)))
	require.NoError(t, repo.Delete(ctx, bucket.Key{CreatorID: "alice", Year: 2024, Month: 2}))
	require.NoError(t, repo.Delete(ctx, bucket.Key{CreatorID: "alice", Year: 2024, Month: 1}))

	got, err := repo.Load(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRunMigrations_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.db")
	require.NoError(t, RunMigrations(path))
	require.NoError(t, RunMigrations(path))
}
