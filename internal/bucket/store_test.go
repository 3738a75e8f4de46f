package bucket

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fanrevenue/internal/core"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func sampleRecords() []core.TransactionRecord {
	d := core.NewDate(time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC))
	return []core.TransactionRecord{
		{Date: d, Amount: 1000, Fee: 100, Kind: core.KindPlanPurchase, Target: "Gold", BuyerID: "A"},
		{Date: d, Amount: 500, Fee: 50, Kind: core.KindSingleItemPurchase, Target: "Photo", BuyerID: "B"},
	}
}

func TestStore_UpsertComputesAnalysis(t *testing.T) {
	clock := newFakeClock()
	s := NewStore(WithClock(clock.Now))

	b, err := s.Upsert("creator", "Creator", 2024, 1, sampleRecords())
	require.NoError(t, err)

	assert.Equal(t, int64(1500), b.Analysis.TotalRevenue)
	assert.Equal(t, int64(150), b.Analysis.TotalFees)
	assert.Equal(t, clock.Now(), b.UploadedAt)
	assert.Equal(t, clock.Now(), b.LastModified)

	got, ok := s.Get("creator", 2024, 1)
	require.True(t, ok)
	assert.Equal(t, b, got)
}

func TestStore_UpsertIsIdempotent(t *testing.T) {
	clock := newFakeClock()
	s := NewStore(WithClock(clock.Now))

	first, err := s.Upsert("creator", "Creator", 2024, 1, sampleRecords())
	require.NoError(t, err)
	clock.Advance(time.Hour)
	second, err := s.Upsert("creator", "Creator", 2024, 1, sampleRecords())
	require.NoError(t, err)

	assert.Equal(t, first.Analysis, second.Analysis)
	assert.Equal(t, first.UploadedAt, second.UploadedAt)
	assert.True(t, second.LastModified.After(first.LastModified))
	assert.Equal(t, 1, s.Len())
}

func TestStore_UpsertReplacesRecords(t *testing.T) {
	s := NewStore()
	_, err := s.Upsert("creator", "Creator", 2024, 1, sampleRecords())
	require.NoError(t, err)

	b, err := s.Upsert("creator", "Renamed", 2024, 1, sampleRecords()[:1])
	require.NoError(t, err)
	assert.Len(t, b.Records, 1)
	assert.Equal(t, int64(1000), b.Analysis.TotalRevenue)
	assert.Equal(t, "Renamed", b.DisplayName)
}

func TestStore_UpsertCopiesInput(t *testing.T) {
	s := NewStore()
	records := sampleRecords()
	_, err := s.Upsert("creator", "Creator", 2024, 1, records)
	require.NoError(t, err)

	records[0].Amount = 999999
	got, _ := s.Get("creator", 2024, 1)
	assert.Equal(t, int64(1000), got.Records[0].Amount)
}

func TestStore_UpsertInvalidKey(t *testing.T) {
	s := NewStore()

	_, err := s.Upsert("", "x", 2024, 1, nil)
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = s.Upsert("creator", "x", 2024, 13, nil)
	assert.ErrorIs(t, err, ErrInvalidKey)
	assert.ErrorIs(t, err, core.ErrInvalidMonth)
	assert.Zero(t, s.Len())
}

func TestStore_UpsertEmptyRecords(t *testing.T) {
	s := NewStore()
	b, err := s.Upsert("creator", "Creator", 2024, 1, nil)
	require.NoError(t, err)
	assert.NotNil(t, b.Records)
	assert.Zero(t, b.Analysis.TotalRevenue)
}

func TestStore_Delete(t *testing.T) {
	s := NewStore()
	_, err := s.Upsert("creator", "Creator", 2024, 1, sampleRecords())
	require.NoError(t, err)
	before := s.List()

	assert.False(t, s.Delete("creator", 2024, 2))
	assert.False(t, s.Delete("other", 2024, 1))
	assert.Equal(t, before, s.List())

	assert.True(t, s.Delete("creator", 2024, 1))
	assert.Zero(t, s.Len())
	_, ok := s.Get("creator", 2024, 1)
	assert.False(t, ok)
	assert.False(t, s.Delete("creator", 2024, 1))
}

func TestStore_Ordering(t *testing.T) {
	s := NewStore()
	keys := []Key{
		{"bob", 2023, 12},
		{"alice", 2024, 1},
		{"bob", 2024, 3},
		{"alice", 2023, 11},
		{"bob", 2024, 1},
		{"carol", 2022, 5},
	}
	for _, k := range keys {
		_, err := s.Upsert(k.CreatorID, k.CreatorID, k.Year, k.Month, nil)
		require.NoError(t, err)
	}

	var got []string
	for _, b := range s.List() {
		got = append(got, b.Key().String())
	}
	assert.Equal(t, []string{
		"alice/2024-01",
		"alice/2023-11",
		"bob/2024-03",
		"bob/2024-01",
		"bob/2023-12",
		"carol/2022-05",
	}, got)

	got = got[:0]
	for _, b := range s.ListByCreator("bob") {
		got = append(got, b.Key().Period())
	}
	assert.Equal(t, []string{"2024-03", "2024-01", "2023-12"}, got)

	assert.NotNil(t, s.ListByCreator("nobody"))
	assert.Empty(t, s.ListByCreator("nobody"))
}

func TestStore_Observers(t *testing.T) {
	var events []Event
	s := NewStore(WithObserver(ObserverFunc(func(e Event) { events = append(events, e) })))

	_, err := s.Upsert("creator", "Creator", 2024, 1, sampleRecords())
	require.NoError(t, err)
	s.Delete("creator", 2024, 1)
	s.Delete("creator", 2024, 1)

	require.Len(t, events, 2)
	assert.Equal(t, EventUpserted, events[0].Type)
	require.NotNil(t, events[0].Bucket)
	assert.Equal(t, int64(1500), events[0].Bucket.Analysis.TotalRevenue)
	assert.Equal(t, EventDeleted, events[1].Type)
	assert.Nil(t, events[1].Bucket)
	assert.Equal(t, Key{"creator", 2024, 1}, events[1].Key)
}

func TestStore_RestoreRecomputesAnalysis(t *testing.T) {
	s := NewStore()
	uploaded := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)
	restored, err := s.Restore(MonthlyBucket{
		CreatorID:   "creator",
		DisplayName: "Creator",
		Year:        2024,
		Month:       1,
		Records:     sampleRecords(),
		UploadedAt:  uploaded,
	})
	require.NoError(t, err)
	assert.True(t, restored)

	b, ok := s.Get("creator", 2024, 1)
	require.True(t, ok)
	assert.Equal(t, int64(1500), b.Analysis.TotalRevenue)
	assert.Equal(t, uploaded, b.UploadedAt)
	assert.Equal(t, uploaded, b.LastModified)

	_, err = s.Restore(MonthlyBucket{Year: 2024, Month: 1})
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestStore_RestoreKeepsNewerBucket(t *testing.T) {
	now := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore(WithClock(func() time.Time { return now }))
	_, err := s.Upsert("creator", "Creator", 2024, 1, sampleRecords()[:1])
	require.NoError(t, err)

	older := MonthlyBucket{
		CreatorID:    "creator",
		Year:         2024,
		Month:        1,
		Records:      sampleRecords(),
		UploadedAt:   now.Add(-time.Hour),
		LastModified: now.Add(-time.Minute),
	}
	restored, err := s.Restore(older)
	require.NoError(t, err)
	assert.False(t, restored)

	b, ok := s.Get("creator", 2024, 1)
	require.True(t, ok)
	assert.Len(t, b.Records, 1)
	assert.Equal(t, now, b.LastModified)

	older.LastModified = now.Add(time.Minute)
	restored, err = s.Restore(older)
	require.NoError(t, err)
	assert.True(t, restored)
	b, _ = s.Get("creator", 2024, 1)
	assert.Len(t, b.Records, len(sampleRecords()))
}

func TestStore_ConcurrentUpserts(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				n := (i+j)%3 + 1
				records := sampleRecords()[:n%2+1]
				_, err := s.Upsert(fmt.Sprintf("c%d", i%2), "x", 2024, n, records)
				assert.NoError(t, err)
				if b, ok := s.Get(fmt.Sprintf("c%d", i%2), 2024, n); ok {
					var sum int64
					for _, r := range b.Records {
						sum += r.Amount
					}
					assert.Equal(t, sum, b.Analysis.TotalRevenue)
				}
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 6, s.Len())
}
