package cache

import (
	"slices"
	"time"

	"fanrevenue/internal/bucket"
)

// Snapshots keeps the last set of buckets successfully exchanged with the
// repository, per creator.
type Snapshots struct {
	lru *LRUCache[[]bucket.MonthlyBucket]
}

var _ Cache[[]bucket.MonthlyBucket] = (*LRUCache[[]bucket.MonthlyBucket])(nil)

func NewSnapshots(maxCreators int, ttl time.Duration) *Snapshots {
	return &Snapshots{lru: NewLRUCache[[]bucket.MonthlyBucket](maxCreators, ttl)}
}

// Put replaces the creator's snapshot.
func (s *Snapshots) Put(creatorID string, buckets []bucket.MonthlyBucket) {
	s.lru.Set(creatorID, slices.Clone(buckets))
}

// Last returns the creator's snapshot if it has not expired.
func (s *Snapshots) Last(creatorID string) ([]bucket.MonthlyBucket, bool) {
	b, ok := s.lru.Get(creatorID)
	if !ok {
		return nil, false
	}
	return slices.Clone(b), true
}

func (s *Snapshots) Forget(creatorID string) {
	s.lru.Delete(creatorID)
}

// CleanExpired implements Cleaner.
func (s *Snapshots) CleanExpired() int {
	return s.lru.CleanExpired()
}

// WithClock replaces time.Now, for tests.
func (s *Snapshots) WithClock(now func() time.Time) *Snapshots {
	s.lru.WithClock(now)
	return s
}
