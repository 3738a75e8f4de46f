package bucket

import (
	"slices"
	"sync"
	"time"

	"fanrevenue/internal/analytics"
	"fanrevenue/internal/core"
)

// Store is the in-memory keyed collection of monthly buckets.
//
// Writes to the same key are serialized by a per-key lock; the analysis is
// computed under that lock and the finished bucket is swapped in under the
// store lock, so readers only ever see records together with their analysis.
type Store struct {
	mu      sync.RWMutex
	buckets map[Key]MonthlyBucket
	order   []Key

	locksMu sync.Mutex
	locks   map[Key]*sync.Mutex

	now       func() time.Time
	observers []Observer
}

type Option func(*Store)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithObserver(o Observer) Option {
	return func(s *Store) { s.observers = append(s.observers, o) }
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		buckets: make(map[Key]MonthlyBucket),
		locks:   make(map[Key]*sync.Mutex),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe adds an observer after construction.
func (s *Store) Subscribe(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

func (s *Store) keyLock(k Key) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[k]
	if !ok {
		l = &sync.Mutex{}
		s.locks[k] = l
	}
	return l
}

// Get returns the bucket for the key, if any.
func (s *Store) Get(creatorID string, year, month int) (MonthlyBucket, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.buckets[Key{CreatorID: creatorID, Year: year, Month: month}]
	return b, ok
}

// Upsert replaces the bucket's records wholesale and recomputes its
// analysis. UploadedAt survives re-uploads; LastModified is always now.
func (s *Store) Upsert(creatorID, displayName string, year, month int, records []core.TransactionRecord) (MonthlyBucket, error) {
	k, err := NewKey(creatorID, year, month)
	if err != nil {
		return MonthlyBucket{}, err
	}

	l := s.keyLock(k)
	l.Lock()
	defer l.Unlock()

	records = slices.Clone(records)
	if records == nil {
		records = []core.TransactionRecord{}
	}
	b := MonthlyBucket{
		CreatorID:   creatorID,
		DisplayName: displayName,
		Year:        year,
		Month:       month,
		Records:     records,
		Analysis:    analytics.AnalyzeRevenue(records),
	}

	now := s.now()
	s.mu.Lock()
	if prev, ok := s.buckets[k]; ok {
		b.UploadedAt = prev.UploadedAt
	} else {
		b.UploadedAt = now
	}
	b.LastModified = now
	s.put(k, b)
	observers := s.observers
	s.mu.Unlock()

	notify(observers, Event{Type: EventUpserted, Key: k, Bucket: &b, At: now})
	return b, nil
}

// Restore installs a bucket loaded from a repository. Timestamps are kept
// and the analysis is recomputed from the records. A bucket already in the
// store with a later LastModified is left alone and Restore reports false.
// Observers are not notified.
func (s *Store) Restore(b MonthlyBucket) (bool, error) {
	k := b.Key()
	if err := k.Validate(); err != nil {
		return false, err
	}

	l := s.keyLock(k)
	l.Lock()
	defer l.Unlock()

	if b.Records == nil {
		b.Records = []core.TransactionRecord{}
	}
	b.Analysis = analytics.AnalyzeRevenue(b.Records)
	if b.UploadedAt.IsZero() {
		b.UploadedAt = s.now()
	}
	if b.LastModified.IsZero() {
		b.LastModified = b.UploadedAt
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.buckets[k]; ok && cur.LastModified.After(b.LastModified) {
		return false, nil
	}
	s.put(k, b)
	return true, nil
}

// Delete removes the bucket and reports whether it existed.
func (s *Store) Delete(creatorID string, year, month int) bool {
	k := Key{CreatorID: creatorID, Year: year, Month: month}

	l := s.keyLock(k)
	l.Lock()
	defer l.Unlock()

	s.mu.Lock()
	if _, ok := s.buckets[k]; !ok {
		s.mu.Unlock()
		return false
	}
	delete(s.buckets, k)
	if i, found := s.search(k); found {
		s.order = slices.Delete(s.order, i, i+1)
	}
	observers := s.observers
	s.mu.Unlock()

	notify(observers, Event{Type: EventDeleted, Key: k, At: s.now()})
	return true
}

// ListByCreator returns the creator's buckets, newest month first.
func (s *Store) ListByCreator(creatorID string) []MonthlyBucket {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start, _ := slices.BinarySearchFunc(s.order, creatorID, func(k Key, id string) int {
		switch {
		case k.CreatorID < id:
			return -1
		case k.CreatorID > id:
			return 1
		}
		return 0
	})
	out := make([]MonthlyBucket, 0)
	for _, k := range s.order[start:] {
		if k.CreatorID != creatorID {
			break
		}
		out = append(out, s.buckets[k])
	}
	return out
}

// List returns every bucket ordered by creator, then newest month first.
func (s *Store) List() []MonthlyBucket {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]MonthlyBucket, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.buckets[k])
	}
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.buckets)
}

// put stores b and keeps order sorted. Callers hold s.mu.
func (s *Store) put(k Key, b MonthlyBucket) {
	if _, ok := s.buckets[k]; !ok {
		i, _ := s.search(k)
		s.order = slices.Insert(s.order, i, k)
	}
	s.buckets[k] = b
}

func (s *Store) search(k Key) (int, bool) {
	return slices.BinarySearchFunc(s.order, k, Key.compare)
}

func notify(observers []Observer, e Event) {
	for _, o := range observers {
		o.BucketChanged(e)
	}
}
