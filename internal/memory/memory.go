// Package memory is an in-process bucket repository used for local runs,
// the mirror target of last resort, and tests.
package memory

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"

	"fanrevenue/internal/bucket"
)

type Store struct {
	mu    sync.Mutex
	items map[bucket.Key][]byte
}

var _ bucket.Repository = (*Store)(nil)

func New() *Store {
	return &Store{items: make(map[bucket.Key][]byte)}
}

// NewFromDir seeds the store from *.json snapshot files in base. Files that
// do not decode as snapshots are skipped.
func NewFromDir(base string) *Store {
	s := New()
	paths, _ := filepath.Glob(filepath.Join(base, "*.json"))
	sort.Strings(paths)
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		b, err := bucket.DecodeSnapshot(data)
		if err != nil {
			continue
		}
		s.items[b.Key()] = data
	}
	return s
}

// Load returns the creator's buckets, newest month first. Items are kept
// encoded so callers never share memory with the store.
func (s *Store) Load(_ context.Context, creatorID string) ([]bucket.MonthlyBucket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]bucket.MonthlyBucket, 0)
	for k, data := range s.items {
		if k.CreatorID != creatorID {
			continue
		}
		b, err := bucket.DecodeSnapshot(data)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	slices.SortFunc(out, func(a, b bucket.MonthlyBucket) int {
		if a.Year != b.Year {
			return b.Year - a.Year
		}
		return b.Month - a.Month
	})
	return out, nil
}

func (s *Store) Save(_ context.Context, b bucket.MonthlyBucket) error {
	data, err := bucket.EncodeSnapshot(b)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[b.Key()] = data
	return nil
}

func (s *Store) Delete(_ context.Context, key bucket.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

// Creators lists every creator with at least one bucket, sorted.
func (s *Store) Creators(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]struct{}{}
	out := make([]string, 0)
	for k := range s.items {
		if _, ok := seen[k.CreatorID]; ok {
			continue
		}
		seen[k.CreatorID] = struct{}{}
		out = append(out, k.CreatorID)
	}
	sort.Strings(out)
	return out, nil
}
