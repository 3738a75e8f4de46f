package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"fanrevenue/internal/analytics"
	"fanrevenue/internal/bucket"
	"fanrevenue/internal/cache"
	"fanrevenue/internal/core"
	applog "fanrevenue/internal/log"
)

var (
	// ErrNotPersisted is returned with a bucket that was accepted in memory
	// but could not be written to the repository.
	ErrNotPersisted = errors.New("bucket not persisted")
	// ErrNoSnapshot means the repository failed and no cached copy exists.
	ErrNoSnapshot = errors.New("no snapshot available")
	ErrNotFound   = errors.New("bucket not found")
)

const warmConcurrency = 4

// RetryConfig bounds repository retries.
type RetryConfig struct {
	MaxRetries int
	Backoff    time.Duration
}

// DefaultRetryConfig mirrors the config defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxRetries: 3, Backoff: 200 * time.Millisecond}
}

// CreatorLister enumerates creators known to a repository.
type CreatorLister interface {
	Creators(ctx context.Context) ([]string, error)
}

// LoadResult is what Load installed into the store.
type LoadResult struct {
	Buckets []bucket.MonthlyBucket
	// Stale is set when the repository failed and the last known good
	// snapshot was served instead.
	Stale bool
}

// BucketService composes the store with a repository: uploads are
// normalized, analyzed and persisted; reads lazily load a creator's buckets
// on first access.
type BucketService struct {
	store      *bucket.Store
	repo       bucket.Repository
	snapshots  *cache.Snapshots
	normalizer core.Normalizer
	retry      RetryConfig
	logger     *slog.Logger

	loads    singleflight.Group
	loadedMu sync.Mutex
	loaded   map[string]bool
}

func NewBucketService(
	store *bucket.Store,
	repo bucket.Repository,
	snapshots *cache.Snapshots,
	normalizer core.Normalizer,
	retry RetryConfig,
	logger *slog.Logger,
) *BucketService {
	if logger == nil {
		logger = slog.Default()
	}
	return &BucketService{
		store:      store,
		repo:       repo,
		snapshots:  snapshots,
		normalizer: normalizer,
		retry:      retry,
		logger:     logger,
		loaded:     make(map[string]bool),
	}
}

// Upload replaces the bucket's records. When the repository write fails
// after all retries the in-memory bucket is still returned, together with
// an error wrapping ErrNotPersisted.
func (s *BucketService) Upload(ctx context.Context, creatorID, displayName string, year, month int, raws []core.RawRecord) (bucket.MonthlyBucket, error) {
	if _, err := bucket.NewKey(creatorID, year, month); err != nil {
		return bucket.MonthlyBucket{}, fmt.Errorf("upload bucket: %w", err)
	}
	if err := s.ensureLoaded(ctx, creatorID); err != nil {
		s.logger.WarnContext(ctx, "Uploading over an unloaded creator",
			applog.FieldCreatorID, creatorID,
			applog.FieldError, err)
	}

	records := s.normalizer.NormalizeAll(raws)
	b, err := s.store.Upsert(creatorID, displayName, year, month, records)
	if err != nil {
		return bucket.MonthlyBucket{}, fmt.Errorf("upload bucket: %w", err)
	}

	if err := s.withRetry(ctx, applog.OpPersist, func(ctx context.Context) error {
		return s.repo.Save(ctx, b)
	}); err != nil {
		s.logger.ErrorContext(ctx, "Failed to persist bucket",
			applog.FieldOperation, applog.OpUpload,
			applog.FieldCreatorID, creatorID,
			applog.FieldPeriod, b.Key().Period(),
			applog.FieldError, err)
		return b, fmt.Errorf("%w: %w", ErrNotPersisted, err)
	}

	s.refreshSnapshot(creatorID)
	s.logger.InfoContext(ctx, "Bucket uploaded",
		applog.FieldCreatorID, creatorID,
		applog.FieldPeriod, b.Key().Period(),
		applog.FieldRecords, len(b.Records),
		applog.FieldTotalRevenue, b.Analysis.TotalRevenue)
	return b, nil
}

// Load reads the creator's buckets from the repository and installs them.
// On repository failure it falls back to the last known good snapshot.
func (s *BucketService) Load(ctx context.Context, creatorID string) (LoadResult, error) {
	if creatorID == "" {
		return LoadResult{}, fmt.Errorf("load buckets: %w: empty creator id", bucket.ErrInvalidKey)
	}

	v, err, _ := s.loads.Do(creatorID, func() (any, error) {
		return s.load(ctx, creatorID)
	})
	if err != nil {
		return LoadResult{}, err
	}
	return v.(LoadResult), nil
}

func (s *BucketService) load(ctx context.Context, creatorID string) (LoadResult, error) {
	var loaded []bucket.MonthlyBucket
	err := s.withRetry(ctx, applog.OpLoad, func(ctx context.Context) error {
		var err error
		loaded, err = s.repo.Load(ctx, creatorID)
		return err
	})
	if err != nil {
		snap, ok := s.snapshots.Last(creatorID)
		if !ok {
			s.logger.ErrorContext(ctx, "Failed to load buckets",
				applog.FieldCreatorID, creatorID,
				applog.FieldError, err)
			return LoadResult{}, fmt.Errorf("load buckets %s: %w: %w", creatorID, ErrNoSnapshot, err)
		}
		s.logger.WarnContext(ctx, "Serving last known good snapshot",
			applog.FieldCreatorID, creatorID,
			"buckets", len(snap),
			applog.FieldError, err)
		s.restore(ctx, snap)
		return LoadResult{Buckets: s.store.ListByCreator(creatorID), Stale: true}, nil
	}

	s.restore(ctx, loaded)
	s.markLoaded(creatorID)
	s.refreshSnapshot(creatorID)
	s.logger.DebugContext(ctx, "Buckets loaded",
		applog.FieldCreatorID, creatorID,
		"buckets", len(loaded))
	return LoadResult{Buckets: s.store.ListByCreator(creatorID)}, nil
}

// restore installs buckets unless the store already holds a newer copy.
func (s *BucketService) restore(ctx context.Context, buckets []bucket.MonthlyBucket) {
	for _, b := range buckets {
		restored, err := s.store.Restore(b)
		switch {
		case err != nil:
			s.logger.WarnContext(ctx, "Skipping invalid bucket",
				applog.FieldCreatorID, b.CreatorID,
				applog.FieldError, err)
		case !restored:
			s.logger.DebugContext(ctx, "Kept newer in-memory bucket",
				applog.FieldCreatorID, b.CreatorID,
				applog.FieldPeriod, b.Key().Period())
		}
	}
}

// Warm loads every creator the lister knows about, a few at a time.
func (s *BucketService) Warm(ctx context.Context, lister CreatorLister) error {
	creators, err := lister.Creators(ctx)
	if err != nil {
		return fmt.Errorf("list creators: %w", err)
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	var g errgroup.Group
	g.SetLimit(warmConcurrency)
	for _, c := range creators {
		g.Go(func() error {
			if _, err := s.Load(ctx, c); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	s.logger.InfoContext(ctx, "Store warmed",
		"creators", len(creators),
		"buckets", s.store.Len(),
		"failures", len(errs))
	return errors.Join(errs...)
}

// Delete removes the bucket from the store and the repository. The bool
// reports whether the bucket existed.
func (s *BucketService) Delete(ctx context.Context, creatorID string, year, month int) (bool, error) {
	key, err := bucket.NewKey(creatorID, year, month)
	if err != nil {
		return false, fmt.Errorf("delete bucket: %w", err)
	}
	if err := s.ensureLoaded(ctx, creatorID); err != nil {
		return false, fmt.Errorf("delete bucket %s: %w", key, err)
	}

	if !s.store.Delete(creatorID, year, month) {
		return false, nil
	}

	if err := s.withRetry(ctx, applog.OpDelete, func(ctx context.Context) error {
		return s.repo.Delete(ctx, key)
	}); err != nil {
		s.logger.ErrorContext(ctx, "Failed to delete persisted bucket",
			applog.FieldCreatorID, creatorID,
			applog.FieldPeriod, key.Period(),
			applog.FieldError, err)
		return true, fmt.Errorf("%w: %w", ErrNotPersisted, err)
	}

	s.refreshSnapshot(creatorID)
	s.logger.InfoContext(ctx, "Bucket deleted",
		applog.FieldCreatorID, creatorID,
		applog.FieldPeriod, key.Period())
	return true, nil
}

// Get returns one bucket or ErrNotFound.
func (s *BucketService) Get(ctx context.Context, creatorID string, year, month int) (bucket.MonthlyBucket, error) {
	key, err := bucket.NewKey(creatorID, year, month)
	if err != nil {
		return bucket.MonthlyBucket{}, fmt.Errorf("get bucket: %w", err)
	}
	if err := s.ensureLoaded(ctx, creatorID); err != nil {
		return bucket.MonthlyBucket{}, err
	}
	b, ok := s.store.Get(creatorID, year, month)
	if !ok {
		return bucket.MonthlyBucket{}, fmt.Errorf("get bucket %s: %w", key, ErrNotFound)
	}
	return b, nil
}

// ListByCreator returns the creator's buckets, newest month first.
func (s *BucketService) ListByCreator(ctx context.Context, creatorID string) ([]bucket.MonthlyBucket, error) {
	if creatorID == "" {
		return nil, fmt.Errorf("list buckets: %w: empty creator id", bucket.ErrInvalidKey)
	}
	if err := s.ensureLoaded(ctx, creatorID); err != nil {
		return nil, err
	}
	return s.store.ListByCreator(creatorID), nil
}

// Customers analyzes the buyers of one bucket.
func (s *BucketService) Customers(ctx context.Context, key bucket.Key) (analytics.CustomerAnalysis, error) {
	b, err := s.Get(ctx, key.CreatorID, key.Year, key.Month)
	if err != nil {
		return analytics.CustomerAnalysis{}, err
	}
	return analytics.AnalyzeCustomers(b.Records), nil
}

// Calendar builds the activity matrices from all of the creator's records.
// The day-of-month matrix keeps the records dated in the target month,
// whichever bucket they were uploaded to.
func (s *BucketService) Calendar(ctx context.Context, creatorID string, year, month int) (analytics.Calendar, error) {
	if _, err := bucket.NewKey(creatorID, year, month); err != nil {
		return analytics.Calendar{}, fmt.Errorf("calendar: %w", err)
	}
	all, err := s.ListByCreator(ctx, creatorID)
	if err != nil {
		return analytics.Calendar{}, err
	}

	return analytics.AnalyzeCalendar(creatorRecords(all), year, month)
}

func creatorRecords(buckets []bucket.MonthlyBucket) []core.TransactionRecord {
	var records []core.TransactionRecord
	for _, b := range buckets {
		records = append(records, b.Records...)
	}
	return records
}

// ensureLoaded loads the creator on first access. A failure is returned to
// the caller but the creator stays unloaded so the next call retries.
func (s *BucketService) ensureLoaded(ctx context.Context, creatorID string) error {
	s.loadedMu.Lock()
	done := s.loaded[creatorID]
	s.loadedMu.Unlock()
	if done {
		return nil
	}
	_, err := s.Load(ctx, creatorID)
	return err
}

func (s *BucketService) markLoaded(creatorID string) {
	s.loadedMu.Lock()
	s.loaded[creatorID] = true
	s.loadedMu.Unlock()
}

func (s *BucketService) refreshSnapshot(creatorID string) {
	s.snapshots.Put(creatorID, s.store.ListByCreator(creatorID))
}

// withRetry runs fn with bounded exponential backoff. Invalid keys and
// schema mismatches are not retried.
func (s *BucketService) withRetry(ctx context.Context, op string, fn func(context.Context) error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.retry.Backoff
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(max(s.retry.MaxRetries, 0))), ctx)

	attempt := 0
	return backoff.RetryNotify(func() error {
		attempt++
		err := fn(ctx)
		if errors.Is(err, bucket.ErrInvalidKey) || errors.Is(err, bucket.ErrSchemaMismatch) {
			return backoff.Permanent(err)
		}
		return err
	}, policy, func(err error, wait time.Duration) {
		s.logger.WarnContext(ctx, "Repository call failed, retrying",
			applog.FieldOperation, op,
			applog.FieldAttempt, attempt,
			"retry_in", wait,
			applog.FieldError, err)
	})
}
