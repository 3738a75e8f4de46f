package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"fanrevenue/internal/amqp"
	"fanrevenue/internal/bucket"
)

// errSourceBehind means the primary repository has not yet stored the
// version an event announced.
var errSourceBehind = errors.New("source repository behind event")

// CreatorLister enumerates creators known to a repository.
type CreatorLister interface {
	Creators(ctx context.Context) ([]string, error)
}

// MirrorWorker replicates buckets from the primary repository to a mirror
// repository as bucket events arrive.
type MirrorWorker struct {
	source       bucket.Repository
	mirror       bucket.Repository
	maxRetries   int
	retryBackoff time.Duration
}

func NewMirrorWorker(source, mirror bucket.Repository, maxRetries int, retryBackoff time.Duration) *MirrorWorker {
	return &MirrorWorker{
		source:       source,
		mirror:       mirror,
		maxRetries:   maxRetries,
		retryBackoff: retryBackoff,
	}
}

// HandleBucketEvent processes a single bucket event from AMQP. Upserts are
// re-read from the primary repository so the mirror never stores a version
// the primary does not have.
func (w *MirrorWorker) HandleBucketEvent(ctx context.Context, msg *amqp.BucketEventMessage) error {
	key := msg.Key()
	slog.InfoContext(ctx, "Processing bucket event",
		"event_id", msg.ID,
		"event_type", msg.Type,
		"creator_id", key.CreatorID,
		"period", key.Period())

	switch bucket.EventType(msg.Type) {
	case bucket.EventDeleted:
		if err := w.retry(ctx, func(ctx context.Context) error {
			return w.mirror.Delete(ctx, key)
		}); err != nil {
			return fmt.Errorf("delete mirrored bucket %s: %w", key, err)
		}
		slog.InfoContext(ctx, "Mirrored bucket deletion", "creator_id", key.CreatorID, "period", key.Period())
		return nil

	case bucket.EventUpserted:
		err := w.retry(ctx, func(ctx context.Context) error {
			return w.mirrorOne(ctx, key, msg.LastModified)
		})
		if errors.Is(err, errSourceBehind) {
			// A newer event or the next resync will carry the bucket.
			slog.WarnContext(ctx, "Primary repository never caught up with event, skipping",
				"event_id", msg.ID,
				"creator_id", key.CreatorID,
				"period", key.Period())
			return nil
		}
		if err != nil {
			return fmt.Errorf("mirror bucket %s: %w", key, err)
		}
		return nil
	}

	return fmt.Errorf("unknown event type %q", msg.Type)
}

func (w *MirrorWorker) mirrorOne(ctx context.Context, key bucket.Key, announced time.Time) error {
	buckets, err := w.source.Load(ctx, key.CreatorID)
	if err != nil {
		return fmt.Errorf("load source buckets: %w", err)
	}
	for _, b := range buckets {
		if b.Key() != key {
			continue
		}
		if b.LastModified.Before(announced) {
			return errSourceBehind
		}
		if err := w.mirror.Save(ctx, b); err != nil {
			return fmt.Errorf("save mirror bucket: %w", err)
		}
		slog.InfoContext(ctx, "Mirrored bucket",
			"creator_id", key.CreatorID,
			"period", key.Period(),
			"records", len(b.Records),
			"total_revenue", b.Analysis.TotalRevenue)
		return nil
	}
	return errSourceBehind
}

// Resync copies every bucket of every creator from the primary to the
// mirror. It recovers from events lost while the worker was down.
func (w *MirrorWorker) Resync(ctx context.Context, lister CreatorLister) error {
	creators, err := lister.Creators(ctx)
	if err != nil {
		return fmt.Errorf("list creators for resync: %w", err)
	}

	if len(creators) == 0 {
		slog.InfoContext(ctx, "No creators found on startup")
		return nil
	}

	successCount := 0
	errorCount := 0

	for _, creatorID := range creators {
		buckets, err := w.source.Load(ctx, creatorID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to load creator for resync",
				"creator_id", creatorID, "error", err)
			errorCount++
			continue
		}
		for _, b := range buckets {
			if err := w.retry(ctx, func(ctx context.Context) error {
				return w.mirror.Save(ctx, b)
			}); err != nil {
				slog.ErrorContext(ctx, "Failed to mirror bucket during resync",
					"creator_id", creatorID, "period", b.Key().Period(), "error", err)
				errorCount++
				continue
			}
			successCount++
		}
	}

	slog.InfoContext(ctx, "Startup resync completed",
		"creators", len(creators),
		"mirrored", successCount,
		"errors", errorCount)

	return nil
}

func (w *MirrorWorker) retry(ctx context.Context, fn func(context.Context) error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = w.retryBackoff
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(max(w.maxRetries, 0))), ctx)
	return backoff.Retry(func() error {
		err := fn(ctx)
		if errors.Is(err, bucket.ErrInvalidKey) || errors.Is(err, bucket.ErrSchemaMismatch) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
}
