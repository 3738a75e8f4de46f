// Package bucket keeps transaction records and their revenue analysis per
// creator and calendar month.
package bucket

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fanrevenue/internal/analytics"
	"fanrevenue/internal/core"
)

var (
	ErrInvalidKey     = errors.New("invalid bucket key")
	ErrSchemaMismatch = errors.New("snapshot schema mismatch")
)

// Key identifies one bucket.
type Key struct {
	CreatorID string `json:"creatorId"`
	Year      int    `json:"year"`
	Month     int    `json:"month"`
}

// NewKey builds a validated key.
func NewKey(creatorID string, year, month int) (Key, error) {
	k := Key{CreatorID: creatorID, Year: year, Month: month}
	return k, k.Validate()
}

func (k Key) Validate() error {
	if k.CreatorID == "" {
		return fmt.Errorf("%w: empty creator id", ErrInvalidKey)
	}
	if err := core.ValidateYearMonth(k.Year, k.Month); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	return nil
}

// Period returns "YYYY-MM".
func (k Key) Period() string {
	return fmt.Sprintf("%04d-%02d", k.Year, k.Month)
}

func (k Key) String() string {
	return k.CreatorID + "/" + k.Period()
}

// compare orders by creator ascending, then newest month first.
func (k Key) compare(o Key) int {
	switch {
	case k.CreatorID < o.CreatorID:
		return -1
	case k.CreatorID > o.CreatorID:
		return 1
	case k.Year != o.Year:
		return o.Year - k.Year
	}
	return o.Month - k.Month
}

// MonthlyBucket holds one month of a creator's records with the analysis
// computed from exactly those records. Records must be treated as read-only.
type MonthlyBucket struct {
	CreatorID    string                    `json:"creatorId"`
	DisplayName  string                    `json:"displayName"`
	Year         int                       `json:"year"`
	Month        int                       `json:"month"`
	Records      []core.TransactionRecord  `json:"records"`
	Analysis     analytics.RevenueAnalysis `json:"analysis"`
	UploadedAt   time.Time                 `json:"uploadedAt"`
	LastModified time.Time                 `json:"lastModified"`
}

func (b MonthlyBucket) Key() Key {
	return Key{CreatorID: b.CreatorID, Year: b.Year, Month: b.Month}
}

// Repository is the durable side of the store. Implementations live in the
// storage, dynamo and memory packages.
type Repository interface {
	Load(ctx context.Context, creatorID string) ([]MonthlyBucket, error)
	Save(ctx context.Context, b MonthlyBucket) error
	Delete(ctx context.Context, key Key) error
}

// EventType names a committed store mutation.
type EventType string

const (
	EventUpserted EventType = "bucket.upserted"
	EventDeleted  EventType = "bucket.deleted"
)

// Event describes a committed mutation. Bucket is nil for deletions.
type Event struct {
	Type   EventType
	Key    Key
	Bucket *MonthlyBucket
	At     time.Time
}

// Observer is notified after every committed upsert or delete.
type Observer interface {
	BucketChanged(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) BucketChanged(e Event) { f(e) }
