package amqp

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"fanrevenue/internal/bucket"
)

func TestNewBucketEventMessage(t *testing.T) {
	modified := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)
	b := bucket.MonthlyBucket{CreatorID: "c", Year: 2024, Month: 1, LastModified: modified}
	msg := NewBucketEventMessage(bucket.Event{Type: bucket.EventUpserted, Key: b.Key(), Bucket: &b})

	if msg.ID == "" {
		t.Error("NewBucketEventMessage() ID should not be empty")
	}
	if msg.Type != "bucket.upserted" || msg.CreatorID != "c" || msg.Year != 2024 || msg.Month != 1 {
		t.Errorf("unexpected message: %+v", msg)
	}
	if !msg.LastModified.Equal(modified) {
		t.Errorf("LastModified = %v, want %v", msg.LastModified, modified)
	}
	if time.Since(msg.Timestamp) > time.Second {
		t.Error("NewBucketEventMessage() Timestamp should be recent")
	}

	other := NewBucketEventMessage(bucket.Event{Type: bucket.EventDeleted, Key: b.Key()})
	if other.ID == msg.ID {
		t.Error("message ids should be unique")
	}
	if !other.LastModified.IsZero() {
		t.Error("delete events carry no LastModified")
	}
}

func TestBucketEventMessage_JSON(t *testing.T) {
	timestamp := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	msg := &BucketEventMessage{
		ID:        "0b9c1c1e-3f4f-4b54-9a39-1f0c3c7d2a11",
		Type:      "bucket.deleted",
		CreatorID: "creator",
		Year:      2024,
		Month:     3,
		Timestamp: timestamp,
	}

	jsonBytes, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}
	parsed, err := BucketEventMessageFromJSON(jsonBytes)
	if err != nil {
		t.Fatalf("BucketEventMessageFromJSON() error = %v", err)
	}
	if parsed.Key() != msg.Key() || parsed.ID != msg.ID || !parsed.Timestamp.Equal(timestamp) {
		t.Errorf("Parsed = %+v, want %+v", parsed, msg)
	}
}

func TestBucketEventMessage_InvalidJSON(t *testing.T) {
	cases := map[string]string{
		"bad json":      `{"id": 1}`,
		"unknown type":  `{"id":"x","type":"bucket.renamed","creatorId":"c","year":2024,"month":1}`,
		"invalid month": `{"id":"x","type":"bucket.deleted","creatorId":"c","year":2024,"month":13}`,
		"no creator":    `{"id":"x","type":"bucket.deleted","creatorId":"","year":2024,"month":1}`,
	}
	for name, data := range cases {
		if _, err := BucketEventMessageFromJSON([]byte(data)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

type fakePublisher struct {
	msgs []*BucketEventMessage
	err  error
}

func (f *fakePublisher) PublishBucketEvent(ctx context.Context, msg *BucketEventMessage) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("missing deadline")
	}
	f.msgs = append(f.msgs, msg)
	return f.err
}

func TestNotifierPublishesStoreEvents(t *testing.T) {
	pub := &fakePublisher{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := bucket.NewStore(bucket.WithObserver(NewNotifier(pub, logger)))

	if _, err := store.Upsert("c", "C", 2024, 1, nil); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	store.Delete("c", 2024, 1)

	if len(pub.msgs) != 2 {
		t.Fatalf("published %d messages, want 2", len(pub.msgs))
	}
	if pub.msgs[0].Type != string(bucket.EventUpserted) || pub.msgs[1].Type != string(bucket.EventDeleted) {
		t.Errorf("unexpected types: %s, %s", pub.msgs[0].Type, pub.msgs[1].Type)
	}
}

func TestNotifierSwallowsPublishErrors(t *testing.T) {
	pub := &fakePublisher{err: ErrCircuitOpen}
	n := NewNotifier(pub, slog.New(slog.NewTextHandler(io.Discard, nil)))
	n.BucketChanged(bucket.Event{Type: bucket.EventDeleted, Key: bucket.Key{CreatorID: "c", Year: 2024, Month: 1}})
	if len(pub.msgs) != 1 {
		t.Fatalf("expected one publish attempt, got %d", len(pub.msgs))
	}
}
