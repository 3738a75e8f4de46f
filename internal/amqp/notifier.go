package amqp

import (
	"context"
	"log/slog"
	"time"

	"fanrevenue/internal/bucket"
)

// Publisher is satisfied by *Client.
type Publisher interface {
	PublishBucketEvent(ctx context.Context, msg *BucketEventMessage) error
}

// Notifier forwards store events to the broker. Publishing failures are
// logged and dropped: the repository, not the event stream, is the source
// of truth.
type Notifier struct {
	publisher Publisher
	logger    *slog.Logger
	timeout   time.Duration
}

var _ bucket.Observer = (*Notifier)(nil)

func NewNotifier(publisher Publisher, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{publisher: publisher, logger: logger, timeout: publishTimeout}
}

// BucketChanged implements bucket.Observer.
func (n *Notifier) BucketChanged(e bucket.Event) {
	msg := NewBucketEventMessage(e)

	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	if err := n.publisher.PublishBucketEvent(ctx, msg); err != nil {
		n.logger.Warn("Failed to publish bucket event",
			"error", err,
			"event_id", msg.ID,
			"event_type", msg.Type,
			"creator_id", msg.CreatorID,
			"period", e.Key.Period())
	}
}
