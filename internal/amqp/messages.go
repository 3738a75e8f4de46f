package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fanrevenue/internal/bucket"
)

// BucketEventMessage announces a committed bucket change. It carries only
// the key; consumers fetch the bucket itself from the primary repository.
type BucketEventMessage struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	CreatorID    string    `json:"creatorId"`
	Year         int       `json:"year"`
	Month        int       `json:"month"`
	LastModified time.Time `json:"lastModified"`
	Timestamp    time.Time `json:"timestamp"`
}

// NewBucketEventMessage builds a message for a store event.
func NewBucketEventMessage(e bucket.Event) *BucketEventMessage {
	msg := &BucketEventMessage{
		ID:        uuid.NewString(),
		Type:      string(e.Type),
		CreatorID: e.Key.CreatorID,
		Year:      e.Key.Year,
		Month:     e.Key.Month,
		Timestamp: time.Now(),
	}
	if e.Bucket != nil {
		msg.LastModified = e.Bucket.LastModified
	}
	return msg
}

func (m *BucketEventMessage) Key() bucket.Key {
	return bucket.Key{CreatorID: m.CreatorID, Year: m.Year, Month: m.Month}
}

// ToJSON converts the message to JSON bytes
func (m *BucketEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// BucketEventMessageFromJSON decodes and validates a message.
func BucketEventMessageFromJSON(data []byte) (*BucketEventMessage, error) {
	var msg BucketEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch bucket.EventType(msg.Type) {
	case bucket.EventUpserted, bucket.EventDeleted:
	default:
		return nil, fmt.Errorf("unknown event type %q", msg.Type)
	}
	if err := msg.Key().Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
