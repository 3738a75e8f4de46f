package bucket

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Snapshot envelope tag. Bump SnapshotVersion on any incompatible change to
// MonthlyBucket's JSON shape.
const (
	SnapshotSchema  = "fanrevenue.monthly_bucket"
	SnapshotVersion = 1
)

type snapshot struct {
	Schema  string          `json:"schema"`
	Version int             `json:"version"`
	Bucket  json.RawMessage `json:"bucket"`
}

// EncodeSnapshot serializes a bucket inside the tagged envelope used by
// every repository.
func EncodeSnapshot(b MonthlyBucket) ([]byte, error) {
	body, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("encode bucket %s: %w", b.Key(), err)
	}
	return json.Marshal(snapshot{Schema: SnapshotSchema, Version: SnapshotVersion, Bucket: body})
}

// DecodeSnapshot is the inverse of EncodeSnapshot. It fails on a foreign
// schema tag, an unknown version, unknown fields or an invalid key.
func DecodeSnapshot(data []byte) (MonthlyBucket, error) {
	var env snapshot
	if err := json.Unmarshal(data, &env); err != nil {
		return MonthlyBucket{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if env.Schema != SnapshotSchema || env.Version != SnapshotVersion {
		return MonthlyBucket{}, fmt.Errorf("%w: got %q v%d", ErrSchemaMismatch, env.Schema, env.Version)
	}

	dec := json.NewDecoder(bytes.NewReader(env.Bucket))
	dec.DisallowUnknownFields()
	var b MonthlyBucket
	if err := dec.Decode(&b); err != nil {
		return MonthlyBucket{}, fmt.Errorf("decode snapshot bucket: %w", err)
	}
	if err := b.Key().Validate(); err != nil {
		return MonthlyBucket{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return b, nil
}
