package backend

import (
	"context"

	"fanrevenue/internal/bucket"
)

// Repository is a bucket repository that can also enumerate its creators.
type Repository interface {
	bucket.Repository
	Creators(ctx context.Context) ([]string, error)
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the repository and an optional cleanup function
type BackendResult struct {
	Repository Repository
	Cleanup    CleanupFunc
}

// Close runs Cleanup if set.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates repositories based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// DynamoDB specific
	DynamoTable string
	AWSRegion   string

	// Memory backend specific
	DataDirectory string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	SQLiteBackend BackendType = "sqlite"
	DynamoBackend BackendType = "dynamo"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, DynamoBackend:
		return true
	default:
		return false
	}
}
