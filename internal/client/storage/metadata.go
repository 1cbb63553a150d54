package storage

import (
	"context"
	"time"
)

//go:generate moq -out metadata_mock.go . MetadataStorage

// MetadataStorage defines interface for storing client metadata
type MetadataStorage interface {
	// DeviceID returns a stable identifier of this client installation,
	// generating it on first use
	DeviceID(ctx context.Context) (string, error)

	// SetLastSync saves the time of the last finished executor pass
	SetLastSync(ctx context.Context, at time.Time) error

	// GetLastSync returns zero time if no pass has run yet
	GetLastSync(ctx context.Context) (time.Time, error)

	// SchemaVersion returns the schema version of the opened store
	SchemaVersion(ctx context.Context) (int, error)
}
