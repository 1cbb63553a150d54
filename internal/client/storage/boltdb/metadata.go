package boltdb

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

var (
	keyLastSync = []byte("last_sync")
	keyDeviceID = []byte("device_id")
)

// DeviceID returns the identifier of this installation, generating it once
func (s *Storage) DeviceID(ctx context.Context) (string, error) {
	var id string

	err := s.update(ctx, "device id", func(tx *bbolt.Tx) error {
		b, err := bucket(tx, bucketMeta)
		if err != nil {
			return err
		}

		if raw := b.Get(keyDeviceID); raw != nil {
			id = string(raw)
			return nil
		}

		id = uuid.NewString()
		if err := b.Put(keyDeviceID, []byte(id)); err != nil {
			return fmt.Errorf("failed to save device id: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	return id, nil
}

// SetLastSync saves the time of the last executor pass
func (s *Storage) SetLastSync(ctx context.Context, at time.Time) error {
	return s.update(ctx, "set last sync", func(tx *bbolt.Tx) error {
		b, err := bucket(tx, bucketMeta)
		if err != nil {
			return err
		}

		// Храним unix nano в big-endian
		raw := make([]byte, 8)
		binary.BigEndian.PutUint64(raw, uint64(at.UnixNano()))

		if err := b.Put(keyLastSync, raw); err != nil {
			return fmt.Errorf("failed to save last sync: %w", err)
		}
		return nil
	})
}

// GetLastSync returns the time of the last executor pass.
// Returns zero time if no pass has been performed yet.
func (s *Storage) GetLastSync(ctx context.Context) (time.Time, error) {
	var at time.Time

	err := s.view(ctx, "get last sync", func(tx *bbolt.Tx) error {
		b, err := bucket(tx, bucketMeta)
		if err != nil {
			return err
		}

		raw := b.Get(keyLastSync)
		if raw == nil {
			// Первая синхронизация
			return nil
		}
		at = time.Unix(0, int64(binary.BigEndian.Uint64(raw))).UTC()
		return nil
	})
	if err != nil {
		return time.Time{}, err
	}

	return at, nil
}

// SchemaVersion returns the schema version recorded in the file
func (s *Storage) SchemaVersion(ctx context.Context) (int, error) {
	var v int

	err := s.view(ctx, "schema version", func(tx *bbolt.Tx) error {
		b, err := bucket(tx, bucketMeta)
		if err != nil {
			return err
		}
		v, err = readVersion(b)
		return err
	})
	if err != nil {
		return 0, err
	}

	return v, nil
}
