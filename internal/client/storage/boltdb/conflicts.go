package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/gennotes/internal/client/storage"
	"github.com/iudanet/gennotes/internal/models"
)

// SaveConflict stores a conflict record, assigning an id when it has none
func (s *Storage) SaveConflict(ctx context.Context, conflict *models.SyncConflict) (uint64, error) {
	var id uint64

	err := s.update(ctx, "save conflict", func(tx *bbolt.Tx) error {
		var err error
		id, err = saveConflict(tx, conflict)
		return err
	})
	if err != nil {
		return 0, err
	}

	return id, nil
}

// GetConflict retrieves a conflict by id
func (s *Storage) GetConflict(ctx context.Context, id uint64) (*models.SyncConflict, error) {
	var conflict *models.SyncConflict

	err := s.view(ctx, "get conflict", func(tx *bbolt.Tx) error {
		var err error
		conflict, err = getConflict(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	return conflict, nil
}

// ListConflicts returns all unresolved conflicts, oldest first
func (s *Storage) ListConflicts(ctx context.Context) ([]*models.SyncConflict, error) {
	conflicts := []*models.SyncConflict{}

	err := s.view(ctx, "list conflicts", func(tx *bbolt.Tx) error {
		var err error
		conflicts, err = scanConflicts(tx)
		return err
	})
	if err != nil {
		return nil, err
	}

	return conflicts, nil
}

// DeleteConflict removes a conflict record
func (s *Storage) DeleteConflict(ctx context.Context, id uint64) error {
	return s.update(ctx, "delete conflict", func(tx *bbolt.Tx) error {
		return deleteConflictRecord(tx, id)
	})
}

func saveConflict(tx *bbolt.Tx, conflict *models.SyncConflict) (uint64, error) {
	b, err := bucket(tx, bucketConflicts)
	if err != nil {
		return 0, err
	}

	if conflict.ID == 0 {
		id, err := b.NextSequence()
		if err != nil {
			return 0, fmt.Errorf("failed to allocate conflict id: %w", err)
		}
		conflict.ID = id
	}

	data, err := json.Marshal(conflict)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal conflict: %w", err)
	}

	if err := b.Put(itob(conflict.ID), data); err != nil {
		return 0, fmt.Errorf("failed to save conflict: %w", err)
	}
	return conflict.ID, nil
}

func getConflict(tx *bbolt.Tx, id uint64) (*models.SyncConflict, error) {
	b, err := bucket(tx, bucketConflicts)
	if err != nil {
		return nil, err
	}

	data := b.Get(itob(id))
	if data == nil {
		return nil, storage.ErrConflictNotFound
	}

	conflict := &models.SyncConflict{}
	if err := json.Unmarshal(data, conflict); err != nil {
		return nil, fmt.Errorf("failed to unmarshal conflict: %w", err)
	}
	return conflict, nil
}

func scanConflicts(tx *bbolt.Tx) ([]*models.SyncConflict, error) {
	b, err := bucket(tx, bucketConflicts)
	if err != nil {
		return nil, err
	}

	conflicts := []*models.SyncConflict{}
	err = b.ForEach(func(k, v []byte) error {
		c := &models.SyncConflict{}
		if err := json.Unmarshal(v, c); err != nil {
			return fmt.Errorf("failed to unmarshal conflict %d: %w", btoi(k), err)
		}
		conflicts = append(conflicts, c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return conflicts, nil
}

func findConflictByEntry(tx *bbolt.Tx, entryID uint64) (*models.SyncConflict, error) {
	conflicts, err := scanConflicts(tx)
	if err != nil {
		return nil, err
	}
	for _, c := range conflicts {
		if c.EntryID == entryID {
			return c, nil
		}
	}
	return nil, storage.ErrConflictNotFound
}

func deleteConflictRecord(tx *bbolt.Tx, id uint64) error {
	b, err := bucket(tx, bucketConflicts)
	if err != nil {
		return err
	}

	if b.Get(itob(id)) == nil {
		return storage.ErrConflictNotFound
	}
	if err := b.Delete(itob(id)); err != nil {
		return fmt.Errorf("failed to delete conflict: %w", err)
	}
	return nil
}
