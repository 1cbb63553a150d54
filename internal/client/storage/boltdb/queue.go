package boltdb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/iudanet/gennotes/internal/client/storage"
	"github.com/iudanet/gennotes/internal/models"
)

// Enqueue appends a pending entry and returns its sequence id
func (s *Storage) Enqueue(ctx context.Context, entry *models.SyncQueueEntry) (uint64, error) {
	var id uint64

	err := s.update(ctx, "enqueue", func(tx *bbolt.Tx) error {
		var err error
		id, err = enqueue(tx, entry)
		return err
	})
	if err != nil {
		return 0, err
	}

	return id, nil
}

// EnqueueWithNote appends the entry and applies the optimistic cache change atomically
func (s *Storage) EnqueueWithNote(ctx context.Context, entry *models.SyncQueueEntry, note *models.Note) (uint64, error) {
	var id uint64

	err := s.update(ctx, "enqueue with note", func(tx *bbolt.Tx) error {
		var err error
		if id, err = enqueue(tx, entry); err != nil {
			return err
		}

		switch entry.Action {
		case models.ActionDelete:
			return deleteNote(tx, entry.NoteID)
		default:
			if note == nil {
				return nil
			}
			return putNote(tx, note)
		}
	})
	if err != nil {
		return 0, err
	}

	return id, nil
}

// GetEntry retrieves a queue entry by id
func (s *Storage) GetEntry(ctx context.Context, id uint64) (*models.SyncQueueEntry, error) {
	var entry *models.SyncQueueEntry

	err := s.view(ctx, "get entry", func(tx *bbolt.Tx) error {
		var err error
		entry, err = getEntry(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	return entry, nil
}

// ListPending returns unsynced entries in ascending id order
func (s *Storage) ListPending(ctx context.Context) ([]*models.SyncQueueEntry, error) {
	return s.listEntries(ctx, "list pending", func(e *models.SyncQueueEntry) bool {
		return !e.Synced
	})
}

// ListEntries returns all entries in ascending id order
func (s *Storage) ListEntries(ctx context.Context) ([]*models.SyncQueueEntry, error) {
	return s.listEntries(ctx, "list entries", nil)
}

// CountPending returns the number of unsynced entries
func (s *Storage) CountPending(ctx context.Context) (int, error) {
	pending, err := s.ListPending(ctx)
	if err != nil {
		return 0, err
	}
	return len(pending), nil
}

// MarkSynced moves the entry into the terminal synced state
func (s *Storage) MarkSynced(ctx context.Context, id uint64) error {
	return s.update(ctx, "mark synced", func(tx *bbolt.Tx) error {
		return markSynced(tx, id)
	})
}

// UpdateEntry applies upd to the entry in a single read-modify-write transaction
func (s *Storage) UpdateEntry(ctx context.Context, id uint64, upd storage.EntryUpdate) error {
	return s.update(ctx, "update entry", func(tx *bbolt.Tx) error {
		entry, err := getEntry(tx, id)
		if err != nil {
			return err
		}

		if upd.Status != nil {
			entry.Status = *upd.Status
		}
		if upd.LastError != nil {
			entry.LastError = *upd.LastError
		}
		if upd.NoteID != nil {
			entry.NoteID = *upd.NoteID
		}
		if upd.BaseUpdatedAt != nil {
			base := *upd.BaseUpdatedAt
			entry.BaseUpdatedAt = &base
		}
		if upd.IncrementRetry {
			entry.RetryCount++
		}

		return putEntry(tx, entry)
	})
}

// PruneSynced removes synced entries recorded before olderThan
func (s *Storage) PruneSynced(ctx context.Context, olderThan time.Time) (int, error) {
	removed := 0

	err := s.update(ctx, "prune synced", func(tx *bbolt.Tx) error {
		b, err := bucket(tx, bucketQueue)
		if err != nil {
			return err
		}

		var keys [][]byte
		err = b.ForEach(func(k, v []byte) error {
			var entry models.SyncQueueEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("failed to unmarshal entry: %w", err)
			}
			if entry.Synced && entry.Timestamp.Before(olderThan) {
				keys = append(keys, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}

		// Удаляем после обхода: изменять бакет внутри ForEach нельзя
		for _, k := range keys {
			if err := b.Delete(k); err != nil {
				return fmt.Errorf("failed to delete entry: %w", err)
			}
		}
		removed = len(keys)
		return nil
	})
	if err != nil {
		return 0, err
	}

	return removed, nil
}

func (s *Storage) listEntries(ctx context.Context, op string, keep func(*models.SyncQueueEntry) bool) ([]*models.SyncQueueEntry, error) {
	entries := []*models.SyncQueueEntry{}

	err := s.view(ctx, op, func(tx *bbolt.Tx) error {
		var err error
		entries, err = scanEntries(tx, keep)
		return err
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}

func enqueue(tx *bbolt.Tx, entry *models.SyncQueueEntry) (uint64, error) {
	if entry == nil || !entry.Action.Valid() {
		return 0, fmt.Errorf("invalid queue entry")
	}

	b, err := bucket(tx, bucketQueue)
	if err != nil {
		return 0, err
	}

	id, err := b.NextSequence()
	if err != nil {
		return 0, fmt.Errorf("failed to allocate entry id: %w", err)
	}

	e := *entry
	e.ID = id
	e.Status = models.StatusPending
	e.Synced = false
	e.RetryCount = 0
	e.LastError = ""
	e.Payload = entry.Payload.Clone()
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	if err := putEntry(tx, &e); err != nil {
		return 0, err
	}
	return id, nil
}

func getEntry(tx *bbolt.Tx, id uint64) (*models.SyncQueueEntry, error) {
	b, err := bucket(tx, bucketQueue)
	if err != nil {
		return nil, err
	}

	data := b.Get(itob(id))
	if data == nil {
		return nil, storage.ErrEntryNotFound
	}

	entry := &models.SyncQueueEntry{}
	if err := json.Unmarshal(data, entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entry: %w", err)
	}
	return entry, nil
}

func putEntry(tx *bbolt.Tx, entry *models.SyncQueueEntry) error {
	b, err := bucket(tx, bucketQueue)
	if err != nil {
		return err
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	if err := b.Put(itob(entry.ID), data); err != nil {
		return fmt.Errorf("failed to save entry: %w", err)
	}
	return nil
}

func markSynced(tx *bbolt.Tx, id uint64) error {
	entry, err := getEntry(tx, id)
	if err != nil {
		return err
	}

	entry.Synced = true
	entry.Status = models.StatusSynced
	entry.LastError = ""

	return putEntry(tx, entry)
}

// scanEntries обходит очередь по возрастанию id; keep == nil возвращает все записи
func scanEntries(tx *bbolt.Tx, keep func(*models.SyncQueueEntry) bool) ([]*models.SyncQueueEntry, error) {
	b, err := bucket(tx, bucketQueue)
	if err != nil {
		return nil, err
	}

	entries := []*models.SyncQueueEntry{}
	c := b.Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		entry := &models.SyncQueueEntry{}
		if err := json.Unmarshal(v, entry); err != nil {
			return nil, fmt.Errorf("failed to unmarshal entry %d: %w", btoi(k), err)
		}
		if keep == nil || keep(entry) {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}
