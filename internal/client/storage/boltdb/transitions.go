package boltdb

import (
	"context"
	"errors"
	"time"

	"go.etcd.io/bbolt"

	"github.com/iudanet/gennotes/internal/client/storage"
	"github.com/iudanet/gennotes/internal/models"
)

// CompleteCreate replaces the placeholder with the server note, rewrites
// later pending entries to the server id and marks the entry synced
func (s *Storage) CompleteCreate(ctx context.Context, entryID uint64, placeholderID string, note *models.Note) error {
	return s.update(ctx, "complete create", func(tx *bbolt.Tx) error {
		entry, err := getEntry(tx, entryID)
		if err != nil {
			return err
		}
		if entry.Synced {
			return nil
		}

		if err := deleteNote(tx, placeholderID); err != nil {
			return err
		}
		if err := applyConfirmed(tx, entryID, placeholderID, note); err != nil {
			return err
		}

		return markSynced(tx, entryID)
	})
}

// CompleteUpdate overwrites the cached note with the server record and marks the entry synced
func (s *Storage) CompleteUpdate(ctx context.Context, entryID uint64, note *models.Note) error {
	return s.update(ctx, "complete update", func(tx *bbolt.Tx) error {
		entry, err := getEntry(tx, entryID)
		if err != nil {
			return err
		}
		if entry.Synced {
			return nil
		}

		if err := applyConfirmed(tx, entryID, entry.NoteID, note); err != nil {
			return err
		}

		return markSynced(tx, entryID)
	})
}

// CompleteDelete removes the cached note and marks the entry synced
func (s *Storage) CompleteDelete(ctx context.Context, entryID uint64, noteID string) error {
	return s.update(ctx, "complete delete", func(tx *bbolt.Tx) error {
		if err := deleteNote(tx, noteID); err != nil {
			return err
		}
		return markSynced(tx, entryID)
	})
}

// MarkConflict sets status=conflict and stores the conflict record.
// A repeated call for the same entry returns the existing conflict id.
func (s *Storage) MarkConflict(ctx context.Context, entryID uint64, conflict *models.SyncConflict) (uint64, error) {
	var id uint64

	err := s.update(ctx, "mark conflict", func(tx *bbolt.Tx) error {
		entry, err := getEntry(tx, entryID)
		if err != nil {
			return err
		}

		if entry.Status == models.StatusConflict {
			existing, err := findConflictByEntry(tx, entryID)
			if err == nil {
				id = existing.ID
				return nil
			}
			if !errors.Is(err, storage.ErrConflictNotFound) {
				return err
			}
		}

		entry.Status = models.StatusConflict
		if err := putEntry(tx, entry); err != nil {
			return err
		}

		c := *conflict
		c.ID = 0
		c.EntryID = entryID
		if c.NoteID == "" {
			c.NoteID = entry.NoteID
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = time.Now().UTC()
		}

		id, err = saveConflict(tx, &c)
		return err
	})
	if err != nil {
		return 0, err
	}

	return id, nil
}

// ResolveConflict writes the resulting notes, marks the originating entry
// synced and removes the conflict record. The note carrying the conflicted
// id is the version now on the server: later pending entries of that note
// are rebased onto it.
func (s *Storage) ResolveConflict(ctx context.Context, conflictID uint64, notes ...*models.Note) error {
	return s.update(ctx, "resolve conflict", func(tx *bbolt.Tx) error {
		c, err := getConflict(tx, conflictID)
		if err != nil {
			return err
		}

		for _, note := range notes {
			if note != nil && note.ID == c.NoteID {
				err = applyConfirmed(tx, c.EntryID, c.NoteID, note)
			} else {
				err = putNote(tx, note)
			}
			if err != nil {
				return err
			}
		}

		if err := markSynced(tx, c.EntryID); err != nil && !errors.Is(err, storage.ErrEntryNotFound) {
			return err
		}

		return deleteConflictRecord(tx, conflictID)
	})
}

// applyConfirmed сохраняет подтвержденную сервером заметку и переносит на нее
// более поздние ожидающие записи той же заметки: id меняется на серверный,
// baseUpdatedAt сдвигается на новую версию сервера, а их payload повторно
// накладывается на кеш, чтобы оптимистичное состояние не пропало.
func applyConfirmed(tx *bbolt.Tx, entryID uint64, oldNoteID string, note *models.Note) error {
	later, err := scanEntries(tx, func(e *models.SyncQueueEntry) bool {
		return e.ID > entryID && !e.Synced && e.NoteID == oldNoteID
	})
	if err != nil {
		return err
	}

	cached := note.Clone()
	cached.Local = false
	deleted := false

	for _, e := range later {
		e.NoteID = note.ID
		if e.BaseUpdatedAt != nil && e.Status != models.StatusConflict {
			base := note.UpdatedAt
			e.BaseUpdatedAt = &base
		}
		if err := putEntry(tx, e); err != nil {
			return err
		}

		if e.Status == models.StatusConflict {
			continue
		}
		switch e.Action {
		case models.ActionDelete:
			deleted = true
		case models.ActionUpdate:
			cached = cached.Apply(e.Payload)
		}
	}

	if deleted {
		return deleteNote(tx, note.ID)
	}
	return putNote(tx, cached)
}
