package boltdb

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"go.etcd.io/bbolt"

	"github.com/iudanet/gennotes/internal/client/storage"
	"github.com/iudanet/gennotes/internal/models"
)

// PutNote stores the note under its ID, replacing any previous record
func (s *Storage) PutNote(ctx context.Context, note *models.Note) error {
	return s.update(ctx, "put note", func(tx *bbolt.Tx) error {
		return putNote(tx, note)
	})
}

// GetNote retrieves a cached note by ID
func (s *Storage) GetNote(ctx context.Context, id string) (*models.Note, error) {
	var note *models.Note

	err := s.view(ctx, "get note", func(tx *bbolt.Tx) error {
		var err error
		note, err = getNote(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	return note, nil
}

// GetAllNotes returns all cached notes ordered by key
func (s *Storage) GetAllNotes(ctx context.Context) ([]*models.Note, error) {
	notes := []*models.Note{}

	err := s.view(ctx, "list notes", func(tx *bbolt.Tx) error {
		b, err := bucket(tx, bucketNotes)
		if err != nil {
			return err
		}

		return b.ForEach(func(k, v []byte) error {
			var note models.Note
			if err := json.Unmarshal(v, &note); err != nil {
				return fmt.Errorf("failed to unmarshal note %s: %w", k, err)
			}
			notes = append(notes, &note)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return notes, nil
}

// DeleteNote removes a cached note; missing notes are ignored
func (s *Storage) DeleteNote(ctx context.Context, id string) error {
	return s.update(ctx, "delete note", func(tx *bbolt.Tx) error {
		return deleteNote(tx, id)
	})
}

// ReplaceClean overwrites clean cached notes with the server list and drops
// clean notes the server no longer has
func (s *Storage) ReplaceClean(ctx context.Context, notes []*models.Note) (*storage.ReplaceResult, error) {
	result := &storage.ReplaceResult{}

	err := s.update(ctx, "replace notes", func(tx *bbolt.Tx) error {
		*result = storage.ReplaceResult{}

		pending, err := scanEntries(tx, func(e *models.SyncQueueEntry) bool { return !e.Synced })
		if err != nil {
			return err
		}
		dirty := make(map[string]bool, len(pending))
		for _, e := range pending {
			dirty[e.NoteID] = true
		}

		seen := make(map[string]bool, len(notes))
		for _, n := range notes {
			seen[n.ID] = true
			if dirty[n.ID] {
				result.Skipped++
				continue
			}
			if err := putNote(tx, n); err != nil {
				return err
			}
			result.Updated++
		}

		b, err := bucket(tx, bucketNotes)
		if err != nil {
			return err
		}

		// Ключи собираются заранее: удалять во время ForEach нельзя
		var stale []string
		err = b.ForEach(func(k, _ []byte) error {
			id := string(k)
			if !seen[id] && !dirty[id] && !models.IsLocalID(id) {
				stale = append(stale, id)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to scan notes: %w", err)
		}
		for _, id := range stale {
			if err := deleteNote(tx, id); err != nil {
				return err
			}
			result.Removed++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// SaveTags replaces the set of known tags
func (s *Storage) SaveTags(ctx context.Context, tags []string) error {
	return s.update(ctx, "save tags", func(tx *bbolt.Tx) error {
		return replaceNames(tx, bucketTags, tags)
	})
}

// ListTags returns known tags sorted by name
func (s *Storage) ListTags(ctx context.Context) ([]string, error) {
	return s.listNames(ctx, "list tags", bucketTags)
}

// SaveFolders replaces the set of known folders
func (s *Storage) SaveFolders(ctx context.Context, folders []string) error {
	return s.update(ctx, "save folders", func(tx *bbolt.Tx) error {
		return replaceNames(tx, bucketFolders, folders)
	})
}

// ListFolders returns known folder ids sorted
func (s *Storage) ListFolders(ctx context.Context) ([]string, error) {
	return s.listNames(ctx, "list folders", bucketFolders)
}

func (s *Storage) listNames(ctx context.Context, op string, name []byte) ([]string, error) {
	names := []string{}

	err := s.view(ctx, op, func(tx *bbolt.Tx) error {
		b, err := bucket(tx, name)
		if err != nil {
			return err
		}
		return b.ForEach(func(k, _ []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	// bbolt уже отдает ключи по порядку, сортировка на случай не-ASCII
	sort.Strings(names)
	return names, nil
}

func replaceNames(tx *bbolt.Tx, name []byte, values []string) error {
	if err := tx.DeleteBucket(name); err != nil && err != bbolt.ErrBucketNotFound {
		return fmt.Errorf("failed to clear %s: %w", name, err)
	}
	b, err := tx.CreateBucket(name)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	for _, v := range values {
		if v == "" {
			continue
		}
		if err := b.Put([]byte(v), []byte{}); err != nil {
			return fmt.Errorf("failed to save %s entry: %w", name, err)
		}
	}
	return nil
}

func putNote(tx *bbolt.Tx, note *models.Note) error {
	if note == nil || note.ID == "" {
		return fmt.Errorf("note without id")
	}

	b, err := bucket(tx, bucketNotes)
	if err != nil {
		return err
	}

	data, err := json.Marshal(note)
	if err != nil {
		return fmt.Errorf("failed to marshal note: %w", err)
	}

	if err := b.Put([]byte(note.ID), data); err != nil {
		return fmt.Errorf("failed to save note: %w", err)
	}
	return nil
}

func getNote(tx *bbolt.Tx, id string) (*models.Note, error) {
	b, err := bucket(tx, bucketNotes)
	if err != nil {
		return nil, err
	}

	data := b.Get([]byte(id))
	if data == nil {
		return nil, storage.ErrNoteNotFound
	}

	note := &models.Note{}
	if err := json.Unmarshal(data, note); err != nil {
		return nil, fmt.Errorf("failed to unmarshal note: %w", err)
	}
	return note, nil
}

func deleteNote(tx *bbolt.Tx, id string) error {
	b, err := bucket(tx, bucketNotes)
	if err != nil {
		return err
	}
	if err := b.Delete([]byte(id)); err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	return nil
}
