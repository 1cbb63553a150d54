package storage

import "context"

// Store объединяет все коллекции локального хранилища
type Store interface {
	NoteStorage
	QueueStorage
	ConflictStorage
	AuthStorage
	MetadataStorage
	Transitions

	// ClearAll wipes notes, queue, tags and folders (logout).
	// Conflicts are never removed implicitly.
	ClearAll(ctx context.Context) error

	// Close releases the store
	Close() error
}
