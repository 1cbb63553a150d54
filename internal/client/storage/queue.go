package storage

import (
	"context"
	"time"

	"github.com/iudanet/gennotes/internal/models"
)

//go:generate moq -out queuestorage_mock.go . QueueStorage

// EntryUpdate описывает частичное изменение записи очереди.
// Применяется атомарно (read-modify-write в одной транзакции).
type EntryUpdate struct {
	Status         *models.SyncStatus
	LastError      *string
	NoteID         *string
	BaseUpdatedAt  *time.Time
	IncrementRetry bool
}

// QueueStorage очередь отложенных мутаций
type QueueStorage interface {
	// Enqueue appends an entry with status pending, synced=false, retryCount=0
	// and returns the assigned sequence id
	Enqueue(ctx context.Context, entry *models.SyncQueueEntry) (uint64, error)

	// EnqueueWithNote enqueues the entry and applies the optimistic cache change
	// in the same transaction: note is written for create/update, the entry's
	// note is removed for delete
	EnqueueWithNote(ctx context.Context, entry *models.SyncQueueEntry, note *models.Note) (uint64, error)

	// GetEntry returns ErrEntryNotFound if the entry does not exist
	GetEntry(ctx context.Context, id uint64) (*models.SyncQueueEntry, error)

	// ListPending returns entries with synced=false in ascending id order
	ListPending(ctx context.Context) ([]*models.SyncQueueEntry, error)

	// ListEntries returns every entry in ascending id order
	ListEntries(ctx context.Context) ([]*models.SyncQueueEntry, error)

	// CountPending returns the number of entries with synced=false
	CountPending(ctx context.Context) (int, error)

	// MarkSynced is the terminal success transition
	MarkSynced(ctx context.Context, id uint64) error

	// UpdateEntry applies an error/conflict transition
	UpdateEntry(ctx context.Context, id uint64, upd EntryUpdate) error

	// PruneSynced deletes synced entries captured before olderThan and
	// returns the number of removed entries
	PruneSynced(ctx context.Context, olderThan time.Time) (int, error)
}

//go:generate moq -out transitions_mock.go . Transitions

// Transitions составные переходы состояния, каждый в одной транзакции.
// Только через них executor и resolver меняют кеш и очередь одновременно.
type Transitions interface {
	// CompleteCreate migrates the placeholder cache key to the server note,
	// rewrites NoteID of later pending entries and marks the entry synced
	CompleteCreate(ctx context.Context, entryID uint64, placeholderID string, note *models.Note) error

	// CompleteUpdate overwrites the cached note and marks the entry synced
	CompleteUpdate(ctx context.Context, entryID uint64, note *models.Note) error

	// CompleteDelete removes the cached note and marks the entry synced
	CompleteDelete(ctx context.Context, entryID uint64, noteID string) error

	// MarkConflict sets status=conflict and persists the conflict record;
	// returns the id of the (possibly already existing) conflict
	MarkConflict(ctx context.Context, entryID uint64, conflict *models.SyncConflict) (uint64, error)

	// ResolveConflict writes notes to the cache, marks the originating entry
	// synced and deletes the conflict record; later pending entries of the
	// conflicted note are rebased onto the note with the same id
	ResolveConflict(ctx context.Context, conflictID uint64, notes ...*models.Note) error
}
