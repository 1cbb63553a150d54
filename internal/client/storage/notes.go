package storage

import (
	"context"

	"github.com/iudanet/gennotes/internal/models"
)

// ReplaceResult итог замены кеша серверным списком
type ReplaceResult struct {
	Updated int // записей кеша заменено серверной версией
	Removed int // удалено из кеша (нет в серверном списке)
	Skipped int // пропущено из-за ожидающих мутаций
}

//go:generate moq -out notestorage_mock.go . NoteStorage

// NoteStorage локальное зеркало серверных заметок
type NoteStorage interface {
	// PutNote overwrites the note wholesale, keyed by note ID
	PutNote(ctx context.Context, note *models.Note) error

	// GetNote returns ErrNoteNotFound if the note is not cached
	GetNote(ctx context.Context, id string) (*models.Note, error)

	// GetAllNotes returns every cached note
	GetAllNotes(ctx context.Context) ([]*models.Note, error)

	// DeleteNote removes the note; deleting a missing note is not an error
	DeleteNote(ctx context.Context, id string) error

	// ReplaceClean makes the cache match notes in one transaction. Notes
	// referenced by unsynced queue entries and offline placeholders are
	// neither overwritten nor removed.
	ReplaceClean(ctx context.Context, notes []*models.Note) (*ReplaceResult, error)

	// SaveTags replaces the known tag names
	SaveTags(ctx context.Context, tags []string) error

	// ListTags returns known tag names sorted
	ListTags(ctx context.Context) ([]string, error)

	// SaveFolders replaces the known folder ids
	SaveFolders(ctx context.Context, folders []string) error

	// ListFolders returns known folder ids sorted
	ListFolders(ctx context.Context) ([]string, error)
}
