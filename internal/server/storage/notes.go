package storage

import (
	"context"

	"github.com/iudanet/gennotes/internal/models"
)

// NoteStorage хранит заметки пользователей.
// Все операции ограничены владельцем: чужая заметка неотличима от отсутствующей.
type NoteStorage interface {
	// CreateNote inserts a new note owned by userID
	CreateNote(ctx context.Context, userID string, note *models.Note) error

	// GetNote returns ErrNoteNotFound for missing or foreign notes
	GetNote(ctx context.Context, userID, id string) (*models.Note, error)

	// ListNotes returns user's notes, most recently updated first
	ListNotes(ctx context.Context, userID string) ([]*models.Note, error)

	// UpdateNote replaces the stored note with the same id
	UpdateNote(ctx context.Context, userID string, note *models.Note) error

	// DeleteNote removes the note; returns ErrNoteNotFound if nothing was deleted
	DeleteNote(ctx context.Context, userID, id string) error
}
