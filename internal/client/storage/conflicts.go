package storage

import (
	"context"

	"github.com/iudanet/gennotes/internal/models"
)

//go:generate moq -out conflictstorage_mock.go . ConflictStorage

// ConflictStorage хранит неразрешенные конфликты.
// Конфликты - пользовательские данные, ClearAll их не удаляет.
type ConflictStorage interface {
	// SaveConflict assigns an id when conflict.ID is zero
	SaveConflict(ctx context.Context, conflict *models.SyncConflict) (uint64, error)

	// GetConflict returns ErrConflictNotFound if the record does not exist
	GetConflict(ctx context.Context, id uint64) (*models.SyncConflict, error)

	// ListConflicts returns conflicts in ascending id order
	ListConflicts(ctx context.Context) ([]*models.SyncConflict, error)

	// DeleteConflict returns ErrConflictNotFound if the record does not exist
	DeleteConflict(ctx context.Context, id uint64) error
}
