// Package queue records local note mutations for later replay against the server.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iudanet/gennotes/internal/client/storage"
	"github.com/iudanet/gennotes/internal/models"
)

var (
	// ErrInvalidAction action is not one of create, update, delete
	ErrInvalidAction = errors.New("invalid sync action")
	// ErrEmptyNoteID mutation without a target note
	ErrEmptyNoteID = errors.New("note id is required")
)

// Options дополнительные параметры записи мутации
type Options struct {
	// BaseUpdatedAt версия сервера, с которой начиналось редактирование.
	// Учитывается только для update; nil отключает обнаружение конфликтов.
	BaseUpdatedAt *time.Time
}

// Writer записывает мутации в очередь. Сетевых запросов не делает никогда.
type Writer struct {
	store  storage.QueueStorage
	logger *slog.Logger
	now    func() time.Time
}

// NewWriter creates a new queue writer
func NewWriter(store storage.QueueStorage, logger *slog.Logger) *Writer {
	return &Writer{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// RecordMutation appends a pending entry and returns its id
func (w *Writer) RecordMutation(ctx context.Context, noteID string, action models.SyncAction, payload *models.NotePatch, opts Options) (uint64, error) {
	entry, err := w.buildEntry(noteID, action, payload, opts)
	if err != nil {
		return 0, err
	}

	id, err := w.store.Enqueue(ctx, entry)
	if err != nil {
		return 0, fmt.Errorf("failed to record %s of note %s: %w", action, noteID, err)
	}

	w.logger.Debug("Mutation recorded", "entry_id", id, "note_id", noteID, "action", action)
	return id, nil
}

// RecordWithNote records the mutation and applies the optimistic cache change
// in one transaction. For delete the note argument is ignored.
func (w *Writer) RecordWithNote(ctx context.Context, noteID string, action models.SyncAction, payload *models.NotePatch, opts Options, note *models.Note) (uint64, error) {
	entry, err := w.buildEntry(noteID, action, payload, opts)
	if err != nil {
		return 0, err
	}

	id, err := w.store.EnqueueWithNote(ctx, entry, note)
	if err != nil {
		return 0, fmt.Errorf("failed to record %s of note %s: %w", action, noteID, err)
	}

	w.logger.Debug("Mutation recorded with cache update", "entry_id", id, "note_id", noteID, "action", action)
	return id, nil
}

func (w *Writer) buildEntry(noteID string, action models.SyncAction, payload *models.NotePatch, opts Options) (*models.SyncQueueEntry, error) {
	if !action.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}
	if noteID == "" {
		return nil, ErrEmptyNoteID
	}

	entry := &models.SyncQueueEntry{
		NoteID:    noteID,
		Action:    action,
		Timestamp: w.now(),
	}

	if action != models.ActionDelete {
		entry.Payload = payload.Clone()
	}
	if action == models.ActionUpdate && opts.BaseUpdatedAt != nil {
		base := *opts.BaseUpdatedAt
		entry.BaseUpdatedAt = &base
	}

	return entry, nil
}
