package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	httpClient "github.com/iudanet/gennotes/internal/client/api"
	"github.com/iudanet/gennotes/internal/client/storage"
	"github.com/iudanet/gennotes/internal/models"
)

//go:generate moq -out notesapi_mock.go . NotesAPI

// NotesAPI серверные операции, которыми воспроизводится очередь
type NotesAPI interface {
	GetNote(ctx context.Context, token, id string) (*models.Note, error)
	CreateNote(ctx context.Context, token string, patch *models.NotePatch) (*models.Note, error)
	UpdateNote(ctx context.Context, token, id string, patch *models.NotePatch) (*models.Note, error)
	DeleteNote(ctx context.Context, token, id string) error
}

// Store коллекции хранилища, нужные executor
type Store interface {
	storage.QueueStorage
	storage.AuthStorage
	storage.MetadataStorage
	storage.Transitions
}

// Result итог одного прохода по очереди
type Result struct {
	Processed int // записей взято в работу
	Succeeded int // подтверждено сервером
	Failed    int // ошибка сети/HTTP/хранилища, будут повторены
	Conflicts int // отложено до ручного разрешения
	Deferred  int // не отправлялись: более ранняя запись той же заметки не подтверждена
}

// Executor воспроизводит очередь на сервере строго по порядку id
type Executor struct {
	api    NotesAPI
	store  Store
	logger *slog.Logger
	now    func() time.Time
	mu     sync.Mutex
}

// NewExecutor creates a new sync executor
func NewExecutor(api NotesAPI, store Store, logger *slog.Logger) *Executor {
	return &Executor{
		api:    api,
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Run performs one pass over the pending entries.
//
// Entries are processed sequentially in ascending id order; entries waiting for
// conflict resolution are skipped. Individual failures are recorded on the entry
// and never abort the pass.
func (e *Executor) Run(ctx context.Context) (*Result, error) {
	// Проходы внутри одного процесса не пересекаются
	e.mu.Lock()
	defer e.mu.Unlock()

	e.logger.Info("Starting sync pass")

	token, err := e.store.GetAuthToken(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrAuthNotFound) {
			e.recordMissingToken(ctx)
			return &Result{}, ErrMissingToken
		}
		return nil, fmt.Errorf("failed to get auth token: %w", err)
	}

	pending, err := e.store.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending entries: %w", err)
	}

	result := &Result{}
	// Серверные ID заметок, созданных в этом проходе
	created := make(map[string]string)
	// Заметки, у которых есть неподтвержденная более ранняя запись.
	// Их последующие записи ждут следующего прохода, чтобы не нарушить порядок.
	blocked := make(map[string]bool)

	for _, queued := range pending {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if queued.Status == models.StatusConflict {
			blocked[queued.NoteID] = true
			continue
		}

		// Перечитываем запись: предыдущие шаги прохода могли переписать noteId и base
		entry, err := e.store.GetEntry(ctx, queued.ID)
		if err != nil {
			e.logger.Error("Failed to reload queue entry", "entry_id", queued.ID, "error", err)
			result.Processed++
			result.Failed++
			continue
		}
		if !entry.IsRetryable() {
			continue
		}
		if id, ok := created[entry.NoteID]; ok {
			entry.NoteID = id
		}
		if blocked[entry.NoteID] || blocked[queued.NoteID] {
			result.Deferred++
			e.logger.Debug("Entry deferred behind an unconfirmed mutation", "entry_id", entry.ID, "note_id", entry.NoteID)
			continue
		}

		result.Processed++
		if !e.process(ctx, token, entry, result, created) {
			blocked[entry.NoteID] = true
			blocked[queued.NoteID] = true
		}

		if err := ctx.Err(); err != nil {
			return result, err
		}
	}

	if err := e.store.SetLastSync(ctx, e.now()); err != nil {
		e.logger.Warn("Failed to save last sync time", "error", err)
	}

	e.logger.Info("Sync pass completed",
		"processed", result.Processed,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
		"conflicts", result.Conflicts,
		"deferred", result.Deferred)

	return result, nil
}

// PendingCount returns the number of entries not yet confirmed by the server
func (e *Executor) PendingCount(ctx context.Context) (int, error) {
	count, err := e.store.CountPending(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending entries: %w", err)
	}
	return count, nil
}

// process отправляет одну запись; false означает, что запись осталась неподтвержденной
func (e *Executor) process(ctx context.Context, token string, entry *models.SyncQueueEntry, result *Result, created map[string]string) bool {
	log := e.logger.With("entry_id", entry.ID, "note_id", entry.NoteID, "action", entry.Action)

	switch entry.Action {
	case models.ActionCreate:
		note, err := e.api.CreateNote(ctx, token, entry.Payload)
		if err != nil {
			e.fail(ctx, log, entry, err, result)
			return false
		}
		if err := e.store.CompleteCreate(ctx, entry.ID, entry.NoteID, note); err != nil {
			e.storeFailed(ctx, log, entry, err, result, nil)
			return false
		}
		created[entry.NoteID] = note.ID
		log.Info("Note created on server", "server_id", note.ID)

	case models.ActionUpdate:
		if models.IsLocalID(entry.NoteID) {
			e.fail(ctx, log, entry, errNotCreated, result)
			return false
		}

		if entry.BaseUpdatedAt != nil {
			server, err := e.api.GetNote(ctx, token, entry.NoteID)
			if err != nil {
				e.fail(ctx, log, entry, err, result)
				return false
			}
			if server.UpdatedAt.After(*entry.BaseUpdatedAt) {
				e.conflict(ctx, log, entry, server, result)
				return false
			}
		}

		note, err := e.api.UpdateNote(ctx, token, entry.NoteID, entry.Payload)
		if err != nil {
			e.fail(ctx, log, entry, err, result)
			return false
		}
		if err := e.store.CompleteUpdate(ctx, entry.ID, note); err != nil {
			e.storeFailed(ctx, log, entry, err, result, note)
			return false
		}
		log.Info("Note updated on server")

	case models.ActionDelete:
		if models.IsLocalID(entry.NoteID) {
			e.fail(ctx, log, entry, errNotCreated, result)
			return false
		}

		// 404 означает, что записи на сервере уже нет: цель удаления достигнута
		if err := e.api.DeleteNote(ctx, token, entry.NoteID); err != nil && !httpClient.IsNotFound(err) {
			e.fail(ctx, log, entry, err, result)
			return false
		}
		if err := e.store.CompleteDelete(ctx, entry.ID, entry.NoteID); err != nil {
			e.storeFailed(ctx, log, entry, err, result, nil)
			return false
		}
		log.Info("Note deleted on server")

	default:
		e.fail(ctx, log, entry, fmt.Errorf("unknown action %q", entry.Action), result)
		return false
	}

	result.Succeeded++
	return true
}

func (e *Executor) conflict(ctx context.Context, log *slog.Logger, entry *models.SyncQueueEntry, server *models.Note, result *Result) {
	conflictID, err := e.store.MarkConflict(ctx, entry.ID, &models.SyncConflict{
		NoteID:        entry.NoteID,
		Local:         entry.Payload.Clone(),
		Server:        server,
		BaseUpdatedAt: entry.BaseUpdatedAt,
		CreatedAt:     e.now(),
	})
	if err != nil {
		e.storeFailed(ctx, log, entry, err, result, nil)
		return
	}

	result.Conflicts++
	log.Warn("Conflict detected",
		"conflict_id", conflictID,
		"base_updated_at", entry.BaseUpdatedAt,
		"server_updated_at", server.UpdatedAt)
}

// fail переводит запись в error и увеличивает счетчик попыток
func (e *Executor) fail(ctx context.Context, log *slog.Logger, entry *models.SyncQueueEntry, cause error, result *Result) {
	result.Failed++

	// Прерванный проход не считается попыткой
	if ctx.Err() != nil {
		return
	}

	log.Warn("Sync entry failed", "retry_count", entry.RetryCount+1, "error", cause)

	status := models.StatusError
	msg := cause.Error()
	if err := e.store.UpdateEntry(ctx, entry.ID, storage.EntryUpdate{
		Status:         &status,
		LastError:      &msg,
		IncrementRetry: true,
	}); err != nil {
		log.Error("Failed to record sync failure", "error", err)
	}
}

// storeFailed фиксирует на записи, что сервер ответил, а локальное хранилище нет.
// Если сервер уже принял update, база записи сдвигается на его версию.
func (e *Executor) storeFailed(ctx context.Context, log *slog.Logger, entry *models.SyncQueueEntry, cause error, result *Result, confirmed *models.Note) {
	result.Failed++
	log.Error("Failed to update local store after server call", "error", cause)

	status := models.StatusError
	msg := cause.Error()
	upd := storage.EntryUpdate{
		Status:         &status,
		LastError:      &msg,
		IncrementRetry: true,
	}
	if confirmed != nil && entry.Action == models.ActionUpdate && entry.BaseUpdatedAt != nil {
		base := confirmed.UpdatedAt
		upd.BaseUpdatedAt = &base
	}

	if err := e.store.UpdateEntry(ctx, entry.ID, upd); err != nil {
		log.Error("Failed to record sync failure", "error", err)
	}
}

// recordMissingToken помечает первую ожидающую запись, чтобы причина была видна в status
func (e *Executor) recordMissingToken(ctx context.Context) {
	e.logger.Warn("No auth token stored, sync skipped")

	pending, err := e.store.ListPending(ctx)
	if err != nil {
		e.logger.Error("Failed to list pending entries", "error", err)
		return
	}

	for _, entry := range pending {
		if entry.Status == models.StatusConflict {
			continue
		}
		status := models.StatusError
		msg := missingTokenError
		if err := e.store.UpdateEntry(ctx, entry.ID, storage.EntryUpdate{Status: &status, LastError: &msg}); err != nil {
			e.logger.Error("Failed to record missing token", "entry_id", entry.ID, "error", err)
		}
		return
	}
}
