// Package conflict terminates sync conflicts with one of the user-chosen strategies.
package conflict

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/iudanet/gennotes/internal/client/storage"
	"github.com/iudanet/gennotes/internal/models"
)

// LocalCopySuffix добавляется к заголовку копии, созданной стратегией keep-both
const LocalCopySuffix = " (Local Copy)"

// Strategy способ разрешения конфликта
type Strategy string

const (
	KeepServer Strategy = "keep-server"
	KeepLocal  Strategy = "keep-local"
	KeepBoth   Strategy = "keep-both"
)

// Strategies lists the supported strategies in presentation order
var Strategies = []Strategy{KeepServer, KeepLocal, KeepBoth}

// ErrUnknownStrategy strategy is not one of Strategies
var ErrUnknownStrategy = errors.New("unknown resolution strategy")

// ParseStrategy converts user input into a Strategy
func ParseStrategy(s string) (Strategy, error) {
	for _, st := range Strategies {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
}

// ResolveError разрешение не удалось; конфликт остался на месте
type ResolveError struct {
	Err        error
	Strategy   Strategy
	ConflictID uint64
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("failed to resolve conflict %d with %s: %v", e.ConflictID, e.Strategy, e.Err)
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}

//go:generate moq -out notesapi_mock.go . NotesAPI

// NotesAPI серверные операции, нужные для разрешения конфликтов
type NotesAPI interface {
	GetNote(ctx context.Context, token, id string) (*models.Note, error)
	CreateNote(ctx context.Context, token string, patch *models.NotePatch) (*models.Note, error)
	UpdateNote(ctx context.Context, token, id string, patch *models.NotePatch) (*models.Note, error)
}

// Store коллекции хранилища, нужные resolver
type Store interface {
	storage.ConflictStorage
	storage.AuthStorage
	storage.Transitions
}

// Resolver применяет стратегии разрешения. Ошибки не повторяются автоматически:
// разрешение - явное решение пользователя.
type Resolver struct {
	api    NotesAPI
	store  Store
	logger *slog.Logger
}

// NewResolver creates a new conflict resolver
func NewResolver(api NotesAPI, store Store, logger *slog.Logger) *Resolver {
	return &Resolver{
		api:    api,
		store:  store,
		logger: logger,
	}
}

// List returns unresolved conflicts, oldest first
func (r *Resolver) List(ctx context.Context) ([]*models.SyncConflict, error) {
	conflicts, err := r.store.ListConflicts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list conflicts: %w", err)
	}
	return conflicts, nil
}

// Get returns a single conflict
func (r *Resolver) Get(ctx context.Context, id uint64) (*models.SyncConflict, error) {
	c, err := r.store.GetConflict(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get conflict: %w", err)
	}
	return c, nil
}

// Resolve applies strategy to the conflict and returns the note that now
// represents the user's choice
func (r *Resolver) Resolve(ctx context.Context, id uint64, strategy Strategy) (*models.Note, error) {
	switch strategy {
	case KeepServer:
		return r.KeepServer(ctx, id)
	case KeepLocal:
		return r.KeepLocal(ctx, id)
	case KeepBoth:
		return r.KeepBoth(ctx, id)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}
}

// KeepServer discards the local payload and caches the captured server record
func (r *Resolver) KeepServer(ctx context.Context, id uint64) (*models.Note, error) {
	c, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Server == nil {
		return nil, &ResolveError{ConflictID: id, Strategy: KeepServer, Err: errors.New("conflict has no server record")}
	}

	if err := r.store.ResolveConflict(ctx, id, c.Server); err != nil {
		return nil, &ResolveError{ConflictID: id, Strategy: KeepServer, Err: err}
	}

	r.logger.Info("Conflict resolved", "conflict_id", id, "note_id", c.NoteID, "strategy", KeepServer)
	return c.Server, nil
}

// KeepLocal overwrites the server with the local payload unconditionally
func (r *Resolver) KeepLocal(ctx context.Context, id uint64) (*models.Note, error) {
	c, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	token, err := r.store.GetAuthToken(ctx)
	if err != nil {
		return nil, &ResolveError{ConflictID: id, Strategy: KeepLocal, Err: err}
	}

	note, err := r.api.UpdateNote(ctx, token, c.NoteID, c.Local)
	if err != nil {
		return nil, &ResolveError{ConflictID: id, Strategy: KeepLocal, Err: err}
	}

	if err := r.store.ResolveConflict(ctx, id, note); err != nil {
		return nil, &ResolveError{ConflictID: id, Strategy: KeepLocal, Err: err}
	}

	r.logger.Info("Conflict resolved", "conflict_id", id, "note_id", c.NoteID, "strategy", KeepLocal)
	return note, nil
}

// KeepBoth leaves the server record intact and creates a new note from the
// local edits merged over the current server record
func (r *Resolver) KeepBoth(ctx context.Context, id uint64) (*models.Note, error) {
	c, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	token, err := r.store.GetAuthToken(ctx)
	if err != nil {
		return nil, &ResolveError{ConflictID: id, Strategy: KeepBoth, Err: err}
	}

	// Берем актуальную версию: с момента конфликта она могла измениться
	server, err := r.api.GetNote(ctx, token, c.NoteID)
	if err != nil {
		return nil, &ResolveError{ConflictID: id, Strategy: KeepBoth, Err: err}
	}

	payload := server.Merge(c.Local)
	title := *payload.Title + LocalCopySuffix
	payload.Title = &title

	created, err := r.api.CreateNote(ctx, token, payload)
	if err != nil {
		return nil, &ResolveError{ConflictID: id, Strategy: KeepBoth, Err: err}
	}

	if err := r.store.ResolveConflict(ctx, id, server, created); err != nil {
		return nil, &ResolveError{ConflictID: id, Strategy: KeepBoth, Err: err}
	}

	r.logger.Info("Conflict resolved",
		"conflict_id", id,
		"note_id", c.NoteID,
		"copy_id", created.ID,
		"strategy", KeepBoth)
	return created, nil
}
