// Package notes implements application-facing note operations on top of the
// local cache and the sync queue.
package notes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/gennotes/internal/client/queue"
	"github.com/iudanet/gennotes/internal/client/storage"
	"github.com/iudanet/gennotes/internal/models"
	"github.com/iudanet/gennotes/internal/validation"
)

// ErrEmptyPatch update без изменяемых полей
var ErrEmptyPatch = errors.New("nothing to update")

//go:generate moq -out remote_mock.go . Remote

// Remote серверные операции, нужные для обновления кеша
type Remote interface {
	ListNotes(ctx context.Context, token string) ([]*models.Note, error)
}

// Store коллекции хранилища, с которыми работает сервис
type Store interface {
	storage.NoteStorage
	storage.QueueStorage
	storage.AuthStorage
}

// RefreshResult итог загрузки заметок с сервера
type RefreshResult struct {
	Updated int // записей кеша заменено серверной версией
	Removed int // удалено из кеша (удалены на сервере)
	Skipped int // пропущено из-за ожидающих мутаций
}

// Service работает с заметками офлайн: изменения сразу попадают в кеш и очередь
type Service struct {
	store  Store
	writer *queue.Writer
	remote Remote
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a new notes service
func NewService(store Store, writer *queue.Writer, remote Remote, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		writer: writer,
		remote: remote,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create creates a note locally under a placeholder id and queues its creation
func (s *Service) Create(ctx context.Context, patch *models.NotePatch) (*models.Note, error) {
	if patch == nil {
		patch = &models.NotePatch{}
	}
	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	// Генерируем временный ID
	id := models.LocalIDPrefix + uuid.NewString()

	note := (&models.Note{
		ID:        id,
		Tags:      []string{},
		CreatedAt: s.now(),
		Local:     true,
	}).Apply(patch)

	if _, err := s.writer.RecordWithNote(ctx, id, models.ActionCreate, patch, queue.Options{}, note); err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}

	s.logger.Info("Note created locally", "note_id", id)
	return note, nil
}

// Update applies patch to the cached note and queues the change together with
// the server version it is based on
func (s *Service) Update(ctx context.Context, id string, patch *models.NotePatch) (*models.Note, error) {
	if patch.IsEmpty() {
		return nil, ErrEmptyPatch
	}
	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	cached, err := s.store.GetNote(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get note: %w", err)
	}

	// Локальная правка не меняет UpdatedAt: он остается базой для обнаружения конфликтов
	base := cached.UpdatedAt
	updated := cached.Apply(patch)

	if _, err := s.writer.RecordWithNote(ctx, id, models.ActionUpdate, patch, queue.Options{BaseUpdatedAt: &base}, updated); err != nil {
		return nil, fmt.Errorf("failed to update note: %w", err)
	}

	s.logger.Info("Note updated locally", "note_id", id)
	return updated, nil
}

// Delete removes the note from the cache and queues the deletion
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.store.GetNote(ctx, id); err != nil {
		return fmt.Errorf("failed to get note: %w", err)
	}

	if _, err := s.writer.RecordWithNote(ctx, id, models.ActionDelete, nil, queue.Options{}, nil); err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}

	s.logger.Info("Note deleted locally", "note_id", id)
	return nil
}

// Get returns the cached note
func (s *Service) Get(ctx context.Context, id string) (*models.Note, error) {
	note, err := s.store.GetNote(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get note: %w", err)
	}
	return note, nil
}

// ListOptions фильтры списка заметок
type ListOptions struct {
	Tag             string
	FolderID        string
	IncludeArchived bool
}

// List returns cached notes: pinned first, then most recently updated
func (s *Service) List(ctx context.Context, opts ListOptions) ([]*models.Note, error) {
	all, err := s.store.GetAllNotes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}

	notes := make([]*models.Note, 0, len(all))
	for _, n := range all {
		if n.Archived && !opts.IncludeArchived {
			continue
		}
		if opts.FolderID != "" && n.FolderID != opts.FolderID {
			continue
		}
		if opts.Tag != "" && !hasTag(n, opts.Tag) {
			continue
		}
		notes = append(notes, n)
	}

	sort.SliceStable(notes, func(i, j int) bool {
		if notes[i].Pinned != notes[j].Pinned {
			return notes[i].Pinned
		}
		if !notes[i].UpdatedAt.Equal(notes[j].UpdatedAt) {
			return notes[i].UpdatedAt.After(notes[j].UpdatedAt)
		}
		return notes[i].ID < notes[j].ID
	})

	return notes, nil
}

// Tags returns the tag names seen on the server during the last refresh
func (s *Service) Tags(ctx context.Context) ([]string, error) {
	return s.store.ListTags(ctx)
}

// Refresh replaces the cache with the server state. Notes with unsynced
// mutations and offline placeholders are left untouched.
func (s *Service) Refresh(ctx context.Context) (*RefreshResult, error) {
	token, err := s.store.GetAuthToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get auth token: %w", err)
	}

	remote, err := s.remote.ListNotes(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch notes: %w", err)
	}

	replaced, err := s.store.ReplaceClean(ctx, remote)
	if err != nil {
		return nil, fmt.Errorf("failed to replace cached notes: %w", err)
	}
	result := &RefreshResult{
		Updated: replaced.Updated,
		Removed: replaced.Removed,
		Skipped: replaced.Skipped,
	}

	tags := map[string]bool{}
	folders := map[string]bool{}
	for _, n := range remote {
		for _, tag := range n.Tags {
			tags[tag] = true
		}
		if n.FolderID != "" {
			folders[n.FolderID] = true
		}
	}

	if err := s.store.SaveTags(ctx, keys(tags)); err != nil {
		s.logger.Warn("Failed to save tags", "error", err)
	}
	if err := s.store.SaveFolders(ctx, keys(folders)); err != nil {
		s.logger.Warn("Failed to save folders", "error", err)
	}

	s.logger.Info("Notes refreshed",
		"updated", result.Updated,
		"removed", result.Removed,
		"skipped", result.Skipped)

	return result, nil
}

func hasTag(n *models.Note, tag string) bool {
	for _, t := range n.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

func keys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func validatePatch(patch *models.NotePatch) error {
	if err := validation.ValidatePatch(patch); err != nil {
		return fmt.Errorf("invalid note: %w", err)
	}
	return nil
}
