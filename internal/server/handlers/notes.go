package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/iudanet/gennotes/internal/models"
	"github.com/iudanet/gennotes/internal/server/storage"
	"github.com/iudanet/gennotes/internal/validation"
	"github.com/iudanet/gennotes/pkg/api"
)

// NotesHandler реализует CRUD заметок текущего пользователя
type NotesHandler struct {
	responder
	storage storage.NoteStorage
	now     func() time.Time
}

// NewNotesHandler creates a new notes handler
func NewNotesHandler(logger *slog.Logger, storage storage.NoteStorage) *NotesHandler {
	return &NotesHandler{
		responder: responder{logger: logger},
		storage:   storage,
		now:       time.Now,
	}
}

// List обрабатывает GET /api/v1/notes
func (h *NotesHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	notes, err := h.storage.ListNotes(r.Context(), userID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list notes", slog.String("user_id", userID), slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	resp := make([]api.Note, 0, len(notes))
	for _, n := range notes {
		resp = append(resp, noteToAPI(n))
	}
	h.sendJSON(w, resp, http.StatusOK)
}

// Get обрабатывает GET /api/v1/notes/{id}
func (h *NotesHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	note, ok := h.load(w, r, userID)
	if !ok {
		return
	}
	h.sendJSON(w, noteToAPI(note), http.StatusOK)
}

// Create обрабатывает POST /api/v1/notes
// Сервер назначает id и временные метки
func (h *NotesHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	patch, ok := h.decodePatch(w, r)
	if !ok {
		return
	}

	now := h.timestamp()
	note := (&models.Note{
		ID:        uuid.New().String(),
		Tags:      []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}).Apply(patch)

	if err := h.storage.CreateNote(ctx, userID, note); err != nil {
		h.logger.ErrorContext(ctx, "failed to create note", slog.String("user_id", userID), slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "note created", slog.String("user_id", userID), slog.String("note_id", note.ID))
	h.sendJSON(w, noteToAPI(note), http.StatusCreated)
}

// Update обрабатывает PUT /api/v1/notes/{id}
// Применяет частичное изменение; updatedAt строго растет с каждой правкой
func (h *NotesHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	patch, ok := h.decodePatch(w, r)
	if !ok {
		return
	}

	current, ok := h.load(w, r, userID)
	if !ok {
		return
	}

	updated := current.Apply(patch)
	updated.UpdatedAt = h.timestamp()
	if !updated.UpdatedAt.After(current.UpdatedAt) {
		updated.UpdatedAt = current.UpdatedAt.Add(time.Millisecond)
	}

	if err := h.storage.UpdateNote(ctx, userID, updated); err != nil {
		if errors.Is(err, storage.ErrNoteNotFound) {
			h.sendError(w, "note not found", http.StatusNotFound)
			return
		}
		h.logger.ErrorContext(ctx, "failed to update note", slog.String("note_id", updated.ID), slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.sendJSON(w, noteToAPI(updated), http.StatusOK)
}

// Delete обрабатывает DELETE /api/v1/notes/{id}
func (h *NotesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	id := mux.Vars(r)["id"]
	if err := h.storage.DeleteNote(ctx, userID, id); err != nil {
		if errors.Is(err, storage.ErrNoteNotFound) {
			h.sendError(w, "note not found", http.StatusNotFound)
			return
		}
		h.logger.ErrorContext(ctx, "failed to delete note", slog.String("note_id", id), slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "note deleted", slog.String("user_id", userID), slog.String("note_id", id))
	w.WriteHeader(http.StatusNoContent)
}

func (h *NotesHandler) load(w http.ResponseWriter, r *http.Request, userID string) (*models.Note, bool) {
	id := mux.Vars(r)["id"]

	note, err := h.storage.GetNote(r.Context(), userID, id)
	if err != nil {
		if errors.Is(err, storage.ErrNoteNotFound) {
			h.sendError(w, "note not found", http.StatusNotFound)
			return nil, false
		}
		h.logger.ErrorContext(r.Context(), "failed to get note", slog.String("note_id", id), slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return nil, false
	}
	return note, true
}

func (h *NotesHandler) decodePatch(w http.ResponseWriter, r *http.Request) (*models.NotePatch, bool) {
	var req api.NoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(r.Context(), "failed to decode note request", slog.Any("error", err))
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return nil, false
	}

	patch := patchFromAPI(req)
	if err := validation.ValidatePatch(patch); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	return patch, true
}

// timestamp время сервера с точностью JSON представления (миллисекунды)
func (h *NotesHandler) timestamp() time.Time {
	return h.now().UTC().Truncate(time.Millisecond)
}

func patchFromAPI(req api.NoteRequest) *models.NotePatch {
	return (&models.NotePatch{
		Title:    req.Title,
		Content:  req.Content,
		FolderID: req.FolderID,
		Color:    req.Color,
		Tags:     req.Tags,
		Pinned:   req.Pinned,
		Archived: req.Archived,
		Locked:   req.Locked,
	}).Clone()
}

func noteToAPI(n *models.Note) api.Note {
	tags := slices.Clone(n.Tags)
	if tags == nil {
		tags = []string{}
	}
	return api.Note{
		ID:        n.ID,
		Title:     n.Title,
		Content:   n.Content,
		FolderID:  n.FolderID,
		Color:     n.Color,
		Tags:      tags,
		Pinned:    n.Pinned,
		Archived:  n.Archived,
		Locked:    n.Locked,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}
