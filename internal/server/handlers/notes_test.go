package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/gennotes/internal/models"
	"github.com/iudanet/gennotes/pkg/api"
)

func newNotesHandler(t *testing.T) (*NotesHandler, string, string) {
	t.Helper()

	db := setupTestStorage(t)
	var ids []string
	for _, name := range []string{"alice", "bob"} {
		user := &models.User{ID: uuid.New().String(), Username: name, PasswordHash: "hash", CreatedAt: time.Now()}
		require.NoError(t, db.CreateUser(context.Background(), user))
		ids = append(ids, user.ID)
	}

	h := NewNotesHandler(setupTestLogger(), db)
	return h, ids[0], ids[1]
}

func createNote(t *testing.T, h *NotesHandler, userID string, req api.NoteRequest) api.Note {
	t.Helper()

	w := httptest.NewRecorder()
	h.Create(w, newRequest(t, http.MethodPost, "/api/v1/notes", req, userID, nil))
	require.Equal(t, http.StatusCreated, w.Code)
	return decodeBody[api.Note](t, w)
}

func TestNotesHandler_CreateAndGet(t *testing.T) {
	h, alice, bob := newNotesHandler(t)
	now := time.Date(2024, 6, 1, 12, 0, 0, 123_456_789, time.UTC)
	h.now = func() time.Time { return now }

	created := createNote(t, h, alice, api.NoteRequest{
		Title: models.Ptr("Groceries"),
		Tags:  &[]string{"home"},
	})
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Groceries", created.Title)
	assert.Equal(t, []string{"home"}, created.Tags)
	assert.True(t, now.Truncate(time.Millisecond).Equal(created.UpdatedAt))
	assert.True(t, created.CreatedAt.Equal(created.UpdatedAt))

	w := httptest.NewRecorder()
	h.Get(w, newRequest(t, http.MethodGet, "/api/v1/notes/"+created.ID, nil, alice, map[string]string{"id": created.ID}))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, created, decodeBody[api.Note](t, w))

	// Чужая заметка не видна
	w = httptest.NewRecorder()
	h.Get(w, newRequest(t, http.MethodGet, "/api/v1/notes/"+created.ID, nil, bob, map[string]string{"id": created.ID}))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNotesHandler_CreateInvalid(t *testing.T) {
	h, alice, _ := newNotesHandler(t)

	tests := []struct {
		body any
		name string
	}{
		{name: "malformed", body: "not json"},
		{name: "duplicate tags", body: api.NoteRequest{Tags: &[]string{"a", "a"}}},
		{name: "empty tag", body: api.NoteRequest{Tags: &[]string{" "}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.Create(w, newRequest(t, http.MethodPost, "/api/v1/notes", tt.body, alice, nil))
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestNotesHandler_List(t *testing.T) {
	h, alice, bob := newNotesHandler(t)

	t0 := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := t0
	h.now = func() time.Time { return clock }

	first := createNote(t, h, alice, api.NoteRequest{Title: models.Ptr("first")})
	clock = t0.Add(time.Minute)
	second := createNote(t, h, alice, api.NoteRequest{Title: models.Ptr("second")})
	createNote(t, h, bob, api.NoteRequest{Title: models.Ptr("bob's")})

	w := httptest.NewRecorder()
	h.List(w, newRequest(t, http.MethodGet, "/api/v1/notes", nil, alice, nil))
	require.Equal(t, http.StatusOK, w.Code)

	notes := decodeBody[[]api.Note](t, w)
	require.Len(t, notes, 2)
	assert.Equal(t, second.ID, notes[0].ID)
	assert.Equal(t, first.ID, notes[1].ID)
}

func TestNotesHandler_Update(t *testing.T) {
	h, alice, _ := newNotesHandler(t)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return now }

	created := createNote(t, h, alice, api.NoteRequest{Title: models.Ptr("draft"), Content: models.Ptr("body")})
	vars := map[string]string{"id": created.ID}

	// Часы не сдвинулись: updatedAt все равно растет
	w := httptest.NewRecorder()
	h.Update(w, newRequest(t, http.MethodPut, "/api/v1/notes/"+created.ID, api.NoteRequest{Pinned: models.Ptr(true)}, alice, vars))
	require.Equal(t, http.StatusOK, w.Code)

	updated := decodeBody[api.Note](t, w)
	assert.True(t, updated.Pinned)
	assert.Equal(t, "draft", updated.Title, "fields outside the patch are kept")
	assert.Equal(t, "body", updated.Content)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))
	assert.True(t, created.CreatedAt.Equal(updated.CreatedAt))

	w = httptest.NewRecorder()
	h.Update(w, newRequest(t, http.MethodPut, "/api/v1/notes/missing", api.NoteRequest{Pinned: models.Ptr(true)}, alice, map[string]string{"id": "missing"}))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNotesHandler_Delete(t *testing.T) {
	h, alice, bob := newNotesHandler(t)

	created := createNote(t, h, alice, api.NoteRequest{Title: models.Ptr("tmp")})
	vars := map[string]string{"id": created.ID}

	w := httptest.NewRecorder()
	h.Delete(w, newRequest(t, http.MethodDelete, "/api/v1/notes/"+created.ID, nil, bob, vars))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	h.Delete(w, newRequest(t, http.MethodDelete, "/api/v1/notes/"+created.ID, nil, alice, vars))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	h.Delete(w, newRequest(t, http.MethodDelete, "/api/v1/notes/"+created.ID, nil, alice, vars))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNotesHandler_Unauthorized(t *testing.T) {
	h, _, _ := newNotesHandler(t)

	w := httptest.NewRecorder()
	h.List(w, newRequest(t, http.MethodGet, "/api/v1/notes", nil, "", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
