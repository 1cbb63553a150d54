package boltdb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/gennotes/internal/client/storage"
	"github.com/iudanet/gennotes/internal/models"
)

func TestNotes_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	updated := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	note := &models.Note{
		ID:        "n1",
		Title:     "Groceries",
		Content:   "milk",
		Tags:      []string{"home"},
		Pinned:    true,
		UpdatedAt: updated,
	}

	_, err := store.GetNote(ctx, "n1")
	assert.ErrorIs(t, err, storage.ErrNoteNotFound)

	require.NoError(t, store.PutNote(ctx, note))

	got, err := store.GetNote(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, note, got)

	// Запись заменяется целиком
	require.NoError(t, store.PutNote(ctx, &models.Note{ID: "n1", Title: "Replaced"}))
	got, err = store.GetNote(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, "Replaced", got.Title)
	assert.Empty(t, got.Content)
	assert.Empty(t, got.Tags)

	require.NoError(t, store.DeleteNote(ctx, "n1"))
	_, err = store.GetNote(ctx, "n1")
	assert.ErrorIs(t, err, storage.ErrNoteNotFound)

	// Удаление отсутствующей заметки не ошибка
	assert.NoError(t, store.DeleteNote(ctx, "n1"))
}

func TestNotes_GetAll(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	notes, err := store.GetAllNotes(ctx)
	require.NoError(t, err)
	assert.Empty(t, notes)

	for _, id := range []string{"b", "a", "local-1"} {
		require.NoError(t, store.PutNote(ctx, &models.Note{ID: id}))
	}

	notes, err = store.GetAllNotes(ctx)
	require.NoError(t, err)
	require.Len(t, notes, 3)
	assert.Equal(t, "a", notes[0].ID)
	assert.Equal(t, "b", notes[1].ID)
	assert.Equal(t, "local-1", notes[2].ID)
}

func TestNotes_PutWithoutID(t *testing.T) {
	store := newTestStorage(t)

	err := store.PutNote(context.Background(), &models.Note{Title: "no id"})
	var ioErr *storage.IOError
	assert.ErrorAs(t, err, &ioErr)
}

func TestTagsAndFolders(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	require.NoError(t, store.SaveTags(ctx, []string{"work", "home", "", "work"}))
	tags, err := store.ListTags(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"home", "work"}, tags)

	// Набор заменяется целиком
	require.NoError(t, store.SaveTags(ctx, []string{"travel"}))
	tags, err = store.ListTags(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"travel"}, tags)

	require.NoError(t, store.SaveFolders(ctx, []string{"f2", "f1"}))
	folders, err := store.ListFolders(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"f1", "f2"}, folders)
}

func TestNotes_ReplaceClean(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	serverTime := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	// n2 правится локально, n3 удален на сервере, n4 удален и правится локально
	require.NoError(t, store.PutNote(ctx, &models.Note{ID: "n1", Title: "stale"}))
	require.NoError(t, store.PutNote(ctx, &models.Note{ID: "n2", Title: "mine"}))
	require.NoError(t, store.PutNote(ctx, &models.Note{ID: "n3"}))
	require.NoError(t, store.PutNote(ctx, &models.Note{ID: "n4", Title: "edited offline"}))
	require.NoError(t, store.PutNote(ctx, &models.Note{ID: models.LocalIDPrefix + "1", Title: "draft", Local: true}))

	for _, id := range []string{"n2", "n4"} {
		_, err := store.Enqueue(ctx, &models.SyncQueueEntry{NoteID: id, Action: models.ActionUpdate, BaseUpdatedAt: &serverTime})
		require.NoError(t, err)
	}
	// Подтвержденная запись не делает заметку грязной
	synced, err := store.Enqueue(ctx, &models.SyncQueueEntry{NoteID: "n1", Action: models.ActionUpdate})
	require.NoError(t, err)
	require.NoError(t, store.MarkSynced(ctx, synced))

	result, err := store.ReplaceClean(ctx, []*models.Note{
		{ID: "n1", Title: "server n1", UpdatedAt: serverTime},
		{ID: "n2", Title: "server n2", UpdatedAt: serverTime},
		{ID: "n5", Title: "new on server", UpdatedAt: serverTime},
	})
	require.NoError(t, err)
	assert.Equal(t, &storage.ReplaceResult{Updated: 2, Removed: 1, Skipped: 1}, result)

	titles := map[string]string{}
	notes, err := store.GetAllNotes(ctx)
	require.NoError(t, err)
	for _, n := range notes {
		titles[n.ID] = n.Title
	}
	assert.Equal(t, map[string]string{
		"n1":                       "server n1",
		"n2":                       "mine",
		"n4":                       "edited offline",
		"n5":                       "new on server",
		models.LocalIDPrefix + "1": "draft",
	}, titles)
}

func TestNotes_ReplaceCleanEmptyList(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	require.NoError(t, store.PutNote(ctx, &models.Note{ID: "n1"}))

	result, err := store.ReplaceClean(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, &storage.ReplaceResult{Removed: 1}, result)

	notes, err := store.GetAllNotes(ctx)
	require.NoError(t, err)
	assert.Empty(t, notes)
}
