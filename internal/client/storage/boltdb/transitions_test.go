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

func TestCompleteCreate_MigratesPlaceholder(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	placeholder := &models.Note{ID: "local-abc", Title: "Draft", Local: true}
	createID, err := store.EnqueueWithNote(ctx, &models.SyncQueueEntry{
		NoteID:  placeholder.ID,
		Action:  models.ActionCreate,
		Payload: &models.NotePatch{Title: models.Ptr("Draft")},
	}, placeholder)
	require.NoError(t, err)

	// Последующая офлайн правка той же заметки
	edited := placeholder.Apply(&models.NotePatch{Content: models.Ptr("body")})
	updateID, err := store.EnqueueWithNote(ctx, &models.SyncQueueEntry{
		NoteID:        placeholder.ID,
		Action:        models.ActionUpdate,
		Payload:       &models.NotePatch{Content: models.Ptr("body")},
		BaseUpdatedAt: &time.Time{},
	}, edited)
	require.NoError(t, err)

	// Запись другой заметки не затрагивается
	otherID, err := store.Enqueue(ctx, &models.SyncQueueEntry{NoteID: "n-other", Action: models.ActionDelete})
	require.NoError(t, err)

	serverUpdated := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	server := &models.Note{ID: "srv-1", Title: "Draft", UpdatedAt: serverUpdated, CreatedAt: serverUpdated}
	require.NoError(t, store.CompleteCreate(ctx, createID, placeholder.ID, server))

	_, err = store.GetNote(ctx, placeholder.ID)
	assert.ErrorIs(t, err, storage.ErrNoteNotFound)

	cached, err := store.GetNote(ctx, "srv-1")
	require.NoError(t, err)
	assert.False(t, cached.Local)
	assert.Equal(t, "Draft", cached.Title)
	assert.Equal(t, "body", cached.Content, "pending edit stays visible")
	assert.True(t, serverUpdated.Equal(cached.UpdatedAt))

	create, err := store.GetEntry(ctx, createID)
	require.NoError(t, err)
	assert.True(t, create.Synced)
	assert.Equal(t, models.StatusSynced, create.Status)

	update, err := store.GetEntry(ctx, updateID)
	require.NoError(t, err)
	assert.Equal(t, "srv-1", update.NoteID)
	require.NotNil(t, update.BaseUpdatedAt)
	assert.True(t, serverUpdated.Equal(*update.BaseUpdatedAt))
	assert.False(t, update.Synced)

	other, err := store.GetEntry(ctx, otherID)
	require.NoError(t, err)
	assert.Equal(t, "n-other", other.NoteID)
}

func TestCompleteCreate_PendingDeleteKeepsNoteOutOfCache(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	placeholder := &models.Note{ID: "local-x", Local: true}
	createID, err := store.EnqueueWithNote(ctx, &models.SyncQueueEntry{NoteID: placeholder.ID, Action: models.ActionCreate}, placeholder)
	require.NoError(t, err)
	deleteID, err := store.EnqueueWithNote(ctx, &models.SyncQueueEntry{NoteID: placeholder.ID, Action: models.ActionDelete}, nil)
	require.NoError(t, err)

	require.NoError(t, store.CompleteCreate(ctx, createID, placeholder.ID, &models.Note{ID: "srv-x"}))

	notes, err := store.GetAllNotes(ctx)
	require.NoError(t, err)
	assert.Empty(t, notes)

	del, err := store.GetEntry(ctx, deleteID)
	require.NoError(t, err)
	assert.Equal(t, "srv-x", del.NoteID)
}

func TestCompleteCreate_AlreadySyncedIsNoop(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	id, err := store.Enqueue(ctx, &models.SyncQueueEntry{NoteID: "local-1", Action: models.ActionCreate})
	require.NoError(t, err)
	require.NoError(t, store.MarkSynced(ctx, id))

	require.NoError(t, store.CompleteCreate(ctx, id, "local-1", &models.Note{ID: "srv-1"}))

	_, err = store.GetNote(ctx, "srv-1")
	assert.ErrorIs(t, err, storage.ErrNoteNotFound)
}

func TestCompleteUpdate_RebasesLaterEntries(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.PutNote(ctx, &models.Note{ID: "n1", Title: "T0", UpdatedAt: base}))

	firstID, err := store.Enqueue(ctx, &models.SyncQueueEntry{
		NoteID: "n1", Action: models.ActionUpdate,
		Payload: &models.NotePatch{Title: models.Ptr("T1")}, BaseUpdatedAt: &base,
	})
	require.NoError(t, err)
	secondID, err := store.Enqueue(ctx, &models.SyncQueueEntry{
		NoteID: "n1", Action: models.ActionUpdate,
		Payload: &models.NotePatch{Content: models.Ptr("C2")}, BaseUpdatedAt: &base,
	})
	require.NoError(t, err)
	blindID, err := store.Enqueue(ctx, &models.SyncQueueEntry{
		NoteID: "n1", Action: models.ActionUpdate,
		Payload: &models.NotePatch{Pinned: models.Ptr(true)},
	})
	require.NoError(t, err)

	confirmed := base.Add(time.Minute)
	require.NoError(t, store.CompleteUpdate(ctx, firstID, &models.Note{ID: "n1", Title: "T1", UpdatedAt: confirmed}))

	cached, err := store.GetNote(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, "T1", cached.Title)
	assert.Equal(t, "C2", cached.Content)
	assert.True(t, cached.Pinned)
	assert.True(t, confirmed.Equal(cached.UpdatedAt))

	second, err := store.GetEntry(ctx, secondID)
	require.NoError(t, err)
	require.NotNil(t, second.BaseUpdatedAt)
	assert.True(t, confirmed.Equal(*second.BaseUpdatedAt))

	// Запись без base так и остается без обнаружения конфликтов
	blind, err := store.GetEntry(ctx, blindID)
	require.NoError(t, err)
	assert.Nil(t, blind.BaseUpdatedAt)

	first, err := store.GetEntry(ctx, firstID)
	require.NoError(t, err)
	assert.True(t, first.Synced)
}

func TestCompleteDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	require.NoError(t, store.PutNote(ctx, &models.Note{ID: "n1"}))
	id, err := store.Enqueue(ctx, &models.SyncQueueEntry{NoteID: "n1", Action: models.ActionDelete})
	require.NoError(t, err)

	require.NoError(t, store.CompleteDelete(ctx, id, "n1"))

	_, err = store.GetNote(ctx, "n1")
	assert.ErrorIs(t, err, storage.ErrNoteNotFound)

	entry, err := store.GetEntry(ctx, id)
	require.NoError(t, err)
	assert.True(t, entry.Synced)
}

func TestMarkConflict_ExactlyOnce(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	id, err := store.Enqueue(ctx, &models.SyncQueueEntry{
		NoteID: "n1", Action: models.ActionUpdate,
		Payload: &models.NotePatch{Title: models.Ptr("mine")}, BaseUpdatedAt: &base,
	})
	require.NoError(t, err)

	conflict := &models.SyncConflict{
		Local:         &models.NotePatch{Title: models.Ptr("mine")},
		Server:        &models.Note{ID: "n1", Title: "theirs", UpdatedAt: base.Add(time.Hour)},
		BaseUpdatedAt: &base,
	}

	conflictID, err := store.MarkConflict(ctx, id, conflict)
	require.NoError(t, err)
	require.NotZero(t, conflictID)

	again, err := store.MarkConflict(ctx, id, conflict)
	require.NoError(t, err)
	assert.Equal(t, conflictID, again)

	conflicts, err := store.ListConflicts(ctx)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, id, conflicts[0].EntryID)
	assert.Equal(t, "n1", conflicts[0].NoteID)
	assert.Equal(t, "theirs", conflicts[0].Server.Title)
	assert.False(t, conflicts[0].CreatedAt.IsZero())

	entry, err := store.GetEntry(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConflict, entry.Status)
	assert.False(t, entry.Synced)
}

func TestResolveConflict(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	id, err := store.Enqueue(ctx, &models.SyncQueueEntry{NoteID: "n1", Action: models.ActionUpdate})
	require.NoError(t, err)
	conflictID, err := store.MarkConflict(ctx, id, &models.SyncConflict{Server: &models.Note{ID: "n1"}})
	require.NoError(t, err)

	resolved := &models.Note{ID: "n1", Title: "final"}
	copyNote := &models.Note{ID: "n2", Title: "final (Local Copy)"}
	require.NoError(t, store.ResolveConflict(ctx, conflictID, resolved, copyNote))

	_, err = store.GetConflict(ctx, conflictID)
	assert.ErrorIs(t, err, storage.ErrConflictNotFound)

	entry, err := store.GetEntry(ctx, id)
	require.NoError(t, err)
	assert.True(t, entry.Synced)
	assert.Equal(t, models.StatusSynced, entry.Status)

	notes, err := store.GetAllNotes(ctx)
	require.NoError(t, err)
	assert.Len(t, notes, 2)

	err = store.ResolveConflict(ctx, conflictID)
	assert.ErrorIs(t, err, storage.ErrConflictNotFound)
}

func TestResolveConflict_RebasesLaterEntries(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	conflicted, err := store.Enqueue(ctx, &models.SyncQueueEntry{
		NoteID: "n1", Action: models.ActionUpdate,
		Payload: &models.NotePatch{Title: models.Ptr("Mine")}, BaseUpdatedAt: &base,
	})
	require.NoError(t, err)
	laterID, err := store.Enqueue(ctx, &models.SyncQueueEntry{
		NoteID: "n1", Action: models.ActionUpdate,
		Payload: &models.NotePatch{Content: models.Ptr("body")}, BaseUpdatedAt: &base,
	})
	require.NoError(t, err)
	otherID, err := store.Enqueue(ctx, &models.SyncQueueEntry{
		NoteID: "n2", Action: models.ActionUpdate,
		Payload: &models.NotePatch{Content: models.Ptr("other")}, BaseUpdatedAt: &base,
	})
	require.NoError(t, err)

	conflictID, err := store.MarkConflict(ctx, conflicted, &models.SyncConflict{Server: &models.Note{ID: "n1"}})
	require.NoError(t, err)

	onServer := base.Add(time.Hour)
	require.NoError(t, store.ResolveConflict(ctx, conflictID, &models.Note{ID: "n1", Title: "Mine", UpdatedAt: onServer}))

	later, err := store.GetEntry(ctx, laterID)
	require.NoError(t, err)
	require.NotNil(t, later.BaseUpdatedAt)
	assert.True(t, onServer.Equal(*later.BaseUpdatedAt))
	assert.False(t, later.Synced)

	// Чужая заметка не затронута
	other, err := store.GetEntry(ctx, otherID)
	require.NoError(t, err)
	assert.True(t, base.Equal(*other.BaseUpdatedAt))

	cached, err := store.GetNote(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, "Mine", cached.Title)
	assert.Equal(t, "body", cached.Content)
	assert.True(t, onServer.Equal(cached.UpdatedAt))
}

func TestConflicts_CRUD(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	id, err := store.SaveConflict(ctx, &models.SyncConflict{NoteID: "n1", EntryID: 3})
	require.NoError(t, err)

	got, err := store.GetConflict(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), got.EntryID)

	require.NoError(t, store.DeleteConflict(ctx, id))
	assert.ErrorIs(t, store.DeleteConflict(ctx, id), storage.ErrConflictNotFound)

	_, err = store.GetConflict(ctx, id)
	assert.ErrorIs(t, err, storage.ErrConflictNotFound)
}
