package queue

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/gennotes/internal/client/storage"
	"github.com/iudanet/gennotes/internal/client/storage/boltdb"
	"github.com/iudanet/gennotes/internal/models"
)

func newTestWriter(t *testing.T) (*Writer, *boltdb.Storage) {
	t.Helper()

	store, err := boltdb.New(context.Background(), filepath.Join(t.TempDir(), "queue.db"), boltdb.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return NewWriter(store, slog.New(slog.NewTextHandler(io.Discard, nil))), store
}

func TestWriter_RecordMutation(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		opts        Options
		payload     *models.NotePatch
		name        string
		action      models.SyncAction
		wantBase    bool
		wantPayload bool
	}{
		{name: "create", action: models.ActionCreate, payload: &models.NotePatch{Title: models.Ptr("A")}, wantPayload: true},
		{name: "create ignores base", action: models.ActionCreate, opts: Options{BaseUpdatedAt: &base}, wantPayload: false},
		{name: "update with base", action: models.ActionUpdate, payload: &models.NotePatch{Title: models.Ptr("B")}, opts: Options{BaseUpdatedAt: &base}, wantBase: true, wantPayload: true},
		{name: "update without base", action: models.ActionUpdate, payload: &models.NotePatch{Title: models.Ptr("C")}, wantPayload: true},
		{name: "delete drops payload", action: models.ActionDelete, payload: &models.NotePatch{Title: models.Ptr("D")}, opts: Options{BaseUpdatedAt: &base}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, store := newTestWriter(t)

			id, err := w.RecordMutation(ctx, "n1", tt.action, tt.payload, tt.opts)
			require.NoError(t, err)

			entry, err := store.GetEntry(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, tt.action, entry.Action)
			assert.Equal(t, models.StatusPending, entry.Status)
			assert.False(t, entry.Synced)
			assert.Zero(t, entry.RetryCount)
			assert.Equal(t, tt.wantBase, entry.BaseUpdatedAt != nil)
			assert.Equal(t, tt.wantPayload, entry.Payload != nil)
		})
	}
}

func TestWriter_Validation(t *testing.T) {
	ctx := context.Background()
	w, store := newTestWriter(t)

	_, err := w.RecordMutation(ctx, "n1", "archive", nil, Options{})
	assert.ErrorIs(t, err, ErrInvalidAction)

	_, err = w.RecordMutation(ctx, "", models.ActionDelete, nil, Options{})
	assert.ErrorIs(t, err, ErrEmptyNoteID)

	count, err := store.CountPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestWriter_PayloadIsCopied(t *testing.T) {
	ctx := context.Background()
	w, store := newTestWriter(t)

	payload := &models.NotePatch{Title: models.Ptr("before")}
	id, err := w.RecordMutation(ctx, "n1", models.ActionUpdate, payload, Options{})
	require.NoError(t, err)

	*payload.Title = "after"

	entry, err := store.GetEntry(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "before", *entry.Payload.Title)
}

func TestWriter_RecordWithNote(t *testing.T) {
	ctx := context.Background()
	w, store := newTestWriter(t)

	note := &models.Note{ID: "local-1", Title: "draft", Local: true}
	_, err := w.RecordWithNote(ctx, note.ID, models.ActionCreate, &models.NotePatch{Title: models.Ptr("draft")}, Options{}, note)
	require.NoError(t, err)

	cached, err := store.GetNote(ctx, "local-1")
	require.NoError(t, err)
	assert.Equal(t, "draft", cached.Title)
}

type failingQueue struct {
	storage.QueueStorage
}

func (failingQueue) Enqueue(context.Context, *models.SyncQueueEntry) (uint64, error) {
	return 0, &storage.IOError{Op: "enqueue", Err: errors.New("disk full")}
}

func TestWriter_StoreFailure(t *testing.T) {
	w := NewWriter(failingQueue{}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := w.RecordMutation(context.Background(), "n1", models.ActionDelete, nil, Options{})
	var ioErr *storage.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Contains(t, err.Error(), "disk full")
}
