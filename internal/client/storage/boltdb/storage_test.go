package boltdb

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	"github.com/iudanet/gennotes/internal/client/storage"
	"github.com/iudanet/gennotes/internal/models"
)

// newTestStorage создает хранилище во временной директории
func newTestStorage(t *testing.T) *Storage {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "gennotes.db")
	store, err := New(context.Background(), dbPath, Options{Timeout: time.Second})
	require.NoError(t, err)
	require.NotNil(t, store)

	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})

	return store
}

// rawUpdate выполняет транзакцию в обход публичного API (для порчи данных в тестах)
func rawUpdate(t *testing.T, s *Storage, fn func(tx *bbolt.Tx) error) {
	t.Helper()

	db, err := s.acquire()
	require.NoError(t, err)
	defer s.release()

	require.NoError(t, db.Update(fn))
}

func TestNew_Success(t *testing.T) {
	store := newTestStorage(t)

	// Проверяем что файл БД действительно создан
	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.False(t, info.IsDir())

	// Проверяем, что бакеты существуют
	rawUpdate(t, store, func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketNotes, bucketQueue, bucketAuth, bucketMeta, bucketConflicts, bucketTags, bucketFolders} {
			if tx.Bucket(b) == nil {
				return errors.New("missing bucket " + string(b))
			}
		}
		return nil
	})

	v, err := store.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, v)
}

func TestNew_InvalidPath(t *testing.T) {
	// Директория вместо файла
	store, err := New(context.Background(), t.TempDir(), Options{Timeout: 100 * time.Millisecond})
	assert.Nil(t, store)

	var openErr *storage.OpenError
	require.ErrorAs(t, err, &openErr)
	assert.Contains(t, openErr.Error(), "offline features unavailable")
}

func TestNew_Idempotent(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "gennotes.db")

	first, err := New(ctx, dbPath, Options{})
	require.NoError(t, err)
	require.NoError(t, first.PutNote(ctx, &models.Note{ID: "n1", Title: "keep me"}))
	require.NoError(t, first.Close())

	second, err := New(ctx, dbPath, Options{})
	require.NoError(t, err)
	defer second.Close()

	note, err := second.GetNote(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, "keep me", note.Title)
}

func TestNew_UpgradesOlderSchema(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "gennotes.db")

	// Файл версии 1: только базовые бакеты и одна заметка
	db, err := bbolt.Open(dbPath, 0600, nil)
	require.NoError(t, err)
	require.NoError(t, db.Update(func(tx *bbolt.Tx) error {
		if err := migrations[0].apply(tx); err != nil {
			return err
		}
		if err := tx.Bucket(bucketNotes).Put([]byte("n1"), []byte(`{"_id":"n1","title":"old"}`)); err != nil {
			return err
		}
		return tx.Bucket(bucketMeta).Put(keySchemaVersion, []byte("1"))
	}))
	require.NoError(t, db.Close())

	store, err := New(ctx, dbPath, Options{})
	require.NoError(t, err)
	defer store.Close()

	v, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	note, err := store.GetNote(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, "old", note.Title)

	conflicts, err := store.ListConflicts(ctx)
	require.NoError(t, err)
	assert.Empty(t, conflicts)
}

func TestNew_NewerSchema(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "gennotes.db")

	db, err := bbolt.Open(dbPath, 0600, nil)
	require.NoError(t, err)
	require.NoError(t, db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketMeta)
		if err != nil {
			return err
		}
		return b.Put(keySchemaVersion, []byte(strconv.Itoa(SchemaVersion+1)))
	}))
	require.NoError(t, db.Close())

	store, err := New(context.Background(), dbPath, Options{})
	assert.Nil(t, store)

	var openErr *storage.OpenError
	require.ErrorAs(t, err, &openErr)
	assert.ErrorIs(t, err, storage.ErrSchemaTooNew)
}

func TestNew_LockedByAnotherHandle(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "gennotes.db")

	// Держим файл открытым, как долгая транзакция другого процесса
	db, err := bbolt.Open(dbPath, 0600, nil)
	require.NoError(t, err)
	defer db.Close()

	store, err := New(context.Background(), dbPath, Options{Timeout: 50 * time.Millisecond})
	assert.Nil(t, store)

	var openErr *storage.OpenError
	require.ErrorAs(t, err, &openErr)
	assert.Equal(t, dbPath, openErr.Path)
}

func TestStorage_HandleReleasedBetweenOperations(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "gennotes.db")

	// Два независимых экземпляра над одним файлом (CLI и демон)
	a, err := New(ctx, dbPath, Options{Timeout: time.Second})
	require.NoError(t, err)
	defer a.Close()
	b, err := New(ctx, dbPath, Options{Timeout: time.Second})
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, a.PutNote(ctx, &models.Note{ID: "n1", Title: "from a"}))

	note, err := b.GetNote(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, "from a", note.Title)

	a.mu.Lock()
	assert.Nil(t, a.db, "handle must be closed when idle")
	a.mu.Unlock()
}

func TestStorage_ConcurrentOperations(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.Enqueue(ctx, &models.SyncQueueEntry{
				NoteID: "n" + strconv.Itoa(i),
				Action: models.ActionDelete,
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	count, err := store.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20, count)
}

func TestClose(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "gennotes.db")
	store, err := New(context.Background(), dbPath, Options{})
	require.NoError(t, err)

	// Закрываем БД
	require.NoError(t, store.Close())

	// Второй вызов Close не должен падать
	require.NoError(t, store.Close())

	// Операции после закрытия возвращают ErrStorageClosed
	_, err = store.GetAllNotes(context.Background())
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}

func TestStorage_CanceledContext(t *testing.T) {
	store := newTestStorage(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.PutNote(ctx, &models.Note{ID: "n1"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStorage_IOErrorOnMissingBucket(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	rawUpdate(t, store, func(tx *bbolt.Tx) error {
		return tx.DeleteBucket(bucketNotes)
	})

	_, err := store.GetAllNotes(ctx)
	var ioErr *storage.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "list notes", ioErr.Op)
	assert.Contains(t, err.Error(), "notes bucket not found")
}

func TestClearAll(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	require.NoError(t, store.PutNote(ctx, &models.Note{ID: "n1"}))
	require.NoError(t, store.SaveTags(ctx, []string{"work"}))
	require.NoError(t, store.SaveFolders(ctx, []string{"f1"}))
	entryID, err := store.Enqueue(ctx, &models.SyncQueueEntry{NoteID: "n1", Action: models.ActionUpdate})
	require.NoError(t, err)
	_, err = store.MarkConflict(ctx, entryID, &models.SyncConflict{NoteID: "n1"})
	require.NoError(t, err)
	require.NoError(t, store.SetAuthToken(ctx, "token"))

	require.NoError(t, store.ClearAll(ctx))

	notes, err := store.GetAllNotes(ctx)
	require.NoError(t, err)
	assert.Empty(t, notes)

	entries, err := store.ListEntries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	tags, err := store.ListTags(ctx)
	require.NoError(t, err)
	assert.Empty(t, tags)

	folders, err := store.ListFolders(ctx)
	require.NoError(t, err)
	assert.Empty(t, folders)

	// Конфликты не удаляются неявно
	conflicts, err := store.ListConflicts(ctx)
	require.NoError(t, err)
	assert.Len(t, conflicts, 1)
}
