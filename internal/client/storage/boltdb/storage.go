package boltdb

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"github.com/iudanet/gennotes/internal/client/storage"
)

var (
	// BoltDB bucket names
	bucketNotes     = []byte("notes")
	bucketQueue     = []byte("sync_queue")
	bucketAuth      = []byte("auth")
	bucketMeta      = []byte("meta")
	bucketConflicts = []byte("conflicts")
	bucketTags      = []byte("tags")
	bucketFolders   = []byte("folders")
)

// DefaultOpenTimeout время ожидания файловой блокировки другого процесса
const DefaultOpenTimeout = 5 * time.Second

// Options настройки открытия хранилища
type Options struct {
	// Timeout ожидания блокировки файла, 0 = DefaultOpenTimeout
	Timeout time.Duration
}

// Storage represents BoltDB storage implementation for client.
//
// Файл открывается на время операции и закрывается, когда операций нет,
// поэтому CLI и демон могут работать с одним файлом по очереди.
type Storage struct {
	db     *bbolt.DB
	path   string
	opts   Options
	mu     sync.Mutex
	refs   int
	closed bool
}

var _ storage.Store = (*Storage)(nil)

// New creates a new BoltDB storage instance and brings the schema up to date.
// dbPath is the path to the BoltDB database file.
// Any failure is returned as *storage.OpenError.
func New(ctx context.Context, dbPath string, opts Options) (*Storage, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultOpenTimeout
	}

	s := &Storage{path: dbPath, opts: opts}
	if err := s.initialize(ctx); err != nil {
		return nil, err
	}

	return s, nil
}

// Path returns the database file path
func (s *Storage) Path() string {
	return s.path
}

// Close closes the storage; in-flight operations finish first
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.db != nil && s.refs == 0 {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

// initialize открывает файл и применяет миграции схемы.
// Повторный вызов безопасен: миграции проверяют версию внутри транзакции.
func (s *Storage) initialize(ctx context.Context) error {
	db, err := s.acquire()
	if err != nil {
		return err
	}
	defer s.release()

	if err := db.Update(migrate); err != nil {
		return &storage.OpenError{Path: s.path, Err: err}
	}

	return nil
}

// acquire возвращает открытый handle, открывая файл при необходимости
func (s *Storage) acquire() (*bbolt.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, storage.ErrStorageClosed
	}

	if s.db == nil {
		db, err := bbolt.Open(s.path, 0600, &bbolt.Options{Timeout: s.opts.Timeout})
		if err != nil {
			return nil, &storage.OpenError{Path: s.path, Err: err}
		}
		s.db = db
	}
	s.refs++

	return s.db, nil
}

// release закрывает файл, когда в процессе не осталось активных операций
func (s *Storage) release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.refs--
	if s.refs > 0 || s.db == nil {
		return
	}

	// Ошибку закрытия игнорируем: данные уже зафиксированы транзакцией
	_ = s.db.Close()
	s.db = nil
}

func (s *Storage) view(ctx context.Context, op string, fn func(tx *bbolt.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	db, err := s.acquire()
	if err != nil {
		return storage.WrapIO(op, err)
	}
	defer s.release()

	return storage.WrapIO(op, db.View(fn))
}

func (s *Storage) update(ctx context.Context, op string, fn func(tx *bbolt.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	db, err := s.acquire()
	if err != nil {
		return storage.WrapIO(op, err)
	}
	defer s.release()

	return storage.WrapIO(op, db.Update(fn))
}

// ClearAll wipes notes, queue, tags and folders. Conflicts and auth are kept.
func (s *Storage) ClearAll(ctx context.Context) error {
	return s.update(ctx, "clear all", func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketNotes, bucketQueue, bucketTags, bucketFolders} {
			if err := tx.DeleteBucket(name); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
				return fmt.Errorf("failed to delete bucket %s: %w", name, err)
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", name, err)
			}
		}
		return nil
	})
}

func bucket(tx *bbolt.Tx, name []byte) (*bbolt.Bucket, error) {
	b := tx.Bucket(name)
	if b == nil {
		return nil, fmt.Errorf("%s bucket not found", name)
	}
	return b, nil
}

// itob кодирует id в big-endian, чтобы курсор шел по возрастанию
func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func btoi(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}
