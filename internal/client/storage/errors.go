package storage

import (
	"errors"
	"fmt"
)

// Common client storage errors
var (
	// ErrAuthNotFound indicates that no authentication data exists
	ErrAuthNotFound = errors.New("authentication data not found")

	// ErrNoteNotFound indicates that note is not present in the local cache
	ErrNoteNotFound = errors.New("note not found")

	// ErrEntryNotFound indicates that sync queue entry was not found
	ErrEntryNotFound = errors.New("sync queue entry not found")

	// ErrConflictNotFound indicates that conflict record was not found
	ErrConflictNotFound = errors.New("conflict not found")

	// ErrStorageClosed indicates that storage is closed
	ErrStorageClosed = errors.New("storage is closed")

	// ErrSchemaTooNew indicates that the file was written by a newer client
	ErrSchemaTooNew = errors.New("local store schema is newer than supported")
)

// OpenError означает, что локальное хранилище недоступно (нет доступа к файлу,
// файл заблокирован другим процессом, несовместимая схема).
// Вызывающий код должен деградировать до работы только онлайн.
type OpenError struct {
	Err  error
	Path string
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("offline features unavailable: failed to open store %s: %v", e.Path, e.Err)
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

// IOError оборачивает ошибку отдельной операции хранилища.
// Такие ошибки не фатальны: хранилище лишь кеш над сервером.
type IOError struct {
	Err error
	Op  string
}

func (e *IOError) Error() string {
	return fmt.Sprintf("store %s failed: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// WrapIO оборачивает err в IOError, пропуская sentinel not-found ошибки
func WrapIO(op string, err error) error {
	if err == nil {
		return nil
	}
	var ioErr *IOError
	if errors.As(err, &ioErr) {
		return err
	}
	var openErr *OpenError
	if errors.As(err, &openErr) {
		return err
	}
	for _, sentinel := range []error{ErrAuthNotFound, ErrNoteNotFound, ErrEntryNotFound, ErrConflictNotFound} {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	return &IOError{Op: op, Err: err}
}
