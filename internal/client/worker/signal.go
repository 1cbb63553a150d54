package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/fsnotify/fsnotify"
)

// SignalFileName имя файла сигнала "sync now" рядом с базой клиента
const SignalFileName = "sync-now"

// SignalFile межпроцессный сигнал "sync now": команда sync касается файла,
// запущенный демон следит за ним через fsnotify.
type SignalFile struct {
	path string
}

// NewSignalFile creates a signal file handle in dir
func NewSignalFile(dir string) *SignalFile {
	return &SignalFile{path: filepath.Join(dir, SignalFileName)}
}

// Path returns the signal file path
func (s *SignalFile) Path() string {
	return s.path
}

// Request touches the signal file
func (s *SignalFile) Request() error {
	stamp := strconv.FormatInt(time.Now().UnixNano(), 10)
	if err := os.WriteFile(s.path, []byte(stamp), 0o600); err != nil {
		return fmt.Errorf("failed to write sync signal: %w", err)
	}
	return nil
}

// Watch delivers a value for every sync request until ctx is cancelled.
// Bursts of filesystem events collapse into one pending signal.
func (s *SignalFile) Watch(ctx context.Context, logger *slog.Logger) (<-chan struct{}, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	// Следим за каталогом: файл может создаваться заново
	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		defer func() {
			_ = watcher.Close()
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(s.path) {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				select {
				case out <- struct{}{}:
				default:
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("Sync signal watcher error", "error", err)
			}
		}
	}()

	return out, nil
}
