package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/fatih/color"

	"github.com/iudanet/gennotes/internal/client/connectivity"
	syncpkg "github.com/iudanet/gennotes/internal/client/sync"
	"github.com/iudanet/gennotes/internal/client/trigger"
	"github.com/iudanet/gennotes/pkg/api"
)

// Syncer выполняет один проход синхронизации
type Syncer interface {
	Run(ctx context.Context) (*syncpkg.Result, error)
}

// Notifier показывает пользователю push напоминания
type Notifier interface {
	Notify(ctx context.Context, msg api.PushMessage) error
}

// WriterNotifier печатает напоминания в w
type WriterNotifier struct {
	w io.Writer
}

// NewWriterNotifier creates a notifier printing to w
func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

// Notify prints the reminder
func (n *WriterNotifier) Notify(_ context.Context, msg api.PushMessage) error {
	title := msg.Title
	if title == "" {
		title = "Reminder"
	}
	line := color.New(color.FgYellow, color.Bold).Sprint("🔔 " + title)
	if msg.Body != "" {
		line += ": " + msg.Body
	}
	if msg.URL != "" {
		line += " (" + msg.URL + ")"
	}
	if _, err := fmt.Fprintln(n.w, line); err != nil {
		return fmt.Errorf("failed to print reminder: %w", err)
	}
	return nil
}

// runSync запускает проход и логирует итог; ошибки не прерывают цикл
func runSync(ctx context.Context, syncer Syncer, logger *slog.Logger, reason string) {
	result, err := syncer.Run(ctx)
	if err != nil {
		if errors.Is(err, syncpkg.ErrMissingToken) {
			logger.Warn("Sync skipped: not logged in", "reason", reason)
			return
		}
		if ctx.Err() != nil {
			return
		}
		logger.Error("Sync pass failed", "reason", reason, "error", err)
		return
	}
	logger.Info("Sync pass finished",
		"reason", reason,
		"processed", result.Processed,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
		"conflicts", result.Conflicts,
		"deferred", result.Deferred,
	)
}

// Foreground реагирует на восстановление связи и ручной "sync now".
// Ручной запрос дополнительно пересылается фоновому контексту.
type Foreground struct {
	syncer   Syncer
	changes  <-chan connectivity.Change
	signals  <-chan struct{}
	forward  chan<- struct{}
	onOnline func()
	logger   *slog.Logger
}

// ForegroundOptions источники событий Foreground; nil каналы не слушаются
type ForegroundOptions struct {
	Changes <-chan connectivity.Change
	Signals <-chan struct{}
	// Forward получает пересланные запросы "sync now"
	Forward chan<- struct{}
	// OnOnline вызывается при каждом переходе в online
	OnOnline func()
}

// NewForeground creates the foreground context
func NewForeground(syncer Syncer, opts ForegroundOptions, logger *slog.Logger) *Foreground {
	return &Foreground{
		syncer:   syncer,
		changes:  opts.Changes,
		signals:  opts.Signals,
		forward:  opts.Forward,
		onOnline: opts.OnOnline,
		logger:   logger.With("context", "foreground"),
	}
}

// SyncNow runs a pass immediately and forwards the request to the background context
func (f *Foreground) SyncNow(ctx context.Context) {
	f.forwardSyncNow()
	runSync(ctx, f.syncer, f.logger, "sync-now")
}

// Run serves events until ctx is cancelled
func (f *Foreground) Run(ctx context.Context) error {
	changes := f.changes
	signals := f.signals

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case change, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			if !change.Online {
				f.logger.Info("Offline, mutations stay queued")
				continue
			}
			if f.onOnline != nil {
				f.onOnline()
			}
			runSync(ctx, f.syncer, f.logger, "connectivity-regained")
		case _, ok := <-signals:
			if !ok {
				signals = nil
				continue
			}
			f.SyncNow(ctx)
		}
	}
}

func (f *Foreground) forwardSyncNow() {
	if f.forward == nil {
		return
	}
	select {
	case f.forward <- struct{}{}:
	default:
		// Фоновый контекст уже получил запрос и еще не обработал его
	}
}

// Background реагирует на триггеры планировщика, push сообщения и
// пересланные запросы "sync now".
type Background struct {
	syncer   Syncer
	events   <-chan trigger.Event
	pushes   <-chan api.PushMessage
	syncNow  <-chan struct{}
	notifier Notifier
	logger   *slog.Logger
}

// BackgroundOptions источники событий Background; nil каналы не слушаются
type BackgroundOptions struct {
	Events   <-chan trigger.Event
	Pushes   <-chan api.PushMessage
	SyncNow  <-chan struct{}
	Notifier Notifier
}

// NewBackground creates the background context
func NewBackground(syncer Syncer, opts BackgroundOptions, logger *slog.Logger) *Background {
	return &Background{
		syncer:   syncer,
		events:   opts.Events,
		pushes:   opts.Pushes,
		syncNow:  opts.SyncNow,
		notifier: opts.Notifier,
		logger:   logger.With("context", "background"),
	}
}

// Run serves events until ctx is cancelled
func (b *Background) Run(ctx context.Context) error {
	events := b.events
	pushes := b.pushes
	syncNow := b.syncNow

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			runSync(ctx, b.syncer, b.logger, ev.Kind.String()+":"+ev.Tag)
		case msg, ok := <-pushes:
			if !ok {
				pushes = nil
				continue
			}
			b.handlePush(ctx, msg)
		case _, ok := <-syncNow:
			if !ok {
				syncNow = nil
				continue
			}
			runSync(ctx, b.syncer, b.logger, "sync-now")
		}
	}
}

func (b *Background) handlePush(ctx context.Context, msg api.PushMessage) {
	switch msg.Type {
	case api.PushDailySync:
		runSync(ctx, b.syncer, b.logger, "push:daily-sync")
	case api.PushReminder:
		if b.notifier == nil {
			b.logger.Info("Reminder received", "title", msg.Title)
			return
		}
		if err := b.notifier.Notify(ctx, msg); err != nil {
			b.logger.Warn("Failed to show reminder", "error", err)
		}
	default:
		b.logger.Warn("Unknown push message type", "type", msg.Type)
	}
}
