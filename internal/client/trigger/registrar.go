package trigger

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron"
)

// MinPeriodicInterval минимальный интервал периодической регистрации
const MinPeriodicInterval = time.Minute

// Kind тип сработавшей регистрации
type Kind int

const (
	// OneOff однократная регистрация
	OneOff Kind = iota
	// Periodic периодическая регистрация
	Periodic
)

func (k Kind) String() string {
	if k == Periodic {
		return "periodic"
	}
	return "one-off"
}

// Event срабатывание зарегистрированного триггера
type Event struct {
	At   time.Time
	Tag  string
	Kind Kind
}

// PushSubscriber регистрирует устройство в push канале сервера
type PushSubscriber interface {
	EnsureSubscribed(ctx context.Context) error
}

// Options параметры Registrar
type Options struct {
	// Online сообщает текущее состояние связи; nil означает "всегда online"
	Online func() bool
	// Push источник push подписки; nil отключает EnsurePushSubscription
	Push PushSubscriber
	// Enabled включает фоновую синхронизацию на этой установке
	Enabled bool
}

// Registrar регистрирует фоновые триггеры синхронизации.
// Ни одна операция не возвращает ошибку: неудача сообщается через false.
type Registrar struct {
	cron     *cron.Cron
	online   func() bool
	push     PushSubscriber
	logger   *slog.Logger
	events   chan Event
	periodic map[string]time.Duration
	waiting  map[string]bool
	mu       sync.Mutex
	enabled  bool
	running  bool
}

// NewRegistrar creates a registrar; Start must be called before registering
func NewRegistrar(opts Options, logger *slog.Logger) *Registrar {
	online := opts.Online
	if online == nil {
		online = func() bool { return true }
	}
	return &Registrar{
		cron:     cron.New(),
		online:   online,
		push:     opts.Push,
		logger:   logger,
		events:   make(chan Event, 16),
		periodic: make(map[string]time.Duration),
		waiting:  make(map[string]bool),
		enabled:  opts.Enabled,
	}
}

// Start runs the scheduler when background sync is enabled
func (r *Registrar) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.enabled || r.running {
		return
	}
	r.cron.Start()
	r.running = true
}

// Stop stops the scheduler; registrations are rejected afterwards
func (r *Registrar) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return
	}
	r.cron.Stop()
	r.running = false
}

// Supported reports whether background registration is available
func (r *Registrar) Supported() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enabled && r.running
}

// Events returns the channel of fired triggers
func (r *Registrar) Events() <-chan Event {
	return r.events
}

// RegisterOneOff fires tag once: immediately when online, otherwise on the
// next ConnectivityRegained call. Returns false if unsupported.
func (r *Registrar) RegisterOneOff(tag string) bool {
	r.mu.Lock()
	if !r.enabled || !r.running || tag == "" {
		r.mu.Unlock()
		r.logger.Debug("One-off registration unavailable", "tag", tag)
		return false
	}
	if !r.online() {
		r.waiting[tag] = true
		r.mu.Unlock()
		r.logger.Debug("One-off registration waits for connectivity", "tag", tag)
		return true
	}
	r.mu.Unlock()

	r.emit(Event{Tag: tag, Kind: OneOff, At: time.Now().UTC()})
	return true
}

// RegisterPeriodic fires tag roughly every minInterval. Intervals below
// MinPeriodicInterval are denied. Re-registering an existing tag keeps the
// original schedule.
func (r *Registrar) RegisterPeriodic(tag string, minInterval time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.enabled || !r.running || tag == "" {
		r.logger.Debug("Periodic registration unavailable", "tag", tag)
		return false
	}
	if minInterval < MinPeriodicInterval {
		r.logger.Warn("Periodic registration denied", "tag", tag, "interval", minInterval, "min", MinPeriodicInterval)
		return false
	}
	if _, ok := r.periodic[tag]; ok {
		return true
	}

	spec := "@every " + minInterval.Truncate(time.Second).String()
	err := r.cron.AddFunc(spec, func() {
		r.emit(Event{Tag: tag, Kind: Periodic, At: time.Now().UTC()})
	})
	if err != nil {
		r.logger.Warn("Periodic registration failed", "tag", tag, "error", err)
		return false
	}

	r.periodic[tag] = minInterval
	r.logger.Info("Periodic sync registered", "tag", tag, "interval", minInterval)
	return true
}

// ConnectivityRegained fires one-off registrations that were waiting for the network
func (r *Registrar) ConnectivityRegained() {
	r.mu.Lock()
	tags := make([]string, 0, len(r.waiting))
	for tag := range r.waiting {
		tags = append(tags, tag)
	}
	r.waiting = make(map[string]bool)
	r.mu.Unlock()

	now := time.Now().UTC()
	for _, tag := range tags {
		r.emit(Event{Tag: tag, Kind: OneOff, At: now})
	}
}

// EnsurePushSubscription registers the device for push delivery.
// Returns false when push is unsupported or registration failed.
func (r *Registrar) EnsurePushSubscription(ctx context.Context) bool {
	if r.push == nil || !r.Supported() {
		return false
	}
	if err := r.push.EnsureSubscribed(ctx); err != nil {
		r.logger.Warn("Push subscription failed", "error", err)
		return false
	}
	return true
}

func (r *Registrar) emit(ev Event) {
	select {
	case r.events <- ev:
		r.logger.Debug("Trigger fired", "tag", ev.Tag, "kind", ev.Kind)
	default:
		// Потребитель не успевает: следующий проход все равно заберет всю очередь
		r.logger.Warn("Trigger channel full, dropping event", "tag", ev.Tag)
	}
}
