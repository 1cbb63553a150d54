package connectivity

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/iudanet/gennotes/pkg/api"
)

// DefaultInterval период проверки доступности сервера
const DefaultInterval = 3 * time.Second

// Prober проверяет доступность сервера
type Prober interface {
	Health(ctx context.Context) (*api.HealthResponse, error)
}

// Change переход между состояниями online/offline
type Change struct {
	At     time.Time
	Online bool
}

// Monitor периодически опрашивает /health и рассылает подписчикам переходы
// между online и offline. Первая проверка всегда считается переходом.
type Monitor struct {
	prober   Prober
	logger   *slog.Logger
	subs     []chan Change
	interval time.Duration
	timeout  time.Duration
	mu       sync.RWMutex
	online   bool
	known    bool
}

// NewMonitor creates a connectivity monitor
func NewMonitor(prober Prober, interval time.Duration, logger *slog.Logger) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	timeout := interval
	if timeout > 5*time.Second {
		timeout = 5 * time.Second
	}
	return &Monitor{
		prober:   prober,
		logger:   logger,
		interval: interval,
		timeout:  timeout,
	}
}

// Online reports the last observed state; false until the first probe
func (m *Monitor) Online() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// Subscribe returns a channel receiving state changes.
// Slow subscribers lose intermediate changes, never the goroutine.
func (m *Monitor) Subscribe() <-chan Change {
	ch := make(chan Change, 4)
	m.mu.Lock()
	m.subs = append(m.subs, ch)
	m.mu.Unlock()
	return ch
}

// Check performs a single probe and returns the resulting state
func (m *Monitor) Check(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	_, err := m.prober.Health(probeCtx)
	online := err == nil
	if err != nil && ctx.Err() != nil {
		// Отмена вызывающим не говорит ничего о сервере
		return m.Online()
	}

	m.mu.Lock()
	changed := !m.known || m.online != online
	m.online = online
	m.known = true
	subs := append([]chan Change(nil), m.subs...)
	m.mu.Unlock()

	if changed {
		if online {
			m.logger.Info("Server is reachable")
		} else {
			m.logger.Warn("Server is unreachable", "error", err)
		}
		change := Change{Online: online, At: time.Now().UTC()}
		for _, ch := range subs {
			select {
			case ch <- change:
			default:
				m.logger.Warn("Connectivity subscriber is full, dropping change")
			}
		}
	}

	return online
}

// Run probes the server until ctx is cancelled
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}
