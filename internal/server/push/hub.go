// Package push доставляет push сообщения подключенным устройствам через websocket.
package push

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/iudanet/gennotes/pkg/api"
)

// writeTimeout ограничивает отправку одного сообщения одному устройству
const writeTimeout = 5 * time.Second

type client struct {
	conn     *websocket.Conn
	userID   string
	deviceID string
}

// Hub держит websocket соединения, сгруппированные по пользователю
type Hub struct {
	logger  *slog.Logger
	clients map[string]map[*client]struct{} // userID -> соединения
	mu      sync.RWMutex
	closed  bool
}

// NewHub creates an empty hub
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[string]map[*client]struct{}),
	}
}

// Serve принимает websocket соединение устройства и держит его до разрыва.
// Сообщения от клиента не обрабатываются.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID, deviceID string) error {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return fmt.Errorf("websocket upgrade failed: %w", err)
	}

	c := &client{conn: conn, userID: userID, deviceID: deviceID}
	if !h.add(c) {
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		return nil
	}
	defer h.remove(c)

	// CloseRead читает управляющие кадры и отменяет ctx при разрыве
	ctx := conn.CloseRead(r.Context())
	<-ctx.Done()
	return nil
}

// SendToUser отправляет сообщение на все устройства пользователя.
// Возвращает число устройств, получивших сообщение.
func (h *Hub) SendToUser(ctx context.Context, userID string, msg api.PushMessage) int {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients[userID]))
	for c := range h.clients[userID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	return h.send(ctx, targets, msg)
}

// Broadcast отправляет сообщение всем подключенным устройствам
func (h *Hub) Broadcast(ctx context.Context, msg api.PushMessage) int {
	h.mu.RLock()
	var targets []*client
	for _, conns := range h.clients {
		for c := range conns {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	return h.send(ctx, targets, msg)
}

// Count returns the number of connected devices
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for _, conns := range h.clients {
		n += len(conns)
	}
	return n
}

// Close разрывает все соединения; новые больше не принимаются
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	all := h.clients
	h.clients = make(map[string]map[*client]struct{})
	h.mu.Unlock()

	for _, conns := range all {
		for c := range conns {
			_ = c.conn.Close(websocket.StatusGoingAway, "server shutting down")
		}
	}
}

func (h *Hub) send(ctx context.Context, targets []*client, msg api.PushMessage) int {
	if len(targets) == 0 {
		return 0
	}

	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to marshal push message", slog.Any("error", err))
		return 0
	}

	delivered := 0
	for _, c := range targets {
		writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
		err := c.conn.Write(writeCtx, websocket.MessageText, data)
		cancel()

		if err != nil {
			h.logger.WarnContext(ctx, "failed to deliver push message",
				slog.String("user_id", c.userID),
				slog.String("device_id", c.deviceID),
				slog.Any("error", err))
			h.remove(c)
			continue
		}
		delivered++
	}
	return delivered
}

func (h *Hub) add(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	if h.clients[c.userID] == nil {
		h.clients[c.userID] = make(map[*client]struct{})
	}
	h.clients[c.userID][c] = struct{}{}

	h.logger.Info("device connected",
		slog.String("user_id", c.userID),
		slog.String("device_id", c.deviceID))
	return true
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	conns, ok := h.clients[c.userID]
	if ok {
		if _, exists := conns[c]; !exists {
			ok = false
		}
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.clients, c.userID)
		}
	}
	h.mu.Unlock()

	if !ok {
		return
	}

	_ = c.conn.Close(websocket.StatusNormalClosure, "")
	h.logger.Info("device disconnected",
		slog.String("user_id", c.userID),
		slog.String("device_id", c.deviceID))
}
