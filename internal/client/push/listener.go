package push

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/iudanet/gennotes/pkg/api"
)

const (
	// DefaultPlatform имя платформы, которое клиент сообщает серверу
	DefaultPlatform = "cli"

	minBackoff = time.Second
	maxBackoff = time.Minute
)

// Client серверные операции push подписки
type Client interface {
	Subscribe(ctx context.Context, token string, req api.SubscribeRequest) (*api.SubscribeResponse, error)
	BaseURL() string
}

// Credentials источник токена и идентификатора устройства
type Credentials interface {
	GetAuthToken(ctx context.Context) (string, error)
	DeviceID(ctx context.Context) (string, error)
}

// Listener держит websocket соединение с push каналом сервера и
// публикует полученные сообщения в Messages. Обрывы соединения
// восстанавливаются с экспоненциальной задержкой.
type Listener struct {
	client   Client
	creds    Credentials
	logger   *slog.Logger
	messages chan api.PushMessage
	ctx      context.Context
	cancel   context.CancelFunc
	platform string
	wg       sync.WaitGroup
	mu       sync.Mutex
	running  bool

	minBackoff time.Duration
	maxBackoff time.Duration
}

// NewListener creates a push listener; Close stops its background goroutine
func NewListener(client Client, creds Credentials, logger *slog.Logger) *Listener {
	ctx, cancel := context.WithCancel(context.Background())
	return &Listener{
		client:     client,
		creds:      creds,
		logger:     logger,
		messages:   make(chan api.PushMessage, 16),
		ctx:        ctx,
		cancel:     cancel,
		platform:   DefaultPlatform,
		minBackoff: minBackoff,
		maxBackoff: maxBackoff,
	}
}

// Messages returns the channel of received push messages
func (l *Listener) Messages() <-chan api.PushMessage {
	return l.messages
}

// Running reports whether the websocket loop has been started
func (l *Listener) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// EnsureSubscribed registers the device with the server and starts the
// websocket loop once. Repeated calls after success are no-ops.
func (l *Listener) EnsureSubscribed(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running {
		return nil
	}
	if l.ctx.Err() != nil {
		return fmt.Errorf("push listener closed: %w", l.ctx.Err())
	}

	token, err := l.creds.GetAuthToken(ctx)
	if err != nil {
		return fmt.Errorf("failed to get auth token: %w", err)
	}
	deviceID, err := l.creds.DeviceID(ctx)
	if err != nil {
		return fmt.Errorf("failed to get device id: %w", err)
	}

	resp, err := l.client.Subscribe(ctx, token, api.SubscribeRequest{
		DeviceID: deviceID,
		Platform: l.platform,
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	wsURL, err := socketURL(l.client.BaseURL(), resp.PushURL, deviceID)
	if err != nil {
		return err
	}

	l.logger.Info("Push subscription registered", "subscription_id", resp.SubscriptionID)

	l.running = true
	l.wg.Add(1)
	go l.loop(wsURL)

	return nil
}

// Close stops the websocket loop and waits for it to exit
func (l *Listener) Close() {
	l.cancel()
	l.wg.Wait()
}

func (l *Listener) loop(wsURL string) {
	defer l.wg.Done()

	backoff := l.minBackoff
	for {
		err := l.listen(wsURL)
		if l.ctx.Err() != nil {
			return
		}
		if err == nil {
			// Сервер закрыл соединение штатно, переподключаемся сразу
			backoff = l.minBackoff
			continue
		}

		l.logger.Warn("Push channel disconnected", "error", err, "retry_in", backoff)
		select {
		case <-l.ctx.Done():
			return
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > l.maxBackoff {
			backoff = l.maxBackoff
		}
	}
}

// listen держит одно соединение до ошибки; nil означает штатное закрытие сервером
func (l *Listener) listen(wsURL string) error {
	token, err := l.creds.GetAuthToken(l.ctx)
	if err != nil {
		return fmt.Errorf("failed to get auth token: %w", err)
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, _, err := websocket.Dial(l.ctx, wsURL, &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		return fmt.Errorf("failed to dial push channel: %w", err)
	}
	defer func() {
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}()

	l.logger.Debug("Push channel connected")

	for {
		_, data, err := conn.Read(l.ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return nil
			}
			return err
		}

		var msg api.PushMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			l.logger.Warn("Failed to decode push message", "error", err)
			continue
		}

		select {
		case l.messages <- msg:
		case <-l.ctx.Done():
			return nil
		}
	}
}

// socketURL строит ws(s) адрес push канала из base URL сервера
func socketURL(baseURL, pushPath, deviceID string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid server url: %w", err)
	}

	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}

	if pushPath == "" {
		pushPath = "/api/v1/push/ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(pushPath, "/")

	q := u.Query()
	q.Set("device", deviceID)
	u.RawQuery = q.Encode()

	return u.String(), nil
}
