package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/iudanet/gennotes/internal/models"
	"github.com/iudanet/gennotes/pkg/api"
)

// BasePath префикс всех маршрутов API
const BasePath = "/api/v1"

// Client представляет HTTP клиент для взаимодействия с сервером
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient создает новый API клиент
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			// Настройка обработки редиректов
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Ограничиваем количество редиректов
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				// Копируем заголовки Authorization при редиректе
				if len(via) > 0 && via[0].Header.Get("Authorization") != "" {
					req.Header.Set("Authorization", via[0].Header.Get("Authorization"))
				}
				return nil
			},
		},
	}
}

// BaseURL returns the server base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Register регистрирует нового пользователя
func (c *Client) Register(ctx context.Context, req api.RegisterRequest) (*api.RegisterResponse, error) {
	var resp api.RegisterResponse
	err := c.doRequest(ctx, http.MethodPost, "/auth/register", "", req, &resp)
	if err != nil {
		return nil, fmt.Errorf("register request failed: %w", err)
	}
	return &resp, nil
}

// Login выполняет аутентификацию пользователя
func (c *Client) Login(ctx context.Context, req api.LoginRequest) (*api.TokenResponse, error) {
	var resp api.TokenResponse
	err := c.doRequest(ctx, http.MethodPost, "/auth/login", "", req, &resp)
	if err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}
	return &resp, nil
}

// Health проверяет доступность сервера
func (c *Client) Health(ctx context.Context) (*api.HealthResponse, error) {
	var resp api.HealthResponse
	if err := c.doRequest(ctx, http.MethodGet, "/health", "", nil, &resp); err != nil {
		return nil, fmt.Errorf("health request failed: %w", err)
	}
	return &resp, nil
}

// ListNotes возвращает все заметки пользователя
func (c *Client) ListNotes(ctx context.Context, token string) ([]*models.Note, error) {
	var resp []api.Note
	if err := c.doRequest(ctx, http.MethodGet, "/notes", token, nil, &resp); err != nil {
		return nil, fmt.Errorf("list notes request failed: %w", err)
	}

	notes := make([]*models.Note, 0, len(resp))
	for i := range resp {
		notes = append(notes, NoteFromAPI(&resp[i]))
	}
	return notes, nil
}

// GetNote возвращает текущую серверную версию заметки
func (c *Client) GetNote(ctx context.Context, token, id string) (*models.Note, error) {
	var resp api.Note
	if err := c.doRequest(ctx, http.MethodGet, notePath(id), token, nil, &resp); err != nil {
		return nil, fmt.Errorf("get note request failed: %w", err)
	}
	return NoteFromAPI(&resp), nil
}

// CreateNote создает заметку и возвращает серверную запись с назначенным ID
func (c *Client) CreateNote(ctx context.Context, token string, patch *models.NotePatch) (*models.Note, error) {
	var resp api.Note
	if err := c.doRequest(ctx, http.MethodPost, "/notes", token, RequestFromPatch(patch), &resp); err != nil {
		return nil, fmt.Errorf("create note request failed: %w", err)
	}
	return NoteFromAPI(&resp), nil
}

// UpdateNote применяет частичное изменение и возвращает обновленную запись
func (c *Client) UpdateNote(ctx context.Context, token, id string, patch *models.NotePatch) (*models.Note, error) {
	var resp api.Note
	if err := c.doRequest(ctx, http.MethodPut, notePath(id), token, RequestFromPatch(patch), &resp); err != nil {
		return nil, fmt.Errorf("update note request failed: %w", err)
	}
	return NoteFromAPI(&resp), nil
}

// DeleteNote удаляет заметку на сервере
func (c *Client) DeleteNote(ctx context.Context, token, id string) error {
	if err := c.doRequest(ctx, http.MethodDelete, notePath(id), token, nil, nil); err != nil {
		return fmt.Errorf("delete note request failed: %w", err)
	}
	return nil
}

// Subscribe регистрирует устройство для получения push сообщений
func (c *Client) Subscribe(ctx context.Context, token string, req api.SubscribeRequest) (*api.SubscribeResponse, error) {
	var resp api.SubscribeResponse
	if err := c.doRequest(ctx, http.MethodPost, "/push/subscriptions", token, req, &resp); err != nil {
		return nil, fmt.Errorf("subscribe request failed: %w", err)
	}
	return &resp, nil
}

func notePath(id string) string {
	return "/notes/" + url.PathEscape(id)
}

// doRequest выполняет HTTP запрос
func (c *Client) doRequest(ctx context.Context, method, path, token string, body, result interface{}) error {
	reqURL := c.baseURL + BasePath + path

	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Op: method + " " + path, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	// Читаем тело ответа
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Op: method + " " + path, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	// Проверяем статус код
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp api.ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && (errResp.Message != "" || errResp.Error != "") {
			msg := errResp.Message
			if msg == "" {
				msg = errResp.Error
			}
			return &HTTPError{StatusCode: resp.StatusCode, Message: msg, structured: true}
		}
		return &HTTPError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}

	// Декодируем успешный ответ
	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
