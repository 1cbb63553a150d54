package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/gennotes/internal/models"
	"github.com/iudanet/gennotes/pkg/api"
)

// TestNewClient проверяет создание нового клиента
func TestNewClient(t *testing.T) {
	client := NewClient("http://localhost:8080/")

	assert.NotNil(t, client)
	assert.Equal(t, "http://localhost:8080", client.BaseURL())
	assert.NotNil(t, client.httpClient)
	assert.Equal(t, 30*time.Second, client.httpClient.Timeout)
}

// TestClient_Register проверяет успешную регистрацию
func TestClient_Register(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/auth/register", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Empty(t, r.Header.Get("Authorization"))

		var req api.RegisterRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "testuser", req.Username)
		assert.Equal(t, "secret", req.Password)

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(api.RegisterResponse{UserID: "user-123", Message: "Registration successful"})
	}))
	defer server.Close()

	resp, err := NewClient(server.URL).Register(context.Background(), api.RegisterRequest{Username: "testuser", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "user-123", resp.UserID)
	assert.Equal(t, "Registration successful", resp.Message)
}

// TestClient_Register_Error проверяет обработку ошибок при регистрации
func TestClient_Register_Error(t *testing.T) {
	tests := []struct {
		responseBody   interface{}
		name           string
		expectedErrMsg string
		statusCode     int
	}{
		{
			name:           "User already exists",
			statusCode:     http.StatusConflict,
			responseBody:   api.ErrorResponse{Error: "conflict", Message: "user already exists"},
			expectedErrMsg: "server error (409): user already exists",
		},
		{
			name:           "Invalid request",
			statusCode:     http.StatusBadRequest,
			responseBody:   api.ErrorResponse{Error: "invalid username"},
			expectedErrMsg: "server error (400): invalid username",
		},
		{
			name:           "Internal server error",
			statusCode:     http.StatusInternalServerError,
			responseBody:   "Internal Server Error",
			expectedErrMsg: "request failed with status 500: Internal Server Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				if errResp, ok := tt.responseBody.(api.ErrorResponse); ok {
					_ = json.NewEncoder(w).Encode(errResp)
				} else {
					_, _ = w.Write([]byte(tt.responseBody.(string)))
				}
			}))
			defer server.Close()

			_, err := NewClient(server.URL).Register(context.Background(), api.RegisterRequest{Username: "u"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedErrMsg)
			assert.Equal(t, tt.statusCode, StatusCode(err))
		})
	}
}

// TestClient_Login проверяет успешный вход
func TestClient_Login(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/auth/login", r.URL.Path)
		_ = json.NewEncoder(w).Encode(api.TokenResponse{AccessToken: "jwt", UserID: "u1", ExpiresIn: 900})
	}))
	defer server.Close()

	resp, err := NewClient(server.URL).Login(context.Background(), api.LoginRequest{Username: "u", Password: "p"})
	require.NoError(t, err)
	assert.Equal(t, "jwt", resp.AccessToken)
	assert.Equal(t, int64(900), resp.ExpiresIn)
}

func TestClient_NotesCRUD(t *testing.T) {
	updated := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/notes":
			_ = json.NewEncoder(w).Encode([]api.Note{{ID: "n1", Title: "one", UpdatedAt: updated}, {ID: "n2"}})
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/notes/n1":
			_ = json.NewEncoder(w).Encode(api.Note{ID: "n1", Title: "one", Tags: []string{"a"}, UpdatedAt: updated})
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/notes":
			var req api.NoteRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			require.NotNil(t, req.Title)
			assert.Nil(t, req.Content)
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(api.Note{ID: "srv-1", Title: *req.Title, UpdatedAt: updated})
		case r.Method == http.MethodPut && r.URL.Path == "/api/v1/notes/n1":
			var req api.NoteRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			require.NotNil(t, req.Pinned)
			_ = json.NewEncoder(w).Encode(api.Note{ID: "n1", Pinned: *req.Pinned, UpdatedAt: updated.Add(time.Minute)})
		case r.Method == http.MethodDelete && r.URL.Path == "/api/v1/notes/n1":
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusTeapot)
		}
	}))
	defer server.Close()

	ctx := context.Background()
	client := NewClient(server.URL)

	notes, err := client.ListNotes(ctx, "tok")
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.True(t, updated.Equal(notes[0].UpdatedAt))
	assert.NotNil(t, notes[1].Tags)

	note, err := client.GetNote(ctx, "tok", "n1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, note.Tags)

	created, err := client.CreateNote(ctx, "tok", &models.NotePatch{Title: models.Ptr("hello")})
	require.NoError(t, err)
	assert.Equal(t, "srv-1", created.ID)
	assert.Equal(t, "hello", created.Title)
	assert.False(t, created.Local)

	upd, err := client.UpdateNote(ctx, "tok", "n1", &models.NotePatch{Pinned: models.Ptr(true)})
	require.NoError(t, err)
	assert.True(t, upd.Pinned)

	require.NoError(t, client.DeleteNote(ctx, "tok", "n1"))
}

func TestClient_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: "note not found"})
	}))
	defer server.Close()

	_, err := NewClient(server.URL).GetNote(context.Background(), "tok", "missing")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.False(t, IsUnauthorized(err))

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, "note not found", httpErr.Message)
}

func TestClient_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewClient(url).ListNotes(context.Background(), "tok")
	require.Error(t, err)

	var netErr *NetworkError
	assert.True(t, errors.As(err, &netErr))
	assert.Equal(t, 0, StatusCode(err))
}

func TestClient_Subscribe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/push/subscriptions", r.URL.Path)

		var req api.SubscribeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "dev-1", req.DeviceID)

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(api.SubscribeResponse{SubscriptionID: "s1", PushURL: "/api/v1/push/ws"})
	}))
	defer server.Close()

	resp, err := NewClient(server.URL).Subscribe(context.Background(), "tok", api.SubscribeRequest{DeviceID: "dev-1"})
	require.NoError(t, err)
	assert.Equal(t, "s1", resp.SubscriptionID)
}

func TestClient_Health(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/health", r.URL.Path)
		_ = json.NewEncoder(w).Encode(api.HealthResponse{Status: "ok"})
	}))
	defer server.Close()

	resp, err := NewClient(server.URL).Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
}
