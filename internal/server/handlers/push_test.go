package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/gennotes/internal/models"
	"github.com/iudanet/gennotes/pkg/api"
)

// fakeHub запоминает подключения и отправленные сообщения
type fakeHub struct {
	served   []string
	messages []api.PushMessage
	mu       sync.Mutex
}

func (f *fakeHub) Serve(w http.ResponseWriter, r *http.Request, userID, deviceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.served = append(f.served, userID+"/"+deviceID)
	w.WriteHeader(http.StatusSwitchingProtocols)
	return nil
}

func (f *fakeHub) SendToUser(ctx context.Context, userID string, msg api.PushMessage) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, msg)
	return 2
}

func newPushHandler(t *testing.T) (*PushHandler, *fakeHub, string) {
	t.Helper()

	db := setupTestStorage(t)
	user := &models.User{ID: uuid.New().String(), Username: "alice", PasswordHash: "hash", CreatedAt: time.Now()}
	require.NoError(t, db.CreateUser(context.Background(), user))

	hub := &fakeHub{}
	return NewPushHandler(setupTestLogger(), db, hub), hub, user.ID
}

func TestPushHandler_Subscribe(t *testing.T) {
	h, _, userID := newPushHandler(t)

	w := httptest.NewRecorder()
	h.Subscribe(w, newRequest(t, http.MethodPost, "/api/v1/push/subscriptions",
		api.SubscribeRequest{DeviceID: "laptop", Platform: "cli"}, userID, nil))
	require.Equal(t, http.StatusCreated, w.Code)

	first := decodeBody[api.SubscribeResponse](t, w)
	assert.NotEmpty(t, first.SubscriptionID)
	assert.Equal(t, PushPath, first.PushURL)

	// Повторная подписка идемпотентна
	w = httptest.NewRecorder()
	h.Subscribe(w, newRequest(t, http.MethodPost, "/api/v1/push/subscriptions",
		api.SubscribeRequest{DeviceID: "laptop"}, userID, nil))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, first.SubscriptionID, decodeBody[api.SubscribeResponse](t, w).SubscriptionID)

	w = httptest.NewRecorder()
	h.Subscribe(w, newRequest(t, http.MethodPost, "/api/v1/push/subscriptions", api.SubscribeRequest{}, userID, nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPushHandler_Connect(t *testing.T) {
	h, hub, userID := newPushHandler(t)

	w := httptest.NewRecorder()
	h.Connect(w, newRequest(t, http.MethodGet, PushPath+"?device=laptop", nil, userID, nil))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	h.Connect(w, newRequest(t, http.MethodGet, PushPath, nil, userID, nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	h.Subscribe(w, newRequest(t, http.MethodPost, "/api/v1/push/subscriptions",
		api.SubscribeRequest{DeviceID: "laptop"}, userID, nil))
	require.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	h.Connect(w, newRequest(t, http.MethodGet, PushPath+"?device=laptop", nil, userID, nil))
	assert.Equal(t, []string{userID + "/laptop"}, hub.served)
}

func TestPushHandler_Unsubscribe(t *testing.T) {
	h, _, userID := newPushHandler(t)

	w := httptest.NewRecorder()
	h.Subscribe(w, newRequest(t, http.MethodPost, "/api/v1/push/subscriptions",
		api.SubscribeRequest{DeviceID: "laptop"}, userID, nil))
	require.Equal(t, http.StatusCreated, w.Code)

	vars := map[string]string{"device": "laptop"}
	w = httptest.NewRecorder()
	h.Unsubscribe(w, newRequest(t, http.MethodDelete, "/api/v1/push/subscriptions/laptop", nil, userID, vars))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	h.Unsubscribe(w, newRequest(t, http.MethodDelete, "/api/v1/push/subscriptions/laptop", nil, userID, vars))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPushHandler_Remind(t *testing.T) {
	h, hub, userID := newPushHandler(t)

	w := httptest.NewRecorder()
	h.Remind(w, newRequest(t, http.MethodPost, "/api/v1/push/reminders",
		api.ReminderRequest{Title: "Standup", Body: "in 5 minutes"}, userID, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, decodeBody[api.ReminderResponse](t, w).Delivered)

	require.Len(t, hub.messages, 1)
	assert.Equal(t, api.PushMessage{Type: api.PushReminder, Title: "Standup", Body: "in 5 minutes"}, hub.messages[0])

	w = httptest.NewRecorder()
	h.Remind(w, newRequest(t, http.MethodPost, "/api/v1/push/reminders", api.ReminderRequest{}, userID, nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
