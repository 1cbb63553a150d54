package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/iudanet/gennotes/internal/models"
	"github.com/iudanet/gennotes/internal/server/storage"
	"github.com/iudanet/gennotes/pkg/api"
)

// PushPath путь websocket канала, который получают клиенты при подписке
const PushPath = "/api/v1/push/ws"

// PushHub доставляет сообщения подключенным устройствам
type PushHub interface {
	Serve(w http.ResponseWriter, r *http.Request, userID, deviceID string) error
	SendToUser(ctx context.Context, userID string, msg api.PushMessage) int
}

// PushHandler регистрирует устройства и обслуживает push канал
type PushHandler struct {
	responder
	storage storage.PushStorage
	hub     PushHub
	now     func() time.Time
}

// NewPushHandler creates a new push handler
func NewPushHandler(logger *slog.Logger, storage storage.PushStorage, hub PushHub) *PushHandler {
	return &PushHandler{
		responder: responder{logger: logger},
		storage:   storage,
		hub:       hub,
		now:       time.Now,
	}
}

// Subscribe обрабатывает POST /api/v1/push/subscriptions
// Повторная подписка устройства возвращает ту же подписку
func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req api.SubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.DeviceID) == "" {
		h.sendError(w, "device_id is required", http.StatusBadRequest)
		return
	}

	sub := &models.PushSubscription{
		ID:        uuid.New().String(),
		UserID:    userID,
		DeviceID:  req.DeviceID,
		Platform:  req.Platform,
		CreatedAt: h.now(),
	}
	if err := h.storage.SaveSubscription(ctx, sub); err != nil {
		h.logger.ErrorContext(ctx, "failed to save push subscription", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "push subscription saved",
		slog.String("user_id", userID),
		slog.String("device_id", req.DeviceID))

	h.sendJSON(w, api.SubscribeResponse{SubscriptionID: sub.ID, PushURL: PushPath}, http.StatusCreated)
}

// Unsubscribe обрабатывает DELETE /api/v1/push/subscriptions/{device}
func (h *PushHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	deviceID := mux.Vars(r)["device"]
	if err := h.storage.DeleteSubscription(ctx, userID, deviceID); err != nil {
		if errors.Is(err, storage.ErrSubscriptionNotFound) {
			h.sendError(w, "subscription not found", http.StatusNotFound)
			return
		}
		h.logger.ErrorContext(ctx, "failed to delete push subscription", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Connect обрабатывает GET /api/v1/push/ws?device=<id>
// Канал открывается только для подписанного устройства
func (h *PushHandler) Connect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	deviceID := r.URL.Query().Get("device")
	if deviceID == "" {
		h.sendError(w, "device is required", http.StatusBadRequest)
		return
	}

	subs, err := h.storage.ListSubscriptions(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list push subscriptions", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if !subscribed(subs, deviceID) {
		h.sendError(w, "device is not subscribed", http.StatusForbidden)
		return
	}

	if err := h.hub.Serve(w, r, userID, deviceID); err != nil {
		h.logger.WarnContext(ctx, "push connection failed", slog.Any("error", err))
	}
}

// Remind обрабатывает POST /api/v1/push/reminders
// Отправляет напоминание на все подключенные устройства пользователя
func (h *PushHandler) Remind(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req api.ReminderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		h.sendError(w, "title is required", http.StatusBadRequest)
		return
	}

	delivered := h.hub.SendToUser(ctx, userID, api.PushMessage{
		Type:  api.PushReminder,
		Title: req.Title,
		Body:  req.Body,
		URL:   req.URL,
	})

	h.sendJSON(w, api.ReminderResponse{Delivered: delivered}, http.StatusOK)
}

func subscribed(subs []*models.PushSubscription, deviceID string) bool {
	for _, s := range subs {
		if s.DeviceID == deviceID {
			return true
		}
	}
	return false
}
