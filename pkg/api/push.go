package api

// PushMessageType различает типы push сообщений
type PushMessageType string

const (
	// PushReminder обычное уведомление-напоминание
	PushReminder PushMessageType = "reminder"
	// PushDailySync сигнал пробуждения для фоновой синхронизации
	PushDailySync PushMessageType = "daily-sync"
)

// PushMessage сообщение, доставляемое клиенту через push канал
type PushMessage struct {
	Type  PushMessageType `json:"type"`
	Title string          `json:"title,omitempty"`
	Body  string          `json:"body,omitempty"`
	URL   string          `json:"url,omitempty"`
}

// SubscribeRequest регистрирует устройство для получения push сообщений
type SubscribeRequest struct {
	DeviceID string `json:"device_id"`
	Platform string `json:"platform,omitempty"`
}

// SubscribeResponse ответ на регистрацию push подписки
type SubscribeResponse struct {
	SubscriptionID string `json:"subscription_id"`
	// PushURL путь websocket канала относительно base URL сервера
	PushURL string `json:"push_url"`
}

// ReminderRequest напоминание, отправляемое на все устройства пользователя
type ReminderRequest struct {
	Title string `json:"title"`
	Body  string `json:"body,omitempty"`
	URL   string `json:"url,omitempty"`
}

// ReminderResponse число устройств, получивших напоминание
type ReminderResponse struct {
	Delivered int `json:"delivered"`
}
