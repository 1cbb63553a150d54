package models

import "time"

// SyncAction тип отложенной мутации
type SyncAction string

const (
	ActionCreate SyncAction = "create"
	ActionUpdate SyncAction = "update"
	ActionDelete SyncAction = "delete"
)

// Valid reports whether a is one of the known actions.
func (a SyncAction) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// SyncStatus состояние записи очереди
type SyncStatus string

const (
	StatusPending  SyncStatus = "pending"  // ожидает отправки
	StatusSynced   SyncStatus = "synced"   // применена на сервере (терминальное)
	StatusError    SyncStatus = "error"    // ошибка сети/HTTP, будет повторена
	StatusConflict SyncStatus = "conflict" // ждет ручного разрешения конфликта
)

// SyncQueueEntry представляет мутацию, еще не подтвержденную сервером.
// Порядок воспроизведения задается ID (автоинкремент).
type SyncQueueEntry struct {
	Timestamp time.Time `json:"timestamp"`
	// BaseUpdatedAt значение updatedAt, которое клиент считал актуальным в момент
	// начала редактирования. Nil отключает обнаружение конфликтов (только для update).
	BaseUpdatedAt *time.Time `json:"baseUpdatedAt,omitempty"`
	Payload       *NotePatch `json:"payload,omitempty"`
	NoteID        string     `json:"noteId"`
	Action        SyncAction `json:"action"`
	Status        SyncStatus `json:"status"`
	LastError     string     `json:"lastError,omitempty"`
	ID            uint64     `json:"id"`
	RetryCount    int        `json:"retryCount"`
	Synced        bool       `json:"synced"`
}

// IsRetryable reports whether the executor should pick the entry up automatically.
func (e *SyncQueueEntry) IsRetryable() bool {
	return !e.Synced && e.Status != StatusConflict
}

// SyncConflict создается ровно один раз для записи очереди, получившей статус conflict
type SyncConflict struct {
	CreatedAt     time.Time  `json:"createdAt"`
	BaseUpdatedAt *time.Time `json:"baseUpdatedAt,omitempty"`
	Local         *NotePatch `json:"local"`  // Local payload, который пытался отправить клиент
	Server        *Note      `json:"server"` // Server актуальная серверная запись
	NoteID        string     `json:"noteId"`
	ID            uint64     `json:"id"`
	EntryID       uint64     `json:"entryId"`
}
