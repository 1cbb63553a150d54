package api

import "time"

// Note представляет заметку в том виде, в котором ее возвращает сервер
type Note struct {
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"` // используется клиентом для обнаружения конфликтов
	ID        string    `json:"_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	FolderID  string    `json:"folderId,omitempty"`
	Color     string    `json:"color,omitempty"`
	Tags      []string  `json:"tags"`
	Pinned    bool      `json:"pinned"`
	Archived  bool      `json:"archived"`
	Locked    bool      `json:"locked"`
}

// NoteRequest тело POST /notes и PUT /notes/{id}.
// Nil поле означает "не менять" (для PUT) или значение по умолчанию (для POST).
type NoteRequest struct {
	Title    *string   `json:"title,omitempty"`
	Content  *string   `json:"content,omitempty"`
	FolderID *string   `json:"folderId,omitempty"`
	Color    *string   `json:"color,omitempty"`
	Tags     *[]string `json:"tags,omitempty"`
	Pinned   *bool     `json:"pinned,omitempty"`
	Archived *bool     `json:"archived,omitempty"`
	Locked   *bool     `json:"locked,omitempty"`
}
