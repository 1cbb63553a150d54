package models

import (
	"slices"
	"strings"
	"time"
)

// LocalIDPrefix префикс временных идентификаторов заметок, созданных офлайн
const LocalIDPrefix = "local-"

// Note представляет локальную копию заметки с сервера (CachedNote).
// Запись всегда заменяется целиком при синхронизации или загрузке с сервера,
// поля никогда не сливаются по одному.
type Note struct {
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"` // UpdatedAt последняя подтвержденная сервером версия
	ID        string    `json:"_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	FolderID  string    `json:"folderId,omitempty"`
	Color     string    `json:"color,omitempty"`
	Tags      []string  `json:"tags"`
	Pinned    bool      `json:"pinned"`
	Archived  bool      `json:"archived"`
	Locked    bool      `json:"locked"`
	Local     bool      `json:"_local,omitempty"` // Local заметка создана офлайн и еще не имеет серверного ID
}

// IsLocalID reports whether id is a client-generated placeholder.
func IsLocalID(id string) bool {
	return strings.HasPrefix(id, LocalIDPrefix)
}

// NotePatch набор изменяемых полей заметки. Nil означает "поле не трогали".
type NotePatch struct {
	Title    *string   `json:"title,omitempty"`
	Content  *string   `json:"content,omitempty"`
	FolderID *string   `json:"folderId,omitempty"`
	Color    *string   `json:"color,omitempty"`
	Tags     *[]string `json:"tags,omitempty"`
	Pinned   *bool     `json:"pinned,omitempty"`
	Archived *bool     `json:"archived,omitempty"`
	Locked   *bool     `json:"locked,omitempty"`
}

// IsEmpty reports whether the patch touches no field.
func (p *NotePatch) IsEmpty() bool {
	if p == nil {
		return true
	}
	return p.Title == nil && p.Content == nil && p.FolderID == nil && p.Color == nil &&
		p.Tags == nil && p.Pinned == nil && p.Archived == nil && p.Locked == nil
}

// Clone создает глубокую копию patch
func (p *NotePatch) Clone() *NotePatch {
	if p == nil {
		return nil
	}
	c := &NotePatch{}
	if p.Title != nil {
		c.Title = Ptr(*p.Title)
	}
	if p.Content != nil {
		c.Content = Ptr(*p.Content)
	}
	if p.FolderID != nil {
		c.FolderID = Ptr(*p.FolderID)
	}
	if p.Color != nil {
		c.Color = Ptr(*p.Color)
	}
	if p.Tags != nil {
		tags := slices.Clone(*p.Tags)
		c.Tags = &tags
	}
	if p.Pinned != nil {
		c.Pinned = Ptr(*p.Pinned)
	}
	if p.Archived != nil {
		c.Archived = Ptr(*p.Archived)
	}
	if p.Locked != nil {
		c.Locked = Ptr(*p.Locked)
	}
	return c
}

// Apply returns a copy of the note with every non-nil patch field applied.
// UpdatedAt is left untouched: it always tracks the server-confirmed version.
func (n *Note) Apply(p *NotePatch) *Note {
	out := n.Clone()
	if p == nil {
		return out
	}
	if p.Title != nil {
		out.Title = *p.Title
	}
	if p.Content != nil {
		out.Content = *p.Content
	}
	if p.FolderID != nil {
		out.FolderID = *p.FolderID
	}
	if p.Color != nil {
		out.Color = *p.Color
	}
	if p.Tags != nil {
		out.Tags = slices.Clone(*p.Tags)
	}
	if p.Pinned != nil {
		out.Pinned = *p.Pinned
	}
	if p.Archived != nil {
		out.Archived = *p.Archived
	}
	if p.Locked != nil {
		out.Locked = *p.Locked
	}
	return out
}

// Merge строит полный payload новой заметки: поля из p имеют приоритет,
// остальные берутся из n. Используется стратегией "keep both".
func (n *Note) Merge(p *NotePatch) *NotePatch {
	merged := n.Apply(p)
	tags := slices.Clone(merged.Tags)
	return &NotePatch{
		Title:    Ptr(merged.Title),
		Content:  Ptr(merged.Content),
		FolderID: Ptr(merged.FolderID),
		Color:    Ptr(merged.Color),
		Tags:     &tags,
		Pinned:   Ptr(merged.Pinned),
		Archived: Ptr(merged.Archived),
		Locked:   Ptr(merged.Locked),
	}
}

// Clone создает глубокую копию заметки
func (n *Note) Clone() *Note {
	c := *n
	c.Tags = slices.Clone(n.Tags)
	return &c
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
