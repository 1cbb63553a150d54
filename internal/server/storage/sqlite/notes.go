package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/iudanet/gennotes/internal/models"
	"github.com/iudanet/gennotes/internal/server/storage"
)

const noteColumns = `id, title, content, folder_id, color, tags, pinned, archived, locked, created_at, updated_at`

// CreateNote inserts a new note owned by userID
func (s *Storage) CreateNote(ctx context.Context, userID string, note *models.Note) error {
	tags, err := encodeTags(note.Tags)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO notes (` + noteColumns + `, user_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		note.ID,
		note.Title,
		note.Content,
		note.FolderID,
		note.Color,
		tags,
		note.Pinned,
		note.Archived,
		note.Locked,
		note.CreatedAt.UTC(),
		note.UpdatedAt.UTC(),
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert note: %w", err)
	}

	return nil
}

// GetNote returns ErrNoteNotFound for missing or foreign notes
func (s *Storage) GetNote(ctx context.Context, userID, id string) (*models.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes WHERE id = ? AND user_id = ?`

	note, err := scanNote(s.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNoteNotFound
		}
		return nil, fmt.Errorf("failed to get note: %w", err)
	}

	return note, nil
}

// ListNotes returns user's notes, most recently updated first
func (s *Storage) ListNotes(ctx context.Context, userID string) ([]*models.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes WHERE user_id = ? ORDER BY updated_at DESC, id`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	notes := []*models.Note{}
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, note)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return notes, nil
}

// UpdateNote replaces the stored note with the same id
func (s *Storage) UpdateNote(ctx context.Context, userID string, note *models.Note) error {
	tags, err := encodeTags(note.Tags)
	if err != nil {
		return err
	}

	query := `
		UPDATE notes
		SET title = ?, content = ?, folder_id = ?, color = ?, tags = ?,
		    pinned = ?, archived = ?, locked = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		note.Title,
		note.Content,
		note.FolderID,
		note.Color,
		tags,
		note.Pinned,
		note.Archived,
		note.Locked,
		note.UpdatedAt.UTC(),
		note.ID,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update note: %w", err)
	}

	return expectOneRow(result, storage.ErrNoteNotFound)
}

// DeleteNote removes the note; returns ErrNoteNotFound if nothing was deleted
func (s *Storage) DeleteNote(ctx context.Context, userID, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}

	return expectOneRow(result, storage.ErrNoteNotFound)
}

// rowScanner общий интерфейс *sql.Row и *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(row rowScanner) (*models.Note, error) {
	note := &models.Note{}
	var tags string

	err := row.Scan(
		&note.ID,
		&note.Title,
		&note.Content,
		&note.FolderID,
		&note.Color,
		&tags,
		&note.Pinned,
		&note.Archived,
		&note.Locked,
		&note.CreatedAt,
		&note.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	note.Tags = []string{}
	if tags != "" {
		if err := json.Unmarshal([]byte(tags), &note.Tags); err != nil {
			return nil, fmt.Errorf("failed to decode tags: %w", err)
		}
	}
	note.CreatedAt = note.CreatedAt.UTC()
	note.UpdatedAt = note.UpdatedAt.UTC()

	return note, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("failed to encode tags: %w", err)
	}
	return string(data), nil
}

func expectOneRow(result sql.Result, notFound error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return notFound
	}
	return nil
}
