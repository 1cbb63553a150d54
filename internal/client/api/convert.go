package api

import (
	"slices"

	"github.com/iudanet/gennotes/internal/models"
	"github.com/iudanet/gennotes/pkg/api"
)

// NoteFromAPI converts a server note into the cached representation
func NoteFromAPI(n *api.Note) *models.Note {
	if n == nil {
		return nil
	}
	tags := slices.Clone(n.Tags)
	if tags == nil {
		tags = []string{}
	}
	return &models.Note{
		ID:        n.ID,
		Title:     n.Title,
		Content:   n.Content,
		FolderID:  n.FolderID,
		Color:     n.Color,
		Tags:      tags,
		Pinned:    n.Pinned,
		Archived:  n.Archived,
		Locked:    n.Locked,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}

// RequestFromPatch converts a mutation payload into the request body
func RequestFromPatch(p *models.NotePatch) api.NoteRequest {
	if p == nil {
		return api.NoteRequest{}
	}
	c := p.Clone()
	return api.NoteRequest{
		Title:    c.Title,
		Content:  c.Content,
		FolderID: c.FolderID,
		Color:    c.Color,
		Tags:     c.Tags,
		Pinned:   c.Pinned,
		Archived: c.Archived,
		Locked:   c.Locked,
	}
}
