package conflict

import (
	"fmt"
	"strings"
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/iudanet/gennotes/internal/models"
)

// LineOp тип строки построчного diff
type LineOp int

const (
	LineEqual LineOp = iota
	LineInsert
	LineDelete
)

// Line строка diff содержимого заметки
type Line struct {
	Text string
	Op   LineOp
}

// FieldChange поле, значение которого расходится между версиями
type FieldChange struct {
	Field  string
	Server string
	Local  string
}

// Comparison различия между серверной и локальной версией
type Comparison struct {
	Fields  []FieldChange
	Content []Line // пусто, если содержимое совпадает
}

// Compare builds the difference between the server record and the server
// record with the local payload applied
func Compare(c *models.SyncConflict) *Comparison {
	server := c.Server
	if server == nil {
		server = &models.Note{ID: c.NoteID}
	}
	local := server.Apply(c.Local)

	cmp := &Comparison{}
	add := func(field, s, l string) {
		if s != l {
			cmp.Fields = append(cmp.Fields, FieldChange{Field: field, Server: s, Local: l})
		}
	}
	add("title", server.Title, local.Title)
	add("folder", server.FolderID, local.FolderID)
	add("color", server.Color, local.Color)
	add("tags", strings.Join(server.Tags, ", "), strings.Join(local.Tags, ", "))
	add("pinned", fmt.Sprint(server.Pinned), fmt.Sprint(local.Pinned))
	add("archived", fmt.Sprint(server.Archived), fmt.Sprint(local.Archived))
	add("locked", fmt.Sprint(server.Locked), fmt.Sprint(local.Locked))

	if server.Content != local.Content {
		cmp.Content = Lines(server.Content, local.Content)
	}
	return cmp
}

// Lines computes a line-by-line diff from a to b
func Lines(a, b string) []Line {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = time.Second

	aChars, bChars, arr := dmp.DiffLinesToRunes(a, b)
	diffs := dmp.DiffMainRunes(aChars, bChars, false)
	diffs = dmp.DiffCharsToLines(diffs, arr)

	var lines []Line
	for _, d := range diffs {
		op := LineEqual
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			op = LineInsert
		case diffmatchpatch.DiffDelete:
			op = LineDelete
		}
		for _, text := range strings.SplitAfter(d.Text, "\n") {
			if text == "" {
				continue
			}
			lines = append(lines, Line{Op: op, Text: strings.TrimSuffix(text, "\n")})
		}
	}
	return lines
}
