package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"text/template"
	"time"

	"github.com/spf13/cobra"

	"github.com/iudanet/gennotes/internal/client/notes"
	"github.com/iudanet/gennotes/internal/client/storage"
	"github.com/iudanet/gennotes/internal/models"
)

// ErrAmbiguousID префикс подходит к нескольким заметкам
var ErrAmbiguousID = errors.New("ambiguous note id")

const noteTemplate = `{{bold .Title}}{{if .Pinned}} [pinned]{{end}}{{if .Archived}} [archived]{{end}}{{if .Locked}} [locked]{{end}}
ID:      {{.ID}}{{if .Local}} (not on server yet){{end}}
{{- if .Tags}}
Tags:    {{join .Tags ", "}}
{{- end}}
{{- if .FolderID}}
Folder:  {{.FolderID}}
{{- end}}
{{- if .Color}}
Color:   {{.Color}}
{{- end}}
{{- if not .UpdatedAt.IsZero}}
Updated: {{date .UpdatedAt}}
{{- end}}
---
{{.Content}}
---
`

var noteTmpl = template.Must(template.New("note").Funcs(template.FuncMap{
	"bold": bold,
	"join": strings.Join,
	"date": func(t time.Time) string { return t.Local().Format(time.DateTime) },
}).Parse(noteTemplate))

// noteFlags поля заметки, задаваемые флагами add и edit
type noteFlags struct {
	title    string
	content  string
	folder   string
	color    string
	tags     []string
	pinned   bool
	archived bool
	locked   bool
}

func (f *noteFlags) register(cmd *cobra.Command, withState bool) {
	fl := cmd.Flags()
	fl.StringVarP(&f.title, "title", "t", "", "note title")
	fl.StringVarP(&f.content, "content", "c", "", "note content")
	fl.StringVar(&f.folder, "folder", "", "folder id")
	fl.StringVar(&f.color, "color", "", "note color")
	fl.StringSliceVar(&f.tags, "tag", nil, "tag (repeatable; replaces the tag set)")
	fl.BoolVar(&f.pinned, "pinned", false, "pin the note")
	if withState {
		fl.BoolVar(&f.archived, "archived", false, "archive the note")
		fl.BoolVar(&f.locked, "locked", false, "lock the note")
	}
}

// patch содержит только явно заданные флаги
func (f *noteFlags) patch(cmd *cobra.Command) *models.NotePatch {
	changed := cmd.Flags().Changed
	p := &models.NotePatch{}
	if changed("title") {
		p.Title = models.Ptr(f.title)
	}
	if changed("content") {
		p.Content = models.Ptr(f.content)
	}
	if changed("folder") {
		p.FolderID = models.Ptr(f.folder)
	}
	if changed("color") {
		p.Color = models.Ptr(f.color)
	}
	if changed("tag") {
		tags := append([]string{}, f.tags...)
		p.Tags = &tags
	}
	if changed("pinned") {
		p.Pinned = models.Ptr(f.pinned)
	}
	if changed("archived") {
		p.Archived = models.Ptr(f.archived)
	}
	if changed("locked") {
		p.Locked = models.Ptr(f.locked)
	}
	return p
}

func (c *Cli) newNoteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "note",
		Aliases: []string{"notes"},
		Short:   "Work with notes offline",
	}
	cmd.AddCommand(
		c.newNoteAddCommand(),
		c.newNoteEditCommand(),
		c.newNoteRemoveCommand(),
		c.newNoteListCommand(),
		c.newNoteShowCommand(),
		c.newNoteTagsCommand(),
		c.newNoteRefreshCommand(),
	)
	return cmd
}

func (c *Cli) newNoteAddCommand() *cobra.Command {
	var (
		f       noteFlags
		syncNow bool
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a note",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			patch := f.patch(cmd)
			if patch.Title == nil {
				title, err := c.io.ReadInput("Title: ")
				if err != nil {
					return fmt.Errorf("failed to read title: %w", err)
				}
				patch.Title = &title
			}

			note, err := c.notes.Create(ctx, patch)
			if err != nil {
				return err
			}
			c.io.Printf("%s Created %s\n", okMark(), note.ID)
			return c.afterChange(ctx, syncNow)
		},
	}
	f.register(cmd, false)
	cmd.Flags().BoolVar(&syncNow, "sync", false, "sync right away")
	return cmd
}

func (c *Cli) newNoteEditCommand() *cobra.Command {
	var (
		f       noteFlags
		syncNow bool
	)
	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Change note fields given as flags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := c.resolveNoteID(ctx, args[0])
			if err != nil {
				return err
			}

			if _, err := c.notes.Update(ctx, id, f.patch(cmd)); err != nil {
				if errors.Is(err, notes.ErrEmptyPatch) {
					return fmt.Errorf("%w: pass at least one field flag", err)
				}
				return err
			}
			c.io.Printf("%s Updated %s\n", okMark(), id)
			return c.afterChange(ctx, syncNow)
		},
	}
	f.register(cmd, true)
	cmd.Flags().BoolVar(&syncNow, "sync", false, "sync right away")
	return cmd
}

func (c *Cli) newNoteRemoveCommand() *cobra.Command {
	var syncNow bool
	cmd := &cobra.Command{
		Use:     "rm ID",
		Aliases: []string{"delete"},
		Short:   "Delete a note",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := c.resolveNoteID(ctx, args[0])
			if err != nil {
				return err
			}
			if err := c.notes.Delete(ctx, id); err != nil {
				return err
			}
			c.io.Printf("%s Deleted %s\n", okMark(), id)
			return c.afterChange(ctx, syncNow)
		},
	}
	cmd.Flags().BoolVar(&syncNow, "sync", false, "sync right away")
	return cmd
}

func (c *Cli) newNoteListCommand() *cobra.Command {
	var opts notes.ListOptions
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List cached notes",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			list, err := c.notes.List(ctx, opts)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				c.io.Println("No notes.")
				return nil
			}

			dirty, err := c.dirtyNotes(ctx)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(c.io, 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "ID\tTITLE\tTAGS\tUPDATED\t")
			for _, n := range list {
				marks := ""
				if n.Pinned {
					marks += "^"
				}
				if dirty[n.ID] {
					marks += "*"
				}
				updated := "-"
				if !n.UpdatedAt.IsZero() {
					updated = n.UpdatedAt.Local().Format(time.DateTime)
				}
				_, _ = fmt.Fprintf(tw, "%s\t%s%s\t%s\t%s\t\n",
					n.ID, n.Title, marks, strings.Join(n.Tags, ","), updated)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			c.io.Println("^ pinned, * not synced")
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Tag, "tag", "", "only notes with tag")
	cmd.Flags().StringVar(&opts.FolderID, "folder", "", "only notes in folder")
	cmd.Flags().BoolVar(&opts.IncludeArchived, "archived", false, "include archived notes")
	return cmd
}

func (c *Cli) newNoteShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Print a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := c.resolveNoteID(ctx, args[0])
			if err != nil {
				return err
			}
			note, err := c.notes.Get(ctx, id)
			if err != nil {
				return err
			}
			return noteTmpl.Execute(c.io, note)
		},
	}
}

func (c *Cli) newNoteTagsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "List known tags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tags, err := c.notes.Tags(cmd.Context())
			if err != nil {
				return err
			}
			for _, tag := range tags {
				c.io.Println(tag)
			}
			return nil
		},
	}
}

func (c *Cli) newNoteRefreshCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Reload notes from the server (unsynced notes are kept)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := c.notes.Refresh(cmd.Context())
			if err != nil {
				return err
			}
			c.io.Printf("%s Refreshed: %d updated, %d removed, %d kept with local changes\n",
				okMark(), result.Updated, result.Removed, result.Skipped)
			return nil
		},
	}
}

// resolveNoteID принимает полный id или однозначный префикс
func (c *Cli) resolveNoteID(ctx context.Context, arg string) (string, error) {
	if _, err := c.notes.Get(ctx, arg); err == nil {
		return arg, nil
	} else if !errors.Is(err, storage.ErrNoteNotFound) {
		return "", err
	}

	all, err := c.notes.List(ctx, notes.ListOptions{IncludeArchived: true})
	if err != nil {
		return "", err
	}
	var matches []string
	for _, n := range all {
		if strings.HasPrefix(n.ID, arg) || strings.HasPrefix(strings.TrimPrefix(n.ID, models.LocalIDPrefix), arg) {
			matches = append(matches, n.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %s", storage.ErrNoteNotFound, arg)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%w: %s matches %d notes", ErrAmbiguousID, arg, len(matches))
	}
}

func (c *Cli) dirtyNotes(ctx context.Context) (map[string]bool, error) {
	pending, err := c.store.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending entries: %w", err)
	}
	dirty := make(map[string]bool, len(pending))
	for _, e := range pending {
		dirty[e.NoteID] = true
	}
	return dirty, nil
}

// afterChange синхронизирует сразу по --sync, иначе будит демон
func (c *Cli) afterChange(ctx context.Context, syncNow bool) error {
	if syncNow {
		return c.runSync(ctx)
	}
	if err := c.signal.Request(); err != nil {
		c.logger.Debug("Failed to signal daemon", "error", err)
	}
	return nil
}
