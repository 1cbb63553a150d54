package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/iudanet/gennotes/internal/client/conflict"
	"github.com/iudanet/gennotes/internal/models"
)

func (c *Cli) newConflictsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "conflicts",
		Aliases: []string{"conflict"},
		Short:   "Inspect and resolve sync conflicts",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List unresolved conflicts",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.runConflictsList(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "show ID",
			Short: "Show server and local versions side by side",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseConflictID(args[0])
				if err != nil {
					return err
				}
				return c.runConflictShow(cmd.Context(), id)
			},
		},
		c.newConflictResolveCommand(),
	)
	return cmd
}

func (c *Cli) newConflictResolveCommand() *cobra.Command {
	var strategy string
	names := make([]string, 0, len(conflict.Strategies))
	for _, s := range conflict.Strategies {
		names = append(names, string(s))
	}

	cmd := &cobra.Command{
		Use:   "resolve ID",
		Short: "Resolve a conflict",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseConflictID(args[0])
			if err != nil {
				return err
			}

			if strategy == "" {
				if err := c.runConflictShow(ctx, id); err != nil {
					return err
				}
				strategy, err = c.io.Select("How do you want to resolve it?", names)
				if err != nil {
					return fmt.Errorf("failed to choose strategy: %w", err)
				}
			}
			st, err := conflict.ParseStrategy(strategy)
			if err != nil {
				return err
			}

			note, err := c.resolver.Resolve(ctx, id, st)
			if err != nil {
				var resolveErr *conflict.ResolveError
				if errors.As(err, &resolveErr) {
					return fmt.Errorf("%w; the conflict is kept, try again later", err)
				}
				return err
			}

			c.io.Printf("%s Conflict %d resolved with %s, note %s\n", okMark(), id, st, note.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&strategy, "strategy", "s", "", "one of: "+strings.Join(names, ", "))
	return cmd
}

func (c *Cli) runConflictsList(ctx context.Context) error {
	conflicts, err := c.resolver.List(ctx)
	if err != nil {
		return err
	}
	if len(conflicts) == 0 {
		c.io.Printf("%s No conflicts\n", okMark())
		return nil
	}
	for _, cf := range conflicts {
		c.io.Printf("%s  %s  %s  %s\n",
			bold(cf.ID), cf.CreatedAt.Local().Format(time.DateTime), cf.NoteID, conflictTitle(cf))
	}
	return nil
}

func (c *Cli) runConflictShow(ctx context.Context, id uint64) error {
	cf, err := c.resolver.Get(ctx, id)
	if err != nil {
		return err
	}

	c.io.Printf("%s %d: %s\n", bold("Conflict"), cf.ID, conflictTitle(cf))
	if cf.Server != nil {
		c.io.Printf("Server changed at %s", cf.Server.UpdatedAt.Local().Format(time.DateTime))
		if cf.BaseUpdatedAt != nil {
			c.io.Printf(", your edit was based on %s", cf.BaseUpdatedAt.Local().Format(time.DateTime))
		}
		c.io.Println()
	}

	cmp := conflict.Compare(cf)
	if len(cmp.Fields) == 0 && len(cmp.Content) == 0 {
		c.io.Println("Versions are identical.")
		return nil
	}
	for _, f := range cmp.Fields {
		c.io.Printf("%-9s %s | %s\n", f.Field+":", red(f.Server), green(f.Local))
	}
	if len(cmp.Content) > 0 {
		c.io.Println("content:")
		for _, line := range cmp.Content {
			switch line.Op {
			case conflict.LineDelete:
				c.io.Println(red("- " + line.Text))
			case conflict.LineInsert:
				c.io.Println(green("+ " + line.Text))
			default:
				c.io.Println("  " + line.Text)
			}
		}
	}
	c.io.Printf("%s server, %s local\n", red("-"), green("+"))
	return nil
}

func conflictTitle(cf *models.SyncConflict) string {
	if cf.Local != nil && cf.Local.Title != nil {
		return *cf.Local.Title
	}
	if cf.Server != nil {
		return cf.Server.Title
	}
	return ""
}

func parseConflictID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid conflict id %q", s)
	}
	return id, nil
}
