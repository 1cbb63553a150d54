package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	syncpkg "github.com/iudanet/gennotes/internal/client/sync"
)

func (c *Cli) newSyncCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Send queued changes to the server now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSync(cmd.Context())
		},
	}
}

func (c *Cli) runSync(ctx context.Context) error {
	result, err := c.executor.Run(ctx)
	if err != nil {
		if errors.Is(err, syncpkg.ErrMissingToken) {
			return fmt.Errorf("not logged in, changes stay queued: run 'gennotes login'")
		}
		return fmt.Errorf("synchronization failed: %w", err)
	}

	// Демон тоже выполнит проход и передаст запрос фоновому контексту
	if err := c.signal.Request(); err != nil {
		c.logger.Debug("Failed to signal daemon", "error", err)
	}

	c.printSyncReport(result)
	return nil
}

func (c *Cli) printSyncReport(r *syncpkg.Result) {
	if r.Processed == 0 && r.Deferred == 0 {
		c.io.Printf("%s Nothing to sync\n", okMark())
		return
	}

	c.io.Printf("%s Synced %d of %d\n", okMark(), r.Succeeded, r.Processed)
	if r.Failed > 0 {
		c.io.Printf("  %s will be retried\n", red(fmt.Sprintf("%d failed,", r.Failed)))
	}
	if r.Conflicts > 0 {
		c.io.Printf("  %s run 'gennotes conflicts list'\n", yellow(fmt.Sprintf("%d conflicts,", r.Conflicts)))
	}
	if r.Deferred > 0 {
		c.io.Printf("  %d waiting for earlier changes\n", r.Deferred)
	}
}
