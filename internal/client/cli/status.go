package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

const healthTimeout = 2 * time.Second

func (c *Cli) newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show session, connectivity and sync queue state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runStatus(cmd.Context())
		},
	}
}

func (c *Cli) runStatus(ctx context.Context) error {
	st, err := c.auth.Status(ctx)
	if err != nil {
		return err
	}

	c.io.Println(bold("=== Status ==="))
	c.io.Printf("Server:   %s (%s)\n", c.cfg.ServerURL, c.reachability(ctx))

	switch {
	case !st.Authenticated && st.Username == "":
		c.io.Printf("Session:  %s\n", yellow("not logged in"))
	case !st.Authenticated:
		c.io.Printf("Session:  %s (%s)\n", yellow("logged out"), st.Username)
	case st.Expired:
		c.io.Printf("Session:  %s as %s, run 'gennotes login'\n", red("expired"), st.Username)
	default:
		c.io.Printf("Session:  %s as %s\n", green("active"), st.Username)
		if !st.ExpiresAt.IsZero() {
			c.io.Printf("Expires:  %s\n", st.ExpiresAt.Local().Format(time.DateTime))
		}
	}

	pending, err := c.executor.PendingCount(ctx)
	if err != nil {
		return err
	}
	conflicts, err := c.resolver.List(ctx)
	if err != nil {
		return err
	}
	lastSync, err := c.store.GetLastSync(ctx)
	if err != nil {
		return fmt.Errorf("failed to get last sync time: %w", err)
	}

	c.io.Printf("Pending:  %d\n", pending)
	if len(conflicts) > 0 {
		c.io.Printf("Conflicts: %s, see 'gennotes conflicts list'\n", red(len(conflicts)))
	} else {
		c.io.Println("Conflicts: 0")
	}
	if lastSync.IsZero() {
		c.io.Println("Last sync: never")
	} else {
		c.io.Printf("Last sync: %s\n", lastSync.Local().Format(time.DateTime))
	}
	return nil
}

func (c *Cli) reachability(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	if _, err := c.client.Health(ctx); err != nil {
		c.logger.Debug("Health check failed", "error", err)
		return yellow("offline")
	}
	return green("online")
}
